package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harun/covera/internal/config"
	"github.com/harun/covera/internal/logger"
	"github.com/harun/covera/pkg/advisor"
	"github.com/harun/covera/pkg/gateway"
	"github.com/harun/covera/pkg/session"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Covera API server",
	Long: `Run the Covera API server in the foreground until interrupted.
Configuration is read from the config file and environment (PORT,
CORS_ORIGIN, API_KEY, SESSIONS_DIR). The process exits non-zero when no
upstream credential is configured or the listening port is already bound.`,
	RunE:         runServe,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	lg, err := logger.New(logger.Config{
		Level:   cfg.Logging.Level,
		File:    cfg.Logging.File,
		Console: true,
		Pretty:  true,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer lg.Close()
	zl := lg.GetZerolog()

	store, err := session.NewStore(cfg.Sessions.Dir, zl)
	if err != nil {
		return fmt.Errorf("failed to initialize session store: %w", err)
	}
	defer store.Close()

	profile := cfg.PrimaryProfile()
	provider, err := advisor.NewProvider(advisor.AuthProfile{
		ID:       profile.ID,
		Provider: profile.Provider,
		APIKey:   profile.APIKey,
		Model:    profile.Model,
		Priority: profile.Priority,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize provider: %w", err)
	}

	orch, err := advisor.New(advisor.Config{
		Store:    store,
		Provider: provider,
		Persona: advisor.Persona{
			Name:              cfg.Persona.Name,
			Description:       cfg.Persona.Description,
			ProductCategories: cfg.Persona.ProductCategories,
			EligibilityRules:  cfg.Persona.EligibilityRules,
		},
		Model:   profile.Model,
		Timeout: time.Duration(cfg.AI.TimeoutSeconds) * time.Second,
		Logger:  zl,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize orchestrator: %w", err)
	}

	srv, err := gateway.NewServer(gateway.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Store:          store,
		Orchestrator:   orch,
		Logger:         zl,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		// A port that is already in use lands here
		return err
	case sig := <-sigCh:
		zl.Info().Str("signal", sig.String()).Msg("Shutting down")
		return srv.Stop()
	}
}
