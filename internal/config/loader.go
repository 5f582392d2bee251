package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Loader handles configuration loading
type Loader struct {
	configPath string
}

// NewLoader creates a new config loader
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
	}
}

// Load loads the configuration from file and environment
func (l *Loader) Load() (*Config, error) {
	configPath := l.configPath
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(home, ".covera", "covera.json")
	}

	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	v.SetEnvPrefix("COVERA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only surfaces keys viper already knows about, so the
	// prefixed names (COVERA_SERVER_PORT, COVERA_SESSIONS_DIR, ...) need
	// explicit bindings to reach Unmarshal.
	envKeys := []string{
		"server.host",
		"server.port",
		"cors.allowed_origins",
		"sessions.dir",
		"ai.timeout_seconds",
		"logging.level",
		"logging.file",
	}
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	// The config file is optional; env and defaults alone are enough to run
	if _, err := os.Stat(configPath); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applyProcessEnv(cfg); err != nil {
		return nil, err
	}

	// Set sessions directory if not specified
	if cfg.Sessions.Dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		cfg.Sessions.Dir = filepath.Join(home, ".covera", "sessions")
	}

	return cfg, nil
}

// applyProcessEnv applies the bare environment options the service has always
// recognized: PORT, CORS_ORIGIN, API_KEY and SESSIONS_DIR.
func applyProcessEnv(cfg *Config) error {
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid PORT value %q: %w", port, err)
		}
		cfg.Server.Port = p
	}

	if origin := os.Getenv("CORS_ORIGIN"); origin != "" {
		cfg.CORS.AllowedOrigins = strings.Split(origin, ",")
		for i := range cfg.CORS.AllowedOrigins {
			cfg.CORS.AllowedOrigins[i] = strings.TrimSpace(cfg.CORS.AllowedOrigins[i])
		}
	}

	if dir := os.Getenv("SESSIONS_DIR"); dir != "" {
		cfg.Sessions.Dir = dir
	}

	if key := os.Getenv("API_KEY"); key != "" {
		if len(cfg.AI.Profiles) == 0 {
			cfg.AI.Profiles = []AIProfile{{
				ID:       "default",
				Provider: "gemini",
				APIKey:   key,
				Model:    "gemini-2.0-flash",
			}}
		} else {
			for i := range cfg.AI.Profiles {
				if cfg.AI.Profiles[i].APIKey == "" {
					cfg.AI.Profiles[i].APIKey = key
				}
			}
		}
	}

	return nil
}

// GetConfigPath returns the config file path
func (l *Loader) GetConfigPath() string {
	if l.configPath != "" {
		return l.configPath
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".covera", "covera.json")
}

// Load is a convenience function that creates a loader and loads the config
func Load(configPath string) (*Config, error) {
	loader := NewLoader(configPath)
	return loader.Load()
}
