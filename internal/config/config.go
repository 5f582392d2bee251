package config

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Config represents the main Covera configuration
type Config struct {
	// HTTP server
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Cross-origin callers
	CORS CORSConfig `json:"cors" mapstructure:"cors"`

	// Upstream AI providers
	AI AIConfig `json:"ai" mapstructure:"ai"`

	// Session persistence
	Sessions SessionsConfig `json:"sessions" mapstructure:"sessions"`

	// Advisory persona rendered into the per-call system instruction
	Persona PersonaConfig `json:"persona" mapstructure:"persona"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// ServerConfig holds HTTP listener configuration
type ServerConfig struct {
	Host string `json:"host" mapstructure:"host"`
	Port int    `json:"port" mapstructure:"port"`
}

// CORSConfig holds allowed cross-origin callers
type CORSConfig struct {
	AllowedOrigins []string `json:"allowed_origins" mapstructure:"allowed_origins"`
}

// AIConfig holds AI provider configuration
type AIConfig struct {
	Profiles       []AIProfile `json:"profiles" mapstructure:"profiles"`
	TimeoutSeconds int         `json:"timeout_seconds" mapstructure:"timeout_seconds"`
}

// AIProfile represents an AI provider profile
type AIProfile struct {
	ID       string `json:"id" mapstructure:"id"`
	Provider string `json:"provider" mapstructure:"provider"` // gemini, openai, anthropic
	APIKey   string `json:"api_key" mapstructure:"api_key"`
	Model    string `json:"model" mapstructure:"model"`
	Priority int    `json:"priority" mapstructure:"priority"`
}

// SessionsConfig holds session store configuration
type SessionsConfig struct {
	Dir string `json:"dir" mapstructure:"dir"`
}

// PersonaConfig defines the advisory persona and its constraints
type PersonaConfig struct {
	Name              string   `json:"name" mapstructure:"name"`
	Description       string   `json:"description" mapstructure:"description"`
	ProductCategories []string `json:"product_categories" mapstructure:"product_categories"`
	EligibilityRules  []string `json:"eligibility_rules" mapstructure:"eligibility_rules"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `json:"level" mapstructure:"level"`
	File  string `json:"file" mapstructure:"file"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 5000,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{},
		},
		AI: AIConfig{
			Profiles:       []AIProfile{},
			TimeoutSeconds: 60,
		},
		Sessions: SessionsConfig{
			Dir: "",
		},
		Persona: PersonaConfig{
			Name:        "Covera",
			Description: "a friendly insurance recommendation assistant",
			ProductCategories: []string{
				"term life insurance",
				"health insurance",
				"motor insurance",
			},
			EligibilityRules: []string{
				"Applicants must be 18 years or older.",
				"Recommend only products from the listed categories; decline anything else.",
			},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// PrimaryProfile returns the highest-priority AI profile.
func (c *Config) PrimaryProfile() AIProfile {
	if len(c.AI.Profiles) == 0 {
		return AIProfile{}
	}

	best := c.AI.Profiles[0]
	for _, profile := range c.AI.Profiles[1:] {
		if profile.Priority > best.Priority {
			best = profile
		}
	}
	return best
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	// Require at least one AI credential; the process must not start without one
	if len(c.AI.Profiles) == 0 {
		return fmt.Errorf("no AI credentials configured: at least one AI profile is required")
	}

	for i, profile := range c.AI.Profiles {
		if profile.ID == "" {
			return fmt.Errorf("AI profile %d: ID is required", i)
		}
		if profile.APIKey == "" {
			return fmt.Errorf("AI profile %s: api_key is required", profile.ID)
		}
		switch profile.Provider {
		case "gemini", "openai", "anthropic":
		default:
			return fmt.Errorf("AI profile %s: invalid provider %s (must be: gemini, openai, anthropic)", profile.ID, profile.Provider)
		}
		if profile.Model == "" {
			return fmt.Errorf("AI profile %s: model is required", profile.ID)
		}
	}

	if c.AI.TimeoutSeconds <= 0 {
		return fmt.Errorf("ai timeout_seconds must be positive")
	}

	if strings.TrimSpace(c.Persona.Name) == "" {
		return fmt.Errorf("persona name is required")
	}
	if len(c.Persona.ProductCategories) == 0 {
		return fmt.Errorf("persona must define at least one product category")
	}
	if len(c.Persona.EligibilityRules) == 0 {
		return fmt.Errorf("persona must define at least one eligibility rule")
	}

	return nil
}
