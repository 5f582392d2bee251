package advisor

import (
	"context"
	"fmt"
	"strings"

	"github.com/harun/covera/pkg/session"
)

// Provider is an interface for LLM chat providers
type Provider interface {
	// Generate makes a single text-generation call
	Generate(ctx context.Context, request GenerateRequest) (*GenerateResponse, error)

	// Name returns the provider name
	Name() string
}

// GenerateRequest contains the request parameters for a provider call
type GenerateRequest struct {
	Model             string
	Contents          []session.Turn
	SystemInstruction string
	Temperature       float64
	MaxTokens         int
}

// GenerateResponse contains the response from a provider
type GenerateResponse struct {
	Text  string
	Usage *TokenUsage
}

// TokenUsage tracks token consumption
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// AuthProfile represents authentication credentials for LLM providers
type AuthProfile struct {
	ID       string `json:"id"`
	Provider string `json:"provider"` // "gemini", "openai", "anthropic"
	APIKey   string `json:"api_key"`
	Model    string `json:"model"`
	Priority int    `json:"priority"`
}

// NewProvider creates a new LLM provider based on auth profile
func NewProvider(profile AuthProfile) (Provider, error) {
	switch profile.Provider {
	case "gemini":
		return NewGeminiProvider(profile.APIKey), nil
	case "openai":
		return NewOpenAIProvider(profile.APIKey), nil
	case "anthropic":
		return NewAnthropicProvider(profile.APIKey), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", profile.Provider)
	}
}

// turnText flattens a turn's fragments into one string for providers whose
// wire format carries a single content field per message.
func turnText(t session.Turn) string {
	if len(t.Parts) == 1 {
		return t.Parts[0].Text
	}
	texts := make([]string, 0, len(t.Parts))
	for _, p := range t.Parts {
		texts = append(texts, p.Text)
	}
	return strings.Join(texts, "\n")
}
