// Package advisor orchestrates chat turns between stored sessions and an LLM
// provider: it merges the new user turn into the outgoing conversation, calls
// the provider with the persona's system instruction, appends the reply and
// persists the result. Either both the user and the model turn land in the
// store, or neither does.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/harun/covera/internal/observability"
	"github.com/harun/covera/pkg/session"
	"github.com/rs/zerolog"
)

const defaultUpstreamTimeout = 60 * time.Second

// Orchestrator coordinates the store and the provider for chat exchanges
type Orchestrator struct {
	store    *session.Store
	provider Provider
	persona  Persona
	model    string
	timeout  time.Duration
	logger   zerolog.Logger

	locks   map[string]*sync.Mutex
	locksMu sync.Mutex
}

// Config holds orchestrator configuration
type Config struct {
	Store    *session.Store
	Provider Provider
	Persona  Persona
	Model    string
	Timeout  time.Duration
	Logger   zerolog.Logger
}

// Result contains the outcome of a successful chat exchange
type Result struct {
	Reply               string
	ConversationHistory []session.Turn
}

// New creates a new Orchestrator
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if cfg.Provider == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if err := cfg.Persona.Validate(); err != nil {
		return nil, fmt.Errorf("invalid persona: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultUpstreamTimeout
	}

	return &Orchestrator{
		store:    cfg.Store,
		provider: cfg.Provider,
		persona:  cfg.Persona,
		model:    cfg.Model,
		timeout:  cfg.Timeout,
		logger:   cfg.Logger,
		locks:    make(map[string]*sync.Mutex),
	}, nil
}

// sessionLock gets or creates a lock for a session identifier.
func (o *Orchestrator) sessionLock(sessionID string) *sync.Mutex {
	o.locksMu.Lock()
	defer o.locksMu.Unlock()

	if lock, exists := o.locks[sessionID]; exists {
		return lock
	}

	lock := &sync.Mutex{}
	o.locks[sessionID] = lock
	return lock
}

// Interact runs one chat exchange against an existing session. The session is
// re-loaded from the store at call time; history is the caller's view of the
// conversation and forms the outgoing request together with newUserParts.
// Exchanges for the same session identifier are serialized so concurrent
// requests cannot overwrite each other's turns.
func (o *Orchestrator) Interact(ctx context.Context, sessionID string, history []session.Turn, newUserParts []session.Part) (*Result, error) {
	lock := o.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	if _, err := o.store.Load(sessionID); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, &SessionNotFoundError{SessionID: sessionID}
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	outgoing := make([]session.Turn, len(history), len(history)+2)
	copy(outgoing, history)
	if len(newUserParts) > 0 {
		outgoing = append(outgoing, session.NewUserTurn(newUserParts...))
	}

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	response, err := o.provider.Generate(callCtx, GenerateRequest{
		Model:             o.model,
		Contents:          outgoing,
		SystemInstruction: o.persona.Instruction(),
	})
	observability.RecordUpstreamCall(o.provider.Name(), time.Since(start), err == nil)

	if err != nil {
		return nil, &UpstreamError{Provider: o.provider.Name(), Err: err}
	}
	if strings.TrimSpace(response.Text) == "" {
		return nil, &UpstreamError{Provider: o.provider.Name(), Err: fmt.Errorf("empty reply")}
	}

	updated := append(outgoing, session.NewModelTurn(response.Text))

	if err := o.store.Save(&session.Session{
		SessionID:           sessionID,
		ConversationHistory: updated,
	}); err != nil {
		return nil, &PersistenceError{SessionID: sessionID, Reply: response.Text, Err: err}
	}

	o.logger.Debug().
		Str("sessionId", sessionID).
		Str("provider", o.provider.Name()).
		Int("turns", len(updated)).
		Dur("upstream", time.Since(start)).
		Msg("Chat exchange persisted")

	return &Result{
		Reply:               response.Text,
		ConversationHistory: updated,
	}, nil
}
