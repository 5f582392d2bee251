package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/harun/covera/pkg/advisor"
	"github.com/harun/covera/pkg/session"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProvider returns a canned reply or error and counts calls.
type stubProvider struct {
	reply string
	err   error
	calls int
}

func (p *stubProvider) Generate(_ context.Context, _ advisor.GenerateRequest) (*advisor.GenerateResponse, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return &advisor.GenerateResponse{Text: p.reply}, nil
}

func (p *stubProvider) Name() string { return "stub" }

func setupServer(t *testing.T, provider advisor.Provider) (*Server, *session.Store) {
	store, err := session.NewStore(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)

	orch, err := advisor.New(advisor.Config{
		Store:    store,
		Provider: provider,
		Persona: advisor.Persona{
			Name:              "Covera",
			ProductCategories: []string{"term life insurance", "health insurance", "motor insurance"},
			EligibilityRules:  []string{"Applicants must be 18 or older."},
		},
		Model:  "test-model",
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)

	srv, err := NewServer(Config{
		Host:           "127.0.0.1",
		Port:           5000,
		AllowedOrigins: []string{"http://localhost:5173"},
		Store:          store,
		Orchestrator:   orch,
		Logger:         zerolog.Nop(),
	})
	require.NoError(t, err)

	return srv, store
}

func doRequest(srv *Server, method, target string, body []byte) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleTest(t *testing.T) {
	srv, _ := setupServer(t, &stubProvider{reply: "ok"})

	rec := doRequest(srv, http.MethodGet, "/test", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body MessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Message)
}

func TestHandleSession_CreatesAndReloads(t *testing.T) {
	srv, _ := setupServer(t, &stubProvider{reply: "ok"})

	rec := doRequest(srv, http.MethodGet, "/session", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.SessionID)
	assert.Empty(t, created.ConversationHistory)

	// Reloading by the fresh identifier returns the same empty history
	rec = doRequest(srv, http.MethodGet, "/session?sessionId="+created.SessionID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var loaded SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &loaded))
	assert.Equal(t, created.SessionID, loaded.SessionID)
	assert.Empty(t, loaded.ConversationHistory)
}

func TestHandleSession_UnknownID(t *testing.T) {
	srv, _ := setupServer(t, &stubProvider{reply: "ok"})

	rec := doRequest(srv, http.MethodGet, "/session?sessionId=neverCreated123", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "session not found", body.Message)
}

func TestHandleChat_HappyPath(t *testing.T) {
	provider := &stubProvider{reply: "Motor insurance would suit you."}
	srv, store := setupServer(t, provider)

	require.NoError(t, store.Create(&session.Session{SessionID: "chat1", ConversationHistory: []session.Turn{}}))

	payload, _ := json.Marshal(ChatRequest{
		SessionID: "chat1",
		Contents: []session.Turn{
			session.NewUserTurn(session.Part{Text: "I drive a lot."}),
		},
	})
	rec := doRequest(srv, http.MethodPost, "/chat", payload)

	require.Equal(t, http.StatusOK, rec.Code)
	var body ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Motor insurance would suit you.", body.AIResponse)
	require.Len(t, body.ConversationHistory, 2)
	assert.Equal(t, session.RoleUser, body.ConversationHistory[0].Role)
	assert.Equal(t, session.RoleModel, body.ConversationHistory[1].Role)

	// The exchange is durable
	stored, err := store.Load("chat1")
	require.NoError(t, err)
	assert.Equal(t, body.ConversationHistory, stored.ConversationHistory)
}

func TestHandleChat_Validation(t *testing.T) {
	provider := &stubProvider{reply: "never"}
	srv, store := setupServer(t, provider)

	require.NoError(t, store.Create(&session.Session{SessionID: "v1", ConversationHistory: []session.Turn{}}))

	tests := []struct {
		name string
		body string
	}{
		{"invalid JSON", `{`},
		{"missing sessionId", `{"contents": [{"role": "user", "parts": [{"text": "hi"}]}]}`},
		{"empty contents", `{"sessionId": "v1", "contents": []}`},
		{"last turn not user", `{"sessionId": "v1", "contents": [{"role": "model", "parts": [{"text": "hi"}]}]}`},
		{"missing parts", `{"sessionId": "v1", "contents": [{"role": "user", "parts": []}]}`},
		{"empty text", `{"sessionId": "v1", "contents": [{"role": "user", "parts": [{"text": ""}]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(srv, http.MethodPost, "/chat", []byte(tt.body))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}

	assert.Zero(t, provider.calls, "malformed requests must not reach the provider")

	stored, err := store.Load("v1")
	require.NoError(t, err)
	assert.Empty(t, stored.ConversationHistory, "malformed requests must not mutate the session")
}

func TestHandleChat_UnknownSession(t *testing.T) {
	provider := &stubProvider{reply: "never"}
	srv, _ := setupServer(t, provider)

	payload, _ := json.Marshal(ChatRequest{
		SessionID: "ghost",
		Contents:  []session.Turn{session.NewUserTurn(session.Part{Text: "hi"})},
	})
	rec := doRequest(srv, http.MethodPost, "/chat", payload)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Zero(t, provider.calls)
}

func TestHandleChat_UpstreamFailure(t *testing.T) {
	provider := &stubProvider{err: errors.New("connection refused")}
	srv, store := setupServer(t, provider)

	require.NoError(t, store.Create(&session.Session{SessionID: "u1", ConversationHistory: []session.Turn{}}))

	payload, _ := json.Marshal(ChatRequest{
		SessionID: "u1",
		Contents:  []session.Turn{session.NewUserTurn(session.Part{Text: "hi"})},
	})
	rec := doRequest(srv, http.MethodPost, "/chat", payload)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "upstream failure", body.Error)
	assert.NotContains(t, body.Message, "connection refused")

	stored, err := store.Load("u1")
	require.NoError(t, err)
	assert.Empty(t, stored.ConversationHistory, "failed calls must not mutate the session")
}

func TestHandleChat_PersistenceFailure(t *testing.T) {
	provider := &stubProvider{reply: "Health insurance fits your needs."}
	srv, store := setupServer(t, provider)

	require.NoError(t, store.Create(&session.Session{SessionID: "p1", ConversationHistory: []session.Turn{}}))

	// Occupy the temp path with a directory so the save after the model call
	// cannot land.
	require.NoError(t, os.Mkdir(filepath.Join(store.Dir(), "p1.json.tmp"), 0700))

	payload, _ := json.Marshal(ChatRequest{
		SessionID: "p1",
		Contents:  []session.Turn{session.NewUserTurn(session.Part{Text: "I need cover."})},
	})
	rec := doRequest(srv, http.MethodPost, "/chat", payload)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, 1, provider.calls)

	// The reply was consumed upstream; it must reach the caller with a
	// message warning that it is not durable.
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Message, "not persisted")
	assert.Equal(t, "Health insurance fits your needs.", body.AIResponse)

	stored, err := store.Load("p1")
	require.NoError(t, err)
	assert.Empty(t, stored.ConversationHistory, "failed save must leave the stored session unchanged")
}

func TestInvalidSessionID(t *testing.T) {
	provider := &stubProvider{reply: "never"}
	srv, _ := setupServer(t, provider)

	rec := doRequest(srv, http.MethodGet, "/session?sessionId=a..b", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "invalid session id", body.Message)

	payload, _ := json.Marshal(ChatRequest{
		SessionID: "a..b",
		Contents:  []session.Turn{session.NewUserTurn(session.Part{Text: "hi"})},
	})
	rec = doRequest(srv, http.MethodPost, "/chat", payload)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, provider.calls)
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := setupServer(t, &stubProvider{reply: "ok"})

	rec := doRequest(srv, http.MethodPost, "/test", []byte("{}"))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = doRequest(srv, http.MethodGet, "/chat", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = doRequest(srv, http.MethodPost, "/session", []byte("{}"))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORS(t *testing.T) {
	srv, _ := setupServer(t, &stubProvider{reply: "ok"})

	t.Run("preflight from allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
	})

	t.Run("disallowed origin gets no allow header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Origin", "http://evil.example.com")
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestNewServer_Validation(t *testing.T) {
	_, err := NewServer(Config{Port: 0})
	assert.Error(t, err)

	_, err = NewServer(Config{Port: 5000})
	assert.Error(t, err)
}
