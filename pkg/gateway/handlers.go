package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/harun/covera/pkg/advisor"
	"github.com/harun/covera/pkg/session"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Message: "method not allowed"})
		return
	}

	s.writeJSON(w, http.StatusOK, MessageResponse{Message: "covera API is up"})
}

// handleSession creates a fresh session when no identifier is given, and
// returns the stored history otherwise.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Message: "method not allowed"})
		return
	}

	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		s.createSession(w, r)
		return
	}

	sess, err := s.store.Load(sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "session not found"})
			return
		}
		if errors.Is(err, session.ErrInvalidID) {
			s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "invalid session id"})
			return
		}
		s.logger.Error().Err(err).Str("sessionId", sessionID).Msg("Failed to load session")
		s.writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Message: "failed to load session",
			Error:   "session store read failed",
		})
		return
	}

	s.writeJSON(w, http.StatusOK, SessionResponse{
		SessionID:           sess.SessionID,
		ConversationHistory: sess.ConversationHistory,
	})
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := session.NewSessionID()
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate session id")
		s.writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Message: "failed to create session",
			Error:   "id generation failed",
		})
		return
	}

	sess := &session.Session{
		SessionID:           sessionID,
		ConversationHistory: []session.Turn{},
	}
	if err := s.store.Create(sess); err != nil {
		s.logger.Error().Err(err).Str("sessionId", sessionID).Msg("Failed to create session")
		s.writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Message: "failed to create session",
			Error:   "session store write failed",
		})
		return
	}

	s.writeJSON(w, http.StatusCreated, SessionResponse{
		SessionID:           sessionID,
		ConversationHistory: []session.Turn{},
	})
}

// handleChat validates the inbound turn, runs the exchange and maps domain
// failures to status codes. Internal error detail never leaves this handler;
// it goes to the log.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Message: "method not allowed"})
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "invalid JSON body"})
		return
	}

	if req.SessionID == "" {
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "sessionId is required"})
		return
	}
	if len(req.Contents) == 0 {
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "contents must include at least one turn"})
		return
	}

	last := req.Contents[len(req.Contents)-1]
	if last.Role != session.RoleUser {
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: `last turn must have role "user"`})
		return
	}
	if len(last.Parts) == 0 || last.Parts[0].Text == "" {
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "last turn is missing parts[0].text"})
		return
	}

	history := req.Contents[:len(req.Contents)-1]

	result, err := s.orchestrator.Interact(r.Context(), req.SessionID, history, last.Parts)
	if err != nil {
		s.writeChatError(w, req.SessionID, err)
		return
	}

	s.writeJSON(w, http.StatusOK, ChatResponse{
		AIResponse:          result.Reply,
		ConversationHistory: result.ConversationHistory,
	})
}

func (s *Server) writeChatError(w http.ResponseWriter, sessionID string, err error) {
	var notFound *advisor.SessionNotFoundError
	if errors.As(err, &notFound) {
		s.writeJSON(w, http.StatusNotFound, ErrorResponse{Message: "session not found"})
		return
	}

	if errors.Is(err, session.ErrInvalidID) {
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "invalid session id"})
		return
	}

	var persistence *advisor.PersistenceError
	if errors.As(err, &persistence) {
		// The model was already consumed; surface the non-durable reply so the
		// caller at least sees it.
		s.logger.Error().Err(err).Str("sessionId", sessionID).Msg("Reply generated but not persisted")
		s.writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Message:    "reply generated but not persisted; it will not appear on session reload",
			Error:      "session store write failed",
			AIResponse: persistence.Reply,
		})
		return
	}

	var upstream *advisor.UpstreamError
	if errors.As(err, &upstream) {
		s.logger.Error().Err(err).Str("sessionId", sessionID).Msg("Upstream model call failed")
		s.writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Message: "upstream model call failed; the session is unchanged and the request can be retried",
			Error:   "upstream failure",
		})
		return
	}

	s.logger.Error().Err(err).Str("sessionId", sessionID).Msg("Chat request failed")
	s.writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Message: "chat request failed",
		Error:   "internal error",
	})
}
