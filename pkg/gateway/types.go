package gateway

import (
	"github.com/harun/covera/pkg/session"
)

// MessageResponse is the body for simple informational replies
type MessageResponse struct {
	Message string `json:"message"`
}

// SessionResponse is the body for session creation and lookup
type SessionResponse struct {
	SessionID           string         `json:"sessionId"`
	ConversationHistory []session.Turn `json:"conversationHistory"`
}

// ChatRequest is the body for a chat turn submission. The last element of
// Contents is the new user turn.
type ChatRequest struct {
	SessionID string         `json:"sessionId"`
	Contents  []session.Turn `json:"contents"`
}

// ChatResponse is the body for a successful chat exchange
type ChatResponse struct {
	AIResponse          string         `json:"aiResponse"`
	ConversationHistory []session.Turn `json:"conversationHistory"`
}

// ErrorResponse is the body for all failures. Error carries the failure
// class, never internal detail. AIResponse is set only when a reply was
// generated but could not be persisted.
type ErrorResponse struct {
	Message    string `json:"message"`
	Error      string `json:"error,omitempty"`
	AIResponse string `json:"aiResponse,omitempty"`
}
