package session

// Roles stored in conversation history. System instructions are supplied
// per-call to the provider and are never stored as a turn.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Part is a single content fragment within a turn.
type Part struct {
	Text string `json:"text"`
}

// Turn is one message in a conversation, attributed to the user or the model.
type Turn struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// Session is a durable record of one conversation, keyed by an opaque
// identifier. History is append-only: one user turn and one model turn land
// per successful chat exchange.
type Session struct {
	SessionID           string `json:"sessionId"`
	ConversationHistory []Turn `json:"conversationHistory"`
}

// NewUserTurn builds a user turn from content fragments.
func NewUserTurn(parts ...Part) Turn {
	return Turn{Role: RoleUser, Parts: parts}
}

// NewModelTurn builds a model turn carrying a single text fragment.
func NewModelTurn(text string) Turn {
	return Turn{Role: RoleModel, Parts: []Part{{Text: text}}}
}

// Text returns the first fragment's text, or "" for a turn without parts.
func (t Turn) Text() string {
	if len(t.Parts) == 0 {
		return ""
	}
	return t.Parts[0].Text
}
