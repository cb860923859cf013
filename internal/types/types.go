package types

// ChatRequest is the envelope POSTed to <base>/chat.
type ChatRequest struct {
	Message   string      `json:"message"`
	SessionID string      `json:"session_id"`
	Context   ChatContext `json:"context"`
}

type ChatContext struct {
	ActiveMode string `json:"active_mode"`
}

// ChatResponse is the success body of <base>/chat. The backend may add
// fields such as session_id or timestamp; they are ignored.
type ChatResponse struct {
	Response string  `json:"response"`
	Intent   *Intent `json:"intent"`
}

// Intent is the backend's label for a user message. Confidence is in [0,1].
type Intent struct {
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
}

// FeedbackRequest is the envelope POSTed to <base>/learn.
type FeedbackRequest struct {
	SessionID        string `json:"session_id"`
	Message          string `json:"message"`
	ExpectedIntent   string `json:"expected_intent"`
	ExpectedResponse string `json:"expected_response,omitempty"`
	Rating           int    `json:"rating,omitempty"`
}

type FeedbackResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Conversation is the backend's stored history for one session, as served
// by <base>/conversations/{session_id}. Timestamps are kept as sent; the
// backend does not always include a zone.
type Conversation struct {
	SessionID string                `json:"session_id"`
	Messages  []ConversationMessage `json:"messages"`
	CreatedAt string                `json:"created_at,omitempty"`
	UpdatedAt string                `json:"updated_at,omitempty"`
}

type ConversationMessage struct {
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	Timestamp string         `json:"timestamp,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
