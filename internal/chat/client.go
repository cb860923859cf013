// Package chat implements the widget's conversation client: it owns the
// session identifier, the active mode and the transcript, and forwards user
// turns to the chat backend.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chat-widget/internal/modes"
	"chat-widget/internal/store"
	"chat-widget/internal/types"
)

// FallbackReply is shown whenever a chat request fails for any reason.
const FallbackReply = "Sorry, I encountered an error processing your request."

var (
	// ErrInputDisabled is returned when Send is called while a request is
	// already in flight. The transcript is left untouched.
	ErrInputDisabled   = errors.New("input disabled while a request is in flight")
	ErrInvalidFeedback = errors.New("invalid feedback")
	ErrNoSession       = errors.New("no session yet")
)

// Backend is the remote chat service.
type Backend interface {
	Chat(ctx context.Context, req types.ChatRequest) (*types.ChatResponse, error)
	Learn(ctx context.Context, fb types.FeedbackRequest) (*types.FeedbackResponse, error)
	Conversation(ctx context.Context, sessionID string) (*types.Conversation, error)
	Health(ctx context.Context) (*types.HealthResponse, error)
}

// Client is the stateful core of the widget. Presentation layers call Send
// and SetMode in response to user events and render Messages.
type Client struct {
	backend    Backend
	catalog    *modes.Catalog
	transcript *store.Transcript
	log        *zap.Logger
	newID      func() string

	mu        sync.Mutex
	sessionID string
	mode      modes.Mode
	modeLabel string
	sending   bool
}

type Option func(*Client)

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

func WithCatalog(cat *modes.Catalog) Option {
	return func(c *Client) {
		if cat != nil {
			c.catalog = cat
		}
	}
}

// WithSessionIDGenerator replaces the random UUID source.
func WithSessionIDGenerator(fn func() string) Option {
	return func(c *Client) {
		if fn != nil {
			c.newID = fn
		}
	}
}

func New(backend Backend, opts ...Option) *Client {
	c := &Client{
		backend:    backend,
		catalog:    modes.DefaultCatalog(),
		transcript: store.NewTranscript(),
		log:        zap.NewNop(),
		newID:      uuid.NewString,
		mode:       modes.Default,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.modeLabel = c.catalog.Label(c.mode)
	return c
}

// EnsureSession returns the session id, creating it on first use.
func (c *Client) EnsureSession() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ensureSessionLocked()
}

func (c *Client) ensureSessionLocked() string {
	if c.sessionID == "" {
		c.sessionID = c.newID()
		c.log.Info("session created", zap.String("session_id", c.sessionID))
	}
	return c.sessionID
}

// SessionID returns the current id without creating one.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// SetMode switches the active mode and appends the mode's acknowledgement,
// if the catalog has one. It never touches the network. An empty label
// falls back to the catalog label.
func (c *Client) SetMode(mode modes.Mode, label string) {
	if strings.TrimSpace(label) == "" {
		label = c.catalog.Label(mode)
	}
	// The acknowledgement is appended under the same lock so the last
	// acknowledgement always matches the active mode.
	c.mu.Lock()
	c.mode = mode
	c.modeLabel = label
	if msg := c.catalog.Message(mode); msg != "" {
		c.transcript.Append(store.Message{Role: store.RoleAssistant, Content: msg})
	}
	c.mu.Unlock()
	c.log.Debug("mode selected", zap.String("mode", string(mode)))
}

func (c *Client) Mode() modes.Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

func (c *Client) ModeLabel() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.modeLabel
}

// InputEnabled reports whether the submit control should accept input.
func (c *Client) InputEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.sending
}

func (c *Client) Messages() []store.Message { return c.transcript.Messages() }

func (c *Client) Catalog() *modes.Catalog { return c.catalog }

// Greet appends the catalog's welcome message, if any.
func (c *Client) Greet() {
	if g := c.catalog.Greeting(); g != "" {
		c.transcript.Append(store.Message{Role: store.RoleAssistant, Content: g})
	}
}

// Send forwards one user turn. Whitespace-only text is ignored and returns
// (nil, nil). Backend failures are logged and answered with FallbackReply;
// the only error Send returns is ErrInputDisabled. The returned message is
// the assistant entry that was appended.
func (c *Client) Send(ctx context.Context, text string) (*store.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	c.mu.Lock()
	if c.sending {
		c.mu.Unlock()
		return nil, ErrInputDisabled
	}
	c.sending = true
	sid := c.ensureSessionLocked()
	mode := c.mode
	c.mu.Unlock()
	defer c.release()

	c.transcript.Append(store.Message{Role: store.RoleUser, Content: text})

	resp, err := c.backend.Chat(ctx, types.ChatRequest{
		Message:   text,
		SessionID: sid,
		Context:   types.ChatContext{ActiveMode: string(mode)},
	})
	if err != nil {
		c.log.Error("chat request failed",
			zap.String("session_id", sid),
			zap.String("active_mode", string(mode)),
			zap.Error(err))
		m := c.transcript.Append(store.Message{Role: store.RoleAssistant, Content: FallbackReply})
		return &m, nil
	}

	c.log.Debug("chat reply received", zap.String("session_id", sid), zap.Bool("has_intent", resp.Intent != nil))
	m := c.transcript.Append(store.Message{Role: store.RoleAssistant, Content: resp.Response, Intent: resp.Intent})
	return &m, nil
}

func (c *Client) release() {
	c.mu.Lock()
	c.sending = false
	c.mu.Unlock()
}

// FeedbackIntents are the labels the backend accepts as expected_intent.
var FeedbackIntents = []string{
	string(modes.ModeChat),
	string(modes.ModeFileOperation),
	string(modes.ModeScheduleReminder),
	string(modes.ModeRunScript),
	string(modes.ModeSearch),
	string(modes.ModeSystemInfo),
	"excel_operation",
	"unknown",
}

// Feedback corrects the backend's reading of a user message.
type Feedback struct {
	// Message defaults to the last user message in the transcript.
	Message          string
	ExpectedIntent   string
	ExpectedResponse string
	// Rating is 1..5, or 0 for none.
	Rating int
}

// SendFeedback posts learning feedback for the current session. Unlike Send,
// failures are returned to the caller.
func (c *Client) SendFeedback(ctx context.Context, fb Feedback) error {
	fb.ExpectedIntent = strings.ToLower(strings.TrimSpace(fb.ExpectedIntent))
	if !validFeedbackIntent(fb.ExpectedIntent) {
		return fmt.Errorf("%w: expected intent %q", ErrInvalidFeedback, fb.ExpectedIntent)
	}
	if fb.Rating < 0 || fb.Rating > 5 {
		return fmt.Errorf("%w: rating %d outside 1..5", ErrInvalidFeedback, fb.Rating)
	}
	msg := strings.TrimSpace(fb.Message)
	if msg == "" {
		last, ok := c.transcript.LastUser()
		if !ok {
			return fmt.Errorf("%w: no message to rate", ErrInvalidFeedback)
		}
		msg = last.Content
	}
	sid := c.EnsureSession()
	_, err := c.backend.Learn(ctx, types.FeedbackRequest{
		SessionID:        sid,
		Message:          msg,
		ExpectedIntent:   fb.ExpectedIntent,
		ExpectedResponse: strings.TrimSpace(fb.ExpectedResponse),
		Rating:           fb.Rating,
	})
	if err != nil {
		c.log.Warn("feedback rejected", zap.String("session_id", sid), zap.Error(err))
		return fmt.Errorf("send feedback: %w", err)
	}
	c.log.Info("feedback sent", zap.String("session_id", sid), zap.String("expected_intent", fb.ExpectedIntent))
	return nil
}

func validFeedbackIntent(s string) bool {
	for _, k := range FeedbackIntents {
		if k == s {
			return true
		}
	}
	return false
}

// History fetches what the backend has stored for the current session. It
// is read-only: the local transcript is never replaced. Before the first
// Send there is no session and ErrNoSession is returned.
func (c *Client) History(ctx context.Context) (*types.Conversation, error) {
	sid := c.SessionID()
	if sid == "" {
		return nil, ErrNoSession
	}
	conv, err := c.backend.Conversation(ctx, sid)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	return conv, nil
}

// Ping checks that the backend is reachable.
func (c *Client) Ping(ctx context.Context) (string, error) {
	h, err := c.backend.Health(ctx)
	if err != nil {
		return "", fmt.Errorf("ping backend: %w", err)
	}
	return h.Status, nil
}
