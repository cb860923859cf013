package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-widget/internal/types"
)

type fakeBackend struct {
	srv *httptest.Server

	mu       sync.Mutex
	lastChat types.ChatRequest
	lastAuth string
	lastCT   string
}

func newFakeBackend(t *testing.T, chat http.HandlerFunc) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{}
	r := chi.NewRouter()
	r.Post("/api/v1/chat", func(w http.ResponseWriter, r *http.Request) {
		fb.mu.Lock()
		fb.lastAuth = r.Header.Get("Authorization")
		fb.lastCT = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&fb.lastChat)
		fb.mu.Unlock()
		chat(w, r)
	})
	r.Post("/api/v1/learn", func(w http.ResponseWriter, r *http.Request) {
		var req types.FeedbackRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
			http.Error(w, "bad feedback", http.StatusUnprocessableEntity)
			return
		}
		_ = json.NewEncoder(w).Encode(types.FeedbackResponse{Status: "feedback_recorded"})
	})
	r.Get("/api/v1/conversations/{sessionID}", func(w http.ResponseWriter, r *http.Request) {
		sid := chi.URLParam(r, "sessionID")
		if sid != "known" {
			http.Error(w, `{"detail":"Conversation not found"}`, http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"session_id":"known","messages":[` +
			`{"role":"user","content":"hi","timestamp":"2024-05-01T10:00:00.123456"},` +
			`{"role":"assistant","content":"hello","timestamp":"2024-05-01T10:00:01.5","metadata":{"intent":"greeting"}}],` +
			`"created_at":"2024-05-01T10:00:00","updated_at":"2024-05-01T10:00:01"}`))
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(types.HealthResponse{Status: "healthy"})
	})
	fb.srv = httptest.NewServer(r)
	t.Cleanup(fb.srv.Close)
	return fb
}

func (fb *fakeBackend) client(token string) *Client {
	return New(Options{
		BaseURL:    fb.srv.URL + "/api/v1/",
		HealthURL:  fb.srv.URL + "/health",
		Token:      token,
		HTTPClient: fb.srv.Client(),
	})
}

func TestChatSendsEnvelope(t *testing.T) {
	fb := newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":"Hi there","intent":{"type":"greeting","confidence":0.92,"entities":{}},"session_id":"x","timestamp":"2024-01-01T00:00:00"}`))
	})

	resp, err := fb.client("").Chat(context.Background(), types.ChatRequest{
		Message:   "hi",
		SessionID: "sid-1",
		Context:   types.ChatContext{ActiveMode: "search"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hi there", resp.Response)
	require.NotNil(t, resp.Intent)
	assert.Equal(t, "greeting", resp.Intent.Type)
	assert.InDelta(t, 0.92, resp.Intent.Confidence, 1e-9)

	fb.mu.Lock()
	defer fb.mu.Unlock()
	assert.Equal(t, "application/json", fb.lastCT)
	assert.Empty(t, fb.lastAuth)
	assert.Equal(t, "hi", fb.lastChat.Message)
	assert.Equal(t, "sid-1", fb.lastChat.SessionID)
	assert.Equal(t, "search", fb.lastChat.Context.ActiveMode)
}

func TestChatNullIntent(t *testing.T) {
	fb := newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":"ok","intent":null}`))
	})
	resp, err := fb.client("").Chat(context.Background(), types.ChatRequest{Message: "x", SessionID: "s"})
	require.NoError(t, err)
	assert.Nil(t, resp.Intent)
}

func TestChatBearerToken(t *testing.T) {
	fb := newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":"ok"}`))
	})
	_, err := fb.client("s3cret").Chat(context.Background(), types.ChatRequest{Message: "x", SessionID: "s"})
	require.NoError(t, err)
	fb.mu.Lock()
	defer fb.mu.Unlock()
	assert.Equal(t, "Bearer s3cret", fb.lastAuth)
}

func TestChatFailuresAreRequestFailed(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		},
		"malformed": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"response":`))
		},
		"missing response": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"intent":null}`))
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			fb := newFakeBackend(t, h)
			_, err := fb.client("").Chat(context.Background(), types.ChatRequest{Message: "x", SessionID: "s"})
			assert.ErrorIs(t, err, ErrRequestFailed)
		})
	}
}

func TestChatTransportFailure(t *testing.T) {
	fb := newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {})
	c := fb.client("")
	fb.srv.Close()

	_, err := c.Chat(context.Background(), types.ChatRequest{Message: "x", SessionID: "s"})
	assert.ErrorIs(t, err, ErrRequestFailed)
}

func TestChatTimeout(t *testing.T) {
	release := make(chan struct{})
	fb := newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	c := New(Options{BaseURL: fb.srv.URL + "/api/v1", Timeout: 50 * time.Millisecond, HTTPClient: fb.srv.Client()})
	_, err := c.Chat(context.Background(), types.ChatRequest{Message: "x", SessionID: "s"})
	assert.ErrorIs(t, err, ErrRequestFailed)
}

func TestLearnAndHealth(t *testing.T) {
	fb := newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {})
	c := fb.client("")

	out, err := c.Learn(context.Background(), types.FeedbackRequest{SessionID: "s", Message: "m", ExpectedIntent: "search", Rating: 4})
	require.NoError(t, err)
	assert.Equal(t, "feedback_recorded", out.Status)

	_, err = c.Learn(context.Background(), types.FeedbackRequest{Message: "m"})
	assert.ErrorIs(t, err, ErrRequestFailed)

	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", h.Status)

	_, err = New(Options{BaseURL: fb.srv.URL}).Health(context.Background())
	assert.ErrorIs(t, err, ErrRequestFailed)
}

func TestConversation(t *testing.T) {
	fb := newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {})
	c := fb.client("")

	conv, err := c.Conversation(context.Background(), "known")
	require.NoError(t, err)
	assert.Equal(t, "known", conv.SessionID)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, "user", conv.Messages[0].Role)
	assert.Equal(t, "2024-05-01T10:00:00.123456", conv.Messages[0].Timestamp)
	assert.Equal(t, "greeting", conv.Messages[1].Metadata["intent"])

	_, err = c.Conversation(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRequestFailed)
	assert.ErrorIs(t, err, ErrNotFound)
}
