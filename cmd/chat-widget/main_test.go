package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-widget/internal/types"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("CHAT_API_HEALTH_URL", "")
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		baseURL, logLevel, sendMode = "", "", ""
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestModesCommand(t *testing.T) {
	out, err := run(t, "modes")
	require.NoError(t, err)
	assert.Contains(t, out, "* chat")
	assert.Contains(t, out, "search")
	assert.Contains(t, out, "System Info")
}

func TestSendCommand(t *testing.T) {
	reqs := make(chan types.ChatRequest, 1)
	r := chi.NewRouter()
	r.Post("/api/v1/chat", func(w http.ResponseWriter, r *http.Request) {
		var req types.ChatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		reqs <- req
		_ = json.NewEncoder(w).Encode(types.ChatResponse{Response: "Found 3 files", Intent: &types.Intent{Type: "search", Confidence: 0.875}})
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	out, err := run(t, "send", "--base-url", srv.URL+"/api/v1", "--mode", "search", "find", "reports")
	require.NoError(t, err)
	assert.Contains(t, out, "[AI] Found 3 files")
	assert.Contains(t, out, "Intent: search (87.5%)")
	got := <-reqs
	assert.Equal(t, "find reports", got.Message)
	assert.Equal(t, "search", got.Context.ActiveMode)
	assert.Len(t, got.SessionID, 36)
}

func TestSendCommandFailsWhenBackendFails(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/v1/chat", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	out, err := run(t, "send", "--base-url", srv.URL+"/api/v1", "hello")
	require.Error(t, err)
	assert.Contains(t, out, "[AI] Sorry, I encountered an error processing your request.")
}

func TestHistoryCommand(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/v1/conversations/{sessionID}", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "sessionID") != "abc" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(types.Conversation{SessionID: "abc", Messages: []types.ConversationMessage{
			{Role: "user", Content: "hi", Timestamp: "2024-05-01T10:00:00"},
			{Role: "assistant", Content: "hello there", Timestamp: "2024-05-01T10:00:01"},
		}})
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	out, err := run(t, "history", "--base-url", srv.URL+"/api/v1", "abc")
	require.NoError(t, err)
	assert.Contains(t, out, "2024-05-01T10:00:00 user      hi")
	assert.Contains(t, out, "assistant hello there")

	_, err = run(t, "history", "--base-url", srv.URL+"/api/v1", "nope")
	assert.Error(t, err)
}

func TestSendCommandRejectsUnknownMode(t *testing.T) {
	_, err := run(t, "send", "--mode", "teleport", "hello")
	assert.Error(t, err)
}

func TestSavedTokenIsSentToBackend(t *testing.T) {
	t.Setenv("CHAT_API_TOKEN", "")
	t.Setenv("CHAT_API_TOKEN_FILE", filepath.Join(t.TempDir(), "token.json"))

	auths := make(chan string, 1)
	r := chi.NewRouter()
	r.Post("/api/v1/chat", func(w http.ResponseWriter, r *http.Request) {
		auths <- r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(types.ChatResponse{Response: "ok"})
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	_, err := run(t, "token", "set", "tok-123")
	require.NoError(t, err)
	_, err = run(t, "send", "--base-url", srv.URL+"/api/v1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", <-auths)

	_, err = run(t, "token", "clear")
	require.NoError(t, err)
}
