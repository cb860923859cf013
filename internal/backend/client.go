package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"chat-widget/internal/types"
)

// ErrRequestFailed covers transport failures, non-2xx statuses and bodies
// that do not decode. Callers see one kind; the wrapped message says which.
var ErrRequestFailed = errors.New("request failed")

// ErrNotFound marks a 404 from the backend. It is always wrapped together
// with ErrRequestFailed.
var ErrNotFound = errors.New("not found")

// maxErrorBody bounds how much of a failed response is kept for logs.
const maxErrorBody = 512

type Options struct {
	BaseURL   string
	HealthURL string
	// Token, when set, is sent as a bearer token on every request.
	Token string
	// Timeout of zero leaves requests bounded only by the caller's context.
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client speaks the chat backend's JSON protocol.
type Client struct {
	httpClient *http.Client
	baseURL    string
	healthURL  string
}

func New(opts Options) *Client {
	base := opts.HTTPClient
	if base == nil {
		base = http.DefaultClient
	}
	var hc *http.Client
	if opts.Token != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		hc = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token}))
	} else {
		cp := *base
		hc = &cp
	}
	hc.Timeout = opts.Timeout
	return &Client{
		httpClient: hc,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		healthURL:  opts.HealthURL,
	}
}

// ---- Helpers ----

func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrRequestFailed, method, endpoint, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		detail := strings.TrimSpace(string(b))
		if resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %w: %s %s: %s", ErrRequestFailed, ErrNotFound, method, endpoint, detail)
		}
		return nil, fmt.Errorf("%w: %s %s: status %d: %s", ErrRequestFailed, method, endpoint, resp.StatusCode, detail)
	}
	return resp, nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrRequestFailed, path, err)
	}
	resp, err := c.do(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrRequestFailed, path, err)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrRequestFailed, endpoint, err)
	}
	return nil
}

// ---- Implementations ----

// chatReply mirrors types.ChatResponse but keeps a missing "response" field
// distinguishable from an empty reply.
type chatReply struct {
	Response *string       `json:"response"`
	Intent   *types.Intent `json:"intent"`
}

// Chat sends one user turn to <base>/chat.
func (c *Client) Chat(ctx context.Context, req types.ChatRequest) (*types.ChatResponse, error) {
	var raw chatReply
	if err := c.postJSON(ctx, "/chat", req, &raw); err != nil {
		return nil, err
	}
	if raw.Response == nil {
		return nil, fmt.Errorf("%w: /chat: body has no response field", ErrRequestFailed)
	}
	return &types.ChatResponse{Response: *raw.Response, Intent: raw.Intent}, nil
}

// Learn posts learning feedback to <base>/learn.
func (c *Client) Learn(ctx context.Context, fb types.FeedbackRequest) (*types.FeedbackResponse, error) {
	var out types.FeedbackResponse
	if err := c.postJSON(ctx, "/learn", fb, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Conversation fetches the history the backend keeps for a session.
func (c *Client) Conversation(ctx context.Context, sessionID string) (*types.Conversation, error) {
	var out types.Conversation
	if err := c.getJSON(ctx, c.baseURL+"/conversations/"+url.PathEscape(sessionID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health queries the backend liveness endpoint.
func (c *Client) Health(ctx context.Context) (*types.HealthResponse, error) {
	if c.healthURL == "" {
		return nil, fmt.Errorf("%w: no health url configured", ErrRequestFailed)
	}
	var out types.HealthResponse
	if err := c.getJSON(ctx, c.healthURL, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
