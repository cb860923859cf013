package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"chat-widget/internal/backend"
	"chat-widget/internal/chat"
	"chat-widget/internal/config"
	"chat-widget/internal/modes"
	"chat-widget/internal/store"
	"chat-widget/internal/types"
)

//go:embed static/index.html
var static embed.FS

const (
	// maxClients caps how many browser widgets one process keeps in memory.
	maxClients = 256
	// maxBodyBytes caps JSON request bodies.
	maxBodyBytes = 64 << 10
)

// Server hosts the browser widget: an embedded page plus a JSON API that
// drives one chat.Client per browser.
type Server struct {
	router  *chi.Mux
	log     *zap.Logger
	widgets *registry
}

func NewServer(cfg config.Config, newClient func() *chat.Client, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s := &Server{
		router:  r,
		log:     logger,
		widgets: newRegistry(maxClients, newClient),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Get("/", s.handleIndex)
	s.router.Get("/api/health", s.handleHealth)
	s.router.Get("/api/backend/health", s.handleBackendHealth)
	s.router.Get("/api/modes", s.handleModes)
	s.router.Get("/api/state", s.handleState)
	s.router.Get("/api/history", s.handleHistory)
	s.router.Post("/api/messages", s.handleSend)
	s.router.Post("/api/mode", s.handleSetMode)
	s.router.Post("/api/feedback", s.handleFeedback)
}

func (s *Server) Router() http.Handler { return s.router }

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	b, err := static.ReadFile("static/index.html")
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "page unavailable")
		return
	}
	s.clientFor(w, r)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(b)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleBackendHealth(w http.ResponseWriter, r *http.Request) {
	c := s.clientFor(w, r)
	status, err := c.Ping(r.Context())
	if err != nil {
		s.log.Warn("backend health check failed", zap.Error(err))
		s.writeError(w, http.StatusBadGateway, "chat backend unreachable")
		return
	}
	s.writeJSON(w, http.StatusOK, types.HealthResponse{Status: status})
}

type modesResponse struct {
	Active string        `json:"active_mode"`
	Modes  []modes.Entry `json:"modes"`
}

func (s *Server) handleModes(w http.ResponseWriter, r *http.Request) {
	c := s.clientFor(w, r)
	s.writeJSON(w, http.StatusOK, modesResponse{Active: string(c.Mode()), Modes: c.Catalog().Entries()})
}

type messageView struct {
	store.Message
	Avatar      string `json:"avatar"`
	IntentLabel string `json:"intent_label,omitempty"`
}

type stateResponse struct {
	SessionID       string        `json:"session_id,omitempty"`
	ActiveMode      string        `json:"active_mode"`
	ActiveModeLabel string        `json:"active_mode_label"`
	InputEnabled    bool          `json:"input_enabled"`
	Messages        []messageView `json:"messages"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	c := s.clientFor(w, r)
	s.writeJSON(w, http.StatusOK, stateOf(c))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	c := s.clientFor(w, r)
	conv, err := c.History(r.Context())
	switch {
	case errors.Is(err, chat.ErrNoSession), errors.Is(err, backend.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "no conversation for this session")
	case err != nil:
		s.log.Warn("history fetch failed", zap.Error(err))
		s.writeError(w, http.StatusBadGateway, "chat backend unreachable")
	default:
		s.writeJSON(w, http.StatusOK, conv)
	}
}

type sendRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	c := s.clientFor(w, r)
	// The transcript outlives this request, so a reload or closed tab must
	// not turn an answered message into a fallback reply.
	if _, err := c.Send(context.WithoutCancel(r.Context()), req.Text); err != nil {
		if errors.Is(err, chat.ErrInputDisabled) {
			s.writeError(w, http.StatusConflict, "a message is already being sent")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "send failed")
		return
	}
	s.writeJSON(w, http.StatusOK, stateOf(c))
}

type modeRequest struct {
	Mode  string `json:"mode"`
	Label string `json:"label,omitempty"`
}

func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	m, err := modes.Parse(req.Mode)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	c := s.clientFor(w, r)
	c.SetMode(m, strings.TrimSpace(req.Label))
	s.writeJSON(w, http.StatusOK, stateOf(c))
}

type feedbackRequest struct {
	Message          string `json:"message,omitempty"`
	ExpectedIntent   string `json:"expected_intent"`
	ExpectedResponse string `json:"expected_response,omitempty"`
	Rating           int    `json:"rating,omitempty"`
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	c := s.clientFor(w, r)
	err := c.SendFeedback(r.Context(), chat.Feedback{
		Message:          req.Message,
		ExpectedIntent:   req.ExpectedIntent,
		ExpectedResponse: req.ExpectedResponse,
		Rating:           req.Rating,
	})
	switch {
	case errors.Is(err, chat.ErrInvalidFeedback):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		s.writeError(w, http.StatusBadGateway, "feedback was not accepted by the chat backend")
	default:
		s.writeJSON(w, http.StatusOK, types.FeedbackResponse{Status: "feedback_recorded"})
	}
}

func stateOf(c *chat.Client) stateResponse {
	msgs := c.Messages()
	views := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, messageView{Message: m, Avatar: chat.Avatar(m.Role), IntentLabel: chat.FormatIntent(m.Intent)})
	}
	return stateResponse{
		SessionID:       c.SessionID(),
		ActiveMode:      string(c.Mode()),
		ActiveModeLabel: c.ModeLabel(),
		InputEnabled:    c.InputEnabled(),
		Messages:        views,
	}
}

// clientFor resolves the browser's widget from its cookie, issuing a new
// cookie and client when there is none.
func (s *Server) clientFor(w http.ResponseWriter, r *http.Request) *chat.Client {
	id, err := GetWidgetCookie(r)
	if err != nil || id == "" {
		id = newWidgetID()
		SetWidgetCookie(w, r, id)
	}
	c, created := s.widgets.get(id)
	if created {
		s.log.Info("widget opened", zap.String("widget_id", id), zap.String("path", r.URL.Path))
	}
	return c
}

func newWidgetID() string {
	return "w_" + uuid.NewString()
}

// decodeJSON reads a size-capped JSON body into v, writing the error
// response itself when it fails.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, types.ErrorResponse{Error: msg})
}
