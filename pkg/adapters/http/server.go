// Package http exposes the session manager as a JSON API with an SSE stream of
// snapshot diffs, validated against an embedded OpenAPI document.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/mentor"
	"github.com/aretw0/mentor/internal/logging"
	"github.com/aretw0/mentor/pkg/domain"
	"github.com/aretw0/mentor/pkg/session"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server serves the session API.
type Server struct {
	manager  *session.Manager
	streams  *StreamManager
	doc      *openapi3.T
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithStreams shares a StreamManager with the session manager observer.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.streams = sm
	}
}

// WithMetrics exposes the gatherer on GET /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewHandler builds the HTTP handler for the session manager.
func NewHandler(manager *session.Manager, opts ...Option) (http.Handler, error) {
	s := &Server{
		manager: manager,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.streams == nil {
		s.streams = NewStreamManager(s.logger)
	}

	doc, err := LoadSpec(context.Background())
	if err != nil {
		return nil, err
	}
	s.doc = doc
	router, err := newRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to build openapi router: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)
	r.Use(validateRequests(router, s.logger))

	r.Get("/health", s.getHealth)
	r.Get("/info", s.getInfo)
	r.Get("/openapi.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(rawSpec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(swaggerHTML))
	})
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.listSessions)
		r.Post("/", s.startSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Delete("/", s.deleteSession)
			r.Get("/teaching", s.loadTeaching)
			r.Post("/teaching/finish", s.finishTeaching)
			r.Post("/answers", s.submitAnswer)
			r.Post("/hint", s.requestHint)
			r.Post("/continue", s.continueSession)
			r.Post("/choice", s.choose)
			r.Get("/summary", s.getSummary)
			r.Get("/events", s.subscribeEvents)
		})
	})
	return r, nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Mentor API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

type errorBody struct {
	Error string `json:"error"`
}

type startRequest struct {
	ConceptID      string `json:"concept_id"`
	KnowledgeLevel string `json:"knowledge_level"`
}

type answerRequest struct {
	Selected  int     `json:"selected"`
	TimeTaken float64 `json:"time_taken"`
}

type choiceRequest struct {
	Choice string `json:"choice"`
}

// actionResponse carries the outcome of an action and the view it left behind.
// Discarded is set when the response arrived after the session moved on.
type actionResponse struct {
	View      domain.View             `json:"view"`
	Discarded bool                    `json:"discarded,omitempty"`
	Teaching  *domain.TeachingContent `json:"teaching,omitempty"`
	Result    *domain.AnswerResult    `json:"result,omitempty"`
	Hint      string                  `json:"hint,omitempty"`
	Directive *domain.Directive       `json:"directive,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("response encode failed", "err", err)
	}
}

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) int {
	var rf *domain.RequestFailure
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNoContent),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrInvalidAnswer):
		return http.StatusUnprocessableEntity
	case errors.As(err, &rf):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	} else {
		s.logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error()}, s.logger)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"}, s.logger)
		return false
	}
	return true
}

// act runs fn through the manager and replies with the resulting view.
func (s *Server) act(w http.ResponseWriter, r *http.Request, fn func(context.Context, *mentor.Session, *actionResponse) error) {
	var (
		resp actionResponse
		sess *mentor.Session
	)
	err := s.manager.Do(r.Context(), chi.URLParam(r, "id"), func(ctx context.Context, ss *mentor.Session) error {
		sess = ss
		return fn(ctx, ss, &resp)
	})
	switch {
	case err == nil:
	case sess != nil && errors.Is(err, domain.ErrStaleResponse):
		resp = actionResponse{Discarded: true}
	default:
		s.fail(w, r, err)
		return
	}
	resp.View = sess.View()
	writeJSON(w, http.StatusOK, resp, s.logger)
}

func (s *Server) getHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, s.logger)
}

func (s *Server) getInfo(w http.ResponseWriter, _ *http.Request) {
	apiVersion := "unknown"
	if s.doc.Info != nil {
		apiVersion = s.doc.Info.Version
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"app":         "mentor-http",
		"version":     strings.TrimSpace(mentor.Version),
		"api_version": apiVersion,
	}, s.logger)
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.manager.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"sessions": ids}, s.logger)
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	var body startRequest
	if !s.decode(w, r, &body) {
		return
	}
	level, err := domain.ParseKnowledgeLevel(body.KnowledgeLevel)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()}, s.logger)
		return
	}
	sess, err := s.manager.Start(r.Context(), body.ConceptID, level)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess.View(), s.logger)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.manager.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.View(), s.logger)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.Discard(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getSummary(w http.ResponseWriter, r *http.Request) {
	sess, err := s.manager.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Summary(), s.logger)
}

func (s *Server) loadTeaching(w http.ResponseWriter, r *http.Request) {
	s.act(w, r, func(ctx context.Context, sess *mentor.Session, resp *actionResponse) error {
		content, err := sess.LoadTeaching(ctx)
		resp.Teaching = content
		return err
	})
}

func (s *Server) finishTeaching(w http.ResponseWriter, r *http.Request) {
	s.act(w, r, func(ctx context.Context, sess *mentor.Session, _ *actionResponse) error {
		return sess.FinishTeaching(ctx)
	})
}

func (s *Server) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var body answerRequest
	if !s.decode(w, r, &body) {
		return
	}
	elapsed := time.Duration(body.TimeTaken * float64(time.Second))
	s.act(w, r, func(ctx context.Context, sess *mentor.Session, resp *actionResponse) error {
		res, err := sess.SubmitAnswer(ctx, body.Selected, elapsed)
		resp.Result = res
		return err
	})
}

func (s *Server) requestHint(w http.ResponseWriter, r *http.Request) {
	s.act(w, r, func(ctx context.Context, sess *mentor.Session, resp *actionResponse) error {
		hint, err := sess.RequestHint(ctx)
		resp.Hint = hint
		return err
	})
}

func (s *Server) continueSession(w http.ResponseWriter, r *http.Request) {
	s.act(w, r, func(ctx context.Context, sess *mentor.Session, resp *actionResponse) error {
		d, err := sess.Continue(ctx)
		if err == nil && d.Kind != "" {
			resp.Directive = &d
		}
		return err
	})
}

func (s *Server) choose(w http.ResponseWriter, r *http.Request) {
	var body choiceRequest
	if !s.decode(w, r, &body) {
		return
	}
	choice, err := domain.ParseChoice(body.Choice)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()}, s.logger)
		return
	}
	s.act(w, r, func(ctx context.Context, sess *mentor.Session, _ *actionResponse) error {
		return sess.Choose(ctx, choice)
	})
}

// subscribeEvents streams snapshot diffs of one session as server-sent events.
// The first data event carries the full current state.
func (s *Server) subscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}
	sessionID := chi.URLParam(r, "id")
	sess, err := s.manager.Get(r.Context(), sessionID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	ch, cancel := s.streams.Subscribe(sessionID)
	defer cancel()
	filter := parseWatch(r.URL.Query().Get("watch"))

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")

	snap := sess.Snapshot()
	if initial, err := json.Marshal(domain.Diff(nil, &snap)); err == nil {
		fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", initial)
	}
	flusher.Flush()
	s.logger.Debug("SSE: subscribed", "session_id", sessionID)

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE: client disconnected", "session_id", sessionID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if !filter.keep(msg) {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
