// Package mcp exposes learning sessions as Model Context Protocol tools so an
// agent can drive a learner through a concept.
package mcp

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
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// SessionsURI is the resource listing the stored session IDs.
const SessionsURI = "mentor://sessions"

// ToolResponse is the structured result of every session tool.
type ToolResponse struct {
	View      domain.View             `json:"view" jsonschema_description:"The session state after the action"`
	Discarded bool                    `json:"discarded,omitempty" jsonschema_description:"The response arrived after the session moved on and was ignored"`
	Teaching  *domain.TeachingContent `json:"teaching,omitempty"`
	Result    *domain.AnswerResult    `json:"result,omitempty"`
	Hint      string                  `json:"hint,omitempty"`
	Directive *domain.Directive       `json:"directive,omitempty"`
}

type startArgs struct {
	ConceptID      string `json:"concept_id"`
	KnowledgeLevel string `json:"knowledge_level"`
}

type sessionArgs struct {
	SessionID string `json:"session_id"`
}

type answerArgs struct {
	SessionID string  `json:"session_id"`
	Selected  int     `json:"selected"`
	TimeTaken float64 `json:"time_taken"`
}

type choiceArgs struct {
	SessionID string `json:"session_id"`
	Choice    string `json:"choice"`
}

// Server wraps a session manager and exposes it as an MCP Server.
type Server struct {
	manager   *session.Manager
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(manager *session.Manager, opts ...Option) *Server {
	s := &Server{
		manager:   manager,
		mcpServer: server.NewMCPServer("mentor-mcp", strings.TrimSpace(mentor.Version)),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the MCP SSE transport on addr until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))
	httpServer := &http.Server{Addr: addr, Handler: mux}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func sessionTool(name, description string, opts ...mcp.ToolOption) mcp.Tool {
	opts = append([]mcp.ToolOption{
		mcp.WithDescription(description),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session returned by start_session")),
		mcp.WithOutputSchema[ToolResponse](),
	}, opts...)
	return mcp.NewTool(name, opts...)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("start_session",
		mcp.WithDescription("Start a learning session on a concept. The session opens in the teaching phase of its first atom."),
		mcp.WithString("concept_id", mcp.Required(), mcp.Description("Concept to learn")),
		mcp.WithString("knowledge_level", mcp.Description("Self-reported level"),
			mcp.Enum(string(domain.LevelZero), string(domain.LevelBeginner), string(domain.LevelIntermediate), string(domain.LevelAdvanced))),
		mcp.WithOutputSchema[ToolResponse](),
	), mcp.NewStructuredToolHandler(s.handleStart))

	s.mcpServer.AddTool(sessionTool("get_view", "Read the current state of a session."),
		mcp.NewStructuredToolHandler(s.handleView))
	s.mcpServer.AddTool(sessionTool("load_teaching", "Fetch the teaching content of the active atom."),
		mcp.NewStructuredToolHandler(s.handleLoadTeaching))
	s.mcpServer.AddTool(sessionTool("finish_teaching", "Leave teaching and load the question set of the active atom."),
		mcp.NewStructuredToolHandler(s.handleFinishTeaching))
	s.mcpServer.AddTool(sessionTool("submit_answer", "Submit the selected option for the current question.",
		mcp.WithNumber("selected", mcp.Required(), mcp.Description("Zero-based option index")),
		mcp.WithNumber("time_taken", mcp.Description("Seconds spent on the question")),
	), mcp.NewStructuredToolHandler(s.handleSubmitAnswer))
	s.mcpServer.AddTool(sessionTool("request_hint", "Get the hint of the current question. Each question has at most one hint."),
		mcp.NewStructuredToolHandler(s.handleRequestHint))
	s.mcpServer.AddTool(sessionTool("continue", "Move to the next question, or complete the atom after the last one."),
		mcp.NewStructuredToolHandler(s.handleContinue))
	s.mcpServer.AddTool(sessionTool("choose", "Answer a pending prompt.",
		mcp.WithString("choice", mcp.Required(), mcp.Description("One of the choices listed on the view"),
			mcp.Enum(string(domain.ChoiceReview), string(domain.ChoicePractice), string(domain.ChoiceContinue), string(domain.ChoiceStop))),
	), mcp.NewStructuredToolHandler(s.handleChoose))

	s.mcpServer.AddTool(mcp.NewTool("summary",
		mcp.WithDescription("Closing report of a session: mastery distribution, completion and recommendation."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session returned by start_session")),
		mcp.WithOutputSchema[domain.Summary](),
	), mcp.NewStructuredToolHandler(s.handleSummary))
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(SessionsURI, "Stored Sessions",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		ids, err := s.manager.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list sessions: %w", err)
		}
		data, err := json.Marshal(ids)
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: SessionsURI, MIMEType: "application/json", Text: string(data)},
		}, nil
	})
}

// act runs fn through the manager. A stale response is reported as discarded
// rather than as a tool error.
func (s *Server) act(ctx context.Context, sessionID string, fn func(context.Context, *mentor.Session, *ToolResponse) error) (ToolResponse, error) {
	var (
		resp ToolResponse
		sess *mentor.Session
	)
	err := s.manager.Do(ctx, sessionID, func(ctx context.Context, ss *mentor.Session) error {
		sess = ss
		return fn(ctx, ss, &resp)
	})
	switch {
	case err == nil:
	case sess != nil && errors.Is(err, domain.ErrStaleResponse):
		resp = ToolResponse{Discarded: true}
	default:
		s.logger.Debug("MCP tool failed", "session_id", sessionID, "err", err)
		return ToolResponse{}, err
	}
	resp.View = sess.View()
	return resp, nil
}

func (s *Server) handleStart(ctx context.Context, _ mcp.CallToolRequest, args startArgs) (ToolResponse, error) {
	if args.ConceptID == "" {
		return ToolResponse{}, errors.New("concept_id is required")
	}
	level, err := domain.ParseKnowledgeLevel(args.KnowledgeLevel)
	if err != nil {
		return ToolResponse{}, err
	}
	sess, err := s.manager.Start(ctx, args.ConceptID, level)
	if err != nil {
		return ToolResponse{}, err
	}
	return ToolResponse{View: sess.View()}, nil
}

func (s *Server) handleView(ctx context.Context, _ mcp.CallToolRequest, args sessionArgs) (ToolResponse, error) {
	sess, err := s.manager.Get(ctx, args.SessionID)
	if err != nil {
		return ToolResponse{}, err
	}
	return ToolResponse{View: sess.View()}, nil
}

func (s *Server) handleLoadTeaching(ctx context.Context, _ mcp.CallToolRequest, args sessionArgs) (ToolResponse, error) {
	return s.act(ctx, args.SessionID, func(ctx context.Context, sess *mentor.Session, resp *ToolResponse) error {
		content, err := sess.LoadTeaching(ctx)
		resp.Teaching = content
		return err
	})
}

func (s *Server) handleFinishTeaching(ctx context.Context, _ mcp.CallToolRequest, args sessionArgs) (ToolResponse, error) {
	return s.act(ctx, args.SessionID, func(ctx context.Context, sess *mentor.Session, _ *ToolResponse) error {
		return sess.FinishTeaching(ctx)
	})
}

func (s *Server) handleSubmitAnswer(ctx context.Context, _ mcp.CallToolRequest, args answerArgs) (ToolResponse, error) {
	elapsed := time.Duration(args.TimeTaken * float64(time.Second))
	return s.act(ctx, args.SessionID, func(ctx context.Context, sess *mentor.Session, resp *ToolResponse) error {
		res, err := sess.SubmitAnswer(ctx, args.Selected, elapsed)
		resp.Result = res
		return err
	})
}

func (s *Server) handleRequestHint(ctx context.Context, _ mcp.CallToolRequest, args sessionArgs) (ToolResponse, error) {
	return s.act(ctx, args.SessionID, func(ctx context.Context, sess *mentor.Session, resp *ToolResponse) error {
		hint, err := sess.RequestHint(ctx)
		resp.Hint = hint
		return err
	})
}

func (s *Server) handleContinue(ctx context.Context, _ mcp.CallToolRequest, args sessionArgs) (ToolResponse, error) {
	return s.act(ctx, args.SessionID, func(ctx context.Context, sess *mentor.Session, resp *ToolResponse) error {
		d, err := sess.Continue(ctx)
		if err == nil && d.Kind != "" {
			resp.Directive = &d
		}
		return err
	})
}

func (s *Server) handleChoose(ctx context.Context, _ mcp.CallToolRequest, args choiceArgs) (ToolResponse, error) {
	choice, err := domain.ParseChoice(args.Choice)
	if err != nil {
		return ToolResponse{}, err
	}
	return s.act(ctx, args.SessionID, func(ctx context.Context, sess *mentor.Session, _ *ToolResponse) error {
		return sess.Choose(ctx, choice)
	})
}

func (s *Server) handleSummary(ctx context.Context, _ mcp.CallToolRequest, args sessionArgs) (domain.Summary, error) {
	sess, err := s.manager.Get(ctx, args.SessionID)
	if err != nil {
		return domain.Summary{}, err
	}
	return sess.Summary(), nil
}
