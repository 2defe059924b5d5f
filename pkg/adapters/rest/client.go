package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aretw0/mentor/internal/logging"
	"github.com/aretw0/mentor/pkg/domain"
	"github.com/aretw0/mentor/pkg/ports"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout bounds a single request, including reading the body.
	DefaultTimeout = 30 * time.Second
	// RequestIDHeader carries a fresh UUID per request for server-side tracing.
	RequestIDHeader = "X-Request-ID"

	maxBodyBytes = 4 << 20
)

// ErrInvalidResponse is returned when a 2xx response does not carry the fields the orchestrator relies on.
var ErrInvalidResponse = errors.New("invalid response from learning service")

// ErrUnexpectedStatus is wrapped by the RequestFailure of every non-2xx response.
var ErrUnexpectedStatus = errors.New("unexpected status")

// Client implements ports.LearningService over HTTP+JSON.
type Client struct {
	base     *url.URL
	http     *http.Client
	tokens   ports.TokenSource
	limiter  *rate.Limiter
	validate *validator.Validate
	logger   *slog.Logger
}

var _ ports.LearningService = (*Client)(nil)

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.http.Timeout = d
		}
	}
}

// WithTokenSource attaches a bearer token to every request.
func WithTokenSource(ts ports.TokenSource) Option {
	return func(cl *Client) {
		cl.tokens = ts
	}
}

// WithRateLimit caps outgoing requests to r per second with the given burst.
// A zero rate disables limiting.
func WithRateLimit(r float64, burst int) Option {
	return func(cl *Client) {
		if r <= 0 {
			cl.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		cl.limiter = rate.NewLimiter(rate.Limit(r), burst)
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) {
		if logger != nil {
			cl.logger = logger
		}
	}
}

// NewClient creates a client for the learning service rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		base:     u,
		http:     &http.Client{Timeout: DefaultTimeout},
		validate: validator.New(),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// StartSession implements ports.LearningService.
func (c *Client) StartSession(ctx context.Context, req ports.StartSessionRequest) (*ports.StartSessionResponse, error) {
	level := req.KnowledgeLevel
	if level == "" {
		level = domain.LevelBeginner
	}
	var out startResponse
	body := startRequest{ConceptID: req.ConceptID, KnowledgeLevel: string(level)}
	if err := c.do(ctx, "start session", http.MethodPost, "/learning/sessions/start", body, &out); err != nil {
		return nil, err
	}

	atoms := make([]domain.Atom, 0, len(out.Atoms))
	for i, a := range out.Atoms {
		if a.id() == "" {
			return nil, fmt.Errorf("start session: atom %d has no id: %w", i, ErrInvalidResponse)
		}
		atoms = append(atoms, domain.Atom{ID: a.id(), Name: a.Name, MasteryScore: a.MasteryScore})
	}
	return &ports.StartSessionResponse{
		SessionID:     out.SessionID,
		ConceptName:   out.ConceptName,
		Atoms:         atoms,
		InitialPacing: domain.ParsePacingBand(out.InitialPacing),
	}, nil
}

// TeachingContent implements ports.LearningService.
func (c *Client) TeachingContent(ctx context.Context, req ports.AtomRequest) (*ports.TeachingResponse, error) {
	var out teachingResponse
	if err := c.do(ctx, "get teaching content", http.MethodGet, atomPath(req, "teaching"), nil, &out); err != nil {
		return nil, err
	}
	t := out.TeachingContent
	return &ports.TeachingResponse{
		Content: domain.TeachingContent{
			Explanation:   t.Explanation,
			Examples:      t.Examples,
			Analogy:       t.Analogy,
			Misconception: t.Misconception,
		},
		CurrentPacing: pacingOrEmpty(out.CurrentPacing),
	}, nil
}

// GenerateQuestions implements ports.LearningService.
func (c *Client) GenerateQuestions(ctx context.Context, req ports.AtomRequest) ([]domain.Question, error) {
	var out questionsResponse
	if err := c.do(ctx, "generate questions", http.MethodPost, atomPath(req, "questions/generate"), struct{}{}, &out); err != nil {
		return nil, err
	}
	questions := make([]domain.Question, len(out.Questions))
	for i, q := range out.Questions {
		questions[i] = q.domain()
	}
	return questions, nil
}

// SubmitAnswer implements ports.LearningService.
func (c *Client) SubmitAnswer(ctx context.Context, req ports.SubmitAnswerRequest) (*domain.AnswerResult, error) {
	var out answerResponse
	body := answerRequest{
		QuestionIndex: req.QuestionIndex,
		Selected:      req.Selected,
		TimeTaken:     req.TimeTaken,
		HintUsed:      req.HintUsed,
	}
	path := atomPath(ports.AtomRequest{SessionID: req.SessionID, AtomID: req.AtomID}, "answers")
	if err := c.do(ctx, "submit atom answer", http.MethodPost, path, body, &out); err != nil {
		return nil, err
	}
	return &domain.AnswerResult{
		Correct:      out.Correct,
		MasteryAfter: out.NewMastery,
		Improvement:  out.Improvement,
		Streak:       out.Streak,
		BehaviorTag:  out.Behavior,
		ErrorType:    out.ErrorType,
		Pacing:       pacingOrEmpty(out.CurrentPacing),
	}, nil
}

// CompleteAtom implements ports.LearningService.
func (c *Client) CompleteAtom(ctx context.Context, req ports.AtomRequest) (*ports.CompleteAtomResponse, error) {
	var out completeResponse
	if err := c.do(ctx, "complete atom", http.MethodPost, atomPath(req, "complete"), struct{}{}, &out); err != nil {
		return nil, err
	}
	next := domain.NewNextAction(out.NextAction.Action, out.NextAction.Reason, string(out.NextAction.NextAtom))
	if next.Code == domain.ActionUnknown {
		c.logger.Warn("learning service sent an unrecognised next_action", "action", next.Raw, "atom_id", req.AtomID)
	}
	return &ports.CompleteAtomResponse{
		Metrics: domain.CompletionMetrics{
			Accuracy:     out.Metrics.Accuracy,
			FinalMastery: out.Metrics.FinalMastery,
			ThetaChange:  out.Metrics.ThetaChange,
			TimeRatio:    out.Metrics.TimeRatio,
		},
		Pacing:         domain.ParsePacingBand(out.Pacing.Decision),
		Recommendation: out.Pacing.Recommendation,
		NextAction:     next,
		AllCompleted:   out.AllCompleted,
	}, nil
}

// RequestHint implements ports.LearningService.
func (c *Client) RequestHint(ctx context.Context, req ports.HintRequest) (string, error) {
	var out hintResponse
	body := hintRequest{QuestionID: req.QuestionID, ErrorCount: req.ErrorCount}
	if err := c.do(ctx, "request hint", http.MethodPost, "/learning/hints", body, &out); err != nil {
		return "", err
	}
	return out.Hint, nil
}

func atomPath(req ports.AtomRequest, suffix string) string {
	return "/learning/sessions/" + url.PathEscape(req.SessionID) + "/atoms/" + url.PathEscape(req.AtomID) + "/" + suffix
}

func pacingOrEmpty(raw string) domain.PacingBand {
	if raw == "" {
		return ""
	}
	return domain.ParsePacingBand(raw)
}

// do performs one JSON round trip. Transport errors and non-2xx statuses are
// returned as *domain.RequestFailure; the orchestrator fills in the slot.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &domain.RequestFailure{Op: op, Err: fmt.Errorf("rate limiter: %w", err)}
		}
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: failed to marshal request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(RequestIDHeader, requestID)
	if in != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return &domain.RequestFailure{Op: op, Err: fmt.Errorf("token: %w", err)}
		}
		if token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Warn("learning service unreachable", "op", op, "request_id", requestID, "err", err)
		return &domain.RequestFailure{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &domain.RequestFailure{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}
	c.logger.Debug("learning service call",
		"op", op,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e errorResponse
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &e) == nil && e.text() != "" {
			msg = e.text()
		}
		return &domain.RequestFailure{
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: %s", ErrUnexpectedStatus, msg),
		}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &domain.RequestFailure{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: %v", ErrInvalidResponse, err)}
	}
	if err := c.validate.Struct(out); err != nil {
		return &domain.RequestFailure{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: %v", ErrInvalidResponse, err)}
	}
	return nil
}
