package http_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/mentor"
	mentorhttp "github.com/aretw0/mentor/pkg/adapters/http"
	"github.com/aretw0/mentor/pkg/adapters/memory"
	"github.com/aretw0/mentor/pkg/adapters/scripted"
	"github.com/aretw0/mentor/pkg/observability"
	"github.com/aretw0/mentor/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	srv *httptest.Server
	svc *scripted.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	q := []scripted.QuestionScript{{ID: "q", Text: "?", Options: []string{"a", "b"}, Answer: 0, Hint: "Pick a."}}
	svc := scripted.NewService(scripted.Script{
		SessionID:   "sess-1",
		ConceptName: "Gravity",
		Atoms: []scripted.AtomScript{
			{ID: "mass", Name: "Mass", Teaching: scripted.TeachingScript{Explanation: "Mass is matter."}, Questions: q},
			{ID: "weight", Name: "Weight", Questions: q},
		},
	})

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	tutor, err := mentor.New(svc, mentor.WithLifecycleHooks(metrics.Hooks()))
	require.NoError(t, err)

	streams := mentorhttp.NewStreamManager(nil)
	mgr := session.NewManager(tutor, memory.NewStore(), session.WithObserver(streams.Observe))
	handler, err := mentorhttp.NewHandler(mgr, mentorhttp.WithStreams(streams), mentorhttp.WithMetrics(reg))
	require.NoError(t, err)

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, svc: svc}
}

func (f *fixture) call(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

func view(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	v, ok := body["view"].(map[string]any)
	require.True(t, ok, "response carries a view: %v", body)
	return v
}

func TestServer_SessionFlow(t *testing.T) {
	f := newFixture(t)

	status, body := f.call(t, http.MethodPost, "/sessions", map[string]string{"concept_id": "gravity"})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "teaching", body["phase"])
	assert.Equal(t, "sess-1", body["session_id"])

	status, body = f.call(t, http.MethodGet, "/sessions/sess-1/teaching", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Mass is matter.", body["teaching"].(map[string]any)["explanation"])

	status, body = f.call(t, http.MethodPost, "/sessions/sess-1/teaching/finish", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "questions", view(t, body)["phase"])

	status, body = f.call(t, http.MethodPost, "/sessions/sess-1/hint", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Pick a.", body["hint"])

	status, body = f.call(t, http.MethodPost, "/sessions/sess-1/answers", map[string]any{"selected": 0, "time_taken": 2.5})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["result"].(map[string]any)["correct"])

	status, body = f.call(t, http.MethodPost, "/sessions/sess-1/continue", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "auto_advance", body["directive"].(map[string]any)["kind"])
	assert.Equal(t, "teaching", view(t, body)["phase"])
	assert.Equal(t, 1.0, view(t, body)["atom_index"])

	f.call(t, http.MethodPost, "/sessions/sess-1/teaching/finish", nil)
	f.call(t, http.MethodPost, "/sessions/sess-1/answers", map[string]any{"selected": 0})
	status, body = f.call(t, http.MethodPost, "/sessions/sess-1/continue", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "finish", body["directive"].(map[string]any)["kind"])
	assert.Equal(t, "session_complete", view(t, body)["phase"])

	status, body = f.call(t, http.MethodGet, "/sessions/sess-1/summary", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2.0, body["completed_atoms"])
	assert.Equal(t, 100.0, body["completion_percent"])

	status, body = f.call(t, http.MethodGet, "/sessions", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{"sess-1"}, body["sessions"])
}

func TestServer_ErrorMapping(t *testing.T) {
	f := newFixture(t)
	status, _ := f.call(t, http.MethodPost, "/sessions", map[string]string{"concept_id": "gravity"})
	require.Equal(t, http.StatusCreated, status)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"unknown session", http.MethodGet, "/sessions/nope", nil, http.StatusNotFound},
		{"unknown session action", http.MethodPost, "/sessions/nope/continue", nil, http.StatusNotFound},
		{"answer during teaching", http.MethodPost, "/sessions/sess-1/answers", map[string]any{"selected": 0}, http.StatusUnprocessableEntity},
		{"choice without prompt", http.MethodPost, "/sessions/sess-1/choice", map[string]string{"choice": "review"}, http.StatusUnprocessableEntity},
		{"missing concept", http.MethodPost, "/sessions", map[string]string{}, http.StatusBadRequest},
		{"unknown level", http.MethodPost, "/sessions", map[string]string{"concept_id": "x", "knowledge_level": "guru"}, http.StatusBadRequest},
		{"unknown choice", http.MethodPost, "/sessions/sess-1/choice", map[string]string{"choice": "dance"}, http.StatusBadRequest},
		{"negative option", http.MethodPost, "/sessions/sess-1/answers", map[string]any{"selected": -1}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := f.call(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, status)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestServer_ServiceFailureKeepsPhase(t *testing.T) {
	f := newFixture(t)
	f.call(t, http.MethodPost, "/sessions", map[string]string{"concept_id": "gravity"})

	f.svc.FailNext(scripted.CallQuestions, errors.New("upstream down"))
	status, body := f.call(t, http.MethodPost, "/sessions/sess-1/teaching/finish", nil)
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Contains(t, body["error"], "upstream down")

	_, body = f.call(t, http.MethodGet, "/sessions/sess-1", nil)
	assert.Equal(t, "teaching", body["phase"])

	status, body = f.call(t, http.MethodPost, "/sessions/sess-1/teaching/finish", nil)
	require.Equal(t, http.StatusOK, status, "retry succeeds")
	assert.Equal(t, "questions", view(t, body)["phase"])
}

func TestServer_BusyAction(t *testing.T) {
	f := newFixture(t)
	f.call(t, http.MethodPost, "/sessions", map[string]string{"concept_id": "gravity"})

	latch := f.svc.Hold(scripted.CallQuestions)
	first := make(chan int, 1)
	go func() {
		status, _ := f.call(t, http.MethodPost, "/sessions/sess-1/teaching/finish", nil)
		first <- status
	}()
	select {
	case <-latch.Entered():
	case <-time.After(2 * time.Second):
		t.Fatal("first request never reached the service")
	}

	status, _ := f.call(t, http.MethodPost, "/sessions/sess-1/teaching/finish", nil)
	assert.Equal(t, http.StatusConflict, status)

	latch.Release()
	assert.Equal(t, http.StatusOK, <-first)
	assert.Equal(t, 1, f.svc.Calls(scripted.CallQuestions))
}

func TestServer_DeleteSession(t *testing.T) {
	f := newFixture(t)
	f.call(t, http.MethodPost, "/sessions", map[string]string{"concept_id": "gravity"})

	status, _ := f.call(t, http.MethodDelete, "/sessions/sess-1", nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = f.call(t, http.MethodGet, "/sessions/sess-1", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestServer_Events(t *testing.T) {
	f := newFixture(t)
	f.call(t, http.MethodPost, "/sessions", map[string]string{"concept_id": "gravity"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.srv.URL+"/sessions/sess-1/events?watch=phase", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string, 32)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	next := func(prefix string) string {
		t.Helper()
		timeout := time.After(2 * time.Second)
		for {
			select {
			case line, ok := <-lines:
				require.True(t, ok, "stream closed before %q", prefix)
				if strings.HasPrefix(line, prefix) {
					return line
				}
			case <-timeout:
				t.Fatalf("no line with prefix %q", prefix)
			}
		}
	}

	next("event: snapshot")
	initial := next("data: ")
	assert.Contains(t, initial, `"phase":"teaching"`)

	// Loading teaching content changes no watched field.
	f.call(t, http.MethodGet, "/sessions/sess-1/teaching", nil)
	f.call(t, http.MethodPost, "/sessions/sess-1/teaching/finish", nil)
	diff := next("data: ")
	assert.Contains(t, diff, `"phase":"questions"`)
}

func TestServer_MetaEndpoints(t *testing.T) {
	f := newFixture(t)
	f.call(t, http.MethodPost, "/sessions", map[string]string{"concept_id": "gravity"})

	status, body := f.call(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	status, body = f.call(t, http.MethodGet, "/info", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, strings.TrimSpace(mentor.Version), body["version"])
	assert.Equal(t, "1.0.0", body["api_version"])

	for path, want := range map[string]string{
		"/openapi.yaml": "openapi: 3.0.3",
		"/metrics":      "mentor_phase_transitions_total",
	} {
		resp, err := http.Get(f.srv.URL + path)
		require.NoError(t, err)
		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Contains(t, string(data), want, path)
	}
}

func TestLoadSpec(t *testing.T) {
	doc, err := mentorhttp.LoadSpec(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, doc.Paths.Find("/sessions/{id}/answers"))
}
