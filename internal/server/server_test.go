package server

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haruki/slidegen/internal/control"
	"github.com/haruki/slidegen/internal/deck"
	"github.com/haruki/slidegen/internal/pipeline"
)

func testReport() *control.RunReport {
	return &control.RunReport{
		Deck: &deck.Deck{
			Topic: "Quantum error correction",
			Title: "Quantum Error Correction",
			Slides: []deck.Slide{
				{ID: "slide_001", Type: deck.SlideTypeTitle, Title: "Quantum Error Correction"},
				{ID: "slide_002", Type: deck.SlideTypeConclusion, Title: "Conclusion"},
			},
		},
		Tier:     control.TierMonitored,
		TierName: control.TierMonitored.String(),
	}
}

// newTestServer builds a server with no database and returns a valid bearer
// token for it.
func newTestServer(t *testing.T, gen Generator) (*Server, string) {
	t.Helper()
	s, err := New(Config{Port: 0}, gen)
	require.NoError(t, err)

	token, err := s.jwtService.GenerateToken()
	require.NoError(t, err)
	return s, token
}

func doRequest(s *Server, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func TestServer_RequiresGenerator(t *testing.T) {
	_, err := New(Config{Port: 0}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generator")
}

func TestServer_HealthIsUnauthenticated(t *testing.T) {
	s, _ := newTestServer(t, func(context.Context, control.RunParams, pipeline.ProgressCallback) (*control.RunReport, error) {
		return testReport(), nil
	})

	rec := doRequest(s, "GET", "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestServer_RejectsMissingToken(t *testing.T) {
	s, _ := newTestServer(t, func(context.Context, control.RunParams, pipeline.ProgressCallback) (*control.RunReport, error) {
		return testReport(), nil
	})

	rec := doRequest(s, "POST", "/api/generate", "", `{"topic":"Tea"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_RejectsMalformedAuthHeader(t *testing.T) {
	s, _ := newTestServer(t, func(context.Context, control.RunParams, pipeline.ProgressCallback) (*control.RunReport, error) {
		return testReport(), nil
	})

	req := httptest.NewRequest("POST", "/api/generate", strings.NewReader(`{"topic":"Tea"}`))
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_RejectsInvalidToken(t *testing.T) {
	s, _ := newTestServer(t, func(context.Context, control.RunParams, pipeline.ProgressCallback) (*control.RunReport, error) {
		return testReport(), nil
	})

	rec := doRequest(s, "POST", "/api/generate", "bogus-token", `{"topic":"Tea"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_GenerateStartsRun(t *testing.T) {
	got := make(chan control.RunParams, 1)
	s, token := newTestServer(t, func(_ context.Context, params control.RunParams, _ pipeline.ProgressCallback) (*control.RunReport, error) {
		got <- params
		return testReport(), nil
	})

	rec := doRequest(s, "POST", "/api/generate", token, `{"topic":"History of tea"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), `"started"`)
	assert.Contains(t, rec.Body.String(), `"run_id"`)

	select {
	case params := <-got:
		assert.Equal(t, "History of tea", params.Request.Topic)
		assert.Equal(t, 5, params.Request.SlideCount)
		assert.Equal(t, deck.DepthMedium, params.Request.Depth)
		assert.Equal(t, deck.DensityBalanced, params.Request.Density)
	case <-time.After(2 * time.Second):
		t.Fatal("generator was never invoked")
	}
}

func TestServer_GenerateValidatesRequest(t *testing.T) {
	s, token := newTestServer(t, func(context.Context, control.RunParams, pipeline.ProgressCallback) (*control.RunReport, error) {
		t.Fatal("generator must not run for invalid requests")
		return nil, nil
	})

	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing topic", `{}`, "topic is required"},
		{"bad depth", `{"topic":"Tea","depth":"exhaustive"}`, "depth"},
		{"bad density", `{"topic":"Tea","density":"verbose"}`, "density"},
		{"too many slides", `{"topic":"Tea","slides":51}`, "slides"},
		{"threshold out of range", `{"topic":"Tea","quality_threshold":150}`, "quality_threshold"},
		{"not json", `{"topic":`, "Invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(s, "POST", "/api/generate", token, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
}

func TestServer_GenerateStreamEmitsEvents(t *testing.T) {
	s, token := newTestServer(t, func(_ context.Context, _ control.RunParams, onProgress pipeline.ProgressCallback) (*control.RunReport, error) {
		onProgress(pipeline.ProgressEvent{Stage: "research", Status: "running"})
		onProgress(pipeline.ProgressEvent{Stage: "research", Status: "ok"})
		return testReport(), nil
	})

	rec := doRequest(s, "POST", "/api/generate/stream", token, `{"topic":"History of tea"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "event: stage")
	assert.Contains(t, body, `"research"`)
	assert.Contains(t, body, "event: report")
	assert.Contains(t, body, `"Quantum Error Correction"`)
	assert.Contains(t, body, "event: complete")
	assert.Contains(t, body, `"completed"`)
}

func TestServer_GenerateStreamReportsFailure(t *testing.T) {
	s, token := newTestServer(t, func(context.Context, control.RunParams, pipeline.ProgressCallback) (*control.RunReport, error) {
		return nil, fmt.Errorf("non-optional stage assemble failed")
	})

	rec := doRequest(s, "POST", "/api/generate/stream", token, `{"topic":"History of tea"}`)
	body := rec.Body.String()
	assert.Contains(t, body, "event: error")
	assert.Contains(t, body, "assemble")
}

func TestServer_RunEndpointsNeedDatabase(t *testing.T) {
	s, token := newTestServer(t, func(context.Context, control.RunParams, pipeline.ProgressCallback) (*control.RunReport, error) {
		return testReport(), nil
	})

	for _, path := range []string{
		"/runs",
		"/runs/6a1f6f42-6f1e-4a6e-9b8a-5a2f3c4d5e6f",
		"/runs/6a1f6f42-6f1e-4a6e-9b8a-5a2f3c4d5e6f/artifacts",
		"/runs/6a1f6f42-6f1e-4a6e-9b8a-5a2f3c4d5e6f/deck.json",
		"/runs/6a1f6f42-6f1e-4a6e-9b8a-5a2f3c4d5e6f/deck.html",
		"/runs/6a1f6f42-6f1e-4a6e-9b8a-5a2f3c4d5e6f/report",
	} {
		rec := doRequest(s, "GET", path, token, "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
		assert.Contains(t, rec.Body.String(), "persistence")
	}
}

func TestServer_CORSPreflight(t *testing.T) {
	s, _ := newTestServer(t, func(context.Context, control.RunParams, pipeline.ProgressCallback) (*control.RunReport, error) {
		return testReport(), nil
	})

	req := httptest.NewRequest("OPTIONS", "/api/generate", nil)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestRunStatus(t *testing.T) {
	degraded := testReport()
	degraded.Transitions = []control.Transition{{From: control.TierMonitored, To: control.TierOffline}}

	assert.Equal(t, "failed", runStatus(nil, fmt.Errorf("boom")))
	assert.Equal(t, "degraded", runStatus(degraded, nil))
	assert.Equal(t, "completed", runStatus(testReport(), nil))
}
