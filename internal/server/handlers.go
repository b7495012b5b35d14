package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/haruki/slidegen/internal/control"
	"github.com/haruki/slidegen/internal/db"
	"github.com/haruki/slidegen/internal/deck"
	"github.com/haruki/slidegen/internal/pipeline"
	"github.com/haruki/slidegen/internal/quality"
	"github.com/haruki/slidegen/internal/refine"
	"github.com/haruki/slidegen/internal/render"
)

// GenerateRequest represents the request body for /api/generate
type GenerateRequest struct {
	Topic        string  `json:"topic"`
	Slides       int     `json:"slides,omitempty"`
	Style        string  `json:"style,omitempty"`
	Depth        string  `json:"depth,omitempty"`
	Density      string  `json:"density,omitempty"`
	QualityCheck bool    `json:"quality_check,omitempty"`
	Threshold    float64 `json:"quality_threshold,omitempty"`
	Offline      bool    `json:"offline,omitempty"`
}

// GenerateResponse represents the response for /api/generate
type GenerateResponse struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}

// RunStatusResponse represents the response for /runs/{id}
type RunStatusResponse struct {
	RunID       string `json:"run_id"`
	Topic       string `json:"topic"`
	SlideCount  int    `json:"slide_count"`
	Strategy    string `json:"strategy"`
	Status      string `json:"status"`
	FinalTier   string `json:"final_tier,omitempty"`
	CreatedAt   string `json:"created_at"`
	CompletedAt string `json:"completed_at,omitempty"`
}

// validate checks required fields and enum values, filling defaults.
func (req *GenerateRequest) validate() error {
	if req.Topic == "" {
		return &ErrValidation{Field: "topic", Message: "topic is required"}
	}
	if req.Slides == 0 {
		req.Slides = 5
	}
	if req.Slides < 1 || req.Slides > 50 {
		return &ErrValidation{Field: "slides", Message: "slides must be between 1 and 50"}
	}
	if req.Depth == "" {
		req.Depth = string(deck.DepthMedium)
	}
	switch deck.Depth(req.Depth) {
	case deck.DepthLow, deck.DepthMedium, deck.DepthHigh:
	default:
		return &ErrValidation{Field: "depth", Message: "depth must be low, medium, or high"}
	}
	if req.Density == "" {
		req.Density = string(deck.DensityBalanced)
	}
	switch deck.Density(req.Density) {
	case deck.DensityMinimal, deck.DensityBalanced, deck.DensityDetailed:
	default:
		return &ErrValidation{Field: "density", Message: "density must be minimal, balanced, or detailed"}
	}
	if req.Threshold < 0 || req.Threshold > 100 {
		return &ErrValidation{Field: "quality_threshold", Message: "quality_threshold must be between 0 and 100"}
	}
	return nil
}

// params converts a validated request into run parameters.
func (req *GenerateRequest) params(verbose bool) control.RunParams {
	return control.RunParams{
		Request: deck.Request{
			Topic:      req.Topic,
			SlideCount: req.Slides,
			Style:      req.Style,
			Depth:      deck.Depth(req.Depth),
			Density:    deck.Density(req.Density),
		},
		QualityCheck: req.QualityCheck,
		Quality:      quality.Config{Threshold: req.Threshold},
		Refine:       refine.Options{},
		Offline:      req.Offline,
		Verbose:      verbose,
	}
}

// handleGenerate starts a generation run in the background and returns its ID
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := req.validate(); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	runID := uuid.New()
	if s.db != nil {
		id, err := s.db.CreateRun(r.Context(), req.Topic, req.Slides, s.strategy)
		if err != nil {
			s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
			return
		}
		runID = id
	}

	log.Printf("Starting generation run %s for topic %q", runID, req.Topic)

	params := req.params(s.verbose)
	go func() {
		ctx := context.Background()
		report, err := s.generate(ctx, params, nil)
		s.persistRun(ctx, runID, report, err)
		if err != nil {
			log.Printf("Generation run %s failed: %v", runID, err)
			return
		}
		log.Printf("Generation run %s finished at tier %s", runID, report.TierName)
	}()

	s.jsonResponse(w, http.StatusAccepted, GenerateResponse{
		RunID:  runID.String(),
		Status: "started",
	})
}

// handleGenerateStream runs a generation synchronously, streaming stage
// progress over SSE and finishing with the full run report.
func (s *Server) handleGenerateStream(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := req.validate(); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	runID := uuid.New()
	if s.db != nil {
		id, err := s.db.CreateRun(r.Context(), req.Topic, req.Slides, s.strategy)
		if err != nil {
			sse.WriteError("Database error: " + err.Error())
			return
		}
		runID = id
	}

	log.Printf("Starting streaming generation run %s", runID)

	onProgress := func(event pipeline.ProgressEvent) {
		if err := sse.WriteEvent("stage", event); err != nil {
			log.Printf("Error writing SSE event: %v", err)
		}
	}

	ctx := r.Context()
	report, err := s.generate(ctx, req.params(s.verbose), onProgress)
	s.persistRun(context.WithoutCancel(ctx), runID, report, err)
	if err != nil {
		log.Printf("Streaming generation run %s failed: %v", runID, err)
		sse.WriteError(err.Error())
		return
	}

	if err := sse.WriteEvent("report", report); err != nil {
		log.Printf("Error writing SSE report: %v", err)
	}
	sse.WriteComplete(runID.String(), runStatus(report, nil))
	log.Printf("Streaming generation run %s completed", runID)
}

// persistRun stores the run outcome and artifacts. Persistence failures are
// logged, never surfaced: the generated deck already exists.
func (s *Server) persistRun(ctx context.Context, runID uuid.UUID, report *control.RunReport, runErr error) {
	if s.db == nil {
		return
	}

	tier := ""
	if report != nil {
		tier = report.TierName
	}
	if err := s.db.CompleteRun(ctx, runID, runStatus(report, runErr), tier); err != nil {
		log.Printf("Failed to record run %s completion: %v", runID, err)
	}
	if report == nil {
		return
	}

	if err := s.db.SaveArtifact(ctx, runID, db.StepAssembled, report.Deck); err != nil {
		log.Printf("Failed to save deck artifact for run %s: %v", runID, err)
	}
	if report.Quality != nil {
		if err := s.db.SaveArtifact(ctx, runID, db.StepQualityReport, report.Quality); err != nil {
			log.Printf("Failed to save quality report for run %s: %v", runID, err)
		}
	}
	if html, err := render.HTML(report.Deck); err != nil {
		log.Printf("Failed to render deck for run %s: %v", runID, err)
	} else if err := s.db.SaveTextArtifact(ctx, runID, db.StepDeckHTML, html); err != nil {
		log.Printf("Failed to save deck HTML for run %s: %v", runID, err)
	}
}

// runStatus maps a run outcome onto a run record status.
func runStatus(report *control.RunReport, runErr error) string {
	switch {
	case runErr != nil:
		return db.RunStatusFailed
	case report != nil && report.Degraded():
		return db.RunStatusDegraded
	default:
		return db.RunStatusCompleted
	}
}

// handleListRuns returns recent generation runs
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		err := &ErrPersistenceDisabled{}
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	filters := db.RunFilters{
		Topic:  r.URL.Query().Get("topic"),
		Status: r.URL.Query().Get("status"),
	}
	runs, err := s.db.ListRuns(r.Context(), filters)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}

// handleGetRun returns the status of a generation run
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}

	resp := RunStatusResponse{
		RunID:      run.ID.String(),
		Topic:      run.Topic,
		SlideCount: run.SlideCount,
		Strategy:   run.Strategy,
		Status:     run.Status,
		CreatedAt:  run.CreatedAt.Format(time.RFC3339),
	}
	if run.FinalTier != nil {
		resp.FinalTier = *run.FinalTier
	}
	if run.CompletedAt != nil {
		resp.CompletedAt = run.CompletedAt.Format(time.RFC3339)
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// handleDeleteRun removes a run and its artifacts
func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}

	if err := s.db.DeleteRun(r.Context(), run.ID); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"run_id": run.ID.String(), "status": "deleted"})
}

// handleRunArtifacts lists the stored artifacts of a run
func (s *Server) handleRunArtifacts(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}

	artifacts, err := s.db.ListArtifacts(r.Context(), run.ID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"run_id": run.ID.String(), "artifacts": artifacts})
}

// handleRunDeckHTML serves the rendered deck for a run
func (s *Server) handleRunDeckHTML(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}

	html, err := s.db.GetTextArtifact(r.Context(), run.ID, db.StepDeckHTML)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if html == "" {
		s.errorResponse(w, http.StatusNotFound, "No rendered deck for this run")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(html)); err != nil {
		log.Printf("Error writing deck HTML: %v", err)
	}
}

// handleRunDeck serves a run's stored deck JSON, preferring the refined
// deck over the assembled one.
func (s *Server) handleRunDeck(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}

	d, err := s.db.GetDeckByRunID(r.Context(), run.ID, db.StepRefined)
	if err == nil && d == nil {
		d, err = s.db.GetDeckByRunID(r.Context(), run.ID, db.StepAssembled)
	}
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if d == nil {
		s.errorResponse(w, http.StatusNotFound, "No deck stored for this run")
		return
	}
	s.jsonResponse(w, http.StatusOK, d)
}

// handleRunReport serves a run's stored quality report.
func (s *Server) handleRunReport(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}

	report, err := s.db.GetQualityReportByRunID(r.Context(), run.ID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if report == nil {
		s.errorResponse(w, http.StatusNotFound, "No quality report for this run")
		return
	}
	s.jsonResponse(w, http.StatusOK, report)
}

// lookupRun parses the {id} path value and loads the run, writing the error
// response itself when anything is off.
func (s *Server) lookupRun(w http.ResponseWriter, r *http.Request) (*db.Run, bool) {
	if s.db == nil {
		err := &ErrPersistenceDisabled{}
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return nil, false
	}

	runID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid run ID format")
		return nil, false
	}

	run, err := s.db.GetRun(r.Context(), runID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return nil, false
	}
	if run == nil {
		notFound := &ErrRunNotFound{RunID: runID}
		s.errorResponse(w, HTTPStatus(notFound), notFound.Error())
		return nil, false
	}
	return run, true
}
