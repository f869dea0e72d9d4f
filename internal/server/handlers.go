// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pdiddy/landscape-engine/internal/logger"
	"github.com/pdiddy/landscape-engine/internal/progress"
	"github.com/pdiddy/landscape-engine/internal/report"
	"github.com/pdiddy/landscape-engine/pkg/types"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Code      string    `json:"code"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *Server) fail(c *gin.Context, status int, code, msg string) {
	c.JSON(status, ErrorResponse{Error: msg, Code: code, Timestamp: s.Now().UTC()})
}

// StartRunRequest is the body of POST /api/runs. Keywords are derived
// from the topic when omitted.
type StartRunRequest struct {
	Topic      string   `json:"topic"`
	Mode       string   `json:"mode"`
	DrugName   string   `json:"drug_name"`
	Indication string   `json:"indication"`
	Keywords   []string `json:"keywords"`
}

// StartRunResponse is returned when a run is accepted.
type StartRunResponse struct {
	RunID     string   `json:"run_id"`
	StatusURL string   `json:"status_url"`
	Keywords  []string `json:"keywords"`
}

// ProgressResponse is the body of GET /api/runs/:id.
type ProgressResponse struct {
	RunID     string          `json:"run_id"`
	Stage     types.Stage     `json:"stage"`
	Percent   int             `json:"percent"`
	Message   string          `json:"message"`
	Status    types.RunStatus `json:"status"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) status(c *gin.Context) {
	st := s.opts.Status()
	c.JSON(http.StatusOK, gin.H{
		"sources":         st.Sources,
		"ai_enabled":      st.AIEnabled,
		"model":           st.Model,
		"breaker_tripped": st.BreakerTripped,
		"timestamp":       s.Now().UTC(),
	})
}

func (s *Server) examples(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"examples": Examples})
}

func (s *Server) startRun(c *gin.Context) {
	var body StartRunRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		s.fail(c, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	topic := strings.TrimSpace(body.Topic)
	if topic == "" {
		s.fail(c, http.StatusBadRequest, "invalid_request", "research topic is required")
		return
	}
	mode := types.ResearchMode(strings.ToLower(strings.TrimSpace(body.Mode)))
	drug := body.DrugName
	if mode == types.ModePipeline && strings.TrimSpace(drug) == "" {
		drug = topic
	}

	keywords := body.Keywords
	if len(keywords) == 0 {
		keywords = s.deriveKeywords(c, topic, mode, drug, body.Indication)
	}

	req, err := types.NewResearchRequest(topic, mode, drug, body.Indication, keywords)
	if err != nil {
		s.fail(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	runID := s.NewID()
	tracker, err := progress.Start(s.ctx, s.opts.Store, runID, req, s.Now(), s.log)
	if err != nil {
		s.log.Error("storing new run failed", logger.String("run_id", runID), logger.Err(err))
		s.fail(c, http.StatusServiceUnavailable, "store_unavailable", "could not record the run")
		return
	}

	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		out := s.opts.Runner.RunWithID(s.ctx, runID, req, tracker)
		if err := tracker.Finish(out); err != nil {
			s.log.Warn("storing run outcome failed", logger.String("run_id", runID), logger.Err(err))
		}
	}()

	c.JSON(http.StatusAccepted, StartRunResponse{
		RunID:     runID,
		StatusURL: "/api/runs/" + runID,
		Keywords:  req.Keywords,
	})
}

func (s *Server) deriveKeywords(c *gin.Context, topic string, mode types.ResearchMode, drug, indication string) []string {
	if mode == types.ModePipeline {
		return s.opts.Keywords.PipelineKeywords(drug, indication)
	}
	kw, err := s.opts.Keywords.KeywordsFor(c.Request.Context(), topic)
	if err != nil {
		s.log.Warn("keyword generation failed", logger.String("topic", topic), logger.Err(err))
	}
	if len(kw) == 0 {
		kw = []string{strings.ToLower(topic)}
	}
	return kw
}

// lookup loads a run or writes the 404/500 response.
func (s *Server) lookup(c *gin.Context) (progress.State, bool) {
	st, err := s.opts.Store.Get(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, progress.ErrNotFound):
		s.fail(c, http.StatusNotFound, "run_not_found", "run not found")
		return st, false
	case err != nil:
		s.log.Error("loading run failed", logger.String("run_id", c.Param("id")), logger.Err(err))
		s.fail(c, http.StatusInternalServerError, "store_unavailable", "could not load the run")
		return st, false
	}
	return st, true
}

func (s *Server) getProgress(c *gin.Context) {
	st, ok := s.lookup(c)
	if !ok {
		return
	}
	p := st.Progress
	c.JSON(http.StatusOK, ProgressResponse{
		RunID:     st.RunID,
		Stage:     p.Stage,
		Percent:   p.Percent,
		Message:   p.Message,
		Status:    p.Status,
		UpdatedAt: p.UpdatedAt,
	})
}

// finished loads a run and writes 409 unless its outcome is recorded.
func (s *Server) finished(c *gin.Context) (*types.RunOutcome, bool) {
	st, ok := s.lookup(c)
	if !ok {
		return nil, false
	}
	if st.Outcome == nil {
		s.fail(c, http.StatusConflict, "run_in_progress", "run has not finished")
		return nil, false
	}
	return st.Outcome, true
}

func (s *Server) getResult(c *gin.Context) {
	out, ok := s.finished(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getReport(c *gin.Context) {
	out, ok := s.finished(c)
	if !ok {
		return
	}
	if out.Status != types.StatusCompleted {
		s.fail(c, http.StatusConflict, "no_report", out.Message)
		return
	}

	a := types.Artifacts{
		RunID:      out.RunID,
		Request:    out.Request,
		Analyses:   out.Analyses,
		Summary:    out.Summary,
		FinishedAt: out.FinishedAt,
	}
	if out.Collection != nil {
		a.Counts = out.Collection.Counts()
		a.Sources = out.Collection.Sources
	}
	page, err := report.RenderHTML("Competitive Landscape: "+out.Request.Topic, report.Document(a, out.FinishedAt))
	if err != nil {
		s.log.Error("rendering report failed", logger.String("run_id", out.RunID), logger.Err(err))
		s.fail(c, http.StatusInternalServerError, "render_failed", "could not render the report")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}
