package resd

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hydronet-sim/reservoir-core/pkg/models"
	"github.com/hydronet-sim/reservoir-core/pkg/utils"
)

// Server is the HTTP face of the run service.
type Server struct {
	store    *RunStore
	executor *Executor
}

func NewServer(store *RunStore, executor *Executor) *Server {
	return &Server{
		store:    store,
		executor: executor,
	}
}

// Router builds the gin engine with all routes and middleware attached.
// CORS is layered on by the daemon, which wraps this handler.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(RequestLogger(), Recovery())

	r.GET("/healthz", s.handleHealthz)

	api := r.Group("/api/v1")
	{
		api.POST("/runs", s.handleCreateRun)
		api.GET("/runs", s.handleListRuns)
		api.GET("/runs/:id", s.handleGetRun)
		api.DELETE("/runs/:id", s.handleCancelRun)
		api.GET("/runs/:id/results", s.handleGetResults)
	}
	return r
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

type createRunRequest struct {
	ID            string `json:"id,omitempty"`
	Title         string `json:"title,omitempty"`
	ModelYAML     string `json:"model_yaml,omitempty"`
	ModelPath     string `json:"model_path,omitempty"`
	WebhookURL    string `json:"webhook_url,omitempty"`
	WebhookSecret string `json:"webhook_secret,omitempty"`
}

// handleCreateRun handles POST /api/v1/runs. The model comes inline as
// model_yaml or by model_path, which the daemon reads from its own
// filesystem.
func (s *Server) handleCreateRun(c *gin.Context) {
	var req createRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	yamlText := req.ModelYAML
	switch {
	case req.ModelYAML == "" && req.ModelPath == "":
		c.JSON(http.StatusBadRequest, gin.H{"error": "one of model_yaml or model_path is required"})
		return
	case req.ModelYAML != "" && req.ModelPath != "":
		c.JSON(http.StatusBadRequest, gin.H{"error": "model_yaml and model_path are mutually exclusive"})
		return
	case req.ModelPath != "":
		data, err := os.ReadFile(req.ModelPath)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("reading model file: %v", err)})
			return
		}
		yamlText = string(data)
	}

	run, err := s.executor.Submit(SubmitRequest{
		ID:            req.ID,
		Title:         req.Title,
		ModelYAML:     yamlText,
		WebhookURL:    req.WebhookURL,
		WebhookSecret: req.WebhookSecret,
	})
	if err != nil {
		if strings.Contains(err.Error(), "already exists") {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"run": run})
}

// handleListRuns handles GET /api/v1/runs with pagination and an optional
// status filter.
func (s *Server) handleListRuns(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = utils.Clamp(parsed, 1, 1000)
		}
	}

	offset := 0
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	var status models.RunStatus
	if v := c.Query("status"); v != "" {
		parsed, ok := parseRunStatus(v)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown status %q", v)})
			return
		}
		status = parsed
	}

	runs := s.store.List(limit, offset, status)
	c.JSON(http.StatusOK, gin.H{
		"runs": runs,
		"pagination": gin.H{
			"limit":  limit,
			"offset": offset,
			"count":  len(runs),
		},
	})
}

// handleGetRun handles GET /api/v1/runs/:id. Recorder series are elided;
// the results endpoint serves them.
func (s *Server) handleGetRun(c *gin.Context) {
	run, err := s.store.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	run.Results = run.Results.WithoutSeries()
	c.JSON(http.StatusOK, gin.H{"run": run})
}

// handleCancelRun handles DELETE /api/v1/runs/:id.
func (s *Server) handleCancelRun(c *gin.Context) {
	run, err := s.executor.Cancel(c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrRunNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, ErrRunTerminal):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": run})
}

// handleGetResults handles GET /api/v1/runs/:id/results. Pass
// include_series=true for the raw per-timestep data.
func (s *Server) handleGetResults(c *gin.Context) {
	run, err := s.store.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if run.Results == nil {
		c.JSON(http.StatusPreconditionFailed, gin.H{"error": fmt.Sprintf("results not available: run is %s", run.Status)})
		return
	}

	results := run.Results
	if c.Query("include_series") != "true" {
		results = results.WithoutSeries()
	}
	c.JSON(http.StatusOK, gin.H{
		"run_id":  run.ID,
		"status":  run.Status,
		"results": results,
	})
}

func parseRunStatus(v string) (models.RunStatus, bool) {
	status := models.RunStatus(strings.ToLower(v))
	switch status {
	case models.RunStatusPending, models.RunStatusRunning,
		models.RunStatusCompleted, models.RunStatusFailed, models.RunStatusCanceled:
		return status, true
	}
	return "", false
}
