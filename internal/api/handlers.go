// handlers.go - HTTP handlers for image inspection, report lookup and health

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bosocmputer/degradation_inspector/internal/ai"
	"github.com/bosocmputer/degradation_inspector/internal/common"
	"github.com/bosocmputer/degradation_inspector/internal/metrics"
	"github.com/bosocmputer/degradation_inspector/internal/processor"
	"github.com/bosocmputer/degradation_inspector/internal/ratelimit"
	"github.com/bosocmputer/degradation_inspector/internal/storage"
	"github.com/bosocmputer/degradation_inspector/internal/workflow"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxUploadBytes = 20 << 20

var allowedUploadExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

var errRejected = errors.New("too many inspection requests")

// ModelInfo describes the loaded model for /health
type ModelInfo struct {
	Provider     string        `json:"provider"`
	Model        string        `json:"model"`
	LoadConfig   ai.LoadConfig `json:"load_config"`
	UsedFallback bool          `json:"fallback_active"`
}

// Deps are the collaborators of the HTTP layer, constructed once at startup
type Deps struct {
	Workflow       *workflow.Workflow
	Store          storage.ReportStore
	Limiter        *ratelimit.RateLimiter
	Metrics        *metrics.Metrics
	Model          ModelInfo
	UploadDir      string
	AllowedOrigins string
	AnalyzeTimeout time.Duration
	KeepUploads    bool
}

// Server holds the handlers
type Server struct {
	deps Deps
}

// NewServer creates the HTTP layer. A nil Store becomes NopStore.
func NewServer(deps Deps) *Server {
	if deps.Store == nil {
		deps.Store = storage.NopStore{}
	}
	if deps.AllowedOrigins == "" {
		deps.AllowedOrigins = "*"
	}
	return &Server{deps: deps}
}

// InvokeRequest is the JSON body of POST /api/v1/invoke
type InvokeRequest struct {
	ImagePath string `json:"image_path" binding:"required"`
}

// InspectResponse is returned by the analyze and invoke endpoints
type InspectResponse struct {
	RequestID           string                `json:"request_id"`
	ImagePath           string                `json:"image_path"`
	AnalysisResult      string                `json:"analysis_result"`
	FinalReport         string                `json:"final_report"`
	DegradationDetected bool                  `json:"degradation_detected"`
	ImageStats          *processor.ImageStats `json:"image_stats,omitempty"`
	Model               string                `json:"model"`
	DurationMS          int64                 `json:"duration_ms"`
	TokenUsage          common.TokenUsage     `json:"token_usage"`
}

// inspect runs the workflow for one local image and persists the report
func (s *Server) inspect(ctx context.Context, reqCtx *common.RequestContext, imagePath, originalName string) (*InspectResponse, error) {
	if s.deps.Limiter != nil && !s.deps.Limiter.TryAcquire() {
		reqCtx.LogWarning("Rejected: inspection limit reached")
		return nil, errRejected
	}

	if s.deps.AnalyzeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.deps.AnalyzeTimeout)
		defer cancel()
	}
	ctx = common.WithRequestContext(ctx, reqCtx)

	var stats *processor.ImageStats
	reqCtx.StartSubStep("measure_image")
	measured, err := processor.MeasureFile(imagePath)
	reqCtx.EndSubStep("")
	if err == nil {
		stats = &measured
		reqCtx.LogInfo("📊 %dx%d | brightness %.1f | contrast %.1f | sharpness %.1f",
			measured.Width, measured.Height, measured.Brightness, measured.Contrast, measured.Sharpness)
	}

	state, err := s.deps.Workflow.Invoke(ctx, workflow.Request{ImagePath: imagePath})
	if err != nil {
		return nil, err
	}

	resp := &InspectResponse{
		RequestID:           reqCtx.RequestID,
		ImagePath:           state.ImagePath,
		AnalysisResult:      state.AnalysisResult,
		FinalReport:         state.FinalReport,
		DegradationDetected: workflow.DegradationDetected(state.FinalReport),
		ImageStats:          stats,
		Model:               s.deps.Model.Model,
		DurationMS:          time.Since(reqCtx.StartTime).Milliseconds(),
		TokenUsage:          reqCtx.TotalTokens,
	}

	reqCtx.StartStep("persist")
	err = s.deps.Store.Save(context.WithoutCancel(ctx), &storage.ReportRecord{
		RequestID:           resp.RequestID,
		ImagePath:           resp.ImagePath,
		OriginalName:        originalName,
		AnalysisResult:      resp.AnalysisResult,
		FinalReport:         resp.FinalReport,
		DegradationDetected: resp.DegradationDetected,
		Model:               resp.Model,
		Source:              reqCtx.Source,
		DurationMS:          resp.DurationMS,
		CreatedAt:           time.Now().UTC(),
	})
	if err != nil {
		// the report is still returned to the caller
		reqCtx.EndStep("failed", nil, err)
	} else {
		reqCtx.EndStep("success", nil, nil)
	}

	return resp, nil
}

// AnalyzeUploadHandler handles POST /api/v1/analyze with a multipart "image" field
func (s *Server) AnalyzeUploadHandler(c *gin.Context) {
	reqCtx := common.NewRequestContext("api")

	imagePath, originalName, status, err := s.saveUpload(c, reqCtx)
	if err != nil {
		c.JSON(status, gin.H{
			"error":      err.Error(),
			"request_id": reqCtx.RequestID,
		})
		return
	}
	defer s.cleanupUpload(reqCtx, imagePath)

	resp, err := s.inspect(c.Request.Context(), reqCtx, imagePath, originalName)
	s.respond(c, reqCtx, resp, err)
}

// InvokeHandler handles POST /api/v1/invoke with {"image_path": "..."} for files the server can read
func (s *Server) InvokeHandler(c *gin.Context) {
	var req InvokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    "Invalid request format",
			"details":  err.Error(),
			"expected": "JSON with image_path",
		})
		return
	}

	reqCtx := common.NewRequestContext("api")
	resp, err := s.inspect(c.Request.Context(), reqCtx, req.ImagePath, filepath.Base(req.ImagePath))
	s.respond(c, reqCtx, resp, err)
}

func (s *Server) respond(c *gin.Context, reqCtx *common.RequestContext, resp *InspectResponse, err error) {
	if err != nil {
		status, body := errorResponse(err)
		body["request_id"] = reqCtx.RequestID
		body["processing_summary"] = reqCtx.GetPartialSummary()
		s.observeOutcome(err)
		reqCtx.LogError("Inspection failed (%d): %v", status, err)
		c.JSON(status, body)
		return
	}

	s.observeOutcome(nil)
	reqCtx.GetSummary()
	c.JSON(http.StatusOK, resp)
}

// GetReportHandler handles GET /api/v1/reports/:id
func (s *Server) GetReportHandler(c *gin.Context) {
	record, err := s.deps.Store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrReportNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load report", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, record)
}

// ListReportsHandler handles GET /api/v1/reports?limit=N
func (s *Server) ListReportsHandler(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > 200 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 200"})
		return
	}

	records, err := s.deps.Store.List(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list reports", "details": err.Error()})
		return
	}
	if records == nil {
		records = []storage.ReportRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"reports": records, "count": len(records)})
}

// HealthHandler handles GET /health
func (s *Server) HealthHandler(c *gin.Context) {
	body := gin.H{
		"status":  "ok",
		"service": "degradation-inspector",
		"version": "1.0.0",
		"model":   s.deps.Model,
	}
	if s.deps.Limiter != nil {
		body["available_slots"] = s.deps.Limiter.Available()
	}
	c.JSON(http.StatusOK, body)
}

// saveUpload stores the multipart "image" file under UploadDir with a UUID name
func (s *Server) saveUpload(c *gin.Context, reqCtx *common.RequestContext) (string, string, int, error) {
	reqCtx.StartStep("save_upload")

	file, err := c.FormFile("image")
	if err != nil {
		reqCtx.EndStep("failed", nil, err)
		return "", "", http.StatusBadRequest, fmt.Errorf("multipart field \"image\" is required")
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedUploadExtensions[ext] {
		err := fmt.Errorf("unsupported file type %q (allowed: jpg, jpeg, png)", ext)
		reqCtx.EndStep("failed", nil, err)
		return "", "", http.StatusBadRequest, err
	}
	if file.Size > maxUploadBytes {
		err := fmt.Errorf("file too large: %d bytes (max %d)", file.Size, maxUploadBytes)
		reqCtx.EndStep("failed", nil, err)
		return "", "", http.StatusRequestEntityTooLarge, err
	}

	if err := os.MkdirAll(s.deps.UploadDir, 0755); err != nil {
		reqCtx.EndStep("failed", nil, err)
		return "", "", http.StatusInternalServerError, fmt.Errorf("failed to prepare upload directory")
	}

	path := filepath.Join(s.deps.UploadDir, uuid.New().String()+ext)
	if err := c.SaveUploadedFile(file, path); err != nil {
		reqCtx.EndStep("failed", nil, err)
		return "", "", http.StatusInternalServerError, fmt.Errorf("failed to save upload")
	}

	reqCtx.EndStep("success", nil, nil)
	reqCtx.LogInfo("📄 Upload %s saved as %s (%d bytes)", file.Filename, path, file.Size)
	return path, file.Filename, http.StatusOK, nil
}

func (s *Server) cleanupUpload(reqCtx *common.RequestContext, path string) {
	if s.deps.KeepUploads {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		reqCtx.LogWarning("Failed to remove upload %s: %v", path, err)
	}
}

func (s *Server) observeOutcome(err error) {
	if s.deps.Metrics == nil {
		return
	}
	outcome := metrics.OutcomeSuccess
	switch {
	case err == nil:
	case errors.Is(err, errRejected):
		outcome = metrics.OutcomeRejected
	case errors.Is(err, ai.ErrInference):
		outcome = metrics.OutcomeInference
	case errors.Is(err, ai.ErrResource):
		outcome = metrics.OutcomeResource
	default:
		outcome = metrics.OutcomeError
	}
	s.deps.Metrics.ObserveAnalysis(outcome)
}
