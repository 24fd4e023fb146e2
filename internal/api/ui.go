// ui.go - Server-rendered inspection page

package api

import (
	"embed"
	"encoding/base64"
	"html/template"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/bosocmputer/degradation_inspector/internal/common"
	"github.com/gin-gonic/gin"
)

//go:embed templates/index.html
var templateFS embed.FS

// previews larger than this are not inlined into the page
const maxPreviewBytes = 5 << 20

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type pageData struct {
	Model      string
	Fallback   bool
	Error      string
	FileName   string
	ImageURL   template.URL
	Report     string
	Detected   bool
	RequestID  string
	DurationMS int64
}

func (s *Server) page() pageData {
	return pageData{Model: s.deps.Model.Model, Fallback: s.deps.Model.UsedFallback}
}

// IndexHandler handles GET /
func (s *Server) IndexHandler(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", s.page())
}

// InspectPageHandler handles the form POST /inspect and renders the result
func (s *Server) InspectPageHandler(c *gin.Context) {
	data := s.page()
	reqCtx := common.NewRequestContext("ui")

	imagePath, originalName, status, err := s.saveUpload(c, reqCtx)
	if err != nil {
		data.Error = err.Error()
		c.HTML(status, "index.html", data)
		return
	}
	defer s.cleanupUpload(reqCtx, imagePath)

	data.FileName = originalName
	data.ImageURL = previewURL(imagePath)

	resp, err := s.inspect(c.Request.Context(), reqCtx, imagePath, originalName)
	if err != nil {
		status, body := errorResponse(err)
		s.observeOutcome(err)
		reqCtx.LogError("Inspection failed (%d): %v", status, err)
		data.Error = "An error occurred during analysis: " + err.Error()
		if suggestion, ok := body["suggestion"].(string); ok {
			data.Error += ". " + suggestion
		}
		c.HTML(status, "index.html", data)
		return
	}

	s.observeOutcome(nil)
	reqCtx.GetSummary()
	data.Report = resp.FinalReport
	data.Detected = resp.DegradationDetected
	data.RequestID = resp.RequestID
	data.DurationMS = resp.DurationMS
	c.HTML(http.StatusOK, "index.html", data)
}

// previewURL inlines the image as a data URL, or returns "" when it cannot be read
func previewURL(path string) template.URL {
	info, err := os.Stat(path)
	if err != nil || info.Size() > maxPreviewBytes {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return template.URL("data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data))
}
