// router.go - Gin routes and middleware

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Router builds the gin engine with every route registered
func (s *Server) Router() *gin.Engine {
	router := gin.Default()
	router.MaxMultipartMemory = maxUploadBytes
	router.SetHTMLTemplate(pageTemplate)

	router.Use(corsMiddleware(s.deps.AllowedOrigins))

	router.GET("/", s.IndexHandler)
	router.POST("/inspect", s.InspectPageHandler)
	router.GET("/health", s.HealthHandler)
	if s.deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(s.deps.Metrics.Handler()))
	}

	v1 := router.Group("/api/v1")
	{
		v1.POST("/analyze", s.AnalyzeUploadHandler)
		v1.POST("/invoke", s.InvokeHandler)
		v1.GET("/reports", s.ListReportsHandler)
		v1.GET("/reports/:id", s.GetReportHandler)
	}

	return router
}

func corsMiddleware(allowedOrigins string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
