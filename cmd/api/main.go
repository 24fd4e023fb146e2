// main.go - The entry point for the inspection web service.

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bosocmputer/degradation_inspector/configs"
	"github.com/bosocmputer/degradation_inspector/internal/ai"
	"github.com/bosocmputer/degradation_inspector/internal/api"
	"github.com/bosocmputer/degradation_inspector/internal/common"
	"github.com/bosocmputer/degradation_inspector/internal/metrics"
	"github.com/bosocmputer/degradation_inspector/internal/ratelimit"
	"github.com/bosocmputer/degradation_inspector/internal/storage"
	"github.com/bosocmputer/degradation_inspector/internal/workflow"
	"github.com/gin-gonic/gin"
)

func main() {
	// Step 0: Load configuration from environment variables
	configs.LoadConfig()
	configs.RequireProviderCredentials()

	// Step 0.5: Set production mode
	if ginMode := os.Getenv("GIN_MODE"); ginMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Step 1: Create the UPLOAD_DIR folder if it doesn't exist
	if err := os.MkdirAll(configs.UPLOAD_DIR, 0755); err != nil {
		log.Fatalf("Failed to create upload directory: %v", err)
	}

	// Step 1.5: Open report storage (MongoDB, SQL or none)
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := storage.OpenFromConfig(startupCtx)
	if err != nil {
		log.Fatalf("Failed to open report storage: %v", err)
	}

	// Step 2: Load the model once, falling back to the secondary configuration
	loader, err := ai.CreateLoader()
	if err != nil {
		log.Fatalf("Failed to create model loader: %v", err)
	}
	svc, err := ai.NewService(startupCtx, ai.OptionsFromConfig(), loader)
	cancelStartup()
	if err != nil {
		log.Fatalf("Failed to load model: %v", err)
	}

	// Step 3: Build the workflow and the router
	m := metrics.New()
	flow := workflow.New(svc,
		workflow.WithObserver(m.WorkflowObserver()),
		workflow.WithObserver(logStage),
	)

	server := api.NewServer(api.Deps{
		Workflow: flow,
		Store:    store,
		Limiter:  ratelimit.NewRateLimiter(configs.RATE_LIMIT_TOKENS, configs.RATE_LIMIT_REFILL),
		Metrics:  m,
		Model: api.ModelInfo{
			Provider:     configs.AI_PROVIDER,
			Model:        svc.ModelName(),
			LoadConfig:   svc.LoadedConfig(),
			UsedFallback: svc.UsedFallback(),
		},
		UploadDir:      configs.UPLOAD_DIR,
		AllowedOrigins: configs.ALLOWED_ORIGINS,
		AnalyzeTimeout: configs.ANALYZE_TIMEOUT,
		KeepUploads:    configs.KEEP_UPLOADS,
	})

	// Step 4: Setup HTTP server with timeouts
	srv := &http.Server{
		Addr:           ":" + configs.PORT,
		Handler:        server.Router(),
		ReadTimeout:    30 * time.Second, // uploads can be several megabytes
		WriteTimeout:   configs.ANALYZE_TIMEOUT + time.Minute,
		MaxHeaderBytes: 1 << 20,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on :%s", configs.PORT)
		log.Println("Endpoints:")
		log.Println("  GET  /              (inspection page)")
		log.Println("  POST /api/v1/analyze")
		log.Println("  POST /api/v1/invoke")
		log.Println("  GET  /api/v1/reports/:id")
		log.Println("  GET  /metrics")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Setup graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	if err := svc.Close(); err != nil {
		log.Printf("Failed to release model: %v", err)
	}
	if err := store.Close(); err != nil {
		log.Printf("Failed to close report storage: %v", err)
	}

	log.Println("Server exited")
}

func logStage(ctx context.Context, stage workflow.Stage, state *workflow.State, err error) {
	if stage != workflow.Done {
		return
	}
	rc := common.FromContext(ctx)
	if workflow.DegradationDetected(state.FinalReport) {
		rc.LogWarning("Degradation detected in %s", state.ImagePath)
	} else {
		rc.LogInfo("✅ No degradation in %s", state.ImagePath)
	}
}
