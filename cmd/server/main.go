package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vision-pipeline-service/internal/adapters/primary/http/handlers"
	"vision-pipeline-service/internal/adapters/primary/http/middleware"
	"vision-pipeline-service/internal/adapters/secondary/diffusion"
	"vision-pipeline-service/internal/adapters/secondary/hub"
	"vision-pipeline-service/internal/adapters/secondary/postgres"
	"vision-pipeline-service/internal/adapters/secondary/trainer"
	"vision-pipeline-service/internal/config"
	output "vision-pipeline-service/internal/core/ports/output"
	"vision-pipeline-service/internal/core/services"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	initLogger(cfg)

	// Create database pool
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN())
	if err != nil {
		log.Fatalf("parse db config: %v", err)
	}
	poolCfg.MaxConns = int32(cfg.Database.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.Database.MaxIdleConns)
	poolCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		log.Fatalf("create db pool: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(context.Background()); err != nil {
		log.Fatalf("ping db: %v", err)
	}
	log.Info("database connection established")

	// ============================================================================
	// Hexagonal Architecture Wiring
	// ============================================================================

	// Secondary Adapters (Output Ports - Repositories)
	datasetRepo := postgres.NewDatasetRepository(pool)
	runRepo := postgres.NewTrainingRunRepository(pool)
	jobRepo := postgres.NewGenerationJobRepository(pool)
	batchRepo := postgres.NewUploadBatchRepository(pool)

	// Hub Client (dataset hosting service)
	hubClient := hub.NewHubClient(&cfg.Hub)
	if hubClient.IsAvailable() {
		log.Info("hub client initialized")
	} else {
		log.Info("hub integration disabled")
	}

	// Diffusion Client (txt2img backend)
	diffusionClient := diffusion.NewDiffusionClient(&cfg.Diffusion)
	if diffusionClient.IsAvailable() {
		log.Info("diffusion client initialized")
	} else {
		log.Info("diffusion integration disabled")
	}

	// Trainers (local always, Kubernetes based on config)
	trainers := []output.Trainer{trainer.NewLocalTrainer(&cfg.Trainer)}
	if cfg.Kubernetes.Enabled {
		k8sTrainer, err := trainer.NewKubernetesTrainer(&cfg.Kubernetes)
		if err != nil {
			log.Warnf("Kubernetes trainer init failed (continuing without K8s runs): %v", err)
		} else {
			trainers = append(trainers, k8sTrainer)
			log.Info("Kubernetes trainer initialized")
		}
	} else {
		log.Info("Kubernetes trainer disabled")
	}

	// Job runner
	runner := services.NewRunner(cfg.Runner.MaxConcurrent)

	// Core Services (Application Layer)
	datasetSvc := services.NewDatasetService(datasetRepo, runRepo, hubClient, runner, cfg.Storage.DataDir)
	trainingSvc := services.NewTrainingService(runRepo, datasetRepo, trainers, runner, cfg.Storage.DataDir)
	generationSvc := services.NewGenerationService(jobRepo, diffusionClient, runner, cfg.Storage.DataDir, cfg.Diffusion.Width, cfg.Diffusion.Height)
	uploadSvc := services.NewUploadService(batchRepo, hubClient, runner)
	artifactSvc := services.NewArtifactService(jobRepo, runRepo)

	// Primary Adapter (HTTP Handlers)
	h := handlers.New(datasetSvc, trainingSvc, generationSvc, uploadSvc, artifactSvc)

	// Setup router
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logging(), gin.Recovery())

	api := router.Group("/api/v1/vision-pipeline")
	h.RegisterRoutes(api)

	// Health check with DB ping
	router.GET("/healthz", func(c *gin.Context) {
		if err := pool.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Infof("starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced shutdown: %v", err)
	}
	if err := runner.Shutdown(ctx); err != nil {
		log.Warnf("jobs did not stop in time: %v", err)
	}

	log.Info("server stopped")
}

func initLogger(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Logger.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
