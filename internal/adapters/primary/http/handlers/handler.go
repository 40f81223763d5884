package handlers

import (
	"vision-pipeline-service/internal/core/services"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	datasetSvc    *services.DatasetService
	trainingSvc   *services.TrainingService
	generationSvc *services.GenerationService
	uploadSvc     *services.UploadService
	artifactSvc   *services.ArtifactService
}

func New(
	datasetSvc *services.DatasetService,
	trainingSvc *services.TrainingService,
	generationSvc *services.GenerationService,
	uploadSvc *services.UploadService,
	artifactSvc *services.ArtifactService,
) *Handler {
	return &Handler{
		datasetSvc:    datasetSvc,
		trainingSvc:   trainingSvc,
		generationSvc: generationSvc,
		uploadSvc:     uploadSvc,
		artifactSvc:   artifactSvc,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	// Datasets
	r.GET("/datasets", h.ListDatasets)
	r.GET("/datasets/:id", h.GetDataset)
	r.POST("/datasets", h.CreateDataset)
	r.POST("/datasets/:id/pull", h.PullDataset)
	r.DELETE("/datasets/:id", h.DeleteDataset)

	// Training Runs
	r.GET("/training_runs", h.ListTrainingRuns)
	r.GET("/training_runs/:id", h.GetTrainingRun)
	r.POST("/training_runs", h.CreateTrainingRun)
	r.POST("/training_runs/:id/cancel", h.CancelTrainingRun)
	r.GET("/training_runs/:id/artifacts", h.ListTrainingArtifacts)

	// Generation Jobs
	r.GET("/generation_jobs", h.ListGenerationJobs)
	r.GET("/generation_jobs/:id", h.GetGenerationJob)
	r.POST("/generation_jobs", h.CreateGenerationJob)
	r.POST("/generation_jobs/:id/cancel", h.CancelGenerationJob)
	r.GET("/generation_jobs/:id/artifacts", h.ListGenerationArtifacts)
	r.GET("/generation_jobs/:id/preview", h.PreviewGenerationJob)

	// Upload Batches
	r.GET("/upload_batches", h.ListUploadBatches)
	r.GET("/upload_batches/:id", h.GetUploadBatch)
	r.POST("/upload_batches", h.CreateUploadBatch)
}
