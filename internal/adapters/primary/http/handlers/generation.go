package handlers

import (
	"net/http"
	"strconv"

	"vision-pipeline-service/internal/adapters/primary/http/dto"
	"vision-pipeline-service/internal/core/ports/output"
	"vision-pipeline-service/internal/core/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) ListGenerationJobs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	filter := ports.ListFilter{
		State:  c.Query("state"),
		Search: c.Query("search"),
		Limit:  limit,
		Offset: offset,
	}

	jobs, total, err := h.generationSvc.List(c.Request.Context(), filter)
	if err != nil {
		log.WithError(err).Error("list generation jobs failed")
		mapDomainError(c, err)
		return
	}

	items := make([]dto.GenerationJobResponse, 0, len(jobs))
	for _, job := range jobs {
		items = append(items, dto.ToGenerationJobResponse(job))
	}

	c.JSON(http.StatusOK, dto.ListGenerationJobsResponse{
		Items:      items,
		Total:      total,
		PageSize:   limit,
		NextOffset: offset + len(items),
	})
}

func (h *Handler) GetGenerationJob(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid generation job id"})
		return
	}

	job, err := h.generationSvc.Get(c.Request.Context(), id)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToGenerationJobResponse(job))
}

func (h *Handler) CreateGenerationJob(c *gin.Context) {
	var req dto.CreateGenerationJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	seed := int64(-1)
	if req.Seed != nil {
		seed = *req.Seed
	}
	job, err := h.generationSvc.Create(c.Request.Context(), services.GenerationParams{
		Name:           req.Name,
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		TotalImages:    req.TotalImages,
		BatchSize:      req.BatchSize,
		Steps:          req.Steps,
		GuidanceScale:  req.GuidanceScale,
		Seed:           seed,
	})
	if err != nil {
		log.WithError(err).Error("create generation job failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToGenerationJobResponse(job))
}

func (h *Handler) CancelGenerationJob(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid generation job id"})
		return
	}

	job, err := h.generationSvc.Cancel(c.Request.Context(), id)
	if err != nil {
		log.WithError(err).Error("cancel generation job failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToGenerationJobResponse(job))
}

func (h *Handler) ListGenerationArtifacts(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid generation job id"})
		return
	}

	artifacts, err := h.artifactSvc.ListGenerationArtifacts(c.Request.Context(), id)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	items := make([]dto.ArtifactResponse, 0, len(artifacts))
	for _, a := range artifacts {
		items = append(items, dto.ToArtifactResponse(a))
	}

	c.JSON(http.StatusOK, dto.ListArtifactsResponse{Items: items, Total: len(items)})
}

func (h *Handler) PreviewGenerationJob(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid generation job id"})
		return
	}

	png, err := h.artifactSvc.Preview(c.Request.Context(), id)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}
