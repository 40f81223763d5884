package handlers

import (
	"net/http"
	"strconv"

	"vision-pipeline-service/internal/adapters/primary/http/dto"
	"vision-pipeline-service/internal/core/domain"
	"vision-pipeline-service/internal/core/ports/output"
	"vision-pipeline-service/internal/core/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) ListTrainingRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	filter := ports.ListFilter{
		State:  c.Query("state"),
		Search: c.Query("search"),
		Limit:  limit,
		Offset: offset,
	}

	runs, total, err := h.trainingSvc.List(c.Request.Context(), filter)
	if err != nil {
		log.WithError(err).Error("list training runs failed")
		mapDomainError(c, err)
		return
	}

	items := make([]dto.TrainingRunResponse, 0, len(runs))
	for _, run := range runs {
		items = append(items, dto.ToTrainingRunResponse(run))
	}

	c.JSON(http.StatusOK, dto.ListTrainingRunsResponse{
		Items:      items,
		Total:      total,
		PageSize:   limit,
		NextOffset: offset + len(items),
	})
}

func (h *Handler) GetTrainingRun(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid training run id"})
		return
	}

	run, err := h.trainingSvc.Get(c.Request.Context(), id)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTrainingRunResponse(run))
}

func (h *Handler) CreateTrainingRun(c *gin.Context) {
	var req dto.CreateTrainingRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	run, err := h.trainingSvc.Create(c.Request.Context(), services.TrainingParams{
		DatasetID:   req.DatasetID,
		Name:        req.Name,
		BaseWeights: req.BaseWeights,
		ImageSize:   req.ImageSize,
		BatchSize:   req.BatchSize,
		Epochs:      req.Epochs,
		Device:      req.Device,
		Runner:      domain.RunnerKind(req.Runner),
	})
	if err != nil {
		log.WithError(err).Error("create training run failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTrainingRunResponse(run))
}

func (h *Handler) CancelTrainingRun(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid training run id"})
		return
	}

	run, err := h.trainingSvc.Cancel(c.Request.Context(), id)
	if err != nil {
		log.WithError(err).Error("cancel training run failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTrainingRunResponse(run))
}

func (h *Handler) ListTrainingArtifacts(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid training run id"})
		return
	}

	artifacts, err := h.artifactSvc.ListTrainingArtifacts(c.Request.Context(), id)
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
