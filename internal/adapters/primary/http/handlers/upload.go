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

func (h *Handler) ListUploadBatches(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	filter := ports.ListFilter{
		State:  c.Query("state"),
		Search: c.Query("search"),
		Limit:  limit,
		Offset: offset,
	}

	batches, total, err := h.uploadSvc.List(c.Request.Context(), filter)
	if err != nil {
		log.WithError(err).Error("list upload batches failed")
		mapDomainError(c, err)
		return
	}

	items := make([]dto.UploadBatchResponse, 0, len(batches))
	for _, batch := range batches {
		items = append(items, dto.ToUploadBatchResponse(batch))
	}

	c.JSON(http.StatusOK, dto.ListUploadBatchesResponse{
		Items:      items,
		Total:      total,
		PageSize:   limit,
		NextOffset: offset + len(items),
	})
}

func (h *Handler) GetUploadBatch(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid upload batch id"})
		return
	}

	batch, err := h.uploadSvc.Get(c.Request.Context(), id)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUploadBatchResponse(batch))
}

func (h *Handler) CreateUploadBatch(c *gin.Context) {
	var req dto.CreateUploadBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	batch, err := h.uploadSvc.Create(c.Request.Context(), services.UploadParams{
		Workspace: req.Workspace,
		Project:   req.Project,
		SourceDir: req.SourceDir,
		Suffix:    req.Suffix,
		Split:     domain.Split(req.Split),
		BatchName: req.BatchName,
		Retries:   req.Retries,
	})
	if err != nil {
		log.WithError(err).Error("create upload batch failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToUploadBatchResponse(batch))
}
