package handlers

import (
	"net/http"
	"strconv"

	"vision-pipeline-service/internal/adapters/primary/http/dto"
	"vision-pipeline-service/internal/core/domain"
	"vision-pipeline-service/internal/core/ports/output"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) ListDatasets(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	filter := ports.ListFilter{
		State:  c.Query("state"),
		Search: c.Query("search"),
		Limit:  limit,
		Offset: offset,
	}

	datasets, total, err := h.datasetSvc.List(c.Request.Context(), filter)
	if err != nil {
		log.WithError(err).Error("list datasets failed")
		mapDomainError(c, err)
		return
	}

	items := make([]dto.DatasetResponse, 0, len(datasets))
	for _, ds := range datasets {
		items = append(items, dto.ToDatasetResponse(ds))
	}

	c.JSON(http.StatusOK, dto.ListDatasetsResponse{
		Items:      items,
		Total:      total,
		PageSize:   limit,
		NextOffset: offset + len(items),
	})
}

func (h *Handler) GetDataset(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid dataset id"})
		return
	}

	ds, err := h.datasetSvc.Get(c.Request.Context(), id)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToDatasetResponse(ds))
}

func (h *Handler) CreateDataset(c *gin.Context) {
	var req dto.CreateDatasetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ds, err := h.datasetSvc.Create(
		c.Request.Context(),
		req.Name, req.Workspace, req.Project, req.Version,
		domain.ExportFormat(req.Format),
	)
	if err != nil {
		log.WithError(err).Error("create dataset failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToDatasetResponse(ds))
}

func (h *Handler) PullDataset(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid dataset id"})
		return
	}

	ds, err := h.datasetSvc.Pull(c.Request.Context(), id)
	if err != nil {
		log.WithError(err).Error("pull dataset failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, dto.ToDatasetResponse(ds))
}

func (h *Handler) DeleteDataset(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid dataset id"})
		return
	}

	if err := h.datasetSvc.Delete(c.Request.Context(), id); err != nil {
		log.WithError(err).Error("delete dataset failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
