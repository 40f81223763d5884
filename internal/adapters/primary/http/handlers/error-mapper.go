package handlers

import (
	"errors"
	"net/http"

	"vision-pipeline-service/internal/core/domain"

	"github.com/gin-gonic/gin"
)

func mapDomainError(c *gin.Context, err error) {
	switch {
	// Not found errors
	case errors.Is(err, domain.ErrDatasetNotFound),
		errors.Is(err, domain.ErrTrainingRunNotFound),
		errors.Is(err, domain.ErrGenerationJobNotFound),
		errors.Is(err, domain.ErrUploadBatchNotFound),
		errors.Is(err, domain.ErrArtifactNotFound),
		errors.Is(err, domain.ErrNoPreview):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	// Conflict errors
	case errors.Is(err, domain.ErrDatasetNameConflict),
		errors.Is(err, domain.ErrDatasetInUse),
		errors.Is(err, domain.ErrRunAlreadyFinished):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	// Bad request / validation errors
	case errors.Is(err, domain.ErrInvalidDatasetName),
		errors.Is(err, domain.ErrInvalidHubRef),
		errors.Is(err, domain.ErrDatasetNotReady),
		errors.Is(err, domain.ErrInvalidBaseWeights),
		errors.Is(err, domain.ErrInvalidEpochs),
		errors.Is(err, domain.ErrInvalidImageSize),
		errors.Is(err, domain.ErrInvalidBatchSize),
		errors.Is(err, domain.ErrUnknownRunner),
		errors.Is(err, domain.ErrInvalidPrompt),
		errors.Is(err, domain.ErrInvalidTotalImages),
		errors.Is(err, domain.ErrInvalidSourceDir),
		errors.Is(err, domain.ErrInvalidSplit),
		errors.Is(err, domain.ErrNoFilesMatched):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	// Service unavailable errors
	case errors.Is(err, domain.ErrHubNotAvailable),
		errors.Is(err, domain.ErrDiffusionNotAvailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})

	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
