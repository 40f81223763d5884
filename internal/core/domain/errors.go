package domain

import "errors"

// ============================================================================
// Dataset Errors
// ============================================================================

var (
	ErrDatasetNotFound     = errors.New("dataset not found")
	ErrDatasetNameConflict = errors.New("dataset with this name already exists")
	ErrDatasetNotReady     = errors.New("dataset has not been pulled yet")
	ErrDatasetInUse        = errors.New("dataset is referenced by training runs")
	ErrInvalidDatasetName  = errors.New("dataset name is required")
	ErrInvalidHubRef       = errors.New("hub workspace, project and version are required")
)

// ============================================================================
// Training Errors
// ============================================================================

var (
	ErrTrainingRunNotFound = errors.New("training run not found")
	ErrInvalidBaseWeights  = errors.New("base weights are required")
	ErrInvalidEpochs       = errors.New("epochs must be positive")
	ErrInvalidImageSize    = errors.New("image size must be positive")
	ErrInvalidBatchSize    = errors.New("batch size must be positive")
	ErrUnknownRunner       = errors.New("unknown training runner")
	ErrRunAlreadyFinished  = errors.New("run is already in a terminal state")
)

// ============================================================================
// Generation Errors
// ============================================================================

var (
	ErrGenerationJobNotFound = errors.New("generation job not found")
	ErrInvalidPrompt         = errors.New("prompt is required")
	ErrInvalidTotalImages    = errors.New("total images must be positive")
	ErrDiffusionNotAvailable = errors.New("diffusion server is not configured")
)

// ============================================================================
// Upload Errors
// ============================================================================

var (
	ErrUploadBatchNotFound = errors.New("upload batch not found")
	ErrInvalidSourceDir    = errors.New("source directory is required")
	ErrInvalidSplit        = errors.New("split must be train, valid or test")
	ErrNoFilesMatched      = errors.New("no files matched the suffix in the source directory")
	ErrHubNotAvailable     = errors.New("dataset hub is not configured")
)

// ============================================================================
// Artifact Errors
// ============================================================================

var (
	ErrArtifactNotFound = errors.New("artifact not found")
	ErrNoPreview        = errors.New("no images available for preview")
)
