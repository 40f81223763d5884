package dto

import (
	"time"

	"github.com/google/uuid"

	"vision-pipeline-service/internal/core/domain"
)

type CreateTrainingRunRequest struct {
	DatasetID   uuid.UUID `json:"dataset_id" binding:"required"`
	Name        string    `json:"name"`
	BaseWeights string    `json:"base_weights"`
	ImageSize   int       `json:"image_size"`
	BatchSize   int       `json:"batch_size"`
	Epochs      int       `json:"epochs"`
	Device      string    `json:"device"`
	Runner      string    `json:"runner"`
}

type TrainingRunResponse struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt string    `json:"created_at"`
	UpdatedAt string    `json:"updated_at"`
	DatasetID uuid.UUID `json:"dataset_id"`
	Name      string    `json:"name"`

	BaseWeights string `json:"base_weights"`
	ImageSize   int    `json:"image_size"`
	BatchSize   int    `json:"batch_size"`
	Epochs      int    `json:"epochs"`
	Device      string `json:"device,omitempty"`

	Runner string `json:"runner"`
	State  string `json:"state"`
	Error  string `json:"error,omitempty"`

	OutputDir   string `json:"output_dir,omitempty"`
	WeightsPath string `json:"weights_path,omitempty"`

	StartedAt  *string `json:"started_at,omitempty"`
	FinishedAt *string `json:"finished_at,omitempty"`
}

type ListTrainingRunsResponse struct {
	Items      []TrainingRunResponse `json:"items"`
	Total      int                   `json:"total"`
	PageSize   int                   `json:"page_size"`
	NextOffset int                   `json:"next_offset"`
}

func ToTrainingRunResponse(run *domain.TrainingRun) TrainingRunResponse {
	return TrainingRunResponse{
		ID:          run.ID,
		CreatedAt:   run.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   run.UpdatedAt.Format(time.RFC3339),
		DatasetID:   run.DatasetID,
		Name:        run.Name,
		BaseWeights: run.BaseWeights,
		ImageSize:   run.ImageSize,
		BatchSize:   run.BatchSize,
		Epochs:      run.Epochs,
		Device:      run.Device,
		Runner:      string(run.Runner),
		State:       string(run.State),
		Error:       run.Error,
		OutputDir:   run.OutputDir,
		WeightsPath: run.WeightsPath,
		StartedAt:   formatTimePtr(run.StartedAt),
		FinishedAt:  formatTimePtr(run.FinishedAt),
	}
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
