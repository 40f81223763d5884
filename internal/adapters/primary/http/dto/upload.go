package dto

import (
	"time"

	"github.com/google/uuid"

	"vision-pipeline-service/internal/core/domain"
)

type CreateUploadBatchRequest struct {
	Workspace string `json:"workspace" binding:"required"`
	Project   string `json:"project" binding:"required"`
	SourceDir string `json:"source_dir" binding:"required"`
	Suffix    string `json:"suffix"`
	Split     string `json:"split"`
	BatchName string `json:"batch_name"`
	Retries   int    `json:"retries"`
}

type UploadBatchResponse struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt string    `json:"created_at"`
	UpdatedAt string    `json:"updated_at"`
	Workspace string    `json:"workspace"`
	Project   string    `json:"project"`

	SourceDir string `json:"source_dir"`
	Suffix    string `json:"suffix"`
	Split     string `json:"split"`
	BatchName string `json:"batch_name"`
	Retries   int    `json:"retries"`

	Total    int `json:"total"`
	Uploaded int `json:"uploaded"`
	Failed   int `json:"failed"`

	State string `json:"state"`
	Error string `json:"error,omitempty"`

	StartedAt  *string `json:"started_at,omitempty"`
	FinishedAt *string `json:"finished_at,omitempty"`
}

type ListUploadBatchesResponse struct {
	Items      []UploadBatchResponse `json:"items"`
	Total      int                   `json:"total"`
	PageSize   int                   `json:"page_size"`
	NextOffset int                   `json:"next_offset"`
}

func ToUploadBatchResponse(batch *domain.UploadBatch) UploadBatchResponse {
	return UploadBatchResponse{
		ID:         batch.ID,
		CreatedAt:  batch.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  batch.UpdatedAt.Format(time.RFC3339),
		Workspace:  batch.Workspace,
		Project:    batch.Project,
		SourceDir:  batch.SourceDir,
		Suffix:     batch.Suffix,
		Split:      string(batch.Split),
		BatchName:  batch.BatchName,
		Retries:    batch.Retries,
		Total:      batch.Total,
		Uploaded:   batch.Uploaded,
		Failed:     batch.Failed,
		State:      string(batch.State),
		Error:      batch.Error,
		StartedAt:  formatTimePtr(batch.StartedAt),
		FinishedAt: formatTimePtr(batch.FinishedAt),
	}
}
