package dto

import (
	"time"

	"github.com/google/uuid"

	"vision-pipeline-service/internal/core/domain"
)

type CreateGenerationJobRequest struct {
	Name           string  `json:"name"`
	Prompt         string  `json:"prompt" binding:"required"`
	NegativePrompt string  `json:"negative_prompt"`
	TotalImages    int     `json:"total_images" binding:"required"`
	BatchSize      int     `json:"batch_size"`
	Steps          int     `json:"steps"`
	GuidanceScale  float64 `json:"guidance_scale"`
	// Seed is a pointer so an explicit 0 is distinguishable from an omitted
	// field; omitted means server-chosen seeds.
	Seed *int64 `json:"seed"`
}

type GenerationJobResponse struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt string    `json:"created_at"`
	UpdatedAt string    `json:"updated_at"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`

	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt,omitempty"`
	TotalImages    int     `json:"total_images"`
	BatchSize      int     `json:"batch_size"`
	Steps          int     `json:"steps"`
	GuidanceScale  float64 `json:"guidance_scale"`
	Seed           int64   `json:"seed"`

	OutputDir string `json:"output_dir,omitempty"`
	Produced  int    `json:"produced"`

	State string `json:"state"`
	Error string `json:"error,omitempty"`

	StartedAt  *string `json:"started_at,omitempty"`
	FinishedAt *string `json:"finished_at,omitempty"`
}

type ListGenerationJobsResponse struct {
	Items      []GenerationJobResponse `json:"items"`
	Total      int                     `json:"total"`
	PageSize   int                     `json:"page_size"`
	NextOffset int                     `json:"next_offset"`
}

func ToGenerationJobResponse(job *domain.GenerationJob) GenerationJobResponse {
	return GenerationJobResponse{
		ID:             job.ID,
		CreatedAt:      job.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      job.UpdatedAt.Format(time.RFC3339),
		Name:           job.Name,
		Slug:           job.Slug,
		Prompt:         job.Prompt,
		NegativePrompt: job.NegativePrompt,
		TotalImages:    job.TotalImages,
		BatchSize:      job.BatchSize,
		Steps:          job.Steps,
		GuidanceScale:  job.GuidanceScale,
		Seed:           job.Seed,
		OutputDir:      job.OutputDir,
		Produced:       job.Produced,
		State:          string(job.State),
		Error:          job.Error,
		StartedAt:      formatTimePtr(job.StartedAt),
		FinishedAt:     formatTimePtr(job.FinishedAt),
	}
}
