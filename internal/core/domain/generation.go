package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenerationJob produces synthetic training images by repeatedly calling the
// external diffusion server and persisting every returned image. Images are
// named deterministically so a finished job can be re-listed at any time.
type GenerationJob struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time

	Name string
	Slug string

	Prompt         string
	NegativePrompt string
	TotalImages    int
	BatchSize      int
	Steps          int
	GuidanceScale  float64
	Seed           int64

	OutputDir string
	Produced  int

	State RunState
	Error string

	StartedAt  *time.Time
	FinishedAt *time.Time
}

// ImageName returns the filename of the idx-th image of the job (0-based).
func (j *GenerationJob) ImageName(idx int) string {
	return fmt.Sprintf("%s-%04d.png", j.Slug, idx)
}

// Batches returns the per-call batch sizes needed to produce exactly
// TotalImages: full batches followed by one short batch for the remainder.
func (j *GenerationJob) Batches() []int {
	if j.TotalImages <= 0 || j.BatchSize <= 0 {
		return nil
	}
	full := j.TotalImages / j.BatchSize
	sizes := make([]int, 0, full+1)
	for i := 0; i < full; i++ {
		sizes = append(sizes, j.BatchSize)
	}
	if rem := j.TotalImages % j.BatchSize; rem > 0 {
		sizes = append(sizes, rem)
	}
	return sizes
}
