package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"vision-pipeline-service/internal/core/domain"
	"vision-pipeline-service/internal/core/ports/output"
)

// GenerationService drives batched synthetic-image generation against the
// external diffusion server. Every call produces BatchSize images; the job
// finishes once exactly TotalImages files exist on disk.
type GenerationService struct {
	repo      ports.GenerationJobRepository
	diffusion ports.DiffusionClient
	runner    *Runner
	dataDir   string
	width     int
	height    int
}

func NewGenerationService(repo ports.GenerationJobRepository, diffusion ports.DiffusionClient, runner *Runner, dataDir string, width, height int) *GenerationService {
	if width <= 0 {
		width = 512
	}
	if height <= 0 {
		height = 512
	}
	return &GenerationService{
		repo:      repo,
		diffusion: diffusion,
		runner:    runner,
		dataDir:   dataDir,
		width:     width,
		height:    height,
	}
}

type GenerationParams struct {
	Name           string
	Prompt         string
	NegativePrompt string
	TotalImages    int
	BatchSize      int
	Steps          int
	GuidanceScale  float64
	Seed           int64 // negative leaves seeding to the diffusion server
}

func (s *GenerationService) Create(ctx context.Context, p GenerationParams) (*domain.GenerationJob, error) {
	if s.diffusion == nil || !s.diffusion.IsAvailable() {
		return nil, domain.ErrDiffusionNotAvailable
	}
	if p.Prompt == "" {
		return nil, domain.ErrInvalidPrompt
	}
	if p.TotalImages <= 0 {
		return nil, domain.ErrInvalidTotalImages
	}
	if p.BatchSize <= 0 {
		p.BatchSize = 4
	}
	if p.Steps <= 0 {
		p.Steps = 30
	}
	if p.GuidanceScale <= 0 {
		p.GuidanceScale = 7.5
	}
	if p.Name == "" {
		p.Name = "generation"
	}

	now := time.Now()
	job := &domain.GenerationJob{
		ID:             uuid.New(),
		CreatedAt:      now,
		UpdatedAt:      now,
		Name:           p.Name,
		Slug:           generateSlug(p.Name),
		Prompt:         p.Prompt,
		NegativePrompt: p.NegativePrompt,
		TotalImages:    p.TotalImages,
		BatchSize:      p.BatchSize,
		Steps:          p.Steps,
		GuidanceScale:  p.GuidanceScale,
		Seed:           p.Seed,
		State:          domain.RunStateQueued,
	}
	job.OutputDir = filepath.Join(s.dataDir, "generated", job.Slug+"-"+job.ID.String()[:8])

	if err := s.repo.Create(ctx, job); err != nil {
		return nil, err
	}

	// The run goroutine owns job from here; hand the caller its own copy.
	snapshot := *job
	s.runner.Go(job.ID, func(runCtx context.Context) {
		s.run(runCtx, job)
	})
	return &snapshot, nil
}

func (s *GenerationService) Get(ctx context.Context, id uuid.UUID) (*domain.GenerationJob, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *GenerationService) List(ctx context.Context, filter ports.ListFilter) ([]*domain.GenerationJob, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	return s.repo.List(ctx, filter)
}

func (s *GenerationService) Cancel(ctx context.Context, id uuid.UUID) (*domain.GenerationJob, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.State.Terminal() {
		return nil, domain.ErrRunAlreadyFinished
	}
	if !s.runner.Cancel(id) {
		// Not tracked (e.g. after a restart): finalize directly.
		job.State = domain.RunStateCanceled
		now := time.Now()
		job.FinishedAt = &now
		if err := s.repo.Update(ctx, job); err != nil {
			return nil, err
		}
	}
	return s.repo.GetByID(ctx, id)
}

func (s *GenerationService) run(ctx context.Context, job *domain.GenerationJob) {
	logger := log.WithFields(log.Fields{"job": job.Slug, "total": job.TotalImages, "batch": job.BatchSize})

	if err := os.MkdirAll(job.OutputDir, 0o755); err != nil {
		s.finish(job, domain.RunStateFailed, err)
		return
	}

	now := time.Now()
	job.State = domain.RunStateRunning
	job.StartedAt = &now
	if err := s.repo.Update(context.Background(), job); err != nil {
		logger.WithError(err).Error("persist running generation job")
	}
	logger.Info("generation started")

	batches := job.Batches()
	for i, size := range batches {
		if ctx.Err() != nil {
			s.finish(job, domain.RunStateCanceled, nil)
			return
		}

		seed := job.Seed
		if seed >= 0 {
			// Distinct but reproducible seed per batch.
			seed += int64(i)
		}
		images, err := s.diffusion.Generate(ctx, ports.Txt2ImgRequest{
			Prompt:         job.Prompt,
			NegativePrompt: job.NegativePrompt,
			BatchSize:      size,
			Steps:          job.Steps,
			GuidanceScale:  job.GuidanceScale,
			Seed:           seed,
			Width:          s.width,
			Height:         s.height,
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				s.finish(job, domain.RunStateCanceled, nil)
				return
			}
			s.finish(job, domain.RunStateFailed, err)
			return
		}

		for _, img := range images {
			name := job.ImageName(job.Produced)
			if err := os.WriteFile(filepath.Join(job.OutputDir, name), img, 0o644); err != nil {
				s.finish(job, domain.RunStateFailed, err)
				return
			}
			job.Produced++
		}

		if err := s.repo.Update(context.Background(), job); err != nil {
			logger.WithError(err).Error("persist generation progress")
		}
		logger.Infof("batch %d/%d done (%d/%d images)", i+1, len(batches), job.Produced, job.TotalImages)
	}

	s.finish(job, domain.RunStateSucceeded, nil)
}

func (s *GenerationService) finish(job *domain.GenerationJob, state domain.RunState, cause error) {
	job.State = state
	now := time.Now()
	job.FinishedAt = &now
	if cause != nil {
		job.Error = cause.Error()
	}
	if err := s.repo.Update(context.Background(), job); err != nil {
		log.WithError(err).Error("persist generation job state")
	}

	entry := log.WithFields(log.Fields{"job": job.Slug, "produced": job.Produced})
	switch state {
	case domain.RunStateSucceeded:
		entry.Info("generation finished")
	case domain.RunStateCanceled:
		entry.Info("generation canceled")
	default:
		entry.WithError(cause).Error("generation failed")
	}
}
