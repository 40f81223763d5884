package services

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"vision-pipeline-service/internal/core/domain"
	"vision-pipeline-service/internal/core/ports/output"
)

const defaultUploadRetries = 3

// UploadService pushes local images into a hub project one file at a time,
// each with a fixed retry budget. There is no resume: a batch that failed is
// inspected and re-created.
type UploadService struct {
	repo   ports.UploadBatchRepository
	hub    ports.HubClient
	runner *Runner
}

func NewUploadService(repo ports.UploadBatchRepository, hub ports.HubClient, runner *Runner) *UploadService {
	return &UploadService{repo: repo, hub: hub, runner: runner}
}

type UploadParams struct {
	Workspace string
	Project   string
	SourceDir string
	Suffix    string
	Split     domain.Split
	BatchName string
	Retries   int
}

func (s *UploadService) Create(ctx context.Context, p UploadParams) (*domain.UploadBatch, error) {
	if s.hub == nil || !s.hub.IsAvailable() {
		return nil, domain.ErrHubNotAvailable
	}
	if p.Workspace == "" || p.Project == "" {
		return nil, domain.ErrInvalidHubRef
	}
	if p.SourceDir == "" {
		return nil, domain.ErrInvalidSourceDir
	}
	if p.Suffix == "" {
		p.Suffix = ".png"
	}
	if p.Split == "" {
		p.Split = domain.SplitTrain
	}
	switch p.Split {
	case domain.SplitTrain, domain.SplitValid, domain.SplitTest:
	default:
		return nil, domain.ErrInvalidSplit
	}
	if p.Retries <= 0 {
		p.Retries = defaultUploadRetries
	}
	if p.BatchName == "" {
		p.BatchName = "synthetic-" + time.Now().Format("2006-01-02")
	}

	files, err := matchFiles(p.SourceDir, p.Suffix)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, domain.ErrNoFilesMatched
	}

	now := time.Now()
	batch := &domain.UploadBatch{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
		Workspace: p.Workspace,
		Project:   p.Project,
		SourceDir: p.SourceDir,
		Suffix:    p.Suffix,
		Split:     p.Split,
		BatchName: p.BatchName,
		Retries:   p.Retries,
		Total:     len(files),
		State:     domain.RunStateQueued,
	}
	if err := s.repo.Create(ctx, batch); err != nil {
		return nil, err
	}

	// The run goroutine owns batch from here; hand the caller its own copy.
	snapshot := *batch
	s.runner.Go(batch.ID, func(runCtx context.Context) {
		s.run(runCtx, batch, files)
	})
	return &snapshot, nil
}

func (s *UploadService) Get(ctx context.Context, id uuid.UUID) (*domain.UploadBatch, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UploadService) List(ctx context.Context, filter ports.ListFilter) ([]*domain.UploadBatch, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	return s.repo.List(ctx, filter)
}

func (s *UploadService) run(ctx context.Context, batch *domain.UploadBatch, files []string) {
	logger := log.WithFields(log.Fields{
		"project": batch.Project,
		"batch":   batch.BatchName,
		"files":   len(files),
	})

	now := time.Now()
	batch.State = domain.RunStateRunning
	batch.StartedAt = &now
	if err := s.repo.Update(context.Background(), batch); err != nil {
		logger.WithError(err).Error("persist running upload batch")
	}
	logger.Info("upload started")

	for i, file := range files {
		if ctx.Err() != nil {
			s.finish(batch, domain.RunStateCanceled, nil)
			return
		}
		if err := s.uploadOne(ctx, batch, file); err != nil {
			batch.Failed++
			logger.WithError(err).Warnf("upload %s failed after %d attempts", filepath.Base(file), batch.Retries)
		} else {
			batch.Uploaded++
		}
		logger.Infof("uploaded %d/%d", i+1, batch.Total)
		if err := s.repo.Update(context.Background(), batch); err != nil {
			logger.WithError(err).Error("persist upload progress")
		}
	}

	if batch.Failed > 0 {
		s.finish(batch, domain.RunStateFailed, fmt.Errorf("%d of %d uploads failed", batch.Failed, batch.Total))
		return
	}
	s.finish(batch, domain.RunStateSucceeded, nil)
}

// uploadOne tries a single file up to the batch's fixed retry budget.
func (s *UploadService) uploadOne(ctx context.Context, batch *domain.UploadBatch, file string) error {
	req := ports.UploadRequest{
		Workspace: batch.Workspace,
		Project:   batch.Project,
		FilePath:  file,
		Split:     string(batch.Split),
		BatchName: batch.BatchName,
	}
	var lastErr error
	for attempt := 1; attempt <= batch.Retries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if lastErr = s.hub.Upload(ctx, req); lastErr == nil {
			return nil
		}
	}
	return lastErr
}

func (s *UploadService) finish(batch *domain.UploadBatch, state domain.RunState, cause error) {
	batch.State = state
	now := time.Now()
	batch.FinishedAt = &now
	if cause != nil {
		batch.Error = cause.Error()
	}
	if err := s.repo.Update(context.Background(), batch); err != nil {
		log.WithError(err).Error("persist upload batch state")
	}

	entry := log.WithFields(log.Fields{"batch": batch.BatchName, "uploaded": batch.Uploaded, "failed": batch.Failed})
	switch state {
	case domain.RunStateSucceeded:
		entry.Info("upload finished")
	case domain.RunStateCanceled:
		entry.Info("upload canceled")
	default:
		entry.WithError(cause).Error("upload finished with failures")
	}
}

func matchFiles(dir, suffix string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+suffix))
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", dir, err)
	}
	return matches, nil
}
