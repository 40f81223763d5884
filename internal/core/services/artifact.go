package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"vision-pipeline-service/internal/core/domain"
	"vision-pipeline-service/internal/core/ports/output"
)

const (
	previewCols = 3
	previewRows = 3
	previewCell = 160
)

// Artifact is one file produced by a run or job.
type Artifact struct {
	Name      string
	Path      string
	SizeBytes int64
	ModTime   time.Time
}

// ArtifactService exposes the files a job or run left behind, plus a small
// thumbnail contact sheet for eyeballing generated images.
type ArtifactService struct {
	generationRepo ports.GenerationJobRepository
	trainingRepo   ports.TrainingRunRepository
}

func NewArtifactService(generationRepo ports.GenerationJobRepository, trainingRepo ports.TrainingRunRepository) *ArtifactService {
	return &ArtifactService{generationRepo: generationRepo, trainingRepo: trainingRepo}
}

func (s *ArtifactService) ListGenerationArtifacts(ctx context.Context, jobID uuid.UUID) ([]Artifact, error) {
	job, err := s.generationRepo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return listDir(job.OutputDir)
}

func (s *ArtifactService) ListTrainingArtifacts(ctx context.Context, runID uuid.UUID) ([]Artifact, error) {
	run, err := s.trainingRepo.GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}
	return listDir(run.OutputDir)
}

// Preview renders up to a 3x3 grid of thumbnails from the job's generated
// images, PNG encoded.
func (s *ArtifactService) Preview(ctx context.Context, jobID uuid.UUID) ([]byte, error) {
	job, err := s.generationRepo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	artifacts, err := listDir(job.OutputDir)
	if err != nil {
		return nil, err
	}
	var images []string
	for _, a := range artifacts {
		if isImageFile(a.Name) {
			images = append(images, a.Path)
		}
		if len(images) == previewCols*previewRows {
			break
		}
	}
	if len(images) == 0 {
		return nil, domain.ErrNoPreview
	}

	cols := previewCols
	rows := (len(images) + cols - 1) / cols
	if len(images) < cols {
		cols = len(images)
	}
	sheet := imaging.New(cols*previewCell, rows*previewCell, image.Transparent)
	for i, path := range images {
		img, err := imaging.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open image %s: %w", path, err)
		}
		thumb := imaging.Fill(img, previewCell, previewCell, imaging.Center, imaging.Lanczos)
		x := (i % previewCols) * previewCell
		y := (i / previewCols) * previewCell
		sheet = imaging.Paste(sheet, thumb, image.Pt(x, y))
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, sheet, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode preview: %w", err)
	}
	return buf.Bytes(), nil
}

func listDir(dir string) ([]Artifact, error) {
	if dir == "" {
		return nil, domain.ErrArtifactNotFound
	}
	var out []Artifact
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = d.Name()
		}
		out = append(out, Artifact{
			Name:      rel,
			Path:      path,
			SizeBytes: info.Size(),
			ModTime:   info.ModTime(),
		})
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrArtifactNotFound
		}
		return nil, fmt.Errorf("list artifacts under %s: %w", dir, err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func isImageFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, suffix := range imageSuffixes {
		if ext == suffix {
			return true
		}
	}
	return false
}
