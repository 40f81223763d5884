package services

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"vision-pipeline-service/internal/core/domain"
	"vision-pipeline-service/internal/testutil"
)

func writeTestImage(t *testing.T, path string) {
	t.Helper()
	img := imaging.New(32, 32, color.NRGBA{R: 180, G: 40, B: 40, A: 255})
	require.NoError(t, imaging.Save(img, path))
}

func TestArtifactService_ListGenerationArtifacts(t *testing.T) {
	genRepo := new(testutil.MockGenerationJobRepo)
	runRepo := new(testutil.MockTrainingRunRepo)

	dir := t.TempDir()
	writeTestImage(t, filepath.Join(dir, "scene-0000.png"))
	writeTestImage(t, filepath.Join(dir, "scene-0001.png"))

	job := &domain.GenerationJob{ID: uuid.New(), OutputDir: dir}
	genRepo.On("GetByID", mock.Anything, job.ID).Return(job, nil)

	svc := NewArtifactService(genRepo, runRepo)
	artifacts, err := svc.ListGenerationArtifacts(context.Background(), job.ID)
	require.NoError(t, err)
	require.Len(t, artifacts, 2)
	assert.Equal(t, "scene-0000.png", artifacts[0].Name)
	assert.Greater(t, artifacts[0].SizeBytes, int64(0))
}

func TestArtifactService_Preview(t *testing.T) {
	genRepo := new(testutil.MockGenerationJobRepo)
	runRepo := new(testutil.MockTrainingRunRepo)

	dir := t.TempDir()
	for _, name := range []string{"a.png", "b.png", "c.png", "d.png"} {
		writeTestImage(t, filepath.Join(dir, name))
	}

	job := &domain.GenerationJob{ID: uuid.New(), OutputDir: dir}
	genRepo.On("GetByID", mock.Anything, job.ID).Return(job, nil)

	svc := NewArtifactService(genRepo, runRepo)
	png, err := svc.Preview(context.Background(), job.ID)
	require.NoError(t, err)

	sheet, _, err := image.Decode(bytes.NewReader(png))
	require.NoError(t, err)
	// 4 images on a 3-wide grid: 3x160 wide, 2x160 tall.
	assert.Equal(t, 480, sheet.Bounds().Dx())
	assert.Equal(t, 320, sheet.Bounds().Dy())
}

func TestArtifactService_Preview_NoImages(t *testing.T) {
	genRepo := new(testutil.MockGenerationJobRepo)
	runRepo := new(testutil.MockTrainingRunRepo)

	job := &domain.GenerationJob{ID: uuid.New(), OutputDir: t.TempDir()}
	genRepo.On("GetByID", mock.Anything, job.ID).Return(job, nil)

	svc := NewArtifactService(genRepo, runRepo)
	_, err := svc.Preview(context.Background(), job.ID)
	assert.ErrorIs(t, err, domain.ErrNoPreview)
}
