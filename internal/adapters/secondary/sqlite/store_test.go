package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vision-pipeline-service/internal/core/domain"
	"vision-pipeline-service/internal/core/ports/output"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "pipeline.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testDataset(name string) *domain.Dataset {
	now := time.Now().UTC().Truncate(time.Second)
	return &domain.Dataset{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
		Name:      name,
		Slug:      name,
		Workspace: "acme",
		Project:   "widgets",
		Version:   3,
		Format:    domain.ExportFormatYOLOv5,
		State:     domain.DatasetStatePending,
	}
}

func TestDatasetStore_CreateAndGet(t *testing.T) {
	store := openTestStore(t)
	repo := store.Datasets()
	ctx := context.Background()

	ds := testDataset("widgets")
	ds.Classes = []string{"widget", "gadget"}
	require.NoError(t, repo.Create(ctx, ds))

	got, err := repo.GetByID(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, ds.Name, got.Name)
	assert.Equal(t, ds.Workspace, got.Workspace)
	assert.Equal(t, 3, got.Version)
	assert.Equal(t, []string{"widget", "gadget"}, got.Classes)
	assert.Equal(t, domain.DatasetStatePending, got.State)

	bySlug, err := repo.GetBySlug(ctx, "widgets")
	require.NoError(t, err)
	assert.Equal(t, ds.ID, bySlug.ID)
}

func TestDatasetStore_NameConflict(t *testing.T) {
	store := openTestStore(t)
	repo := store.Datasets()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, testDataset("widgets")))
	err := repo.Create(ctx, testDataset("widgets"))
	assert.ErrorIs(t, err, domain.ErrDatasetNameConflict)
}

func TestDatasetStore_NotFound(t *testing.T) {
	store := openTestStore(t)
	repo := store.Datasets()
	ctx := context.Background()

	_, err := repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrDatasetNotFound)

	err = repo.Update(ctx, testDataset("ghost"))
	assert.ErrorIs(t, err, domain.ErrDatasetNotFound)

	err = repo.Delete(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrDatasetNotFound)
}

func TestDatasetStore_UpdateAfterPull(t *testing.T) {
	store := openTestStore(t)
	repo := store.Datasets()
	ctx := context.Background()

	ds := testDataset("widgets")
	require.NoError(t, repo.Create(ctx, ds))

	ds.State = domain.DatasetStateReady
	ds.Location = "/data/datasets/widgets-v3"
	ds.Classes = []string{"widget"}
	ds.ImageCount = 120
	ds.SizeBytes = 1 << 20
	require.NoError(t, repo.Update(ctx, ds))

	got, err := repo.GetByID(ctx, ds.ID)
	require.NoError(t, err)
	assert.True(t, got.Ready())
	assert.Equal(t, 120, got.ImageCount)
	assert.Equal(t, int64(1<<20), got.SizeBytes)
}

func TestDatasetStore_ListFilter(t *testing.T) {
	store := openTestStore(t)
	repo := store.Datasets()
	ctx := context.Background()

	ready := testDataset("ready-set")
	ready.State = domain.DatasetStateReady
	require.NoError(t, repo.Create(ctx, ready))
	require.NoError(t, repo.Create(ctx, testDataset("pending-set")))

	items, total, err := repo.List(ctx, ports.ListFilter{State: "READY", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, "ready-set", items[0].Name)

	items, total, err = repo.List(ctx, ports.ListFilter{Search: "pending", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, "pending-set", items[0].Name)
}

func TestTrainingRunStore_Roundtrip(t *testing.T) {
	store := openTestStore(t)
	repo := store.TrainingRuns()
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	run := &domain.TrainingRun{
		ID:          uuid.New(),
		CreatedAt:   now,
		UpdatedAt:   now,
		DatasetID:   uuid.New(),
		Name:        "widgets-finetune",
		BaseWeights: "yolov5s.pt",
		ImageSize:   640,
		BatchSize:   16,
		Epochs:      100,
		Runner:      domain.RunnerLocal,
		State:       domain.RunStateQueued,
	}
	require.NoError(t, repo.Create(ctx, run))

	started := now.Add(time.Second)
	run.State = domain.RunStateRunning
	run.StartedAt = &started
	require.NoError(t, repo.Update(ctx, run))

	got, err := repo.GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStateRunning, got.State)
	require.NotNil(t, got.StartedAt)
	assert.Nil(t, got.FinishedAt)

	count, err := repo.CountByDataset(ctx, run.DatasetID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = repo.CountByDataset(ctx, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestGenerationJobStore_Roundtrip(t *testing.T) {
	store := openTestStore(t)
	repo := store.GenerationJobs()
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	job := &domain.GenerationJob{
		ID:            uuid.New(),
		CreatedAt:     now,
		UpdatedAt:     now,
		Name:          "scenes",
		Slug:          "scenes",
		Prompt:        "a widget on a conveyor belt",
		TotalImages:   10,
		BatchSize:     4,
		Steps:         30,
		GuidanceScale: 7.5,
		Seed:          -1,
		State:         domain.RunStateQueued,
	}
	require.NoError(t, repo.Create(ctx, job))

	job.Produced = 10
	job.State = domain.RunStateSucceeded
	finished := now.Add(time.Minute)
	job.FinishedAt = &finished
	require.NoError(t, repo.Update(ctx, job))

	got, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Produced)
	assert.Equal(t, domain.RunStateSucceeded, got.State)
	assert.Equal(t, int64(-1), got.Seed)
	assert.Equal(t, 7.5, got.GuidanceScale)
}

func TestUploadBatchStore_Roundtrip(t *testing.T) {
	store := openTestStore(t)
	repo := store.UploadBatches()
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	batch := &domain.UploadBatch{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
		Workspace: "acme",
		Project:   "widgets",
		SourceDir: "/data/generated/scenes",
		Suffix:    ".png",
		Split:     domain.SplitTrain,
		BatchName: "synthetic-2026-08-30",
		Retries:   3,
		Total:     10,
		State:     domain.RunStateQueued,
	}
	require.NoError(t, repo.Create(ctx, batch))

	batch.Uploaded = 9
	batch.Failed = 1
	batch.State = domain.RunStateFailed
	batch.Error = "1 of 10 uploads failed"
	require.NoError(t, repo.Update(ctx, batch))

	got, err := repo.GetByID(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, got.Uploaded)
	assert.Equal(t, 1, got.Failed)
	assert.Equal(t, domain.SplitTrain, got.Split)
	assert.Equal(t, "1 of 10 uploads failed", got.Error)
}
