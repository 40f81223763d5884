package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"vision-pipeline-service/internal/adapters/primary/http/dto"
	"vision-pipeline-service/internal/core/domain"
	"vision-pipeline-service/internal/core/services"
	"vision-pipeline-service/internal/testutil"
)

type handlerMocks struct {
	datasetRepo *testutil.MockDatasetRepo
	runRepo     *testutil.MockTrainingRunRepo
	jobRepo     *testutil.MockGenerationJobRepo
	batchRepo   *testutil.MockUploadBatchRepo
	hub         *testutil.MockHubClient
	diffusion   *testutil.MockDiffusionClient
}

func newTestRouter(t *testing.T) (*gin.Engine, *handlerMocks) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m := &handlerMocks{
		datasetRepo: new(testutil.MockDatasetRepo),
		runRepo:     new(testutil.MockTrainingRunRepo),
		jobRepo:     new(testutil.MockGenerationJobRepo),
		batchRepo:   new(testutil.MockUploadBatchRepo),
		hub:         new(testutil.MockHubClient),
		diffusion:   new(testutil.MockDiffusionClient),
	}

	runner := services.NewRunner(1)
	t.Cleanup(func() { _ = runner.Shutdown(context.Background()) })

	dataDir := t.TempDir()
	datasetSvc := services.NewDatasetService(m.datasetRepo, m.runRepo, m.hub, runner, dataDir)
	trainingSvc := services.NewTrainingService(m.runRepo, m.datasetRepo, nil, runner, dataDir)
	generationSvc := services.NewGenerationService(m.jobRepo, m.diffusion, runner, dataDir, 512, 512)
	uploadSvc := services.NewUploadService(m.batchRepo, m.hub, runner)
	artifactSvc := services.NewArtifactService(m.jobRepo, m.runRepo)

	h := New(datasetSvc, trainingSvc, generationSvc, uploadSvc, artifactSvc)
	r := gin.New()
	h.RegisterRoutes(r.Group("/api/v1/vision-pipeline"))
	return r, m
}

func performRequest(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateDataset(t *testing.T) {
	r, m := newTestRouter(t)

	m.datasetRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Dataset")).Return(nil)
	m.datasetRepo.On("GetByID", mock.Anything, mock.Anything).
		Return(&domain.Dataset{ID: uuid.New(), Name: "Widgets", Slug: "widgets", State: domain.DatasetStatePending}, nil)

	w := performRequest(r, http.MethodPost, "/api/v1/vision-pipeline/datasets", dto.CreateDatasetRequest{
		Name:      "Widgets",
		Workspace: "acme",
		Project:   "widgets",
		Version:   3,
	})

	require.Equal(t, http.StatusCreated, w.Code)
	var resp dto.DatasetResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Widgets", resp.Name)
	assert.Equal(t, "PENDING", resp.State)
}

func TestCreateDataset_MissingFields(t *testing.T) {
	r, _ := newTestRouter(t)

	w := performRequest(r, http.MethodPost, "/api/v1/vision-pipeline/datasets", gin.H{"name": "Widgets"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetDataset_NotFound(t *testing.T) {
	r, m := newTestRouter(t)

	m.datasetRepo.On("GetByID", mock.Anything, mock.Anything).Return(nil, domain.ErrDatasetNotFound)

	w := performRequest(r, http.MethodGet, "/api/v1/vision-pipeline/datasets/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetDataset_InvalidID(t *testing.T) {
	r, _ := newTestRouter(t)

	w := performRequest(r, http.MethodGet, "/api/v1/vision-pipeline/datasets/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPullDataset_HubUnavailable(t *testing.T) {
	r, m := newTestRouter(t)

	m.hub.On("IsAvailable").Return(false)

	w := performRequest(r, http.MethodPost, "/api/v1/vision-pipeline/datasets/"+uuid.NewString()+"/pull", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestDeleteDataset_InUse(t *testing.T) {
	r, m := newTestRouter(t)

	id := uuid.New()
	m.datasetRepo.On("GetByID", mock.Anything, id).Return(&domain.Dataset{ID: id}, nil)
	m.runRepo.On("CountByDataset", mock.Anything, id).Return(2, nil)

	w := performRequest(r, http.MethodDelete, "/api/v1/vision-pipeline/datasets/"+id.String(), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestListDatasets(t *testing.T) {
	r, m := newTestRouter(t)

	m.datasetRepo.On("List", mock.Anything, mock.Anything).
		Return([]*domain.Dataset{
			{ID: uuid.New(), Name: "Widgets", State: domain.DatasetStateReady, SizeBytes: 2048},
		}, 1, nil)

	w := performRequest(r, http.MethodGet, "/api/v1/vision-pipeline/datasets?limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.ListDatasetsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, "2.0 KiB", resp.Items[0].Size)
}

func TestCreateTrainingRun_UnknownRunner(t *testing.T) {
	r, _ := newTestRouter(t)

	w := performRequest(r, http.MethodPost, "/api/v1/vision-pipeline/training_runs", dto.CreateTrainingRunRequest{
		DatasetID: uuid.New(),
		Runner:    "mainframe",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancelTrainingRun_AlreadyFinished(t *testing.T) {
	r, m := newTestRouter(t)

	id := uuid.New()
	m.runRepo.On("GetByID", mock.Anything, id).
		Return(&domain.TrainingRun{ID: id, State: domain.RunStateSucceeded}, nil)

	w := performRequest(r, http.MethodPost, "/api/v1/vision-pipeline/training_runs/"+id.String()+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCreateGenerationJob_DiffusionUnavailable(t *testing.T) {
	r, m := newTestRouter(t)

	m.diffusion.On("IsAvailable").Return(false)

	w := performRequest(r, http.MethodPost, "/api/v1/vision-pipeline/generation_jobs", dto.CreateGenerationJobRequest{
		Prompt:      "a widget",
		TotalImages: 5,
	})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCreateGenerationJob_OmittedSeedMeansRandom(t *testing.T) {
	r, m := newTestRouter(t)

	m.diffusion.On("IsAvailable").Return(true)
	m.diffusion.On("Generate", mock.Anything, mock.Anything).Return([][]byte{[]byte("png")}, nil)
	m.jobRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.GenerationJob")).Return(nil)
	m.jobRepo.On("Update", mock.Anything, mock.AnythingOfType("*domain.GenerationJob")).Return(nil)

	w := performRequest(r, http.MethodPost, "/api/v1/vision-pipeline/generation_jobs", dto.CreateGenerationJobRequest{
		Prompt:      "a widget",
		TotalImages: 1,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp dto.GenerationJobResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(-1), resp.Seed)
}

func TestCreateUploadBatch_NoFiles(t *testing.T) {
	r, m := newTestRouter(t)

	m.hub.On("IsAvailable").Return(true)

	w := performRequest(r, http.MethodPost, "/api/v1/vision-pipeline/upload_batches", dto.CreateUploadBatchRequest{
		Workspace: "acme",
		Project:   "widgets",
		SourceDir: t.TempDir(),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
