package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"vision-pipeline-service/internal/core/domain"
	"vision-pipeline-service/internal/core/ports/output"
)

var imageSuffixes = []string{".jpg", ".jpeg", ".png", ".bmp", ".webp"}

// DatasetService tracks hosted dataset exports and pulls them to local disk
// through the hub client.
type DatasetService struct {
	repo    ports.DatasetRepository
	runRepo ports.TrainingRunRepository
	hub     ports.HubClient
	runner  *Runner
	dataDir string
}

func NewDatasetService(repo ports.DatasetRepository, runRepo ports.TrainingRunRepository, hub ports.HubClient, runner *Runner, dataDir string) *DatasetService {
	return &DatasetService{
		repo:    repo,
		runRepo: runRepo,
		hub:     hub,
		runner:  runner,
		dataDir: dataDir,
	}
}

func (s *DatasetService) Create(ctx context.Context, name, workspace, project string, version int, format domain.ExportFormat) (*domain.Dataset, error) {
	if name == "" {
		return nil, domain.ErrInvalidDatasetName
	}
	if workspace == "" || project == "" || version <= 0 {
		return nil, domain.ErrInvalidHubRef
	}
	if format == "" {
		format = domain.ExportFormatYOLOv5
	}

	now := time.Now()
	ds := &domain.Dataset{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
		Name:      name,
		Slug:      generateSlug(name),
		Workspace: workspace,
		Project:   project,
		Version:   version,
		Format:    format,
		State:     domain.DatasetStatePending,
	}
	if err := s.repo.Create(ctx, ds); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, ds.ID)
}

func (s *DatasetService) Get(ctx context.Context, id uuid.UUID) (*domain.Dataset, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *DatasetService) List(ctx context.Context, filter ports.ListFilter) ([]*domain.Dataset, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	return s.repo.List(ctx, filter)
}

// Pull downloads and extracts the dataset export asynchronously. The dataset
// moves PENDING -> DOWNLOADING immediately and reaches READY or FAILED when
// the transfer finishes.
func (s *DatasetService) Pull(ctx context.Context, id uuid.UUID) (*domain.Dataset, error) {
	if s.hub == nil || !s.hub.IsAvailable() {
		return nil, domain.ErrHubNotAvailable
	}
	ds, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	// A crash can leave a dataset stuck in DOWNLOADING; only a pull the
	// runner still tracks counts as in progress, anything else restarts.
	if ds.State == domain.DatasetStateDownloading && s.runner.Tracking(ds.ID) {
		return ds, nil
	}

	ds.State = domain.DatasetStateDownloading
	ds.Error = ""
	if err := s.repo.Update(ctx, ds); err != nil {
		return nil, err
	}

	// The pull goroutine owns ds from here; hand the caller its own copy.
	snapshot := *ds
	s.runner.Go(ds.ID, func(runCtx context.Context) {
		s.pull(runCtx, ds)
	})
	return &snapshot, nil
}

func (s *DatasetService) pull(ctx context.Context, ds *domain.Dataset) {
	destDir := filepath.Join(s.dataDir, "datasets", fmt.Sprintf("%s-v%d", ds.Slug, ds.Version))

	logger := log.WithFields(log.Fields{"dataset": ds.Slug, "version": ds.Version})
	logger.Info("pulling dataset export")

	result, err := s.hub.DownloadExport(ctx, ports.ExportRequest{
		Workspace: ds.Workspace,
		Project:   ds.Project,
		Version:   ds.Version,
		Format:    string(ds.Format),
	}, destDir)
	if err != nil {
		s.fail(ds, err)
		return
	}

	ds.Location = result.Dir
	ds.SizeBytes = result.SizeBytes

	dataYAML, err := ReadDataYAML(filepath.Join(result.Dir, "data.yaml"))
	if err != nil {
		s.fail(ds, err)
		return
	}
	ds.Classes = dataYAML.Names

	count, err := countImages(result.Dir)
	if err != nil {
		s.fail(ds, err)
		return
	}
	ds.ImageCount = count

	ds.State = domain.DatasetStateReady
	if err := s.repo.Update(context.Background(), ds); err != nil {
		logger.WithError(err).Error("persist pulled dataset failed")
		return
	}
	logger.WithFields(log.Fields{"images": count, "classes": len(ds.Classes)}).Info("dataset ready")
}

func (s *DatasetService) fail(ds *domain.Dataset, cause error) {
	ds.State = domain.DatasetStateFailed
	ds.Error = cause.Error()
	if err := s.repo.Update(context.Background(), ds); err != nil {
		log.WithError(err).Error("persist failed dataset state")
	}
	log.WithField("dataset", ds.Slug).WithError(cause).Error("dataset pull failed")
}

func (s *DatasetService) Delete(ctx context.Context, id uuid.UUID) error {
	ds, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	refs, err := s.runRepo.CountByDataset(ctx, id)
	if err != nil {
		return err
	}
	if refs > 0 {
		return domain.ErrDatasetInUse
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if ds.Location != "" {
		if err := os.RemoveAll(ds.Location); err != nil {
			log.WithError(err).Warnf("remove dataset directory %s failed", ds.Location)
		}
	}
	return nil
}

// ReadDataYAML parses the data.yaml description file shipped inside a
// YOLO-format export. The file itself is consumed verbatim by the external
// training scripts.
func ReadDataYAML(path string) (*domain.DataYAML, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read data.yaml: %w", err)
	}
	var out domain.DataYAML
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parse data.yaml: %w", err)
	}
	return &out, nil
}

func countImages(root string) (int, error) {
	count := 0
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		for _, suffix := range imageSuffixes {
			if ext == suffix {
				count++
				break
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count images under %s: %w", root, err)
	}
	return count, nil
}
