package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"vision-pipeline-service/internal/core/domain"
	"vision-pipeline-service/internal/core/ports/output"
)

func (s *Store) Datasets() ports.DatasetRepository {
	return &datasetStore{db: s.db}
}

type datasetStore struct {
	db *sql.DB
}

func (r *datasetStore) Create(ctx context.Context, ds *domain.Dataset) error {
	classesJSON, err := json.Marshal(ds.Classes)
	if err != nil {
		return fmt.Errorf("marshal classes: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO dataset
  (id, created_at, updated_at, name, slug, workspace, project, version, format,
   location, classes, image_count, size_bytes, state, error)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`,
		ds.ID.String(), ds.CreatedAt, ds.UpdatedAt, ds.Name, ds.Slug,
		ds.Workspace, ds.Project, ds.Version, string(ds.Format),
		ds.Location, string(classesJSON), ds.ImageCount, ds.SizeBytes,
		string(ds.State), ds.Error,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDatasetNameConflict
		}
		return fmt.Errorf("create dataset: %w", err)
	}
	return nil
}

func (r *datasetStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Dataset, error) {
	row := r.db.QueryRowContext(ctx, datasetSelect+` WHERE id=?;`, id.String())
	ds, err := scanDataset(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrDatasetNotFound
		}
		return nil, fmt.Errorf("get dataset by id: %w", err)
	}
	return ds, nil
}

func (r *datasetStore) GetBySlug(ctx context.Context, slug string) (*domain.Dataset, error) {
	row := r.db.QueryRowContext(ctx, datasetSelect+` WHERE slug=?;`, slug)
	ds, err := scanDataset(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrDatasetNotFound
		}
		return nil, fmt.Errorf("get dataset by slug: %w", err)
	}
	return ds, nil
}

func (r *datasetStore) Update(ctx context.Context, ds *domain.Dataset) error {
	classesJSON, err := json.Marshal(ds.Classes)
	if err != nil {
		return fmt.Errorf("marshal classes: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
UPDATE dataset
SET name=?, workspace=?, project=?, version=?, format=?,
    location=?, classes=?, image_count=?, size_bytes=?,
    state=?, error=?, updated_at=CURRENT_TIMESTAMP
WHERE id=?;
`,
		ds.Name, ds.Workspace, ds.Project, ds.Version, string(ds.Format),
		ds.Location, string(classesJSON), ds.ImageCount, ds.SizeBytes,
		string(ds.State), ds.Error, ds.ID.String(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDatasetNameConflict
		}
		return fmt.Errorf("update dataset: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return domain.ErrDatasetNotFound
	}
	return nil
}

func (r *datasetStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM dataset WHERE id=?;`, id.String())
	if err != nil {
		return fmt.Errorf("delete dataset: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return domain.ErrDatasetNotFound
	}
	return nil
}

func (r *datasetStore) List(ctx context.Context, filter ports.ListFilter) ([]*domain.Dataset, int, error) {
	where, args := listWhere(filter, "name", "project")

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM dataset WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count datasets: %w", err)
	}

	query := datasetSelect + ` WHERE ` + where + ` ORDER BY created_at DESC LIMIT ? OFFSET ?;`
	rows, err := r.db.QueryContext(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list datasets: %w", err)
	}
	defer rows.Close()

	var datasets []*domain.Dataset
	for rows.Next() {
		ds, err := scanDataset(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan dataset row: %w", err)
		}
		datasets = append(datasets, ds)
	}
	return datasets, total, rows.Err()
}

const datasetSelect = `
SELECT id, created_at, updated_at, name, slug, workspace, project, version, format,
       location, classes, image_count, size_bytes, state, error
FROM dataset
`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDataset(row rowScanner) (*domain.Dataset, error) {
	ds := &domain.Dataset{}
	var id, classesJSON string

	err := row.Scan(
		&id, &ds.CreatedAt, &ds.UpdatedAt, &ds.Name, &ds.Slug,
		&ds.Workspace, &ds.Project, &ds.Version, &ds.Format,
		&ds.Location, &classesJSON, &ds.ImageCount, &ds.SizeBytes,
		&ds.State, &ds.Error,
	)
	if err != nil {
		return nil, err
	}
	if ds.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse dataset id: %w", err)
	}
	if classesJSON != "" {
		if err := json.Unmarshal([]byte(classesJSON), &ds.Classes); err != nil {
			return nil, fmt.Errorf("unmarshal classes: %w", err)
		}
	}
	return ds, nil
}

// listWhere builds the shared state/search filter clause. searchCols are ORed
// together with a LIKE on each.
func listWhere(filter ports.ListFilter, searchCols ...string) (string, []interface{}) {
	where := "1=1"
	args := []interface{}{}

	if filter.State != "" {
		where += " AND state=?"
		args = append(args, filter.State)
	}
	if filter.Search != "" && len(searchCols) > 0 {
		clause := ""
		for i, col := range searchCols {
			if i > 0 {
				clause += " OR "
			}
			clause += col + " LIKE ?"
			args = append(args, "%"+filter.Search+"%")
		}
		where += " AND (" + clause + ")"
	}
	return where, args
}

var _ ports.DatasetRepository = (*datasetStore)(nil)
