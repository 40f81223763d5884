package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"vision-pipeline-service/internal/core/domain"
	"vision-pipeline-service/internal/core/ports/output"
)

type datasetRepo struct {
	pool *pgxpool.Pool
}

func NewDatasetRepository(pool *pgxpool.Pool) ports.DatasetRepository {
	return &datasetRepo{pool: pool}
}

func (r *datasetRepo) Create(ctx context.Context, ds *domain.Dataset) error {
	classesJSON, err := json.Marshal(ds.Classes)
	if err != nil {
		return fmt.Errorf("marshal classes: %w", err)
	}

	query := `
		INSERT INTO dataset
			(id, created_at, updated_at, name, slug,
			 workspace, project, version, format,
			 location, classes, image_count, size_bytes, state, error)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`
	_, err = r.pool.Exec(ctx, query,
		ds.ID, ds.CreatedAt, ds.UpdatedAt, ds.Name, ds.Slug,
		ds.Workspace, ds.Project, ds.Version, string(ds.Format),
		ds.Location, classesJSON, ds.ImageCount, ds.SizeBytes,
		string(ds.State), ds.Error,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrDatasetNameConflict
		}
		return fmt.Errorf("create dataset: %w", err)
	}
	return nil
}

func (r *datasetRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Dataset, error) {
	query := datasetSelect + ` WHERE id = $1`
	ds, err := scanDataset(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDatasetNotFound
		}
		return nil, fmt.Errorf("get dataset by id: %w", err)
	}
	return ds, nil
}

func (r *datasetRepo) GetBySlug(ctx context.Context, slug string) (*domain.Dataset, error) {
	query := datasetSelect + ` WHERE slug = $1`
	ds, err := scanDataset(r.pool.QueryRow(ctx, query, slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDatasetNotFound
		}
		return nil, fmt.Errorf("get dataset by slug: %w", err)
	}
	return ds, nil
}

func (r *datasetRepo) Update(ctx context.Context, ds *domain.Dataset) error {
	classesJSON, err := json.Marshal(ds.Classes)
	if err != nil {
		return fmt.Errorf("marshal classes: %w", err)
	}

	query := `
		UPDATE dataset
		SET name=$1, workspace=$2, project=$3, version=$4, format=$5,
			location=$6, classes=$7, image_count=$8, size_bytes=$9,
			state=$10, error=$11, updated_at=NOW()
		WHERE id=$12
	`
	result, err := r.pool.Exec(ctx, query,
		ds.Name, ds.Workspace, ds.Project, ds.Version, string(ds.Format),
		ds.Location, classesJSON, ds.ImageCount, ds.SizeBytes,
		string(ds.State), ds.Error, ds.ID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrDatasetNameConflict
		}
		return fmt.Errorf("update dataset: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrDatasetNotFound
	}
	return nil
}

func (r *datasetRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM dataset WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete dataset: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrDatasetNotFound
	}
	return nil
}

func (r *datasetRepo) List(ctx context.Context, filter ports.ListFilter) ([]*domain.Dataset, int, error) {
	conditions := []string{}
	args := []interface{}{}
	argPos := 1

	if filter.State != "" {
		conditions = append(conditions, fmt.Sprintf("state = $%d", argPos))
		args = append(args, filter.State)
		argPos++
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR project ILIKE $%d)", argPos, argPos))
		args = append(args, "%"+filter.Search+"%")
		argPos++
	}

	whereClause := "1=1"
	if len(conditions) > 0 {
		whereClause = strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM dataset WHERE %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count datasets: %w", err)
	}

	query := fmt.Sprintf(`%s
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, datasetSelect, whereClause, argPos, argPos+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
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
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate dataset rows: %w", err)
	}

	return datasets, total, nil
}

const datasetSelect = `
	SELECT id, created_at, updated_at, name, slug,
		   workspace, project, version, format,
		   location, classes, image_count, size_bytes, state, error
	FROM dataset
`

func scanDataset(row pgx.Row) (*domain.Dataset, error) {
	ds := &domain.Dataset{}
	var classesJSON []byte

	err := row.Scan(
		&ds.ID, &ds.CreatedAt, &ds.UpdatedAt, &ds.Name, &ds.Slug,
		&ds.Workspace, &ds.Project, &ds.Version, &ds.Format,
		&ds.Location, &classesJSON, &ds.ImageCount, &ds.SizeBytes,
		&ds.State, &ds.Error,
	)
	if err != nil {
		return nil, err
	}

	if len(classesJSON) > 0 {
		if err := json.Unmarshal(classesJSON, &ds.Classes); err != nil {
			return nil, fmt.Errorf("unmarshal classes: %w", err)
		}
	}
	return ds, nil
}

var _ ports.DatasetRepository = (*datasetRepo)(nil)
