package dto

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"vision-pipeline-service/internal/core/domain"
)

type CreateDatasetRequest struct {
	Name      string `json:"name" binding:"required,max=100"`
	Workspace string `json:"workspace" binding:"required"`
	Project   string `json:"project" binding:"required"`
	Version   int    `json:"version" binding:"required"`
	Format    string `json:"format"`
}

type DatasetResponse struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt string    `json:"created_at"`
	UpdatedAt string    `json:"updated_at"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Workspace string    `json:"workspace"`
	Project   string    `json:"project"`
	Version   int       `json:"version"`
	Format    string    `json:"format"`

	Location   string   `json:"location,omitempty"`
	Classes    []string `json:"classes,omitempty"`
	ImageCount int      `json:"image_count"`
	SizeBytes  int64    `json:"size_bytes"`
	Size       string   `json:"size,omitempty"`

	State string `json:"state"`
	Error string `json:"error,omitempty"`
}

type ListDatasetsResponse struct {
	Items      []DatasetResponse `json:"items"`
	Total      int               `json:"total"`
	PageSize   int               `json:"page_size"`
	NextOffset int               `json:"next_offset"`
}

func ToDatasetResponse(ds *domain.Dataset) DatasetResponse {
	resp := DatasetResponse{
		ID:         ds.ID,
		CreatedAt:  ds.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  ds.UpdatedAt.Format(time.RFC3339),
		Name:       ds.Name,
		Slug:       ds.Slug,
		Workspace:  ds.Workspace,
		Project:    ds.Project,
		Version:    ds.Version,
		Format:     string(ds.Format),
		Location:   ds.Location,
		Classes:    ds.Classes,
		ImageCount: ds.ImageCount,
		SizeBytes:  ds.SizeBytes,
		State:      string(ds.State),
		Error:      ds.Error,
	}
	if ds.SizeBytes > 0 {
		resp.Size = humanize.IBytes(uint64(ds.SizeBytes))
	}
	return resp
}
