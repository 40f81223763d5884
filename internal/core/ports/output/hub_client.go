package ports

import "context"

// ExportRequest identifies a versioned dataset export on the hub.
type ExportRequest struct {
	Workspace string
	Project   string
	Version   int
	Format    string
}

// ExportResult describes a pulled export on local disk.
type ExportResult struct {
	Dir       string // directory the archive was extracted into
	SizeBytes int64  // size of the downloaded archive
}

// UploadRequest is a single-image upload into a hub project.
type UploadRequest struct {
	Workspace string
	Project   string
	FilePath  string
	Split     string
	BatchName string
}

// HubClient talks to the dataset-hosting service. Authentication, dataset
// packaging and the wire protocol are owned by the hub; this interface covers
// only the operations the pipeline needs.
type HubClient interface {
	IsAvailable() bool

	// DownloadExport fetches the export archive into destDir and extracts it.
	DownloadExport(ctx context.Context, req ExportRequest, destDir string) (*ExportResult, error)

	// Upload pushes one local image. A failed attempt is retried by the
	// caller; the client performs exactly one HTTP exchange per call.
	Upload(ctx context.Context, req UploadRequest) error
}
