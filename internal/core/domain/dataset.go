package domain

import (
	"time"

	"github.com/google/uuid"
)

type DatasetState string

const (
	DatasetStatePending     DatasetState = "PENDING"
	DatasetStateDownloading DatasetState = "DOWNLOADING"
	DatasetStateReady       DatasetState = "READY"
	DatasetStateFailed      DatasetState = "FAILED"
)

// ExportFormat is the dataset export layout requested from the hub. The hub
// produces the archive; we only pass the format name through.
type ExportFormat string

const (
	ExportFormatYOLOv5 ExportFormat = "yolov5pytorch"
	ExportFormatYOLOv7 ExportFormat = "yolov7pytorch"
	ExportFormatCOCO   ExportFormat = "coco"
)

// Dataset is a versioned export of an annotated dataset hosted on the hub,
// optionally materialized into a local directory for training.
type Dataset struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time

	Name string
	Slug string

	// Hub coordinates: workspace/project at a pinned version.
	Workspace string
	Project   string
	Version   int
	Format    ExportFormat

	// Filled in after a successful pull.
	Location   string
	Classes    []string
	ImageCount int
	SizeBytes  int64

	State DatasetState
	Error string
}

// Ready reports whether the dataset has been pulled and can feed a training run.
func (d *Dataset) Ready() bool {
	return d.State == DatasetStateReady && d.Location != ""
}

// DataYAML mirrors the data.yaml file shipped inside YOLO-format exports.
// The file is consumed verbatim by the external training scripts; we parse it
// only to record class names and counts.
type DataYAML struct {
	Train string   `yaml:"train"`
	Val   string   `yaml:"val"`
	Test  string   `yaml:"test,omitempty"`
	NC    int      `yaml:"nc"`
	Names []string `yaml:"names"`
}
