package domain

import (
	"time"

	"github.com/google/uuid"
)

type Split string

const (
	SplitTrain Split = "train"
	SplitValid Split = "valid"
	SplitTest  Split = "test"
)

// UploadBatch pushes local images matching a suffix into a hub project, one
// file at a time with a fixed per-file retry budget.
type UploadBatch struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time

	Workspace string
	Project   string

	SourceDir string
	Suffix    string // e.g. ".png"
	Split     Split
	BatchName string // tag grouping the images on the hub
	Retries   int    // attempts per file

	Total    int
	Uploaded int
	Failed   int

	State RunState
	Error string

	StartedAt  *time.Time
	FinishedAt *time.Time
}
