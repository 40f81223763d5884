package domain

import (
	"time"

	"github.com/google/uuid"
)

type RunState string

const (
	RunStateQueued    RunState = "QUEUED"
	RunStateRunning   RunState = "RUNNING"
	RunStateSucceeded RunState = "SUCCEEDED"
	RunStateFailed    RunState = "FAILED"
	RunStateCanceled  RunState = "CANCELED"
)

// Terminal reports whether the state can no longer change.
func (s RunState) Terminal() bool {
	switch s {
	case RunStateSucceeded, RunStateFailed, RunStateCanceled:
		return true
	}
	return false
}

type RunnerKind string

const (
	RunnerLocal      RunnerKind = "local"
	RunnerKubernetes RunnerKind = "kubernetes"
)

// TrainingRun is one fine-tuning invocation of the external detector training
// script against a pulled dataset. All hyperparameters are passed through to
// the script unchanged.
type TrainingRun struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time

	DatasetID uuid.UUID
	Name      string

	// Pass-through training flags.
	BaseWeights string // e.g. yolov5s.pt
	ImageSize   int
	BatchSize   int
	Epochs      int
	Device      string // "0", "cpu", ...

	Runner RunnerKind
	State  RunState
	Error  string

	OutputDir   string
	WeightsPath string // best.pt produced by the script, empty until success

	StartedAt  *time.Time
	FinishedAt *time.Time
}

// TrainingSpec is the resolved command description handed to a trainer.
type TrainingSpec struct {
	RunID       uuid.UUID
	DataYAML    string // path to the export's data.yaml
	BaseWeights string
	ImageSize   int
	BatchSize   int
	Epochs      int
	Device      string
	OutputDir   string
	RunName     string
}
