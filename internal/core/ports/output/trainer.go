package ports

import (
	"context"

	"vision-pipeline-service/internal/core/domain"
)

// TrainResult reports where the external training script left its outputs.
type TrainResult struct {
	OutputDir   string
	WeightsPath string
}

// Trainer executes the external detector training script and blocks until it
// finishes or ctx is canceled. The script's flags are passed through from the
// spec unchanged; its exit code is the only success signal.
type Trainer interface {
	Kind() domain.RunnerKind
	Train(ctx context.Context, spec domain.TrainingSpec) (*TrainResult, error)
}
