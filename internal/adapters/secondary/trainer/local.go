package trainer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"path/filepath"
	"strconv"

	log "github.com/sirupsen/logrus"

	"vision-pipeline-service/internal/config"
	"vision-pipeline-service/internal/core/domain"
	"vision-pipeline-service/internal/core/ports/output"
)

// localTrainer shells out to the detector repo's train.py on the host. It is
// the default runner for single-machine deployments and for the CLI.
type localTrainer struct {
	python    string
	scriptDir string
}

func NewLocalTrainer(cfg *config.TrainerConfig) ports.Trainer {
	python := cfg.Python
	if python == "" {
		python = "python3"
	}
	return &localTrainer{
		python:    python,
		scriptDir: cfg.ScriptDir,
	}
}

func (t *localTrainer) Kind() domain.RunnerKind {
	return domain.RunnerLocal
}

func (t *localTrainer) Train(ctx context.Context, spec domain.TrainingSpec) (*ports.TrainResult, error) {
	args := []string{
		filepath.Join(t.scriptDir, "train.py"),
		"--img", strconv.Itoa(spec.ImageSize),
		"--batch", strconv.Itoa(spec.BatchSize),
		"--epochs", strconv.Itoa(spec.Epochs),
		"--data", spec.DataYAML,
		"--weights", spec.BaseWeights,
		"--project", spec.OutputDir,
		"--name", spec.RunName,
		"--exist-ok",
	}
	if spec.Device != "" {
		args = append(args, "--device", spec.Device)
	}

	log.WithFields(log.Fields{
		"run_id": spec.RunID,
		"python": t.python,
		"args":   args,
	}).Info("Starting local training run")

	cmd := exec.CommandContext(ctx, t.python, args...)
	cmd.Dir = t.scriptDir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("run training script: %w: %s", err, lastLines(stderr.Bytes(), 512))
	}

	runDir := filepath.Join(spec.OutputDir, spec.RunName)
	weights, err := findWeights(runDir)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"run_id":  spec.RunID,
		"weights": weights,
	}).Info("Local training run finished")

	return &ports.TrainResult{OutputDir: runDir, WeightsPath: weights}, nil
}

// findWeights locates best.pt under the run directory. The script nests its
// weights one level down (weights/best.pt) but the exact layout varies across
// detector versions, so walk instead of hardcoding.
func findWeights(runDir string) (string, error) {
	var found string
	err := filepath.WalkDir(runDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == "best.pt" {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("scan run directory: %w", err)
	}
	if found == "" {
		return "", errors.New("training script produced no best.pt")
	}
	return found, nil
}

// lastLines trims captured stderr to a tail short enough for an error message.
func lastLines(b []byte, max int) []byte {
	b = bytes.TrimSpace(b)
	if len(b) <= max {
		return b
	}
	return b[len(b)-max:]
}

var _ ports.Trainer = (*localTrainer)(nil)
