package trainer

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"vision-pipeline-service/internal/config"
	"vision-pipeline-service/internal/core/domain"
)

// writeStubScript installs a shell script named train.py that mimics the
// detector's output layout, so the trainer can be exercised without Python.
func writeStubScript(t *testing.T, dir, body string) {
	t.Helper()
	script := "#!/bin/sh\n" + body
	require.NoError(t, os.WriteFile(filepath.Join(dir, "train.py"), []byte(script), 0o755))
}

func stubTrainer(t *testing.T, scriptBody string) (*localTrainer, string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub script needs a POSIX shell")
	}
	scriptDir := t.TempDir()
	writeStubScript(t, scriptDir, scriptBody)
	tr := NewLocalTrainer(&config.TrainerConfig{Python: "/bin/sh", ScriptDir: scriptDir})
	return tr.(*localTrainer), scriptDir
}

const successScript = `
while [ $# -gt 0 ]; do
  case "$1" in
    --project) project=$2; shift 2;;
    --name) name=$2; shift 2;;
    *) shift;;
  esac
done
mkdir -p "$project/$name/weights"
: > "$project/$name/weights/best.pt"
`

func TestLocalTrainer_Train(t *testing.T) {
	tr, _ := stubTrainer(t, successScript)
	outputDir := t.TempDir()

	spec := domain.TrainingSpec{
		RunID:       uuid.New(),
		DataYAML:    "/data/widgets/data.yaml",
		BaseWeights: "yolov5s.pt",
		ImageSize:   640,
		BatchSize:   16,
		Epochs:      100,
		OutputDir:   outputDir,
		RunName:     "widgets-run",
	}

	result, err := tr.Train(context.Background(), spec)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(outputDir, "widgets-run"), result.OutputDir)
	assert.Equal(t, filepath.Join(outputDir, "widgets-run", "weights", "best.pt"), result.WeightsPath)
	assert.FileExists(t, result.WeightsPath)
}

func TestLocalTrainer_Train_ScriptFails(t *testing.T) {
	tr, _ := stubTrainer(t, `echo "CUDA out of memory" >&2; exit 1`)

	_, err := tr.Train(context.Background(), domain.TrainingSpec{
		RunID:     uuid.New(),
		OutputDir: t.TempDir(),
		RunName:   "doomed",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CUDA out of memory")
}

func TestLocalTrainer_Train_NoWeights(t *testing.T) {
	// Script exits cleanly but leaves no best.pt behind.
	tr, _ := stubTrainer(t, `
while [ $# -gt 0 ]; do
  case "$1" in
    --project) project=$2; shift 2;;
    --name) name=$2; shift 2;;
    *) shift;;
  esac
done
mkdir -p "$project/$name"
`)

	_, err := tr.Train(context.Background(), domain.TrainingSpec{
		RunID:     uuid.New(),
		OutputDir: t.TempDir(),
		RunName:   "empty",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no best.pt")
}

func TestLocalTrainer_Train_Canceled(t *testing.T) {
	tr, _ := stubTrainer(t, `sleep 30`)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := tr.Train(ctx, domain.TrainingSpec{
			RunID:     uuid.New(),
			OutputDir: t.TempDir(),
			RunName:   "canceled",
		})
		done <- err
	}()

	cancel()
	err := <-done
	require.ErrorIs(t, err, context.Canceled)
}

func jobWithConditions(conditions []interface{}) *unstructured.Unstructured {
	obj := map[string]interface{}{"status": map[string]interface{}{}}
	if conditions != nil {
		obj["status"].(map[string]interface{})["conditions"] = conditions
	}
	return &unstructured.Unstructured{Object: obj}
}

func TestParseJobStatus(t *testing.T) {
	// Exercised here rather than against a live cluster.
	t.Run("no conditions yet", func(t *testing.T) {
		done, err := parseJobStatus(jobWithConditions(nil))
		require.NoError(t, err)
		assert.False(t, done)
	})

	t.Run("complete", func(t *testing.T) {
		done, err := parseJobStatus(jobWithConditions([]interface{}{
			map[string]interface{}{"type": "Complete", "status": "True"},
		}))
		require.NoError(t, err)
		assert.True(t, done)
	})

	t.Run("failed", func(t *testing.T) {
		done, err := parseJobStatus(jobWithConditions([]interface{}{
			map[string]interface{}{"type": "Failed", "status": "True", "message": "BackoffLimitExceeded"},
		}))
		require.Error(t, err)
		assert.False(t, done)
		assert.Contains(t, err.Error(), "BackoffLimitExceeded")
	})
}
