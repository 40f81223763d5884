package trainer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"vision-pipeline-service/internal/config"
	"vision-pipeline-service/internal/core/domain"
	"vision-pipeline-service/internal/core/ports/output"
)

var jobGVR = schema.GroupVersionResource{
	Group:    "batch",
	Version:  "v1",
	Resource: "jobs",
}

const jobPollInterval = 10 * time.Second

// kubernetesTrainer runs the training script as a batch/v1 Job. The trainer
// image bundles the detector repo; the pipeline's data directory is expected
// to be mounted into the pod at the same path as on the API server, so output
// paths line up on both sides.
type kubernetesTrainer struct {
	client     dynamic.Interface
	namespace  string
	image      string
	jobTimeout time.Duration
}

func NewKubernetesTrainer(cfg *config.KubernetesConfig) (ports.Trainer, error) {
	var restCfg *rest.Config
	var err error

	if cfg.InCluster {
		restCfg, err = rest.InClusterConfig()
	} else if cfg.KubeConfigPath != "" {
		restCfg, err = clientcmd.BuildConfigFromFlags("", cfg.KubeConfigPath)
	} else {
		// Try default kubeconfig location
		home, _ := os.UserHomeDir()
		kubeconfig := filepath.Join(home, ".kube", "config")
		restCfg, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
	}
	if err != nil {
		return nil, fmt.Errorf("build k8s config: %w", err)
	}

	client, err := dynamic.NewForConfig(restCfg)
	if err != nil {
		return nil, fmt.Errorf("create dynamic client: %w", err)
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "vision-pipeline"
	}
	jobTimeout := cfg.JobTimeout
	if jobTimeout == 0 {
		jobTimeout = 12 * time.Hour
	}

	return &kubernetesTrainer{
		client:     client,
		namespace:  namespace,
		image:      cfg.TrainerImage,
		jobTimeout: jobTimeout,
	}, nil
}

func (t *kubernetesTrainer) Kind() domain.RunnerKind {
	return domain.RunnerKubernetes
}

func (t *kubernetesTrainer) Train(ctx context.Context, spec domain.TrainingSpec) (*ports.TrainResult, error) {
	jobName := fmt.Sprintf("train-%s", spec.RunID)
	obj := t.buildJobCR(jobName, spec)

	_, err := t.client.Resource(jobGVR).
		Namespace(t.namespace).
		Create(ctx, obj, metav1.CreateOptions{})
	if err != nil {
		return nil, fmt.Errorf("create training job: %w", err)
	}

	log.WithFields(log.Fields{
		"run_id":    spec.RunID,
		"job":       jobName,
		"namespace": t.namespace,
	}).Info("Created training job")

	if err := t.waitForJob(ctx, jobName); err != nil {
		return nil, err
	}

	runDir := filepath.Join(spec.OutputDir, spec.RunName)
	weights, err := findWeights(runDir)
	if err != nil {
		return nil, err
	}

	return &ports.TrainResult{OutputDir: runDir, WeightsPath: weights}, nil
}

// waitForJob polls the Job status until it reports complete or failed. A
// canceled ctx deletes the Job before returning so the pod does not keep
// burning GPU time.
func (t *kubernetesTrainer) waitForJob(ctx context.Context, jobName string) error {
	deadline := time.NewTimer(t.jobTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(jobPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.deleteJob(jobName)
			return ctx.Err()
		case <-deadline.C:
			t.deleteJob(jobName)
			return fmt.Errorf("training job %s timed out after %s", jobName, t.jobTimeout)
		case <-ticker.C:
		}

		obj, err := t.client.Resource(jobGVR).
			Namespace(t.namespace).
			Get(ctx, jobName, metav1.GetOptions{})
		if err != nil {
			return fmt.Errorf("get training job: %w", err)
		}

		done, jobErr := parseJobStatus(obj)
		if jobErr != nil {
			return jobErr
		}
		if done {
			return nil
		}
	}
}

func (t *kubernetesTrainer) deleteJob(jobName string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	policy := metav1.DeletePropagationBackground
	err := t.client.Resource(jobGVR).
		Namespace(t.namespace).
		Delete(ctx, jobName, metav1.DeleteOptions{PropagationPolicy: &policy})
	if err != nil {
		log.WithError(err).WithField("job", jobName).Warn("Failed to delete training job")
	}
}

func (t *kubernetesTrainer) buildJobCR(jobName string, spec domain.TrainingSpec) *unstructured.Unstructured {
	args := []interface{}{
		"train.py",
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

	return &unstructured.Unstructured{
		Object: map[string]interface{}{
			"apiVersion": "batch/v1",
			"kind":       "Job",
			"metadata": map[string]interface{}{
				"name": jobName,
				"labels": map[string]interface{}{
					"vision-pipeline/training-run-id": spec.RunID.String(),
				},
			},
			"spec": map[string]interface{}{
				"backoffLimit": int64(0),
				"template": map[string]interface{}{
					"spec": map[string]interface{}{
						"restartPolicy": "Never",
						"containers": []interface{}{
							map[string]interface{}{
								"name":    "trainer",
								"image":   t.image,
								"command": append([]interface{}{"python3"}, args...),
							},
						},
					},
				},
			},
		},
	}
}

func parseJobStatus(obj *unstructured.Unstructured) (done bool, err error) {
	conditions, found, _ := unstructured.NestedSlice(obj.Object, "status", "conditions")
	if !found {
		return false, nil
	}

	for _, cond := range conditions {
		condMap, ok := cond.(map[string]interface{})
		if !ok {
			continue
		}
		condType, _ := condMap["type"].(string)
		condStatus, _ := condMap["status"].(string)
		if condStatus != "True" {
			continue
		}

		switch condType {
		case "Complete":
			return true, nil
		case "Failed":
			msg, _ := condMap["message"].(string)
			if msg == "" {
				msg = "training job failed"
			}
			return false, fmt.Errorf("training job failed: %s", msg)
		}
	}
	return false, nil
}

var _ ports.Trainer = (*kubernetesTrainer)(nil)
