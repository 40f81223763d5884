// Command pipeline runs the dataset / training / generation / upload steps as
// a single foreground invocation, backed by an embedded database instead of
// Postgres. It exists for workstation use: pull an export, fine-tune on it,
// generate synthetic images and push them back to the hub without standing up
// the HTTP server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"vision-pipeline-service/internal/adapters/secondary/diffusion"
	"vision-pipeline-service/internal/adapters/secondary/hub"
	"vision-pipeline-service/internal/adapters/secondary/sqlite"
	"vision-pipeline-service/internal/adapters/secondary/trainer"
	"vision-pipeline-service/internal/config"
	"vision-pipeline-service/internal/core/domain"
	output "vision-pipeline-service/internal/core/ports/output"
	"vision-pipeline-service/internal/core/services"
)

const pollInterval = 2 * time.Second

type flags struct {
	dbPath string

	pull      bool
	name      string
	workspace string
	project   string
	version   int
	format    string

	train       bool
	datasetID   string
	baseWeights string
	imageSize   int
	batchSize   int
	epochs      int
	device      string

	generate       bool
	prompt         string
	negativePrompt string
	count          int
	genBatch       int
	steps          int
	guidance       float64
	seed           int64

	upload     bool
	uploadDir  string
	split      string
	uploadName string
	suffix     string
	retries    int
}

func parseFlags() flags {
	var f flags
	flag.StringVar(&f.dbPath, "db", "pipeline.db", "path to the embedded database file")

	flag.BoolVar(&f.pull, "pull", false, "pull a dataset export from the hub")
	flag.StringVar(&f.name, "name", "", "dataset name (defaults to workspace-project-vN)")
	flag.StringVar(&f.workspace, "workspace", "", "hub workspace")
	flag.StringVar(&f.project, "project", "", "hub project")
	flag.IntVar(&f.version, "version", 1, "hub dataset version")
	flag.StringVar(&f.format, "format", string(domain.ExportFormatYOLOv5), "export format")

	flag.BoolVar(&f.train, "train", false, "fine-tune on the pulled dataset")
	flag.StringVar(&f.datasetID, "dataset-id", "", "train on an existing dataset instead of the one pulled this run")
	flag.StringVar(&f.baseWeights, "weights", "", "base weights checkpoint")
	flag.IntVar(&f.imageSize, "img", 0, "training image size")
	flag.IntVar(&f.batchSize, "batch", 0, "training batch size")
	flag.IntVar(&f.epochs, "epochs", 0, "training epochs")
	flag.StringVar(&f.device, "device", "", "training device, e.g. 0 or cpu")

	flag.BoolVar(&f.generate, "generate", false, "generate synthetic images")
	flag.StringVar(&f.prompt, "prompt", "", "diffusion prompt")
	flag.StringVar(&f.negativePrompt, "negative", "", "diffusion negative prompt")
	flag.IntVar(&f.count, "count", 0, "number of images to generate")
	flag.IntVar(&f.genBatch, "gen-batch", 0, "images per diffusion call")
	flag.IntVar(&f.steps, "steps", 0, "diffusion sampling steps")
	flag.Float64Var(&f.guidance, "guidance", 0, "diffusion guidance scale")
	flag.Int64Var(&f.seed, "seed", -1, "diffusion seed, -1 for random")

	flag.BoolVar(&f.upload, "upload", false, "upload images to the hub")
	flag.StringVar(&f.uploadDir, "upload-dir", "", "directory to upload (defaults to the generation output)")
	flag.StringVar(&f.split, "split", "", "target split: train, valid or test")
	flag.StringVar(&f.uploadName, "upload-name", "", "batch tag applied on the hub")
	flag.StringVar(&f.suffix, "suffix", "", "only upload files with this suffix")
	flag.IntVar(&f.retries, "retries", 0, "upload attempts per file")

	flag.Parse()
	return f
}

func main() {
	f := parseFlags()
	if !f.pull && !f.train && !f.generate && !f.upload {
		fmt.Fprintln(os.Stderr, "nothing to do: pass at least one of -pull, -train, -generate, -upload")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}
	// The CLI runs in a terminal; text logs and a download bar fit better
	// than the server's JSON output.
	cfg.Hub.Progress = true
	initLogger(cfg.Logger.Level)

	store, err := sqlite.Open(f.dbPath)
	if err != nil {
		log.WithError(err).Fatal("failed to open database")
	}
	defer store.Close()

	hubClient := hub.NewHubClient(&cfg.Hub)
	diffusionClient := diffusion.NewDiffusionClient(&cfg.Diffusion)
	trainers := []output.Trainer{trainer.NewLocalTrainer(&cfg.Trainer)}

	runner := services.NewRunner(cfg.Runner.MaxConcurrent)
	defer runner.Shutdown(context.Background())

	datasetSvc := services.NewDatasetService(store.Datasets(), store.TrainingRuns(), hubClient, runner, cfg.Storage.DataDir)
	trainingSvc := services.NewTrainingService(store.TrainingRuns(), store.Datasets(), trainers, runner, cfg.Storage.DataDir)
	generationSvc := services.NewGenerationService(store.GenerationJobs(), diffusionClient, runner, cfg.Storage.DataDir, cfg.Diffusion.Width, cfg.Diffusion.Height)
	uploadSvc := services.NewUploadService(store.UploadBatches(), hubClient, runner)

	ctx := context.Background()

	var datasetID uuid.UUID
	if f.datasetID != "" {
		datasetID, err = uuid.Parse(f.datasetID)
		if err != nil {
			log.WithError(err).Fatal("invalid -dataset-id")
		}
	}

	if f.pull {
		datasetID = runPull(ctx, datasetSvc, store, f)
	}

	if f.train {
		if datasetID == uuid.Nil {
			log.Fatal("-train needs -pull in the same run or an explicit -dataset-id")
		}
		runTrain(ctx, trainingSvc, store, datasetID, f)
	}

	var generatedDir string
	if f.generate {
		generatedDir = runGenerate(ctx, generationSvc, store, f)
	}

	if f.upload {
		dir := f.uploadDir
		if dir == "" {
			dir = generatedDir
		}
		if dir == "" {
			log.Fatal("-upload needs -upload-dir or -generate in the same run")
		}
		runUpload(ctx, uploadSvc, store, dir, f)
	}

	log.Info("pipeline finished")
}

func initLogger(level string) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
}

func runPull(ctx context.Context, svc *services.DatasetService, store *sqlite.Store, f flags) uuid.UUID {
	if f.workspace == "" || f.project == "" {
		log.Fatal("-pull needs -workspace and -project")
	}
	name := f.name
	if name == "" {
		name = fmt.Sprintf("%s-%s-v%d", f.workspace, f.project, f.version)
	}

	ds, err := svc.Create(ctx, name, f.workspace, f.project, f.version, domain.ExportFormat(f.format))
	if err != nil {
		log.WithError(err).Fatal("failed to register dataset")
	}
	if _, err := svc.Pull(ctx, ds.ID); err != nil {
		log.WithError(err).Fatal("failed to start dataset pull")
	}
	log.WithFields(log.Fields{"dataset_id": ds.ID, "name": ds.Name}).Info("pulling dataset export")

	for {
		time.Sleep(pollInterval)
		ds, err = store.Datasets().GetByID(ctx, ds.ID)
		if err != nil {
			log.WithError(err).Fatal("failed to poll dataset")
		}
		switch ds.State {
		case domain.DatasetStateReady:
			log.WithFields(log.Fields{
				"location": ds.Location,
				"images":   ds.ImageCount,
				"classes":  len(ds.Classes),
			}).Info("dataset ready")
			return ds.ID
		case domain.DatasetStateFailed:
			log.WithField("error", ds.Error).Fatal("dataset pull failed")
		}
	}
}

func runTrain(ctx context.Context, svc *services.TrainingService, store *sqlite.Store, datasetID uuid.UUID, f flags) {
	run, err := svc.Create(ctx, services.TrainingParams{
		DatasetID:   datasetID,
		BaseWeights: f.baseWeights,
		ImageSize:   f.imageSize,
		BatchSize:   f.batchSize,
		Epochs:      f.epochs,
		Device:      f.device,
		Runner:      domain.RunnerLocal,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to start training run")
	}
	log.WithFields(log.Fields{"run_id": run.ID, "name": run.Name, "epochs": run.Epochs}).Info("training started")

	for {
		time.Sleep(pollInterval)
		run, err = store.TrainingRuns().GetByID(ctx, run.ID)
		if err != nil {
			log.WithError(err).Fatal("failed to poll training run")
		}
		if !run.State.Terminal() {
			continue
		}
		if run.State != domain.RunStateSucceeded {
			log.WithField("error", run.Error).Fatalf("training %s", run.State)
		}
		log.WithField("weights", run.WeightsPath).Info("training succeeded")
		return
	}
}

func runGenerate(ctx context.Context, svc *services.GenerationService, store *sqlite.Store, f flags) string {
	if f.prompt == "" {
		log.Fatal("-generate needs -prompt")
	}
	if f.count <= 0 {
		log.Fatal("-generate needs a positive -count")
	}

	job, err := svc.Create(ctx, services.GenerationParams{
		Name:           f.name,
		Prompt:         f.prompt,
		NegativePrompt: f.negativePrompt,
		TotalImages:    f.count,
		BatchSize:      f.genBatch,
		Steps:          f.steps,
		GuidanceScale:  f.guidance,
		Seed:           f.seed,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to start generation job")
	}
	log.WithFields(log.Fields{"job_id": job.ID, "total": job.TotalImages}).Info("generation started")

	produced := 0
	for {
		time.Sleep(pollInterval)
		job, err = store.GenerationJobs().GetByID(ctx, job.ID)
		if err != nil {
			log.WithError(err).Fatal("failed to poll generation job")
		}
		if job.Produced != produced {
			produced = job.Produced
			log.Infof("generated %d/%d images", produced, job.TotalImages)
		}
		if !job.State.Terminal() {
			continue
		}
		if job.State != domain.RunStateSucceeded {
			log.WithField("error", job.Error).Fatalf("generation %s", job.State)
		}
		log.WithField("output_dir", job.OutputDir).Info("generation succeeded")
		return job.OutputDir
	}
}

func runUpload(ctx context.Context, svc *services.UploadService, store *sqlite.Store, dir string, f flags) {
	if f.workspace == "" || f.project == "" {
		log.Fatal("-upload needs -workspace and -project")
	}

	batch, err := svc.Create(ctx, services.UploadParams{
		Workspace: f.workspace,
		Project:   f.project,
		SourceDir: dir,
		Suffix:    f.suffix,
		Split:     domain.Split(f.split),
		BatchName: f.uploadName,
		Retries:   f.retries,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to start upload batch")
	}
	log.WithFields(log.Fields{"batch_id": batch.ID, "total": batch.Total, "dir": dir}).Info("upload started")

	uploaded := 0
	for {
		time.Sleep(pollInterval)
		batch, err = store.UploadBatches().GetByID(ctx, batch.ID)
		if err != nil {
			log.WithError(err).Fatal("failed to poll upload batch")
		}
		if batch.Uploaded != uploaded {
			uploaded = batch.Uploaded
			log.Infof("uploaded %d/%d files", uploaded, batch.Total)
		}
		if !batch.State.Terminal() {
			continue
		}
		if batch.State != domain.RunStateSucceeded {
			log.WithField("error", batch.Error).Fatalf("upload %s", batch.State)
		}
		log.WithField("uploaded", batch.Uploaded).Info("upload succeeded")
		return
	}
}
