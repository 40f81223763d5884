package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Logger     LoggerConfig
	Storage    StorageConfig
	Hub        HubConfig
	Diffusion  DiffusionConfig
	Trainer    TrainerConfig
	Kubernetes KubernetesConfig
	Runner     RunnerConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type LoggerConfig struct {
	Level  string
	Format string
}

// StorageConfig controls where pulled exports and generated images land.
type StorageConfig struct {
	DataDir string
}

type HubConfig struct {
	Enabled bool
	URL     string
	APIKey  string
	Timeout time.Duration
	// Progress draws a terminal progress bar during export downloads;
	// meant for the CLI, not the server.
	Progress bool
}

type DiffusionConfig struct {
	Enabled   bool
	URL       string
	AuthToken string
	Timeout   time.Duration
	Width     int
	Height    int
}

// TrainerConfig describes the external training script invocation.
type TrainerConfig struct {
	Kind       string // "local" or "kubernetes"
	Python     string
	ScriptDir  string // checkout of the external detector repo
	WeightsDir string
}

type KubernetesConfig struct {
	Enabled        bool
	InCluster      bool
	KubeConfigPath string
	Namespace      string
	TrainerImage   string
	JobTimeout     time.Duration
}

type RunnerConfig struct {
	MaxConcurrent int
}

func Load() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "pipeline")
	v.SetDefault("DB_PASSWORD", "pipeline")
	v.SetDefault("DB_NAME", "vision_pipeline")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 2)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "30m")

	v.SetDefault("LOGGER_LEVEL", "info")
	v.SetDefault("LOGGER_FORMAT", "json")

	v.SetDefault("DATA_DIR", "./data")

	v.SetDefault("HUB_ENABLED", true)
	v.SetDefault("HUB_URL", "https://api.roboflow.com")
	v.SetDefault("HUB_API_KEY", "")
	v.SetDefault("HUB_TIMEOUT", "120s")

	v.SetDefault("DIFFUSION_ENABLED", true)
	v.SetDefault("DIFFUSION_URL", "http://localhost:7860")
	v.SetDefault("DIFFUSION_AUTH_TOKEN", "")
	v.SetDefault("DIFFUSION_TIMEOUT", "300s")
	v.SetDefault("DIFFUSION_WIDTH", 512)
	v.SetDefault("DIFFUSION_HEIGHT", 512)

	v.SetDefault("TRAINER_KIND", "local")
	v.SetDefault("TRAINER_PYTHON", "python3")
	v.SetDefault("TRAINER_SCRIPT_DIR", "./yolov5")
	v.SetDefault("TRAINER_WEIGHTS_DIR", "./weights")

	v.SetDefault("K8S_ENABLED", false)
	v.SetDefault("K8S_IN_CLUSTER", false)
	v.SetDefault("K8S_KUBECONFIG", "")
	v.SetDefault("K8S_NAMESPACE", "vision-pipeline")
	v.SetDefault("K8S_TRAINER_IMAGE", "ultralytics/yolov5:latest")
	v.SetDefault("K8S_JOB_TIMEOUT", "6h")

	v.SetDefault("RUNNER_MAX_CONCURRENT", 2)

	// Env
	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("SERVER_HOST"),
			Port: v.GetInt("SERVER_PORT"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetInt("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			Name:            v.GetString("DB_NAME"),
			SSLMode:         v.GetString("DB_SSLMODE"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: parseDuration(v.GetString("DB_CONN_MAX_LIFETIME"), 30*time.Minute),
		},
		Logger: LoggerConfig{
			Level:  v.GetString("LOGGER_LEVEL"),
			Format: v.GetString("LOGGER_FORMAT"),
		},
		Storage: StorageConfig{
			DataDir: v.GetString("DATA_DIR"),
		},
		Hub: HubConfig{
			Enabled: v.GetBool("HUB_ENABLED"),
			URL:     v.GetString("HUB_URL"),
			APIKey:  v.GetString("HUB_API_KEY"),
			Timeout: parseDuration(v.GetString("HUB_TIMEOUT"), 2*time.Minute),
		},
		Diffusion: DiffusionConfig{
			Enabled:   v.GetBool("DIFFUSION_ENABLED"),
			URL:       v.GetString("DIFFUSION_URL"),
			AuthToken: v.GetString("DIFFUSION_AUTH_TOKEN"),
			Timeout:   parseDuration(v.GetString("DIFFUSION_TIMEOUT"), 5*time.Minute),
			Width:     v.GetInt("DIFFUSION_WIDTH"),
			Height:    v.GetInt("DIFFUSION_HEIGHT"),
		},
		Trainer: TrainerConfig{
			Kind:       v.GetString("TRAINER_KIND"),
			Python:     v.GetString("TRAINER_PYTHON"),
			ScriptDir:  v.GetString("TRAINER_SCRIPT_DIR"),
			WeightsDir: v.GetString("TRAINER_WEIGHTS_DIR"),
		},
		Kubernetes: KubernetesConfig{
			Enabled:        v.GetBool("K8S_ENABLED"),
			InCluster:      v.GetBool("K8S_IN_CLUSTER"),
			KubeConfigPath: v.GetString("K8S_KUBECONFIG"),
			Namespace:      v.GetString("K8S_NAMESPACE"),
			TrainerImage:   v.GetString("K8S_TRAINER_IMAGE"),
			JobTimeout:     parseDuration(v.GetString("K8S_JOB_TIMEOUT"), 6*time.Hour),
		},
		Runner: RunnerConfig{
			MaxConcurrent: v.GetInt("RUNNER_MAX_CONCURRENT"),
		},
	}

	return cfg, nil
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}
