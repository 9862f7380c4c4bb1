package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Env             string   `mapstructure:"env"`
	ServiceName     string   `mapstructure:"service_name"`
	Port            string   `mapstructure:"port"`
	CORSAllowOrigin []string `mapstructure:"cors_allow_origins"`
	MaxUploadMB     int64    `mapstructure:"max_upload_mb"`
	AutoMigrate     bool     `mapstructure:"auto_migrate"`

	DatabaseURL    string `mapstructure:"database_url"`
	MongoURI       string `mapstructure:"mongodb_uri"`
	MongoDatabase  string `mapstructure:"mongodb_database"`
	ActivityDriver string `mapstructure:"activity_driver"`
	ActivityDSN    string `mapstructure:"activity_dsn"`

	ObjectStoreType string `mapstructure:"object_store"`
	LocalStoreDir   string `mapstructure:"local_store_dir"`
	AWSRegion       string `mapstructure:"aws_region"`
	S3Bucket        string `mapstructure:"s3_bucket"`
	S3Prefix        string `mapstructure:"s3_prefix"`
	SSEKMSKeyID     string `mapstructure:"sse_kms_key_id"`
	MinioEndpoint   string `mapstructure:"minio_endpoint"`
	MinioAccessKey  string `mapstructure:"minio_access_key"`
	MinioSecretKey  string `mapstructure:"minio_secret_key"`
	MinioBucket     string `mapstructure:"minio_bucket"`
	MinioUseSSL     bool   `mapstructure:"minio_use_ssl"`

	QueueType            string        `mapstructure:"queue"`
	SQSQueueURL          string        `mapstructure:"sqs_queue_url"`
	SQSWaitSeconds       int32         `mapstructure:"sqs_wait_seconds"`
	SQSMaxMessages       int32         `mapstructure:"sqs_max_messages"`
	SQSVisibilitySeconds int32         `mapstructure:"sqs_visibility_seconds"`
	WorkerConcurrency    int           `mapstructure:"worker_concurrency"`
	ShutdownTimeout      time.Duration `mapstructure:"shutdown_timeout"`
	RetryJitter          bool          `mapstructure:"retry_jitter"`
	RetryBaseDelay       time.Duration `mapstructure:"retry_base_delay"`
	EnqueueRate          float64       `mapstructure:"enqueue_rate"`
	EnqueueBurst         int           `mapstructure:"enqueue_burst"`

	TracingEnabled  bool   `mapstructure:"tracing_enabled"`
	OTLPProtocol    string `mapstructure:"otel_exporter_otlp_protocol"`
	TraceSampler    string `mapstructure:"otel_traces_sampler"`
	TraceSamplerArg string `mapstructure:"otel_traces_sampler_arg"`
}

var defaults = map[string]any{
	"env":                         "dev",
	"service_name":                "resume-pipeline",
	"port":                        "8080",
	"cors_allow_origins":          "http://localhost:5173",
	"max_upload_mb":               10,
	"auto_migrate":                true,
	"database_url":                "",
	"mongodb_uri":                 "",
	"mongodb_database":            "resume_pipeline",
	"activity_driver":             "sqlite",
	"activity_dsn":                "file:activity.db?_pragma=busy_timeout(5000)",
	"object_store":                "local",
	"local_store_dir":             "./data",
	"aws_region":                  "",
	"s3_bucket":                   "",
	"s3_prefix":                   "",
	"sse_kms_key_id":              "",
	"minio_endpoint":              "",
	"minio_access_key":            "",
	"minio_secret_key":            "",
	"minio_bucket":                "resumes",
	"minio_use_ssl":               false,
	"queue":                       "local",
	"sqs_queue_url":               "",
	"sqs_wait_seconds":            20,
	"sqs_max_messages":            10,
	"sqs_visibility_seconds":      1200,
	"shutdown_timeout":            "30s",
	"worker_concurrency":          4,
	"retry_jitter":                false,
	"retry_base_delay":            "5s",
	"enqueue_rate":                20.0,
	"enqueue_burst":               40,
	"tracing_enabled":             false,
	"otel_exporter_otlp_protocol": "grpc",
	"otel_traces_sampler":         "parentbased_always_on",
	"otel_traces_sampler_arg":     "",
}

// Load reads configuration from an optional YAML file and the environment.
// Environment variables use the upper-cased key names (DATABASE_URL, MONGODB_URI, ...)
// and take precedence over the file.
func Load(path string) (Config, error) {
	// Best-effort load of local env files for dev convenience.
	_ = godotenv.Load(".env")

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	cfg.Env = normalizeEnv(cfg.Env)
	cfg.ObjectStoreType = normalizeStoreType(cfg.ObjectStoreType)
	cfg.QueueType = normalizeQueueType(cfg.QueueType)
	cfg.ActivityDriver = strings.ToLower(strings.TrimSpace(cfg.ActivityDriver))
	cfg.CORSAllowOrigin = splitAndTrim(cfg.CORSAllowOrigin)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var errs []error
	if c.Env == "production" && c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required in production"))
	}
	switch c.ActivityDriver {
	case "mysql", "sqlite", "none":
	default:
		errs = append(errs, fmt.Errorf("unsupported activity_driver %q", c.ActivityDriver))
	}
	if c.ObjectStoreType == "s3" && c.S3Bucket == "" {
		errs = append(errs, errors.New("S3_BUCKET is required when OBJECT_STORE=s3"))
	}
	if c.ObjectStoreType == "minio" && c.MinioEndpoint == "" {
		errs = append(errs, errors.New("MINIO_ENDPOINT is required when OBJECT_STORE=minio"))
	}
	if c.QueueType == "sqs" && c.SQSQueueURL == "" {
		errs = append(errs, errors.New("SQS_QUEUE_URL is required when QUEUE=sqs"))
	}
	if c.WorkerConcurrency <= 0 {
		errs = append(errs, errors.New("worker_concurrency must be positive"))
	}
	return errors.Join(errs...)
}

func splitAndTrim(raw []string) []string {
	var out []string
	for _, entry := range raw {
		for _, p := range strings.Split(entry, ",") {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "minio":
		return "minio"
	default:
		return "local"
	}
}

func normalizeQueueType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "sqs":
		return "sqs"
	default:
		return "local"
	}
}
