package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"golang.org/x/time/rate"

	"resume-pipeline/internal/activitylog"
	"resume-pipeline/internal/artifacts"
	"resume-pipeline/internal/matching"
	"resume-pipeline/internal/pipeline"
	"resume-pipeline/internal/queue"
	"resume-pipeline/internal/resumeapi"
	"resume-pipeline/internal/resumes"
	"resume-pipeline/internal/services/health"
	"resume-pipeline/internal/shared/config"
	"resume-pipeline/internal/shared/metrics"
	"resume-pipeline/internal/shared/server"
	"resume-pipeline/internal/shared/server/middleware"
	"resume-pipeline/internal/shared/storage/db"
	"resume-pipeline/internal/shared/storage/mongo"
	"resume-pipeline/internal/shared/storage/object"
	localstore "resume-pipeline/internal/shared/storage/object/local"
	miniostore "resume-pipeline/internal/shared/storage/object/minio"
	s3store "resume-pipeline/internal/shared/storage/object/s3"
	storerouter "resume-pipeline/internal/shared/storage/router"
	"resume-pipeline/internal/shared/telemetry"
	"resume-pipeline/internal/worker"
)

const localQueueSize = 256

// App holds the wired dependencies of a process. Close releases every client
// Build opened.
type App struct {
	Config   config.Config
	Router   *gin.Engine
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Stores   *storerouter.Router
	Health   *health.Service

	PrimaryDB       *sql.DB
	ActivityDB      *sql.DB
	ActivityDialect db.Dialect
	Mongo           *mongodrv.Client

	Files      object.Store
	Resumes    resumes.Repo
	Artifacts  artifacts.Store
	Activity   activitylog.Recorder
	Queue      queue.Client
	Dispatcher *pipeline.Dispatcher
	Matcher    *matching.Service

	ResumeHandler *resumeapi.Handler

	localQueue *queue.LocalQueue
	sqs        *queue.SQSClient
	mongoStore *artifacts.MongoStore
	closers    []func(context.Context) error
}

// Runnable is a long-running consumer such as a worker pool.
type Runnable interface {
	Run(ctx context.Context) error
}

// Build connects the configured stores and wires the pipeline, the HTTP router
// and the health checks. On error, anything already opened is closed.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}

	app := &App{
		Config: cfg,
		Stores: storerouter.Default(),
		Health: health.NewService(),
	}
	if err := app.build(ctx); err != nil {
		_ = app.Close(context.Background())
		return nil, err
	}
	return app, nil
}

func (a *App) build(ctx context.Context) error {
	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(a.Registry)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	a.Metrics = m

	if err := a.buildPrimary(ctx); err != nil {
		return err
	}
	if err := a.buildActivity(ctx); err != nil {
		return err
	}
	if err := a.buildArtifacts(ctx); err != nil {
		return err
	}
	if a.Files, err = buildFiles(ctx, a.Config); err != nil {
		return err
	}
	if err := a.buildQueue(ctx); err != nil {
		return err
	}

	if a.Config.AutoMigrate {
		if err := a.Migrate(ctx); err != nil {
			return err
		}
	}

	a.buildPipeline()
	a.buildRouter()
	return nil
}

func (a *App) buildPrimary(ctx context.Context) error {
	if strings.TrimSpace(a.Config.DatabaseURL) == "" {
		if !isDevLike(a.Config.Env) {
			return errors.New("DATABASE_URL is required")
		}
		telemetry.Warn("bootstrap.primary.memory", map[string]any{"reason": "DATABASE_URL empty"})
		a.Resumes = resumes.NewMemoryRepo()
		return nil
	}

	sqlDB, err := db.Connect(ctx, db.Postgres, a.Config.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err != nil {
		if isDevLike(a.Config.Env) {
			telemetry.Warn("bootstrap.primary.memory", map[string]any{"reason": err.Error()})
			a.Resumes = resumes.NewMemoryRepo()
			return nil
		}
		return err
	}
	a.PrimaryDB = sqlDB
	a.Resumes = &resumes.PGRepo{DB: sqlDB}
	a.closers = append(a.closers, func(context.Context) error { return sqlDB.Close() })
	a.Health.Register("primary", sqlDB.PingContext)
	return nil
}

func (a *App) buildActivity(ctx context.Context) error {
	if a.Config.ActivityDriver == "none" || strings.TrimSpace(a.Config.ActivityDSN) == "" {
		a.Activity = activitylog.TelemetryRecorder{}
		return nil
	}
	dialect, err := db.ParseDialect(a.Config.ActivityDriver)
	if err != nil {
		return err
	}

	sqlDB, err := db.Connect(ctx, dialect, a.Config.ActivityDSN, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err != nil {
		if isDevLike(a.Config.Env) {
			telemetry.Warn("bootstrap.activity.telemetry_only", map[string]any{"reason": err.Error()})
			a.Activity = activitylog.TelemetryRecorder{}
			return nil
		}
		return err
	}
	a.ActivityDB = sqlDB
	a.ActivityDialect = dialect
	a.Activity = &activitylog.SQLRecorder{DB: sqlDB}
	a.closers = append(a.closers, func(context.Context) error { return sqlDB.Close() })
	a.Health.Register("activity", sqlDB.PingContext)
	return nil
}

func (a *App) buildArtifacts(ctx context.Context) error {
	if strings.TrimSpace(a.Config.MongoURI) == "" {
		telemetry.Warn("bootstrap.artifacts.memory", map[string]any{"reason": "MONGODB_URI empty"})
		a.Artifacts = artifacts.NewMemoryStore()
		return nil
	}

	client, err := mongo.Connect(ctx, a.Config.MongoURI, mongo.DefaultOptions())
	if err != nil {
		if isDevLike(a.Config.Env) {
			telemetry.Warn("bootstrap.artifacts.memory", map[string]any{"reason": err.Error()})
			a.Artifacts = artifacts.NewMemoryStore()
			return nil
		}
		return err
	}
	a.Mongo = client
	a.mongoStore = artifacts.NewMongoStore(client.Database(a.Config.MongoDatabase))
	a.Artifacts = a.mongoStore
	a.closers = append(a.closers, client.Disconnect)
	a.Health.Register("document", func(ctx context.Context) error {
		return client.Ping(ctx, readpref.Primary())
	})
	return nil
}

func buildFiles(ctx context.Context, cfg config.Config) (object.Store, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	case "minio":
		return miniostore.New(ctx, miniostore.Options{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func (a *App) buildQueue(ctx context.Context) error {
	if a.Config.QueueType == "sqs" {
		client, err := queue.NewSQSClient(ctx, a.Config.AWSRegion, a.Config.SQSQueueURL)
		if err != nil {
			return err
		}
		a.sqs = client
		a.Queue = client
		return nil
	}
	q := queue.NewLocalQueue(localQueueSize)
	a.localQueue = q
	a.Queue = q
	a.closers = append(a.closers, func(context.Context) error {
		q.Close()
		return nil
	})
	return nil
}

func (a *App) buildPipeline() {
	orch := pipeline.NewOrchestrator(pipeline.Deps{
		Resumes:   a.Resumes,
		Files:     a.Files,
		Artifacts: a.Artifacts,
		Activity:  a.Activity,
	})

	var limiter *rate.Limiter
	if a.Config.EnqueueRate > 0 {
		burst := a.Config.EnqueueBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(a.Config.EnqueueRate), burst)
	}

	a.Dispatcher = (&pipeline.Dispatcher{
		Orchestrator: orch,
		Runner:       &pipeline.Runner{Metrics: a.Metrics},
		Queue:        a.Queue,
		Limiter:      limiter,
	}).Tune(a.Config.RetryBaseDelay, a.Config.RetryJitter)
	a.Matcher = matching.NewService(a.Artifacts)
}

func (a *App) buildRouter() {
	a.ResumeHandler = &resumeapi.Handler{
		Resumes:        a.Resumes,
		Files:          a.Files,
		Artifacts:      a.Artifacts,
		Pipeline:       a.Dispatcher,
		Matcher:        a.Matcher,
		Activity:       a.Activity,
		MaxUploadBytes: a.Config.MaxUploadMB << 20,
	}

	var limits map[string]middleware.RateLimitRule
	if a.Config.EnqueueRate > 0 {
		limits = map[string]middleware.RateLimitRule{
			"WRITE": {Rate: a.Config.EnqueueRate, Burst: a.Config.EnqueueBurst},
		}
	}
	a.Router = server.NewRouter(server.Options{
		CORSOrigins: a.Config.CORSAllowOrigin,
		Metrics:     a.Metrics,
		Gatherer:    a.Registry,
		Health:      a.Health,
		RateLimits:  limits,
		Routes:      []server.RouteRegistrar{a.ResumeHandler},
	})
}

// Migrate applies schema initialization to every store the router allows:
// primary migrations for resumes, activity migrations for analytics and the
// document store indexes for artifacts.
func (a *App) Migrate(ctx context.Context) error {
	if a.PrimaryDB != nil && a.Stores.AllowMigrate(storerouter.StorePrimary, storerouter.FamilyResumes) {
		if err := db.RunMigrations(ctx, a.PrimaryDB, db.PrimarySchema, db.Postgres); err != nil {
			return fmt.Errorf("migrate primary: %w", err)
		}
		telemetry.Info("bootstrap.migrated", map[string]any{"store": string(storerouter.StorePrimary)})
	}
	if a.ActivityDB != nil && a.Stores.AllowMigrate(storerouter.StoreSecondary, storerouter.FamilyAnalytics) {
		if err := db.RunMigrations(ctx, a.ActivityDB, db.ActivitySchema, a.ActivityDialect); err != nil {
			return fmt.Errorf("migrate activity: %w", err)
		}
		telemetry.Info("bootstrap.migrated", map[string]any{"store": string(storerouter.StoreSecondary)})
	}
	if a.mongoStore != nil && a.Stores.AllowMigrate(storerouter.StoreDocument, storerouter.FamilyArtifacts) {
		if err := a.mongoStore.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("ensure artifact indexes: %w", err)
		}
		telemetry.Info("bootstrap.migrated", map[string]any{"store": string(storerouter.StoreDocument)})
	}
	return nil
}

// Worker returns the consumer matching the configured queue.
func (a *App) Worker() (Runnable, error) {
	switch {
	case a.sqs != nil:
		return &worker.SQSConsumer{
			API:               a.sqs.API,
			QueueURL:          a.sqs.QueueURL,
			Tasks:             a.Dispatcher,
			Metrics:           a.Metrics,
			Concurrency:       a.Config.WorkerConcurrency,
			VisibilitySeconds: a.Config.SQSVisibilitySeconds,
			WaitSeconds:       a.Config.SQSWaitSeconds,
			MaxMessages:       a.Config.SQSMaxMessages,
			ShutdownTimeout:   a.Config.ShutdownTimeout,
		}, nil
	case a.localQueue != nil:
		return &worker.Pool{
			Messages:    a.localQueue.Messages(),
			Tasks:       a.Dispatcher,
			Metrics:     a.Metrics,
			Concurrency: a.Config.WorkerConcurrency,
		}, nil
	default:
		return nil, pipeline.ErrNoQueue
	}
}

// Close releases clients in reverse order of creation.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
