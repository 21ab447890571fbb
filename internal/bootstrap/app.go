package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"recruit-backend/internal/applications"
	"recruit-backend/internal/documents"
	"recruit-backend/internal/extract"
	"recruit-backend/internal/extract/ocr"
	"recruit-backend/internal/jobs"
	"recruit-backend/internal/llm"
	"recruit-backend/internal/llm/gemini"
	"recruit-backend/internal/llm/openai"
	"recruit-backend/internal/queue"
	"recruit-backend/internal/scoring"
	"recruit-backend/internal/services/health"
	"recruit-backend/internal/shared/cache"
	"recruit-backend/internal/shared/config"
	"recruit-backend/internal/shared/server"
	"recruit-backend/internal/shared/storage/db"
	mongostore "recruit-backend/internal/shared/storage/mongo"
	"recruit-backend/internal/shared/storage/object"
	gcsstore "recruit-backend/internal/shared/storage/object/gcs"
	localstore "recruit-backend/internal/shared/storage/object/local"
	s3store "recruit-backend/internal/shared/storage/object/s3"
	"recruit-backend/internal/shared/telemetry"
)

const (
	oracleRetryAttempts = 2
	oracleRetryDelay    = 500 * time.Millisecond
)

// App holds shared dependencies and the wired router.
type App struct {
	Config config.Config
	Router *gin.Engine

	DB    *sql.DB
	Mongo *mongo.Client
	Redis *redis.Client
	Store object.ObjectStore
	Queue queue.Client

	JobsRepo         jobs.Repo
	ApplicationsRepo applications.Repo

	Fetcher   *documents.Fetcher
	Extractor *extract.Extractor
	Scorer    *scoring.Scorer
	// Recomputer scores recompute passes and may use a different provider.
	Recomputer *scoring.Scorer

	Jobs         *jobs.Service
	Documents    *documents.Service
	Applications *applications.Service
	Health       *health.Service

	closers []func() error
}

// Build wires repositories, the scoring pipeline and the router from cfg.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	if cfg.Pipeline.ChunkSize == 0 {
		cfg.Pipeline = config.DefaultPipeline()
	}
	ctx := context.Background()

	app := &App{Config: cfg, Health: health.NewService()}

	if err := app.buildStorage(ctx); err != nil {
		app.Close()
		return nil, err
	}
	if err := app.buildDocuments(ctx); err != nil {
		app.Close()
		return nil, err
	}
	if err := app.buildPipeline(ctx); err != nil {
		app.Close()
		return nil, err
	}
	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Queue = queueClient

	app.Jobs = &jobs.Service{Repo: app.JobsRepo}
	app.Applications = &applications.Service{
		Repo:       app.ApplicationsRepo,
		Jobs:       app.JobsRepo,
		Fetcher:    app.Fetcher,
		Extractor:  app.Extractor,
		Scorer:     app.Scorer,
		Recomputer: app.Recomputer,
		Classifier: scoring.NewClassifier(cfg.Pipeline.ShortlistThreshold),
		Deadline:   cfg.Pipeline.SubmissionDeadline,
		Queue:      app.Queue,
	}

	var presign *documents.PresignHandler
	if cfg.ObjectStoreType == "s3" && strings.TrimSpace(cfg.S3Bucket) != "" {
		presign, err = documents.NewPresignHandler(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix)
		if err != nil {
			app.Close()
			return nil, err
		}
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:              cfg,
		Health:              app.Health,
		JobsHandler:         jobs.NewHandler(app.Jobs),
		DocumentsHandler:    documents.NewHandler(app.Documents),
		PresignHandler:      presign,
		ApplicationsHandler: applications.NewHandler(app.Applications),
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":          cfg.Env,
		"repo":         app.repoKind(),
		"object_store": cfg.ObjectStoreType,
		"oracle":       app.Scorer.Provider,
		"model":        app.Scorer.Model,
		"queue":        app.Queue != nil,
		"job_cache":    app.Redis != nil,
	})
	return app, nil
}

// Close releases connections opened by Build.
func (a *App) Close() {
	if a == nil {
		return
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			telemetry.Warn("bootstrap.close_failed", map[string]any{"error": err.Error()})
		}
	}
	a.closers = nil
}

func (a *App) repoKind() string {
	switch {
	case a.DB != nil:
		return "postgres"
	case a.Mongo != nil:
		return "mongo"
	default:
		return "memory"
	}
}

func (a *App) buildStorage(ctx context.Context) error {
	cfg := a.Config

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return err
	}
	if sqlDB != nil {
		a.DB = sqlDB
		if db.ProfileForRuntime() != db.ProfileLambda {
			a.closers = append(a.closers, sqlDB.Close)
		}
		a.Health.Register("postgres", health.CheckerFunc(sqlDB.PingContext))
		a.JobsRepo = &jobs.PGRepo{DB: sqlDB}
		a.ApplicationsRepo = &applications.PGRepo{DB: sqlDB}
	} else if strings.TrimSpace(cfg.MongoURI) != "" {
		client, err := mongostore.Connect(ctx, cfg.MongoURI)
		if err != nil {
			if !config.IsDevLike(cfg.Env) {
				return fmt.Errorf("mongo connect: %w", err)
			}
			telemetry.Warn("bootstrap.mongo_unavailable", map[string]any{"error": err.Error()})
		} else {
			a.Mongo = client
			a.closers = append(a.closers, func() error { return client.Disconnect(context.Background()) })
			a.Health.Register("mongo", health.CheckerFunc(func(ctx context.Context) error { return client.Ping(ctx, nil) }))
			database := client.Database(cfg.MongoDatabase)
			jobRepo := jobs.NewMongoRepo(database)
			appRepo := applications.NewMongoRepo(database)
			if err := jobRepo.EnsureIndexes(ctx); err != nil {
				return fmt.Errorf("jobs indexes: %w", err)
			}
			if err := appRepo.EnsureIndexes(ctx); err != nil {
				return fmt.Errorf("applications indexes: %w", err)
			}
			a.JobsRepo = jobRepo
			a.ApplicationsRepo = appRepo
		}
	}
	if a.JobsRepo == nil {
		if !config.IsDevLike(cfg.Env) {
			return errors.New("DATABASE_URL or MONGO_URI is required")
		}
		telemetry.Info("bootstrap.memory_repos", map[string]any{"env": cfg.Env})
		a.JobsRepo = jobs.NewMemoryRepo()
		a.ApplicationsRepo = applications.NewMemoryRepo()
	}

	if strings.TrimSpace(cfg.RedisURL) != "" {
		rdb, err := cache.Dial(ctx, cfg.RedisURL)
		if err != nil {
			telemetry.Warn("bootstrap.redis_unavailable", map[string]any{"error": err.Error()})
		} else {
			a.Redis = rdb
			a.closers = append(a.closers, rdb.Close)
			redisCache := cache.NewRedisCache(rdb)
			a.Health.Register("redis", redisCache)
			a.JobsRepo = &jobs.CachedRepo{Next: a.JobsRepo, Cache: redisCache, TTL: cfg.JobCacheTTL}
		}
	}
	return nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, nil
	}

	sqlDB, err := db.Open(ctx, cfg.DatabaseURL, db.ProfileForRuntime())
	if err != nil {
		if config.IsDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.database_unavailable", map[string]any{"error": err.Error()})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func (a *App) buildDocuments(ctx context.Context) error {
	cfg := a.Config
	fetcher := &documents.Fetcher{
		Buckets:      map[string]documents.LocationOpener{},
		AllowedHosts: cfg.DocumentFetchHosts,
	}

	switch cfg.ObjectStoreType {
	case "s3":
		store, err := s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
		if err != nil {
			return err
		}
		a.Store = store
		fetcher.Buckets[object.SchemeS3] = store
	case "gcs":
		store, err := gcsstore.New(ctx, cfg.GCSBucket, cfg.GCSPrefix)
		if err != nil {
			return err
		}
		a.Store = store
		a.closers = append(a.closers, store.Close)
		fetcher.Buckets[object.SchemeGCS] = store
	default:
		a.Store = localstore.New(cfg.LocalStoreDir)
	}
	// Local URLs resolve only against a local store.
	if _, ok := a.Store.(*localstore.Store); ok {
		fetcher.Local = a.Store
	}

	a.Fetcher = fetcher
	a.Documents = &documents.Service{Store: a.Store}
	return nil
}

func (a *App) buildPipeline(ctx context.Context) error {
	cfg := a.Config
	p := cfg.Pipeline

	var rec ocr.Recognizer
	if strings.TrimSpace(cfg.OCRServiceURL) != "" {
		rec = ocr.NewHTTPClient(cfg.OCRServiceURL, 0)
	}
	a.Extractor = extract.New(rec, ocr.Options{Zoom: p.OCRZoom, Languages: p.OCRLanguages})

	submitOracle, provider, model, err := buildOracle(ctx, cfg, cfg.LLMProvider, cfg.LLMModel)
	if err != nil {
		return err
	}
	a.Scorer = newScorer(p, submitOracle, provider, model)
	a.Recomputer = a.Scorer

	recProvider, recModel := recomputeOracleSettings(cfg)
	if recProvider != cfg.LLMProvider || recModel != cfg.LLMModel {
		recomputeOracle, provider, model, err := buildOracle(ctx, cfg, recProvider, recModel)
		if err != nil {
			return err
		}
		a.Recomputer = newScorer(p, recomputeOracle, provider, model)
	}
	return nil
}

// recomputeOracleSettings resolves the recompute provider and model. Unset
// values inherit the submission oracle; a different provider starts from its
// own default model.
func recomputeOracleSettings(cfg config.Config) (provider, model string) {
	provider, model = cfg.RecomputeLLMProvider, strings.TrimSpace(cfg.RecomputeLLMModel)
	if provider == "" {
		provider = cfg.LLMProvider
	}
	if model == "" && provider == cfg.LLMProvider {
		model = cfg.LLMModel
	}
	return provider, model
}

func newScorer(p config.Pipeline, oracle llm.Completer, provider, model string) *scoring.Scorer {
	return &scoring.Scorer{
		Adapter:     &scoring.Adapter{Oracle: oracle, CallTimeout: p.OracleCallTimeout},
		ChunkSize:   p.ChunkSize,
		Concurrency: p.Concurrency,
		Provider:    provider,
		Model:       model,
	}
}

// buildOracle returns the completer for provider. Missing keys and unknown
// providers fall back to llm.Unconfigured in dev-like environments and fail
// elsewhere; only an explicit "none" disables the oracle in production.
func buildOracle(ctx context.Context, cfg config.Config, provider, model string) (llm.Completer, string, string, error) {
	var (
		base llm.Completer
		name string
		err  error
	)
	switch provider {
	case "openai":
		var c *openai.Client
		c, err = openai.NewClient(cfg.OpenAIAPIKey, model)
		if err == nil {
			base, name = c, c.Model()
		}
	case "gemini":
		var c *gemini.Client
		c, err = gemini.NewClient(ctx, cfg.GeminiAPIKey, model)
		if err == nil {
			base, name = c, c.Model()
		}
	case "none":
		return llm.Unconfigured{}, "none", "", nil
	default:
		err = fmt.Errorf("unknown LLM provider %q", provider)
	}
	if err != nil {
		if config.IsDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.oracle_unconfigured", map[string]any{"provider": provider, "error": err.Error()})
			return llm.Unconfigured{}, provider, model, nil
		}
		return nil, "", "", fmt.Errorf("%s oracle: %w", provider, err)
	}
	return llm.WithRetry(base, oracleRetryAttempts, oracleRetryDelay), provider, name, nil
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.QueueURL) == "" {
		return nil, nil
	}
	client, err := queue.NewSQSClient(ctx, cfg.QueueURL, cfg.AWSRegion)
	if err != nil {
		return nil, err
	}
	return client, nil
}
