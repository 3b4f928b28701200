package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
	goredis "github.com/redis/go-redis/v9"

	"docextract-backend/internal/analysis"
	"docextract-backend/internal/documents"
	"docextract-backend/internal/extract"
	"docextract-backend/internal/extractions"
	"docextract-backend/internal/llm"
	openai "docextract-backend/internal/llm/openai"
	"docextract-backend/internal/ocr"
	"docextract-backend/internal/pipeline"
	"docextract-backend/internal/queue"
	"docextract-backend/internal/services/health"
	"docextract-backend/internal/shared/config"
	"docextract-backend/internal/shared/server"
	"docextract-backend/internal/shared/server/middleware"
	"docextract-backend/internal/shared/storage/db"
	"docextract-backend/internal/shared/storage/object"
	localstore "docextract-backend/internal/shared/storage/object/local"
	s3store "docextract-backend/internal/shared/storage/object/s3"
	redisstore "docextract-backend/internal/shared/storage/redis"
	"docextract-backend/internal/shared/telemetry"
	"docextract-backend/internal/workerproc"
)

// Role selects which process is being assembled.
type Role int

const (
	// RoleAPI builds the HTTP server and the job producer.
	RoleAPI Role = iota
	// RoleWorker builds only what a broker consumer needs to execute runs.
	RoleWorker
)

// App holds shared dependencies.
type App struct {
	Config config.Config
	Router *gin.Engine
	// HTTPHandler is Router wrapped with the CORS policy.
	HTTPHandler http.Handler

	DB     *sql.DB
	Redis  *goredis.Client
	Broker *amqp.Connection
	Store  object.Store

	DocumentsRepo   documents.Repo
	ExtractionsRepo extractions.Repo

	DocumentsService *documents.Service
	Controller       *pipeline.Controller
	AnalysisService  *analysis.Service
	Health           *health.Service

	// Pool runs background extractions in-process when no broker is configured.
	Pool *queue.Pool
	// JobHandler adapts the controller to any queue backend.
	JobHandler queue.Handler
}

// Build prepares shared dependencies and, for RoleAPI, the router.
func Build(cfg config.Config, role Role) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	app := &App{Config: cfg, Health: health.NewService()}

	sqlDB, err := buildDB(ctx, cfg, role)
	if err != nil {
		return nil, err
	}
	app.DB = sqlDB
	if sqlDB != nil {
		app.Health.Add(health.Database(sqlDB))
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.Store = store

	if err := buildServices(app); err != nil {
		return nil, err
	}

	if role == RoleWorker {
		return app, nil
	}

	if err := buildJobs(ctx, app); err != nil {
		return nil, err
	}
	limiter, err := buildLimiter(ctx, app)
	if err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:  cfg,
		Health:  app.Health,
		Limiter: limiter,
		Handlers: []server.RouteRegistrar{
			documents.NewHandler(app.DocumentsService, app.Controller),
			pipeline.NewHandler(app.Controller),
			analysis.NewHandler(app.AnalysisService),
		},
	})
	app.HTTPHandler = server.Handler(cfg, app.Router)
	return app, nil
}

// Close releases external connections.
func (a *App) Close() {
	if a.Broker != nil {
		_ = a.Broker.Close()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}

func buildDB(ctx context.Context, cfg config.Config, role Role) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if role == RoleWorker {
		sqlDB, err = db.Shared(ctx, cfg.DatabaseURL, db.OptionsFor(db.ProfileWorker))
	} else {
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, db.OptionsFor(db.ProfileServer))
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": "database connect failed", "error": err.Error()})
			return nil, nil
		}
		return nil, err
	}

	if isDevLike(cfg.Env) {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.Store, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID, cfg.S3CacheDir)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildServices(app *App) error {
	cfg := app.Config

	settings := extract.DefaultSettings()
	if path := strings.TrimSpace(cfg.Extraction.SettingsFile); path != "" {
		loaded, err := extract.LoadSettings(path)
		if err != nil {
			return fmt.Errorf("load extraction settings: %w", err)
		}
		settings = loaded
	}
	pre := ocr.New(ocr.Config{
		Binary:        cfg.OCR.OCRMyPDFPath,
		UnpaperBinary: cfg.OCR.UnpaperPath,
		TesseractPath: cfg.OCR.TesseractPath,
		Language:      cfg.OCR.Language,
		Timeout:       cfg.OCR.Timeout,
		ProbeTimeout:  cfg.OCR.ProbeTimeout,
	}, ocr.ExecRunner{})

	var (
		docRepo documents.Repo
		rowRepo extractions.Repo
		writer  pipeline.ResultWriter
		cascade func(ctx context.Context, documentID string) error
	)
	if app.DB != nil {
		docRepo = &documents.PGRepo{DB: app.DB}
		rowRepo = &extractions.PGRepo{DB: app.DB}
		writer = &pipeline.PGWriter{DB: app.DB, KeepHistory: cfg.Extraction.KeepHistory}
	} else {
		memDocs := documents.NewMemoryRepo()
		memRows := extractions.NewMemoryRepo()
		docRepo, rowRepo = memDocs, memRows
		writer = &pipeline.MemoryWriter{Docs: memDocs, Extractions: memRows, KeepHistory: cfg.Extraction.KeepHistory}
		cascade = func(ctx context.Context, documentID string) error {
			_, err := memRows.DeleteByDocument(ctx, documentID)
			return err
		}
	}

	llmClient, err := buildLLM(cfg)
	if err != nil {
		return err
	}

	app.DocumentsRepo = docRepo
	app.ExtractionsRepo = rowRepo
	app.DocumentsService = &documents.Service{
		Store:           app.Store,
		Repo:            docRepo,
		StorageProvider: cfg.ObjectStoreType,
		MaxBytes:        cfg.UploadMaxBytes,
		Cascade:         cascade,
	}
	app.Controller = &pipeline.Controller{
		Docs:        docRepo,
		Extractions: rowRepo,
		Files:       app.Store,
		Engine:      extract.New(pre, settings),
		Writer:      writer,
		ForceOCR:    cfg.OCR.Force,
	}
	app.AnalysisService = &analysis.Service{
		Docs:        docRepo,
		Extractions: rowRepo,
		LLM:         llmClient,
	}
	app.JobHandler = workerproc.Handler(app.Controller)
	return nil
}

// buildJobs picks the background execution backend: RabbitMQ when configured, otherwise
// an in-process pool the API process runs itself.
func buildJobs(ctx context.Context, app *App) error {
	cfg := app.Config
	if strings.TrimSpace(cfg.RabbitMQURL) != "" {
		conn, err := queue.Dial(ctx, cfg.RabbitMQURL)
		if err != nil {
			return err
		}
		publisher := queue.NewPublisher(conn, cfg.RabbitMQQueue)
		app.Broker = conn
		app.Controller.Jobs = publisher
		app.Health.Add(health.Broker(publisher))
		return nil
	}
	app.Pool = queue.NewPool(cfg.Worker.Concurrency, cfg.Worker.QueueSize, cfg.Worker.JobTimeout, app.JobHandler)
	app.Controller.Jobs = app.Pool
	return nil
}

func buildLimiter(ctx context.Context, app *App) (middleware.WindowLimiter, error) {
	cfg := app.Config
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		return middleware.NewMemoryWindow(time.Now), nil
	}
	client, err := redisstore.Connect(ctx, redisstore.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_rate_limiter", map[string]any{"error": err.Error()})
			return middleware.NewMemoryWindow(time.Now), nil
		}
		return nil, err
	}
	app.Redis = client
	app.Health.Add(health.Redis(client))
	return middleware.NewRedisWindow(client, "ratelimit:", time.Now), nil
}

func buildLLM(cfg config.Config) (llm.Client, error) {
	if cfg.LLMProvider != "openai" {
		return llm.PlaceholderClient{}, nil
	}
	key := os.Getenv("OPENAI_API_KEY")
	if strings.TrimSpace(key) == "" && isDevLike(cfg.Env) {
		telemetry.Warn("bootstrap.llm_disabled", map[string]any{"reason": "OPENAI_API_KEY empty"})
		return llm.PlaceholderClient{}, nil
	}
	return openai.NewClient(key, cfg.LLMModel, cfg.OpenAIBaseURL)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local", "test":
		return true
	default:
		return false
	}
}
