package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	"neutralnews/internal/domain/entity"
	"neutralnews/internal/infra/adapter/persistence/postgres"
	"neutralnews/internal/infra/db"
	"neutralnews/internal/infra/extractor"
	"neutralnews/internal/infra/feed"
	"neutralnews/internal/infra/llm"
	"neutralnews/internal/infra/robots"
	workerPkg "neutralnews/internal/infra/worker"
	"neutralnews/internal/observability/logging"
	"neutralnews/internal/observability/metrics"
	"neutralnews/internal/observability/tracing"
	"neutralnews/internal/usecase/embedding"
	"neutralnews/internal/usecase/grouping"
	"neutralnews/internal/usecase/ingest"
	"neutralnews/internal/usecase/neutralize"
	"neutralnews/internal/usecase/retention"
	"neutralnews/pkg/ratelimit"
)

// retentionTimeout bounds one cleanup pass. Retention only issues a
// handful of bulk deletes, so it finishes in seconds when healthy.
const retentionTimeout = 10 * time.Minute

// pipeline bundles the four stages one scheduled pass runs in order.
type pipeline struct {
	ingest     *ingest.Service
	embedding  *embedding.Service
	grouping   *grouping.Service
	neutralize *neutralize.Service
}

func main() {
	logger := initLogger()
	database := initDatabase(logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing := tracing.Init("neutralnews-worker")
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Error("failed to shut down tracing", slog.Any("error", err))
		}
	}()

	workerMetrics := workerPkg.NewWorkerMetrics()
	workerMetrics.MustRegister()
	workerConfig, err := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	if err != nil {
		logger.Error("failed to load worker configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker configuration loaded",
		slog.String("pipeline_cron", workerConfig.PipelineCron),
		slog.String("retention_cron", workerConfig.RetentionCron),
		slog.String("timezone", workerConfig.Timezone),
		slog.Duration("pipeline_timeout", workerConfig.PipelineTimeout),
		slog.Int("health_port", workerConfig.HealthPort))
	if region := os.Getenv("DEPLOY_REGION"); region != "" {
		logger.Info("deploy region", slog.String("region", region))
	}

	startMetricsServer(ctx, logger)

	healthAddr := fmt.Sprintf(":%d", workerConfig.HealthPort)
	healthServer := workerPkg.NewHealthServer(healthAddr, logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()
	logger.Info("health check server started", slog.String("addr", healthAddr))

	pipe, retentionSvc := setupServices(logger, database)

	startCronWorker(logger, pipe, retentionSvc, workerConfig, workerMetrics, healthServer)
}

// initLogger installs the structured JSON logger as the process default.
func initLogger() *slog.Logger {
	logger := logging.NewLogger()
	slog.SetDefault(logger)
	return logger
}

// initDatabase opens the connection pool and applies pending migrations.
func initDatabase(logger *slog.Logger) *sql.DB {
	database := db.Open()
	if err := db.MigrateUp(database); err != nil {
		logger.Error("failed to apply migrations", slog.Any("error", err))
		os.Exit(1)
	}
	return database
}

// setupServices wires every pipeline stage and the retention job against
// one shared database connection.
func setupServices(logger *slog.Logger, database *sql.DB) (*pipeline, *retention.Service) {
	articleRepo := postgres.NewArticleRepo(database)
	groupRepo := postgres.NewNeutralGroupRepo(database)

	registry, err := entity.Registry(os.Getenv("OUTLET_LIST"))
	if err != nil {
		logger.Error("failed to load outlet registry", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("outlet registry loaded", slog.Int("outlets", len(registry)))

	httpClient := createHTTPClient()
	gate := robots.NewGate(httpClient, logger, feed.UserAgent)
	feedFetcher := feed.NewFetcher(httpClient, gate, logger)

	extractorConfig, err := extractor.LoadConfigFromEnv()
	if err != nil {
		logger.Warn("invalid extractor configuration, using defaults", slog.Any("error", err))
		extractorConfig = extractor.DefaultConfig()
	}
	bodyExtractor := extractor.New(extractorConfig)

	ingestSvc := ingest.NewService(
		articleRepo,
		&feedFetcherAdapter{fetcher: feedFetcher},
		bodyExtractor,
		&bodyGateAdapter{checker: gate},
		registry,
		ingest.Config{},
	)

	callMetrics := llm.NewPrometheusCallMetrics()

	openAIConfig, err := llm.LoadOpenAIConfig()
	if err != nil {
		logger.Error("failed to load OpenAI configuration", slog.Any("error", err))
		os.Exit(1)
	}
	openAIClient := llm.NewOpenAI(openAIConfig, callMetrics)

	embeddingSvc := embedding.NewService(articleRepo, openAIClient, embedding.Config{})
	groupingSvc := grouping.NewService(articleRepo, groupRepo)

	chat := createNeutralizer(logger, openAIClient, callMetrics)
	limiter := ratelimit.New(
		ratelimit.LoadConfigFromEnv(),
		ratelimit.NewPrometheusMetrics(prometheus.DefaultRegisterer),
	)
	neutralizeSvc := neutralize.NewService(articleRepo, groupRepo, chat, limiter)

	retentionSvc := retention.NewService(articleRepo, groupRepo, retention.Config{})

	return &pipeline{
		ingest:     ingestSvc,
		embedding:  embeddingSvc,
		grouping:   groupingSvc,
		neutralize: neutralizeSvc,
	}, retentionSvc
}

// createNeutralizer selects the chat provider from NEUTRALIZER_TYPE.
// Embeddings always go through OpenAI regardless of this choice.
func createNeutralizer(logger *slog.Logger, openAIClient *llm.OpenAI, callMetrics *llm.PrometheusCallMetrics) llm.ChatClient {
	neutralizerType := os.Getenv("NEUTRALIZER_TYPE")
	if neutralizerType == "" {
		neutralizerType = "openai"
	}

	switch neutralizerType {
	case "openai":
		logger.Info("using OpenAI for neutralization", slog.String("type", "openai"))
		return openAIClient
	case "claude":
		claudeConfig, err := llm.LoadClaudeConfig()
		if err != nil {
			logger.Error("failed to load Claude configuration", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("using Claude for neutralization", slog.String("type", "claude"))
		return llm.NewClaude(claudeConfig, callMetrics)
	default:
		logger.Error("invalid NEUTRALIZER_TYPE",
			slog.String("type", neutralizerType),
			slog.String("expected", "openai or claude"))
		os.Exit(1)
		return nil
	}
}

// createHTTPClient creates the shared HTTP client for feed and robots.txt
// requests. TLS 1.2+ is enforced.
func createHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
}

// feedFetcherAdapter maps feed items onto the ingest port.
type feedFetcherAdapter struct {
	fetcher *feed.Fetcher
}

func (a *feedFetcherAdapter) FetchOutlet(ctx context.Context, outlet entity.Outlet, feedURL string) []ingest.FeedItem {
	items := a.fetcher.FetchOutlet(ctx, outlet, feedURL)
	out := make([]ingest.FeedItem, 0, len(items))
	for _, item := range items {
		out = append(out, ingest.FeedItem{
			Title:       item.Title,
			Link:        item.Link,
			Description: item.Description,
			Category:    item.Category,
			ImageURL:    item.ImageURL,
			PubDate:     item.PubDate,
		})
	}
	return out
}

// bodyGateAdapter binds the robots checker to the body-scrape purpose.
type bodyGateAdapter struct {
	checker robots.Checker
}

func (a *bodyGateAdapter) Allow(ctx context.Context, rawURL string) bool {
	return a.checker.Allow(ctx, rawURL, robots.PurposeBody)
}

func (a *bodyGateAdapter) Wait(ctx context.Context, rawURL string) error {
	return a.checker.Wait(ctx, rawURL)
}

// startCronWorker schedules the pipeline and retention jobs and blocks
// forever. A shared mutex keeps the two jobs from overlapping.
func startCronWorker(logger *slog.Logger, pipe *pipeline, retentionSvc *retention.Service, cfg *workerPkg.WorkerConfig, workerMetrics *workerPkg.WorkerMetrics, healthServer *workerPkg.HealthServer) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("invalid timezone, using UTC", slog.String("timezone", cfg.Timezone), slog.Any("error", err))
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))

	var jobMu sync.Mutex

	_, err = c.AddFunc(cfg.PipelineCron, func() {
		jobMu.Lock()
		defer jobMu.Unlock()
		runPipelineJob(logger, pipe, cfg, workerMetrics)
	})
	if err != nil {
		logger.Error("failed to schedule pipeline job", slog.Any("error", err))
		os.Exit(1)
	}

	_, err = c.AddFunc(cfg.RetentionCron, func() {
		jobMu.Lock()
		defer jobMu.Unlock()
		runRetentionJob(logger, retentionSvc, workerMetrics)
	})
	if err != nil {
		logger.Error("failed to schedule retention job", slog.Any("error", err))
		os.Exit(1)
	}

	c.Start()

	healthServer.SetReady(true)
	logger.Info("worker started",
		slog.String("pipeline_schedule", cfg.PipelineCron),
		slog.String("retention_schedule", cfg.RetentionCron),
		slog.String("timezone", cfg.Timezone))
	select {}
}

// runPipelineJob executes one full pass: ingest, embed, group, neutralize.
// A stage failure aborts the pass; later stages would only see stale data.
func runPipelineJob(logger *slog.Logger, pipe *pipeline, cfg *workerPkg.WorkerConfig, workerMetrics *workerPkg.WorkerMetrics) {
	startTime := time.Now()
	workerMetrics.RecordJobRun("pipeline", "started")
	logger.Info("pipeline started")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.PipelineTimeout)
	defer cancel()

	stages := []struct {
		name string
		run  func(context.Context) error
	}{
		{"ingest", func(ctx context.Context) error {
			_, err := pipe.ingest.Run(ctx)
			return err
		}},
		{"embedding", func(ctx context.Context) error {
			_, err := pipe.embedding.Run(ctx)
			return err
		}},
		{"grouping", func(ctx context.Context) error {
			_, err := pipe.grouping.Run(ctx)
			return err
		}},
		{"neutralize", func(ctx context.Context) error {
			_, err := pipe.neutralize.Run(ctx)
			return err
		}},
	}

	for _, stage := range stages {
		stageStart := time.Now()
		err := stage.run(ctx)
		metrics.RecordOperationDuration(stage.name, time.Since(stageStart))
		if err != nil {
			logger.Error("pipeline stage failed",
				slog.String("stage", stage.name),
				slog.Any("error", err))
			workerMetrics.RecordJobRun("pipeline", "failure")
			workerMetrics.RecordJobDuration("pipeline", time.Since(startTime).Seconds())
			return
		}
	}

	workerMetrics.RecordJobRun("pipeline", "success")
	workerMetrics.RecordJobDuration("pipeline", time.Since(startTime).Seconds())
	workerMetrics.RecordLastSuccess("pipeline")
	logger.Info("pipeline completed", slog.Duration("duration", time.Since(startTime)))
}

// runRetentionJob executes one cleanup pass.
func runRetentionJob(logger *slog.Logger, svc *retention.Service, workerMetrics *workerPkg.WorkerMetrics) {
	startTime := time.Now()
	workerMetrics.RecordJobRun("retention", "started")
	logger.Info("retention started")

	ctx, cancel := context.WithTimeout(context.Background(), retentionTimeout)
	defer cancel()

	stats, err := svc.Run(ctx)
	if err != nil {
		logger.Error("retention failed", slog.Any("error", err))
		workerMetrics.RecordJobRun("retention", "failure")
		workerMetrics.RecordJobDuration("retention", time.Since(startTime).Seconds())
		return
	}

	workerMetrics.RecordJobRun("retention", "success")
	workerMetrics.RecordJobDuration("retention", time.Since(startTime).Seconds())
	workerMetrics.RecordLastSuccess("retention")
	logger.Info("retention completed",
		slog.Int("protected", stats.Protected),
		slog.Int("articles_deleted", stats.ArticlesDeleted),
		slog.Int("groups_deleted", stats.GroupsDeleted),
		slog.Duration("duration", stats.Duration))
}
