package di

import (
	"context"
	"fmt"
	"time"

	"LoserLab/internal/domain/repository"
	domsvc "LoserLab/internal/domain/service"
	"LoserLab/internal/handler/api"
	internalrepo "LoserLab/internal/repository"
	"LoserLab/internal/service/ratelimit"
	"LoserLab/internal/services/scoring"
	"LoserLab/internal/usecase"
	"LoserLab/pkg/cache"
	pkgch "LoserLab/pkg/clickhouse"
	"LoserLab/pkg/config"
	xhttp "LoserLab/pkg/http"
	pkgkafka "LoserLab/pkg/kafka"
	applogger "LoserLab/pkg/logger"
	"LoserLab/pkg/metrics"
	"LoserLab/pkg/server"
)

const initTimeout = 30 * time.Second

// ProvideLogger creates the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideClickHouseClient creates a ClickHouse client when a configured
// backend needs one and returns nil otherwise.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.NeedsClickHouse() {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithAddr(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithPool(cfg.Backtest.LoadWorkers, cfg.Backtest.LoadWorkers/2, 0),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer for the kafka backend and
// returns nil otherwise.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if cfg.Backend.Type != usecase.BackendKafka {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithDelivery(cfg.Kafka.RequiredAcks, cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideCache creates the Redis backed layered cache, or nil when Redis is disabled.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(rc,
		cache.WithLayeredMemorySize(cfg.Redis.L1Size),
		cache.WithLayeredMemoryTTL(cfg.Redis.SeriesTTL),
	), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvidePriceStore selects the price store, seeds it from the configured CSV
// and puts the cache in front of it when one is available.
func ProvidePriceStore(cfg *config.Config, ch *pkgch.Client, c cache.Service, l *applogger.Logger) (repository.PriceStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()

	var (
		store  repository.PriceStore
		writer repository.PriceWriter
	)
	switch cfg.Backend.Prices {
	case "clickhouse":
		chs := internalrepo.NewCHPriceStore(ch)
		chs.SetLogger(l)
		if err := chs.Init(ctx); err != nil {
			return nil, fmt.Errorf("price schema: %w", err)
		}
		store, writer = chs, chs
	default:
		mem := internalrepo.NewMemoryPriceStore()
		store, writer = mem, mem
	}

	if c != nil {
		cached := internalrepo.NewCachedPriceStore(store, c, cfg.Redis.SeriesTTL)
		cached.SetLogger(l)
		store, writer = cached, cached
	}

	if cfg.Backend.PricesFile != "" {
		n, err := internalrepo.ImportPrices(ctx, cfg.Backend.PricesFile, writer)
		if err != nil {
			return nil, fmt.Errorf("import prices: %w", err)
		}
		l.Info("prices imported", applogger.String("file", cfg.Backend.PricesFile), applogger.Int("bars", n))
	}
	return store, nil
}

func ProvideUniverse(cfg *config.Config) repository.UniverseSource {
	return internalrepo.NewCSVUniverse(cfg.Universe.File, cfg.Universe.Exclude)
}

// ProvideMetadata loads the metadata CSV. A missing file leaves every ticker
// with default attributes.
func ProvideMetadata(cfg *config.Config, l *applogger.Logger) (repository.MetadataCatalog, error) {
	if cfg.Metadata.File == "" {
		l.Warn("no metadata file configured")
		return internalrepo.NewStaticMetadata(nil), nil
	}
	meta, err := internalrepo.LoadCSVMetadata(cfg.Metadata.File)
	if err != nil {
		return nil, fmt.Errorf("metadata: %w", err)
	}
	l.Info("metadata loaded", applogger.String("file", cfg.Metadata.File), applogger.Int("tickers", meta.Len()))
	return meta, nil
}

// ProvideRunStore persists runs in ClickHouse for that backend. Other backends
// keep runs and saved models in memory.
func ProvideRunStore(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger) repository.RunStore {
	if cfg.Backend.Type == usecase.BackendClickHouse {
		s := internalrepo.NewCHRunStore(ch)
		s.SetLogger(l)
		return s
	}
	return internalrepo.NewMemoryRunStore()
}

// ProvidePublisher creates the Kafka run publisher, or nil without a producer.
func ProvidePublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.RunTopic, cfg.Kafka.PicksTopic)
}

func ProvideResultSink(pub repository.Publisher, store repository.RunStore, m repository.Metrics, cfg *config.Config) *usecase.ResultSink {
	return usecase.NewResultSink(pub, store, m, cfg.Backend.Type)
}

func ProvideSuggester(cfg *config.Config) (domsvc.WeightSuggester, error) {
	return scoring.NewSuggester(cfg.Scoring.SuggestMode)
}

func ProvideBacktester(
	prices repository.PriceStore,
	universe repository.UniverseSource,
	meta repository.MetadataCatalog,
	suggester domsvc.WeightSuggester,
	m repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.Backtester {
	return usecase.NewBacktester(prices, universe, meta,
		usecase.WithBenchmark(cfg.Backtest.Benchmark),
		usecase.WithWorkers(cfg.Backtest.Workers),
		usecase.WithLoadWorkers(cfg.Backtest.LoadWorkers),
		usecase.WithSuggester(suggester),
		usecase.WithMetrics(m),
		usecase.WithLogger(l),
	)
}

func ProvideJobManager(bt *usecase.Backtester, sink *usecase.ResultSink, m repository.Metrics, l *applogger.Logger, cfg *config.Config) *usecase.JobManager {
	jobs := usecase.NewJobManager(bt, sink, m, l)
	jobs.SetRunTimeout(cfg.Backtest.RunTimeout)
	return jobs
}

func ProvideModelsUseCase(store repository.RunStore, jobs *usecase.JobManager, cfg *config.Config) *usecase.ModelsUseCase {
	return usecase.NewModelsUseCase(store, jobs, cfg.Scoring.Threshold)
}

func ProvideDataUseCase(universe repository.UniverseSource, meta repository.MetadataCatalog) *usecase.DataUseCase {
	return usecase.NewDataUseCase(universe, meta)
}

func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.RateLimit.RunsPerMinute, cfg.RateLimit.Burst)
}

// ProvideHandlers collects every HTTP handler the server registers.
func ProvideHandlers(
	cfg *config.Config,
	l *applogger.Logger,
	jobs *usecase.JobManager,
	mu *usecase.ModelsUseCase,
	data *usecase.DataUseCase,
	rl *ratelimit.Limiter,
	store repository.RunStore,
	ch *pkgch.Client,
	c cache.Service,
) []xhttp.Handler {
	health := api.NewHealthHandler().Register("run_store", store.Health)
	if ch != nil {
		health.Register("clickhouse", ch.Health)
	}
	if c != nil {
		health.Register("redis", c.Ping)
	}
	return []xhttp.Handler{
		api.NewTrainingHandler(l, jobs, rl, cfg.Backtest.HoldYears),
		api.NewAnalysisHandler(l, jobs, mu, rl, cfg.Backtest.HoldYears),
		api.NewModelsHandler(l, mu),
		api.NewDataHandler(l, data),
		health,
	}
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	jobs *usecase.JobManager,
	sink *usecase.ResultSink,
	store repository.RunStore,
	ch *pkgch.Client,
	c cache.Service,
	handlers []xhttp.Handler,
) *server.App {
	return server.New(cfg, l, jobs, sink, store, ch, c, handlers)
}
