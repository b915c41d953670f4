package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"ForecastBench/internal/domain/models"
	"ForecastBench/internal/domain/repository"
	"ForecastBench/internal/handler/api"
	mid "ForecastBench/internal/middleware"
	internalrepo "ForecastBench/internal/repository"
	"ForecastBench/internal/scoring"
	"ForecastBench/internal/service/modelgw"
	"ForecastBench/internal/service/resolver"
	"ForecastBench/internal/usecase"
	pkgcache "ForecastBench/pkg/cache"
	pkgch "ForecastBench/pkg/clickhouse"
	"ForecastBench/pkg/config"
	pkgkafka "ForecastBench/pkg/kafka"
	applogger "ForecastBench/pkg/logger"
	"ForecastBench/pkg/metrics"
	pkgqueue "ForecastBench/pkg/queue"
	"ForecastBench/pkg/server"

	"github.com/redis/go-redis/v9"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	format := "console"
	if cfg.Environment == "production" {
		format = "json"
	}
	return applogger.New(&applogger.Config{Level: "info", Format: format, Output: "stdout"})
}

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + cfg.ClickHouse.Database,
	}); err != nil {
		_ = client.Close() // cannot log here (DI layer no logger); propagate error
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return producer, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideOutcomeStorage creates ClickHouse storage and ensures its tables exist.
func ProvideOutcomeStorage(chClient *pkgch.Client, cfg *config.Config) (repository.Storage, error) {
	st := internalrepo.NewClickHouseStorage(
		chClient.DB(),
		cfg.ClickHouse.Database+".round_outcomes",
		cfg.ClickHouse.Database+".label_resolutions",
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := st.Init(ctx); err != nil {
		return nil, fmt.Errorf("storage init: %w", err)
	}
	return st, nil
}

// ProvideOutcomePublisher creates Kafka publisher repository.
func ProvideOutcomePublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaOutcomesHandler registers handler for the round outcomes topic.
func ProvideKafkaOutcomesHandler(store repository.Storage, metrics repository.Metrics, cfg *config.Config) *usecase.KafkaOutcomesHandler {
	return usecase.NewKafkaOutcomesHandler(cfg.Kafka.Topic, store, metrics)
}

// ProvideResolverStream creates the resolver WebSocket stream.
func ProvideResolverStream(cfg *config.Config) repository.LabelStream {
	return resolver.New(
		cfg.Resolver.APIKey,
		cfg.Resolver.WebSocketURL,
		models.AllHorizons(),
		cfg.Resolver.ReconnectDelay,
		cfg.Resolver.PingInterval,
	)
}

// ProvideModelGateways creates one HTTP gateway per configured model endpoint.
func ProvideModelGateways(cfg *config.Config) []*modelgw.Gateway {
	gws := make([]*modelgw.Gateway, 0, len(cfg.Models))
	for _, m := range cfg.Models {
		gws = append(gws, modelgw.New(m.ID, m.URL, m.Timeout))
	}
	return gws
}

// ProvideThresholds maps the benchmark config onto scoring thresholds.
func ProvideThresholds(cfg *config.Config) scoring.Thresholds {
	th := scoring.DefaultThresholds()
	b := cfg.Benchmark

	th.MinCoverage = b.Validity.MinCoverage
	th.MaxFailureRate = b.Validity.MaxFailureRate
	th.MaxUniqueP = b.Validity.MaxUniqueP
	th.MaxPStdDev = b.Validity.MaxPStdDev
	th.MaxExtremeWrongRate = b.Validity.MaxExtremeWrongRate
	th.ExtremeHigh = b.Validity.ExtremeHigh
	th.ExtremeLow = b.Validity.ExtremeLow

	th.Policy = b.Qualification.Policy
	th.PrevalenceMargin = b.Qualification.PrevalenceMargin
	th.RandomEdge = b.Qualification.RandomEdge
	th.TopFraction = b.Qualification.TopFraction
	th.MinInformativeBest = b.Qualification.MinInformativeBest

	th.Window = b.Stability.Window
	th.RegretLimit = b.Stability.RegretLimit
	th.StabilityFactor = b.Stability.StabilityFactor

	th.Alpha = b.Ensemble.Alpha
	th.MinModels = b.Ensemble.MinModels

	th.MinArenaRounds = b.Invariants.MinArenaRounds
	th.MinMinorityLabels = b.Invariants.MinMinorityLabels
	th.MinPrevalence = b.Invariants.MinPrevalence
	th.MaxPrevalence = b.Invariants.MaxPrevalence

	return th
}

// ProvideOutcomeProcessor creates the outcome processor use case.
func ProvideOutcomeProcessor(
	pub repository.Publisher,
	store repository.Storage,
	metrics repository.Metrics,
	cfg *config.Config,
) *usecase.OutcomeProcessor {
	return usecase.NewOutcomeProcessor(
		pub,
		store,
		metrics,
		cfg.Backend.Type,
		cfg.Backend.BatchSize,
		cfg.Backend.BatchTimeout,
	)
}

// ProvideBenchmark creates the benchmark engine, replaying any persisted
// history so restarts continue from the last recorded round.
func ProvideBenchmark(
	cfg *config.Config,
	th scoring.Thresholds,
	proc *usecase.OutcomeProcessor,
	store repository.Storage,
	metrics repository.Metrics,
	l *applogger.Logger,
) *usecase.Benchmark {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	histories, err := store.LoadHistories(ctx)
	if err != nil {
		l.Warn("history load failed, starting empty", applogger.Error(err))
		histories = nil
	}
	return usecase.NewBenchmark(histories, th, proc, metrics, l, cfg.Cache.TTL)
}

// ProvideQueue creates the Redis job queue and attaches it to the benchmark.
// Returns nil when the queue is disabled.
func ProvideQueue(cfg *config.Config, bench *usecase.Benchmark, l *applogger.Logger) *pkgqueue.RedisQueue {
	if !cfg.Queue.Enabled {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
	})
	q := pkgqueue.NewRedisQueue(l, &pkgqueue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	}, client, pkgqueue.ModeProducerConsumer, pkgqueue.WithKeyPrefix(cfg.Queue.KeyPrefix))

	bench.SetQueue(q)
	return q
}

// ProvideRoundCollector creates the round collector use case.
func ProvideRoundCollector(
	gateways []*modelgw.Gateway,
	bench *usecase.Benchmark,
	metrics repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.RoundCollector {
	return usecase.NewRoundCollector(gateways, bench, metrics, l, cfg.Round.Interval, cfg.Round.MaxParallel)
}

// ProvideResolutionCollector creates the resolution collector use case.
func ProvideResolutionCollector(
	stream repository.LabelStream,
	bench *usecase.Benchmark,
	store repository.Storage,
	metrics repository.Metrics,
) *usecase.ResolutionCollector {
	// Buffered pipeline between WebSocket and ClickHouse persistence
	pipe := mid.NewResolutionPipeline(usecase.NewResolutionPersister(store), metrics,
		mid.WithBufferSize(2000),
	)
	return usecase.NewResolutionCollector(stream, bench, metrics, pipe)
}

// ProvideReportsUseCase creates the reports use case.
func ProvideReportsUseCase(bench *usecase.Benchmark) *usecase.ReportsUseCase {
	return usecase.NewReportsUseCase(bench)
}

// ProvideHistoryStore creates the raw outcome history reader behind a
// read-through cache. Memory only by default, layered over Redis when
// Redis caching is enabled.
func ProvideHistoryStore(chClient *pkgch.Client, cfg *config.Config, l *applogger.Logger) repository.HistoryStore {
	hs := internalrepo.NewCHHistoryStore(chClient, cfg.ClickHouse.Database+".round_outcomes")
	hs.SetLogger(l)

	var svc pkgcache.Service = pkgcache.NewMemoryCache(pkgcache.WithMemoryMaxSize(4096))
	if cfg.Cache.Redis.Enabled {
		opts := []pkgcache.RedisOption{
			pkgcache.WithRedisPassword(cfg.Cache.Redis.Password),
			pkgcache.WithRedisDB(cfg.Cache.Redis.DB),
			pkgcache.WithRedisPrefix("forecastbench"),
		}
		if host, portStr, err := net.SplitHostPort(cfg.Cache.Redis.Addr); err == nil {
			port, _ := strconv.Atoi(portStr)
			opts = append(opts, pkgcache.WithRedisHost(host), pkgcache.WithRedisPort(port))
		}
		rc, err := pkgcache.NewRedisCache(opts...)
		if err != nil {
			l.Warn("redis cache unavailable, using memory only", applogger.Error(err))
		} else {
			svc = pkgcache.NewLayeredCache(rc)
		}
	}
	return internalrepo.NewCachedHistoryStore(hs, svc, cfg.Cache.TTL)
}

// ProvideReportsEchoHandler creates the validated report API handler.
func ProvideReportsEchoHandler(l *applogger.Logger, reports *usecase.ReportsUseCase, history repository.HistoryStore) *api.ReportsEchoHandler {
	return api.NewReportsEchoHandler(l, reports, history)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	rounds *usecase.RoundCollector,
	resolutions *usecase.ResolutionCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaOutcomesHandler,
	chClient *pkgch.Client,
	queue *pkgqueue.RedisQueue,
	reports *usecase.ReportsUseCase,
	echoHandler *api.ReportsEchoHandler,
	proc *usecase.OutcomeProcessor,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	app := server.New(cfg, rounds, resolutions, consumer, kh, chClient, queue, reports, echoHandler)
	app.OutcomeProc = proc
	return app
}
