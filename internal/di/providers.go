package di

import (
	"context"
	"fmt"
	"time"

	"BiasGuard/internal/domain/models"
	"BiasGuard/internal/domain/repository"
	"BiasGuard/internal/handler/api"
	internalrepo "BiasGuard/internal/repository"
	"BiasGuard/internal/services/rules"
	"BiasGuard/internal/usecase"
	pkgch "BiasGuard/pkg/clickhouse"
	"BiasGuard/pkg/config"
	xhttp "BiasGuard/pkg/http"
	pkgkafka "BiasGuard/pkg/kafka"
	applogger "BiasGuard/pkg/logger"
	"BiasGuard/pkg/metrics"
	"BiasGuard/pkg/server"
	"BiasGuard/pkg/store"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideStore creates the Redis-backed store.
func ProvideStore(cfg *config.Config) (store.Store, error) {
	st, err := store.NewRedisStore(
		store.WithHost(cfg.Redis.Host),
		store.WithPort(cfg.Redis.Port),
		store.WithPassword(cfg.Redis.Password),
		store.WithDB(cfg.Redis.DB),
		store.WithPool(cfg.Redis.PoolSize, cfg.Redis.MinIdleConns, cfg.Redis.PoolTimeout),
		store.WithPrefix(cfg.Redis.Prefix),
		store.WithRetry(cfg.Redis.Retry.MaxAttempts, cfg.Redis.Retry.Backoff, cfg.Redis.Retry.Factor),
	)
	if err != nil {
		return nil, fmt.Errorf("redis store: %w", err)
	}
	return st, nil
}

// ProvideKeyLock creates the per-symbol write lock.
func ProvideKeyLock() *store.KeyLock {
	return store.NewKeyLock()
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideLimits maps storage configuration to retention limits.
func ProvideLimits(cfg *config.Config) internalrepo.Limits {
	return internalrepo.Limits{
		BiasTTL:           cfg.Storage.BiasTTL,
		DecisionTTL:       cfg.Storage.DecisionTTL,
		ChangeTTL:         cfg.Storage.ChangeTTL,
		PositionTTL:       cfg.Storage.PositionTTL,
		SessionTTL:        cfg.Storage.SessionTTL,
		HistoryMaxLength:  cfg.Storage.HistoryMaxLength,
		PositionMaxLength: cfg.Storage.PositionMaxLength,
		DecisionMaxLength: cfg.Storage.DecisionMaxLength,
	}
}

// ProvideRulesConfig maps rule configuration to the engine knobs.
func ProvideRulesConfig(cfg *config.Config) rules.Config {
	thresholds := make([]rules.Threshold, 0, len(cfg.Rules.PriceMovementThresholds))
	for _, t := range cfg.Rules.PriceMovementThresholds {
		thresholds = append(thresholds, rules.Threshold{
			Percent:  t.Percent,
			Severity: models.Severity(t.Severity),
			Message:  t.Message,
		})
	}
	return rules.Config{
		TimeGateNormal:          time.Duration(cfg.Rules.TimeGateMinutes.Normal) * time.Minute,
		TimeGateVolatile:        time.Duration(cfg.Rules.TimeGateMinutes.Volatile) * time.Minute,
		TimeGateChoppy:          time.Duration(cfg.Rules.TimeGateMinutes.Choppy) * time.Minute,
		OverrideTimeGateAllowed: cfg.Rules.OverrideTimeGateAllowed,
		MaxChangesPerWindow:     cfg.Rules.MaxChangesPerHour,
		Lookback:                time.Duration(cfg.Rules.LookbackMinutes) * time.Minute,
		Thresholds:              thresholds,
	}
}

// ProvidePublisher creates the Kafka decision publisher, or a no-op
// when Kafka is disabled.
func ProvidePublisher(cfg *config.Config) (repository.Publisher, error) {
	if !cfg.Kafka.Enabled {
		return internalrepo.NopPublisher{}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithBatchTimeout(cfg.Kafka.BatchTimeout),
		pkgkafka.WithWriteTimeout(cfg.Kafka.WriteTimeout),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic), nil
}

// ProvideArchiver creates the ClickHouse decision archiver, or a
// no-op when ClickHouse is disabled.
func ProvideArchiver(cfg *config.Config) (repository.Archiver, error) {
	if !cfg.ClickHouse.Enabled {
		return internalrepo.NopArchiver{}, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	archiver := internalrepo.NewClickHouseArchiver(client)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := archiver.Init(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return archiver, nil
}

// ProvideBiasRepo creates the bias repository.
func ProvideBiasRepo(st store.Store, limits internalrepo.Limits, l *applogger.Logger) repository.BiasRepository {
	return internalrepo.NewBiasRepo(st, limits, l)
}

// ProvideLedger creates the decision ledger.
func ProvideLedger(st store.Store, limits internalrepo.Limits, l *applogger.Logger) repository.DecisionLedger {
	return internalrepo.NewLedger(st, limits, l)
}

// ProvideWiper creates the symbol wiper.
func ProvideWiper(st store.Store) repository.SymbolWiper {
	return internalrepo.NewWiper(st)
}

// ProvideBiasQuery creates the read-side query service.
func ProvideBiasQuery(biases repository.BiasRepository, rc rules.Config) *usecase.BiasQuery {
	return usecase.NewBiasQuery(biases, rc.Lookback)
}

// ProvideDecisionRecorder creates the decision recorder.
func ProvideDecisionRecorder(
	biases repository.BiasRepository,
	ledger repository.DecisionLedger,
	publisher repository.Publisher,
	archiver repository.Archiver,
	m repository.Metrics,
	rc rules.Config,
	locks *store.KeyLock,
	l *applogger.Logger,
) *usecase.DecisionRecorder {
	return usecase.NewDecisionRecorder(biases, ledger, publisher, archiver, m, rc, locks, l)
}

// ProvideConsistencyChecker creates the consistency checker.
func ProvideConsistencyChecker(ledger repository.DecisionLedger, m repository.Metrics, rc rules.Config, l *applogger.Logger) *usecase.ConsistencyChecker {
	return usecase.NewConsistencyChecker(ledger, m, rc, l)
}

// ProvideResetCoordinator creates the reset coordinator.
func ProvideResetCoordinator(
	wiper repository.SymbolWiper,
	ledger repository.DecisionLedger,
	publisher repository.Publisher,
	archiver repository.Archiver,
	m repository.Metrics,
	locks *store.KeyLock,
	l *applogger.Logger,
) *usecase.ResetCoordinator {
	return usecase.NewResetCoordinator(wiper, ledger, publisher, archiver, m, locks, l)
}

// ProvideHandler creates the Echo route handler.
func ProvideHandler(
	l *applogger.Logger,
	query *usecase.BiasQuery,
	recorder *usecase.DecisionRecorder,
	checker *usecase.ConsistencyChecker,
	reset *usecase.ResetCoordinator,
) xhttp.Handler {
	return api.NewBiasEchoHandler(l, query, recorder, checker, reset)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	st store.Store,
	publisher repository.Publisher,
	archiver repository.Archiver,
	handler xhttp.Handler,
) *server.App {
	return server.New(cfg, l, st, publisher, archiver, handler)
}
