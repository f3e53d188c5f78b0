package setup

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/LavaJover/shvark-ib-service/internal/config"
	"github.com/LavaJover/shvark-ib-service/internal/domain"
	publisher "github.com/LavaJover/shvark-ib-service/internal/infrastructure/kafka"
	"github.com/LavaJover/shvark-ib-service/internal/infrastructure/logger"
	"github.com/LavaJover/shvark-ib-service/internal/infrastructure/metrics"
	"github.com/LavaJover/shvark-ib-service/internal/infrastructure/migrate"
	"github.com/LavaJover/shvark-ib-service/internal/infrastructure/postgres"
	"github.com/LavaJover/shvark-ib-service/internal/infrastructure/postgres/repository"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"
)

type Dependencies struct {
	Config       *config.IBConfig
	DB           *gorm.DB
	Logger       *slog.Logger
	Registry     *prometheus.Registry
	Metrics      *metrics.IBMetrics
	Publisher    domain.EventPublisher
	Subscriber   domain.SubscriberPort
	Repositories *Repositories
	closers      []io.Closer
	logCloser    io.Closer
}

type Repositories struct {
	PartnerRepo    domain.PartnerRepository
	AssignmentRepo domain.GroupAssignmentRepository
	AccountRepo    domain.TradingAccountRepository
	ReferralRepo   domain.ReferralRepository
	TradeRepo      domain.TradeRepository
	SnapshotRepo   domain.CommissionSnapshotRepository
	SyncRunRepo    domain.SyncRunRepository
}

func InitializeDependencies() (*Dependencies, error) {
	cfg := config.MustLoad()

	log, logCloser, err := logger.New(cfg.LogConfig)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	slog.SetDefault(log)

	db := postgres.MustInitDB(cfg)
	if err := migrate.RunMigrations(db, cfg.IBDB.MigrationsPath, log); err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	deps := &Dependencies{
		Config:   cfg,
		DB:       db,
		Logger:   log,
		Registry: registry,
		Metrics:  metrics.NewIBMetrics(registry),
		Repositories: &Repositories{
			PartnerRepo:    repository.NewDefaultPartnerRepository(db),
			AssignmentRepo: repository.NewDefaultGroupAssignmentRepository(db),
			AccountRepo:    repository.NewDefaultTradingAccountRepository(db),
			ReferralRepo:   repository.NewDefaultReferralRepository(db),
			TradeRepo:      repository.NewDefaultTradeRepository(db),
			SnapshotRepo:   repository.NewDefaultCommissionRepository(db),
			SyncRunRepo:    repository.NewDefaultSyncRunRepository(db),
		},
		logCloser: logCloser,
	}

	if err := deps.initEvents(); err != nil {
		return nil, err
	}
	return deps, nil
}

func (d *Dependencies) initEvents() error {
	if !d.Config.Kafka.Enabled {
		d.Logger.Warn("kafka disabled, engine events are not published")
		d.Publisher = publisher.NopPublisher{}
		return nil
	}

	kafkaCfg := kafkaConfig(d.Config)
	pub, err := publisher.NewKafkaPublisher(kafkaCfg)
	if err != nil {
		return fmt.Errorf("kafka publisher: %w", err)
	}
	sub, err := publisher.NewDefaultKafkaSubscriber(kafkaCfg, d.Logger)
	if err != nil {
		return fmt.Errorf("kafka subscriber: %w", err)
	}
	d.Publisher = pub
	d.Subscriber = sub
	d.closers = append(d.closers, pub)
	return nil
}

func kafkaConfig(cfg *config.IBConfig) publisher.KafkaConfig {
	return publisher.KafkaConfig{
		Brokers:    cfg.Kafka.Brokers(),
		Username:   cfg.Kafka.Username,
		Password:   cfg.Kafka.Password,
		Mechanism:  cfg.Kafka.Mechanism,
		TLSEnabled: cfg.Kafka.TLSEnabled,
	}
}

// Close releases the publisher, the database pool and the log file, in
// that order.
func (d *Dependencies) Close() {
	for _, c := range d.closers {
		if err := c.Close(); err != nil {
			d.Logger.Warn("close failed", slog.String("error", err.Error()))
		}
	}
	if sqlDB, err := d.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = d.logCloser.Close()
}
