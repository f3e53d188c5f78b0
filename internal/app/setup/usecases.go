package setup

import (
	"github.com/LavaJover/shvark-ib-service/internal/domain"
	"github.com/LavaJover/shvark-ib-service/internal/infrastructure/cache"
	"github.com/LavaJover/shvark-ib-service/internal/infrastructure/platform"
	"github.com/LavaJover/shvark-ib-service/internal/usecase"
	"github.com/LavaJover/shvark-ib-service/internal/usecase/tradesync"
)

type UseCases struct {
	PartnerUsecase    usecase.PartnerUsecase
	ReferralUsecase   usecase.ReferralUsecase
	TradeStoreUsecase usecase.TradeStoreUsecase
	CommissionUsecase usecase.CommissionUsecase
	Orchestrator      *tradesync.Orchestrator
	CommissionCache   *cache.TTLCache[*domain.PartnerCommission]
}

func InitializeUseCases(deps *Dependencies) *UseCases {
	cfg := deps.Config
	repos := deps.Repositories
	commissionCache := cache.NewTTLCache[*domain.PartnerCommission](cfg.Commission.CacheTTL)

	partnerUsecase := usecase.NewDefaultPartnerUsecase(repos.PartnerRepo, repos.AssignmentRepo, repos.SnapshotRepo, commissionCache, deps.Logger)
	referralUsecase := usecase.NewDefaultReferralUsecase(repos.ReferralRepo, repos.PartnerRepo, deps.Logger)
	tradeStoreUsecase := usecase.NewDefaultTradeStoreUsecase(repos.TradeRepo, cfg.Platform.VolumeScale, deps.Logger)

	commissionUsecase := usecase.NewDefaultCommissionUsecase(usecase.CommissionDeps{
		PartnerRepo:    repos.PartnerRepo,
		AssignmentRepo: repos.AssignmentRepo,
		AccountRepo:    repos.AccountRepo,
		TradeRepo:      repos.TradeRepo,
		SnapshotRepo:   repos.SnapshotRepo,
		Referrals:      referralUsecase,
		Cache:          commissionCache,
		Publisher:      deps.Publisher,
		Metrics:        deps.Metrics,
		Logger:         deps.Logger,
	})

	platformClient := platform.NewClient(platform.Config{
		BaseURL:  cfg.Platform.BaseURL,
		Timeout:  cfg.Platform.Timeout,
		PageSize: cfg.Platform.PageSize,
		MaxPages: cfg.Platform.MaxPages,
	}, deps.Logger)

	orchestrator := tradesync.NewOrchestrator(tradesync.Deps{
		Partners:    partnerUsecase,
		Referrals:   referralUsecase,
		Trades:      tradeStoreUsecase,
		Commissions: commissionUsecase,
		AccountRepo: repos.AccountRepo,
		SyncRunRepo: repos.SyncRunRepo,
		Platform:    platformClient,
		Publisher:   deps.Publisher,
		Metrics:     deps.Metrics,
		Logger:      deps.Logger,
	}, tradesync.Config{
		AccountConcurrency: cfg.Sync.AccountConcurrency,
		AccountTimeout:     cfg.Sync.AccountTimeout,
		AggregateTimeout:   cfg.Sync.AggregateTimeout,
	})

	return &UseCases{
		PartnerUsecase:    partnerUsecase,
		ReferralUsecase:   referralUsecase,
		TradeStoreUsecase: tradeStoreUsecase,
		CommissionUsecase: commissionUsecase,
		Orchestrator:      orchestrator,
		CommissionCache:   commissionCache,
	}
}
