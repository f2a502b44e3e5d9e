package app

import (
	"context"
	"errors"
	"time"

	"github.com/leobui/alertflow/internal/config"
	"github.com/leobui/alertflow/internal/delivery/channel"
	"github.com/leobui/alertflow/internal/domain"
	"github.com/leobui/alertflow/internal/graph"
	"github.com/leobui/alertflow/internal/infra/db"
	"github.com/leobui/alertflow/internal/infra/feed"
	"github.com/leobui/alertflow/internal/infra/log"
	"github.com/leobui/alertflow/internal/infra/memory"
	"github.com/leobui/alertflow/internal/jobqueue"
	"github.com/leobui/alertflow/internal/market"
	"github.com/leobui/alertflow/internal/usecase"
	"go.uber.org/zap"
)

// App is the composition root. The exported accessors are the
// embedding surface for callers that drive the engine directly; the
// background loops run under Run.
type App struct {
	cfg        config.Config
	tenants    domain.TenantRepository
	registry   *usecase.RuleRegistry
	profiles   *usecase.ProfileUsecase
	evaluator  *usecase.Evaluator
	news       *usecase.NewsIngestor
	dispatcher *usecase.Dispatcher
	pool       *jobqueue.WorkerPool
	feedRunner *feed.Runner
	logger     *zap.Logger
	cleanupFn  func() error
}

func (a *App) Rules() *usecase.RuleRegistry      { return a.registry }
func (a *App) Profiles() *usecase.ProfileUsecase { return a.profiles }
func (a *App) Evaluator() *usecase.Evaluator     { return a.evaluator }
func (a *App) News() *usecase.NewsIngestor       { return a.news }

func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := log.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	var (
		tenantRepo     domain.TenantRepository
		profileRepo    domain.ProfileRepository
		ruleRepo       domain.RuleRepository
		instrumentRepo domain.InstrumentRepository
		deliveryRepo   domain.DeliveryRepository
		stateStore     domain.MarketStateStore
		graphStore     domain.GraphStore
		cleanup        func() error
	)

	if cfg.DBHost != "" {
		dbConn, err := db.Open(cfg, logger)
		if err != nil {
			return nil, err
		}
		tenantRepo = db.NewTenantRepository(dbConn)
		profileRepo = db.NewProfileRepository(dbConn)
		ruleRepo = db.NewRuleRepository(dbConn)
		instrumentRepo = db.NewInstrumentRepository(dbConn)
		deliveryRepo = db.NewDeliveryRepository(dbConn)
		stateStore = db.NewMarketStateRepository(dbConn)
		graphStore = db.NewGraphRepository(dbConn)
		cleanup = func() error {
			sqlDB, err := dbConn.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		}
	} else {
		logger.Info("no database configured, using in-memory stores")
		tenantRepo = memory.NewTenantRepository()
		profileRepo = memory.NewProfileRepository()
		ruleRepo = memory.NewRuleRepository()
		instrumentRepo = memory.NewInstrumentRepository()
		deliveryRepo = memory.NewDeliveryRepository()
		stateStore = market.NewStore()
		graphStore = graph.NewStore()
	}

	queue := jobqueue.New(jobqueue.Config{
		MaxAttempts: cfg.QueueMaxAttempts,
		Backoff:     cfg.QueueBackoff,
		MaxBackoff:  cfg.QueueMaxBackoff,
	}, logger)

	registry := usecase.NewRuleRegistry(ruleRepo, profileRepo, logger)
	policy := usecase.CooldownRefirePolicy{Cooldown: cfg.RefireCooldown}
	evaluator := usecase.NewEvaluator(tenantRepo, ruleRepo, profileRepo, stateStore, queue, policy, logger)
	targeting := usecase.NewGraphTargeting(graphStore, logger)
	news := usecase.NewNewsIngestor(graphStore, instrumentRepo, profileRepo, targeting, queue, cfg.MinEdgeWeight, logger)
	profiles := usecase.NewProfileUsecase(tenantRepo, profileRepo)

	adapters := channel.NewRegistry()
	adapters.Register(domain.ChannelWebhook, channel.NewWebhookAdapter(cfg.WebhookTimeout, logger))
	adapters.Register(domain.ChannelEmail, channel.NewConsoleAdapter(logger))
	adapters.Register(domain.ChannelWebPush, channel.NewConsoleAdapter(logger))

	dispatcher := usecase.NewDispatcher(deliveryRepo, adapters, registry, queue, cfg.DispatchTimeout, logger)
	enricher := usecase.NewEnricher(profileRepo, logger)

	pool := jobqueue.NewWorkerPool(queue, jobqueue.WorkerConfig{
		Workers:       cfg.Workers,
		LeaseDuration: cfg.LeaseDuration,
		PollInterval:  cfg.PollInterval,
		Permanent: func(err error) bool {
			var perm *channel.PermanentError
			return errors.As(err, &perm)
		},
	}, logger)
	pool.RegisterHandler(usecase.JobKindDispatch, dispatcher.HandleJob)
	pool.RegisterHandler(usecase.JobKindEnrichment, enricher.HandleJob)

	var feedRunner *feed.Runner
	if cfg.FeedWSURL != "" {
		factory := feed.NewWSFactory(cfg.FeedWSURL, cfg.FeedReadTimeout, logger)
		feedRunner = feed.NewRunner(factory, evaluator, cfg.FeedSymbols, cfg.FeedReconnectWait, logger)
	}

	return &App{
		cfg:        cfg,
		tenants:    tenantRepo,
		registry:   registry,
		profiles:   profiles,
		evaluator:  evaluator,
		news:       news,
		dispatcher: dispatcher,
		pool:       pool,
		feedRunner: feedRunner,
		logger:     logger,
		cleanupFn:  cleanup,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.logger.Info("alertflow service starting")

	a.pool.Start(ctx)
	go a.reconcileLoop(ctx)
	if a.feedRunner != nil {
		go a.feedRunner.Run(ctx)
	}

	a.logger.Info("alertflow service started")
	<-ctx.Done()
	return nil
}

// reconcileLoop periodically converts delivery attempts orphaned by a
// crash into failed records so the audit trail stays truthful.
func (a *App) reconcileLoop(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.ReconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		tenants, err := a.tenants.ListActive(ctx)
		if err != nil {
			a.logger.Warn("failed to list tenants for reconcile", zap.Error(err))
			continue
		}
		for _, tenant := range tenants {
			if _, err := a.dispatcher.ReconcileStale(ctx, tenant.ID, a.cfg.ReconcileAfter); err != nil {
				a.logger.Warn("reconcile failed",
					zap.String("tenant_id", tenant.ID.String()),
					zap.Error(err))
			}
		}
	}
}

func (a *App) Shutdown() {
	a.logger.Info("alertflow service shutting down")
	a.evaluator.StopAll()
	a.pool.Stop()
	if a.cleanupFn != nil {
		if err := a.cleanupFn(); err != nil {
			a.logger.Warn("failed to close database", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
