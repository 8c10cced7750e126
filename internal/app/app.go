// Package app initializes and holds long-lived application services,
// acting as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/seo-audit-service/internal/analysis"
	"github.com/JakeFAU/seo-audit-service/internal/api"
	"github.com/JakeFAU/seo-audit-service/internal/audit"
	"github.com/JakeFAU/seo-audit-service/internal/cache"
	"github.com/JakeFAU/seo-audit-service/internal/clock/system"
	"github.com/JakeFAU/seo-audit-service/internal/config"
	"github.com/JakeFAU/seo-audit-service/internal/id/uuid"
	"github.com/JakeFAU/seo-audit-service/internal/logging"
	"github.com/JakeFAU/seo-audit-service/internal/notify"
	"github.com/JakeFAU/seo-audit-service/internal/payment"
	"github.com/JakeFAU/seo-audit-service/internal/policy/ratelimit"
	"github.com/JakeFAU/seo-audit-service/internal/publisher/memory"
	"github.com/JakeFAU/seo-audit-service/internal/publisher/pubsub"
	"github.com/JakeFAU/seo-audit-service/internal/report"
	collyscraper "github.com/JakeFAU/seo-audit-service/internal/scraper/colly"
	memorystore "github.com/JakeFAU/seo-audit-service/internal/storage/memory"
	"github.com/JakeFAU/seo-audit-service/internal/storage/postgres"
)

// App holds the shared, long-lived services for the audit service. It is
// initialized once at startup and torn down by Close.
type App struct {
	logger       *zap.Logger
	server       *api.Server
	orchestrator *audit.Orchestrator
	store        audit.Store
	closers      []func() error
}

// New builds every service from the validated configuration. It fails
// fast when a critical dependency cannot be initialized.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.NewWithLevel(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	logger.Info("initializing application services")

	clk := system.New()
	ids := uuid.New()

	resultCache, err := cache.New(cache.Config{
		Dir:        cfg.Cache.Dir,
		DefaultTTL: cfg.FreeCacheTTL(),
	}, clk)
	if err != nil {
		return nil, fmt.Errorf("initialize result cache: %w", err)
	}

	var store audit.Store
	switch cfg.DB.Provider {
	case "postgres":
		logger.Info("connecting to postgres")
		pgStore, err := postgres.NewAuditStore(ctx, postgres.AuditStoreConfig{DSN: cfg.DB.DSN})
		if err != nil {
			return nil, fmt.Errorf("initialize audit store: %w", err)
		}
		store = pgStore
	case "memory":
		logger.Info("using in-memory audit store; records are lost on restart")
		store = memorystore.NewAuditStore()
	default:
		return nil, fmt.Errorf("unknown db provider: %s", cfg.DB.Provider)
	}

	var publisher audit.Publisher
	var publisherCloser func() error
	switch cfg.PubSub.Provider {
	case "pubsub":
		logger.Info("connecting to pubsub", zap.String("topic", cfg.PubSub.TopicName))
		psPub, err := pubsub.New(ctx, cfg.PubSub.ProjectID, cfg.PubSub.TopicName)
		if err != nil {
			return nil, fmt.Errorf("initialize publisher: %w", err)
		}
		publisher = psPub
		publisherCloser = psPub.Close
	case "memory":
		publisher = memory.New()
	case "none":
		logger.Info("event publishing disabled")
	default:
		return nil, fmt.Errorf("unknown pubsub provider: %s", cfg.PubSub.Provider)
	}

	scraper := collyscraper.New(collyscraper.Config{
		UserAgent:    cfg.Scraper.UserAgent,
		Timeout:      cfg.ScrapeTimeout(),
		MaxBodyBytes: cfg.Scraper.MaxBodyBytes,
	})

	engine := analysis.New(analysis.Config{
		OpenAIKey:       cfg.AI.OpenAIKey,
		OpenAIModel:     cfg.AI.OpenAIModel,
		OpenRouterKey:   cfg.AI.OpenRouterKey,
		OpenRouterModel: cfg.AI.OpenRouterModel,
	}, logger)

	renderer, err := report.New(cfg.Reports.Dir)
	if err != nil {
		return nil, fmt.Errorf("initialize report renderer: %w", err)
	}

	var notifier audit.Notifier
	if cfg.Features.Email {
		notifier = notify.New(notify.Config{
			APIKey:      cfg.Email.ResendKey,
			FromAddress: cfg.Email.FromAddress,
			ReplyTo:     cfg.Email.ReplyTo,
			ReportsDir:  cfg.Reports.Dir,
			Timeout:     time.Duration(cfg.Email.TimeoutSeconds) * time.Second,
		}, logger)
	} else {
		logger.Info("email notifications disabled")
	}

	orchestrator := audit.NewOrchestrator(
		scraper,
		engine,
		renderer,
		notifier,
		store,
		resultCache,
		publisher,
		clk,
		ids,
		audit.Config{
			PremiumPrice:    int(cfg.Payment.PremiumPriceUSD),
			FreeCacheTTL:    cfg.FreeCacheTTL(),
			PremiumCacheTTL: time.Duration(cfg.Cache.PremiumTTLSeconds) * time.Second,
			ScrapeTimeout:   cfg.ScrapeTimeout(),
			AnalysisTimeout: cfg.AnalysisTimeout(),
			EventTopic:      cfg.PubSub.TopicName,
		},
		logger,
	)

	payments := payment.New(payment.Config{
		SecretKey:       cfg.Payment.StripeSecretKey,
		WebhookSecret:   cfg.Payment.StripeWebhookSecret,
		PremiumPriceUSD: cfg.Payment.PremiumPriceUSD,
		SuccessURL:      cfg.Payment.SuccessURL,
		CancelURL:       cfg.Payment.CancelURL,
	})

	server := api.NewServer(
		orchestrator,
		resultCache,
		payments,
		ratelimit.New(clk),
		ratelimit.New(clk),
		cfg,
		logger,
	)

	app := &App{
		logger:       logger,
		server:       server,
		orchestrator: orchestrator,
		store:        store,
	}
	if publisherCloser != nil {
		app.closers = append(app.closers, publisherCloser)
	}
	logger.Info("application services initialized")
	return app, nil
}

// Logger returns the shared logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Handler returns the HTTP handler for use with http.Server.
func (a *App) Handler() http.Handler {
	return a.server.Handler()
}

// Close drains background work and shuts down every service.
func (a *App) Close() {
	a.logger.Info("shutting down application services")
	a.server.Wait()
	a.orchestrator.Wait()
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing audit store", zap.Error(err))
	}
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			a.logger.Warn("closing service", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
