package audit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/seo-audit-service/internal/telemetry"
)

// Config controls Orchestrator behavior.
type Config struct {
	PremiumPrice    int
	FreeCacheTTL    time.Duration
	PremiumCacheTTL time.Duration
	ScrapeTimeout   time.Duration
	AnalysisTimeout time.Duration
	RenderTimeout   time.Duration
	NotifyTimeout   time.Duration
	EventTopic      string
}

// Orchestrator drives one audit request through
// scrape -> analyze -> render -> persist -> notify, choosing tier-specific
// behavior and returning a consistent Response whatever stage failed.
// Failures in render, persist and notify degrade the response but never
// overturn a successful analysis.
type Orchestrator struct {
	scraper   Scraper
	analyzer  Analyzer
	renderer  Renderer
	notifier  Notifier
	store     Store
	cache     ResultCache
	publisher Publisher
	clock     Clock
	ids       IDGenerator
	cfg       Config
	logger    *zap.Logger

	background sync.WaitGroup
}

// NewOrchestrator wires the pipeline collaborators together. Renderer,
// notifier, store, cache and publisher may be nil; the corresponding
// stages are then skipped and reported as not performed.
func NewOrchestrator(
	scraper Scraper,
	analyzer Analyzer,
	renderer Renderer,
	notifier Notifier,
	store Store,
	cache ResultCache,
	publisher Publisher,
	clock Clock,
	ids IDGenerator,
	cfg Config,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ScrapeTimeout == 0 {
		cfg.ScrapeTimeout = 30 * time.Second
	}
	if cfg.AnalysisTimeout == 0 {
		cfg.AnalysisTimeout = 90 * time.Second
	}
	if cfg.RenderTimeout == 0 {
		cfg.RenderTimeout = 30 * time.Second
	}
	if cfg.NotifyTimeout == 0 {
		cfg.NotifyTimeout = 30 * time.Second
	}
	return &Orchestrator{
		scraper:   scraper,
		analyzer:  analyzer,
		renderer:  renderer,
		notifier:  notifier,
		store:     store,
		cache:     cache,
		publisher: publisher,
		clock:     clock,
		ids:       ids,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run executes one audit request end to end.
func (o *Orchestrator) Run(ctx context.Context, req Request) Response {
	start := o.clock.Now()

	req, err := ValidateRequest(req, o.cfg.PremiumPrice)
	if err != nil {
		telemetry.ObserveAudit(string(req.Tier), "rejected", time.Duration(0))
		return failureResponse(req, err)
	}

	// A zero TTL disables caching for the tier; the premium default of
	// zero keeps every paid audit fresh.
	if o.cache != nil && o.cacheTTL(req.Tier) > 0 {
		if cached, ok := o.cache.Get(cacheKey(req)); ok {
			o.logger.Info("cache hit",
				zap.String("url", req.URL),
				zap.Int("score", cached.OverallScore),
			)
			o.notifyCachedAsync(req, cached)
			telemetry.ObserveAudit(string(req.Tier), "cache_hit", o.clock.Now().Sub(start))
			resp := successResponse(req, cached, "", true, true)
			o.publishAsync("", req, cached, true, resp.EmailSent)
			return resp
		}
	}

	resp := o.executeFresh(ctx, req)
	status := "failed"
	if resp.Success {
		status = "completed"
	}
	telemetry.ObserveAudit(string(req.Tier), status, o.clock.Now().Sub(start))
	return resp
}

// cacheTTL returns the cache lifetime for a tier. Zero disables caching
// for that tier.
func (o *Orchestrator) cacheTTL(tier Tier) time.Duration {
	if tier == TierPremium {
		return o.cfg.PremiumCacheTTL
	}
	return o.cfg.FreeCacheTTL
}

// cacheKey namespaces premium entries so a paid audit never serves a
// free-tier result and vice versa.
func cacheKey(req Request) string {
	if req.Tier == TierPremium {
		return "premium_" + req.URL
	}
	return req.URL
}

// executeFresh runs the full scrape/analyze/render/persist/notify pipeline.
func (o *Orchestrator) executeFresh(ctx context.Context, req Request) Response {
	scrapeCtx, cancel := context.WithTimeout(ctx, o.cfg.ScrapeTimeout)
	site, err := o.scraper.Scrape(scrapeCtx, req.URL)
	cancel()
	if err != nil {
		o.logger.Warn("scrape failed", zap.String("url", req.URL), zap.Error(err))
		return failureResponse(req, NewError(KindScrapeFailure, err))
	}
	if req.Tier == TierPremium {
		site.Company = req.Company
		site.Industry = req.Industry
	}

	analyzeCtx, cancel := context.WithTimeout(ctx, o.cfg.AnalysisTimeout)
	result, err := o.analyzer.Analyze(analyzeCtx, site, req.Tier)
	cancel()
	if err != nil {
		o.logger.Error("analysis failed", zap.String("url", req.URL), zap.Error(err))
		return failureResponse(req, NewError(KindAnalysisFailure, err))
	}
	if !result.Success {
		return failureResponse(req, Errorf(KindAnalysisFailure, "%s", result.Error))
	}

	// Enrichment runs unconditionally for premium audits; it is idempotent
	// on already-complete provider output.
	if req.Tier == TierPremium {
		result = EnrichPremium(result, site)
	} else if result.OverallScore == 0 && result.ExecutiveSummary != nil {
		result.OverallScore = result.ExecutiveSummary.OverallScore
	}

	auditID, err := o.ids.NewID()
	if err != nil {
		o.logger.Error("audit id generation failed", zap.Error(err))
		auditID = ""
	}

	pdfPath := o.render(ctx, result, site, auditID)
	persisted := o.persist(ctx, req, result, auditID, pdfPath)
	emailSent := o.notify(ctx, req, result, pdfPath, auditID, persisted)

	if ttl := o.cacheTTL(req.Tier); o.cache != nil && ttl > 0 {
		if !o.cache.Set(cacheKey(req), result, ttl) {
			o.logger.Warn("cache write failed", zap.String("url", req.URL))
		}
	}

	resp := successResponse(req, result, pdfPath, false, emailSent)
	resp.Persisted = persisted
	o.publishAsync(auditID, req, result, false, emailSent)
	return resp
}

// render is best effort: a failed PDF leaves pdf_path empty but does not
// fail the audit. An empty audit ID skips the render entirely so two
// audits can never share a report file.
func (o *Orchestrator) render(ctx context.Context, result Result, site ScrapedSite, auditID string) string {
	if o.renderer == nil || auditID == "" {
		return ""
	}
	renderCtx, cancel := context.WithTimeout(ctx, o.cfg.RenderTimeout)
	defer cancel()
	pdfPath, err := o.renderer.Render(renderCtx, result, site, auditID)
	if err != nil {
		o.logger.Warn("pdf render failed", zap.String("url", site.URL), zap.Error(err))
		return ""
	}
	return pdfPath
}

// persist is best effort: the user never loses a computed score because
// the database was unavailable.
func (o *Orchestrator) persist(ctx context.Context, req Request, result Result, auditID, pdfPath string) bool {
	if o.store == nil {
		return false
	}
	rec := Record{
		ID:            auditID,
		Email:         req.Email,
		URL:           req.URL,
		Tier:          req.Tier,
		PaymentAmount: req.PaymentAmount,
		Company:       req.Company,
		Industry:      req.Industry,
		OverallScore:  result.OverallScore,
		Result:        result,
		PDFPath:       pdfPath,
		ClientIP:      req.ClientIP,
		CreatedAt:     o.clock.Now(),
	}
	if _, err := o.store.SaveAudit(ctx, rec); err != nil {
		o.logger.Error("persist audit failed", zap.String("url", req.URL), zap.Error(err))
		return false
	}
	if req.Tier == TierPremium {
		if err := o.store.IncrementCustomerValue(ctx, req.Email, req.PaymentAmount); err != nil {
			o.logger.Error("customer aggregate update failed", zap.String("email", req.Email), zap.Error(err))
		}
	}
	return true
}

// notify is best effort and reported through email_sent.
func (o *Orchestrator) notify(ctx context.Context, req Request, result Result, pdfPath, auditID string, persisted bool) bool {
	if o.notifier == nil {
		return false
	}
	notifyCtx, cancel := context.WithTimeout(ctx, o.cfg.NotifyTimeout)
	defer cancel()
	if err := o.notifier.SendReport(notifyCtx, req.Email, result, pdfPath, req.URL); err != nil {
		o.logger.Warn("report email failed", zap.String("email", req.Email), zap.Error(err))
		telemetry.ObserveEmailSend("failed")
		return false
	}
	telemetry.ObserveEmailSend("sent")
	if persisted && auditID != "" {
		if err := o.store.MarkEmailSent(ctx, auditID, o.clock.Now()); err != nil {
			o.logger.Warn("mark email sent failed", zap.String("audit_id", auditID), zap.Error(err))
		}
	}
	return true
}

// notifyCachedAsync re-renders a fresh PDF from the cached result and
// emails it without blocking the HTTP response. Its failure never fails
// the request.
func (o *Orchestrator) notifyCachedAsync(req Request, cached Result) {
	if o.notifier == nil {
		return
	}
	o.background.Add(1)
	go func() {
		defer o.background.Done()
		ctx, cancel := context.WithTimeout(context.Background(), o.cfg.RenderTimeout+o.cfg.NotifyTimeout)
		defer cancel()
		// Each re-render gets its own ID so concurrent cache hits never
		// write the same report file.
		auditID, err := o.ids.NewID()
		if err != nil {
			o.logger.Warn("cached report id generation failed", zap.Error(err))
		}
		pdfPath := o.render(ctx, cached, ScrapedSite{URL: req.URL}, auditID)
		if err := o.notifier.SendReport(ctx, req.Email, cached, pdfPath, req.URL); err != nil {
			o.logger.Warn("cached report email failed", zap.String("email", req.Email), zap.Error(err))
			telemetry.ObserveEmailSend("failed")
			return
		}
		telemetry.ObserveEmailSend("sent")
	}()
}

// publishAsync emits an audit-completed event without blocking the caller.
func (o *Orchestrator) publishAsync(auditID string, req Request, result Result, cached, emailSent bool) {
	if o.publisher == nil {
		return
	}
	event := CompletedEvent{
		AuditID:      auditID,
		URL:          req.URL,
		Tier:         req.Tier,
		OverallScore: result.OverallScore,
		Cached:       cached,
		EmailSent:    emailSent,
		CompletedAt:  o.clock.Now(),
	}
	o.background.Add(1)
	go func() {
		defer o.background.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := o.publisher.Publish(ctx, o.cfg.EventTopic, event); err != nil {
			o.logger.Warn("publish audit event failed", zap.Error(err))
		}
	}()
}

// Wait blocks until detached notifications and publishes finish. Used on
// shutdown and by tests.
func (o *Orchestrator) Wait() {
	o.background.Wait()
}

func successResponse(req Request, result Result, pdfPath string, cached, emailSent bool) Response {
	paymentAmount := 0
	if req.Tier == TierPremium {
		paymentAmount = req.PaymentAmount
	}
	resp := Response{
		Success:         true,
		Score:           result.OverallScore,
		OverallScore:    result.OverallScore,
		Issues:          result.CriticalIssues,
		Recommendations: result.Recommendations,
		Categories:      result.CategoryScores,
		PDFPath:         pdfPath,
		EmailSent:       emailSent,
		Cached:          cached,
		Tier:            req.Tier,
		PaymentAmount:   paymentAmount,
	}
	if req.Tier == TierPremium {
		resp.ExecutiveSummary = result.ExecutiveSummary
		resp.CompetitorAnalysis = result.CompetitorAnalysis
		resp.Roadmap = result.Roadmap
		resp.ROIProjections = result.ROIProjections
	}
	return resp
}

func failureResponse(req Request, err error) Response {
	kind := KindOf(err)
	if kind == "" {
		kind = KindAnalysisFailure
	}
	return Response{
		Success: false,
		Error:   err.Error(),
		Kind:    kind,
		Tier:    req.Tier,
	}
}
