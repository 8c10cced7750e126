package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

type fakeIDs struct {
	mu   sync.Mutex
	err  error
	next int
}

func (f *fakeIDs) NewID() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.next++
	return fmt.Sprintf("id-%d", f.next), nil
}

type fakeScraper struct {
	mu    sync.Mutex
	site  ScrapedSite
	err   error
	calls int
}

func (f *fakeScraper) Scrape(_ context.Context, url string) (ScrapedSite, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return ScrapedSite{}, f.err
	}
	site := f.site
	site.URL = url
	return site, nil
}

func (f *fakeScraper) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeAnalyzer struct {
	result Result
	err    error
	site   ScrapedSite
}

func (f *fakeAnalyzer) Analyze(_ context.Context, site ScrapedSite, _ Tier) (Result, error) {
	f.site = site
	if f.err != nil {
		return Result{}, f.err
	}
	return f.result, nil
}

type fakeRenderer struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (f *fakeRenderer) Render(_ context.Context, _ Result, _ ScrapedSite, auditID string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return "audit_" + auditID + ".pdf", nil
}

func (f *fakeRenderer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type notification struct {
	email   string
	pdfPath string
}

type fakeNotifier struct {
	mu    sync.Mutex
	err   error
	sends []notification
}

func (f *fakeNotifier) SendReport(_ context.Context, email string, _ Result, pdfPath string, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sends = append(f.sends, notification{email: email, pdfPath: pdfPath})
	return nil
}

func (f *fakeNotifier) sentTo() []notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]notification, len(f.sends))
	copy(out, f.sends)
	return out
}

type fakeStore struct {
	mu         sync.Mutex
	saveErr    error
	saved      []Record
	emailSent  []string
	increments map[string]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{increments: make(map[string]int)}
}

func (f *fakeStore) SaveAudit(_ context.Context, rec Record) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return "", f.saveErr
	}
	f.saved = append(f.saved, rec)
	return rec.ID, nil
}

func (f *fakeStore) MarkEmailSent(_ context.Context, auditID string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emailSent = append(f.emailSent, auditID)
	return nil
}

func (f *fakeStore) IncrementCustomerValue(_ context.Context, email string, amount int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.increments[email] += amount
	return nil
}

func (f *fakeStore) Close() error { return nil }

type cacheEntry struct {
	result Result
	ttl    time.Duration
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]cacheEntry)}
}

func (f *fakeCache) Get(url string) (Result, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[url]
	return e.result, ok
}

func (f *fakeCache) Set(url string, result Result, ttl time.Duration) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[url] = cacheEntry{result: result, ttl: ttl}
	return true
}

type fakePublisher struct {
	mu     sync.Mutex
	events []CompletedEvent
}

func (f *fakePublisher) Publish(_ context.Context, _ string, payload any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if event, ok := payload.(CompletedEvent); ok {
		f.events = append(f.events, event)
	}
	return "msg-1", nil
}

func (f *fakePublisher) published() []CompletedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]CompletedEvent, len(f.events))
	copy(out, f.events)
	return out
}

type fixture struct {
	scraper   *fakeScraper
	analyzer  *fakeAnalyzer
	renderer  *fakeRenderer
	notifier  *fakeNotifier
	store     *fakeStore
	cache     *fakeCache
	publisher *fakePublisher
	ids       *fakeIDs
	orch      *Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureCfg(t, Config{PremiumPrice: 997, FreeCacheTTL: 2 * time.Hour, EventTopic: "audit-completed"})
}

func newFixtureCfg(t *testing.T, cfg Config) *fixture {
	t.Helper()
	f := &fixture{
		scraper: &fakeScraper{site: ScrapedSite{Title: "Acme", ContentLength: 2000, HasSchema: true}},
		analyzer: &fakeAnalyzer{result: Result{
			Success:      true,
			OverallScore: 70,
			CategoryScores: map[string]int{
				"technical_seo": 68,
			},
			CriticalIssues: []Issue{{Issue: "slow pages", PriorityScore: 7}},
		}},
		renderer:  &fakeRenderer{},
		notifier:  &fakeNotifier{},
		store:     newFakeStore(),
		cache:     newFakeCache(),
		publisher: &fakePublisher{},
		ids:       &fakeIDs{},
	}
	f.orch = NewOrchestrator(
		f.scraper, f.analyzer, f.renderer, f.notifier, f.store, f.cache, f.publisher,
		&fakeClock{now: time.Unix(1700000000, 0).UTC()},
		f.ids,
		cfg,
		nil,
	)
	return f
}

func TestRunFreeAuditEndToEnd(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	resp := f.orch.Run(context.Background(), Request{URL: "acme.test", Email: "owner@acme.test"})
	f.orch.Wait()

	require.True(t, resp.Success)
	require.Empty(t, resp.Error)
	require.Equal(t, 70, resp.Score)
	require.Equal(t, 70, resp.OverallScore)
	require.Equal(t, "audit_id-1.pdf", resp.PDFPath)
	require.True(t, resp.EmailSent)
	require.True(t, resp.Persisted)
	require.False(t, resp.Cached)
	require.Equal(t, TierFree, resp.Tier)
	require.Len(t, resp.Issues, 1)

	// Free responses never carry premium sections.
	require.Nil(t, resp.ExecutiveSummary)

	// Persisted record reflects the run.
	require.Len(t, f.store.saved, 1)
	rec := f.store.saved[0]
	require.Equal(t, "id-1", rec.ID)
	require.Equal(t, "https://acme.test", rec.URL)
	require.Equal(t, 70, rec.OverallScore)
	require.Equal(t, []string{"id-1"}, f.store.emailSent)

	// Successful free results are cached with the configured TTL.
	e, ok := f.cache.entries["https://acme.test"]
	require.True(t, ok)
	require.Equal(t, 2*time.Hour, e.ttl)
	require.Equal(t, 70, e.result.OverallScore)

	// One completed event was published.
	events := f.publisher.published()
	require.Len(t, events, 1)
	require.Equal(t, "id-1", events[0].AuditID)
	require.False(t, events[0].Cached)
}

func TestRunPremiumWrongPaymentRejectedBeforeScrape(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	resp := f.orch.Run(context.Background(), Request{
		URL:           "acme.test",
		Email:         "owner@acme.test",
		Tier:          TierPremium,
		PaymentAmount: 500,
	})
	f.orch.Wait()

	require.False(t, resp.Success)
	require.Equal(t, KindPaymentVerification, resp.Kind)
	require.NotEmpty(t, resp.Error)
	require.Zero(t, resp.Score, "failed responses carry no score")
	require.Zero(t, f.scraper.callCount(), "no downstream call before validation passes")
	require.Empty(t, f.store.saved)
}

func TestRunPremiumEnrichesAndRecordsCustomerValue(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	resp := f.orch.Run(context.Background(), Request{
		URL:           "acme.test",
		Email:         "owner@acme.test",
		Tier:          TierPremium,
		PaymentAmount: 997,
		Company:       "Acme",
		Industry:      "plumbing",
	})
	f.orch.Wait()

	require.True(t, resp.Success)
	require.Equal(t, TierPremium, resp.Tier)
	require.Equal(t, 997, resp.PaymentAmount)

	// Premium substructures are guaranteed even though the analyzer
	// returned none.
	require.NotNil(t, resp.ExecutiveSummary)
	require.NotNil(t, resp.CompetitorAnalysis)
	require.NotNil(t, resp.Roadmap)
	require.NotNil(t, resp.ROIProjections)

	// Business context reached the analyzer through the scraped site.
	require.Equal(t, "Acme", f.analyzer.site.Company)
	require.Equal(t, "plumbing", f.analyzer.site.Industry)

	require.Equal(t, 997, f.store.increments["owner@acme.test"])

	// Premium caching is off unless a premium TTL is configured.
	require.Empty(t, f.cache.entries)
}

func TestRunCacheHitRespondsImmediatelyAndNotifiesAsync(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.cache.Set("https://acme.test", Result{Success: true, OverallScore: 64}, time.Hour)

	resp := f.orch.Run(context.Background(), Request{URL: "acme.test", Email: "owner@acme.test"})

	require.True(t, resp.Success)
	require.True(t, resp.Cached)
	require.Equal(t, 64, resp.Score)
	require.True(t, resp.EmailSent)
	require.Zero(t, f.scraper.callCount(), "cache hit skips the scrape")

	f.orch.Wait()
	sends := f.notifier.sentTo()
	require.Len(t, sends, 1, "cached result is emailed exactly once")
	require.Equal(t, "owner@acme.test", sends[0].email)
	// The PDF is re-rendered fresh for the cached email.
	require.NotEmpty(t, sends[0].pdfPath)

	events := f.publisher.published()
	require.Len(t, events, 1)
	require.True(t, events[0].Cached)
}

func TestRunCacheHitsRenderDistinctReports(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.cache.Set("https://one.test", Result{Success: true, OverallScore: 61}, time.Hour)
	f.cache.Set("https://two.test", Result{Success: true, OverallScore: 62}, time.Hour)

	f.orch.Run(context.Background(), Request{URL: "one.test", Email: "owner@one.test"})
	f.orch.Run(context.Background(), Request{URL: "two.test", Email: "owner@two.test"})
	f.orch.Wait()

	sends := f.notifier.sentTo()
	require.Len(t, sends, 2)
	require.NotEmpty(t, sends[0].pdfPath)
	require.NotEmpty(t, sends[1].pdfPath)
	require.NotEqual(t, sends[0].pdfPath, sends[1].pdfPath,
		"each cached email gets its own report file")
}

func TestRunIDGenerationFailureSkipsRender(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.ids.err = errors.New("entropy exhausted")

	resp := f.orch.Run(context.Background(), Request{URL: "acme.test", Email: "owner@acme.test"})
	f.orch.Wait()

	require.True(t, resp.Success)
	require.Empty(t, resp.PDFPath)
	require.Zero(t, f.renderer.callCount(), "no report file without a real audit id")
	require.True(t, resp.EmailSent, "summary email still goes out without the PDF")
}

func TestRunPremiumCacheTTLCachesUnderOwnKey(t *testing.T) {
	t.Parallel()

	f := newFixtureCfg(t, Config{
		PremiumPrice:    997,
		FreeCacheTTL:    2 * time.Hour,
		PremiumCacheTTL: time.Hour,
		EventTopic:      "audit-completed",
	})
	// A free entry for the same URL must not satisfy a paid audit.
	f.cache.Set("https://acme.test", Result{Success: true, OverallScore: 10}, time.Hour)

	req := Request{
		URL:           "acme.test",
		Email:         "owner@acme.test",
		Tier:          TierPremium,
		PaymentAmount: 997,
	}
	resp := f.orch.Run(context.Background(), req)
	f.orch.Wait()

	require.True(t, resp.Success)
	require.False(t, resp.Cached)
	require.Equal(t, 1, f.scraper.callCount())

	e, ok := f.cache.entries["premium_https://acme.test"]
	require.True(t, ok)
	require.Equal(t, time.Hour, e.ttl)

	resp = f.orch.Run(context.Background(), req)
	f.orch.Wait()

	require.True(t, resp.Cached)
	require.Equal(t, 1, f.scraper.callCount(), "second paid audit is served from the premium entry")
}

func TestRunPremiumBypassesCache(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.cache.Set("https://acme.test", Result{Success: true, OverallScore: 64}, time.Hour)

	resp := f.orch.Run(context.Background(), Request{
		URL:           "acme.test",
		Email:         "owner@acme.test",
		Tier:          TierPremium,
		PaymentAmount: 997,
	})
	f.orch.Wait()

	require.True(t, resp.Success)
	require.False(t, resp.Cached)
	require.Equal(t, 1, f.scraper.callCount(), "premium always runs a fresh audit")
}

func TestRunScrapeFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.scraper.err = errors.New("connection refused")

	resp := f.orch.Run(context.Background(), Request{URL: "acme.test", Email: "owner@acme.test"})
	f.orch.Wait()

	require.False(t, resp.Success)
	require.Equal(t, KindScrapeFailure, resp.Kind)
	require.Empty(t, f.store.saved)
	require.Empty(t, f.cache.entries)
}

func TestRunAnalysisFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.analyzer.err = errors.New("all providers down")

	resp := f.orch.Run(context.Background(), Request{URL: "acme.test", Email: "owner@acme.test"})
	f.orch.Wait()

	require.False(t, resp.Success)
	require.Equal(t, KindAnalysisFailure, resp.Kind)
}

func TestRunRenderFailureDegrades(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.renderer.err = errors.New("disk full")

	resp := f.orch.Run(context.Background(), Request{URL: "acme.test", Email: "owner@acme.test"})
	f.orch.Wait()

	require.True(t, resp.Success, "render failure never overturns the analysis")
	require.Empty(t, resp.PDFPath)
	require.True(t, resp.EmailSent, "summary email still goes out without the PDF")
	sends := f.notifier.sentTo()
	require.Len(t, sends, 1)
	require.Empty(t, sends[0].pdfPath)
}

func TestRunNotifyFailureReportedSeparately(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.notifier.err = errors.New("resend 503")

	resp := f.orch.Run(context.Background(), Request{URL: "acme.test", Email: "owner@acme.test"})
	f.orch.Wait()

	require.True(t, resp.Success)
	require.False(t, resp.EmailSent)
	require.True(t, resp.Persisted)
	require.Empty(t, f.store.emailSent, "email-sent flag stays unset on delivery failure")
}

func TestRunPersistFailureDegrades(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.store.saveErr = errors.New("db down")

	resp := f.orch.Run(context.Background(), Request{URL: "acme.test", Email: "owner@acme.test"})
	f.orch.Wait()

	require.True(t, resp.Success)
	require.False(t, resp.Persisted)
	require.True(t, resp.EmailSent)
}

func TestRunFailedAnalysisResultNotCached(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.analyzer.result = Result{Success: false, Error: "model returned garbage"}

	resp := f.orch.Run(context.Background(), Request{URL: "acme.test", Email: "owner@acme.test"})
	f.orch.Wait()

	require.False(t, resp.Success)
	require.Equal(t, KindAnalysisFailure, resp.Kind)
	require.Empty(t, f.cache.entries)
	require.Empty(t, f.store.saved)
}
