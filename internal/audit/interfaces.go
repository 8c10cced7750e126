package audit

import (
	"context"
	"time"
)

// Scraper fetches a URL and reduces it to a flat attribute record.
type Scraper interface {
	Scrape(ctx context.Context, url string) (ScrapedSite, error)
}

// Analyzer turns a scraped record into a scored audit document.
type Analyzer interface {
	Analyze(ctx context.Context, site ScrapedSite, tier Tier) (Result, error)
}

// Renderer writes the audit document to a PDF and returns its filename
// relative to the reports directory.
type Renderer interface {
	Render(ctx context.Context, result Result, site ScrapedSite, auditID string) (string, error)
}

// Notifier emails the report summary (and PDF, when present) to the requester.
type Notifier interface {
	SendReport(ctx context.Context, email string, result Result, pdfPath string, url string) error
}

// Store persists audit records and paid-customer aggregates.
type Store interface {
	SaveAudit(ctx context.Context, rec Record) (string, error)
	MarkEmailSent(ctx context.Context, auditID string, at time.Time) error
	IncrementCustomerValue(ctx context.Context, email string, amount int) error
	Close() error
}

// ResultCache maps a normalized URL to a previously computed result.
type ResultCache interface {
	Get(url string) (Result, bool)
	Set(url string, result Result, ttl time.Duration) bool
}

// Publisher pushes audit-completed events to a topic (best effort).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces audit IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
