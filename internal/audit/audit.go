// Package audit defines the core types and interfaces for the SEO audit
// pipeline, plus the Orchestrator that drives a request through
// scrape -> analyze -> render -> persist -> notify.
package audit

import "time"

// Tier classifies an audit request.
type Tier string

// Supported audit tiers.
const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

// Request is the transient input for one audit run.
type Request struct {
	URL           string `json:"url"`
	Email         string `json:"email"`
	Tier          Tier   `json:"audit_type"`
	Company       string `json:"company,omitempty"`
	Industry      string `json:"industry,omitempty"`
	PaymentAmount int    `json:"payment_amount,omitempty"`
	ClientIP      string `json:"-"`
}

// ScrapedSite is the flat attribute record produced by the Scraper.
// It is created fresh per request and never cached; only the downstream
// audit result is cached.
type ScrapedSite struct {
	URL              string   `json:"url"`
	Title            string   `json:"title"`
	MetaDescription  string   `json:"meta_description"`
	H1Tags           []string `json:"h1_tags"`
	H2Tags           []string `json:"h2_tags"`
	H3Tags           []string `json:"h3_tags"`
	Images           int      `json:"images"`
	ImagesWithoutAlt int      `json:"images_without_alt"`
	InternalLinks    int      `json:"internal_links"`
	ExternalLinks    int      `json:"external_links"`
	ContentLength    int      `json:"content_length"`
	ContentSample    string   `json:"content_sample"`
	HasSchema        bool     `json:"has_schema"`
	SSL              bool     `json:"ssl_certificate"`

	// Business context copied from the request for premium audits.
	Company  string `json:"company,omitempty"`
	Industry string `json:"industry,omitempty"`
}

// Issue is one prioritized finding in an audit result.
type Issue struct {
	Issue                string `json:"issue"`
	BusinessImpact       string `json:"business_impact"`
	ImplementationEffort string `json:"implementation_effort"`
	ExpectedImprovement  string `json:"expected_improvement"`
	PriorityScore        int    `json:"priority_score"`
}

// Recommendation is one categorized action item.
type Recommendation struct {
	Recommendation string `json:"recommendation"`
	Category       string `json:"category"`
	Priority       string `json:"priority"`
	Effort         string `json:"effort"`
}

// ExecutiveSummary carries the business-impact framing of a premium audit.
type ExecutiveSummary struct {
	OverallScore             int    `json:"overall_score"`
	BusinessImpactRating     string `json:"business_impact_rating"`
	EstMonthlyTrafficLoss    int    `json:"estimated_monthly_traffic_loss"`
	EstMonthlyRevenueLoss    int    `json:"estimated_monthly_revenue_loss"`
	AnnualOpportunityCost    int    `json:"annual_opportunity_cost"`
	ImplementationComplexity string `json:"implementation_complexity"`
	ExpectedROITimeline      string `json:"expected_roi_timeline"`
}

// Competitor describes one likely competitor in the analysis.
type Competitor struct {
	Domain               string   `json:"domain"`
	CompetitiveAdvantage string   `json:"competitive_advantage"`
	ContentGaps          []string `json:"content_gaps"`
	EstimatedTraffic     string   `json:"estimated_traffic"`
}

// CompetitorAnalysis groups the competitor intelligence section.
type CompetitorAnalysis struct {
	LikelyCompetitors          []Competitor `json:"likely_competitors"`
	MarketOpportunity          string       `json:"market_opportunity"`
	CompetitiveRecommendations []string     `json:"competitive_recommendations"`
}

// RoadmapPhase is one window of the implementation roadmap.
type RoadmapPhase struct {
	Actions              []string `json:"actions"`
	ExpectedImpact       string   `json:"expected_impact"`
	ResourceRequirements string   `json:"resource_requirements"`
}

// Roadmap is the phased 90-day implementation plan.
type Roadmap struct {
	Weeks1To2  RoadmapPhase `json:"weeks_1_2"`
	Weeks3To6  RoadmapPhase `json:"weeks_3_6"`
	Weeks7To12 RoadmapPhase `json:"weeks_7_12"`
}

// ROIWindow projects impact over one time horizon.
type ROIWindow struct {
	TrafficIncrease string   `json:"traffic_increase"`
	RevenueIncrease string   `json:"revenue_increase"`
	KeyImprovements []string `json:"key_improvements,omitempty"`
}

// ROIProjections groups the return-on-investment section.
type ROIProjections struct {
	Day30             ROIWindow `json:"30_day_impact"`
	Day90             ROIWindow `json:"90_day_impact"`
	Month12           ROIWindow `json:"12_month_potential"`
	InvestmentROI     string    `json:"investment_roi"`
	BreakEvenTimeline string    `json:"break_even_timeline"`
}

// Result is the audit document produced once per request by the Analyzer
// (or its deterministic fallback). When Success is false no score or
// category fields may be trusted by downstream consumers. The premium
// substructures are pointers: upstream providers may omit them, and the
// enrichment step fills the gaps with heuristic defaults.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`

	OverallScore    int              `json:"overall_score"`
	CategoryScores  map[string]int   `json:"category_scores"`
	CriticalIssues  []Issue          `json:"critical_issues"`
	Recommendations []Recommendation `json:"recommendations"`
	QuickWins       []string         `json:"quick_wins,omitempty"`

	ExecutiveSummary   *ExecutiveSummary   `json:"executive_summary,omitempty"`
	CompetitorAnalysis *CompetitorAnalysis `json:"competitor_analysis,omitempty"`
	Roadmap            *Roadmap            `json:"implementation_roadmap,omitempty"`
	ROIProjections     *ROIProjections     `json:"roi_projections,omitempty"`
}

// Response is the uniform envelope returned to the API caller for every
// audit request, whatever stage failed. Success reflects analysis success;
// EmailSent and Persisted report the best-effort steps separately.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Kind    Kind   `json:"-"`

	Score           int              `json:"score"`
	OverallScore    int              `json:"overall_score"`
	Issues          []Issue          `json:"issues"`
	Recommendations []Recommendation `json:"recommendations"`
	Categories      map[string]int   `json:"categories"`
	PDFPath         string           `json:"pdf_path,omitempty"`
	EmailSent       bool             `json:"email_sent"`
	Persisted       bool             `json:"persisted"`
	Cached          bool             `json:"cached"`
	Tier            Tier             `json:"audit_type"`
	PaymentAmount   int              `json:"payment_amount"`

	ExecutiveSummary   *ExecutiveSummary   `json:"executive_summary,omitempty"`
	CompetitorAnalysis *CompetitorAnalysis `json:"competitor_analysis,omitempty"`
	Roadmap            *Roadmap            `json:"implementation_roadmap,omitempty"`
	ROIProjections     *ROIProjections     `json:"roi_projections,omitempty"`
}

// Record is the durable row persisted once analysis succeeds.
type Record struct {
	ID            string    `db:"id"`
	Email         string    `db:"email"`
	URL           string    `db:"url"`
	Tier          Tier      `db:"audit_type"`
	PaymentAmount int       `db:"payment_amount"`
	Company       string    `db:"company"`
	Industry      string    `db:"industry"`
	OverallScore  int       `db:"overall_score"`
	Result        Result    `db:"audit_data"`
	PDFPath       string    `db:"pdf_report_path"`
	EmailSent     bool      `db:"email_sent"`
	ClientIP      string    `db:"customer_ip"`
	CreatedAt     time.Time `db:"created_at"`
}

// CompletedEvent is published after each audit run for downstream
// consumers (analytics, CRM sync).
type CompletedEvent struct {
	AuditID      string    `json:"audit_id"`
	URL          string    `json:"url"`
	Tier         Tier      `json:"audit_type"`
	OverallScore int       `json:"overall_score"`
	Cached       bool      `json:"cached"`
	EmailSent    bool      `json:"email_sent"`
	CompletedAt  time.Time `json:"completed_at"`
}
