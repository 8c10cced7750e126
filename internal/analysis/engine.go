// Package analysis turns a scraped site into a scored audit document.
// It asks a primary chat-completion provider, falls back to a secondary
// provider, and finally degrades to a deterministic rule-based analysis
// so the pipeline never dead-ends on a provider outage.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/seo-audit-service/internal/audit"
)

const systemPrompt = "You are an elite SEO consultant producing comprehensive, business-focused audits. Every recommendation must have clear ROI potential. Respond with JSON only."

const promptTemplate = `Conduct an enterprise-level AI SEO audit for the %s tier.

WEBSITE ANALYSIS DATA:
URL: %s
Title: %s
Meta Description: %s
H1 Tags: %s
Content Length: %d characters
Schema Markup: %t
Images without Alt: %d/%d
SSL Certificate: %t
Internal Links: %d
External Links: %d

Content Sample: %s

Cover business impact (monthly traffic loss, revenue impact at $50 per visitor, 12-month opportunity cost), competitor intelligence, AI search visibility, a technical priority matrix, and a 90-day implementation roadmap.

Respond with a single JSON object with keys: overall_score (0-100), category_scores (map of category name to 0-100), critical_issues (array of {issue, business_impact, implementation_effort, expected_improvement, priority_score}), recommendations (array of {recommendation, category, priority, effort}), quick_wins (array of strings), executive_summary, competitor_analysis, implementation_roadmap, roi_projections.`

// Config holds provider credentials and endpoint overrides.
type Config struct {
	OpenAIKey         string
	OpenAIModel       string
	OpenAIBaseURL     string
	OpenRouterKey     string
	OpenRouterModel   string
	OpenRouterBaseURL string
}

// Engine implements audit.Analyzer.
type Engine struct {
	primary   Provider
	secondary Provider
	logger    *zap.Logger
}

// NewEngine builds an Engine from explicit providers. Either provider may
// be nil, in which case that slot is skipped.
func NewEngine(primary, secondary Provider, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{primary: primary, secondary: secondary, logger: logger}
}

// New builds an Engine from config, wiring OpenAI as primary and
// OpenRouter as fallback. A slot with an empty key is left nil.
func New(cfg Config, logger *zap.Logger) *Engine {
	var primary, secondary Provider
	if cfg.OpenAIKey != "" {
		primary = NewOpenAI(cfg.OpenAIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL, nil)
	}
	if cfg.OpenRouterKey != "" {
		secondary = NewOpenRouter(cfg.OpenRouterKey, cfg.OpenRouterModel, cfg.OpenRouterBaseURL, nil)
	}
	return NewEngine(primary, secondary, logger)
}

// Analyze runs the provider chain and always returns a usable Result.
// The returned error is non-nil only when even the deterministic
// fallback cannot produce one, which does not happen in practice.
func (e *Engine) Analyze(ctx context.Context, site audit.ScrapedSite, tier audit.Tier) (audit.Result, error) {
	prompt := buildPrompt(site, tier)

	for _, provider := range []Provider{e.primary, e.secondary} {
		if provider == nil {
			continue
		}
		text, err := provider.Complete(ctx, systemPrompt, prompt)
		if err != nil {
			e.logger.Warn("analysis provider failed",
				zap.String("provider", provider.Name()),
				zap.Error(err))
			continue
		}
		result, err := parseResult(text)
		if err != nil {
			e.logger.Warn("analysis response unparseable",
				zap.String("provider", provider.Name()),
				zap.Error(err))
			continue
		}
		enhanceMetrics(&result, site)
		return result, nil
	}

	e.logger.Warn("all analysis providers failed, using rule-based fallback",
		zap.String("url", site.URL))
	return audit.FallbackAnalysis(site), nil
}

func buildPrompt(site audit.ScrapedSite, tier audit.Tier) string {
	sample := site.ContentSample
	if len(sample) > 3000 {
		sample = sample[:3000]
	}
	return fmt.Sprintf(promptTemplate,
		tier,
		site.URL,
		site.Title,
		site.MetaDescription,
		strings.Join(site.H1Tags, ", "),
		site.ContentLength,
		site.HasSchema,
		site.ImagesWithoutAlt, site.Images,
		site.SSL,
		site.InternalLinks,
		site.ExternalLinks,
		sample,
	)
}

// parseResult decodes the provider's JSON, tolerating markdown code
// fences and leading prose around the object.
func parseResult(text string) (audit.Result, error) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return audit.Result{}, fmt.Errorf("no JSON object in response")
	}

	var result audit.Result
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &result); err != nil {
		return audit.Result{}, fmt.Errorf("decode analysis JSON: %w", err)
	}
	if result.OverallScore < 0 || result.OverallScore > 100 {
		return audit.Result{}, fmt.Errorf("overall score %d out of range", result.OverallScore)
	}
	result.Success = true
	result.Error = ""
	return result, nil
}

// enhanceMetrics recomputes the business-impact numbers from site
// attributes so they do not depend on whatever the model hallucinated.
func enhanceMetrics(result *audit.Result, site audit.ScrapedSite) {
	if result.ExecutiveSummary == nil {
		return
	}

	var trafficLossFactor float64
	switch {
	case site.ContentLength < 500:
		trafficLossFactor = 0.8
	case site.ContentLength < 1500:
		trafficLossFactor = 0.6
	default:
		trafficLossFactor = 0.3
	}

	images := site.Images
	if images < 1 {
		images = 1
	}
	altTextFactor := float64(site.ImagesWithoutAlt) / float64(images) * 0.4

	schemaFactor := 0.3
	if site.HasSchema {
		schemaFactor = 0.1
	}

	lossPct := trafficLossFactor + altTextFactor + schemaFactor
	if lossPct > 0.7 {
		lossPct = 0.7
	}

	const baseMonthlyVisitors = 2500
	trafficLoss := int(baseMonthlyVisitors * lossPct)
	revenueLoss := trafficLoss * audit.VisitorValueUSD

	result.ExecutiveSummary.EstMonthlyTrafficLoss = trafficLoss
	result.ExecutiveSummary.EstMonthlyRevenueLoss = revenueLoss
	result.ExecutiveSummary.AnnualOpportunityCost = revenueLoss * 12

	if result.ROIProjections != nil {
		multiplier := 7
		switch n := len(result.CriticalIssues); {
		case n >= 5:
			multiplier = 15
		case n >= 3:
			multiplier = 10
		}
		result.ROIProjections.InvestmentROI = fmt.Sprintf("%dx return on investment", multiplier)
		result.ROIProjections.BreakEvenTimeline = "30-45 days"
	}
}
