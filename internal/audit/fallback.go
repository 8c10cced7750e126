package audit

import "fmt"

// VisitorValueUSD is the assumed revenue per monthly organic visitor,
// shared by every business-impact estimate in the audit.
const VisitorValueUSD = 50

// Baseline score and per-finding deductions for the rule-based fallback.
const (
	fallbackBaseline      = 60
	fallbackFloor         = 20
	deductionThinContent  = 15
	deductionMissingTitle = 10
	deductionMissingMeta  = 8
	deductionNoSchema     = 20
	deductionMissingAlt   = 5
	thinContentThreshold  = 1000
)

// FallbackAnalysis derives a conservative audit result purely from the
// scraped attributes. It is used when both AI providers are unavailable,
// so it must never fail: the pipeline cannot dead-end on a provider outage.
func FallbackAnalysis(site ScrapedSite) Result {
	score := fallbackBaseline
	var issues []Issue
	var recs []Recommendation

	if site.ContentLength < thinContentThreshold {
		issues = append(issues, Issue{
			Issue:                "Insufficient content depth for AI search visibility",
			BusinessImpact:       "high",
			ImplementationEffort: "2-3 weeks",
			ExpectedImprovement:  "40% increase in AI search mentions",
			PriorityScore:        9,
		})
		recs = append(recs, Recommendation{
			Recommendation: "Create comprehensive, AI-optimized content covering user questions in depth",
			Category:       "Content Strategy",
			Priority:       "high",
			Effort:         "medium",
		})
		score -= deductionThinContent
	}
	if site.Title == "" {
		issues = append(issues, Issue{
			Issue:                "Missing or inadequate title tag optimization",
			BusinessImpact:       "high",
			ImplementationEffort: "1 week",
			ExpectedImprovement:  "25% improvement in click-through rates",
			PriorityScore:        10,
		})
		score -= deductionMissingTitle
	}
	if site.MetaDescription == "" {
		issues = append(issues, Issue{
			Issue:                "Missing meta descriptions reducing AI extraction potential",
			BusinessImpact:       "medium",
			ImplementationEffort: "1 week",
			ExpectedImprovement:  "15% improvement in search visibility",
			PriorityScore:        8,
		})
		score -= deductionMissingMeta
	}
	if !site.HasSchema {
		issues = append(issues, Issue{
			Issue:                "Complete absence of structured data markup",
			BusinessImpact:       "critical",
			ImplementationEffort: "3-4 weeks",
			ExpectedImprovement:  "60% improvement in AI search understanding",
			PriorityScore:        10,
		})
		recs = append(recs, Recommendation{
			Recommendation: "Implement comprehensive schema markup for all content types",
			Category:       "Technical SEO",
			Priority:       "high",
			Effort:         "high",
		})
		score -= deductionNoSchema
	}
	if site.ImagesWithoutAlt > 0 {
		issues = append(issues, Issue{
			Issue:                fmt.Sprintf("%d images lacking accessibility and SEO optimization", site.ImagesWithoutAlt),
			BusinessImpact:       "medium",
			ImplementationEffort: "1-2 weeks",
			ExpectedImprovement:  "10% improvement in page comprehension by AI",
			PriorityScore:        6,
		})
		score -= deductionMissingAlt
	}
	if score < fallbackFloor {
		score = fallbackFloor
	}

	trafficLoss := 3000 - score*30
	if trafficLoss < 1000 {
		trafficLoss = 1000
	}
	revenueLoss := trafficLoss * VisitorValueUSD

	impact := "Medium"
	if score < 50 {
		impact = "High"
	}

	return Result{
		Success:      true,
		OverallScore: score,
		CategoryScores: map[string]int{
			"technical_seo":        floorAt(score-10, 30),
			"content_quality":      floorAt(score-15, 25),
			"ai_readiness":         floorAt(score-25, 20),
			"voice_search":         floorAt(score-20, 25),
			"schema_markup":        schemaScore(site.HasSchema),
			"competitive_position": floorAt(score-5, 30),
		},
		CriticalIssues:  issues,
		Recommendations: recs,
		ExecutiveSummary: &ExecutiveSummary{
			OverallScore:             score,
			BusinessImpactRating:     impact,
			EstMonthlyTrafficLoss:    trafficLoss,
			EstMonthlyRevenueLoss:    revenueLoss,
			AnnualOpportunityCost:    revenueLoss * 12,
			ImplementationComplexity: "Medium",
			ExpectedROITimeline:      "45-60 days",
		},
	}
}

func floorAt(v, floor int) int {
	if v < floor {
		return floor
	}
	return v
}

func schemaScore(hasSchema bool) int {
	if hasSchema {
		return 20
	}
	return 0
}
