package audit

import "fmt"

// EnrichPremium guarantees the premium substructures of a result exist,
// synthesizing defaults from simple page heuristics when the upstream
// analysis omitted them. It always runs for premium audits and is
// idempotent on already-complete input: present sections are kept as-is.
func EnrichPremium(result Result, site ScrapedSite) Result {
	if result.CategoryScores == nil {
		result.CategoryScores = defaultCategoryScores(result.OverallScore, site)
	}
	if result.ExecutiveSummary == nil {
		result.ExecutiveSummary = defaultExecutiveSummary(result.OverallScore, site)
	}
	// The annual figure is derived, so recompute it even on complete input.
	result.ExecutiveSummary.AnnualOpportunityCost = result.ExecutiveSummary.EstMonthlyRevenueLoss * 12
	if result.ExecutiveSummary.OverallScore == 0 {
		result.ExecutiveSummary.OverallScore = result.OverallScore
	}
	if result.OverallScore == 0 {
		result.OverallScore = result.ExecutiveSummary.OverallScore
	}
	if result.CompetitorAnalysis == nil {
		result.CompetitorAnalysis = defaultCompetitorAnalysis()
	}
	if result.Roadmap == nil {
		result.Roadmap = defaultRoadmap()
	}
	if result.ROIProjections == nil {
		result.ROIProjections = defaultROIProjections(result.ExecutiveSummary.EstMonthlyRevenueLoss, len(result.CriticalIssues))
	}
	return result
}

func defaultExecutiveSummary(score int, site ScrapedSite) *ExecutiveSummary {
	// Loss heuristics: thin content, missing alt text and absent schema
	// markup each shave a share of an assumed 2500 monthly visitors.
	lossFactor := 0.3
	if site.ContentLength < 500 {
		lossFactor = 0.8
	} else if site.ContentLength < 1500 {
		lossFactor = 0.6
	}
	if site.Images > 0 {
		lossFactor += float64(site.ImagesWithoutAlt) / float64(site.Images) * 0.4
	}
	if site.HasSchema {
		lossFactor += 0.1
	} else {
		lossFactor += 0.3
	}
	if lossFactor > 0.7 {
		lossFactor = 0.7
	}
	trafficLoss := int(2500 * lossFactor)
	if trafficLoss < 1000 {
		trafficLoss = 1000
	}
	revenueLoss := trafficLoss * VisitorValueUSD

	impact := "Medium"
	if score < 60 {
		impact = "High"
	}
	return &ExecutiveSummary{
		OverallScore:             score,
		BusinessImpactRating:     impact,
		EstMonthlyTrafficLoss:    trafficLoss,
		EstMonthlyRevenueLoss:    revenueLoss,
		ImplementationComplexity: "Medium",
		ExpectedROITimeline:      "45-60 days",
	}
}

func defaultCategoryScores(score int, site ScrapedSite) map[string]int {
	return map[string]int{
		"technical_seo":        floorAt(score-10, 30),
		"content_quality":      floorAt(score-15, 25),
		"ai_readiness":         floorAt(score-25, 20),
		"voice_search":         floorAt(score-20, 25),
		"schema_markup":        schemaScore(site.HasSchema),
		"competitive_position": floorAt(score-5, 30),
	}
}

func defaultCompetitorAnalysis() *CompetitorAnalysis {
	return &CompetitorAnalysis{
		LikelyCompetitors: []Competitor{{
			Domain:               "industry-leader.com",
			CompetitiveAdvantage: "Strong AI search optimization and comprehensive content strategy",
			ContentGaps:          []string{"In-depth guides", "FAQ sections", "Local optimization"},
			EstimatedTraffic:     "high",
		}},
		MarketOpportunity: "Significant opportunity to capture market share through AI search optimization",
		CompetitiveRecommendations: []string{
			"Implement structured data to match competitor capabilities",
			"Create comprehensive content to fill identified gaps",
			"Optimize for voice search queries competitors are missing",
		},
	}
}

func defaultRoadmap() *Roadmap {
	return &Roadmap{
		Weeks1To2: RoadmapPhase{
			Actions: []string{
				"Implement basic schema markup",
				"Optimize title tags and meta descriptions",
				"Add alt text to all images",
			},
			ExpectedImpact:       "25% improvement in search visibility",
			ResourceRequirements: "20-30 hours of development time",
		},
		Weeks3To6: RoadmapPhase{
			Actions: []string{
				"Create comprehensive FAQ content",
				"Implement advanced schema types",
				"Optimize for voice search queries",
			},
			ExpectedImpact:       "40% improvement in AI search presence",
			ResourceRequirements: "40-50 hours of content and technical work",
		},
		Weeks7To12: RoadmapPhase{
			Actions: []string{
				"Build topic authority through content clusters",
				"Implement local SEO optimization",
				"Create industry comparison content",
			},
			ExpectedImpact:       "60% overall improvement in search performance",
			ResourceRequirements: "60-80 hours of strategic content development",
		},
	}
}

func defaultROIProjections(monthlyLoss, criticalIssueCount int) *ROIProjections {
	multiple := 7
	switch {
	case criticalIssueCount >= 5:
		multiple = 15
	case criticalIssueCount >= 3:
		multiple = 10
	}
	return &ROIProjections{
		Day30: ROIWindow{
			TrafficIncrease: "20-30%",
			RevenueIncrease: fmt.Sprintf("$%d", int(float64(monthlyLoss)*0.3)),
			KeyImprovements: []string{"Better AI search visibility", "Improved click-through rates"},
		},
		Day90: ROIWindow{
			TrafficIncrease: "50-70%",
			RevenueIncrease: fmt.Sprintf("$%d", int(float64(monthlyLoss)*0.7)),
		},
		Month12: ROIWindow{
			TrafficIncrease: "100-150%",
			RevenueIncrease: fmt.Sprintf("$%d", int(float64(monthlyLoss)*1.5*12)),
		},
		InvestmentROI:     fmt.Sprintf("%dx return on investment", multiple),
		BreakEvenTimeline: "30-45 days",
	}
}
