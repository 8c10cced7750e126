package analysis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/seo-audit-service/internal/audit"
)

func completionServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		if status != http.StatusOK {
			http.Error(w, "provider down", status)
			return
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func sampleSite() audit.ScrapedSite {
	return audit.ScrapedSite{
		URL:              "https://acme.example.com",
		Title:            "Acme",
		MetaDescription:  "Acme services",
		ContentLength:    400,
		Images:           4,
		ImagesWithoutAlt: 2,
		HasSchema:        false,
		SSL:              true,
	}
}

const validAnalysisJSON = `{
	"overall_score": 72,
	"category_scores": {"technical_seo": 70},
	"critical_issues": [
		{"issue": "thin content", "business_impact": "high", "priority_score": 9}
	],
	"recommendations": [
		{"recommendation": "expand content", "category": "content", "priority": "high", "effort": "medium"}
	],
	"executive_summary": {"overall_score": 72, "business_impact_rating": "High"},
	"roi_projections": {"investment_roi": "", "break_even_timeline": ""}
}`

func TestAnalyzeUsesPrimaryProvider(t *testing.T) {
	t.Parallel()

	srv := completionServer(t, http.StatusOK, validAnalysisJSON)
	defer srv.Close()

	primary := NewOpenAI("sk-test", "gpt-4o", srv.URL, srv.Client())
	engine := NewEngine(primary, nil, nil)

	result, err := engine.Analyze(context.Background(), sampleSite(), audit.TierPremium)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, 72, result.OverallScore)
	require.Len(t, result.CriticalIssues, 1)

	// Business metrics are recomputed from site attributes.
	require.NotNil(t, result.ExecutiveSummary)
	// content 400 (<500) -> 0.8, alt ratio 0.5*0.4 -> 0.2, no schema -> 0.3;
	// capped at 0.7 of 2500 base visitors.
	require.Equal(t, 1750, result.ExecutiveSummary.EstMonthlyTrafficLoss)
	require.Equal(t, 1750*audit.VisitorValueUSD, result.ExecutiveSummary.EstMonthlyRevenueLoss)
	require.Equal(t, 1750*audit.VisitorValueUSD*12, result.ExecutiveSummary.AnnualOpportunityCost)
	require.Equal(t, "7x return on investment", result.ROIProjections.InvestmentROI)
}

func TestAnalyzeFallsBackToSecondary(t *testing.T) {
	t.Parallel()

	down := completionServer(t, http.StatusBadGateway, "")
	defer down.Close()
	up := completionServer(t, http.StatusOK, "```json\n"+validAnalysisJSON+"\n```")
	defer up.Close()

	primary := NewOpenAI("sk-test", "gpt-4o", down.URL, down.Client())
	secondary := NewOpenRouter("sk-or", "openai/gpt-4", up.URL, up.Client())
	engine := NewEngine(primary, secondary, nil)

	result, err := engine.Analyze(context.Background(), sampleSite(), audit.TierFree)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, 72, result.OverallScore)
}

func TestAnalyzeDegradesToRuleBasedFallback(t *testing.T) {
	t.Parallel()

	down := completionServer(t, http.StatusServiceUnavailable, "")
	defer down.Close()

	primary := NewOpenAI("sk-test", "gpt-4o", down.URL, down.Client())
	secondary := NewOpenRouter("sk-or", "openai/gpt-4", down.URL, down.Client())
	engine := NewEngine(primary, secondary, nil)

	result, err := engine.Analyze(context.Background(), sampleSite(), audit.TierFree)
	require.NoError(t, err)
	require.True(t, result.Success)
	// Deterministic scoring for this site: 60 - 15 (thin) - 20 (no schema)
	// - 5 (missing alt) = 20.
	require.Equal(t, 20, result.OverallScore)
	require.NotEmpty(t, result.CriticalIssues)
}

func TestAnalyzeRejectsGarbageThenFallsBack(t *testing.T) {
	t.Parallel()

	garbage := completionServer(t, http.StatusOK, "I could not produce JSON today.")
	defer garbage.Close()

	engine := NewEngine(NewOpenAI("sk", "gpt-4o", garbage.URL, garbage.Client()), nil, nil)
	result, err := engine.Analyze(context.Background(), sampleSite(), audit.TierFree)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, 20, result.OverallScore)
}

func TestParseResultToleratesProse(t *testing.T) {
	t.Parallel()

	result, err := parseResult("Here is your audit:\n" + validAnalysisJSON + "\nHope that helps!")
	require.NoError(t, err)
	require.Equal(t, 72, result.OverallScore)

	_, err = parseResult(`{"overall_score": 400}`)
	require.Error(t, err)
}
