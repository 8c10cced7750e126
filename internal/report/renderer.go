// Package report renders audit documents into PDF files.
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/JakeFAU/seo-audit-service/internal/audit"
)

// Renderer writes audit PDFs into a reports directory.
type Renderer struct {
	dir string
}

// New builds a Renderer, creating the reports directory if needed.
func New(dir string) (*Renderer, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create reports dir: %w", err)
	}
	return &Renderer{dir: dir}, nil
}

// Dir returns the reports directory.
func (r *Renderer) Dir() string {
	return r.dir
}

// Render writes audit_<id>.pdf and returns the filename relative to the
// reports directory. Premium sections are included when the result
// carries them.
func (r *Renderer) Render(ctx context.Context, result audit.Result, site audit.ScrapedSite, auditID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("render canceled: %w", err)
	}
	if !result.Success {
		return "", fmt.Errorf("refusing to render failed result")
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("AI SEO Audit Report", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 22)
	pdf.CellFormat(0, 12, "AI SEO Audit Report", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 8, site.URL, "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, fmt.Sprintf("Overall Score: %d / 100", result.OverallScore), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	if result.ExecutiveSummary != nil {
		r.writeExecutiveSummary(pdf, result.ExecutiveSummary)
	}
	r.writeCategoryScores(pdf, result.CategoryScores)
	r.writeIssues(pdf, result.CriticalIssues)
	r.writeRecommendations(pdf, result.Recommendations)

	if result.CompetitorAnalysis != nil {
		r.writeCompetitors(pdf, result.CompetitorAnalysis)
	}
	if result.Roadmap != nil {
		r.writeRoadmap(pdf, result.Roadmap)
	}
	if result.ROIProjections != nil {
		r.writeROI(pdf, result.ROIProjections)
	}

	filename := fmt.Sprintf("audit_%s.pdf", auditID)
	path := filepath.Join(r.dir, filename)
	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("write pdf: %w", err)
	}
	return filename, nil
}

func (r *Renderer) sectionHeading(pdf *fpdf.Fpdf, title string) {
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 9, title, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
}

func (r *Renderer) writeExecutiveSummary(pdf *fpdf.Fpdf, es *audit.ExecutiveSummary) {
	r.sectionHeading(pdf, "Executive Summary")
	lines := []string{
		fmt.Sprintf("Business impact rating: %s", es.BusinessImpactRating),
		fmt.Sprintf("Estimated monthly traffic loss: %d visitors", es.EstMonthlyTrafficLoss),
		fmt.Sprintf("Estimated monthly revenue loss: $%d", es.EstMonthlyRevenueLoss),
		fmt.Sprintf("Annual opportunity cost: $%d", es.AnnualOpportunityCost),
		fmt.Sprintf("Implementation complexity: %s", es.ImplementationComplexity),
		fmt.Sprintf("Expected ROI timeline: %s", es.ExpectedROITimeline),
	}
	for _, line := range lines {
		pdf.CellFormat(0, 6, line, "", 1, "L", false, 0, "")
	}
}

func (r *Renderer) writeCategoryScores(pdf *fpdf.Fpdf, scores map[string]int) {
	if len(scores) == 0 {
		return
	}
	r.sectionHeading(pdf, "Category Scores")

	names := make([]string, 0, len(scores))
	for name := range scores {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		label := strings.ReplaceAll(name, "_", " ")
		pdf.CellFormat(0, 6, fmt.Sprintf("%s: %d / 100", label, scores[name]), "", 1, "L", false, 0, "")
	}
}

func (r *Renderer) writeIssues(pdf *fpdf.Fpdf, issues []audit.Issue) {
	if len(issues) == 0 {
		return
	}
	r.sectionHeading(pdf, "Critical Issues")
	for i, issue := range issues {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.MultiCell(0, 6, fmt.Sprintf("%d. %s (priority %d)", i+1, issue.Issue, issue.PriorityScore), "", "L", false)
		pdf.SetFont("Helvetica", "", 10)
		if issue.BusinessImpact != "" {
			pdf.MultiCell(0, 5, "Impact: "+issue.BusinessImpact, "", "L", false)
		}
		if issue.ExpectedImprovement != "" {
			pdf.MultiCell(0, 5, "Expected improvement: "+issue.ExpectedImprovement, "", "L", false)
		}
		pdf.Ln(1)
	}
}

func (r *Renderer) writeRecommendations(pdf *fpdf.Fpdf, recs []audit.Recommendation) {
	if len(recs) == 0 {
		return
	}
	r.sectionHeading(pdf, "Recommendations")
	for _, rec := range recs {
		pdf.MultiCell(0, 5, fmt.Sprintf("- [%s/%s] %s", rec.Category, rec.Priority, rec.Recommendation), "", "L", false)
	}
}

func (r *Renderer) writeCompetitors(pdf *fpdf.Fpdf, ca *audit.CompetitorAnalysis) {
	pdf.AddPage()
	r.sectionHeading(pdf, "Competitor Intelligence")
	for _, comp := range ca.LikelyCompetitors {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(0, 6, comp.Domain, "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		if comp.CompetitiveAdvantage != "" {
			pdf.MultiCell(0, 5, "Advantage: "+comp.CompetitiveAdvantage, "", "L", false)
		}
		if len(comp.ContentGaps) > 0 {
			pdf.MultiCell(0, 5, "Content gaps: "+strings.Join(comp.ContentGaps, "; "), "", "L", false)
		}
		pdf.Ln(1)
	}
	if ca.MarketOpportunity != "" {
		pdf.MultiCell(0, 5, "Market opportunity: "+ca.MarketOpportunity, "", "L", false)
	}
}

func (r *Renderer) writeRoadmap(pdf *fpdf.Fpdf, rm *audit.Roadmap) {
	r.sectionHeading(pdf, "90-Day Implementation Roadmap")
	phases := []struct {
		label string
		phase audit.RoadmapPhase
	}{
		{"Weeks 1-2", rm.Weeks1To2},
		{"Weeks 3-6", rm.Weeks3To6},
		{"Weeks 7-12", rm.Weeks7To12},
	}
	for _, p := range phases {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(0, 6, p.label, "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		for _, action := range p.phase.Actions {
			pdf.MultiCell(0, 5, "- "+action, "", "L", false)
		}
		if p.phase.ExpectedImpact != "" {
			pdf.MultiCell(0, 5, "Expected impact: "+p.phase.ExpectedImpact, "", "L", false)
		}
		pdf.Ln(1)
	}
}

func (r *Renderer) writeROI(pdf *fpdf.Fpdf, roi *audit.ROIProjections) {
	r.sectionHeading(pdf, "ROI Projections")
	windows := []struct {
		label  string
		window audit.ROIWindow
	}{
		{"30-day impact", roi.Day30},
		{"90-day impact", roi.Day90},
		{"12-month potential", roi.Month12},
	}
	for _, w := range windows {
		pdf.CellFormat(0, 6, fmt.Sprintf("%s: traffic %s, revenue %s", w.label, w.window.TrafficIncrease, w.window.RevenueIncrease), "", 1, "L", false, 0, "")
	}
	if roi.InvestmentROI != "" {
		pdf.CellFormat(0, 6, "Investment ROI: "+roi.InvestmentROI, "", 1, "L", false, 0, "")
	}
	if roi.BreakEvenTimeline != "" {
		pdf.CellFormat(0, 6, "Break-even timeline: "+roi.BreakEvenTimeline, "", 1, "L", false, 0, "")
	}
}
