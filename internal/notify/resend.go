// Package notify delivers audit reports by email through the Resend API.
package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/seo-audit-service/internal/audit"
)

const resendBaseURL = "https://api.resend.com"

// Config holds Resend delivery settings.
type Config struct {
	APIKey      string
	FromAddress string
	ReplyTo     string
	ReportsDir  string
	BaseURL     string
	Timeout     time.Duration
}

// Resend implements audit.Notifier against the Resend HTTP API.
type Resend struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New builds a Resend notifier.
func New(cfg Config, logger *zap.Logger) *Resend {
	if cfg.BaseURL == "" {
		cfg.BaseURL = resendBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resend{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

type attachment struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

type sendRequest struct {
	From        string       `json:"from"`
	To          []string     `json:"to"`
	ReplyTo     string       `json:"reply_to,omitempty"`
	Subject     string       `json:"subject"`
	HTML        string       `json:"html"`
	Text        string       `json:"text"`
	Attachments []attachment `json:"attachments,omitempty"`
}

// SendReport emails the audit summary to the requester, attaching the
// PDF when pdfPath names a readable file. A missing or unreadable PDF
// degrades to a summary-only email rather than failing the send.
func (r *Resend) SendReport(ctx context.Context, email string, result audit.Result, pdfPath string, url string) error {
	subject := fmt.Sprintf("Your SEO Audit Results (Score: %d/100)", result.OverallScore)
	if result.ExecutiveSummary != nil {
		subject = fmt.Sprintf("Your Premium AI SEO Audit is Ready (Score: %d/100)", result.OverallScore)
	}

	req := sendRequest{
		From:    r.cfg.FromAddress,
		To:      []string{email},
		ReplyTo: r.cfg.ReplyTo,
		Subject: subject,
		HTML:    buildHTML(result, url),
		Text:    buildText(result, url),
	}

	if pdfPath != "" {
		if att, err := r.loadAttachment(pdfPath); err != nil {
			r.logger.Warn("report attachment unavailable, sending summary only",
				zap.String("pdf_path", pdfPath),
				zap.Error(err))
		} else {
			req.Attachments = append(req.Attachments, att)
		}
	}

	return r.send(ctx, req)
}

func (r *Resend) loadAttachment(pdfPath string) (attachment, error) {
	full := pdfPath
	if !filepath.IsAbs(full) && r.cfg.ReportsDir != "" {
		full = filepath.Join(r.cfg.ReportsDir, pdfPath)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return attachment{}, fmt.Errorf("read pdf: %w", err)
	}
	return attachment{
		Filename: filepath.Base(full),
		Content:  base64.StdEncoding.EncodeToString(data),
	}, nil
}

func (r *Resend) send(ctx context.Context, payload sendRequest) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.BaseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.cfg.APIKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("resend API %d: %s", resp.StatusCode, string(b))
	}
	return nil
}

func buildHTML(result audit.Result, url string) string {
	var sb strings.Builder
	sb.WriteString("<html><body>")
	sb.WriteString(fmt.Sprintf("<h1>SEO Audit for %s</h1>", url))
	sb.WriteString(fmt.Sprintf("<p><strong>Overall score: %d/100</strong></p>", result.OverallScore))

	if es := result.ExecutiveSummary; es != nil {
		sb.WriteString(fmt.Sprintf("<p>Business impact: %s. Estimated monthly revenue loss: $%d.</p>",
			es.BusinessImpactRating, es.EstMonthlyRevenueLoss))
	}
	if len(result.CriticalIssues) > 0 {
		sb.WriteString("<h2>Top issues</h2><ul>")
		for _, issue := range result.CriticalIssues {
			sb.WriteString("<li>" + issue.Issue + "</li>")
		}
		sb.WriteString("</ul>")
	}
	if len(result.Recommendations) > 0 {
		sb.WriteString("<h2>Recommendations</h2><ul>")
		for _, rec := range result.Recommendations {
			sb.WriteString("<li>" + rec.Recommendation + "</li>")
		}
		sb.WriteString("</ul>")
	}
	sb.WriteString("<p>The full report is attached as a PDF.</p>")
	sb.WriteString("</body></html>")
	return sb.String()
}

func buildText(result audit.Result, url string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("SEO Audit for %s\n", url))
	sb.WriteString(fmt.Sprintf("Overall score: %d/100\n\n", result.OverallScore))
	for _, issue := range result.CriticalIssues {
		sb.WriteString("- " + issue.Issue + "\n")
	}
	sb.WriteString("\nThe full report is attached as a PDF.\n")
	return sb.String()
}
