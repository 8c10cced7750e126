package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/seo-audit-service/internal/audit"
	"github.com/JakeFAU/seo-audit-service/internal/payment"
	"github.com/JakeFAU/seo-audit-service/internal/policy/ratelimit"
	"github.com/JakeFAU/seo-audit-service/internal/telemetry"
)

// maxWebhookBody bounds signed event payloads; Stripe events are far
// smaller than this.
const maxWebhookBody = 1 << 20

func (s *Server) runAudit(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)
	window := s.cfg.RateLimitWindow()
	if !s.ipLimiter.Allow(ip, s.cfg.RateLimit.PerIP, window) {
		telemetry.ObserveRateLimitReject("ip")
		writeRateLimited(w, s.ipLimiter.ResetAfter(ip, window))
		return
	}

	var req audit.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}
	req.ClientIP = ip

	tier := req.Tier
	if tier == "" {
		tier = audit.TierFree
	}
	switch {
	case tier == audit.TierFree && !s.cfg.Features.FreeAudits:
		writeError(w, http.StatusServiceUnavailable, "free audits are currently disabled")
		return
	case tier == audit.TierPremium && !s.cfg.Features.PremiumAudits:
		writeError(w, http.StatusServiceUnavailable, "premium audits are currently disabled")
		return
	}

	if req.Email != "" {
		emailKey := ratelimit.EmailKey(req.Email)
		if !s.emailLimiter.Allow(emailKey, s.cfg.RateLimit.PerEmail, window) {
			telemetry.ObserveRateLimitReject("email")
			writeRateLimited(w, s.emailLimiter.ResetAfter(emailKey, window))
			return
		}
	}

	resp := s.audits.Run(r.Context(), req)
	if !resp.Success {
		writeJSON(w, statusForKind(resp.Kind), resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func statusForKind(kind audit.Kind) int {
	switch kind {
	case audit.KindInvalidInput, audit.KindPaymentVerification, audit.KindScrapeFailure:
		return http.StatusBadRequest
	case audit.KindRateLimitExceeded:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func writeRateLimited(w http.ResponseWriter, resetAfter time.Duration) {
	seconds := int((resetAfter + time.Second - 1) / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	writeJSON(w, http.StatusTooManyRequests, map[string]any{
		"success":             false,
		"error":               "rate limit exceeded",
		"retry_after_seconds": seconds,
	})
}

type checkoutSessionRequest struct {
	URL      string `json:"url"`
	Email    string `json:"email"`
	Company  string `json:"company"`
	Industry string `json:"industry"`
}

func (s *Server) createPaymentSession(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.Features.Payments {
		writeError(w, http.StatusServiceUnavailable, "payments are currently disabled")
		return
	}

	var req checkoutSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}
	if req.URL == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "url and email are required")
		return
	}
	if !audit.ValidEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "invalid email format")
		return
	}
	normalized, err := audit.NormalizeURL(req.URL)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid website URL format")
		return
	}

	session, err := s.payments.CreateCheckoutSession(r.Context(), payment.CheckoutRequest{
		URL:      normalized,
		Email:    strings.ToLower(req.Email),
		Company:  req.Company,
		Industry: req.Industry,
	})
	if err != nil {
		s.logger.Error("checkout session creation failed", zap.Error(err))
		writeError(w, http.StatusBadRequest, "payment processing error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"checkout_url": session.CheckoutURL,
		"session_id":   session.ID,
	})
}

func (s *Server) paymentWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	completed, err := s.payments.VerifyWebhook(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		s.logger.Warn("webhook verification failed", zap.Error(err))
		writeError(w, http.StatusBadRequest, "invalid signature")
		return
	}

	if completed != nil && completed.Request.URL != "" && completed.Request.Email != "" {
		if s.cfg.Features.PremiumAudits {
			s.startPaidAudit(*completed)
		} else {
			s.logger.Warn("premium audits disabled; dropping paid audit",
				zap.String("session_id", completed.SessionID))
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// startPaidAudit runs the purchased audit detached from the webhook
// request so Stripe gets its acknowledgement immediately.
func (s *Server) startPaidAudit(completed payment.CompletedCheckout) {
	req := audit.Request{
		URL:           completed.Request.URL,
		Email:         completed.Request.Email,
		Tier:          audit.TierPremium,
		Company:       completed.Request.Company,
		Industry:      completed.Request.Industry,
		PaymentAmount: completed.AmountUSD,
	}
	s.logger.Info("paid audit initiated",
		zap.String("url", req.URL),
		zap.String("session_id", completed.SessionID),
	)
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		resp := s.audits.Run(context.Background(), req)
		if !resp.Success {
			s.logger.Error("paid audit failed",
				zap.String("url", req.URL),
				zap.String("session_id", completed.SessionID),
				zap.String("error", resp.Error),
			)
			return
		}
		s.logger.Info("paid audit completed",
			zap.String("url", req.URL),
			zap.Int("score", resp.Score),
		)
	}()
}

func (s *Server) cacheStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"stats":   s.cache.Stats(),
	})
}

func (s *Server) cacheClear(w http.ResponseWriter, _ *http.Request) {
	cleared := s.cache.Clear()
	s.logger.Info("cache cleared", zap.Int("items", cleared))
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"cleared_items": cleared,
	})
}

func (s *Server) downloadReport(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, "path parameter required")
		return
	}
	if strings.Contains(path, "..") || strings.HasPrefix(path, "/") || strings.Contains(path, `\`) {
		writeError(w, http.StatusBadRequest, "invalid path")
		return
	}

	name := filepath.Base(path)
	safe := filepath.Join(s.cfg.Reports.Dir, name)
	if _, err := os.Stat(safe); err != nil {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	http.ServeFile(w, r, safe)
}

func (s *Server) pricing(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"pricing": map[string]any{
			"free_audit": map[string]any{
				"price": 0,
				"features": []string{
					"Basic SEO analysis",
					"Simple PDF report",
					"Email delivery",
				},
				"limitations": []string{
					"Basic analysis only",
					"No competitor intelligence",
					"No implementation roadmap",
				},
			},
			"premium_audit": map[string]any{
				"price": s.cfg.Payment.PremiumPriceUSD,
				"features": []string{
					"Comprehensive AI search analysis",
					"Professional PDF report",
					"Competitor intelligence report",
					"90-day implementation roadmap",
					"Revenue impact analysis",
					"ROI projections",
				},
				"delivery_time": "24 hours",
				"limited_slots": s.cfg.Payment.PremiumMonthlySlots,
			},
		},
	})
}
