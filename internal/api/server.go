// Package api exposes the HTTP interface for the audit service.
package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/seo-audit-service/internal/audit"
	"github.com/JakeFAU/seo-audit-service/internal/cache"
	"github.com/JakeFAU/seo-audit-service/internal/config"
	"github.com/JakeFAU/seo-audit-service/internal/payment"
	"github.com/JakeFAU/seo-audit-service/internal/telemetry"
)

// AuditRunner executes the audit pipeline for one request.
type AuditRunner interface {
	Run(ctx context.Context, req audit.Request) audit.Response
}

// CacheAdmin is the slice of the result cache the admin endpoints need.
type CacheAdmin interface {
	Stats() cache.Stats
	Clear() int
}

// PaymentGateway creates checkout sessions and verifies webhook payloads.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, req payment.CheckoutRequest) (payment.Session, error)
	VerifyWebhook(payload []byte, signature string) (*payment.CompletedCheckout, error)
}

// RateLimiter admits or rejects requests under a rolling window.
type RateLimiter interface {
	Allow(key string, limit int, window time.Duration) bool
	ResetAfter(key string, window time.Duration) time.Duration
}

// Server wires HTTP handlers to the orchestrator, cache, and payment
// gateway.
type Server struct {
	router       chi.Router
	audits       AuditRunner
	cache        CacheAdmin
	payments     PaymentGateway
	ipLimiter    RateLimiter
	emailLimiter RateLimiter
	cfg          config.Config
	logger       *zap.Logger

	background sync.WaitGroup
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	audits AuditRunner,
	resultCache CacheAdmin,
	payments PaymentGateway,
	ipLimiter RateLimiter,
	emailLimiter RateLimiter,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	s := &Server{
		audits:       audits,
		cache:        resultCache,
		payments:     payments,
		ipLimiter:    ipLimiter,
		emailLimiter: emailLimiter,
		cfg:          cfg,
		logger:       logger,
	}
	requestTimeout := time.Duration(cfg.Server.TimeoutSeconds) * time.Second
	if requestTimeout <= 0 {
		requestTimeout = 60 * time.Second
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(timeoutMiddleware(requestTimeout))

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", telemetry.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/audit", s.runAudit)
		r.Route("/payment", func(r chi.Router) {
			r.Post("/create-session", s.createPaymentSession)
			r.Post("/webhook", s.paymentWebhook)
		})
		r.Route("/cache", func(r chi.Router) {
			r.Get("/stats", s.cacheStats)
			r.Post("/clear", s.cacheClear)
		})
		r.Get("/download", s.downloadReport)
		r.Get("/pricing", s.pricing)
		r.Get("/health", s.health)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Wait blocks until webhook-detached audits have finished. Intended for
// shutdown and tests.
func (s *Server) Wait() {
	s.background.Wait()
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"services": map[string]bool{
			"free_audits":    s.cfg.Features.FreeAudits,
			"premium_audits": s.cfg.Features.PremiumAudits,
			"payments":       s.cfg.Features.Payments,
			"email":          s.cfg.Features.Email,
		},
	})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		duration := time.Since(start)
		route := chi.RouteContext(r.Context()).RoutePattern()
		telemetry.ObserveHTTPRequest(r.Method, route, ww.status, duration)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", duration.Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

type requestIDKey struct{}

// clientIP prefers the first X-Forwarded-For hop so limits apply to the
// origin client behind a proxy, falling back to the socket peer.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}
