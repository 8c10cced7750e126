// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/seo-audit-service/internal/audit"
)

// AuditStoreConfig controls the Postgres connection pool used for audit rows.
type AuditStoreConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// AuditStore implements audit.Store against Postgres.
type AuditStore struct {
	pool execCloser
}

// NewAuditStore creates a Postgres-backed AuditStore using the provided config.
func NewAuditStore(ctx context.Context, cfg AuditStoreConfig) (*AuditStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &AuditStore{pool: pool}, nil
}

// NewAuditStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewAuditStoreWithPool(pool execCloser) (*AuditStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &AuditStore{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *AuditStore) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

// SaveAudit inserts an audit row and returns its ID.
func (s *AuditStore) SaveAudit(ctx context.Context, rec audit.Record) (string, error) {
	if s == nil || s.pool == nil {
		return "", fmt.Errorf("audit store is not configured")
	}
	if rec.ID == "" {
		return "", fmt.Errorf("record id is required")
	}
	resultJSON, err := json.Marshal(rec.Result)
	if err != nil {
		return "", fmt.Errorf("marshal audit result: %w", err)
	}

	query := `
INSERT INTO audits (
	id,
	email,
	url,
	audit_type,
	payment_amount,
	company,
	industry,
	overall_score,
	audit_data,
	pdf_report_path,
	email_sent,
	customer_ip,
	created_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
)`

	args := []any{
		rec.ID,
		rec.Email,
		rec.URL,
		string(rec.Tier),
		rec.PaymentAmount,
		rec.Company,
		rec.Industry,
		rec.OverallScore,
		resultJSON,
		rec.PDFPath,
		rec.EmailSent,
		rec.ClientIP,
		rec.CreatedAt,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return "", fmt.Errorf("insert audit: %w", err)
	}
	return rec.ID, nil
}

// MarkEmailSent flips the email_sent flag once delivery succeeds.
func (s *AuditStore) MarkEmailSent(ctx context.Context, auditID string, at time.Time) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("audit store is not configured")
	}
	query := `UPDATE audits SET email_sent = TRUE, email_sent_at = $2 WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query, auditID, at)
	if err != nil {
		return fmt.Errorf("mark email sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("audit %s not found", auditID)
	}
	return nil
}

// IncrementCustomerValue upserts the per-customer lifetime aggregate.
// The increment happens inside the statement so concurrent purchases for
// the same email never lose an update.
func (s *AuditStore) IncrementCustomerValue(ctx context.Context, email string, amount int) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("audit store is not configured")
	}
	query := `
INSERT INTO customers (email, total_spent, audits_purchased, first_purchase_at, last_purchase_at)
VALUES ($1, $2, 1, NOW(), NOW())
ON CONFLICT (email) DO UPDATE SET
	total_spent = customers.total_spent + EXCLUDED.total_spent,
	audits_purchased = customers.audits_purchased + 1,
	last_purchase_at = NOW()`
	if _, err := s.pool.Exec(ctx, query, email, amount); err != nil {
		return fmt.Errorf("increment customer value: %w", err)
	}
	return nil
}
