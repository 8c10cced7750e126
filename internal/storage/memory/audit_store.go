// Package memory provides an in-memory audit.Store for development and tests.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/JakeFAU/seo-audit-service/internal/audit"
)

// CustomerAggregate tracks lifetime value for one paying customer.
type CustomerAggregate struct {
	Email           string
	TotalSpent      int
	AuditsPurchased int
	LastPurchaseAt  time.Time
}

// AuditStore implements audit.Store with maps behind a mutex.
type AuditStore struct {
	mu        sync.RWMutex
	audits    map[string]audit.Record
	customers map[string]CustomerAggregate
}

// NewAuditStore constructs an AuditStore.
func NewAuditStore() *AuditStore {
	return &AuditStore{
		audits:    make(map[string]audit.Record),
		customers: make(map[string]CustomerAggregate),
	}
}

// SaveAudit stores a record keyed by its ID.
func (s *AuditStore) SaveAudit(_ context.Context, rec audit.Record) (string, error) {
	if rec.ID == "" {
		return "", errors.New("record id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.audits[rec.ID]; exists {
		return "", errors.New("audit already exists")
	}
	s.audits[rec.ID] = rec
	return rec.ID, nil
}

// MarkEmailSent flips the email-sent flag for a stored audit.
func (s *AuditStore) MarkEmailSent(_ context.Context, auditID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.audits[auditID]
	if !ok {
		return errors.New("audit not found")
	}
	rec.EmailSent = true
	s.audits[auditID] = rec
	return nil
}

// IncrementCustomerValue adds amount to the customer's lifetime total.
func (s *AuditStore) IncrementCustomerValue(_ context.Context, email string, amount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	agg := s.customers[email]
	agg.Email = email
	agg.TotalSpent += amount
	agg.AuditsPurchased++
	agg.LastPurchaseAt = time.Now().UTC()
	s.customers[email] = agg
	return nil
}

// Close is a no-op for the in-memory store.
func (s *AuditStore) Close() error {
	return nil
}

// GetAudit returns a stored record (test helper).
func (s *AuditStore) GetAudit(auditID string) (audit.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.audits[auditID]
	return rec, ok
}

// Customer returns the aggregate for one email (test helper).
func (s *AuditStore) Customer(email string) (CustomerAggregate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	agg, ok := s.customers[email]
	return agg, ok
}

// Len reports how many audits are stored.
func (s *AuditStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.audits)
}
