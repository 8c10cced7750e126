// Package payment integrates Stripe checkout and webhook verification
// for the premium audit tier.
package payment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
)

// Config holds Stripe credentials and pricing.
type Config struct {
	SecretKey       string
	WebhookSecret   string
	PremiumPriceUSD int64
	SuccessURL      string
	CancelURL       string
}

// Client wraps the Stripe API for checkout session management.
type Client struct {
	api *client.API
	cfg Config
}

// New builds a Client.
func New(cfg Config) *Client {
	api := &client.API{}
	api.Init(cfg.SecretKey, nil)
	return &Client{api: api, cfg: cfg}
}

// CheckoutRequest carries the audit context for a premium purchase. It
// is stored as session metadata so the webhook can kick off the audit.
type CheckoutRequest struct {
	URL      string `json:"website_url"`
	Email    string `json:"email"`
	Company  string `json:"company,omitempty"`
	Industry string `json:"industry,omitempty"`
}

// Session is the subset of a checkout session the API layer needs.
type Session struct {
	ID          string
	CheckoutURL string
}

// CreateCheckoutSession opens a Stripe checkout for one premium audit.
func (c *Client) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (Session, error) {
	if req.URL == "" || req.Email == "" {
		return Session{}, fmt.Errorf("checkout requires url and email")
	}

	params := &stripe.CheckoutSessionParams{
		Params: stripe.Params{Context: ctx},
		Mode:   stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(string(stripe.CurrencyUSD)),
				UnitAmount: stripe.Int64(c.cfg.PremiumPriceUSD * 100),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:        stripe.String("Premium AI SEO Audit"),
					Description: stripe.String("Comprehensive AI SEO audit with competitor analysis, roadmap, and ROI projections"),
				},
			},
			Quantity: stripe.Int64(1),
		}},
		CustomerEmail: stripe.String(req.Email),
		SuccessURL:    stripe.String(c.cfg.SuccessURL),
		CancelURL:     stripe.String(c.cfg.CancelURL),
	}
	params.AddMetadata("website_url", req.URL)
	params.AddMetadata("email", req.Email)
	if req.Company != "" {
		params.AddMetadata("company", req.Company)
	}
	if req.Industry != "" {
		params.AddMetadata("industry", req.Industry)
	}

	sess, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return Session{}, fmt.Errorf("create checkout session: %w", err)
	}
	return Session{ID: sess.ID, CheckoutURL: sess.URL}, nil
}

// CompletedCheckout is the payment-confirmation signal extracted from a
// verified checkout.session.completed event.
type CompletedCheckout struct {
	SessionID string
	AmountUSD int
	Request   CheckoutRequest
}

// VerifyWebhook checks the Stripe signature on a webhook payload. It
// returns a non-nil CompletedCheckout only for checkout.session.completed
// events; other verified event types yield (nil, nil).
func (c *Client) VerifyWebhook(payload []byte, signature string) (*CompletedCheckout, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, c.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("verify webhook signature: %w", err)
	}

	if event.Type != "checkout.session.completed" {
		return nil, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}

	completed := &CompletedCheckout{
		SessionID: sess.ID,
		AmountUSD: int(sess.AmountTotal / 100),
		Request: CheckoutRequest{
			URL:      sess.Metadata["website_url"],
			Email:    sess.Metadata["email"],
			Company:  sess.Metadata["company"],
			Industry: sess.Metadata["industry"],
		},
	}
	if completed.Request.Email == "" && sess.CustomerEmail != "" {
		completed.Request.Email = sess.CustomerEmail
	}
	return completed, nil
}
