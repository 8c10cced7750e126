package audit

import (
	"net/url"
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// NormalizeURL lowercases the host, defaults the scheme to https and
// strips any trailing slash. Cache keys are derived from this form so
// that "https://Example.com/" and "https://example.com" share an entry.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", Errorf(KindInvalidInput, "website URL is required")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", Errorf(KindInvalidInput, "invalid website URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", Errorf(KindInvalidInput, "unsupported URL scheme %q", u.Scheme)
	}
	if u.Hostname() == "" || !strings.Contains(u.Hostname(), ".") {
		return "", Errorf(KindInvalidInput, "invalid website URL host")
	}
	u.Host = strings.ToLower(u.Host)
	return strings.TrimRight(u.String(), "/"), nil
}

// ValidEmail reports whether the address passes format validation.
func ValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	return email != "" && len(email) <= 254 && emailPattern.MatchString(email)
}

// ValidateRequest checks the request before any downstream call is made.
// It returns the request with its URL normalized. A premium request must
// carry a payment amount matching the configured premium price.
func ValidateRequest(req Request, premiumPrice int) (Request, error) {
	normalized, err := NormalizeURL(req.URL)
	if err != nil {
		return req, err
	}
	req.URL = normalized

	if !ValidEmail(req.Email) {
		return req, Errorf(KindInvalidInput, "invalid email format")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	switch req.Tier {
	case TierFree:
	case TierPremium:
		if req.PaymentAmount != premiumPrice {
			return req, Errorf(KindPaymentVerification,
				"invalid payment amount for premium audit: got %d, expected %d",
				req.PaymentAmount, premiumPrice)
		}
	case "":
		req.Tier = TierFree
	default:
		return req, Errorf(KindInvalidInput, "unknown audit type %q", req.Tier)
	}
	return req, nil
}
