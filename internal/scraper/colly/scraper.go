// Package collyscraper implements audit.Scraper using gocolly.
package collyscraper

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/seo-audit-service/internal/audit"
)

const (
	defaultTimeout   = 30 * time.Second
	contentSampleLen = 2000
)

// Config controls collector behavior.
type Config struct {
	UserAgent    string
	Timeout      time.Duration
	MaxBodyBytes int
}

// Scraper fetches a page once and flattens it into an audit.ScrapedSite.
type Scraper struct {
	cfg           Config
	baseCollector *colly.Collector
}

// New builds a Scraper.
func New(cfg Config) *Scraper {
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	if cfg.MaxBodyBytes > 0 {
		c.MaxBodySize = cfg.MaxBodyBytes
	}
	c.WithTransport(newHTTPTransport())

	return &Scraper{cfg: cfg, baseCollector: c}
}

// Scrape fetches target and extracts the attributes the analysis needs.
// Non-2xx responses and non-HTML content types are failures.
func (s *Scraper) Scrape(ctx context.Context, target string) (audit.ScrapedSite, error) {
	parsed, err := url.Parse(target)
	if err != nil {
		return audit.ScrapedSite{}, fmt.Errorf("parse target url: %w", err)
	}

	var (
		body        []byte
		status      int
		contentType string
		fetchErr    error
	)

	collector := s.baseCollector.Clone()
	if s.cfg.UserAgent != "" {
		collector.UserAgent = s.cfg.UserAgent
	}
	timeout := s.cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	collector.SetRequestTimeout(timeout)

	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		contentType = r.Headers.Get("Content-Type")
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = err
	})

	if err := runCollector(ctx, collector, target); err != nil {
		return audit.ScrapedSite{}, err
	}
	if fetchErr != nil {
		return audit.ScrapedSite{}, fmt.Errorf("fetch %s (status %d): %w", target, status, fetchErr)
	}
	if status < 200 || status > 299 {
		return audit.ScrapedSite{}, fmt.Errorf("fetch %s: unexpected status %d", target, status)
	}
	if !strings.Contains(strings.ToLower(contentType), "html") {
		return audit.ScrapedSite{}, fmt.Errorf("fetch %s: unsupported content type %q", target, contentType)
	}

	site, err := extract(parsed, body)
	if err != nil {
		return audit.ScrapedSite{}, err
	}
	site.URL = target
	site.SSL = parsed.Scheme == "https"
	return site, nil
}

func runCollector(ctx context.Context, collector *colly.Collector, target string) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(target)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("scrape canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("visit failed: %w", err)
		}
		return nil
	}
}

func extract(base *url.URL, body []byte) (audit.ScrapedSite, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return audit.ScrapedSite{}, fmt.Errorf("parse html: %w", err)
	}

	site := audit.ScrapedSite{
		Title:           strings.TrimSpace(doc.Find("title").First().Text()),
		MetaDescription: strings.TrimSpace(doc.Find(`meta[name="description"]`).First().AttrOr("content", "")),
	}

	doc.Find("h1").Each(func(_ int, sel *goquery.Selection) {
		site.H1Tags = append(site.H1Tags, strings.TrimSpace(sel.Text()))
	})
	doc.Find("h2").Each(func(_ int, sel *goquery.Selection) {
		site.H2Tags = append(site.H2Tags, strings.TrimSpace(sel.Text()))
	})
	doc.Find("h3").Each(func(_ int, sel *goquery.Selection) {
		site.H3Tags = append(site.H3Tags, strings.TrimSpace(sel.Text()))
	})

	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		site.Images++
		if alt, ok := sel.Attr("alt"); !ok || strings.TrimSpace(alt) == "" {
			site.ImagesWithoutAlt++
		}
	})

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href := strings.TrimSpace(sel.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		resolved := base.ResolveReference(ref)
		if strings.EqualFold(resolved.Hostname(), base.Hostname()) {
			site.InternalLinks++
		} else {
			site.ExternalLinks++
		}
	})

	site.HasSchema = doc.Find(`script[type="application/ld+json"]`).Length() > 0

	doc.Find("script, style, noscript").Remove()
	text := strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	site.ContentLength = len(text)
	if len(text) > contentSampleLen {
		text = text[:contentSampleLen]
	}
	site.ContentSample = text

	return site, nil
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
