// Package extractor fetches article pages and extracts clean body text with
// the Mozilla Readability algorithm (go-shiori/go-readability).
package extractor

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"neutralnews/internal/observability/metrics"
	"neutralnews/internal/resilience/circuitbreaker"

	readability "github.com/go-shiori/go-readability"
)

// userAgent matches the feed fetcher so outlets see one crawler identity.
const userAgent = "NeutralNews/1.0 (+https://ezequielgaribotto.com)"

// Extractor fetches HTML and extracts article text.
//
// Safe for concurrent use; the enrichment pool shares one instance.
type Extractor struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	config         Config
}

func New(config Config) *Extractor {
	e := &Extractor{
		circuitBreaker: circuitbreaker.New(circuitbreaker.BodyExtractConfig()),
		config:         config,
	}

	// Redirect targets get the same SSRF validation as the original URL.
	e.client = &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= e.config.MaxRedirects {
				return fmt.Errorf("%w: %d redirects", ErrTooManyRedirects, len(via))
			}
			if err := validateURL(req.URL.String(), e.config.DenyPrivateIPs); err != nil {
				return fmt.Errorf("redirect target validation failed: %w", err)
			}
			return nil
		},
	}
	return e
}

// Extract fetches the article page and returns the extracted body text.
func (e *Extractor) Extract(ctx context.Context, urlStr string) (string, error) {
	if err := validateURL(urlStr, e.config.DenyPrivateIPs); err != nil {
		return "", err
	}

	start := time.Now()
	result, err := e.circuitBreaker.Execute(func() (interface{}, error) {
		return e.doExtract(ctx, urlStr)
	})
	if err != nil {
		return "", err
	}
	metrics.RecordBodyExtract(time.Since(start))
	return result.(string), nil
}

func (e *Extractor) doExtract(ctx context.Context, urlStr string) (interface{}, error) {
	reqCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, urlStr, nil)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create request: %v", ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		if reqCtx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("%w: request exceeded %v", ErrTimeout, e.config.Timeout)
		}
		if urlErr, ok := err.(*url.Error); ok && urlErr.Err != nil {
			return "", urlErr.Err
		}
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	limitedReader := io.LimitReader(resp.Body, e.config.MaxBodySize+1)
	htmlBytes, err := io.ReadAll(limitedReader)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(htmlBytes)) > e.config.MaxBodySize {
		return "", fmt.Errorf("%w: response size %d bytes exceeds limit %d bytes",
			ErrBodyTooLarge, len(htmlBytes), e.config.MaxBodySize)
	}

	// Redirects may have moved the page; readability resolves relative
	// links against the final URL.
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		parsedURL = nil
	}
	if resp.Request != nil && resp.Request.URL != nil {
		parsedURL = resp.Request.URL
	}

	article, err := readability.FromReader(bytes.NewReader(htmlBytes), parsedURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoContent, err)
	}

	if article.TextContent == "" {
		if article.Content == "" {
			return "", ErrNoContent
		}
		slog.Debug("using article Content instead of TextContent",
			slog.String("url", urlStr),
			slog.Int("content_length", len(article.Content)))
		return article.Content, nil
	}
	return article.TextContent, nil
}
