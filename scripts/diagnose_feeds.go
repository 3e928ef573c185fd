// Command diagnose_feeds checks every outlet feed in the registry and
// reports reachability, item counts, and freshness. Run it when an outlet
// stops producing articles to tell a dead feed URL apart from a pipeline
// problem.
//
// Usage:
//
//	OUTLET_LIST=config/outlets.yaml go run scripts/diagnose_feeds.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/mmcdole/gofeed"

	"neutralnews/internal/domain/entity"
	"neutralnews/internal/infra/feed"
)

// FeedDiagnostic is the diagnostic result for a single outlet feed.
type FeedDiagnostic struct {
	Outlet       string `json:"outlet"`
	DisplayName  string `json:"display_name"`
	URL          string `json:"url"`
	Status       string `json:"status"` // "OK", "HTTP_ERROR", "PARSE_ERROR", "EMPTY", "TIMEOUT", "REDIRECT"
	HTTPCode     int    `json:"http_code,omitempty"`
	ItemCount    int    `json:"item_count"`
	LatestDate   string `json:"latest_date,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	RedirectURL  string `json:"redirect_url,omitempty"`
	ResponseTime int64  `json:"response_time_ms"`
}

func main() {
	registry, err := entity.Registry(os.Getenv("OUTLET_LIST"))
	if err != nil {
		log.Fatalf("Failed to load outlet registry: %v", err)
	}

	tags := entity.OutletTags(registry)
	log.Printf("Diagnosing %d outlet feeds...", len(tags))

	diagnostics := make([]FeedDiagnostic, 0, len(tags))
	for i, tag := range tags {
		info := registry[tag]
		log.Printf("[%d/%d] Diagnosing: %s", i+1, len(tags), info.DisplayName)
		diag := diagnoseFeed(string(tag), info.DisplayName, info.FeedURL, 30*time.Second)
		diagnostics = append(diagnostics, diag)

		// Rate limiting to be nice to servers
		time.Sleep(500 * time.Millisecond)
	}

	printReport(diagnostics)
	writeJSONReport(diagnostics)
}

func diagnoseFeed(tag, displayName, url string, timeout time.Duration) FeedDiagnostic {
	diag := FeedDiagnostic{
		Outlet:      tag,
		DisplayName: displayName,
		URL:         url,
	}

	startTime := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		diag.Status = "REQUEST_ERROR"
		diag.ErrorMessage = err.Error()
		return diag
	}
	req.Header.Set("User-Agent", feed.UserAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml")

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}

	resp, err := client.Do(req)
	diag.ResponseTime = time.Since(startTime).Milliseconds()

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			diag.Status = "TIMEOUT"
			diag.ErrorMessage = fmt.Sprintf("request timeout after %v", timeout)
		} else {
			diag.Status = "HTTP_ERROR"
			diag.ErrorMessage = err.Error()
		}
		return diag
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("Failed to close response body: %v", err)
		}
	}()

	diag.HTTPCode = resp.StatusCode
	if resp.Request.URL.String() != url {
		diag.RedirectURL = resp.Request.URL.String()
	}

	if resp.StatusCode != http.StatusOK {
		diag.Status = "HTTP_ERROR"
		diag.ErrorMessage = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, resp.Status)
		return diag
	}

	parsed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		diag.Status = "PARSE_ERROR"
		diag.ErrorMessage = err.Error()
		return diag
	}

	diag.ItemCount = len(parsed.Items)
	if diag.ItemCount == 0 {
		diag.Status = "EMPTY"
		return diag
	}

	var latest time.Time
	for _, item := range parsed.Items {
		if item.PublishedParsed != nil && item.PublishedParsed.After(latest) {
			latest = *item.PublishedParsed
		}
	}
	if !latest.IsZero() {
		diag.LatestDate = latest.Format(time.RFC3339)
	}

	if diag.RedirectURL != "" {
		diag.Status = "REDIRECT"
		return diag
	}
	diag.Status = "OK"
	return diag
}

func printReport(diagnostics []FeedDiagnostic) {
	sorted := make([]FeedDiagnostic, len(diagnostics))
	copy(sorted, diagnostics)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Outlet < sorted[j].Outlet })

	healthy := 0
	fmt.Println()
	fmt.Printf("%-16s %-12s %6s %8s %s\n", "OUTLET", "STATUS", "ITEMS", "MS", "DETAIL")
	for _, d := range sorted {
		detail := d.ErrorMessage
		if d.Status == "REDIRECT" {
			detail = "-> " + d.RedirectURL
		}
		if d.Status == "OK" {
			healthy++
			detail = "latest " + d.LatestDate
		}
		fmt.Printf("%-16s %-12s %6d %8d %s\n", d.Outlet, d.Status, d.ItemCount, d.ResponseTime, detail)
	}
	fmt.Printf("\n%d/%d feeds healthy\n", healthy, len(sorted))
}

func writeJSONReport(diagnostics []FeedDiagnostic) {
	const path = "feed_diagnostics.json"
	f, err := os.Create(path)
	if err != nil {
		log.Printf("Failed to create JSON report: %v", err)
		return
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("Failed to close JSON report: %v", err)
		}
	}()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(diagnostics); err != nil {
		log.Printf("Failed to write JSON report: %v", err)
		return
	}
	log.Printf("JSON report written to %s", path)
}
