// Package fetch polls an upstream aviation weather endpoint for a configured
// station set and feeds the responses into the decode pipeline.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"wx_decoder/internal/bulletin"
)

// Sink receives fetched bulletins. The ingest handler satisfies this.
type Sink interface {
	HandleBulletin(ctx context.Context, b *bulletin.Bulletin) error
}

// Config holds poller settings.
type Config struct {
	Endpoint      string
	Stations      []string
	Interval      time.Duration
	RatePerSecond float64
	Burst         int
}

// Poller periodically fetches reports for a station set. It implements the
// scheduler Task interface; requests respect a client-side rate limit so a
// large station list cannot hammer the upstream.
type Poller struct {
	endpoint string
	stations []string
	interval time.Duration
	limiter  *rate.Limiter
	client   *http.Client
	sink     Sink
	logger   *slog.Logger
}

// batchSize caps the stations per request; upstream endpoints reject overly
// long id lists.
const batchSize = 20

// New creates a Poller delivering into the given sink.
func New(cfg Config, sink Sink, logger *slog.Logger) *Poller {
	return &Poller{
		endpoint: cfg.Endpoint,
		stations: cfg.Stations,
		interval: cfg.Interval,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		client:   &http.Client{Timeout: 30 * time.Second},
		sink:     sink,
		logger:   logger,
	}
}

// Name implements scheduler.Task.
func (p *Poller) Name() string { return "wx-fetch" }

// Interval implements scheduler.Task.
func (p *Poller) Interval() time.Duration { return p.interval }

// Run fetches one round of reports for the full station set.
func (p *Poller) Run(ctx context.Context) error {
	var fetched, failed int

	for start := 0; start < len(p.stations); start += batchSize {
		end := start + batchSize
		if end > len(p.stations) {
			end = len(p.stations)
		}
		batch := p.stations[start:end]

		if err := p.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}

		n, err := p.fetchBatch(ctx, batch)
		if err != nil {
			p.logger.Warn("fetch batch failed", "stations", strings.Join(batch, ","), "error", err)
			failed++
			continue
		}
		fetched += n
	}

	p.logger.Info("fetch round complete", "bulletins", fetched, "failed_batches", failed)
	if failed > 0 && fetched == 0 {
		return fmt.Errorf("all %d batches failed", failed)
	}
	return nil
}

// fetchBatch requests one group of stations and hands every report to the
// sink. Returns the number of bulletins delivered.
func (p *Poller) fetchBatch(ctx context.Context, stations []string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.buildURL(stations), nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("upstream status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	bulletins := p.decodeResponse(body)

	delivered := 0
	for i := range bulletins {
		if err := p.sink.HandleBulletin(ctx, &bulletins[i]); err != nil {
			p.logger.Warn("bulletin rejected", "station", bulletins[i].Station, "error", err)
			continue
		}
		delivered++
	}
	return delivered, nil
}

// buildURL assembles the upstream query for one station batch.
func (p *Poller) buildURL(stations []string) string {
	params := url.Values{}
	params.Set("ids", strings.Join(stations, ","))
	params.Set("format", "raw")
	params.Set("taf", "true")
	return p.endpoint + "?" + params.Encode()
}

// decodeResponse turns an upstream body into bulletins. JSON arrays are
// structured records; anything else is raw report text, one report per
// line with indented continuation lines.
func (p *Poller) decodeResponse(body []byte) []bulletin.Bulletin {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return nil
	}

	if strings.HasPrefix(trimmed, "[") {
		var records []bulletin.APIRecord
		if err := json.Unmarshal([]byte(trimmed), &records); err == nil {
			out := make([]bulletin.Bulletin, 0, len(records))
			for i := range records {
				b := records[i].ToBulletin()
				b.Source = "fetch"
				out = append(out, b)
			}
			return out
		}
		// Fall through and treat the body as text.
	}

	var out []bulletin.Bulletin
	for _, report := range SplitReports(trimmed) {
		out = append(out, bulletin.Bulletin{Text: report, Source: "fetch"})
	}
	return out
}

// SplitReports splits raw response text into individual reports. A report
// starts on a non-indented line; indented lines continue the previous report,
// the layout TAF bodies use.
func SplitReports(text string) []string {
	var reports []string
	var current []string

	flush := func() {
		if len(current) > 0 {
			reports = append(reports, strings.Join(current, "\n"))
			current = nil
		}
	}

	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		indented := strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")
		if indented && len(current) > 0 {
			current = append(current, strings.TrimRight(line, " \t"))
			continue
		}
		flush()
		current = []string{strings.TrimRight(line, " \t")}
	}
	flush()

	return reports
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
