// Package ingest wires the feed consumers to the decode pipeline: envelope
// decoding, parser dispatch, the bulletin archive, the station tracker, and
// the analytic sinks.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"wx_decoder/internal/bulletin"
	"wx_decoder/internal/extractor"
	"wx_decoder/internal/observability"
	"wx_decoder/internal/registry"
	"wx_decoder/internal/state"
	"wx_decoder/internal/storage"
)

// Handler processes one raw feed payload end to end: decode the envelope,
// dispatch to the parsers, archive the bulletin, update station state, and
// queue rows for the analytic sinks.
type Handler struct {
	registry *registry.Registry
	archive  *storage.Archive
	tracker  *state.Tracker
	buffer   *Buffer
	logger   *slog.Logger
	metrics  *observability.Metrics
	ready    atomic.Bool
}

// NewHandler creates a Handler. The archive and buffer may be nil when the
// corresponding sink is disabled.
func NewHandler(reg *registry.Registry, archive *storage.Archive, tracker *state.Tracker, buffer *Buffer, logger *slog.Logger, metrics *observability.Metrics) *Handler {
	return &Handler{
		registry: reg,
		archive:  archive,
		tracker:  tracker,
		buffer:   buffer,
		logger:   logger,
		metrics:  metrics,
	}
}

// CheckReadiness returns nil once the handler has processed at least one
// bulletin.
func (h *Handler) CheckReadiness(_ context.Context) error {
	if !h.ready.Load() {
		return errors.New("no bulletins processed yet")
	}
	return nil
}

// Handle decodes one feed payload and runs it through the pipeline.
func (h *Handler) Handle(ctx context.Context, payload []byte) error {
	h.metrics.BulletinsConsumed.Inc()

	b, err := bulletin.Decode(payload)
	if err != nil {
		h.metrics.DecodeFailures.Inc()
		return fmt.Errorf("decode envelope: %w", err)
	}
	return h.HandleBulletin(ctx, b)
}

// HandleBulletin runs one decoded envelope through the pipeline. This is the
// shared entry point for the feed consumer and the upstream poller.
func (h *Handler) HandleBulletin(ctx context.Context, b *bulletin.Bulletin) error {
	start := time.Now()
	received := b.ReceivedAt(start.UTC())

	results := h.registry.Dispatch(b)
	data := extractor.Extract(b, results)
	transitions := state.Apply(h.tracker, data)

	kind := string(b.EffectiveKind())
	if kind == "" {
		kind = "unknown"
	}
	outcome := decodeOutcome(data)
	h.metrics.DecodeOutcomes.WithLabelValues(kind, outcome).Inc()

	for _, tr := range transitions {
		direction := "improved"
		if tr.Worsened() {
			direction = "worsened"
		}
		h.metrics.Transitions.WithLabelValues(direction).Inc()
		h.logger.Info("category change",
			"station", tr.Station, "from", tr.From, "to", tr.To, "worsened", tr.Worsened())
	}

	if h.buffer != nil {
		h.buffer.Add(received, data, transitions)
	}

	if h.archive != nil {
		if err := h.archiveBulletin(b, results, data, received); err != nil {
			h.logger.Error("archive insert failed", "error", err, "station", b.EffectiveStation())
			return err
		}
		h.metrics.BulletinsArchived.Inc()
	}

	h.metrics.HandleDuration.Observe(time.Since(start).Seconds())
	h.ready.Store(true)

	h.logger.Debug("bulletin handled",
		"kind", kind,
		"station", b.EffectiveStation(),
		"outcome", outcome,
		"conditions", len(data.Conditions),
		"periods", len(data.Periods),
		"advisories", len(data.Advisories))
	return nil
}

// archiveBulletin writes the bulletin and its decode to the SQLite archive.
func (h *Handler) archiveBulletin(b *bulletin.Bulletin, results []registry.Result, data extractor.ExtractedData, received time.Time) error {
	parserType := "unparsed"
	if len(results) > 0 {
		parserType = results[0].Type()
	}

	category := ""
	for _, c := range data.Conditions {
		if c.Category != "" {
			category = c.Category
			break
		}
	}

	_, err := h.archive.Insert(storage.InsertParams{
		ReceivedAt:    received.UTC().Format(time.RFC3339),
		Kind:          string(b.EffectiveKind()),
		ParserType:    parserType,
		Station:       b.EffectiveStation(),
		Source:        b.Source,
		FeedID:        int64(b.ID),
		Category:      category,
		RawText:       b.Text,
		DecodedData:   data,
		MissingFields: missingFields(b, data),
	})
	return err
}

// missingFields lists the essentials a decoded bulletin failed to yield, for
// the corpus analyzer to cluster on.
func missingFields(b *bulletin.Bulletin, data extractor.ExtractedData) []string {
	var missing []string
	if data.Unparsed != nil {
		return []string{"decode"}
	}
	if b.EffectiveStation() == "" {
		missing = append(missing, "station")
	}
	for _, c := range data.Conditions {
		if c.ObservedAt == nil {
			missing = append(missing, "observed_at")
		}
		if c.Category == "" || strings.EqualFold(c.Category, "Unknown") {
			missing = append(missing, "category")
		}
		break
	}
	return missing
}

// decodeOutcome classifies one bulletin's decode for the outcome metric.
func decodeOutcome(data extractor.ExtractedData) string {
	if data.Unparsed != nil {
		return "unparsed"
	}
	if len(data.Conditions) == 0 && len(data.Periods) == 0 && len(data.Advisories) == 0 {
		return "empty"
	}
	for _, c := range data.Conditions {
		if c.Category == "" || strings.EqualFold(c.Category, "Unknown") {
			return "partial"
		}
	}
	return "decoded"
}
