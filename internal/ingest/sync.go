package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"wx_decoder/internal/extractor"
	"wx_decoder/internal/observability"
	"wx_decoder/internal/state"
	"wx_decoder/internal/storage"
)

// Buffer accumulates analytic rows between sink flushes. The handler appends
// from the consumer goroutines; the syncer drains on its schedule.
type Buffer struct {
	mu           sync.Mutex
	observations []storage.CHObservation
	transitions  []storage.CHTransition
	periods      []storage.CHForecastPeriod
}

// NewBuffer creates an empty sink buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Add converts extracted rows into ClickHouse rows and queues them.
func (b *Buffer) Add(received time.Time, data extractor.ExtractedData, transitions []*state.Transition) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, c := range data.Conditions {
		b.observations = append(b.observations, observationRow(c, received))
	}
	for _, p := range data.Periods {
		b.periods = append(b.periods, periodRow(p))
	}
	for _, tr := range transitions {
		b.transitions = append(b.transitions, storage.CHTransition{
			Station:      tr.Station,
			FromCategory: tr.From,
			ToCategory:   tr.To,
			Worsened:     tr.Worsened(),
			RawText:      tr.Raw,
			OccurredAt:   tr.At,
		})
	}
}

// Drain removes and returns all queued rows.
func (b *Buffer) Drain() ([]storage.CHObservation, []storage.CHTransition, []storage.CHForecastPeriod) {
	b.mu.Lock()
	defer b.mu.Unlock()

	obs, trs, pds := b.observations, b.transitions, b.periods
	b.observations, b.transitions, b.periods = nil, nil, nil
	return obs, trs, pds
}

// Requeue puts drained rows back at the front after a failed flush.
func (b *Buffer) Requeue(obs []storage.CHObservation, trs []storage.CHTransition, pds []storage.CHForecastPeriod) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.observations = append(obs, b.observations...)
	b.transitions = append(trs, b.transitions...)
	b.periods = append(pds, b.periods...)
}

// Len reports the number of queued rows across all streams.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.observations) + len(b.transitions) + len(b.periods)
}

func observationRow(c *extractor.ConditionsUpdate, received time.Time) storage.CHObservation {
	row := storage.CHObservation{
		Station:      c.Station,
		ReportType:   c.ReportType,
		Category:     c.Category,
		VisibilityMi: c.VisibilityMi,
		CeilingFt:    toInt32(c.CeilingFt),
		WindDirDeg:   toInt32(c.WindDirDeg),
		WindSpeedKt:  toInt32(c.WindSpeedKt),
		WindGustKt:   toInt32(c.WindGustKt),
		TemperatureC: c.TemperatureC,
		DewPointC:    c.DewPointC,
		Weather:      strings.Join(c.Weather, " "),
		RawText:      c.Raw,
		ObservedAt:   received,
	}
	if c.AltimeterHPa != 0 {
		v := int32(c.AltimeterHPa)
		row.AltimeterHPa = &v
	}
	if c.ObservedAt != nil {
		row.ObservedAt = *c.ObservedAt
	}
	return row
}

func periodRow(p *extractor.PeriodUpdate) storage.CHForecastPeriod {
	prob := uint8(0)
	if p.Probability > 0 && p.Probability <= 100 {
		prob = uint8(p.Probability)
	}
	return storage.CHForecastPeriod{
		Station:      p.Station,
		Issued:       p.Issued,
		Marker:       p.Marker,
		Probability:  prob,
		Category:     p.Category,
		ValidFrom:    p.From,
		ValidTo:      p.To,
		VisibilityMi: p.VisibilityMi,
		CeilingFt:    toInt32(p.CeilingFt),
		RawText:      p.Raw,
	}
}

func toInt32(v *int) *int32 {
	if v == nil {
		return nil
	}
	i := int32(*v)
	return &i
}

// Syncer periodically flushes the sink buffer to ClickHouse and exports
// unsynced tracker state to Postgres. It runs as a scheduler task.
type Syncer struct {
	tracker  *state.Tracker
	buffer   *Buffer
	ch       *storage.ClickHouseDB
	pg       *storage.PostgresDB
	interval time.Duration
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewSyncer creates a Syncer. Either sink may be nil; the corresponding
// export is skipped.
func NewSyncer(tracker *state.Tracker, buffer *Buffer, ch *storage.ClickHouseDB, pg *storage.PostgresDB, interval time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Syncer {
	return &Syncer{
		tracker:  tracker,
		buffer:   buffer,
		ch:       ch,
		pg:       pg,
		interval: interval,
		logger:   logger,
		metrics:  metrics,
	}
}

// Name implements scheduler.Task.
func (s *Syncer) Name() string { return "sink-sync" }

// Interval implements scheduler.Task.
func (s *Syncer) Interval() time.Duration { return s.interval }

// Run flushes one round of sink exports.
func (s *Syncer) Run(ctx context.Context) error {
	var firstErr error

	if s.ch != nil {
		if err := s.flushClickHouse(ctx); err != nil {
			s.metrics.SinkWrites.WithLabelValues("clickhouse", "error").Inc()
			firstErr = err
		} else {
			s.metrics.SinkWrites.WithLabelValues("clickhouse", "success").Inc()
		}
	}

	if s.pg != nil {
		if err := s.exportPostgres(ctx); err != nil {
			s.metrics.SinkWrites.WithLabelValues("postgres", "error").Inc()
			if firstErr == nil {
				firstErr = err
			}
		} else {
			s.metrics.SinkWrites.WithLabelValues("postgres", "success").Inc()
		}
	}

	s.updateCategoryGauges()
	return firstErr
}

// flushClickHouse drains the buffer and batch-inserts each stream. On error
// the drained rows are requeued so the next run retries them.
func (s *Syncer) flushClickHouse(ctx context.Context) error {
	obs, trs, pds := s.buffer.Drain()
	if len(obs) == 0 && len(trs) == 0 && len(pds) == 0 {
		return nil
	}

	if err := s.ch.InsertObservations(ctx, obs); err != nil {
		s.buffer.Requeue(obs, trs, pds)
		return fmt.Errorf("insert observations: %w", err)
	}
	if err := s.ch.InsertTransitions(ctx, trs); err != nil {
		s.buffer.Requeue(nil, trs, pds)
		return fmt.Errorf("insert transitions: %w", err)
	}
	if err := s.ch.InsertForecastPeriods(ctx, pds); err != nil {
		s.buffer.Requeue(nil, nil, pds)
		return fmt.Errorf("insert forecast periods: %w", err)
	}

	s.logger.Debug("clickhouse flush",
		"observations", len(obs), "transitions", len(trs), "periods", len(pds))
	return nil
}

// exportPostgres pushes unsynced tracker rows to the serving store and marks
// them synced. Each stream is independent; a failure stops that stream and
// leaves its rows unsynced for the next run.
func (s *Syncer) exportPostgres(ctx context.Context) error {
	stations, err := s.tracker.GetUnsyncedStations()
	if err != nil {
		return fmt.Errorf("unsynced stations: %w", err)
	}
	for _, st := range stations {
		if err := s.pg.UpsertStation(ctx, storage.Station{
			ICAO:         st.ICAO,
			FirstSeen:    st.FirstSeen,
			LastSeen:     st.LastSeen,
			ReportCount:  st.ReportCount,
			LastCategory: st.LastCategory,
		}); err != nil {
			return fmt.Errorf("upsert station %s: %w", st.ICAO, err)
		}
		if err := s.tracker.MarkStationSynced(st.ICAO); err != nil {
			return fmt.Errorf("mark station synced %s: %w", st.ICAO, err)
		}
	}

	conditions, err := s.tracker.GetUnsyncedConditions()
	if err != nil {
		return fmt.Errorf("unsynced conditions: %w", err)
	}
	for _, ss := range conditions {
		if err := s.pg.UpsertStationConditions(ctx, conditionsRow(ss)); err != nil {
			return fmt.Errorf("upsert conditions %s: %w", ss.Station, err)
		}
		if err := s.tracker.MarkConditionsSynced(ss.Station); err != nil {
			return fmt.Errorf("mark conditions synced %s: %w", ss.Station, err)
		}
	}

	forecasts, err := s.tracker.GetUnsyncedForecasts()
	if err != nil {
		return fmt.Errorf("unsynced forecasts: %w", err)
	}
	for _, f := range forecasts {
		if err := s.pg.UpsertStationForecast(ctx, forecastRow(f)); err != nil {
			return fmt.Errorf("upsert forecast %s: %w", f.Station, err)
		}
		if err := s.tracker.MarkForecastSynced(f.Station); err != nil {
			return fmt.Errorf("mark forecast synced %s: %w", f.Station, err)
		}
	}

	advisories, err := s.tracker.GetUnsyncedAdvisories()
	if err != nil {
		return fmt.Errorf("unsynced advisories: %w", err)
	}
	for _, a := range advisories {
		if _, err := s.pg.UpsertAdvisory(ctx, advisoryRow(a)); err != nil {
			return fmt.Errorf("upsert advisory %s/%s: %w", a.AdvisoryID, a.FIR, err)
		}
		if err := s.tracker.MarkAdvisorySynced(a.ID); err != nil {
			return fmt.Errorf("mark advisory synced %d: %w", a.ID, err)
		}
	}

	total := len(stations) + len(conditions) + len(forecasts) + len(advisories)
	if total > 0 {
		s.logger.Debug("postgres export",
			"stations", len(stations), "conditions", len(conditions),
			"forecasts", len(forecasts), "advisories", len(advisories))
	}
	return nil
}

// updateCategoryGauges refreshes the per-category station gauge from the
// tracker's in-memory view.
func (s *Syncer) updateCategoryGauges() {
	counts := make(map[string]int)
	for _, ss := range s.tracker.GetAllStations() {
		cat := ss.Category
		if cat == "" {
			cat = "Unknown"
		}
		counts[cat]++
	}
	s.metrics.StationsActive.Reset()
	for cat, n := range counts {
		s.metrics.StationsActive.WithLabelValues(cat).Set(float64(n))
	}
}

func conditionsRow(ss *state.StationState) storage.StationConditions {
	row := storage.StationConditions{
		Station:      ss.Station,
		Category:     ss.Category,
		PrevCategory: ss.PrevCategory,
		ChangedAt:    ss.ChangedAt,
		ReportType:   ss.ReportType,
		VisibilityMi: ss.VisibilityMi,
		CeilingFt:    ss.CeilingFt,
		WindDirDeg:   ss.WindDirDeg,
		WindSpeedKt:  ss.WindSpeedKt,
		WindGustKt:   ss.WindGustKt,
		TemperatureC: ss.TemperatureC,
		DewPointC:    ss.DewPointC,
		Weather:      ss.Weather,
		ObservedAt:   ss.ObservedAt,
		RawText:      ss.Raw,
		ReportCount:  ss.ReportCount,
		UpdatedAt:    ss.LastSeen,
	}
	if ss.AltimeterHPa != 0 {
		v := ss.AltimeterHPa
		row.AltimeterHPa = &v
	}
	return row
}

func forecastRow(f *state.ForecastState) storage.StationForecast {
	row := storage.StationForecast{
		Station:   f.Station,
		Issued:    f.Issued,
		Periods:   json.RawMessage(f.Periods),
		RawText:   f.Raw,
		UpdatedAt: f.UpdatedAt,
	}
	if !f.ValidFrom.IsZero() {
		v := f.ValidFrom
		row.ValidFrom = &v
	}
	if !f.ValidTo.IsZero() {
		v := f.ValidTo
		row.ValidTo = &v
	}
	return row
}

func advisoryRow(a *state.Advisory) storage.Advisory {
	return storage.Advisory{
		AdvisoryID:       a.AdvisoryID,
		FIR:              a.FIR,
		Phenomenon:       a.Phenomenon,
		Altitude:         a.Altitude,
		Movement:         a.Movement,
		ValidFrom:        a.ValidFrom,
		ValidTo:          a.ValidTo,
		Boundary:         json.RawMessage(a.Boundary),
		RawText:          a.Raw,
		ObservationCount: a.ObservationCount,
		FirstSeen:        a.FirstSeen,
		LastSeen:         a.LastSeen,
	}
}
