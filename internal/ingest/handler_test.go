package ingest_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wx_decoder/internal/bulletin"
	"wx_decoder/internal/extractor"
	"wx_decoder/internal/ingest"
	"wx_decoder/internal/observability"
	_ "wx_decoder/internal/parsers"
	"wx_decoder/internal/registry"
	"wx_decoder/internal/state"
	"wx_decoder/internal/storage"
)

func testExtractedConditions(station, category string) extractor.ExtractedData {
	return extractor.ExtractedData{
		Conditions: []*extractor.ConditionsUpdate{{Station: station, Category: category}},
	}
}

func newTestHandler(t *testing.T) (*ingest.Handler, *ingest.Buffer, *state.Tracker, *storage.Archive) {
	t.Helper()

	archive, err := storage.OpenArchive(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = archive.Close() })

	tracker, err := state.NewTracker(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = tracker.Close() })

	buffer := ingest.NewBuffer()
	h := ingest.NewHandler(registry.Default(), archive, tracker, buffer,
		slog.Default(), observability.NewMetricsForTesting())
	return h, buffer, tracker, archive
}

func TestHandler_Handle_Observation(t *testing.T) {
	h, buffer, tracker, archive := newTestHandler(t)

	payload := []byte(`{"station":"KJFK","kind":"metar","source":"test","text":"METAR KJFK 251251Z 31008KT 10SM FEW250 26/14 A3012"}`)
	err := h.Handle(context.Background(), payload)
	require.NoError(t, err)

	// Tracker picked up the station at VFR.
	ss := tracker.GetStation("KJFK")
	require.NotNil(t, ss)
	assert.Equal(t, "VFR", ss.Category)

	// The bulletin landed in the archive with its decode.
	stats, err := archive.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalBulletins)

	rows, err := archive.Query(storage.QueryParams{Station: "KJFK"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "metar", rows[0].Kind)
	assert.Equal(t, "VFR", rows[0].Category)

	// One observation row queued for the analytic sink.
	obs, trs, pds := buffer.Drain()
	require.Len(t, obs, 1)
	assert.Equal(t, "KJFK", obs[0].Station)
	assert.Equal(t, "VFR", obs[0].Category)
	assert.Len(t, trs, 1) // first report establishes the category
	assert.Empty(t, pds)

	assert.NoError(t, h.CheckReadiness(context.Background()))
}

func TestHandler_Handle_Forecast(t *testing.T) {
	h, buffer, tracker, _ := newTestHandler(t)

	payload := []byte(`{"station":"KJFK","source":"test","timestamp":"2025-09-25T12:00:00Z","text":"TAF KJFK 251130Z 2512/2618 31010KT P6SM SCT050 FM260000 20005KT 3SM BR OVC008"}`)
	err := h.Handle(context.Background(), payload)
	require.NoError(t, err)

	fc, err := tracker.GetForecast("KJFK")
	require.NoError(t, err)
	require.NotNil(t, fc)
	assert.Len(t, fc.DecodePeriods(), 2)

	obs, _, pds := buffer.Drain()
	assert.Empty(t, obs)
	require.Len(t, pds, 2)
	assert.Equal(t, "KJFK", pds[0].Station)
	assert.Equal(t, "BASE", pds[0].Marker)
	assert.Equal(t, "FM", pds[1].Marker)
	assert.Equal(t, "IFR", pds[1].Category)
}

func TestHandler_Handle_BadPayload(t *testing.T) {
	h, _, _, _ := newTestHandler(t)

	err := h.Handle(context.Background(), []byte(`{not json`))
	require.Error(t, err)
	assert.Error(t, h.CheckReadiness(context.Background()))
}

func TestHandler_Handle_UnparsedArchived(t *testing.T) {
	h, _, _, archive := newTestHandler(t)

	payload := []byte(`{"source":"test","text":"GIBBERISH NOTHING DECODES THIS"}`)
	err := h.Handle(context.Background(), payload)
	require.NoError(t, err)

	rows, err := archive.Query(storage.QueryParams{ParserType: "unparsed"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Contains(t, rows[0].MissingFields, "decode")
}

func TestHandler_HandleBulletin_FetchPath(t *testing.T) {
	h, buffer, tracker, _ := newTestHandler(t)

	// The upstream poller hands constructed envelopes straight in.
	b := &bulletin.Bulletin{
		Source: "fetch",
		Text:   "KBOS 251254Z 04012KT 2SM BR OVC004 18/17 A2992",
	}
	err := h.HandleBulletin(context.Background(), b)
	require.NoError(t, err)

	ss := tracker.GetStation("KBOS")
	require.NotNil(t, ss)
	assert.Equal(t, "LIFR", ss.Category)

	obs, _, _ := buffer.Drain()
	require.Len(t, obs, 1)
	assert.Equal(t, "LIFR", obs[0].Category)
}

func TestBuffer_DrainAndRequeue(t *testing.T) {
	buffer := ingest.NewBuffer()

	buffer.Add(time.Now(), testExtractedConditions("KLGA", "MVFR"), nil)
	buffer.Add(time.Now(), testExtractedConditions("KEWR", "VFR"), nil)
	assert.Equal(t, 2, buffer.Len())

	obs, trs, pds := buffer.Drain()
	assert.Len(t, obs, 2)
	assert.Equal(t, 0, buffer.Len())

	buffer.Requeue(obs, trs, pds)
	assert.Equal(t, 2, buffer.Len())

	obs, _, _ = buffer.Drain()
	require.Len(t, obs, 2)
	assert.Equal(t, "KLGA", obs[0].Station)
}

func TestSyncer_NilSinksStillRefreshGauges(t *testing.T) {
	tracker, err := state.NewTracker(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = tracker.Close() })

	s := ingest.NewSyncer(tracker, ingest.NewBuffer(), nil, nil,
		30*time.Second, slog.Default(), observability.NewMetricsForTesting())

	assert.Equal(t, "sink-sync", s.Name())
	assert.Equal(t, 30*time.Second, s.Interval())
	require.NoError(t, s.Run(context.Background()))
}
