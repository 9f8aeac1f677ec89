package fetch

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wx_decoder/internal/bulletin"
)

type captureSink struct {
	bulletins []*bulletin.Bulletin
}

func (c *captureSink) HandleBulletin(_ context.Context, b *bulletin.Bulletin) error {
	c.bulletins = append(c.bulletins, b)
	return nil
}

func TestSplitReports(t *testing.T) {
	text := "KJFK 251251Z 31008KT 10SM FEW250 26/14 A3012\n" +
		"KBOS 251254Z 04012KT 2SM BR OVC004 18/17 A2992\n" +
		"TAF KJFK 251130Z 2512/2618 31010KT P6SM SCT050\n" +
		"  FM260000 20005KT 3SM BR OVC008\n"

	reports := SplitReports(text)
	require.Len(t, reports, 3)
	assert.Contains(t, reports[0], "KJFK 251251Z")
	assert.Contains(t, reports[1], "KBOS")
	assert.Contains(t, reports[2], "TAF KJFK")
	assert.Contains(t, reports[2], "FM260000") // continuation folded in
}

func TestSplitReports_BlankSeparated(t *testing.T) {
	text := "KLGA 251251Z 10SM CLR 24/12 A3010\n\nKEWR 251251Z 8SM SCT030 23/11 A3008"
	reports := SplitReports(text)
	require.Len(t, reports, 2)
}

func TestPoller_Run_RawText(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte("KJFK 251251Z 31008KT 10SM FEW250 26/14 A3012\nKBOS 251254Z 04012KT 2SM BR OVC004 18/17 A2992\n"))
	}))
	defer srv.Close()

	sink := &captureSink{}
	p := New(Config{
		Endpoint:      srv.URL,
		Stations:      []string{"KJFK", "KBOS"},
		Interval:      10 * time.Minute,
		RatePerSecond: 100,
		Burst:         10,
	}, sink, slog.Default())

	assert.Equal(t, "wx-fetch", p.Name())
	assert.Equal(t, 10*time.Minute, p.Interval())

	err := p.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, sink.bulletins, 2)
	assert.Equal(t, "fetch", sink.bulletins[0].Source)
	assert.Contains(t, sink.bulletins[0].Text, "KJFK")
	assert.Contains(t, gotQuery, "ids=KJFK%2CKBOS")
	assert.Contains(t, gotQuery, "format=raw")
}

func TestPoller_Run_JSONRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"icaoId":"KJFK","rawOb":"KJFK 251251Z 31008KT 10SM FEW250 26/14 A3012","fltCat":"VFR"}]`))
	}))
	defer srv.Close()

	sink := &captureSink{}
	p := New(Config{
		Endpoint:      srv.URL,
		Stations:      []string{"KJFK"},
		Interval:      time.Minute,
		RatePerSecond: 100,
		Burst:         10,
	}, sink, slog.Default())

	err := p.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, sink.bulletins, 1)
	assert.Equal(t, "KJFK", sink.bulletins[0].Station)
	assert.Equal(t, "fetch", sink.bulletins[0].Source)
}

func TestPoller_Run_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "over quota", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	sink := &captureSink{}
	p := New(Config{
		Endpoint:      srv.URL,
		Stations:      []string{"KJFK"},
		Interval:      time.Minute,
		RatePerSecond: 100,
		Burst:         10,
	}, sink, slog.Default())

	err := p.Run(context.Background())
	require.Error(t, err)
	assert.Empty(t, sink.bulletins)
}

func TestPoller_Run_BatchesLargeStationSets(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		_, _ = w.Write([]byte("KJFK 251251Z 10SM CLR 24/12 A3010\n"))
	}))
	defer srv.Close()

	stations := make([]string, 45)
	for i := range stations {
		stations[i] = "K" + string(rune('A'+i%26)) + "AA"
	}

	sink := &captureSink{}
	p := New(Config{
		Endpoint:      srv.URL,
		Stations:      stations,
		Interval:      time.Minute,
		RatePerSecond: 1000,
		Burst:         100,
	}, sink, slog.Default())

	err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, requests) // 45 stations in batches of 20
}
