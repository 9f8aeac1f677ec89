package bulletin

import (
	"strconv"
	"strings"
	"time"

	"wx_decoder/internal/wx"
)

// APIRecord is one observation record in the aviationweather.gov JSON shape.
// Field names follow the upstream API.
type APIRecord struct {
	ICAOID  string         `json:"icaoId"`
	ObsTime FlexInt64      `json:"obsTime,omitempty"`
	RawOb   string         `json:"rawOb"`
	Temp    *FlexFloat64   `json:"temp,omitempty"`
	Dewp    *FlexFloat64   `json:"dewp,omitempty"`
	Wdir    *WindDirection `json:"wdir,omitempty"`
	Wspd    *FlexInt64     `json:"wspd,omitempty"`
	Wgst    *FlexInt64     `json:"wgst,omitempty"`
	Visib   *FlexFloat64   `json:"visib,omitempty"`
	Altim   *FlexFloat64   `json:"altim,omitempty"`
	Slp     *FlexFloat64   `json:"slp,omitempty"`
	FltCat  string         `json:"fltCat,omitempty"`
	Clouds  []CloudField   `json:"clouds,omitempty"`
}

// CloudField is one cloud layer as the API reports it, base in feet AGL.
type CloudField struct {
	Cover string     `json:"cover"`
	Base  *FlexInt64 `json:"base,omitempty"`
}

// ToObservation builds the canonical observation from a record. The raw text
// is decoded first; a structured visibility then overrides the text-derived
// one (with the API's unit convention disambiguated against the text), and
// structured wind and cloud fields fill gaps the text left. A fltCat naming
// a known category is trusted verbatim.
func (r *APIRecord) ToObservation() (wx.Observation, wx.Category) {
	obs, _ := wx.DecodeObservation(r.RawOb)

	if r.ICAOID != "" {
		obs.Station = strings.ToUpper(strings.TrimSpace(r.ICAOID))
	}
	if r.ObsTime > 0 {
		t := time.Unix(int64(r.ObsTime), 0).UTC()
		obs.Issued = &t
	}

	if r.Visib != nil {
		if r.Visib.Plus {
			obs.Visibility = &wx.Visibility{Miles: r.Visib.Value, Unbounded: true}
		} else {
			obs.Visibility = wx.MergeStructuredVisibility(r.Visib.Value, obs.Raw)
		}
	}

	if obs.Wind == nil && (r.Wdir != nil || r.Wspd != nil) {
		w := &wx.Wind{}
		if r.Wdir != nil {
			w.Direction = r.Wdir.Degrees
			w.Variable = r.Wdir.Variable
		}
		if r.Wspd != nil {
			w.Speed = int(*r.Wspd)
		}
		if r.Wgst != nil {
			w.Gust = int(*r.Wgst)
		}
		obs.Wind = w
	}

	if len(obs.Clouds) == 0 && obs.Ceiling == nil && len(r.Clouds) > 0 {
		obs.Clouds, obs.Ceiling, obs.ClearSky = structuredClouds(r.Clouds)
	}

	if c, ok := wx.ParseCategory(r.FltCat); ok && c.Known() {
		obs.ExplicitCategory = &c
	}

	return obs, wx.Classify(obs)
}

// structuredClouds converts API cloud fields into layers and a ceiling. The
// API's OVX cover is an obscured sky and forms a ceiling like OVC.
func structuredClouds(fields []CloudField) ([]wx.CloudLayer, *wx.Ceiling, bool) {
	var (
		layers []wx.CloudLayer
		best   = -1
		clear  bool
	)

	for _, c := range fields {
		cover := strings.ToUpper(strings.TrimSpace(c.Cover))
		switch cover {
		case "CLR", "SKC", "CAVOK", "NSC", "NCD":
			clear = true
			continue
		case "":
			continue
		}
		base := 0
		if c.Base != nil {
			base = int(*c.Base)
		}
		layers = append(layers, wx.CloudLayer{Cover: cover, BaseFeet: base})
		switch cover {
		case "BKN", "OVC", "OVX":
			if best < 0 || base < best {
				best = base
			}
		}
	}

	switch {
	case best >= 0:
		return layers, &wx.Ceiling{Feet: float64(best)}, clear
	case clear:
		return layers, &wx.Ceiling{Unlimited: true}, true
	default:
		return layers, nil, false
	}
}

// ToBulletin wraps the record's raw text in a feed envelope for archival.
func (r *APIRecord) ToBulletin() Bulletin {
	return Bulletin{
		Station:        r.ICAOID,
		Kind:           KindMETAR,
		Source:         "awc",
		Timestamp:      strconv.FormatInt(int64(r.ObsTime), 10),
		Text:           r.RawOb,
		Visibility:     r.Visib,
		FlightCategory: r.FltCat,
	}
}
