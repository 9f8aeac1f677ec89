// Package wx provides aviation weather report decoding and flight category
// classification: METAR-style observation decoding, TAF-style bulletin
// segmentation into forecast periods, and the FAA/NWS ceiling-and-visibility
// category rules. Everything here is pure and clock-free; callers supply the
// reference times.
package wx

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Category is an FAA/NWS flight category derived from ceiling and visibility.
// Categories are totally ordered worst to best: LIFR < IFR < MVFR < VFR.
// Unknown sits outside the scale and marks insufficient data.
type Category int

const (
	Unknown Category = iota
	LIFR
	IFR
	MVFR
	VFR
)

// String returns the canonical token for the category.
func (c Category) String() string {
	switch c {
	case LIFR:
		return "LIFR"
	case IFR:
		return "IFR"
	case MVFR:
		return "MVFR"
	case VFR:
		return "VFR"
	default:
		return "UNKNOWN"
	}
}

// Known reports whether the category carries real data.
func (c Category) Known() bool {
	return c >= LIFR && c <= VFR
}

// MarshalJSON serializes the category as its canonical token.
func (c Category) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON accepts the five canonical tokens; anything else is an error.
func (c *Category) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, ok := ParseCategory(s)
	if !ok && !strings.EqualFold(s, "UNKNOWN") && s != "" {
		return fmt.Errorf("unknown flight category %q", s)
	}
	*c = parsed
	return nil
}

// ParseCategory validates a category token. It returns (Unknown, false) for
// anything outside the five known values, so an unrecognized upstream token
// falls through to computed classification instead of being trusted.
func ParseCategory(s string) (Category, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "VFR":
		return VFR, true
	case "MVFR":
		return MVFR, true
	case "IFR":
		return IFR, true
	case "LIFR":
		return LIFR, true
	case "UNKNOWN":
		return Unknown, true
	default:
		return Unknown, false
	}
}

// Worse returns the lower of two categories on the LIFR < IFR < MVFR < VFR
// order. Unknown never wins: if either side is Unknown the other is returned.
func Worse(a, b Category) Category {
	if a == Unknown {
		return b
	}
	if b == Unknown {
		return a
	}
	if a < b {
		return a
	}
	return b
}

// ClassifyVisibility maps a visibility in statute miles onto the FAA table.
// Boundaries are strict: exactly 1 mile is IFR, exactly 3 is MVFR, exactly 5
// is VFR.
func ClassifyVisibility(miles float64) Category {
	switch {
	case miles < 1:
		return LIFR
	case miles < 3:
		return IFR
	case miles < 5:
		return MVFR
	default:
		return VFR
	}
}

// ClassifyCeiling maps a ceiling in feet AGL onto the FAA table. Boundaries
// are strict: exactly 500 ft is IFR, exactly 1000 is MVFR, exactly 3000 is VFR.
func ClassifyCeiling(feet float64) Category {
	switch {
	case feet < 500:
		return LIFR
	case feet < 1000:
		return IFR
	case feet < 3000:
		return MVFR
	default:
		return VFR
	}
}

// Classify derives the flight category for an observation.
//
// An explicit category supplied by the source short-circuits computation.
// Otherwise the visibility and ceiling categories are computed independently
// and the worse of the two wins; if only one is known it is used alone; if
// neither is known a clear-sky signal defaults to VFR and anything else is
// Unknown.
func Classify(o Observation) Category {
	if o.ExplicitCategory != nil && o.ExplicitCategory.Known() {
		return *o.ExplicitCategory
	}

	visCat := Unknown
	if o.Visibility != nil {
		if o.Visibility.Unbounded {
			visCat = VFR
		} else {
			visCat = ClassifyVisibility(o.Visibility.Miles)
		}
	}

	ceilCat := Unknown
	if o.Ceiling != nil {
		if o.Ceiling.Unlimited {
			ceilCat = VFR
		} else {
			ceilCat = ClassifyCeiling(o.Ceiling.Feet)
		}
	}

	switch {
	case visCat.Known() && ceilCat.Known():
		return Worse(visCat, ceilCat)
	case visCat.Known():
		return visCat
	case ceilCat.Known():
		return ceilCat
	case o.ClearSky:
		return VFR
	default:
		return Unknown
	}
}
