package bulletin

import (
	"encoding/json"
	"strconv"
	"strings"
)

// FlexInt64 handles JSON fields that can be either string or number.
type FlexInt64 int64

func (f *FlexInt64) UnmarshalJSON(data []byte) error {
	// Try as number first
	var i int64
	if err := json.Unmarshal(data, &i); err == nil {
		*f = FlexInt64(i)
		return nil
	}

	// Try as string
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" {
			*f = 0
			return nil
		}
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = FlexInt64(i)
		return nil
	}

	*f = 0
	return nil
}

// FlexFloat64 handles numeric fields that may arrive as a number, a numeric
// string, or a string with a trailing "+" marking an at-or-above value, like
// the "10+" visibility some feeds emit.
type FlexFloat64 struct {
	Value float64
	Plus  bool
}

func (f *FlexFloat64) UnmarshalJSON(data []byte) error {
	var v float64
	if err := json.Unmarshal(data, &v); err == nil {
		f.Value = v
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		if strings.HasSuffix(s, "+") {
			f.Plus = true
			s = strings.TrimSuffix(s, "+")
		}
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			f.Value = v
		}
		return nil
	}

	return nil
}

func (f FlexFloat64) MarshalJSON() ([]byte, error) {
	if f.Plus {
		return json.Marshal(strconv.FormatFloat(f.Value, 'f', -1, 64) + "+")
	}
	return json.Marshal(f.Value)
}

// WindDirection handles direction fields that may be degrees or the literal
// "VRB" for variable winds.
type WindDirection struct {
	Degrees  int
	Variable bool
}

func (d *WindDirection) UnmarshalJSON(data []byte) error {
	var i int
	if err := json.Unmarshal(data, &i); err == nil {
		d.Degrees = i
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "VRB" {
			d.Variable = true
			return nil
		}
		if i, err := strconv.Atoi(s); err == nil {
			d.Degrees = i
		}
		return nil
	}

	return nil
}

func (d WindDirection) MarshalJSON() ([]byte, error) {
	if d.Variable {
		return json.Marshal("VRB")
	}
	return json.Marshal(d.Degrees)
}
