package bulletin

import (
	"encoding/json"
	"fmt"
)

// FeedWrapper is the wrapped feed format: the bulletin nested under a
// "bulletin" field with feed metadata at the top level.
type FeedWrapper struct {
	Source   *FeedSource `json:"source,omitempty"`
	Station  string      `json:"station,omitempty"`
	Bulletin *Bulletin   `json:"bulletin,omitempty"`
}

// FeedSource contains source metadata from the feed.
type FeedSource struct {
	Name        string `json:"name,omitempty"`
	Application string `json:"application,omitempty"`
}

// Flatten converts a wrapped feed message to a plain Bulletin, pulling
// station and source down from the wrapper when the inner bulletin lacks
// them.
func (w *FeedWrapper) Flatten() *Bulletin {
	if w.Bulletin == nil {
		return nil
	}

	b := *w.Bulletin
	if b.Station == "" {
		b.Station = w.Station
	}
	if b.Source == "" && w.Source != nil {
		b.Source = w.Source.Name
	}
	return &b
}

// Decode parses feed bytes in either the flat or the wrapped format.
func Decode(data []byte) (*Bulletin, error) {
	var w FeedWrapper
	if err := json.Unmarshal(data, &w); err == nil && w.Bulletin != nil {
		return w.Flatten(), nil
	}

	var b Bulletin
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode bulletin: %w", err)
	}
	return &b, nil
}
