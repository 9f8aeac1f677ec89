// Package parsers imports all parser packages to trigger their init() registration.
// Import this package for side effects only.
package parsers

import (
	// Import all parser packages to register them with the registry.
	_ "wx_decoder/internal/parsers/fallback"
	_ "wx_decoder/internal/parsers/metar"
	_ "wx_decoder/internal/parsers/record"
	_ "wx_decoder/internal/parsers/sigmet"
	_ "wx_decoder/internal/parsers/taf"
)
