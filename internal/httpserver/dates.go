package httpserver

import (
	"fmt"
	"time"

	"github.com/MarkoPoloResearchLab/rental/pkg/rental"
)

const dateOnlyLayout = "2006-01-02"

// parseDateTime accepts RFC 3339 timestamps and bare dates. A bare date
// means midnight UTC of that day.
func parseDateTime(raw string) (int64, error) {
	if raw == "" {
		return 0, fmt.Errorf("%w: empty date", rental.ErrInvalidRange)
	}
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return parsed.UTC().Unix(), nil
	}
	parsed, err := time.Parse(dateOnlyLayout, raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not RFC 3339 or YYYY-MM-DD", rental.ErrInvalidRange, raw)
	}
	return parsed.UTC().Unix(), nil
}

func parsePeriod(rawStart string, rawEnd string) (rental.TimeRange, error) {
	startUnixUTC, err := parseDateTime(rawStart)
	if err != nil {
		return rental.TimeRange{}, err
	}
	endUnixUTC, err := parseDateTime(rawEnd)
	if err != nil {
		return rental.TimeRange{}, err
	}
	return rental.NewTimeRange(startUnixUTC, endUnixUTC)
}
