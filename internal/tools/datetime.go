package tools

import (
	"context"
	"fmt"
	"time"
	_ "time/tzdata" // minimal images may ship without zoneinfo
)

// localeLayout mirrors the "M/D/YYYY, h:mm:ss AM" style the control server expects.
const localeLayout = "1/2/2006, 3:04:05 PM"

// now is swapped in tests.
var now = time.Now

// GetDateTime returns the current local date and time.
func GetDateTime(_ context.Context, _ Request) (any, error) {
	return map[string]string{"response": now().Format(localeLayout)}, nil
}

// ConvertTimezone renders a timestamp in the requested timezone.
func ConvertTimezone(_ context.Context, req Request) (any, error) {
	zone, _ := req.Payload["timezone"].(string)
	if zone == "" {
		return nil, fmt.Errorf("%w: timezone is required", ErrInvalidInput)
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown timezone %q", ErrInvalidInput, zone)
	}

	ts := now()
	if raw, ok := req.Payload["timestamp"].(string); ok && raw != "" {
		ts, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: timestamp must be RFC 3339: %v", ErrInvalidInput, err)
		}
	}

	return map[string]string{
		"response": ts.In(loc).Format(localeLayout),
		"timezone": loc.String(),
	}, nil
}
