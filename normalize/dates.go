package normalize

import (
	"time"
)

// epochMillisThreshold separates second-resolution epochs from
// millisecond-resolution ones. Anything at or above it is read as millis;
// the crossover sits around the year 33658 for seconds, so magnitude is a
// safe discriminator for live feeds.
const epochMillisThreshold = 1e12

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006 03:04:05 PM",
	"01/02/2006 15:04:05",
	"01/02/2006",
	time.RFC1123Z,
	time.RFC1123,
}

// CoerceDate normalizes an upstream date value to ISO-8601 UTC. Numeric
// values are treated as epoch seconds or milliseconds by magnitude. String
// values are tried against common calendar layouts; an unparseable string
// is passed through verbatim rather than discarded, since a garbled but
// present date is more useful downstream than a dropped one.
func CoerceDate(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return coerceDateString(s)
	}
	if f, ok := asFloat(v); ok {
		return epochToISO(f)
	}
	return ""
}

// CoerceDateTime is CoerceDate with the parsed time exposed; ok is false
// for passthrough and empty values.
func CoerceDateTime(v any) (time.Time, bool) {
	if v == nil {
		return time.Time{}, false
	}
	if s, ok := v.(string); ok {
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
		if f, ok := asFloat(s); ok {
			return epochToTime(f), true
		}
		return time.Time{}, false
	}
	if f, ok := asFloat(v); ok {
		return epochToTime(f), true
	}
	return time.Time{}, false
}

func coerceDateString(s string) string {
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format(time.RFC3339)
		}
	}
	// Numeric strings carry epochs too.
	if f, ok := asFloat(s); ok {
		return epochToISO(f)
	}
	return s
}

func epochToTime(f float64) time.Time {
	if f >= epochMillisThreshold || f <= -epochMillisThreshold {
		return time.UnixMilli(int64(f)).UTC()
	}
	return time.Unix(int64(f), 0).UTC()
}

func epochToISO(f float64) string {
	return epochToTime(f).Format(time.RFC3339)
}
