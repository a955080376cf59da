package normalize

import (
	"math"
	"strconv"
	"strings"
)

// Fields maps a logical field name to its ordered upstream key candidates.
// The lists live in configuration so new upstream schema variants are
// additive, not code changes.
type Fields map[string][]string

// Logical field names used by the pipeline.
const (
	FieldCaseNumber  = "caseNumber"
	FieldObjectID    = "objectID"
	FieldLabel       = "label"
	FieldDescription = "description"
	FieldTypeCode    = "typeCode"
	FieldOccurredAt  = "occurredAt"
	FieldLatitude    = "latitude"
	FieldLongitude   = "longitude"
)

// DefaultFields covers the upstream variants observed across the
// municipal and transit feeds. Config may extend or replace it.
func DefaultFields() Fields {
	return Fields{
		FieldCaseNumber:  {"case_number", "casenumber", "case_no", "incident_number", "incidentnumber", "report_number"},
		FieldObjectID:    {"objectid", "object_id", "fid", "id"},
		FieldLabel:       {"title", "name", "headline", "location", "address", "block_address"},
		FieldDescription: {"description", "details", "comments", "narrative", "offense_description", "nature_of_call"},
		FieldTypeCode:    {"type", "type_code", "event_type", "offense_code", "call_type", "category"},
		FieldOccurredAt:  {"occurred_at", "occurred_on_date", "report_date", "datetime", "date_time", "event_date", "created_date", "updated_at"},
		FieldLatitude:    {"latitude", "lat", "y"},
		FieldLongitude:   {"longitude", "lon", "lng", "long", "x"},
	}
}

// Extract returns the first non-empty string or numeric value among the
// candidates for the logical field: one pass over the candidates as exact
// keys, then one pass matching case-insensitively.
func (f Fields) Extract(props map[string]any, logical string) string {
	candidates := f[logical]
	for _, key := range candidates {
		if v, ok := props[key]; ok {
			if s := stringify(v); s != "" {
				return s
			}
		}
	}
	if len(props) == 0 {
		return ""
	}
	folded := make(map[string]any, len(props))
	for k, v := range props {
		folded[strings.ToLower(k)] = v
	}
	for _, key := range candidates {
		if v, ok := folded[strings.ToLower(key)]; ok {
			if s := stringify(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// ExtractRaw returns the first present candidate value without string
// coercion, for callers that need the original type (epoch numbers).
func (f Fields) ExtractRaw(props map[string]any, logical string) (any, bool) {
	candidates := f[logical]
	for _, key := range candidates {
		if v, ok := props[key]; ok && v != nil {
			return v, true
		}
	}
	folded := make(map[string]any, len(props))
	for k, v := range props {
		folded[strings.ToLower(k)] = v
	}
	for _, key := range candidates {
		if v, ok := folded[strings.ToLower(key)]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// stringify renders string and numeric values; everything else is treated
// as absent.
func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return ""
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return ""
	}
}

// asFloat coerces numeric and numeric-string values.
func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		fl, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		return fl, true
	default:
		return 0, false
	}
}
