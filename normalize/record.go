package normalize

import (
	"strings"

	"github.com/SparkyNY/worldmonitor/geo"
)

// Record is the stable internal shape every upstream feature, vehicle, or
// alert is reduced to. String fields use the empty string as the "unknown"
// sentinel, never null; Location is nil when no usable coordinates exist.
type Record struct {
	ID             string         `json:"id"`
	Classification string         `json:"classification"`
	OccurredAt     string         `json:"occurredAt,omitempty"`
	Label          string         `json:"label"`
	Description    string         `json:"description"`
	TypeCode       string         `json:"typeCode"`
	Location       *geo.Point     `json:"location,omitempty"`
	Raw            map[string]any `json:"rawProperties,omitempty"`
}

// Normalizer holds the candidate-key table shared by all datasets.
type Normalizer struct {
	fields Fields
}

func New(fields Fields) *Normalizer {
	if fields == nil {
		fields = DefaultFields()
	}
	return &Normalizer{fields: fields}
}

// Normalize reduces one upstream property map to a Record. point, when
// non-nil, is geometry attached to the feature and wins over any lat/lon
// properties.
func (n *Normalizer) Normalize(props map[string]any, point *geo.Point, classification string) Record {
	rec := Record{
		Classification: classification,
		Label:          n.fields.Extract(props, FieldLabel),
		Description:    n.fields.Extract(props, FieldDescription),
		TypeCode:       n.fields.Extract(props, FieldTypeCode),
		Raw:            props,
	}
	if raw, ok := n.fields.ExtractRaw(props, FieldOccurredAt); ok {
		rec.OccurredAt = CoerceDate(raw)
	}
	rec.Location = n.extractLocation(props, point)
	rec.ID = n.deriveID(props, rec)
	return rec
}

// deriveID prefers an explicit case/incident number, then an object id,
// then a deterministic composite of whatever fields exist. The composite is
// best-effort: stable across repeated fetches of unchanged data, but not
// guaranteed unique.
func (n *Normalizer) deriveID(props map[string]any, rec Record) string {
	if v := n.fields.Extract(props, FieldCaseNumber); v != "" {
		return v
	}
	if v := n.fields.Extract(props, FieldObjectID); v != "" {
		return v
	}
	date := rec.OccurredAt
	if date == "" {
		date = "no-date"
	}
	typeCode := rec.TypeCode
	if typeCode == "" {
		typeCode = "na"
	}
	location := rec.Label
	if location == "" {
		location = "unknown"
	}
	return slugJoin(rec.Classification, location, date, typeCode)
}

func (n *Normalizer) extractLocation(props map[string]any, point *geo.Point) *geo.Point {
	if point != nil && point.Valid() {
		p := *point
		return &p
	}
	latRaw, latOK := n.fields.ExtractRaw(props, FieldLatitude)
	lonRaw, lonOK := n.fields.ExtractRaw(props, FieldLongitude)
	if !latOK || !lonOK {
		return nil
	}
	lat, ok1 := asFloat(latRaw)
	lon, ok2 := asFloat(lonRaw)
	if !ok1 || !ok2 {
		return nil
	}
	p := geo.Point{Lat: lat, Lon: lon}
	if !p.Valid() {
		return nil
	}
	return &p
}

func slugJoin(parts ...string) string {
	cleaned := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		p = strings.Map(func(r rune) rune {
			switch {
			case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
				return r
			case r == ':', r == '+':
				return r
			default:
				return '_'
			}
		}, p)
		cleaned = append(cleaned, p)
	}
	return strings.Join(cleaned, "-")
}
