package jsonapi

// Resource is one JSON:API resource object. Attributes are kept as an
// opaque map: the schema normalizer owns field extraction, and upstream
// attribute sets drift between API revisions.
type Resource struct {
	ID            string                  `json:"id"`
	Type          string                  `json:"type"`
	Attributes    map[string]any          `json:"attributes"`
	Relationships map[string]Relationship `json:"relationships,omitempty"`
}

// Relationship holds a to-one linkage; the feeds this pipeline consumes
// never use to-many relationship data.
type Relationship struct {
	Data *RelationshipData `json:"data,omitempty"`
}

type RelationshipData struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// RelatedID returns the id of the named to-one relationship, or "".
func (r Resource) RelatedID(name string) string {
	rel, ok := r.Relationships[name]
	if !ok || rel.Data == nil {
		return ""
	}
	return rel.Data.ID
}

// AttrString returns a string attribute, or "" when absent or differently
// typed.
func (r Resource) AttrString(key string) string {
	if v, ok := r.Attributes[key].(string); ok {
		return v
	}
	return ""
}

// AttrFloat returns a numeric attribute.
func (r Resource) AttrFloat(key string) (float64, bool) {
	v, ok := r.Attributes[key].(float64)
	return v, ok
}

type document struct {
	Data   []Resource `json:"data"`
	Errors []apiError `json:"errors,omitempty"`
}

type apiError struct {
	Status string `json:"status"`
	Code   string `json:"code"`
	Detail string `json:"detail"`
}
