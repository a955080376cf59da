package pipeline

import (
	"github.com/SparkyNY/worldmonitor/enrich"
	"github.com/SparkyNY/worldmonitor/normalize"
)

// Provenance describes where, when, and how a payload was obtained.
// Created fresh on every refresh; never mutated after assembly.
type Provenance struct {
	DatasetID   string            `json:"datasetId"`
	SourceURL   string            `json:"sourceUrl"`
	FetchedAt   string            `json:"fetchedAt"`
	RecordCount int               `json:"recordCount"`
	QueryParams map[string]string `json:"queryParams,omitempty"`
	Warnings    []string          `json:"warnings"`
}

// Payload is the unit stored in and served from the cache, keyed by
// dataset id. Always replaced wholesale, never patched.
type Payload struct {
	Records    []normalize.Record `json:"records"`
	Lines      []enrich.RouteLine `json:"lines,omitempty"`
	Provenance Provenance         `json:"provenance"`
}
