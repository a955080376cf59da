// Package geo provides the geometry primitives used by the ingestion
// pipeline: great-circle distance, region-of-interest radius tests, and
// compact polyline decoding.
package geo
