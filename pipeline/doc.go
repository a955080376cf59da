// Package pipeline assembles dataset refreshes: it drives the tiered
// fetchers, normalizes what they return, wraps the result in provenance,
// and writes it through the cache facade. A refresh either reaches
// Assembled (cached, returned) or Failed (propagated, cache untouched);
// stub datasets assemble zero records plus a standing warning.
package pipeline
