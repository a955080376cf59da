// Package resolver tries an ordered list of fetch strategies for a logical
// dataset, accepting the first non-empty successful result and recording
// every failed or empty attempt as a warning. Tiers run strictly in
// priority order, never speculatively in parallel, so less-preferred
// sources see no wasted load.
package resolver
