// Package enrich joins route metadata onto raw positional records and
// builds an ordered path per route for map rendering.
//
// When authoritative shape data exists the longest decoded candidate wins.
// Otherwise a synthetic path is built by ordering the route's observed
// positions along their dominant spatial axis. That is an approximation
// with no correctness guarantee for looping or branching routes; the
// line's Source field lets callers tell the two apart.
package enrich
