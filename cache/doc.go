// Package cache is the persistence façade for refreshed payloads, keyed by
// dataset id. Entries are replaced wholesale by successful refreshes and
// never partially updated; the last writer wins. The stored bytes are the
// refresh payload serialized with its provenance, so a cached entry can
// stand in for a missing refresh during offline or degraded operation.
package cache
