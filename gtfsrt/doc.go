// Package gtfsrt decodes the fallback vehicle-position feeds: the
// GTFS-realtime protobuf feed and the bulk enhanced JSON entity feed. Both
// are consulted only when the primary JSON:API source yields zero usable
// records.
package gtfsrt
