// Package jsonapi is a client for the transit agency's JSON:API endpoint
// (vehicle, route, shape, and alert resources). Id filters are chunked to
// respect the upstream batch-size limit.
package jsonapi
