// Package arcgis drives a count-then-page protocol against feature-server
// style query endpoints. It enforces page and record caps and honors the
// upstream transfer-limit signal, which marks a page as truncated for
// server-side reasons distinct from "no more data".
package arcgis
