// Package normalize converts loosely-typed upstream property maps into
// stable Record values.
//
// Upstream municipal feeds rename and re-case fields without notice, so
// extraction is heuristic: each logical field has an ordered candidate key
// list (configuration data, not code), tried exact-first then
// case-insensitively. Classification is a keyword match over descriptive
// text and is best-effort by design; records that fail the keyword test are
// excluded from the dataset, so callers must accept under-inclusion.
package normalize
