// Package config loads and validates the application configuration:
// server settings, the region of interest, transit endpoints, per-dataset
// source descriptors, and the data-driven tables the schema normalizer
// uses (field candidate lists and classification vocabularies).
//
// Source descriptors are defined at process start and never mutated at
// runtime.
package config
