package resolver

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Tier is one fetch strategy: a distinct query, endpoint, or feed.
// Fetch may return its own warnings (pagination caps, probe failures)
// alongside the records; they are kept in attempt order.
type Tier[T any] struct {
	Name  string
	URL   string
	Fetch func(ctx context.Context) ([]T, []string, error)
}

// Result is the outcome of a resolution.
type Result[T any] struct {
	Records  []T
	Tier     string // name of the winning tier; "" when all tiers exhausted
	URL      string // URL of the winning tier
	Warnings []string
}

// Resolve tries tiers in order and short-circuits on the first non-empty
// success. A failure or empty result records a warning and moves on; when
// every tier exhausts, the result is empty with all attempts accounted for.
// No attempt is ever silently swallowed.
func Resolve[T any](ctx context.Context, tiers []Tier[T]) Result[T] {
	var res Result[T]
	for _, tier := range tiers {
		records, warnings, err := tier.Fetch(ctx)
		res.Warnings = append(res.Warnings, warnings...)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s failed: %v", tier.Name, err))
			continue
		}
		if len(records) == 0 {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s returned zero results", tier.Name))
			continue
		}
		res.Records = records
		res.Tier = tier.Name
		res.URL = tier.URL
		return res
	}
	return res
}

// MergeByRecency concatenates independently sourced groups and sorts the
// combined list most-recent-first. Entries whose timestamp is unknown
// (ok=false) sort as oldest. The sort is stable so same-timestamp entries
// keep their source order.
func MergeByRecency[T any](at func(T) (time.Time, bool), groups ...[]T) []T {
	var merged []T
	for _, g := range groups {
		merged = append(merged, g...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		ti, iok := at(merged[i])
		tj, jok := at(merged[j])
		if iok != jok {
			return iok
		}
		return ti.After(tj)
	})
	return merged
}
