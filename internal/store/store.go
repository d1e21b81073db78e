// Package store persists the unification pipeline's inputs and outputs. The
// staging tables are the source feed; the unified tables are the terminal
// output, rewritten wholesale on every run.
package store

import (
	"context"
	"strconv"
	"time"

	"github.com/firmable/unify/internal/model"
)

// RegistryFilter narrows the registry staging fetch. A SampleModulus above 1
// keeps only ABNs divisible by it, matching the demo-scale sampling used
// when the full registry is too large for an exhaustive scan.
type RegistryFilter struct {
	ActiveOnly    bool
	SampleModulus int64
}

// MentionFilter narrows the crawl staging fetch.
type MentionFilter struct {
	SampleModulus int64
}

// Store is the persistence boundary for the matching pipeline.
type Store interface {
	// Source feed
	FetchRegistryEntities(ctx context.Context, f RegistryFilter) ([]model.RegistryEntity, error)
	FetchWebMentions(ctx context.Context, f MentionFilter) ([]model.WebMention, error)

	// Unification writer. WriteUnified is one atomic transaction: it
	// truncates the unified table set and inserts one unified row plus two
	// source links per accepted candidate. Any failure rolls back the
	// whole write.
	WriteUnified(ctx context.Context, accepted []model.MatchCandidate) (int, error)
	CountUnified(ctx context.Context) (UnifiedCounts, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// UnifiedCounts reports row counts across the unified table set.
type UnifiedCounts struct {
	Companies   int64 `json:"companies"`
	SourceLinks int64 `json:"source_links"`
}

// ParseStartDate parses a raw registry start date leniently: YYYYMMDD or
// YYYY-MM-DD. Anything else, including empty, yields nil; the raw value
// stays in staging and only the parsed form reaches the unified row.
func ParseStartDate(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	layouts := []string{"20060102", "2006-01-02"}
	for _, layout := range layouts {
		if len(raw) != len(layout) {
			continue
		}
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

// unifiedName picks the display name for a unified row: raw registry name
// first, normalized as fallback.
func unifiedName(e model.RegistryEntity) string {
	if e.NameRaw != "" {
		return e.NameRaw
	}
	return e.NameNorm
}

// formatMentionKey renders a crawl mention's numeric id as the source link
// key, mirroring the string key used for ABNs.
func formatMentionKey(id int64) string {
	return strconv.FormatInt(id, 10)
}
