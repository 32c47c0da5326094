// Package plants defines the garden plant database contract and the
// message analysis that decides when a chat turn needs plant records.
package plants

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/RichardoC/gardenllm/internal/models"
)

var (
	ErrNotFound     = errors.New("plant not found")
	ErrUnknownField = errors.New("unknown plant field")
	ErrInvalidPlant = errors.New("invalid plant")
)

// Repository is implemented by the spreadsheet and SQLite backends.
type Repository interface {
	// All returns every plant in storage order.
	All(ctx context.Context) ([]models.Plant, error)
	// Find returns plants whose name contains any of names. No names means all plants.
	Find(ctx context.Context, names ...string) ([]models.Plant, error)
	// Upsert inserts p, or replaces the plant with the same name, and returns the stored row.
	Upsert(ctx context.Context, p models.Plant) (models.Plant, error)
	// UpdateField sets one column of the plant identified by numeric id or exact name.
	UpdateField(ctx context.Context, idOrName, field, value string) error
}

// Variants returns the search forms of a term: itself and its naive singulars.
func Variants(term string) []string {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return nil
	}
	out := []string{term}
	switch {
	case strings.HasSuffix(term, "ies") && len(term) > 4:
		out = append(out, strings.TrimSuffix(term, "ies")+"y")
	case strings.HasSuffix(term, "oes") && len(term) > 4:
		out = append(out, strings.TrimSuffix(term, "es"))
	case strings.HasSuffix(term, "s") && !strings.HasSuffix(term, "ss") && len(term) > 3:
		out = append(out, strings.TrimSuffix(term, "s"))
	}
	return out
}

// Matches reports whether the plant name contains any search variant of any name.
func Matches(p models.Plant, names ...string) bool {
	name := strings.ToLower(p.Name)
	for _, n := range names {
		for _, v := range Variants(n) {
			if strings.Contains(name, v) {
				return true
			}
		}
	}
	return false
}

// Filter keeps the plants matching names, or all of them when names is empty.
func Filter(all []models.Plant, names ...string) []models.Plant {
	if len(nonEmpty(names)) == 0 {
		return all
	}
	out := make([]models.Plant, 0, len(all))
	for _, p := range all {
		if Matches(p, names...) {
			out = append(out, p)
		}
	}
	return out
}

// Names lists the plant names, sorted, without duplicates.
func Names(all []models.Plant) []string {
	seen := make(map[string]struct{}, len(all))
	out := make([]string, 0, len(all))
	for _, p := range all {
		n := strings.TrimSpace(p.Name)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func nonEmpty(names []string) []string {
	out := names[:0:0]
	for _, n := range names {
		if strings.TrimSpace(n) != "" {
			out = append(out, n)
		}
	}
	return out
}
