package reportstore

import (
	"sort"
	"strings"

	"github.com/plagiaguard/plagctl/internal/report"
)

// SortKey selects the derived-view ordering.
type SortKey string

const (
	SortByDate       SortKey = "date"
	SortBySimilarity SortKey = "similarity"
)

// SortDir is the requested sort direction.
type SortDir string

const (
	SortAsc  SortDir = "asc"
	SortDesc SortDir = "desc"
)

// FilterAll disables exact-match filtering for a dimension.
const FilterAll = "all"

// Filter is pure view state: it narrows and orders the currently held report
// list without further network calls and without touching the stored order.
type Filter struct {
	Type    string // report type, or FilterAll
	Method  string // detection method, or FilterAll
	Search  string // free-text term, case-insensitive substring
	SortKey SortKey
	SortDir SortDir
}

// DefaultFilter is the cleared state: everything visible, newest first.
func DefaultFilter() Filter {
	return Filter{
		Type:    FilterAll,
		Method:  FilterAll,
		SortKey: SortByDate,
		SortDir: SortDesc,
	}
}

// Apply returns a new, filtered and stably sorted view of in. The input slice
// is never reordered or mutated.
func (f Filter) Apply(in []report.Report) []report.Report {
	out := make([]report.Report, 0, len(in))
	term := strings.ToLower(strings.TrimSpace(f.Search))
	for _, r := range in {
		if f.Type != "" && f.Type != FilterAll && string(r.Type) != f.Type {
			continue
		}
		if f.Method != "" && f.Method != FilterAll && string(r.Method) != f.Method {
			continue
		}
		if term != "" && !matchesSearch(r, term) {
			continue
		}
		out = append(out, r)
	}

	key := f.SortKey
	if key == "" {
		key = SortByDate
	}
	asc := f.SortDir == SortAsc

	sort.SliceStable(out, func(i, j int) bool {
		if key == SortBySimilarity {
			sa, oka := out[i].Score()
			sb, okb := out[j].Score()
			// Reports without a meaningful score (anything not completed)
			// sort after scored ones regardless of direction.
			if oka != okb {
				return oka
			}
			if !oka || sa == sb {
				return false
			}
			if asc {
				return sa < sb
			}
			return sa > sb
		}
		ti, tj := out[i].CreatedAt, out[j].CreatedAt
		if ti.Equal(tj) {
			return false
		}
		if asc {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})
	return out
}

// matchesSearch checks the report name and the participant document names,
// case-insensitively. term is already lowercased.
func matchesSearch(r report.Report, term string) bool {
	if strings.Contains(strings.ToLower(r.Name), term) {
		return true
	}
	for _, name := range r.ParticipantNames() {
		if strings.Contains(strings.ToLower(name), term) {
			return true
		}
	}
	return false
}
