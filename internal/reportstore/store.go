// Package reportstore holds the client-side state for the report collection:
// the authoritative list for the current page, the pagination cursor, derived
// filtered/sorted views, and per-operation request-lifecycle flags. All
// failures are recovered at this boundary and translated into short
// user-facing messages; nothing propagates upward to break rendering.
package reportstore

import (
	"context"
	"errors"
	"sync"

	"github.com/plagiaguard/plagctl/internal/api"
	"github.com/plagiaguard/plagctl/internal/report"
)

// Fixed user-facing failure strings. Backend error detail is carried by the
// returned errors for logging, never shown directly.
const (
	msgListFailed   = "Could not load reports. Please try again."
	msgGetFailed    = "Could not load the report. Please try again."
	msgDeleteFailed = "Could not delete the report. Please try again."
)

// PageState is the pagination cursor, mirroring server-reported totals.
// Invariant: 1 <= Page <= max(Pages, 1).
type PageState struct {
	Page    int
	PerPage int
	Total   int
	Pages   int
}

// Backend is the slice of the API client the store depends on.
type Backend interface {
	ListReports(ctx context.Context, page, perPage int) (api.ReportPage, error)
	GetReport(ctx context.Context, id string) (report.Report, error)
	DeleteReport(ctx context.Context, id string) error
}

// Outcome describes a finished store operation for subscribers. The store
// performs no presentation itself; the view layer decides what a given
// outcome looks like.
type Outcome struct {
	Op      Op
	OK      bool
	Message string
}

// Option configures a Store.
type Option func(*Store)

// WithOutcomes registers fn to receive operation outcomes.
func WithOutcomes(fn func(Outcome)) Option {
	return func(s *Store) { s.onOutcome = fn }
}

// Store owns the fetched report collection for one listing view.
type Store struct {
	backend   Backend
	flags     *Flags
	onOutcome func(Outcome)

	mu       sync.Mutex
	reports  []report.Report
	page     PageState
	fetchSeq uint64
}

// New creates a Store fetching perPage reports per page (minimum 1).
func New(backend Backend, perPage int, opts ...Option) *Store {
	if perPage < 1 {
		perPage = 10
	}
	s := &Store{
		backend: backend,
		flags:   newFlags(),
		page:    PageState{Page: 1, PerPage: perPage},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Flags exposes the request-lifecycle flag set.
func (s *Store) Flags() *Flags { return s.flags }

// Reports returns a copy of the currently held page of reports.
func (s *Store) Reports() []report.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]report.Report, len(s.reports))
	copy(out, s.reports)
	return out
}

// Page returns the current pagination cursor.
func (s *Store) Page() PageState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// View applies f to the currently held list and returns the derived sequence.
func (s *Store) View(f Filter) []report.Report {
	return f.Apply(s.Reports())
}

func (s *Store) emit(o Outcome) {
	if s.onOutcome != nil {
		s.onOutcome(o)
	}
}

// Fetch requests the current page from the backend. On success the stored
// list and PageState are replaced atomically; on failure both are preserved
// and the list error flag carries a short user-facing message. When the
// client is unauthenticated the call is a silent no-op.
//
// Overlapping fetches are not deduplicated: each call takes the next
// generation number and a response is applied only if it is still the latest
// issued, so a stale response can never overwrite a newer one after rapid
// page changes.
func (s *Store) Fetch(ctx context.Context) error {
	s.mu.Lock()
	page, perPage := s.page.Page, s.page.PerPage
	s.mu.Unlock()
	return s.fetch(ctx, page, perPage)
}

func (s *Store) fetch(ctx context.Context, page, perPage int) error {
	s.mu.Lock()
	s.fetchSeq++
	seq := s.fetchSeq
	s.mu.Unlock()

	s.flags.begin(OpList)
	defer s.flags.end(OpList)

	pg, err := s.backend.ListReports(ctx, page, perPage)
	if errors.Is(err, api.ErrNotAuthenticated) {
		return nil
	}
	if err != nil {
		s.flags.fail(OpList, msgListFailed)
		s.emit(Outcome{Op: OpList, OK: false, Message: msgListFailed})
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.fetchSeq {
		// A newer fetch was issued while this one was in flight.
		return nil
	}
	s.reports = pg.Reports
	s.page = normalizePage(pg, perPage)
	return nil
}

// normalizePage folds the server-reported cursor into the PageState
// invariant.
func normalizePage(pg api.ReportPage, fallbackPerPage int) PageState {
	ps := PageState{
		Page:    pg.Page,
		PerPage: pg.PerPage,
		Total:   pg.Total,
		Pages:   pg.Pages,
	}
	if ps.PerPage < 1 {
		ps.PerPage = fallbackPerPage
	}
	if ps.Page < 1 {
		ps.Page = 1
	}
	if max := ps.Pages; max > 0 && ps.Page > max {
		ps.Page = max
	}
	return ps
}

// ChangePage moves the cursor and triggers a refetch. Requests outside
// [1, Pages] are ignored.
func (s *Store) ChangePage(ctx context.Context, newPage int) {
	s.mu.Lock()
	if newPage < 1 || newPage > s.page.Pages {
		s.mu.Unlock()
		return
	}
	s.page.Page = newPage
	perPage := s.page.PerPage
	s.mu.Unlock()

	// Fetch failure preserves prior list contents; the moved cursor stands
	// and is corrected by the next successful fetch.
	_ = s.fetch(ctx, newPage, perPage)
}

// Get fetches one report with full detail, tracking the single-item flags.
func (s *Store) Get(ctx context.Context, id string) (report.Report, error) {
	s.flags.begin(OpGet)
	defer s.flags.end(OpGet)

	r, err := s.backend.GetReport(ctx, id)
	if errors.Is(err, api.ErrNotAuthenticated) {
		return report.Report{}, err
	}
	if err != nil {
		s.flags.fail(OpGet, msgGetFailed)
		s.emit(Outcome{Op: OpGet, OK: false, Message: msgGetFailed})
		return report.Report{}, err
	}
	return r, nil
}

// Remove deletes a report server-side and refreshes the list on success, so
// the view always reflects server truth rather than an optimistic local
// removal. It reports success via the return value only; failures set the
// delete error flag and surface through the outcome subscriber.
func (s *Store) Remove(ctx context.Context, id string) bool {
	s.flags.begin(OpDelete)
	defer s.flags.end(OpDelete)

	err := s.backend.DeleteReport(ctx, id)
	if errors.Is(err, api.ErrNotAuthenticated) {
		return false
	}
	if err != nil {
		s.flags.fail(OpDelete, msgDeleteFailed)
		s.emit(Outcome{Op: OpDelete, OK: false, Message: msgDeleteFailed})
		return false
	}

	s.emit(Outcome{Op: OpDelete, OK: true, Message: "Report deleted."})
	_ = s.Fetch(ctx)
	return true
}
