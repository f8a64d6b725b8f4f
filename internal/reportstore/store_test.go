package reportstore

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/plagiaguard/plagctl/internal/api"
	"github.com/plagiaguard/plagctl/internal/report"
)

var ctx = context.Background()

// fakeBackend scripts ListReports/GetReport/DeleteReport responses and counts
// calls.
type fakeBackend struct {
	listPage    api.ReportPage
	listErr     error
	listCalls   int
	onList      func(call int)
	getReport   report.Report
	getErr      error
	deleteErr   error
	deleteCalls int
}

func (b *fakeBackend) ListReports(ctx context.Context, page, perPage int) (api.ReportPage, error) {
	b.listCalls++
	if b.onList != nil {
		b.onList(b.listCalls)
	}
	if b.listErr != nil {
		return api.ReportPage{}, b.listErr
	}
	return b.listPage, nil
}

func (b *fakeBackend) GetReport(ctx context.Context, id string) (report.Report, error) {
	if b.getErr != nil {
		return report.Report{}, b.getErr
	}
	return b.getReport, nil
}

func (b *fakeBackend) DeleteReport(ctx context.Context, id string) error {
	b.deleteCalls++
	return b.deleteErr
}

func listing(ids []string, page, perPage, total, pages int) api.ReportPage {
	reports := make([]report.Report, len(ids))
	for i, id := range ids {
		reports[i] = report.Report{ID: id, Status: report.StatusCompleted}
	}
	return api.ReportPage{Reports: reports, Page: page, PerPage: perPage, Total: total, Pages: pages}
}

func TestFetchReplacesListAndPage(t *testing.T) {
	backend := &fakeBackend{listPage: listing([]string{"r1", "r2"}, 1, 10, 12, 2)}
	s := New(backend, 10)

	if err := s.Fetch(ctx); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if got := s.Reports(); len(got) != 2 || got[0].ID != "r1" {
		t.Errorf("reports = %+v", got)
	}
	if pg := s.Page(); pg.Page != 1 || pg.Total != 12 || pg.Pages != 2 {
		t.Errorf("page = %+v", pg)
	}
	if s.Flags().Loading(OpList) {
		t.Error("loading flag still raised after fetch")
	}
	if msg := s.Flags().Err(OpList); msg != "" {
		t.Errorf("error flag = %q after success", msg)
	}
}

func TestFetchIdempotent(t *testing.T) {
	backend := &fakeBackend{listPage: listing([]string{"r1", "r2"}, 1, 10, 12, 2)}
	s := New(backend, 10)

	if err := s.Fetch(ctx); err != nil {
		t.Fatalf("first Fetch: %v", err)
	}
	first, firstPage := s.Reports(), s.Page()

	if err := s.Fetch(ctx); err != nil {
		t.Fatalf("second Fetch: %v", err)
	}
	if got := s.Reports(); !reflect.DeepEqual(got, first) {
		t.Errorf("reports after refetch = %+v, want %+v", got, first)
	}
	if pg := s.Page(); pg != firstPage {
		t.Errorf("page after refetch = %+v, want %+v", pg, firstPage)
	}
	if backend.listCalls != 2 {
		t.Errorf("listCalls = %d, want 2", backend.listCalls)
	}
}

func TestFetchEmptyListing(t *testing.T) {
	backend := &fakeBackend{listPage: listing(nil, 1, 10, 0, 0)}
	s := New(backend, 10)

	if err := s.Fetch(ctx); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got := s.Reports(); len(got) != 0 {
		t.Errorf("reports = %+v", got)
	}
	if pg := s.Page(); pg.Page != 1 {
		t.Errorf("page = %+v, want cursor pinned at 1", pg)
	}
}

func TestFetchFailurePreservesState(t *testing.T) {
	backend := &fakeBackend{listPage: listing([]string{"r1"}, 1, 10, 1, 1)}
	var outcomes []Outcome
	s := New(backend, 10, WithOutcomes(func(o Outcome) { outcomes = append(outcomes, o) }))

	if err := s.Fetch(ctx); err != nil {
		t.Fatalf("seed fetch: %v", err)
	}

	backend.listErr = errors.New("connection refused")
	err := s.Fetch(ctx)
	if err == nil {
		t.Fatal("failing fetch returned nil")
	}

	if got := s.Reports(); len(got) != 1 || got[0].ID != "r1" {
		t.Errorf("reports after failure = %+v, want prior list preserved", got)
	}
	if s.Flags().Loading(OpList) {
		t.Error("loading flag still raised after failed fetch")
	}
	if msg := s.Flags().Err(OpList); msg != msgListFailed {
		t.Errorf("error flag = %q, want %q", msg, msgListFailed)
	}
	if len(outcomes) != 1 || outcomes[0].OK || outcomes[0].Message != msgListFailed {
		t.Errorf("outcomes = %+v", outcomes)
	}
	if errors.Is(err, backend.listErr) == false && err.Error() != "connection refused" {
		t.Errorf("returned error = %v, want underlying cause", err)
	}
}

func TestFetchErrorClearedOnNextAttempt(t *testing.T) {
	backend := &fakeBackend{listErr: errors.New("boom")}
	s := New(backend, 10)

	_ = s.Fetch(ctx)
	if s.Flags().Err(OpList) == "" {
		t.Fatal("error flag not set after failure")
	}

	backend.listErr = nil
	backend.listPage = listing([]string{"r1"}, 1, 10, 1, 1)
	if err := s.Fetch(ctx); err != nil {
		t.Fatalf("recovery fetch: %v", err)
	}
	if msg := s.Flags().Err(OpList); msg != "" {
		t.Errorf("error flag = %q after recovered attempt", msg)
	}
}

func TestFetchUnauthenticatedIsSilent(t *testing.T) {
	backend := &fakeBackend{listErr: api.ErrNotAuthenticated}
	var outcomes []Outcome
	s := New(backend, 10, WithOutcomes(func(o Outcome) { outcomes = append(outcomes, o) }))

	if err := s.Fetch(ctx); err != nil {
		t.Fatalf("unauthenticated fetch returned error: %v", err)
	}
	if msg := s.Flags().Err(OpList); msg != "" {
		t.Errorf("error flag = %q, want silence", msg)
	}
	if len(outcomes) != 0 {
		t.Errorf("outcomes = %+v, want none", outcomes)
	}
}

func TestStaleFetchDiscarded(t *testing.T) {
	backend := &fakeBackend{}
	s := New(backend, 10)

	// The first in-flight request triggers a second fetch before returning,
	// so its response arrives with a superseded generation number.
	backend.onList = func(call int) {
		if call == 1 {
			backend.listPage = listing([]string{"newer"}, 2, 10, 20, 2)
			backend.onList = nil
			_ = s.fetch(ctx, 2, 10)
			backend.listPage = listing([]string{"stale"}, 1, 10, 20, 2)
		}
	}

	if err := s.Fetch(ctx); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if got := s.Reports(); len(got) != 1 || got[0].ID != "newer" {
		t.Errorf("reports = %+v, want the newer generation kept", got)
	}
	if pg := s.Page(); pg.Page != 2 {
		t.Errorf("page = %+v, want newer cursor", pg)
	}
}

func TestChangePageBounds(t *testing.T) {
	backend := &fakeBackend{listPage: listing([]string{"r1"}, 1, 10, 25, 3)}
	s := New(backend, 10)
	if err := s.Fetch(ctx); err != nil {
		t.Fatalf("seed fetch: %v", err)
	}
	seedCalls := backend.listCalls

	s.ChangePage(ctx, 0)
	s.ChangePage(ctx, 4)
	if backend.listCalls != seedCalls {
		t.Errorf("out-of-range page change hit the backend (%d calls)", backend.listCalls-seedCalls)
	}
	if pg := s.Page(); pg.Page != 1 {
		t.Errorf("page = %d, want unchanged cursor", pg.Page)
	}

	backend.listPage = listing([]string{"r21"}, 3, 10, 25, 3)
	s.ChangePage(ctx, 3)
	if backend.listCalls != seedCalls+1 {
		t.Errorf("valid page change issued %d fetches", backend.listCalls-seedCalls)
	}
	if pg := s.Page(); pg.Page != 3 {
		t.Errorf("page = %d, want 3", pg.Page)
	}
}

func TestChangePageBeforeFirstFetchIgnored(t *testing.T) {
	backend := &fakeBackend{}
	s := New(backend, 10)

	// Pages is still zero, so every target is out of range.
	s.ChangePage(ctx, 2)
	if backend.listCalls != 0 {
		t.Errorf("backend called %d times", backend.listCalls)
	}
}

func TestChangePageKeepsCursorOnFetchFailure(t *testing.T) {
	backend := &fakeBackend{listPage: listing([]string{"r1"}, 1, 10, 25, 3)}
	s := New(backend, 10)
	if err := s.Fetch(ctx); err != nil {
		t.Fatalf("seed fetch: %v", err)
	}

	backend.listErr = errors.New("boom")
	s.ChangePage(ctx, 2)

	if pg := s.Page(); pg.Page != 2 {
		t.Errorf("page = %d, want the moved cursor to stand", pg.Page)
	}
	if got := s.Reports(); len(got) != 1 || got[0].ID != "r1" {
		t.Errorf("reports = %+v, want prior contents preserved", got)
	}
	if msg := s.Flags().Err(OpList); msg != msgListFailed {
		t.Errorf("error flag = %q", msg)
	}
}

func TestRemoveRefetchesOnSuccess(t *testing.T) {
	backend := &fakeBackend{listPage: listing([]string{"r2"}, 1, 10, 1, 1)}
	var outcomes []Outcome
	s := New(backend, 10, WithOutcomes(func(o Outcome) { outcomes = append(outcomes, o) }))

	if !s.Remove(ctx, "r1") {
		t.Fatal("Remove returned false")
	}
	if backend.deleteCalls != 1 || backend.listCalls != 1 {
		t.Errorf("delete/list calls = %d/%d, want 1/1", backend.deleteCalls, backend.listCalls)
	}
	if len(outcomes) != 1 || !outcomes[0].OK || outcomes[0].Op != OpDelete {
		t.Errorf("outcomes = %+v", outcomes)
	}
}

func TestRemoveFailure(t *testing.T) {
	backend := &fakeBackend{deleteErr: errors.New("boom")}
	var outcomes []Outcome
	s := New(backend, 10, WithOutcomes(func(o Outcome) { outcomes = append(outcomes, o) }))

	if s.Remove(ctx, "r1") {
		t.Fatal("Remove reported success")
	}
	if backend.listCalls != 0 {
		t.Error("failed delete still refetched the list")
	}
	if msg := s.Flags().Err(OpDelete); msg != msgDeleteFailed {
		t.Errorf("error flag = %q", msg)
	}
	if s.Flags().Loading(OpDelete) {
		t.Error("loading flag still raised")
	}
	if len(outcomes) != 1 || outcomes[0].OK {
		t.Errorf("outcomes = %+v", outcomes)
	}
}

func TestRemoveUnauthenticatedIsSilent(t *testing.T) {
	backend := &fakeBackend{deleteErr: api.ErrNotAuthenticated}
	var outcomes []Outcome
	s := New(backend, 10, WithOutcomes(func(o Outcome) { outcomes = append(outcomes, o) }))

	if s.Remove(ctx, "r1") {
		t.Fatal("Remove reported success")
	}
	if msg := s.Flags().Err(OpDelete); msg != "" {
		t.Errorf("error flag = %q, want silence", msg)
	}
	if len(outcomes) != 0 {
		t.Errorf("outcomes = %+v, want none", outcomes)
	}
}

func TestGetFailureFlags(t *testing.T) {
	backend := &fakeBackend{getErr: errors.New("boom")}
	s := New(backend, 10)

	if _, err := s.Get(ctx, "r1"); err == nil {
		t.Fatal("Get returned nil error")
	}
	if msg := s.Flags().Err(OpGet); msg != msgGetFailed {
		t.Errorf("error flag = %q", msg)
	}

	backend.getErr = nil
	backend.getReport = report.Report{ID: "r1"}
	r, err := s.Get(ctx, "r1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if r.ID != "r1" {
		t.Errorf("report = %+v", r)
	}
	if msg := s.Flags().Err(OpGet); msg != "" {
		t.Errorf("error flag = %q after success", msg)
	}
}

// scriptedStatus returns one CheckStatus per call.
type scriptedStatus struct {
	statuses []api.CheckStatus
	err      error
	calls    int
}

func (s *scriptedStatus) GetCheckStatus(ctx context.Context, id string) (api.CheckStatus, error) {
	if s.err != nil {
		return api.CheckStatus{}, s.err
	}
	st := s.statuses[s.calls]
	if s.calls < len(s.statuses)-1 {
		s.calls++
	}
	return st, nil
}

func TestWatchUntilTerminal(t *testing.T) {
	backend := &scriptedStatus{statuses: []api.CheckStatus{
		{Status: report.StatusPending},
		{Status: report.StatusProcessing},
		{Status: report.StatusCompleted},
	}}

	var seen []report.Status
	final, err := Watch(ctx, backend, "r1", time.Millisecond, func(st api.CheckStatus) {
		seen = append(seen, st.Status)
	})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if final.Status != report.StatusCompleted {
		t.Errorf("final status = %q", final.Status)
	}
	if len(seen) != 3 || seen[0] != report.StatusPending || seen[2] != report.StatusCompleted {
		t.Errorf("updates = %v", seen)
	}
}

func TestWatchPollError(t *testing.T) {
	backend := &scriptedStatus{err: errors.New("boom")}
	if _, err := Watch(ctx, backend, "r1", time.Millisecond, nil); err == nil {
		t.Fatal("Watch swallowed the poll error")
	}
}

func TestWatchContextCancel(t *testing.T) {
	backend := &scriptedStatus{statuses: []api.CheckStatus{{Status: report.StatusProcessing}}}

	cancelCtx, cancel := context.WithCancel(ctx)
	cancel()
	_, err := Watch(cancelCtx, backend, "r1", time.Hour, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
