package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/plagiaguard/plagctl/internal/api"
	"github.com/plagiaguard/plagctl/internal/notify"
	"github.com/plagiaguard/plagctl/internal/reportstore"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
	Auth   string
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   body.String(),
			Auth:   r.Header.Get("Authorization"),
		})

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"message":"not found"}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *api.Client {
	return api.New(ts.server.URL, "test-token")
}

var ctx = context.Background()

func TestReportsListFlow(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /report/list": `{
			"reports": [
				{"id":"r1","name":"a vs b","status":"completed","similarity_score":40.2,"detection_method":"tfidf","created_at":"2026-03-14T09:30:00"},
				{"id":"r2","name":"c check","status":"processing","detection_method":"embeddings","report_type":"general","created_at":"2026-03-15T10:00:00"}
			],
			"page": 1, "per_page": 10, "total": 2, "pages": 1
		}`,
	})

	store := reportstore.New(ts.client(), 10)
	if err := store.Fetch(ctx); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	r := ts.requests[0]
	if r.Path != "/report/list?page=1&per_page=10" {
		t.Errorf("path = %q", r.Path)
	}
	if r.Auth != "Bearer test-token" {
		t.Errorf("auth = %q", r.Auth)
	}

	// Only the general report matches a type filter.
	view := store.View(reportstore.Filter{Type: "general", Method: reportstore.FilterAll})
	if len(view) != 1 || view[0].ID != "r2" {
		t.Errorf("filtered view = %+v", view)
	}

	pg := store.Page()
	if pg.Pages != 1 || pg.Total != 2 {
		t.Errorf("page state = %+v", pg)
	}
}

func TestCompareValidationSendsNoRequest(t *testing.T) {
	ts := newTestServer(t, nil)

	_, err := ts.client().Compare(ctx, "d1", "d1", "tfidf")
	var verr api.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if len(ts.requests) != 0 {
		t.Errorf("expected no requests, got %d", len(ts.requests))
	}
}

func TestRenderPageLine(t *testing.T) {
	orig := noColor
	noColor = true
	defer func() { noColor = orig }()

	tests := []struct {
		page, pages int
		want        string
	}{
		{1, 1, ""},
		{1, 0, ""},
		{2, 3, "1 [2] 3"},
		{5, 20, "1 … 4 [5] 6 … 20"},
		{1, 5, "[1] 2 … 5"},
	}
	for _, tt := range tests {
		if got := renderPageLine(tt.page, tt.pages); got != tt.want {
			t.Errorf("renderPageLine(%d, %d) = %q, want %q", tt.page, tt.pages, got, tt.want)
		}
	}
}

type stubDownloader struct {
	data     []byte
	filename string
	err      error
}

func (s *stubDownloader) DownloadReport(_ context.Context, _ string, w io.Writer, progress func(written, total int64)) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if _, err := w.Write(s.data); err != nil {
		return "", err
	}
	if progress != nil {
		progress(int64(len(s.data)), int64(len(s.data)))
	}
	return s.filename, nil
}

func TestDownloadReportFile(t *testing.T) {
	dir := t.TempDir()
	stub := &stubDownloader{data: []byte("%PDF-1.4 fake"), filename: "report-r1.pdf"}

	path, size, err := downloadReportFile(ctx, stub, "r1", dir, notify.NewQueue(0))
	if err != nil {
		t.Fatalf("downloadReportFile: %v", err)
	}
	if filepath.Base(path) != "report-r1.pdf" {
		t.Errorf("path = %q", path)
	}
	if size != int64(len(stub.data)) {
		t.Errorf("size = %d, want %d", size, len(stub.data))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading download: %v", err)
	}
	if string(data) != string(stub.data) {
		t.Error("downloaded content mismatch")
	}

	// No stray temp files left behind.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected 1 file in dest dir, found %d", len(entries))
	}
}

func TestDownloadReportFileCleansUpOnError(t *testing.T) {
	dir := t.TempDir()
	stub := &stubDownloader{err: errors.New("boom")}

	if _, _, err := downloadReportFile(ctx, stub, "r1", dir, notify.NewQueue(0)); err == nil {
		t.Fatal("expected error")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty dest dir after failure, found %d entries", len(entries))
	}
}

func TestMethodFlag(t *testing.T) {
	cmd := compareCmd
	if err := cmd.Flags().Set("method", "embeddings"); err != nil {
		t.Fatal(err)
	}
	defer cmd.Flags().Set("method", "")

	m, err := methodFlag(cmd)
	if err != nil {
		t.Fatalf("methodFlag: %v", err)
	}
	if string(m) != "embeddings" {
		t.Errorf("method = %q", m)
	}

	if err := cmd.Flags().Set("method", "quantum"); err != nil {
		t.Fatal(err)
	}
	if _, err := methodFlag(cmd); err == nil {
		t.Error("expected error for unknown method")
	}
}

func TestSizeLabel(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{3 << 20, "3.0 MB"},
	}
	for _, tt := range tests {
		if got := sizeLabel(tt.n); got != tt.want {
			t.Errorf("sizeLabel(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("abcdefghijkl"); got != "abcdefgh" {
		t.Errorf("shortID = %q", got)
	}
	if got := shortID("abc"); got != "abc" {
		t.Errorf("shortID = %q", got)
	}
}
