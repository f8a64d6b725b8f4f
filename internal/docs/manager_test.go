package docs

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/plagiaguard/plagctl/internal/api"
	"github.com/plagiaguard/plagctl/internal/notify"
)

var ctx = context.Background()

// fakeBackend records uploads and scripts per-name failures.
type fakeBackend struct {
	mu        sync.Mutex
	uploads   []string
	failNames map[string]bool
	nextID    int

	downloadName    string
	downloadContent string
	downloadErr     error
}

func (b *fakeBackend) ListDocuments(ctx context.Context) ([]api.Document, error) {
	return []api.Document{{ID: "f1", Name: "essay.txt", FileType: "txt"}}, nil
}

func (b *fakeBackend) UploadDocument(ctx context.Context, name string, r io.Reader, size int64, progress func(written, total int64)) (string, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failNames[name] {
		return "", errors.New("server rejected the file")
	}
	b.nextID++
	b.uploads = append(b.uploads, name)
	return name + "-id", nil
}

func (b *fakeBackend) DownloadDocument(ctx context.Context, fileID string, w io.Writer, progress func(written, total int64)) (string, error) {
	if b.downloadErr != nil {
		return "", b.downloadErr
	}
	io.WriteString(w, b.downloadContent)
	return b.downloadName, nil
}

func (b *fakeBackend) DocumentContent(ctx context.Context, fileID string) ([]byte, string, error) {
	return []byte("preview text"), "text/plain", nil
}

func (b *fakeBackend) DeleteDocument(ctx context.Context, fileID string) error {
	return nil
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func notesByLevel(q *notify.Queue, level notify.Level) []notify.Note {
	var out []notify.Note
	for _, n := range q.Notes() {
		if n.Level == level {
			out = append(out, n)
		}
	}
	return out
}

func TestUploadAllSuccess(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeFile(t, dir, "a.txt", "alpha"),
		writeFile(t, dir, "b.txt", "beta"),
	}

	backend := &fakeBackend{}
	notes := notify.NewQueue(0)
	result := NewManager(backend, notes).UploadAll(ctx, paths)

	if result.Failed != 0 {
		t.Errorf("failed = %d", result.Failed)
	}
	if len(result.Uploaded) != 2 || result.Uploaded[0] != "a.txt-id" || result.Uploaded[1] != "b.txt-id" {
		t.Errorf("uploaded = %v, want input order", result.Uploaded)
	}

	successes := notesByLevel(notes, notify.LevelSuccess)
	if len(successes) != 1 || !strings.Contains(successes[0].Message, "2 document(s)") {
		t.Errorf("success notes = %+v", successes)
	}
}

func TestUploadAllPartialFailure(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeFile(t, dir, "good.txt", "fine"),
		writeFile(t, dir, "bad.txt", "also fine locally"),
		writeFile(t, dir, "image.png", "\x89PNG\r\n\x1a\nrest"),
	}

	backend := &fakeBackend{failNames: map[string]bool{"bad.txt": true}}
	notes := notify.NewQueue(0)
	result := NewManager(backend, notes).UploadAll(ctx, paths)

	if result.Failed != 2 {
		t.Errorf("failed = %d, want 2 (server reject + local validation)", result.Failed)
	}
	if len(result.Uploaded) != 1 || result.Uploaded[0] != "good.txt-id" {
		t.Errorf("uploaded = %v", result.Uploaded)
	}

	if errNotes := notesByLevel(notes, notify.LevelError); len(errNotes) != 2 {
		t.Errorf("error notes = %+v, want one per failed file", errNotes)
	}
	warnings := notesByLevel(notes, notify.LevelWarning)
	if len(warnings) != 1 || !strings.Contains(warnings[0].Message, "1 of 3") {
		t.Errorf("warning notes = %+v, want count-based batch summary", warnings)
	}
}

func TestUploadAllNothingUploaded(t *testing.T) {
	dir := t.TempDir()
	paths := []string{writeFile(t, dir, "notes.md", "# nope")}

	backend := &fakeBackend{}
	notes := notify.NewQueue(0)
	result := NewManager(backend, notes).UploadAll(ctx, paths)

	if result.Failed != 1 || len(result.Uploaded) != 0 {
		t.Errorf("result = %+v", result)
	}
	if len(backend.uploads) != 0 {
		t.Errorf("backend saw uploads %v for an invalid file", backend.uploads)
	}
	errNotes := notesByLevel(notes, notify.LevelError)
	if len(errNotes) != 2 {
		t.Fatalf("error notes = %+v, want per-file plus batch summary", errNotes)
	}
	if errNotes[1].Message != "No documents were uploaded." {
		t.Errorf("batch note = %q", errNotes[1].Message)
	}
}

func TestValidateFile(t *testing.T) {
	dir := t.TempDir()

	plain := writeFile(t, dir, "essay.txt", "just words")
	if err := ValidateFile(plain); err != nil {
		t.Errorf("plain text rejected: %v", err)
	}

	pdf := writeFile(t, dir, "paper.pdf", "%PDF-1.4 content")
	if err := ValidateFile(pdf); err != nil {
		t.Errorf("pdf rejected: %v", err)
	}

	md := writeFile(t, dir, "notes.md", "# heading")
	if err := ValidateFile(md); err == nil {
		t.Error("unsupported extension accepted")
	}

	disguised := writeFile(t, dir, "sneaky.txt", "%PDF-1.4 binary pretending")
	if err := ValidateFile(disguised); err == nil {
		t.Error("pdf content accepted under .txt extension")
	}

	mismatched := writeFile(t, dir, "fake.pdf", "\x89PNG\r\n\x1a\npixels")
	if err := ValidateFile(mismatched); err == nil {
		t.Error("png content accepted under .pdf extension")
	}

	// OOXML files are zip containers; the zip signature must pass for .docx.
	docx := writeFile(t, dir, "report.docx", "PK\x03\x04rest-of-zip")
	if err := ValidateFile(docx); err != nil {
		t.Errorf("docx rejected: %v", err)
	}
}

func TestDownloadUsesServerFilename(t *testing.T) {
	dir := t.TempDir()
	backend := &fakeBackend{downloadName: "thesis.pdf", downloadContent: "binary stuff"}
	mgr := NewManager(backend, notify.NewQueue(0))

	path, err := mgr.Download(ctx, "f1", dir)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if filepath.Base(path) != "thesis.pdf" {
		t.Errorf("path = %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "binary stuff" {
		t.Errorf("content = %q", data)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("dest dir holds %d entries, want the download only", len(entries))
	}
}

func TestDownloadCleansUpOnError(t *testing.T) {
	dir := t.TempDir()
	backend := &fakeBackend{downloadErr: errors.New("boom")}
	mgr := NewManager(backend, notify.NewQueue(0))

	if _, err := mgr.Download(ctx, "f1", dir); err == nil {
		t.Fatal("Download returned nil error")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("dest dir holds %d leftover entries", len(entries))
	}
}
