// Package docs is the client-side document manager: listing, validated
// uploads, downloads, and deletion against the cloud document store behind
// the backend API.
package docs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/h2non/filetype"
	"golang.org/x/sync/errgroup"

	"github.com/plagiaguard/plagctl/internal/api"
	"github.com/plagiaguard/plagctl/internal/notify"
)

// uploadConcurrency bounds parallel uploads in a batch.
const uploadConcurrency = 3

// Backend is the slice of the API client the manager depends on.
type Backend interface {
	ListDocuments(ctx context.Context) ([]api.Document, error)
	UploadDocument(ctx context.Context, name string, r io.Reader, size int64, progress func(written, total int64)) (string, error)
	DownloadDocument(ctx context.Context, fileID string, w io.Writer, progress func(written, total int64)) (string, error)
	DocumentContent(ctx context.Context, fileID string) ([]byte, string, error)
	DeleteDocument(ctx context.Context, fileID string) error
}

// Manager coordinates document operations and reports outcomes through the
// notification queue.
type Manager struct {
	backend Backend
	notes   *notify.Queue
}

// NewManager creates a Manager. notes must not be nil.
func NewManager(backend Backend, notes *notify.Queue) *Manager {
	return &Manager{backend: backend, notes: notes}
}

// List fetches the caller's document library.
func (m *Manager) List(ctx context.Context) ([]api.Document, error) {
	return m.backend.ListDocuments(ctx)
}

// Delete removes one document from the cloud store.
func (m *Manager) Delete(ctx context.Context, fileID string) error {
	return m.backend.DeleteDocument(ctx, fileID)
}

// Content fetches the backend-rendered preview content of a document.
func (m *Manager) Content(ctx context.Context, fileID string) ([]byte, string, error) {
	return m.backend.DocumentContent(ctx, fileID)
}

// allowedExtensions mirrors the backend's upload allowlist.
var allowedExtensions = map[string]bool{
	".txt":  true,
	".pdf":  true,
	".docx": true,
	".pptx": true,
}

// ValidateFile rejects a file before any request is sent: the extension must
// be on the allowlist and, for binary formats, the content signature must
// match the claimed extension.
func ValidateFile(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if !allowedExtensions[ext] {
		return fmt.Errorf("unsupported file type %q (allowed: txt, pdf, docx, pptx)", ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	head := make([]byte, 262)
	n, err := f.Read(head)
	if err != nil && err != io.EOF {
		return fmt.Errorf("reading file: %w", err)
	}

	kind, _ := filetype.Match(head[:n])
	switch ext {
	case ".txt":
		// Plain text has no signature; reject only when the content is a
		// recognized binary format.
		if kind != filetype.Unknown {
			return fmt.Errorf("%s claims to be text but contains %s data", filepath.Base(path), kind.Extension)
		}
	default:
		if kind != filetype.Unknown && "."+kind.Extension != ext && !officeZip(ext, kind.Extension) {
			return fmt.Errorf("%s content (%s) does not match its extension", filepath.Base(path), kind.Extension)
		}
	}
	return nil
}

// officeZip accepts the zip container signature for OOXML formats; signature
// detectors that stop at the container report them as "zip".
func officeZip(ext, detected string) bool {
	return (ext == ".docx" || ext == ".pptx") && detected == "zip"
}

// BatchResult summarizes a multi-file upload.
type BatchResult struct {
	Uploaded []string // file ids of successful uploads, in input order
	Failed   int
}

// UploadAll uploads the given files with bounded concurrency, accumulating
// successes rather than aborting the batch on the first failure. Per-file
// failures surface as error notes; the batch outcome is reported as a single
// count-based note.
func (m *Manager) UploadAll(ctx context.Context, paths []string) BatchResult {
	type uploaded struct {
		idx int
		id  string
	}

	var (
		mu     sync.Mutex
		oks    []uploaded
		failed int
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(uploadConcurrency)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			id, err := m.uploadOne(gCtx, path)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				m.notes.Error("Upload failed for %s: %v", filepath.Base(path), err)
				// Keep the batch going; partial success is reported at the end.
				return nil
			}
			oks = append(oks, uploaded{idx: i, id: id})
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(oks, func(a, b int) bool { return oks[a].idx < oks[b].idx })
	ids := make([]string, len(oks))
	for i, u := range oks {
		ids[i] = u.id
	}

	switch {
	case len(ids) > 0 && failed > 0:
		m.notes.Warning("Uploaded %d of %d documents.", len(ids), len(paths))
	case len(ids) > 0:
		m.notes.Success("Uploaded %d document(s).", len(ids))
	case len(paths) > 0:
		m.notes.Error("No documents were uploaded.")
	}

	return BatchResult{Uploaded: ids, Failed: failed}
}

func (m *Manager) uploadOne(ctx context.Context, path string) (string, error) {
	if err := ValidateFile(path); err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("inspecting file: %w", err)
	}

	name := filepath.Base(path)
	return m.backend.UploadDocument(ctx, name, f, info.Size(), m.notes.Progress("Uploading "+name))
}

// Download writes the document's binary content into destDir, using the
// server-provided filename, and returns the resulting path.
func (m *Manager) Download(ctx context.Context, fileID, destDir string) (string, error) {
	tmp, err := os.CreateTemp(destDir, ".plagctl-download-*")
	if err != nil {
		return "", fmt.Errorf("creating download file: %w", err)
	}
	tmpPath := tmp.Name()

	name, err := m.backend.DownloadDocument(ctx, fileID, tmp, m.notes.Progress("Downloading document"))
	closeErr := tmp.Close()
	if err != nil {
		os.Remove(tmpPath)
		return "", err
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("writing download: %w", closeErr)
	}

	dest := filepath.Join(destDir, filepath.Base(name))
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("moving download into place: %w", err)
	}
	return dest, nil
}
