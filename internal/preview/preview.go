// Package preview extracts terminal-friendly plain text from downloaded
// artifacts: report PDFs and text documents.
package preview

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// DefaultLimit bounds preview size in bytes.
const DefaultLimit = 4 << 10

// Text returns up to limit bytes of plain text from the file at path. PDF
// files are detected by signature and have their text layer extracted;
// anything else is treated as text. limit <= 0 uses DefaultLimit.
func Text(path string, limit int) (string, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	isPDF, err := hasPDFSignature(path)
	if err != nil {
		return "", err
	}
	if isPDF {
		return pdfText(path, limit)
	}
	return fileText(path, limit)
}

// Bytes is Text for in-memory content, used when the document comes from
// the backend instead of disk. contentType is a hint; the PDF signature
// wins when the two disagree.
func Bytes(data []byte, contentType string, limit int) (string, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	if bytes.HasPrefix(data, []byte("%PDF-")) || strings.HasPrefix(contentType, "application/pdf") {
		r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return "", fmt.Errorf("opening pdf: %w", err)
		}
		reader, err := r.GetPlainText()
		if err != nil {
			return "", fmt.Errorf("extracting pdf text: %w", err)
		}
		out, err := io.ReadAll(io.LimitReader(reader, int64(limit)+1))
		if err != nil {
			return "", fmt.Errorf("reading pdf text: %w", err)
		}
		return clip(string(out), limit), nil
	}

	if bytes.ContainsRune(data, 0) {
		return "", fmt.Errorf("content is not text")
	}
	if len(data) > limit+1 {
		data = data[:limit+1]
	}
	return clip(string(data), limit), nil
}

func hasPDFSignature(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	head := make([]byte, 5)
	n, err := f.Read(head)
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("reading %s: %w", path, err)
	}
	return bytes.HasPrefix(head[:n], []byte("%PDF-")), nil
}

func pdfText(path string, limit int) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting pdf text: %w", err)
	}

	data, err := io.ReadAll(io.LimitReader(reader, int64(limit)+1))
	if err != nil {
		return "", fmt.Errorf("reading pdf text: %w", err)
	}
	return clip(string(data), limit), nil
}

func fileText(path string, limit int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, int64(limit)+1))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	if bytes.ContainsRune(data, 0) {
		return "", fmt.Errorf("%s is not a text file", path)
	}
	return clip(string(data), limit), nil
}

// clip trims s to at most limit bytes without splitting a rune, appending an
// ellipsis when truncated.
func clip(s string, limit int) string {
	s = strings.TrimSpace(s)
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return strings.TrimSpace(s[:cut]) + "..."
}
