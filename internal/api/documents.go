package api

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
)

// Document is a stored document reference in the cloud document store,
// addressed by an opaque file id.
type Document struct {
	ID       string `json:"file_id"`
	Name     string `json:"file_name"`
	FileType string `json:"file_type"`
}

// ListDocuments fetches the caller's document library.
func (c *Client) ListDocuments(ctx context.Context) ([]Document, error) {
	if err := c.requireAuth(); err != nil {
		return nil, err
	}

	resp, err := c.get(ctx, "/document/list")
	if err != nil {
		return nil, err
	}

	var docs []Document
	if err := decodeJSON(resp, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// UploadDocument streams one file as multipart form data and returns the
// opaque file id assigned by the cloud store. size is the total byte count
// for progress reporting; pass -1 if unknown.
func (c *Client) UploadDocument(ctx context.Context, name string, r io.Reader, size int64, progress func(written, total int64)) (string, error) {
	if name == "" {
		return "", ValidationError("file name is required")
	}
	if err := c.requireAuth(); err != nil {
		return "", err
	}

	// Stream the multipart body through a pipe so large files never sit in
	// memory whole.
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", name)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		src := io.Reader(r)
		if progress != nil {
			src = &progressReader{r: r, total: size, progress: progress}
		}
		if _, err := io.Copy(part, src); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/document/upload", pr)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("backend not reachable: %w", err)
	}

	var result struct {
		FileID string `json:"file_id"`
	}
	if err := decodeJSON(resp, &result); err != nil {
		return "", err
	}
	return result.FileID, nil
}

// DownloadDocument streams the document's binary content into w. The returned
// filename comes from Content-Disposition, falling back to the file id.
func (c *Client) DownloadDocument(ctx context.Context, fileID string, w io.Writer, progress func(written, total int64)) (string, error) {
	if fileID == "" {
		return "", ValidationError("file id is required")
	}
	if err := c.requireAuth(); err != nil {
		return "", err
	}

	resp, err := c.get(ctx, "/document/"+url.PathEscape(fileID)+"/download")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", asAPIError(resp)
	}

	name := dispositionFilename(resp.Header.Get("Content-Disposition"))
	if name == "" {
		name = fileID
	}

	if err := copyWithProgress(w, resp.Body, resp.ContentLength, progress); err != nil {
		return "", fmt.Errorf("downloading document: %w", err)
	}
	return name, nil
}

// DocumentContent fetches the text preview the backend renders for a
// document.
func (c *Client) DocumentContent(ctx context.Context, fileID string) ([]byte, string, error) {
	if fileID == "" {
		return nil, "", ValidationError("file id is required")
	}
	if err := c.requireAuth(); err != nil {
		return nil, "", err
	}

	resp, err := c.get(ctx, "/document/"+url.PathEscape(fileID)+"/content")
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, "", asAPIError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("reading document content: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// DeleteDocument removes a document from the cloud store.
func (c *Client) DeleteDocument(ctx context.Context, fileID string) error {
	if fileID == "" {
		return ValidationError("file id is required")
	}
	if err := c.requireAuth(); err != nil {
		return err
	}

	resp, err := c.delete(ctx, "/document/"+url.PathEscape(fileID))
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil)
}

// progressReader reports cumulative bytes read from the wrapped reader.
type progressReader struct {
	r        io.Reader
	total    int64
	written  int64
	progress func(written, total int64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.written += int64(n)
		p.progress(p.written, p.total)
	}
	return n, err
}
