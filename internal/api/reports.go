package api

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/url"

	"github.com/plagiaguard/plagctl/internal/report"
)

// ReportPage is one page of the report listing plus the server-reported
// pagination totals.
type ReportPage struct {
	Reports []report.Report `json:"reports"`
	Page    int             `json:"page"`
	PerPage int             `json:"per_page"`
	Total   int             `json:"total"`
	Pages   int             `json:"pages"`
}

// CheckStarted acknowledges an accepted asynchronous analysis job.
type CheckStarted struct {
	ReportID string   `json:"report_id"`
	Status   string   `json:"status"`
	Method   string   `json:"method,omitempty"`
	Sources  []string `json:"sources,omitempty"`
}

// CheckStatus is a progress snapshot of an in-flight check.
type CheckStatus struct {
	Status         report.Status `json:"status"`
	Progress       *float64      `json:"progress"`
	CreatedAt      string        `json:"created_at"`
	PartialResults *struct {
		SourcesChecked  []string `json:"sources_checked"`
		SimilarityScore *float64 `json:"similarity_score"`
	} `json:"partial_results"`
}

// Source is a corpus category a general check can run against.
type Source struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
}

// ListReports fetches one page of the caller's reports.
func (c *Client) ListReports(ctx context.Context, page, perPage int) (ReportPage, error) {
	if err := c.requireAuth(); err != nil {
		return ReportPage{}, err
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}

	resp, err := c.get(ctx, fmt.Sprintf("/report/list?page=%d&per_page=%d", page, perPage))
	if err != nil {
		return ReportPage{}, err
	}

	var result ReportPage
	if err := decodeJSON(resp, &result); err != nil {
		return ReportPage{}, err
	}
	return result, nil
}

// GetReport fetches one report with full detail (matches or per-source
// results).
func (c *Client) GetReport(ctx context.Context, id string) (report.Report, error) {
	if err := validReportID(id); err != nil {
		return report.Report{}, err
	}
	if err := c.requireAuth(); err != nil {
		return report.Report{}, err
	}

	resp, err := c.get(ctx, "/report/"+url.PathEscape(id))
	if err != nil {
		return report.Report{}, err
	}

	var r report.Report
	if err := decodeJSON(resp, &r); err != nil {
		return report.Report{}, err
	}
	return r, nil
}

// DeleteReport removes a report server-side.
func (c *Client) DeleteReport(ctx context.Context, id string) error {
	if err := validReportID(id); err != nil {
		return err
	}
	if err := c.requireAuth(); err != nil {
		return err
	}

	resp, err := c.delete(ctx, "/report/"+url.PathEscape(id))
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil)
}

// Compare starts an asynchronous pairwise comparison. Both ids must be
// present and distinct; violations are caught before any request is sent.
func (c *Client) Compare(ctx context.Context, doc1ID, doc2ID string, method report.Method) (CheckStarted, error) {
	if doc1ID == "" || doc2ID == "" {
		return CheckStarted{}, ValidationError("two document ids are required")
	}
	if doc1ID == doc2ID {
		return CheckStarted{}, ValidationError("cannot compare a document with itself")
	}
	if err := c.requireAuth(); err != nil {
		return CheckStarted{}, err
	}

	resp, err := c.post(ctx, "/report/compare", map[string]any{
		"doc1_id": doc1ID,
		"doc2_id": doc2ID,
		"method":  string(method),
	})
	if err != nil {
		return CheckStarted{}, err
	}

	var result CheckStarted
	if err := decodeJSON(resp, &result); err != nil {
		return CheckStarted{}, err
	}
	return result, nil
}

// Check starts an asynchronous general plagiarism check of one document
// against the given corpus sources.
func (c *Client) Check(ctx context.Context, docID string, sources []string, sensitivity string, method report.Method) (CheckStarted, error) {
	if docID == "" {
		return CheckStarted{}, ValidationError("document id is required")
	}
	if err := c.requireAuth(); err != nil {
		return CheckStarted{}, err
	}

	body := map[string]any{
		"document_id": docID,
		"method":      string(method),
	}
	if len(sources) > 0 {
		body["sources"] = sources
	}
	if sensitivity != "" {
		body["sensitivity"] = sensitivity
	}

	resp, err := c.post(ctx, "/report/check", body)
	if err != nil {
		return CheckStarted{}, err
	}

	var result CheckStarted
	if err := decodeJSON(resp, &result); err != nil {
		return CheckStarted{}, err
	}
	return result, nil
}

// GetCheckStatus polls the status of an in-flight check.
func (c *Client) GetCheckStatus(ctx context.Context, id string) (CheckStatus, error) {
	if err := validReportID(id); err != nil {
		return CheckStatus{}, err
	}
	if err := c.requireAuth(); err != nil {
		return CheckStatus{}, err
	}

	resp, err := c.get(ctx, "/report/check/status/"+url.PathEscape(id))
	if err != nil {
		return CheckStatus{}, err
	}

	var result CheckStatus
	if err := decodeJSON(resp, &result); err != nil {
		return CheckStatus{}, err
	}
	return result, nil
}

// ListSources fetches the corpus sources available to the caller.
func (c *Client) ListSources(ctx context.Context) ([]Source, error) {
	if err := c.requireAuth(); err != nil {
		return nil, err
	}

	resp, err := c.get(ctx, "/report/sources")
	if err != nil {
		return nil, err
	}

	var result struct {
		Sources []Source `json:"sources"`
	}
	if err := decodeJSON(resp, &result); err != nil {
		return nil, err
	}
	return result.Sources, nil
}

// DownloadReport streams the rendered report artifact into w and returns the
// filename from Content-Disposition, or a synthesized one when the header is
// absent. progress, when non-nil, receives (written, total) updates; total is
// -1 if the server did not send a length.
func (c *Client) DownloadReport(ctx context.Context, id string, w io.Writer, progress func(written, total int64)) (string, error) {
	if err := validReportID(id); err != nil {
		return "", err
	}
	if err := c.requireAuth(); err != nil {
		return "", err
	}

	resp, err := c.get(ctx, "/report/"+url.PathEscape(id)+"/download")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", asAPIError(resp)
	}

	name := dispositionFilename(resp.Header.Get("Content-Disposition"))
	if name == "" {
		name = fmt.Sprintf("plagiarism-report-%s.pdf", id)
	}

	if err := copyWithProgress(w, resp.Body, resp.ContentLength, progress); err != nil {
		return "", fmt.Errorf("downloading report: %w", err)
	}
	return name, nil
}

// validReportID rejects the empty string and the literal "undefined" the
// original web client was known to leak into URLs.
func validReportID(id string) error {
	if id == "" || id == "undefined" {
		return ValidationError("invalid report id")
	}
	return nil
}

func dispositionFilename(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return params["filename"]
}

// copyWithProgress copies src to dst, invoking progress after every chunk.
func copyWithProgress(dst io.Writer, src io.Reader, total int64, progress func(written, total int64)) error {
	if progress == nil {
		_, err := io.Copy(dst, src)
		return err
	}

	buf := make([]byte, 32*1024)
	var written int64
	for {
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return werr
			}
			written += int64(n)
			progress(written, total)
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
