package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/plagiaguard/plagctl/internal/api"
	"github.com/plagiaguard/plagctl/internal/report"
)

// --- mocks ---

type mockBackend struct {
	page        api.ReportPage
	report      report.Report
	started     api.CheckStarted
	status      api.CheckStatus
	sources     []api.Source
	documents   []api.Document
	err         error
	lastCompare [2]string
	lastMethod  report.Method
}

func (m *mockBackend) ListReports(_ context.Context, page, perPage int) (api.ReportPage, error) {
	return m.page, m.err
}

func (m *mockBackend) GetReport(_ context.Context, id string) (report.Report, error) {
	return m.report, m.err
}

func (m *mockBackend) Compare(_ context.Context, doc1ID, doc2ID string, method report.Method) (api.CheckStarted, error) {
	m.lastCompare = [2]string{doc1ID, doc2ID}
	m.lastMethod = method
	return m.started, m.err
}

func (m *mockBackend) Check(_ context.Context, docID string, sources []string, sensitivity string, method report.Method) (api.CheckStarted, error) {
	m.lastMethod = method
	return m.started, m.err
}

func (m *mockBackend) GetCheckStatus(_ context.Context, id string) (api.CheckStatus, error) {
	return m.status, m.err
}

func (m *mockBackend) ListSources(_ context.Context) ([]api.Source, error) {
	return m.sources, m.err
}

func (m *mockBackend) ListDocuments(_ context.Context) ([]api.Document, error) {
	return m.documents, m.err
}

// --- helpers ---

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func makeReadResourceRequest(uri string) mcp.ReadResourceRequest {
	return mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func completedReport(id string, score float64) report.Report {
	r := report.Report{
		ID:        id,
		Name:      "thesis vs essay",
		CreatedAt: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		Type:      report.TypeComparison,
		Method:    report.MethodTFIDF,
		Status:    report.StatusCompleted,
		Comparison: &report.Comparison{
			Document1: report.DocumentRef{ID: "d1", Name: "thesis.pdf"},
			Document2: report.DocumentRef{ID: "d2", Name: "essay.txt"},
		},
	}
	r.SetScore(score)
	return r
}

// --- tests ---

func TestMCPTool_ListReports(t *testing.T) {
	backend := &mockBackend{
		page: api.ReportPage{
			Reports: []report.Report{completedReport("r1", 42.5)},
			Page:    1, PerPage: 10, Total: 1, Pages: 1,
		},
	}
	handler := mcpListReports(Deps{Backend: backend})

	result, err := handler(context.Background(), makeCallToolRequest("list_reports", map[string]interface{}{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}

	var out struct {
		Reports []struct {
			ID     string   `json:"id"`
			Status string   `json:"status"`
			Score  *float64 `json:"similarity_score"`
		} `json:"reports"`
		Total int `json:"total"`
	}
	if err := json.Unmarshal([]byte(toolText(t, result)), &out); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if len(out.Reports) != 1 || out.Reports[0].ID != "r1" {
		t.Fatalf("unexpected reports: %+v", out.Reports)
	}
	if out.Reports[0].Score == nil || *out.Reports[0].Score != 42.5 {
		t.Errorf("score not surfaced: %+v", out.Reports[0])
	}
}

func TestMCPTool_ListReports_BackendError(t *testing.T) {
	backend := &mockBackend{err: errors.New("boom")}
	handler := mcpListReports(Deps{Backend: backend})

	result, err := handler(context.Background(), makeCallToolRequest("list_reports", map[string]interface{}{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error result")
	}
}

func TestMCPTool_Compare(t *testing.T) {
	backend := &mockBackend{
		started: api.CheckStarted{ReportID: "r9", Status: "pending", Method: "embeddings"},
	}
	handler := mcpCompare(Deps{Backend: backend})

	req := makeCallToolRequest("compare_documents", map[string]interface{}{
		"doc1_id": "d1",
		"doc2_id": "d2",
		"method":  "embeddings",
	})
	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}
	if backend.lastCompare != [2]string{"d1", "d2"} {
		t.Errorf("backend called with %v", backend.lastCompare)
	}
	if backend.lastMethod != report.MethodEmbeddings {
		t.Errorf("method = %q, want embeddings", backend.lastMethod)
	}
	if !strings.Contains(toolText(t, result), "r9") {
		t.Errorf("report id missing from response: %s", toolText(t, result))
	}
}

func TestMCPTool_Compare_MissingArgs(t *testing.T) {
	handler := mcpCompare(Deps{Backend: &mockBackend{}})

	result, err := handler(context.Background(), makeCallToolRequest("compare_documents", map[string]interface{}{
		"doc1_id": "d1",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error for missing doc2_id")
	}
}

func TestMCPTool_Compare_UnknownMethod(t *testing.T) {
	handler := mcpCompare(Deps{Backend: &mockBackend{}})

	result, err := handler(context.Background(), makeCallToolRequest("compare_documents", map[string]interface{}{
		"doc1_id": "d1",
		"doc2_id": "d2",
		"method":  "quantum",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error for unknown method")
	}
}

func TestMCPTool_CheckStatus(t *testing.T) {
	progress := 40.0
	backend := &mockBackend{
		status: api.CheckStatus{Status: report.StatusProcessing, Progress: &progress},
	}
	handler := mcpCheckStatus(Deps{Backend: backend})

	result, err := handler(context.Background(), makeCallToolRequest("check_status", map[string]interface{}{
		"report_id": "r1",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}

	var status api.CheckStatus
	if err := json.Unmarshal([]byte(toolText(t, result)), &status); err != nil {
		t.Fatalf("decoding status: %v", err)
	}
	if status.Status != report.StatusProcessing || status.Progress == nil || *status.Progress != 40 {
		t.Errorf("unexpected status: %+v", status)
	}
}

func TestMCPResource_Sources(t *testing.T) {
	backend := &mockBackend{
		sources: []api.Source{{ID: "wiki", Name: "Wikipedia", Enabled: true}},
	}
	handler := mcpResourceSources(Deps{Backend: backend})

	contents, err := handler(context.Background(), makeReadResourceRequest("plagiaguard://sources"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("expected 1 resource content, got %d", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}
	var sources []api.Source
	if err := json.Unmarshal([]byte(tc.Text), &sources); err != nil {
		t.Fatalf("decoding sources: %v", err)
	}
	if len(sources) != 1 || sources[0].ID != "wiki" {
		t.Errorf("unexpected sources: %+v", sources)
	}
}

func TestNewServerRegistersTools(t *testing.T) {
	s := NewServer(Deps{Backend: &mockBackend{}, Version: "test"})
	if s == nil {
		t.Fatal("NewServer returned nil")
	}
}
