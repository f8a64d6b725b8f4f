// Package mcp exposes plagiarism checks to MCP-speaking agents, backed by
// the same API client the CLI uses.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/plagiaguard/plagctl/internal/api"
	"github.com/plagiaguard/plagctl/internal/report"
)

// Backend abstracts the PlagiaGuard API for the MCP layer.
type Backend interface {
	ListReports(ctx context.Context, page, perPage int) (api.ReportPage, error)
	GetReport(ctx context.Context, id string) (report.Report, error)
	Compare(ctx context.Context, doc1ID, doc2ID string, method report.Method) (api.CheckStarted, error)
	Check(ctx context.Context, docID string, sources []string, sensitivity string, method report.Method) (api.CheckStarted, error)
	GetCheckStatus(ctx context.Context, id string) (api.CheckStatus, error)
	ListSources(ctx context.Context) ([]api.Source, error)
	ListDocuments(ctx context.Context) ([]api.Document, error)
}

// Deps holds dependencies for the MCP server.
type Deps struct {
	Backend Backend
	Version string
}

// NewServer creates an MCP server with all plagctl tools and resources registered.
func NewServer(deps Deps) *server.MCPServer {
	version := deps.Version
	if version == "" {
		version = "dev"
	}

	s := server.NewMCPServer(
		"plagctl",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("plagctl: start plagiarism comparisons and originality checks against a PlagiaGuard backend and inspect the resulting reports."),
		server.WithRecovery(),
	)

	// Tools
	s.AddTool(
		mcp.NewTool("list_reports",
			mcp.WithDescription("List plagiarism reports, newest first."),
			mcp.WithNumber("page", mcp.Description("Page number (default 1)")),
			mcp.WithNumber("per_page", mcp.Description("Reports per page (default 10, max 50)")),
		),
		mcpListReports(deps),
	)

	s.AddTool(
		mcp.NewTool("get_report",
			mcp.WithDescription("Fetch a single report with its matches and scores."),
			mcp.WithString("report_id", mcp.Description("Report identifier"), mcp.Required()),
		),
		mcpGetReport(deps),
	)

	s.AddTool(
		mcp.NewTool("compare_documents",
			mcp.WithDescription("Start a similarity comparison between two uploaded documents."),
			mcp.WithString("doc1_id", mcp.Description("First document id"), mcp.Required()),
			mcp.WithString("doc2_id", mcp.Description("Second document id"), mcp.Required()),
			mcp.WithString("method", mcp.Description("Detection method: tfidf or embeddings (default tfidf)")),
		),
		mcpCompare(deps),
	)

	s.AddTool(
		mcp.NewTool("check_document",
			mcp.WithDescription("Start an originality check of one document against external sources."),
			mcp.WithString("document_id", mcp.Description("Document id to check"), mcp.Required()),
			mcp.WithArray("sources", mcp.Description("Source ids to check against (default: all enabled)")),
			mcp.WithString("sensitivity", mcp.Description("Match sensitivity: low, medium, or high")),
			mcp.WithString("method", mcp.Description("Detection method: tfidf or embeddings (default tfidf)")),
		),
		mcpCheck(deps),
	)

	s.AddTool(
		mcp.NewTool("check_status",
			mcp.WithDescription("Report progress of a running originality check."),
			mcp.WithString("report_id", mcp.Description("Report identifier returned by check_document"), mcp.Required()),
		),
		mcpCheckStatus(deps),
	)

	// Resources
	s.AddResource(
		mcp.NewResource(
			"plagiaguard://sources",
			"Plagiarism Sources",
			mcp.WithResourceDescription("Available external sources for originality checks"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceSources(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"plagiaguard://documents",
			"Uploaded Documents",
			mcp.WithResourceDescription("Documents uploaded to the backend, available for comparison"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceDocuments(deps),
	)

	return s
}

func mcpListReports(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		page := req.GetInt("page", 1)
		perPage := req.GetInt("per_page", 10)
		if perPage > 50 {
			perPage = 50
		}

		listing, err := deps.Backend.ListReports(ctx, page, perPage)
		if err != nil {
			return mcpError(fmt.Sprintf("listing reports failed: %v", err)), nil
		}

		type reportSummary struct {
			ID        string   `json:"id"`
			Name      string   `json:"name"`
			Type      string   `json:"type"`
			Method    string   `json:"method"`
			Status    string   `json:"status"`
			Score     *float64 `json:"similarity_score,omitempty"`
			CreatedAt string   `json:"created_at"`
		}
		type listResult struct {
			Reports []reportSummary `json:"reports"`
			Page    int             `json:"page"`
			Pages   int             `json:"pages"`
			Total   int             `json:"total"`
		}

		out := listResult{
			Reports: make([]reportSummary, len(listing.Reports)),
			Page:    listing.Page,
			Pages:   listing.Pages,
			Total:   listing.Total,
		}
		for i, r := range listing.Reports {
			summary := reportSummary{
				ID:        r.ID,
				Name:      r.DisplayName(),
				Type:      string(r.Type),
				Method:    string(r.Method),
				Status:    string(r.Status),
				CreatedAt: r.CreatedAt.Format(time.RFC3339),
			}
			if v, ok := r.Score(); ok {
				summary.Score = &v
			}
			out.Reports[i] = summary
		}

		b, err := json.Marshal(out)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal reports: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpGetReport(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("report_id")
		if err != nil {
			return mcpError("report_id is required"), nil
		}

		r, err := deps.Backend.GetReport(ctx, id)
		if err != nil {
			return mcpError(fmt.Sprintf("fetching report failed: %v", err)), nil
		}

		b, err := json.Marshal(r)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal report: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpCompare(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		doc1, err := req.RequireString("doc1_id")
		if err != nil {
			return mcpError("doc1_id is required"), nil
		}
		doc2, err := req.RequireString("doc2_id")
		if err != nil {
			return mcpError("doc2_id is required"), nil
		}

		method, errResult := parseMethod(req.GetString("method", ""))
		if errResult != nil {
			return errResult, nil
		}

		started, err := deps.Backend.Compare(ctx, doc1, doc2, method)
		if err != nil {
			return mcpError(fmt.Sprintf("comparison failed: %v", err)), nil
		}

		return mcpText(fmt.Sprintf("Started comparison report %s (status %s, method %s)", started.ReportID, started.Status, started.Method)), nil
	}
}

func mcpCheck(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		docID, err := req.RequireString("document_id")
		if err != nil {
			return mcpError("document_id is required"), nil
		}

		sources := req.GetStringSlice("sources", nil)
		sensitivity := req.GetString("sensitivity", "")
		method, errResult := parseMethod(req.GetString("method", ""))
		if errResult != nil {
			return errResult, nil
		}

		started, err := deps.Backend.Check(ctx, docID, sources, sensitivity, method)
		if err != nil {
			return mcpError(fmt.Sprintf("check failed: %v", err)), nil
		}

		return mcpText(fmt.Sprintf("Started originality check %s (status %s). Poll check_status for progress.", started.ReportID, started.Status)), nil
	}
}

func mcpCheckStatus(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("report_id")
		if err != nil {
			return mcpError("report_id is required"), nil
		}

		status, err := deps.Backend.GetCheckStatus(ctx, id)
		if err != nil {
			return mcpError(fmt.Sprintf("status lookup failed: %v", err)), nil
		}

		b, err := json.Marshal(status)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal status: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func parseMethod(raw string) (report.Method, *mcp.CallToolResult) {
	if raw == "" {
		return report.MethodTFIDF, nil
	}
	m := report.Method(raw)
	if m != report.MethodTFIDF && m != report.MethodEmbeddings {
		return "", mcpError(fmt.Sprintf("unknown method %q: use tfidf or embeddings", raw))
	}
	return m, nil
}

func mcpResourceSources(deps Deps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		sources, err := deps.Backend.ListSources(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list sources: %w", err)
		}

		b, err := json.Marshal(sources)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal sources: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpResourceDocuments(deps Deps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		docs, err := deps.Backend.ListDocuments(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list documents: %w", err)
		}

		b, err := json.Marshal(docs)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal documents: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
