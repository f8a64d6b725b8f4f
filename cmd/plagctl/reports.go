package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/plagiaguard/plagctl/internal/cache"
	"github.com/plagiaguard/plagctl/internal/config"
	"github.com/plagiaguard/plagctl/internal/notify"
	"github.com/plagiaguard/plagctl/internal/pagination"
	"github.com/plagiaguard/plagctl/internal/report"
	"github.com/plagiaguard/plagctl/internal/reportstore"
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Browse and manage plagiarism reports",
}

var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List reports",
	Long: `List reports, one page at a time.

Filtering and sorting are applied locally to the fetched page:

  plagctl reports list --type general --sort similarity
  plagctl reports list --search thesis --order asc
  plagctl reports list --cached   # offline, from the local cache`,
	RunE: func(cmd *cobra.Command, args []string) error {
		page, _ := cmd.Flags().GetInt("page")
		perPage, _ := cmd.Flags().GetInt("per-page")
		cached, _ := cmd.Flags().GetBool("cached")
		asJSON, _ := cmd.Flags().GetBool("json")

		filter := filterFromFlags(cmd)

		if cached {
			return listCachedReports(filter, asJSON)
		}

		if perPage <= 0 {
			if cfg, err := config.Load(); err == nil {
				perPage = cfg.Reports.PerPage
			}
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		var failure string
		store := reportstore.New(client, perPage, reportstore.WithOutcomes(func(o reportstore.Outcome) {
			if !o.OK {
				failure = o.Message
			}
		}))

		ctx := cmd.Context()
		if page > 1 {
			// Position the cursor before the first fetch so one request
			// lands on the requested page.
			if err := store.Fetch(ctx); err != nil {
				return listError(failure, err)
			}
			store.ChangePage(ctx, page)
		} else if err := store.Fetch(ctx); err != nil {
			return listError(failure, err)
		}

		if !client.Authenticated() {
			printWarning("Not logged in. Run 'plagctl login' first.")
			return nil
		}
		if failure != "" {
			return fmt.Errorf("%s", failure)
		}

		view := store.View(filter)
		cachePage(store)

		if asJSON {
			return printJSON(view)
		}

		pg := store.Page()
		renderReportList(view, pg)
		return nil
	},
}

func filterFromFlags(cmd *cobra.Command) reportstore.Filter {
	f := reportstore.DefaultFilter()
	if v, _ := cmd.Flags().GetString("type"); v != "" {
		f.Type = v
	}
	if v, _ := cmd.Flags().GetString("method"); v != "" {
		f.Method = v
	}
	f.Search, _ = cmd.Flags().GetString("search")
	if v, _ := cmd.Flags().GetString("sort"); v != "" {
		f.SortKey = reportstore.SortKey(v)
	}
	if v, _ := cmd.Flags().GetString("order"); v != "" {
		f.SortDir = reportstore.SortDir(v)
	}
	return f
}

func listError(failure string, err error) error {
	if failure != "" {
		return fmt.Errorf("%s", failure)
	}
	return err
}

// cachePage mirrors the fetched page into the local SQLite cache so
// 'reports list --cached' and 'plagctl serve' keep working offline.
// Cache trouble never fails the command.
func cachePage(store *reportstore.Store) {
	cfg, err := config.Load()
	if err != nil {
		return
	}
	c, err := cache.Open(cfg.Storage.DataDir)
	if err != nil {
		printWarning("report cache unavailable: %v", err)
		return
	}
	defer c.Close()

	pg := store.Page()
	if err := c.ReplacePage(pg.Page, pg.PerPage, pg.Total, pg.Pages, store.Reports()); err != nil {
		printWarning("could not update report cache: %v", err)
	}
}

func listCachedReports(filter reportstore.Filter, asJSON bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	c, err := cache.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening report cache: %w", err)
	}
	defer c.Close()

	reports, err := c.ListCached(200)
	if err != nil {
		return fmt.Errorf("reading report cache: %w", err)
	}

	view := filter.Apply(reports)
	if asJSON {
		return printJSON(view)
	}

	if meta, err := c.Meta(); err == nil {
		printStatus("Cached", "page %d of %d, fetched %s", meta.Page, meta.Pages, meta.FetchedAt.Local().Format("2006-01-02 15:04"))
	}
	renderReportList(view, reportstore.PageState{Page: 1, Pages: 1, Total: len(view)})
	return nil
}

func renderReportList(reports []report.Report, pg reportstore.PageState) {
	if len(reports) == 0 {
		fmt.Println("No reports found.")
		return
	}

	for _, r := range reports {
		score := "-"
		if v, ok := r.Score(); ok {
			score = fmt.Sprintf("%.1f%%", v)
		}
		fmt.Printf("%s  %-10s  %-10s  %6s  %s  %s\n",
			colorize(colorCyan, shortID(r.ID)),
			r.Type,
			r.Method,
			score,
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			r.DisplayName(),
		)
	}

	if line := renderPageLine(pg.Page, pg.Pages); line != "" {
		fmt.Printf("\n%s  (%d reports total)\n", line, pg.Total)
	}
}

// renderPageLine formats the pagination window, e.g. "1 … 4 [5] 6 … 20".
// A single page renders nothing.
func renderPageLine(page, pages int) string {
	items := pagination.Window(page, pages)
	if items == nil {
		return ""
	}
	parts := make([]string, len(items))
	for i, it := range items {
		switch {
		case it.Ellipsis:
			parts[i] = "…"
		case it.Page == page:
			parts[i] = colorize(colorBold, fmt.Sprintf("[%d]", it.Page))
		default:
			parts[i] = fmt.Sprintf("%d", it.Page)
		}
	}
	return strings.Join(parts, " ")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var reportsShowCmd = &cobra.Command{
	Use:   "show <report-id>",
	Short: "Show a single report with its matches",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		r, err := client.GetReport(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if asJSON {
			return printJSON(r)
		}

		renderReport(r)
		return nil
	},
}

func renderReport(r report.Report) {
	fmt.Printf("%s\n", colorize(colorBold, r.DisplayName()))
	printStatus("ID", "%s", r.ID)
	printStatus("Type", "%s", r.Type)
	printStatus("Method", "%s", r.Method)
	printStatus("Status", "%s", r.Status)
	printStatus("Created", "%s", r.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	if v, ok := r.Score(); ok {
		printStatus("Similarity", "%.1f%%", v)
	} else {
		printStatus("Similarity", "not available (status %s)", r.Status)
	}

	switch {
	case r.Comparison != nil:
		printStatus("Documents", "%s vs %s", r.Comparison.Document1.Name, r.Comparison.Document2.Name)
		if len(r.Comparison.Matches) > 0 {
			fmt.Printf("\n%s\n", colorize(colorBold, fmt.Sprintf("Matched passages (%d)", len(r.Comparison.Matches))))
			for i, m := range r.Comparison.Matches {
				fmt.Printf("\n%d. similarity %.1f%%\n", i+1, m.Similarity*100)
				fmt.Printf("   %s %s\n", colorize(colorCyan, "1:"), clipLine(m.Text1))
				fmt.Printf("   %s %s\n", colorize(colorCyan, "2:"), clipLine(m.Text2))
			}
		}
	case r.General != nil:
		printStatus("Document", "%s", r.General.Document.Name)
		if len(r.General.SourcesChecked) > 0 {
			printStatus("Sources", "%s", strings.Join(r.General.SourcesChecked, ", "))
		}
		if p := r.General.Progress; p != nil && !r.Status.Terminal() {
			printStatus("Progress", "%.0f%%", *p)
		}
		for _, sr := range r.General.Results {
			fmt.Printf("  %-24s %.1f%%  (%d matches)\n", sr.Source, sr.Similarity*100, len(sr.Matches))
		}
	}
}

func clipLine(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > 120 {
		return s[:120] + "..."
	}
	return s
}

var reportsDeleteCmd = &cobra.Command{
	Use:   "delete <report-id>",
	Short: "Delete a report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		var failure string
		store := reportstore.New(client, 0, reportstore.WithOutcomes(func(o reportstore.Outcome) {
			if !o.OK {
				failure = o.Message
			}
		}))

		if !store.Remove(cmd.Context(), args[0]) {
			if !client.Authenticated() {
				printWarning("Not logged in. Run 'plagctl login' first.")
				return nil
			}
			return fmt.Errorf("%s", failure)
		}

		// Mirror the removal locally.
		if cfg, err := config.Load(); err == nil {
			if c, err := cache.Open(cfg.Storage.DataDir); err == nil {
				_ = c.DeleteReport(args[0])
				c.Close()
			}
		}

		printSuccess("Report deleted.")
		return nil
	},
}

var reportsDownloadCmd = &cobra.Command{
	Use:   "download <report-id>",
	Short: "Download a report as PDF",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		destDir, _ := cmd.Flags().GetString("output")

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if destDir == "" {
			destDir = cfg.Downloads.Dir
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		notes := newNotesPrinter()
		path, size, err := downloadReportFile(cmd.Context(), client, args[0], destDir, notes)
		if err != nil {
			return err
		}

		// Best effort ledger entry for 'reports downloads'.
		if c, err := cache.Open(cfg.Storage.DataDir); err == nil {
			_ = c.RecordDownload(cache.Download{
				ID:        uuid.New().String(),
				ReportID:  args[0],
				Filename:  filepath.Base(path),
				Path:      path,
				SizeBytes: size,
			})
			c.Close()
		}

		printSuccess("Saved %s", path)
		return nil
	},
}

// reportDownloader is the slice of the API client the download path needs;
// tests substitute a stub.
type reportDownloader interface {
	DownloadReport(ctx context.Context, id string, w io.Writer, progress func(written, total int64)) (string, error)
}

func downloadReportFile(ctx context.Context, client reportDownloader, id, destDir string, notes *notify.Queue) (string, int64, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", 0, fmt.Errorf("creating download directory: %w", err)
	}

	tmp, err := os.CreateTemp(destDir, ".plagctl-download-*")
	if err != nil {
		return "", 0, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	filename, err := client.DownloadReport(ctx, id, tmp, notes.Progress("Downloading report"))
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", 0, err
	}

	info, err := os.Stat(tmpPath)
	if err != nil {
		return "", 0, err
	}

	dest := filepath.Join(destDir, filepath.Base(filename))
	if err := os.Rename(tmpPath, dest); err != nil {
		return "", 0, fmt.Errorf("moving download into place: %w", err)
	}
	return dest, info.Size(), nil
}

var reportsDownloadsCmd = &cobra.Command{
	Use:   "downloads",
	Short: "List recently downloaded reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		c, err := cache.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening report cache: %w", err)
		}
		defer c.Close()

		downloads, err := c.RecentDownloads(20)
		if err != nil {
			return err
		}
		if len(downloads) == 0 {
			fmt.Println("No downloads recorded.")
			return nil
		}
		for _, d := range downloads {
			fmt.Printf("%s  %8s  %s\n",
				d.CreatedAt.Local().Format("2006-01-02 15:04"),
				sizeLabel(d.SizeBytes),
				d.Path,
			)
		}
		return nil
	},
}

func sizeLabel(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/float64(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

func init() {
	reportsListCmd.Flags().Int("page", 1, "page number")
	reportsListCmd.Flags().Int("per-page", 0, "reports per page (default from config)")
	reportsListCmd.Flags().String("type", "", "filter by report type (comparison, general, all)")
	reportsListCmd.Flags().String("method", "", "filter by detection method (tfidf, embeddings, all)")
	reportsListCmd.Flags().String("search", "", "filter by report or document name")
	reportsListCmd.Flags().String("sort", "", "sort key (date, similarity)")
	reportsListCmd.Flags().String("order", "", "sort direction (asc, desc)")
	reportsListCmd.Flags().Bool("cached", false, "list from the local cache instead of the backend")
	reportsListCmd.Flags().Bool("json", false, "output raw JSON")
	reportsShowCmd.Flags().Bool("json", false, "output raw JSON")
	reportsDownloadCmd.Flags().String("output", "", "destination directory (default from config)")

	reportsCmd.AddCommand(reportsListCmd)
	reportsCmd.AddCommand(reportsShowCmd)
	reportsCmd.AddCommand(reportsDeleteCmd)
	reportsCmd.AddCommand(reportsDownloadCmd)
	reportsCmd.AddCommand(reportsDownloadsCmd)
}
