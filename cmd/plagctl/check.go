package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/plagiaguard/plagctl/internal/api"
	"github.com/plagiaguard/plagctl/internal/report"
	"github.com/plagiaguard/plagctl/internal/reportstore"
)

func methodFlag(cmd *cobra.Command) (report.Method, error) {
	raw, _ := cmd.Flags().GetString("method")
	switch raw {
	case "", string(report.MethodTFIDF):
		return report.MethodTFIDF, nil
	case string(report.MethodEmbeddings):
		return report.MethodEmbeddings, nil
	default:
		return "", fmt.Errorf("unknown method %q: use tfidf or embeddings", raw)
	}
}

var compareCmd = &cobra.Command{
	Use:   "compare <doc1-id> <doc2-id>",
	Short: "Compare two documents for similarity",
	Long: `Start a similarity comparison between two uploaded documents.

The comparison runs asynchronously on the backend; use 'plagctl reports show'
to inspect the finished report, or pass --wait to poll until it completes.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		method, err := methodFlag(cmd)
		if err != nil {
			return err
		}
		wait, _ := cmd.Flags().GetBool("wait")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		started, err := client.Compare(cmd.Context(), args[0], args[1], method)
		if err != nil {
			return err
		}

		printSuccess("Comparison started: report %s (method %s)", started.ReportID, started.Method)
		if !wait {
			printStep("Run 'plagctl reports show %s' to see the result.", started.ReportID)
			return nil
		}

		return waitForReport(cmd, client, started.ReportID)
	},
}

// waitForReport polls the report until it reaches a terminal status, then
// renders it. Comparisons have no progress endpoint, so this polls the
// report itself.
func waitForReport(cmd *cobra.Command, client *api.Client, id string) error {
	ctx := cmd.Context()
	for {
		r, err := client.GetReport(ctx, id)
		if err != nil {
			return err
		}
		if r.Status.Terminal() {
			renderReport(r)
			if r.Status == report.StatusFailed {
				return fmt.Errorf("report %s failed", id)
			}
			return nil
		}
		printStep("Status: %s", r.Status)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run originality checks against external sources",
}

var checkRunCmd = &cobra.Command{
	Use:   "run <document-id>",
	Short: "Check a document against plagiarism sources",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		method, err := methodFlag(cmd)
		if err != nil {
			return err
		}
		sourcesStr, _ := cmd.Flags().GetString("sources")
		sensitivity, _ := cmd.Flags().GetString("sensitivity")
		watch, _ := cmd.Flags().GetBool("watch")

		var sources []string
		if sourcesStr != "" {
			sources = strings.Split(sourcesStr, ",")
			for i := range sources {
				sources[i] = strings.TrimSpace(sources[i])
			}
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		started, err := client.Check(cmd.Context(), args[0], sources, sensitivity, method)
		if err != nil {
			return err
		}

		printSuccess("Check started: report %s (%d sources)", started.ReportID, len(started.Sources))
		if !watch {
			printStep("Run 'plagctl check status %s --watch' to follow progress.", started.ReportID)
			return nil
		}

		return watchCheck(cmd, client, started.ReportID)
	},
}

var checkStatusCmd = &cobra.Command{
	Use:   "status <report-id>",
	Short: "Show progress of a running check",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		watch, _ := cmd.Flags().GetBool("watch")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		if watch {
			return watchCheck(cmd, client, args[0])
		}

		status, err := client.GetCheckStatus(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		renderCheckStatus(status)
		return nil
	},
}

func watchCheck(cmd *cobra.Command, client *api.Client, id string) error {
	final, err := reportstore.Watch(cmd.Context(), client, id, 2*time.Second, func(s api.CheckStatus) {
		printStep("%s: %s", s.Status, progressLabel(s.Progress))
	})
	if err != nil {
		return err
	}

	if final.Status == report.StatusFailed {
		return fmt.Errorf("check %s failed", id)
	}

	// The status endpoint only carries partial results; fetch the full report.
	r, err := client.GetReport(cmd.Context(), id)
	if err != nil {
		return err
	}
	renderReport(r)
	return nil
}

func progressLabel(p *float64) string {
	if p == nil {
		return "working"
	}
	return fmt.Sprintf("%.0f%%", *p)
}

func renderCheckStatus(s api.CheckStatus) {
	printStatus("Status", "%s", s.Status)
	printStatus("Progress", "%s", progressLabel(s.Progress))
	if s.PartialResults != nil {
		printStatus("Sources checked", "%s", strings.Join(s.PartialResults.SourcesChecked, ", "))
		if s.PartialResults.SimilarityScore != nil {
			printStatus("Similarity so far", "%.1f%%", *s.PartialResults.SimilarityScore)
		}
	}
}

var checkSourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List available plagiarism sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		sources, err := client.ListSources(cmd.Context())
		if err != nil {
			return err
		}

		if len(sources) == 0 {
			fmt.Println("No sources configured.")
			return nil
		}
		for _, s := range sources {
			state := colorize(colorGreen, "enabled")
			if !s.Enabled {
				state = colorize(colorYellow, "disabled")
			}
			fmt.Printf("%-20s %-9s %s\n", colorize(colorBold, s.ID), state, s.Description)
		}
		return nil
	},
}

func init() {
	compareCmd.Flags().String("method", "", "detection method (tfidf, embeddings)")
	compareCmd.Flags().Bool("wait", false, "poll until the comparison completes")
	checkRunCmd.Flags().String("method", "", "detection method (tfidf, embeddings)")
	checkRunCmd.Flags().String("sources", "", "comma-separated source ids (default: all enabled)")
	checkRunCmd.Flags().String("sensitivity", "", "match sensitivity (low, medium, high)")
	checkRunCmd.Flags().Bool("watch", false, "follow progress until the check completes")
	checkStatusCmd.Flags().Bool("watch", false, "poll until the check completes")

	checkCmd.AddCommand(checkRunCmd)
	checkCmd.AddCommand(checkStatusCmd)
	checkCmd.AddCommand(checkSourcesCmd)
}
