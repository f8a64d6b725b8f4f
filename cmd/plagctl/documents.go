package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/plagiaguard/plagctl/internal/config"
	"github.com/plagiaguard/plagctl/internal/docs"
	"github.com/plagiaguard/plagctl/internal/preview"
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Manage uploaded documents",
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List uploaded documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		mgr := docs.NewManager(client, newNotesPrinter())
		documents, err := mgr.List(cmd.Context())
		if err != nil {
			return err
		}

		if len(documents) == 0 {
			fmt.Println("No documents uploaded.")
			return nil
		}
		for _, d := range documents {
			fmt.Printf("%s  %-6s  %s\n", colorize(colorCyan, shortID(d.ID)), d.FileType, d.Name)
		}
		return nil
	},
}

var docsUploadCmd = &cobra.Command{
	Use:   "upload <file>...",
	Short: "Upload one or more documents",
	Long: `Upload documents for comparison or checking.

Supported formats: .txt, .pdf, .docx, .pptx. Files are validated locally
before upload; a batch continues past individual failures and reports how
many documents made it.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		mgr := docs.NewManager(client, newNotesPrinter())
		result := mgr.UploadAll(cmd.Context(), args)

		for _, id := range result.Uploaded {
			fmt.Println(id)
		}
		if result.Failed > 0 && len(result.Uploaded) == 0 {
			return fmt.Errorf("no documents were uploaded")
		}
		return nil
	},
}

var docsDownloadCmd = &cobra.Command{
	Use:   "download <file-id>",
	Short: "Download an uploaded document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		destDir, _ := cmd.Flags().GetString("output")
		if destDir == "" {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			destDir = cfg.Downloads.Dir
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		mgr := docs.NewManager(client, newNotesPrinter())
		path, err := mgr.Download(cmd.Context(), args[0], destDir)
		if err != nil {
			return err
		}

		printSuccess("Saved %s", path)
		return nil
	},
}

var docsDeleteCmd = &cobra.Command{
	Use:   "delete <file-id>",
	Short: "Delete an uploaded document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		mgr := docs.NewManager(client, newNotesPrinter())
		if err := mgr.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}

		printSuccess("Document deleted.")
		return nil
	},
}

var docsPreviewCmd = &cobra.Command{
	Use:   "preview <file-or-id>",
	Short: "Preview a document's text",
	Long: `Preview the beginning of a document's text content.

With a local path the file is read directly (PDF text is extracted).
Otherwise the argument is treated as an uploaded document id and the
content is fetched from the backend.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		if _, err := os.Stat(args[0]); err == nil {
			text, err := preview.Text(args[0], limit)
			if err != nil {
				return err
			}
			fmt.Println(text)
			return nil
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		mgr := docs.NewManager(client, newNotesPrinter())
		content, contentType, err := mgr.Content(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		text, err := preview.Bytes(content, contentType, limit)
		if err != nil {
			return err
		}
		fmt.Println(text)
		return nil
	},
}

func init() {
	docsDownloadCmd.Flags().String("output", "", "destination directory (default from config)")
	docsPreviewCmd.Flags().Int("limit", 0, "maximum preview length in bytes (default 4096)")

	docsCmd.AddCommand(docsListCmd)
	docsCmd.AddCommand(docsUploadCmd)
	docsCmd.AddCommand(docsDownloadCmd)
	docsCmd.AddCommand(docsDeleteCmd)
	docsCmd.AddCommand(docsPreviewCmd)
}
