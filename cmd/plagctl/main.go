package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:   "plagctl",
	Short: "Command-line client for the PlagiaGuard plagiarism detection service",
	Long: `plagctl talks to a PlagiaGuard backend: upload documents, start
comparisons and originality checks, and browse the resulting reports.

Run 'plagctl login' first to authenticate, then for example:

  plagctl docs upload thesis.pdf essay.txt
  plagctl compare <doc1-id> <doc2-id> --method embeddings
  plagctl reports list --sort similarity`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the plagctl version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("plagctl version %s\n", version)
	},
}

func main() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(reportsCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(docsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(configCmd)

	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}
