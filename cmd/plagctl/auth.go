package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/plagiaguard/plagctl/internal/config"
)

func promptIfEmpty(value, label string) (string, error) {
	if value != "" {
		return value, nil
	}
	fmt.Fprintf(os.Stderr, "%s: ", label)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(line), nil
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the PlagiaGuard backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")

		var err error
		if username, err = promptIfEmpty(username, "Username"); err != nil {
			return err
		}
		if password, err = promptIfEmpty(password, "Password"); err != nil {
			return err
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		token, err := client.Login(cmd.Context(), username, password)
		if err != nil {
			return err
		}

		if err := config.SaveCredentials(config.Credentials{Username: username, Token: token}); err != nil {
			return fmt.Errorf("saving credentials: %w", err)
		}

		printSuccess("Logged in as %s", username)
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a new account",
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")

		var err error
		if username, err = promptIfEmpty(username, "Username"); err != nil {
			return err
		}
		if email, err = promptIfEmpty(email, "Email"); err != nil {
			return err
		}
		if password, err = promptIfEmpty(password, "Password"); err != nil {
			return err
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		if err := client.Register(cmd.Context(), username, email, password); err != nil {
			return err
		}

		printSuccess("Account created. Run 'plagctl login' to sign in.")
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Discard the saved session",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.ClearCredentials(); err != nil {
			return err
		}
		printSuccess("Logged out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		creds, err := config.LoadCredentials()
		if err != nil {
			printWarning("Not logged in.")
			return nil
		}
		fmt.Println(creds.Username)
		printStatus("Since", "%s", creds.SavedAt.Local().Format("2006-01-02 15:04"))
		return nil
	},
}

func init() {
	loginCmd.Flags().String("username", "", "account username")
	loginCmd.Flags().String("password", "", "account password (prompted if omitted)")
	registerCmd.Flags().String("username", "", "account username")
	registerCmd.Flags().String("email", "", "account email")
	registerCmd.Flags().String("password", "", "account password (prompted if omitted)")
}
