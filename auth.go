package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with the banking backend",
		Long: "Exchanges a username and password for a session. Credentials are read\n" +
			"from --username/--password, then BANKDASH_USERNAME/BANKDASH_PASSWORD\n" +
			"(a .env file in the working directory is honored).",
		RunE: runLogin,
	}

	cmd.Flags().StringP("username", "u", "", "account username")
	cmd.Flags().StringP("password", "p", "", "account password")

	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and remove saved credentials",
		RunE:  runLogout,
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Display session status and the last logged-in user",
		RunE:  runWhoami,
	}
}

// loginCredentials resolves the username and password from flags, falling
// back to environment variables. A .env file is loaded best-effort first so
// development setups need no exported variables.
func loginCredentials(cmd *cobra.Command) (string, string, error) {
	_ = godotenv.Load()

	username, _ := cmd.Flags().GetString("username")
	if username == "" {
		username = os.Getenv("BANKDASH_USERNAME")
	}

	password, _ := cmd.Flags().GetString("password")
	if password == "" {
		password = os.Getenv("BANKDASH_PASSWORD")
	}

	if username == "" || password == "" {
		return "", "", fmt.Errorf("username and password required (flags or BANKDASH_USERNAME/BANKDASH_PASSWORD)")
	}

	return username, password, nil
}

func runLogin(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := context.Background()

	username, password, err := loginCredentials(cmd)
	if err != nil {
		return err
	}

	a, err := buildApp(ctx, logger, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	logger.Info("login started", "username", username)

	if err := a.controller.Login(ctx, username, password); err != nil {
		return err
	}

	statusf("Login successful.\n")

	return nil
}

func runLogout(_ *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := context.Background()

	a, err := buildApp(ctx, logger, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	logger.Info("logout started")

	if err := a.controller.Logout(ctx); err != nil {
		return err
	}

	statusf("Logged out.\n")

	return nil
}

// whoamiOutput is the JSON schema for `whoami --json`.
type whoamiOutput struct {
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username,omitempty"`
	Via           string `json:"via,omitempty"`
}

func runWhoami(_ *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := context.Background()

	a, err := buildApp(ctx, logger, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	out := whoamiOutput{Username: a.controller.LastUsername()}

	if a.verifier.Probe(ctx) {
		out.Authenticated = true
		out.Via = string(a.store.Via())
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("encoding JSON output: %w", err)
		}

		return nil
	}

	if !out.Authenticated {
		fmt.Println("Not logged in — run 'bankdash login'.")
		return nil
	}

	if out.Username != "" {
		fmt.Printf("Logged in as %s (session via %s).\n", out.Username, out.Via)
	} else {
		fmt.Printf("Logged in (session via %s).\n", out.Via)
	}

	return nil
}
