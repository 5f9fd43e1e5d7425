package cmd

import (
	"fmt"
	"time"

	"github.com/klokku/reminder/internal/app"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Inspect or revoke the stored Google authorization",
	Long: `Authorization itself happens in the browser: start the server and open
/auth. These commands work on the refresh token in the credential store.`,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a refresh token is stored",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		deps, err := app.BuildDependencies(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer deps.Close()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Credential store: %s\n", cfg.Store.Backend)
		if !deps.TokenManager.Status().RefreshTokenExists {
			fmt.Fprintf(out, "Authorization: required (open %s/auth)\n", cfg.Host)
			return nil
		}
		fmt.Fprintln(out, "Authorization: refresh token stored")

		calendars, err := deps.GoogleService.ListCalendars(cmd.Context())
		if err != nil {
			fmt.Fprintf(out, "Calendar access: failed (%v)\n", err)
			return nil
		}
		fmt.Fprintf(out, "Calendar access: OK, %d calendars visible\n", len(calendars))
		if expiry := deps.TokenManager.Status().Expiry; expiry != nil {
			fmt.Fprintf(out, "Access token expires in %s\n", time.Until(*expiry).Truncate(time.Second))
		}
		return nil
	},
}

var authRevokeCmd = &cobra.Command{
	Use:   "revoke",
	Short: "Revoke the stored refresh token at Google",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		deps, err := app.BuildDependencies(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer deps.Close()

		if !deps.TokenManager.Status().RefreshTokenExists {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing to revoke")
			return nil
		}
		if err := deps.TokenManager.Revoke(cmd.Context()); err != nil {
			log.Warnf("Failed to revoke the credentials: %v", err)
			fmt.Fprintln(cmd.OutOrStdout(), "Google refused the revocation, the stored refresh token is kept.")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Revoked. Open /auth to authorize again.")
		return nil
	},
}

func init() {
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authRevokeCmd)
}
