package cmd

import (
	"github.com/klokku/reminder/internal/config"
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "reminder",
	Short: "Posts Google Calendar reminders to a Discord webhook",
	Long: `reminder reads events from a single Google Calendar and posts them to a
Discord webhook, either on its built-in schedule or on demand.

Run "reminder serve" and open /auth once to authorize calendar access. The
refresh token is stored in the configured credential store and reused on
every later start.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "./config/application.yaml", "config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(remindCmd)
	rootCmd.AddCommand(authCmd)
}

func loadConfig() (config.Application, error) {
	return config.Load(cfgFile)
}
