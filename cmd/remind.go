package cmd

import (
	"context"
	"fmt"

	"github.com/klokku/reminder/internal/app"
	"github.com/klokku/reminder/pkg/reminder"
	"github.com/spf13/cobra"
)

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Run a reminder once, for use from an external scheduler",
}

var remindTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "Announce today's event",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runReminder(cmd, func(ctx context.Context, s reminder.Service) reminder.Outcome {
			return s.RunDaily(ctx)
		})
	},
}

var remindWeekCmd = &cobra.Command{
	Use:   "week",
	Short: "Post next week's schedule",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runReminder(cmd, func(ctx context.Context, s reminder.Service) reminder.Outcome {
			return s.RunWeekly(ctx)
		})
	},
}

func init() {
	remindCmd.AddCommand(remindTodayCmd)
	remindCmd.AddCommand(remindWeekCmd)
}

func runReminder(cmd *cobra.Command, run func(ctx context.Context, s reminder.Service) reminder.Outcome) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	deps, err := app.BuildDependencies(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	outcome := run(cmd.Context(), deps.ReminderService)
	if outcome.Failed() {
		return fmt.Errorf("reminder failed (%s): %s", outcome.Status, outcome.Message())
	}
	fmt.Fprintln(cmd.OutOrStdout(), outcome.Message())
	return nil
}
