package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(repairCmd)
	rootCmd.AddCommand(remindCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		a.log.Info("Migrations applied")
		return nil
	},
}

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Seed the first payment of loans that have none",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.newJobs().Repair(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Repaired %d loan(s)\n", n)
		return nil
	},
}

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Mail every lender a digest of payments awaiting collection",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.newJobs().SendReminders(cmd.Context())
		fmt.Fprintf(cmd.OutOrStdout(), "Sent %d reminder(s)\n", n)
		return err
	},
}
