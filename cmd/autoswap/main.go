package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:          "autoswap",
		Short:        "Plan, submit and track single auto-swaps",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("env-file", "", ".env file to load (defaults to the project root .env)")
	root.PersistentFlags().String("log-level", "", "log level, overrides LOG_LEVEL")

	planCmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the calls an auto-swap would submit, without submitting",
		RunE:  runPlan,
	}
	addSwapFlags(planCmd)
	root.AddCommand(planCmd)

	executeCmd := &cobra.Command{
		Use:   "execute",
		Short: "Submit an auto-swap for a subscribed wallet",
		RunE:  runExecute,
	}
	addSwapFlags(executeCmd)
	executeCmd.Flags().Bool("wait", false, "poll the transaction status until it leaves RECEIVED")
	root.AddCommand(executeCmd)

	statusCmd := &cobra.Command{
		Use:   "status <tx-hash>",
		Short: "Show the finality of a submitted transaction",
		Args:  cobra.ExactArgs(1),
		RunE:  runStatus,
	}
	root.AddCommand(statusCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func addSwapFlags(cmd *cobra.Command) {
	cmd.Flags().String("wallet", "", "subscribed wallet that received the transfer")
	cmd.Flags().Int64("value", 0, "amount received, in whole units of the source token")
	cmd.Flags().String("from-token", "", "source token; empty uses the first preference")
	_ = cmd.MarkFlagRequired("wallet")
	_ = cmd.MarkFlagRequired("value")
}
