package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var forceRefresh bool

var summarizeCmd = &cobra.Command{
	Use:   "summarize <email-id>",
	Short: "Summarize the thread an email belongs to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		summary, err := a.Summarizer.SummaryForEmail(ctx, args[0], forceRefresh)
		if err != nil {
			return err
		}
		printMarkdown(fmt.Sprintf("# %s\n\n%s", summary.Subject, summary.Summary))
		return nil
	},
}

func init() {
	summarizeCmd.Flags().BoolVarP(&forceRefresh, "force", "f", false, "ignore the cached summary")
	rootCmd.AddCommand(summarizeCmd)
}
