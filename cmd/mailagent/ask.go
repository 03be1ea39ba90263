package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/tbxark/mailagent/agent"
	"github.com/tbxark/mailagent/types"
)

var askCmd = &cobra.Command{
	Use:   "ask <request>",
	Short: "Run a single request through the assistant",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		req := &agent.Request{
			UserInput:  strings.Join(args, " "),
			UserEmail:  userEmail,
			SessionKey: sessionKey,
		}
		if emailID != "" {
			req.EmailContext = &types.EmailContext{EmailID: emailID}
		}
		result, err := a.Controller.Process(ctx, req)
		if err != nil {
			return err
		}
		printMarkdown(agent.RenderResult(result))
		return nil
	},
}

func init() {
	askCmd.Flags().StringVarP(&emailID, "email", "e", "", "id of the email the request is about")
	askCmd.Flags().StringVarP(&sessionKey, "session", "s", "", "conversation key for follow-up turns")
	rootCmd.AddCommand(askCmd)
}
