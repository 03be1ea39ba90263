package main

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var sendReply bool

var replyCmd = &cobra.Command{
	Use:   "reply <email-id> [instruction]",
	Short: "Draft a reply to an email, optionally sending it through Gmail",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		ec, err := a.Loader.FetchEmailContext(ctx, args[0])
		if err != nil {
			return err
		}
		if ec == nil {
			return errors.Errorf("no email found with id %s", args[0])
		}
		instruction := strings.Join(args[1:], " ")

		if !sendReply {
			draft, err := a.Responder.GeneratePreview(ctx, ec, instruction)
			if err != nil {
				return err
			}
			printMarkdown(fmt.Sprintf("**To:** %s\n\n**Subject:** %s\n\n%s", ec.ReplyAddress(), draft.Subject, draft.PlainText))
			return nil
		}

		sender, err := a.SendingResponder(ctx)
		if err != nil {
			return err
		}
		out, err := sender.GenerateResponse(ctx, ec, instruction)
		if err != nil {
			return err
		}
		if !out.Sent {
			return errors.Errorf("reply was not sent: %s", out.SendError)
		}
		fmt.Printf("sent %q to %s\n", out.Subject, ec.ReplyAddress())
		return nil
	},
}

func init() {
	replyCmd.Flags().BoolVar(&sendReply, "send", false, "send the reply instead of printing a preview")
	rootCmd.AddCommand(replyCmd)
}
