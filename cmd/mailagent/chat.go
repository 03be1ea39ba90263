package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/cloudwego/eino/adk"
	"github.com/cloudwego/eino/schema"
	"github.com/spf13/cobra"

	"github.com/tbxark/mailagent/agent"
)

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	assistantStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135")).
			Bold(true)

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true)
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive session with the assistant",
	Long: `Start an interactive session. Every line is one turn; earlier turns are
kept as history. Type /reset to forget the history and /quit to leave.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		key := sessionKey
		if key == "" {
			key = "chat:" + userEmail
		}
		ctx = agent.WithStateKey(ctx, key)
		history := agent.NewMemoryHistoryStore(agent.KeepSystemLastNTrimmer{N: a.Config.Checkpoint.HistoryLimit})

		mailAgent := agent.NewAgent(
			"MailAssistant",
			"Answers questions about a mailbox, summarizes threads and drafts replies",
			a.Controller,
			agent.WithUserEmail(userEmail),
			agent.WithEmailID(emailID),
		)
		runner := adk.NewRunner(ctx, adk.RunnerConfig{Agent: mailAgent})

		fmt.Println(hintStyle.Render("Ask about your mail. /reset clears the history, /quit exits."))
		reader := bufio.NewReader(os.Stdin)
		for {
			fmt.Print(promptStyle.Render("you> "))
			line, rErr := reader.ReadString('\n')
			if rErr != nil {
				fmt.Println()
				return nil
			}
			input := strings.TrimSpace(line)
			switch input {
			case "":
				continue
			case "/quit", "/exit":
				return nil
			case "/reset":
				if err := history.Clear(ctx); err != nil {
					return err
				}
				fmt.Println(hintStyle.Render("history cleared"))
				continue
			}

			msgs, err := history.Append(ctx, schema.UserMessage(input))
			if err != nil {
				return err
			}
			iter := runner.Run(ctx, msgs)
			for {
				event, ok := iter.Next()
				if !ok {
					break
				}
				if event.Err != nil {
					fmt.Fprintln(os.Stderr, event.Err)
					fmt.Println(assistantStyle.Render("assistant>"), agent.FailureMessage)
					continue
				}
				msg, mErr := event.Output.MessageOutput.GetMessage()
				if mErr != nil {
					return mErr
				}
				if _, err := history.Append(ctx, msg); err != nil {
					return err
				}
				fmt.Println(assistantStyle.Render("assistant>"))
				printMarkdown(msg.Content)
			}
		}
	},
}

func init() {
	chatCmd.Flags().StringVarP(&emailID, "email", "e", "", "id of the email the session is about")
	chatCmd.Flags().StringVarP(&sessionKey, "session", "s", "", "conversation key")
	rootCmd.AddCommand(chatCmd)
}
