package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/tbxark/mailagent/app"
	"github.com/tbxark/mailagent/config"
	"github.com/tbxark/mailagent/logging"
)

var (
	configFile string
	logLevel   string
	userEmail  string
	emailID    string
	sessionKey string
	plain      bool
	version    = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "mailagent",
	Short: "Search, summarize and answer email from the command line",
	Long: `mailagent routes natural language requests about a mailbox to one of three
capabilities: answering questions from indexed mail, summarizing a thread,
or drafting a reply to a specific email.

Quick Start:
  mailagent ask --user me@example.com "when is the Q3 review?"
  mailagent summarize AAMkAD...
  mailagent reply AAMkAD... "accept the meeting"
  mailagent serve --transport http --addr :8088`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default ./mailagent.yaml or ~/.mailagent/mailagent.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level")
	rootCmd.PersistentFlags().StringVarP(&userEmail, "user", "u", "", "mailbox owner address")
	rootCmd.PersistentFlags().BoolVar(&plain, "plain", false, "print markdown without terminal styling")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.New(configFile))
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)
	return cfg, nil
}

func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg)
}

func printMarkdown(text string) {
	if plain {
		fmt.Println(text)
		return
	}
	out, err := glamour.Render(text, "dark")
	if err != nil {
		fmt.Println(text)
		return
	}
	fmt.Print(out)
}
