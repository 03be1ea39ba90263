package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tbxark/mailagent/mcpserver"
)

var (
	transport string
	addr      string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose the assistant as an MCP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if transport == "" {
			transport = a.Config.Server.Transport
		}
		if addr == "" {
			addr = a.Config.Server.Addr
		}
		srv := mcpserver.NewServer(mcpserver.NewHandler(a.Controller), version)
		return mcpserver.Serve(ctx, srv, transport, addr)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&transport, "transport", "t", "", "stdio or http (default server.transport)")
	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address for the http transport (default server.addr)")
	rootCmd.AddCommand(serveCmd)
}
