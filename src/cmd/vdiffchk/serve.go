package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gh-nvat/vdiffchk/src/internal/server"
	"github.com/spf13/cobra"
)

func newServeCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve manual actions, build snapshots and history over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(g.projectDir(), g.buildsDir(), g.v.GetString("username"), g.v.GetString("password"))
			return srv.Run(ctx, g.v.GetString("addr"))
		},
	}
	cmd.Flags().String("addr", "127.0.0.1:8080", "Listen address")
	cmd.Flags().String("username", "", "Basic auth user (auth disabled when user and password are empty)")
	cmd.Flags().String("password", "", "Basic auth password, prefer VDIFFCHK_PASSWORD")
	return cmd
}
