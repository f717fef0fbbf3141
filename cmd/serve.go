package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"cartelera-cli/store"
	"cartelera-cli/web"
	"github.com/spf13/cobra"
)

func serveCmd(root *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the showtimes as a JSON API",
		Long:  `Serve the showtimes as a JSON API. Every browser gets its own dismissals through a session cookie.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			movies, _, err := root.loadMovies(ctx)
			if err != nil {
				return err
			}

			sessions, err := store.OpenSessions(root.store)
			if err != nil {
				return err
			}
			defer sessions.Close()

			return web.NewServer(movies, sessions, nil).ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", envOr("CARTELERA_ADDR", ":8080"), "address to listen on")
	return cmd
}
