package cmd

import (
	"fmt"
	"strings"

	"cartelera-cli/store"
	"github.com/spf13/cobra"
)

func resetCmd(root *rootOptions) *cobra.Command {
	var (
		movies bool
		yes    bool
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Restore every dismissed movie of the session",
		Long:  `Restore every dismissed movie of a file or sqlite session. Memory sessions end with the process, so there is nothing to restore for them.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if isMemoryStore(root.store) {
				fmt.Fprintln(out, "Las sesiones en memoria terminan con el proceso: no hay descartes guardados. Usa --store file o --store sqlite para conservarlos.")
			} else {
				if root.prompt != nil && !yes {
					ok, err := root.prompt.Confirm(fmt.Sprintf("¿Recuperar las películas descartadas de la sesión %q", root.session))
					if err != nil {
						return err
					}
					if !ok {
						fmt.Fprintln(out, "Cancelado.")
						return nil
					}
				}

				sessions, err := store.OpenSessions(root.store)
				if err != nil {
					return err
				}
				defer sessions.Close()

				kv, err := sessions.Open(root.session)
				if err != nil {
					return fmt.Errorf("open session %q: %w", root.session, err)
				}
				store.NewDismissalStore(kv).Clear()
				fmt.Fprintf(out, "Recuperadas las películas descartadas de la sesión %q (%s)\n", root.session, root.store)
			}

			if movies {
				source := root.source()
				if err := store.ClearMoviesCache(source); err != nil {
					return fmt.Errorf("clear cache of %s: %w", source, err)
				}
				fmt.Fprintf(out, "Borrada la cartelera guardada de %s\n", source)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&movies, "movies", false, "also drop the cached movie list")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func isMemoryStore(kind string) bool {
	kind = strings.ToLower(strings.TrimSpace(kind))
	return kind == "" || kind == "memory"
}
