package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"cartelera-cli/showtimes"
	"cartelera-cli/store"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

type printOptions struct {
	query string
	start string
	end   string
}

func printCmd(root *rootOptions) *cobra.Command {
	opts := &printOptions{}

	cmd := &cobra.Command{
		Use:   "print [date]",
		Short: "Print the showtimes of one day as a table",
		Long:  `Print the showtimes of one day (YYYY-MM-DD). Without a date the day is picked from a list on a terminal, or the upcoming day is used.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			movies, _, err := root.loadMovies(cmd.Context())
			if err != nil {
				return err
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

			state := showtimes.NewState(showtimes.NewSnapshot(movies), store.NewDismissalStore(kv).Load(), time.Now())

			date := state.ActiveDay()
			switch {
			case len(args) == 1:
				date = strings.TrimSpace(args[0])
			case date != "" && root.prompt != nil:
				date, err = root.prompt.PickDay(state.Tabs())
				if err != nil {
					return err
				}
			}
			if date == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "No hay películas para mostrar.")
				return nil
			}

			state, err = opts.apply(state, date)
			if err != nil {
				return err
			}
			section, ok := state.Section(date)
			if !ok {
				return fmt.Errorf("no showtimes on %s", date)
			}
			renderSectionTable(cmd.OutOrStdout(), section)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.query, "query", "q", "", "only movies whose title contains this text")
	cmd.Flags().StringVar(&opts.start, "start", "", "earliest showtime (HH:MM)")
	cmd.Flags().StringVar(&opts.end, "end", "", "latest showtime (HH:MM)")
	return cmd
}

func (o *printOptions) apply(state showtimes.State, date string) (showtimes.State, error) {
	state = state.Update(showtimes.SelectDay{Date: date})
	if q := strings.TrimSpace(o.query); q != "" {
		state = state.Update(showtimes.SetQuery{Date: date, Query: q})
	}
	if o.start == "" && o.end == "" {
		return state, nil
	}

	window := state.Range(date)
	if o.start != "" {
		minutes, ok := showtimes.ParseTime(o.start)
		if !ok {
			return state, fmt.Errorf("--start must be HH:MM, got %q", o.start)
		}
		window.Start = minutes
	}
	if o.end != "" {
		minutes, ok := showtimes.ParseTime(o.end)
		if !ok {
			return state, fmt.Errorf("--end must be HH:MM, got %q", o.end)
		}
		window.End = minutes
	}
	return state.Update(showtimes.SetRange{Date: date, Range: window}), nil
}

func renderSectionTable(out io.Writer, section showtimes.Section) {
	if section.VisibleCount == 0 {
		fmt.Fprintln(out, "No hay funciones en el rango seleccionado.")
		return
	}

	rowConfigAutoMerge := table.RowConfig{AutoMerge: true}
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetTitle(fmt.Sprintf("%s · %s", section.Label, section.RangeLabel))
	t.AppendHeader(table.Row{"Película", "Duración", "IMDb", "Formato", "Horarios"}, rowConfigAutoMerge)
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, AutoMerge: true, WidthMax: 30},
		{Number: 2, AutoMerge: true},
		{Number: 3, AutoMerge: true},
	})
	t.Style().Options.SeparateRows = true

	for _, card := range section.Cards {
		if !card.Visible {
			continue
		}
		imdb := ""
		if card.Imdb != nil {
			imdb = card.Imdb.Label
		}
		var items []table.Row
		for _, format := range card.Formats {
			if !format.Visible {
				continue
			}
			items = append(items, table.Row{card.Title, card.Duration, imdb, format.Format, visibleTimes(format)})
		}
		t.AppendRows(items, rowConfigAutoMerge)
		t.AppendSeparator()
	}

	t.Render()
}

func visibleTimes(format showtimes.FormatVisibility) string {
	times := make([]string, 0, len(format.Times))
	for _, slot := range format.Times {
		if slot.Visible {
			times = append(times, slot.Text)
		}
	}
	return strings.Join(times, "  ")
}
