package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"cartelera-cli/model"
	"cartelera-cli/service"
	"cartelera-cli/store"
	"cartelera-cli/tui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
)

const appName = "cartelera-cli"

type rootOptions struct {
	data    string
	session string
	store   string
	noCache bool

	prompt  prompter
	logFile *lumberjack.Logger
}

// Execute runs the command line and returns the process exit code.
func Execute(version, commit string) int {
	if err := NewRootCmd(version, commit).Execute(); err != nil {
		return 1
	}
	return 0
}

// NewRootCmd builds the command tree. Flag defaults come from the
// CARTELERA_* environment when set.
func NewRootCmd(version, commit string) *cobra.Command {
	return newRootCmd(version, commit, terminalPrompt())
}

func newRootCmd(version, commit string, prompt prompter) *cobra.Command {
	opts := &rootOptions{prompt: prompt}

	root := &cobra.Command{
		Use:           "cartelera",
		Short:         "Browse cinema showtimes from the terminal",
		Long:          `Browse the movies showing each day, filter them by title or time and dismiss the ones you are not interested in.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setupLogging(cmd.Parent() != nil)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return opts.closeLog()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(opts)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.data, "data", os.Getenv("CARTELERA_DATA"), "movies JSON file path or http(s) URL")
	flags.StringVar(&opts.session, "session", envOr("CARTELERA_SESSION", store.DefaultSession), "browsing session name")
	flags.StringVar(&opts.store, "store", envOr("CARTELERA_STORE", "memory"), "dismissal storage: memory, file or sqlite")
	flags.BoolVar(&opts.noCache, "no-cache", false, "always fetch the movie list")

	root.AddCommand(
		printCmd(opts),
		serveCmd(opts),
		resetCmd(opts),
		versionCmd(version, commit),
	)
	return root
}

func versionCmd(version, commit string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s", appName, version)
			if commit != "none" && commit != "" {
				fmt.Fprintf(out, " (%s)", commit)
			}
			fmt.Fprintln(out)
		},
	}
}

func runTUI(opts *rootOptions) error {
	sessions, err := store.OpenSessions(opts.store)
	if err != nil {
		return err
	}
	defer sessions.Close()

	kv, err := sessions.Open(opts.session)
	if err != nil {
		return fmt.Errorf("open session %q: %w", opts.session, err)
	}

	program := tea.NewProgram(tui.New(tui.Options{
		Client:     service.NewClient(nil),
		Source:     opts.source(),
		Cache:      opts.cache(),
		Dismissals: store.NewDismissalStore(kv),
	}), tea.WithAltScreen(), tea.WithMouseCellMotion())

	_, err = program.Run()
	return err
}

// source picks the data source: flag or env, then the last one used.
func (o *rootOptions) source() string {
	if source := strings.TrimSpace(o.data); source != "" {
		return source
	}
	if last := store.LastSource(); last != "" {
		return last
	}
	return service.DefaultSource
}

func (o *rootOptions) cache() service.Cache {
	if o.noCache {
		return nil
	}
	return store.MoviesCache{}
}

func (o *rootOptions) loadMovies(ctx context.Context) ([]model.Movie, string, error) {
	source := o.source()
	movies, err := service.NewClient(nil).LoadMovies(ctx, source, o.cache())
	if err != nil {
		return nil, source, fmt.Errorf("load %s: %w", source, err)
	}
	if err := store.RememberSource(source); err != nil {
		log.Printf("[store] remember source: %v", err)
	}
	return movies, source, nil
}

// setupLogging sends the log to a rotating file. The TUI owns the terminal,
// so only subcommands mirror to stderr, and only with CARTELERA_DEBUG set.
func (o *rootOptions) setupLogging(subcommand bool) error {
	path, err := store.LogPath()
	if err != nil {
		return err
	}
	o.logFile = &lumberjack.Logger{
		Filename:   path,
		MaxSize:    5,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}

	var out io.Writer = o.logFile
	if subcommand && os.Getenv("CARTELERA_DEBUG") != "" {
		out = io.MultiWriter(o.logFile, os.Stderr)
	}
	log.SetOutput(out)
	log.SetFlags(log.LstdFlags)
	return nil
}

func (o *rootOptions) closeLog() error {
	if o.logFile == nil {
		return nil
	}
	log.SetOutput(os.Stderr)
	err := o.logFile.Close()
	o.logFile = nil
	return err
}

func envOr(name, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(name)); value != "" {
		return value
	}
	return fallback
}
