package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/roach88/goscope/internal/config"
	"github.com/roach88/goscope/internal/harness"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string

	// Launcher starts scopes. Nil runs each scope's command line.
	Launcher harness.Launcher

	settings *config.Settings
	// sessionID is the traced harness session of the running command.
	sessionID string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the scopeharness CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scopeharness",
		Short: "Drive and test scopes",
		Long: `Drive scopes the way a shell would and check what they answer.

Scopes are registered from their .ini files and started on demand. Each
command runs against a fresh harness that is closed when it returns.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			_, err := opts.Settings(cmd.Flags())
			return err
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "settings file (YAML)")
	cmd.PersistentFlags().String("runtime", "", "runtime .ini passed to scopes")
	cmd.PersistentFlags().Duration("timeout", 0, "timeout for each scope request")
	cmd.PersistentFlags().String("trace-db", "", "record the session to this SQLite file")
	cmd.PersistentFlags().Int("cardinality", 0, "maximum results per search (0 is unlimited)")
	cmd.PersistentFlags().String("log-level", "", "log level (debug|info|warn|error)")

	// Add subcommands
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewScopesCommand(opts))
	cmd.AddCommand(NewSearchCommand(opts))
	cmd.AddCommand(NewDepartmentsCommand(opts))
	cmd.AddCommand(NewPreviewCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))

	return cmd
}

// Settings loads the harness settings on first use. Only flags that were
// set on the command line override the file and environment.
func (o *RootOptions) Settings(flags *pflag.FlagSet) (*config.Settings, error) {
	if o.settings != nil {
		return o.settings, nil
	}
	s, err := config.LoadSettings(o.ConfigFile, flags)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load settings", err)
	}
	o.settings = s
	return s, nil
}

// Logger returns a text logger on w. --verbose forces debug level.
func (o *RootOptions) Logger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if o.settings != nil {
		level = parseLevel(o.settings.LogLevel)
	}
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
		SessionID: o.sessionID,
	}
}

// report writes err through the formatter and returns it unchanged.
func (o *RootOptions) report(cmd *cobra.Command, err error) error {
	if err == nil {
		return nil
	}
	if werr := o.formatter(cmd).Fail(err); werr != nil {
		return errors.Join(err, werr)
	}
	return err
}
