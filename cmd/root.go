// Package cmd implements the calcvault command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/antibyte/calcvault/pkg/configuration"
	"github.com/antibyte/calcvault/pkg/logger"
	"github.com/antibyte/calcvault/pkg/ui"

	figure "github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	configPath string
	dbPath     string
	verbose    bool
	debug      bool
	Console    ui.Console

	rootCmd = &cobra.Command{
		Use:   "calcvault",
		Short: "A calculator with a hidden gallery",
		Long: `calcvault is a working four-function calculator. Typing the passcode
followed by "=" opens a hidden picture gallery.

Commands:
  serve      Run the HTTP and WebSocket server
  tui        Run the calculator in the terminal
  user       Manage accounts
  gallery    Manage stored pictures
  passcode   Set or reset the passcode of an account`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			Console = ui.Console{
				Verbose: verbose,
				Debug:   debug,
				Out:     cmd.OutOrStdout(),
				Err:     cmd.ErrOrStderr(),
			}
			Console.Debugf("Loading configuration from %s", configPath)
			if err := configuration.Initialize(configPath); err != nil {
				return Console.ErrorfAndReturn("failed to load configuration %s: %w", configPath, err)
			}
			if err := logger.Initialize(); err != nil {
				return Console.ErrorfAndReturn("failed to initialize logging: %w", err)
			}
			if debug {
				logger.SetLevel(logger.DEBUG)
				for _, area := range logger.ListAreas() {
					logger.EnableArea(area)
				}
			}
			logger.ConfigInfo("%s started, configuration %s", cmd.CommandPath(), configuration.Path())
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), figure.NewFigure("calcvault", "", true).String())
			fmt.Fprintln(cmd.OutOrStdout(), "Run "+ui.Code.Sprint("calcvault --help")+" to see available commands.")
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "settings.cfg", "configuration file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database file (default from [Database] path)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(UserCmd)
	rootCmd.AddCommand(GalleryCmd)
	rootCmd.AddCommand(PasscodeCmd)
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	defer logger.Close()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.Error.Sprint("✗")+" "+err.Error())
		logger.Close()
		os.Exit(1)
	}
}

// GetRootCmd returns the root command for testing.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

// ResetGlobalState resets all flags to their defaults for testing.
func ResetGlobalState() {
	resetFlags(rootCmd)
	configPath = "settings.cfg"
	dbPath = ""
	verbose = false
	debug = false
	resetUserCommandState()
	resetPasscodeCommandState()
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}
