// Package commands implements the CLI commands for extractmd.
package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/extractmd/internal/logger"
	"github.com/jmylchreest/extractmd/internal/settings"
)

var rootCmd = &cobra.Command{
	Use:   "extractmd",
	Short: "Convert web pages to clean Markdown",
	Long: `extractmd finds the main content of a web page, strips navigation,
ads and other chrome, and converts what is left to Markdown.

Three pipelines are available:
  page       heuristic main-region detection with readability (default)
  article    every <article> element, optionally only the longest
  universal  simple region finder with html-to-markdown conversion

Settings are read from $HOME/.extractmd.yaml or ./.extractmd.yaml and
EXTRACTMD_* environment variables (e.g. EXTRACTMD_PAGE_INCLUDE_IMAGES=false).

Examples:
  # Convert a page
  extractmd extract https://example.com/post

  # Convert a saved page, resolving links against its original URL
  extractmd extract page.html --base-url https://example.com/post

  # Every article on a page, as JSON
  extractmd extract -p article --format json https://example.com/

  # Show which region the page pipeline would pick
  extractmd candidates https://example.com/post`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logger.Init(logger.Options{
			Debug: viper.GetBool("debug"),
			Quiet: viper.GetBool("quiet"),
			Level: viper.GetString("log_level"),
			JSON:  viper.GetBool("log_json"),
		})
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default $HOME/.extractmd.yaml)")
	flags.Bool("debug", false, "enable debug logging")
	flags.BoolP("quiet", "q", false, "suppress progress output")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.Bool("log-json", false, "write logs as JSON")
	flags.Bool("no-color", false, "disable colored output")

	// Fetch settings shared by every command that accepts URLs
	flags.String("fetch-mode", "", "fetch mode: static, dynamic, auto (default from config: static)")
	flags.Duration("timeout", 0, "request timeout (default from config: 30s)")
	flags.String("user-agent", "", "user agent for fetches")

	_ = viper.BindPFlag("config", flags.Lookup("config"))
	_ = viper.BindPFlag("debug", flags.Lookup("debug"))
	_ = viper.BindPFlag("quiet", flags.Lookup("quiet"))
	_ = viper.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("log_json", flags.Lookup("log-json"))
	_ = viper.BindPFlag("no_color", flags.Lookup("no-color"))
	_ = viper.BindPFlag("fetch.mode", flags.Lookup("fetch-mode"))
	_ = viper.BindPFlag("fetch.timeout", flags.Lookup("timeout"))
	_ = viper.BindPFlag("fetch.user_agent", flags.Lookup("user-agent"))
}

func initConfig() {
	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".extractmd")
		viper.SetConfigType("yaml")
	}

	// Registers defaults and the EXTRACTMD_ environment prefix.
	store = settings.NewStore(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			logError("failed to read config: %v", err)
		}
	} else {
		logger.Debug("config loaded", "file", viper.ConfigFileUsed())
	}

	if viper.GetBool("no_color") {
		color.NoColor = true
	}
}

// store holds the resolved settings for the running command.
var store *settings.Store

// loadSettings resolves and validates settings after flags are parsed.
func loadSettings() (*settings.Settings, error) {
	if store == nil {
		store = settings.NewStore(viper.GetViper())
	}
	return store.Load()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// logError prints an error message to stderr.
func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, color.RedString("Error: ")+format+"\n", args...)
}

// logInfo prints an info message to stderr (unless quiet mode).
func logInfo(format string, args ...any) {
	if !viper.GetBool("quiet") {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

// logSuccess prints a green status line to stderr (unless quiet mode).
func logSuccess(format string, args ...any) {
	if !viper.GetBool("quiet") {
		fmt.Fprintln(os.Stderr, color.GreenString(format, args...))
	}
}
