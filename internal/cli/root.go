package cli

import (
	"io"

	"github.com/harun/ctx/internal/config"
	"github.com/harun/ctx/internal/logger"
	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X"
var version = "0.1.0"

var (
	cfgFile  string
	logLevel string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ctx",
	Short: "ctx - capture assistant for Trello and Obsidian",
	Long: `ctx turns chat messages into Trello cards and Obsidian notes.
It runs as a Telegram bot daemon, and the same agent is reachable from the
terminal with 'ctx ask'.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.ctx/config.json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error), overrides the config file")

	// Version template
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s" .Version}}
`)
}

// GetRootCmd returns the root command for testing
func GetRootCmd() *cobra.Command {
	return rootCmd
}

// GetVersion returns the current version
func GetVersion() string {
	return version
}

// loadConfig reads the config file named by --config plus environment secrets
func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// newLogger builds the process logger from the config. --log-level wins
// over the file; console is nil for commands that only log to the file.
func newLogger(cfg *config.Config, console io.Writer) (*logger.Logger, error) {
	return logger.New(logger.FromConfig(cfg, logLevel, console))
}
