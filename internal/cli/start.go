package cli

import (
	"fmt"

	"github.com/harun/ctx/internal/daemon"
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the ctx daemon",
	Long: `Start the ctx daemon in the foreground.
The daemon answers Telegram messages, serves the webhook and metrics
endpoints when enabled, and keeps the daily note up to date. It runs
until interrupted or until 'ctx stop' is called.`,
	Args: cobra.NoArgs,
	RunE: runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if pid, err := daemon.RunningPID(cfg.DataDir); err == nil {
		return fmt.Errorf("daemon is already running (pid %d)", pid)
	}

	log, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Close()

	d, err := daemon.New(cfg, log)
	if err != nil {
		return err
	}

	if err := d.Start(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "ctx daemon started (pid file: %s)\n", daemon.PIDFilePath(cfg.DataDir))

	d.Wait()
	return nil
}
