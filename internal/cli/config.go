package cli

import (
	"fmt"

	"github.com/harun/ctx/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change the configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with secrets masked",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), cfg.String())
		return nil
	},
}

var configSetBoardCmd = &cobra.Command{
	Use:   "set-board <board-id>",
	Short: "Set the default Trello board",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		loader := config.NewLoader(cfgFile)
		if err := loader.SetDefaultBoard(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Default board set to %s\n", args[0])
		return nil
	},
}

var configSetInboxCmd = &cobra.Command{
	Use:   "set-inbox <list-id>",
	Short: "Set the Trello list new cards are created in",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		loader := config.NewLoader(cfgFile)
		if err := loader.SetDefaultList(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Inbox list set to %s\n", args[0])
		return nil
	},
}

var configSetVaultCmd = &cobra.Command{
	Use:   "set-vault <path>",
	Short: "Set the Obsidian vault directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		loader := config.NewLoader(cfgFile)
		if err := loader.SetVaultPath(args[0]); err != nil {
			return err
		}

		cfg, err := loader.LoadFile()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Vault set to %s\n", cfg.Vault.Path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetBoardCmd)
	configCmd.AddCommand(configSetInboxCmd)
	configCmd.AddCommand(configSetVaultCmd)
	rootCmd.AddCommand(configCmd)
}
