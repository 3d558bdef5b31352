package cmd

import (
	"fmt"

	"github.com/forexgate/forexgate/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  forexgate config init -f forexgate.yaml
  forexgate config validate -f forexgate.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	RunE:  runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	RunE:  runConfigValidate,
}

var (
	initPath     string
	validatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&initPath, "file", "f", "forexgate.yaml", "output config file path")
	configValidateCmd.Flags().StringVarP(&validatePath, "file", "f", "", "path to config file (required)")
	configValidateCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if err := cfg.SaveToFile(initPath); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created default configuration: %s\n", initPath)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(validatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Configuration valid: %s\n", validatePath)
	fmt.Fprintf(w, "  Account:  %.2f %s\n", cfg.Account.Balance, cfg.Account.Currency)
	fmt.Fprintf(w, "  Database: %s\n", cfg.Database.Path)
	fmt.Fprintf(w, "  Logging:  %s\n", cfg.Logging.Level)
	return nil
}
