package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Ayodukale/S-B/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage configuration files for the screener.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  swingbot config init -o swingbot.yaml
  swingbot config validate --file swingbot.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	Long: `Create a new configuration file with default settings.

Example:
  swingbot config init -o swingbot.yaml`,
	RunE: runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Check if a configuration file is valid and can be loaded.

Example:
  swingbot config validate --file swingbot.yaml`,
	RunE: runConfigValidate,
}

var (
	configInitOutput   string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "swingbot.yaml", "output config file path")
	configValidateCmd.Flags().StringVar(&configValidatePath, "file", "", "path to config file (required)")
	configValidateCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if err := cfg.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Printf("✓ Created default configuration: %s\n", configInitOutput)
	fmt.Println("\nEdit the file and run with:")
	fmt.Printf("  swingbot run -f %s\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configValidatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Printf("✓ Configuration valid: %s\n", configValidatePath)
	fmt.Printf("  Providers: %s\n", strings.Join(cfg.Data.Providers, " → "))
	fmt.Printf("  Benchmarks: %s, %s\n", cfg.Benchmarks.Primary, cfg.Benchmarks.Secondary)
	fmt.Printf("  Ledger: %s\n", cfg.Ledger.Backend)
	return nil
}
