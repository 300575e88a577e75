package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/zjrosen/hetero/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage hetero configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Long:  `Write a config file with default values to ~/.config/hetero/config.yaml.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return err
			}
			path = filepath.Join(home, ".config", "hetero", "config.yaml")
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists: %s", path)
		}
		if err := config.WriteDefaultConfig(path); err != nil {
			return err
		}
		fmt.Println("wrote", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("workers: %d\n", cfg.Workers)
		fmt.Printf("devices: %d\n", cfg.Devices)
		fmt.Printf("streams_per_device: %d\n", cfg.StreamsPerDevice)
		fmt.Printf("policy: %s\n", cfg.Policy)
		fmt.Printf("log_file: %s\n", cfg.LogFile)
		fmt.Printf("tracing.enabled: %t\n", cfg.Tracing.Enabled)
		fmt.Printf("tracing.exporter: %s\n", cfg.Tracing.Exporter)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
