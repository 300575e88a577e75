package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/hetero/internal/config"
	"github.com/zjrosen/hetero/internal/log"
)

var (
	version = "dev"
	cfgFile string
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:     "hetero",
	Short:   "A heterogeneous CPU/GPU task-graph scheduler",
	Long: `hetero builds and executes heterogeneous task graphs: host callbacks,
host-to-device pulls, device-to-host pushes, device-to-device transfers, and
kernel launches, scheduled across a pool of simulated devices with one
device decision per affinity cluster.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// SetVersion overrides the version string shown by --version.
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/hetero/config.yaml)")
	rootCmd.PersistentFlags().Int("workers", 0,
		"number of dispatch workers (default: CPU count)")
	rootCmd.PersistentFlags().Int("devices", 0,
		"number of simulated devices")
	rootCmd.PersistentFlags().Bool("debug", false,
		"enable debug logging")

	_ = viper.BindPFlag("workers", rootCmd.PersistentFlags().Lookup("workers"))
	_ = viper.BindPFlag("devices", rootCmd.PersistentFlags().Lookup("devices"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
}

func initConfig() {
	defaults := config.Defaults()
	viper.SetDefault("workers", defaults.Workers)
	viper.SetDefault("devices", defaults.Devices)
	viper.SetDefault("streams_per_device", defaults.StreamsPerDevice)
	viper.SetDefault("policy", defaults.Policy)
	viper.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	viper.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)
	viper.SetDefault("tracing.service_name", defaults.Tracing.ServiceName)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .hetero/config.yaml (current directory)
		// 2. ~/.config/hetero/config.yaml (user config)
		if _, err := os.Stat(".hetero/config.yaml"); err == nil {
			viper.SetConfigFile(".hetero/config.yaml")
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "hetero"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintln(os.Stderr, "Warning: reading config:", err)
		}
		// Missing config is fine; defaults apply.
	}

	_ = viper.Unmarshal(&cfg)

	// Flag defaults of zero mean "not set"; fall back to computed defaults.
	if cfg.Workers == 0 {
		cfg.Workers = defaults.Workers
	}
	if cfg.Devices == 0 {
		cfg.Devices = defaults.Devices
	}
	if cfg.StreamsPerDevice == 0 {
		cfg.StreamsPerDevice = defaults.StreamsPerDevice
	}

	if cfg.LogFile != "" {
		if _, err := log.Init(cfg.LogFile); err != nil {
			fmt.Fprintln(os.Stderr, "Warning: log init:", err)
		}
		if !cfg.Debug {
			log.SetMinLevel(log.LevelInfo)
		}
	}
}
