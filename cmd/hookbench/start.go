package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// StartConfigYAML represents the config file structure for multi-listener
// start.
type StartConfigYAML struct {
	Host          string `mapstructure:"host"`
	Dashboard     bool   `mapstructure:"dashboard"`
	DashboardPort int    `mapstructure:"dashboard_port"`
	MetricsPort   int    `mapstructure:"metrics_port"`
	RateLimit     int    `mapstructure:"rate_limit"`
	RateBurst     int    `mapstructure:"rate_burst"`
	MaxEntries    int    `mapstructure:"max_entries"`
	Ports         []int  `mapstructure:"ports"`
}

func newStartCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start listeners from a config file",
		Long: `Start listeners defined in a YAML configuration file.

Example config file (hookbench.yaml):
  host: "127.0.0.1"
  dashboard: true
  dashboard_port: 4040
  ports:
    - 4000
    - 4001

Usage:
  hookbench start
  hookbench start --config /path/to/hookbench.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()

			if configFile != "" {
				v.SetConfigFile(configFile)
			} else {
				// Look for config in home directory first, then current directory
				home, _ := os.UserHomeDir()
				if home != "" {
					v.AddConfigPath(home + "/.hookbench")
				}
				v.AddConfigPath(".")
				v.SetConfigName("hookbench")
			}

			if err := v.ReadInConfig(); err != nil {
				return fmt.Errorf("failed to read config file: %w", err)
			}

			logger.Info("using config file", "file", v.ConfigFileUsed())

			var cfg StartConfigYAML
			if err := v.Unmarshal(&cfg); err != nil {
				return fmt.Errorf("failed to parse config file: %w", err)
			}

			if len(cfg.Ports) == 0 {
				return fmt.Errorf("at least one port is required in config file")
			}
			for i, port := range cfg.Ports {
				if port <= 0 || port > 65535 {
					return fmt.Errorf("ports[%d]: invalid port %d", i, port)
				}
			}

			if cfg.DashboardPort == 0 {
				cfg.DashboardPort = 4040
			}

			return runListeners(cmd.Context(), runOptions{
				host:          cfg.Host,
				ports:         cfg.Ports,
				useDashboard:  cfg.Dashboard,
				dashboardPort: cfg.DashboardPort,
				metricsPort:   cfg.MetricsPort,
				rateLimit:     cfg.RateLimit,
				rateBurst:     cfg.RateBurst,
				maxEntries:    cfg.MaxEntries,
			})
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to config file (default: ./hookbench.yaml)")

	return cmd
}
