package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version = "dev"
	logger  *slog.Logger
	cfgFile string
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stdout, nil))

	rootCmd := &cobra.Command{
		Use:           "hookbench",
		Short:         "Ad-hoc HTTP listeners with request/response correlation",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf("hookbench %s\n", version))
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./hookbench.yaml)")

	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(newListenCmd())
	rootCmd.AddCommand(newStartCmd())
	rootCmd.AddCommand(newPortsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("hookbench")
	}

	viper.SetEnvPrefix("HOOKBENCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		logger.Info("using config file", "file", viper.ConfigFileUsed())
	}
}
