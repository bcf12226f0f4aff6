package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hookbench/hookbench/config"
)

func newPortsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "ports",
		Short: "Manage the persisted listener port list",
	}

	cmd.PersistentFlags().StringVar(&configPath, "file", "", "Config file path (default: ~/.hookbench/hookbench.yaml)")

	manager := func() *config.Manager {
		path := configPath
		if path == "" {
			path = config.DefaultPath()
		}
		return config.NewManager(path)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <port>",
		Short: "Add a port to the persisted config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			port, err := strconv.Atoi(args[0])
			if err != nil || port <= 0 || port > 65535 {
				return fmt.Errorf("invalid port: %s", args[0])
			}
			cm := manager()
			if err := cm.AddPort(port); err != nil {
				return err
			}
			fmt.Printf("Added port %d to %s\n", port, cm.FilePath())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <port>",
		Short: "Remove a port from the persisted config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			port, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid port: %s", args[0])
			}
			cm := manager()
			if err := cm.RemovePort(port); err != nil {
				return err
			}
			fmt.Printf("Removed port %d from %s\n", port, cm.FilePath())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the persisted ports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cm := manager()
			cfg, err := cm.Load()
			if err != nil {
				if os.IsNotExist(err) {
					fmt.Println("No config file yet.")
					return nil
				}
				return err
			}
			for _, port := range cfg.Ports {
				fmt.Println(port)
			}
			return nil
		},
	})

	return cmd
}
