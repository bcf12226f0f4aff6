package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hookbench/hookbench/dashboard"
	"github.com/hookbench/hookbench/engine"
	"github.com/hookbench/hookbench/listener"
	"github.com/hookbench/hookbench/tui"
)

func newListenCmd() *cobra.Command {
	var (
		host          string
		useDashboard  bool
		dashboardPort int
		metricsPort   int
		rateLimit     int
		rateBurst     int
		maxEntries    int
		useTUI        bool
	)

	cmd := &cobra.Command{
		Use:   "listen <port>...",
		Short: "Start listeners on the given ports and log inbound traffic",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Viper fallback
			if host == "" {
				host = viper.GetString("host")
			}
			if !cmd.Flags().Changed("dashboard") && viper.IsSet("dashboard") {
				useDashboard = viper.GetBool("dashboard")
			}
			if !cmd.Flags().Changed("dashboard-port") && viper.IsSet("dashboard-port") {
				dashboardPort = viper.GetInt("dashboard-port")
			}
			if !cmd.Flags().Changed("metrics-port") && viper.IsSet("metrics-port") {
				metricsPort = viper.GetInt("metrics-port")
			}
			if !cmd.Flags().Changed("rate-limit") && viper.IsSet("rate-limit") {
				rateLimit = viper.GetInt("rate-limit")
			}
			if !cmd.Flags().Changed("rate-burst") && viper.IsSet("rate-burst") {
				rateBurst = viper.GetInt("rate-burst")
			}
			if !cmd.Flags().Changed("max-entries") && viper.IsSet("max-entries") {
				maxEntries = viper.GetInt("max-entries")
			}

			ports := make([]int, 0, len(args))
			for _, arg := range args {
				port, err := strconv.Atoi(arg)
				if err != nil || port <= 0 || port > 65535 {
					return fmt.Errorf("invalid port: %s", arg)
				}
				ports = append(ports, port)
			}

			return runListeners(cmd.Context(), runOptions{
				host:          host,
				ports:         ports,
				useDashboard:  useDashboard,
				dashboardPort: dashboardPort,
				metricsPort:   metricsPort,
				rateLimit:     rateLimit,
				rateBurst:     rateBurst,
				maxEntries:    maxEntries,
				useTUI:        useTUI,
			})
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Bind host for listeners")
	cmd.Flags().BoolVar(&useDashboard, "dashboard", true, "Enable the web dashboard")
	cmd.Flags().IntVar(&dashboardPort, "dashboard-port", 4040, "Web dashboard port")
	cmd.Flags().IntVar(&metricsPort, "metrics-port", 0, "Metrics endpoint port (0 to disable)")
	cmd.Flags().IntVar(&rateLimit, "rate-limit", 0, "Events per second per client IP (0 to disable)")
	cmd.Flags().IntVar(&rateBurst, "rate-burst", 0, "Rate limit burst capacity")
	cmd.Flags().IntVar(&maxEntries, "max-entries", 0, "Cap per-port entry log (0 = unbounded)")
	cmd.Flags().BoolVar(&useTUI, "tui", false, "Render a live terminal view instead of plain logs")

	viper.BindPFlags(cmd.Flags())

	return cmd
}

type runOptions struct {
	host          string
	ports         []int
	useDashboard  bool
	dashboardPort int
	metricsPort   int
	rateLimit     int
	rateBurst     int
	maxEntries    int
	useTUI        bool
}

func runListeners(parent context.Context, opts runOptions) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	eng := engine.New()
	eng.MaxEntries = opts.maxEntries

	mgr := listener.NewManager(listener.Config{
		Host:      opts.host,
		RateLimit: float64(opts.rateLimit),
		RateBurst: opts.rateBurst,
	}, eng, logger)
	defer mgr.StopAll()

	var dash *dashboard.Dashboard
	if opts.useDashboard {
		dash = dashboard.New(eng, mgr, logger)
		mgr.SetSink(dash)
		go dash.Serve(ctx, opts.dashboardPort)
	}

	for _, port := range opts.ports {
		endpoint, err := mgr.Start(port)
		if err != nil {
			return err
		}
		fmt.Printf("--> Listening: http://%s\n", endpoint)
	}
	if opts.useDashboard {
		fmt.Printf("--> Dashboard: http://127.0.0.1:%d\n", opts.dashboardPort)
	}

	if opts.metricsPort > 0 {
		go mgr.Metrics().ServeMetrics(ctx, opts.metricsPort, logger)
	}

	// Handle interrupt signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down...")
		cancel()
	}()

	if opts.useTUI {
		p := tea.NewProgram(tui.NewWatchModel(eng), tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("tui failed: %w", err)
		}
		return nil
	}

	<-ctx.Done()
	return nil
}
