package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"cluster-service/internal/app"
	"cluster-service/internal/config"
	"cluster-service/internal/logger"
)

var (
	version = "dev"
	cfgFile string
	v       = viper.New()
)

var rootCmd = &cobra.Command{
	Use:           "cluster-service",
	Short:         "Instrument cluster receiver node",
	Long:          `Receives the cluster frame from the vehicle bus, drives the blinker relays and publishes the dashboard state to Redis.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "/etc/cluster-service/config.yaml",
		"config file")
	rootCmd.Flags().String("log", "", "log level (none, error, warn, info, debug)")
	rootCmd.Flags().String("interface", "", "CAN interface")
	rootCmd.Flags().String("redis-host", "", "Redis host")
	rootCmd.Flags().Int("redis-port", 0, "Redis port")
	rootCmd.Flags().Bool("gpio", false, "drive the blinker relays through GPIO")
	rootCmd.Flags().String("write-default-config", "",
		"write the default config to the given path and exit")

	// Bind flags to viper; unset flags fall through to file and defaults
	_ = v.BindPFlag("log_level", rootCmd.Flags().Lookup("log"))
	_ = v.BindPFlag("bus.interface", rootCmd.Flags().Lookup("interface"))
	_ = v.BindPFlag("redis.host", rootCmd.Flags().Lookup("redis-host"))
	_ = v.BindPFlag("redis.port", rootCmd.Flags().Lookup("redis-port"))
	_ = v.BindPFlag("gpio.enabled", rootCmd.Flags().Lookup("gpio"))
}

func newLogger(level logger.LogLevel) *logger.Logger {
	var stdLogger *log.Logger
	if os.Getenv("INVOCATION_ID") != "" {
		// Running under systemd, use minimal format
		stdLogger = log.New(os.Stdout, "", 0)
	} else {
		// Running interactively, use timestamps
		stdLogger = log.New(os.Stdout, "", log.LstdFlags|log.Lmicroseconds|log.Lmsgprefix)
	}
	return logger.NewLogger(stdLogger, level)
}

func run(cmd *cobra.Command, args []string) error {
	if path, _ := cmd.Flags().GetString("write-default-config"); path != "" {
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote default config to %s\n", path)
		return nil
	}

	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return err
	}

	level, _ := logger.ParseLevel(cfg.LogLevel)
	l := newLogger(level)
	l.Infof("Starting cluster service %s...", version)

	a, err := app.New(cfg, l)
	if err != nil {
		return fmt.Errorf("failed to start system: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return a.Run(ctx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
