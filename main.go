package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"doorbell-core/app"
	"doorbell-core/config"
	"doorbell-core/device"
	"doorbell-core/display"
	"doorbell-core/session"
	"doorbell-core/wifi"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	configFile string
	rootCmd    = &cobra.Command{
		Use:   "doorbell",
		Short: "Smart doorbell core",
		Long: `doorbell brings up the doorbell's credential store, network mode and
HTTP control surface, then drives the panel through splash and WiFi setup.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", os.Getenv("CONFIG_FILE"), "YAML config file (env overrides still apply)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the doorbell (default)",
		RunE:  runServe,
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, _ []string) {
			color.New(color.FgCyan).Fprintln(cmd.OutOrStdout(), version)
		},
	})
	rootCmd.AddCommand(credsCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if configFile != "" {
		return config.LoadFile(configFile)
	}
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func setupLogger(cfg *config.Config) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if strings.EqualFold(cfg.LogFormat, "json") {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(h))
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogger(cfg)

	verifier, err := session.NewStaticVerifier(cfg.AdminUsername, cfg.AdminPassword, cfg.AdminPasswordHash, cfg.AdminRole)
	if err != nil {
		return fmt.Errorf("admin account: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	restarter := device.NewRestartController()
	bell := device.NewBell(device.NewLogPin("bell"))
	defer func() { _ = bell.Stop() }()

	orch := app.New(app.Options{
		Config:    cfg,
		Radio:     wifi.NewSimRadio(),
		Display:   display.NewLogDisplay(),
		Restarter: restarter,
		Bell:      bell,
		Verifier:  verifier,
	})

	done := make(chan error, 1)
	go func() { done <- orch.Run(runCtx) }()

	slog.Info("doorbell starting", slog.String("version", version), slog.String("store", cfg.StoreBackend))

	restart := false
	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case <-restarter.Requested():
		slog.Warn("restarting", slog.String("reason", restarter.Reason()))
		restart = true
	}
	cancel()

	if err := <-done; err != nil {
		slog.Error("shutdown incomplete", slog.String("err", err.Error()))
	}
	if !restart {
		return nil
	}
	return reexec()
}

// reexec replaces the process with a fresh copy of itself so provisioning
// runs again from the stored credentials.
func reexec() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locating executable: %w", err)
	}
	if err := syscall.Exec(exe, os.Args, os.Environ()); err != nil {
		return errors.Join(errors.New("restart failed"), err)
	}
	return nil
}
