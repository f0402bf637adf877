package main

import (
	"context"
	"fmt"
	"strings"

	"doorbell-core/app"
	"doorbell-core/wifi"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func credsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "creds",
		Short: "Inspect or change the stored WiFi credentials",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the provisioning state and stored network",
		RunE:  runCredsShow,
	})

	var ssid, password string
	set := &cobra.Command{
		Use:   "set",
		Short: "Store station credentials; the next start joins this network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCredsSet(cmd, ssid, password)
		},
	}
	set.Flags().StringVar(&ssid, "ssid", "", "network name")
	set.Flags().StringVar(&password, "password", "", "network password (empty for an open network)")
	_ = set.MarkFlagRequired("ssid")
	cmd.AddCommand(set)

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Erase the stored credentials; the next start opens the setup access point",
		RunE:  runCredsClear,
	})
	return cmd
}

// withStore loads the config and opens the credential store for one command.
func withStore(ctx context.Context, fn func(cfg storeContext) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, db, err := app.OpenDatabaseStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(storeContext{
		resolver: wifi.NewResolver(store, wifi.Credentials{SSID: cfg.APDefaultSSID, Password: cfg.APDefaultPassword}),
		save:     func(c wifi.Credentials) error { return wifi.SaveCredentials(ctx, store, c) },
		clear:    func() error { return wifi.ClearCredentials(ctx, store) },
	})
}

type storeContext struct {
	resolver *wifi.Resolver
	save     func(wifi.Credentials) error
	clear    func() error
}

func runCredsShow(cmd *cobra.Command, _ []string) error {
	return withStore(cmd.Context(), func(sc storeContext) error {
		res, err := sc.resolver.Resolve(cmd.Context())

		cyan := color.New(color.FgCyan)
		out := cmd.OutOrStdout()
		cyan.Fprint(out, "State:    ")
		switch res.State {
		case wifi.Configured:
			color.New(color.FgGreen).Fprintln(out, res.State)
		case wifi.WaitingConfiguration:
			color.New(color.FgYellow).Fprintln(out, res.State)
		default:
			color.New(color.FgRed).Fprintln(out, res.State)
		}
		if err != nil {
			return err
		}

		label := "Network:  "
		if res.State == wifi.WaitingConfiguration {
			label = "Setup AP: "
		}
		cyan.Fprint(out, label)
		fmt.Fprintln(out, res.Credentials.SSID)
		cyan.Fprint(out, "Password: ")
		fmt.Fprintln(out, mask(res.Credentials.Password))
		return nil
	})
}

func runCredsSet(cmd *cobra.Command, ssid, password string) error {
	return withStore(cmd.Context(), func(sc storeContext) error {
		if err := sc.save(wifi.Credentials{SSID: ssid, Password: password}); err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "Saved credentials for %q\n", ssid)
		return nil
	})
}

func runCredsClear(cmd *cobra.Command, _ []string) error {
	return withStore(cmd.Context(), func(sc storeContext) error {
		if err := sc.clear(); err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "Credentials cleared")
		return nil
	})
}

func mask(password string) string {
	if password == "" {
		return "(none)"
	}
	return strings.Repeat("*", len(password))
}
