package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/franckalain/eatsmarty/internal/cli"
	"github.com/franckalain/eatsmarty/internal/models"
	"github.com/franckalain/eatsmarty/internal/store"
)

func historyCmd(opts *options) *cobra.Command {
	var clearHistory, clearLast bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently scanned products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if clearLast {
				if err := a.products.ClearScanned(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Last scanned product cleared"))
				return nil
			}
			if clearHistory {
				if err := a.products.ClearHistory(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Scan history cleared"))
				return nil
			}

			recent := a.products.Recent()
			if !opts.jsonOutput && !a.settings.ScanHistoryEnabled() {
				fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatWarning("Scan history is turned off; new products are not recorded"))
			}
			return opts.render(cmd.OutOrStdout(), recent, func() string {
				return cli.RenderHistory(recent)
			})
		},
	}
	cmd.Flags().BoolVar(&clearHistory, "clear", false, "clear the scan history")
	cmd.Flags().BoolVar(&clearLast, "clear-last", false, "forget the last scanned product, keeping the history")
	return cmd
}

func settingsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showSettings(cmd, opts)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Show preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showSettings(cmd, opts)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <theme|notifications|scan-history> <value>",
		Short: "Change a preference",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			apply, err := parseSetting(args[0], args[1])
			if err != nil {
				return err
			}

			a, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := apply(cmd.Context(), a.settings); err != nil {
				return err
			}
			prefs := a.settings.Get()
			return opts.render(cmd.OutOrStdout(), prefs, func() string {
				return cli.RenderPreferences(prefs)
			})
		},
	})
	return cmd
}

func showSettings(cmd *cobra.Command, opts *options) error {
	a, err := opts.openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	prefs := a.settings.Get()
	return opts.render(cmd.OutOrStdout(), prefs, func() string {
		return cli.RenderPreferences(prefs)
	})
}

// settingChange applies one parsed preference to the settings store
type settingChange func(ctx context.Context, s *store.SettingsStore) error

// parseSetting validates a key/value pair and returns the change to apply.
func parseSetting(key, value string) (settingChange, error) {
	switch strings.ToLower(key) {
	case "theme":
		theme, err := models.ParseTheme(value)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context, s *store.SettingsStore) error {
			return s.SetTheme(ctx, theme)
		}, nil
	case "notifications", "notifications-enabled":
		on, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: %q", key, value)
		}
		return func(ctx context.Context, s *store.SettingsStore) error {
			return s.SetNotificationsEnabled(ctx, on)
		}, nil
	case "scan-history", "history":
		on, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: %q", key, value)
		}
		return func(ctx context.Context, s *store.SettingsStore) error {
			return s.SetScanHistoryEnabled(ctx, on)
		}, nil
	default:
		return nil, fmt.Errorf("unknown setting: %s", key)
	}
}
