package cli

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"kanban-cli/internal/api"
	"kanban-cli/internal/config"
)

func newInitCmd(app *App) *cobra.Command {
	var setURL, setKey string

	cmd := &cobra.Command{
		Use:   "init [url] [api-key]",
		Short: "Save the board service URL and API key",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFile()
			if err != nil {
				return writeErr(cmd, err)
			}
			switch {
			case len(args) == 2:
				cfg.APIURL, cfg.APIKey = args[0], args[1]
			case len(args) == 0 && (setURL != "" || setKey != ""):
				if setURL != "" {
					cfg.APIURL = setURL
				}
				if setKey != "" {
					cfg.APIKey = setKey
				}
			default:
				return writeErr(cmd, errors.New("usage: rk init <url> <api-key> | rk init --url <url> | rk init --key <api-key>"))
			}
			cfg.APIURL = strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
			if err := checkURL(cfg.APIURL); err != nil {
				return writeErr(cmd, err)
			}
			if err := config.Save(cfg); err != nil {
				return writeErr(cmd, err)
			}
			path, _ := config.Path()
			return writeOut(cmd, app, map[string]any{
				"config":      path,
				"api_url":     cfg.APIURL,
				"api_key_set": cfg.APIKey != "",
			}, "Configuration saved. API URL: "+cfg.APIURL)
		},
	}

	cmd.Flags().StringVar(&setURL, "url", "", "Set only the API URL")
	cmd.Flags().StringVar(&setKey, "key", "", "Set only the API key")
	return cmd
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid API URL %q (want http(s)://host[:port])", raw)
	}
	return nil
}

func newCheckCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check that rk is configured and the service is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return writeErr(cmd, err)
			}
			if !cfg.Configured() {
				return writeErr(cmd, errNotConfigured)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			client := api.New(cfg.APIURL, cfg.APIKey)
			client.Log = nil
			if err := client.Health(ctx); err != nil {
				return writeErr(cmd, fmt.Errorf("cannot connect to %s: %w", cfg.APIURL, err))
			}
			ps, err := client.ListProjects(ctx)
			if err != nil {
				return writeErr(cmd, fmt.Errorf("cannot list projects: %w", err))
			}
			return writeOut(cmd, app, map[string]any{"ok": true, "api_url": cfg.APIURL, "projects": len(ps)}, "ok")
		},
	}
}
