package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"kanban-cli/internal/config"
)

func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration and the current directory's link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return writeErr(cmd, err)
			}
			path, _ := config.Path()

			var b strings.Builder
			b.WriteString("Config: " + path + "\n")
			if cfg.Configured() {
				fmt.Fprintf(&b, "  API URL: %s\n", cfg.APIURL)
			} else {
				b.WriteString("  API URL: (not configured)\n")
			}
			if cfg.APIKey != "" {
				b.WriteString("  API key: (set)\n")
			} else {
				b.WriteString("  API key: (not set)\n")
			}
			b.WriteString("\n")

			data := map[string]any{
				"config":      path,
				"api_url":     cfg.APIURL,
				"api_key_set": cfg.APIKey != "",
				"dir":         app.Dir,
			}
			l, linkedDir, ok := cfg.LinkFor(app.Dir)
			if ok {
				data["link"] = map[string]any{"dir": linkedDir, "project_id": l.ProjectID, "column_id": l.ColumnID}
				fmt.Fprintf(&b, "'%s' is linked to project %d", linkedDir, l.ProjectID)
				if l.ColumnID != 0 {
					fmt.Fprintf(&b, " (default column %d)", l.ColumnID)
				}
			} else {
				b.WriteString("Current directory is not linked to any project.\nRun: rk link <project>")
			}
			return writeOut(cmd, app, data, b.String())
		},
	}
}
