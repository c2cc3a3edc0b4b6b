package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"kanban-cli/internal/config"
	"kanban-cli/internal/format"
)

type App struct {
	Format  string
	Pretty  bool
	Verbose bool
	// Project overrides the directory link ("12" or a project name).
	Project string
	Policy  string
	// Dir is the directory links are resolved against; defaults to the working directory.
	Dir string
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "rk",
		Short:        "Kanban board CLI + TUI",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Point rk at the board service
  rk init http://localhost:3001 my-key

  # Bind this directory to a project, then add a task
  rk link "Website"
  rk tasks add "Fix header" --priority high

  # Open the interactive board
  rk board
`),
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if app.Format == "" {
			if cfg, err := config.Load(); err == nil {
				app.Format = cfg.Format
			}
		}
		f, err := format.Parse(app.Format)
		if err != nil {
			return writeErr(cmd, err)
		}
		app.Format = f
		if app.Dir == "" {
			wd, err := os.Getwd()
			if err != nil {
				return writeErr(cmd, err)
			}
			app.Dir = wd
		}
		return nil
	}

	cmd.PersistentFlags().StringVar(&app.Format, "format", "", "Output format (text|json|edn; default from config or RK_FORMAT)")
	cmd.PersistentFlags().BoolVar(&app.Pretty, "pretty", false, "Pretty-print JSON/EDN output")
	cmd.PersistentFlags().BoolVarP(&app.Verbose, "verbose", "v", false, "Debug logging on stderr")
	cmd.PersistentFlags().StringVarP(&app.Project, "project", "p", envOr("RK_PROJECT", ""), "Project id or name (overrides the directory link)")
	cmd.PersistentFlags().StringVar(&app.Policy, "policy", "", "Sort-key policy for moves (resequence|gap-insert)")
	cmd.PersistentFlags().StringVar(&app.Dir, "dir", "", "Directory to resolve links against (default: working directory)")

	cmd.AddCommand(newInitCmd(app))
	cmd.AddCommand(newCheckCmd(app))
	cmd.AddCommand(newLinkCmd(app))
	cmd.AddCommand(newUnlinkCmd(app))
	cmd.AddCommand(newStatusCmd(app))
	cmd.AddCommand(newProjectsCmd(app))
	cmd.AddCommand(newColumnsCmd(app))
	cmd.AddCommand(newTasksCmd(app))
	cmd.AddCommand(newBoardCmd(app))
	cmd.AddCommand(newDocsCmd(app))

	return cmd
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

// result is the output envelope: {"data": ...} for json/edn, text for humans.
type result struct {
	Data any    `json:"data"`
	text string
}

func (r result) Text() string { return r.text }

func writeOut(cmd *cobra.Command, app *App, data any, text string) error {
	return format.Write(cmd.OutOrStdout(), result{Data: data, text: text}, app.Format, app.Pretty)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
