package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"ipmitree/internal/config"
	"ipmitree/internal/debug"
	"ipmitree/internal/shutdown"
	"ipmitree/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// stdinIsTerminal is replaced in tests.
var stdinIsTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

var errNotInteractive = errors.New("ui needs an interactive terminal; use \"ipmitree run\" for headless mode")

type programRunner interface {
	Run() (tea.Model, error)
}

type programFactory func(*ui.App) programRunner

func newUICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Open the interactive dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !stdinIsTerminal() {
				return errNotInteractive
			}
			settings, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			format, _ := cmd.Flags().GetString("output-format")
			res, err := runDashboard(cmd.Context(), settings, format, func(app *ui.App) programRunner {
				return tea.NewProgram(app, tea.WithAltScreen())
			})
			if err != nil {
				return err
			}
			if res != nil {
				printShutdownSummary(cmd.OutOrStdout(), *res)
			}
			return nil
		},
	}
	cmd.Flags().String("output-format", "rich", "Detail pane markdown style (rich, light, plain)")
	return cmd
}

// runDashboard runs the bubbletea program until the user quits. It returns
// the shutdown result when the user quit through the close barrier.
func runDashboard(ctx context.Context, settings config.Settings, format string, factory programFactory) (*shutdown.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := newSession(ctx, settings)
	if err != nil {
		return nil, err
	}
	defer s.close()
	if err := s.seed(); err != nil {
		debug.Logf("ui: %v", err)
	}

	app, err := ui.NewApp(ui.Config{
		Engine:       s.engine,
		Events:       s.events(),
		OutputFormat: format,
		Version:      Version,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize UI: %w", err)
	}
	defer app.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if s.sim != nil {
		go func() {
			if err := s.sim.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				debug.Logf("ui: scenario stopped: %v", err)
			}
		}()
	}

	if factory == nil {
		return nil, errors.New("program factory is nil")
	}
	prog := factory(app)
	if prog == nil {
		return nil, errors.New("program is nil")
	}
	if _, err := prog.Run(); err != nil {
		return nil, fmt.Errorf("run UI: %w", err)
	}
	if res, ok := app.Result(); ok {
		return &res, nil
	}
	return nil, nil
}
