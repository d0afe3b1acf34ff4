package main

import (
	"fmt"
	"os"

	"ipmitree/internal/config"
	"ipmitree/internal/debug"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// flagKeys maps CLI flags onto config keys. Only flags the user set are
// passed as overrides, so config files and the environment still apply.
var flagKeys = map[string]string{
	"refresh-interval": config.KeyRefreshInterval,
	"max-performed":    config.KeyRefreshMaxPerformed,
	"max-examined":     config.KeyRefreshMaxExamined,
	"visible-only":     config.KeyRefreshVisibleOnly,
	"shutdown-timeout": config.KeyShutdownTimeout,
	"log-events":       config.KeyLogEvents,
	"full-events":      config.KeyLogFullEvents,
	"tree-name-width":  config.KeyTreeNameWidth,
	"inventory":        config.KeyInventoryPath,
	"scenario":         config.KeyScenarioPath,
	"metrics-addr":     config.KeyMetricsAddr,
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ipmitree",
		Short: "ipmitree is a severity dashboard for IPMI resource trees",
		Long: `ipmitree keeps a live hierarchy of IPMI domains, entities, MCs and sensors,
rolls condition counts up to every ancestor and colors each node by the worst
condition beneath it.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			enabled, _ := cmd.Flags().GetBool("debug")
			if err := debug.Init(enabled); err != nil {
				return fmt.Errorf("init debug log: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			debug.Close()
		},
	}

	pf := root.PersistentFlags()
	pf.Bool("debug", false, "Write a debug log to ~/.ipmitree/debug.log")
	pf.String("config", "", "Project config file (default: discover .ipmitree/config.yaml)")
	pf.Duration("refresh-interval", config.DefaultRefreshInterval, "Period between refresh scheduler steps")
	pf.Int("max-performed", config.DefaultMaxPerformed, "Refresh invocations allowed per step")
	pf.Int("max-examined", config.DefaultMaxExamined, "Nodes examined per step")
	pf.Bool("visible-only", true, "Refresh only nodes whose ancestors are expanded (run ignores it unless set)")
	pf.Duration("shutdown-timeout", 0, "Give up waiting for domains to close after this long (0 waits forever)")
	pf.Bool("log-events", false, "Log every monitoring event")
	pf.Bool("full-events", false, "Include full detail in logged events")
	pf.Int("tree-name-width", config.DefaultTreeNameWidth, "Width of the name column")
	pf.String("inventory", "", "SQLite inventory to load at startup")
	pf.String("scenario", "", "YAML scenario to simulate")
	pf.String("metrics-addr", "", "Serve Prometheus metrics on this address (run only)")

	root.AddCommand(newUICmd(), newRunCmd(), newVersionCmd())
	return root
}

// loadSettings resolves configuration with the flags the user set
// layered on top.
func loadSettings(cmd *cobra.Command) (config.Settings, error) {
	overrides := map[string]any{}
	cmd.Flags().Visit(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return
		}
		overrides[key] = flagValue(cmd.Flags(), f)
	})

	opts := []config.Option{config.WithOverrides(overrides)}
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		opts = append(opts, config.WithProjectConfig(path))
	}
	return config.Load(opts...)
}

func flagValue(flags *pflag.FlagSet, f *pflag.Flag) any {
	switch f.Value.Type() {
	case "duration":
		v, _ := flags.GetDuration(f.Name)
		return v
	case "int":
		v, _ := flags.GetInt(f.Name)
		return v
	case "bool":
		v, _ := flags.GetBool(f.Name)
		return v
	}
	return f.Value.String()
}

// Execute runs the root command.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
