package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/pulse/pkg/backends"
	"mercator-hq/pulse/pkg/backends/healthstore"
	"mercator-hq/pulse/pkg/cli"
	"mercator-hq/pulse/pkg/config"
	"mercator-hq/pulse/pkg/telemetry/logging"
)

var backendsFlags struct {
	snapshot string
	format   string
}

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "Show the last persisted backend health",
	Long: `Print the backend health snapshot written by a running server.

The snapshot path comes from health.snapshot_path in the configuration
unless --snapshot is given.

Examples:
  pulse backends
  pulse backends --snapshot /var/lib/pulse/health.db --format json`,
	RunE: showBackends,
}

func init() {
	rootCmd.AddCommand(backendsCmd)

	backendsCmd.Flags().StringVar(&backendsFlags.snapshot, "snapshot", "", "snapshot database path (overrides config)")
	backendsCmd.Flags().StringVar(&backendsFlags.format, "format", "text", "output format: text, json, csv")
}

func showBackends(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(backendsFlags.format)
	if err != nil {
		return err
	}

	path := backendsFlags.snapshot
	if path == "" {
		cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
		if err != nil {
			return cli.NewConfigError("", err.Error())
		}
		path = cfg.Health.SnapshotPath
	}
	if path == "" {
		return cli.NewConfigError("health.snapshot_path", "no snapshot database configured")
	}

	snapshots, err := healthstore.Open(path, logging.Discard())
	if err != nil {
		return cli.NewCommandError("backends", err)
	}
	defer snapshots.Close()

	descriptors, err := snapshots.Load(cmd.Context())
	if err != nil {
		return cli.NewCommandError("backends", err)
	}

	if len(descriptors) == 0 && format == cli.FormatText {
		fmt.Fprintln(cmd.OutOrStdout(), "No backend health recorded.")
		return nil
	}

	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), descriptorTable(descriptors))
}

func descriptorTable(descriptors []backends.Descriptor) *cli.Table {
	table := &cli.Table{
		Headers: []string{"NAME", "AVAILABILITY", "FAILURES", "LAST CHECKED", "LAST ERROR"},
		Records: descriptors,
	}
	for _, d := range descriptors {
		checked := "-"
		if !d.LastCheckedAt.IsZero() {
			checked = d.LastCheckedAt.UTC().Format(time.RFC3339)
		}
		table.Rows = append(table.Rows, []string{
			d.Name,
			d.Availability.String(),
			strconv.Itoa(d.ConsecutiveFailures),
			checked,
			d.LastError,
		})
	}
	return table
}
