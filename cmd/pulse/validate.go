package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"mercator-hq/pulse/pkg/cli"
	"mercator-hq/pulse/pkg/config"
)

var validateFlags struct {
	format string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Load a configuration file, apply defaults and PULSE_* environment
overrides, and report every validation error at once.

Examples:
  # Validate the default config
  pulse validate

  # Validate and list the backend chain as JSON
  pulse validate --config /etc/pulse/config.yaml --format json`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateFlags.format, "format", "text", "output format: text, json, csv")
}

type backendSummary struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Model    string `json:"model"`
	Priority int    `json:"priority"`
}

func validateConfig(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(validateFlags.format)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		var verr config.ValidationError
		if errors.As(err, &verr) {
			for _, fe := range verr.Errors {
				fmt.Fprintf(out, "✗ %s: %s\n", fe.Field, fe.Message)
			}
			return cli.NewConfigError("", fmt.Sprintf("%d validation error(s) in %s", len(verr.Errors), cfgFile))
		}
		return cli.NewConfigError("", err.Error())
	}

	if format == cli.FormatText {
		fmt.Fprintf(out, "✓ Configuration valid: %s\n", cfgFile)
		fmt.Fprintf(out, "  Listen address: %s\n", cfg.Server.ListenAddress)
		fmt.Fprintf(out, "  Rate limit: %d per %s (%s store)\n", cfg.Limits.DefaultLimit, cfg.Limits.DefaultWindow, cfg.Limits.Store)
		fmt.Fprintln(out)
	}

	table := &cli.Table{Headers: []string{"NAME", "TYPE", "MODEL", "PRIORITY"}}
	summaries := make([]backendSummary, 0, len(cfg.Backends))
	for _, b := range cfg.Backends {
		summaries = append(summaries, backendSummary{Name: b.Name, Type: b.Type, Model: b.Model, Priority: b.Priority})
		table.Rows = append(table.Rows, []string{b.Name, b.Type, b.Model, strconv.Itoa(b.Priority)})
	}
	table.Records = summaries

	return cli.NewFormatter(format).FormatTo(out, table)
}
