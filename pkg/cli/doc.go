// Package cli provides helpers shared by the pulse commands: error types,
// table output in text, JSON and CSV, and signal handling.
//
//	table := &cli.Table{
//	    Headers: []string{"NAME", "AVAILABILITY"},
//	    Rows:    [][]string{{"claude", "healthy"}},
//	    Records: descriptors,
//	}
//	cli.NewFormatter(cli.FormatText).FormatTo(os.Stdout, table)
//
// For graceful shutdown on SIGINT/SIGTERM:
//
//	ctx := cli.SetupSignalHandler(context.Background())
package cli
