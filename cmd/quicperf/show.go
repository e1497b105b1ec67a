package main

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"quicperf/internal/report"
)

type showOptions struct {
	fields []string
	json   bool
}

func newShowCmd() *cobra.Command {
	opts := &showOptions{}

	cmd := &cobra.Command{
		Use:   "show <run-dir>",
		Short: "Print the headline statistics of a finished run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := report.LoadSummary(args[0])
			if err != nil {
				return &exitError{code: ExitError, err: err}
			}

			out := cmd.OutOrStdout()
			if len(opts.fields) == 0 {
				report.FormatSummary(out, summary)
				return nil
			}

			values, err := summary.Query(opts.fields...)
			if err != nil {
				return &exitError{code: ExitError, err: err}
			}
			if opts.json {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(values)
			}
			keys := make([]string, 0, len(values))
			for k := range values {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(out, "%s = %v\n", k, values[k])
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&opts.fields, "field", "f", nil, "JSONPath to print from report.json, e.g. $.kinds[0].stats.median (repeatable)")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print selected fields as JSON")
	return cmd
}
