package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tabsdata/td-go/internal/envelope"
)

// ResponseOptions holds flags for the response command.
type ResponseOptions struct {
	*RootOptions
}

// responseEntry is one reported output of a response envelope.
type responseEntry struct {
	Table      string `json:"table"`
	HasData    bool   `json:"has_data"`
	Columns    int    `json:"columns,omitempty"`
	Rows       int64  `json:"rows,omitempty"`
	SchemaHash string `json:"schema_hash,omitempty"`
}

// NewResponseCommand creates the response command.
func NewResponseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResponseOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "response <response.yaml>",
		Short: "Parse and summarize a response envelope",
		Long: `Parse a response envelope and report each output entry.

Example:
  tdworker response resp.yaml
  tdworker response resp.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return summarizeResponse(opts, args[0], cmd)
		},
	}

	return cmd
}

func summarizeResponse(opts *ResponseOptions, path string, cmd *cobra.Command) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	resp, err := envelope.ParseResponse(path)
	if err != nil {
		_ = out.Error("PARSE", err.Error())
		return WrapExitError(ExitCommandError, "invalid response envelope", err)
	}

	entries := make([]responseEntry, len(resp.Output))
	for i, entry := range resp.Output {
		switch e := entry.(type) {
		case envelope.Data:
			entries[i] = responseEntry{
				Table:      e.Table,
				HasData:    true,
				Columns:    e.ColumnCount,
				Rows:       e.RowCount,
				SchemaHash: e.SchemaHash,
			}
		case envelope.NoData:
			entries[i] = responseEntry{Table: e.Table}
		}
	}

	if opts.Format == "json" {
		return out.Success(entries)
	}
	lines := make([]string, len(entries))
	for i, e := range entries {
		if e.HasData {
			lines[i] = fmt.Sprintf("%s: %d columns, %d rows", e.Table, e.Columns, e.Rows)
		} else {
			lines[i] = fmt.Sprintf("%s: no data", e.Table)
		}
	}
	return out.Success(strings.Join(lines, "\n"))
}
