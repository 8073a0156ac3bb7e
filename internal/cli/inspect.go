package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tabsdata/td-go/internal/envelope"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
}

// inspectResult is the JSON payload for an inspected request envelope.
type inspectResult struct {
	ExecutionID   string   `json:"execution_id"`
	FunctionRunID string   `json:"function_run_id"`
	TransactionID string   `json:"transaction_id,omitempty"`
	Inputs        []string `json:"inputs"`
	Outputs       []string `json:"outputs"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect <request.yaml>",
		Short: "Parse and summarize a request envelope",
		Long: `Parse a request envelope and report its identifiers and table shape.

Example:
  tdworker inspect req.yaml
  tdworker inspect req.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return inspectRequest(opts, args[0], cmd)
		},
	}

	return cmd
}

func inspectRequest(opts *InspectOptions, path string, cmd *cobra.Command) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	req, err := envelope.ParseRequest(path)
	if err != nil {
		_ = out.Error("PARSE", err.Error())
		return WrapExitError(ExitCommandError, "invalid request envelope", err)
	}

	inputs := make([]string, len(req.Input))
	for i, entry := range req.Input {
		inputs[i] = describeInput(entry)
	}
	outputs := make([]string, len(req.Output))
	for i, ref := range req.Output {
		outputs[i] = ref.Name
	}

	if opts.Format == "json" {
		return out.Success(inspectResult{
			ExecutionID:   req.ExecutionID,
			FunctionRunID: req.FunctionRunID,
			TransactionID: req.TransactionID,
			Inputs:        inputs,
			Outputs:       outputs,
		})
	}
	return out.Success(fmt.Sprintf("execution %s run %s: inputs [%s], outputs [%s]",
		req.ExecutionID, req.FunctionRunID,
		strings.Join(inputs, ", "), strings.Join(outputs, ", ")))
}

func describeInput(entry envelope.InputEntry) string {
	switch e := entry.(type) {
	case *envelope.TableRef:
		if e.HasData() {
			return e.Name
		}
		return e.Name + " (no data)"
	case *envelope.TableVersions:
		return fmt.Sprintf("%s (%d versions)", e.Versions[0].Name, len(e.Versions))
	default:
		return fmt.Sprintf("%T", entry)
	}
}
