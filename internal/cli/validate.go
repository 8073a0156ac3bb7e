package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tabsdata/td-go/internal/fndef"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
}

// validateResult is the JSON payload for a validated declaration.
type validateResult struct {
	Name    string   `json:"name"`
	Inputs  []string `json:"inputs"`
	Outputs []string `json:"outputs"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <fndef.cue>",
		Short: "Validate a function declaration",
		Long: `Compile a CUE function declaration and report its shape.

Example:
  tdworker validate fn.cue
  tdworker validate fn.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateDefinition(opts, args[0], cmd)
		},
	}

	return cmd
}

func validateDefinition(opts *ValidateOptions, path string, cmd *cobra.Command) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	def, err := fndef.LoadFile(path)
	if err != nil {
		_ = out.Error("COMPILE", err.Error())
		return WrapExitError(ExitCommandError, "invalid declaration", err)
	}

	kinds := make([]string, len(def.Inputs))
	for i, in := range def.Inputs {
		kinds[i] = in.Kind
	}
	if opts.Format == "json" {
		return out.Success(validateResult{Name: def.Name, Inputs: kinds, Outputs: def.Outputs})
	}
	return out.Success(fmt.Sprintf("%s: inputs [%s], outputs [%s]",
		def.Name, strings.Join(kinds, ", "), strings.Join(def.Outputs, ", ")))
}
