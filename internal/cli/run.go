package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tabsdata/td-go/internal/worker"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Request    string
	Definition string
	Response   string
	WorkDir    string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions, w *worker.Worker) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one function run",
		Long: `Execute one function run end to end.

The worker parses the request envelope, compiles the function
declaration, stages every declared input, invokes the registered
function and writes the response envelope.

Example:
  tdworker run --request req.yaml --fndef fn.cue --response resp.yaml
  tdworker run --request req.yaml --fndef fn.cue --response resp.yaml --work-dir /tmp/run --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(opts, w, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Request, "request", "", "path to the request envelope (required)")
	cmd.Flags().StringVar(&opts.Definition, "fndef", "", "path to the CUE function declaration (required)")
	cmd.Flags().StringVar(&opts.Response, "response", "", "path to write the response envelope (required)")
	cmd.Flags().StringVar(&opts.WorkDir, "work-dir", "", "working directory for staged data (temporary when unset)")
	_ = cmd.MarkFlagRequired("request")
	_ = cmd.MarkFlagRequired("fndef")
	_ = cmd.MarkFlagRequired("response")

	return cmd
}

func runWorker(opts *RunOptions, w *worker.Worker, cmd *cobra.Command) error {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	log := slog.New(handler)
	w.Logger = log

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			log.Info("received signal, aborting run", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	cfg := worker.RunConfig{
		RequestPath:    opts.Request,
		DefinitionPath: opts.Definition,
		ResponsePath:   opts.Response,
		WorkDir:        opts.WorkDir,
	}
	if err := w.Run(ctx, cfg); err != nil {
		return WrapExitError(ExitFailure, "run failed", err)
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	return out.Success(fmt.Sprintf("response written to %s", opts.Response))
}
