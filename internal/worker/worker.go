package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tabsdata/td-go/internal/dispatch"
	"github.com/tabsdata/td-go/internal/envelope"
	"github.com/tabsdata/td-go/internal/fndef"
	"github.com/tabsdata/td-go/internal/importer"
	"github.com/tabsdata/td-go/internal/offsets"
	"github.com/tabsdata/td-go/internal/table"
)

// Worker executes one function run end to end: it parses the request
// envelope, compiles the declaration, stages inputs, invokes the bound
// function and writes the response envelope.
type Worker struct {
	Registry *Registry
	Logger   *slog.Logger

	// Transports maps URI schemes to file-source transports beyond the
	// built-in local one.
	Transports map[string]importer.Transport

	// SourcePlugins and Destinations are looked up by the names used in
	// function declarations.
	SourcePlugins map[string]dispatch.SourcePlugin
	Destinations  map[string]dispatch.DestinationPlugin
}

// RunConfig locates the artifacts of one run.
type RunConfig struct {
	// RequestPath is the request envelope to execute.
	RequestPath string

	// DefinitionPath is the CUE function declaration.
	DefinitionPath string

	// ResponsePath is where the response envelope lands. The file is
	// written only after the run fully succeeds.
	ResponsePath string

	// WorkDir holds the staging store and fetched files. A temporary
	// directory is created when empty.
	WorkDir string
}

// Run executes the configured function run. Any failure aborts the run
// without writing a response envelope.
func (w *Worker) Run(ctx context.Context, cfg RunConfig) error {
	log := w.Logger
	if log == nil {
		log = slog.Default()
	}

	req, err := envelope.ParseRequest(cfg.RequestPath)
	if err != nil {
		return fmt.Errorf("parsing request: %w", err)
	}
	def, err := fndef.LoadFile(cfg.DefinitionPath)
	if err != nil {
		return fmt.Errorf("loading function declaration: %w", err)
	}
	fn, ok := w.Registry.Lookup(def.Name)
	if !ok {
		return &Error{Code: ErrCodeFunctionNotFound,
			Message: fmt.Sprintf("no function registered as %q", def.Name)}
	}
	if err := checkBinding(def, req); err != nil {
		return err
	}
	log.Info("starting run",
		"function", def.Name,
		"execution_id", req.ExecutionID,
		"function_run_id", req.FunctionRunID)

	workDir := cfg.WorkDir
	if workDir == "" {
		workDir, err = os.MkdirTemp("", "td-run-")
		if err != nil {
			return fmt.Errorf("creating work directory: %w", err)
		}
	}
	st, err := table.Open(filepath.Join(workDir, "staging.db"))
	if err != nil {
		return fmt.Errorf("opening staging store: %w", err)
	}
	defer st.Close()

	rc := &dispatch.RunContext{
		Request: req,
		Store:   st,
		WorkDir: workDir,
		Indexes: dispatch.NewIndexGenerator(),
		Logger:  log,
	}
	dsp, err := dispatch.New(rc)
	if err != nil {
		return err
	}

	state, err := w.loadOffsets(ctx, rc, def)
	if err != nil {
		return err
	}
	rc.Offsets = state

	sources, err := w.buildSources(def, req)
	if err != nil {
		return err
	}
	slots, err := dsp.Dispatch(ctx, sources)
	if err != nil {
		return err
	}

	raw, err := fn.Run(ctx, rc, slots)
	if err != nil {
		return fmt.Errorf("running %s: %w", def.Name, err)
	}
	if state.ReturnsValues() {
		raw, err = consumeOffsetPayload(raw, state)
		if err != nil {
			return err
		}
	}
	results, err := coerceResults(raw, len(req.Output))
	if err != nil {
		return err
	}
	resp, err := buildResponse(ctx, rc, results, state)
	if err != nil {
		return err
	}

	if def.Destination != "" {
		if err := w.stream(ctx, rc, def.Destination, results); err != nil {
			return err
		}
	}
	if err := resp.WriteFile(cfg.ResponsePath); err != nil {
		return fmt.Errorf("writing response: %w", err)
	}
	log.Info("run complete", "function", def.Name, "outputs", len(resp.Output))
	return nil
}

// checkBinding verifies the declaration and the envelope agree on shape
// before anything is staged.
func checkBinding(def *fndef.Definition, req *envelope.Request) error {
	if len(def.Inputs) != len(req.Input) {
		return &Error{Code: ErrCodeBadBinding,
			Message: fmt.Sprintf("declaration has %d inputs, envelope carries %d", len(def.Inputs), len(req.Input))}
	}
	if len(def.Outputs) != len(req.Output) {
		return &Error{Code: ErrCodeBadBinding,
			Message: fmt.Sprintf("declaration has %d outputs, envelope carries %d", len(def.Outputs), len(req.Output))}
	}
	return nil
}

// loadOffsets stages the system input table, if present, and builds the
// run's incremental-value state from it.
func (w *Worker) loadOffsets(ctx context.Context, rc *dispatch.RunContext, def *fndef.Definition) (*offsets.State, error) {
	opts := offsets.Options{
		Declared:      def.InitialValues,
		UseDeclared:   def.UseInitialValues,
		ReturnsValues: def.ReturnsOffsets,
	}
	if out := rc.Request.SystemOutputRef(); out != nil {
		opts.OutputTable = out.Name
	}

	ref := rc.Request.SystemInputRef()
	if ref == nil {
		return offsets.New(opts), nil
	}
	slot, err := dispatch.TableSource{Entry: ref}.Stage(ctx, rc)
	if err != nil {
		return nil, fmt.Errorf("staging system input: %w", err)
	}
	return offsets.Load(ctx, slot.Fragment(), opts)
}

// buildSources pairs the declared inputs with the envelope entries.
// Table inputs consume the envelope entry at their own position; every
// other kind is driven by the declaration alone, the envelope entry
// being a placeholder.
func (w *Worker) buildSources(def *fndef.Definition, req *envelope.Request) ([]dispatch.Source, error) {
	sources := make([]dispatch.Source, 0, len(def.Inputs))
	for i, spec := range def.Inputs {
		switch spec.Kind {
		case fndef.KindTable:
			sources = append(sources, dispatch.TableSource{Entry: req.Input[i]})
		case fndef.KindSQL:
			dsn := spec.DSN
			if dsn == "" && spec.DSNEnv != "" {
				dsn = os.Getenv(spec.DSNEnv)
			}
			if dsn == "" {
				return nil, &Error{Code: ErrCodeBadBinding,
					Message: fmt.Sprintf("input %d: no dsn and %s is unset", i, spec.DSNEnv)}
			}
			sources = append(sources, importer.SQLSource{
				Driver:  spec.Driver,
				DSN:     dsn,
				Queries: spec.Queries,
				List:    spec.List,
			})
		case fndef.KindFile:
			sources = append(sources, importer.FileSource{
				URIs:       spec.URIs,
				Transports: w.Transports,
				List:       spec.List,
			})
		case fndef.KindPlugin:
			p, ok := w.SourcePlugins[spec.Plugin]
			if !ok {
				return nil, &Error{Code: ErrCodeBadBinding,
					Message: fmt.Sprintf("input %d: no source plugin registered as %q", i, spec.Plugin)}
			}
			sources = append(sources, dispatch.PluginSource{Plugin: p, Expect: spec.Chunks, List: spec.List})
		default:
			return nil, &Error{Code: ErrCodeBadBinding,
				Message: fmt.Sprintf("input %d: unknown kind %q", i, spec.Kind)}
		}
	}
	return sources, nil
}

// stream hands the published outputs to the declared destination plugin.
// Streaming happens before the response is written so a flush failure
// leaves no response behind.
func (w *Worker) stream(ctx context.Context, rc *dispatch.RunContext, name string, results []Result) error {
	dest, ok := w.Destinations[name]
	if !ok {
		return &Error{Code: ErrCodeBadBinding,
			Message: fmt.Sprintf("no destination plugin registered as %q", name)}
	}
	frags := make([]*table.Fragment, 0, len(results))
	for _, res := range results {
		frags = append(frags, res.latest())
	}
	return dest.Stream(ctx, rc, frags...)
}
