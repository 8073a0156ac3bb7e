package fndef

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// CompileError represents a declaration compile error with source
// position when available.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// LoadFile compiles a declaration file. The file must define exactly one
// function under the top-level "function" struct:
//
//	function: load_users: {
//	    inputs: [{kind: "table"}, {kind: "sql", driver: "sqlite3", ...}]
//	    outputs: ["users"]
//	}
func LoadFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read declaration: %w", err)
	}
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	fns := v.LookupPath(cue.ParsePath("function"))
	if !fns.Exists() {
		return nil, &CompileError{Field: "function", Message: "declaration has no function struct"}
	}
	iter, err := fns.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var def *Definition
	for iter.Next() {
		if def != nil {
			return nil, &CompileError{Field: "function",
				Message: "declaration defines more than one function"}
		}
		def, err = Compile(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
	}
	if def == nil {
		return nil, &CompileError{Field: "function", Message: "declaration defines no function"}
	}
	return def, nil
}

// Compile parses one function struct into a Definition.
func Compile(name string, v cue.Value) (*Definition, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	def := &Definition{Name: name}

	if desc := v.LookupPath(cue.ParsePath("description")); desc.Exists() {
		s, err := desc.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		def.Description = s
	}

	inputs, err := parseInputs(v)
	if err != nil {
		return nil, err
	}
	def.Inputs = inputs

	outputs, err := parseStringList(v.LookupPath(cue.ParsePath("outputs")), "outputs")
	if err != nil {
		return nil, err
	}
	if len(outputs) == 0 {
		return nil, &CompileError{Field: "outputs", Message: "at least one output is required", Pos: v.Pos()}
	}
	seen := make(map[string]bool, len(outputs))
	for _, o := range outputs {
		if seen[o] {
			return nil, &CompileError{Field: "outputs",
				Message: fmt.Sprintf("duplicate output %q", o), Pos: v.Pos()}
		}
		seen[o] = true
	}
	def.Outputs = outputs

	if iv := v.LookupPath(cue.ParsePath("initial_values")); iv.Exists() {
		values, err := parseStringMap(iv, "initial_values")
		if err != nil {
			return nil, err
		}
		def.InitialValues = values
	}
	if def.UseInitialValues, err = parseBool(v, "use_initial_values"); err != nil {
		return nil, err
	}
	if def.ReturnsOffsets, err = parseBool(v, "returns_offsets"); err != nil {
		return nil, err
	}
	if dest := v.LookupPath(cue.ParsePath("destination")); dest.Exists() {
		s, err := dest.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		def.Destination = s
	}
	return def, nil
}

func parseInputs(v cue.Value) ([]InputSpec, error) {
	inputsVal := v.LookupPath(cue.ParsePath("inputs"))
	if !inputsVal.Exists() {
		return nil, nil // inputs are optional: a pure producer has none
	}
	iter, err := inputsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var inputs []InputSpec
	for i := 0; iter.Next(); i++ {
		spec, err := parseInput(iter.Value(), i)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, spec)
	}
	return inputs, nil
}

func parseInput(v cue.Value, pos int) (InputSpec, error) {
	field := fmt.Sprintf("inputs[%d]", pos)
	var spec InputSpec

	kindVal := v.LookupPath(cue.ParsePath("kind"))
	if !kindVal.Exists() {
		return spec, &CompileError{Field: field, Message: "kind is required", Pos: v.Pos()}
	}
	kind, err := kindVal.String()
	if err != nil {
		return spec, formatCUEError(err)
	}
	spec.Kind = kind

	getStr := func(name string) (string, error) {
		val := v.LookupPath(cue.ParsePath(name))
		if !val.Exists() {
			return "", nil
		}
		return val.String()
	}
	if spec.Driver, err = getStr("driver"); err != nil {
		return spec, formatCUEError(err)
	}
	if spec.DSN, err = getStr("dsn"); err != nil {
		return spec, formatCUEError(err)
	}
	if spec.DSNEnv, err = getStr("dsn_env"); err != nil {
		return spec, formatCUEError(err)
	}
	if spec.Plugin, err = getStr("plugin"); err != nil {
		return spec, formatCUEError(err)
	}
	if spec.Queries, err = parseStringList(v.LookupPath(cue.ParsePath("queries")), field+".queries"); err != nil {
		return spec, err
	}
	if spec.URIs, err = parseStringList(v.LookupPath(cue.ParsePath("uris")), field+".uris"); err != nil {
		return spec, err
	}
	if spec.List, err = parseBool(v, "list"); err != nil {
		return spec, err
	}
	if spec.Chunks, err = parseInt(v, "chunks"); err != nil {
		return spec, err
	}
	if spec.Chunks < 0 {
		return spec, &CompileError{Field: field, Message: "chunks must not be negative", Pos: v.Pos()}
	}

	switch spec.Kind {
	case KindTable:
	case KindSQL:
		if spec.Driver == "" {
			return spec, &CompileError{Field: field, Message: "sql input requires driver", Pos: v.Pos()}
		}
		if spec.DSN == "" && spec.DSNEnv == "" {
			return spec, &CompileError{Field: field, Message: "sql input requires dsn or dsn_env", Pos: v.Pos()}
		}
		if len(spec.Queries) == 0 {
			return spec, &CompileError{Field: field, Message: "sql input requires at least one query", Pos: v.Pos()}
		}
	case KindFile:
		if len(spec.URIs) == 0 {
			return spec, &CompileError{Field: field, Message: "file input requires at least one uri", Pos: v.Pos()}
		}
	case KindPlugin:
		if spec.Plugin == "" {
			return spec, &CompileError{Field: field, Message: "plugin input requires a plugin name", Pos: v.Pos()}
		}
	default:
		return spec, &CompileError{Field: field,
			Message: fmt.Sprintf("unknown input kind %q", spec.Kind), Pos: v.Pos()}
	}
	return spec, nil
}

func parseStringList(v cue.Value, field string) ([]string, error) {
	if !v.Exists() {
		return nil, nil
	}
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{Field: field, Message: "expected a string", Pos: iter.Value().Pos()}
		}
		out = append(out, s)
	}
	return out, nil
}

func parseStringMap(v cue.Value, field string) (map[string]string, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	out := make(map[string]string)
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{Field: field + "." + iter.Label(),
				Message: "expected a string value", Pos: iter.Value().Pos()}
		}
		out[iter.Label()] = s
	}
	return out, nil
}

func parseInt(v cue.Value, name string) (int, error) {
	val := v.LookupPath(cue.ParsePath(name))
	if !val.Exists() {
		return 0, nil
	}
	i, err := val.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return int(i), nil
}

func parseBool(v cue.Value, name string) (bool, error) {
	val := v.LookupPath(cue.ParsePath(name))
	if !val.Exists() {
		return false, nil
	}
	b, err := val.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

// formatCUEError converts a CUE error into a CompileError with the
// first available source position.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	firstErr := errs[0]
	positions := cueerrors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{Field: "cue", Message: firstErr.Error(), Pos: positions[0]}
	}
	return &CompileError{Field: "cue", Message: firstErr.Error()}
}
