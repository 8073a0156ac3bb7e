package table

import (
	"fmt"
)

// Column types supported by staged fragments. They map onto SQLite
// storage classes; importers fold vendor-specific type names into this
// set when landing rows.
const (
	TypeString = "string"
	TypeInt    = "int"
	TypeFloat  = "float"
	TypeBool   = "bool"
)

// Column is one named, typed column of a fragment schema. Order is
// significant: the schema hash covers the ordered (name, type) list.
type Column struct {
	Name string
	Type string
}

// storageType maps a column type to its SQLite column type.
func storageType(t string) (string, error) {
	switch t {
	case TypeString:
		return "TEXT", nil
	case TypeInt, TypeBool:
		return "INTEGER", nil
	case TypeFloat:
		return "REAL", nil
	default:
		return "", fmt.Errorf("unknown column type %q", t)
	}
}

// Fragment is one staged unit of tabular data inside a Store. Fragments
// are created by the dispatcher (staged inputs) or by the user function
// (outputs); both paths assign a run-unique index at creation time.
type Fragment struct {
	store   *Store
	name    string
	index   uint64
	columns []Column
	rows    int64
	hash    string
}

// Name returns the fragment's staging table name.
func (f *Fragment) Name() string { return f.name }

// Index returns the run-unique index assigned at creation.
func (f *Fragment) Index() uint64 { return f.index }

// Columns returns the ordered column schema.
func (f *Fragment) Columns() []Column { return f.columns }

// RowCount returns the number of rows appended so far.
func (f *Fragment) RowCount() int64 { return f.rows }

// SchemaHash returns the content-addressed hash of the schema.
func (f *Fragment) SchemaHash() string { return f.hash }

// Meta returns the materialized metadata for this fragment under its
// current name.
func (f *Fragment) Meta() Meta {
	return Meta{
		Table:       f.name,
		ColumnCount: len(f.columns),
		RowCount:    f.rows,
		SchemaHash:  f.hash,
	}
}

// Meta is the materialized metadata of a produced table. It is the only
// information the response envelope carries for a table with data.
type Meta struct {
	Table       string
	ColumnCount int
	RowCount    int64
	SchemaHash  string
}

// Validate reports whether the metadata record is complete. An
// incomplete record on a produced table indicates an inconsistency
// between the execution layer and the response writer, which callers
// treat as fatal.
func (m Meta) Validate() error {
	if m.Table == "" {
		return fmt.Errorf("table metadata missing name")
	}
	if m.ColumnCount <= 0 {
		return fmt.Errorf("table %q metadata missing column count", m.Table)
	}
	if m.RowCount < 0 {
		return fmt.Errorf("table %q metadata has negative row count", m.Table)
	}
	if m.SchemaHash == "" {
		return fmt.Errorf("table %q metadata missing schema hash", m.Table)
	}
	return nil
}
