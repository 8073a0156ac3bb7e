package table

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// ErrNotFound is returned by Lookup when no fragment exists under the
// requested name.
var ErrNotFound = errors.New("fragment not found")

// Store is the SQLite-backed staging database for one function run.
// Every fragment staged or produced during the run lives here; the
// worker process owns the store exclusively for one invocation.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the staging database at the given path.
// Applies required pragmas and the catalog schema automatically.
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open staging database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to staging database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the filesystem path of the staging database.
func (s *Store) Path() string { return s.path }

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return nil
}

// validName restricts fragment/table names to a conservative character
// set. Names come from envelopes and declarations, never from row data.
var validName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.~-]*$`)

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Create allocates a new fragment with the given name, run-unique index
// and ordered column schema, and creates its backing data table.
func (s *Store) Create(ctx context.Context, name string, idx uint64, cols []Column) (*Fragment, error) {
	if !validName.MatchString(name) {
		return nil, fmt.Errorf("create fragment: invalid name %q", name)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("create fragment %q: empty schema", name)
	}
	seen := make(map[string]bool, len(cols))
	defs := make([]string, len(cols))
	for i, c := range cols {
		if !validName.MatchString(c.Name) {
			return nil, fmt.Errorf("create fragment %q: invalid column name %q", name, c.Name)
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("create fragment %q: duplicate column %q", name, c.Name)
		}
		seen[c.Name] = true
		st, err := storageType(c.Type)
		if err != nil {
			return nil, fmt.Errorf("create fragment %q: %w", name, err)
		}
		defs[i] = fmt.Sprintf("%s %s", quoteIdent(c.Name), st)
	}

	hash, err := SchemaHash(cols)
	if err != nil {
		return nil, fmt.Errorf("create fragment %q: %w", name, err)
	}
	colsJSON, err := marshalColumns(cols)
	if err != nil {
		return nil, fmt.Errorf("create fragment %q: %w", name, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("create fragment %q: %w", name, err)
	}
	defer tx.Rollback()

	ddl := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(name), strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return nil, fmt.Errorf("create fragment %q: %w", name, err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO fragments (name, idx, columns, row_count, schema_hash)
		VALUES (?, ?, ?, 0, ?)
	`, name, int64(idx), colsJSON, hash)
	if err != nil {
		return nil, fmt.Errorf("create fragment %q: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("create fragment %q: %w", name, err)
	}

	return &Fragment{store: s, name: name, index: idx, columns: cols, hash: hash}, nil
}

// Append inserts rows into the fragment. Each row must have exactly one
// value per schema column, in schema order.
func (f *Fragment) Append(ctx context.Context, rows ...[]any) error {
	if len(rows) == 0 {
		return nil
	}
	cols := make([]string, len(f.columns))
	marks := make([]string, len(f.columns))
	for i, c := range f.columns {
		cols[i] = quoteIdent(c.Name)
		marks[i] = "?"
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(f.name), strings.Join(cols, ", "), strings.Join(marks, ", "))

	tx, err := f.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append to %q: %w", f.name, err)
	}
	defer tx.Rollback()

	for i, row := range rows {
		if len(row) != len(f.columns) {
			return fmt.Errorf("append to %q: row %d has %d values, schema has %d columns",
				f.name, i, len(row), len(f.columns))
		}
		if _, err := tx.ExecContext(ctx, stmt, row...); err != nil {
			return fmt.Errorf("append to %q: row %d: %w", f.name, i, err)
		}
	}
	_, err = tx.ExecContext(ctx, `UPDATE fragments SET row_count = row_count + ? WHERE name = ?`,
		int64(len(rows)), f.name)
	if err != nil {
		return fmt.Errorf("append to %q: %w", f.name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append to %q: %w", f.name, err)
	}
	f.rows += int64(len(rows))
	return nil
}

// Lookup returns the fragment registered under name, or ErrNotFound.
func (s *Store) Lookup(ctx context.Context, name string) (*Fragment, error) {
	var idx, rowCount int64
	var colsJSON, hash string
	err := s.db.QueryRowContext(ctx, `
		SELECT idx, columns, row_count, schema_hash FROM fragments WHERE name = ?
	`, name).Scan(&idx, &colsJSON, &rowCount, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lookup %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup %q: %w", name, err)
	}
	cols, err := unmarshalColumns(colsJSON)
	if err != nil {
		return nil, fmt.Errorf("lookup %q: %w", name, err)
	}
	return &Fragment{store: s, name: name, index: uint64(idx), columns: cols, rows: rowCount, hash: hash}, nil
}

// Publish renames the fragment's backing table to the declared output
// name and returns the materialized metadata under that name. Publishing
// under the fragment's current name is a no-op rename.
func (s *Store) Publish(ctx context.Context, f *Fragment, asName string) (Meta, error) {
	if f.store != s {
		return Meta{}, fmt.Errorf("publish %q: fragment belongs to a different store", asName)
	}
	if !validName.MatchString(asName) {
		return Meta{}, fmt.Errorf("publish: invalid name %q", asName)
	}
	if f.name != asName {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return Meta{}, fmt.Errorf("publish %q: %w", asName, err)
		}
		defer tx.Rollback()

		rename := fmt.Sprintf("ALTER TABLE %s RENAME TO %s", quoteIdent(f.name), quoteIdent(asName))
		if _, err := tx.ExecContext(ctx, rename); err != nil {
			return Meta{}, fmt.Errorf("publish %q: %w", asName, err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE fragments SET name = ? WHERE name = ?`, asName, f.name); err != nil {
			return Meta{}, fmt.Errorf("publish %q: %w", asName, err)
		}
		if err := tx.Commit(); err != nil {
			return Meta{}, fmt.Errorf("publish %q: %w", asName, err)
		}
		f.name = asName
	}
	return f.Meta(), nil
}

// ReadAll returns every row of the fragment in insertion order. Intended
// for small system tables and tests; bulk consumers should use Rows.
func (f *Fragment) ReadAll(ctx context.Context) ([][]any, error) {
	rows, err := f.Rows(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][]any
	for rows.Next() {
		vals := make([]any, len(f.columns))
		ptrs := make([]any, len(f.columns))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("read %q: %w", f.name, err)
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %q: %w", f.name, err)
	}
	return out, nil
}

// Rows returns the fragment's rows in insertion order. Callers are
// responsible for closing the returned rows.
func (f *Fragment) Rows(ctx context.Context) (*sql.Rows, error) {
	cols := make([]string, len(f.columns))
	for i, c := range f.columns {
		cols[i] = quoteIdent(c.Name)
	}
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid ASC",
		strings.Join(cols, ", "), quoteIdent(f.name))
	rows, err := f.store.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", f.name, err)
	}
	return rows, nil
}

func marshalColumns(cols []Column) (string, error) {
	pairs := make([][2]string, len(cols))
	for i, c := range cols {
		pairs[i] = [2]string{c.Name, c.Type}
	}
	data, err := json.Marshal(pairs)
	if err != nil {
		return "", fmt.Errorf("marshal columns: %w", err)
	}
	return string(data), nil
}

func unmarshalColumns(data string) ([]Column, error) {
	var pairs [][2]string
	if err := json.Unmarshal([]byte(data), &pairs); err != nil {
		return nil, fmt.Errorf("unmarshal columns: %w", err)
	}
	cols := make([]Column, len(pairs))
	for i, p := range pairs {
		cols[i] = Column{Name: p[0], Type: p[1]}
	}
	return cols, nil
}
