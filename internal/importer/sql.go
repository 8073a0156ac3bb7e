package importer

import (
	"context"
	"database/sql"
	"regexp"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/tabsdata/td-go/internal/dispatch"
	"github.com/tabsdata/td-go/internal/table"
)

// SQLSource stages the results of one or more queries against an
// external database as fragments, in declared query order.
type SQLSource struct {
	// Driver is the database/sql driver name ("sqlite3", "pgx", ...).
	Driver string

	// DSN is the driver-specific connection string.
	DSN string

	// Queries run in declared order; each lands as one fragment (or nil
	// for zero rows).
	Queries []string

	// List marks the slot as a list input even for a single query.
	List bool
}

// Stage executes every query with the current offset values substituted
// and lands the rows in the staging store. A query returning zero rows
// resolves to a nil fragment; a query error aborts the slot.
func (s SQLSource) Stage(ctx context.Context, rc *dispatch.RunContext) (dispatch.Slot, error) {
	if s.Driver == "" || s.DSN == "" {
		return dispatch.Slot{}, &Error{Code: ErrCodeBadConfig, Message: "sql source requires driver and dsn"}
	}
	if len(s.Queries) == 0 {
		return dispatch.Slot{}, &Error{Code: ErrCodeBadConfig, Message: "sql source declares no queries"}
	}

	db, err := sql.Open(s.Driver, s.DSN)
	if err != nil {
		return dispatch.Slot{}, &Error{Code: ErrCodeBadConfig, Message: err.Error()}
	}
	defer db.Close()

	current := rc.Offsets.Current()
	values := make([]*table.Fragment, 0, len(s.Queries))
	for _, q := range s.Queries {
		rendered := SubstituteOffsets(q, current)
		frag, err := s.runQuery(ctx, rc, db, rendered)
		if err != nil {
			return dispatch.Slot{}, err
		}
		values = append(values, frag)
	}
	return dispatch.Slot{Values: values, List: s.List || len(s.Queries) > 1}, nil
}

func (s SQLSource) runQuery(ctx context.Context, rc *dispatch.RunContext, db *sql.DB, query string) (*table.Fragment, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, &Error{Code: ErrCodeQueryFailed, Message: err.Error(), Query: truncateQuery(query)}
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, &Error{Code: ErrCodeQueryFailed, Message: err.Error(), Query: truncateQuery(query)}
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, &Error{Code: ErrCodeQueryFailed, Message: err.Error(), Query: truncateQuery(query)}
	}
	cols := make([]table.Column, len(names))
	for i, name := range names {
		cols[i] = table.Column{Name: name, Type: mapColumnType(types[i].DatabaseTypeName())}
	}

	// The fragment is created lazily on the first row so that a
	// zero-row query stages nothing and resolves to nil.
	var frag *table.Fragment
	rowCount := 0
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &Error{Code: ErrCodeQueryFailed, Message: err.Error(), Query: truncateQuery(query)}
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		if frag == nil {
			idx := rc.Indexes.Next()
			frag, err = rc.Store.Create(ctx, table.StageName(idx), idx, cols)
			if err != nil {
				return nil, &Error{Code: ErrCodeQueryFailed, Message: err.Error(), Query: truncateQuery(query)}
			}
		}
		if err := frag.Append(ctx, vals); err != nil {
			return nil, &Error{Code: ErrCodeQueryFailed, Message: err.Error(), Query: truncateQuery(query)}
		}
		rowCount++
	}
	if err := rows.Err(); err != nil {
		return nil, &Error{Code: ErrCodeQueryFailed, Message: err.Error(), Query: truncateQuery(query)}
	}
	if frag == nil {
		rc.Logger.Debug("query produced zero rows", "query", truncateQuery(query))
		return nil, nil
	}
	rc.Logger.Debug("query landed", "rows", rowCount, "fragment", frag.Name())
	return frag, nil
}

// mapColumnType folds vendor type names into fragment column types.
func mapColumnType(dbType string) string {
	t := strings.ToUpper(dbType)
	switch {
	case strings.Contains(t, "INT"):
		return table.TypeInt
	case strings.Contains(t, "BOOL"):
		return table.TypeBool
	case strings.Contains(t, "REAL"), strings.Contains(t, "FLOA"),
		strings.Contains(t, "DOUB"), strings.Contains(t, "NUMERIC"), strings.Contains(t, "DECIMAL"):
		return table.TypeFloat
	default:
		return table.TypeString
	}
}

// offsetPlaceholder matches :name placeholders. A double colon (the SQL
// cast operator) never matches.
var offsetPlaceholder = regexp.MustCompile(`(^|[^:]):([A-Za-z_][A-Za-z0-9_]*)`)

// SubstituteOffsets replaces :name placeholders with the corresponding
// offset values, quoted as SQL string literals. Placeholders without a
// matching variable are left untouched.
func SubstituteOffsets(query string, values map[string]string) string {
	if len(values) == 0 {
		return query
	}
	return offsetPlaceholder.ReplaceAllStringFunc(query, func(m string) string {
		sub := offsetPlaceholder.FindStringSubmatch(m)
		prefix, name := sub[1], sub[2]
		val, ok := values[name]
		if !ok {
			return m
		}
		return prefix + quoteLiteral(val)
	})
}

func quoteLiteral(v string) string {
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}
