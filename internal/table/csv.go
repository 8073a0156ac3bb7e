package table

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
)

// LoadCSV lands a CSV file as a new staged fragment. The first record is
// the header; every column is typed as string. A file with a header but
// no data rows still produces a fragment - the artifact exists, it is
// just empty.
func LoadCSV(ctx context.Context, dst *Store, path string, idx uint64) (*Fragment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load csv %q: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("load csv %q: header: %w", path, err)
	}
	cols := make([]Column, len(header))
	for i, name := range header {
		cols[i] = Column{Name: name, Type: TypeString}
	}

	frag, err := dst.Create(ctx, StageName(idx), idx, cols)
	if err != nil {
		return nil, fmt.Errorf("load csv %q: %w", path, err)
	}

	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("load csv %q: %w", path, err)
		}
		row := make([]any, len(record))
		for i, v := range record {
			row[i] = v
		}
		if err := frag.Append(ctx, row); err != nil {
			return nil, err
		}
	}
	return frag, nil
}

// ExportCSV writes the fragment's rows to a CSV file with a header row,
// for handing staged data to destination plugins.
func (f *Fragment) ExportCSV(ctx context.Context, path string) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export %q: %w", f.name, err)
	}
	defer out.Close()

	w := csv.NewWriter(out)
	header := make([]string, len(f.columns))
	for i, c := range f.columns {
		header[i] = c.Name
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("export %q: %w", f.name, err)
	}

	rows, err := f.ReadAll(ctx)
	if err != nil {
		return fmt.Errorf("export %q: %w", f.name, err)
	}
	for _, row := range rows {
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = formatValue(v)
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("export %q: %w", f.name, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("export %q: %w", f.name, err)
	}
	return nil
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
