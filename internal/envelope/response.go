package envelope

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// OutputEntry is one element of a response's output sequence: the run
// either produced data for a declared table (!Data) or legitimately did
// not (!NoData). The sum is closed.
type OutputEntry interface {
	outputEntry()

	// TableName returns the declared table the entry speaks for.
	TableName() string
}

// Data reports a table the run actually produced, with its materialized
// metadata.
type Data struct {
	Table       string
	ColumnCount int
	RowCount    int64
	SchemaHash  string
}

func (Data) outputEntry() {}

// TableName returns the produced table's name.
func (d Data) TableName() string { return d.Table }

// NoData reports a declared table the run produced nothing for. This is
// a first-class outcome, not an error: it lets the server distinguish
// "ran and produced nothing" from "didn't run".
type NoData struct {
	Table string
}

func (NoData) outputEntry() {}

// TableName returns the untouched table's name.
func (n NoData) TableName() string { return n.Table }

// Response is the V2 response envelope: the ordered reconciliation of
// declared outputs against produced tables, plus the trailing system
// slot for incremental offsets.
type Response struct {
	Output []OutputEntry
}

// WriteFile serializes the response under the !V2 root tag and renames
// it into place atomically. A failed pipeline must never leave behind a
// half-written response, so the file appears either complete or not at
// all.
func (r *Response) WriteFile(path string) error {
	data, err := r.marshal()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".response-*.yaml")
	if err != nil {
		return fmt.Errorf("write response envelope: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write response envelope: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write response envelope: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write response envelope: %w", err)
	}
	return nil
}

func (r *Response) marshal() ([]byte, error) {
	items := make([]*yaml.Node, 0, len(r.Output))
	for _, entry := range r.Output {
		switch e := entry.(type) {
		case Data:
			items = append(items, mappingNode(TagData,
				strNode("table"), strNode(e.Table),
				strNode("info"), mappingNode("",
					strNode("column_count"), intNode(int64(e.ColumnCount)),
					strNode("row_count"), intNode(e.RowCount),
					strNode("schema_hash"), strNode(e.SchemaHash),
				),
			))
		case NoData:
			items = append(items, mappingNode(TagNoData,
				strNode("table"), strNode(e.Table),
			))
		default:
			return nil, fmt.Errorf("unsupported output entry type %T", entry)
		}
	}
	root := mappingNode(TagV2, strNode("output"), sequenceNode("", items...))
	return marshalDocument(root)
}

// dataDoc mirrors the wire shape of a !Data node.
type dataDoc struct {
	Table string `yaml:"table"`
	Info  struct {
		ColumnCount int    `yaml:"column_count"`
		RowCount    int64  `yaml:"row_count"`
		SchemaHash  string `yaml:"schema_hash"`
	} `yaml:"info"`
}

type noDataDoc struct {
	Table string `yaml:"table"`
}

type responseDoc struct {
	Output yaml.Node `yaml:"output"`
}

// ParseResponse reads and decodes a response envelope file.
func ParseResponse(path string) (*Response, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read response envelope: %w", err)
	}
	resp, err := parseResponseBytes(data)
	if err != nil {
		if ee, ok := err.(*Error); ok {
			ee.Path = path
		}
		return nil, err
	}
	return resp, nil
}

func parseResponseBytes(data []byte) (*Response, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &Error{Code: ErrCodeMalformed, Message: err.Error()}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 {
		return nil, &Error{Code: ErrCodeMalformed, Message: "empty response document"}
	}
	root := doc.Content[0]
	if root.Tag != TagV2 {
		return nil, &Error{Code: ErrCodeUnknownVersion,
			Message: fmt.Sprintf("unrecognized envelope version tag %q", root.Tag)}
	}

	var raw responseDoc
	if err := decodeMapping(root, &raw); err != nil {
		return nil, err
	}
	items, err := sequenceItems(&raw.Output, "output")
	if err != nil {
		return nil, err
	}

	resp := &Response{Output: make([]OutputEntry, 0, len(items))}
	for i, item := range items {
		field := fmt.Sprintf("output[%d]", i)
		switch item.Tag {
		case TagData:
			var d dataDoc
			if err := decodeMapping(item, &d); err != nil {
				return nil, err
			}
			if d.Table == "" {
				return nil, &Error{Code: ErrCodeMissingName, Field: field,
					Message: "data entry missing required table"}
			}
			resp.Output = append(resp.Output, Data{
				Table:       d.Table,
				ColumnCount: d.Info.ColumnCount,
				RowCount:    d.Info.RowCount,
				SchemaHash:  d.Info.SchemaHash,
			})
		case TagNoData:
			var n noDataDoc
			if err := decodeMapping(item, &n); err != nil {
				return nil, err
			}
			if n.Table == "" {
				return nil, &Error{Code: ErrCodeMissingName, Field: field,
					Message: "no-data entry missing required table"}
			}
			resp.Output = append(resp.Output, NoData{Table: n.Table})
		default:
			return nil, &Error{Code: ErrCodeUnknownTag, Field: field,
				Message: fmt.Sprintf("unrecognized entry tag %q", item.Tag)}
		}
	}
	return resp, nil
}
