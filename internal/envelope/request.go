package envelope

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// locationDoc mirrors the wire shape of a location descriptor.
type locationDoc struct {
	URI       string `yaml:"uri"`
	EnvPrefix string `yaml:"env_prefix"`
}

func (l *locationDoc) toLocation() Location {
	return Location{URI: l.URI, EnvPrefix: l.EnvPrefix}
}

// tableRefDoc mirrors the wire shape of a !Table node.
type tableRefDoc struct {
	Name               string       `yaml:"name"`
	Collection         string       `yaml:"collection"`
	CollectionID       string       `yaml:"collection_id"`
	TableID            string       `yaml:"table_id"`
	TableVersionID     string       `yaml:"table_version_id"`
	ExecutionID        string       `yaml:"execution_id"`
	TransactionID      string       `yaml:"transaction_id"`
	TableDataVersionID string       `yaml:"table_data_version_id"`
	Location           *locationDoc `yaml:"location"`
	InputIdx           int          `yaml:"input_idx"`
	TablePos           int          `yaml:"table_pos"`
	VersionPos         int          `yaml:"version_pos"`
}

// infoDoc mirrors the wire shape of the request's info section.
type infoDoc struct {
	ExecutionID    string      `yaml:"execution_id"`
	FunctionRunID  string      `yaml:"function_run_id"`
	TransactionID  string      `yaml:"transaction_id"`
	ScheduledOn    string      `yaml:"scheduled_on"`
	TriggeredOn    string      `yaml:"triggered_on"`
	FunctionBundle locationDoc `yaml:"function_bundle"`
	FunctionData   locationDoc `yaml:"function_data"`
}

// requestDoc captures the V2 root mapping, with the tagged sequences
// left as raw nodes for entry-level decoding.
type requestDoc struct {
	Info         infoDoc   `yaml:"info"`
	Input        yaml.Node `yaml:"input"`
	Output       yaml.Node `yaml:"output"`
	SystemInput  yaml.Node `yaml:"system_input"`
	SystemOutput yaml.Node `yaml:"system_output"`
	Work         string    `yaml:"work"`
}

// ParseRequest reads and decodes a request envelope file. The document
// root must carry a recognized version tag; entries must carry !Table or
// !TableVersions tags and a non-empty name.
func ParseRequest(path string) (*Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read request envelope: %w", err)
	}
	req, err := parseRequestBytes(data)
	if err != nil {
		if ee, ok := err.(*Error); ok {
			ee.Path = path
		}
		return nil, err
	}
	return req, nil
}

func parseRequestBytes(data []byte) (*Request, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &Error{Code: ErrCodeMalformed, Message: err.Error()}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 {
		return nil, &Error{Code: ErrCodeMalformed, Message: "empty request document"}
	}
	root := doc.Content[0]
	switch root.Tag {
	case TagV2:
		return decodeRequestV2(root)
	default:
		return nil, &Error{Code: ErrCodeUnknownVersion,
			Message: fmt.Sprintf("unrecognized envelope version tag %q", root.Tag)}
	}
}

func decodeRequestV2(root *yaml.Node) (*Request, error) {
	var raw requestDoc
	if err := decodeMapping(root, &raw); err != nil {
		return nil, err
	}

	req := &Request{
		ExecutionID:    raw.Info.ExecutionID,
		FunctionRunID:  raw.Info.FunctionRunID,
		TransactionID:  raw.Info.TransactionID,
		ScheduledOn:    raw.Info.ScheduledOn,
		TriggeredOn:    raw.Info.TriggeredOn,
		FunctionBundle: raw.Info.FunctionBundle.toLocation(),
		FunctionData:   raw.Info.FunctionData.toLocation(),
	}
	if raw.Work != "" {
		req.work = raw.Work
		req.workSet = true
	}

	var err error
	if req.Input, err = decodeEntrySequence(&raw.Input, "input"); err != nil {
		return nil, err
	}
	if req.Output, err = decodeTableSequence(&raw.Output, "output"); err != nil {
		return nil, err
	}
	if req.SystemInput, err = decodeEntrySequence(&raw.SystemInput, "system_input"); err != nil {
		return nil, err
	}
	if req.SystemOutput, err = decodeTableSequence(&raw.SystemOutput, "system_output"); err != nil {
		return nil, err
	}
	return req, nil
}

// decodeEntrySequence decodes a sequence of !Table / !TableVersions
// entries, preserving order.
func decodeEntrySequence(node *yaml.Node, section string) ([]InputEntry, error) {
	items, err := sequenceItems(node, section)
	if err != nil || items == nil {
		return nil, err
	}
	entries := make([]InputEntry, 0, len(items))
	for i, item := range items {
		entry, err := decodeEntry(item, fmt.Sprintf("%s[%d]", section, i))
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// decodeTableSequence decodes a sequence that permits only !Table
// entries (output sections never carry version sets).
func decodeTableSequence(node *yaml.Node, section string) ([]*TableRef, error) {
	items, err := sequenceItems(node, section)
	if err != nil || items == nil {
		return nil, err
	}
	refs := make([]*TableRef, 0, len(items))
	for i, item := range items {
		field := fmt.Sprintf("%s[%d]", section, i)
		if item.Tag != TagTable {
			return nil, &Error{Code: ErrCodeUnknownTag, Field: field,
				Message: fmt.Sprintf("expected %s, got %q", TagTable, item.Tag)}
		}
		ref, err := decodeTableRef(item, field)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func decodeEntry(node *yaml.Node, field string) (InputEntry, error) {
	switch node.Tag {
	case TagTable:
		return decodeTableRef(node, field)
	case TagTableVersions:
		if node.Kind != yaml.SequenceNode {
			return nil, &Error{Code: ErrCodeMalformed, Field: field,
				Message: "version set must be a sequence"}
		}
		if len(node.Content) == 0 {
			return nil, &Error{Code: ErrCodeMalformed, Field: field,
				Message: "version set must be non-empty"}
		}
		versions := make([]*TableRef, 0, len(node.Content))
		for i, item := range node.Content {
			vfield := fmt.Sprintf("%s[%d]", field, i)
			if item.Tag != TagTable {
				return nil, &Error{Code: ErrCodeUnknownTag, Field: vfield,
					Message: fmt.Sprintf("expected %s, got %q", TagTable, item.Tag)}
			}
			ref, err := decodeTableRef(item, vfield)
			if err != nil {
				return nil, err
			}
			versions = append(versions, ref)
		}
		return &TableVersions{Versions: versions}, nil
	default:
		return nil, &Error{Code: ErrCodeUnknownTag, Field: field,
			Message: fmt.Sprintf("unrecognized entry tag %q", node.Tag)}
	}
}

func decodeTableRef(node *yaml.Node, field string) (*TableRef, error) {
	var raw tableRefDoc
	if err := decodeMapping(node, &raw); err != nil {
		return nil, err
	}
	if raw.Name == "" {
		return nil, &Error{Code: ErrCodeMissingName, Field: field,
			Message: "table entry missing required name"}
	}
	ref := &TableRef{
		Name:               raw.Name,
		Collection:         raw.Collection,
		CollectionID:       raw.CollectionID,
		TableID:            raw.TableID,
		TableVersionID:     raw.TableVersionID,
		ExecutionID:        raw.ExecutionID,
		TransactionID:      raw.TransactionID,
		TableDataVersionID: raw.TableDataVersionID,
		InputIdx:           raw.InputIdx,
		TablePos:           raw.TablePos,
		VersionPos:         raw.VersionPos,
	}
	if raw.Location != nil {
		loc := raw.Location.toLocation()
		ref.Location = &loc
	}
	return ref, nil
}

// sequenceItems returns the items of a sequence node. An absent or null
// node is an empty sequence.
func sequenceItems(node *yaml.Node, section string) ([]*yaml.Node, error) {
	if node.Kind == 0 || node.Tag == "!!null" {
		return nil, nil
	}
	if node.Kind != yaml.SequenceNode {
		return nil, &Error{Code: ErrCodeMalformed, Field: section,
			Message: "expected a sequence"}
	}
	return node.Content, nil
}

// decodeMapping decodes a (possibly custom-tagged) mapping node into
// out. The tag is reset to the plain mapping tag first: the tag has
// already served as a variant discriminant, and yaml.v3 would otherwise
// refuse to decode an unknown tag.
func decodeMapping(node *yaml.Node, out any) error {
	if node.Kind != yaml.MappingNode {
		return &Error{Code: ErrCodeMalformed,
			Message: fmt.Sprintf("expected a mapping, got %v", node.Kind)}
	}
	plain := *node
	plain.Tag = "!!map"
	if err := plain.Decode(out); err != nil {
		return &Error{Code: ErrCodeMalformed, Message: err.Error()}
	}
	return nil
}
