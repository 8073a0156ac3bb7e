package envelope

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// WriteFile serializes the request under the !V2 root tag. The server
// normally writes request envelopes; this writer exists for tooling and
// tests that need to fabricate runs.
func (r *Request) WriteFile(path string) error {
	data, err := r.marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write request envelope: %w", err)
	}
	return nil
}

func (r *Request) marshal() ([]byte, error) {
	info := mappingNode("",
		strNode("execution_id"), strNode(r.ExecutionID),
		strNode("function_run_id"), strNode(r.FunctionRunID),
		strNode("transaction_id"), strNode(r.TransactionID),
		strNode("scheduled_on"), strNode(r.ScheduledOn),
		strNode("triggered_on"), strNode(r.TriggeredOn),
		strNode("function_bundle"), locationNode(r.FunctionBundle),
		strNode("function_data"), locationNode(r.FunctionData),
	)

	input, err := entrySequenceNode(r.Input)
	if err != nil {
		return nil, err
	}
	systemInput, err := entrySequenceNode(r.SystemInput)
	if err != nil {
		return nil, err
	}

	root := mappingNode(TagV2,
		strNode("info"), info,
		strNode("input"), input,
		strNode("output"), tableSequenceNode(r.Output),
		strNode("system_input"), systemInput,
		strNode("system_output"), tableSequenceNode(r.SystemOutput),
		strNode("work"), strNode(r.work),
	)
	return marshalDocument(root)
}

func entrySequenceNode(entries []InputEntry) (*yaml.Node, error) {
	items := make([]*yaml.Node, 0, len(entries))
	for _, entry := range entries {
		switch e := entry.(type) {
		case *TableRef:
			items = append(items, tableRefNode(e))
		case *TableVersions:
			versions := make([]*yaml.Node, 0, len(e.Versions))
			for _, ref := range e.Versions {
				versions = append(versions, tableRefNode(ref))
			}
			items = append(items, sequenceNode(TagTableVersions, versions...))
		default:
			return nil, fmt.Errorf("unsupported input entry type %T", entry)
		}
	}
	return sequenceNode("", items...), nil
}

func tableSequenceNode(refs []*TableRef) *yaml.Node {
	items := make([]*yaml.Node, 0, len(refs))
	for _, ref := range refs {
		items = append(items, tableRefNode(ref))
	}
	return sequenceNode("", items...)
}

func tableRefNode(ref *TableRef) *yaml.Node {
	pairs := []*yaml.Node{strNode("name"), strNode(ref.Name)}
	addStr := func(key, val string) {
		if val != "" {
			pairs = append(pairs, strNode(key), strNode(val))
		}
	}
	addStr("collection", ref.Collection)
	addStr("collection_id", ref.CollectionID)
	addStr("table_id", ref.TableID)
	addStr("table_version_id", ref.TableVersionID)
	addStr("execution_id", ref.ExecutionID)
	addStr("transaction_id", ref.TransactionID)
	addStr("table_data_version_id", ref.TableDataVersionID)
	if ref.Location != nil {
		pairs = append(pairs, strNode("location"), locationNode(*ref.Location))
	}
	pairs = append(pairs,
		strNode("input_idx"), intNode(int64(ref.InputIdx)),
		strNode("table_pos"), intNode(int64(ref.TablePos)),
		strNode("version_pos"), intNode(int64(ref.VersionPos)),
	)
	return mappingNode(TagTable, pairs...)
}

func marshalDocument(root *yaml.Node) ([]byte, error) {
	doc := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return buf.Bytes(), nil
}
