package envelope

import (
	"strconv"

	"gopkg.in/yaml.v3"
)

// Node-tree construction helpers for serializing envelopes. Emitting via
// explicit yaml.Node trees keeps the variant tags (!V2, !Table, !Data,
// !NoData) on the wire exactly where the server expects them.

func strNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func intNode(i int64) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(i, 10)}
}

// mappingNode builds a mapping from alternating key/value nodes.
func mappingNode(tag string, pairs ...*yaml.Node) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Content: pairs}
	if tag != "" {
		n.Tag = tag
	}
	return n
}

func sequenceNode(tag string, items ...*yaml.Node) *yaml.Node {
	n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Content: items}
	if tag != "" {
		n.Tag = tag
	}
	return n
}

func locationNode(loc Location) *yaml.Node {
	return mappingNode("",
		strNode("uri"), strNode(loc.URI),
		strNode("env_prefix"), strNode(loc.EnvPrefix),
	)
}
