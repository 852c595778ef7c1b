// Package yaml provides a YAML codec implementation.
//
// The codec converts through yaml.Node trees instead of Go maps, so
// mapping entry order and repeated keys survive into the wire tree.
package yaml

import (
	"encoding/base64"
	"fmt"
	"math"
	"strconv"

	"github.com/zoobzio/statewire"
	"github.com/zoobzio/statewire/wire"
	"gopkg.in/yaml.v3"
)

// yamlCodec implements statewire.Codec for YAML.
type yamlCodec struct{}

// New returns a YAML codec.
func New() statewire.Codec {
	return &yamlCodec{}
}

// ContentType returns the MIME type for YAML.
func (c *yamlCodec) ContentType() string {
	return "application/yaml"
}

// Marshal renders a wire value as YAML. Binary values use the !!binary tag.
func (c *yamlCodec) Marshal(v wire.Value) ([]byte, error) {
	node, err := toNode(v)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(node)
}

// Unmarshal parses YAML into a wire tree. Mapping order and duplicate
// keys are preserved.
func (c *yamlCodec) Unmarshal(data []byte) (wire.Value, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if node.Kind == 0 {
		// Empty document.
		return wire.Null{}, nil
	}
	return fromNode(&node)
}

func toNode(v wire.Value) (*yaml.Node, error) {
	switch tv := v.(type) {
	case nil, wire.Null:
		return scalar("!!null", "null"), nil
	case wire.Bool:
		return scalar("!!bool", strconv.FormatBool(bool(tv))), nil
	case wire.Int:
		return scalar("!!int", strconv.FormatInt(int64(tv), 10)), nil
	case wire.Uint:
		return scalar("!!int", strconv.FormatUint(uint64(tv), 10)), nil
	case wire.Float:
		return scalar("!!float", formatFloat(float64(tv))), nil
	case wire.String:
		return scalar("!!str", string(tv)), nil
	case wire.Bytes:
		return scalar("!!binary", base64.StdEncoding.EncodeToString(tv)), nil
	case wire.Array:
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, e := range tv {
			child, err := toNode(e)
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content, child)
		}
		return node, nil
	case wire.Object:
		node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, m := range tv {
			child, err := toNode(m.Value)
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content, scalar("!!str", m.Key), child)
		}
		return node, nil
	default:
		return nil, fmt.Errorf("yaml: unsupported wire value %T", v)
	}
}

func scalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	case math.IsNaN(f):
		return ".nan"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func fromNode(node *yaml.Node) (wire.Value, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return wire.Null{}, nil
		}
		return fromNode(node.Content[0])
	case yaml.AliasNode:
		return fromNode(node.Alias)
	case yaml.ScalarNode:
		return fromScalar(node)
	case yaml.SequenceNode:
		arr := make(wire.Array, 0, len(node.Content))
		for _, child := range node.Content {
			v, err := fromNode(child)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, nil
	case yaml.MappingNode:
		obj := make(wire.Object, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i]
			if key.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("yaml: non-scalar mapping key at line %d", key.Line)
			}
			v, err := fromNode(node.Content[i+1])
			if err != nil {
				return nil, err
			}
			obj = append(obj, wire.Member{Key: key.Value, Value: v})
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("yaml: unsupported node kind %v", node.Kind)
	}
}

func fromScalar(node *yaml.Node) (wire.Value, error) {
	switch node.Tag {
	case "!!null":
		return wire.Null{}, nil
	case "!!bool":
		b, err := strconv.ParseBool(node.Value)
		if err != nil {
			return nil, fmt.Errorf("yaml: invalid bool %q", node.Value)
		}
		return wire.Bool(b), nil
	case "!!int":
		if i, err := strconv.ParseInt(node.Value, 0, 64); err == nil {
			return wire.Int(i), nil
		}
		if u, err := strconv.ParseUint(node.Value, 0, 64); err == nil {
			return wire.Uint(u), nil
		}
		return nil, fmt.Errorf("yaml: invalid integer %q", node.Value)
	case "!!float":
		return parseFloat(node.Value)
	case "!!binary":
		data, err := base64.StdEncoding.DecodeString(node.Value)
		if err != nil {
			return nil, fmt.Errorf("yaml: invalid binary scalar: %v", err)
		}
		return wire.Bytes(data), nil
	default:
		return wire.String(node.Value), nil
	}
}

func parseFloat(s string) (wire.Value, error) {
	switch s {
	case ".inf", "+.inf", ".Inf", "+.Inf":
		return wire.Float(math.Inf(1)), nil
	case "-.inf", "-.Inf":
		return wire.Float(math.Inf(-1)), nil
	case ".nan", ".NaN":
		return wire.Float(math.NaN()), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("yaml: invalid float %q", s)
	}
	return wire.Float(f), nil
}
