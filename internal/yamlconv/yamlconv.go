// Package yamlconv converts yaml.Node trees into JSON-compatible Go values
// while preserving mapping key order. Plain yaml.Unmarshal into map[string]any
// would drop the order, and Picoschema key order is semantically significant.
package yamlconv

import (
	"fmt"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/reoring/picoprompt/jsonschema"
)

// DuplicateKeyError reports a duplicate key found in a YAML mapping with both
// the first occurrence position and the duplicate occurrence position.
type DuplicateKeyError struct {
	Key       string
	FirstLine int
	FirstCol  int
	Line      int
	Col       int
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate YAML key %q at %d:%d (first at %d:%d)", e.Key, e.Line, e.Col, e.FirstLine, e.FirstCol)
}

// Decode parses a single YAML document into ordered JSON-compatible values.
// An empty document decodes to nil.
func Decode(data []byte) (any, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	return Value(&root)
}

// Value converts a yaml.Node into JSON-compatible Go values: mappings become
// jsonschema.Map (insertion order preserved), sequences []any, scalars
// string/int64/float64/bool/nil. Duplicate mapping keys are an error.
func Value(n *yaml.Node) (any, error) {
	switch n.Kind {
	case 0:
		// zero node, e.g. an empty document
		return nil, nil
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return Value(n.Content[0])
	case yaml.AliasNode:
		return Value(n.Alias)
	case yaml.MappingNode:
		m := jsonschema.NewMap()
		first := make(map[string][2]int, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k := n.Content[i]
			key := k.Value
			if pos, dup := first[key]; dup {
				return nil, &DuplicateKeyError{Key: key, FirstLine: pos[0], FirstCol: pos[1], Line: k.Line, Col: k.Column}
			}
			first[key] = [2]int{k.Line, k.Column}
			v, err := Value(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			m.Set(key, v)
		}
		return m, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := Value(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.ScalarNode:
		return scalarValue(n)
	}
	return nil, fmt.Errorf("yamlconv: unsupported node kind %d at %d:%d", n.Kind, n.Line, n.Column)
}

func scalarValue(n *yaml.Node) (any, error) {
	switch n.Tag {
	case "!!null":
		return nil, nil
	case "!!bool":
		b, err := strconv.ParseBool(n.Value)
		if err != nil {
			return nil, fmt.Errorf("yamlconv: invalid bool %q at %d:%d", n.Value, n.Line, n.Column)
		}
		return b, nil
	case "!!int":
		i, err := strconv.ParseInt(n.Value, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("yamlconv: invalid int %q at %d:%d", n.Value, n.Line, n.Column)
		}
		return i, nil
	case "!!float":
		f, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			switch n.Value {
			case ".inf", "+.inf":
				return math.Inf(1), nil
			case "-.inf":
				return math.Inf(-1), nil
			case ".nan":
				return math.NaN(), nil
			}
			return nil, fmt.Errorf("yamlconv: invalid float %q at %d:%d", n.Value, n.Line, n.Column)
		}
		return f, nil
	default:
		// !!str and anything unrecognized decodes as its string form.
		return n.Value, nil
	}
}
