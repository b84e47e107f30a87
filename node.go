package jsonedit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// FieldType is the JSON type of a field value.
type FieldType string

const (
	TypeArray   FieldType = "array"
	TypeObject  FieldType = "object"
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeBoolean FieldType = "boolean"
	TypeNull    FieldType = "null"
)

// IsContainer reports whether t is array or object.
func (t FieldType) IsContainer() bool {
	return t == TypeArray || t == TypeObject
}

// Field is one entry of a flattened node. Keyless fields are array entries or
// the lone value of a scalar node.
type Field struct {
	Key    string
	HasKey bool
	Value  any
	Type   FieldType
}

// KeyedField returns an object-member field, deriving its type from v.
func KeyedField(key string, v any) Field {
	return Field{Key: key, HasKey: true, Value: v, Type: TypeOf(v)}
}

// ValueField returns a keyless field, deriving its type from v.
func ValueField(v any) Field {
	return Field{Value: v, Type: TypeOf(v)}
}

// Node is one level of a JSON document as displayed: object entries, array
// entries, or a single scalar with no key.
type Node []Field

// editable returns the keyed non-container fields, in order.
func (n Node) editable() []Field {
	out := make([]Field, 0, len(n))
	for _, f := range n {
		if f.HasKey && !f.Type.IsContainer() {
			out = append(out, f)
		}
	}
	return out
}

func (n Node) scalarCount() int {
	c := 0
	for _, f := range n {
		if !f.Type.IsContainer() {
			c++
		}
	}
	return c
}

// TypeOf classifies a decoded JSON value.
func TypeOf(v any) FieldType {
	switch v.(type) {
	case nil:
		return TypeNull
	case bool:
		return TypeBoolean
	case string:
		return TypeString
	case json.Number, float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return TypeNumber
	case map[string]any:
		return TypeObject
	case []any:
		return TypeArray
	}
	// anything else is classified by its encoding
	b, err := json.Marshal(v)
	if err != nil || len(b) == 0 {
		return TypeNull
	}
	switch b[0] {
	case '{':
		return TypeObject
	case '[':
		return TypeArray
	case '"':
		return TypeString
	case 't', 'f':
		return TypeBoolean
	case 'n':
		return TypeNull
	}
	return TypeNumber
}

// Normalize renders a node as canonical JSON text.
//
// An empty node is "{}". A node holding exactly one keyless field renders that
// value directly. Otherwise the keyed scalar fields are rendered, in order, as
// a pretty-printed object; array and object fields are left out.
func Normalize(n Node) string {
	if len(n) == 0 {
		return "{}"
	}
	if len(n) == 1 && !n[0].HasKey {
		return textOf(n[0].Value)
	}

	var compact bytes.Buffer
	compact.WriteByte('{')
	for i, f := range n.editable() {
		if i > 0 {
			compact.WriteByte(',')
		}
		compact.WriteString(quoteKey(f.Key))
		compact.WriteByte(':')
		compact.Write(compactOf(f.Value))
	}
	compact.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", canonicalIndent); err != nil {
		return compact.String()
	}
	return out.String()
}

// NodeAt derives the node displayed for the value at path in doc. Objects
// yield one keyed field per member, sorted by key; arrays and scalars yield a
// single keyless field holding the whole value.
func NodeAt(doc any, path Path) (Node, error) {
	v, err := lookup("lookup", doc, path)
	if err != nil {
		return nil, err
	}
	return nodeOf(v), nil
}

func nodeOf(v any) Node {
	obj, ok := v.(map[string]any)
	if !ok {
		return Node{ValueField(v)}
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	n := make(Node, 0, len(keys))
	for _, k := range keys {
		n = append(n, KeyedField(k, obj[k]))
	}
	return n
}

// withChildren returns edited plus the node's keyed array and object members.
func (n Node) withChildren(edited map[string]any) map[string]any {
	out := make(map[string]any, len(n))
	for _, f := range n {
		if f.HasKey && f.Type.IsContainer() {
			out[f.Key] = cloneValue(f.Value)
		}
	}
	for k, v := range edited {
		out[k] = v
	}
	return out
}

// withValues returns a copy of n with the keyed fields in edited replaced.
func (n Node) withValues(edited map[string]any) Node {
	out := make(Node, len(n))
	for i, f := range n {
		if v, ok := edited[f.Key]; ok && f.HasKey {
			f = KeyedField(f.Key, v)
		}
		out[i] = f
	}
	return out
}

func compactOf(v any) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return []byte(fmt.Sprintf("%q", fmt.Sprint(v)))
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
}
