package jsonedit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Segment is one step of a Path: an object key or an array index.
type Segment struct {
	key     string
	index   int
	isIndex bool
}

// Key returns a segment addressing an object member.
func Key(k string) Segment { return Segment{key: k} }

// Index returns a segment addressing an array element. Negative indexes panic.
func Index(i int) Segment {
	if i < 0 {
		panic(fmt.Sprintf("jsonedit: negative index %d", i))
	}
	return Segment{index: i, isIndex: true}
}

func (s Segment) IsIndex() bool { return s.isIndex }
func (s Segment) Key() string   { return s.key }
func (s Segment) Index() int    { return s.index }

func (s Segment) String() string {
	if s.isIndex {
		return strconv.Itoa(s.index)
	}
	return s.key
}

// Path locates a subtree within a JSON document. The empty path is the root.
type Path []Segment

// P builds a Path from strings (keys) and ints (indexes).
func P(elems ...any) Path {
	p := make(Path, 0, len(elems))
	for _, e := range elems {
		switch v := e.(type) {
		case string:
			p = append(p, Key(v))
		case int:
			p = append(p, Index(v))
		case Segment:
			p = append(p, v)
		default:
			panic(fmt.Sprintf("jsonedit: unsupported path element %T", e))
		}
	}
	return p
}

// FormatPath renders a path as a display locator: "$" for the root, then one
// bracketed segment per element, keys quoted and indexes bare.
// The result is not JSON and is never parsed back.
func FormatPath(p Path) string {
	var sb strings.Builder
	sb.WriteByte('$')
	for _, seg := range p {
		sb.WriteByte('[')
		if seg.isIndex {
			sb.WriteString(strconv.Itoa(seg.index))
		} else {
			sb.WriteString(quoteKey(seg.key))
		}
		sb.WriteByte(']')
	}
	return sb.String()
}

func (p Path) String() string { return FormatPath(p) }

// Pointer returns the RFC 6901 JSON Pointer for p.
func (p Path) Pointer() string {
	var sb strings.Builder
	for _, seg := range p {
		sb.WriteByte('/')
		sb.WriteString(pointerEscaper.Replace(seg.String()))
	}
	return sb.String()
}

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

// Append returns a new path with segs added; p is left untouched.
func (p Path) Append(segs ...Segment) Path {
	out := make(Path, 0, len(p)+len(segs))
	out = append(out, p...)
	return append(out, segs...)
}

// MarshalJSON encodes the path as an array of strings and integers.
func (p Path) MarshalJSON() ([]byte, error) {
	elems := make([]any, len(p))
	for i, seg := range p {
		if seg.isIndex {
			elems[i] = seg.index
		} else {
			elems[i] = seg.key
		}
	}
	return json.Marshal(elems)
}

// UnmarshalJSON decodes a path from an array such as ["a", 0, "b"].
func (p *Path) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("jsonedit: path must be a JSON array: %w", err)
	}
	out := make(Path, 0, len(raw))
	for i, r := range raw {
		var key string
		if err := json.Unmarshal(r, &key); err == nil {
			out = append(out, Key(key))
			continue
		}
		idx, err := strconv.Atoi(string(bytes.TrimSpace(r)))
		if err != nil || idx < 0 {
			return fmt.Errorf("jsonedit: path element %d must be a string or a non-negative integer, got %s", i, r)
		}
		out = append(out, Index(idx))
	}
	*p = out
	return nil
}

// ParsePath parses the JSON array form of a path. Blank text is the root.
func ParsePath(text string) (Path, error) {
	if strings.TrimSpace(text) == "" {
		return Path{}, nil
	}
	var p Path
	if err := json.Unmarshal([]byte(text), &p); err != nil {
		return nil, err
	}
	return p, nil
}

func quoteKey(k string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(k)
	return strings.TrimSuffix(buf.String(), "\n")
}
