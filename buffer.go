package jsonedit

import "fmt"

// Mode selects how an edit is buffered. It is fixed when editing starts.
type Mode int

const (
	// SingleBuffer holds the whole replacement value as one text.
	SingleBuffer Mode = iota + 1
	// PerKey holds one text per keyed scalar field.
	PerKey
)

func (m Mode) String() string {
	switch m {
	case SingleBuffer:
		return "single"
	case PerKey:
		return "per-key"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// EditBuffer is either a *TextBuffer or a *FieldBuffers.
type EditBuffer interface {
	Mode() Mode
	value() (any, error)
	clone() EditBuffer
}

// TextBuffer is the single free-form buffer. Its text must parse as JSON.
type TextBuffer struct {
	Text string
}

func (b *TextBuffer) Mode() Mode { return SingleBuffer }

func (b *TextBuffer) value() (any, error) { return ParseValue(b.Text) }

func (b *TextBuffer) clone() EditBuffer {
	c := *b
	return &c
}

// FieldBuffers holds one text per edited key. Malformed text degrades to a
// string value for that key only.
type FieldBuffers struct {
	keys []string
	text map[string]string
}

func newFieldBuffers(fields []Field) *FieldBuffers {
	b := &FieldBuffers{
		keys: make([]string, 0, len(fields)),
		text: make(map[string]string, len(fields)),
	}
	for _, f := range fields {
		if _, dup := b.text[f.Key]; !dup {
			b.keys = append(b.keys, f.Key)
		}
		b.text[f.Key] = Seed(f.Value)
	}
	return b
}

func (b *FieldBuffers) Mode() Mode { return PerKey }

// Keys returns the edited keys in node order.
func (b *FieldBuffers) Keys() []string {
	return append([]string(nil), b.keys...)
}

// Get returns the current text for key.
func (b *FieldBuffers) Get(key string) (string, bool) {
	t, ok := b.text[key]
	return t, ok
}

func (b *FieldBuffers) set(key, text string) error {
	if _, ok := b.text[key]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, key)
	}
	b.text[key] = text
	return nil
}

func (b *FieldBuffers) value() (any, error) { return ParseFields(b.text), nil }

func (b *FieldBuffers) clone() EditBuffer {
	c := &FieldBuffers{
		keys: append([]string(nil), b.keys...),
		text: make(map[string]string, len(b.text)),
	}
	for k, v := range b.text {
		c.text[k] = v
	}
	return c
}

// newBuffer picks the buffer variant for n. Per-key mode applies when the
// node has more than one scalar field or a single keyed field, provided at
// least one keyed scalar exists to edit.
func newBuffer(n Node, committed string, hasCommitted bool) EditBuffer {
	if n.scalarCount() > 1 || (len(n) == 1 && n[0].HasKey) {
		if fields := n.editable(); len(fields) > 0 {
			return newFieldBuffers(fields)
		}
	}
	if hasCommitted {
		return &TextBuffer{Text: committed}
	}
	return &TextBuffer{Text: Normalize(n)}
}
