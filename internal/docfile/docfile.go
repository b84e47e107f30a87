// Package docfile stores a JSON document in a JSON or YAML file.
package docfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	gyaml "github.com/goccy/go-yaml"
	"gopkg.in/yaml.v3"

	"github.com/kevinwang15/jsonedit"
)

// Format is the on-disk encoding of a document.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// FormatFor guesses the format from a file name.
func FormatFor(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return YAML
	}
	return JSON
}

// ParseFormat accepts "json", "yaml", "yml", or "" (guess from name).
func ParseFormat(s, name string) (Format, error) {
	switch strings.ToLower(s) {
	case "":
		return FormatFor(name), nil
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	}
	return "", fmt.Errorf("docfile: unknown format %q", s)
}

// File is a jsonedit.Store backed by a file. The document is always held as
// JSON text; YAML files are converted on load and on Save.
type File struct {
	mu          sync.RWMutex
	path        string
	format      Format
	indent      int // YAML indent detected from the original file
	mode        os.FileMode
	text        string
	dirty       bool
	recomputing bool
	log         *slog.Logger
}

// Open reads path. A nil logger discards logs.
func Open(path string, format Format, logger *slog.Logger) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("docfile: %w", err)
	}
	mode := os.FileMode(0o644)
	if fi, err := os.Stat(path); err == nil {
		mode = fi.Mode().Perm()
	}
	f, err := Load(data, format)
	if err != nil {
		return nil, fmt.Errorf("docfile: %s: %w", path, err)
	}
	f.path = path
	f.mode = mode
	if logger != nil {
		f.log = logger.With("file", path)
	}
	return f, nil
}

// Load builds an unsaved File from raw bytes.
func Load(data []byte, format Format) (*File, error) {
	f := &File{
		format: format,
		indent: 2,
		mode:   0o644,
		log:    slog.New(slog.DiscardHandler),
	}

	switch format {
	case YAML:
		f.indent = detectIndent(data)
		js, err := gyaml.YAMLToJSON(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
		data = js
	case JSON:
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}

	if _, err := jsonedit.Decode(string(data)); err != nil {
		return nil, err
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, bytes.TrimSpace(data), "", "  "); err != nil {
		return nil, err
	}
	f.text = pretty.String()
	return f, nil
}

// DocumentText returns the document as indented JSON.
func (f *File) DocumentText() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.text
}

// SetDocumentText replaces the document. A dirty write is kept until Save.
func (f *File) SetDocumentText(text string, dirty bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.text = text
	f.dirty = f.dirty || dirty
}

// CompareAndSwap replaces the document only if it still equals old.
func (f *File) CompareAndSwap(old, next string, dirty bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.text != old {
		return false
	}
	f.text = next
	f.dirty = f.dirty || dirty
	return true
}

// SetRecomputing records whether dependent views are being rebuilt.
func (f *File) SetRecomputing(on bool) {
	f.mu.Lock()
	f.recomputing = on
	f.mu.Unlock()
	f.log.Debug("recomputing", "on", on)
}

// Dirty reports whether the document has unsaved changes.
func (f *File) Dirty() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dirty
}

// Format returns the on-disk format.
func (f *File) Format() Format { return f.format }

// Recomputing reports the last SetRecomputing value.
func (f *File) Recomputing() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.recomputing
}

// Encoded returns the document in the file's format.
func (f *File) Encoded() ([]byte, error) {
	f.mu.RLock()
	text, format, indent := f.text, f.format, f.indent
	f.mu.RUnlock()

	if format == YAML {
		return encodeYAML(text, indent)
	}
	return []byte(text + "\n"), nil
}

// Save writes the document back if it has unsaved changes. The file is
// replaced atomically.
func (f *File) Save() error {
	if f.path == "" {
		return fmt.Errorf("docfile: document has no path")
	}
	if !f.Dirty() {
		return nil
	}
	out, err := f.Encoded()
	if err != nil {
		return fmt.Errorf("docfile: %s: %w", f.path, err)
	}
	if err := writeAtomic(f.path, out, f.mode); err != nil {
		return fmt.Errorf("docfile: %w", err)
	}

	f.mu.Lock()
	f.dirty = false
	f.mu.Unlock()
	f.log.Info("saved", "bytes", len(out), "format", f.format)
	return nil
}

// encodeYAML re-renders JSON text as block-style YAML. JSON is valid YAML, so
// it is decoded as a yaml.Node to keep member order, then stripped of flow
// and quoting styles the encoder does not need.
func encodeYAML(text string, indent int) ([]byte, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return nil, fmt.Errorf("failed to convert to YAML: %w", err)
	}
	blockStyle(&doc)

	if indent < 2 {
		indent = 2
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(indent)
	if err := enc.Encode(&doc); err != nil {
		_ = enc.Close()
		return nil, err
	}
	_ = enc.Close()
	return buf.Bytes(), nil
}

func blockStyle(n *yaml.Node) {
	switch n.Kind {
	case yaml.MappingNode, yaml.SequenceNode:
		n.Style &^= yaml.FlowStyle
	case yaml.ScalarNode:
		n.Style &^= yaml.DoubleQuotedStyle | yaml.SingleQuotedStyle
	}
	for _, c := range n.Content {
		blockStyle(c)
	}
}

func writeAtomic(path string, data []byte, mode os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	defer os.Remove(name)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(name, mode); err != nil {
		return err
	}
	return os.Rename(name, path)
}
