package jsonedit

import (
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"
)

// ApplyAt returns a copy of doc in which the value at path is replaced by
// value. doc itself is never modified.
//
// Every segment but the last must exist. The last segment overwrites an
// existing array element or sets an object member, creating it if absent.
// Shape mismatches fail with ErrPathMismatch and missing keys or indexes with
// ErrPathNotFound. An empty path replaces the whole document.
func ApplyAt(doc any, path Path, value any) (any, error) {
	if len(path) == 0 {
		return cloneValue(value), nil
	}

	root := cloneValue(doc)
	parent, err := lookup("apply", root, path[:len(path)-1])
	if err != nil {
		return nil, err
	}
	if err := checkSlot("apply", parent, path); err != nil {
		return nil, err
	}

	last := path[len(path)-1]
	if last.isIndex {
		parent.([]any)[last.index] = cloneValue(value)
	} else {
		parent.(map[string]any)[last.key] = cloneValue(value)
	}
	return root, nil
}

// PatchText is ApplyAt over serialized documents. The change is applied as a
// single RFC 6902 operation on docText, so members outside the replaced slot
// keep their order and number formatting. HTML characters are not escaped.
// The result is indented with indent, or compact when indent is empty.
func PatchText(docText string, path Path, value any, indent string) (string, error) {
	doc, err := Decode(docText)
	if err != nil {
		return "", err
	}
	if len(path) == 0 {
		return Encode(value, indent)
	}

	parent, err := lookup("patch", doc, path[:len(path)-1])
	if err != nil {
		return "", err
	}
	if err := checkSlot("patch", parent, path); err != nil {
		return "", err
	}

	op := "add"
	if path[len(path)-1].isIndex {
		op = "replace" // add would insert rather than overwrite
	}
	patch, err := singleOpPatch(op, path.Pointer(), value)
	if err != nil {
		return "", err
	}

	opts := jsonpatch.NewApplyOptions()
	opts.EscapeHTML = false
	out, err := patch.ApplyIndentWithOptions([]byte(docText), indent, opts)
	if err != nil {
		return "", fmt.Errorf("jsonedit: failed to apply patch at %s: %w", FormatPath(path), err)
	}
	return string(out), nil
}

type patchOp struct {
	Op    string          `json:"op"`
	Path  string          `json:"path"`
	Value json.RawMessage `json:"value"`
}

func singleOpPatch(op, pointer string, value any) (jsonpatch.Patch, error) {
	payload, err := json.Marshal([]patchOp{{Op: op, Path: pointer, Value: compactOf(value)}})
	if err != nil {
		return nil, fmt.Errorf("jsonedit: failed to build patch: %w", err)
	}
	patch, err := jsonpatch.DecodePatch(payload)
	if err != nil {
		return nil, fmt.Errorf("jsonedit: failed to decode patch: %w", err)
	}
	return patch, nil
}

// lookup walks doc along path and returns the value found there.
func lookup(op string, doc any, path Path) (any, error) {
	cur := doc
	for i, seg := range path {
		at := path[:i+1]
		if seg.isIndex {
			arr, ok := cur.([]any)
			if !ok {
				return nil, mismatch(op, at, TypeArray, cur)
			}
			if seg.index >= len(arr) {
				return nil, notFound(op, at, TypeArray)
			}
			cur = arr[seg.index]
			continue
		}
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, mismatch(op, at, TypeObject, cur)
		}
		next, ok := obj[seg.key]
		if !ok {
			return nil, notFound(op, at, TypeObject)
		}
		cur = next
	}
	return cur, nil
}

// checkSlot validates that the last segment of path can be written in parent.
func checkSlot(op string, parent any, path Path) error {
	last := path[len(path)-1]
	if last.isIndex {
		arr, ok := parent.([]any)
		if !ok {
			return mismatch(op, path, TypeArray, parent)
		}
		if last.index >= len(arr) {
			return notFound(op, path, TypeArray)
		}
		return nil
	}
	if _, ok := parent.(map[string]any); !ok {
		return mismatch(op, path, TypeObject, parent)
	}
	return nil
}

func mismatch(op string, at Path, want FieldType, got any) error {
	return &PathError{Op: op, Path: at, Want: want, Got: TypeOf(got), Err: ErrPathMismatch}
}

func notFound(op string, at Path, in FieldType) error {
	return &PathError{Op: op, Path: at, Want: in, Got: in, Err: ErrPathNotFound}
}

// cloneValue deep-copies the containers of a decoded JSON value. Scalars are
// immutable and shared.
func cloneValue(v any) any {
	switch vv := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(vv))
		for k, child := range vv {
			out[k] = cloneValue(child)
		}
		return out
	case []any:
		out := make([]any, len(vv))
		for i, child := range vv {
			out[i] = cloneValue(child)
		}
		return out
	default:
		return v
	}
}
