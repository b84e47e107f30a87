package jsonedit

import (
	"errors"
	"fmt"
)

// Structural errors
var (
	// ErrParse indicates that edited text is not valid JSON.
	ErrParse = errors.New("jsonedit: invalid JSON")

	// ErrPathMismatch indicates that a path segment expects a different container
	// shape than the one found in the document.
	ErrPathMismatch = errors.New("jsonedit: path mismatch")

	// ErrPathNotFound indicates that a key or index along the path is absent.
	ErrPathNotFound = errors.New("jsonedit: path not found")

	// ErrBadDocument indicates that a document snapshot is not valid JSON.
	ErrBadDocument = errors.New("jsonedit: document is not valid JSON")
)

// Session errors
var (
	ErrNoNode         = errors.New("jsonedit: no node selected")
	ErrEditInProgress = errors.New("jsonedit: edit in progress")
	ErrNotEditing     = errors.New("jsonedit: not editing")
	ErrRecomputing    = errors.New("jsonedit: document is recomputing")
	ErrWrongMode      = errors.New("jsonedit: buffer mode mismatch")
	ErrUnknownField   = errors.New("jsonedit: unknown field")

	// ErrConflict indicates the document changed between the snapshot read and
	// the write of a commit.
	ErrConflict = errors.New("jsonedit: document changed during commit")
)

// ParseError reports single-buffer text that could not be parsed as JSON.
type ParseError struct {
	Offset int64 // byte offset of the syntax error, when known
	Err    error
}

func (e *ParseError) Error() string {
	if e.Offset > 0 {
		return fmt.Sprintf("jsonedit: invalid JSON at offset %d: %v", e.Offset, e.Err)
	}
	return fmt.Sprintf("jsonedit: invalid JSON: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// PathError reports a failed walk of a document along a Path.
type PathError struct {
	Op   string    // operation that failed, e.g. "apply"
	Path Path      // path prefix up to and including the failing segment
	Want FieldType // container shape the segment needs
	Got  FieldType // shape actually found
	Err  error     // ErrPathMismatch or ErrPathNotFound
}

func (e *PathError) Error() string {
	if errors.Is(e.Err, ErrPathMismatch) {
		return fmt.Sprintf("jsonedit: %s: expected %s at %s, found %s",
			e.Op, e.Want, FormatPath(e.Path[:len(e.Path)-1]), e.Got)
	}
	return fmt.Sprintf("jsonedit: %s: %s does not exist", e.Op, FormatPath(e.Path))
}

func (e *PathError) Unwrap() error {
	return e.Err
}
