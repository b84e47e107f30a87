package jsonedit

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// State is the editing state of a Session.
type State int

const (
	Viewing State = iota
	Editing
)

func (s State) String() string {
	if s == Editing {
		return "editing"
	}
	return "viewing"
}

// Session edits the node selected in a document held by a Store.
//
// A session starts in Viewing. Edit moves it to Editing with a buffer chosen
// from the node's shape; Commit writes the buffer back into the document and
// returns to Viewing, Cancel discards it. A failed commit stays in Editing
// with the buffer untouched.
type Session struct {
	mu    sync.Mutex
	store Store
	cfg   Config
	log   *slog.Logger

	node     Node
	path     Path
	selected bool

	state        State
	buf          EditBuffer
	committed    string
	hasCommitted bool
	err          error

	recomputing bool
	generation  uint64 // bumped by every commit
	timer       *time.Timer
}

// NewSession returns a session over store. A nil cfg.Logger discards logs.
func NewSession(store Store, cfg Config) *Session {
	if cfg.Logger == nil {
		cfg.Logger = DefaultConfig().Logger
	}
	return &Session{
		store: store,
		cfg:   cfg,
		log:   cfg.Logger.With("component", "jsonedit"),
	}
}

// Select presents a new node and its path. It is refused while editing.
func (s *Session) Select(n Node, p Path) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Editing {
		return ErrEditInProgress
	}
	s.node = append(Node(nil), n...)
	s.path = p.Append()
	s.selected = true
	s.committed, s.hasCommitted = "", false
	s.err = nil
	return nil
}

// Edit starts editing the selected node.
func (s *Session) Edit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case !s.selected:
		return ErrNoNode
	case s.state == Editing:
		return ErrEditInProgress
	case s.recomputing:
		return ErrRecomputing
	}
	s.buf = newBuffer(s.node, s.committed, s.hasCommitted)
	s.state = Editing
	s.err = nil
	s.log.Debug("edit started", "path", FormatPath(s.path), "mode", s.buf.Mode())
	return nil
}

// SetText replaces the single buffer's text.
func (s *Session) SetText(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Editing {
		return ErrNotEditing
	}
	tb, ok := s.buf.(*TextBuffer)
	if !ok {
		return fmt.Errorf("%w: session is in %s mode", ErrWrongMode, s.buf.Mode())
	}
	tb.Text = text
	return nil
}

// SetField replaces the buffer text of one key in per-key mode.
func (s *Session) SetField(key, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Editing {
		return ErrNotEditing
	}
	fb, ok := s.buf.(*FieldBuffers)
	if !ok {
		return fmt.Errorf("%w: session is in %s mode", ErrWrongMode, s.buf.Mode())
	}
	return fb.set(key, text)
}

// Buffer returns a copy of the active edit buffer, or nil when not editing.
func (s *Session) Buffer() EditBuffer {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.buf == nil {
		return nil
	}
	return s.buf.clone()
}

// Commit parses the buffer, writes the result into a fresh snapshot of the
// document at the session's path and hands the new document to the store.
func (s *Session) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Editing {
		return ErrNotEditing
	}

	value, err := s.buf.value()
	if err != nil {
		return s.fail(err)
	}
	// per-key buffers hold only scalars; the node's array and object
	// members go back in unchanged
	replacement := value
	edited, perKey := value.(map[string]any)
	perKey = perKey && s.buf.Mode() == PerKey
	if perKey {
		replacement = s.node.withChildren(edited)
	}

	snapshot := s.store.DocumentText()
	out, err := s.render(snapshot, replacement)
	if err != nil {
		return s.fail(err)
	}

	if sw, ok := s.store.(Swapper); ok {
		if !sw.CompareAndSwap(snapshot, out, true) {
			return s.fail(ErrConflict)
		}
	} else {
		s.store.SetDocumentText(out, true)
	}

	if perKey {
		s.node = s.node.withValues(edited)
	} else {
		s.node = nodeOf(value)
	}
	s.committed, s.hasCommitted = textOf(value), true
	s.state = Viewing
	s.buf = nil
	s.err = nil
	s.log.Info("edit committed", "path", FormatPath(s.path), "bytes", len(out))

	s.beginRecompute()
	return nil
}

// Cancel discards the edit buffer and returns to Viewing.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Editing {
		s.log.Debug("edit cancelled", "path", FormatPath(s.path))
	}
	s.state = Viewing
	s.buf = nil
	s.err = nil
}

// Recomputed ends the recomputation window opened by the last commit.
func (s *Session) Recomputed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endRecompute()
}

// recomputeExpired is the timeout callback of window gen. A timer that fired
// after a later commit must not close the newer window.
func (s *Session) recomputeExpired(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation || !s.recomputing {
		return
	}
	s.log.Debug("recomputation timed out", "timeout", s.cfg.RecomputeTimeout)
	s.endRecompute()
}

func (s *Session) endRecompute() {
	if !s.recomputing {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.recomputing = false
	s.store.SetRecomputing(false)
	s.log.Debug("recomputation finished")
}

func (s *Session) beginRecompute() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.generation++
	s.recomputing = true
	s.store.SetRecomputing(true)
	if s.cfg.RecomputeTimeout > 0 {
		gen := s.generation
		s.timer = time.AfterFunc(s.cfg.RecomputeTimeout, func() { s.recomputeExpired(gen) })
	}
}

func (s *Session) render(snapshot string, value any) (string, error) {
	if s.cfg.PreserveKeyOrder {
		return PatchText(snapshot, s.path, value, s.cfg.Indent)
	}
	doc, err := Decode(snapshot)
	if err != nil {
		return "", err
	}
	updated, err := ApplyAt(doc, s.path, value)
	if err != nil {
		return "", err
	}
	return Encode(updated, s.cfg.Indent)
}

func (s *Session) fail(err error) error {
	s.err = err
	s.log.Debug("commit failed", "path", FormatPath(s.path), "error", err)
	return err
}

// State returns the current editing state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Recomputing reports whether the session is waiting for downstream views.
func (s *Session) Recomputing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recomputing
}

// View returns the text shown for the node: the last committed value, or the
// node's canonical JSON.
func (s *Session) View() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hasCommitted {
		return s.committed
	}
	return Normalize(s.node)
}

// Locator returns the formatted path of the selected node.
func (s *Session) Locator() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return FormatPath(s.path)
}

// Path returns a copy of the selected node's path.
func (s *Session) Path() Path {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path.Append()
}

// Err returns the error of the last failed commit while still editing.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// ErrorMessage is Err as display text, empty when there is no error.
func (s *Session) ErrorMessage() string {
	if err := s.Err(); err != nil {
		return err.Error()
	}
	return ""
}
