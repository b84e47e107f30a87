package jsonedit

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const profileDoc = `{
  "profile": {
    "name": "ada",
    "age": 36,
    "email": "ada@example.com"
  },
  "tags": ["math", "engines"],
  "version": 2
}`

func selectAt(t *testing.T, s *Session, store Store, p Path) {
	t.Helper()
	doc := mustDecode(t, store.DocumentText())
	n, err := NodeAt(doc, p)
	require.NoError(t, err)
	require.NoError(t, s.Select(n, p))
}

func newTestSession(t *testing.T, doc string, p Path) (*Session, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore(doc)
	s := NewSession(store, DefaultConfig())
	selectAt(t, s, store, p)
	return s, store
}

func TestSessionViewAndLocator(t *testing.T) {
	s, _ := newTestSession(t, profileDoc, P("profile"))

	assert.Equal(t, Viewing, s.State())
	assert.Equal(t, `$["profile"]`, s.Locator())
	assert.Equal(t, "{\n  \"age\": 36,\n  \"email\": \"ada@example.com\",\n  \"name\": \"ada\"\n}", s.View())
}

func TestSessionPerKeyRoundTripUnchanged(t *testing.T) {
	s, store := newTestSession(t, profileDoc, P("profile"))

	require.NoError(t, s.Edit())
	fb, ok := s.Buffer().(*FieldBuffers)
	require.True(t, ok, "profile node should use per-key buffers")
	assert.Equal(t, []string{"age", "email", "name"}, fb.Keys())
	age, _ := fb.Get("age")
	assert.Equal(t, "36", age)
	name, _ := fb.Get("name")
	assert.Equal(t, "ada", name)

	before := mustDecode(t, profileDoc)
	require.NoError(t, s.Commit())
	assert.Equal(t, before, mustDecode(t, store.DocumentText()))
	assert.True(t, store.Dirty())
}

func TestSessionPerKeyFallbackPerField(t *testing.T) {
	doc := `{"cfg": {"key1": "a", "key2": 1}}`
	s, store := newTestSession(t, doc, P("cfg"))

	require.NoError(t, s.Edit())
	require.NoError(t, s.SetField("key1", "not json"))
	require.NoError(t, s.SetField("key2", "42"))
	require.NoError(t, s.Commit())

	want := map[string]any{"cfg": map[string]any{"key1": "not json", "key2": json.Number("42")}}
	assert.Equal(t, want, mustDecode(t, store.DocumentText()))
	assert.Equal(t, "{\n  \"key1\": \"not json\",\n  \"key2\": 42\n}", s.View())
}

func TestSessionPerKeyReeditSeedsFromLastCommit(t *testing.T) {
	s, store := newTestSession(t, `{"p": {"name": "ada", "age": 1}}`, P("p"))

	require.NoError(t, s.Edit())
	require.NoError(t, s.SetField("name", "grace"))
	require.NoError(t, s.Commit())
	s.Recomputed()

	require.NoError(t, s.Edit())
	name, _ := s.Buffer().(*FieldBuffers).Get("name")
	assert.Equal(t, "grace", name)
	require.NoError(t, s.Commit())

	want := mustDecode(t, `{"p": {"name": "grace", "age": 1}}`)
	assert.Equal(t, want, mustDecode(t, store.DocumentText()))
}

func TestSessionPerKeyKeepsNestedMembers(t *testing.T) {
	doc := `{"server": {"port": 80, "host": "h", "tls": {"on": true}, "alt": [1, 2]}}`
	s, store := newTestSession(t, doc, P("server"))

	require.NoError(t, s.Edit())
	fb, ok := s.Buffer().(*FieldBuffers)
	require.True(t, ok)
	assert.Equal(t, []string{"host", "port"}, fb.Keys())
	require.NoError(t, s.SetField("port", "81"))
	require.NoError(t, s.Commit())

	want := mustDecode(t, `{"server": {"port": 81, "host": "h", "tls": {"on": true}, "alt": [1, 2]}}`)
	assert.Equal(t, want, mustDecode(t, store.DocumentText()))
	assert.Equal(t, "{\n  \"host\": \"h\",\n  \"port\": 81\n}", s.View())

	// an unchanged commit leaves the document as it is
	s.Recomputed()
	require.NoError(t, s.Edit())
	require.NoError(t, s.Commit())
	assert.Equal(t, want, mustDecode(t, store.DocumentText()))
}

func TestSessionSingleBufferParseErrorKeepsEditing(t *testing.T) {
	s, store := newTestSession(t, profileDoc, P("tags"))
	rev := store.Revision()

	require.NoError(t, s.Edit())
	tb, ok := s.Buffer().(*TextBuffer)
	require.True(t, ok)
	assert.Equal(t, "[\n  \"math\",\n  \"engines\"\n]", tb.Text)

	require.NoError(t, s.SetText("{bad"))
	err := s.Commit()
	require.ErrorIs(t, err, ErrParse)

	assert.Equal(t, Editing, s.State())
	assert.Equal(t, "{bad", s.Buffer().(*TextBuffer).Text)
	assert.NotEmpty(t, s.ErrorMessage())
	assert.Equal(t, rev, store.Revision(), "document must not be written")
	assert.False(t, store.Recomputing())

	// fix and retry
	require.NoError(t, s.SetText(`["logic"]`))
	require.NoError(t, s.Commit())
	assert.Equal(t, Viewing, s.State())
	assert.Empty(t, s.ErrorMessage())
	assert.Nil(t, s.Buffer())
	assert.Equal(t, []any{"logic"}, mustDecode(t, store.DocumentText()).(map[string]any)["tags"])
}

func TestSessionRecomputationWindow(t *testing.T) {
	s, store := newTestSession(t, profileDoc, P("version"))

	require.NoError(t, s.Edit())
	require.NoError(t, s.SetText("3"))
	require.NoError(t, s.Commit())

	assert.True(t, s.Recomputing())
	assert.True(t, store.Recomputing())
	require.ErrorIs(t, s.Edit(), ErrRecomputing)

	s.Recomputed()
	assert.False(t, s.Recomputing())
	assert.False(t, store.Recomputing())

	// reopening seeds from the last committed text
	require.NoError(t, s.Edit())
	assert.Equal(t, "3", s.Buffer().(*TextBuffer).Text)
	assert.Equal(t, "3", s.View())
}

func TestSessionRecomputeTimeout(t *testing.T) {
	store := NewMemoryStore(profileDoc)
	cfg := DefaultConfig()
	cfg.RecomputeTimeout = 10 * time.Millisecond
	s := NewSession(store, cfg)
	selectAt(t, s, store, P("version"))

	require.NoError(t, s.Edit())
	require.NoError(t, s.SetText("4"))
	require.NoError(t, s.Commit())

	require.Eventually(t, func() bool {
		return !s.Recomputing() && !store.Recomputing()
	}, time.Second, 5*time.Millisecond)
}

func TestSessionStaleRecomputeTimeoutIgnored(t *testing.T) {
	store := NewMemoryStore(profileDoc)
	cfg := DefaultConfig()
	cfg.RecomputeTimeout = time.Hour
	s := NewSession(store, cfg)
	selectAt(t, s, store, P("version"))

	commit := func(text string) {
		t.Helper()
		require.NoError(t, s.Edit())
		require.NoError(t, s.SetText(text))
		require.NoError(t, s.Commit())
	}

	commit("3")
	stale := s.generation
	s.Recomputed()
	commit("4")

	// a timer of the first window firing late
	s.recomputeExpired(stale)
	assert.True(t, s.Recomputing())
	assert.True(t, store.Recomputing())

	s.recomputeExpired(s.generation)
	assert.False(t, s.Recomputing())
	assert.False(t, store.Recomputing())
}

func TestSessionCancelLeavesDocument(t *testing.T) {
	s, store := newTestSession(t, profileDoc, P("profile"))
	rev := store.Revision()

	require.NoError(t, s.Edit())
	require.NoError(t, s.SetField("name", "grace"))
	s.Cancel()

	assert.Equal(t, Viewing, s.State())
	assert.Nil(t, s.Buffer())
	assert.Equal(t, profileDoc, store.DocumentText())
	assert.Equal(t, rev, store.Revision())
	assert.False(t, store.Dirty())
}

func TestSessionModeGuards(t *testing.T) {
	s, _ := newTestSession(t, profileDoc, P("profile"))

	require.ErrorIs(t, s.SetText("x"), ErrNotEditing)
	require.ErrorIs(t, s.Commit(), ErrNotEditing)

	require.NoError(t, s.Edit())
	require.ErrorIs(t, s.Edit(), ErrEditInProgress)
	require.ErrorIs(t, s.SetText("{}"), ErrWrongMode)
	require.ErrorIs(t, s.SetField("missing", "1"), ErrUnknownField)
	require.ErrorIs(t, s.Select(nil, nil), ErrEditInProgress)
}

func TestSessionEditWithoutNode(t *testing.T) {
	s := NewSession(NewMemoryStore("{}"), Config{})
	require.ErrorIs(t, s.Edit(), ErrNoNode)
	assert.Equal(t, "$", s.Locator())
	assert.Equal(t, "{}", s.View())
}

func TestSessionBufferModeSelection(t *testing.T) {
	tests := []struct {
		name string
		node Node
		want Mode
	}{
		{"empty", Node{}, SingleBuffer},
		{"keyless scalar", Node{ValueField("x")}, SingleBuffer},
		{"single keyed scalar", Node{KeyedField("a", "x")}, PerKey},
		{"two keyed scalars", Node{KeyedField("a", "x"), KeyedField("b", true)}, PerKey},
		{"one scalar and a container", Node{KeyedField("a", "x"), KeyedField("b", []any{})}, SingleBuffer},
		{"single keyed container", Node{KeyedField("a", []any{})}, SingleBuffer},
		{"keyless scalars", Node{ValueField("x"), ValueField("y")}, SingleBuffer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession(NewMemoryStore("{}"), DefaultConfig())
			require.NoError(t, s.Select(tt.node, nil))
			require.NoError(t, s.Edit())
			assert.Equal(t, tt.want, s.Buffer().Mode())
		})
	}
}

func TestSessionSelectClearsCommittedText(t *testing.T) {
	s, store := newTestSession(t, profileDoc, P("version"))
	require.NoError(t, s.Edit())
	require.NoError(t, s.SetText("9"))
	require.NoError(t, s.Commit())
	s.Recomputed()
	assert.Equal(t, "9", s.View())

	selectAt(t, s, store, P("profile", "name"))
	assert.Equal(t, `"ada"`, s.View())
	assert.Equal(t, `$["profile"]["name"]`, s.Locator())
}

func TestSessionStaleNodeReportsPathError(t *testing.T) {
	s, store := newTestSession(t, `{"a": {"b": {"k": 1, "j": 2}}}`, P("a", "b"))
	require.NoError(t, s.Edit())

	store.SetDocumentText(`{"a": 5}`, false)
	err := s.Commit()
	require.ErrorIs(t, err, ErrPathMismatch)
	assert.Equal(t, Editing, s.State())
	assert.NotNil(t, s.Buffer())

	store.SetDocumentText(`{}`, false)
	require.ErrorIs(t, s.Commit(), ErrPathNotFound)
}

// racyStore rewrites the document right after every snapshot read.
type racyStore struct {
	*MemoryStore
}

func (r racyStore) DocumentText() string {
	text := r.MemoryStore.DocumentText()
	r.MemoryStore.SetDocumentText(`{"profile": {}, "other": true}`, false)
	return text
}

func TestSessionDetectsConcurrentRewrite(t *testing.T) {
	store := racyStore{NewMemoryStore(profileDoc)}
	s := NewSession(store, DefaultConfig())
	selectAt(t, s, store.MemoryStore, P("profile"))

	require.NoError(t, s.Edit())
	require.ErrorIs(t, s.Commit(), ErrConflict)
	assert.Equal(t, Editing, s.State())
}

// plainStore implements only Store.
type plainStore struct {
	text        string
	dirty       bool
	recomputing bool
}

func (p *plainStore) DocumentText() string { return p.text }
func (p *plainStore) SetDocumentText(text string, dirty bool) {
	p.text, p.dirty = text, dirty
}
func (p *plainStore) SetRecomputing(on bool) { p.recomputing = on }

func TestSessionSortedOutputWithoutKeyOrder(t *testing.T) {
	store := &plainStore{text: `{"b": 1, "a": {"y": 1, "x": 2}}`}
	cfg := DefaultConfig()
	cfg.PreserveKeyOrder = false
	cfg.Indent = ""
	s := NewSession(store, cfg)
	require.NoError(t, s.Select(Node{ValueField(json.Number("1"))}, P("b")))

	require.NoError(t, s.Edit())
	require.NoError(t, s.SetText("10"))
	require.NoError(t, s.Commit())

	assert.Equal(t, `{"a":{"x":2,"y":1},"b":10}`, store.text)
	assert.True(t, store.dirty)
	assert.True(t, store.recomputing)
}
