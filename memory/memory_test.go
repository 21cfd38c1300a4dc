package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendPreservesOrder(t *testing.T) {
	m := New()
	for i := 0; i < 5; i++ {
		m.Append(NewFragment("tool", fmt.Sprintf("f%d", i), "", ""))
	}

	snap := m.Snapshot()
	require.Len(t, snap, 5)
	for i, f := range snap {
		assert.Equal(t, fmt.Sprintf("f%d", i), f.Content)
	}
	assert.Equal(t, 5, m.Len())
}

func TestSnapshotIsACopy(t *testing.T) {
	m := New()
	m.Append(NewFragment("read_file", "body", "file", "a.go", "go"))

	snap := m.Snapshot()
	snap[0].Content = "mutated"
	snap[0].Metadata.Tags[0] = "mutated"

	again := m.Snapshot()
	assert.Equal(t, "body", again[0].Content)
	assert.Equal(t, []string{"go"}, again[0].Metadata.Tags)
}

func TestConcurrentAppends(t *testing.T) {
	m := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.Append(NewFragment("worker", fmt.Sprint(i), "", ""))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 50, m.Len())
}

type recordingSink struct {
	appended []Fragment
	cleared  bool
	err      error
	clearErr error
}

func (s *recordingSink) Append(ctx context.Context, f Fragment) error {
	if s.err != nil {
		return s.err
	}
	s.appended = append(s.appended, f)
	return nil
}

func (s *recordingSink) Snapshot(ctx context.Context) ([]Fragment, error) {
	return s.appended, s.err
}

func (s *recordingSink) Clear(ctx context.Context) error {
	if s.clearErr != nil {
		return s.clearErr
	}
	s.cleared = true
	s.appended = nil
	return s.err
}

func TestSinkMirrorsAppendAndClear(t *testing.T) {
	sink := &recordingSink{}
	m := New(WithSink(sink))

	m.Append(NewFragment("a", "1", "", ""))
	m.Append(NewFragment("b", "2", "", ""))
	require.Len(t, sink.appended, 2)
	assert.Equal(t, "a", sink.appended[0].Source)

	require.NoError(t, m.Clear(context.Background()))
	assert.True(t, sink.cleared)
	assert.Zero(t, m.Len())
}

func TestFailedSinkClearKeepsLog(t *testing.T) {
	sink := &recordingSink{clearErr: errors.New("database is locked")}
	m := New(WithSink(sink))
	m.Append(NewFragment("a", "1", "", ""))
	m.Append(NewFragment("b", "2", "", ""))

	err := m.Clear(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")
	assert.Equal(t, 2, m.Len())
	assert.Len(t, sink.appended, 2)

	require.NoError(t, m.Load(context.Background()))
	assert.Equal(t, 2, m.Len())
}

func TestSinkFailureKeepsInMemoryAppend(t *testing.T) {
	m := New(WithSink(&recordingSink{err: errors.New("disk full")}))
	m.Append(NewFragment("a", "1", "", ""))
	assert.Equal(t, 1, m.Len())
}

func TestLoadFromSink(t *testing.T) {
	sink := &recordingSink{appended: []Fragment{{ID: "x", Source: "old", Content: "kept"}}}
	m := New(WithSink(sink))

	require.NoError(t, m.Load(context.Background()))
	snap := m.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "kept", snap[0].Content)
}

func TestNewFragmentMetadata(t *testing.T) {
	bare := NewFragment("plan", "text", "", "")
	assert.Nil(t, bare.Metadata)
	assert.NotEmpty(t, bare.ID)

	withMeta := NewFragment("read_file", "text", "file", "main.go", "go")
	require.NotNil(t, withMeta.Metadata)
	assert.Equal(t, "file", withMeta.Metadata.Kind)
	assert.Equal(t, "main.go", withMeta.Metadata.Path)
	assert.False(t, withMeta.Metadata.Timestamp.IsZero())
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "No context gathered yet.", Format(nil, 100))

	out := Format([]Fragment{
		NewFragment("search_files", "main.go", "", ""),
		NewFragment("read_file", strings.Repeat("x", 50), "file", "main.go"),
	}, 20)

	assert.Contains(t, out, "=== CONTEXT ITEM 1 (from search_files) ===")
	assert.Contains(t, out, "=== CONTEXT ITEM 2 (from read_file) ===")
	assert.Contains(t, out, "Path: main.go")
	assert.Contains(t, out, "[... 30 characters truncated ...]")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10, TruncateHeadTail))

	headTail := Truncate("abcdefghij", 4, TruncateHeadTail)
	assert.True(t, strings.HasPrefix(headTail, "ab"))
	assert.True(t, strings.HasSuffix(headTail, "ij"))
	assert.Contains(t, headTail, "6 characters truncated")

	tail := Truncate("abcdefghij", 3, TruncateTail)
	assert.True(t, strings.HasSuffix(tail, "hij"))
	assert.Contains(t, tail, "7 characters truncated")
}

func TestTruncateLines(t *testing.T) {
	in := "1\n2\n3\n4\n5\n6"
	out := TruncateLines(in, 4)
	assert.Equal(t, "1\n2\n[... 2 lines omitted ...]\n5\n6", out)
	assert.Equal(t, in, TruncateLines(in, 10))
}
