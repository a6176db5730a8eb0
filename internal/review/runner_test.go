package review

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparklepop/Code-Project-Review/internal/models"
	"github.com/sparklepop/Code-Project-Review/internal/source"
)

type recordingExecutor struct {
	mu   sync.Mutex
	ran  []string
	done chan string
	fail bool
}

func newRecordingExecutor() *recordingExecutor {
	return &recordingExecutor{done: make(chan string, 16)}
}

func (e *recordingExecutor) Run(_ context.Context, id string) (*models.CodeReview, error) {
	e.mu.Lock()
	e.ran = append(e.ran, id)
	e.mu.Unlock()
	e.done <- id
	if e.fail {
		return nil, errors.New("boom")
	}
	return &models.CodeReview{ID: id}, nil
}

func waitFor(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case id := <-ch:
		return id
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a review to run")
		return ""
	}
}

func TestRunner_RunsQueuedReviews(t *testing.T) {
	exec := newRecordingExecutor()
	r := NewRunner(exec, 2, 4, nil)
	r.Start(context.Background())
	defer r.Stop()

	require.NoError(t, r.Enqueue("a"))
	require.NoError(t, r.Enqueue("b"))

	got := map[string]bool{waitFor(t, exec.done): true, waitFor(t, exec.done): true}
	assert.Equal(t, map[string]bool{"a": true, "b": true}, got)
}

func TestRunner_Enqueue(t *testing.T) {
	exec := newRecordingExecutor()
	r := NewRunner(exec, 1, 2, nil)

	// Not started, so jobs stay queued.
	require.NoError(t, r.Enqueue("a"))
	require.NoError(t, r.Enqueue("a"))
	assert.Equal(t, 1, r.Pending(), "duplicate is not queued twice")

	require.NoError(t, r.Enqueue("b"))
	assert.ErrorIs(t, r.Enqueue("c"), ErrQueueFull)

	r.Start(context.Background())
	waitFor(t, exec.done)
	waitFor(t, exec.done)
	r.Stop()

	assert.Equal(t, 0, r.Pending())
	assert.ErrorIs(t, r.Enqueue("d"), ErrRunnerStopped)
	assert.ElementsMatch(t, []string{"a", "b"}, exec.ran)
}

func TestRunner_FailureDoesNotStopWorkers(t *testing.T) {
	exec := newRecordingExecutor()
	exec.fail = true
	r := NewRunner(exec, 1, 4, nil)
	r.Start(context.Background())
	defer r.Stop()

	require.NoError(t, r.Enqueue("a"))
	waitFor(t, exec.done)
	require.NoError(t, r.Enqueue("b"))
	assert.Equal(t, "b", waitFor(t, exec.done))
}

func TestRunner_StopIsIdempotent(t *testing.T) {
	r := NewRunner(newRecordingExecutor(), 1, 1, nil)
	r.Start(context.Background())
	r.Stop()
	r.Stop()
}

func TestRunner_SweepsStaleClones(t *testing.T) {
	root := t.TempDir()
	stale := filepath.Join(root, source.ClonePrefix+"old")
	fresh := filepath.Join(root, source.ClonePrefix+"new")
	require.NoError(t, os.Mkdir(stale, 0o755))
	require.NoError(t, os.Mkdir(fresh, 0o755))
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	r := NewRunner(newRecordingExecutor(), 1, 1, nil).WithCleanup(root, 24*time.Hour, 10*time.Millisecond)
	r.Start(context.Background())
	defer r.Stop()

	assert.Eventually(t, func() bool {
		_, err := os.Stat(stale)
		return os.IsNotExist(err)
	}, 2*time.Second, 10*time.Millisecond)
	assert.DirExists(t, fresh)
}

func TestKeyedMutex(t *testing.T) {
	var k keyedMutex

	unlock, ok := k.TryLock("a")
	require.True(t, ok)
	assert.True(t, k.Held("a"))

	_, ok = k.TryLock("a")
	assert.False(t, ok)

	other, ok := k.TryLock("b")
	require.True(t, ok)
	other()

	unlock()
	unlock()
	assert.False(t, k.Held("a"))

	again, ok := k.TryLock("a")
	require.True(t, ok)
	again()
}
