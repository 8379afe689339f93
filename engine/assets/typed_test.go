package assets

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStringLoader() *TypedLoader[string] {
	l := NewTypedLoader[string]("text", "texts", 0)
	l.Prepare = func(key, source string, entry *Entry) (string, error) {
		if source == "" {
			return "", fmt.Errorf("no source for '%s'", key)
		}
		return "asset:" + source, nil
	}
	return l
}

func TestTypedLoaderLoadAndGet(t *testing.T) {
	l := newStringLoader()

	require.True(t, l.Load("greeting", "hello.txt"))
	v, ok := l.Get("greeting")
	require.True(t, ok)
	assert.Equal(t, "asset:hello.txt", v)
	assert.True(t, l.Contains("greeting"))
	assert.Equal(t, 1, l.LoadCount())
	assert.Equal(t, []string{"greeting"}, l.Keys())
}

func TestTypedLoaderLoadIsIdempotent(t *testing.T) {
	l := newStringLoader()

	require.True(t, l.Load("greeting", "hello.txt"))
	assert.False(t, l.Load("greeting", "other.txt"), "second load of the same key must be refused")

	v, _ := l.Get("greeting")
	assert.Equal(t, "asset:hello.txt", v, "the resident asset must not be replaced")
	assert.Equal(t, 1, l.LoadCount())
}

func TestTypedLoaderFailedLoadIsNotStored(t *testing.T) {
	l := newStringLoader()

	assert.False(t, l.Load("broken", ""))
	assert.False(t, l.Contains("broken"))
	assert.Equal(t, 0, l.WaitCount(), "a failed load must not leave the key in flight")

	// The key is free to be retried.
	assert.True(t, l.Load("broken", "fixed.txt"))
}

func TestTypedLoaderReserveFeedsWaitCount(t *testing.T) {
	l := newStringLoader()

	l.Reserve(5)
	assert.Equal(t, 5, l.WaitCount())
	assert.False(t, l.Complete())
	assert.Equal(t, 0.0, l.Progress())

	// Each load consumes one reservation.
	for i, src := range []string{"a.txt", "b.txt", "c.txt"} {
		require.True(t, l.Load(fmt.Sprintf("key%d", i), src))
	}
	assert.Equal(t, 3, l.LoadCount())
	assert.Equal(t, 2, l.WaitCount())
	assert.InDelta(t, 3.0/5.0, l.Progress(), 1e-9)

	// Loads beyond the reservation do not drive the counter negative.
	l2 := newStringLoader()
	l2.Reserve(1)
	require.True(t, l2.Load("a", "a.txt"))
	require.True(t, l2.Load("b", "b.txt"))
	assert.Equal(t, 0, l2.WaitCount())
	assert.True(t, l2.Complete())
}

func TestTypedLoaderWaitCountTracksReservedAndInFlight(t *testing.T) {
	l := newStringLoader()

	l.Reserve(5)
	for _, key := range []string{"a", "b", "c"} {
		require.True(t, l.enqueue(key))
	}
	assert.Equal(t, 3, l.InFlight())
	assert.Equal(t, 5, l.WaitCount(), "2 remaining reservations plus 3 in flight")

	// A duplicate enqueue must not consume another reservation.
	require.False(t, l.enqueue("a"))
	assert.Equal(t, 5, l.WaitCount())

	// Materialization empties the in-flight entry on success and failure
	// alike.
	require.True(t, l.materialize("a", "asset:a", nil, nil))
	require.False(t, l.materialize("b", "", fmt.Errorf("bad bytes"), nil))
	assert.Equal(t, 1, l.InFlight())
	assert.Equal(t, 3, l.WaitCount())
	assert.Equal(t, 1, l.LoadCount())
}

func TestTypedLoaderReserveIgnoresNonPositive(t *testing.T) {
	l := newStringLoader()
	l.Reserve(0)
	l.Reserve(-3)
	assert.Equal(t, 0, l.WaitCount())
}

func TestTypedLoaderProgressEmptyIsZero(t *testing.T) {
	l := newStringLoader()
	assert.Equal(t, 0.0, l.Progress())
	assert.True(t, l.Complete())
}

func TestTypedLoaderPurge(t *testing.T) {
	l := newStringLoader()
	require.True(t, l.Load("a", "a.txt"))

	assert.True(t, l.Unload("a"))
	assert.False(t, l.Contains("a"))
	assert.False(t, l.Unload("a"), "purging an absent key reports false")
}

func TestTypedLoaderUnloadAll(t *testing.T) {
	l := newStringLoader()
	require.True(t, l.Load("a", "a.txt"))
	require.True(t, l.Load("b", "b.txt"))

	l.UnloadAll()
	assert.Equal(t, 0, l.LoadCount())
	assert.False(t, l.Contains("a"))
}

func TestTypedLoaderFinalizeRuns(t *testing.T) {
	l := newStringLoader()
	var finalized []string
	l.Finalize = func(key string, asset string) error {
		finalized = append(finalized, key)
		return nil
	}

	require.True(t, l.Load("a", "a.txt"))
	assert.Equal(t, []string{"a"}, finalized)
}

func TestTypedLoaderFinalizeErrorFailsLoad(t *testing.T) {
	l := newStringLoader()
	l.Finalize = func(key string, asset string) error {
		return fmt.Errorf("no graphics context")
	}

	assert.False(t, l.Load("a", "a.txt"))
	assert.False(t, l.Contains("a"))
}

func TestTypedLoaderReadRejectsEmptyKeyOrNilPrepare(t *testing.T) {
	l := newStringLoader()
	assert.False(t, l.Load("", "a.txt"))

	bare := NewTypedLoader[string]("bare", "bares", 0)
	assert.False(t, bare.Load("a", "a.txt"))
}

func TestTypedLoaderCallbackReportsOutcome(t *testing.T) {
	l := newStringLoader()

	var gotKey string
	var gotSuccess bool
	cb := func(key string, success bool) {
		gotKey = key
		gotSuccess = success
	}

	require.True(t, l.Read("a", "a.txt", cb, false))
	assert.Equal(t, "a", gotKey)
	assert.True(t, gotSuccess)

	require.False(t, l.Read("bad", "", cb, false))
	assert.Equal(t, "bad", gotKey)
	assert.False(t, gotSuccess)
}

func TestTypedLoaderIdentity(t *testing.T) {
	l := NewTypedLoader[int]("number", "numbers", 7)
	assert.Equal(t, "numbers", l.JSONKey())
	assert.Equal(t, uint32(7), l.Priority())
	assert.Equal(t, TypeHash("number"), l.TypeHash())

	l.SetJSONKey("ints")
	l.SetPriority(2)
	assert.Equal(t, "ints", l.JSONKey())
	assert.Equal(t, uint32(2), l.Priority())
}
