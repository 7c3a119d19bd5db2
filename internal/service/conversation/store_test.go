package conversation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateReturnsSameWindow(t *testing.T) {
	s := newTestStore(t, 10, 0)
	w1 := s.GetOrCreate("u1")
	w1.AppendUser("hello")

	assert.Same(t, w1, s.GetOrCreate("u1"))
	assert.Equal(t, 2, s.GetOrCreate("u1").Len())
	assert.Equal(t, 1, s.Len())
}

func TestDistinctUsersAreIndependent(t *testing.T) {
	s := newTestStore(t, 10, 0)
	a := s.GetOrCreate("alice")
	b := s.GetOrCreate("bob")

	a.AppendUser("from alice")
	a.AppendAssistant("to alice")

	assert.Equal(t, 3, a.Len())
	assert.Equal(t, 1, b.Len())
	assert.Equal(t, []Turn{{Role: RoleSystem, Content: testPrompt}}, b.Snapshot())
	assert.Equal(t, 2, s.Len())
}

func TestStoreLRUEvictsLeastRecentlyUsed(t *testing.T) {
	s := newTestStore(t, 10, 2)
	a := s.GetOrCreate("a")
	a.AppendUser("keep me")
	s.GetOrCreate("b")
	// Обращение к a делает b самым старым
	s.GetOrCreate("a")
	s.GetOrCreate("c")

	assert.Equal(t, 2, s.Len())
	assert.Same(t, a, s.GetOrCreate("a"))
	assert.Equal(t, 1, s.GetOrCreate("b").Len(), "b must be recreated empty")
}

func TestStoreReset(t *testing.T) {
	for _, limit := range []int{0, 5} {
		s := newTestStore(t, 10, limit)
		s.GetOrCreate("a").AppendUser("x")
		s.GetOrCreate("b")
		s.Reset()

		assert.Equal(t, 0, s.Len())
		assert.Equal(t, 1, s.GetOrCreate("a").Len())
	}
}

func TestNewStoreRejectsNothingForZeroLimit(t *testing.T) {
	s, err := NewStore("", 0, 0)
	require.NoError(t, err)
	w := s.GetOrCreate("u")
	w.AppendUser("x")
	assert.Equal(t, 1, w.Len())
}

func TestAcquireSerializesExchange(t *testing.T) {
	s := newTestStore(t, 10, 0)
	w, release := s.Acquire("u")

	acquired := make(chan *Window)
	go func() {
		w2, r := s.Acquire("u")
		acquired <- w2
		r()
	}()

	select {
	case <-acquired:
		t.Fatal("second exchange must wait for release")
	case <-time.After(50 * time.Millisecond):
	}
	release()
	select {
	case w2 := <-acquired:
		assert.Same(t, w, w2)
	case <-time.After(time.Second):
		t.Fatal("second exchange did not start after release")
	}
}

func TestLRUKeepsAcquiredWindow(t *testing.T) {
	s := newTestStore(t, 10, 1)
	w, release := s.Acquire("a")
	w.AppendUser("in flight")

	// b вытесняет a из LRU, но a удерживается
	s.GetOrCreate("b")
	assert.Equal(t, 2, s.Len())

	got := s.GetOrCreate("a")
	require.Same(t, w, got)
	assert.Equal(t, 2, got.Len())

	// Второй обработчик a ждёт первый, а не получает новое окно
	done := make(chan *Window)
	go func() {
		w2, r := s.Acquire("a")
		r()
		done <- w2
	}()
	select {
	case <-done:
		t.Fatal("acquire must wait while the window is held")
	case <-time.After(50 * time.Millisecond):
	}
	release()
	assert.Same(t, w, <-done)
}

func TestLRUDropsReleasedWindow(t *testing.T) {
	s := newTestStore(t, 10, 1)
	w, release := s.Acquire("a")
	s.GetOrCreate("b")
	release()

	assert.Equal(t, 1, s.Len())
	assert.NotSame(t, w, s.GetOrCreate("a"))
}
