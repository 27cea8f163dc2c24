package querycache

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return s
}

func TestGet_ServesFreshFromCache(t *testing.T) {
	s := newTestStore(t)
	var calls int32
	fetch := func(context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return []string{"a", "b"}, nil
	}

	for i := 0; i < 3; i++ {
		v, err := s.Get(context.Background(), "list", fetch)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := v.([]string); len(got) != 2 {
			t.Fatalf("unexpected value: %v", got)
		}
	}
	if calls != 1 {
		t.Errorf("expected 1 fetch, got %d", calls)
	}
}

func TestGet_RefetchesAfterStalenessWindow(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	s.now = func() time.Time { return now }

	var calls int32
	fetch := func(context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return "v", nil
	}

	s.Get(context.Background(), "k", fetch)
	now = now.Add(DefaultStaleness + time.Second)
	s.Get(context.Background(), "k", fetch)

	if calls != 2 {
		t.Errorf("expected refetch after staleness window, got %d fetches", calls)
	}
}

func TestGet_DeduplicatesConcurrentFetches(t *testing.T) {
	s := newTestStore(t)
	var calls int32
	release := make(chan struct{})
	fetch := func(context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "v", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Get(context.Background(), "k", fetch)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls != 1 {
		t.Errorf("expected concurrent reads to share one fetch, got %d", calls)
	}
}

func TestInvalidate_ForcesRefetch(t *testing.T) {
	s := newTestStore(t)
	var calls int32
	fetch := func(context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return "v", nil
	}

	s.Get(context.Background(), "k", fetch)
	s.Invalidate("k")
	s.Get(context.Background(), "k", fetch)

	if calls != 2 {
		t.Errorf("expected refetch after invalidation, got %d fetches", calls)
	}
}

func TestSetData_PatchesCachedValue(t *testing.T) {
	s := newTestStore(t)
	fetch := func(context.Context) (interface{}, error) {
		return []int{1, 2, 3}, nil
	}
	s.Get(context.Background(), "k", fetch)

	s.SetData("k", func(current interface{}) interface{} {
		return append(current.([]int), 4)
	})

	v, _ := s.Peek("k")
	if got := v.([]int); len(got) != 4 || got[3] != 4 {
		t.Errorf("expected patched value, got %v", got)
	}
}

func TestSetData_IgnoresMissingEntry(t *testing.T) {
	s := newTestStore(t)
	s.SetData("nothing", func(current interface{}) interface{} {
		t.Error("updater must not run for a missing entry")
		return current
	})
}

func TestSnapshotRestore_RollbackIsExact(t *testing.T) {
	s := newTestStore(t)
	original := []map[string]string{
		{"id": "1", "start": "2025-03-01T14:00:00Z"},
		{"id": "2", "start": "2025-03-03T09:00:00Z"},
	}
	fetch := func(context.Context) (interface{}, error) { return original, nil }
	s.Get(context.Background(), "sessions", fetch)

	snapshot, ok := s.Snapshot("sessions")
	if !ok {
		t.Fatal("expected snapshot")
	}

	s.SetData("sessions", func(interface{}) interface{} {
		return []map[string]string{{"id": "1", "start": "2025-03-02T10:00:00Z"}}
	})
	s.Restore("sessions", snapshot)

	v, _ := s.Peek("sessions")
	if !reflect.DeepEqual(v, original) {
		t.Errorf("rollback not exact: got %v, want %v", v, original)
	}
}

func TestRestore_MarksEntryStale(t *testing.T) {
	s := newTestStore(t)
	var calls int32
	fetch := func(context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return "v", nil
	}
	s.Get(context.Background(), "k", fetch)
	s.Restore("k", "old")
	s.Get(context.Background(), "k", fetch)

	if calls != 2 {
		t.Errorf("expected restored entry to refetch on next read, got %d fetches", calls)
	}
}

func TestLateResponseDoesNotClobberOptimisticWrite(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	s.now = func() time.Time { return now }

	prime := func(context.Context) (interface{}, error) {
		return []string{"server-old"}, nil
	}
	if _, err := s.Get(context.Background(), "k", prime); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	now = now.Add(DefaultStaleness + time.Second)

	// Second fetch: the response is already computed but held back so the
	// optimistic write lands between the server answering and the store
	// recording the result.
	started := make(chan struct{})
	release := make(chan struct{})
	slow := func(ctx context.Context) (interface{}, error) {
		close(started)
		<-release
		return []string{"server-stale"}, nil
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Get(context.Background(), "k", slow)
	}()

	<-started
	s.CancelInflight("k")
	s.SetData("k", func(interface{}) interface{} {
		return []string{"optimistic"}
	})
	close(release)
	<-done

	v, ok := s.Peek("k")
	if !ok {
		t.Fatal("expected cache entry")
	}
	if got := v.([]string); len(got) != 1 || got[0] != "optimistic" {
		t.Errorf("late response clobbered optimistic value: got %v", got)
	}
}

func TestCancelInflight(t *testing.T) {
	s := newTestStore(t)
	started := make(chan struct{})
	fetch := func(ctx context.Context) (interface{}, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.Get(context.Background(), "k", fetch)
		done <- err
	}()

	<-started
	s.CancelInflight("k")

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("fetch was not canceled")
	}
}
