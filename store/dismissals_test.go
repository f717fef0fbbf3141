package store

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestDismissalStore_DismissAndReload(t *testing.T) {
	for name, sessions := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			kv, _ := sessions.Open("browse")
			store := NewDismissalStore(kv)

			if got := store.Load(); len(got) != 0 {
				t.Fatalf("expected empty set, got %+v", got)
			}

			store.Dismiss("2024-01-10|B|/b")
			set := store.Dismiss("2024-01-10|A|/a")
			if len(set) != 2 {
				t.Fatalf("expected two ids, got %+v", set)
			}
			store.Dismiss("2024-01-10|A|/a")

			raw, _, _ := kv.Get(DismissedKey)
			if raw != `["2024-01-10|A|/a","2024-01-10|B|/b"]` {
				t.Fatalf("expected sorted JSON array, got %s", raw)
			}

			reopened, _ := sessions.Open("browse")
			loaded := NewDismissalStore(reopened).Load()
			if !loaded["2024-01-10|A|/a"] || !loaded["2024-01-10|B|/b"] {
				t.Fatalf("expected dismissals to persist, got %+v", loaded)
			}

			store.Clear()
			if got := store.Load(); len(got) != 0 {
				t.Fatalf("expected empty set after clear, got %+v", got)
			}
		})
	}
}

func TestDismissalStore_MalformedValue(t *testing.T) {
	kv := NewMemoryKV()
	_ = kv.Set(DismissedKey, `{"not":"an array"}`)

	if got := NewDismissalStore(kv).Load(); len(got) != 0 {
		t.Fatalf("expected empty set for malformed value, got %+v", got)
	}
}

func TestDismissalStore_FailingBackend(t *testing.T) {
	store := NewDismissalStore(failingKV{})

	if got := store.Load(); len(got) != 0 {
		t.Fatalf("expected empty set, got %+v", got)
	}
	set := store.Dismiss("id")
	if !set["id"] {
		t.Fatalf("expected the returned set to contain id, got %+v", set)
	}
	store.Clear()
}

func TestDismissalStore_NilBackend(t *testing.T) {
	store := NewDismissalStore(nil)
	store.Dismiss("id")
	if !store.Load()["id"] {
		t.Fatal("expected nil backend to fall back to memory")
	}
}

// slowKV widens the gap between reading and writing a value.
type slowKV struct {
	*MemoryKV
}

func (s slowKV) Get(key string) (string, bool, error) {
	value, ok, err := s.MemoryKV.Get(key)
	time.Sleep(time.Millisecond)
	return value, ok, err
}

func (s slowKV) Update(key string, fn func(string, bool) (string, error)) error {
	return s.MemoryKV.Update(key, func(current string, ok bool) (string, error) {
		time.Sleep(time.Millisecond)
		return fn(current, ok)
	})
}

func TestDismissalStore_ConcurrentDismiss(t *testing.T) {
	backends := testBackends(t)
	backends["slow"] = slowSessions{}

	for name, sessions := range backends {
		t.Run(name, func(t *testing.T) {
			kv, err := sessions.Open("busy")
			if err != nil {
				t.Fatalf("expected nil error, got %v", err)
			}
			const n = 20

			var wg sync.WaitGroup
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					// Each request opens its own store, as the HTTP handlers do.
					NewDismissalStore(kv).Dismiss(fmt.Sprintf("2024-01-20|Movie %02d|/m%d", i, i))
				}(i)
			}
			wg.Wait()

			if got := NewDismissalStore(kv).Load(); len(got) != n {
				t.Fatalf("expected %d dismissed ids, got %d", n, len(got))
			}
		})
	}
}

type slowSessions struct{}

func (slowSessions) Open(string) (KeyValue, error) { return slowKV{NewMemoryKV()}, nil }
func (slowSessions) Close() error                  { return nil }
