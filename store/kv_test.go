package store

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
)

func testBackends(t *testing.T) map[string]Sessions {
	t.Helper()
	sqlite, err := OpenSQLiteSessions(":memory:")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]Sessions{
		"memory": NewMemorySessions(),
		"file":   NewFileSessions(afero.NewMemMapFs(), "/cache/sessions"),
		"sqlite": sqlite,
	}
}

func TestKeyValue_RoundTrip(t *testing.T) {
	for name, sessions := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			kv, err := sessions.Open("s1")
			if err != nil {
				t.Fatalf("expected nil error, got %v", err)
			}

			if _, ok, err := kv.Get("missing"); err != nil || ok {
				t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
			}
			if err := kv.Set("k", "v1"); err != nil {
				t.Fatalf("expected nil error, got %v", err)
			}
			if err := kv.Set("k", "v2"); err != nil {
				t.Fatalf("expected nil error, got %v", err)
			}
			value, ok, err := kv.Get("k")
			if err != nil || !ok || value != "v2" {
				t.Fatalf("expected v2, got %q ok=%v err=%v", value, ok, err)
			}

			other, _ := sessions.Open("s2")
			if _, ok, _ := other.Get("k"); ok {
				t.Fatal("expected sessions to be isolated")
			}
			again, _ := sessions.Open("s1")
			if value, _, _ := again.Get("k"); value != "v2" {
				t.Fatalf("expected reopened session to keep v2, got %q", value)
			}

			if err := kv.Delete("k"); err != nil {
				t.Fatalf("expected nil error, got %v", err)
			}
			if err := kv.Delete("k"); err != nil {
				t.Fatalf("expected deleting twice to succeed, got %v", err)
			}
			if _, ok, _ := kv.Get("k"); ok {
				t.Fatal("expected key to be deleted")
			}
		})
	}
}

func TestSessions_EmptyNameIsDefault(t *testing.T) {
	sessions := NewMemorySessions()
	a, _ := sessions.Open("")
	b, _ := sessions.Open(DefaultSession)
	if err := a.Set("k", "v"); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if value, _, _ := b.Get("k"); value != "v" {
		t.Fatalf("expected the empty session to be %q, got %q", DefaultSession, value)
	}
}

func TestOpenSessions_UnknownKind(t *testing.T) {
	if _, err := OpenSessions("redis"); err == nil {
		t.Fatal("expected error for unknown store")
	}
	sessions, err := OpenSessions("memory")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if _, ok := sessions.(*MemorySessions); !ok {
		t.Fatalf("expected memory sessions, got %T", sessions)
	}
}

func TestFileKV_CorruptFile(t *testing.T) {
	memfs := afero.NewMemMapFs()
	sessions := NewFileSessions(memfs, "/cache/sessions")
	kv, _ := sessions.Open("s1")

	path := kv.(*FileKV).path
	if err := afero.WriteFile(memfs, path, []byte("not json"), 0o644); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if _, _, err := kv.Get("k"); err == nil {
		t.Fatal("expected decode error for a corrupt session file")
	}
}

type failingKV struct{}

func (failingKV) Get(string) (string, bool, error) { return "", false, errors.New("boom") }
func (failingKV) Set(string, string) error         { return errors.New("boom") }
func (failingKV) Delete(string) error              { return errors.New("boom") }
func (failingKV) Update(string, func(string, bool) (string, error)) error {
	return errors.New("boom")
}
