package store

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/afero"
)

//go:embed schema.sql
var schema string

const DefaultSession = "default"

// KeyValue is the string storage a browsing session writes to.
type KeyValue interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
	// Update replaces the value of key with fn(current) as one atomic step.
	// Nothing is written when fn fails.
	Update(key string, fn func(current string, ok bool) (string, error)) error
}

// Sessions hands out one KeyValue per browsing session.
type Sessions interface {
	Open(session string) (KeyValue, error)
	Close() error
}

// NewSessionID returns a fresh random session id.
func NewSessionID() string {
	return uuid.NewString()
}

// OpenSessions opens the backend named kind: "memory", "file" or "sqlite".
// File and SQLite data live under the user cache dir.
func OpenSessions(kind string) (Sessions, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "memory":
		return NewMemorySessions(), nil
	case "file":
		dir, err := cachePath("sessions")
		if err != nil {
			return nil, err
		}
		return NewFileSessions(fs, dir), nil
	case "sqlite":
		path, err := cachePath("sessions.db")
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		return OpenSQLiteSessions(path)
	default:
		return nil, fmt.Errorf("unknown store %q (want memory, file or sqlite)", kind)
	}
}

func sessionName(session string) string {
	session = strings.TrimSpace(session)
	if session == "" {
		return DefaultSession
	}
	return session
}

type MemoryKV struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: map[string]string{}}
}

func (m *MemoryKV) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.values[key]
	return value, ok, nil
}

func (m *MemoryKV) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryKV) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *MemoryKV) Update(key string, fn func(string, bool) (string, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.values[key]
	next, err := fn(current, ok)
	if err != nil {
		return err
	}
	m.values[key] = next
	return nil
}

// MemorySessions keeps every session in process memory; data is gone on exit.
type MemorySessions struct {
	mu       sync.Mutex
	sessions map[string]*MemoryKV
}

func NewMemorySessions() *MemorySessions {
	return &MemorySessions{sessions: map[string]*MemoryKV{}}
}

func (m *MemorySessions) Open(session string) (KeyValue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name := sessionName(session)
	kv, ok := m.sessions[name]
	if !ok {
		kv = NewMemoryKV()
		m.sessions[name] = kv
	}
	return kv, nil
}

func (m *MemorySessions) Close() error { return nil }

// FileKV stores a session as one JSON object on disk.
type FileKV struct {
	mu   *sync.Mutex
	fs   afero.Fs
	path string
}

func (f *FileKV) Get(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	values, err := f.read()
	if err != nil {
		return "", false, err
	}
	value, ok := values[key]
	return value, ok, nil
}

func (f *FileKV) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	values, err := f.read()
	if err != nil {
		return err
	}
	values[key] = value
	return f.write(values)
}

func (f *FileKV) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	values, err := f.read()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return f.write(values)
}

func (f *FileKV) Update(key string, fn func(string, bool) (string, error)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	values, err := f.read()
	if err != nil {
		return err
	}
	current, ok := values[key]
	next, err := fn(current, ok)
	if err != nil {
		return err
	}
	values[key] = next
	return f.write(values)
}

func (f *FileKV) read() (map[string]string, error) {
	data, err := afero.ReadFile(f.fs, f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	values := map[string]string{}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("decode session file %s: %w", f.path, err)
	}
	return values, nil
}

func (f *FileKV) write(values map[string]string) error {
	if err := f.fs.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}
	payload, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}
	return afero.WriteFile(f.fs, f.path, payload, 0o644)
}

// FileSessions keeps one file per session under dir. File names are derived
// from the session name, so any string is a valid session.
type FileSessions struct {
	mu  sync.Mutex
	fs  afero.Fs
	dir string
}

var sessionNamespace = uuid.MustParse("6f1c1d2e-8a0b-4c7e-9d53-2b4e0f6a9c11")

func NewFileSessions(fsys afero.Fs, dir string) *FileSessions {
	return &FileSessions{fs: fsys, dir: dir}
}

func (f *FileSessions) Open(session string) (KeyValue, error) {
	name := uuid.NewSHA1(sessionNamespace, []byte(sessionName(session))).String()
	return &FileKV{
		mu:   &f.mu,
		fs:   f.fs,
		path: filepath.Join(f.dir, name+".json"),
	}, nil
}

func (f *FileSessions) Close() error { return nil }

const upsertKV = `INSERT INTO kv (session, key, value, updated_at) VALUES (?, ?, ?, ?)
	ON CONFLICT(session, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

type SQLiteKV struct {
	db      *sql.DB
	session string
}

func (s *SQLiteKV) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(
		"SELECT value FROM kv WHERE session = ? AND key = ?",
		s.session, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLiteKV) Set(key, value string) error {
	if _, err := s.db.Exec(upsertKV, s.session, key, value, time.Now()); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteKV) Delete(key string) error {
	if _, err := s.db.Exec("DELETE FROM kv WHERE session = ? AND key = ?", s.session, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Update reads and writes key inside one transaction.
func (s *SQLiteKV) Update(key string, fn func(string, bool) (string, error)) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("update %s: %w", key, err)
	}
	defer func() { _ = tx.Rollback() }()

	var current string
	ok := true
	err = tx.QueryRow("SELECT value FROM kv WHERE session = ? AND key = ?", s.session, key).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		ok = false
	} else if err != nil {
		return fmt.Errorf("update %s: %w", key, err)
	}

	next, err := fn(current, ok)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(upsertKV, s.session, key, next, time.Now()); err != nil {
		return fmt.Errorf("update %s: %w", key, err)
	}
	return tx.Commit()
}

// SQLiteSessions shares one database across sessions, keyed by session name.
type SQLiteSessions struct {
	db *sql.DB
}

// OpenSQLiteSessions opens (or creates) the database at path. Use ":memory:" in tests.
func OpenSQLiteSessions(path string) (*SQLiteSessions, error) {
	dsn := path
	if path != ":memory:" {
		// Other processes may write the same file; take the write lock up front.
		dsn += "?_txlock=immediate"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and serializes writes.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &SQLiteSessions{db: db}, nil
}

func (s *SQLiteSessions) Open(session string) (KeyValue, error) {
	return &SQLiteKV{db: s.db, session: sessionName(session)}, nil
}

func (s *SQLiteSessions) Close() error {
	return s.db.Close()
}
