// Package file provides a durable, file-backed implementation of the
// session.Store interface. The session is stored as a small JSON document
// holding the token and the serialized user profile, which is the on-disk
// analogue of the browser's localStorage keys.
//
// Cross-process visibility is best-effort: Watch surfaces fsnotify events
// for the session file, so a second process (another "tab") observes logins
// and logouts performed elsewhere.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/dsm1918/cms-client-go/session"
)

// record is the on-disk layout. Field names match the storage keys the
// backend's web client uses.
type record struct {
	Token string               `json:"token"`
	User  *session.UserProfile `json:"user"`
}

// Store implements session.Store over a single JSON file.
type Store struct {
	path string

	mu       sync.Mutex
	watchers map[chan struct{}]struct{}
	watcher  *fsnotify.Watcher
	watchErr error
	started  sync.Once
	closed   bool
}

// New creates a file-backed store at path, creating parent directories as
// needed. The file itself is created lazily on the first Save.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("file: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("file: create session dir: %w", err)
	}
	return &Store{
		path:     path,
		watchers: make(map[chan struct{}]struct{}),
	}, nil
}

// DefaultPath returns the conventional per-user location for the session
// file, rooted at the OS config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("file: resolve user config dir: %w", err)
	}
	return filepath.Join(dir, "dsm-cms", "session.json"), nil
}

// Load implements session.Store.Load.
func (s *Store) Load(ctx context.Context) (session.Session, error) {
	if err := ctx.Err(); err != nil {
		return session.Session{}, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return session.Session{}, nil
		}
		return session.Session{}, fmt.Errorf("file: read session: %w", err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		// A corrupt session file is equivalent to being logged out; the
		// next Save rewrites it whole.
		return session.Session{}, nil
	}
	if rec.Token == "" || rec.User == nil {
		return session.Session{}, nil
	}
	return session.Session{Token: rec.Token, User: rec.User}, nil
}

// Save implements session.Store.Save. The write goes through a temp file
// and rename so readers in other processes never observe a torn pair.
func (s *Store) Save(ctx context.Context, sess session.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := session.Validate(sess); err != nil {
		return err
	}

	data, err := json.Marshal(record{Token: sess.Token, User: sess.User})
	if err != nil {
		return fmt.Errorf("file: encode session: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("file: create temp session file: %w", err)
	}
	tmpName := tmp.Name()
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("file: chmod session file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("file: write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("file: close session file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("file: replace session file: %w", err)
	}
	return nil
}

// Clear implements session.Store.Clear.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("file: clear session: %w", err)
	}
	return nil
}

// Close implements session.Store.Close.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	for ch := range s.watchers {
		close(ch)
	}
	s.watchers = nil
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

// Watch implements session.Watcher. The fsnotify watcher is started lazily
// on the first call and watches the parent directory, since the session
// file itself is replaced by rename on every Save.
func (s *Store) Watch(ctx context.Context) (<-chan struct{}, error) {
	s.started.Do(func() {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			s.watchErr = err
			return
		}
		if err := w.Add(filepath.Dir(s.path)); err != nil {
			w.Close()
			s.watchErr = err
			return
		}
		s.mu.Lock()
		s.watcher = w
		s.mu.Unlock()
		go s.run(w)
	})
	if s.watchErr != nil {
		return nil, fmt.Errorf("file: start watcher: %w", s.watchErr)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ch := make(chan struct{})
		close(ch)
		return ch, nil
	}
	ch := make(chan struct{}, 1)
	s.watchers[ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		if _, ok := s.watchers[ch]; ok {
			delete(s.watchers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}()

	return ch, nil
}

func (s *Store) run(w *fsnotify.Watcher) {
	base := filepath.Base(s.path)
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			s.notify()
		case _, ok := <-w.Errors:
			if !ok {
				return
			}
			// Watch is best-effort; errors do not invalidate the store.
		}
	}
}

func (s *Store) notify() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for ch := range s.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Compile-time interface checks
var (
	_ session.Store   = (*Store)(nil)
	_ session.Watcher = (*Store)(nil)
)
