// Package session holds the identity of the logged-in user.
//
// A process has exactly one Store. Everybody may read it; only the holder of
// the Writer returned by New may replace or clear the session.
package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// PlaceholderAvatar is shown when the backend returned no avatar.
const PlaceholderAvatar = "https://via.placeholder.com/150"

// ID is an opaque user identifier. The backend sends it as a JSON number
// or a string; both decode to the same textual form.
type ID string

// UnmarshalJSON accepts numbers and strings.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("user id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON writes numeric ids back as numbers so they round-trip in the
// shape the backend sent them.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.numeric() {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id ID) numeric() bool {
	if id == "" || len(id) > 18 || (len(id) > 1 && id[0] == '0') {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (id ID) String() string { return string(id) }

// Session is the authenticated identity. It is treated as an immutable value.
type Session struct {
	UserID      ID        `json:"user_id" yaml:"user_id"`
	DisplayName string    `json:"name" yaml:"name"`
	AvatarURL   string    `json:"avatar,omitempty" yaml:"avatar,omitempty"`
	Email       string    `json:"email,omitempty" yaml:"email,omitempty"`
	Token       string    `json:"-" yaml:"-"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}

// Avatar returns the avatar URL or the placeholder.
func (s Session) Avatar() string {
	if s.AvatarURL == "" {
		return PlaceholderAvatar
	}
	return s.AvatarURL
}

// Authenticated reports whether the session carries a bearer token.
func (s Session) Authenticated() bool {
	return s.Token != ""
}

// Store holds the current session.
type Store struct {
	current atomic.Pointer[Session]

	mu     sync.Mutex
	subs   map[uint64]func(Session, bool)
	nextID uint64
}

// Writer is the single mutator of a Store.
type Writer struct {
	store *Store
}

// New returns an empty store and its only writer.
func New() (*Store, *Writer) {
	s := &Store{subs: make(map[uint64]func(Session, bool))}
	return s, &Writer{store: s}
}

// Get returns the current session, or false when nobody is logged in.
func (s *Store) Get() (Session, bool) {
	p := s.current.Load()
	if p == nil {
		return Session{}, false
	}
	return *p, true
}

// Token returns the current bearer token, or "" when logged out.
func (s *Store) Token() string {
	if p := s.current.Load(); p != nil {
		return p.Token
	}
	return ""
}

// Subscribe registers fn to be called after every change. Callbacks run
// synchronously on the writer's goroutine and must not block.
func (s *Store) Subscribe(fn func(Session, bool)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) notify() {
	s.mu.Lock()
	fns := make([]func(Session, bool), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	sess, ok := s.Get()
	for _, fn := range fns {
		fn(sess, ok)
	}
}

// Set replaces the session wholesale. A nil session logs out.
func (w *Writer) Set(sess *Session) {
	if sess == nil {
		w.store.current.Store(nil)
	} else {
		cp := *sess
		w.store.current.Store(&cp)
	}
	w.store.notify()
}

// Clear is Set(nil).
func (w *Writer) Clear() {
	w.Set(nil)
}

// Store returns the store this writer mutates.
func (w *Writer) Store() *Store {
	return w.store
}
