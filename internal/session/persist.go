package session

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/felixgeelhaar/attention/internal/errors"
)

// Persister keeps a session between CLI invocations.
type Persister interface {
	// Load returns the stored session, or false when there is none.
	// A stored record without a token counts as none.
	Load(ctx context.Context) (Session, bool, error)
	Save(ctx context.Context, sess Session) error
	// Delete removes the stored session; deleting nothing is not an error.
	Delete(ctx context.Context) error
}

// Sealer encrypts the token at rest.
type Sealer interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
}

// record is the at-rest shape shared by the file and sqlite persisters.
type record struct {
	Version     int       `json:"version"`
	UserID      ID        `json:"user_id"`
	DisplayName string    `json:"name"`
	AvatarURL   string    `json:"avatar,omitempty"`
	Email       string    `json:"email,omitempty"`
	SealedToken string    `json:"token"`
	CreatedAt   time.Time `json:"created_at"`
}

const recordVersion = 1

func seal(sealer Sealer, sess Session) (record, error) {
	sealed, err := sealer.Seal(sess.Token)
	if err != nil {
		return record{}, errors.Wrap(errors.ErrCodeFileWriteFailed, "failed to encrypt session token", err)
	}
	return record{
		Version:     recordVersion,
		UserID:      sess.UserID,
		DisplayName: sess.DisplayName,
		AvatarURL:   sess.AvatarURL,
		Email:       sess.Email,
		SealedToken: sealed,
		CreatedAt:   sess.CreatedAt,
	}, nil
}

func open(sealer Sealer, rec record) (Session, bool, error) {
	if rec.SealedToken == "" {
		return Session{}, false, nil
	}
	token, err := sealer.Open(rec.SealedToken)
	if err != nil {
		return Session{}, false, errors.Wrap(errors.ErrCodeSessionCorrupt, "stored session could not be decrypted", err).
			WithSuggestion("Run 'attention login' to replace it").
			WithSuggestion("Set ATTENTION_SESSION_PASSPHRASE to the value used when logging in")
	}
	if token == "" {
		return Session{}, false, nil
	}
	return Session{
		UserID:      rec.UserID,
		DisplayName: rec.DisplayName,
		AvatarURL:   rec.AvatarURL,
		Email:       rec.Email,
		Token:       token,
		CreatedAt:   rec.CreatedAt,
	}, true, nil
}

// FilePersister stores the session as a 0600 JSON document.
type FilePersister struct {
	path   string
	sealer Sealer
	mu     sync.Mutex
}

// NewFilePersister stores the session at path.
func NewFilePersister(path string, sealer Sealer) *FilePersister {
	return &FilePersister{path: path, sealer: sealer}
}

// Path returns the session file location.
func (p *FilePersister) Path() string {
	return p.path
}

func (p *FilePersister) Load(ctx context.Context) (Session, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := os.ReadFile(p.path)
	if os.IsNotExist(err) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, errors.Wrap(errors.ErrCodeFileReadFailed, "failed to read session file", err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Session{}, false, errors.Wrap(errors.ErrCodeSessionCorrupt, "session file is not valid JSON", err).
			WithSuggestion("Run 'attention login' to replace it")
	}
	return open(p.sealer, rec)
}

func (p *FilePersister) Save(ctx context.Context, sess Session) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	rec, err := seal(p.sealer, sess)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeFileMarshal, "failed to encode session", err)
	}

	if err := os.MkdirAll(filepath.Dir(p.path), 0o700); err != nil {
		return errors.Wrap(errors.ErrCodeDirectoryFailed, "failed to create session directory", err)
	}

	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.Wrap(errors.ErrCodeFileWriteFailed, "failed to write session file", err)
	}
	if err := os.Rename(tmp, p.path); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(errors.ErrCodeFileWriteFailed, "failed to write session file", err)
	}
	return nil
}

func (p *FilePersister) Delete(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(errors.ErrCodeFileWriteFailed, "failed to remove session file", err)
	}
	return nil
}

// MemoryPersister keeps the session only for the life of the process.
type MemoryPersister struct {
	mu   sync.Mutex
	sess *Session
}

func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{}
}

func (m *MemoryPersister) Load(ctx context.Context) (Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil || m.sess.Token == "" {
		return Session{}, false, nil
	}
	return *m.sess, true, nil
}

func (m *MemoryPersister) Save(ctx context.Context, sess Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess = &sess
	return nil
}

func (m *MemoryPersister) Delete(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess = nil
	return nil
}
