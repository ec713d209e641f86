package session

import (
	"context"
	"database/sql"
	"time"

	"github.com/felixgeelhaar/attention/internal/errors"

	// Import sqlite driver
	_ "modernc.org/sqlite"
)

// SQLitePersister stores the session in a single-row table.
type SQLitePersister struct {
	conn   *sql.DB
	sealer Sealer
}

// OpenSQLitePersister opens (or creates) the database at path.
func OpenSQLitePersister(ctx context.Context, path string, sealer Sealer) (*SQLitePersister, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileReadFailed, "failed to open session database", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(errors.ErrCodeFileReadFailed, "failed to open session database", err)
	}

	p := &SQLitePersister{conn: conn, sealer: sealer}
	if err := p.migrate(ctx); err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(errors.ErrCodeFileWriteFailed, "failed to migrate session database", err)
	}
	return p, nil
}

func (p *SQLitePersister) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS session (
			slot INTEGER PRIMARY KEY CHECK (slot = 1),
			version INTEGER NOT NULL,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			avatar TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			token TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
	}

	for _, m := range migrations {
		if _, err := p.conn.ExecContext(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (p *SQLitePersister) Load(ctx context.Context) (Session, bool, error) {
	row := p.conn.QueryRowContext(ctx,
		"SELECT version, user_id, name, avatar, email, token, created_at FROM session WHERE slot = 1")

	var (
		rec     record
		userID  string
		created time.Time
	)
	err := row.Scan(&rec.Version, &userID, &rec.DisplayName, &rec.AvatarURL, &rec.Email, &rec.SealedToken, &created)
	if err == sql.ErrNoRows {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, errors.Wrap(errors.ErrCodeFileReadFailed, "failed to read session database", err)
	}
	rec.UserID = ID(userID)
	rec.CreatedAt = created
	return open(p.sealer, rec)
}

func (p *SQLitePersister) Save(ctx context.Context, sess Session) error {
	rec, err := seal(p.sealer, sess)
	if err != nil {
		return err
	}
	_, err = p.conn.ExecContext(ctx,
		`INSERT INTO session (slot, version, user_id, name, avatar, email, token, created_at)
		 VALUES (1, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(slot) DO UPDATE SET
			version = excluded.version,
			user_id = excluded.user_id,
			name = excluded.name,
			avatar = excluded.avatar,
			email = excluded.email,
			token = excluded.token,
			created_at = excluded.created_at`,
		rec.Version, string(rec.UserID), rec.DisplayName, rec.AvatarURL, rec.Email, rec.SealedToken, rec.CreatedAt.UTC(),
	)
	if err != nil {
		return errors.Wrap(errors.ErrCodeFileWriteFailed, "failed to write session database", err)
	}
	return nil
}

func (p *SQLitePersister) Delete(ctx context.Context) error {
	if _, err := p.conn.ExecContext(ctx, "DELETE FROM session WHERE slot = 1"); err != nil {
		return errors.Wrap(errors.ErrCodeFileWriteFailed, "failed to clear session database", err)
	}
	return nil
}

// Close releases the database handle.
func (p *SQLitePersister) Close() error {
	return p.conn.Close()
}
