package repo

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// Session is a persisted browser session. ExpiresAt is stored as unix seconds.
type Session struct {
	Token     string `db:"token"`
	UserID    int64  `db:"user_id"`
	ExpiresAt int64  `db:"expires_at"`
}

// Expired reports whether the session is no longer valid at now.
func (s *Session) Expired(now time.Time) bool { return now.Unix() >= s.ExpiresAt }

type SessionRepo struct {
	db *sqlx.DB
}

func NewSessionRepo(db *sqlx.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

func (r *SessionRepo) EnsureTable(ctx context.Context) error {
	const ddl = `CREATE TABLE IF NOT EXISTS sessions (
  token TEXT PRIMARY KEY,
  user_id BIGINT NOT NULL,
  expires_at BIGINT NOT NULL
)`
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at)`)
	return err
}

func (r *SessionRepo) Save(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	q := r.db.Rebind(`INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, q, token, userID, expiresAt.Unix())
	return err
}

// Get returns the session for token or sql.ErrNoRows.
func (r *SessionRepo) Get(ctx context.Context, token string) (*Session, error) {
	var s Session
	q := r.db.Rebind(`SELECT token, user_id, expires_at FROM sessions WHERE token = ?`)
	if err := r.db.GetContext(ctx, &s, q, token); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM sessions WHERE token = ?`), token)
	return err
}

// DeleteExpired purges sessions that expired before now.
func (r *SessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM sessions WHERE expires_at <= ?`), now.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
