package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-avrex/internal/accesskey/entity"
)

// AccessKeyRepo provides data access for the access_keys table.
type AccessKeyRepo struct {
	db sqlx.ExtContext
}

func NewAccessKeyRepo(db *sqlx.DB) *AccessKeyRepo { return &AccessKeyRepo{db: db} }

// WithTx returns a repo bound to tx.
func (r *AccessKeyRepo) WithTx(tx *sqlx.Tx) *AccessKeyRepo { return &AccessKeyRepo{db: tx} }

// EnsureTable creates the access_keys table if not exists (idempotent).
func (r *AccessKeyRepo) EnsureTable(ctx context.Context) error {
	const ddl = `CREATE TABLE IF NOT EXISTS access_keys (
  key TEXT PRIMARY KEY,
  used BOOLEAN NOT NULL DEFAULT FALSE
)`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

func (r *AccessKeyRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := sqlx.GetContext(ctx, r.db, &n, `SELECT COUNT(*) FROM access_keys`); err != nil {
		return 0, err
	}
	return n, nil
}

// InsertIfAbsent inserts key as unused. Reports false when the key already exists.
func (r *AccessKeyRepo) InsertIfAbsent(ctx context.Context, key string) (bool, error) {
	q := r.db.Rebind(`INSERT INTO access_keys (key, used) VALUES (?, FALSE) ON CONFLICT (key) DO NOTHING`)
	res, err := r.db.ExecContext(ctx, q, key)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// MarkUsed flips an unused key to used in a single statement. Reports false when
// no unused row matched.
func (r *AccessKeyRepo) MarkUsed(ctx context.Context, key string) (bool, error) {
	q := r.db.Rebind(`UPDATE access_keys SET used = TRUE WHERE key = ? AND used = FALSE`)
	res, err := r.db.ExecContext(ctx, q, key)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Get returns the key row or sql.ErrNoRows.
func (r *AccessKeyRepo) Get(ctx context.Context, key string) (*entity.AccessKey, error) {
	var k entity.AccessKey
	q := r.db.Rebind(`SELECT key, used FROM access_keys WHERE key = ?`)
	if err := sqlx.GetContext(ctx, r.db, &k, q, key); err != nil {
		return nil, err
	}
	return &k, nil
}

func (r *AccessKeyRepo) List(ctx context.Context) ([]entity.AccessKey, error) {
	var out []entity.AccessKey
	if err := sqlx.SelectContext(ctx, r.db, &out, `SELECT key, used FROM access_keys ORDER BY key`); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes key and returns the number of rows removed.
func (r *AccessKeyRepo) Delete(ctx context.Context, key string) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM access_keys WHERE key = ?`), key)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
