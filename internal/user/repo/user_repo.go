package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-avrex/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-avrex/pkg/database"
)

const userColumns = `id, fullname, username, email, phone, access_key, referral, password, role`

// UserRepo provides data access for users table using sqlx.
type UserRepo struct {
	db sqlx.ExtContext
}

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

// WithTx returns a repo bound to tx.
func (r *UserRepo) WithTx(tx *sqlx.Tx) *UserRepo { return &UserRepo{db: tx} }

// EnsureTable creates the users table if not exists (idempotent).
// Email and username carry no uniqueness constraint.
func (r *UserRepo) EnsureTable(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS users (
  id %s,
  fullname TEXT,
  username TEXT,
  email TEXT,
  phone TEXT,
  access_key TEXT,
  referral TEXT DEFAULT 'null',
  password TEXT,
  role TEXT DEFAULT 'user'
)`, database.SerialPK(r.db.DriverName()))
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)`)
	return err
}

// Create inserts a new user row. Returns new ID.
func (r *UserRepo) Create(ctx context.Context, u *entity.User) (int64, error) {
	q := r.db.Rebind(`INSERT INTO users (fullname, username, email, phone, access_key, referral, password, role)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	rows, err := r.db.QueryxContext(ctx, q, u.Fullname, u.Username, u.Email, u.Phone, u.AccessKey, u.Referral, u.Password, u.Role)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&u.ID); err != nil {
			return 0, err
		}
		return u.ID, rows.Err()
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	return 0, errors.New("no id returned")
}

// ListByEmail returns every row with exactly this email, oldest first.
func (r *UserRepo) ListByEmail(ctx context.Context, email string) ([]entity.User, error) {
	var out []entity.User
	q := r.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE email = ? ORDER BY id`)
	if err := sqlx.SelectContext(ctx, r.db, &out, q, email); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID fetches a full user row or sql.ErrNoRows.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	var u entity.User
	q := r.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE id = ?`)
	if err := sqlx.GetContext(ctx, r.db, &u, q, id); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) List(ctx context.Context) ([]entity.User, error) {
	var out []entity.User
	if err := sqlx.SelectContext(ctx, r.db, &out, `SELECT `+userColumns+` FROM users ORDER BY id`); err != nil {
		return nil, err
	}
	return out, nil
}

// SetRoleByEmail updates the role of every row with email and returns the count.
func (r *UserRepo) SetRoleByEmail(ctx context.Context, email, role string) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE users SET role = ? WHERE email = ?`), role, email)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
