package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-avrex/internal/ad/entity"
	"github.com/ovaphlow/pitchfork/service-avrex/pkg/database"
)

const adColumns = `id, user_email, image_url, description, cost`

type AdRepo struct {
	db sqlx.ExtContext
}

func NewAdRepo(db *sqlx.DB) *AdRepo { return &AdRepo{db: db} }

// WithTx returns a repo bound to tx.
func (r *AdRepo) WithTx(tx *sqlx.Tx) *AdRepo { return &AdRepo{db: tx} }

// EnsureTable creates the ads table if not exists (idempotent).
// user_email is deliberately not a foreign key.
func (r *AdRepo) EnsureTable(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS ads (
  id %s,
  user_email TEXT NOT NULL,
  image_url TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  cost BIGINT NOT NULL
)`, database.SerialPK(r.db.DriverName()))
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Create inserts ad and sets its ID.
func (r *AdRepo) Create(ctx context.Context, ad *entity.Ad) (int64, error) {
	q := r.db.Rebind(`INSERT INTO ads (user_email, image_url, description, cost) VALUES (?, ?, ?, ?) RETURNING id`)
	rows, err := r.db.QueryxContext(ctx, q, ad.UserEmail, ad.ImageURL, ad.Description, ad.Cost)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&ad.ID); err != nil {
			return 0, err
		}
		return ad.ID, rows.Err()
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	return 0, errors.New("no id returned")
}

// Get returns the ad or sql.ErrNoRows.
func (r *AdRepo) Get(ctx context.Context, id int64) (*entity.Ad, error) {
	var ad entity.Ad
	q := r.db.Rebind(`SELECT ` + adColumns + ` FROM ads WHERE id = ?`)
	if err := sqlx.GetContext(ctx, r.db, &ad, q, id); err != nil {
		return nil, err
	}
	return &ad, nil
}

// ListNewestFirst returns every ad ordered by id descending.
func (r *AdRepo) ListNewestFirst(ctx context.Context) ([]entity.Ad, error) {
	var out []entity.Ad
	if err := sqlx.SelectContext(ctx, r.db, &out, `SELECT `+adColumns+` FROM ads ORDER BY id DESC`); err != nil {
		return nil, err
	}
	return out, nil
}

// ListInsertOrder returns every ad ordered by id ascending.
func (r *AdRepo) ListInsertOrder(ctx context.Context) ([]entity.Ad, error) {
	var out []entity.Ad
	if err := sqlx.SelectContext(ctx, r.db, &out, `SELECT `+adColumns+` FROM ads ORDER BY id`); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *AdRepo) Delete(ctx context.Context, id int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM ads WHERE id = ?`), id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
