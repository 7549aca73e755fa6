package repo

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-avrex/internal/balance/entity"
	"github.com/ovaphlow/pitchfork/service-avrex/pkg/database"
)

type BalanceRepo struct {
	db sqlx.ExtContext
}

func NewBalanceRepo(db *sqlx.DB) *BalanceRepo { return &BalanceRepo{db: db} }

// WithTx returns a repo bound to tx.
func (r *BalanceRepo) WithTx(tx *sqlx.Tx) *BalanceRepo { return &BalanceRepo{db: tx} }

// EnsureTable creates the balances table if not exists (idempotent).
func (r *BalanceRepo) EnsureTable(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS balances (
  id %s,
  email TEXT NOT NULL UNIQUE,
  task_earnings BIGINT NOT NULL DEFAULT %d,
  referral_bonus BIGINT NOT NULL DEFAULT %d,
  ads_bonus BIGINT NOT NULL DEFAULT %d,
  total_downlines BIGINT NOT NULL DEFAULT %d
)`, database.SerialPK(r.db.DriverName()),
		entity.DefaultTaskEarnings, entity.DefaultReferralBonus, entity.DefaultAdsBonus, entity.DefaultTotalDownlines)
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// InsertDefault creates the default row for email unless one exists.
func (r *BalanceRepo) InsertDefault(ctx context.Context, email string) error {
	q := r.db.Rebind(`INSERT INTO balances (email) VALUES (?) ON CONFLICT (email) DO NOTHING`)
	_, err := r.db.ExecContext(ctx, q, email)
	return err
}

// Get returns the row for email or sql.ErrNoRows.
func (r *BalanceRepo) Get(ctx context.Context, email string) (*entity.Balance, error) {
	var b entity.Balance
	q := r.db.Rebind(`SELECT email, task_earnings, referral_bonus, ads_bonus, total_downlines FROM balances WHERE email = ?`)
	if err := sqlx.GetContext(ctx, r.db, &b, q, email); err != nil {
		return nil, err
	}
	return &b, nil
}

// DeductIfSufficient subtracts amount from task_earnings only when the balance
// covers it. Reports false when no row qualified.
func (r *BalanceRepo) DeductIfSufficient(ctx context.Context, email string, amount int64) (bool, error) {
	q := r.db.Rebind(`UPDATE balances SET task_earnings = task_earnings - ? WHERE email = ? AND task_earnings >= ?`)
	res, err := r.db.ExecContext(ctx, q, amount, email, amount)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
