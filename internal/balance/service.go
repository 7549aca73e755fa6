package balance

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-avrex/internal/balance/entity"
	balancerepo "github.com/ovaphlow/pitchfork/service-avrex/internal/balance/repo"
)

var ErrInsufficientBalance = errors.New("insufficient balance")

// Ledger owns the per-account balance rows.
type Ledger struct {
	repo *balancerepo.BalanceRepo
}

func NewLedger(db *sqlx.DB, r *balancerepo.BalanceRepo) *Ledger {
	if r == nil {
		r = balancerepo.NewBalanceRepo(db)
	}
	return &Ledger{repo: r}
}

// WithTx returns a ledger whose statements run inside tx.
func (l *Ledger) WithTx(tx *sqlx.Tx) *Ledger { return &Ledger{repo: l.repo.WithTx(tx)} }

func (l *Ledger) EnsureTable(ctx context.Context) error { return l.repo.EnsureTable(ctx) }

// GetOrCreate returns the balance for email, inserting the default row first
// when none exists. The insert is conflict-tolerant, so concurrent first visits
// converge on one row.
func (l *Ledger) GetOrCreate(ctx context.Context, email string) (*entity.Balance, error) {
	if err := l.repo.InsertDefault(ctx, email); err != nil {
		return nil, err
	}
	return l.repo.Get(ctx, email)
}

// Deduct removes amount from task_earnings. It fails with ErrInsufficientBalance
// instead of overdrawing, including when two deductions race.
func (l *Ledger) Deduct(ctx context.Context, email string, amount int64) error {
	ok, err := l.repo.DeductIfSufficient(ctx, email, amount)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInsufficientBalance
	}
	return nil
}
