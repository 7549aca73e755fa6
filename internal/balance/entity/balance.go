package entity

// Defaults applied when a balance row is created.
const (
	DefaultTaskEarnings   int64 = 10000
	DefaultReferralBonus  int64 = 0
	DefaultAdsBonus       int64 = 0
	DefaultTotalDownlines int64 = 0
)

// Balance is the per-account AVreX ledger row, keyed by email.
type Balance struct {
	Email          string `db:"email"`
	TaskEarnings   int64  `db:"task_earnings"`
	ReferralBonus  int64  `db:"referral_bonus"`
	AdsBonus       int64  `db:"ads_bonus"`
	TotalDownlines int64  `db:"total_downlines"`
}
