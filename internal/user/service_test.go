package user

import (
	"context"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-avrex/internal/accesskey"
	"github.com/ovaphlow/pitchfork/service-avrex/internal/balance"
	"github.com/ovaphlow/pitchfork/service-avrex/internal/testdb"
	"github.com/ovaphlow/pitchfork/service-avrex/internal/user/entity"
)

type fixture struct {
	db     *sqlx.DB
	svc    *UserService
	keys   *accesskey.Service
	ledger *balance.Ledger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db := testdb.Open(t)
	keys := accesskey.NewService(db, nil)
	ledger := balance.NewLedger(db, nil)
	svc := NewUserService(db, nil, keys, ledger, BcryptHasher{Cost: bcrypt.MinCost})
	require.NoError(t, keys.EnsureTable(ctx))
	require.NoError(t, ledger.EnsureTable(ctx))
	require.NoError(t, svc.EnsureTable(ctx))
	return &fixture{db: db, svc: svc, keys: keys, ledger: ledger}
}

func (f *fixture) key(t *testing.T) string {
	t.Helper()
	ks, err := f.keys.Generate(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, ks, 1)
	return ks[0]
}

func (f *fixture) count(t *testing.T, table string) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.Get(&n, `SELECT COUNT(*) FROM `+table))
	return n
}

func input(email, key, password string) RegisterInput {
	return RegisterInput{
		Fullname:  "Ada Lovelace",
		Username:  "ada",
		Email:     email,
		Phone:     "+100000",
		AccessKey: key,
		Password:  password,
	}
}

func TestRegister_ValidKey(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	k := f.key(t)

	u, err := f.svc.Register(ctx, input("ada@example.com", k, "secret"))
	require.NoError(t, err)
	require.NotZero(t, u.ID)
	assert.Equal(t, entity.RoleUser, u.Role)
	assert.Equal(t, entity.DefaultReferral, u.Referral)
	assert.NotEqual(t, "secret", u.Password)
	assert.Equal(t, 1, f.count(t, "users"))

	keys, err := f.keys.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.True(t, keys[0].Used)

	b, err := f.ledger.GetOrCreate(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.EqualValues(t, 10000, b.TaskEarnings)
	assert.EqualValues(t, 0, b.ReferralBonus)
	assert.EqualValues(t, 0, b.AdsBonus)
	assert.EqualValues(t, 0, b.TotalDownlines)
}

func TestRegister_KeepsReferral(t *testing.T) {
	f := newFixture(t)
	in := input("ada@example.com", f.key(t), "secret")
	in.Referral = "bob"

	u, err := f.svc.Register(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "bob", u.Referral)
}

func TestRegister_UsedKey(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	k := f.key(t)
	_, err := f.svc.Register(ctx, input("first@example.com", k, "secret"))
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, input("second@example.com", k, "secret"))
	require.ErrorIs(t, err, accesskey.ErrKeyAlreadyUsed)
	assert.Equal(t, 1, f.count(t, "users"))
	assert.Equal(t, 1, f.count(t, "balances"))
}

func TestRegister_UnknownKey(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Register(context.Background(), input("ada@example.com", "NOPE0000", "secret"))
	require.ErrorIs(t, err, accesskey.ErrKeyNotFound)
	assert.Zero(t, f.count(t, "users"))
	assert.Zero(t, f.count(t, "balances"))
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.Register(ctx, input("ada@example.com", f.key(t), "secret"))
	require.NoError(t, err)

	u, err := f.svc.Authenticate(ctx, "ada@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", u.Email)

	cases := []struct{ name, email, password string }{
		{"wrong password", "ada@example.com", "Secret"},
		{"wrong email", "ADA@example.com", "secret"},
		{"both wrong", "bob@example.com", "nope"},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Authenticate(ctx, tc.email, tc.password)
			require.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}
}

func TestAuthenticate_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	first, err := f.svc.Register(ctx, input("dup@example.com", f.key(t), "one"))
	require.NoError(t, err)
	second, err := f.svc.Register(ctx, input("dup@example.com", f.key(t), "two"))
	require.NoError(t, err)
	assert.Equal(t, 1, f.count(t, "balances"))

	u, err := f.svc.Authenticate(ctx, "dup@example.com", "one")
	require.NoError(t, err)
	assert.Equal(t, first.ID, u.ID)

	u, err = f.svc.Authenticate(ctx, "dup@example.com", "two")
	require.NoError(t, err)
	assert.Equal(t, second.ID, u.ID)
}

func TestGrantAdminAndGetRole(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u, err := f.svc.Register(ctx, input("ada@example.com", f.key(t), "secret"))
	require.NoError(t, err)
	assert.Equal(t, entity.RoleUser, f.svc.GetRole(u))

	require.NoError(t, f.svc.GrantAdmin(ctx, "ada@example.com"))
	u, err = f.svc.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RoleAdmin, f.svc.GetRole(u))

	require.ErrorIs(t, f.svc.GrantAdmin(ctx, "nobody@example.com"), ErrUserNotFound)
	_, err = f.svc.GetByID(ctx, 999)
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestGetRole_UnknownRoleIsUser(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, entity.RoleUser, f.svc.GetRole(&entity.User{Role: "moderator"}))
}

func TestRegister_LongPassword(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	long := strings.Repeat("p", 73)

	_, err := f.svc.Register(ctx, input("long@example.com", f.key(t), long))
	require.NoError(t, err)

	u, err := f.svc.Authenticate(ctx, "long@example.com", long)
	require.NoError(t, err)
	assert.Equal(t, "long@example.com", u.Email)

	// bytes past the 72nd still matter
	_, err = f.svc.Authenticate(ctx, "long@example.com", strings.Repeat("p", 72)+"q")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Authenticate(ctx, "long@example.com", strings.Repeat("p", 72))
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestBcryptHasher_VeryLongPassword(t *testing.T) {
	h := BcryptHasher{Cost: bcrypt.MinCost}
	pw := strings.Repeat("x", 4096)
	hash, err := h.Hash(pw)
	require.NoError(t, err)
	assert.True(t, h.Verify(hash, pw))
	assert.False(t, h.Verify(hash, pw[:4095]))
}
