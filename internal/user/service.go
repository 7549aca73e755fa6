package user

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-avrex/internal/accesskey"
	"github.com/ovaphlow/pitchfork/service-avrex/internal/balance"
	"github.com/ovaphlow/pitchfork/service-avrex/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-avrex/internal/user/repo"
)

// PasswordHasher defines minimal hashing interface (abstract so we can swap to argon2 later).
type PasswordHasher interface {
	Hash(pw string) (string, error)
	Verify(hash, pw string) bool
}

// BcryptHasher implementation. Passwords are reduced to a SHA-256 digest
// first, so inputs of any length hash and every byte counts.
type BcryptHasher struct{ Cost int }

func prehash(pw string) []byte {
	sum := sha256.Sum256([]byte(pw))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}

func (b BcryptHasher) Hash(pw string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword(prehash(pw), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), prehash(pw)) == nil
}

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
)

// RegisterInput carries the signup form fields.
type RegisterInput struct {
	Fullname  string
	Username  string
	Email     string
	Phone     string
	AccessKey string
	Referral  string
	Password  string
}

// UserService registers and authenticates accounts.
type UserService struct {
	db     *sqlx.DB
	repo   *userrepo.UserRepo
	keys   *accesskey.Service
	ledger *balance.Ledger
	hasher PasswordHasher
}

func NewUserService(db *sqlx.DB, r *userrepo.UserRepo, keys *accesskey.Service, ledger *balance.Ledger, hasher PasswordHasher) *UserService {
	if r == nil {
		r = userrepo.NewUserRepo(db)
	}
	if keys == nil {
		keys = accesskey.NewService(db, nil)
	}
	if ledger == nil {
		ledger = balance.NewLedger(db, nil)
	}
	if hasher == nil {
		hasher = BcryptHasher{Cost: 12}
	}
	return &UserService{db: db, repo: r, keys: keys, ledger: ledger, hasher: hasher}
}

func (s *UserService) EnsureTable(ctx context.Context) error { return s.repo.EnsureTable(ctx) }

// Register consumes the access key, creates the account and its balance row in
// one transaction. A rejected key leaves no account and no balance behind.
// Returns accesskey.ErrKeyNotFound or accesskey.ErrKeyAlreadyUsed for bad keys.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*entity.User, error) {
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	referral := strings.TrimSpace(in.Referral)
	if referral == "" {
		referral = entity.DefaultReferral
	}
	u := &entity.User{
		Fullname:  in.Fullname,
		Username:  in.Username,
		Email:     in.Email,
		Phone:     in.Phone,
		AccessKey: in.AccessKey,
		Referral:  referral,
		Password:  hash,
		Role:      entity.RoleUser,
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.keys.WithTx(tx).ValidateAndConsume(ctx, in.AccessKey); err != nil {
		return nil, err
	}
	if _, err := s.repo.WithTx(tx).Create(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	if _, err := s.ledger.WithTx(tx).GetOrCreate(ctx, u.Email); err != nil {
		return nil, fmt.Errorf("create balance: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate matches email exactly and returns the oldest account with that
// email whose password verifies.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*entity.User, error) {
	if email == "" {
		return nil, ErrInvalidCredentials
	}
	candidates, err := s.repo.ListByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		if s.hasher.Verify(candidates[i].Password, password) {
			return &candidates[i], nil
		}
	}
	return nil, ErrInvalidCredentials
}

// GetRole returns "admin" for admins and "user" for everyone else.
func (s *UserService) GetRole(u *entity.User) string {
	if u.IsAdmin() {
		return entity.RoleAdmin
	}
	return entity.RoleUser
}

// GetByID reloads an account, ErrUserNotFound when it is gone.
func (s *UserService) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// ListAll returns every account, oldest first.
func (s *UserService) ListAll(ctx context.Context) ([]entity.User, error) {
	return s.repo.List(ctx)
}

// GrantAdmin promotes every account registered with email.
func (s *UserService) GrantAdmin(ctx context.Context, email string) error {
	n, err := s.repo.SetRoleByEmail(ctx, email, entity.RoleAdmin)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}
