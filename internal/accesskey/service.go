package accesskey

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"

	"github.com/ovaphlow/pitchfork/service-avrex/internal/accesskey/entity"
	keyrepo "github.com/ovaphlow/pitchfork/service-avrex/internal/accesskey/repo"
)

const (
	KeyLength       = 8
	InitialKeyCount = 100
	keyAlphabet     = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// MaxGenerateCount bounds a single Generate call.
	MaxGenerateCount = 1000

	// generation rounds before giving up on finding unused key values
	maxRounds = 16
)

var (
	ErrKeyNotFound       = errors.New("invalid access key")
	ErrKeyAlreadyUsed    = errors.New("access key already used")
	ErrKeySpaceExhausted = errors.New("could not generate unique access keys")
)

// Service manages invite keys: seeding, generation, one-time consumption and removal.
type Service struct {
	db     *sqlx.DB
	repo   *keyrepo.AccessKeyRepo
	newKey func() string
}

func NewService(db *sqlx.DB, r *keyrepo.AccessKeyRepo) *Service {
	if r == nil {
		r = keyrepo.NewAccessKeyRepo(db)
	}
	return &Service{db: db, repo: r, newKey: NewKey}
}

// WithTx returns a copy whose single-statement operations (ValidateAndConsume,
// ListAll, Delete) run inside tx.
func (s *Service) WithTx(tx *sqlx.Tx) *Service {
	return &Service{db: s.db, repo: s.repo.WithTx(tx), newKey: s.newKey}
}

// EnsureTable creates the backing table.
func (s *Service) EnsureTable(ctx context.Context) error {
	return s.repo.EnsureTable(ctx)
}

// NewKey draws KeyLength characters from A-Z0-9 using crypto/rand.
func NewKey() string {
	var b strings.Builder
	b.Grow(KeyLength)
	buf := make([]byte, 1)
	n := byte(len(keyAlphabet))
	limit := 255 - (255 % n) // reject the tail to keep the draw uniform
	for b.Len() < KeyLength {
		if _, err := rand.Read(buf); err != nil {
			panic(fmt.Sprintf("crypto/rand: %v", err))
		}
		if buf[0] >= limit {
			continue
		}
		b.WriteByte(keyAlphabet[buf[0]%n])
	}
	return b.String()
}

// ValidKey reports whether k has the shape of a generated key.
func ValidKey(k string) bool {
	if len(k) != KeyLength {
		return false
	}
	for i := 0; i < len(k); i++ {
		if !strings.ContainsRune(keyAlphabet, rune(k[i])) {
			return false
		}
	}
	return true
}

// ParseCount turns a form value into a key count, falling back to 1 and
// capped at MaxGenerateCount.
func ParseCount(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 1
	}
	return min(n, MaxGenerateCount)
}

// distinct draws keys until n distinct values not in exclude are collected.
func (s *Service) distinct(n int, exclude map[string]struct{}) []string {
	set := make(map[string]struct{}, n)
	for draws := 0; len(set) < n && draws < n*maxRounds; draws++ {
		k := s.newKey()
		if _, taken := exclude[k]; taken {
			continue
		}
		set[k] = struct{}{}
	}
	return lo.Keys(set)
}

// Initialize seeds InitialKeyCount unused keys when the table is empty. A populated
// table is left untouched. Returns the number of keys inserted.
func (s *Service) Initialize(ctx context.Context) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	r := s.repo.WithTx(tx)

	n, err := r.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count keys: %w", err)
	}
	if n > 0 {
		return 0, nil
	}
	inserted, err := s.insertUnique(ctx, r, InitialKeyCount)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(inserted), nil
}

// Generate inserts count new unused keys, unique among themselves and against
// existing rows. count is clamped to [1, MaxGenerateCount].
func (s *Service) Generate(ctx context.Context, count int) ([]string, error) {
	count = max(1, min(count, MaxGenerateCount))
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	keys, err := s.insertUnique(ctx, s.repo.WithTx(tx), count)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return keys, nil
}

func (s *Service) insertUnique(ctx context.Context, r *keyrepo.AccessKeyRepo, count int) ([]string, error) {
	out := make([]string, 0, count)
	tried := make(map[string]struct{}, count)
	for round := 0; len(out) < count; round++ {
		if round == maxRounds {
			return nil, ErrKeySpaceExhausted
		}
		for _, k := range s.distinct(count-len(out), tried) {
			tried[k] = struct{}{}
			ok, err := r.InsertIfAbsent(ctx, k)
			if err != nil {
				return nil, fmt.Errorf("insert key: %w", err)
			}
			if ok {
				out = append(out, k)
			}
		}
	}
	return out, nil
}

// ValidateAndConsume marks key used exactly once. The flip is a single
// conditional update so two concurrent signups cannot both consume it.
func (s *Service) ValidateAndConsume(ctx context.Context, key string) error {
	ok, err := s.repo.MarkUsed(ctx, key)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if _, err := s.repo.Get(ctx, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrKeyNotFound
		}
		return err
	}
	return ErrKeyAlreadyUsed
}

// ListAll returns every key with its used flag.
func (s *Service) ListAll(ctx context.Context) ([]entity.AccessKey, error) {
	return s.repo.List(ctx)
}

// Delete removes key whether used or not. Missing keys are not an error.
func (s *Service) Delete(ctx context.Context, key string) error {
	_, err := s.repo.Delete(ctx, key)
	return err
}
