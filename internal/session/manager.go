package session

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jmoiron/sqlx"

	sessionrepo "github.com/ovaphlow/pitchfork/service-avrex/internal/session/repo"
	"github.com/ovaphlow/pitchfork/service-avrex/internal/user/entity"
)

const CookieName = "avrex_session"

var (
	ErrNoSession      = errors.New("no session")
	ErrInvalidSession = errors.New("invalid session")
)

// UserLoader reloads the account a session points at.
type UserLoader interface {
	GetByID(ctx context.Context, id int64) (*entity.User, error)
}

type Options struct {
	Secret []byte
	TTL    time.Duration
	Secure bool
}

// Manager issues signed session cookies backed by rows in the sessions table.
// The cookie only names the session; account fields are read from the store on
// every request.
type Manager struct {
	repo   *sessionrepo.SessionRepo
	users  UserLoader
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

func NewManager(db *sqlx.DB, users UserLoader, opts Options) *Manager {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{
		repo:   sessionrepo.NewSessionRepo(db),
		users:  users,
		secret: opts.Secret,
		ttl:    ttl,
		secure: opts.Secure,
		now:    time.Now,
	}
}

func (m *Manager) EnsureTable(ctx context.Context) error { return m.repo.EnsureTable(ctx) }

// Start persists a new session for userID and sets the cookie on w.
func (m *Manager) Start(ctx context.Context, w http.ResponseWriter, userID int64) error {
	now := m.now()
	// lazy purge keeps the table bounded without a background job
	_, _ = m.repo.DeleteExpired(ctx, now)

	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return err
	}
	sid := base64.RawURLEncoding.EncodeToString(b)
	expires := now.Add(m.ttl)
	if err := m.repo.Save(ctx, sid, userID, expires); err != nil {
		return err
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        sid,
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	})
	signed, err := tok.SignedString(m.secret)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    signed,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// parse verifies the cookie signature and returns the session id and subject.
func (m *Manager) parse(raw string) (string, int64, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.now))
	if err != nil {
		return "", 0, ErrInvalidSession
	}
	uid, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || claims.ID == "" {
		return "", 0, ErrInvalidSession
	}
	return claims.ID, uid, nil
}

// Load resolves the request's session to a freshly read account.
func (m *Manager) Load(r *http.Request) (*entity.User, error) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return nil, ErrNoSession
	}
	sid, uid, err := m.parse(c.Value)
	if err != nil {
		return nil, err
	}
	s, err := m.repo.Get(r.Context(), sid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidSession
		}
		return nil, err
	}
	if s.UserID != uid || s.Expired(m.now()) {
		return nil, ErrInvalidSession
	}
	return m.users.GetByID(r.Context(), s.UserID)
}

// End deletes the request's session row (if any) and clears the cookie.
func (m *Manager) End(w http.ResponseWriter, r *http.Request) error {
	var err error
	if c, cerr := r.Cookie(CookieName); cerr == nil {
		if sid, _, perr := m.parse(c.Value); perr == nil {
			err = m.repo.Delete(r.Context(), sid)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return err
}
