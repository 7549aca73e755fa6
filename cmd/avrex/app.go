package main

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-avrex/internal/accesskey"
	"github.com/ovaphlow/pitchfork/service-avrex/internal/ad"
	"github.com/ovaphlow/pitchfork/service-avrex/internal/balance"
	"github.com/ovaphlow/pitchfork/service-avrex/internal/session"
	"github.com/ovaphlow/pitchfork/service-avrex/internal/user"
	"github.com/ovaphlow/pitchfork/service-avrex/pkg/database"
)

// services is the wired domain layer shared by every subcommand.
type services struct {
	db       *sqlx.DB
	keys     *accesskey.Service
	ledger   *balance.Ledger
	users    *user.UserService
	ads      *ad.Service
	sessions *session.Manager
}

// openServices connects to the configured database, wires the services and
// creates any missing tables.
func openServices(ctx context.Context) (*services, error) {
	sqlDB, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	driver := cfg.Database.Driver
	if driver == "" {
		driver = database.DriverSQLite
	}
	// wrap with sqlx for convenience in repos/services
	db := sqlx.NewDb(sqlDB, driver)

	s := &services{db: db}
	s.keys = accesskey.NewService(db, nil)
	s.ledger = balance.NewLedger(db, nil)
	s.users = user.NewUserService(db, nil, s.keys, s.ledger, user.BcryptHasher{Cost: bcrypt.DefaultCost})
	s.ads = ad.NewService(db, nil, s.ledger, ad.NewStorage(cfg.UploadDir))
	s.sessions = session.NewManager(db, s.users, session.Options{
		Secret: []byte(cfg.SessionSecret),
		TTL:    cfg.SessionTTL,
		Secure: cfg.SecureCookie,
	})

	for name, ensure := range map[string]func(context.Context) error{
		"access_keys": s.keys.EnsureTable,
		"balances":    s.ledger.EnsureTable,
		"users":       s.users.EnsureTable,
		"ads":         s.ads.EnsureTable,
		"sessions":    s.sessions.EnsureTable,
	} {
		if err := ensure(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("ensure %s table: %w", name, err)
		}
	}
	return s, nil
}

func (s *services) Close() error { return s.db.Close() }
