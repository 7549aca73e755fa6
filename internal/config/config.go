package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"

	"github.com/ovaphlow/pitchfork/service-avrex/pkg/database"
	"github.com/ovaphlow/pitchfork/service-avrex/pkg/utilities"
)

// Keys double as environment variable names.
const (
	KeyHTTPAddr         = "HTTP_ADDR"
	KeyDatabaseDriver   = "DATABASE_DRIVER"
	KeyDatabaseURL      = "DATABASE_URL"
	KeyDatabaseMaxConns = "DATABASE_MAX_CONNS"
	KeyDatabaseTimeZone = "DATABASE_TIMEZONE"
	KeyDatabaseEncoding = "DATABASE_CLIENT_ENCODING"
	KeyLogLevel         = "LOG_LEVEL"
	KeyLogDev           = "LOG_DEV"
	KeyLogFile          = "LOG_FILE"
	KeyLogMaxAge        = "LOG_MAX_AGE"
	KeySessionSecret    = "SESSION_SECRET"
	KeySessionTTL       = "SESSION_TTL"
	KeySessionSecure    = "SESSION_SECURE_COOKIE"
	KeyUploadDir        = "UPLOAD_DIR"
	KeySnowflakeNode    = "SNOWFLAKE_NODE"
	KeyLoginRate        = "LOGIN_RATE_PER_SEC"
	KeyLoginBurst       = "LOGIN_RATE_BURST"
)

var ErrMissingSecret = errors.New("SESSION_SECRET must be set")

type Config struct {
	HTTPAddr      string
	Database      database.Config
	Log           utilities.Config
	SessionSecret string
	SessionTTL    time.Duration
	SecureCookie  bool
	UploadDir     string
	SnowflakeNode int64
	LoginRate     float64
	LoginBurst    int
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	def := database.DefaultConfig()
	v.SetDefault(KeyHTTPAddr, "0.0.0.0:8431")
	v.SetDefault(KeyDatabaseDriver, def.Driver)
	v.SetDefault(KeyDatabaseURL, def.DSN)
	v.SetDefault(KeyDatabaseMaxConns, def.MaxConns)
	v.SetDefault(KeyLogLevel, "")
	v.SetDefault(KeyLogDev, false)
	v.SetDefault(KeyLogMaxAge, 7*24*time.Hour)
	v.SetDefault(KeySessionTTL, 24*time.Hour)
	v.SetDefault(KeyUploadDir, "static/uploads")
	v.SetDefault(KeySnowflakeNode, 1)
	v.SetDefault(KeyLoginRate, 1.0)
	v.SetDefault(KeyLoginBurst, 5)
}

// New returns a viper instance with defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()
	return v
}

// Load builds a Config from v.
func Load(v *viper.Viper) Config {
	dev := v.GetBool(KeyLogDev)
	lvl := v.GetString(KeyLogLevel)
	if lvl == "" {
		if dev {
			lvl = "debug"
		} else {
			lvl = "info"
		}
	}
	return Config{
		HTTPAddr: v.GetString(KeyHTTPAddr),
		Database: database.Config{
			Driver:         v.GetString(KeyDatabaseDriver),
			DSN:            v.GetString(KeyDatabaseURL),
			MaxConns:       v.GetInt(KeyDatabaseMaxConns),
			Timeout:        5 * time.Second,
			TimeZone:       v.GetString(KeyDatabaseTimeZone),
			ClientEncoding: v.GetString(KeyDatabaseEncoding),
		},
		Log: utilities.Config{
			Level:        lvl,
			Dev:          dev,
			File:         v.GetString(KeyLogFile),
			MaxAge:       v.GetDuration(KeyLogMaxAge),
			RotationTime: 24 * time.Hour,
		},
		SessionSecret: v.GetString(KeySessionSecret),
		SessionTTL:    v.GetDuration(KeySessionTTL),
		SecureCookie:  v.GetBool(KeySessionSecure),
		UploadDir:     v.GetString(KeyUploadDir),
		SnowflakeNode: v.GetInt64(KeySnowflakeNode),
		LoginRate:     v.GetFloat64(KeyLoginRate),
		LoginBurst:    v.GetInt(KeyLoginBurst),
	}
}

// ValidateServe checks the settings the HTTP server cannot run without.
func (c Config) ValidateServe() error {
	if c.SessionSecret == "" {
		return ErrMissingSecret
	}
	return nil
}
