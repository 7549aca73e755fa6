package router

import (
	"io/fs"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-avrex/internal/accesskey"
	"github.com/ovaphlow/pitchfork/service-avrex/internal/ad"
	"github.com/ovaphlow/pitchfork/service-avrex/internal/admin"
	"github.com/ovaphlow/pitchfork/service-avrex/internal/metrics"
	"github.com/ovaphlow/pitchfork/service-avrex/internal/session"
	"github.com/ovaphlow/pitchfork/service-avrex/internal/user"
	"github.com/ovaphlow/pitchfork/service-avrex/pkg/utilities"
)

// RequestIDHeader carries the id logged for each request.
const RequestIDHeader = "X-Request-ID"

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// LoggingMiddleware returns a middleware that logs requests at debug level using the provided sugared logger.
// Every response carries a snowflake request id.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := utilities.NewSnowflakeID()
			w.Header().Set(RequestIDHeader, reqID)
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			dur := time.Since(start)
			// ensure status is set
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			logger.Debugw("http request",
				"request_id", reqID,
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(dur.Microseconds())/1000.0,
				"size", lrw.size,
			)
		})
	}
}

// SecurityHeadersMiddleware returns a middleware that sets common HTTP security headers.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Prevent MIME sniffing
			w.Header().Set("X-Content-Type-Options", "nosniff")

			// Clickjacking protection
			w.Header().Set("X-Frame-Options", "DENY")

			w.Header().Set("Referrer-Policy", "no-referrer-when-downgrade")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")

			// pages are server rendered with same-origin images only
			if w.Header().Get("Content-Security-Policy") == "" {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; img-src 'self'; object-src 'none'; base-uri 'self';")
			}

			// HSTS only over TLS, 30 days
			if r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Deps are the handlers and shared services mounted by RegisterRoutes.
type Deps struct {
	Logger    *zap.SugaredLogger
	Sessions  *session.Manager
	Users     *user.Handler
	Keys      *accesskey.Handler
	Ads       *ad.Handler
	Admin     *admin.Handler
	Limiter   *RateLimiter
	UploadDir string
}

// RegisterRoutes mounts HTTP handlers using the standard library's http.ServeMux.
func RegisterRoutes(d Deps) http.Handler {
	mux := http.NewServeMux()
	limit := func(h http.HandlerFunc) http.HandlerFunc { return h }
	if d.Limiter != nil {
		limit = d.Limiter.Wrap
	}
	authed := session.RequireUser
	adminOnly := func(h http.HandlerFunc) http.HandlerFunc { return session.RequireUser(session.RequireAdmin(h)) }

	// health
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", metrics.Handler())

	// accounts
	mux.HandleFunc("GET /{$}", d.Users.Index)
	mux.HandleFunc("GET /signup", d.Users.SignupForm)
	mux.HandleFunc("POST /signup", limit(d.Users.Signup))
	mux.HandleFunc("GET /login", d.Users.LoginForm)
	mux.HandleFunc("POST /login", limit(d.Users.Login))
	mux.HandleFunc("GET /dashboard", authed(d.Users.Dashboard))
	mux.HandleFunc("GET /logout", authed(d.Users.Logout))
	mux.HandleFunc("GET /task", d.Users.Task)

	// admin
	mux.HandleFunc("GET /admin", adminOnly(d.Admin.Panel))
	mux.HandleFunc("POST /add_keys", adminOnly(d.Keys.AddKeys))
	mux.HandleFunc("POST /delete_key/{key}", adminOnly(d.Keys.DeleteKey))

	// ads
	mux.HandleFunc("GET /post_ad", authed(d.Ads.PostAdForm))
	mux.HandleFunc("POST /submit_ad", authed(d.Ads.SubmitAd))
	mux.HandleFunc("GET /view_ads", adminOnly(d.Ads.ViewAds))
	mux.HandleFunc("GET /download_ads", adminOnly(d.Ads.DownloadAds))
	mux.HandleFunc("POST /delete_ad/{id}", adminOnly(d.Ads.DeleteAd))

	if d.UploadDir != "" {
		// uploaded images are only ever shown on the admin ads page
		images := http.StripPrefix(ad.URLPrefix+"/", http.FileServer(noListing{http.Dir(d.UploadDir)}))
		mux.HandleFunc("GET "+ad.URLPrefix+"/", adminOnly(images.ServeHTTP))
	}

	// wrap with session, metrics, security headers then logging middleware
	var handler http.Handler = mux
	if d.Sessions != nil {
		handler = d.Sessions.Middleware(d.Logger)(handler)
	}
	handler = metrics.InstrumentHandler(handler)
	handler = LoggingMiddleware(d.Logger)(SecurityHeadersMiddleware()(handler))
	return handler
}

// noListing hides directory indexes of the uploads dir.
type noListing struct{ root http.FileSystem }

func (n noListing) Open(name string) (http.File, error) {
	f, err := n.root.Open(name)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if st.IsDir() {
		f.Close()
		return nil, fs.ErrNotExist
	}
	return f, nil
}
