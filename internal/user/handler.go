package user

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-avrex/internal/accesskey"
	"github.com/ovaphlow/pitchfork/service-avrex/internal/balance"
	"github.com/ovaphlow/pitchfork/service-avrex/internal/metrics"
	"github.com/ovaphlow/pitchfork/service-avrex/internal/session"
	"github.com/ovaphlow/pitchfork/service-avrex/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-avrex/internal/view"
)

// Handler exposes the account pages: signup, login, dashboard and logout.
type Handler struct {
	svc      *UserService
	ledger   *balance.Ledger
	sessions *session.Manager
	views    *view.Renderer
	logger   *zap.SugaredLogger
}

func NewHandler(svc *UserService, ledger *balance.Ledger, sessions *session.Manager, views *view.Renderer, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, ledger: ledger, sessions: sessions, views: views, logger: logger}
}

// Index sends visitors to the signup form.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/signup", http.StatusFound)
}

func (h *Handler) SignupForm(w http.ResponseWriter, r *http.Request) {
	h.page(w, "signup", nil)
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	in := RegisterInput{
		Fullname:  r.PostFormValue("fullname"),
		Username:  r.PostFormValue("username"),
		Email:     r.PostFormValue("email"),
		Phone:     r.PostFormValue("phone"),
		AccessKey: r.PostFormValue("access_key"),
		Referral:  r.PostFormValue("referral"),
		Password:  r.PostFormValue("password"),
	}
	u, err := h.svc.Register(r.Context(), in)
	switch {
	case err == nil:
	case errors.Is(err, accesskey.ErrKeyNotFound):
		metrics.RecordSignup("invalid_key")
		view.Text(w, http.StatusBadRequest, view.MsgInvalidAccessKey)
		return
	case errors.Is(err, accesskey.ErrKeyAlreadyUsed):
		metrics.RecordSignup("key_used")
		view.Text(w, http.StatusBadRequest, view.MsgAccessKeyUsed)
		return
	default:
		metrics.RecordSignup("error")
		h.logger.Warnw("signup failed", "err", err)
		view.Text(w, http.StatusInternalServerError, view.MsgInternal)
		return
	}
	metrics.RecordSignup("ok")
	h.logger.Infow("account created", "id", u.ID, "email", u.Email)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *Handler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.page(w, "login", nil)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Authenticate(r.Context(), r.PostFormValue("email"), r.PostFormValue("password"))
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			metrics.RecordLogin("invalid_credentials")
			h.logger.Debugw("login failed", "err", err)
			view.Text(w, http.StatusUnauthorized, view.MsgInvalidCredentials)
			return
		}
		metrics.RecordLogin("error")
		h.logger.Warnw("login failed", "err", err)
		view.Text(w, http.StatusInternalServerError, view.MsgInternal)
		return
	}
	if err := h.sessions.Start(r.Context(), w, u.ID); err != nil {
		metrics.RecordLogin("error")
		h.logger.Warnw("start session failed", "err", err, "id", u.ID)
		view.Text(w, http.StatusInternalServerError, view.MsgInternal)
		return
	}
	metrics.RecordLogin("ok")
	if h.svc.GetRole(u) == entity.RoleAdmin {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	u := session.FromContext(r.Context())
	b, err := h.ledger.GetOrCreate(r.Context(), u.Email)
	if err != nil {
		h.logger.Warnw("load balance failed", "err", err, "email", u.Email)
		view.Text(w, http.StatusInternalServerError, view.MsgInternal)
		return
	}
	h.page(w, "dashboard", map[string]any{"User": u, "Balance": b})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.End(w, r); err != nil {
		h.logger.Debugw("end session failed", "err", err)
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (h *Handler) Task(w http.ResponseWriter, r *http.Request) {
	h.page(w, "task", nil)
}

func (h *Handler) page(w http.ResponseWriter, name string, data any) {
	if err := h.views.Page(w, http.StatusOK, name, data); err != nil {
		h.logger.Warnw("render page failed", "err", err, "page", name)
	}
}
