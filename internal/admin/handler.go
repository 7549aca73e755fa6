// Package admin serves the admin console: every account and every access key.
package admin

import (
	"net/http"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-avrex/internal/accesskey"
	keyentity "github.com/ovaphlow/pitchfork/service-avrex/internal/accesskey/entity"
	"github.com/ovaphlow/pitchfork/service-avrex/internal/user"
	"github.com/ovaphlow/pitchfork/service-avrex/internal/view"
)

type Handler struct {
	users  *user.UserService
	keys   *accesskey.Service
	views  *view.Renderer
	logger *zap.SugaredLogger
}

func NewHandler(users *user.UserService, keys *accesskey.Service, views *view.Renderer, logger *zap.SugaredLogger) *Handler {
	return &Handler{users: users, keys: keys, views: views, logger: logger}
}

func (h *Handler) Panel(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListAll(r.Context())
	if err != nil {
		h.logger.Warnw("list users failed", "err", err)
		view.Text(w, http.StatusInternalServerError, view.MsgInternal)
		return
	}
	keys, err := h.keys.ListAll(r.Context())
	if err != nil {
		h.logger.Warnw("list access keys failed", "err", err)
		view.Text(w, http.StatusInternalServerError, view.MsgInternal)
		return
	}
	data := map[string]any{
		"Users":      users,
		"Keys":       keys,
		"UnusedKeys": lo.CountBy(keys, func(k keyentity.AccessKey) bool { return !k.Used }),
	}
	if err := h.views.Page(w, http.StatusOK, "admin", data); err != nil {
		h.logger.Warnw("render admin failed", "err", err)
	}
}
