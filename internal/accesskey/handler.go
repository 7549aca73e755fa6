package accesskey

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-avrex/internal/metrics"
	"github.com/ovaphlow/pitchfork/service-avrex/internal/view"
)

// Handler exposes the admin key actions. Both routes are admin-only.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) AddKeys(w http.ResponseWriter, r *http.Request) {
	n := ParseCount(r.FormValue("num_keys"))
	keys, err := h.svc.Generate(r.Context(), n)
	if err != nil {
		h.logger.Warnw("generate access keys failed", "err", err, "count", n)
		view.Text(w, http.StatusInternalServerError, view.MsgInternal)
		return
	}
	metrics.RecordKeysGenerated(len(keys))
	h.logger.Infow("added access keys", "count", len(keys))
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

func (h *Handler) DeleteKey(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if err := h.svc.Delete(r.Context(), key); err != nil {
		h.logger.Warnw("delete access key failed", "err", err, "key", key)
		view.Text(w, http.StatusInternalServerError, view.MsgInternal)
		return
	}
	h.logger.Infow("deleted access key", "key", key)
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}
