package ad

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-avrex/internal/balance"
	"github.com/ovaphlow/pitchfork/service-avrex/internal/metrics"
	"github.com/ovaphlow/pitchfork/service-avrex/internal/session"
	"github.com/ovaphlow/pitchfork/service-avrex/internal/view"
)

// MaxUploadBytes bounds the multipart body accepted by SubmitAd.
const MaxUploadBytes = 10 << 20

// Handler exposes the ad pages. Session and role checks are applied by the router.
type Handler struct {
	svc       *Service
	ledger    *balance.Ledger
	views     *view.Renderer
	logger    *zap.SugaredLogger
	maxUpload int64
}

func NewHandler(svc *Service, ledger *balance.Ledger, views *view.Renderer, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, ledger: ledger, views: views, logger: logger, maxUpload: MaxUploadBytes}
}

func (h *Handler) PostAdForm(w http.ResponseWriter, r *http.Request) {
	u := session.FromContext(r.Context())
	b, err := h.ledger.GetOrCreate(r.Context(), u.Email)
	if err != nil {
		h.logger.Warnw("load balance failed", "err", err, "email", u.Email)
		view.Text(w, http.StatusInternalServerError, view.MsgInternal)
		return
	}
	data := map[string]any{"Balance": b, "Cost": Cost}
	if err := h.views.Page(w, http.StatusOK, "post_ad", data); err != nil {
		h.logger.Warnw("render post_ad failed", "err", err)
	}
}

// SubmitAd reads the multipart form and hands it to Submit. A body over the
// upload limit is refused outright; any other form error leaves the image
// missing so the balance check still answers first.
func (h *Handler) SubmitAd(w http.ResponseWriter, r *http.Request) {
	u := session.FromContext(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			metrics.RecordAdSubmitted("too_large")
			h.logger.Debugw("ad form too large", "err", err, "limit", tooLarge.Limit)
			view.Text(w, http.StatusRequestEntityTooLarge, view.MsgImageTooLarge)
			return
		}
		h.logger.Debugw("invalid ad form", "err", err)
	}

	var up *Upload
	if r.MultipartForm != nil {
		if f, fh, err := r.FormFile("image"); err == nil {
			defer f.Close()
			up = &Upload{Filename: fh.Filename, Body: f}
		} else if !errors.Is(err, http.ErrMissingFile) {
			h.logger.Debugw("read image field failed", "err", err)
		}
	}

	ad, err := h.svc.Submit(r.Context(), u.Email, up, r.FormValue("content"))
	switch {
	case err == nil:
	case errors.Is(err, ErrInsufficientBalance):
		metrics.RecordAdSubmitted("insufficient_balance")
		view.Text(w, http.StatusBadRequest, view.MsgInsufficient)
		return
	case errors.Is(err, ErrNoImageProvided):
		metrics.RecordAdSubmitted("no_image")
		view.Text(w, http.StatusBadRequest, view.MsgNoImage)
		return
	case errors.Is(err, ErrUnsupportedImage):
		metrics.RecordAdSubmitted("unsupported_image")
		view.Text(w, http.StatusBadRequest, view.MsgUnsupportedImage)
		return
	default:
		metrics.RecordAdSubmitted("error")
		h.logger.Warnw("submit ad failed", "err", err, "email", u.Email)
		view.Text(w, http.StatusInternalServerError, view.MsgInternal)
		return
	}

	metrics.RecordAdSubmitted("ok")
	h.logger.Infow("ad submitted", "id", ad.ID, "email", u.Email, "image", ad.ImageURL)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h *Handler) ViewAds(w http.ResponseWriter, r *http.Request) {
	ads, err := h.svc.ListAll(r.Context())
	if err != nil {
		h.logger.Warnw("list ads failed", "err", err)
		view.Text(w, http.StatusInternalServerError, view.MsgInternal)
		return
	}
	if err := h.views.Page(w, http.StatusOK, "view_ads", map[string]any{"Ads": ads}); err != nil {
		h.logger.Warnw("render view_ads failed", "err", err)
	}
}

func (h *Handler) DownloadAds(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.svc.ExportCSV(r.Context(), &buf); err != nil {
		h.logger.Warnw("export ads failed", "err", err)
		view.Text(w, http.StatusInternalServerError, view.MsgInternal)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=AVreX_Ads.csv")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) DeleteAd(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		// not a stored id, nothing to delete
		http.Redirect(w, r, "/view_ads", http.StatusSeeOther)
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.logger.Warnw("delete ad failed", "err", err, "id", id)
		view.Text(w, http.StatusInternalServerError, view.MsgInternal)
		return
	}
	h.logger.Infow("ad deleted", "id", id)
	http.Redirect(w, r, "/view_ads", http.StatusSeeOther)
}
