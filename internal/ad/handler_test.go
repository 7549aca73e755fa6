package ad

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-avrex/internal/session"
	"github.com/ovaphlow/pitchfork/service-avrex/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-avrex/internal/view"
)

func (f *fixture) handler(limit int64) *Handler {
	h := NewHandler(f.svc, f.ledger, nil, zap.NewNop().Sugar())
	h.maxUpload = limit
	return h
}

func submitRequest(email, contentType string, body io.Reader) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/submit_ad", body)
	req.Header.Set("Content-Type", contentType)
	return req.WithContext(session.WithUser(context.Background(), &entity.User{ID: 1, Email: email}))
}

func multipartBody(t *testing.T, filename string, data []byte) (string, *bytes.Buffer) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename != "" {
		fw, err := mw.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.WriteField("content", "buy now"))
	require.NoError(t, mw.Close())
	return mw.FormDataContentType(), &body
}

func TestSubmitAd_MalformedFormChecksBalanceFirst(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "poor@example.com", Cost-1)
	h := f.handler(MaxUploadBytes)

	rec := httptest.NewRecorder()
	h.SubmitAd(rec, submitRequest("poor@example.com", "multipart/form-data; boundary=xyz", strings.NewReader("not a multipart body")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, view.MsgInsufficient, rec.Body.String())
}

func TestSubmitAd_MalformedFormWithFundsHasNoImage(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "ada@example.com", Cost)
	h := f.handler(MaxUploadBytes)

	rec := httptest.NewRecorder()
	h.SubmitAd(rec, submitRequest("ada@example.com", "multipart/form-data; boundary=xyz", strings.NewReader("not a multipart body")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, view.MsgNoImage, rec.Body.String())
	assert.EqualValues(t, Cost, f.earnings(t, "ada@example.com"))
}

func TestSubmitAd_OversizedBody(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "ada@example.com", 10000)
	h := f.handler(1024)

	ct, body := multipartBody(t, "big.png", bytes.Repeat([]byte{0xff}, 8192))
	rec := httptest.NewRecorder()
	h.SubmitAd(rec, submitRequest("ada@example.com", ct, body))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, view.MsgImageTooLarge, rec.Body.String())
	assert.EqualValues(t, 10000, f.earnings(t, "ada@example.com"))
	assert.Zero(t, f.adCount(t))
}

func TestSubmitAd_Outcomes(t *testing.T) {
	cases := []struct {
		name     string
		funds    int64
		filename string
		code     int
		body     string
		left     int64
	}{
		{"missing image", Cost, "", http.StatusBadRequest, view.MsgNoImage, Cost},
		{"missing image and funds", Cost - 1, "", http.StatusBadRequest, view.MsgInsufficient, Cost - 1},
		{"markup upload", Cost, "page.html", http.StatusBadRequest, view.MsgUnsupportedImage, Cost},
		{"posted", Cost, "ad.png", http.StatusSeeOther, "", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.fund(t, "ada@example.com", tc.funds)
			h := f.handler(MaxUploadBytes)

			ct, body := multipartBody(t, tc.filename, []byte("\x89PNG fake"))
			rec := httptest.NewRecorder()
			h.SubmitAd(rec, submitRequest("ada@example.com", ct, body))
			assert.Equal(t, tc.code, rec.Code)
			if tc.body != "" {
				assert.Equal(t, tc.body, rec.Body.String())
			}
			assert.EqualValues(t, tc.left, f.earnings(t, "ada@example.com"))
		})
	}
}
