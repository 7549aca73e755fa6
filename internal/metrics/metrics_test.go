package metrics

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                      "/",
		"/":                     "/",
		"/login":                "/login",
		"/delete_key/ABCD1234":  "/delete_key/:key",
		"/delete_ad/42":         "/delete_ad/:id",
		"/static/uploads/x.png": "/static",
		"/healthz":              "/healthz",
		"/view_ads":             "/view_ads",
		"/login/extra":          "other",
		"/wp-admin.php":         "other",
	}
	for in, want := range cases {
		require.Equal(t, want, canonicalPath(in), in)
	}
}

func TestInstrumentHandler_CountsRequests(t *testing.T) {
	h := InstrumentHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/task", "418"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/task", nil))
	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/task", "418"))
	require.Equal(t, before+1, after)
}

func TestBusinessCounters(t *testing.T) {
	before := testutil.ToFloat64(keysGenerated)
	RecordKeysGenerated(3)
	RecordKeysGenerated(0)
	require.Equal(t, before+3, testutil.ToFloat64(keysGenerated))

	RecordSignup("ok")
	RecordLogin("invalid_credentials")
	RecordAdSubmitted("insufficient_balance")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	require.True(t, strings.Contains(body, `avrex_signups_total{result="ok"}`))
	require.True(t, strings.Contains(body, `avrex_ads_submitted_total{result="insufficient_balance"}`))
}

func TestInstrumentHandler_UnknownPathsShareOneSeries(t *testing.T) {
	h := InstrumentHandler(http.NotFoundHandler())
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/warmup", nil))
	before := testutil.CollectAndCount(httpRequests)

	for i := 0; i < 100; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, fmt.Sprintf("/junk-%d/x", i), nil))
	}
	require.Equal(t, before, testutil.CollectAndCount(httpRequests))
	require.Equal(t, before, testutil.CollectAndCount(httpDuration))
}
