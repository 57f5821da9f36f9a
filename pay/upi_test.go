package pay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"njmart/globals"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildUPIURL(t *testing.T) {
	cfg := UPIConfig{VPA: "store@upi", PayeeName: "NJ Mart"}

	link := BuildUPIURL(cfg, 549.5, "ORD-42")

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "upi", u.Scheme)
	q := u.Query()
	assert.Equal(t, "store@upi", q.Get("pa"))
	assert.Equal(t, "NJ Mart", q.Get("pn"))
	assert.Equal(t, "549.50", q.Get("am"))
	assert.Equal(t, "INR", q.Get("cu"))
	assert.Equal(t, "Order ORD-42", q.Get("tn"))
}

func TestBuildUPIURLNoRef(t *testing.T) {
	link := BuildUPIURL(UPIConfig{VPA: "store@upi", PayeeName: "NJ Mart"}, 100, "")

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Empty(t, u.Query().Get("tn"))
	assert.Equal(t, "100.00", u.Query().Get("am"))
}

func TestQRHandler(t *testing.T) {
	handle := QRHandler(UPIConfig{VPA: "store@upi", PayeeName: "NJ Mart"})

	r := httptest.NewRequest("GET", "/api/pay/qr?amount=250&ref=ORD-7", nil)
	r = r.WithContext(context.WithValue(r.Context(), globals.UserIDKey, "u_test1"))
	w := httptest.NewRecorder()
	handle(w, r, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Body.Bytes())
}

func TestQRHandlerRejectsBadAmount(t *testing.T) {
	handle := QRHandler(UPIConfigFromEnv())

	r := httptest.NewRequest("GET", "/api/pay/qr?amount=-5", nil)
	r = r.WithContext(context.WithValue(r.Context(), globals.UserIDKey, "u_test1"))
	w := httptest.NewRecorder()
	handle(w, r, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQRHandlerUnauthenticated(t *testing.T) {
	handle := QRHandler(UPIConfigFromEnv())

	w := httptest.NewRecorder()
	handle(w, httptest.NewRequest("GET", "/api/pay/qr?amount=10", nil), nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
