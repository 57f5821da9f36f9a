package sheetapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"njmart/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(url string) *Client {
	cfg := DefaultConfig(url)
	cfg.Timeout = 2 * time.Second
	cfg.RetryWait = 10 * time.Millisecond
	cfg.RetryMaxWait = 20 * time.Millisecond
	return New(cfg)
}

func TestListProductsNormalizesHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "products", r.URL.Query().Get("action"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"ok": true,
			"products": []map[string]interface{}{
				{"ProductID": "p1", "Name": "Atta 5kg", "Price": 260, "Stock": 12, "Category": "staples"},
				{"productid": "p2", "name": "Salt", "price": "22", "Qty": "40", "Image": "http://x/salt.jpg"},
				{"Note": "header row junk"},
			},
		})
	}))
	defer srv.Close()

	products, err := testClient(srv.URL).ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)

	assert.Equal(t, "p1", products[0].ProductID)
	assert.Equal(t, 260.0, products[0].Price)
	assert.Equal(t, "p2", products[1].ProductID)
	assert.Equal(t, 22.0, products[1].Price)
	assert.Equal(t, 40, products[1].Stock)
	assert.Equal(t, "http://x/salt.jpg", products[1].ImageURL)
}

func TestListProductsRetriesOnServerError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"ok": true, "products": []map[string]interface{}{}})
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).ListProducts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestValidateCouponVerdicts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "validatecoupon", body["action"])

		switch body["code"] {
		case "save30":
			json.NewEncoder(w).Encode(map[string]interface{}{"ok": true, "valid": true, "discount": 30})
		case "expired":
			json.NewEncoder(w).Encode(map[string]interface{}{"ok": true, "valid": false, "message": "Coupon expired"})
		default:
			json.NewEncoder(w).Encode(map[string]interface{}{"ok": false, "error": "store closed"})
		}
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	ctx := context.Background()

	res, err := c.ValidateCoupon(ctx, "save30")
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, 30.0, res.DiscountAmount)

	res, err = c.ValidateCoupon(ctx, "expired")
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.False(t, res.ServiceRejected)
	assert.Equal(t, "Coupon expired", res.Reason)

	res, err = c.ValidateCoupon(ctx, "anything")
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.True(t, res.ServiceRejected)
}

func TestValidateCouponTransportFault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>gateway error</html>"))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).ValidateCoupon(context.Background(), "save30")
	assert.Error(t, err)
}

func TestSubmitOrder(t *testing.T) {
	var received map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		json.NewEncoder(w).Encode(map[string]interface{}{"ok": true, "orderId": "ORD42"})
	}))
	defer srv.Close()

	req := models.OrderRequest{
		ClientOrderID:   "c-1",
		CustomerRef:     "9999",
		DeliveryAddress: "Main St",
		PaymentMethod:   models.PaymentCOD,
		Items:           []models.OrderItem{{ProductID: "p1", Name: "Atta", UnitPrice: 260, Quantity: 1}},
		Subtotal:        260,
		DeliveryFee:     20,
		GrandTotal:      280,
		PlacedAt:        time.Now(),
	}

	res, err := testClient(srv.URL).SubmitOrder(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Equal(t, "ORD42", res.OrderID)

	assert.Equal(t, "addorder", received["action"])
	assert.Equal(t, "c-1", received["ClientOrderID"])
	// items ride along as a JSON string column
	var items []models.OrderItem
	require.NoError(t, json.Unmarshal([]byte(received["Items"].(string)), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "p1", items[0].ProductID)
}

func TestSubmitOrderRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"ok": false, "error": "sheet full"})
	}))
	defer srv.Close()

	res, err := testClient(srv.URL).SubmitOrder(context.Background(), models.OrderRequest{ClientOrderID: "c-2"})
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.Equal(t, "sheet full", res.Reason)
}

func TestNormalizeSettingsDefaults(t *testing.T) {
	s := NormalizeSettings(map[string]interface{}{})
	assert.Equal(t, 499.0, s.DeliveryThreshold)
	assert.Equal(t, 20.0, s.DeliveryCharge)
	assert.True(t, s.StoreOpen)

	s = NormalizeSettings(map[string]interface{}{
		"DeliveryThreshold": "999",
		"DeliveryCharge":    35.0,
		"StoreOpen":         "no",
	})
	assert.Equal(t, 999.0, s.DeliveryThreshold)
	assert.Equal(t, 35.0, s.DeliveryCharge)
	assert.False(t, s.StoreOpen)
}
