package mercadopago

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watervendor/dispense-gateway/internal/models"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-token", 2*time.Second, WithBaseURLs(srv.URL, srv.URL))
}

func TestGetPayment(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/123", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		// the provider emits the id as a number
		w.Write([]byte(`{"id":123,"status":"approved","external_reference":"maquina01-20000","payment_type_id":"account_money"}`))
	}))

	payment, err := c.GetPayment(context.Background(), "123")
	require.NoError(t, err)
	assert.Equal(t, "123", payment.ID)
	assert.Equal(t, models.StatusApproved, payment.Status)
	assert.Equal(t, "maquina01-20000", payment.ExternalReference)
	assert.Equal(t, "account_money", payment.PaymentType)
}

func TestGetPaymentAPIError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"payment not found"}`, http.StatusNotFound)
	}))

	_, err := c.GetPayment(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestGetPaymentTimeout(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	// shrink the timeout below the handler's sleep
	c.httpClient.Timeout = 50 * time.Millisecond

	_, err := c.GetPayment(context.Background(), "123")
	assert.Error(t, err)
}

func TestCreatePreference(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/checkout/preferences", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Idempotency-Key"))

		var req PreferenceRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "maquina01-20000", req.ExternalReference)
		require.Len(t, req.Items, 1)
		assert.Equal(t, "BRL", req.Items[0].CurrencyID)

		w.Write([]byte(`{"id":"pref-1","init_point":"https://mp.example/checkout/pref-1"}`))
	}))

	pref, err := c.CreatePreference(context.Background(), PreferenceRequest{
		Items: []PreferenceItem{{
			Title:      "Água Mineral 20 Litros",
			Quantity:   1,
			UnitPrice:  1.50,
			CurrencyID: "BRL",
		}},
		ExternalReference: "maquina01-20000",
		NotificationURL:   "https://gateway.example/notificacao-mp",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://mp.example/checkout/pref-1", pref.InitPoint)
}

func TestListItems(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/me/items/search":
			w.Write([]byte(`{"results":["MLB1","MLB2"]}`))
		case "/items":
			assert.Equal(t, "MLB1,MLB2", r.URL.Query().Get("ids"))
			w.Write([]byte(`[
				{"code":200,"body":{"id":"MLB1","title":"Água 20L","price":1.5}},
				{"code":404,"body":{}}
			]`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))

	items, err := c.ListItems(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "MLB1", items[0].ID)
	assert.Equal(t, 1.5, items[0].Price)
}

func TestListItemsEmptyCatalog(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[]}`))
	}))

	items, err := c.ListItems(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}
