// Package mercadopago is a thin client for the pieces of the Mercado
// Pago REST API this service touches: payment lookup, checkout
// preference creation and the seller's item listing.
package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/watervendor/dispense-gateway/internal/models"
)

const (
	defaultAPIBaseURL   = "https://api.mercadopago.com"
	defaultItemsBaseURL = "https://api.mercadolibre.com"
)

type Client struct {
	token        string
	apiBaseURL   string
	itemsBaseURL string
	httpClient   *http.Client
}

type Option func(*Client)

// WithBaseURLs overrides the API endpoints, used by tests.
func WithBaseURLs(api, items string) Option {
	return func(c *Client) {
		c.apiBaseURL = strings.TrimRight(api, "/")
		c.itemsBaseURL = strings.TrimRight(items, "/")
	}
}

// NewClient builds a client with a hard request timeout so a slow
// provider response cannot hold a webhook-handling slot indefinitely.
func NewClient(token string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		token:        token,
		apiBaseURL:   defaultAPIBaseURL,
		itemsBaseURL: defaultItemsBaseURL,
		httpClient:   &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type paymentResponse struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	ExternalReference string      `json:"external_reference"`
	PaymentTypeID     string      `json:"payment_type_id"`
}

// GetPayment fetches the authoritative state of one payment.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*models.PaymentRecord, error) {
	var resp paymentResponse
	url := fmt.Sprintf("%s/v1/payments/%s", c.apiBaseURL, paymentID)
	if err := c.do(ctx, http.MethodGet, url, nil, &resp); err != nil {
		return nil, fmt.Errorf("payment lookup %s: %w", paymentID, err)
	}
	return &models.PaymentRecord{
		ID:                resp.ID.String(),
		Status:            models.PaymentStatus(resp.Status),
		ExternalReference: resp.ExternalReference,
		PaymentType:       resp.PaymentTypeID,
	}, nil
}

type PreferenceItem struct {
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	CurrencyID string  `json:"currency_id"`
}

type PreferenceRequest struct {
	Items             []PreferenceItem `json:"items"`
	ExternalReference string           `json:"external_reference"`
	NotificationURL   string           `json:"notification_url"`
}

type Preference struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}

// CreatePreference creates a checkout session and returns the hosted
// payment page URL. An X-Idempotency-Key guards against duplicate
// sessions if the call is retried.
func (c *Client) CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error) {
	var pref Preference
	url := c.apiBaseURL + "/checkout/preferences"
	if err := c.do(ctx, http.MethodPost, url, req, &pref); err != nil {
		return nil, fmt.Errorf("create preference: %w", err)
	}
	return &pref, nil
}

type Item struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Price float64 `json:"price"`
	SKU   string  `json:"seller_custom_field"`
}

// ListItems returns the seller's catalog: a search for item ids followed
// by a batched detail lookup.
func (c *Client) ListItems(ctx context.Context) ([]Item, error) {
	var search struct {
		Results []string `json:"results"`
	}
	if err := c.do(ctx, http.MethodGet, c.itemsBaseURL+"/users/me/items/search", nil, &search); err != nil {
		return nil, fmt.Errorf("item search: %w", err)
	}
	if len(search.Results) == 0 {
		return nil, nil
	}

	var wrappers []struct {
		Code int  `json:"code"`
		Body Item `json:"body"`
	}
	url := c.itemsBaseURL + "/items?ids=" + strings.Join(search.Results, ",")
	if err := c.do(ctx, http.MethodGet, url, nil, &wrappers); err != nil {
		return nil, fmt.Errorf("item details: %w", err)
	}

	items := make([]Item, 0, len(wrappers))
	for _, w := range wrappers {
		if w.Code == http.StatusOK {
			items = append(items, w.Body)
		}
	}
	return items, nil
}

func (c *Client) do(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Idempotency-Key", uuid.NewString())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, url, resp.StatusCode, snippet)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
