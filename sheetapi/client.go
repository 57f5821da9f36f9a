// Package sheetapi talks to the spreadsheet-style storefront backend (a
// Google Apps Script web app). The protocol is GET ?action=... for reads and
// a POSTed JSON body with an "action" field for writes; every response is an
// envelope with an "ok" flag. An explicit ok:false is a business rejection;
// anything unreachable or unparseable is a transport fault.
package sheetapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"njmart/models"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	log "github.com/sirupsen/logrus"
)

// Config tunes the client. Retries apply uniformly to every call.
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	RetryCount   int
	RetryWait    time.Duration
	RetryMaxWait time.Duration
}

// DefaultConfig mirrors the storefront's fetch helpers: one retry with a
// short backoff and a per-request timeout.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:      baseURL,
		Timeout:      10 * time.Second,
		RetryCount:   1,
		RetryWait:    400 * time.Millisecond,
		RetryMaxWait: 2 * time.Second,
	}
}

type Client struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
	base    string
}

func New(cfg Config) *Client {
	httpClient := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(cfg.RetryMaxWait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "sheet-backend",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warnf("sheetapi: breaker %s %s -> %s", name, from, to)
		},
	})

	return &Client{http: httpClient, breaker: breaker, base: cfg.BaseURL}
}

// envelope is the common response wrapper from the Apps Script backend.
type envelope struct {
	OK       bool                     `json:"ok"`
	Error    string                   `json:"error,omitempty"`
	Message  string                   `json:"message,omitempty"`
	Products []map[string]interface{} `json:"products,omitempty"`
	Settings map[string]interface{}   `json:"settings,omitempty"`
	Valid    *bool                    `json:"valid,omitempty"`
	Discount float64                  `json:"discount,omitempty"`
	OrderID  string                   `json:"orderId,omitempty"`
}

func (c *Client) get(ctx context.Context, params map[string]string) (*envelope, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParams(params).
			SetHeader("Accept", "application/json").
			Get(c.base)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode() != http.StatusOK {
			return nil, fmt.Errorf("http %d", resp.StatusCode())
		}
		var env envelope
		if err := json.Unmarshal(resp.Body(), &env); err != nil {
			return nil, fmt.Errorf("invalid json: %w", err)
		}
		return &env, nil
	})
	if err != nil {
		return nil, err
	}
	return out.(*envelope), nil
}

func (c *Client) post(ctx context.Context, body interface{}) (*envelope, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.http.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(body).
			Post(c.base)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode() != http.StatusOK {
			return nil, fmt.Errorf("http %d", resp.StatusCode())
		}
		var env envelope
		if err := json.Unmarshal(resp.Body(), &env); err != nil {
			return nil, fmt.Errorf("invalid json: %w", err)
		}
		return &env, nil
	})
	if err != nil {
		return nil, err
	}
	return out.(*envelope), nil
}

// ListProducts fetches and normalizes the product sheet.
func (c *Client) ListProducts(ctx context.Context) ([]models.Product, error) {
	env, err := c.get(ctx, map[string]string{"action": "products"})
	if err != nil {
		return nil, err
	}
	if !env.OK {
		return nil, errors.New(backendReason(env))
	}

	products := make([]models.Product, 0, len(env.Products))
	for _, raw := range env.Products {
		p := NormalizeProduct(raw)
		if p.ProductID == "" && p.Name == "" {
			continue
		}
		products = append(products, p)
	}
	return products, nil
}

// Settings fetches the storefront settings row (delivery policy, open flag).
func (c *Client) Settings(ctx context.Context) (models.StoreSettings, error) {
	env, err := c.get(ctx, map[string]string{"action": "settings"})
	if err != nil {
		return models.StoreSettings{}, err
	}
	if !env.OK {
		return models.StoreSettings{}, errors.New(backendReason(env))
	}
	return NormalizeSettings(env.Settings), nil
}

// ValidateCoupon asks the backend to validate a code. A nil error with
// Valid=false is the backend's explicit verdict, never a transport problem.
func (c *Client) ValidateCoupon(ctx context.Context, code string) (models.CouponResult, error) {
	env, err := c.post(ctx, map[string]string{"action": "validatecoupon", "code": code})
	if err != nil {
		return models.CouponResult{}, err
	}
	if !env.OK {
		return models.CouponResult{
			Valid:           false,
			Reason:          backendReason(env),
			ServiceRejected: true,
		}, nil
	}
	valid := env.Valid == nil || *env.Valid // older deployments imply valid by ok:true
	return models.CouponResult{
		Valid:          valid,
		DiscountAmount: env.Discount,
		Reason:         backendReason(env),
	}, nil
}

// SubmitOrder appends an order row. Items travel as a JSON string column, the
// way the sheet expects them.
func (c *Client) SubmitOrder(ctx context.Context, req models.OrderRequest) (models.SubmitResult, error) {
	items, err := json.Marshal(req.Items)
	if err != nil {
		return models.SubmitResult{}, err
	}

	payload := map[string]interface{}{
		"action":          "addorder",
		"ClientOrderID":   req.ClientOrderID,
		"CustomerID":      req.CustomerRef,
		"Items":           string(items),
		"TotalAmount":     req.Subtotal,
		"Discount":        req.Discount,
		"DeliveryCharge":  req.DeliveryFee,
		"FinalAmount":     req.GrandTotal,
		"Coupon":          req.CouponCode,
		"Payment":         string(req.PaymentMethod),
		"Status":          "placed",
		"OrderDate":       req.PlacedAt.Format("2006-01-02 15:04:05"),
		"DeliveryAddress": req.DeliveryAddress,
	}

	env, err := c.post(ctx, payload)
	if err != nil {
		return models.SubmitResult{}, err
	}
	if !env.OK {
		return models.SubmitResult{Accepted: false, Reason: backendReason(env)}, nil
	}
	return models.SubmitResult{Accepted: true, OrderID: env.OrderID}, nil
}

// AddProduct appends a product row (admin use).
func (c *Client) AddProduct(ctx context.Context, p models.Product) error {
	payload := map[string]interface{}{
		"action":    "addproduct",
		"ProductID": p.ProductID,
		"Name":      p.Name,
		"Price":     p.Price,
		"Stock":     p.Stock,
		"Category":  p.Category,
		"Image URL": p.ImageURL,
		"Quantity":  p.QuantityUnit,
	}
	env, err := c.post(ctx, payload)
	if err != nil {
		return err
	}
	if !env.OK {
		return errors.New(backendReason(env))
	}
	return nil
}

// AddCustomer mirrors a saved profile onto the customer sheet, best effort.
func (c *Client) AddCustomer(ctx context.Context, cust models.Customer) error {
	payload := map[string]interface{}{
		"action":     "addcustomer",
		"CustomerID": cust.Ref,
		"Name":       cust.Name,
		"Address":    cust.Address,
	}
	env, err := c.post(ctx, payload)
	if err != nil {
		return err
	}
	if !env.OK {
		return errors.New(backendReason(env))
	}
	return nil
}

func backendReason(env *envelope) string {
	if env.Error != "" {
		return env.Error
	}
	return env.Message
}
