package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/angelmondragon/sliceline-client/internal/identity"
	"github.com/angelmondragon/sliceline-client/pkg/config"
	pkgerrors "github.com/angelmondragon/sliceline-client/pkg/errors"
	"github.com/angelmondragon/sliceline-client/pkg/logger"
	"github.com/angelmondragon/sliceline-client/pkg/types"
)

// Client talks to the storefront REST API. It owns request plumbing and error
// taxonomy; it never owns order or catalog state.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  *identity.Provider
	logg    *logger.Logger
}

func New(cfg config.APIConfig, tokens *identity.Provider, logg *logger.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("api base url required")
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		tokens:  tokens,
		logg:    logg,
	}, nil
}

// Pizzas fetches the pizza catalog.
func (c *Client) Pizzas(ctx context.Context) ([]Pizza, error) {
	var out []Pizza
	if err := c.do(ctx, http.MethodGet, "/pizzas", nil, &out, false); err != nil {
		return nil, err
	}
	return out, nil
}

// Toppings fetches the add-on catalog.
func (c *Client) Toppings(ctx context.Context) ([]Topping, error) {
	var out []Topping
	if err := c.do(ctx, http.MethodGet, "/toppings", nil, &out, false); err != nil {
		return nil, err
	}
	return out, nil
}

// Coupons fetches the promotions visible to the current subject.
func (c *Client) Coupons(ctx context.Context) ([]types.Coupon, error) {
	var out []types.Coupon
	if err := c.do(ctx, http.MethodGet, "/coupons", nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateOrder submits the order. Rejections come back verbatim so the caller
// can show them and, crucially, keep the basket intact.
func (c *Client) CreateOrder(ctx context.Context, input CreateOrderInput) (*Order, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	var out Order
	if err := c.do(ctx, http.MethodPost, "/orders", input, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetOrder reads the current status and detail of one order; the polling
// fallback of the status tracker runs on this.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	if orderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	var out Order
	if err := c.do(ctx, http.MethodGet, "/orders/"+orderID, nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// apiError is the backend's error payload shape.
type apiError struct {
	Detail string `json:"detail"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, authed bool) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding request body")
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed && c.tokens != nil {
		token, err := c.tokens.BearerToken(ctx)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeTransport, err, fmt.Sprintf("%s %s", method, path))
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		return c.statusError(ctx, method, path, resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeTransport, err, "decoding response body")
	}
	return nil
}

func (c *Client) statusError(ctx context.Context, method, path string, resp *http.Response) error {
	detail := ""
	var payload apiError
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
		detail = payload.Detail
	}
	if detail == "" {
		detail = http.StatusText(resp.StatusCode)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return pkgerrors.New(pkgerrors.CodeUnauthorized, detail)
	case resp.StatusCode == http.StatusNotFound:
		return pkgerrors.New(pkgerrors.CodeNotFound, detail)
	case resp.StatusCode < 500:
		if method == http.MethodPost && path == "/orders" {
			return pkgerrors.New(pkgerrors.CodeOrderRejected, detail)
		}
		return pkgerrors.New(pkgerrors.CodeValidation, detail)
	default:
		if c.logg != nil {
			c.logg.Warn(ctx, fmt.Sprintf("backend returned %d for %s %s", resp.StatusCode, method, path))
		}
		return pkgerrors.New(pkgerrors.CodeTransport, detail)
	}
}
