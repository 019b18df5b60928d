package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"gitlab.com/ignitionrobotics/billing/cashier/pkg/api"
	"net/http"
	"net/url"
	"strings"
)

// client contains the HTTP client to connect to the cashier API.
type client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// CreateSession performs an HTTP request to create a checkout session for a set of catalog prices.
func (c *client) CreateSession(ctx context.Context, req api.CreateSessionRequest) (api.CreateSessionResponse, error) {
	var res api.CreateSessionResponse
	if err := c.call(ctx, http.MethodPost, "/checkout", req, &res); err != nil {
		return api.CreateSessionResponse{}, err
	}
	return res, nil
}

// CreateChargeSession performs an HTTP request to create a checkout session for an ad-hoc charge.
func (c *client) CreateChargeSession(ctx context.Context, req api.CreateChargeSessionRequest) (api.CreateSessionResponse, error) {
	var res api.CreateSessionResponse
	if err := c.call(ctx, http.MethodPost, "/checkout/charge", req, &res); err != nil {
		return api.CreateSessionResponse{}, err
	}
	return res, nil
}

// CreateSubscriptionSession performs an HTTP request to create a subscription checkout session.
func (c *client) CreateSubscriptionSession(ctx context.Context, req api.CreateSubscriptionSessionRequest) (api.CreateSessionResponse, error) {
	var res api.CreateSessionResponse
	if err := c.call(ctx, http.MethodPost, "/checkout/subscription", req, &res); err != nil {
		return api.CreateSessionResponse{}, err
	}
	return res, nil
}

// UpdateTaxRates performs an HTTP request to replace the tax rates of a customer.
func (c *client) UpdateTaxRates(ctx context.Context, req api.UpdateTaxRatesRequest) (api.UpdateTaxRatesResponse, error) {
	if len(req.Handle) == 0 {
		return api.UpdateTaxRatesResponse{}, api.ErrEmptyHandle
	}
	var res api.UpdateTaxRatesResponse
	path := fmt.Sprintf("/customers/%s/tax-rates", url.PathEscape(req.Handle))
	if err := c.call(ctx, http.MethodPut, path, req, &res); err != nil {
		return api.UpdateTaxRatesResponse{}, err
	}
	return res, nil
}

// call sends in as a JSON body and decodes the JSON response into out. The path must be escaped.
func (c *client) call(ctx context.Context, method, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}

	u := *c.baseURL
	u.RawPath = strings.TrimSuffix(u.EscapedPath(), "/") + path
	if u.Path, err = url.PathUnescape(u.RawPath); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		var errRes api.ErrorResponse
		if err = json.NewDecoder(res.Body).Decode(&errRes); err != nil {
			return fmt.Errorf("unexpected status %d: %s", res.StatusCode, http.StatusText(res.StatusCode))
		}
		return errRes.Err()
	}
	return json.NewDecoder(res.Body).Decode(out)
}

// Client holds methods to interact with a api.PaymentsV1 service.
type Client interface {
	api.PaymentsV1
}

// NewClient initializes a new api.PaymentsV1 client implementation using an HTTP client.
// If httpClient is nil, http.DefaultClient is used.
func NewClient(baseURL *url.URL, httpClient *http.Client) Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &client{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}
