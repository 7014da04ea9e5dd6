package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/otabekov/orderdesk-backend/pkg/errors"
	"github.com/otabekov/orderdesk-backend/pkg/metrics"
	"github.com/otabekov/orderdesk-backend/pkg/types"
)

const requestBodyReadLimit int64 = 1024

var errBaseURLRequired = errors.New("upstream base url is required")

// Client talks to the authoritative ordering backend's REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	metrics    *metrics.UpstreamMetrics
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithToken attaches a static bearer token to every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// WithMetrics wires request metrics into the client.
func WithMetrics(m *metrics.UpstreamMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient builds the ordering-backend client for the given base URL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return nil, errBaseURLRequired
	}

	client := &Client{
		baseURL:    strings.TrimRight(trimmed, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	return client, nil
}

// Filials lists all branches.
func (c *Client) Filials(ctx context.Context) ([]Filial, error) {
	var out []Filial
	if err := c.getJSON(ctx, "filials", "filials", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Products lists the flat catalog.
func (c *Client) Products(ctx context.Context) ([]Product, error) {
	var out []Product
	if err := c.getJSON(ctx, "products", "products", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Promocodes lists all discount rules.
func (c *Client) Promocodes(ctx context.Context) ([]Promocode, error) {
	var out []Promocode
	if err := c.getJSON(ctx, "promocodes", "promocodes/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Users lists registered customers.
func (c *Client) Users(ctx context.Context) ([]User, error) {
	var out []User
	if err := c.getJSON(ctx, "users", "users", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Categories lists the full catalog tree.
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var out []Category
	if err := c.getJSON(ctx, "categories", "categories", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PhoneNumbers lists branch contact phones.
func (c *Client) PhoneNumbers(ctx context.Context) ([]PhoneNumber, error) {
	var out []PhoneNumber
	if err := c.getJSON(ctx, "phone-numbers", "phone-numbers", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CategoryStats fetches the products and subcategories of one tree node.
func (c *Client) CategoryStats(ctx context.Context, categoryID string) (*CategoryStats, error) {
	id := strings.TrimSpace(categoryID)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category id is required")
	}
	var out CategoryStats
	path := fmt.Sprintf("categories/%s/stats", url.PathEscape(id))
	if err := c.getJSON(ctx, "category-stats", path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UserLocations fetches saved delivery points for the given customer.
func (c *Client) UserLocations(ctx context.Context, userID string) ([]SavedLocation, error) {
	id := strings.TrimSpace(userID)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	var out []SavedLocation
	query := url.Values{"user": {id}}
	if err := c.getJSON(ctx, "locations", "locations", query, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeliveryPrice asks the backend to price delivery to a point.
func (c *Client) DeliveryPrice(ctx context.Context, loc types.Location) (*DeliveryQuote, error) {
	if !loc.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a valid location is required")
	}
	var out DeliveryQuote
	if err := c.postJSON(ctx, "delivery-price", "delivery-price", loc, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateOrder performs the single authoritative order write.
func (c *Client) CreateOrder(ctx context.Context, payload CreateOrderPayload) (*CreatedOrder, error) {
	if len(payload.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	var out CreatedOrder
	if err := c.postJSON(ctx, "orders", "orders", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ping verifies the backend is reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL("filials", nil), nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build ping request")
	}
	c.decorate(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ping ordering backend")
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= http.StatusInternalServerError {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("ordering backend unhealthy: status %d", resp.StatusCode))
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, resource, path string, query url.Values, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL(path, query), nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build "+resource+" request")
	}
	return c.do(req, resource, dest)
}

func (c *Client) postJSON(ctx context.Context, resource, path string, body, dest any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal "+resource+" request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL(path, nil), bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build "+resource+" request")
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, resource, dest)
}

func (c *Client) do(req *http.Request, resource string, dest any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "upstream client not configured")
	}
	c.decorate(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.ObserveDuration(resource, time.Since(start))
	if err != nil {
		c.metrics.IncFailure(resource)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute "+resource+" request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.metrics.IncFailure(resource)
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
		cause := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
		if resp.StatusCode >= http.StatusBadRequest && resp.StatusCode < http.StatusInternalServerError {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, cause, resource+" request rejected")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, cause, resource+" request failed")
	}

	if dest != nil {
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			c.metrics.IncFailure(resource)
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode "+resource+" response")
		}
	}

	c.metrics.IncSuccess(resource)
	return nil
}

func (c *Client) decorate(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func (c *Client) buildURL(path string, query url.Values) string {
	full := fmt.Sprintf("%s/%s", c.baseURL, strings.TrimLeft(path, "/"))
	if len(query) > 0 {
		full += "?" + query.Encode()
	}
	return full
}
