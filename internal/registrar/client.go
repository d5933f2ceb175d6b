// Package registrar wraps the third-party domain registrar API. Registration
// calls are network I/O with real money attached, so every call carries its
// own timeout and a timeout is reported as a registrar failure rather than
// retried here; retries belong to the pending-domain recovery workflow.
package registrar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/PawanKumar-Dev/domainflow/internal/domain"
)

// DefaultTimeout bounds a single registrar call.
const DefaultTimeout = 30 * time.Second

type ResultStatus string

const (
	StatusSuccess ResultStatus = "success"
	StatusError   ResultStatus = "error"
)

// Identity is the registrar-side customer and default contact for a user.
type Identity struct {
	CustomerID string `json:"customer_id"`
	ContactID  string `json:"contact_id"`
}

// RegisterRequest describes a single domain registration.
type RegisterRequest struct {
	DomainName       string   `json:"domain_name"`
	Years            int      `json:"years"`
	CustomerID       string   `json:"customer_id"`
	AdminContactID   string   `json:"admin_contact_id"`
	TechContactID    string   `json:"tech_contact_id"`
	BillingContactID string   `json:"billing_contact_id"`
	NameServers      []string `json:"name_servers,omitempty"`
}

// RegisterResult is the registrar's answer for one domain. Status is the tag:
// StatusSuccess carries the registrar order id and expiry, StatusError carries
// the registrar's message (a deterministic rejection, e.g. validation or
// balance). Transport failures surface as Go errors instead.
type RegisterResult struct {
	Status           ResultStatus `json:"status"`
	RegistrarOrderID string       `json:"registrar_order_id,omitempty"`
	ExpiresAt        *time.Time   `json:"expires_at,omitempty"`
	Message          string       `json:"message,omitempty"`
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	timeout    time.Duration
}

type Option func(*Client)

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func NewClient(baseURL, apiKey string, httpClient *http.Client, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: httpClient,
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrCreateCustomer upserts the registrar-side customer and contact for a
// purchaser, keyed by email. The registrar returns the existing identity on
// repeat calls, so this is safe to call once per checkout.
func (c *Client) GetOrCreateCustomer(ctx context.Context, customer domain.Customer) (Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var identity Identity
	if err := c.post(ctx, "/api/v1/customers", customer, &identity); err != nil {
		return Identity{}, fmt.Errorf("upsert registrar customer %s: %w", customer.Email, err)
	}
	return identity, nil
}

// RegisterDomain submits one registration. The returned result is tagged; the
// caller decides how to record success or deterministic failure.
func (c *Client) RegisterDomain(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var result RegisterResult
	if err := c.post(ctx, "/api/v1/domains/register", req, &result); err != nil {
		return nil, fmt.Errorf("register %s: %w", req.DomainName, err)
	}
	return &result, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("registrar returned status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
