// Package client is the console's HTTP client for the billing backend API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/orgbill/console/billing"
	"github.com/orgbill/console/store"
)

// APIError is a non-200 backend response. Its Error text is the response
// body verbatim; the backend writes plain-text error bodies meant to be
// shown to the user as-is.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string { return e.Body }

// SubResult is the backend's response to subscription operations: the
// subscription's id and status, plus the client secret of an outstanding
// payment when one must still be confirmed.
type SubResult struct {
	SubscriptionID     string `json:"subscriptionId"`
	SubscriptionStatus string `json:"subscriptionStatus"`
	ClientSecret       string `json:"clientSecret"`
}

// ProviderConfig carries the payment provider's publishable key.
type ProviderConfig struct {
	PublishableKey string `json:"publishableKey"`
}

// Client issues requests against the billing backend. The base URL is
// injected at construction; nothing here reads ambient configuration.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client for the backend at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

// ListOrganizations returns all organizations.
func (c *Client) ListOrganizations(ctx context.Context) ([]*store.Organization, error) {
	var orgs []*store.Organization
	if err := c.getJSON(ctx, "/organization", &orgs); err != nil {
		return nil, err
	}
	return orgs, nil
}

// GetOrganization returns the organization, or nil when it does not exist.
func (c *Client) GetOrganization(ctx context.Context, id string) (*store.Organization, error) {
	status, body, err := c.do(ctx, http.MethodGet, "/organization/"+id, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, &APIError{Status: status, Body: string(body)}
	}
	var org store.Organization
	if err := json.Unmarshal(body, &org); err != nil {
		return nil, fmt.Errorf("client: parse organization: %w", err)
	}
	return &org, nil
}

// CreateOrganization registers a new organization.
func (c *Client) CreateOrganization(ctx context.Context, name, email string) error {
	payload := struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}{Name: name, Email: email}

	status, body, err := c.do(ctx, http.MethodPost, "/organization/create", payload)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return &APIError{Status: status, Body: string(body)}
	}
	return nil
}

// Subscribe puts the organization on the named plan (new subscription).
func (c *Client) Subscribe(ctx context.Context, orgID, plan string) (*SubResult, error) {
	return c.submitPlan(ctx, http.MethodPost, orgID, plan)
}

// ChangePlan moves the organization to the named plan (existing subscriber).
func (c *Client) ChangePlan(ctx context.Context, orgID, plan string) (*SubResult, error) {
	return c.submitPlan(ctx, http.MethodPut, orgID, plan)
}

func (c *Client) submitPlan(ctx context.Context, method, orgID, plan string) (*SubResult, error) {
	payload := struct {
		Plan string `json:"plan"`
	}{Plan: plan}

	status, body, err := c.do(ctx, method, "/organization/"+orgID+"/sub", payload)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &APIError{Status: status, Body: string(body)}
	}
	var res SubResult
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("client: parse subscription result: %w", err)
	}
	return &res, nil
}

// GetSubscription returns the organization's current subscription handle.
func (c *Client) GetSubscription(ctx context.Context, orgID string) (*SubResult, error) {
	var res SubResult
	if err := c.getJSON(ctx, "/organization/"+orgID+"/sub", &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// CancelSubscription cancels the organization's subscription.
func (c *Client) CancelSubscription(ctx context.Context, orgID string) error {
	status, body, err := c.do(ctx, http.MethodDelete, "/organization/"+orgID+"/sub", nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return &APIError{Status: status, Body: string(body)}
	}
	return nil
}

// ListPlans returns the plan catalog.
func (c *Client) ListPlans(ctx context.Context) ([]billing.Offering, error) {
	var offerings []billing.Offering
	if err := c.getJSON(ctx, "/plans", &offerings); err != nil {
		return nil, err
	}
	return offerings, nil
}

// GetConfig returns the provider's publishable key.
func (c *Client) GetConfig(ctx context.Context) (*ProviderConfig, error) {
	var cfg ProviderConfig
	if err := c.getJSON(ctx, "/config", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	status, body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return &APIError{Status: status, Body: string(body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("client: parse %s response: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("client: marshal request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("client: create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("client: read response: %w", err)
	}
	return resp.StatusCode, bytes.TrimSpace(body), nil
}
