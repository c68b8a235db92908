package subscription

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// CheckoutClient starts a renewal payment for a tenant and returns the URL
// the browser should be redirected to. The payment gateway is a black box;
// webhooks updating the subscription status land on the billing collaborator,
// not on this service.
type CheckoutClient interface {
	CreateCheckout(ctx context.Context, tenantID string, returnURL string) (redirectURL string, err error)
}

// HTTPCheckoutClient posts to the gateway's checkout endpoint.
type HTTPCheckoutClient struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPCheckoutClient(baseURL string) *HTTPCheckoutClient {
	return &HTTPCheckoutClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *HTTPCheckoutClient) CreateCheckout(ctx context.Context, tenantID, returnURL string) (string, error) {
	form := url.Values{"tenant_id": {tenantID}, "return_url": {returnURL}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/checkout", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("checkout: gateway returned %d", resp.StatusCode)
	}
	var out struct {
		RedirectURL string `json:"redirect_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("checkout: decode response: %w", err)
	}
	if out.RedirectURL == "" {
		return "", fmt.Errorf("checkout: gateway returned empty redirect url")
	}
	return out.RedirectURL, nil
}
