package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// IdentityClient talks to the identity service owning one principal space.
// The gateway owns no identity data; both calls delegate to the backend.
type IdentityClient interface {
	// Validate forwards the raw bearer header and expects a bodiless 2xx.
	Validate(ctx context.Context, authHeader string) error
	// Role resolves the caller's role for authorization decisions.
	Role(ctx context.Context, authHeader string) (string, error)
}

// HTTPIdentityClient is the production IdentityClient over HTTP/JSON.
type HTTPIdentityClient struct {
	baseURL string
	prefix  string
	client  *http.Client
}

// NewHTTPIdentityClient targets one identity space, e.g. prefix "/user" or
// "/customer". The timeout is mandatory: the source system had none and an
// unresponsive identity service would hang every request thread.
func NewHTTPIdentityClient(baseURL, prefix string, timeout time.Duration) *HTTPIdentityClient {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &HTTPIdentityClient{
		baseURL: baseURL,
		prefix:  prefix,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPIdentityClient) Validate(ctx context.Context, authHeader string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+c.prefix+"/profile/validate", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", authHeader)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("validate returned %d", resp.StatusCode)
	}
	return nil
}

func (c *HTTPIdentityClient) Role(ctx context.Context, authHeader string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+c.prefix+"/profile/role", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", authHeader)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("role returned %d", resp.StatusCode)
	}

	var body struct {
		Role string `json:"role"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	return body.Role, nil
}
