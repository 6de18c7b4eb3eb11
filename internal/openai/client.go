// Package openai is a thin HTTP client for the hosted speech-to-text and chat
// completion endpoints, plus the startup credential checks.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"yt-transcripts-go/internal/config"
	"yt-transcripts-go/internal/failure"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"

	// Long recordings can take a very long time to transcribe in one request.
	defaultTimeout = 6300 * time.Second
)

// APIError is a non-2xx response from the provider.
type APIError struct {
	StatusCode int
	Type       string
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "openai: status %d", e.StatusCode)
	if e.Code != "" {
		fmt.Fprintf(&b, " code=%s", e.Code)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	return b.String()
}

// HTTPStatus lets failure.Classify read the status without text matching.
func (e *APIError) HTTPStatus() int { return e.StatusCode }

// Unwrap exposes failure.ErrAuth for rejected credentials.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized || e.Code == "invalid_api_key" {
		return failure.ErrAuth
	}
	return nil
}

type Client struct {
	apiKey    string
	baseURL   string
	orgID     string
	projectID string
	http      *http.Client
}

// New builds a client from cfg. Only an explicit OPENAI_PROXY is honoured;
// ambient HTTP(S)_PROXY variables are ignored.
func New(cfg config.OpenAI) (*Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	if cfg.Proxy != "" {
		u, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("parse OPENAI_PROXY: %w", err)
		}
		transport.Proxy = http.ProxyURL(u)
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	return &Client{
		apiKey:    cfg.APIKey,
		baseURL:   base,
		orgID:     cfg.OrgID,
		projectID: cfg.ProjectID,
		http:      &http.Client{Timeout: defaultTimeout, Transport: transport},
	}, nil
}

// BaseURL returns the endpoint root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// NewRequest builds an authenticated request for path relative to the base URL.
func (c *Client) NewRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+strings.TrimLeft(path, "/"), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.orgID != "" {
		req.Header.Set("OpenAI-Organization", c.orgID)
	}
	if c.projectID != "" {
		req.Header.Set("OpenAI-Project", c.projectID)
	}
	return req, nil
}

// Do sends req and returns the response body. Non-2xx responses come back as *APIError.
func (c *Client) Do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseAPIError(resp.StatusCode, body)
	}
	return body, nil
}

func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}
	var envelope struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    any    `json:"code"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil && envelope.Error.Message != "" {
		apiErr.Message = envelope.Error.Message
		apiErr.Type = envelope.Error.Type
		if code, ok := envelope.Error.Code.(string); ok {
			apiErr.Code = code
		}
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(body))
	if len(apiErr.Message) > 300 {
		apiErr.Message = apiErr.Message[:300]
	}
	return apiErr
}

// ValidateCredentials lists models once. A 401 is returned immediately; transient
// failures are retried for a short while.
func (c *Client) ValidateCredentials(ctx context.Context) error {
	op := func() error {
		req, err := c.NewRequest(ctx, http.MethodGet, "/models", nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		_, err = c.Do(req)
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode < 500 && apiErr.StatusCode != http.StatusTooManyRequests {
			return backoff.Permanent(err)
		}
		return err
	}
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 20 * time.Second
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return fmt.Errorf("validate credentials: %w", err)
	}
	return nil
}

// Connect checks the key format, builds a client and confirms the provider
// accepts the credentials. Batch jobs call it before touching any work.
func Connect(ctx context.Context, cfg config.OpenAI) (*Client, error) {
	if err := CheckKeyFormat(cfg.APIKey); err != nil {
		return nil, err
	}
	c, err := New(cfg)
	if err != nil {
		return nil, err
	}
	if err := c.ValidateCredentials(ctx); err != nil {
		return nil, err
	}
	return c, nil
}
