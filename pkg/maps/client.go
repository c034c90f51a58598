package maps

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
)

const (
	defaultBaseURL       = "https://places.googleapis.com/v1"
	defaultTimeout       = 10 * time.Second
	errorBodyLimit int64 = 1024
)

var errAPIKeyRequired = errors.New("google maps api key is required")

// Client talks to the Places API (New) for address autocomplete and place
// resolution during checkout.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	regionCodes  []string
	primaryTypes []string
}

// Option configures optional client behavior.
type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/"); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout, Transport: c.httpClient.Transport}
		}
	}
}

// WithRegionCodes restricts autocomplete to the given CLDR region codes when
// the request does not name its own.
func WithRegionCodes(codes ...string) Option {
	return func(c *Client) {
		c.regionCodes = normalizeCodes(c.regionCodes, codes, strings.ToUpper)
	}
}

// WithPrimaryTypes replaces the place types autocomplete is limited to.
// The default keeps suggestions to deliverable street addresses.
func WithPrimaryTypes(kinds ...string) Option {
	return func(c *Client) {
		c.primaryTypes = normalizeCodes(nil, kinds, strings.ToLower)
	}
}

// NewClient builds a Places client for apiKey.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	key := strings.TrimSpace(apiKey)
	if key == "" {
		return nil, errAPIKeyRequired
	}
	c := &Client{
		apiKey:       key,
		baseURL:      defaultBaseURL,
		httpClient:   &http.Client{Timeout: defaultTimeout},
		primaryTypes: append([]string(nil), addressPrimaryTypes...),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// call issues one Places request. body is JSON-encoded when non-nil and the
// response is decoded into out.
func (c *Client) call(ctx context.Context, op, method, path, fieldMask string, body, out any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "google maps client not configured")
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode "+op+" request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+strings.TrimLeft(path, "/"), reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build "+op+" request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op+" request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return upstreamError(op, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode "+op+" response")
	}
	return nil
}

// upstreamError keeps an unknown place distinguishable from an outage.
func upstreamError(op string, resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	cause := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	switch resp.StatusCode {
	case http.StatusNotFound:
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, cause, "place not found")
	case http.StatusBadRequest:
		return pkgerrors.Wrap(pkgerrors.CodeValidation, cause, op+" request rejected")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, cause, op+" request failed").
			WithDetails(map[string]any{"upstream_status": resp.StatusCode})
	}
}

func normalizeCodes(dst, values []string, norm func(string) string) []string {
	for _, v := range values {
		if trimmed := norm(strings.TrimSpace(v)); trimmed != "" {
			dst = append(dst, trimmed)
		}
	}
	return dst
}
