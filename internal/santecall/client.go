// ABOUTME: HTTP client for the SanteCall patient lookup endpoint
// ABOUTME: Single bounded GET per lookup, no retries, pooled transport

package santecall

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// DefaultTimeout bounds a lookup when Config.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// maxResponseSize caps the lookup body read into memory (4MB).
const maxResponseSize = 4 << 20

var errNotAnObject = errors.New("expected a JSON object")

// Looker resolves a phone number into a patient record.
// A nil record with a nil error means no patient matched.
type Looker interface {
	Lookup(ctx context.Context, phone, volubileID string) (*PatientRecord, error)
}

// Config holds configuration for the lookup client.
type Config struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	HTTPClient *http.Client // optional, a pooled client is created when nil
	Logger     *slog.Logger
}

// Client calls the SanteCall lookup API.
type Client struct {
	baseURL    *url.URL
	token      string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a lookup client with the given configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base URL must be http or https, got %q", base.Scheme)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    base,
		token:      cfg.Token,
		timeout:    timeout,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Lookup fetches the patient registered under phone for the given tenant.
func (c *Client) Lookup(ctx context.Context, phone, volubileID string) (*PatientRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := *c.baseURL
	q := u.Query()
	q.Set("phone", phone)
	q.Set("token", c.token)
	q.Set("volubile_id", volubileID)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &LookupError{Kind: KindNetwork, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		lookupErr := classifyTransportError(err)
		c.logger.Warn("santecall lookup failed",
			"kind", lookupErr.Kind.String(),
			"volubile_id", volubileID,
			"duration", time.Since(start),
			"error", lookupErr.Err,
		)
		return nil, lookupErr
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a bounded amount so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		c.logger.Warn("santecall lookup rejected",
			"status", resp.StatusCode,
			"volubile_id", volubileID,
			"duration", time.Since(start),
		)
		return nil, &LookupError{Kind: KindStatus, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, classifyTransportError(err)
	}

	record, err := decodeRecord(body)
	if err != nil {
		return nil, &LookupError{Kind: KindPayload, Err: err}
	}

	c.logger.Debug("santecall lookup complete",
		"volubile_id", volubileID,
		"found", record != nil,
		"duration", time.Since(start),
	)
	return record, nil
}
