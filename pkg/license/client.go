package license

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"scrapeguard/pkg/config"
	errs "scrapeguard/pkg/errors"
	"scrapeguard/pkg/logger"
	"scrapeguard/pkg/ratelimit"
	"scrapeguard/pkg/retry"
)

// ValidMessage is the body message the server sends for accepted keys
const ValidMessage = "Keys are valid"

// maxBodySize bounds how much of a response is read
const maxBodySize = 64 << 10

// checkRequest is the JSON body sent to the license server
type checkRequest struct {
	PublicKey string `json:"publicKey"`
	SecretKey string `json:"secretKey"`
	Username  string `json:"username"`
}

// checkResponse is the part of the server reply we look at
type checkResponse struct {
	Message string `json:"message"`
}

// Client validates API keys against a remote license server
type Client struct {
	httpClient *http.Client
	baseURL    string
	headers    map[string]string
	limiter    ratelimit.Limiter
	retry      *retry.Config
	logger     logger.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLimiter throttles requests through l
func WithLimiter(l ratelimit.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// WithRetryConfig overrides the retry policy
func WithRetryConfig(cfg *retry.Config) Option {
	return func(c *Client) {
		c.retry = cfg
	}
}

// WithLogger sets the client logger
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a license client for baseURL
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		headers: map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
			"User-Agent":   "scrapeguard/" + logger.Version,
		},
		logger: logger.GetLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.retry == nil {
		c.retry = defaultRetryConfig(3)
	}
	if c.retry.Logger == nil {
		c.retry.Logger = c.logger
	}

	return c
}

func defaultRetryConfig(attempts int) *retry.Config {
	return &retry.Config{
		MaxAttempts: attempts,
		BackoffFor:  retry.NewErrorTypeBackoff().For,
		RetryIf:     retry.DefaultRetryIf,
	}
}

// NewClientFromConfig builds a client from the license section of the config
func NewClientFromConfig(cfg *config.LicenseConfig, opts ...Option) *Client {
	defaults := []Option{
		WithLimiter(ratelimit.NewSlidingWindow(cfg.RequestsPerMinute, time.Minute)),
		WithRetryConfig(defaultRetryConfig(cfg.MaxRetries + 1)),
	}
	return NewClient(cfg.BaseURL, cfg.Timeout, append(defaults, opts...)...)
}

// CheckKeys asks the license server whether the key pair is valid for
// username. A missing input or a rejection by the server yields false with a
// nil error; a server that could not be reached yields false with a typed
// network, rate limit or server error.
func (c *Client) CheckKeys(ctx context.Context, publicKey, secretKey, username string) (bool, error) {
	if publicKey == "" || secretKey == "" || username == "" {
		c.logger.Error("Public key, secret key, or username is missing")
		return false, nil
	}
	if c.baseURL == "" {
		return false, errs.New(errs.ErrorTypeConfig, "license base URL is not configured")
	}

	body, err := json.Marshal(checkRequest{
		PublicKey: publicKey,
		SecretKey: secretKey,
		Username:  username,
	})
	if err != nil {
		return false, errs.Wrap(errs.ErrorTypeUnknown, err, "failed to encode request")
	}

	valid, err := retry.DoWithResult(ctx, func(ctx context.Context) (bool, error) {
		return c.check(ctx, body)
	}, c.retry)
	if err != nil {
		c.logger.WithError(err).WithField("username", username).Error("Error validating API keys")
		return false, err
	}

	if valid {
		c.logger.WithField("username", username).Info("API keys and username are valid")
	}
	return valid, nil
}

// check performs a single validation request
func (c *Client) check(ctx context.Context, body []byte) (bool, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return false, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return false, errs.Wrap(errs.ErrorTypeConfig, err, "failed to create request")
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, errs.Wrap(errs.ErrorTypeNetwork, err, "license request failed")
	}
	defer resp.Body.Close()

	logger.LogRequest(c.logger, req.Method, c.baseURL, resp.StatusCode,
		float64(time.Since(start).Microseconds())/1000)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return false, errs.Wrap(errs.ErrorTypeNetwork, err, "failed to read response")
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return false, &errs.Error{Type: errs.ErrorTypeRateLimit, Message: "license server rate limit", Code: resp.StatusCode}
	case resp.StatusCode >= 500:
		return false, &errs.Error{Type: errs.ErrorTypeServerError, Message: "license server error", Code: resp.StatusCode}
	case resp.StatusCode != http.StatusOK:
		c.logger.WithFields(map[string]interface{}{
			"status_code": resp.StatusCode,
			"body":        string(data),
		}).Error("License server rejected the request")
		return false, nil
	}

	var result checkResponse
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.WithError(err).Error("License server returned malformed JSON")
		return false, nil
	}
	if result.Message != ValidMessage {
		c.logger.WithField("message", result.Message).Error(fmt.Sprintf("API returned invalid message: %s", result.Message))
		return false, nil
	}
	return true, nil
}
