// Package lastfm is a client for the music-tracking provider's 2.0 API:
// signed auth exchange, profile lookups and scrobble submission.
package lastfm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"
)

const (
	baseURL     = "https://ws.audioscrobbler.com/2.0/"
	authBaseURL = "https://www.last.fm/api/auth/"
	userAgent   = "scrobble-gateway/1.0"

	// The provider documents a ceiling of 5 requests per second.
	requestsPerSecond = 5
)

// Provider API error codes.
const (
	errCodeInvalidParams  = 6
	errCodeInvalidAPIKey  = 10
	errCodeInvalidSession = 9
	errCodeServiceOffline = 11
	errCodeTempUnavail    = 16
	errCodeRateLimited    = 29
)

// Sentinel errors.
var (
	// ErrMissingCredentials is returned when the API key or shared secret
	// is not configured.
	ErrMissingCredentials = errors.New("missing API key or shared secret")

	// ErrRateLimited is returned when the API rate limit is exceeded after retries.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrInvalidAPIKey is returned when the API key is invalid.
	ErrInvalidAPIKey = errors.New("invalid API key")

	// ErrInvalidSession is returned when the provider rejects the session key.
	ErrInvalidSession = errors.New("invalid session key")

	// ErrServiceUnavailable is returned when the provider reports itself
	// offline or temporarily unavailable.
	ErrServiceUnavailable = errors.New("service unavailable")
)

// Config holds provider client configuration.
type Config struct {
	APIKey string
	Secret string
}

// Client talks to the provider API. All outbound calls are paced by an
// internal limiter so sequential per-track submissions stay under the
// provider's rate ceiling.
type Client struct {
	apiKey      string
	secret      string
	httpClient  *http.Client
	baseURL     string
	authURL     string
	limiter     *rate.Limiter
	retryDelays []time.Duration
}

// NewClient creates a provider client. Returns ErrMissingCredentials if
// the API key or secret is empty.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" || cfg.Secret == "" {
		return nil, ErrMissingCredentials
	}

	return &Client{
		apiKey: cfg.APIKey,
		secret: cfg.Secret,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL:     baseURL,
		authURL:     authBaseURL,
		limiter:     rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		retryDelays: []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second},
	}, nil
}

// doGet performs a GET request with the given query values.
func (c *Client) doGet(ctx context.Context, values url.Values) ([]byte, error) {
	return c.do(ctx, http.MethodGet, values)
}

// doPost performs a form-encoded POST request.
func (c *Client) doPost(ctx context.Context, values url.Values) ([]byte, error) {
	return c.do(ctx, http.MethodPost, values)
}

// do executes a request with retry on rate limit. Retries up to 3 times
// with exponential backoff (1s, 2s, 4s); any other error is final.
func (c *Client) do(ctx context.Context, method string, values url.Values) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= len(c.retryDelays); attempt++ {
		// Wait before retry (skip on first attempt)
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelays[attempt-1]):
			}
		}

		body, err := c.doOnce(ctx, method, values)
		if err == nil {
			return body, nil
		}

		if errors.Is(err, ErrRateLimited) {
			lastErr = err
			continue
		}

		return nil, err
	}

	return nil, lastErr
}

// doOnce executes one paced request and maps provider error envelopes
// to sentinel errors.
func (c *Client) doOnce(ctx context.Context, method string, values url.Values) ([]byte, error) {
	var req *http.Request
	var err error
	if method == http.MethodPost {
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(values.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+values.Encode(), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != 0 {
		switch apiErr.Error {
		case errCodeRateLimited:
			return nil, ErrRateLimited
		case errCodeInvalidAPIKey:
			return nil, ErrInvalidAPIKey
		case errCodeInvalidSession:
			return nil, ErrInvalidSession
		case errCodeServiceOffline, errCodeTempUnavail:
			return nil, ErrServiceUnavailable
		default:
			return nil, fmt.Errorf("API error %d: %s", apiErr.Error, apiErr.Message)
		}
	}

	return body, nil
}

// signedParams builds the signable parameter set for a method call with
// the client's API key merged in.
func (c *Client) signedParams(method string, extra map[string]string) url.Values {
	params := map[string]string{
		"method":  method,
		"api_key": c.apiKey,
	}
	for k, v := range extra {
		params[k] = v
	}
	return signedValues(params, c.secret)
}
