// Package api is the HTTP client for the Nexus service and the external
// currency catalog provider.
package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/atinyakov/nexus/internal/client/clienterr"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is the production Nexus service.
	DefaultBaseURL = "https://backendnexus-026855c96a67.herokuapp.com"
	// DefaultCatalogURL lists every currency known to CoinGecko.
	DefaultCatalogURL = "https://api.coingecko.com/api/v3/coins/list"

	// maxErrorBody bounds how much of an error response is read.
	maxErrorBody = 64 << 10
)

// Client calls the Nexus service.
type Client struct {
	baseURL        string
	catalogURL     string
	http           *http.Client
	log            *zap.Logger
	onUnauthorized func()
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithCatalogURL replaces DefaultCatalogURL.
func WithCatalogURL(u string) Option {
	return func(cl *Client) {
		if u != "" {
			cl.catalogURL = u
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *zap.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.log = l
		}
	}
}

// WithUnauthorizedHook registers fn to run when the service answers 401 to a
// request that carried a credential.
func WithUnauthorizedHook(fn func()) Option {
	return func(cl *Client) { cl.onUnauthorized = fn }
}

// New returns a client for the service at baseURL (DefaultBaseURL if empty).
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		catalogURL: DefaultCatalogURL,
		http:       &http.Client{Timeout: 10 * time.Second},
		log:        zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// NewHTTPClient builds an *http.Client with the given timeout. When caFile is
// set, the server certificate must chain to that CA instead of the system
// roots.
func NewHTTPClient(caFile string, timeout time.Duration) (*http.Client, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if caFile == "" {
		return &http.Client{Timeout: timeout}, nil
	}

	caCert, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA cert: %w", err)
	}
	caPool := x509.NewCertPool()
	if !caPool.AppendCertsFromPEM(caCert) {
		return nil, errors.New("failed to parse CA cert")
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			RootCAs:    caPool,
			MinVersion: tls.VersionTLS12,
		},
	}
	return &http.Client{Transport: transport, Timeout: timeout}, nil
}

// errorBody is the error shape returned by the service.
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// do sends a JSON request and decodes a JSON response into out (when out is
// not nil). token, when set, is sent as a bearer credential.
func (c *Client) do(ctx context.Context, op, method, url, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("request failed",
			zap.String("op", op),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		return &clienterr.RemoteError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	c.log.Debug("request completed",
		zap.String("op", op),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		remote := &clienterr.RemoteError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    readErrorMessage(resp.Body),
		}
		if remote.Unauthorized() && token != "" && c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return remote
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &clienterr.DecodeError{Op: op, Err: err}
	}
	return nil
}

// readErrorMessage extracts the server message from a JSON error body, or
// returns the trimmed plain-text body.
func readErrorMessage(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	var eb errorBody
	if err := json.Unmarshal(data, &eb); err == nil {
		if eb.Message != "" {
			return eb.Message
		}
		return eb.Error
	}
	text := strings.TrimSpace(string(data))
	if strings.HasPrefix(text, "<") {
		// HTML error pages are not worth showing
		return ""
	}
	return text
}

func (c *Client) url(path string) string {
	return c.baseURL + path
}
