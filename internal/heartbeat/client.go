package heartbeat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Kind is the logical signal sent to a heartbeat check
type Kind string

const (
	KindSuccess Kind = "success"
	KindFailure Kind = "failure"
	KindLog     Kind = "log"
)

// DefaultTimeout bounds a single ping
const DefaultTimeout = 20 * time.Second

// maxBodyBytes is the largest diagnostic body the ping service stores
const maxBodyBytes = 100_000

// Signal is one heartbeat to deliver
type Signal struct {
	Kind   Kind
	Detail string
	RunID  string
}

// Success returns a bare success signal
func Success() Signal {
	return Signal{Kind: KindSuccess}
}

// Failure returns a failure signal carrying detail
func Failure(detail string) Signal {
	return Signal{Kind: KindFailure, Detail: detail}
}

// Log returns a log-only signal that does not change the check's state
func Log(detail string) Signal {
	return Signal{Kind: KindLog, Detail: detail}
}

// Pinger delivers heartbeat signals
type Pinger interface {
	Ping(ctx context.Context, pingURL string, signal Signal) error
}

// DeliveryError reports a heartbeat the monitoring service did not accept
type DeliveryError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("heartbeat %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("heartbeat %s: unexpected status %d", e.URL, e.StatusCode)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// HTTPClient sends signals using the healthchecks.io ping API
type HTTPClient struct {
	client    *http.Client
	userAgent string
}

// NewHTTPClient creates a new heartbeat client
func NewHTTPClient(timeout time.Duration, userAgent string) *HTTPClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPClient{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Close closes the HTTP client's connection pool
func (h *HTTPClient) Close() {
	if h.client != nil {
		h.client.CloseIdleConnections()
	}
}

// Ping sends signal to pingURL. An empty pingURL is a no-op.
func (h *HTTPClient) Ping(ctx context.Context, pingURL string, signal Signal) error {
	if strings.TrimSpace(pingURL) == "" {
		return nil
	}

	req, err := buildRequest(ctx, pingURL, signal)
	if err != nil {
		return &DeliveryError{URL: pingURL, Err: err}
	}
	if h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return &DeliveryError{URL: pingURL, Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &DeliveryError{URL: pingURL, StatusCode: resp.StatusCode}
	}

	return nil
}

// buildRequest maps a signal onto the ping API: success is a bare GET,
// failure and log POST their detail to the /fail and /log sub-paths.
func buildRequest(ctx context.Context, pingURL string, signal Signal) (*http.Request, error) {
	u, err := url.Parse(strings.TrimSpace(pingURL))
	if err != nil {
		return nil, fmt.Errorf("invalid ping URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid ping URL scheme %q", u.Scheme)
	}

	method := http.MethodGet
	var body io.Reader
	switch signal.Kind {
	case KindSuccess, "":
	case KindFailure:
		u.Path = strings.TrimRight(u.Path, "/") + "/fail"
		method = http.MethodPost
	case KindLog:
		u.Path = strings.TrimRight(u.Path, "/") + "/log"
		method = http.MethodPost
	default:
		return nil, errors.New("unknown signal kind " + string(signal.Kind))
	}

	if method == http.MethodPost {
		detail := signal.Detail
		if len(detail) > maxBodyBytes {
			detail = detail[:maxBodyBytes]
		}
		body = strings.NewReader(detail)
	}

	if signal.RunID != "" {
		q := u.Query()
		q.Set("rid", signal.RunID)
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	}
	return req, nil
}
