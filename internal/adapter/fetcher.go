// Package adapter reads the voice status page from the telephone adapter's
// web interface.
package adapter

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/voipcheck/voipcheck/internal/credentials"
)

// Page paths and selectors of the adapter's web interface.
const (
	VoicePath          = "voice.asp"
	SelectorUser       = `input[name="user"]`
	SelectorPassword   = `input[name="pwd"]`
	SelectorLoggedIn   = `#trt_quicksetup\.asp`
	SelectorFrame      = `#iframe`
	SelectorStatusInfo = `#Information`
)

// Outcome is the result of one attempt to read the status page.
// Either Content is set or Err explains why the adapter could not be read.
type Outcome struct {
	Content string
	Err     error
}

// OK reports whether the page was read
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Reachable returns a successful outcome
func Reachable(content string) Outcome {
	return Outcome{Content: content}
}

// Unreachable returns a failed outcome
func Unreachable(cause error) Outcome {
	if cause == nil {
		cause = fmt.Errorf("adapter unreachable")
	}
	return Outcome{Err: cause}
}

// Fetcher reads the rendered status page. Implementations never return a
// Go error: every failure is an Unreachable outcome.
type Fetcher interface {
	Fetch(ctx context.Context, adapterURL string, creds credentials.Credentials) Outcome
}

// LoginError reports credentials the adapter rejected
type LoginError struct {
	Username string
}

func (e *LoginError) Error() string {
	return fmt.Sprintf("login failed for user %q", e.Username)
}

// BaseURL normalizes the adapter URL to its root with a trailing slash
func BaseURL(adapterURL string) (string, error) {
	raw := strings.TrimSpace(adapterURL)
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid adapter URL %q: %w", adapterURL, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid adapter URL %q: missing host", adapterURL)
	}
	u.Path = "/"
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

// VoiceURL returns the address of the voice status page
func VoiceURL(base string) string {
	return strings.TrimRight(base, "/") + "/" + VoicePath
}

// sameURL compares two page URLs ignoring a trailing slash
func sameURL(a, b string) bool {
	return strings.TrimRight(a, "/") == strings.TrimRight(b, "/")
}
