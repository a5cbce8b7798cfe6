package heartbeat

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type request struct {
	Method string
	Path   string
	Query  string
	Body   string
	Agent  string
}

func newRecordingServer(t *testing.T, status int) (*httptest.Server, func() []request) {
	t.Helper()
	var mu sync.Mutex
	var got []request
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		got = append(got, request{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Body:   string(body),
			Agent:  r.Header.Get("User-Agent"),
		})
		mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte("OK"))
	}))
	t.Cleanup(ts.Close)
	return ts, func() []request {
		mu.Lock()
		defer mu.Unlock()
		return append([]request(nil), got...)
	}
}

func TestPingSuccess(t *testing.T) {
	ts, requests := newRecordingServer(t, http.StatusOK)

	client := NewHTTPClient(time.Second, "voipcheck/test")
	defer client.Close()

	if err := client.Ping(context.Background(), ts.URL+"/ping/abc", Success()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}

	got := requests()
	if len(got) != 1 {
		t.Fatalf("Expected 1 request, got %d", len(got))
	}
	if got[0].Method != http.MethodGet || got[0].Path != "/ping/abc" {
		t.Errorf("Expected GET /ping/abc, got %s %s", got[0].Method, got[0].Path)
	}
	if got[0].Agent != "voipcheck/test" {
		t.Errorf("Expected user agent voipcheck/test, got %q", got[0].Agent)
	}
}

func TestPingFailurePostsDetail(t *testing.T) {
	ts, requests := newRecordingServer(t, http.StatusOK)

	client := NewHTTPClient(time.Second, "")
	defer client.Close()

	signal := Failure("Line 2 NOT REGISTERED.")
	signal.RunID = "4f7c1a52-8a1e-4c55-9d43-0d1f7f6e8a10"
	if err := client.Ping(context.Background(), ts.URL+"/ping/abc/", signal); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}

	got := requests()
	if len(got) != 1 {
		t.Fatalf("Expected 1 request, got %d", len(got))
	}
	if got[0].Method != http.MethodPost || got[0].Path != "/ping/abc/fail" {
		t.Errorf("Expected POST /ping/abc/fail, got %s %s", got[0].Method, got[0].Path)
	}
	if got[0].Body != "Line 2 NOT REGISTERED." {
		t.Errorf("Unexpected body %q", got[0].Body)
	}
	if got[0].Query != "rid="+signal.RunID {
		t.Errorf("Expected run id query, got %q", got[0].Query)
	}
}

func TestPingLog(t *testing.T) {
	ts, requests := newRecordingServer(t, http.StatusOK)

	client := NewHTTPClient(time.Second, "")
	defer client.Close()

	if err := client.Ping(context.Background(), ts.URL+"/ping/abc", Log("status page layout changed")); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}

	got := requests()
	if len(got) != 1 || got[0].Path != "/ping/abc/log" {
		t.Fatalf("Expected one request to /ping/abc/log, got %+v", got)
	}
}

func TestPingEmptyURLIsNoop(t *testing.T) {
	ts, requests := newRecordingServer(t, http.StatusOK)
	_ = ts

	client := NewHTTPClient(time.Second, "")
	defer client.Close()

	for _, u := range []string{"", "   "} {
		if err := client.Ping(context.Background(), u, Failure("off hook")); err != nil {
			t.Errorf("Expected no error for empty URL, got %v", err)
		}
	}
	if n := len(requests()); n != 0 {
		t.Errorf("Expected no requests, got %d", n)
	}
}

func TestPingReportsDeliveryFailures(t *testing.T) {
	ts, _ := newRecordingServer(t, http.StatusNotFound)

	client := NewHTTPClient(time.Second, "")
	defer client.Close()

	err := client.Ping(context.Background(), ts.URL+"/ping/missing", Success())
	var derr *DeliveryError
	if !errors.As(err, &derr) {
		t.Fatalf("Expected *DeliveryError, got %v", err)
	}
	if derr.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", derr.StatusCode)
	}

	// Closed server
	ts.Close()
	err = client.Ping(context.Background(), ts.URL+"/ping/abc", Success())
	if !errors.As(err, &derr) || derr.Err == nil {
		t.Errorf("Expected transport DeliveryError, got %v", err)
	}
}

func TestPingRejectsBadURL(t *testing.T) {
	client := NewHTTPClient(time.Second, "")
	defer client.Close()

	err := client.Ping(context.Background(), "ftp://hc-ping.com/abc", Success())
	if err == nil || !strings.Contains(err.Error(), "scheme") {
		t.Errorf("Expected scheme error, got %v", err)
	}
}

func TestPingTimeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer ts.Close()

	client := NewHTTPClient(50*time.Millisecond, "")
	defer client.Close()

	start := time.Now()
	if err := client.Ping(context.Background(), ts.URL, Success()); err == nil {
		t.Fatal("Expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Ping was not bounded by its timeout: %v", elapsed)
	}
}

func TestDryRunLogsInsteadOfSending(t *testing.T) {
	var buf bytes.Buffer
	d := DryRun{Logger: zerolog.New(&buf)}

	if err := d.Ping(context.Background(), "https://hc-ping.com/abc", Failure("off hook")); err != nil {
		t.Fatalf("DryRun.Ping failed: %v", err)
	}
	if !strings.Contains(buf.String(), "dry run") {
		t.Errorf("Expected dry run log line, got %q", buf.String())
	}

	buf.Reset()
	_ = d.Ping(context.Background(), "", Success())
	if buf.Len() != 0 {
		t.Errorf("Expected no log for unset URL, got %q", buf.String())
	}
}
