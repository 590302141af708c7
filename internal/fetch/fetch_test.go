package fetch

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func serverMock(handler func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/", handler)
	return httptest.NewServer(mux)
}

func TestFetchSuccess(t *testing.T) {
	server := serverMock(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body>hello</body></html>"))
	})
	defer server.Close()

	f := New(Options{Timeout: 5 * time.Second})
	res := f.Fetch(server.URL, nil, nil)
	if !res.Success {
		t.Fatalf("Fetch failed: expected success, got %+v", res)
	}
	if res.StatusCode != 200 {
		t.Errorf("Fetch failed: expected 200 got %d", res.StatusCode)
	}
	if res.IsBlocked {
		t.Errorf("Fetch failed: expected not blocked")
	}
}

func TestFetchDetects403Blocking(t *testing.T) {
	server := serverMock(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	defer server.Close()

	f := New(Options{Timeout: 5 * time.Second, MaxRetries: 1})
	res := f.Fetch(server.URL, nil, nil)
	if !res.IsBlocked || res.BlockedReason != "403_forbidden" {
		t.Errorf("Fetch failed: expected 403_forbidden, got %+v", res)
	}
}

func TestFetchDetectsBodyBlockIndicator(t *testing.T) {
	server := serverMock(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Please complete this captcha to continue"))
	})
	defer server.Close()

	f := New(Options{Timeout: 5 * time.Second})
	res := f.Fetch(server.URL, nil, nil)
	if !res.IsBlocked {
		t.Errorf("Fetch failed: expected blocked indicator detected")
	}
}

func TestFetchInvalidURLReturnsFailureNotError(t *testing.T) {
	f := New(Options{})
	res := f.Fetch("not a url", nil, nil)
	if res.Success {
		t.Errorf("Fetch failed: expected success=false for invalid url")
	}
	if res.Error == "" {
		t.Errorf("Fetch failed: expected a descriptive error string")
	}
}

func TestFetchAppliesCustomHeaders(t *testing.T) {
	var gotHeader string
	server := serverMock(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Custom")
	})
	defer server.Close()

	f := New(Options{Timeout: 5 * time.Second})
	f.Fetch(server.URL, map[string]string{"X-Custom": "value"}, nil)
	if gotHeader != "value" {
		t.Errorf("Fetch failed: expected custom header forwarded, got %q", gotHeader)
	}
}

func TestFetchConnectionErrorIsDescriptive(t *testing.T) {
	f := New(Options{Timeout: time.Second})
	res := f.Fetch(fmt.Sprintf("http://127.0.0.1:1"), nil, nil)
	if res.Success {
		t.Errorf("Fetch failed: expected connection failure")
	}
	if res.Error == "" {
		t.Errorf("Fetch failed: expected a descriptive error string for a connection failure")
	}
}
