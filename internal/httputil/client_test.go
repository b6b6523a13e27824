package httputil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Timeout != 120*time.Second {
		t.Errorf("Timeout = %v", cfg.Timeout)
	}
	if cfg.ResponseHeaderTimeout != 30*time.Second {
		t.Errorf("ResponseHeaderTimeout = %v", cfg.ResponseHeaderTimeout)
	}
	if cfg.KeepAlive != 30*time.Second {
		t.Errorf("KeepAlive = %v", cfg.KeepAlive)
	}
	if cfg.MaxIdleConnsPerHost != 10 {
		t.Errorf("MaxIdleConnsPerHost = %d", cfg.MaxIdleConnsPerHost)
	}
}

func TestNewClient(t *testing.T) {
	client := NewClient(ClientConfig{Timeout: 3 * time.Second})
	if client.Timeout != 3*time.Second {
		t.Errorf("Timeout = %v", client.Timeout)
	}
	if client.Transport == nil {
		t.Error("transport not configured")
	}
}

func TestDefaultClient_MakesRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	resp, err := DefaultClient().Get(srv.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}
