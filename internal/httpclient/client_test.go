package httpclient

import (
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDefaultConfig_EnvOverrides(t *testing.T) {
	t.Setenv("HTTP_TIMEOUT", "30")
	t.Setenv("HTTP_RESPONSE_HEADER_TIMEOUT", "2m")

	cfg := DefaultConfig()
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Timeout)
	}
	if cfg.ResponseHeaderTimeout != 2*time.Minute {
		t.Errorf("ResponseHeaderTimeout = %v, want 2m", cfg.ResponseHeaderTimeout)
	}
}

func TestDefaultConfig_InvalidEnvFallsBack(t *testing.T) {
	t.Setenv("HTTP_TIMEOUT", "soon")

	cfg := DefaultConfig()
	if cfg.Timeout != 600*time.Second {
		t.Errorf("Timeout = %v, want 600s", cfg.Timeout)
	}
}

func TestNewHTTPClient_TrustsExtraCABundle(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	bundle := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: server.Certificate().Raw})

	cfg := DefaultConfig()
	cfg.RootCAs = bundle
	client, err := NewHTTPClient(&cfg)
	if err != nil {
		t.Fatalf("NewHTTPClient() error = %v", err)
	}

	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("GET with CA bundle failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
}

func TestNewHTTPClient_UnknownCAIsRejected(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	client := NewDefaultHTTPClient()
	if _, err := client.Get(server.URL); err == nil {
		t.Fatal("expected certificate verification error")
	}
}

func TestNewHTTPClient_EmptyBundle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RootCAs = []byte("not a certificate")

	_, err := NewHTTPClient(&cfg)
	if !errors.Is(err, ErrNoCertificates) {
		t.Fatalf("error = %v, want ErrNoCertificates", err)
	}
}
