package upsert

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testConfig(baseURL string) Config {
	return Config{
		BaseURL:      baseURL,
		AdminSecret:  "admin-secret",
		ServiceToken: "service-token",
	}
}

func TestForward_RelaysStatusAndBody(t *testing.T) {
	var gotAuth, gotAPIKey, gotAdmin string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAPIKey = r.Header.Get("apikey")
		gotAdmin = r.Header.Get("x-admin-secret")

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), testConfig(srv.URL))

	res, err := c.Forward(context.Background(), []byte(`{"email":"a@b.com"}`))
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("want 201, got %d", res.StatusCode)
	}
	if string(res.Body) != `{"ok":true}` {
		t.Fatalf("body not relayed verbatim: %s", res.Body)
	}
	if gotAuth != "Bearer service-token" || gotAPIKey != "service-token" || gotAdmin != "admin-secret" {
		t.Fatalf("auth headers not attached: %q %q %q", gotAuth, gotAPIKey, gotAdmin)
	}
}

func TestForward_UpstreamErrorStatusIsRelayedNotWrapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), testConfig(srv.URL))

	res, err := c.Forward(context.Background(), nil)
	if err != nil {
		t.Fatalf("a received response must not be an error: %v", err)
	}
	if res.StatusCode != http.StatusBadGateway {
		t.Fatalf("want 502 relayed, got %d", res.StatusCode)
	}
}

func TestForward_MissingConfig(t *testing.T) {
	c := NewClient(http.DefaultClient, Config{BaseURL: "http://example.com"})

	_, err := c.Forward(context.Background(), nil)
	if err == nil {
		t.Fatal("expected an error for missing config")
	}
	if got := err.Error(); got != "missing configuration: ADMIN_SECRET" {
		t.Fatalf("error should name the missing variable, got %q", got)
	}
}

func TestConfigMissingOrder(t *testing.T) {
	if m := (Config{}).Missing(); m != "UPSERT_BASE_URL" {
		t.Fatalf("want UPSERT_BASE_URL, got %s", m)
	}
	if m := testConfig("http://x").Missing(); m != "" {
		t.Fatalf("complete config reported missing %s", m)
	}
}

func TestForward_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := NewClient(http.DefaultClient, testConfig(srv.URL))
	if _, err := c.Forward(context.Background(), nil); err == nil {
		t.Fatal("expected a transport error")
	}
}
