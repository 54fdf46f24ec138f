package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	tu "github.com/desertthunder/musicvid/internal/testing"
)

func TestAPIService(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		t.Run("Trims Trailing Slash", func(t *testing.T) {
			srv := NewAPIService("http://example.com/", nil)
			if srv.baseURL != "http://example.com" {
				t.Errorf("expected trimmed baseURL, got %s", srv.baseURL)
			}
		})

		t.Run("With Nil Client", func(t *testing.T) {
			srv := NewAPIService("http://example.com", nil)
			if srv.httpClient != http.DefaultClient {
				t.Error("expected http.DefaultClient to be used")
			}
		})
	})

	t.Run("Get", func(t *testing.T) {
		t.Run("Successful Request With JSON Response", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet {
					t.Errorf("expected GET method, got %s", r.Method)
				}
				if r.URL.Query().Get("a") != "b c" {
					t.Errorf("unexpected query %v", r.URL.Query())
				}
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"status": "success"}`))
			}))
			defer server.Close()

			resp, err := NewAPIService(server.URL, nil).Get(context.Background(), "/test", url.Values{"a": {"b c"}})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !resp.OK() {
				t.Errorf("expected OK, got %d", resp.StatusCode)
			}

			var body map[string]string
			if err := resp.Decode(&body); err != nil {
				t.Fatalf("failed to decode: %v", err)
			}
			if body["status"] != "success" {
				t.Errorf("unexpected body %v", body)
			}
		})

		t.Run("Non 2xx Is Not An Error", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTeapot)
			}))
			defer server.Close()

			resp, err := NewAPIService(server.URL, nil).Get(context.Background(), "/", nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resp.OK() || resp.StatusCode != http.StatusTeapot {
				t.Errorf("expected 418, got %d", resp.StatusCode)
			}
		})

		t.Run("Transport Error", func(t *testing.T) {
			client := &http.Client{Transport: tu.NewMockRoundTripper(nil, http.ErrHandlerTimeout)}
			if _, err := NewAPIService("http://example.com", client).Get(context.Background(), "/", nil); err == nil {
				t.Error("expected transport error")
			}
		})

		t.Run("Body Read Error", func(t *testing.T) {
			resp := &http.Response{StatusCode: http.StatusOK, Body: &tu.FCloser{}, Header: http.Header{}}
			client := &http.Client{Transport: tu.NewMockRoundTripper(resp, nil)}
			if _, err := NewAPIService("http://example.com", client).Get(context.Background(), "/", nil); err == nil {
				t.Error("expected read error")
			}
		})

		t.Run("Decode Error", func(t *testing.T) {
			resp := &APIResponse{Body: []byte("nope")}
			var v map[string]any
			if err := resp.Decode(&v); err == nil {
				t.Error("expected decode error")
			}
		})
	})
}
