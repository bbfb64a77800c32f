package worker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testExecutor(maxBytes int) *HTTPExecutor {
	return &HTTPExecutor{
		client:         &http.Client{},
		maxResultBytes: maxBytes,
	}
}

func TestHTTPExecutor_GET_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		w.Header().Set("X-Custom", "test-value")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{"result": "ok"})
	}))
	defer server.Close()

	result, err := testExecutor(defaultMaxResultBytes).Execute(context.Background(), Request{
		Method: "GET",
		URL:    server.URL,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Error != "" {
		t.Fatalf("unexpected execution error: %s", result.Error)
	}

	if result.StatusCode == nil || *result.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %v", result.StatusCode)
	}
	if result.Headers["X-Custom"] != "test-value" {
		t.Errorf("expected X-Custom header, got %v", result.Headers["X-Custom"])
	}

	body, ok := result.Body.(map[string]any)
	if !ok {
		t.Fatalf("body should be map, got %T", result.Body)
	}
	if body["result"] != "ok" {
		t.Errorf("expected result=ok, got %v", body["result"])
	}
}

func TestHTTPExecutor_POST_WithBodyAndParams(t *testing.T) {
	var receivedBody map[string]any
	var receivedContentType, receivedAuth, receivedQuery string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		receivedContentType = r.Header.Get("Content-Type")
		receivedAuth = r.Header.Get("Authorization")
		receivedQuery = r.URL.Query().Get("page")
		json.NewDecoder(r.Body).Decode(&receivedBody)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"id": "123"})
	}))
	defer server.Close()

	result, err := testExecutor(defaultMaxResultBytes).Execute(context.Background(), Request{
		Method:  "POST",
		URL:     server.URL,
		Headers: map[string]any{"Authorization": "Bearer token123"},
		Params:  map[string]any{"page": float64(2)},
		Body:    map[string]any{"name": "test"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Error != "" {
		t.Fatalf("unexpected execution error: %s", result.Error)
	}

	if receivedBody["name"] != "test" {
		t.Errorf("server should receive body, got %v", receivedBody)
	}
	if receivedContentType != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", receivedContentType)
	}
	if receivedAuth != "Bearer token123" {
		t.Errorf("expected Authorization header, got %s", receivedAuth)
	}
	if receivedQuery != "2" {
		t.Errorf("expected page=2 query param, got %q", receivedQuery)
	}
	if result.StatusCode == nil || *result.StatusCode != http.StatusCreated {
		t.Errorf("expected status 201, got %v", result.StatusCode)
	}
}

func TestHTTPExecutor_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"message":"boom"}`))
	}))
	defer server.Close()

	result, err := testExecutor(defaultMaxResultBytes).Execute(context.Background(), Request{
		Method: "GET",
		URL:    server.URL,
	})
	if err != nil {
		t.Fatalf("non-2xx must not be a transport error: %v", err)
	}
	if result.Error == "" {
		t.Fatal("expected execution error for HTTP 500")
	}
	if result.StatusCode == nil || *result.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %v", result.StatusCode)
	}

	// тело ошибки сохраняется
	body, ok := result.Body.(map[string]any)
	if !ok {
		t.Fatalf("body should be map, got %T", result.Body)
	}
	if body["message"] != "boom" {
		t.Errorf("expected error body preserved, got %v", body)
	}
}

func TestHTTPExecutor_TransportError(t *testing.T) {
	_, err := testExecutor(defaultMaxResultBytes).Execute(context.Background(), Request{
		Method:  "GET",
		URL:     "http://127.0.0.1:1",
		Timeout: 2 * time.Second,
	})
	if err == nil {
		t.Fatal("expected transport error")
	}
	if !errors.Is(err, ErrHTTPRequest) {
		t.Errorf("expected ErrHTTPRequest, got %v", err)
	}
}

func TestHTTPExecutor_NonJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("plain text response"))
	}))
	defer server.Close()

	result, err := testExecutor(defaultMaxResultBytes).Execute(context.Background(), Request{
		Method: "GET",
		URL:    server.URL,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	body, ok := result.Body.(map[string]any)
	if !ok {
		t.Fatalf("body should be map, got %T", result.Body)
	}
	if body["text"] != "plain text response" {
		t.Errorf("expected text wrapper, got %v", body)
	}
}

func TestHTTPExecutor_OversizeBodyTruncated(t *testing.T) {
	payload := strings.Repeat("x", 2048)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(payload))
	}))
	defer server.Close()

	result, err := testExecutor(1024).Execute(context.Background(), Request{
		Method: "GET",
		URL:    server.URL,
	})
	if err != nil {
		t.Fatalf("oversize body must not be an error: %v", err)
	}
	if result.Error != "" {
		t.Fatalf("unexpected execution error: %s", result.Error)
	}

	marker, ok := result.Body.(map[string]any)
	if !ok {
		t.Fatalf("expected truncation marker, got %T", result.Body)
	}
	if marker["truncated"] != true {
		t.Errorf("expected truncated=true, got %v", marker)
	}
	if marker["size"] != len(payload) {
		t.Errorf("expected size=%d, got %v", len(payload), marker["size"])
	}
}

func TestHTTPExecutor_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	_, err := testExecutor(defaultMaxResultBytes).Execute(context.Background(), Request{
		Method:  "GET",
		URL:     server.URL,
		Timeout: 50 * time.Millisecond,
	})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !errors.Is(err, ErrHTTPRequest) {
		t.Errorf("expected ErrHTTPRequest, got %v", err)
	}
}
