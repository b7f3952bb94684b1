package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

var (
	_ pkgredis.IdempotencyStore = (*fakeStore)(nil)
	_ pkgredis.IdempotencyStore = (*pkgredis.Client)(nil)
)

type fakeStore struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	f.ttls[key] = ttl
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

var testIdempotencyConfig = config.IdempotencyConfig{
	DefaultTTL:  24 * time.Hour,
	CheckoutTTL: 7 * 24 * time.Hour,
}

func checkoutRequest(body, key, cartToken string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	if cartToken != "" {
		req.Header.Set(CartTokenHeader, cartToken)
	}
	return req
}

func TestRouteTTLSelection(t *testing.T) {
	rules := idempotencyRules(testIdempotencyConfig)
	tests := []struct {
		name   string
		method string
		path   string
		want   time.Duration
		ok     bool
	}{
		{"checkout", http.MethodPost, "/api/v1/checkout", 7 * 24 * time.Hour, true},
		{"admin promo create", http.MethodPost, "/api/v1/admin/promos", 24 * time.Hour, true},
		{"checkout validate", http.MethodPost, "/api/v1/checkout/validate", 0, false},
		{"admin read", http.MethodGet, "/api/v1/admin/orders", 0, false},
	}

	for _, tt := range tests {
		ttl, ok := routeTTL(rules, tt.method, tt.path)
		if ok != tt.ok {
			t.Fatalf("%s: expected ok=%v got %v", tt.name, tt.ok, ok)
		}
		if ok && ttl != tt.want {
			t.Fatalf("%s: expected ttl=%v got %v", tt.name, tt.want, ttl)
		}
	}
}

func TestIdempotencyMiddlewareRequiresHeader(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, testIdempotencyConfig, nil)
	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusCreated)
	})

	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, checkoutRequest(`{"payment_method":"card"}`, "", "tok"))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if handlerCalled {
		t.Fatalf("handler should not run without idempotency key")
	}
}

func TestIdempotencyMiddlewareReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, testIdempotencyConfig, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"order_number":"ORD-20261014-ABCDEF"}}`))
	})

	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, checkoutRequest(`{"payment_method":"card"}`, "abc", "tok"))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected first response 201 got %d", resp.Code)
	}

	rec := httptest.NewRecorder()
	mw(handler).ServeHTTP(rec, checkoutRequest(`{"payment_method":"card"}`, "abc", "tok"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected replay status 201 got %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("expected content-type header preserved")
	}
	if !strings.Contains(rec.Body.String(), "ORD-20261014-ABCDEF") {
		t.Fatalf("expected stored body got %s", rec.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}
	for _, ttl := range store.ttls {
		if ttl != 7*24*time.Hour {
			t.Fatalf("expected checkout ttl, got %v", ttl)
		}
	}
}

func TestIdempotencyMiddlewareScopesKeysPerCart(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, testIdempotencyConfig, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	})

	mw(handler).ServeHTTP(httptest.NewRecorder(), checkoutRequest(`{}`, "same", "cart-a"))
	mw(handler).ServeHTTP(httptest.NewRecorder(), checkoutRequest(`{}`, "same", "cart-b"))

	if calls != 2 {
		t.Fatalf("expected separate carts to run independently, got %d calls", calls)
	}
	for key := range store.data {
		if strings.Contains(key, "cart-a") || strings.Contains(key, "cart-b") {
			t.Fatalf("raw cart token leaked into key %q", key)
		}
	}
}

func TestIdempotencyMiddlewareSkipsServerErrors(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, testIdempotencyConfig, nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	mw(handler).ServeHTTP(httptest.NewRecorder(), checkoutRequest(`{}`, "retry-me", "tok"))
	if len(store.data) != 0 {
		t.Fatalf("expected no stored record for a 5xx response")
	}
}

func TestIdempotencyMiddlewareDetectsBodyChange(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, testIdempotencyConfig, nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mw(handler).ServeHTTP(httptest.NewRecorder(), checkoutRequest(`{"payment_method":"card"}`, "xyz", "tok"))

	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, checkoutRequest(`{"payment_method":"cash_on_delivery"}`, "xyz", "tok"))

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("expected error code %s got %s", pkgerrors.CodeIdempotency, payload.Error.Code)
	}
}
