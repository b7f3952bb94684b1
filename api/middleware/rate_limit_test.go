package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeRateStore struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newFakeRateStore() *fakeRateStore {
	return &fakeRateStore{counts: make(map[string]int64)}
}

func (f *fakeRateStore) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[key]++
	return f.counts[key], nil
}

func promoRequest(ip, cartToken string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/promos/validate", strings.NewReader(`{"code":"SAVE10"}`))
	req.RemoteAddr = ip + ":5678"
	if cartToken != "" {
		req.Header.Set(CartTokenHeader, cartToken)
	}
	return req
}

func TestRateLimit_AllowsUnderLimit(t *testing.T) {
	store := newFakeRateStore()
	policy := NewRateLimitPolicy("promo", time.Minute, 2, 2)
	handler := RateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, promoRequest("1.2.3.4", "tok"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRateLimit_CartLimitTriggersAcrossIPs(t *testing.T) {
	store := newFakeRateStore()
	policy := NewRateLimitPolicy("promo", time.Minute, 0, 2)
	handler := RateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	ips := []string{"1.1.1.1", "2.2.2.2", "3.3.3.3"}
	for i, ip := range ips {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, promoRequest(ip, "guessing-cart"))
		switch {
		case i < 2 && rec.Code != http.StatusOK:
			t.Fatalf("expected success before limit, got %d", rec.Code)
		case i >= 2 && rec.Code != http.StatusTooManyRequests:
			t.Fatalf("expected 429 after limit, got %d", rec.Code)
		}
	}

	for key := range store.counts {
		if strings.Contains(key, "guessing-cart") {
			t.Fatalf("raw cart token used as counter key %q", key)
		}
	}
}

func TestRateLimit_IPLimitTriggers(t *testing.T) {
	store := newFakeRateStore()
	policy := NewRateLimitPolicy("checkout", time.Minute, 1, 0)
	handler := RateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, promoRequest("9.9.9.9", ""))
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, promoRequest("9.9.9.9", ""))

	if first.Code != http.StatusOK || second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 200 then 429, got %d then %d", first.Code, second.Code)
	}
	if got := second.Header().Get("Retry-After"); got != "60" {
		t.Fatalf("expected Retry-After 60, got %q", got)
	}
}

func TestRateLimit_DisabledPolicyPassesThrough(t *testing.T) {
	store := newFakeRateStore()
	handler := RateLimit(NewRateLimitPolicy("promo", 0, 1, 1), store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, promoRequest("1.2.3.4", "tok"))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected passthrough, got %d", rec.Code)
		}
	}
	if len(store.counts) != 0 {
		t.Fatalf("disabled policy should not touch the store")
	}
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", " 10.0.0.1 , 10.0.0.2")
	req.RemoteAddr = "127.0.0.1:9999"
	if got := clientIP(req); got != "10.0.0.1" {
		t.Fatalf("expected forwarded ip, got %q", got)
	}
}
