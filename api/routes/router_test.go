package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	checkoutsvc "github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/promos"
	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

var (
	_ RedisStore = (*memoryRedis)(nil)
	_ RedisStore = (*pkgredis.Client)(nil)
)

type memoryRedis struct {
	mu     sync.Mutex
	values map[string]string
	counts map[string]int64
}

func newMemoryRedis() *memoryRedis {
	return &memoryRedis{values: map[string]string{}, counts: map[string]int64{}}
}

func (m *memoryRedis) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.values[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memoryRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key], _ = value.(string)
	return true, nil
}

func (m *memoryRedis) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (m *memoryRedis) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
	return m.counts[key], nil
}

func (m *memoryRedis) Ping(context.Context) error { return nil }

type apiFixture struct {
	handler http.Handler
	conn    *gorm.DB
	cfg     *config.Config
	redis   *memoryRedis
}

func newAPIFixture(t *testing.T) apiFixture {
	t.Helper()
	conn := dbtest.Open(t)
	client := db.NewFromConn(conn)
	logg := logger.Nop()
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)

	productRepo := products.NewRepository(conn)
	productSvc, err := products.NewService(productRepo)
	require.NoError(t, err)
	promoSvc, err := promos.NewService(promos.NewRepository(conn), emitter)
	require.NoError(t, err)
	cartRepo := cart.NewRepository(conn)
	cartSvc, err := cart.NewService(cartRepo, client, productRepo, promoSvc, cart.Options{})
	require.NoError(t, err)
	orderSvc, err := orders.NewService(orders.NewRepository(conn), client, emitter, orders.Options{StrictTransitions: true})
	require.NoError(t, err)
	reg := prometheus.NewRegistry()
	checkout, err := checkoutsvc.NewService(checkoutsvc.Deps{
		Tx:       client,
		Carts:    cartRepo,
		Products: productRepo,
		Promos:   promoSvc,
		Orders:   orderSvc,
		Outbox:   emitter,
		Metrics:  metrics.NewCheckoutMetrics(reg),
	})
	require.NoError(t, err)

	cfg := &config.Config{
		App:         config.AppConfig{Env: "test"},
		JWT:         config.JWTConfig{Secret: "router-secret", Issuer: "storefront", ExpirationMinutes: 15},
		Idempotency: config.IdempotencyConfig{DefaultTTL: time.Hour, CheckoutTTL: 24 * time.Hour},
		RateLimit:   config.RateLimitConfig{Window: time.Minute, PromoIPLimit: 100, PromoCartLimit: 100, CheckoutIPLimit: 100},
	}
	store := newMemoryRedis()
	handler := NewRouter(cfg, logg, client, store, reg, productSvc, cartSvc, promoSvc, checkout, orderSvc)
	return apiFixture{handler: handler, conn: conn, cfg: cfg, redis: store}
}

func (f apiFixture) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f apiFixture) staffToken(t *testing.T, role enums.StaffRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(f.cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{Subject: "staff-" + string(role), Role: role})
	require.NoError(t, err)
	return "Bearer " + token
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	envelope := struct {
		Data json.RawMessage `json:"data"`
	}{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope), rec.Body.String())
	require.NoError(t, json.Unmarshal(envelope.Data, dest))
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	envelope := struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope), rec.Body.String())
	return envelope.Error.Code
}

func checkoutBody() map[string]any {
	return map[string]any{
		"customer": map[string]any{"email": "ada@example.com", "first_name": "Ada", "last_name": "Lovelace"},
		"shipping_address": map[string]any{
			"full_name": "Ada Lovelace", "line1": "12 St James's Sq", "city": "London", "postal_code": "SW1Y 4JH", "country": "GB",
		},
		"payment_method": "card",
	}
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/health/live", nil, nil).Code)
	ready := f.do(t, http.MethodGet, "/health/ready", nil, nil)
	require.Equal(t, http.StatusOK, ready.Code, ready.Body.String())
	assert.Contains(t, ready.Body.String(), `"db":"up"`)
	assert.Contains(t, ready.Body.String(), `"redis":"up"`)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/metrics", nil, nil).Code)
}

func TestGuestJourneyFromCartToTracking(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	shirt := dbtest.MustCreateProduct(t, f.conn, "shirt", dbtest.Variant(2500, 5))
	dbtest.MustCreatePromo(t, f.conn, "SAVE10", enums.DiscountTypePercentage, 10)

	list := f.do(t, http.MethodGet, "/api/v1/products?limit=10", nil, nil)
	require.Equal(t, http.StatusOK, list.Code, list.Body.String())
	assert.Contains(t, list.Body.String(), `"total":1`)

	opened := f.do(t, http.MethodPost, "/api/v1/cart", nil, nil)
	require.Equal(t, http.StatusCreated, opened.Code, opened.Body.String())
	token := opened.Header().Get(middleware.CartTokenHeader)
	require.NotEmpty(t, token)
	cartHeader := map[string]string{middleware.CartTokenHeader: token}

	reopened := f.do(t, http.MethodPost, "/api/v1/cart", nil, cartHeader)
	require.Equal(t, http.StatusOK, reopened.Code)

	added := f.do(t, http.MethodPost, "/api/v1/cart/items", map[string]any{
		"product_id": shirt.ID.String(), "variant_id": shirt.Variants[0].ID.String(), "quantity": 2,
	}, cartHeader)
	require.Equal(t, http.StatusOK, added.Code, added.Body.String())

	promo := f.do(t, http.MethodPost, "/api/v1/cart/promo", map[string]any{"code": "save10"}, cartHeader)
	require.Equal(t, http.StatusOK, promo.Code, promo.Body.String())
	var snapshot cart.CartDTO
	decodeData(t, promo, &snapshot)
	assert.Equal(t, int64(5000), snapshot.SubtotalCents)
	assert.Equal(t, int64(500), snapshot.DiscountCents)

	preview := f.do(t, http.MethodPost, "/api/v1/checkout/preview", nil, cartHeader)
	require.Equal(t, http.StatusOK, preview.Code, preview.Body.String())
	assert.Contains(t, preview.Body.String(), `"total_cents":4500`)

	missingKey := f.do(t, http.MethodPost, "/api/v1/checkout", checkoutBody(), cartHeader)
	assert.Equal(t, http.StatusBadRequest, missingKey.Code)

	headers := map[string]string{middleware.CartTokenHeader: token, "Idempotency-Key": "order-1"}
	placed := f.do(t, http.MethodPost, "/api/v1/checkout", checkoutBody(), headers)
	require.Equal(t, http.StatusCreated, placed.Code, placed.Body.String())
	var order orders.OrderDTO
	decodeData(t, placed, &order)
	assert.Equal(t, int64(4500), order.TotalCents)

	replayed := f.do(t, http.MethodPost, "/api/v1/checkout", checkoutBody(), headers)
	require.Equal(t, http.StatusCreated, replayed.Code)
	var again orders.OrderDTO
	decodeData(t, replayed, &again)
	assert.Equal(t, order.OrderNumber, again.OrderNumber)

	var count int64
	require.NoError(t, f.conn.Model(&models.Order{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	tracked := f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/orders/track?number=%s&email=ADA@example.com", order.OrderNumber), nil, nil)
	require.Equal(t, http.StatusOK, tracked.Code, tracked.Body.String())
	assert.Contains(t, tracked.Body.String(), `"status":"pending"`)

	wrongEmail := f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/orders/track?number=%s&email=eve@example.com", order.OrderNumber), nil, nil)
	assert.Equal(t, http.StatusNotFound, wrongEmail.Code)
}

func TestCheckoutValidateReportsProblems(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	shirt := dbtest.MustCreateProduct(t, f.conn, "shirt", dbtest.Variant(2500, 1))

	opened := f.do(t, http.MethodPost, "/api/v1/cart", nil, nil)
	token := opened.Header().Get(middleware.CartTokenHeader)
	cartHeader := map[string]string{middleware.CartTokenHeader: token}
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/v1/cart/items", map[string]any{
		"product_id": shirt.ID.String(), "variant_id": shirt.Variants[0].ID.String(), "quantity": 1,
	}, cartHeader).Code)
	require.NoError(t, f.conn.Model(&models.ProductVariant{}).Where("id = ?", shirt.Variants[0].ID).Update("stock", 0).Error)

	body := checkoutBody()
	body["payment_method"] = "barter"
	rec := f.do(t, http.MethodPost, "/api/v1/checkout/validate", body, cartHeader)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result checkoutsvc.ValidationResult
	decodeData(t, rec, &result)
	assert.False(t, result.IsValid)
	codes := make([]string, 0, len(result.Errors))
	for _, problem := range result.Errors {
		codes = append(codes, string(problem.Code))
	}
	assert.Contains(t, codes, "VALIDATION_ERROR")
	assert.Contains(t, codes, "INSUFFICIENT_STOCK")
}

func TestCartEndpointsRequireToken(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/cart", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/cart", nil, map[string]string{middleware.CartTokenHeader: "unknown"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "CART_NOT_FOUND", errorCode(t, rec))
}

func TestAdminRoutesEnforceRoles(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	order := dbtest.MustCreateOrder(t, f.conn, "guest@example.com", 3000)

	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/v1/admin/orders", nil, nil).Code)

	fulfillment := map[string]string{"Authorization": f.staffToken(t, enums.StaffRoleFulfillment)}
	listed := f.do(t, http.MethodGet, "/api/v1/admin/orders", nil, fulfillment)
	require.Equal(t, http.StatusOK, listed.Code, listed.Body.String())
	assert.Contains(t, listed.Body.String(), order.OrderNumber)

	moved := f.do(t, http.MethodPatch, "/api/v1/admin/orders/"+order.ID.String()+"/status", map[string]any{"status": "confirmed"}, fulfillment)
	require.Equal(t, http.StatusOK, moved.Code, moved.Body.String())

	backwards := f.do(t, http.MethodPatch, "/api/v1/admin/orders/"+order.ID.String()+"/status", map[string]any{"status": "pending"}, fulfillment)
	assert.Equal(t, http.StatusConflict, backwards.Code)
	assert.Equal(t, "STATE_CONFLICT", errorCode(t, backwards))

	promoBody := map[string]any{
		"code": "LAUNCH", "discount_type": "fixed", "value": "500",
		"valid_from": time.Now().Add(-time.Hour).UTC().Format(time.RFC3339),
		"valid_to":   time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339),
	}
	forbidden := f.do(t, http.MethodPost, "/api/v1/admin/promos", promoBody, fulfillment)
	assert.Equal(t, http.StatusForbidden, forbidden.Code)

	admin := map[string]string{"Authorization": f.staffToken(t, enums.StaffRoleAdmin), "Idempotency-Key": "promo-launch"}
	created := f.do(t, http.MethodPost, "/api/v1/admin/promos", promoBody, admin)
	require.Equal(t, http.StatusCreated, created.Code, created.Body.String())
	assert.True(t, strings.Contains(created.Body.String(), `"code":"LAUNCH"`))

	stats := f.do(t, http.MethodGet, "/api/v1/admin/promos/stats", nil, admin)
	require.Equal(t, http.StatusOK, stats.Code, stats.Body.String())
	assert.Contains(t, stats.Body.String(), "LAUNCH")
}

func TestForbiddenAdminWriteNeverReachesIdempotencyStore(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	headers := map[string]string{
		"Authorization":   f.staffToken(t, enums.StaffRoleFulfillment),
		"Idempotency-Key": "fulfillment-promo",
	}
	body := map[string]any{
		"code": "SNEAKY", "discount_type": "fixed", "value": "500",
		"valid_from": time.Now().Add(-time.Hour).UTC().Format(time.RFC3339),
		"valid_to":   time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339),
	}

	withoutKey := f.do(t, http.MethodPost, "/api/v1/admin/promos", body, map[string]string{"Authorization": headers["Authorization"]})
	assert.Equal(t, http.StatusForbidden, withoutKey.Code)

	withKey := f.do(t, http.MethodPost, "/api/v1/admin/promos", body, headers)
	assert.Equal(t, http.StatusForbidden, withKey.Code)

	f.redis.mu.Lock()
	defer f.redis.mu.Unlock()
	assert.Empty(t, f.redis.values)
}

func TestAdminRevenueReportValidatesDates(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	admin := map[string]string{"Authorization": f.staffToken(t, enums.StaffRoleAdmin)}

	bad := f.do(t, http.MethodGet, "/api/v1/admin/reports/revenue?from=yesterday", nil, admin)
	assert.Equal(t, http.StatusBadRequest, bad.Code)

	ok := f.do(t, http.MethodGet, "/api/v1/admin/reports/revenue?from=2026-06-01&to=2026-06-30", nil, admin)
	require.Equal(t, http.StatusOK, ok.Code, ok.Body.String())
	assert.JSONEq(t, `{"data":[]}`, ok.Body.String())
}
