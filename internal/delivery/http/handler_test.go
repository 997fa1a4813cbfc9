package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/analytics"
	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/repository/memory"
	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/service"
)

var testSecret = []byte("test-secret")

func newTestRouter(t *testing.T, dashboard bool) (*gin.Engine, *service.Dashboard) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	core := service.NewCore(memory.New(), nil)
	as := service.NewAnalyticsService(core)
	var d *service.Dashboard
	if dashboard {
		d = service.NewDashboard(as, analytics.Weekly)
	}
	h := NewHandler(
		service.NewListingService(core),
		service.NewApprovalService(core),
		service.NewTransactionService(core),
		as,
		d,
	)
	return NewRouter(h, testSecret), d
}

func token(t *testing.T, role, name string) string {
	t.Helper()
	claims := Claims{
		Name: name,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   name,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return s
}

func do(t *testing.T, r http.Handler, method, path, tok string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("failed to decode %q: %v", w.Body.String(), err)
	}
	return m
}

var cribBody = map[string]any{
	"name":        "Crib",
	"description": "Solid oak",
	"ageLabel":    "0-2 years",
	"listingType": "both",
	"buyPrice":    1000,
	"rentPrice":   "100",
}

func TestAuth(t *testing.T) {
	r, _ := newTestRouter(t, false)

	if w := do(t, r, http.MethodGet, "/api/market", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
	if w := do(t, r, http.MethodGet, "/api/market", "not-a-jwt", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", w.Code)
	}

	other, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Role: RoleBuyer}).SignedString([]byte("other-secret"))
	if w := do(t, r, http.MethodGet, "/api/market", other, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for token signed with another key, got %d", w.Code)
	}

	if w := do(t, r, http.MethodPost, "/api/listings", token(t, RoleBuyer, "Ana"), cribBody); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for buyer creating a listing, got %d", w.Code)
	}
	if w := do(t, r, http.MethodGet, "/api/admin/listings/pending", token(t, RoleSeller, "Little Steps"), nil); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for seller on admin route, got %d", w.Code)
	}
}

func TestListingLifecycle(t *testing.T) {
	r, _ := newTestRouter(t, false)
	seller := token(t, RoleSeller, "Little Steps")
	admin := token(t, RoleAdmin, "Root")
	buyer := token(t, RoleBuyer, "Ana")

	w := do(t, r, http.MethodPost, "/api/listings", seller, cribBody)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	created := decode(t, w)
	id, _ := created["id"].(string)
	if id == "" || created["seller"] != "Little Steps" || created["adminStatus"] != "pending" {
		t.Fatalf("unexpected listing %v", created)
	}

	w = do(t, r, http.MethodPost, "/api/market/"+id+"/purchase", buyer, map[string]any{"action": "buy", "quantity": 1})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for pending listing, got %d: %s", w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodPut, "/api/admin/listings/"+id+"/accept", admin, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on accept, got %d: %s", w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodPost, "/api/market/"+id+"/purchase", buyer, map[string]any{"action": "rent", "rentDays": 3, "rentStart": "2024-06-01"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 on rent, got %d: %s", w.Code, w.Body.String())
	}
	order := decode(t, w)
	if order["buyerName"] != "Ana" || order["action"] != "rent" || order["price"] != "300" {
		t.Fatalf("unexpected order %v", order)
	}

	w = do(t, r, http.MethodPost, "/api/market/"+id+"/purchase", buyer, map[string]any{"action": "buy", "quantity": 1})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for rented listing, got %d", w.Code)
	}

	w = do(t, r, http.MethodGet, "/api/listings/"+id+"/history", admin, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on history, got %d", w.Code)
	}
	events, _ := decode(t, w)["events"].([]any)
	if len(events) != 3 {
		t.Fatalf("expected created, accepted and rented events, got %d", len(events))
	}
}

func TestBadRequests(t *testing.T) {
	r, _ := newTestRouter(t, false)
	seller := token(t, RoleSeller, "Little Steps")
	buyer := token(t, RoleBuyer, "Ana")

	req := httptest.NewRequest(http.MethodPost, "/api/listings", bytes.NewBufferString("{"))
	req.Header.Set("Authorization", "Bearer "+seller)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", w.Code)
	}

	noName := map[string]any{"description": "x", "ageLabel": "1", "listingType": "buy", "buyPrice": 5}
	if w := do(t, r, http.MethodPost, "/api/listings", seller, noName); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing name, got %d", w.Code)
	}

	if w := do(t, r, http.MethodPost, "/api/market/nope/purchase", buyer, map[string]any{"action": "buy", "quantity": 1}); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown listing, got %d", w.Code)
	}
	if w := do(t, r, http.MethodGet, "/api/market?action=swap", buyer, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown filter, got %d", w.Code)
	}
	if w := do(t, r, http.MethodGet, "/api/admin/analytics?timeframe=hourly", token(t, RoleAdmin, "Root"), nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown timeframe, got %d", w.Code)
	}
}

func TestDashboard(t *testing.T) {
	admin := token(t, RoleAdmin, "Root")

	r, _ := newTestRouter(t, false)
	if w := do(t, r, http.MethodGet, "/api/admin/dashboard", admin, nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without dashboard, got %d", w.Code)
	}

	r, d := newTestRouter(t, true)
	if w := do(t, r, http.MethodGet, "/api/admin/dashboard", admin, nil); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before first refresh, got %d", w.Code)
	}
	if err := d.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	w := do(t, r, http.MethodGet, "/api/admin/dashboard", admin, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 after refresh, got %d", w.Code)
	}
	if buckets, _ := decode(t, w)["buckets"].([]any); len(buckets) != 7 {
		t.Fatalf("expected 7 weekly buckets, got %d", len(buckets))
	}
}
