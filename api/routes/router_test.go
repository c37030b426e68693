package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/farmlinker/farmlinker-backend/internal/store/memstore"
	"github.com/farmlinker/farmlinker-backend/pkg/config"
	"github.com/farmlinker/farmlinker-backend/pkg/logger"
	"github.com/farmlinker/farmlinker-backend/pkg/metrics"
	"github.com/farmlinker/farmlinker-backend/pkg/types"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error types.APIError  `json:"error"`
}

type testServer struct {
	t       *testing.T
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{
		App: config.AppConfig{Env: "test", RequestTimeout: 5 * time.Second},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "farmlinker", ExpirationMinutes: 60},
		Password: config.PasswordConfig{
			ArgonMemoryKB:    8 * 1024,
			ArgonTime:        1,
			ArgonParallelism: 1,
			ArgonSaltLen:     16,
			ArgonKeyLen:      32,
		},
		Auth: config.AuthConfig{Mode: config.AuthModeBearer},
	}
	st := memstore.New()
	reg := prometheus.NewRegistry()

	svc, err := BuildServices(cfg, st, metrics.NewOrderMetrics(reg))
	if err != nil {
		t.Fatalf("build services: %v", err)
	}

	handler := NewRouter(RouterParams{
		Config:      cfg,
		Logger:      logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Store:       st,
		Registry:    reg,
		HTTPMetrics: metrics.NewHTTPMetrics(reg),
		Services:    svc,
	})
	return &testServer{t: t, handler: handler}
}

func (s *testServer) do(method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			s.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	s.handler.ServeHTTP(resp, req)

	var env envelope
	if resp.Body.Len() > 0 && strings.HasPrefix(resp.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(resp.Body.Bytes(), &env); err != nil {
			s.t.Fatalf("decode %s %s: %v (%s)", method, path, err, resp.Body.String())
		}
	}
	return resp, env
}

func (s *testServer) expect(resp *httptest.ResponseRecorder, status int) {
	s.t.Helper()
	if resp.Code != status {
		s.t.Fatalf("expected status %d got %d: %s", status, resp.Code, resp.Body.String())
	}
}

// signUp registers an account and returns its id and a bearer token.
func (s *testServer) signUp(name, email, role string) (int64, string) {
	s.t.Helper()

	resp, env := s.do(http.MethodPost, "/api/register", "", map[string]any{
		"name":     name,
		"email":    email,
		"password": "password",
		"role":     role,
	})
	s.expect(resp, http.StatusCreated)
	var user struct {
		ID int64 `json:"id"`
	}
	mustDecode(s.t, env.Data, &user)

	resp, env = s.do(http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    email,
		"password": "password",
	})
	s.expect(resp, http.StatusOK)
	var login struct {
		Token string `json:"token"`
	}
	mustDecode(s.t, env.Data, &login)
	if login.Token == "" {
		s.t.Fatalf("expected token for %s", email)
	}
	return user.ID, login.Token
}

func mustDecode(t *testing.T, raw json.RawMessage, out any) {
	t.Helper()
	if err := json.Unmarshal(raw, out); err != nil {
		t.Fatalf("decode data: %v (%s)", err, string(raw))
	}
}

func TestRouterOrderFlow(t *testing.T) {
	srv := newTestServer(t)
	sellerID, sellerToken := srv.signUp("Green Acres", "seller@example.com", "seller")
	_, buyerToken := srv.signUp("Jane Buyer", "buyer@example.com", "buyer")

	resp, env := srv.do(http.MethodPost, "/api/products", sellerToken, map[string]any{
		"name":        "Tomatoes",
		"description": "Fresh red tomatoes",
		"category":    "vegetables",
		"price":       "150",
		"quantity":    50,
		"unit":        "kg",
		"county":      "nakuru",
	})
	srv.expect(resp, http.StatusCreated)
	var product struct {
		ID       int64 `json:"id"`
		SellerID int64 `json:"seller_id"`
	}
	mustDecode(t, env.Data, &product)
	if product.SellerID != sellerID {
		t.Fatalf("expected seller %d got %d", sellerID, product.SellerID)
	}

	resp, _ = srv.do(http.MethodPut, "/api/cart", buyerToken, map[string]any{
		"items": []map[string]any{{"product_id": product.ID, "quantity": 5}},
	})
	srv.expect(resp, http.StatusOK)

	resp, env = srv.do(http.MethodPost, "/api/orders", buyerToken, map[string]any{
		"total_amount":     "750",
		"shipping_address": "Kenyatta Avenue, Nairobi",
		"payment_method":   "mpesa",
		"items":            []map[string]any{{"product_id": product.ID, "quantity": 5}},
	})
	srv.expect(resp, http.StatusCreated)
	var order struct {
		ID          int64  `json:"id"`
		Status      string `json:"status"`
		TotalAmount string `json:"total_amount"`
	}
	mustDecode(t, env.Data, &order)
	if order.Status != "pending" || order.TotalAmount != "750" {
		t.Fatalf("unexpected order %+v", order)
	}

	resp, env = srv.do(http.MethodGet, "/api/products/"+strconv.FormatInt(product.ID, 10), "", nil)
	srv.expect(resp, http.StatusOK)
	var stock struct {
		Quantity int `json:"quantity"`
	}
	mustDecode(t, env.Data, &stock)
	if stock.Quantity != 45 {
		t.Fatalf("expected 45 in stock got %d", stock.Quantity)
	}

	resp, env = srv.do(http.MethodGet, "/api/cart", buyerToken, nil)
	srv.expect(resp, http.StatusOK)
	var cart struct {
		Items []json.RawMessage `json:"items"`
	}
	mustDecode(t, env.Data, &cart)
	if len(cart.Items) != 0 {
		t.Fatalf("expected cart cleared, got %d items", len(cart.Items))
	}

	resp, env = srv.do(http.MethodGet, "/api/seller/orders", sellerToken, nil)
	srv.expect(resp, http.StatusOK)
	var sellerOrders []struct {
		ID int64 `json:"id"`
	}
	mustDecode(t, env.Data, &sellerOrders)
	if len(sellerOrders) != 1 || sellerOrders[0].ID != order.ID {
		t.Fatalf("unexpected seller orders %+v", sellerOrders)
	}

	statusPath := "/api/orders/" + strconv.FormatInt(order.ID, 10) + "/status"
	resp, _ = srv.do(http.MethodPatch, statusPath, buyerToken, map[string]any{"status": "shipped"})
	srv.expect(resp, http.StatusForbidden)

	resp, env = srv.do(http.MethodPatch, statusPath, sellerToken, map[string]any{"status": "confirmed"})
	srv.expect(resp, http.StatusOK)
	mustDecode(t, env.Data, &order)
	if order.Status != "confirmed" {
		t.Fatalf("expected confirmed got %q", order.Status)
	}

	resp, env = srv.do(http.MethodPatch, statusPath, sellerToken, map[string]any{"status": "delivered"})
	srv.expect(resp, http.StatusUnprocessableEntity)
	if env.Error.Code != "STATE_CONFLICT" {
		t.Fatalf("expected STATE_CONFLICT got %q", env.Error.Code)
	}
}

func TestRouterAccessControl(t *testing.T) {
	srv := newTestServer(t)
	_, buyerToken := srv.signUp("Jane Buyer", "buyer@example.com", "buyer")

	resp, env := srv.do(http.MethodGet, "/api/orders", "", nil)
	srv.expect(resp, http.StatusUnauthorized)
	if env.Error.Code != "UNAUTHORIZED" {
		t.Fatalf("expected UNAUTHORIZED got %q", env.Error.Code)
	}

	resp, _ = srv.do(http.MethodGet, "/api/orders", "not-a-token", nil)
	srv.expect(resp, http.StatusUnauthorized)

	resp, _ = srv.do(http.MethodPost, "/api/products", buyerToken, map[string]any{
		"name": "Milk", "description": "Fresh", "category": "dairy", "price": "80", "quantity": 3, "unit": "litre",
	})
	srv.expect(resp, http.StatusForbidden)

	resp, _ = srv.do(http.MethodGet, "/api/seller/orders", buyerToken, nil)
	srv.expect(resp, http.StatusForbidden)

	resp, _ = srv.do(http.MethodGet, "/api/products/999", "", nil)
	srv.expect(resp, http.StatusNotFound)

	resp, _ = srv.do(http.MethodGet, "/api/nowhere", "", nil)
	srv.expect(resp, http.StatusNotFound)

	resp, env = srv.do(http.MethodGet, "/api/users/me", buyerToken, nil)
	srv.expect(resp, http.StatusOK)
	var me struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	mustDecode(t, env.Data, &me)
	if me.Email != "buyer@example.com" || me.Role != "buyer" {
		t.Fatalf("unexpected profile %+v", me)
	}
}

func TestRouterDuplicateRegistration(t *testing.T) {
	srv := newTestServer(t)
	srv.signUp("Jane Buyer", "buyer@example.com", "buyer")

	resp, env := srv.do(http.MethodPost, "/api/auth/register", "", map[string]any{
		"name": "Again", "email": "BUYER@example.com", "password": "password",
	})
	srv.expect(resp, http.StatusConflict)
	if env.Error.Code != "CONFLICT" {
		t.Fatalf("expected CONFLICT got %q", env.Error.Code)
	}
}

func TestRouterWaitlist(t *testing.T) {
	srv := newTestServer(t)

	join := map[string]any{"name": "Wanjiru", "email": "wanjiru@example.com"}
	resp, _ := srv.do(http.MethodPost, "/api/waitlist", "", join)
	srv.expect(resp, http.StatusCreated)

	resp, _ = srv.do(http.MethodPost, "/api/waitlist", "", join)
	srv.expect(resp, http.StatusConflict)

	resp, env := srv.do(http.MethodGet, "/api/waitlist", "", nil)
	srv.expect(resp, http.StatusOK)
	var list struct {
		Entries []struct {
			Email string `json:"email"`
		} `json:"entries"`
	}
	mustDecode(t, env.Data, &list)
	if len(list.Entries) != 1 || list.Entries[0].Email != "wanjiru@example.com" {
		t.Fatalf("unexpected waitlist %+v", list)
	}
}

func TestRouterHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := srv.do(http.MethodGet, "/health/live", "", nil)
	srv.expect(resp, http.StatusOK)

	resp, env := srv.do(http.MethodGet, "/health/ready", "", nil)
	srv.expect(resp, http.StatusOK)
	var ready struct {
		Checks map[string]string `json:"checks"`
	}
	mustDecode(t, env.Data, &ready)
	if ready.Checks["store"] != "ok" || ready.Checks["redis"] != "disabled" {
		t.Fatalf("unexpected checks %+v", ready.Checks)
	}

	resp, _ = srv.do(http.MethodGet, "/metrics", "", nil)
	srv.expect(resp, http.StatusOK)
	body := resp.Body.String()
	if !strings.Contains(body, "http_requests_total") || !strings.Contains(body, `route="/health/ready"`) {
		t.Fatalf("expected request metrics in output:\n%s", body)
	}
}
