package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/farmlinker/farmlinker-backend/api/middleware"
	ordersvc "github.com/farmlinker/farmlinker-backend/internal/orders"
	"github.com/farmlinker/farmlinker-backend/pkg/config"
	"github.com/farmlinker/farmlinker-backend/pkg/enums"
	pkgerrors "github.com/farmlinker/farmlinker-backend/pkg/errors"
	"github.com/farmlinker/farmlinker-backend/pkg/logger"
	"github.com/farmlinker/farmlinker-backend/pkg/types"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubOrders struct {
	actorID int64
	orderID int64
	status  string
	err     error
}

func (s *stubOrders) Create(context.Context, int64, ordersvc.CreateOrderRequest) (*ordersvc.OrderDTO, error) {
	return nil, errors.New("not implemented")
}

func (s *stubOrders) ListForBuyer(context.Context, int64) ([]ordersvc.OrderDTO, error) {
	return []ordersvc.OrderDTO{}, nil
}

func (s *stubOrders) Get(_ context.Context, actorID, orderID int64) (*ordersvc.OrderDTO, error) {
	s.actorID, s.orderID = actorID, orderID
	if s.err != nil {
		return nil, s.err
	}
	return &ordersvc.OrderDTO{ID: orderID, BuyerID: actorID, Status: enums.OrderStatusPending}, nil
}

func (s *stubOrders) ListForSeller(context.Context, int64) ([]ordersvc.OrderDTO, error) {
	return []ordersvc.OrderDTO{}, nil
}

func (s *stubOrders) UpdateStatus(_ context.Context, actorID, orderID int64, req ordersvc.UpdateStatusRequest) (*ordersvc.OrderDTO, error) {
	s.actorID, s.orderID, s.status = actorID, orderID, req.Status
	if s.err != nil {
		return nil, s.err
	}
	return &ordersvc.OrderDTO{ID: orderID, Status: enums.OrderStatus(req.Status)}, nil
}

func (s *stubOrders) ExpirePending(context.Context, time.Time) (int, error) { return 0, nil }

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func withRouteParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func withUser(req *http.Request, userID int64) *http.Request {
	return req.WithContext(middleware.WithIdentity(req.Context(), userID, enums.UserRoleBuyer))
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) types.APIError {
	t.Helper()
	var env types.ErrorEnvelope
	if err := json.Unmarshal(resp.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error envelope: %v (%s)", err, resp.Body.String())
	}
	return env.Error
}

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}

	handler := HealthReady(cfg, testLogger(), map[string]Pinger{
		"store": stubPinger{},
		"redis": nil,
	})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"redis":"disabled"`) {
		t.Fatalf("expected disabled redis check, got %s", resp.Body.String())
	}

	handler = HealthReady(cfg, testLogger(), map[string]Pinger{
		"store": stubPinger{err: errors.New("connection refused")},
	})
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
	if got := decodeError(t, resp); got.Code != string(pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error got %q", got.Code)
	}
}

func TestOrdersGetRequiresUser(t *testing.T) {
	svc := &stubOrders{}
	req := withRouteParam(httptest.NewRequest(http.MethodGet, "/api/orders/7", nil), "id", "7")
	resp := httptest.NewRecorder()

	OrdersGet(svc, testLogger()).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
	if svc.orderID != 0 {
		t.Fatal("service must not be called without identity")
	}
}

func TestOrdersGetRejectsBadID(t *testing.T) {
	req := withRouteParam(httptest.NewRequest(http.MethodGet, "/api/orders/abc", nil), "id", "abc")
	resp := httptest.NewRecorder()

	OrdersGet(&stubOrders{}, testLogger()).ServeHTTP(resp, withUser(req, 3))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestOrdersGetMapsServiceErrors(t *testing.T) {
	svc := &stubOrders{err: pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another account")}
	req := withRouteParam(httptest.NewRequest(http.MethodGet, "/api/orders/7", nil), "id", "7")
	resp := httptest.NewRecorder()

	OrdersGet(svc, testLogger()).ServeHTTP(resp, withUser(req, 3))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
	if svc.actorID != 3 || svc.orderID != 7 {
		t.Fatalf("unexpected service args actor=%d order=%d", svc.actorID, svc.orderID)
	}
}

func TestOrdersUpdateStatusDecodesBody(t *testing.T) {
	svc := &stubOrders{}
	body := strings.NewReader(`{"status":"confirmed"}`)
	req := withRouteParam(httptest.NewRequest(http.MethodPatch, "/api/orders/9/status", body), "id", "9")
	resp := httptest.NewRecorder()

	OrdersUpdateStatus(svc, testLogger()).ServeHTTP(resp, withUser(req, 4))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.actorID != 4 || svc.orderID != 9 || svc.status != "confirmed" {
		t.Fatalf("unexpected service args %+v", svc)
	}

	req = withRouteParam(httptest.NewRequest(http.MethodPatch, "/api/orders/9/status", strings.NewReader(`{"state":"x"}`)), "id", "9")
	resp = httptest.NewRecorder()
	OrdersUpdateStatus(svc, testLogger()).ServeHTTP(resp, withUser(req, 4))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field got %d", resp.Code)
	}
}
