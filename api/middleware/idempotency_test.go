package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/farmlinker/farmlinker-backend/pkg/enums"
	pkgerrors "github.com/farmlinker/farmlinker-backend/pkg/errors"
)

type fakeStore struct {
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	return true, nil
}

func (f *fakeStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	str, _ := value.(string)
	f.data[key] = str
	return nil
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func orderRequest(userID int64, key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body))
	if key != "" {
		req.Header.Set(IdempotencyKeyHeader, key)
	}
	return req.WithContext(WithIdentity(req.Context(), userID, enums.UserRoleBuyer))
}

func countingHandler(calls *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		_, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = fmt.Fprintf(w, `{"data":{"id":%d}}`, *calls)
	})
}

func TestIdempotencyWithoutHeaderPassesThrough(t *testing.T) {
	var calls int
	mw := Idempotency(newFakeStore(), 0, nil)(countingHandler(&calls))

	for i := 0; i < 2; i++ {
		mw.ServeHTTP(httptest.NewRecorder(), orderRequest(1, "", `{"a":1}`))
	}
	if calls != 2 {
		t.Fatalf("expected both requests to run, got %d", calls)
	}
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	var calls int
	mw := Idempotency(newFakeStore(), 0, nil)(countingHandler(&calls))

	first := httptest.NewRecorder()
	mw.ServeHTTP(first, orderRequest(1, "abc", `{"a":1}`))
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", first.Code)
	}

	replay := httptest.NewRecorder()
	mw.ServeHTTP(replay, orderRequest(1, "abc", `{"a":1}`))
	if replay.Code != http.StatusCreated {
		t.Fatalf("expected replay 201, got %d", replay.Code)
	}
	if replay.Header().Get("Content-Type") != "application/json" || replay.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatalf("unexpected replay headers %v", replay.Header())
	}
	if replay.Body.String() != first.Body.String() {
		t.Fatalf("expected stored body %q, got %q", first.Body.String(), replay.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}
}

func TestIdempotencyScopesKeysPerUser(t *testing.T) {
	var calls int
	mw := Idempotency(newFakeStore(), 0, nil)(countingHandler(&calls))

	mw.ServeHTTP(httptest.NewRecorder(), orderRequest(1, "same", `{"a":1}`))
	mw.ServeHTTP(httptest.NewRecorder(), orderRequest(2, "same", `{"a":1}`))
	if calls != 2 {
		t.Fatalf("different users must not share keys, calls=%d", calls)
	}
}

func TestIdempotencyDetectsBodyChange(t *testing.T) {
	var calls int
	mw := Idempotency(newFakeStore(), 0, nil)(countingHandler(&calls))

	mw.ServeHTTP(httptest.NewRecorder(), orderRequest(1, "xyz", `{"a":1}`))
	resp := httptest.NewRecorder()
	mw.ServeHTTP(resp, orderRequest(1, "xyz", `{"a":2}`))

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

func TestIdempotencySkipsServerErrors(t *testing.T) {
	var calls int
	failing := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	})
	mw := Idempotency(newFakeStore(), 0, nil)(failing)

	mw.ServeHTTP(httptest.NewRecorder(), orderRequest(1, "retry", `{}`))
	mw.ServeHTTP(httptest.NewRecorder(), orderRequest(1, "retry", `{}`))
	if calls != 2 {
		t.Fatalf("expected retry after 500, calls=%d", calls)
	}
}

func TestIdempotencyRejectsConcurrentDuplicate(t *testing.T) {
	store := newFakeStore()
	var mw http.Handler
	var nestedCode int
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nested := httptest.NewRecorder()
		mw.ServeHTTP(nested, orderRequest(1, "dup", `{"a":1}`))
		nestedCode = nested.Code
		w.WriteHeader(http.StatusCreated)
	})
	mw = Idempotency(store, time.Hour, nil)(inner)

	first := httptest.NewRecorder()
	mw.ServeHTTP(first, orderRequest(1, "dup", `{"a":1}`))
	if first.Code != http.StatusCreated {
		t.Fatalf("expected first request 201 got %d", first.Code)
	}
	if nestedCode != http.StatusConflict {
		t.Fatalf("expected in-flight duplicate 409 got %d", nestedCode)
	}
}

func TestIdempotencyReleasesKeyAfterPanic(t *testing.T) {
	store := newFakeStore()
	var calls int
	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			panic("boom")
		}
		w.WriteHeader(http.StatusCreated)
	})
	mw := Idempotency(store, time.Hour, nil)(panicking)

	func() {
		defer func() { _ = recover() }()
		mw.ServeHTTP(httptest.NewRecorder(), orderRequest(1, "panic", `{}`))
	}()
	if len(store.data) != 0 {
		t.Fatalf("reservation should be released, store=%v", store.data)
	}

	resp := httptest.NewRecorder()
	mw.ServeHTTP(resp, orderRequest(1, "panic", `{}`))
	if resp.Code != http.StatusCreated || calls != 2 {
		t.Fatalf("expected retry to run, code=%d calls=%d", resp.Code, calls)
	}
}

func TestIdempotencyRejectsLongKeys(t *testing.T) {
	var calls int
	mw := Idempotency(newFakeStore(), 0, nil)(countingHandler(&calls))

	resp := httptest.NewRecorder()
	mw.ServeHTTP(resp, orderRequest(1, strings.Repeat("k", maxIdempotencyKey+1), `{}`))
	if resp.Code != http.StatusBadRequest || calls != 0 {
		t.Fatalf("expected 400 without running handler, code=%d calls=%d", resp.Code, calls)
	}
}
