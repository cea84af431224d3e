package main

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/KAMASDM/augustina/internal/calculator"
)

func newTestWidgetStore(t *testing.T, secret string) *widgetStore {
	t.Helper()
	store, err := newWidgetStore(secret, time.Minute, 100, calculator.DefaultPresets(), zaptest.NewLogger(t), nil)
	if err != nil {
		t.Fatalf("newWidgetStore returned error: %v", err)
	}
	return store
}

func TestWidgetStore_SignVerify(t *testing.T) {
	store := newTestWidgetStore(t, "secret-a")

	value := store.sign("widget-1")
	id, ok := store.verify(value)
	if !ok || id != "widget-1" {
		t.Fatalf("expected round trip, got %q %v", id, ok)
	}

	other := newTestWidgetStore(t, "secret-b")
	if _, ok := other.verify(value); ok {
		t.Fatalf("expected signature from another key to be rejected")
	}

	for _, bad := range []string{"", "no-dot", value + "00", "!!!." + value[len(value)-64:]} {
		if _, ok := store.verify(bad); ok {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}

func TestWidgetStore_EmptySecretGeneratesKey(t *testing.T) {
	a := newTestWidgetStore(t, "")
	b := newTestWidgetStore(t, "")
	if len(a.secret) != 32 {
		t.Fatalf("expected 32 byte key, got %d", len(a.secret))
	}
	if _, ok := b.verify(a.sign("x")); ok {
		t.Fatalf("expected independent random keys")
	}
}

func TestWidgetStore_AcquireReusesWidget(t *testing.T) {
	store := newTestWidgetStore(t, "secret")

	rr := httptest.NewRecorder()
	wg, err := store.acquire(rr, httptest.NewRequest(http.MethodGet, "/calculator", nil))
	if err != nil {
		t.Fatalf("acquire returned error: %v", err)
	}
	if err := wg.calc.SetUnits(1, 3); err != nil {
		t.Fatalf("SetUnits returned error: %v", err)
	}
	wg.release()

	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || !cookies[0].HttpOnly {
		t.Fatalf("expected one http-only cookie, got %+v", cookies)
	}

	req := httptest.NewRequest(http.MethodGet, "/calculator", nil)
	req.AddCookie(cookies[0])
	again, ok := store.peek(req)
	if !ok {
		t.Fatalf("expected peek to find the widget")
	}
	m, err := again.calc.Machine(1)
	again.release()
	if err != nil || m.Units != 3 {
		t.Fatalf("expected 3 units to persist, got %d (%v)", m.Units, err)
	}

	forged := httptest.NewRequest(http.MethodGet, "/calculator", nil)
	forged.AddCookie(&http.Cookie{Name: widgetCookieName, Value: "d2lkZ2V0.deadbeef"})
	if _, ok := store.peek(forged); ok {
		t.Fatalf("expected forged cookie to be rejected")
	}
	rr = httptest.NewRecorder()
	fresh, err := store.acquire(rr, forged)
	if err != nil {
		t.Fatalf("acquire returned error: %v", err)
	}
	fresh.release()
	if store.len() != 2 {
		t.Fatalf("expected forged cookie to get a new widget, have %d", store.len())
	}
}

func TestWidgetStore_Prune(t *testing.T) {
	store := newTestWidgetStore(t, "secret")
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	for range 3 {
		wg, err := store.acquire(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		if err != nil {
			t.Fatalf("acquire returned error: %v", err)
		}
		wg.release()
	}

	now = now.Add(30 * time.Second)
	if removed := store.prune(); removed != 0 {
		t.Fatalf("expected nothing pruned yet, removed %d", removed)
	}

	now = now.Add(2 * time.Minute)
	if removed := store.prune(); removed != 3 {
		t.Fatalf("expected 3 idle widgets pruned, removed %d", removed)
	}
	if store.len() != 0 {
		t.Fatalf("expected empty store, got %d", store.len())
	}
}

func TestCookielessViews_StoreNoWidgets(t *testing.T) {
	srv := newTestServer(t, sampleContent())
	h := srv.routes()

	for range 25 {
		for _, target := range []string{"/calculator", "/products", "/api/calculator", "/calculator/export.csv"} {
			if rr := do(t, h, http.MethodGet, target, nil); rr.Code != http.StatusOK {
				t.Fatalf("GET %s: expected status 200, got %d", target, rr.Code)
			}
		}
	}
	if srv.widgets.len() != 0 {
		t.Fatalf("expected cookieless views to store nothing, have %d", srv.widgets.len())
	}
}

func TestWidgetStore_Limit(t *testing.T) {
	store, err := newWidgetStore("secret", time.Minute, 2, calculator.DefaultPresets(), zaptest.NewLogger(t), nil)
	if err != nil {
		t.Fatalf("newWidgetStore returned error: %v", err)
	}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	newRequest := func() *http.Request { return httptest.NewRequest(http.MethodPost, "/calculator/preset", nil) }
	for range 2 {
		wg, err := store.acquire(httptest.NewRecorder(), newRequest())
		if err != nil {
			t.Fatalf("acquire returned error: %v", err)
		}
		wg.release()
	}

	if _, err := store.acquire(httptest.NewRecorder(), newRequest()); !errors.Is(err, errWidgetLimit) {
		t.Fatalf("expected errWidgetLimit, got %v", err)
	}

	now = now.Add(2 * time.Minute)
	wg, err := store.acquire(httptest.NewRecorder(), newRequest())
	if err != nil {
		t.Fatalf("expected idle widgets to make room, got %v", err)
	}
	wg.release()
	if store.len() != 1 {
		t.Fatalf("expected 1 widget after pruning, have %d", store.len())
	}
}

func TestCalculatorAction_StoreFull(t *testing.T) {
	srv := newTestServer(t, sampleContent())
	srv.widgets.max = 1
	h := srv.routes()

	cookie := startWidget(t, h)
	if rr := do(t, h, http.MethodPost, "/calculator/machines/1/increment", nil); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503 for a new session, got %d", rr.Code)
	}
	if rr := do(t, h, http.MethodPost, "/calculator/machines/1/increment", nil, cookie); rr.Code != http.StatusSeeOther {
		t.Fatalf("expected existing session to keep working, got %d", rr.Code)
	}
}
