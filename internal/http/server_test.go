package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"cuotas/internal/services"
	"cuotas/internal/storage/memory"
)

func newTestServer(t *testing.T, auth AuthConfig) (*Server, *memory.Store) {
	t.Helper()
	store := memory.NewSeeded()
	schedule := services.NewFeeSchedule(store)
	directory := services.NewMemberDirectory(store)
	ledger := services.NewPaymentLedger(store, schedule, nil)
	query := services.NewQueryEngine(store)

	srv := NewServer(":0", directory, schedule, ledger, query, auth)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv, store
}

func postForm(srv *Server, path string, form url.Values) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, AuthConfig{})

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		srv.Handler.ServeHTTP(rr, req)
		if rr.Code != 200 {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestPanelRendersMembers(t *testing.T) {
	srv, store := newTestServer(t, AuthConfig{})
	if _, err := store.CreateMember(context.Background(), "Ana Torres", "troop"); err != nil {
		t.Fatalf("seed member: %v", err)
	}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != 200 {
		t.Fatalf("panel status=%d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Ana Torres") {
		t.Fatalf("panel body missing member name")
	}
	if !strings.Contains(body, "2026-01") {
		t.Fatalf("panel body missing schedule months")
	}
}

func TestRecordPaymentFlow(t *testing.T) {
	srv, store := newTestServer(t, AuthConfig{})
	member, err := store.CreateMember(context.Background(), "Ana", "troop")
	if err != nil {
		t.Fatalf("seed member: %v", err)
	}

	// Success redirects to the payments list.
	rr := postForm(srv, "/payments", url.Values{"member_id": {"1"}, "month": {"2026-01"}})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("record status=%d body=%s", rr.Code, rr.Body.String())
	}

	// Same member and month again conflicts.
	rr = postForm(srv, "/payments", url.Values{"member_id": {"1"}, "month": {"2026-01"}})
	if rr.Code != http.StatusConflict {
		t.Fatalf("duplicate status=%d, want 409", rr.Code)
	}

	// A month off the schedule is unprocessable.
	rr = postForm(srv, "/payments", url.Values{"member_id": {"1"}, "month": {"2031-01"}})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("off-schedule status=%d, want 422", rr.Code)
	}

	// Unknown member is unprocessable too.
	rr = postForm(srv, "/payments", url.Values{"member_id": {"99"}, "month": {"2026-02"}})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unknown member status=%d, want 422", rr.Code)
	}

	// The payments list shows the recorded payment.
	rr2 := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/payments", nil)
	srv.Handler.ServeHTTP(rr2, req)
	if rr2.Code != 200 {
		t.Fatalf("payments list status=%d", rr2.Code)
	}
	if !strings.Contains(rr2.Body.String(), member.Name) {
		t.Fatalf("payments list missing member name")
	}
}

func TestPanelReflectsPayment(t *testing.T) {
	srv, _ := newTestServer(t, AuthConfig{})

	rr := postForm(srv, "/members", url.Values{"name": {"Beto"}, "cuadro": {"pack"}})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("add member status=%d", rr.Code)
	}
	rr = postForm(srv, "/payments", url.Values{"member_id": {"1"}, "month": {"2026-01"}})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("record status=%d", rr.Code)
	}

	// The cache was invalidated by the write, so the panel shows the paid cell.
	rr2 := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	srv.Handler.ServeHTTP(rr2, req)
	if !strings.Contains(rr2.Body.String(), "cell paid") {
		t.Fatalf("panel missing paid cell after payment")
	}
}

func TestReceiptJSON(t *testing.T) {
	srv, store := newTestServer(t, AuthConfig{})
	if _, err := store.CreateMember(context.Background(), "Ana", "troop"); err != nil {
		t.Fatalf("seed member: %v", err)
	}
	if rr := postForm(srv, "/payments", url.Values{"member_id": {"1"}, "month": {"2026-01"}}); rr.Code != http.StatusSeeOther {
		t.Fatalf("record status=%d", rr.Code)
	}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/receipts/1?format=json", nil)
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != 200 {
		t.Fatalf("receipt status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{`"payment_id":1`, `"member_name":"Ana"`, `"month":"2026-01"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("receipt JSON missing %s: %s", want, body)
		}
	}

	// Unknown receipts 404.
	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/receipts/99", nil)
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("missing receipt status=%d, want 404", rr.Code)
	}
}

func TestScheduleEdit(t *testing.T) {
	srv, _ := newTestServer(t, AuthConfig{})

	rr := postForm(srv, "/schedule", url.Values{"month": {"2026-03"}, "amount": {"4500"}})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("set fee status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr2 := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/schedule", nil)
	srv.Handler.ServeHTTP(rr2, req)
	if !strings.Contains(rr2.Body.String(), "$4.500,00") {
		t.Fatalf("schedule missing updated amount: %s", rr2.Body.String())
	}

	// Zero amounts are rejected.
	rr = postForm(srv, "/schedule", url.Values{"month": {"2026-03"}, "amount": {"0"}})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("zero amount status=%d, want 422", rr.Code)
	}
}

func TestLoginRequiredWhenConfigured(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	srv, _ := newTestServer(t, AuthConfig{
		User:         "tesorero",
		PasswordHash: string(hash),
		SessionTTL:   time.Hour,
	})

	// Unauthenticated panel access redirects to login.
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/login" {
		t.Fatalf("expected redirect to /login, got %d %s", rr.Code, rr.Header().Get("Location"))
	}

	// Wrong password is rejected.
	rr = postForm(srv, "/login", url.Values{"user": {"tesorero"}, "password": {"wrong"}})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("bad login status=%d, want 401", rr.Code)
	}

	// Correct credentials set a session cookie.
	rr = postForm(srv, "/login", url.Values{"user": {"tesorero"}, "password": {"secret"}})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("login status=%d", rr.Code)
	}
	var token string
	for _, c := range rr.Result().Cookies() {
		if c.Name == sessionCookieName {
			token = c.Value
		}
	}
	if token == "" {
		t.Fatalf("no session cookie set")
	}

	// The cookie unlocks the panel.
	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: token})
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != 200 {
		t.Fatalf("authenticated panel status=%d", rr.Code)
	}

	// Logout destroys the session.
	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: token})
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("logout status=%d", rr.Code)
	}
	if srv.sessions.valid(token) {
		t.Fatalf("session still valid after logout")
	}
}

func TestToggleMemberIdempotent(t *testing.T) {
	srv, store := newTestServer(t, AuthConfig{})
	if _, err := store.CreateMember(context.Background(), "Ana", "troop"); err != nil {
		t.Fatalf("seed member: %v", err)
	}

	for i := 0; i < 2; i++ {
		rr := postForm(srv, "/members/toggle", url.Values{"id": {"1"}, "active": {"0"}})
		if rr.Code != http.StatusSeeOther {
			t.Fatalf("toggle #%d status=%d", i+1, rr.Code)
		}
	}

	m, err := store.GetMember(context.Background(), 1)
	if err != nil {
		t.Fatalf("get member: %v", err)
	}
	if m.Active {
		t.Fatalf("member still active after toggle")
	}
}
