package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/erazemk/labtrack/internal/apperr"
	"github.com/erazemk/labtrack/internal/auth"
	"github.com/erazemk/labtrack/internal/db"
	"github.com/erazemk/labtrack/internal/ledger"
	"github.com/erazemk/labtrack/internal/metrics"
	"github.com/erazemk/labtrack/internal/model"
	"github.com/erazemk/labtrack/internal/notify"
	"github.com/erazemk/labtrack/internal/rows"
	"github.com/erazemk/labtrack/internal/store"
)

const (
	testJWTSecret = "test-secret"
	testDomain    = "lab.example"
)

type recordingSender struct {
	mu       sync.Mutex
	messages []notify.Message
}

func (s *recordingSender) Send(_ context.Context, m notify.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, m)
	return nil
}

type testEnv struct {
	server *httptest.Server
	ledger *ledger.Ledger
	sender *recordingSender
	member string
	admin  string
}

func setupTestServer(t *testing.T, wrap func(Inventory) Inventory, rateLimit string) *testEnv {
	t.Helper()
	ctx := context.Background()

	s := store.New(db.NewTestDB(t), db.SQLite)
	l := ledger.New(s)
	if err := l.EnsureTables(ctx); err != nil {
		t.Fatalf("EnsureTables: %v", err)
	}
	s.Append(ctx, model.TableSettings, []any{model.SettingAdmins, `["pi@lab.example"]`})

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	sender := &recordingSender{}
	outbox := notify.NewOutbox(sender, 16, m)
	t.Cleanup(outbox.Close)
	router := notify.NewRouter(l, outbox, sender, m)
	l.SetNotifier(router)

	authn := &auth.Authenticator{
		Verifier: &auth.JWTVerifier{Secret: testJWTSecret},
		Domain:   testDomain,
		Settings: l,
	}

	var inv Inventory = l
	if wrap != nil {
		inv = wrap(l)
	}
	dispatch, err := NewDispatchHandler(inv, authn, router, m)
	if err != nil {
		t.Fatalf("NewDispatchHandler: %v", err)
	}
	handler, err := NewRouter(Config{Dispatch: dispatch, Gatherer: reg, RateLimit: rateLimit})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	member, _ := auth.GenerateToken(testJWTSecret, "alice@lab.example", "Alice", testDomain)
	admin, _ := auth.GenerateToken(testJWTSecret, "pi@lab.example", "PI", testDomain)

	return &testEnv{server: server, ledger: l, sender: sender, member: member, admin: admin}
}

func post(t *testing.T, url string, body any) (int, map[string]any) {
	t.Helper()
	var data []byte
	switch b := body.(type) {
	case string:
		data = []byte(b)
	default:
		data, _ = json.Marshal(b)
	}
	resp, err := http.Post(url+"/api", "text/plain", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	var out map[string]any
	json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func snapshot(t *testing.T, url, token string) (int, ledger.Snapshot) {
	t.Helper()
	resp, err := http.Get(url + "/api?token=" + token)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	var snap ledger.Snapshot
	json.NewDecoder(resp.Body).Decode(&snap)
	return resp.StatusCode, snap
}

func TestUnauthorizedBeforeAnythingElse(t *testing.T) {
	env := setupTestServer(t, nil, "")

	for _, body := range []any{
		map[string]any{"action": "frobnicate"},
		map[string]any{"token": "garbage", "action": "addItem", "item": map[string]any{"name": "x"}},
		map[string]any{"token": 42, "action": "deleteItem"},
		"not json at all",
	} {
		status, out := post(t, env.server.URL, body)
		if status != http.StatusUnauthorized || out["error"] != "Unauthorized" {
			t.Errorf("body %v: expected 401 Unauthorized, got %d %v", body, status, out)
		}
	}

	status, _ := snapshot(t, env.server.URL, "")
	if status != http.StatusUnauthorized {
		t.Errorf("expected 401 for snapshot without token, got %d", status)
	}
}

func TestWrongDomainRejected(t *testing.T) {
	env := setupTestServer(t, nil, "")
	outsider, _ := auth.GenerateToken(testJWTSecret, "eve@evil.example", "Eve", "evil.example")

	status, out := post(t, env.server.URL, map[string]any{"token": outsider, "action": "addItem", "item": map[string]any{}})
	if status != http.StatusUnauthorized || out["error"] != "Unauthorized" {
		t.Errorf("expected Unauthorized, got %d %v", status, out)
	}
}

func TestEnvelopeValidation(t *testing.T) {
	env := setupTestServer(t, nil, "")

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing action", map[string]any{"token": env.member}},
		{"item not object", map[string]any{"token": env.member, "action": "addItem", "item": "Flask"}},
		{"addItem without item", map[string]any{"token": env.member, "action": "addItem"}},
		{"updateItem without id", map[string]any{"token": env.member, "action": "updateItem", "item": map[string]any{"name": "x"}}},
		{"status missing", map[string]any{"token": env.member, "action": "updateOrderStatus", "orderId": "1"}},
		{"bad id type", map[string]any{"token": env.member, "action": "returnItem", "checkoutId": []string{"1"}}},
	}

	for _, tt := range tests {
		status, out := post(t, env.server.URL, tt.body)
		if status != http.StatusBadRequest || out["error"] != string(apperr.KindValidation) {
			t.Errorf("%s: expected 400 ValidationFailure, got %d %v", tt.name, status, out)
		}
	}
}

func TestUnknownAction(t *testing.T) {
	env := setupTestServer(t, nil, "")
	status, out := post(t, env.server.URL, map[string]any{"token": env.member, "action": "frobnicate"})
	if status != http.StatusBadRequest || out["detail"] != "Unknown action: frobnicate" {
		t.Errorf("unexpected response %d %v", status, out)
	}
}

func TestCheckoutFlow(t *testing.T) {
	env := setupTestServer(t, nil, "")
	url := env.server.URL

	status, out := post(t, url, map[string]any{"token": env.member, "action": "addItem", "item": map[string]any{"id": "1", "name": "Microscope"}})
	if status != http.StatusOK || out["ok"] != true {
		t.Fatalf("addItem: %d %v", status, out)
	}

	status, out = post(t, url, map[string]any{"token": env.member, "action": "addCheckout", "checkout": map[string]any{"id": "c1", "itemId": 1, "item": "Microscope", "user": "alice"}})
	if status != http.StatusOK {
		t.Fatalf("addCheckout: %d %v", status, out)
	}

	_, snap := snapshot(t, url, env.member)
	if len(snap.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(snap.Items))
	}
	if snap.Items[0].String("status") != model.ItemStatusInUse {
		t.Errorf("expected In Use, got %v", snap.Items[0]["status"])
	}
	if snap.UserRole != model.RoleMember {
		t.Errorf("expected member role, got %q", snap.UserRole)
	}

	status, _ = post(t, url, map[string]any{"token": env.member, "action": "returnItem", "checkoutId": "c1"})
	if status != http.StatusOK {
		t.Fatalf("returnItem: %d", status)
	}
	_, snap = snapshot(t, url, env.member)
	if snap.Items[0].String("status") != model.ItemStatusAvailable || len(snap.Items[0].List("usedBy")) != 0 {
		t.Errorf("expected item released, got %v", snap.Items[0])
	}

	status, out = post(t, url, map[string]any{"token": env.member, "action": "returnItem", "checkoutId": "missing"})
	if status != http.StatusNotFound || out["error"] != "NotFound" || out["detail"] != "No checkout with id missing" {
		t.Errorf("expected NotFound, got %d %v", status, out)
	}
}

func TestBearerToken(t *testing.T) {
	env := setupTestServer(t, nil, "")

	body, _ := json.Marshal(map[string]any{"action": "addOrder", "order": map[string]any{"item": "Gloves"}})
	req, _ := http.NewRequest("POST", env.server.URL+"/api", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+env.member)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 with bearer token, got %d", resp.StatusCode)
	}
}

func TestOversizedBodyAuthenticatesFirst(t *testing.T) {
	env := setupTestServer(t, nil, "")
	big := strings.Repeat("x", maxBodyBytes+1)

	serve := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/api", strings.NewReader(big))
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		env.server.Config.Handler.ServeHTTP(rec, req)
		return rec
	}

	if rec := serve(""); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d %s", rec.Code, rec.Body)
	}
	if rec := serve(env.member); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for oversized body with valid token, got %d %s", rec.Code, rec.Body)
	}
}

func TestLargeNumericIDKeepsDigits(t *testing.T) {
	env := setupTestServer(t, nil, "")
	url := env.server.URL

	status, out := post(t, url, `{"token":"`+env.member+`","action":"addItem","item":{"id":12345678901234567891,"name":"Laser","qty":2}}`)
	if status != http.StatusOK {
		t.Fatalf("addItem: %d %v", status, out)
	}

	_, snap := snapshot(t, url, env.member)
	if len(snap.Items) != 1 || snap.Items[0]["id"] != "12345678901234567891" {
		t.Fatalf("expected id stored with every digit, got %v", snap.Items)
	}
	if snap.Items[0]["qty"] != 2.0 {
		t.Errorf("expected qty 2, got %#v", snap.Items[0]["qty"])
	}

	status, out = post(t, url, `{"token":"`+env.admin+`","action":"deleteItem","itemId":12345678901234567000}`)
	if status != http.StatusNotFound {
		t.Errorf("expected NotFound for a neighbouring id, got %d %v", status, out)
	}

	status, out = post(t, url, `{"token":"`+env.admin+`","action":"deleteItem","itemId":12345678901234567891}`)
	if status != http.StatusOK {
		t.Errorf("expected exact id to delete, got %d %v", status, out)
	}
}

func TestRoleBasedAccess(t *testing.T) {
	env := setupTestServer(t, nil, "")
	url := env.server.URL
	post(t, url, map[string]any{"token": env.member, "action": "addItem", "item": map[string]any{"id": "1", "name": "Microscope"}})

	for _, body := range []map[string]any{
		{"token": env.member, "action": "deleteItem", "itemId": "1"},
		{"token": env.member, "action": "deleteOrder", "orderId": "1"},
		{"token": env.member, "action": "saveSettings", "key": "slack_mode", "value": "off"},
		{"token": env.member, "action": "sendDigest"},
	} {
		status, out := post(t, url, body)
		if status != http.StatusForbidden || out["error"] != "Forbidden" {
			t.Errorf("%v: expected 403, got %d %v", body["action"], status, out)
		}
	}
	_, snap := snapshot(t, url, env.member)
	if len(snap.Items) != 1 {
		t.Error("expected item to survive forbidden delete")
	}

	status, _ := post(t, url, map[string]any{"token": env.admin, "action": "saveSettings", "key": "slack_mode", "value": "off"})
	if status != http.StatusOK {
		t.Fatalf("admin saveSettings: %d", status)
	}
	status, _ = post(t, url, map[string]any{"token": env.admin, "action": "deleteItem", "itemId": 1})
	if status != http.StatusOK {
		t.Fatalf("admin deleteItem: %d", status)
	}

	_, snap = snapshot(t, url, env.admin)
	if len(snap.Items) != 0 || snap.UserRole != model.RoleAdmin || snap.Settings["slack_mode"] != "off" {
		t.Errorf("unexpected admin snapshot %+v", snap)
	}
}

func TestSendDigest(t *testing.T) {
	env := setupTestServer(t, nil, "")

	status, out := post(t, env.server.URL, map[string]any{"token": env.admin, "action": "sendDigest"})
	if status != http.StatusOK {
		t.Fatalf("sendDigest: %d %v", status, out)
	}

	env.sender.mu.Lock()
	defer env.sender.mu.Unlock()
	if len(env.sender.messages) != 1 || env.sender.messages[0].Body != "✅ All clear" {
		t.Errorf("expected one all-clear digest, got %+v", env.sender.messages)
	}
}

type brokenInventory struct {
	Inventory
}

func (brokenInventory) AddItem(context.Context, *model.Principal, rows.Record) error {
	return apperr.Server("failed to write Items", errors.New("sqlite: disk I/O error at /var/lib/labtrack"))
}

func TestServerErrorHidesCause(t *testing.T) {
	env := setupTestServer(t, func(inv Inventory) Inventory { return brokenInventory{inv} }, "")

	status, out := post(t, env.server.URL, map[string]any{"token": env.member, "action": "addItem", "item": map[string]any{"name": "x"}})
	if status != http.StatusInternalServerError || out["error"] != "ServerError" {
		t.Fatalf("expected 500 ServerError, got %d %v", status, out)
	}
	if detail, _ := out["detail"].(string); strings.Contains(detail, "sqlite") {
		t.Errorf("detail leaks storage error: %q", detail)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	env := setupTestServer(t, nil, "")

	resp, err := http.Get(env.server.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 from /healthz, got %d", resp.StatusCode)
	}

	post(t, env.server.URL, map[string]any{"token": env.member, "action": "frobnicate"})

	resp, err = http.Get(env.server.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(data), `labtrack_requests_total{action="unknown",result="ValidationFailure"} 1`) {
		t.Errorf("expected request counter in metrics output:\n%s", data)
	}
}

func TestRateLimit(t *testing.T) {
	env := setupTestServer(t, nil, "2-M")

	var last int
	for range 3 {
		last, _ = snapshot(t, env.server.URL, env.member)
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("expected 429 after limit, got %d", last)
	}
}
