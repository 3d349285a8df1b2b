package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"budgetbuddy/internal/api"
	"budgetbuddy/internal/chat"
	"budgetbuddy/internal/dashboard"
	"budgetbuddy/internal/predict"
	"budgetbuddy/internal/reports"
	"budgetbuddy/internal/session"
	"budgetbuddy/internal/storage"
)

const summaryBody = `{
	"income": "2500.00",
	"expenses": "40.00",
	"savings_goal": {"target_amount": "1000.00", "current_amount": "250.00"},
	"recent_transactions": [
		{"id": 1, "type": "expense", "amount": "12.50", "description": "Lunch", "category": "food", "date": "2026-10-01"},
		{"id": 3, "type": "expense", "amount": "20.00", "description": "Bus pass", "category": "transportation", "date": "2026-10-03"},
		{"id": 4, "type": "income", "amount": "2500.00", "description": "Salary", "category": "salary", "date": "2026-10-04"}
	]
}`

type backend struct {
	mu     sync.Mutex
	hits   map[string]int
	bodies map[string]string
	status map[string]int
}

func newBackend() *backend {
	return &backend{
		hits: map[string]int{},
		bodies: map[string]string{
			"POST /login/":               `{"access": "access-token", "refresh": "refresh-token"}`,
			"POST /register/":            `{"id": 1}`,
			"GET /dashboard/":            summaryBody,
			"GET /user/":                 `{"id": 7, "username": "ada", "first_name": "Ada", "last_name": "Lovelace", "email": "ada@example.com"}`,
			"GET /notifications/":        `[{"id": 1, "title": "Budget", "message": "Food at 80%", "notification_type": "budget_alert", "is_read": false, "created_at": "2026-10-05T10:00:00Z"}]`,
			"GET /budgets/":              `[{"id": 1, "category": "food", "limit": "25.00", "period": "monthly"}]`,
			"GET /transactions/monthly/": `[{"month": "Oct 2026", "income": "2500.00", "expenses": "32.50"}]`,
			"POST /transactions/":        `{"id": 9}`,
			"DELETE /transactions/3/":    ``,
			"POST /chatbot/":             `{"response": "Hello!"}`,
		},
		status: map[string]int{},
	}
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path
	b.mu.Lock()
	b.hits[key]++
	body, ok := b.bodies[key]
	status := b.status[key]
	b.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	if status == 0 {
		status = http.StatusOK
	}
	if body == "" && status == http.StatusOK {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

func (b *backend) fail(key string, status int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status[key] = status
	b.bodies[key] = body
}

func (b *backend) count(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[key]
}

func (b *backend) total() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.hits {
		n += c
	}
	return n
}

func (b *backend) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hits = map[string]int{}
}

type harness struct {
	router  chi.Router
	backend *backend
	store   *session.Memory
}

func newHarness(t *testing.T, signedIn bool) *harness {
	t.Helper()
	be := newBackend()
	srv := httptest.NewServer(be)
	t.Cleanup(srv.Close)

	store := session.NewMemory()
	if signedIn {
		if err := store.Set(session.Tokens{Access: "access-token"}); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
	}
	client := api.NewClient(srv.URL, store, 5*time.Second)

	assistant := predict.New(client, 10*time.Millisecond)
	t.Cleanup(func() { assistant.Close() })

	files, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage() error = %v", err)
	}

	h := New(
		client,
		dashboard.New(client, store),
		predict.NewDraft(assistant, time.Now()),
		chat.NewConversation(client, store),
		reports.NewService(client, files),
		"../../web/templates",
	)
	r := chi.NewRouter()
	h.Mount(r)
	return &harness{router: r, backend: be, store: store}
}

func (h *harness) get(path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func (h *harness) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func (h *harness) postJSON(path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func assertRedirect(t *testing.T, rec *httptest.ResponseRecorder, location string) {
	t.Helper()
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d; body = %s", rec.Code, http.StatusSeeOther, rec.Body.String())
	}
	if got := rec.Header().Get("Location"); got != location {
		t.Fatalf("Location = %q, want %q", got, location)
	}
}

func TestDashboardWithoutSessionRedirectsToLogin(t *testing.T) {
	h := newHarness(t, false)

	assertRedirect(t, h.get("/dashboard"), "/login")
	if n := h.backend.total(); n != 0 {
		t.Fatalf("backend received %d requests, want 0", n)
	}
}

func TestLoginStoresSession(t *testing.T) {
	h := newHarness(t, false)

	rec := h.postForm("/login", url.Values{"username": {"ada"}, "password": {"secret"}})

	assertRedirect(t, rec, "/dashboard")
	tokens, err := h.store.Get()
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if tokens.Access != "access-token" {
		t.Fatalf("Access = %q, want access-token", tokens.Access)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	h := newHarness(t, false)
	h.backend.fail("POST /login/", http.StatusUnauthorized, `{"detail": "No active account found with the given credentials"}`)

	rec := h.postForm("/login", url.Values{"username": {"ada"}, "password": {"wrong"}})

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if !strings.Contains(rec.Body.String(), api.MsgInvalidCredentials) {
		t.Fatalf("body does not contain %q", api.MsgInvalidCredentials)
	}
	if _, err := h.store.Get(); !errors.Is(err, session.ErrNoSession) {
		t.Fatalf("Get() error = %v, want ErrNoSession", err)
	}
}

func TestRegisterPasswordMismatchSkipsBackend(t *testing.T) {
	h := newHarness(t, false)

	rec := h.postForm("/register", url.Values{
		"username":         {"ada_l"},
		"email":            {"ada@example.com"},
		"password":         {"Secret123!"},
		"confirm_password": {"Secret123?"},
	})

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
	if !strings.Contains(rec.Body.String(), "Passwords do not match") {
		t.Fatalf("body does not mention the mismatch")
	}
	if n := h.backend.total(); n != 0 {
		t.Fatalf("backend received %d requests, want 0", n)
	}
}

func TestRegisterSuccessRedirectsToLogin(t *testing.T) {
	h := newHarness(t, false)

	rec := h.postForm("/register", url.Values{
		"username":         {"ada_l"},
		"email":            {"ada@example.com"},
		"password":         {"Secret123!"},
		"confirm_password": {"Secret123!"},
	})

	assertRedirect(t, rec, "/login")
	if h.backend.count("POST /register/") != 1 {
		t.Fatalf("register was not called")
	}
}

func TestDashboardPagesRender(t *testing.T) {
	h := newHarness(t, true)

	tests := []struct {
		menu string
		want string
	}{
		{menu: "dashboard", want: "Recent Transactions"},
		{menu: "expenses", want: "Bus pass"},
		{menu: "overview", want: "Budgets"},
		{menu: "profile", want: "Lovelace"},
		{menu: "notifications", want: "Food at 80%"},
	}
	for _, tt := range tests {
		t.Run(tt.menu, func(t *testing.T) {
			rec := h.get("/dashboard?menu=" + tt.menu)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200; body = %s", rec.Code, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), tt.want) {
				t.Fatalf("page %s does not contain %q", tt.menu, tt.want)
			}
		})
	}
	if n := h.backend.count("GET /dashboard/"); n != 1 {
		t.Fatalf("summary fetched %d times, want 1 (cached view)", n)
	}
}

func TestCreateTransactionRefreshesStaleAggregates(t *testing.T) {
	h := newHarness(t, true)
	if rec := h.get("/dashboard"); rec.Code != http.StatusOK {
		t.Fatalf("initial load status = %d", rec.Code)
	}
	h.backend.reset()

	rec := h.postForm("/transactions", url.Values{
		"type":        {"expense"},
		"amount":      {"12.50"},
		"description": {"Lunch"},
		"category":    {"food"},
		"date":        {"2026-10-01"},
		"menu":        {"expenses"},
	})

	assertRedirect(t, rec, "/dashboard?menu=expenses")
	want := map[string]int{
		"POST /transactions/":        1,
		"GET /dashboard/":            1,
		"GET /transactions/monthly/": 1,
		"GET /budgets/":              1,
		"GET /user/":                 0,
		"GET /notifications/":        0,
	}
	for key, n := range want {
		if got := h.backend.count(key); got != n {
			t.Errorf("%s called %d times, want %d", key, got, n)
		}
	}
}

func TestInvalidTransactionSkipsBackend(t *testing.T) {
	h := newHarness(t, true)
	h.get("/dashboard")
	h.backend.reset()

	rec := h.postForm("/transactions", url.Values{
		"type":        {"expense"},
		"amount":      {"abc"},
		"description": {"Lunch"},
		"category":    {"food"},
	})

	assertRedirect(t, rec, "/dashboard?menu=expenses")
	if n := h.backend.total(); n != 0 {
		t.Fatalf("backend received %d requests, want 0", n)
	}
}

func TestUnauthorizedMutationRedirectsToLogin(t *testing.T) {
	h := newHarness(t, true)
	h.get("/dashboard")
	h.backend.fail("DELETE /transactions/3/", http.StatusUnauthorized, `{"detail": "Token is invalid or expired"}`)

	rec := h.postForm("/transactions/3/delete", url.Values{"menu": {"expenses"}})

	assertRedirect(t, rec, "/login")
	if _, err := h.store.Get(); !errors.Is(err, session.ErrNoSession) {
		t.Fatalf("Get() error = %v, want ErrNoSession", err)
	}
}

func TestChatReturnsTranscript(t *testing.T) {
	h := newHarness(t, true)

	rec := h.postJSON("/api/chat", `{"message": "How am I doing?"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp ChatResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if resp.Reply == nil || resp.Reply.Text != "Hello!" {
		t.Fatalf("Reply = %+v, want Hello!", resp.Reply)
	}
	if len(resp.Messages) != 3 {
		t.Fatalf("len(Messages) = %d, want 3", len(resp.Messages))
	}
	if resp.Messages[1].Sender != chat.SenderUser || resp.Messages[1].Text != "How am I doing?" {
		t.Fatalf("Messages[1] = %+v", resp.Messages[1])
	}
}

func TestChatUnauthorizedReturns401(t *testing.T) {
	h := newHarness(t, true)
	h.backend.fail("POST /chatbot/", http.StatusUnauthorized, `{"detail": "Token is invalid or expired"}`)

	rec := h.postJSON("/api/chat", `{"message": "hi"}`)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if _, err := h.store.Get(); !errors.Is(err, session.ErrNoSession) {
		t.Fatalf("Get() error = %v, want ErrNoSession", err)
	}
}

func TestJSONEndpointsRequireSession(t *testing.T) {
	h := newHarness(t, false)

	for _, path := range []string{"/api/chat", "/api/transactions/draft"} {
		rec := h.postJSON(path, `{}`)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("POST %s status = %d, want 401", path, rec.Code)
		}
	}
}

func TestDraftReturnsFormState(t *testing.T) {
	h := newHarness(t, true)

	rec := h.postJSON("/api/transactions/draft", `{"type": "income"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var state predict.DraftState
	if err := json.NewDecoder(rec.Body).Decode(&state); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if state.Form.Type != "income" {
		t.Fatalf("Form.Type = %q, want income", state.Form.Type)
	}
	if state.Form.Category != state.Categories[0] {
		t.Fatalf("Form.Category = %q, want first income category %q", state.Form.Category, state.Categories[0])
	}
}

func TestFlashMessageShownOnce(t *testing.T) {
	rec := httptest.NewRecorder()
	setFlash(rec, "success", "Registration successful! Please log in.")
	cookie := rec.Result().Cookies()[0]

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	req.AddCookie(cookie)
	out := httptest.NewRecorder()
	kind, msg, ok := readFlash(out, req)
	if !ok || kind != "success" || msg != "Registration successful! Please log in." {
		t.Fatalf("readFlash() = %q, %q, %v", kind, msg, ok)
	}
	cleared := out.Result().Cookies()
	if len(cleared) != 1 || cleared[0].MaxAge >= 0 {
		t.Fatalf("flash cookie not cleared: %+v", cleared)
	}
}
