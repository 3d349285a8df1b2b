package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"budgetbuddy/internal/models"
	"budgetbuddy/internal/session"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *session.Memory) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	store := session.NewMemory()
	return NewClient(srv.URL+"/api", store, 5*time.Second), store
}

func TestBearerHeaderAttached(t *testing.T) {
	var gotAuth, gotPath, gotRequestID string
	c, store := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotRequestID = r.Header.Get("X-Request-ID")
		json.NewEncoder(w).Encode(models.User{ID: 1, Username: "alice"})
	})
	store.Set(session.Tokens{Access: "tok"})

	user, err := c.Profile(context.Background())
	if err != nil {
		t.Fatalf("Profile() error = %v", err)
	}
	if user.Username != "alice" {
		t.Fatalf("username = %q, want alice", user.Username)
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("Authorization = %q, want Bearer tok", gotAuth)
	}
	if gotPath != "/api/user/" {
		t.Fatalf("path = %q, want /api/user/", gotPath)
	}
	if gotRequestID == "" {
		t.Fatal("X-Request-ID not set")
	}
}

func TestNoHeaderWithoutSession(t *testing.T) {
	var gotAuth string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	})

	if _, err := c.Budgets(context.Background()); err != nil {
		t.Fatalf("Budgets() error = %v", err)
	}
	if gotAuth != "" {
		t.Fatalf("Authorization = %q, want empty", gotAuth)
	}
}

func TestLoginStoresTokens(t *testing.T) {
	c, store := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("login sent Authorization header")
		}
		var creds models.Credentials
		json.NewDecoder(r.Body).Decode(&creds)
		if creds.Username != "alice" || creds.Password != "secret123" {
			t.Errorf("creds = %+v", creds)
		}
		w.Write([]byte(`{"access":"a","refresh":"r"}`))
	})
	store.Set(session.Tokens{Access: "old"})

	if _, err := c.Login(context.Background(), models.Credentials{Username: "alice", Password: "secret123"}); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	got, err := store.Get()
	if err != nil || got.Access != "a" || got.Refresh != "r" {
		t.Fatalf("session = %+v, %v, want a/r", got, err)
	}
}

func TestLoginUnauthorizedMessage(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"No active account found with the given credentials"}`))
	})

	_, err := c.Login(context.Background(), models.Credentials{Username: "a", Password: "b"})
	if !IsUnauthorized(err) {
		t.Fatalf("Login() error = %v, want unauthorized", err)
	}
	if got := Message(err); got != MsgInvalidCredentials {
		t.Fatalf("Message() = %q, want %q", got, MsgInvalidCredentials)
	}
}

func TestUnauthorizedClearsSession(t *testing.T) {
	c, store := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Given token not valid for any token type","code":"token_not_valid","messages":[{"token_class":"AccessToken"}]}`))
	})
	store.Set(session.Tokens{Access: "expired"})

	_, err := c.Dashboard(context.Background())
	if !IsUnauthorized(err) {
		t.Fatalf("Dashboard() error = %v, want unauthorized", err)
	}
	if got := Message(err); got != MsgSessionExpired {
		t.Fatalf("Message() = %q, want %q", got, MsgSessionExpired)
	}
	if _, err := store.Get(); !errors.Is(err, session.ErrNoSession) {
		t.Fatalf("session still present after 401: %v", err)
	}
}

func TestLateUnauthorizedKeepsNewSession(t *testing.T) {
	release := make(chan struct{})
	c, store := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.WriteHeader(http.StatusUnauthorized)
	})
	store.Set(session.Tokens{Access: "first"})

	done := make(chan error, 1)
	go func() {
		_, err := c.Notifications(context.Background())
		done <- err
	}()

	// A new login lands while the old request is still in flight.
	time.Sleep(20 * time.Millisecond)
	store.Set(session.Tokens{Access: "second"})
	close(release)

	if err := <-done; !IsUnauthorized(err) {
		t.Fatalf("Notifications() error = %v, want unauthorized", err)
	}
	got, err := store.Get()
	if err != nil || got.Access != "second" {
		t.Fatalf("session = %+v, %v, want the newer login kept", got, err)
	}
}

func TestValidationErrorsFlattenInOrder(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"username":["A user with that username already exists."],"password":["This password is too common.","This password is entirely numeric."]}`))
	})

	err := c.Register(context.Background(), models.Registration{Username: "alice", Email: "a@b.c", Password: "12345678"})
	if !IsKind(err, KindValidation) {
		t.Fatalf("Register() error = %v, want validation", err)
	}
	want := "A user with that username already exists. This password is too common. This password is entirely numeric."
	if got := Message(err); got != want {
		t.Fatalf("Message() = %q, want %q", got, want)
	}

	var apiErr *Error
	errors.As(err, &apiErr)
	if msgs := apiErr.FieldMessages("password"); len(msgs) != 2 {
		t.Fatalf("FieldMessages(password) = %v", msgs)
	}
}

func TestServerDetailVerbatim(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"User with this email does not exist"}`))
	})

	_, err := c.ForgotPassword(context.Background(), "nobody@example.com")
	if !IsKind(err, KindServer) {
		t.Fatalf("ForgotPassword() error = %v, want server", err)
	}
	if got := Message(err); got != "User with this email does not exist" {
		t.Fatalf("Message() = %q", got)
	}
}

func TestMalformedResponses(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{"html error page", http.StatusInternalServerError, "<html>Server Error</html>"},
		{"array body", http.StatusBadRequest, `["bad"]`},
		{"nested object", http.StatusBadRequest, `{"amount":{"code":"invalid"}}`},
		{"number value", http.StatusBadRequest, `{"amount":5}`},
		{"empty object", http.StatusBadRequest, `{}`},
		{"2xx not json", http.StatusOK, `not json`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			})
			_, err := c.Budgets(context.Background())
			if !IsKind(err, KindMalformed) {
				t.Fatalf("Budgets() error = %v, want malformed", err)
			}
			if got := Message(err); got != MsgMalformed {
				t.Fatalf("Message() = %q, want %q", got, MsgMalformed)
			}
		})
	}
}

func TestEmptyErrorBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	err := c.DeleteTransaction(context.Background(), 9)
	if !IsKind(err, KindServer) {
		t.Fatalf("DeleteTransaction() error = %v, want server", err)
	}
	if got := Message(err); got != "Not Found" {
		t.Fatalf("Message() = %q, want Not Found", got)
	}
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(url, session.NewMemory(), time.Second)
	_, err := c.Dashboard(context.Background())
	if !IsKind(err, KindNetwork) {
		t.Fatalf("Dashboard() error = %v, want network", err)
	}
	if got := Message(err); got != MsgNetwork {
		t.Fatalf("Message() = %q, want %q", got, MsgNetwork)
	}
}

func TestCanceledContext(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Dashboard(ctx)
	if !IsKind(err, KindCanceled) {
		t.Fatalf("Dashboard() error = %v, want canceled", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("errors.Is(err, context.Canceled) = false for %v", err)
	}
}

func TestMessageForNonAPIError(t *testing.T) {
	if got := Message(errors.New("boom")); got != MsgUnexpected {
		t.Fatalf("Message() = %q, want %q", got, MsgUnexpected)
	}
	if got := Message(nil); got != "" {
		t.Fatalf("Message(nil) = %q, want empty", got)
	}
}

func TestReportDownload(t *testing.T) {
	c, store := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("type") != "monthly" {
			t.Errorf("type = %q, want monthly", r.URL.Query().Get("type"))
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="report.pdf"`)
		w.Write([]byte("%PDF-1.4"))
	})
	store.Set(session.Tokens{Access: "tok"})

	report, err := c.Report(context.Background(), "monthly")
	if err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if string(report.Data) != "%PDF-1.4" || report.ContentType != "application/pdf" || report.Filename != "report.pdf" {
		t.Fatalf("report = %+v", report)
	}
}

func TestMarkNotificationRead(t *testing.T) {
	var body map[string]bool
	var method, path string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		json.NewDecoder(r.Body).Decode(&body)
		w.Write([]byte(`{"status":"marked as read"}`))
	})

	if err := c.MarkNotificationRead(context.Background(), 7); err != nil {
		t.Fatalf("MarkNotificationRead() error = %v", err)
	}
	if method != http.MethodPatch || path != "/api/notifications/7/" || !body["is_read"] {
		t.Fatalf("got %s %s %v", method, path, body)
	}
}
