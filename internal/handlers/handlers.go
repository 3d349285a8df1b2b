package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"budgetbuddy/internal/api"
	"budgetbuddy/internal/chat"
	"budgetbuddy/internal/dashboard"
	"budgetbuddy/internal/forms"
	"budgetbuddy/internal/logging"
	"budgetbuddy/internal/models"
	"budgetbuddy/internal/money"
	"budgetbuddy/internal/predict"
	"budgetbuddy/internal/reports"
	"budgetbuddy/internal/session"
)

const flashCookie = "bb_flash"

type Handler struct {
	client      *api.Client
	auth        *forms.Auth
	dash        *dashboard.Aggregator
	draft       *predict.Draft
	chat        *chat.Conversation
	reports     *reports.Service
	templateDir string
	now         func() time.Time
	logger      zerolog.Logger
}

func New(client *api.Client, dash *dashboard.Aggregator, draft *predict.Draft, conv *chat.Conversation, rep *reports.Service, templateDir string) *Handler {
	return &Handler{
		client:      client,
		auth:        forms.NewAuth(client),
		dash:        dash,
		draft:       draft,
		chat:        conv,
		reports:     rep,
		templateDir: templateDir,
		now:         time.Now,
		logger:      logging.New("handlers"),
	}
}

var templateFuncs = template.FuncMap{
	"money":  func(c money.Cents) string { return c.Format() },
	"signed": func(tx models.Transaction) string { return tx.SignedAmount() },
	"label":  models.CategoryLabel,
	"date":   models.DateOnly,
	"json": func(v interface{}) (template.JS, error) {
		b, err := json.Marshal(v)
		return template.JS(b), err
	},
	"dict": func(kv ...interface{}) (map[string]interface{}, error) {
		if len(kv)%2 != 0 {
			return nil, errors.New("dict needs key/value pairs")
		}
		m := make(map[string]interface{}, len(kv)/2)
		for i := 0; i < len(kv); i += 2 {
			k, ok := kv[i].(string)
			if !ok {
				return nil, errors.New("dict keys must be strings")
			}
			m[k] = kv[i+1]
		}
		return m, nil
	},
	"title": func(s string) string {
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + s[1:]
	},
}

func (h *Handler) renderTemplate(w http.ResponseWriter, page string, data interface{}) {
	h.renderStatus(w, http.StatusOK, page, data)
}

func (h *Handler) renderStatus(w http.ResponseWriter, status int, page string, data interface{}) {
	tmpl, err := template.New("layout.html").Funcs(templateFuncs).ParseFiles(
		filepath.Join(h.templateDir, "layout.html"),
		filepath.Join(h.templateDir, page),
	)
	if err != nil {
		h.logger.Error().Err(err).Str("page", page).Msg("failed to parse template")
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		h.logger.Error().Err(err).Str("page", page).Msg("failed to render template")
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// statusFor picks the response status of a failed form submission.
func statusFor(err error) int {
	var verr *forms.ValidationError
	switch {
	case errors.As(err, &verr), api.IsKind(err, api.KindValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, forms.ErrInFlight):
		return http.StatusConflict
	case api.IsUnauthorized(err):
		return http.StatusUnauthorized
	case api.IsKind(err, api.KindNetwork), api.IsKind(err, api.KindMalformed):
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}

// withFlash adds and consumes the pending flash message.
func (h *Handler) withFlash(w http.ResponseWriter, r *http.Request, data map[string]interface{}) map[string]interface{} {
	result := map[string]interface{}{}
	for k, v := range data {
		result[k] = v
	}
	if kind, msg, ok := readFlash(w, r); ok {
		result["Flash"] = msg
		result["FlashKind"] = kind
	}
	return result
}

func setFlash(w http.ResponseWriter, kind, msg string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(kind + ":" + msg),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func readFlash(w http.ResponseWriter, r *http.Request) (kind, msg string, ok bool) {
	cookie, err := r.Cookie(flashCookie)
	if err != nil {
		return "", "", false
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookie, Path: "/", MaxAge: -1})
	value, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return "", "", false
	}
	kind, msg, ok = strings.Cut(value, ":")
	return kind, msg, ok && msg != ""
}

// signedIn reports whether a session token is stored.
func (h *Handler) signedIn() bool {
	_, err := h.client.Session().Get()
	return err == nil
}

func (h *Handler) redirectLogin(w http.ResponseWriter, r *http.Request, msg string) {
	h.dash.Reset()
	if msg != "" {
		setFlash(w, "error", msg)
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// needsLogin is true for errors that end the session.
func needsLogin(err error) bool {
	return errors.Is(err, dashboard.ErrLoginRequired) || api.IsUnauthorized(err) || errors.Is(err, session.ErrNoSession)
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// Index handles GET /
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	if h.signedIn() {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}
