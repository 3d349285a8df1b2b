package handlers

import (
	"net/http"
	"strings"

	"budgetbuddy/internal/forms"
)

// LoginPage handles GET /login
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if h.signedIn() {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	h.renderTemplate(w, "login.html", h.withFlash(w, r, nil))
}

// Login handles POST /login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	form := forms.LoginForm{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	}
	if err := h.auth.Login(r.Context(), form); err != nil {
		h.renderStatus(w, statusFor(err), "login.html", map[string]interface{}{
			"Error":    forms.Message(err),
			"Username": form.Username,
		})
		return
	}

	h.dash.Reset()
	h.chat.Reset()
	h.draft.Reset(h.now())
	h.logger.Info().Str("username", strings.TrimSpace(form.Username)).Msg("signed in")
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// RegisterPage handles GET /register
func (h *Handler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	h.renderTemplate(w, "register.html", h.withFlash(w, r, nil))
}

// Register handles POST /register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	form := forms.RegisterForm{
		Username:        r.PostFormValue("username"),
		Email:           r.PostFormValue("email"),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirm_password"),
	}
	if err := h.auth.Register(r.Context(), form); err != nil {
		h.renderStatus(w, statusFor(err), "register.html", map[string]interface{}{
			"Error":    forms.Message(err),
			"Username": form.Username,
			"Email":    form.Email,
			"Strength": forms.PasswordStrength(form.Password),
		})
		return
	}

	setFlash(w, "success", "Registration successful! Please log in.")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// ForgotPasswordPage handles GET /forgot-password
func (h *Handler) ForgotPasswordPage(w http.ResponseWriter, r *http.Request) {
	h.renderTemplate(w, "forgot_password.html", h.withFlash(w, r, nil))
}

// ForgotPassword handles POST /forgot-password
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	form := forms.ForgotPasswordForm{Email: r.PostFormValue("email")}
	msg, err := h.auth.ForgotPassword(r.Context(), form)
	if err != nil {
		h.renderStatus(w, statusFor(err), "forgot_password.html", map[string]interface{}{
			"Error": forms.Message(err),
			"Email": form.Email,
		})
		return
	}
	h.renderTemplate(w, "forgot_password.html", map[string]interface{}{"Message": msg})
}

// Logout handles POST /logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.client.Logout(); err != nil {
		h.logger.Error().Err(err).Msg("failed to clear session")
	}
	h.chat.Reset()
	h.draft.Reset(h.now())
	h.redirectLogin(w, r, "")
}
