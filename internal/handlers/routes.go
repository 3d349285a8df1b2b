package handlers

import (
	"github.com/go-chi/chi/v5"
)

// Mount registers every page and JSON endpoint on r.
func (h *Handler) Mount(r chi.Router) {
	// Pages
	r.Get("/", h.Index)
	r.Get("/login", h.LoginPage)
	r.Post("/login", h.Login)
	r.Get("/register", h.RegisterPage)
	r.Post("/register", h.Register)
	r.Get("/forgot-password", h.ForgotPasswordPage)
	r.Post("/forgot-password", h.ForgotPassword)
	r.Post("/logout", h.Logout)
	r.Get("/dashboard", h.DashboardPage)

	// Dashboard forms
	r.Post("/transactions", h.CreateTransaction)
	r.Post("/transactions/{id}", h.UpdateTransaction)
	r.Post("/transactions/{id}/delete", h.DeleteTransaction)
	r.Post("/budgets", h.CreateBudget)
	r.Post("/notifications/{id}/read", h.MarkNotificationRead)
	r.Post("/profile", h.UpdateProfile)

	// Reports
	r.Get("/reports", h.GenerateReport)
	r.Get("/reports/summary.pdf", h.SummaryPDF)
	r.Get("/reports/files/{name}", h.SavedReport)

	// API
	r.Get("/api/chat", h.ChatHistory)
	r.Post("/api/chat", h.Chat)
	r.Get("/api/transactions/draft", h.GetDraft)
	r.Post("/api/transactions/draft", h.UpdateDraft)
}
