package handlers

import (
	"net/http"

	"budgetbuddy/internal/api"
	"budgetbuddy/internal/dashboard"
	"budgetbuddy/internal/forms"
	"budgetbuddy/internal/models"
)

const (
	MenuDashboard     = "dashboard"
	MenuExpenses      = "expenses"
	MenuOverview      = "overview"
	MenuProfile       = "profile"
	MenuNotifications = "notifications"
)

var menus = []string{MenuDashboard, MenuExpenses, MenuOverview, MenuProfile, MenuNotifications}

func menuOf(v string) string {
	for _, m := range menus {
		if m == v {
			return m
		}
	}
	return MenuDashboard
}

// currentView returns the cached view, loading it on first use or on
// ?refresh=1.
func (h *Handler) currentView(r *http.Request) (*dashboard.View, error) {
	if !h.signedIn() {
		return nil, dashboard.ErrLoginRequired
	}
	if r.URL.Query().Get("refresh") == "" {
		if view, err := h.dash.View(); err == nil {
			return view, nil
		}
	}
	return h.dash.Load(r.Context())
}

// DashboardPage handles GET /dashboard
func (h *Handler) DashboardPage(w http.ResponseWriter, r *http.Request) {
	view, err := h.currentView(r)
	if err != nil {
		if needsLogin(err) {
			h.redirectLogin(w, r, loginMessage(err))
			return
		}
		h.logger.Error().Err(err).Msg("failed to load dashboard")
		http.Error(w, "Failed to load dashboard", http.StatusBadGateway)
		return
	}

	q := r.URL.Query()
	menu := menuOf(q.Get("menu"))
	filter := dashboard.Filter{Search: q.Get("q"), Category: q.Get("category"), Type: q.Get("type")}
	expenses := dashboard.FilterTransactions(view.ExpenseTransactions, filter)
	filteredIncome, filteredExpenses := dashboard.Totals(expenses)

	draft := h.draft.State()
	data := map[string]interface{}{
		"Menu":              menu,
		"Menus":             menus,
		"View":              view,
		"Filter":            filter,
		"Expenses":          expenses,
		"FilteredIncome":    filteredIncome,
		"FilteredExpenses":  filteredExpenses,
		"ExpenseCategories": models.ExpenseCategories,
		"IncomeCategories":  models.IncomeCategories,
		"BudgetPeriods":     models.BudgetPeriods,
		"TransactionForm":   draft.Form,
		"DraftCategories":   draft.Categories,
		"BudgetForm":        forms.NewBudgetForm(),
		"ProfileForm":       forms.ProfileFormFor(view.Profile),
		"Chat":              h.chat.Messages(),
	}
	if id := q.Get("edit"); id != "" {
		for _, tx := range view.RecentTransactions {
			if formatID(tx.ID) == id {
				data["EditForm"] = forms.EditTransactionForm(tx, h.now())
			}
		}
	}
	if menu == MenuOverview {
		files, err := h.reports.List()
		if err != nil {
			h.logger.Warn().Err(err).Msg("failed to list saved reports")
		}
		data["Reports"] = files
	}
	h.renderTemplate(w, "dashboard.html", h.withFlash(w, r, data))
}

// CreateTransaction handles POST /transactions
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	back := backTo(r, MenuExpenses)
	form := transactionFormFrom(r)
	tx, err := form.Validate(h.now())
	if err != nil {
		h.failMutation(w, r, back, err, "Failed to add transaction.")
		return
	}
	stale, err := h.dash.AddTransaction(r.Context(), tx)
	if err != nil {
		h.failMutation(w, r, back, err, "Failed to add transaction.")
		return
	}
	h.draft.Reset(h.now())
	h.refreshAndRedirect(w, r, back, stale, "Transaction added.")
}

// UpdateTransaction handles POST /transactions/{id}
func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	back := backTo(r, MenuExpenses)
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Invalid transaction id", http.StatusBadRequest)
		return
	}
	form := transactionFormFrom(r)
	form.ID = id
	tx, err := form.Validate(h.now())
	if err != nil {
		h.failMutation(w, r, back, err, "Failed to update transaction.")
		return
	}
	stale, err := h.dash.EditTransaction(r.Context(), tx)
	if err != nil {
		h.failMutation(w, r, back, err, "Failed to update transaction.")
		return
	}
	h.refreshAndRedirect(w, r, back, stale, "Transaction updated.")
}

// DeleteTransaction handles POST /transactions/{id}/delete
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	back := backTo(r, MenuExpenses)
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Invalid transaction id", http.StatusBadRequest)
		return
	}
	stale, err := h.dash.DeleteTransaction(r.Context(), id)
	if err != nil {
		h.failMutation(w, r, back, err, "Failed to delete transaction.")
		return
	}
	h.refreshAndRedirect(w, r, back, stale, "Transaction deleted.")
}

// CreateBudget handles POST /budgets
func (h *Handler) CreateBudget(w http.ResponseWriter, r *http.Request) {
	back := backTo(r, MenuOverview)
	form := forms.BudgetForm{
		Category: r.PostFormValue("category"),
		Limit:    r.PostFormValue("limit"),
		Period:   r.PostFormValue("period"),
	}
	b, err := form.Validate()
	if err != nil {
		h.failMutation(w, r, back, err, "Failed to create budget.")
		return
	}
	stale, err := h.dash.AddBudget(r.Context(), b)
	if err != nil {
		h.failMutation(w, r, back, err, "Failed to create budget.")
		return
	}
	h.refreshAndRedirect(w, r, back, stale, "Budget created.")
}

// MarkNotificationRead handles POST /notifications/{id}/read
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	back := backTo(r, MenuNotifications)
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Invalid notification id", http.StatusBadRequest)
		return
	}
	stale, err := h.dash.MarkNotificationRead(r.Context(), id)
	if err != nil {
		h.failMutation(w, r, back, err, "Failed to mark notification as read.")
		return
	}
	h.refreshAndRedirect(w, r, back, stale, "")
}

// UpdateProfile handles POST /profile
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	back := backTo(r, MenuProfile)
	view, err := h.currentView(r)
	if err != nil {
		h.failMutation(w, r, back, err, "Failed to update profile.")
		return
	}
	form := forms.ProfileFormFor(view.Profile)
	form.FirstName = r.PostFormValue("first_name")
	form.LastName = r.PostFormValue("last_name")
	update, err := form.Validate()
	if err != nil {
		h.failMutation(w, r, back, err, "Failed to update profile.")
		return
	}
	stale, err := h.dash.UpdateProfile(r.Context(), update)
	if err != nil {
		h.failMutation(w, r, back, err, "Failed to update profile.")
		return
	}
	h.refreshAndRedirect(w, r, back, stale, "Profile updated successfully!")
}

func (h *Handler) refreshAndRedirect(w http.ResponseWriter, r *http.Request, back string, stale dashboard.Stale, msg string) {
	if _, err := h.dash.Refresh(r.Context(), stale); err != nil {
		if needsLogin(err) {
			h.redirectLogin(w, r, loginMessage(err))
			return
		}
		h.logger.Warn().Err(err).Str("stale", stale.String()).Msg("dashboard refresh failed")
		setFlash(w, "error", "Saved, but the dashboard could not be refreshed. "+forms.Message(err))
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}
	if msg != "" {
		setFlash(w, "success", msg)
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

func (h *Handler) failMutation(w http.ResponseWriter, r *http.Request, back string, err error, prefix string) {
	if needsLogin(err) {
		h.redirectLogin(w, r, loginMessage(err))
		return
	}
	setFlash(w, "error", prefix+" "+forms.Message(err))
	http.Redirect(w, r, back, http.StatusSeeOther)
}

func loginMessage(err error) string {
	if api.IsUnauthorized(err) {
		return api.MsgSessionExpired
	}
	if err == dashboard.ErrLoginRequired {
		return ""
	}
	return api.MsgSessionExpired
}

func transactionFormFrom(r *http.Request) forms.TransactionForm {
	return forms.TransactionForm{
		Type:        r.PostFormValue("type"),
		Amount:      r.PostFormValue("amount"),
		Description: r.PostFormValue("description"),
		Category:    r.PostFormValue("category"),
		Date:        r.PostFormValue("date"),
	}
}

// backTo is the dashboard page a form returns to.
func backTo(r *http.Request, fallback string) string {
	menu := r.PostFormValue("menu")
	if menu == "" {
		menu = fallback
	}
	return "/dashboard?menu=" + menuOf(menu)
}
