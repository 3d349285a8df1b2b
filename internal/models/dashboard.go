package models

import "budgetbuddy/internal/money"

// DashboardSummary is the body of GET /dashboard/.
type DashboardSummary struct {
	Income             money.Cents    `json:"income"`
	Expenses           money.Cents    `json:"expenses"`
	SavingsGoal        SavingsGoal    `json:"savings_goal"`
	RecentTransactions []Transaction  `json:"recent_transactions"`
	Notifications      []Notification `json:"notifications,omitempty"`
}

type SavingsGoal struct {
	CurrentAmount money.Cents `json:"current_amount"`
	TargetAmount  money.Cents `json:"target_amount"`
}

// MonthlyPoint is one element of GET /transactions/monthly/, oldest first.
type MonthlyPoint struct {
	Month    string      `json:"month"`
	Income   money.Cents `json:"income"`
	Expenses money.Cents `json:"expenses"`
}

const (
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
	PeriodYearly  = "yearly"
)

var BudgetPeriods = []string{PeriodWeekly, PeriodMonthly, PeriodYearly}

// Budget is a spending limit for one expense category. Spent and Progress are
// computed by the backend and are not used for display.
type Budget struct {
	ID       int64        `json:"id,omitempty"`
	Category string       `json:"category"`
	Limit    money.Cents  `json:"limit"`
	Period   string       `json:"period"`
	Spent    *money.Cents `json:"spent,omitempty"`
	Progress *float64     `json:"progress,omitempty"`
}

type Notification struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Type      string `json:"notification_type"`
	IsRead    bool   `json:"is_read"`
	CreatedAt string `json:"created_at"`
}

type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

func (u User) DisplayName() string {
	if u.FirstName == "" && u.LastName == "" {
		return u.Username
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

type ProfileUpdate struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ChatRequest struct {
	Message string `json:"message"`
	UserID  *int64 `json:"user_id"`
}

type ChatResponse struct {
	Response string `json:"response"`
}
