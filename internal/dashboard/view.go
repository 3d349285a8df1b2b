package dashboard

import (
	"math"
	"strings"

	"budgetbuddy/internal/models"
	"budgetbuddy/internal/money"
)

// View is the merged, derived structure every dashboard page renders from.
type View struct {
	Profile             models.User
	Income              money.Cents
	Expenses            money.Cents
	Savings             money.Cents
	SavingsGoal         models.SavingsGoal
	SavingsProgress     float64
	RecentTransactions  []models.Transaction
	ExpenseTransactions []models.Transaction
	CategoryTotals      []CategoryTotal
	Budgets             []BudgetProgress
	Trend               TrendSeries
	Notifications       []models.Notification
	UnreadCount         int
}

type CategoryTotal struct {
	Category string
	Amount   money.Cents
}

// Spent looks up the total for category, zero when absent.
func Spent(totals []CategoryTotal, category string) money.Cents {
	for _, t := range totals {
		if t.Category == category {
			return t.Amount
		}
	}
	return 0
}

// BudgetProgress is one budget row. Display is Percent rounded and never
// clamped; BarWidth is Percent clamped to [0, 100].
type BudgetProgress struct {
	Budget   models.Budget
	Spent    money.Cents
	Percent  float64
	Display  int
	BarWidth float64
	Over     bool
	Level    string
}

const (
	LevelOK      = "ok"
	LevelWarning = "warning"
	LevelDanger  = "danger"
)

type TrendSeries struct {
	Labels   []string
	Income   []float64
	Expenses []float64
}

func buildView(s *snapshot) *View {
	v := &View{
		Profile:            s.profile,
		Income:             s.summary.Income,
		Expenses:           s.summary.Expenses,
		Savings:            s.summary.Income - s.summary.Expenses,
		SavingsGoal:        s.summary.SavingsGoal,
		SavingsProgress:    money.Percent(s.summary.SavingsGoal.CurrentAmount, s.summary.SavingsGoal.TargetAmount),
		RecentTransactions: s.summary.RecentTransactions,
		Notifications:      s.notifications,
		Trend:              Trend(s.trends),
	}
	for _, tx := range s.summary.RecentTransactions {
		if tx.IsExpense() {
			v.ExpenseTransactions = append(v.ExpenseTransactions, tx)
		}
	}
	v.CategoryTotals = CategoryTotals(s.summary.RecentTransactions)
	for _, b := range s.budgets {
		v.Budgets = append(v.Budgets, Progress(b, Spent(v.CategoryTotals, b.Category)))
	}
	for _, n := range s.notifications {
		if !n.IsRead {
			v.UnreadCount++
		}
	}
	return v
}

// CategoryTotals sums expense amounts per category, in first-seen order.
// Income transactions are ignored.
func CategoryTotals(txs []models.Transaction) []CategoryTotal {
	var totals []CategoryTotal
	index := map[string]int{}
	for _, tx := range txs {
		if !tx.IsExpense() {
			continue
		}
		i, ok := index[tx.Category]
		if !ok {
			i = len(totals)
			index[tx.Category] = i
			totals = append(totals, CategoryTotal{Category: tx.Category})
		}
		totals[i].Amount += tx.Amount
	}
	return totals
}

// Progress computes spent/limit for one budget.
func Progress(b models.Budget, spent money.Cents) BudgetProgress {
	pct := money.Percent(spent, b.Limit)
	return BudgetProgress{
		Budget:   b,
		Spent:    spent,
		Percent:  pct,
		Display:  int(math.Round(pct)),
		BarWidth: math.Max(0, math.Min(pct, 100)),
		Over:     pct > 100,
		Level:    Level(pct),
	}
}

// Level maps a progress percentage to its colour band.
func Level(pct float64) string {
	switch {
	case pct > 90:
		return LevelDanger
	case pct > 70:
		return LevelWarning
	default:
		return LevelOK
	}
}

func Trend(points []models.MonthlyPoint) TrendSeries {
	series := TrendSeries{
		Labels:   make([]string, 0, len(points)),
		Income:   make([]float64, 0, len(points)),
		Expenses: make([]float64, 0, len(points)),
	}
	for _, p := range points {
		series.Labels = append(series.Labels, p.Month)
		series.Income = append(series.Income, p.Income.Float64())
		series.Expenses = append(series.Expenses, p.Expenses.Float64())
	}
	return series
}

// Filter narrows a transaction table. Empty or "all" fields match anything.
type Filter struct {
	Search   string
	Category string
	Type     string
}

func (f Filter) Active() bool {
	return f.Search != "" || !matchAll(f.Category) || !matchAll(f.Type)
}

func FilterTransactions(txs []models.Transaction, f Filter) []models.Transaction {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	var out []models.Transaction
	for _, tx := range txs {
		if search != "" && !strings.Contains(strings.ToLower(tx.Description), search) {
			continue
		}
		if !matchAll(f.Category) && tx.Category != f.Category {
			continue
		}
		if !matchAll(f.Type) && tx.Type != f.Type {
			continue
		}
		out = append(out, tx)
	}
	return out
}

// Totals sums income and expense amounts of a list.
func Totals(txs []models.Transaction) (income, expenses money.Cents) {
	for _, tx := range txs {
		switch tx.Type {
		case models.TypeIncome:
			income += tx.Amount
		case models.TypeExpense:
			expenses += tx.Amount
		}
	}
	return income, expenses
}

func matchAll(v string) bool {
	return v == "" || v == "all"
}
