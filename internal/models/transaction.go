package models

import (
	"strings"

	"budgetbuddy/internal/money"
)

const (
	TypeIncome  = "income"
	TypeExpense = "expense"
)

// ExpenseCategories and IncomeCategories mirror the backend's choices, in the
// order they are offered to the user.
var (
	ExpenseCategories = []string{
		"food",
		"transportation",
		"housing",
		"entertainment",
		"utilities",
		"health",
		"education",
		"other",
	}
	IncomeCategories = []string{
		"salary",
		"freelance",
		"investments",
		"gifts",
		"other-income",
	}
)

// CategoriesFor returns the category set for a transaction type. Unknown
// types get the expense set.
func CategoriesFor(txType string) []string {
	if txType == TypeIncome {
		return IncomeCategories
	}
	return ExpenseCategories
}

func IsCategory(txType, category string) bool {
	for _, c := range CategoriesFor(txType) {
		if c == category {
			return true
		}
	}
	return false
}

func IsTransactionType(txType string) bool {
	return txType == TypeIncome || txType == TypeExpense
}

// CategoryLabel capitalises a category value for display ("other-income" -> "Other income").
func CategoryLabel(category string) string {
	if category == "" {
		return ""
	}
	label := strings.ReplaceAll(category, "-", " ")
	return strings.ToUpper(label[:1]) + label[1:]
}

type Transaction struct {
	ID          int64       `json:"id,omitempty"`
	Type        string      `json:"type"`
	Amount      money.Cents `json:"amount"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
	Date        string      `json:"date"`
	User        int64       `json:"user,omitempty"`
}

func (t Transaction) IsExpense() bool {
	return t.Type == TypeExpense
}

// SignedAmount renders "+12.50" for income and "-12.50" for expenses.
func (t Transaction) SignedAmount() string {
	if t.Type == TypeIncome {
		return "+" + t.Amount.Format()
	}
	return "-" + t.Amount.Format()
}

// DateOnly strips a time component from the backend date ("2026-01-30T00:00:00Z" -> "2026-01-30").
func DateOnly(date string) string {
	if i := strings.IndexByte(date, 'T'); i >= 0 {
		return date[:i]
	}
	return date
}

type Prediction struct {
	Category     string        `json:"category"`
	Confidence   float64       `json:"confidence"`
	Alternatives []Alternative `json:"alternatives,omitempty"`
}

type Alternative struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

type PredictRequest struct {
	Description string      `json:"description"`
	Amount      money.Cents `json:"amount"`
	Date        string      `json:"date,omitempty"`
}
