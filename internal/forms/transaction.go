package forms

import (
	"strings"
	"time"

	"budgetbuddy/internal/models"
	"budgetbuddy/internal/money"
)

const dateLayout = "2006-01-02"

// TransactionForm is the add/edit form state. Amount stays a string until
// validation, as typed.
type TransactionForm struct {
	ID          int64  `json:"id,omitempty"`
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Date        string `json:"date"`
}

func NewTransactionForm(now time.Time) *TransactionForm {
	return &TransactionForm{
		Type:     models.TypeExpense,
		Category: models.ExpenseCategories[0],
		Date:     now.Format(dateLayout),
	}
}

// EditTransactionForm pre-fills the form from an existing transaction.
func EditTransactionForm(tx models.Transaction, now time.Time) *TransactionForm {
	f := NewTransactionForm(now)
	f.ID = tx.ID
	if models.IsTransactionType(tx.Type) {
		f.Type = tx.Type
	}
	if tx.Amount != 0 {
		f.Amount = tx.Amount.String()
	}
	f.Description = tx.Description
	f.Category = tx.Category
	if f.Category == "" {
		f.Category = f.Categories()[0]
	}
	if tx.Date != "" {
		f.Date = models.DateOnly(tx.Date)
	}
	return f
}

func (f *TransactionForm) Editing() bool {
	return f.ID != 0
}

// Categories is the option set for the current type.
func (f *TransactionForm) Categories() []string {
	return models.CategoriesFor(f.Type)
}

// SetType switches the type and resets the category to the new set's first
// member. Unknown types are ignored.
func (f *TransactionForm) SetType(txType string) {
	if !models.IsTransactionType(txType) || txType == f.Type {
		return
	}
	f.Type = txType
	f.Category = f.Categories()[0]
}

// SetCategory accepts only members of the current set.
func (f *TransactionForm) SetCategory(category string) bool {
	if !models.IsCategory(f.Type, category) {
		return false
	}
	f.Category = category
	return true
}

// Validate returns the transaction to submit.
func (f *TransactionForm) Validate(now time.Time) (models.Transaction, error) {
	if !models.IsTransactionType(f.Type) {
		return models.Transaction{}, invalid("type", "Select income or expense")
	}
	if strings.TrimSpace(f.Amount) == "" {
		return models.Transaction{}, invalid("amount", "Amount is required")
	}
	amount, err := money.Parse(f.Amount)
	if err != nil {
		return models.Transaction{}, invalid("amount", "Amount must be a number")
	}
	if amount < 0 {
		return models.Transaction{}, invalid("amount", "Amount cannot be negative")
	}
	desc := strings.TrimSpace(f.Description)
	if desc == "" {
		return models.Transaction{}, invalid("description", "Description is required")
	}
	if !models.IsCategory(f.Type, f.Category) {
		return models.Transaction{}, invalid("category", "Select a category")
	}
	date := strings.TrimSpace(f.Date)
	if date == "" {
		date = now.Format(dateLayout)
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return models.Transaction{}, invalid("date", "Date must be YYYY-MM-DD")
	}

	return models.Transaction{
		ID:          f.ID,
		Type:        f.Type,
		Amount:      amount,
		Description: desc,
		Category:    f.Category,
		Date:        date,
	}, nil
}

type BudgetForm struct {
	Category string
	Limit    string
	Period   string
}

func NewBudgetForm() *BudgetForm {
	return &BudgetForm{Category: models.ExpenseCategories[0], Period: models.PeriodMonthly}
}

func (f *BudgetForm) Validate() (models.Budget, error) {
	if !models.IsCategory(models.TypeExpense, f.Category) {
		return models.Budget{}, invalid("category", "Select an expense category")
	}
	if strings.TrimSpace(f.Limit) == "" {
		return models.Budget{}, invalid("limit", "Budget limit is required")
	}
	limit, err := money.Parse(f.Limit)
	if err != nil {
		return models.Budget{}, invalid("limit", "Budget limit must be a number")
	}
	if limit <= 0 {
		return models.Budget{}, invalid("limit", "Budget limit must be greater than zero")
	}
	period := f.Period
	if period == "" {
		period = models.PeriodMonthly
	}
	valid := false
	for _, p := range models.BudgetPeriods {
		if p == period {
			valid = true
		}
	}
	if !valid {
		return models.Budget{}, invalid("period", "Select weekly, monthly or yearly")
	}
	return models.Budget{Category: f.Category, Limit: limit, Period: period}, nil
}

// ProfileForm edits names only; the email is submitted unchanged.
type ProfileForm struct {
	FirstName string
	LastName  string
	Email     string
}

func ProfileFormFor(u models.User) ProfileForm {
	return ProfileForm{FirstName: u.FirstName, LastName: u.LastName, Email: u.Email}
}

func (f ProfileForm) Validate() (models.ProfileUpdate, error) {
	first := strings.TrimSpace(f.FirstName)
	last := strings.TrimSpace(f.LastName)
	if first == "" {
		return models.ProfileUpdate{}, invalid("first_name", "First name is required")
	}
	if last == "" {
		return models.ProfileUpdate{}, invalid("last_name", "Last name is required")
	}
	return models.ProfileUpdate{FirstName: first, LastName: last, Email: f.Email}, nil
}
