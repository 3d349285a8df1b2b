package predict

import (
	"strings"
	"sync"
	"time"

	"budgetbuddy/internal/forms"
	"budgetbuddy/internal/models"
	"budgetbuddy/internal/money"
)

// Draft is a transaction form being filled in, with category suggestions.
type Draft struct {
	assistant *Assistant

	mu      sync.Mutex
	form    *forms.TransactionForm
	applied uint64
}

func NewDraft(a *Assistant, now time.Time) *Draft {
	return &Draft{assistant: a, form: forms.NewTransactionForm(now)}
}

// Fields is a partial form update; nil members are left unchanged.
type Fields struct {
	Type        *string `json:"type"`
	Amount      *string `json:"amount"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Date        *string `json:"date"`
}

// DraftState is the form plus what the assistant currently suggests.
type DraftState struct {
	Form       forms.TransactionForm `json:"form"`
	Categories []string              `json:"categories"`
	Assist     State                 `json:"assist"`
}

// Set applies the changed fields. A change to the description or the amount
// schedules a new prediction.
func (d *Draft) Set(f Fields) (DraftState, error) {
	d.mu.Lock()
	predictInputChanged := false
	if f.Type != nil {
		d.form.SetType(*f.Type)
	}
	if f.Category != nil {
		d.form.SetCategory(*f.Category)
	}
	if f.Date != nil {
		d.form.Date = strings.TrimSpace(*f.Date)
	}
	if f.Description != nil && *f.Description != d.form.Description {
		d.form.Description = *f.Description
		predictInputChanged = true
	}
	if f.Amount != nil && *f.Amount != d.form.Amount {
		d.form.Amount = *f.Amount
		predictInputChanged = true
	}
	in := Input{Type: d.form.Type, Description: d.form.Description, Date: d.form.Date}
	if amount, err := money.Parse(d.form.Amount); err == nil {
		in.Amount = amount
	}
	d.mu.Unlock()

	if predictInputChanged {
		if _, err := d.assistant.Update(in); err != nil {
			return DraftState{}, err
		}
	}
	return d.State(), nil
}

// State folds in an auto-applied category once per prediction.
func (d *Draft) State() DraftState {
	assist := d.assistant.State()

	d.mu.Lock()
	defer d.mu.Unlock()
	if assist.Applied != "" && assist.Seq != d.applied {
		d.form.SetCategory(assist.Applied)
		d.applied = assist.Seq
	}
	return DraftState{Form: *d.form, Categories: d.form.Categories(), Assist: assist}
}

// Validate checks the draft for submission.
func (d *Draft) Validate(now time.Time) (models.Transaction, error) {
	d.State()
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.form.Validate(now)
}

// Reset starts an empty form, typically after a successful submit.
func (d *Draft) Reset(now time.Time) {
	seq := d.assistant.State().Seq

	d.mu.Lock()
	defer d.mu.Unlock()
	d.form = forms.NewTransactionForm(now)
	d.applied = seq
}
