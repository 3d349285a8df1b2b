package reports

import (
	"bytes"
	"fmt"
	"time"

	"github.com/phpdave11/gofpdf"

	"budgetbuddy/internal/dashboard"
	"budgetbuddy/internal/models"
	"budgetbuddy/internal/money"
)

// SummaryFileName names the locally rendered summary of day.
func SummaryFileName(day time.Time) string {
	return "budget_summary_" + day.Format("2006-01-02") + pdfExt
}

// BuildSummaryPDF renders the dashboard view: totals, category breakdown,
// budgets and recent transactions.
func BuildSummaryPDF(v *dashboard.View, generated time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("BudgetBuddy Summary", false)
	pdf.SetAuthor("BudgetBuddy", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "BudgetBuddy Summary")
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Generated: %s", generated.Format("2006-01-02 15:04")))
	pdf.Ln(6)
	if name := v.Profile.DisplayName(); name != "" {
		pdf.Cell(0, 8, fmt.Sprintf("User: %s", name))
		pdf.Ln(6)
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, "Totals")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	for _, row := range [][2]string{
		{"Income", dollars(v.Income)},
		{"Expenses", dollars(v.Expenses)},
		{"Savings", dollars(v.Savings)},
		{"Savings goal", fmt.Sprintf("%s / %s (%.0f%%)", dollars(v.SavingsGoal.CurrentAmount), dollars(v.SavingsGoal.TargetAmount), v.SavingsProgress)},
	} {
		pdf.Cell(50, 7, row[0])
		pdf.Cell(80, 7, row[1])
		pdf.Ln(7)
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, "Category Breakdown")
	pdf.Ln(8)
	header(pdf, []string{"Category", "Amount", "%"}, []float64{70, 50, 30})
	pdf.SetFont("Helvetica", "", 11)
	var spent money.Cents
	for _, c := range v.CategoryTotals {
		spent += c.Amount
	}
	for _, c := range v.CategoryTotals {
		pdf.Cell(70, 7, models.CategoryLabel(c.Category))
		pdf.Cell(50, 7, dollars(c.Amount))
		pdf.Cell(30, 7, fmt.Sprintf("%.1f%%", money.Percent(c.Amount, spent)))
		pdf.Ln(7)
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, "Budgets")
	pdf.Ln(8)
	if len(v.Budgets) == 0 {
		pdf.SetFont("Helvetica", "I", 11)
		pdf.Cell(0, 7, "No budgets set.")
		pdf.Ln(7)
	} else {
		header(pdf, []string{"Category", "Period", "Spent", "Limit", "Used"}, []float64{45, 30, 35, 35, 25})
		pdf.SetFont("Helvetica", "", 11)
		for _, b := range v.Budgets {
			if b.Over {
				pdf.SetTextColor(200, 30, 30)
			}
			pdf.Cell(45, 7, models.CategoryLabel(b.Budget.Category))
			pdf.Cell(30, 7, b.Budget.Period)
			pdf.Cell(35, 7, dollars(b.Spent))
			pdf.Cell(35, 7, dollars(b.Budget.Limit))
			pdf.Cell(25, 7, fmt.Sprintf("%d%%", b.Display))
			pdf.Ln(7)
			pdf.SetTextColor(0, 0, 0)
		}
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, "Recent Transactions")
	pdf.Ln(8)
	header(pdf, []string{"Date", "Description", "Category", "Amount"}, []float64{30, 75, 40, 35})
	pdf.SetFont("Helvetica", "", 10)
	for _, tx := range v.RecentTransactions {
		pdf.Cell(30, 6, models.DateOnly(tx.Date))
		pdf.Cell(75, 6, truncate(tx.Description, 40))
		pdf.Cell(40, 6, models.CategoryLabel(tx.Category))
		pdf.CellFormat(35, 6, signedDollars(tx), "", 0, "R", false, 0, "")
		pdf.Ln(6)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render summary: %w", err)
	}
	return buf.Bytes(), nil
}

func header(pdf *gofpdf.Fpdf, titles []string, widths []float64) {
	pdf.SetFont("Helvetica", "B", 11)
	for i, title := range titles {
		pdf.Cell(widths[i], 7, title)
	}
	pdf.Ln(7)
}

func dollars(c money.Cents) string {
	if c < 0 {
		return "-$" + (-c).Format()
	}
	return "$" + c.Format()
}

func signedDollars(tx models.Transaction) string {
	if tx.Type == models.TypeIncome {
		return "+" + dollars(tx.Amount)
	}
	return "-" + dollars(tx.Amount)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
