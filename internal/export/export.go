// Package export renders processed statements for downstream consumers: a
// JSON summary report with display-formatted amounts and a normalized CSV in
// the canonical column layout.
package export

import (
	"encoding/json"
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"github.com/finparse/statement-pipeline/internal/statement"
)

// Report is the human-facing summary of one processed statement.
type Report struct {
	Source            string `json:"source"`
	SchemaKind        string `json:"schema_kind"`
	Method            string `json:"classification_method,omitempty"`
	Warning           string `json:"warning,omitempty"`
	FailureReason     string `json:"failure_reason,omitempty"`
	TotalTransactions int    `json:"total_transactions"`
	TotalCredit       string `json:"total_credit"`
	TotalDebit        string `json:"total_debit"`
	NetAmount         string `json:"net_amount"`

	// Display fields carry the amounts formatted as rupees.
	TotalCreditDisplay string `json:"total_credit_display"`
	TotalDebitDisplay  string `json:"total_debit_display"`
	NetAmountDisplay   string `json:"net_amount_display"`
}

// BuildReport assembles the report for an analyzed statement.
func BuildReport(source string, a *statement.Analysis) Report {
	return Report{
		Source:             source,
		SchemaKind:         string(a.Schema.Kind),
		Method:             a.Schema.Method,
		Warning:            a.Schema.Warning,
		FailureReason:      a.Schema.FailureReason,
		TotalTransactions:  a.Summary.TotalTransactions,
		TotalCredit:        a.Summary.TotalCredit.String(),
		TotalDebit:         a.Summary.TotalDebit.String(),
		NetAmount:          a.Summary.NetAmount.String(),
		TotalCreditDisplay: FormatINR(a.Summary.TotalCredit),
		TotalDebitDisplay:  FormatINR(a.Summary.TotalDebit),
		NetAmountDisplay:   FormatINR(a.Summary.NetAmount),
	}
}

// RenderReport marshals the report as indented JSON.
func RenderReport(source string, a *statement.Analysis) ([]byte, error) {
	data, err := json.MarshalIndent(BuildReport(source, a), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("RenderReport: %w", err)
	}
	return data, nil
}

// FormatINR renders a decimal amount as Indian rupees.
func FormatINR(d decimal.Decimal) string {
	minor := d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	return money.New(minor, money.INR).Display()
}

// bankRow is the canonical five-column bank statement layout.
type bankRow struct {
	Date         string `csv:"Date"`
	Description  string `csv:"Description"`
	AmountCredit string `csv:"Amount_Credit"`
	AmountDebit  string `csv:"Amount_Debit"`
	Balance      string `csv:"Balance"`
}

// cardRow is the canonical four-column credit card layout.
type cardRow struct {
	Date            string `csv:"Date"`
	Description     string `csv:"Description"`
	Amount          string `csv:"Amount"`
	TransactionType string `csv:"Transaction_Type"`
}

// NormalizeCSV rewrites a classified table into the canonical column layout
// for its schema kind. Unknown and fallback schemas cannot be normalized.
func NormalizeCSV(t *statement.Table, s statement.Schema) ([]byte, error) {
	switch s.Kind {
	case statement.KindBankStatement:
		return normalizeBank(t, s)
	case statement.KindCreditCard:
		return normalizeCard(t, s)
	default:
		return nil, fmt.Errorf("NormalizeCSV: schema kind %q cannot be normalized", s.Kind)
	}
}

func normalizeBank(t *statement.Table, s statement.Schema) ([]byte, error) {
	dateCol := columnWithRole(t, s, statement.RoleDate)
	descCol := columnWithRole(t, s, statement.RoleDescription)
	balanceCol := columnWithRole(t, s, statement.RoleBalance)

	rows := make([]bankRow, 0, t.RowCount())
	for _, row := range t.Rows {
		rows = append(rows, bankRow{
			Date:         row[dateCol],
			Description:  row[descCol],
			AmountCredit: row[s.CreditColumn],
			AmountDebit:  row[s.DebitColumn],
			Balance:      row[balanceCol],
		})
	}

	data, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		return nil, fmt.Errorf("normalizeBank: %w", err)
	}
	return data, nil
}

func normalizeCard(t *statement.Table, s statement.Schema) ([]byte, error) {
	dateCol := columnWithRole(t, s, statement.RoleDate)
	descCol := columnWithRole(t, s, statement.RoleDescription)

	rows := make([]cardRow, 0, t.RowCount())
	for _, row := range t.Rows {
		rows = append(rows, cardRow{
			Date:            row[dateCol],
			Description:     row[descCol],
			Amount:          row[s.AmountColumn],
			TransactionType: row[s.TypeColumn],
		})
	}

	data, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		return nil, fmt.Errorf("normalizeCard: %w", err)
	}
	return data, nil
}

// columnWithRole returns the first column carrying the role, or "" when the
// schema never assigned it. Indexing a row map with "" yields an empty cell.
func columnWithRole(t *statement.Table, s statement.Schema, role statement.ColumnRole) string {
	for _, col := range t.Columns {
		if s.Roles[col] == role {
			return col
		}
	}
	return ""
}
