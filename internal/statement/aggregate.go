package statement

import "github.com/shopspring/decimal"

// Summary holds the financial metrics derived from one classified table.
// It is purely derived data: same table and schema always produce the same
// summary.
type Summary struct {
	TotalTransactions int
	TotalCredit       decimal.Decimal
	TotalDebit        decimal.Decimal
	NetAmount         decimal.Decimal
}

// Aggregate computes a Summary from a table and its schema. The transaction
// count is always the row count, even when classification failed; totals are
// zero in that case. Display rounding is a presentation concern and does not
// happen here.
func Aggregate(t *Table, s Schema) Summary {
	sum := Summary{
		TotalTransactions: t.RowCount(),
		TotalCredit:       decimal.Zero,
		TotalDebit:        decimal.Zero,
	}

	switch {
	case s.Failed():
		// No monetary data: count reported, totals stay zero.

	case s.CreditColumn != "" && s.DebitColumn != "":
		sum.TotalCredit = SumAmounts(t.Column(s.CreditColumn))
		sum.TotalDebit = SumAmounts(t.Column(s.DebitColumn))

	case s.AmountColumn != "" && s.TypeColumn != "":
		for _, row := range t.Rows {
			amount := ParseAmount(row[s.AmountColumn])
			if isCreditType(row[s.TypeColumn]) {
				sum.TotalCredit = sum.TotalCredit.Add(amount)
			} else {
				// Debit rows and rows with an unrecognized type both land
				// here; the classifier already attached the warning.
				sum.TotalDebit = sum.TotalDebit.Add(amount)
			}
		}

	case s.AmountColumn != "":
		// Unknown/Fallback: the sole column's sum is all debit.
		sum.TotalDebit = SumAmounts(t.Column(s.AmountColumn))
	}

	sum.NetAmount = sum.TotalCredit.Sub(sum.TotalDebit)
	return sum
}
