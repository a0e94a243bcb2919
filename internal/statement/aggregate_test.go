package statement

import (
	"reflect"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal fixture %q: %v", s, err)
	}
	return d
}

func checkSummary(t *testing.T, got Summary, txns int, credit, debit, net string) {
	t.Helper()
	if got.TotalTransactions != txns {
		t.Errorf("TotalTransactions = %d, want %d", got.TotalTransactions, txns)
	}
	if !got.TotalCredit.Equal(dec(t, credit)) {
		t.Errorf("TotalCredit = %s, want %s", got.TotalCredit, credit)
	}
	if !got.TotalDebit.Equal(dec(t, debit)) {
		t.Errorf("TotalDebit = %s, want %s", got.TotalDebit, debit)
	}
	if !got.NetAmount.Equal(dec(t, net)) {
		t.Errorf("NetAmount = %s, want %s", got.NetAmount, net)
	}
}

func TestAggregateCanonicalBank(t *testing.T) {
	tbl := buildTable(t,
		[]string{"Date", "Description", "Amount_Credit", "Amount_Debit", "Balance"},
		[]string{"01/01/2024", "SALARY", "50000.00", "0", "50000.00"},
	)

	a := Analyze(tbl)
	if a.Schema.Kind != KindBankStatement {
		t.Fatalf("Kind = %s", a.Schema.Kind)
	}
	checkSummary(t, a.Summary, 1, "50000.00", "0", "50000.00")
}

func TestAggregateCanonicalCard(t *testing.T) {
	tbl := buildTable(t,
		[]string{"Date", "Description", "Amount", "Transaction_Type"},
		[]string{"02/02/2024", "AMAZON", "1234.56", "Debit"},
		[]string{"03/02/2024", "REFUND", "100.00", "Credit"},
	)

	a := Analyze(tbl)
	checkSummary(t, a.Summary, 2, "100.00", "1234.56", "-1134.56")
}

func TestAggregateSoleAmountDefaultsToDebit(t *testing.T) {
	tbl := buildTable(t,
		[]string{"Amount"},
		[]string{"500.00"},
	)

	a := Analyze(tbl)
	if a.Schema.Warning == "" {
		t.Error("expected warning on the all-debits default")
	}
	checkSummary(t, a.Summary, 1, "0", "500.00", "-500.00")
}

func TestAggregateUnrecognizedTypesCountAsDebits(t *testing.T) {
	tbl := buildTable(t,
		[]string{"Date", "Description", "Amount", "Transaction_Type"},
		[]string{"01/01/2024", "A", "10.00", "Credit"},
		[]string{"02/01/2024", "B", "20.00", ""},
		[]string{"03/01/2024", "C", "30.00", "Debit"},
	)

	a := Analyze(tbl)
	checkSummary(t, a.Summary, 3, "10.00", "50.00", "-40.00")
}

func TestAggregateNoAmountColumns(t *testing.T) {
	tbl := buildTable(t,
		[]string{"Date", "Description", "Reference_Number"},
		[]string{"01/01/2024", "CHEQUE", "REF-1"},
		[]string{"02/01/2024", "CHEQUE", "REF-2"},
	)

	a := Analyze(tbl)
	if !a.Schema.Failed() {
		t.Fatalf("expected failed classification")
	}
	checkSummary(t, a.Summary, 2, "0", "0", "0")
}

func TestAggregateFallbackColumn(t *testing.T) {
	tbl := buildTable(t,
		[]string{"Date", "Description", "Value", "Running_Total"},
		[]string{"01/01/2024", "FEE", "35.00", "965.00"},
		[]string{"02/01/2024", "FEE", "35.00", "930.00"},
	)

	a := Analyze(tbl)
	if a.Schema.Kind != KindFallback {
		t.Fatalf("Kind = %s", a.Schema.Kind)
	}
	checkSummary(t, a.Summary, 2, "0", "70.00", "-70.00")
}

// Analysis is pure: running it twice over the same table must produce
// identical schemas and summaries.
func TestAnalyzeIdempotent(t *testing.T) {
	tbl := buildTable(t,
		[]string{"Date", "Description", "Amount", "Transaction_Type"},
		[]string{"02/02/2024", "AMAZON", "1234.56", "Debit"},
		[]string{"03/02/2024", "REFUND", "100.00", "Credit"},
	)

	a1 := Analyze(tbl)
	a2 := Analyze(tbl)

	if !reflect.DeepEqual(a1.Schema, a2.Schema) {
		t.Errorf("schemas differ:\n%+v\n%+v", a1.Schema, a2.Schema)
	}
	if a1.Summary.TotalTransactions != a2.Summary.TotalTransactions ||
		!a1.Summary.TotalCredit.Equal(a2.Summary.TotalCredit) ||
		!a1.Summary.TotalDebit.Equal(a2.Summary.TotalDebit) ||
		!a1.Summary.NetAmount.Equal(a2.Summary.NetAmount) {
		t.Errorf("summaries differ:\n%+v\n%+v", a1.Summary, a2.Summary)
	}
}
