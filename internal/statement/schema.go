package statement

import (
	"fmt"
	"strings"
)

// ColumnRole classifies what a statement column holds.
type ColumnRole string

const (
	RoleUnclassified    ColumnRole = "unclassified"
	RoleDate            ColumnRole = "date"
	RoleDescription     ColumnRole = "description"
	RoleAmount          ColumnRole = "amount"
	RoleCreditAmount    ColumnRole = "credit_amount"
	RoleDebitAmount     ColumnRole = "debit_amount"
	RoleTransactionType ColumnRole = "transaction_type"
	RoleBalance         ColumnRole = "balance"
)

// Kind is the detected statement kind.
type Kind string

const (
	KindBankStatement Kind = "bank_statement"
	KindCreditCard    Kind = "credit_card"
	KindUnknown       Kind = "unknown"
	KindFallback      Kind = "fallback"
)

// Schema is the outcome of classifying a Table: which columns carry money
// and how rows split into credits and debits. It is recomputed per analysis
// and never persisted.
type Schema struct {
	Kind Kind

	// Roles maps every header column to its detected role.
	Roles map[string]ColumnRole

	// CreditColumn/DebitColumn are set for two-amount-column schemas.
	CreditColumn string
	DebitColumn  string

	// AmountColumn/TypeColumn are set for single-amount schemas. TypeColumn
	// is empty when no transaction-type column exists.
	AmountColumn string
	TypeColumn   string

	// Method is a human-readable label for the detection rule that fired.
	Method string

	// Warning is set when classification fell back to a lower-confidence
	// heuristic; empty for high-confidence matches.
	Warning string

	// FailureReason is non-empty only for the terminal no-monetary-data
	// case. Classification never raises; this is the typed failure outcome.
	FailureReason string
}

// Failed reports whether no usable monetary data was found at all.
func (s Schema) Failed() bool { return s.FailureReason != "" }

// Canonical column layouts the extraction stage is instructed to emit.
var (
	canonicalBankHeader    = []string{"Date", "Description", "Amount_Credit", "Amount_Debit", "Balance"}
	canonicalBankHeaderAlt = []string{"Date", "Description", "First_Amount", "Second_Amount", "Balance"}
	canonicalCardHeader    = []string{"Date", "Description", "Amount", "Transaction_Type"}
)

// balanceTokens mark a column as excluded from amount aggregation even when
// its name also matches an amount keyword.
var balanceTokens = []string{"balance", "total", "running", "outstanding"}

// Classify runs the detection cascade over a table and produces exactly one
// Schema. Rules are ordered from highest confidence to lowest; the first
// rule that matches wins. Classification is total: malformed or unfamiliar
// tables degrade to a best-effort Schema with a warning, and only the
// no-numeric-data-at-all case yields a failure outcome (still not an error).
func Classify(t *Table) Schema {
	if s, ok := classifyCanonical(t); ok {
		return s
	}

	roles := scanColumns(t.Columns)

	var monetary []string
	for _, col := range t.Columns {
		switch roles[col] {
		case RoleAmount, RoleCreditAmount, RoleDebitAmount:
			monetary = append(monetary, col)
		}
	}

	switch len(monetary) {
	case 2:
		return classifyTwoAmounts(t, roles, monetary)
	case 1:
		return classifyOneAmount(t, roles, monetary[0])
	case 0:
		return classifyFallback(t, roles)
	default:
		// Three or more amount-like columns: keep the first two by column
		// order, same policy as the two-column case.
		s := classifyTwoAmounts(t, roles, monetary[:2])
		s.Warning = fmt.Sprintf("%d amount-like columns found, using %q and %q", len(monetary), monetary[0], monetary[1])
		return s
	}
}

// classifyCanonical handles rule 1: exact canonical header matches.
func classifyCanonical(t *Table) (Schema, bool) {
	if headerEquals(t.Columns, canonicalBankHeader) || headerEquals(t.Columns, canonicalBankHeaderAlt) {
		return Schema{
			Kind: KindBankStatement,
			Roles: map[string]ColumnRole{
				t.Columns[0]: RoleDate,
				t.Columns[1]: RoleDescription,
				t.Columns[2]: RoleCreditAmount,
				t.Columns[3]: RoleDebitAmount,
				t.Columns[4]: RoleBalance,
			},
			CreditColumn: t.Columns[2],
			DebitColumn:  t.Columns[3],
			Method:       "canonical 5-column",
		}, true
	}
	if headerEquals(t.Columns, canonicalCardHeader) {
		return Schema{
			Kind: KindCreditCard,
			Roles: map[string]ColumnRole{
				t.Columns[0]: RoleDate,
				t.Columns[1]: RoleDescription,
				t.Columns[2]: RoleAmount,
				t.Columns[3]: RoleTransactionType,
			},
			AmountColumn: t.Columns[2],
			TypeColumn:   t.Columns[3],
			Method:       "canonical 4-column",
		}, true
	}
	return Schema{}, false
}

// scanColumns implements rule 2: classify each column by keyword sets over
// its lowercased, trimmed name. The rule order below is the tie-break: a
// name matching two sets takes the first. Balance-like tokens are tested
// first so a "Running_Total_Amount" column never counts as money.
func scanColumns(columns []string) map[string]ColumnRole {
	roles := make(map[string]ColumnRole, len(columns))
	for _, col := range columns {
		roles[col] = classifyColumnName(col)
	}
	return roles
}

func classifyColumnName(col string) ColumnRole {
	name := strings.ToLower(strings.TrimSpace(col))

	for _, tok := range balanceTokens {
		if strings.Contains(name, tok) {
			return RoleBalance
		}
	}

	switch {
	case containsAny(name, "amount", "amt"):
		return RoleAmount
	case containsAny(name, "credit", "deposit", "credited") || name == "cr":
		return RoleCreditAmount
	case containsAny(name, "debit", "withdrawal", "debited", "withdraw") || name == "dr":
		return RoleDebitAmount
	case containsAny(name, "type"):
		return RoleTransactionType
	case containsAny(name, "date", "dt"):
		return RoleDate
	case containsAny(name, "description", "narration", "particulars", "details"):
		return RoleDescription
	default:
		return RoleUnclassified
	}
}

// classifyTwoAmounts handles rule 3: exactly two monetary columns. A
// keyword-resolved credit/debit pair keeps its named sides; an ambiguous
// pair is assigned by original column order with a warning.
func classifyTwoAmounts(t *Table, roles map[string]ColumnRole, monetary []string) Schema {
	s := Schema{
		Kind:  KindBankStatement,
		Roles: roles,
	}

	a, b := monetary[0], monetary[1]
	switch {
	case roles[a] == RoleCreditAmount && roles[b] == RoleDebitAmount:
		s.CreditColumn, s.DebitColumn = a, b
		s.Method = "keyword credit/debit columns"
	case roles[a] == RoleDebitAmount && roles[b] == RoleCreditAmount:
		s.CreditColumn, s.DebitColumn = b, a
		s.Method = "keyword credit/debit columns"
	default:
		s.CreditColumn, s.DebitColumn = a, b
		s.Method = "two amount columns by position"
		s.Warning = "non-standard schema, amounts assigned by column order"
	}
	return s
}

// classifyOneAmount handles rule 4: a single monetary column, split into
// credits and debits by a transaction-type column when one exists. Without
// a type column every row is conservatively a debit; credit is never
// fabricated.
func classifyOneAmount(t *Table, roles map[string]ColumnRole, amountCol string) Schema {
	s := Schema{
		Roles:        roles,
		AmountColumn: amountCol,
	}

	for _, col := range t.Columns {
		if roles[col] == RoleTransactionType {
			s.TypeColumn = col
			break
		}
	}

	if s.TypeColumn != "" {
		s.Kind = KindCreditCard
		s.Method = "single amount with type column"
		if n := countUnrecognizedTypes(t, s.TypeColumn); n > 0 {
			s.Warning = fmt.Sprintf("%d rows with unrecognized transaction type treated as debits", n)
		}
		return s
	}

	s.Kind = KindUnknown
	s.Method = "single amount column"
	s.Warning = fmt.Sprintf("no transaction type column; all values in %q treated as debits", amountCol)
	return s
}

// classifyFallback handles rule 5: no keyword-matched monetary column. The
// first numeric column that is not balance-like carries the whole sum as
// debit; if none exists, classification reports the terminal failure.
func classifyFallback(t *Table, roles map[string]ColumnRole) Schema {
	for _, col := range t.Columns {
		if roles[col] == RoleBalance {
			continue
		}
		if columnIsNumeric(t, col) {
			return Schema{
				Kind:         KindFallback,
				Roles:        roles,
				AmountColumn: col,
				Method:       "numeric column fallback",
				Warning:      fmt.Sprintf("no amount column recognized; using numeric column %q as debits", col),
			}
		}
	}

	return Schema{
		Kind:          KindUnknown,
		Roles:         roles,
		Method:        "no detection rule matched",
		FailureReason: "no amount columns detected",
	}
}

// isCreditType / isDebitType test a transaction-type cell. Rows matching
// neither are treated as debits by the aggregator.
func isCreditType(v string) bool {
	return strings.Contains(strings.ToLower(v), "credit")
}

func isDebitType(v string) bool {
	return strings.Contains(strings.ToLower(v), "debit")
}

func countUnrecognizedTypes(t *Table, typeCol string) int {
	n := 0
	for _, row := range t.Rows {
		v := row[typeCol]
		if !isCreditType(v) && !isDebitType(v) {
			n++
		}
	}
	return n
}

func headerEquals(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func containsAny(name string, tokens ...string) bool {
	for _, tok := range tokens {
		if strings.Contains(name, tok) {
			return true
		}
	}
	return false
}
