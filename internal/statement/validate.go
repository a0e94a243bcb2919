package statement

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

// ValidationError describes why a candidate CSV document was rejected. A
// document failing any check is rejected as a whole; retry policy belongs to
// the caller.
type ValidationError struct {
	Check  string // which structural check failed
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid CSV (%s): %s", e.Check, e.Reason)
}

// amountFields names the columns whose non-empty values must parse as
// numbers.
var amountFields = map[string]bool{
	"Amount_Credit": true,
	"Amount_Debit":  true,
	"First_Amount":  true,
	"Second_Amount": true,
	"Balance":       true,
	"Amount":        true,
}

// Validate checks a candidate CSV document from the extraction stage against
// the canonical 4/5-column contracts. Checks run in order and short-circuit
// on the first failure:
//
//  1. document is non-empty with at least one data row
//  2. header has exactly 4 or 5 columns
//  3. header matches the canonical name set for that count (order-sensitive)
//  4. every data row has the header's field count
//  5. designated amount fields parse as numbers when non-empty
//  6. Transaction_Type values, when non-empty, are exactly Credit or Debit
//
// A nil return means the document is accepted.
func Validate(doc []byte) error {
	cr := csv.NewReader(bytes.NewReader(doc))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return &ValidationError{Check: "parse", Reason: err.Error()}
	}

	if len(records) == 0 {
		return &ValidationError{Check: "empty", Reason: "document has no content"}
	}
	if len(records) < 2 {
		return &ValidationError{Check: "empty", Reason: "document has a header but no data rows"}
	}

	header := records[0]
	if len(header) != 4 && len(header) != 5 {
		return &ValidationError{
			Check:  "invalid schema",
			Reason: fmt.Sprintf("expected 4 or 5 columns, got %d", len(header)),
		}
	}

	var want []string
	switch len(header) {
	case 4:
		want = canonicalCardHeader
	case 5:
		want = canonicalBankHeader
		if headerEquals(trimAll(header), canonicalBankHeaderAlt) {
			want = canonicalBankHeaderAlt
		}
	}
	got := trimAll(header)
	if !headerEquals(got, want) {
		return &ValidationError{
			Check:  "invalid schema",
			Reason: fmt.Sprintf("header %v does not match canonical %v", got, want),
		}
	}

	typeIdx := -1
	var amountIdx []int
	for i, col := range want {
		if col == "Transaction_Type" {
			typeIdx = i
		}
		if amountFields[col] {
			amountIdx = append(amountIdx, i)
		}
	}

	for rowNum, rec := range records[1:] {
		if len(rec) != len(want) {
			return &ValidationError{
				Check:  "row length",
				Reason: fmt.Sprintf("row %d has %d fields, expected %d", rowNum+1, len(rec), len(want)),
			}
		}

		for _, i := range amountIdx {
			v := strings.TrimSpace(rec[i])
			if v == "" {
				continue
			}
			if !looksNumeric(v) {
				return &ValidationError{
					Check:  "non-numeric amount",
					Reason: fmt.Sprintf("row %d column %q: %q is not a number", rowNum+1, want[i], rec[i]),
				}
			}
		}

		if typeIdx >= 0 {
			v := strings.TrimSpace(rec[typeIdx])
			if v != "" && v != "Credit" && v != "Debit" {
				return &ValidationError{
					Check:  "invalid transaction type",
					Reason: fmt.Sprintf("row %d: transaction type %q, want Credit or Debit", rowNum+1, rec[typeIdx]),
				}
			}
		}
	}

	return nil
}

func trimAll(fields []string) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = strings.TrimSpace(f)
	}
	return out
}
