package statement

import "fmt"

// Analysis pairs the detected schema with the financial summary computed
// under it. It is the core's complete output for one statement CSV.
type Analysis struct {
	Schema  Schema
	Summary Summary
}

// Analyze classifies a table and aggregates it. It never returns an error:
// ambiguous schemas degrade to warnings and the no-monetary-data case is
// carried in Schema.FailureReason with zero totals.
func Analyze(t *Table) Analysis {
	schema := Classify(t)
	return Analysis{
		Schema:  schema,
		Summary: Aggregate(t, schema),
	}
}

// AnalyzeFile loads a CSV from disk and analyzes it. Only the file-level
// read or decode failure is an error; every downstream condition is data on
// the Analysis.
func AnalyzeFile(path string) (Analysis, error) {
	t, err := LoadTable(path)
	if err != nil {
		return Analysis{}, fmt.Errorf("AnalyzeFile: %w", err)
	}
	return Analyze(t), nil
}
