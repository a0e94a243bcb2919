// Package storage abstracts where statement PDFs, intermediate artifacts
// and produced CSVs live. The pipeline addresses blobs by key (a relative
// path like "csv_output/stmt_transactions.csv"); the backend is either the
// local filesystem or a GCS bucket.
package storage

import "context"

// Store is a flat blob store keyed by relative paths.
type Store interface {
	// Save writes data under key, creating intermediate directories.
	Save(ctx context.Context, key string, data []byte) error

	// Load reads the blob stored under key.
	Load(ctx context.Context, key string) ([]byte, error)

	// List returns the keys under the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// URI returns an addressable identifier for the key (a file path or a
	// gs:// URI), for logging and run records.
	URI(key string) string
}

// Layout names the well-known prefixes a processing run writes to. One
// statement occupies one directory tree: the uploaded PDF, page images,
// OCR results, the produced CSV, and raw text kept for manual review when
// extraction gives up.
const (
	PrefixUploads = "uploads"
	PrefixImages  = "images"
	PrefixResults = "results"
	PrefixCSV     = "csv_output"
	PrefixFailed  = "failed_processing"
)
