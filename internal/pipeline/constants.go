package pipeline

// Defaults for transcription. Overridable via configuration.
const (
	// DefaultModelName is the Gemini model used for CSV extraction.
	DefaultModelName = "gemini-2.5-flash"

	// minTableTextLen is the smallest OCR output worth sending to the
	// model; anything shorter holds no transaction table.
	minTableTextLen = 50
)
