package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

// ErrTableTextTooSmall means the OCR output is too short to hold a
// transaction table; the document is not sent to the model.
var ErrTableTextTooSmall = errors.New("table text too small to transcribe")

// GeminiTranscriber converts OCR table text into CSV using Gemini. Low
// temperature keeps the extraction deterministic.
type GeminiTranscriber struct {
	model        string
	maxAttempts  int
	requestDelay time.Duration
	log          zerolog.Logger

	generate func(ctx context.Context, prompt string) (string, error)
	sleep    func(ctx context.Context, d time.Duration) error
}

// TranscriberOptions configures a GeminiTranscriber. Zero fields take
// defaults.
type TranscriberOptions struct {
	Model        string
	MaxAttempts  int
	RequestDelay time.Duration
}

// NewGeminiTranscriber creates a transcriber talking to the Gemini API.
func NewGeminiTranscriber(ctx context.Context, apiKey string, log zerolog.Logger, opts TranscriberOptions) (*GeminiTranscriber, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiTranscriber: create genai client: %w", err)
	}

	t := newTranscriber(log, opts)
	t.generate = func(ctx context.Context, prompt string) (string, error) {
		config := &genai.GenerateContentConfig{
			Temperature: genai.Ptr[float32](0.1),
		}
		resp, err := client.Models.GenerateContent(ctx, t.model, genai.Text(prompt), config)
		if err != nil {
			return "", fmt.Errorf("generate content: %w", err)
		}
		text := resp.Text()
		if text == "" {
			return "", fmt.Errorf("empty response from model")
		}
		return text, nil
	}
	return t, nil
}

func newTranscriber(log zerolog.Logger, opts TranscriberOptions) *GeminiTranscriber {
	if opts.Model == "" {
		opts.Model = DefaultModelName
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.RequestDelay <= 0 {
		opts.RequestDelay = time.Second
	}
	return &GeminiTranscriber{
		model:        opts.Model,
		maxAttempts:  opts.MaxAttempts,
		requestDelay: opts.RequestDelay,
		log:          log,
		sleep:        sleepCtx,
	}
}

// Transcribe sends the table text to the model and returns cleaned CSV.
// Responses that do not contain at least a header and one data row are
// treated as failures and retried.
func (t *GeminiTranscriber) Transcribe(ctx context.Context, tableText string) (string, error) {
	if len(strings.TrimSpace(tableText)) < minTableTextLen {
		return "", ErrTableTextTooSmall
	}

	prompt := extractionPrompt + tableText

	var lastErr error
	for attempt := 0; attempt < t.maxAttempts; attempt++ {
		raw, err := t.generate(ctx, prompt)
		if err == nil {
			clean, cleanErr := cleanModelCSV(raw)
			if cleanErr == nil {
				if err := t.sleep(ctx, t.requestDelay); err != nil {
					return "", err
				}
				return clean, nil
			}
			err = cleanErr
		}
		lastErr = err

		if attempt < t.maxAttempts-1 {
			wait := time.Duration(5*(attempt+1)) * time.Second
			t.log.Warn().
				Err(err).
				Int("attempt", attempt+1).
				Dur("retry_in", wait).
				Msg("transcription failed, retrying")
			if err := t.sleep(ctx, wait); err != nil {
				return "", err
			}
		}
	}
	return "", fmt.Errorf("Transcribe: after %d attempts: %w", t.maxAttempts, lastErr)
}

// cleanModelCSV strips markdown code fences and blank lines from the model
// response. At least a header and one data row must remain.
func cleanModelCSV(raw string) (string, error) {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "```" || line == "```csv" {
			continue
		}
		line = strings.TrimPrefix(line, "```csv")
		line = strings.TrimSuffix(line, "```")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}

	if len(lines) < 2 {
		return "", fmt.Errorf("model returned %d non-empty lines, need header and data", len(lines))
	}
	return strings.Join(lines, "\n"), nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
