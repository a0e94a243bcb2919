package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// longTableText is comfortably over the minimum content threshold.
var longTableText = strings.Repeat("Date & Description & Amount\\\\\n", 5)

func testTranscriber(generate func(ctx context.Context, prompt string) (string, error)) *GeminiTranscriber {
	t := newTranscriber(zerolog.Nop(), TranscriberOptions{MaxAttempts: 3})
	t.generate = generate
	t.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return t
}

func TestTranscribeSuccess(t *testing.T) {
	tr := testTranscriber(func(ctx context.Context, prompt string) (string, error) {
		if !strings.Contains(prompt, longTableText) {
			t.Error("prompt does not contain the table text")
		}
		return "```csv\nDate,Description,Amount,Transaction_Type\n01/07/2025,UPI,500,Debit\n```", nil
	})

	got, err := tr.Transcribe(context.Background(), longTableText)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	want := "Date,Description,Amount,Transaction_Type\n01/07/2025,UPI,500,Debit"
	if got != want {
		t.Errorf("Transcribe = %q, want %q", got, want)
	}
}

func TestTranscribeRejectsSmallInput(t *testing.T) {
	tr := testTranscriber(func(ctx context.Context, prompt string) (string, error) {
		t.Error("generate called for undersized input")
		return "", nil
	})

	_, err := tr.Transcribe(context.Background(), "tiny")
	if !errors.Is(err, ErrTableTextTooSmall) {
		t.Errorf("err = %v, want ErrTableTextTooSmall", err)
	}
}

func TestTranscribeRetriesOnError(t *testing.T) {
	var calls int
	tr := testTranscriber(func(ctx context.Context, prompt string) (string, error) {
		calls++
		if calls < 3 {
			return "", fmt.Errorf("model unavailable")
		}
		return "Date,Amount\n01/07/2025,500", nil
	})

	got, err := tr.Transcribe(context.Background(), longTableText)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if got != "Date,Amount\n01/07/2025,500" {
		t.Errorf("Transcribe = %q", got)
	}
}

func TestTranscribeRetriesOnHeaderOnlyResponse(t *testing.T) {
	var calls int
	tr := testTranscriber(func(ctx context.Context, prompt string) (string, error) {
		calls++
		return "Date,Amount", nil
	})

	_, err := tr.Transcribe(context.Background(), longTableText)
	if err == nil {
		t.Fatal("Transcribe accepted a header-only response")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if !strings.Contains(err.Error(), "after 3 attempts") {
		t.Errorf("err = %v", err)
	}
}

func TestCleanModelCSV(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{
			name: "fenced csv block",
			raw:  "```csv\nDate,Amount\n01/07,500\n```",
			want: "Date,Amount\n01/07,500",
		},
		{
			name: "bare fences",
			raw:  "```\nDate,Amount\n01/07,500\n```",
			want: "Date,Amount\n01/07,500",
		},
		{
			name: "blank lines dropped",
			raw:  "Date,Amount\n\n\n01/07,500\n\n",
			want: "Date,Amount\n01/07,500",
		},
		{
			name: "unfenced passthrough",
			raw:  "Date,Amount\n01/07,500",
			want: "Date,Amount\n01/07,500",
		},
		{
			name:    "header only",
			raw:     "Date,Amount",
			wantErr: true,
		},
		{
			name:    "empty",
			raw:     "",
			wantErr: true,
		},
		{
			name:    "only fences",
			raw:     "```csv\n```",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cleanModelCSV(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("cleanModelCSV() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("cleanModelCSV() = %q, want %q", got, tt.want)
			}
		})
	}
}
