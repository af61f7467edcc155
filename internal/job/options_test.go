package job_test

import (
	"testing"

	"downcore/internal/apperr"
	"downcore/internal/job"
)

func TestNewOptions_DefaultsQualityToBest(t *testing.T) {
	opts, err := job.NewOptions("", "", job.SubtitlesNone, false, false, "", 0, "", "")
	if err != nil {
		t.Fatalf("NewOptions() error: %v", err)
	}
	if opts.Quality != "best" {
		t.Errorf("Quality = %q, want %q", opts.Quality, "best")
	}
}

func TestNewOptions_UnknownQualityWithoutFormatRejected(t *testing.T) {
	_, err := job.NewOptions("ultrawide", "", job.SubtitlesNone, false, false, "", 0, "", "")
	if !apperr.Is(err, apperr.KindValidationFailed) {
		t.Errorf("expected KindValidationFailed, got %v", err)
	}
}

func TestNewOptions_CustomFormatRejectsShellMetacharacters(t *testing.T) {
	_, err := job.NewOptions("", "best; rm -rf /", job.SubtitlesNone, false, false, "", 0, "", "")
	if err == nil {
		t.Fatal("expected an error for a format string containing shell metacharacters")
	}
}

func TestNewOptions_InvalidWebhookURLRejected(t *testing.T) {
	_, err := job.NewOptions("best", "", job.SubtitlesNone, false, false, "", 0, "not-a-url", "")
	if !apperr.Is(err, apperr.KindInvalidURL) {
		t.Errorf("expected KindInvalidURL, got %v", err)
	}
}

func TestNewOptions_ValidOptions(t *testing.T) {
	opts, err := job.NewOptions("720p", "", job.SubtitlesAuto, true, true, "{id}.{ext}", 120, "https://hooks.example.com/cb", "cookie-1")
	if err != nil {
		t.Fatalf("NewOptions() error: %v", err)
	}
	if opts.TimeoutSec != 120 {
		t.Errorf("TimeoutSec = %d, want 120", opts.TimeoutSec)
	}
	if opts.CookieRefID != "cookie-1" {
		t.Errorf("CookieRefID = %q, want %q", opts.CookieRefID, "cookie-1")
	}
}
