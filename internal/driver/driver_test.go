package driver

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"downcore/internal/apperr"
)

// =============================================================================
// Pure parsing helpers
// =============================================================================

func TestParseProgressLine_Percent(t *testing.T) {
	update, ok := parseProgressLine("[download]  42.5% of 10.00MiB at 1.20MiB/s ETA 00:05")
	if !ok {
		t.Fatal("expected a progress match")
	}
	if update.Percent != 42.5 {
		t.Errorf("Percent = %v, want 42.5", update.Percent)
	}
	if update.Status != "downloading" {
		t.Errorf("Status = %q, want downloading", update.Status)
	}
	if update.ETASeconds != 5 {
		t.Errorf("ETASeconds = %d, want 5", update.ETASeconds)
	}
}

func TestParseProgressLine_Merging(t *testing.T) {
	update, ok := parseProgressLine("[Merger] Merging formats into \"video.mp4\"")
	if !ok {
		t.Fatal("expected a merge match")
	}
	if update.Status != "merging" || update.Percent != 100 {
		t.Errorf("got %+v, want merging/100", update)
	}
}

func TestParseProgressLine_NoMatch(t *testing.T) {
	_, ok := parseProgressLine("just a plain log line")
	if ok {
		t.Error("expected no match for a non-progress line")
	}
}

func TestParseETA_MinutesSeconds(t *testing.T) {
	if got := parseETA("01:05"); got != 65 {
		t.Errorf("parseETA(01:05) = %d, want 65", got)
	}
}

func TestParseETA_SecondsSuffix(t *testing.T) {
	if got := parseETA("30s"); got != 30 {
		t.Errorf("parseETA(30s) = %d, want 30", got)
	}
}

func TestParseSpeed_MiB(t *testing.T) {
	got := parseSpeed("1.00MiB/s")
	want := float64(1024 * 1024)
	if got != want {
		t.Errorf("parseSpeed = %v, want %v", got, want)
	}
}

func TestSanitizeLine_StripsANSI(t *testing.T) {
	got := sanitizeLine("\x1b[31mred text\x1b[0m")
	if got != "red text" {
		t.Errorf("sanitizeLine() = %q, want %q", got, "red text")
	}
}

func TestResolveFormat_Presets(t *testing.T) {
	tests := []struct {
		quality string
		wantErr bool
	}{
		{"best", false},
		{"1080p", false},
		{"720p", false},
		{"nonsense", true},
	}
	for _, tt := range tests {
		_, err := resolveFormat(tt.quality, "")
		if (err != nil) != tt.wantErr {
			t.Errorf("resolveFormat(%q) error = %v, wantErr = %v", tt.quality, err, tt.wantErr)
		}
	}
}

func TestResolveFormat_CustomFormatTakesPrecedence(t *testing.T) {
	got, err := resolveFormat("best", "bestvideo[height<=480]")
	if err != nil {
		t.Fatalf("resolveFormat() error: %v", err)
	}
	if got != "bestvideo[height<=480]" {
		t.Errorf("resolveFormat() = %q, want custom format echoed back", got)
	}
}

// =============================================================================
// scanPipe / callback storm
// =============================================================================

type fakeSink struct {
	mu       sync.Mutex
	lines    []string
	progress []ProgressUpdate
	failNext int // fail this many subsequent OnProgress calls
}

func (f *fakeSink) OnLog(line string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lines = append(f.lines, line)
}

func (f *fakeSink) OnProgress(u ProgressUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progress = append(f.progress, u)
	if f.failNext > 0 {
		f.failNext--
		return errors.New("sink failure")
	}
	return nil
}

func TestScanPipe_EmitsLogAndProgress(t *testing.T) {
	sink := &fakeSink{}
	input := strings.NewReader("starting up\r[download]  50.0% of 1.00MiB\ndone\n")

	scanPipe(input, sink, func() {}, func(error) {})

	if len(sink.lines) != 3 {
		t.Errorf("len(lines) = %d, want 3, got %v", len(sink.lines), sink.lines)
	}
	if len(sink.progress) != 1 || sink.progress[0].Percent != 50.0 {
		t.Errorf("progress = %+v, want one 50%% update", sink.progress)
	}
}

func TestScanPipe_CallbackStormTripsAfterThreshold(t *testing.T) {
	sink := &fakeSink{failNext: 10}
	input := strings.NewReader("10%\n20%\n30%\n40%\n")

	var failures int
	scanPipe(input, sink, func() {}, func(err error) {
		if err != nil {
			failures++
		}
	})

	if failures < callbackStormThreshold {
		t.Errorf("expected at least %d callback failures, got %d", callbackStormThreshold, failures)
	}
}

// =============================================================================
// Error classification
// =============================================================================

func TestClassifyExitError_UnsupportedPlatform(t *testing.T) {
	err := classifyExitError(errors.New("ERROR: Unsupported URL: https://example.com/x"))
	if !apperr.Is(err, apperr.KindUnsupportedPlatform) {
		t.Errorf("classifyExitError() kind = %v, want KindUnsupportedPlatform", apperr.KindOf(err))
	}
}

func TestClassifyExitError_DefaultIsDownloadError(t *testing.T) {
	err := classifyExitError(errors.New("exit status 1"))
	if !apperr.Is(err, apperr.KindDownloadError) {
		t.Errorf("classifyExitError() kind = %v, want KindDownloadError", apperr.KindOf(err))
	}
}
