package validate_test

import (
	"testing"

	"downcore/internal/validate"
)

func TestURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid https URL", "https://youtube.com/watch?v=123", false},
		{"valid http URL", "http://example.com", false},
		{"empty URL", "", true},
		{"no scheme", "youtube.com/watch", true},
		{"ftp scheme rejected", "ftp://example.com", true},
		{"whitespace only", "   ", true},
		{"URL with spaces trimmed", "  https://example.com  ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validate.URL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("URL(%q) error = %v, wantErr = %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestMediaURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"YouTube URL", "https://youtube.com/watch?v=123", false},
		{"YouTube short URL", "https://youtu.be/123", false},
		{"Instagram URL", "https://instagram.com/p/123", false},
		{"Twitter URL", "https://twitter.com/user/status/123", false},
		{"X.com URL", "https://x.com/user/status/123", false},
		{"TikTok URL", "https://tiktok.com/@user/video/123", false},
		{"Unsupported platform", "https://randomsite.com/video", true},
		{"Empty URL", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validate.MediaURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("MediaURL(%q) error = %v, wantErr = %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"normal filename", "video.mp4", "video.mp4"},
		{"empty becomes untitled", "", "untitled"},
		{"removes special chars", "video<>:\"/\\|?*.mp4", "video_________.mp4"},
		{"trims spaces and dots", "  video.mp4.. ", "video.mp4"},
		{"collapses whitespace runs", "my   video   title.mp4", "my_video_title.mp4"},
		{"strips control characters", "video\x00\x1f.mp4", "video.mp4"},
		{"very long filename truncated", string(make([]byte, 300)), string(make([]byte, 200))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := validate.Filename(tt.input)
			if tt.name == "very long filename truncated" {
				if len(result) > 200 {
					t.Errorf("Filename length = %d, want <= 200", len(result))
				}
			} else if result != tt.expected {
				t.Errorf("Filename(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestFilenameIdempotent(t *testing.T) {
	inputs := []string{"video<>:\"/\\|?*.mp4", "  spaced out name.mkv  ", ""}
	for _, in := range inputs {
		once := validate.Filename(in)
		twice := validate.Filename(once)
		if once != twice {
			t.Errorf("Filename not idempotent for %q: once=%q twice=%q", in, once, twice)
		}
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name    string
		format  string
		wantErr bool
	}{
		{"empty format accepted", "", false},
		{"plain format string", "bestvideo+bestaudio", false},
		{"format with brackets", "best[height=1080]", false},
		{"comparison operator rejected", "best[height<=1080]", true},
		{"semicolon rejected", "best; rm -rf /", true},
		{"pipe rejected", "best|cat", true},
		{"backtick rejected", "best`whoami`", true},
		{"dollar paren rejected", "best$(whoami)", true},
		{"ampersand rejected", "best & echo hi", true},
		{"redirect rejected", "best > /etc/passwd", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validate.Format(tt.format)
			if (err != nil) != tt.wantErr {
				t.Errorf("Format(%q) error = %v, wantErr = %v", tt.format, err, tt.wantErr)
			}
		})
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		name          string
		value, lo, hi int
		expected      int
	}{
		{"below range", -10, 0, 100, 0},
		{"above range", 150, 0, 100, 100},
		{"within range", 50, 0, 100, 50},
		{"at lower bound", 0, 0, 100, 0},
		{"at upper bound", 100, 0, 100, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := validate.Clamp(tt.value, tt.lo, tt.hi)
			if result != tt.expected {
				t.Errorf("Clamp(%d, %d, %d) = %d, want %d", tt.value, tt.lo, tt.hi, result, tt.expected)
			}
		})
	}
}

func TestPositiveInt(t *testing.T) {
	tests := []struct {
		name         string
		value        int
		defaultValue int
		expected     int
	}{
		{"negative uses default", -5, 10, 10},
		{"zero uses default", 0, 10, 10},
		{"positive uses value", 5, 10, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := validate.PositiveInt(tt.value, tt.defaultValue)
			if result != tt.expected {
				t.Errorf("PositiveInt(%d, %d) = %d, want %d", tt.value, tt.defaultValue, result, tt.expected)
			}
		})
	}
}

func TestNonEmptyString(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		defaultValue string
		expected     string
	}{
		{"empty uses default", "", "fallback", "fallback"},
		{"whitespace uses default", "   ", "fallback", "fallback"},
		{"non-empty trimmed", "  hello  ", "fallback", "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := validate.NonEmptyString(tt.value, tt.defaultValue)
			if result != tt.expected {
				t.Errorf("NonEmptyString(%q, %q) = %q, want %q", tt.value, tt.defaultValue, result, tt.expected)
			}
		})
	}
}
