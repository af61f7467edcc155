// Package validate provides input validation for URLs, filenames, and
// format strings. All public-facing inputs should be validated before they
// reach a component that does I/O or spawns a process.
package validate

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"downcore/internal/apperr"
)

// SupportedPlatforms is the set of hosts the downloader binary is known to
// support. MediaURL rejects any other host with KindUnsupportedPlatform;
// the core's submission paths do not call MediaURL, so an unsupported host
// submitted there is only classified after the child process fails.
var SupportedPlatforms = []string{
	"youtube.com", "youtu.be",
	"instagram.com",
	"tiktok.com",
	"twitter.com", "x.com",
	"facebook.com", "fb.watch",
	"twitch.tv",
	"vimeo.com",
	"dailymotion.com",
	"pinterest.com",
	"reddit.com",
	"threads.net",
	"soundcloud.com",
}

// filenameUnsafeChars matches characters not allowed in filenames across
// common filesystems.
var filenameUnsafeChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// whitespaceRun collapses runs of whitespace into a single underscore.
var whitespaceRun = regexp.MustCompile(`\s+`)

// shellMetacharacters are rejected from custom format strings. The
// downloader is always invoked by argument vector, never a shell, but a
// format selector containing these is refused outright rather than trusted.
var shellMetacharacters = regexp.MustCompile("[;&|`$()<>]")

// URL validates a URL and returns the parsed form or a KindInvalidURL error.
func URL(rawURL string) (*url.URL, error) {
	if rawURL == "" {
		return nil, apperr.NewWithMessage("validate.URL", apperr.KindInvalidURL, "URL must not be empty")
	}

	rawURL = strings.TrimSpace(rawURL)

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return nil, apperr.NewWithMessage("validate.URL", apperr.KindInvalidURL, "URL must start with http:// or https://")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, apperr.NewWithMessage("validate.URL", apperr.KindInvalidURL, "malformed URL")
	}

	if parsed.Host == "" {
		return nil, apperr.NewWithMessage("validate.URL", apperr.KindInvalidURL, "URL has no host")
	}

	return parsed, nil
}

// MediaURL validates a URL and additionally checks that its host is a
// supported platform.
func MediaURL(rawURL string) (*url.URL, error) {
	parsed, err := URL(rawURL)
	if err != nil {
		return nil, err
	}

	host := strings.ToLower(parsed.Host)
	for _, platform := range SupportedPlatforms {
		if strings.Contains(host, platform) {
			return parsed, nil
		}
	}

	return nil, apperr.NewWithMessage("validate.MediaURL", apperr.KindUnsupportedPlatform,
		fmt.Sprintf("unsupported platform: %s", parsed.Host))
}

// Filename sanitizes a raw string into a filesystem-safe filename. It
// strips control characters, removes characters unsafe across common
// filesystems, collapses whitespace runs into a single underscore, and
// truncates to 200 bytes of valid UTF-8. It is idempotent:
// Filename(Filename(x)) == Filename(x).
func Filename(raw string) string {
	if raw == "" {
		return "untitled"
	}

	var stripped strings.Builder
	for _, r := range raw {
		if unicode.IsControl(r) {
			continue
		}
		stripped.WriteRune(r)
	}

	safe := filenameUnsafeChars.ReplaceAllString(stripped.String(), "_")
	safe = strings.Trim(safe, " .")
	safe = whitespaceRun.ReplaceAllString(safe, "_")

	if len(safe) > 200 {
		safe = truncateUTF8(safe[:200])
	}

	if safe == "" {
		return "untitled"
	}

	return safe
}

// truncateUTF8 drops a trailing partial rune left over from a byte-level
// slice, so re-sanitizing the result is a no-op.
func truncateUTF8(s string) string {
	for i := len(s); i > 0; i-- {
		if utf8.ValidString(s[:i]) {
			return s[:i]
		}
	}
	return ""
}

// Format validates a custom downloader format string against the shell
// metacharacter allow-list. An empty format is accepted and simply means
// "use the default".
func Format(format string) (string, error) {
	format = strings.TrimSpace(format)
	if format == "" {
		return "", nil
	}
	if shellMetacharacters.MatchString(format) {
		return "", apperr.NewWithMessage("validate.Format", apperr.KindValidationFailed,
			fmt.Sprintf("format %q contains disallowed characters", format))
	}
	return format, nil
}

// PositiveInt returns value if positive, otherwise defaultValue.
func PositiveInt(value, defaultValue int) int {
	if value <= 0 {
		return defaultValue
	}
	return value
}

// NonEmptyString returns the trimmed value, or defaultValue if it is empty.
func NonEmptyString(value, defaultValue string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return defaultValue
	}
	return value
}

// Clamp bounds value to [lo, hi].
func Clamp(value, lo, hi int) int {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
