package job

import (
	"downcore/internal/apperr"
	"downcore/internal/validate"
)

// qualityPresets is the set of quality values the driver knows how to map
// to a format string; anything else must arrive via a custom Format.
var qualityPresets = map[string]bool{
	"best": true, "4k": true, "1080p": true, "720p": true,
	"480p": true, "360p": true, "audio": true,
}

// NewOptions validates raw option fields and returns a constructed
// Options, replacing runtime decorator-based validation with constructor
// validation performed once at the request boundary.
func NewOptions(quality, format string, subtitles SubtitlePolicy, wantThumbnail, wantMetadata bool, outputTemplate string, timeoutSec int, webhookURL, cookieRefID string) (Options, error) {
	if quality == "" {
		quality = "best"
	}
	if format == "" && !qualityPresets[quality] {
		return Options{}, apperr.NewWithMessage("job.NewOptions", apperr.KindValidationFailed, "unknown quality preset: "+quality)
	}

	cleanFormat, err := validate.Format(format)
	if err != nil {
		return Options{}, err
	}

	switch subtitles {
	case SubtitlesNone, SubtitlesAuto, SubtitlesAll:
	default:
		return Options{}, apperr.NewWithMessage("job.NewOptions", apperr.KindValidationFailed, "unknown subtitle policy")
	}

	if webhookURL != "" {
		if _, err := validate.URL(webhookURL); err != nil {
			return Options{}, err
		}
	}

	return Options{
		Quality:        quality,
		Format:         cleanFormat,
		Subtitles:      subtitles,
		WantThumbnail:  wantThumbnail,
		WantMetadata:   wantMetadata,
		OutputTemplate: outputTemplate,
		TimeoutSec:     validate.PositiveInt(timeoutSec, 0),
		WebhookURL:     webhookURL,
		CookieRefID:    cookieRefID,
	}, nil
}
