package driver

import (
	"fmt"

	"downcore/internal/apperr"
)

// buildArgs translates req into the downloader's argument vector. Quality
// presets map deterministically; a custom Format (already allow-list
// filtered by validate.Format at the job boundary) takes precedence when
// set.
func (d *Driver) buildArgs(req Request) ([]string, error) {
	args := []string{
		"--ffmpeg-location", d.FFmpegPath,
		"--newline",
		"-o", req.OutputPath,
		"--no-check-certificate",
		"--no-warnings",
	}

	if req.Quality == "audio" {
		args = append(args, "-x", "--audio-format", "mp3", "--audio-quality", "0")
	} else {
		format, err := resolveFormat(req.Quality, req.Format)
		if err != nil {
			return nil, err
		}
		args = append(args, "-f", format, "--merge-output-format", "mp4")
	}

	switch req.Subtitles {
	case "auto":
		args = append(args, "--write-auto-subs", "--sub-langs", "en")
	case "all":
		args = append(args, "--write-subs", "--write-auto-subs", "--all-subs")
	}

	if req.Thumbnail {
		args = append(args, "--embed-thumbnail")
	}
	if req.Metadata {
		args = append(args, "--add-metadata")
	}

	args = append(args, req.URL)
	return args, nil
}

// resolveFormat maps a quality preset to a downloader format selector, or
// passes a pre-validated custom format through unchanged.
func resolveFormat(quality, customFormat string) (string, error) {
	if customFormat != "" {
		return customFormat, nil
	}

	switch quality {
	case "", "best":
		return "bestvideo+bestaudio/best", nil
	case "4k":
		return "bestvideo[height<=2160]+bestaudio/best[height<=2160]", nil
	case "1080p":
		return "bestvideo[height<=1080]+bestaudio/best[height<=1080]", nil
	case "720p":
		return "bestvideo[height<=720]+bestaudio/best[height<=720]", nil
	case "480p":
		return "bestvideo[height<=480]+bestaudio/best[height<=480]", nil
	case "360p":
		return "bestvideo[height<=360]+bestaudio/best[height<=360]", nil
	default:
		return "", apperr.NewWithMessage("driver.resolveFormat", apperr.KindValidationFailed,
			fmt.Sprintf("unknown quality preset: %s", quality))
	}
}
