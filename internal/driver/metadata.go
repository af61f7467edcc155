package driver

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os/exec"

	"downcore/internal/apperr"
	"downcore/internal/constants"
)

// ListingEntry is one item in a metadata-only channel/playlist listing.
type ListingEntry struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	Duration   int64  `json:"duration"`
	ViewCount  int64  `json:"view_count"`
	UploadDate string `json:"upload_date"` // YYYYMMDD, empty if unknown
}

// FetchListing calls the downloader in metadata-only mode against a
// channel or playlist URL and returns its flat entry listing. The
// downloader may emit either a single `{"_type": "playlist", "entries":
// [...]}` object or one JSON object per line (flat-playlist extractors);
// both shapes are handled.
func (d *Driver) FetchListing(ctx context.Context, url string) ([]ListingEntry, error) {
	const op = "driver.FetchListing"

	args := []string{
		"--dump-json",
		"--flat-playlist",
		"--no-warnings",
		"--no-check-certificate",
		"--ignore-errors",
		url,
	}

	ctx, cancel := context.WithTimeout(ctx, constants.MetadataTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, d.BinaryPath, args...)
	setSysProcAttr(cmd)
	cmd.Env = append(cmd.Environ(), "PYTHONIOENCODING=utf-8", "PYTHONUTF8=1")

	output, err := cmd.Output()
	if err != nil {
		return nil, apperr.Wrap(op, apperr.KindMetadataError, err)
	}

	var playlist struct {
		Type    string         `json:"_type"`
		Entries []ListingEntry `json:"entries"`
	}
	if err := json.Unmarshal(output, &playlist); err == nil && playlist.Type == "playlist" {
		return playlist.Entries, nil
	}

	var entries []ListingEntry
	scanner := bufio.NewScanner(bytes.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var entry ListingEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err == nil {
			entries = append(entries, entry)
		}
	}

	if len(entries) == 0 {
		var single ListingEntry
		if err := json.Unmarshal(output, &single); err == nil && single.ID != "" {
			return []ListingEntry{single}, nil
		}
		return nil, apperr.NewWithMessage(op, apperr.KindMetadataError, "listing produced no entries")
	}

	return entries, nil
}
