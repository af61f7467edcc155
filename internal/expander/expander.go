// Package expander resolves a channel or playlist URL into an ordered list
// of video URLs ready for batch submission: fetch a metadata-only listing,
// apply filters, sort, and cap or apply an explicit range selection.
package expander

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"downcore/internal/apperr"
	"downcore/internal/driver"
)

// SortMode selects the ordering applied before capping a channel listing.
type SortMode string

const (
	SortUploadDateDesc SortMode = "upload_date_desc"
	SortViewCountDesc  SortMode = "view_count_desc"
	SortDurationDesc   SortMode = "duration_desc"
	SortTitleAsc       SortMode = "title_asc"
)

// Filter narrows a channel listing by conjunction: every set predicate must
// hold for an entry to be retained. Zero-value fields (empty strings,
// zero durations/views) do not constrain anything.
type Filter struct {
	DateAfter  string // YYYYMMDD, inclusive
	DateBefore string // YYYYMMDD, inclusive
	MinViews   int64
	MaxViews   int64 // 0 means unbounded
	MinDuration int64 // seconds
	MaxDuration int64 // 0 means unbounded
}

func (f Filter) hasDateFilter() bool {
	return f.DateAfter != "" || f.DateBefore != ""
}

// Matches reports whether e satisfies every predicate f sets.
func (f Filter) Matches(e driver.ListingEntry) bool {
	if f.hasDateFilter() {
		if e.UploadDate == "" {
			return false
		}
		if f.DateAfter != "" && e.UploadDate < f.DateAfter {
			return false
		}
		if f.DateBefore != "" && e.UploadDate > f.DateBefore {
			return false
		}
	}
	if e.ViewCount < f.MinViews {
		return false
	}
	if f.MaxViews > 0 && e.ViewCount > f.MaxViews {
		return false
	}
	if e.Duration < f.MinDuration {
		return false
	}
	if f.MaxDuration > 0 && e.Duration > f.MaxDuration {
		return false
	}
	return true
}

// Expander fetches and resolves channel/playlist listings via the
// downloader's metadata-only mode.
type Expander struct {
	driver *driver.Driver
}

// New returns an Expander backed by d.
func New(d *driver.Driver) *Expander {
	return &Expander{driver: d}
}

// ExpandChannel fetches url's listing, applies filter, sorts by sortMode,
// and caps the result at maxDownloads. It fails with ValidationFailed if
// the post-cap list is empty.
func (x *Expander) ExpandChannel(ctx context.Context, url string, filter Filter, sortMode SortMode, maxDownloads int) ([]driver.ListingEntry, error) {
	const op = "expander.ExpandChannel"

	entries, err := x.driver.FetchListing(ctx, url)
	if err != nil {
		return nil, err
	}

	filtered := make([]driver.ListingEntry, 0, len(entries))
	for _, e := range entries {
		if filter.Matches(e) {
			filtered = append(filtered, e)
		}
	}

	sortEntries(filtered, sortMode)

	if maxDownloads > 0 && len(filtered) > maxDownloads {
		filtered = filtered[:maxDownloads]
	}

	if len(filtered) == 0 {
		return nil, apperr.NewWithMessage(op, apperr.KindValidationFailed, "filtered and capped listing is empty")
	}
	return filtered, nil
}

// ExpandPlaylist fetches url's listing and resolves selection (a range
// expression such as "1-10,15,20-25", 1-indexed) against it, optionally
// reversing the final order.
func (x *Expander) ExpandPlaylist(ctx context.Context, url, selection string, reverse bool) ([]driver.ListingEntry, error) {
	const op = "expander.ExpandPlaylist"

	entries, err := x.driver.FetchListing(ctx, url)
	if err != nil {
		return nil, err
	}

	indices, err := ParseRange(selection, len(entries))
	if err != nil {
		return nil, err
	}

	out := make([]driver.ListingEntry, 0, len(indices))
	for _, i := range indices {
		out = append(out, entries[i])
	}

	if reverse {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}

	if len(out) == 0 {
		return nil, apperr.NewWithMessage(op, apperr.KindValidationFailed, "playlist selection resolved to no entries")
	}
	return out, nil
}

func sortEntries(entries []driver.ListingEntry, mode SortMode) {
	switch mode {
	case SortUploadDateDesc:
		sort.SliceStable(entries, func(i, j int) bool {
			a, b := entries[i].UploadDate, entries[j].UploadDate
			if a == "" {
				return false
			}
			if b == "" {
				return true
			}
			return a > b
		})
	case SortViewCountDesc:
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].ViewCount > entries[j].ViewCount
		})
	case SortDurationDesc:
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Duration > entries[j].Duration
		})
	case SortTitleAsc:
		sort.SliceStable(entries, func(i, j int) bool {
			a, b := entries[i].Title, entries[j].Title
			if a == "" {
				return false
			}
			if b == "" {
				return true
			}
			return a < b
		})
	}
}

// ParseRange parses a selection expression like "1-10,15,20-25" (1-indexed,
// inclusive) into zero-indexed, order-preserving, de-duplicated indices
// bounded by [0, count). Out-of-range or malformed terms fail with
// ValidationFailed.
func ParseRange(selection string, count int) ([]int, error) {
	const op = "expander.ParseRange"

	selection = strings.TrimSpace(selection)
	if selection == "" {
		out := make([]int, count)
		for i := range out {
			out[i] = i
		}
		return out, nil
	}

	seen := make(map[int]struct{})
	var out []int

	add := func(oneIndexed int) error {
		if oneIndexed < 1 || oneIndexed > count {
			return apperr.NewWithMessage(op, apperr.KindValidationFailed,
				"range index out of bounds: "+strconv.Itoa(oneIndexed))
		}
		idx := oneIndexed - 1
		if _, ok := seen[idx]; ok {
			return nil
		}
		seen[idx] = struct{}{}
		out = append(out, idx)
		return nil
	}

	for _, term := range strings.Split(selection, ",") {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		if dash := strings.Index(term, "-"); dash > 0 {
			lo, err := strconv.Atoi(strings.TrimSpace(term[:dash]))
			if err != nil {
				return nil, apperr.Wrap(op, apperr.KindValidationFailed, err)
			}
			hi, err := strconv.Atoi(strings.TrimSpace(term[dash+1:]))
			if err != nil {
				return nil, apperr.Wrap(op, apperr.KindValidationFailed, err)
			}
			if lo > hi {
				return nil, apperr.NewWithMessage(op, apperr.KindValidationFailed, "invalid range: "+term)
			}
			for i := lo; i <= hi; i++ {
				if err := add(i); err != nil {
					return nil, err
				}
			}
			continue
		}

		n, err := strconv.Atoi(term)
		if err != nil {
			return nil, apperr.Wrap(op, apperr.KindValidationFailed, err)
		}
		if err := add(n); err != nil {
			return nil, err
		}
	}

	if len(out) == 0 {
		return nil, apperr.NewWithMessage(op, apperr.KindValidationFailed, "selection resolved to no entries")
	}
	return out, nil
}
