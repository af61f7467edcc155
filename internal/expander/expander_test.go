package expander_test

import (
	"testing"

	"downcore/internal/apperr"
	"downcore/internal/driver"
	"downcore/internal/expander"
)

func TestParseRange_MixedTermsInOrder(t *testing.T) {
	got, err := expander.ParseRange("1-3,5,2", 10)
	if err != nil {
		t.Fatalf("ParseRange() error = %v", err)
	}
	want := []int{0, 1, 2, 4}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestParseRange_EmptySelectionMeansAll(t *testing.T) {
	got, err := expander.ParseRange("", 3)
	if err != nil {
		t.Fatalf("ParseRange() error = %v", err)
	}
	if len(got) != 3 || got[0] != 0 || got[2] != 2 {
		t.Errorf("got %v, want [0 1 2]", got)
	}
}

func TestParseRange_OutOfBoundsRejected(t *testing.T) {
	_, err := expander.ParseRange("1-20", 5)
	if !apperr.Is(err, apperr.KindValidationFailed) {
		t.Errorf("kind = %v, want ValidationFailed", apperr.KindOf(err))
	}
}

func TestParseRange_InvertedRangeRejected(t *testing.T) {
	_, err := expander.ParseRange("10-1", 20)
	if !apperr.Is(err, apperr.KindValidationFailed) {
		t.Errorf("kind = %v, want ValidationFailed", apperr.KindOf(err))
	}
}

func TestParseRange_MalformedTermRejected(t *testing.T) {
	_, err := expander.ParseRange("abc", 5)
	if !apperr.Is(err, apperr.KindValidationFailed) {
		t.Errorf("kind = %v, want ValidationFailed", apperr.KindOf(err))
	}
}

func entries() []driver.ListingEntry {
	return []driver.ListingEntry{
		{ID: "a", Title: "Charlie", Duration: 100, ViewCount: 50, UploadDate: "20240101"},
		{ID: "b", Title: "Alpha", Duration: 300, ViewCount: 500, UploadDate: "20240301"},
		{ID: "c", Title: "Bravo", Duration: 200, ViewCount: 10, UploadDate: ""},
	}
}

func TestFilter_DateRangeExcludesMissingDate(t *testing.T) {
	f := expander.Filter{DateAfter: "20240101", DateBefore: "20240401"}
	for _, e := range entries() {
		want := e.UploadDate != ""
		if got := f.Matches(e); got != want {
			t.Errorf("matches(%s) = %v, want %v", e.ID, got, want)
		}
	}
}

func TestFilter_ViewsAndDurationBounds(t *testing.T) {
	f := expander.Filter{MinViews: 20, MaxDuration: 250}
	got := f.Matches(entries()[0]) // views=50, duration=100
	if !got {
		t.Error("expected entry within bounds to match")
	}
	got = f.Matches(entries()[2]) // views=10 < MinViews
	if got {
		t.Error("expected entry below MinViews to be excluded")
	}
}
