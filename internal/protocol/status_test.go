package protocol

import (
	"testing"

	"github.com/danmuck/trctl/internal/testutil/testlog"
)

func TestStatusStringLegacyVocabulary(t *testing.T) {
	testlog.Start(t)
	cases := map[int]string{
		1:  "Waiting to verify local files",
		2:  "Verifying local files",
		4:  "Downloading",
		8:  "Seeding",
		16: "Stopped",
		0:  "Unknown",
		3:  "Unknown",
		6:  "Unknown",
		32: "Unknown",
		-1: "Unknown",
	}
	for _, version := range []int{1, 5, 13} {
		for code, want := range cases {
			if got := StatusString(code, version); got != want {
				t.Fatalf("version=%d code=%d got=%q want=%q", version, code, got, want)
			}
		}
	}
}

func TestStatusStringCurrentVocabulary(t *testing.T) {
	testlog.Start(t)
	cases := map[int]string{
		0:  "Stopped",
		1:  "Waiting to verify local files",
		2:  "Verifying local files",
		3:  "Queued for download",
		4:  "Downloading",
		5:  "Queued for seeding",
		6:  "Seeding",
		7:  "Unknown",
		8:  "Unknown",
		16: "Unknown",
		-1: "Unknown",
	}
	for _, version := range []int{14, 15, 17, 100} {
		for code, want := range cases {
			if got := StatusString(code, version); got != want {
				t.Fatalf("version=%d code=%d got=%q want=%q", version, code, got, want)
			}
		}
	}
}

func TestVocabularySelectionBoundary(t *testing.T) {
	testlog.Start(t)
	if !IsLegacy(13) || IsLegacy(14) {
		t.Fatalf("legacy boundary must sit between 13 and 14")
	}
	if VocabularyFor(13).Name() != "legacy" || VocabularyFor(14).Name() != "current" {
		t.Fatalf("unexpected vocabularies: %s %s", VocabularyFor(13).Name(), VocabularyFor(14).Name())
	}
	if StatusString(4, 13) != StatusString(4, 14) {
		t.Fatalf("code 4 must read Downloading in both eras")
	}
	if StatusString(1, 13) != StatusString(1, 14) {
		t.Fatalf("code 1 must read the same in both eras")
	}
}

func TestUnknownVocabularyDecodesEverythingUnknown(t *testing.T) {
	testlog.Start(t)
	for code := -1; code <= 16; code++ {
		if got := UnknownStatuses.Text(code); got != StatusUnknown {
			t.Fatalf("code=%d got=%q", code, got)
		}
	}
	if UnknownStatuses.Name() != "unknown" {
		t.Fatalf("unexpected name %q", UnknownStatuses.Name())
	}
	var zero StatusVocabulary
	if zero.Name() != "unknown" || zero.Text(0) != StatusUnknown {
		t.Fatalf("zero vocabulary must behave as unknown")
	}
}
