package gitlog

import (
	"errors"
	"testing"
	"time"
)

const sampleLine = "abc123 ;! Jane ;! jane@x.com ;! 2020-01-02 03:04:05 +0500 ;!  Jane ;! jane@x.com ;! 2020-01-02 03:04:05 +0500 ;!  Fix bug"

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"positive offset", "2020-01-02 03:04:05 +0500", "2020-01-02T03:04:05+05:00"},
		{"negative offset", "2019-12-31 23:59:59 -0330", "2019-12-31T23:59:59-03:30"},
		{"utc", "2021-06-07 08:09:10 +0000", "2021-06-07T08:09:10+00:00"},
		{"extra spaces", "  2020-01-02   03:04:05  +0100 ", "2020-01-02T03:04:05+01:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeDate(tt.input)
			if err != nil {
				t.Fatalf("NormalizeDate(%q) failed: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeDate(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeDate_Malformed(t *testing.T) {
	inputs := []string{
		"",
		"2020-01-02",
		"2020-01-02 03:04:05",
		"2020-01-02T03:04:05+05:00",
		"2020-13-02 03:04:05 +0500",
		"2020-01-02 03:04:05 +05:00",
		"yesterday at noon +0500",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, err := NormalizeDate(input)
			if !errors.Is(err, ErrMalformedDate) {
				t.Errorf("NormalizeDate(%q) error = %v, want ErrMalformedDate", input, err)
			}
		})
	}
}

func TestNormalizeDate_PreservesInstant(t *testing.T) {
	inputs := []string{
		"2020-01-02 03:04:05 +0500",
		"2020-07-15 18:00:00 -0700",
		"2022-02-28 00:00:01 +1345",
	}

	for _, input := range inputs {
		normalized, err := NormalizeDate(input)
		if err != nil {
			t.Fatalf("NormalizeDate(%q) failed: %v", input, err)
		}

		original, _ := time.Parse("2006-01-02 15:04:05 -0700", input)
		roundTrip, err := time.Parse(time.RFC3339, normalized)
		if err != nil {
			t.Fatalf("Normalized %q is not RFC3339: %v", normalized, err)
		}
		if !original.Equal(roundTrip) {
			t.Errorf("Instant changed: %v != %v", original, roundTrip)
		}
		_, origOffset := original.Zone()
		_, rtOffset := roundTrip.Zone()
		if origOffset != rtOffset {
			t.Errorf("Offset changed: %d != %d", origOffset, rtOffset)
		}
	}
}

func TestParseLine(t *testing.T) {
	commit, err := ParseLine(sampleLine)
	if err != nil {
		t.Fatalf("ParseLine failed: %v", err)
	}

	if commit.Hash != "abc123" {
		t.Errorf("Hash = %q, want 'abc123'", commit.Hash)
	}
	if commit.AuthorName != "Jane" {
		t.Errorf("AuthorName = %q", commit.AuthorName)
	}
	if commit.AuthorEmail != "jane@x.com" {
		t.Errorf("AuthorEmail = %q", commit.AuthorEmail)
	}
	if commit.AuthorDate != "2020-01-02T03:04:05+05:00" {
		t.Errorf("AuthorDate = %q", commit.AuthorDate)
	}
	if commit.CommitterName != "Jane" {
		t.Errorf("CommitterName = %q", commit.CommitterName)
	}
	if commit.CommitterEmail != "jane@x.com" {
		t.Errorf("CommitterEmail = %q", commit.CommitterEmail)
	}
	if commit.CommitterDate != "2020-01-02T03:04:05+05:00" {
		t.Errorf("CommitterDate = %q", commit.CommitterDate)
	}
	if commit.Message != "Fix bug" {
		t.Errorf("Message = %q, want 'Fix bug'", commit.Message)
	}
	if commit.RepositoryRoot != "" {
		t.Errorf("RepositoryRoot = %q, want empty", commit.RepositoryRoot)
	}
}

func TestParseLine_SeparatorInMessage(t *testing.T) {
	line := "h ;! A ;! a@x ;! 2020-01-02 03:04:05 +0500 ;! A ;! a@x ;! 2020-01-02 03:04:05 +0500 ;! left ;! right"

	commit, err := ParseLine(line)
	if err != nil {
		t.Fatalf("ParseLine failed: %v", err)
	}
	if commit.Message != "left ;! right" {
		t.Errorf("Message = %q, want 'left ;! right'", commit.Message)
	}
}

func TestParseLine_EmptyMessage(t *testing.T) {
	line := "h ;! A ;! a@x ;! 2020-01-02 03:04:05 +0500 ;! A ;! a@x ;! 2020-01-02 03:04:05 +0500 ;! "

	commit, err := ParseLine(line)
	if err != nil {
		t.Fatalf("ParseLine failed: %v", err)
	}
	if commit.Message != "" {
		t.Errorf("Message = %q, want empty", commit.Message)
	}
}

func TestParseLine_Errors(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		wantErr error
	}{
		{"empty", "", ErrFieldCount},
		{"too few fields", "abc ;! Jane ;! jane@x.com", ErrFieldCount},
		{"wrong separator", "abc|Jane|j@x|2020-01-02 03:04:05 +0500|Jane|j@x|2020-01-02 03:04:05 +0500|msg", ErrFieldCount},
		{"empty hash", " ;! Jane ;! j@x ;! 2020-01-02 03:04:05 +0500 ;! Jane ;! j@x ;! 2020-01-02 03:04:05 +0500 ;! msg", ErrEmptyHash},
		{"bad author date", "h ;! Jane ;! j@x ;! not a date ;! Jane ;! j@x ;! 2020-01-02 03:04:05 +0500 ;! msg", ErrMalformedDate},
		{"bad committer date", "h ;! Jane ;! j@x ;! 2020-01-02 03:04:05 +0500 ;! Jane ;! j@x ;! 2020-01-02 ;! msg", ErrMalformedDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLine(tt.line)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseLine error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParse_MixedBatch(t *testing.T) {
	lines := []string{
		sampleLine,
		"garbage",
		"def456 ;! Bob ;! bob@x.com ;! 2020-01-01 00:00:00 -0100 ;! Bob ;! bob@x.com ;! 2020-01-01 00:00:00 -0100 ;! Second",
		"h ;! Jane ;! j@x ;! bad ;! Jane ;! j@x ;! bad ;! msg",
		"ghi789 ;! Jane ;! jane@x.com ;! 2019-05-05 05:05:05 +0200 ;! Jane ;! jane@x.com ;! 2019-05-05 05:05:05 +0200 ;! Third",
	}

	batch := Parse("/repos/p", lines)

	if batch.RepositoryRoot != "/repos/p" {
		t.Errorf("RepositoryRoot = %q", batch.RepositoryRoot)
	}
	if batch.ParseErrors != 2 {
		t.Errorf("ParseErrors = %d, want 2", batch.ParseErrors)
	}
	if len(batch.Errors) != 2 {
		t.Fatalf("Expected 2 error details, got %d", len(batch.Errors))
	}
	if batch.Errors[0].Line != 2 || batch.Errors[1].Line != 4 {
		t.Errorf("Unexpected error line numbers: %+v", batch.Errors)
	}
	if len(batch.Commits) != 3 {
		t.Fatalf("Expected 3 commits, got %d", len(batch.Commits))
	}

	wantOrder := []string{"abc123", "def456", "ghi789"}
	for i, hash := range wantOrder {
		if batch.Commits[i].Hash != hash {
			t.Errorf("Commits[%d].Hash = %q, want %q", i, batch.Commits[i].Hash, hash)
		}
		if batch.Commits[i].RepositoryRoot != "/repos/p" {
			t.Errorf("Commits[%d].RepositoryRoot = %q", i, batch.Commits[i].RepositoryRoot)
		}
	}
}

func TestParse_CountsMatchInput(t *testing.T) {
	good := sampleLine
	bad := "nope"

	for wellFormed := 0; wellFormed < 4; wellFormed++ {
		for malformed := 0; malformed < 4; malformed++ {
			var lines []string
			for i := 0; i < wellFormed; i++ {
				lines = append(lines, good)
			}
			for i := 0; i < malformed; i++ {
				lines = append(lines, bad)
			}

			batch := Parse("/r", lines)
			if len(batch.Commits) != wellFormed {
				t.Errorf("well=%d bad=%d: commits = %d", wellFormed, malformed, len(batch.Commits))
			}
			if batch.ParseErrors != malformed {
				t.Errorf("well=%d bad=%d: parse errors = %d", wellFormed, malformed, batch.ParseErrors)
			}
		}
	}
}

func TestParse_Empty(t *testing.T) {
	batch := Parse("/r", nil)
	if len(batch.Commits) != 0 || batch.ParseErrors != 0 {
		t.Errorf("Expected empty batch, got %+v", batch)
	}
}
