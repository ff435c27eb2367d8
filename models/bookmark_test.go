package models

import (
	"strings"
	"testing"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "lowercases scheme and host",
			input: "HTTPS://Example.COM/Path",
			want:  "https://example.com/Path",
		},
		{
			name:  "strips default https port",
			input: "https://example.com:443/page",
			want:  "https://example.com/page",
		},
		{
			name:  "strips default http port",
			input: "http://example.com:80/page",
			want:  "http://example.com/page",
		},
		{
			name:  "keeps non-default port",
			input: "https://example.com:8443/page",
			want:  "https://example.com:8443/page",
		},
		{
			name:  "strips trailing slash",
			input: "https://example.com/docs/",
			want:  "https://example.com/docs",
		},
		{
			name:  "drops fragment",
			input: "https://example.com/page#section-2",
			want:  "https://example.com/page",
		},
		{
			name:  "sorts query keys",
			input: "https://example.com/search?z=1&a=2",
			want:  "https://example.com/search?a=2&z=1",
		},
		{
			name:  "trims surrounding whitespace",
			input: "  https://example.com/page  ",
			want:  "https://example.com/page",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeURL(tt.input)
			if err != nil {
				t.Fatalf("NormalizeURL(%q) failed: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeURL_Invalid(t *testing.T) {
	for _, input := range []string{"", "not a url", "/relative/path", "example.com/no-scheme"} {
		if _, err := NormalizeURL(input); err == nil {
			t.Errorf("NormalizeURL(%q) should fail", input)
		}
	}
}

func TestBookmarkID_Stable(t *testing.T) {
	// Variants of the same page must collapse to one identity.
	variants := []string{
		"https://example.com/page",
		"HTTPS://EXAMPLE.COM/page",
		"https://example.com:443/page",
		"https://example.com/page/",
		"https://example.com/page#top",
	}

	first, err := BookmarkID(variants[0])
	if err != nil {
		t.Fatalf("BookmarkID() failed: %v", err)
	}
	if len(first) != 12 {
		t.Fatalf("BookmarkID() = %q, want 12 hex chars", first)
	}
	for _, v := range variants[1:] {
		id, err := BookmarkID(v)
		if err != nil {
			t.Fatalf("BookmarkID(%q) failed: %v", v, err)
		}
		if id != first {
			t.Errorf("BookmarkID(%q) = %q, want %q", v, id, first)
		}
	}
}

func TestBookmarkID_DistinctPages(t *testing.T) {
	a, _ := BookmarkID("https://example.com/one")
	b, _ := BookmarkID("https://example.com/two")
	if a == b {
		t.Errorf("distinct pages share ID %q", a)
	}
}

func TestMarkFailed(t *testing.T) {
	b := &Bookmark{Status: StatusChecked}
	b.MarkFailed("download", "unexpected status 500")

	if b.Status != StatusFailed {
		t.Errorf("Status = %q, want %q", b.Status, StatusFailed)
	}
	if b.LastGoodStatus != StatusChecked {
		t.Errorf("LastGoodStatus = %q, want %q", b.LastGoodStatus, StatusChecked)
	}
	if b.FailedStage != "download" {
		t.Errorf("FailedStage = %q, want %q", b.FailedStage, "download")
	}
	if !strings.Contains(b.FailureCause, "500") {
		t.Errorf("FailureCause = %q, want the status code preserved", b.FailureCause)
	}

	// A second failure must not overwrite the original good status.
	b.MarkFailed("analyze", "read error")
	if b.LastGoodStatus != StatusChecked {
		t.Errorf("LastGoodStatus after second failure = %q, want %q", b.LastGoodStatus, StatusChecked)
	}
}

func TestTargetURL(t *testing.T) {
	b := &Bookmark{URL: "https://old.example.com/page"}
	if got := b.TargetURL(); got != b.URL {
		t.Errorf("TargetURL() = %q, want original URL", got)
	}

	b.Liveness = &Liveness{State: LivenessRedirected, FinalURL: "https://new.example.com/page"}
	if got := b.TargetURL(); got != "https://new.example.com/page" {
		t.Errorf("TargetURL() = %q, want redirect target", got)
	}

	b.Liveness.State = LivenessReachable
	if got := b.TargetURL(); got != b.URL {
		t.Errorf("TargetURL() for reachable = %q, want original URL", got)
	}
}
