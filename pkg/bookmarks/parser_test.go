package bookmarks

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mlaurent/bookmark-audit/models"
	"github.com/mlaurent/bookmark-audit/pkg/store"
)

const sampleExport = `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<TITLE>Bookmarks</TITLE>
<H1>Bookmarks</H1>
<DL><p>
    <DT><H3 ADD_DATE="1700000000">Dev</H3>
    <DL><p>
        <DT><A HREF="https://github.com/golang/go" ADD_DATE="1700000100" LAST_MODIFIED="1700000200">Go repo</A>
        <DT><H3>Tools</H3>
        <DL><p>
            <DT><A HREF="https://example.com/tool">Favorite tool</A>
        </DL><p>
    </DL><p>
    <DT><A HREF="https://example.com/root">Root level</A>
</DL><p>
`

func TestParse(t *testing.T) {
	entries, err := Parse(strings.NewReader(sampleExport))
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("parsed %d entries, want 3", len(entries))
	}

	byURL := map[string]Entry{}
	for _, e := range entries {
		byURL[e.URL] = e
	}

	repo, ok := byURL["https://github.com/golang/go"]
	if !ok {
		t.Fatal("missing github entry")
	}
	if repo.Title != "Go repo" {
		t.Errorf("title = %q, want %q", repo.Title, "Go repo")
	}
	if repo.FolderPath != "Dev" {
		t.Errorf("folder = %q, want Dev", repo.FolderPath)
	}
	if want := time.Unix(1700000100, 0).UTC(); !repo.AddedAt.Equal(want) {
		t.Errorf("added_at = %v, want %v", repo.AddedAt, want)
	}
	if want := time.Unix(1700000200, 0).UTC(); !repo.LastModified.Equal(want) {
		t.Errorf("last_modified = %v, want %v", repo.LastModified, want)
	}

	tool := byURL["https://example.com/tool"]
	if tool.FolderPath != "Dev/Tools" {
		t.Errorf("nested folder = %q, want Dev/Tools", tool.FolderPath)
	}

	root := byURL["https://example.com/root"]
	if root.FolderPath != "" {
		t.Errorf("root folder = %q, want empty", root.FolderPath)
	}
	if !root.AddedAt.IsZero() {
		t.Errorf("added_at without attribute = %v, want zero", root.AddedAt)
	}
}

func TestParse_MalformedTimestamps(t *testing.T) {
	export := `<DL><DT><A HREF="https://example.com/" ADD_DATE="not-a-number">X</A></DL>`
	entries, err := Parse(strings.NewReader(export))
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("parsed %d entries, want 1", len(entries))
	}
	if !entries[0].AddedAt.IsZero() {
		t.Errorf("added_at = %v, want zero for malformed timestamp", entries[0].AddedAt)
	}
}

func writeExport(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bookmarks.html")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write export fixture: %v", err)
	}
	return path
}

func TestExtract(t *testing.T) {
	path := writeExport(t, sampleExport)
	st := store.New()

	e := NewExtractor(path, models.DefaultConfig(), nil)
	if err := e.Extract(context.Background(), st); err != nil {
		t.Fatalf("Extract() failed: %v", err)
	}

	if st.Len() != 3 {
		t.Fatalf("store has %d bookmarks, want 3", st.Len())
	}
	for _, b := range st.All() {
		if b.ID == "" {
			t.Errorf("%s: missing ID", b.URL)
		}
		if b.Status != models.StatusPending {
			t.Errorf("%s: status = %q, want pending", b.URL, b.Status)
		}
	}
}

func TestExtract_DuplicateURLsCollapse(t *testing.T) {
	export := `<DL>
<DT><A HREF="https://example.com/page">First</A>
<DT><A HREF="https://example.com/page/">Same page, trailing slash</A>
</DL>`
	st := store.New()
	e := NewExtractor(writeExport(t, export), models.DefaultConfig(), nil)
	if err := e.Extract(context.Background(), st); err != nil {
		t.Fatalf("Extract() failed: %v", err)
	}

	if st.Len() != 1 {
		t.Fatalf("store has %d bookmarks, want 1 (same identity)", st.Len())
	}
	if st.All()[0].Title != "First" {
		t.Errorf("title = %q, the first occurrence should win", st.All()[0].Title)
	}
}

func TestExtract_SkipsUnusableURLs(t *testing.T) {
	export := `<DL>
<DT><A HREF="javascript:void(0)">Bookmarklet</A>
<DT><A HREF="https://example.com/real">Real</A>
</DL>`
	st := store.New()
	e := NewExtractor(writeExport(t, export), models.DefaultConfig(), nil)
	if err := e.Extract(context.Background(), st); err != nil {
		t.Fatalf("Extract() failed: %v", err)
	}

	if st.Len() != 1 {
		t.Fatalf("store has %d bookmarks, want 1", st.Len())
	}
	if st.All()[0].URL != "https://example.com/real" {
		t.Errorf("kept URL = %q, want the real one", st.All()[0].URL)
	}
}

func TestExtract_MaxURLs(t *testing.T) {
	export := `<DL>
<DT><A HREF="https://example.com/1">One</A>
<DT><A HREF="https://example.com/2">Two</A>
<DT><A HREF="https://example.com/3">Three</A>
</DL>`
	cfg := models.DefaultConfig()
	cfg.MaxURLs = 2

	st := store.New()
	e := NewExtractor(writeExport(t, export), cfg, nil)
	if err := e.Extract(context.Background(), st); err != nil {
		t.Fatalf("Extract() failed: %v", err)
	}
	if st.Len() != 2 {
		t.Errorf("store has %d bookmarks, want 2 (capped)", st.Len())
	}
}

func TestExtract_EmptyExportFails(t *testing.T) {
	st := store.New()
	e := NewExtractor(writeExport(t, "<html><body>nothing here</body></html>"), models.DefaultConfig(), nil)
	if err := e.Extract(context.Background(), st); err == nil {
		t.Error("Extract() should fail on an export with no bookmarks")
	}
}
