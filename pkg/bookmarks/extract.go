package bookmarks

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mlaurent/bookmark-audit/models"
	"github.com/mlaurent/bookmark-audit/pkg/store"
)

// Extractor runs the extract stage: parse the export and seed the store
// with deduplicated, identity-assigned bookmark records.
type Extractor struct {
	exportPath string
	maxURLs    int
	logger     *slog.Logger
}

// NewExtractor builds the stage for one export file.
func NewExtractor(exportPath string, cfg models.Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{exportPath: exportPath, maxURLs: cfg.MaxURLs, logger: logger}
}

// Extract parses the export into the store. URLs that cannot carry an
// identity (no scheme or host, unparseable) are skipped with a warning;
// a repeated URL keeps its first occurrence.
func (e *Extractor) Extract(ctx context.Context, st *store.Store) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.Open(e.exportPath)
	if err != nil {
		return fmt.Errorf("open export: %w", err)
	}
	defer f.Close()

	entries, err := Parse(f)
	if err != nil {
		return err
	}
	e.logger.Info("parsed bookmark export", "path", e.exportPath, "entries", len(entries))

	skipped := 0
	for _, entry := range entries {
		if e.maxURLs > 0 && st.Len() >= e.maxURLs {
			e.logger.Info("url limit reached", "max_urls", e.maxURLs)
			break
		}
		id, err := models.BookmarkID(entry.URL)
		if err != nil {
			e.logger.Warn("skipping unusable URL", "url", entry.URL, "error", err)
			skipped++
			continue
		}
		st.Add(&models.Bookmark{
			ID:           id,
			URL:          entry.URL,
			Title:        entry.Title,
			FolderPath:   entry.FolderPath,
			AddedAt:      entry.AddedAt,
			LastModified: entry.LastModified,
			Status:       models.StatusPending,
		})
	}

	if st.Len() == 0 {
		return fmt.Errorf("export %s contains no usable bookmarks", e.exportPath)
	}
	e.logger.Info("extraction complete", "bookmarks", st.Len(), "skipped", skipped)
	return nil
}
