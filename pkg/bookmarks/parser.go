// Package bookmarks parses Netscape-format bookmark exports, the format
// every mainstream browser produces, and seeds the pipeline store from
// them.
package bookmarks

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Entry is one anchor from the export, before identity assignment.
type Entry struct {
	URL          string
	Title        string
	FolderPath   string
	AddedAt      time.Time
	LastModified time.Time
}

// Parse reads a Netscape bookmark export. The format is loose tag soup;
// the html parser normalizes it into a tree we can walk, so anchors are
// collected by selector rather than by grammar.
func Parse(r io.Reader) ([]Entry, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse bookmark export: %w", err)
	}

	var entries []Entry
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}
		entries = append(entries, Entry{
			URL:          href,
			Title:        strings.TrimSpace(sel.Text()),
			FolderPath:   folderPath(sel),
			AddedAt:      unixAttr(sel, "add_date"),
			LastModified: unixAttr(sel, "last_modified"),
		})
	})
	return entries, nil
}

// folderPath reconstructs the folder hierarchy from the anchor's
// ancestors. Exports nest each folder as an h3 heading followed by a dl
// list; walking ancestor dl elements root-to-leaf rebuilds the path.
func folderPath(sel *goquery.Selection) string {
	var names []string
	sel.ParentsFiltered("dl").Each(func(_ int, dl *goquery.Selection) {
		name := headingFor(dl)
		if name != "" {
			// Parents come leaf-to-root; prepend to build root-to-leaf.
			names = append([]string{name}, names...)
		}
	})
	return strings.Join(names, "/")
}

// headingFor finds the h3 that labels a dl, tolerating both strict
// nesting (dt > h3 + dl) and the flattened tree the html parser builds
// from unclosed tags.
func headingFor(dl *goquery.Selection) string {
	if h := dl.PrevFiltered("h3"); h.Length() > 0 {
		return strings.TrimSpace(h.First().Text())
	}
	if h := dl.Parent().ChildrenFiltered("h3"); h.Length() > 0 {
		return strings.TrimSpace(h.First().Text())
	}
	return ""
}

// unixAttr reads a unix-seconds timestamp attribute, zero time when
// absent or malformed.
func unixAttr(sel *goquery.Selection, name string) time.Time {
	raw, ok := sel.Attr(name)
	if !ok {
		return time.Time{}
	}
	secs, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || secs <= 0 {
		return time.Time{}
	}
	return time.Unix(secs, 0).UTC()
}
