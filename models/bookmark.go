// Package models defines the data structures shared across pipeline stages.
package models

import (
	"crypto/sha256"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"
)

// Status tracks how far a bookmark has advanced through the pipeline.
// It only ever moves forward; a failed bookmark keeps its last good stage
// in FailedStage and never rolls back.
type Status string

const (
	StatusPending      Status = "pending"
	StatusChecked      Status = "checked"
	StatusDownloaded   Status = "downloaded"
	StatusAnalyzed     Status = "analyzed"
	StatusCategorized  Status = "categorized"
	StatusDeduplicated Status = "deduplicated"
	StatusRecommended  Status = "recommended"
	StatusFailed       Status = "failed"
)

// LivenessState classifies the outcome of a URL probe.
type LivenessState string

const (
	LivenessReachable  LivenessState = "reachable"
	LivenessDead       LivenessState = "dead"
	LivenessRedirected LivenessState = "redirected"
	LivenessTLSError   LivenessState = "tls_error"
	LivenessTimeout    LivenessState = "timeout"
)

// Liveness holds the probe result for a bookmark's URL.
type Liveness struct {
	State      LivenessState `json:"state"`
	FinalURL   string        `json:"final_url,omitempty"`
	HTTPStatus int           `json:"http_status,omitempty"`
	LatencyMs  int64         `json:"latency_ms"`
	CheckedAt  time.Time     `json:"checked_at"`
}

// Content points at downloaded page bytes on disk.
type Content struct {
	Path      string    `json:"path"`
	SizeBytes int64     `json:"size_bytes"`
	MIMEType  string    `json:"mime_type,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Features holds the structured signals the analyzer derived from content.
type Features struct {
	Language           string   `json:"language,omitempty"`
	LanguageConfidence float64  `json:"language_confidence,omitempty"`
	ExtractedText      string   `json:"extracted_text,omitempty"`
	Keywords           []string `json:"keywords,omitempty"`
	QualityScore       float64  `json:"quality_score"`
	ContentType        string   `json:"content_type,omitempty"` // article, documentation, commercial, academic, forum, unknown
	PublishedAt        string   `json:"published_at,omitempty"` // ISO-8601 date when discoverable
	WordCount          int      `json:"word_count,omitempty"`
	ReadingTimeMin     float64  `json:"reading_time_min,omitempty"`
}

// Action is the final disposition assigned to a bookmark.
type Action string

const (
	ActionKeep    Action = "keep"
	ActionUpdate  Action = "update"
	ActionArchive Action = "archive"
	ActionDelete  Action = "delete"
	ActionReplace Action = "replace"
	ActionReview  Action = "review"
)

// Recommendation pairs an action with a human-readable rationale.
type Recommendation struct {
	Action    Action `json:"action"`
	Rationale string `json:"rationale"`
}

// Bookmark is the canonical record accumulated across stages. Fields are
// populated monotonically: each stage adds its block and never clears a
// predecessor's output.
type Bookmark struct {
	ID           string    `json:"id"`
	URL          string    `json:"url"`
	Title        string    `json:"title,omitempty"`
	FolderPath   string    `json:"folder_path,omitempty"`
	AddedAt      time.Time `json:"added_at,omitempty"`
	LastModified time.Time `json:"last_modified,omitempty"`

	Status         Status `json:"status"`
	LastGoodStatus Status `json:"last_good_status,omitempty"` // status before the failure, never rolled back
	FailedStage    string `json:"failed_stage,omitempty"`     // stage where the failure occurred
	FailureCause   string `json:"failure_cause,omitempty"`

	Liveness       *Liveness       `json:"liveness,omitempty"`
	Content        *Content        `json:"content,omitempty"`
	Features       *Features       `json:"features,omitempty"`
	Category       string          `json:"category,omitempty"`
	ClusterID      string          `json:"duplicate_cluster_id,omitempty"`
	Recommendation *Recommendation `json:"recommendation,omitempty"`
}

// MarkFailed records a per-bookmark failure without rolling the status back.
func (b *Bookmark) MarkFailed(stage, cause string) {
	if b.Status != StatusFailed {
		b.LastGoodStatus = b.Status
	}
	b.Status = StatusFailed
	b.FailedStage = stage
	b.FailureCause = cause
}

// Failed reports whether the bookmark dropped out of the pipeline.
func (b *Bookmark) Failed() bool { return b.Status == StatusFailed }

// TargetURL returns the URL downstream stages should fetch: the redirect
// target when the probe followed a chain, the original URL otherwise.
func (b *Bookmark) TargetURL() string {
	if b.Liveness != nil && b.Liveness.State == LivenessRedirected && b.Liveness.FinalURL != "" {
		return b.Liveness.FinalURL
	}
	return b.URL
}

// NormalizeURL produces the canonical form used for bookmark identity:
// scheme and host lowercased, default ports and trailing slash stripped,
// query keys sorted, fragment dropped.
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid URL: missing scheme or host in %q", rawURL)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	// Strip default ports
	if (u.Scheme == "http" && strings.HasSuffix(u.Host, ":80")) ||
		(u.Scheme == "https" && strings.HasSuffix(u.Host, ":443")) {
		u.Host = u.Host[:strings.LastIndex(u.Host, ":")]
	}

	u.Path = strings.TrimSuffix(u.Path, "/")

	if u.RawQuery != "" {
		params := u.Query()
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sorted := url.Values{}
		for _, k := range keys {
			for _, v := range params[k] {
				sorted.Add(k, v)
			}
		}
		u.RawQuery = sorted.Encode()
	}

	u.Fragment = ""
	return u.String(), nil
}

// BookmarkID derives the stable identity for a URL. Two exports containing
// the same URL, in any order, always map to the same record.
func BookmarkID(rawURL string) (string, error) {
	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		return "", err
	}
	hash := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", hash[:6]), nil
}
