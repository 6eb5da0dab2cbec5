package domain

import (
	"fmt"
	"time"
)

// Metrics holds the public engagement counts attached to a harvested post.
type Metrics struct {
	Likes    int `json:"likes"`
	Reshares int `json:"reshares"`
	Replies  int `json:"replies"`
	Quotes   int `json:"quotes"`
}

// HarvestItem is one harvested post with its engagement metadata. Items are
// immutable once produced; the Score field is filled in by the ranker.
type HarvestItem struct {
	Category       Category  `json:"category"`
	ExternalID     string    `json:"external_id"`
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"created_at"`
	AuthorID       string    `json:"author_id"`
	AuthorUsername string    `json:"author_username"`
	AuthorVerified bool      `json:"author_verified"`
	Metrics        Metrics   `json:"metrics"`
	Score          float64   `json:"score"`
	SourceURL      string    `json:"source_url"`
}

// CategoryStatus records how a category fared in one run, so a consumer can
// tell "skipped for quota" apart from "fetched but empty" and "failed".
type CategoryStatus string

const (
	// StatusNotSelected means the rotation did not pick this category today.
	StatusNotSelected CategoryStatus = "not_selected"
	// StatusFetched means the fetch succeeded and yielded at least one item.
	StatusFetched CategoryStatus = "fetched"
	// StatusEmpty means the fetch succeeded but returned zero items.
	StatusEmpty CategoryStatus = "empty"
	// StatusSkippedQuota means the monthly ceiling left no room for a fetch.
	StatusSkippedQuota CategoryStatus = "skipped_quota"
	// StatusFailed means the fetch failed after retries or with a terminal error.
	StatusFailed CategoryStatus = "failed"
)

// CategoryResult pairs a category's run status with its ranked items.
type CategoryResult struct {
	Status CategoryStatus `json:"status"`
	Items  []HarvestItem  `json:"items"`
}

// RunResult is the complete output of one harvester invocation. It always
// carries every configured category as a key, whether or not it was covered.
type RunResult struct {
	Date       string                      `json:"date"`
	Selected   []Category                  `json:"selected"`
	Categories map[Category]CategoryResult `json:"categories"`
}

// NewRunResult builds a well-formed result with every category present and
// marked not-selected.
func NewRunResult(date string, categories []Category) RunResult {
	res := RunResult{
		Date:       date,
		Categories: make(map[Category]CategoryResult, len(categories)),
	}
	for _, c := range categories {
		res.Categories[c] = CategoryResult{Status: StatusNotSelected}
	}
	return res
}

// SetCategory records the outcome for one category.
func (r *RunResult) SetCategory(c Category, status CategoryStatus, items []HarvestItem) {
	r.Categories[c] = CategoryResult{Status: status, Items: items}
}

// TotalItems counts harvested items across all categories.
func (r RunResult) TotalItems() int {
	n := 0
	for _, cr := range r.Categories {
		n += len(cr.Items)
	}
	return n
}

// Covered lists the categories that yielded at least one item.
func (r RunResult) Covered() []Category {
	var out []Category
	for _, c := range r.Selected {
		if cr, ok := r.Categories[c]; ok && len(cr.Items) > 0 {
			out = append(out, c)
		}
	}
	return out
}

// DateKey formats a time as the calendar-day key used for rotation history
// and run snapshots.
func DateKey(t time.Time) string { return t.Format("2006-01-02") }

// MonthKey formats a time as the calendar-month key used by the quota ledger.
func MonthKey(t time.Time) string { return t.Format("2006-01") }

// PostURL builds the canonical source URL for a post.
func PostURL(username, id string) string {
	if username == "" {
		username = "unknown"
	}
	return fmt.Sprintf("https://twitter.com/%s/status/%s", username, id)
}
