package domain

import "golang.org/x/text/cases"

// Domain contains core models shared by the pipeline stages.

// Snapshot is the persisted result of one check. Fields are declared in
// alphabetical key order so the encoded JSON object has sorted keys.
type Snapshot struct {
	SourceURL string   `json:"source_url"`
	Timestamp string   `json:"timestamp"`
	Titles    []string `json:"titles"`
}

// Diff is the change report between two title lists. Same key-order rule as Snapshot.
type Diff struct {
	Added     []string `json:"added"`
	Current   []string `json:"current"`
	Previous  []string `json:"previous"`
	Removed   []string `json:"removed"`
	Timestamp string   `json:"timestamp"`
}

// TimestampLayout is the snapshot timestamp format (UTC, second precision).
const TimestampLayout = "2006-01-02T15:04:05Z"

// FoldKey returns the case-folded identity of a title.
func FoldKey(title string) string {
	return cases.Fold().String(title)
}
