package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/samvad-hq/signed-book-watch/internal/config"
	"github.com/samvad-hq/signed-book-watch/internal/crawler"
	"github.com/samvad-hq/signed-book-watch/internal/logger"
	"github.com/samvad-hq/signed-book-watch/internal/snapshot"
	"github.com/samvad-hq/signed-book-watch/pkg/publishers"
)

const searchPage = `<html><body>
<a href="/products/elantris-signed" title="Elantris Signed &amp; Numbered">Elantris</a>
<a href="/products/elantris-signed-dup" title="ELANTRIS SIGNED &amp; NUMBERED">dup</a>
<a href="/products/warbreaker" title="Warbreaker Signed">Warbreaker</a>
<a href="/collections/elantris" title="Elantris Collection">not a product</a>
<a href="/products/elantris-leather" title="  Elantris   Leatherbound ">Leather</a>
</body></html>`

var fixedNow = time.Date(2024, 5, 1, 12, 30, 45, 123, time.UTC)

func newPageServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(sourceURL string) *config.Config {
	return &config.Config{
		SourceURL:    sourceURL,
		UserAgent:    "signed-check-test",
		FetchTimeout: 5 * time.Second,
		Parser:       config.ParserDOM,
		StorageType:  "none",
	}
}

func newTestChecker(t *testing.T, cfg *config.Config) *Checker {
	t.Helper()
	c, err := NewChecker(context.Background(), cfg, logger.NopLogger{})
	if err != nil {
		t.Fatalf("NewChecker: %v", err)
	}
	c.now = func() time.Time { return fixedNow }
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(raw)
}

func TestCheckFirstRunWritesAllArtifacts(t *testing.T) {
	srv := newPageServer(t, http.StatusOK, searchPage)
	c := newTestChecker(t, testConfig(srv.URL))
	dir := t.TempDir()

	opts := Options{
		OutputDir:  filepath.Join(dir, "snapshots"),
		Latest:     filepath.Join(dir, "latest.json"),
		Previous:   filepath.Join(dir, "missing.json"),
		Diff:       filepath.Join(dir, "diff.json"),
		IssueBody:  filepath.Join(dir, "issue.md"),
		IssueTitle: filepath.Join(dir, "title.txt"),
	}
	res, err := c.Check(context.Background(), opts)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}

	wantTitles := []string{"Elantris Leatherbound", "Elantris Signed & Numbered"}
	if diff := cmp.Diff(wantTitles, res.Snapshot.Titles); diff != "" {
		t.Fatalf("titles mismatch (-want +got):\n%s", diff)
	}
	if res.Snapshot.Timestamp != "2024-05-01T12:30:45Z" {
		t.Fatalf("unexpected timestamp %q", res.Snapshot.Timestamp)
	}
	wantPath := filepath.Join(dir, "snapshots", "2024-05-01T12-30-45Z.json")
	if res.SnapshotPath != wantPath {
		t.Fatalf("unexpected snapshot path %q", res.SnapshotPath)
	}
	if readFile(t, wantPath) != readFile(t, opts.Latest) {
		t.Fatalf("latest copy differs from snapshot")
	}

	var d struct {
		Added    []string `json:"added"`
		Previous []string `json:"previous"`
		Removed  []string `json:"removed"`
	}
	if err := json.Unmarshal([]byte(readFile(t, opts.Diff)), &d); err != nil {
		t.Fatalf("decode diff: %v", err)
	}
	if diff := cmp.Diff(wantTitles, d.Added); diff != "" {
		t.Fatalf("added mismatch (-want +got):\n%s", diff)
	}
	if d.Previous == nil || len(d.Previous) != 0 || d.Removed == nil || len(d.Removed) != 0 {
		t.Fatalf("expected empty previous and removed lists, got %#v", d)
	}

	if got := readFile(t, opts.IssueTitle); got != "New signed book - multiple\n" {
		t.Fatalf("unexpected issue title %q", got)
	}
	wantBody := "Added:\n" +
		"- **Elantris Leatherbound**\n" +
		"- **Elantris Signed & Numbered**\n" +
		"\n" +
		"Current signed titles:\n" +
		"- **Elantris Leatherbound**\n" +
		"- **Elantris Signed & Numbered**\n"
	if diff := cmp.Diff(wantBody, readFile(t, opts.IssueBody)); diff != "" {
		t.Fatalf("issue body mismatch (-want +got):\n%s", diff)
	}
	if !res.Changed {
		t.Fatalf("expected change on first run")
	}
}

func TestCheckUnchangedWritesEmptyTitle(t *testing.T) {
	srv := newPageServer(t, http.StatusOK, searchPage)
	c := newTestChecker(t, testConfig(srv.URL))
	dir := t.TempDir()

	prev := filepath.Join(dir, "prev.json")
	seed := `{"titles": ["elantris leatherbound", "Elantris Signed &amp; Numbered", "Elantris Signed & Numbered"]}`
	if err := os.WriteFile(prev, []byte(seed), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	opts := Options{
		Output:     filepath.Join(dir, "out.json"),
		Previous:   prev,
		IssueTitle: filepath.Join(dir, "title.txt"),
	}
	res, err := c.Check(context.Background(), opts)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	// The previous file carries a stale entity-encoded spelling, reported as removed.
	if diff := cmp.Diff([]string{"Elantris Signed &amp; Numbered"}, res.Diff.Removed); diff != "" {
		t.Fatalf("removed mismatch (-want +got):\n%s", diff)
	}
	if got := readFile(t, opts.IssueTitle); got != "Removed signed book - Elantris Signed &amp; Numbered\n" {
		t.Fatalf("unexpected issue title %q", got)
	}

	if err := os.WriteFile(prev, []byte(readFile(t, opts.Output)), 0o644); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	res, err = c.Check(context.Background(), opts)
	if err != nil {
		t.Fatalf("second Check: %v", err)
	}
	if res.Changed {
		t.Fatalf("expected no change, got %#v", res.Diff)
	}
	if got := readFile(t, opts.IssueTitle); got != "\n" {
		t.Fatalf("expected empty issue title, got %q", got)
	}
}

func TestCheckNoTitlesWritesNothing(t *testing.T) {
	srv := newPageServer(t, http.StatusOK, `<a href="/products/mistborn" title="Mistborn Signed">x</a>`)
	c := newTestChecker(t, testConfig(srv.URL))
	dir := filepath.Join(t.TempDir(), "snapshots")

	_, err := c.Check(context.Background(), Options{OutputDir: dir})
	if !errors.Is(err, ErrNoTitlesFound) {
		t.Fatalf("expected ErrNoTitlesFound, got %v", err)
	}
	if _, statErr := os.Stat(dir); !os.IsNotExist(statErr) {
		t.Fatalf("expected no output directory, stat err=%v", statErr)
	}
}

func TestCheckFetchFailure(t *testing.T) {
	srv := newPageServer(t, http.StatusServiceUnavailable, "down")
	c := newTestChecker(t, testConfig(srv.URL))
	out := filepath.Join(t.TempDir(), "out.json")

	_, err := c.Check(context.Background(), Options{Output: out})
	var netErr *crawler.NetworkError
	if !errors.As(err, &netErr) || netErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected NetworkError with 503, got %v", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatalf("expected no snapshot on fetch failure")
	}
}

func TestCheckMalformedPrevious(t *testing.T) {
	srv := newPageServer(t, http.StatusOK, searchPage)
	c := newTestChecker(t, testConfig(srv.URL))
	dir := t.TempDir()
	prev := filepath.Join(dir, "prev.json")
	if err := os.WriteFile(prev, []byte(`{"titles": [`), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err := c.Check(context.Background(), Options{Output: filepath.Join(dir, "out.json"), Previous: prev})
	var malformed *snapshot.MalformedSnapshotError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedSnapshotError, got %v", err)
	}
}

func TestCheckRejectsInvalidOptions(t *testing.T) {
	srv := newPageServer(t, http.StatusOK, searchPage)
	c := newTestChecker(t, testConfig(srv.URL))

	if _, err := c.Check(context.Background(), Options{}); err == nil {
		t.Fatalf("expected error without output")
	}
	if _, err := c.Check(context.Background(), Options{Output: "a.json", OutputDir: "dir"}); err == nil {
		t.Fatalf("expected error with both output flags")
	}
}

func TestCheckUsesHistoryBaseline(t *testing.T) {
	srv := newPageServer(t, http.StatusOK, searchPage)
	dir := t.TempDir()
	cfg := testConfig(srv.URL)
	cfg.StorageType = "bbolt"
	cfg.BBoltPath = filepath.Join(dir, "data", "history.db")

	first, err := NewChecker(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewChecker: %v", err)
	}
	first.now = func() time.Time { return fixedNow }
	res, err := first.Check(context.Background(), Options{OutputDir: dir})
	if err != nil {
		t.Fatalf("first Check: %v", err)
	}
	if !res.Changed {
		t.Fatalf("expected first run to report additions")
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second := newTestChecker(t, cfg)
	second.now = func() time.Time { return fixedNow.Add(time.Hour) }
	res, err = second.Check(context.Background(), Options{OutputDir: dir})
	if err != nil {
		t.Fatalf("second Check: %v", err)
	}
	if res.Changed {
		t.Fatalf("expected recorded snapshot to be the baseline, got %#v", res.Diff)
	}
}

func TestCheckPublishesOnChange(t *testing.T) {
	page := newPageServer(t, http.StatusOK, searchPage)

	var (
		mu     sync.Mutex
		events []publishers.Event
	)
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var evt publishers.Event
		if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
			t.Errorf("decode event: %v", err)
		}
		mu.Lock()
		events = append(events, evt)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer hook.Close()

	dir := t.TempDir()
	pubFile := filepath.Join(dir, "publishers.yaml")
	raw := "publishers:\n  - id: hook\n    type: http\n    http:\n      url: " + hook.URL + "\n"
	if err := os.WriteFile(pubFile, []byte(raw), 0o644); err != nil {
		t.Fatalf("write publishers: %v", err)
	}
	cfg := testConfig(page.URL)
	cfg.PublishersFile = pubFile
	c := newTestChecker(t, cfg)

	out := filepath.Join(dir, "out.json")
	res, err := c.Check(context.Background(), Options{Output: out})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res.Published != 1 {
		t.Fatalf("expected one publisher to succeed, got %d", res.Published)
	}

	// Same page against its own snapshot: nothing to publish.
	if _, err := c.Check(context.Background(), Options{Output: out, Previous: out}); err != nil {
		t.Fatalf("second Check: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 1 {
		t.Fatalf("expected exactly one event, got %d", len(events))
	}
	if events[0].Type != publishers.EventTypeTitlesChanged || events[0].Title != "New signed book - multiple" {
		t.Fatalf("unexpected event %+v", events[0])
	}
}
