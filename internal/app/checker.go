package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/signed-book-watch/internal/config"
	"github.com/samvad-hq/signed-book-watch/internal/crawler"
	"github.com/samvad-hq/signed-book-watch/internal/diff"
	"github.com/samvad-hq/signed-book-watch/internal/domain"
	"github.com/samvad-hq/signed-book-watch/internal/logger"
	"github.com/samvad-hq/signed-book-watch/internal/normalize"
	"github.com/samvad-hq/signed-book-watch/internal/report"
	"github.com/samvad-hq/signed-book-watch/internal/snapshot"
	"github.com/samvad-hq/signed-book-watch/internal/storage"
	"github.com/samvad-hq/signed-book-watch/pkg/httpclient"
	"github.com/samvad-hq/signed-book-watch/pkg/publishers"
)

// ErrNoTitlesFound is returned when the page yields no signed titles. No
// artifact is written in that case.
var ErrNoTitlesFound = errors.New("no signed titles found")

// Options selects where a check writes its artifacts. Exactly one of Output
// and OutputDir must be set; the other paths are optional.
type Options struct {
	Output     string
	OutputDir  string
	Latest     string
	Previous   string
	Diff       string
	IssueBody  string
	IssueTitle string
}

func (o Options) validate() error {
	hasOutput := strings.TrimSpace(o.Output) != ""
	hasDir := strings.TrimSpace(o.OutputDir) != ""
	switch {
	case hasOutput && hasDir:
		return fmt.Errorf("output and output dir are mutually exclusive")
	case !hasOutput && !hasDir:
		return fmt.Errorf("one of output or output dir is required")
	}
	return nil
}

// Result describes a completed check.
type Result struct {
	Snapshot     domain.Snapshot
	SnapshotPath string
	Diff         domain.Diff
	IssueTitle   string
	Changed      bool
	Published    int
}

// Checker runs one fetch, snapshot and diff pass against the store page.
type Checker struct {
	sourceURL string
	crawl     *crawler.Service
	store     storage.Store
	fanout    *publishers.Fanout
	log       logger.Logger
	now       func() time.Time
}

// NewChecker builds a checker runtime from config.
func NewChecker(ctx context.Context, cfg *config.Config, log logger.Logger) (*Checker, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)
	if ctx == nil {
		ctx = context.Background()
	}

	scanner, err := crawler.NewScanner(cfg.Parser)
	if err != nil {
		return nil, fmt.Errorf("init scanner: %w", err)
	}
	client := httpclient.NewRestyClient(httpclient.Options{Timeout: cfg.FetchTimeout, UserAgent: cfg.UserAgent})
	fetcher := crawler.NewPageFetcher(client, cfg.UserAgent)
	crawlService := crawler.NewService(fetcher, crawler.NewExtractor(scanner), normalize.New(normalize.Options{}), log)

	fanout, err := buildFanout(ctx, cfg.PublishersFile, log)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storage.Options{
		SnapshotTTL:     cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	})
	if err != nil {
		_ = fanout.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"snapshot_ttl_seconds":     int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	return &Checker{
		sourceURL: cfg.SourceURL,
		crawl:     crawlService,
		store:     store,
		fanout:    fanout,
		log:       log,
		now:       time.Now,
	}, nil
}

// buildFanout loads the optional publishers file. No file means no publishers.
func buildFanout(ctx context.Context, path string, log logger.Logger) (*publishers.Fanout, error) {
	if strings.TrimSpace(path) == "" {
		return publishers.NewFanout(nil, log), nil
	}

	file, err := publishers.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load publishers: %w", err)
	}
	enabled := file.Enabled()
	pubs, err := publishers.DefaultBuilders().BuildAll(ctx, enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]string{"id": pubCfg.ID, "type": pubCfg.Type})
	}
	log.InfoObj("publishers loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(pubs, log), nil
}

// Check performs a single pass and writes the requested artifacts.
func (c *Checker) Check(ctx context.Context, opts Options) (*Result, error) {
	if c == nil || c.crawl == nil {
		return nil, fmt.Errorf("checker is not initialized")
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	now := c.now().UTC().Truncate(time.Second)
	snap := domain.Snapshot{
		SourceURL: c.sourceURL,
		Timestamp: now.Format(domain.TimestampLayout),
	}

	titles, err := c.crawl.Collect(ctx, c.sourceURL)
	if err != nil {
		return nil, err
	}
	if len(titles) == 0 {
		return nil, ErrNoTitlesFound
	}
	snap.Titles = titles

	outPath := opts.Output
	if strings.TrimSpace(outPath) == "" {
		outPath = snapshot.PathFor(opts.OutputDir, now)
	}
	if err := snapshot.WriteJSON(outPath, snap); err != nil {
		return nil, fmt.Errorf("write snapshot: %w", err)
	}
	if opts.Latest != "" {
		if err := snapshot.WriteJSON(opts.Latest, snap); err != nil {
			return nil, fmt.Errorf("write latest snapshot: %w", err)
		}
	}
	// The history baseline must be read before this run is recorded.
	previous, err := c.previousTitles(opts.Previous)
	if err != nil {
		return nil, err
	}
	if err := c.store.SaveSnapshot(snap); err != nil {
		return nil, fmt.Errorf("record snapshot history: %w", err)
	}

	changes := diff.Compute(previous, titles)
	d := domain.Diff{
		Added:     changes.Added,
		Current:   titles,
		Previous:  previous,
		Removed:   changes.Removed,
		Timestamp: snap.Timestamp,
	}
	title, changed := report.Title(changes.Added, changes.Removed)
	body := report.Body(titles, changes.Added, changes.Removed)

	if opts.Diff != "" {
		if err := snapshot.WriteJSON(opts.Diff, d); err != nil {
			return nil, fmt.Errorf("write diff: %w", err)
		}
	}
	if opts.IssueBody != "" {
		if err := snapshot.WriteText(opts.IssueBody, body); err != nil {
			return nil, fmt.Errorf("write issue body: %w", err)
		}
	}
	if opts.IssueTitle != "" {
		if err := snapshot.WriteText(opts.IssueTitle, title+"\n"); err != nil {
			return nil, fmt.Errorf("write issue title: %w", err)
		}
	}

	res := &Result{
		Snapshot:     snap,
		SnapshotPath: outPath,
		Diff:         d,
		IssueTitle:   title,
		Changed:      changed,
	}
	c.log.InfoObj("check completed", "check_result", map[string]any{
		"snapshot": outPath,
		"titles":   len(titles),
		"added":    len(changes.Added),
		"removed":  len(changes.Removed),
	})

	if !changed || c.fanout.Size() == 0 {
		return res, nil
	}
	published, err := c.fanout.Publish(ctx, publishers.NewEvent(snap, d, title, body))
	res.Published = published
	if err != nil {
		c.log.ErrorObj("publish failed", "error", err)
		return res, fmt.Errorf("publish change notification: %w", err)
	}
	return res, nil
}

// previousTitles returns the baseline to diff against: the explicit path if
// given, else the most recent recorded snapshot, else nothing.
func (c *Checker) previousTitles(path string) ([]string, error) {
	if path != "" {
		titles, err := snapshot.LoadTitles(path)
		if err != nil {
			return nil, fmt.Errorf("load previous snapshot: %w", err)
		}
		return titles, nil
	}
	if !storage.Enabled(c.store) {
		return []string{}, nil
	}

	prev, ok, err := c.store.LatestSnapshot()
	if err != nil {
		return nil, fmt.Errorf("load snapshot history: %w", err)
	}
	if !ok || prev.Titles == nil {
		return []string{}, nil
	}
	c.log.DebugObj("using recorded snapshot as baseline", "baseline", prev.Timestamp)
	return prev.Titles, nil
}

// Close releases the history store and publishers.
func (c *Checker) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
	}
	if err := c.fanout.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close publishers: %w", err))
	}
	return errors.Join(errs...)
}
