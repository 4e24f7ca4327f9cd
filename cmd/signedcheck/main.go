package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samvad-hq/signed-book-watch/internal/app"
	"github.com/samvad-hq/signed-book-watch/internal/config"
	"github.com/samvad-hq/signed-book-watch/internal/logger"
	"github.com/spf13/cobra"
)

const (
	exitFailure  = 1
	exitNoTitles = 2
)

func main() {
	os.Exit(execute(os.Args[1:]))
}

func execute(args []string) int {
	cmd := newRootCommand()
	cmd.SetArgs(args)
	err := cmd.Execute()
	switch {
	case err == nil:
		return 0
	case errors.Is(err, app.ErrNoTitlesFound):
		fmt.Fprintln(os.Stderr, "No signed titles found; refusing to write empty snapshot.")
		return exitNoTitles
	default:
		fmt.Fprintf(os.Stderr, "signed check failed: %v\n", err)
		return exitFailure
	}
}

func newRootCommand() *cobra.Command {
	var opts app.Options
	cmd := &cobra.Command{
		Use:           "signedcheck",
		Short:         "Snapshot the signed titles listed on the store search page and report changes",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.Output, "output", "", "path to write the snapshot JSON")
	flags.StringVar(&opts.OutputDir, "output-dir", "", "directory to write a timestamp-named snapshot JSON")
	flags.StringVar(&opts.Latest, "latest", "", "optional path to also write the snapshot as the latest copy")
	flags.StringVar(&opts.Previous, "previous", "", "optional previous snapshot to diff against")
	flags.StringVar(&opts.Diff, "diff", "", "optional path to write the diff JSON")
	flags.StringVar(&opts.IssueBody, "issue-body", "", "optional path to write the markdown issue body")
	flags.StringVar(&opts.IssueTitle, "issue-title", "", "optional path to write the issue title")
	cmd.MarkFlagsMutuallyExclusive("output", "output-dir")
	cmd.MarkFlagsOneRequired("output", "output-dir")

	return cmd
}

func run(parent context.Context, opts app.Options) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.DebugObj("signed check starting", "config", cfg)

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checker, err := app.NewChecker(ctx, cfg, log)
	if err != nil {
		logger.ErrorObj("failed to initialize checker", "error", err)
		return err
	}
	defer func() {
		if err := checker.Close(); err != nil {
			logger.ErrorObj("checker close failed", "error", err)
		}
	}()

	res, err := checker.Check(ctx, opts)
	if err != nil {
		if !errors.Is(err, app.ErrNoTitlesFound) {
			logger.ErrorObj("signed check failed", "error", err)
		}
		return err
	}

	fmt.Fprintf(os.Stdout, "Wrote %s (%d signed titles)\n", res.SnapshotPath, len(res.Snapshot.Titles))
	return nil
}
