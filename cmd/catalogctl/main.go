// Command catalogctl runs maintenance jobs against the video store.
//
//	catalogctl process-qualities [--user @handle] [--video ID] [--max N] [--force] [--dry-run] [--sync]
//	catalogctl rebuild-cache
//	catalogctl jobs [--status PENDING|PROCESSING|DONE|FAILED] [--limit N]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hszk-dev/vidshelf/internal/app"
	"github.com/hszk-dev/vidshelf/internal/config"
	"github.com/hszk-dev/vidshelf/internal/domain/model"
	"github.com/hszk-dev/vidshelf/internal/usecase"
)

const usage = `usage: catalogctl <command> [flags]

commands:
  process-qualities   render or queue quality variants for stored videos
  rebuild-cache       rebuild the catalog snapshot
  jobs                list quality jobs by status
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return errors.New("missing command")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch args[0] {
	case "process-qualities":
		return processQualities(ctx, args[1:])
	case "rebuild-cache":
		return rebuildCache(ctx, args[1:])
	case "jobs":
		return listJobs(ctx, args[1:])
	case "-h", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func processQualities(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("process-qualities", flag.ContinueOnError)
	var opts usecase.BatchOptions
	fs.StringVar(&opts.User, "user", "", "only process this user (e.g. @alice)")
	fs.StringVar(&opts.VideoID, "video", "", "only process this video ID (requires --user)")
	fs.IntVar(&opts.MaxVideos, "max", 0, "stop after this many videos (0 = no limit)")
	fs.BoolVar(&opts.Force, "force", false, "re-render videos that already have variants")
	fs.BoolVar(&opts.DryRun, "dry-run", false, "list videos without processing them")
	fs.BoolVar(&opts.Sync, "sync", false, "transcode in this process instead of queueing")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if opts.Sync {
		if err := os.MkdirAll(cfg.Worker.TempDir, 0755); err != nil {
			return fmt.Errorf("failed to create temp directory: %w", err)
		}
	}

	deps, err := app.New(ctx, cfg, app.Options{Queue: !opts.Sync && !opts.DryRun})
	if err != nil {
		return err
	}
	defer deps.Close()

	result, err := deps.QualityBatch().Run(ctx, opts)
	if result != nil {
		mode := "queued"
		switch {
		case opts.DryRun:
			mode = "would process"
		case opts.Sync:
			mode = "processed"
		}
		fmt.Printf("considered=%d skipped=%d %s=%d failed=%d\n",
			result.Considered, result.Skipped, mode, result.Handled, result.Failed)
		for _, id := range result.VideoIDs {
			fmt.Println("  " + id)
		}
	}
	if err != nil {
		return err
	}
	if result.Failed > 0 {
		return fmt.Errorf("%d videos failed", result.Failed)
	}
	return nil
}

func rebuildCache(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("rebuild-cache", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	deps, err := app.New(ctx, cfg, app.Options{})
	if err != nil {
		return err
	}
	defer deps.Close()

	entries, err := deps.Catalog.Rebuild(ctx)
	if err != nil {
		return fmt.Errorf("rebuild catalog: %w", err)
	}
	fmt.Printf("catalog rebuilt: %d videos\n", len(entries))
	return nil
}

func listJobs(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("jobs", flag.ContinueOnError)
	status := fs.String("status", string(model.JobStatusFailed), "job status to list")
	limit := fs.Int("limit", 50, "maximum number of jobs")
	if err := fs.Parse(args); err != nil {
		return err
	}

	jobStatus := model.JobStatus(strings.ToUpper(*status))
	if !jobStatus.IsValid() {
		return fmt.Errorf("invalid status %q", *status)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	deps, err := app.New(ctx, cfg, app.Options{})
	if err != nil {
		return err
	}
	defer deps.Close()

	jobs, err := deps.Jobs.ListByStatus(ctx, jobStatus, *limit)
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}
	for _, j := range jobs {
		fmt.Printf("%s  %-10s  %s/%s  attempts=%d  updated=%s",
			j.ID, j.Status, j.UserID, j.VideoID, j.Attempts, j.UpdatedAt.Format(time.RFC3339))
		if j.LastError != "" {
			fmt.Printf("  error=%q", j.LastError)
		}
		fmt.Println()
	}
	fmt.Printf("%d jobs\n", len(jobs))
	return nil
}
