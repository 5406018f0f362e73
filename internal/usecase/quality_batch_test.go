package usecase

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/hszk-dev/vidshelf/internal/domain/model"
	"github.com/hszk-dev/vidshelf/internal/domain/repository"
)

type qualityServiceFunc func(ctx context.Context, task repository.QualityTask) error

func (f qualityServiceFunc) ProcessTask(ctx context.Context, task repository.QualityTask) error {
	return f(ctx, task)
}

type batchFixture struct {
	store *recordStore
	jobs  *mockJobRepository
	queue *mockMessageQueue
}

// newBatchFixture stores three videos: two for @alice (one already rendered) and one for @bob.
func newBatchFixture(t *testing.T) *batchFixture {
	t.Helper()
	f := &batchFixture{
		store: newTestStore(t, newMemStorage(), nil),
		jobs:  newMockJobRepository(),
		queue: &mockMessageQueue{},
	}

	f.store.now = fixedClock(time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC))
	putTestVideo(t, f.store, "@alice", "new.mp4", "New")
	f.store.now = fixedClock(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	done := putTestVideo(t, f.store, "@alice", "done.mp4", "Done")
	f.store.now = fixedClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	putTestVideo(t, f.store, "@bob", "cats.mp4", "Cats")

	record, _ := f.store.GetVideo(context.Background(), "@alice", done)
	_ = record.MergeVariants(map[string]model.QualityVariant{"480p": {Path: "x"}})
	if err := f.store.SaveVideo(context.Background(), record); err != nil {
		t.Fatalf("SaveVideo() error = %v", err)
	}
	return f
}

func (f *batchFixture) batch(service QualityService) *QualityBatch {
	dispatcher := NewQualityDispatcher(f.store, f.jobs, f.queue)
	return NewQualityBatch(f.store, f.jobs, dispatcher, service)
}

func TestQualityBatch_Run(t *testing.T) {
	tests := []struct {
		name          string
		opts          BatchOptions
		want          BatchResult
		wantPublished int
	}{
		{
			name: "dry run over all users",
			opts: BatchOptions{DryRun: true},
			want: BatchResult{
				Considered: 3, Skipped: 1, Handled: 2,
				VideoIDs: []string{"2024-01-03_new", "2024-01-01_cats"},
			},
		},
		{
			name: "dry run with force",
			opts: BatchOptions{DryRun: true, Force: true, User: "@alice"},
			want: BatchResult{
				Considered: 2, Handled: 2,
				VideoIDs: []string{"2024-01-03_new", "2024-01-02_done"},
			},
		},
		{
			name: "queued",
			opts: BatchOptions{},
			want: BatchResult{
				Considered: 3, Skipped: 1, Handled: 2,
				VideoIDs: []string{"2024-01-03_new", "2024-01-01_cats"},
			},
			wantPublished: 2,
		},
		{
			name: "max videos",
			opts: BatchOptions{MaxVideos: 1},
			want: BatchResult{
				Considered: 1, Handled: 1,
				VideoIDs: []string{"2024-01-03_new"},
			},
			wantPublished: 1,
		},
		{
			name: "single video",
			opts: BatchOptions{User: "@bob", VideoID: "2024-01-01_cats"},
			want: BatchResult{
				Considered: 1, Handled: 1,
				VideoIDs: []string{"2024-01-01_cats"},
			},
			wantPublished: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newBatchFixture(t)

			got, err := f.batch(nil).Run(context.Background(), tt.opts)
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if !reflect.DeepEqual(*got, tt.want) {
				t.Errorf("Run() = %+v, want %+v", *got, tt.want)
			}
			if len(f.queue.published) != tt.wantPublished {
				t.Errorf("published %d tasks, want %d", len(f.queue.published), tt.wantPublished)
			}
		})
	}
}

func TestQualityBatch_Run_Sync(t *testing.T) {
	f := newBatchFixture(t)

	var processed []string
	service := qualityServiceFunc(func(ctx context.Context, task repository.QualityTask) error {
		processed = append(processed, task.VideoID)
		if task.VideoID == "2024-01-01_cats" {
			return errors.New("transcode failed")
		}
		job, err := f.jobs.GetByID(ctx, task.JobID)
		if err != nil {
			return err
		}
		_ = job.TransitionTo(model.JobStatusProcessing)
		_ = job.TransitionTo(model.JobStatusDone)
		return f.jobs.Update(ctx, job)
	})

	got, err := f.batch(service).Run(context.Background(), BatchOptions{Sync: true})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got.Handled != 1 || got.Failed != 1 || got.Skipped != 1 {
		t.Errorf("Run() = %+v", *got)
	}
	if len(f.queue.published) != 0 {
		t.Error("sync mode must not publish")
	}
	if !reflect.DeepEqual(processed, []string{"2024-01-03_new", "2024-01-01_cats"}) {
		t.Errorf("processed = %v", processed)
	}

	statuses := map[string]model.JobStatus{}
	for _, job := range f.jobs.jobs {
		statuses[job.VideoID] = job.Status
	}
	if statuses["2024-01-03_new"] != model.JobStatusDone {
		t.Errorf("new status = %s, want DONE", statuses["2024-01-03_new"])
	}
	if statuses["2024-01-01_cats"] != model.JobStatusFailed {
		t.Errorf("cats status = %s, want FAILED", statuses["2024-01-01_cats"])
	}
}

func TestQualityBatch_Run_Errors(t *testing.T) {
	f := newBatchFixture(t)

	tests := []struct {
		name    string
		batch   *QualityBatch
		opts    BatchOptions
		wantErr error
	}{
		{
			name:  "video without user",
			batch: f.batch(nil),
			opts:  BatchOptions{VideoID: "2024-01-01_cats"},
		},
		{
			name:  "sync without service",
			batch: f.batch(nil),
			opts:  BatchOptions{Sync: true},
		},
		{
			name:  "queued without dispatcher",
			batch: NewQualityBatch(f.store, f.jobs, nil, nil),
			opts:  BatchOptions{},
		},
		{
			name:    "unknown video",
			batch:   f.batch(nil),
			opts:    BatchOptions{User: "@bob", VideoID: "missing"},
			wantErr: repository.ErrVideoNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.batch.Run(context.Background(), tt.opts)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestQualityBatch_Run_CancelledContext(t *testing.T) {
	f := newBatchFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.batch(nil).Run(ctx, BatchOptions{DryRun: true})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
