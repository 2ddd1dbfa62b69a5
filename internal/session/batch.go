package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	apperrors "github.com/jwhitmore/gallery-sync/internal/errors"
	"github.com/jwhitmore/gallery-sync/gallery"
)

// BatchState names a phase of the batch-processing state machine.
type BatchState string

const (
	BatchIdle                BatchState = "idle"
	BatchSubmitting          BatchState = "submitting"
	BatchInFlight            BatchState = "in_flight"
	BatchCompleted           BatchState = "completed"
	BatchCompletedWithErrors BatchState = "completed_with_errors"
	BatchFailed              BatchState = "failed"
)

// terminal reports whether the state machine has finished the current job.
func (s BatchState) terminal() bool {
	return s == BatchCompleted || s == BatchCompletedWithErrors || s == BatchFailed
}

// BatchJob is a progress snapshot of the current or last batch job,
// exposed for UI polling.
type BatchJob struct {
	State     BatchState
	Requested []string
	LocalIDs  []int64
	Total     int
	Processed int
	Failed    int
}

// BatchCoordinator drives one batch job at a time through
// idle → submitting → in_flight → {completed | completed_with_errors | failed}.
// Terminal states are left only by a new Submit. After any terminal state
// the coordinator reloads the current listing, because the server is the
// only source of truth for per-photo status.
type BatchCoordinator struct {
	client     DirectoryClient
	onProgress func(processed, total int)
	reload     func(ctx context.Context) error
	logger     *slog.Logger

	mu  sync.Mutex
	job BatchJob
}

// NewBatchCoordinator creates an idle coordinator. onProgress may be nil;
// reload is invoked after every terminal state.
func NewBatchCoordinator(client DirectoryClient, onProgress func(processed, total int), reload func(ctx context.Context) error, logger *slog.Logger) *BatchCoordinator {
	return &BatchCoordinator{
		client:     client,
		onProgress: onProgress,
		reload:     reload,
		logger:     logger,
		job:        BatchJob{State: BatchIdle},
	}
}

// Submit runs a batch job over the given processing-database ids.
// requested carries the remote ids for reporting. Empty input is refused
// with no state change, as is a submit while a job is still running.
func (c *BatchCoordinator) Submit(ctx context.Context, requested []string, localIDs []int64) (*gallery.BatchResult, error) {
	if len(localIDs) == 0 {
		return nil, fmt.Errorf("%w: empty submission", apperrors.ErrBatchRefused)
	}

	c.mu.Lock()
	if c.job.State == BatchSubmitting || c.job.State == BatchInFlight {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: a batch job is already running", apperrors.ErrBatchRefused)
	}

	c.job = BatchJob{
		State:     BatchSubmitting,
		Requested: append([]string(nil), requested...),
		LocalIDs:  append([]int64(nil), localIDs...),
		Total:     len(localIDs),
	}
	c.mu.Unlock()

	// The status update is advisory UI state, not authoritative: a
	// failure here is logged and the job proceeds.
	if err := c.client.UpdatePhotoStatus(ctx, localIDs, gallery.StatusProcessing); err != nil {
		c.logger.Warn("status update failed, continuing",
			slog.Int("photos", len(localIDs)),
			slog.String("error", err.Error()),
		)
	}

	c.setState(BatchInFlight)
	c.notifyProgress(0, len(localIDs))

	res, err := c.client.SubmitBatch(ctx, localIDs)
	if err != nil {
		// No authoritative result at all, as opposed to a partial one.
		c.setState(BatchFailed)
		c.reloadAfterTerminal(ctx)

		return nil, fmt.Errorf("%w: %v", apperrors.ErrBatchFailed, err)
	}

	total, processed := res.Total, res.Processed
	if processed > total {
		c.logger.Warn("server reported processed above total, clamping",
			slog.Int("processed", processed),
			slog.Int("total", total),
		)
		processed = total
	}

	c.mu.Lock()
	c.job.Total = total
	c.job.Processed = processed
	c.job.Failed = total - processed

	if processed == total {
		c.job.State = BatchCompleted
	} else {
		c.job.State = BatchCompletedWithErrors
	}

	state := c.job.State
	failed := c.job.Failed
	c.mu.Unlock()

	c.notifyProgress(processed, total)

	c.logger.Info("batch finished",
		slog.String("state", string(state)),
		slog.Int("processed", processed),
		slog.Int("total", total),
		slog.Int("failed", failed),
	)

	c.reloadAfterTerminal(ctx)

	return &gallery.BatchResult{Total: total, Processed: processed}, nil
}

// Job returns a snapshot of the current or last job.
func (c *BatchCoordinator) Job() BatchJob {
	c.mu.Lock()
	defer c.mu.Unlock()

	job := c.job
	job.Requested = append([]string(nil), c.job.Requested...)
	job.LocalIDs = append([]int64(nil), c.job.LocalIDs...)

	return job
}

// Progress returns the current processed/total counts.
func (c *BatchCoordinator) Progress() (processed, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.job.Processed, c.job.Total
}

func (c *BatchCoordinator) setState(s BatchState) {
	c.mu.Lock()
	c.job.State = s
	c.mu.Unlock()
}

func (c *BatchCoordinator) notifyProgress(processed, total int) {
	if c.onProgress != nil {
		c.onProgress(processed, total)
	}
}

// reloadAfterTerminal refreshes the current photo collection and the
// owning node's aggregate counts. Failures are logged: the job outcome
// already reached the caller and the next navigation self-corrects.
func (c *BatchCoordinator) reloadAfterTerminal(ctx context.Context) {
	if c.reload == nil {
		return
	}

	if err := c.reload(ctx); err != nil {
		c.logger.Warn("reload after batch failed", slog.String("error", err.Error()))
	}
}
