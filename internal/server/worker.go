package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/trxcc/universal-offline-bbo/internal/engine"
	"github.com/trxcc/universal-offline-bbo/internal/store"
)

// runJob executes an optimization job in the background. The result
// is persisted through resultStore when one is configured.
func runJob(ctx context.Context, jm *JobManager, resultStore store.Store, baseDir, jobID string) error {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}

	if err := jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateRunning
	}); err != nil {
		return err
	}

	slog.Info("Starting job",
		"job_id", jobID, "task", job.Config.TaskName, "algorithm", job.Config.Algorithm)

	var trace *store.TraceWriter
	if baseDir != "" {
		tw, err := store.NewTraceWriter(baseDir, jobID)
		if err != nil {
			slog.Warn("Trace writer unavailable", "job_id", jobID, "error", err)
		} else {
			trace = tw
			defer trace.Close()
		}
	}

	progress := func(generation int, bestScore float64) {
		jm.UpdateJob(jobID, func(j *Job) {
			j.Generation = generation
			j.BestScore = bestScore
		})
		jm.broadcaster.Broadcast(ProgressEvent{
			JobID:      jobID,
			State:      StateRunning,
			Generation: generation,
			BestScore:  bestScore,
			Timestamp:  time.Now(),
		})
		if trace != nil {
			trace.Write(store.TraceEntry{
				Generation: generation,
				BestScore:  bestScore,
				Timestamp:  time.Now(),
			})
		}
	}

	result, err := engine.Run(ctx, job.Config, jobID, progress)
	if err != nil {
		if ctx.Err() != nil {
			markJobCancelled(jm, jobID)
			return ctx.Err()
		}
		markJobFailed(jm, jobID, err)
		return err
	}

	if resultStore != nil {
		if err := resultStore.SaveResult(jobID, result); err != nil {
			slog.Error("Failed to persist result", "job_id", jobID, "error", err)
		}
	}

	// Population searchers return their best-so-far instead of erroring
	// when the context is cancelled mid-run; the partial result is kept
	// but the job still counts as cancelled.
	if ctx.Err() != nil {
		markJobCancelled(jm, jobID)
		return ctx.Err()
	}

	endTime := time.Now()
	if err := jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCompleted
		j.BestScore = result.BestScore
		j.Report = result.Report
		j.EndTime = &endTime
	}); err != nil {
		return err
	}

	slog.Info("Job completed",
		"job_id", jobID,
		"elapsed", result.FinishedAt.Sub(result.StartedAt),
		"best_score", result.BestScore,
	)

	jm.broadcaster.Broadcast(ProgressEvent{
		JobID:      jobID,
		State:      StateCompleted,
		Generation: job.Generation,
		BestScore:  result.BestScore,
		Timestamp:  time.Now(),
	})

	return nil
}

// markJobFailed marks a job as failed with an error message
func markJobFailed(jm *JobManager, jobID string, err error) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateFailed
		j.Error = err.Error()
		j.EndTime = &endTime
	})
	slog.Error("Job failed", "job_id", jobID, "error", err)
}

// markJobCancelled marks a job as cancelled
func markJobCancelled(jm *JobManager, jobID string) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCancelled
		j.EndTime = &endTime
	})
	slog.Info("Job cancelled", "job_id", jobID)
}
