package esextract

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/nonibytes/esextract/esextract/engine"
)

// Job is a table extraction split into one task per query. Each query is
// expected to select a disjoint slice of the index.
type Job struct {
	// Task is the template every split task copies.
	Task TaskConfig
	// Queries replace Task.Query, one task each. Empty means a single task
	// with Task.Query.
	Queries [][]byte
	// Concurrency bounds how many tasks run at once. Zero means one.
	Concurrency int
}

// Split returns one TaskConfig per query.
func (j Job) Split() []TaskConfig {
	if len(j.Queries) == 0 {
		return []TaskConfig{j.Task}
	}
	out := make([]TaskConfig, len(j.Queries))
	for i, q := range j.Queries {
		cfg := j.Task
		cfg.Query = q
		out[i] = cfg
	}
	return out
}

// JobStats holds the stats of every task, in split order.
type JobStats struct {
	Tasks []Stats
}

// Sum adds up the per-task stats.
func (s JobStats) Sum() Stats {
	var out Stats
	for _, t := range s.Tasks {
		out.Total += t.Total
		out.Pages += t.Pages
		out.Hits += t.Hits
		out.Rows += t.Rows
		out.Filtered += t.Filtered
		out.AllNull += t.AllNull
		out.Dirty += t.Dirty
		out.QueryTime += t.QueryTime
		out.TransportTime += t.TransportTime
	}
	return out
}

// CheckIndex opens a short-lived session to verify that index exists.
func CheckIndex(ctx context.Context, connect engine.Connector, index string) (err error) {
	eng, err := connect(ctx)
	if err != nil {
		return &Error{Kind: ErrQueryExecution, Message: "connect", Index: index, Cause: err}
	}
	defer func() {
		if cerr := eng.Close(); cerr != nil && err == nil {
			err = &Error{Kind: ErrQueryExecution, Message: "close session", Index: index, Cause: cerr}
		}
	}()
	return checkIndex(ctx, eng, index)
}

// RunJob checks the index once, splits the job and runs the tasks on a
// bounded pool. Every task gets its own engine session. sink must be safe
// for concurrent use when Concurrency is above one. A failed task does not
// stop the others; all failures are joined.
func RunJob(ctx context.Context, connect engine.Connector, job Job, sink Sink, opts ...Option) (JobStats, error) {
	if err := job.Task.Validate(); err != nil {
		return JobStats{}, err
	}
	if err := CheckIndex(ctx, connect, job.Task.Index); err != nil {
		return JobStats{}, err
	}

	tasks := job.Split()
	workers := job.Concurrency
	if workers <= 0 {
		workers = 1
	}
	if workers > len(tasks) {
		workers = len(tasks)
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return JobStats{}, Wrap(ErrConfig, "worker pool", err)
	}
	defer pool.Release()

	jobID := uuid.NewString()
	stats := JobStats{Tasks: make([]Stats, len(tasks))}
	errs := make([]error, len(tasks))
	var wg sync.WaitGroup
	for i, cfg := range tasks {
		taskOpts := append(append([]Option(nil), opts...), WithTaskID(fmt.Sprintf("%s/%d", jobID, i)))
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errs[i] = fmt.Errorf("task %d panicked: %v", i, r)
				}
			}()
			st, err := RunTask(ctx, connect, cfg, sink, taskOpts...)
			stats.Tasks[i] = st
			if err != nil {
				errs[i] = fmt.Errorf("task %d: %w", i, err)
			}
		})
		if submitErr != nil {
			wg.Done()
			errs[i] = fmt.Errorf("task %d: submit: %w", i, submitErr)
		}
	}
	wg.Wait()
	return stats, errors.Join(errs...)
}
