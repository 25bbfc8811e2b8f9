// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package syncer is the catalogue's background resynchronisation worker.

Core Responsibility:

  - Queueing: QueueOutdated pulls every Upstream-sourced row due for a
    refresh (Store.ListOutdated) and enqueues it, previously-failed rows
    jumping ahead of merely-stale ones. GetByID (via the Service's
    [manhwa.RefreshTrigger] dependency) enqueues individual rows
    opportunistically on read.
  - Processing: ProcessQueue drains the queue in bounded-size batches,
    syncing each batch's jobs concurrently (golang.org/x/sync/errgroup,
    grounded on blampe-rreading-glasses' Controller.refreshG), retrying a
    failed job up to maxRetries (three) more times at a raised priority
    before giving up on it.
  - Scheduling: a robfig/cron/v3 job re-triggers QueueOutdated+ProcessQueue
    on SYNC_CRON_SCHEDULE, the same cron.Cron-plus-SkipIfStillRunning idiom
    used for periodic jobs across the example pack.
*/
package syncer

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/taibuivan/yomira/internal/core/manhwa"
)

// maxRetries is how many additional attempts a failing job gets before it is
// dropped and left in syncStatus = Failed for the next full outdated sweep.
const maxRetries = 3

// maxPriority caps how low (i.e. how late) a repeatedly-retried job's
// priority can sink, so a pathological row can never starve the rest of the
// queue entirely.
const maxPriority = 10

// requeueWaitOnBusy is how long ProcessQueue pauses between batches when the
// queue is still non-empty, avoiding a tight busy loop against Upstream's
// rate limiter.
const requeueWaitOnBusy = 2 * time.Second

// syncOne is the subset of [*manhwa.Service] the Syncer depends on.
type syncOne interface {
	SyncOne(ctx context.Context, id int, upstreamID string) error
}

// outdatedLister is the subset of [manhwa.Store] the Syncer depends on.
type outdatedLister interface {
	ListOutdated(ctx context.Context) ([]*manhwa.Manhwa, error)
}

// StatusItem is one queued job's reporting shape, as returned by [Status].
type StatusItem struct {
	ID       int `json:"id"`
	Priority int `json:"priority"`
	Retries  int `json:"retries"`
}

// Status reports the Syncer's current operating state.
type Status struct {
	QueueLength  int          `json:"queueLength"`
	IsProcessing bool         `json:"isProcessing"`
	Items        []StatusItem `json:"items"`
}

// Syncer drains a priority queue of due resynchronisations against
// Upstream, on both a cron schedule and an ad-hoc SyncNow trigger.
type Syncer struct {
	queue     *queue
	service   syncOne
	store     outdatedLister
	batchSize int
	logger    *slog.Logger

	cron *cron.Cron

	running int32
}

// New constructs a Syncer. cronSchedule is a robfig/cron expression (e.g.
// "@every 15m"); Start must be called to begin the scheduled sweep.
func New(service syncOne, store outdatedLister, batchSize int, cronSchedule string, logger *slog.Logger) (*Syncer, error) {
	if batchSize <= 0 {
		batchSize = 10
	}

	s := &Syncer{
		queue:     newQueue(),
		service:   service,
		store:     store,
		batchSize: batchSize,
		logger:    logger,
	}

	s.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))
	if _, err := s.cron.AddFunc(cronSchedule, func() {
		s.SyncNow(context.Background())
	}); err != nil {
		return nil, err
	}

	return s, nil
}

// Start begins the cron schedule.
func (s *Syncer) Start() { s.cron.Start() }

// Stop gracefully stops the cron schedule, waiting for any in-flight run to
// finish or ctx to expire, whichever comes first.
func (s *Syncer) Stop(ctx context.Context) error {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Enqueue adds a single manhwa to the sync queue at priority, satisfying
// [manhwa.RefreshTrigger]. Safe to call from any goroutine; never blocks.
func (s *Syncer) Enqueue(id int, upstreamID string, priority int) {
	s.queue.push(id, upstreamID, priority)
}

// QueueOutdated enqueues every Upstream-sourced row Store considers due for
// resynchronisation, giving previously-failed rows priority over merely
// stale ones.
func (s *Syncer) QueueOutdated(ctx context.Context) error {
	rows, err := s.store.ListOutdated(ctx)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("queue:error", slog.String("error", err.Error()))
		}
		return err
	}

	for _, row := range rows {
		priority := 1
		if row.SyncStatus == manhwa.SyncStatusFailed {
			priority = 0
		}
		upstreamID := ""
		if row.UpstreamID != nil {
			upstreamID = *row.UpstreamID
		}
		s.queue.push(row.ID, upstreamID, priority)
	}

	return nil
}

// SyncNow queues every outdated row then immediately drains the queue,
// blocking until it is empty. Intended for both the cron trigger and an
// admin-initiated POST /sync/all.
func (s *Syncer) SyncNow(ctx context.Context) error {
	if err := s.QueueOutdated(ctx); err != nil {
		return err
	}
	return s.ProcessQueue(ctx)
}

// ProcessQueue drains the queue in batches of batchSize, syncing each
// batch's jobs concurrently. A re-entry guard means a slow run triggered by
// one caller is never duplicated by a concurrent one; the later caller
// simply returns immediately.
func (s *Syncer) ProcessQueue(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
		return nil
	}
	defer atomic.StoreInt32(&s.running, 0)

	for {
		batch := s.queue.popBatch(s.batchSize)
		if len(batch) == 0 {
			break
		}

		var g errgroup.Group
		for _, j := range batch {
			j := j
			g.Go(func() error {
				return s.processOne(ctx, j)
			})
		}
		_ = g.Wait()

		if s.queue.len() == 0 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(requeueWaitOnBusy):
		}
	}

	return nil
}

// processOne syncs a single job, re-enqueuing it at a raised priority on
// failure until maxRetries is exhausted, at which point it is dropped and
// left in its store-recorded syncStatus = Failed state.
func (s *Syncer) processOne(ctx context.Context, j *job) error {
	err := s.service.SyncOne(ctx, j.id, j.upstreamID)
	if err == nil {
		if s.logger != nil {
			s.logger.Info("sync:success", slog.Int("id", j.id))
		}
		return nil
	}

	if j.retries >= maxRetries {
		if s.logger != nil {
			s.logger.Warn("sync:failed", slog.Int("id", j.id), slog.Int("retries", j.retries), slog.String("error", err.Error()))
		}
		return err
	}

	j.retries++
	j.priority = minInt(j.priority+1, maxPriority)
	if s.logger != nil {
		s.logger.Info("sync:retry", slog.Int("id", j.id), slog.Int("retries", j.retries), slog.Int("priority", j.priority))
	}
	s.queue.requeue(j)
	return err
}

// Status reports the queue length, whether a drain is currently running, and
// a snapshot of every currently queued job.
func (s *Syncer) Status() Status {
	snapshot := s.queue.items()
	items := make([]StatusItem, 0, len(snapshot))
	for _, it := range snapshot {
		items = append(items, StatusItem{ID: it.id, Priority: it.priority, Retries: it.retries})
	}

	return Status{
		QueueLength:  len(snapshot),
		IsProcessing: atomic.LoadInt32(&s.running) == 1,
		Items:        items,
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
