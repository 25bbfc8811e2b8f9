// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package syncer

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSyncer struct {
	failUntil int32
	attempts  int32
}

func (f *fakeSyncer) SyncOne(_ context.Context, _ int, _ string) error {
	n := atomic.AddInt32(&f.attempts, 1)
	if n <= f.failUntil {
		return errors.New("transient upstream error")
	}
	return nil
}

/*
TestProcessOne_RetriesUpToMaxThenDrops confirms a persistently failing job is
retried exactly maxRetries additional times (maxRetries+1 total attempts)
before it is dropped rather than requeued forever.
*/
func TestProcessOne_RetriesUpToMaxThenDrops(t *testing.T) {
	fake := &fakeSyncer{failUntil: 1000}
	s := &Syncer{
		queue:   newQueue(),
		service: fake,
		logger:  nil,
	}

	j := &job{id: 1, upstreamID: "u1", priority: 1}

	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := s.processOne(context.Background(), j)
		require.Error(t, err)
	}

	assert.Equal(t, maxRetries, j.retries)
	assert.Equal(t, int32(maxRetries+1), atomic.LoadInt32(&fake.attempts))
}

/*
TestProcessOne_SucceedsAfterTransientFailures confirms a job that fails a
few times then succeeds is not dropped, and stops retrying once SyncOne
returns nil.
*/
func TestProcessOne_SucceedsAfterTransientFailures(t *testing.T) {
	fake := &fakeSyncer{failUntil: 2}
	s := &Syncer{
		queue:   newQueue(),
		service: fake,
	}

	j := &job{id: 1, upstreamID: "u1", priority: 1}

	err := s.processOne(context.Background(), j)
	require.Error(t, err)
	err = s.processOne(context.Background(), j)
	require.Error(t, err)
	err = s.processOne(context.Background(), j)
	require.NoError(t, err)

	assert.Equal(t, 2, j.retries)
}

/*
TestProcessOne_RaisesPriorityOnFailure confirms a failed attempt raises the
job's priority number by one (making it due later on the next drain, since
lower numbers run first), capped at maxPriority.
*/
func TestProcessOne_RaisesPriorityOnFailure(t *testing.T) {
	fake := &fakeSyncer{failUntil: 1000}
	s := &Syncer{queue: newQueue()}
	s.service = fake

	j := &job{id: 1, upstreamID: "u1", priority: maxPriority - 1}
	_ = s.processOne(context.Background(), j)
	assert.Equal(t, maxPriority, j.priority)

	_ = s.processOne(context.Background(), j)
	assert.Equal(t, maxPriority, j.priority)
}
