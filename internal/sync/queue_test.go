// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package syncer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/*
TestQueue_PriorityOrder confirms popBatch drains lower-priority (sooner-due)
jobs before higher-priority ones.
*/
func TestQueue_PriorityOrder(t *testing.T) {
	q := newQueue()
	q.push(1, "u1", 2)
	q.push(2, "u2", 0)
	q.push(3, "u3", 1)

	batch := q.popBatch(3)
	require.Len(t, batch, 3)
	assert.Equal(t, 2, batch[0].id)
	assert.Equal(t, 3, batch[1].id)
	assert.Equal(t, 1, batch[2].id)
}

/*
TestQueue_FIFOTiebreak confirms jobs enqueued at the same priority drain in
enqueue order.
*/
func TestQueue_FIFOTiebreak(t *testing.T) {
	q := newQueue()
	q.push(10, "", 1)
	q.push(20, "", 1)
	q.push(30, "", 1)

	batch := q.popBatch(3)
	require.Len(t, batch, 3)
	assert.Equal(t, 10, batch[0].id)
	assert.Equal(t, 20, batch[1].id)
	assert.Equal(t, 30, batch[2].id)
}

/*
TestQueue_DedupLowersPriority confirms re-pushing an id already queued at a
lower (more urgent) priority updates it in place instead of enqueuing a
second entry, and that a higher-priority re-push is a no-op.
*/
func TestQueue_DedupLowersPriority(t *testing.T) {
	q := newQueue()
	q.push(1, "u1", 5)
	assert.Equal(t, 1, q.len())

	q.push(1, "u1", 1)
	assert.Equal(t, 1, q.len())

	batch := q.popBatch(1)
	require.Len(t, batch, 1)
	assert.Equal(t, 1, batch[0].priority)

	q.push(2, "u2", 1)
	q.push(2, "u2", 9)
	batch = q.popBatch(1)
	require.Len(t, batch, 1)
	assert.Equal(t, 1, batch[0].priority)
}

/*
TestQueue_PopBatchLimitsSize confirms popBatch never returns more than
requested, and that the queue keeps the remainder for the next drain.
*/
func TestQueue_PopBatchLimitsSize(t *testing.T) {
	q := newQueue()
	for i := 1; i <= 5; i++ {
		q.push(i, "", 0)
	}

	first := q.popBatch(3)
	assert.Len(t, first, 3)
	assert.Equal(t, 2, q.len())

	second := q.popBatch(3)
	assert.Len(t, second, 2)
	assert.Equal(t, 0, q.len())
}

/*
TestQueue_Requeue confirms a requeued job is re-inserted with a fresh
sequence number, so it drains after jobs already waiting at the same
priority.
*/
func TestQueue_Requeue(t *testing.T) {
	q := newQueue()
	q.push(1, "u1", 1)
	q.push(2, "u2", 1)

	batch := q.popBatch(1)
	require.Len(t, batch, 1)
	failed := batch[0]
	failed.priority = 1
	q.requeue(failed)

	batch = q.popBatch(2)
	require.Len(t, batch, 2)
	assert.Equal(t, 2, batch[0].id)
	assert.Equal(t, 1, batch[1].id)
}
