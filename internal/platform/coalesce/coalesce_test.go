// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package coalesce_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/yomira/internal/platform/coalesce"
)

/*
TestGroup_Coalesce_SingleProducer confirms N concurrent callers for the same
key observe exactly one producer invocation, all sharing its result.
*/
func TestGroup_Coalesce_SingleProducer(t *testing.T) {
	g := coalesce.New()

	var calls int32
	producer := func() (any, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(30 * time.Millisecond)
		return "result", nil
	}

	const callers = 20
	var wg sync.WaitGroup
	results := make([]any, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			value, err := g.Coalesce("same-key", producer)
			require.NoError(t, err)
			results[i] = value
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, r := range results {
		assert.Equal(t, "result", r)
	}
}

/*
TestGroup_Coalesce_DistinctKeys confirms distinct keys do not share a
producer invocation.
*/
func TestGroup_Coalesce_DistinctKeys(t *testing.T) {
	g := coalesce.New()

	var calls int32
	producer := func() (any, error) {
		atomic.AddInt32(&calls, 1)
		return "v", nil
	}

	_, err := g.Coalesce("a", producer)
	require.NoError(t, err)
	_, err = g.Coalesce("b", producer)
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

/*
TestGroup_Coalesce_PropagatesError confirms every waiter sees the producer's
error, not just the caller that happened to trigger it.
*/
func TestGroup_Coalesce_PropagatesError(t *testing.T) {
	g := coalesce.New()
	wantErr := errors.New("upstream unavailable")

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := g.Coalesce("key", func() (any, error) {
				time.Sleep(10 * time.Millisecond)
				return nil, wantErr
			})
			errs[i] = err
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.ErrorIs(t, err, wantErr)
	}
}

/*
TestGroup_IsPending reflects an in-flight call and clears once it completes.
*/
func TestGroup_IsPending(t *testing.T) {
	g := coalesce.New()
	started := make(chan struct{})
	release := make(chan struct{})

	go func() {
		g.Coalesce("key", func() (any, error) {
			close(started)
			<-release
			return nil, nil
		})
	}()

	<-started
	assert.True(t, g.IsPending("key"))
	assert.Equal(t, 1, g.Pending())

	close(release)
	assert.Eventually(t, func() bool { return !g.IsPending("key") }, time.Second, 5*time.Millisecond)
}
