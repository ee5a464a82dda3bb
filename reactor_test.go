package main

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReactorRunsPostedTasks(t *testing.T) {
	r := newReactor(4)
	defer r.stop()
	var wg sync.WaitGroup
	ran := int64(0)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		require.True(t, r.post(func() {
			atomic.AddInt64(&ran, 1)
			wg.Done()
		}))
	}
	wg.Wait()
	assert.Equal(t, int64(100), atomic.LoadInt64(&ran))
}

func TestReactorWorkersOutliveIdlePeriodsWhileGuarded(t *testing.T) {
	r := newReactor(2)
	defer r.stop()
	time.Sleep(20 * time.Millisecond)
	done := make(chan struct{})
	require.True(t, r.post(func() { close(done) }))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task posted after an idle period never ran")
	}
}

func TestReactorWorkersExitAfterRelease(t *testing.T) {
	r := newReactor(3)
	r.release()
	exited := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(exited)
	}()
	select {
	case <-exited:
	case <-time.After(time.Second):
		t.Fatal("workers kept running without a guard")
	}
	r.stop()
}

func TestReactorRejectsPostsAfterStop(t *testing.T) {
	r := newReactor(1)
	r.stop()
	assert.False(t, r.post(func() {}))
}

// stopBehind occupies the reactor's only worker, stops the reactor while
// that worker is busy and returns once stop has joined it.
func stopBehind(t *testing.T, r *reactor, queue func()) {
	t.Helper()
	gate, busy := make(chan struct{}), make(chan struct{})
	require.True(t, r.post(func() {
		close(busy)
		<-gate
	}))
	<-busy
	queue()
	stopped := make(chan struct{})
	go func() {
		r.stop()
		close(stopped)
	}()
	require.Eventually(t, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.stopped
	}, time.Second, time.Millisecond)
	close(gate)
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("stop never returned")
	}
}

func TestReactorStopAbandonsQueuedJobs(t *testing.T) {
	r := newReactor(1)
	s := newStrand(r)
	var ran, abandoned int32
	run := func() { atomic.AddInt32(&ran, 1) }
	abandon := func() { atomic.AddInt32(&abandoned, 1) }
	stopBehind(t, r, func() {
		require.True(t, r.submit(run, abandon))
		require.True(t, r.post(run))
		for i := 0; i < 3; i++ {
			require.True(t, s.submit(run, abandon))
		}
	})
	assert.Zero(t, atomic.LoadInt32(&ran))
	assert.EqualValues(t, 4, atomic.LoadInt32(&abandoned))

	s.mu.Lock()
	assert.False(t, s.running)
	assert.Empty(t, s.queue)
	s.mu.Unlock()
	assert.False(t, s.submit(run, abandon))
	assert.EqualValues(t, 4, atomic.LoadInt32(&abandoned))
}

func TestStrandSerializesTasks(t *testing.T) {
	r := newReactor(8)
	defer r.stop()
	s := newStrand(r)
	var (
		wg      sync.WaitGroup
		inside  int32
		overlap int32
		order   []int
	)
	for i := 0; i < 200; i++ {
		i := i
		wg.Add(1)
		require.True(t, s.post(func() {
			defer wg.Done()
			if atomic.AddInt32(&inside, 1) > 1 {
				atomic.StoreInt32(&overlap, 1)
			}
			order = append(order, i)
			atomic.AddInt32(&inside, -1)
		}))
	}
	wg.Wait()
	assert.Zero(t, atomic.LoadInt32(&overlap))
	require.Len(t, order, 200)
	for i, v := range order {
		assert.Equal(t, i, v)
	}
}

func TestFutureSettlesOnce(t *testing.T) {
	f := newFuture[int]()
	assert.False(t, f.ready())
	assert.True(t, f.resolve(42))
	assert.False(t, f.resolve(7))
	assert.False(t, f.reject(errors.New("late")))
	assert.True(t, f.ready())
	v, err := f.wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestFutureRejection(t *testing.T) {
	f := newFuture[string]()
	cause := errors.New("boom")
	go f.reject(cause)
	_, err := f.wait(context.Background())
	assert.ErrorIs(t, err, cause)
}

func TestFutureWaitHonoursContext(t *testing.T) {
	f := newFuture[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := f.wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
