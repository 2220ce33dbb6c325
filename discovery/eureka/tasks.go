//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package eureka

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// task represents a recurring operation. each tick
// runs fn in its own goroutine so a slow call doesn't
// delay the next tick.
type task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func startTask(clk clock.Clock, interval time.Duration, fn func()) *task {
	ctx, cancel := context.WithCancel(context.Background())
	t := &task{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	ticker := clk.Ticker(interval)

	go func() {
		defer close(t.done)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				go fn()
			}
		}
	}()

	return t
}

// stop cancels the future ticks, in-flight calls continue.
func (t *task) stop() {
	t.cancel()
	<-t.done
}

// tasks owns the heartbeat and registry fetch loops.
type tasks struct {
	sync.Mutex

	clk       clock.Clock
	heartbeat *task
	fetch     *task
}

func newTasks(clk clock.Clock) *tasks {
	return &tasks{clk: clk}
}

func (ts *tasks) startHeartbeat(interval time.Duration, fn func()) {
	ts.Lock()
	defer ts.Unlock()

	if ts.heartbeat != nil {
		ts.heartbeat.stop()
	}

	ts.heartbeat = startTask(ts.clk, interval, fn)
}

func (ts *tasks) startFetch(interval time.Duration, fn func()) {
	ts.Lock()
	defer ts.Unlock()

	if ts.fetch != nil {
		ts.fetch.stop()
	}

	ts.fetch = startTask(ts.clk, interval, fn)
}

func (ts *tasks) running() (bool, bool) {
	ts.Lock()
	defer ts.Unlock()

	return ts.heartbeat != nil, ts.fetch != nil
}

func (ts *tasks) cancel() {
	ts.Lock()
	defer ts.Unlock()

	for _, t := range []*task{ts.heartbeat, ts.fetch} {
		if t != nil {
			t.stop()
		}
	}

	ts.heartbeat = nil
	ts.fetch = nil
}
