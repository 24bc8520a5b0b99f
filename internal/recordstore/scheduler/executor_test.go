package scheduler_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/linagora/overture/internal/recordstore/scheduler"
)

func TestSchedule_SameKeyCoalescesToLastFn(t *testing.T) {
	e := scheduler.NewExecutor()
	var got []string

	e.Schedule("k", func() { got = append(got, "first") })
	e.Schedule("k", func() { got = append(got, "second") })
	e.Flush()

	assert.Equal(t, []string{"second"}, got)
}

func TestSchedule_DistinctKeysRunInFirstScheduledOrder(t *testing.T) {
	e := scheduler.NewExecutor()
	var order []string

	e.Schedule("b", func() { order = append(order, "b") })
	e.Schedule("a", func() { order = append(order, "a") })
	e.Flush()

	assert.Equal(t, []string{"b", "a"}, order)
}

func TestFlush_ClearsPendingWork(t *testing.T) {
	e := scheduler.NewExecutor()
	calls := 0
	e.Schedule("k", func() { calls++ })

	e.Flush()
	e.Flush()

	assert.Equal(t, 1, calls)
}

func TestFlush_ConcurrentCallsCoalesceViaSingleflight(t *testing.T) {
	e := scheduler.NewExecutor()
	calls := 0
	e.Schedule("k", func() { calls++ })

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.Flush()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, calls)
}
