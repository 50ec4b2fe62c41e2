// timer/timer.go
package timer

import (
	"container/heap"
	"sync"
	"time"
)

type TimerTask struct {
	Id       int64
	Execute  time.Time
	Interval time.Duration
	Callback func()
	index    int
}

type TimerQueue []*TimerTask

func (q TimerQueue) Len() int { return len(q) }

func (q TimerQueue) Less(i, j int) bool {
	return q[i].Execute.Before(q[j].Execute)
}

func (q TimerQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *TimerQueue) Push(x interface{}) {
	n := len(*q)
	task := x.(*TimerTask)
	task.index = n
	*q = append(*q, task)
}

func (q *TimerQueue) Pop() interface{} {
	old := *q
	n := len(old)
	task := old[n-1]
	old[n-1] = nil
	task.index = -1
	*q = old[0 : n-1]
	return task
}

// TimerManager runs delayed and repeating callbacks. Due tasks are checked every
// resolution; each callback runs on its own goroutine.
type TimerManager struct {
	queue      TimerQueue
	byID       map[int64]*TimerTask
	mutex      sync.Mutex
	nextId     int64
	resolution time.Duration
	now        func() time.Time
	stop       chan struct{}
	stopOnce   sync.Once
	done       chan struct{}
}

// NewTimerManager starts a manager polling at the given resolution.
func NewTimerManager(resolution time.Duration) *TimerManager {
	if resolution <= 0 {
		resolution = 100 * time.Millisecond
	}
	manager := newTimerManager(resolution, time.Now)
	go manager.process()
	return manager
}

func newTimerManager(resolution time.Duration, now func() time.Time) *TimerManager {
	manager := &TimerManager{
		queue:      make(TimerQueue, 0),
		byID:       make(map[int64]*TimerTask),
		nextId:     1,
		resolution: resolution,
		now:        now,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	heap.Init(&manager.queue)
	return manager
}

// AddTimer schedules callback after delay, then every interval if interval > 0.
func (m *TimerManager) AddTimer(delay time.Duration, interval time.Duration, callback func()) int64 {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	task := &TimerTask{
		Id:       m.nextId,
		Execute:  m.now().Add(delay),
		Interval: interval,
		Callback: callback,
	}
	m.nextId++

	heap.Push(&m.queue, task)
	m.byID[task.Id] = task
	return task.Id
}

// RemoveTimer cancels a pending task. Unknown or already fired ids are ignored.
func (m *TimerManager) RemoveTimer(timerId int64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	task, ok := m.byID[timerId]
	if !ok {
		return
	}
	delete(m.byID, timerId)
	if task.index >= 0 {
		heap.Remove(&m.queue, task.index)
	}
}

// Pending returns the number of scheduled tasks.
func (m *TimerManager) Pending() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.queue.Len()
}

// Stop halts the manager; pending tasks never fire.
func (m *TimerManager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
	<-m.done
}

// due pops every task scheduled at or before now, rescheduling repeating ones.
func (m *TimerManager) due(now time.Time) []*TimerTask {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	var fired []*TimerTask
	for m.queue.Len() > 0 {
		task := m.queue[0]
		if task.Execute.After(now) {
			break
		}

		heap.Pop(&m.queue)
		fired = append(fired, task)

		if task.Interval > 0 {
			task.Execute = now.Add(task.Interval)
			heap.Push(&m.queue, task)
		} else {
			delete(m.byID, task.Id)
		}
	}
	return fired
}

func (m *TimerManager) process() {
	defer close(m.done)

	ticker := time.NewTicker(m.resolution)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, task := range m.due(m.now()) {
				go task.Callback()
			}
		case <-m.stop:
			return
		}
	}
}
