package nhdp

import (
	"container/heap"
	"sync"
	"time"
)

// Clock is the monotonic time source the reader and status machinery are
// driven by. All deadlines in this package are absolute milliseconds on this
// clock's timeline, never wall-clock time.
type Clock interface {
	NowMS() uint64
}

// SystemClock implements Clock against the process's monotonic clock,
// anchored at construction time.
type SystemClock struct {
	start time.Time
}

// NewSystemClock returns a Clock anchored to the current instant.
func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

func (c *SystemClock) NowMS() uint64 {
	return uint64(time.Since(c.start).Milliseconds())
}

// ManualClock is a Clock a test can advance explicitly, used throughout
// reader_test.go and status_test.go in place of wall-clock time.
type ManualClock struct {
	mu  sync.Mutex
	now uint64
}

func NewManualClock(start uint64) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) NowMS() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) Advance(deltaMS uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += deltaMS
}

func (c *ManualClock) Set(ms uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = ms
}

// TimerFunc is invoked when a scheduled deadline is reached.
type TimerFunc func()

// TimerHandle identifies a scheduled callback so it can be cancelled or
// interrogated. The zero value never denotes a live timer.
type TimerHandle uint64

// Timers is the external timer-wheel contract: schedule a callback at an
// absolute monotonic deadline, cancel it, or interrogate it. The HELLO
// reader and link-status machinery are the only callers within this package.
type Timers interface {
	Schedule(deadlineMS uint64, cb TimerFunc) TimerHandle
	Cancel(h TimerHandle)
	IsActive(h TimerHandle) bool
	Due(h TimerHandle) uint64
}

// heapTimers is a small heap-based Timers implementation sufficient to
// drive the pipeline end to end in cmd/nhdpd and in tests; production
// deployments may swap in a richer external scheduler without this package
// noticing, since Reader only depends on the Timers interface.
type heapTimers struct {
	mu     sync.Mutex
	clock  Clock
	items  timerHeap
	nextID TimerHandle
	timer  *time.Timer
	wall   func() time.Time
}

type timerItem struct {
	id       TimerHandle
	deadline uint64
	cb       TimerFunc
	index    int
	live     bool
}

type timerHeap []*timerItem

func (h timerHeap) Len() int            { return len(h) }
func (h timerHeap) Less(i, j int) bool  { return h[i].deadline < h[j].deadline }
func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *timerHeap) Push(x any) {
	it := x.(*timerItem)
	it.index = len(*h)
	*h = append(*h, it)
}
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}

// NewHeapTimers constructs a Timers backed by a min-heap of deadlines and a
// single underlying time.Timer, polling the given Clock to translate
// absolute milliseconds into real wall-clock waits.
func NewHeapTimers(clock Clock) Timers {
	return &heapTimers{clock: clock, wall: time.Now}
}

func (t *heapTimers) Schedule(deadlineMS uint64, cb TimerFunc) TimerHandle {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.nextID++
	id := t.nextID
	heap.Push(&t.items, &timerItem{id: id, deadline: deadlineMS, cb: cb, live: true})
	t.rearm()
	return id
}

func (t *heapTimers) Cancel(h TimerHandle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, it := range t.items {
		if it.id == h {
			it.live = false
			return
		}
	}
}

func (t *heapTimers) IsActive(h TimerHandle) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, it := range t.items {
		if it.id == h {
			return it.live
		}
	}
	return false
}

func (t *heapTimers) Due(h TimerHandle) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, it := range t.items {
		if it.id == h {
			return it.deadline
		}
	}
	return 0
}

// rearm schedules the underlying time.Timer for the soonest live deadline.
// Must be called with t.mu held.
func (t *heapTimers) rearm() {
	for t.items.Len() > 0 && !t.items[0].live {
		heap.Pop(&t.items)
	}
	if t.items.Len() == 0 {
		return
	}
	next := t.items[0]
	now := t.clock.NowMS()
	var wait time.Duration
	if next.deadline > now {
		wait = time.Duration(next.deadline-now) * time.Millisecond
	}
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(wait, t.fire)
}

func (t *heapTimers) fire() {
	t.mu.Lock()
	var due []*timerItem
	now := t.clock.NowMS()
	for t.items.Len() > 0 && t.items[0].live && t.items[0].deadline <= now {
		due = append(due, heap.Pop(&t.items).(*timerItem))
	}
	t.rearm()
	t.mu.Unlock()

	for _, it := range due {
		if it.live {
			it.cb()
		}
	}
}
