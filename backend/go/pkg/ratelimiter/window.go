package ratelimiter

import (
	"container/list"
	"sync"
	"time"
)

// FixedWindow admits up to limit requests per aligned window.
type FixedWindow struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu    sync.Mutex
	start time.Time
	count int
}

var _ RateLimiter = (*FixedWindow)(nil)

// NewFixedWindow creates a FixedWindow whose first window starts now.
func NewFixedWindow(limit int, window time.Duration) *FixedWindow {
	return newFixedWindow(limit, window, time.Now)
}

func newFixedWindow(limit int, window time.Duration, now func() time.Time) *FixedWindow {
	return &FixedWindow{limit: limit, window: window, now: now, start: now()}
}

func (fw *FixedWindow) Allow() bool {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	now := fw.now()
	if !now.Before(fw.start.Add(fw.window)) {
		fw.start = now
		fw.count = 0
	}
	if fw.count < fw.limit {
		fw.count++
		return true
	}
	return false
}

// SlidingWindow approximates a sliding window with a ring of counters,
// each covering window/len(slots).
type SlidingWindow struct {
	limit    int
	slotSize time.Duration
	now      func() time.Time

	mu      sync.Mutex
	slots   []int
	current int
	last    time.Time
}

var _ RateLimiter = (*SlidingWindow)(nil)

// NewSlidingWindow splits window into slots counters (10 when slots <= 0).
func NewSlidingWindow(limit int, window time.Duration, slots int) *SlidingWindow {
	return newSlidingWindow(limit, window, slots, time.Now)
}

func newSlidingWindow(limit int, window time.Duration, slots int, now func() time.Time) *SlidingWindow {
	if slots <= 0 {
		slots = slidingWindowBuckets
	}
	slotSize := window / time.Duration(slots)
	if slotSize <= 0 {
		slotSize = time.Nanosecond
	}
	return &SlidingWindow{limit: limit, slotSize: slotSize, now: now, slots: make([]int, slots), last: now()}
}

// advance clears the slots that fell out of the window since the last call.
func (sw *SlidingWindow) advance(now time.Time) {
	steps := int(now.Sub(sw.last) / sw.slotSize)
	if steps <= 0 {
		return
	}
	if steps >= len(sw.slots) {
		for i := range sw.slots {
			sw.slots[i] = 0
		}
	} else {
		for i := 1; i <= steps; i++ {
			sw.slots[(sw.current+i)%len(sw.slots)] = 0
		}
	}
	sw.current = (sw.current + steps) % len(sw.slots)
	sw.last = sw.last.Add(time.Duration(steps) * sw.slotSize)
}

func (sw *SlidingWindow) Allow() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.advance(sw.now())
	total := 0
	for _, n := range sw.slots {
		total += n
	}
	if total < sw.limit {
		sw.slots[sw.current]++
		return true
	}
	return false
}

// SlidingLog keeps the timestamp of every admitted request inside the window.
type SlidingLog struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu  sync.Mutex
	log *list.List
}

var _ RateLimiter = (*SlidingLog)(nil)

// NewSlidingLog creates an empty SlidingLog.
func NewSlidingLog(limit int, window time.Duration) *SlidingLog {
	return newSlidingLog(limit, window, time.Now)
}

func newSlidingLog(limit int, window time.Duration, now func() time.Time) *SlidingLog {
	return &SlidingLog{limit: limit, window: window, now: now, log: list.New()}
}

func (sl *SlidingLog) Allow() bool {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	now := sl.now()
	boundary := now.Add(-sl.window)
	for e := sl.log.Front(); e != nil && !e.Value.(time.Time).After(boundary); e = sl.log.Front() {
		sl.log.Remove(e)
	}
	if sl.log.Len() < sl.limit {
		sl.log.PushBack(now)
		return true
	}
	return false
}
