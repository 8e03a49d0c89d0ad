package renderer

import (
	"context"
	"sync"
	"time"
)

// FrameHandle identifies a requested frame callback.
type FrameHandle uint64

// FrameRequester schedules one-shot frame callbacks, in the manner of a
// display refresh callback.
type FrameRequester interface {
	RequestFrame(fn func()) FrameHandle
	CancelFrame(h FrameHandle)
}

// Dispatcher is a FrameRequester that also runs arbitrary work on the
// goroutine that owns the GPU context.
type Dispatcher interface {
	FrameRequester
	// Post queues fn to run on the dispatcher goroutine. Safe to call from
	// any goroutine.
	Post(fn func())
}

type frameEntry struct {
	h  FrameHandle
	fn func()
}

// frameQueue is the bookkeeping shared by Loop and ManualRequester.
type frameQueue struct {
	mu     sync.Mutex
	next   FrameHandle
	frames []frameEntry
	posts  []func()
}

func (q *frameQueue) RequestFrame(fn func()) FrameHandle {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.next++
	q.frames = append(q.frames, frameEntry{h: q.next, fn: fn})
	return q.next
}

func (q *frameQueue) CancelFrame(h FrameHandle) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, e := range q.frames {
		if e.h == h {
			q.frames = append(q.frames[:i], q.frames[i+1:]...)
			return
		}
	}
}

func (q *frameQueue) post(fn func()) {
	q.mu.Lock()
	q.posts = append(q.posts, fn)
	q.mu.Unlock()
}

// runPosts runs queued work, including work queued while running.
func (q *frameQueue) runPosts() int {
	n := 0
	for {
		q.mu.Lock()
		posts := q.posts
		q.posts = nil
		q.mu.Unlock()
		if len(posts) == 0 {
			return n
		}
		for _, fn := range posts {
			fn()
		}
		n += len(posts)
	}
}

// runFrames runs the callbacks requested before the call. Callbacks
// requested while running wait for the next frame.
func (q *frameQueue) runFrames() int {
	q.mu.Lock()
	frames := q.frames
	q.frames = nil
	q.mu.Unlock()
	for _, e := range frames {
		e.fn()
	}
	return len(frames)
}

// Pending returns the number of requested frame callbacks.
func (q *frameQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames)
}

// Loop is a single-goroutine dispatcher driven by a refresh ticker.
type Loop struct {
	frameQueue
	interval time.Duration
	wake     chan struct{}

	// AfterTick runs on the loop goroutine after each tick's frame
	// callbacks, whether or not any ran. Window backends poll events here.
	AfterTick func()
}

var _ Dispatcher = (*Loop)(nil)

// NewLoop returns a loop ticking fps times per second.
func NewLoop(fps int) *Loop {
	if fps <= 0 {
		fps = 60
	}
	return &Loop{
		interval: time.Second / time.Duration(fps),
		wake:     make(chan struct{}, 1),
	}
}

func (l *Loop) Post(fn func()) {
	l.post(fn)
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run dispatches work on the calling goroutine until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	t := time.NewTicker(l.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			l.runPosts()
			return ctx.Err()
		case <-l.wake:
			l.runPosts()
		case <-t.C:
			l.runPosts()
			l.runFrames()
			if l.AfterTick != nil {
				l.AfterTick()
			}
		}
	}
}

// ManualRequester runs frames only when stepped. Tests and offline
// rendering use it to drive the scheduler deterministically.
type ManualRequester struct {
	frameQueue
}

var _ Dispatcher = (*ManualRequester)(nil)

// Post queues fn until the next Step or Flush.
func (m *ManualRequester) Post(fn func()) { m.post(fn) }

// Flush runs posted work and returns how many functions ran.
func (m *ManualRequester) Flush() int { return m.runPosts() }

// Step runs posted work, then the frame callbacks pending at the time of
// the call, and returns the number of frame callbacks run.
func (m *ManualRequester) Step() int {
	m.runPosts()
	return m.runFrames()
}
