package renderer

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/richinsley/goshadertexture/inputs"
	"github.com/richinsley/goshadertexture/logging"
)

// State is the scheduler lifecycle state.
type State int

const (
	Idle State = iota
	Running
	Paused
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

var (
	ErrNotIdle = errors.New("renderer: scheduler already started")
	ErrStopped = errors.New("renderer: scheduler stopped")
)

// Scheduler drives a Pipeline with one frame callback at a time. It only
// changes state between callbacks; a pause or stop takes effect at the next
// callback boundary and never interrupts a draw.
//
// All methods except the media frame notification must be called on the
// goroutine that runs the FrameRequester callbacks.
type Scheduler struct {
	frames  FrameRequester
	now     func() time.Time
	pointer *Pointer

	state     State
	pipeline  *Pipeline
	media     inputs.Source
	unsub     func()
	mediaNew  atomic.Bool
	handle    FrameHandle
	scheduled bool
	epoch     time.Time
	count     int

	// AfterFrame runs after every rendered frame.
	AfterFrame func()
}

// NewScheduler returns an Idle scheduler. now defaults to time.Now and
// pointer to a fresh Pointer.
func NewScheduler(frames FrameRequester, now func() time.Time, pointer *Pointer) *Scheduler {
	if now == nil {
		now = time.Now
	}
	if pointer == nil {
		pointer = &Pointer{}
	}
	return &Scheduler{frames: frames, now: now, pointer: pointer}
}

// State returns the current state.
func (s *Scheduler) State() State { return s.state }

// Frames returns how many frames have been rendered.
func (s *Scheduler) Frames() int { return s.count }

// Clock returns the seconds elapsed since Start.
func (s *Scheduler) Clock() float64 {
	if s.state == Idle {
		return 0
	}
	return s.now().Sub(s.epoch).Seconds()
}

// Start moves Idle to Running and requests the first frame.
func (s *Scheduler) Start(p *Pipeline, media inputs.Source) error {
	if s.state == Stopped {
		return ErrStopped
	}
	if s.state != Idle {
		return ErrNotIdle
	}
	s.pipeline = p
	s.setMedia(media)
	s.epoch = s.now()
	s.state = Running
	logging.Logger().Info("scheduler started")
	s.schedule()
	return nil
}

// SetPipeline replaces the pipeline drawn by subsequent frames and binds
// the current media to it.
func (s *Scheduler) SetPipeline(p *Pipeline) {
	s.pipeline = p
	if p != nil {
		p.SetMedia(s.media)
	}
}

// SetMedia replaces the media source and its frame subscription.
func (s *Scheduler) SetMedia(src inputs.Source) {
	if s.state == Stopped {
		return
	}
	s.setMedia(src)
}

func (s *Scheduler) setMedia(src inputs.Source) {
	if s.unsub != nil {
		s.unsub()
		s.unsub = nil
	}
	s.media = src
	if s.pipeline != nil {
		s.pipeline.SetMedia(src)
	}
	if n, ok := src.(inputs.FrameNotifier); ok {
		s.unsub = n.OnFrame(func() { s.mediaNew.Store(true) })
	}
	// A frame handed over before the subscription is picked up by the
	// next tick.
	s.mediaNew.Store(true)
}

// Pause moves Running to Paused and cancels the pending frame. GPU
// resources are kept.
func (s *Scheduler) Pause() {
	if s.state != Running {
		return
	}
	s.state = Paused
	s.cancel()
	logging.Logger().Info("scheduler paused")
}

// Resume moves Paused to Running and requests a frame. The clock epoch is
// kept, so u_time continues from wall time.
func (s *Scheduler) Resume() {
	if s.state != Paused {
		return
	}
	s.state = Running
	logging.Logger().Info("scheduler resumed")
	s.schedule()
}

// SetVisible pauses on visibility loss and resumes on regain.
func (s *Scheduler) SetVisible(visible bool) {
	if visible {
		s.Resume()
	} else {
		s.Pause()
	}
}

// Stop is terminal. It cancels the pending frame and drops the media frame
// subscription. Stop is idempotent.
func (s *Scheduler) Stop() {
	if s.state == Stopped {
		return
	}
	s.state = Stopped
	s.cancel()
	if s.unsub != nil {
		s.unsub()
		s.unsub = nil
	}
	s.media = nil
	s.pipeline = nil
	logging.Logger().Info("scheduler stopped", "frames", s.count)
}

func (s *Scheduler) schedule() {
	if s.scheduled {
		return
	}
	s.handle = s.frames.RequestFrame(s.tick)
	s.scheduled = true
}

func (s *Scheduler) cancel() {
	if s.scheduled {
		s.frames.CancelFrame(s.handle)
		s.scheduled = false
	}
}

func (s *Scheduler) tick() {
	s.scheduled = false
	if s.state != Running {
		return
	}
	s.updateMedia()
	if s.pipeline != nil {
		hasTexture := s.media != nil && s.media.Texture() != nil
		s.pipeline.RenderFrame(s.Clock(), s.pointer.State(), hasTexture)
		s.count++
		if s.AfterFrame != nil {
			s.AfterFrame()
		}
	}
	if s.state == Running {
		s.schedule()
	}
}

// updateMedia uploads a pending media frame. Sources that notify are only
// polled after a notification; others are polled every frame.
func (s *Scheduler) updateMedia() {
	if s.media == nil {
		return
	}
	if s.unsub != nil && !s.mediaNew.Swap(false) {
		return
	}
	if s.media.Update() {
		logging.Logger().Debug("media frame uploaded", "frame", s.count)
	}
}
