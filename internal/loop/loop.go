// Package loop is the single-threaded event loop a guest session runs on:
// macrotasks, microtasks, animation frames and completions of background
// work posted from other goroutines.
package loop

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultFrameInterval paces animation frames in Run.
const DefaultFrameInterval = 16 * time.Millisecond

type frame struct {
	id int
	cb func(ts float64)
}

// Loop is an event loop. All queue operations except Submit, Do and Go must
// be called from the loop goroutine.
type Loop struct {
	logger        *zap.Logger
	started       time.Time
	frameInterval time.Duration

	micro     []func()
	macro     []func()
	frames    []frame
	nextFrame int
	afterTask []func()

	mu      sync.Mutex
	inbox   []func()
	pending int
	notify  chan struct{}
}

// Option configures a Loop.
type Option func(*Loop)

// WithFrameInterval sets the pacing of animation frames in Run.
func WithFrameInterval(d time.Duration) Option {
	return func(l *Loop) { l.frameInterval = d }
}

// New creates an idle loop.
func New(logger *zap.Logger, opts ...Option) *Loop {
	l := &Loop{
		logger:        logger.With(zap.String("component", "loop")),
		started:       time.Now(),
		frameInterval: DefaultFrameInterval,
		notify:        make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Now returns milliseconds since the loop was created.
func (l *Loop) Now() float64 {
	return float64(time.Since(l.started).Microseconds()) / 1000
}

// QueueMicrotask schedules fn to run before the next macrotask.
func (l *Loop) QueueMicrotask(fn func()) {
	l.micro = append(l.micro, fn)
}

// Post schedules fn as a macrotask.
func (l *Loop) Post(fn func()) {
	l.macro = append(l.macro, fn)
}

// RequestAnimationFrame schedules cb for the next frame and returns its id.
func (l *Loop) RequestAnimationFrame(cb func(ts float64)) int {
	l.nextFrame++
	l.frames = append(l.frames, frame{id: l.nextFrame, cb: cb})
	return l.nextFrame
}

// CancelAnimationFrame removes a scheduled frame callback.
func (l *Loop) CancelAnimationFrame(id int) {
	for i, f := range l.frames {
		if f.id == id {
			l.frames = append(l.frames[:i], l.frames[i+1:]...)
			return
		}
	}
}

// AfterTask registers fn to run after every macrotask. Sessions use it to
// release collected closures at a point where no guest call is active.
func (l *Loop) AfterTask(fn func()) {
	l.afterTask = append(l.afterTask, fn)
}

// Submit schedules fn as a macrotask from any goroutine.
func (l *Loop) Submit(fn func()) {
	l.mu.Lock()
	l.inbox = append(l.inbox, fn)
	l.mu.Unlock()
	l.wake()
}

// Go runs work on a new goroutine and schedules the function it returns on
// the loop. The loop is not idle while work is outstanding.
func (l *Loop) Go(work func() func()) {
	l.mu.Lock()
	l.pending++
	l.mu.Unlock()

	go func() {
		done := work()
		l.mu.Lock()
		l.pending--
		if done != nil {
			l.inbox = append(l.inbox, done)
		}
		l.mu.Unlock()
		l.wake()
	}()
}

// Do runs fn on the loop goroutine and waits for its result. The loop must
// be running.
func (l *Loop) Do(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	l.Submit(func() {
		result <- fn()
	})

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loop) wake() {
	select {
	case l.notify <- struct{}{}:
	default:
	}
}

// Pending returns the number of outstanding background operations.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending
}

// RunUntilIdle runs tasks until no macrotask, inbox entry or background
// operation remains. Animation frames are flushed at most once per call so
// a frame callback that requests another frame cannot keep the loop busy.
func (l *Loop) RunUntilIdle(ctx context.Context) error {
	framesRun := false
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if l.step() {
			continue
		}
		if l.Pending() > 0 {
			select {
			case <-l.notify:
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}
		if len(l.frames) > 0 && !framesRun {
			framesRun = true
			l.runFrames()
			continue
		}
		return nil
	}
}

// Run runs the loop until ctx is done. Frames are paced by the frame
// interval.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.frameInterval)
	defer ticker.Stop()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if l.step() {
			continue
		}

		select {
		case <-l.notify:
		case <-ticker.C:
			if len(l.frames) > 0 {
				l.runFrames()
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// step runs one unit of work and reports whether there was any.
func (l *Loop) step() bool {
	l.drainMicrotasks()

	l.mu.Lock()
	if len(l.inbox) > 0 {
		l.macro = append(l.macro, l.inbox...)
		l.inbox = nil
	}
	l.mu.Unlock()

	if len(l.macro) == 0 {
		return false
	}

	task := l.macro[0]
	l.macro = l.macro[1:]
	l.runTask(task)
	return true
}

func (l *Loop) runFrames() {
	batch := l.frames
	l.frames = nil
	ts := l.Now()
	l.runTask(func() {
		for _, f := range batch {
			f.cb(ts)
		}
	})
}

func (l *Loop) runTask(task func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("Task panicked", zap.Any("panic", r))
		}
		l.drainMicrotasks()
		for _, fn := range l.afterTask {
			fn()
		}
	}()
	task()
}

func (l *Loop) drainMicrotasks() {
	for len(l.micro) > 0 {
		fn := l.micro[0]
		l.micro = l.micro[1:]
		func() {
			defer func() {
				if r := recover(); r != nil {
					l.logger.Error("Microtask panicked", zap.Any("panic", r))
				}
			}()
			fn()
		}()
	}
}
