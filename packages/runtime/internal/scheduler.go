// Package internal is the runtime that compiled components call into. It
// mirrors the helpers the code generator imports: the update scheduler,
// block lifecycle, keyed and unkeyed lists, conditional regions, await
// regions, transitions and input bindings.
//
// Everything runs on the caller's goroutine, the way a browser main thread
// would. Microtasks only run when Tick is called and animation frames only
// advance when Advance is called, which makes asynchronous behaviour fully
// deterministic in tests.
package internal

import (
	"sort"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"sveltec-go/packages/runtime/dom"
)

type renderCallback struct {
	depth int
	// key deduplicates callbacks within one flush. Nil never deduplicates.
	key any
	fn  func()
}

// Scheduler batches component updates into one flush per tick and drives
// transitions frame by frame.
type Scheduler struct {
	Doc *dom.Document

	microtasks []func()

	dirty            []*Component
	bindingCallbacks []func()
	renderCallbacks  []renderCallback
	flushCallbacks   []func()
	seen             mapset.Set[any]
	updateScheduled  bool
	flushing         bool
	flushes          int
	current          *Component

	outros   *outroGroup
	outroing mapset.Set[Block]

	tasks []*Task
	now   time.Duration

	onError func(error)
}

// NewScheduler creates a scheduler whose components render into doc.
// onError receives failures that have no caller to return to, such as a
// rejected promise without a catch branch. A nil onError panics instead.
func NewScheduler(doc *dom.Document, onError func(error)) *Scheduler {
	if doc == nil {
		doc = dom.NewDocument()
	}
	return &Scheduler{
		Doc:      doc,
		seen:     mapset.NewThreadUnsafeSet[any](),
		outroing: mapset.NewThreadUnsafeSet[Block](),
		onError:  onError,
	}
}

func (s *Scheduler) reportError(err error) {
	if s.onError == nil {
		panic(err)
	}
	s.onError(err)
}

// Queue schedules fn to run on the next Tick.
func (s *Scheduler) Queue(fn func()) {
	s.microtasks = append(s.microtasks, fn)
}

// Tick runs queued microtasks, including the ones they queue, until the
// queue is empty.
func (s *Scheduler) Tick() {
	for len(s.microtasks) > 0 {
		fn := s.microtasks[0]
		s.microtasks = s.microtasks[1:]
		fn()
	}
}

// ScheduleUpdate queues a flush unless one is already queued.
func (s *Scheduler) ScheduleUpdate() {
	if s.updateScheduled {
		return
	}
	s.updateScheduled = true
	s.Queue(s.Flush)
}

// Flushes returns how many flushes have completed.
func (s *Scheduler) Flushes() int {
	return s.flushes
}

// Current returns the component whose instance or update is running.
func (s *Scheduler) Current() *Component {
	return s.current
}

// AddRenderCallback runs fn at the end of the current or next flush.
func (s *Scheduler) AddRenderCallback(fn func()) {
	depth := 0
	if s.current != nil {
		depth = s.current.depth
	}
	s.renderCallbacks = append(s.renderCallbacks, renderCallback{depth: depth, fn: fn})
}

func (s *Scheduler) addComponentCallback(c *Component, key any, fn func()) {
	s.renderCallbacks = append(s.renderCallbacks, renderCallback{depth: c.depth, key: key, fn: fn})
}

// AddBindingCallback runs fn after the dirty components of a flush have
// updated, before render callbacks. Binding callbacks run last in, first
// out.
func (s *Scheduler) AddBindingCallback(fn func()) {
	s.bindingCallbacks = append(s.bindingCallbacks, fn)
}

// AddFlushCallback runs fn once the flush has settled.
func (s *Scheduler) AddFlushCallback(fn func()) {
	s.flushCallbacks = append(s.flushCallbacks, fn)
}

// Flush updates every dirty component, parents before children, then runs
// binding and render callbacks, repeating while callbacks make components
// dirty again. A flush started from inside a flush returns immediately;
// the outer flush picks up whatever the inner call would have done.
func (s *Scheduler) Flush() {
	if s.flushing {
		return
	}
	s.flushing = true
	saved := s.current

	for {
		for len(s.dirty) > 0 {
			batch := s.dirty
			s.dirty = nil
			sort.SliceStable(batch, func(i, j int) bool {
				return batch[i].depth < batch[j].depth
			})
			for _, c := range batch {
				s.current = c
				c.update()
			}
		}
		s.current = nil

		for len(s.bindingCallbacks) > 0 {
			last := len(s.bindingCallbacks) - 1
			fn := s.bindingCallbacks[last]
			s.bindingCallbacks = s.bindingCallbacks[:last]
			fn()
		}

		callbacks := s.renderCallbacks
		s.renderCallbacks = nil
		// Innermost components first: a parent's afterUpdate sees its
		// children updated.
		sort.SliceStable(callbacks, func(i, j int) bool {
			return callbacks[i].depth > callbacks[j].depth
		})
		for _, cb := range callbacks {
			if cb.key != nil {
				if s.seen.Contains(cb.key) {
					continue
				}
				s.seen.Add(cb.key)
			}
			cb.fn()
		}

		if len(s.dirty) == 0 && len(s.renderCallbacks) == 0 {
			break
		}
	}

	for len(s.flushCallbacks) > 0 {
		last := len(s.flushCallbacks) - 1
		fn := s.flushCallbacks[last]
		s.flushCallbacks = s.flushCallbacks[:last]
		fn()
	}

	s.updateScheduled = false
	s.seen.Clear()
	s.current = saved
	s.flushing = false
	s.flushes++
}

// Task is a per-frame callback registered with Loop.
type Task struct {
	fn      func(now time.Duration) bool
	aborted bool
	done    bool
}

// Abort stops the task before its next frame.
func (t *Task) Abort() {
	t.aborted = true
}

// Running reports whether the task will run on the next frame.
func (t *Task) Running() bool {
	return !t.aborted && !t.done
}

// Loop calls fn on every frame until it returns false or the task is
// aborted.
func (s *Scheduler) Loop(fn func(now time.Duration) bool) *Task {
	t := &Task{fn: fn}
	s.tasks = append(s.tasks, t)
	return t
}

// Now returns the current frame time.
func (s *Scheduler) Now() time.Duration {
	return s.now
}

// Running returns the number of live frame tasks.
func (s *Scheduler) Running() int {
	n := 0
	for _, t := range s.tasks {
		if t.Running() {
			n++
		}
	}
	return n
}

// Advance moves the clock forward by d, runs one frame of every live task
// and then drains the microtask queue.
func (s *Scheduler) Advance(d time.Duration) {
	s.now += d
	tasks := s.tasks
	s.tasks = nil
	var live []*Task
	for _, t := range tasks {
		if t.aborted {
			continue
		}
		if t.fn(s.now) {
			live = append(live, t)
		} else {
			t.done = true
		}
	}
	s.tasks = append(live, s.tasks...)
	s.Tick()
}

// Settle advances frame by frame until no task is running, at most limit
// frames of step each.
func (s *Scheduler) Settle(step time.Duration, limit int) {
	for i := 0; i < limit && s.Running() > 0; i++ {
		s.Advance(step)
	}
	s.Tick()
}
