package internal

import "time"

type outroGroup struct {
	// remaining counts outro transitions of the group still running.
	remaining int
	callbacks []func()
	parent    *outroGroup
}

// GroupOutros opens an outro group. Blocks transitioned out until the
// matching CheckOutros are destroyed together once all their outros end.
func (s *Scheduler) GroupOutros() {
	s.outros = &outroGroup{parent: s.outros}
}

// CheckOutros closes the current group. If no outro of the group is
// running its callbacks run now, otherwise when the last one ends.
func (s *Scheduler) CheckOutros() {
	if s.outros == nil {
		return
	}
	if s.outros.remaining == 0 {
		RunAll(s.outros.callbacks)
	}
	s.outros = s.outros.parent
}

// TransitionIn cancels a pending outro of b and runs its intro.
func (s *Scheduler) TransitionIn(b Block, local bool) {
	if b == nil {
		return
	}
	s.outroing.Remove(b)
	b.I(local)
}

// TransitionOut runs the outro of b. When the group of the outro
// completes, b is destroyed if detach is set and callback runs. A block
// without an outro completes immediately.
func (s *Scheduler) TransitionOut(b Block, local, detach bool, callback func()) {
	if b == nil || !hasOutro(b) {
		if callback != nil {
			callback()
		}
		return
	}
	if s.outroing.Contains(b) {
		return
	}
	if s.outros == nil {
		s.GroupOutros()
		defer s.CheckOutros()
	}
	s.outroing.Add(b)
	s.outros.callbacks = append(s.outros.callbacks, func() {
		s.outroing.Remove(b)
		if callback != nil {
			if detach {
				b.D(true)
			}
			callback()
		}
	})
	b.O(local)
}

// TransitionConfig describes an element transition. Tick receives t from
// 0 to 1 for an intro and from 1 to 0 for an outro, eased by Easing.
type TransitionConfig struct {
	Delay    time.Duration
	Duration time.Duration
	Easing   func(t float64) float64
	Tick     func(t float64)
}

// Transition is a running intro or outro.
type Transition struct {
	task    *Task
	group   *outroGroup
	running bool
	onEnd   func()
}

// Abort stops the transition without completing it. An aborted outro
// never releases its group.
func (t *Transition) Abort() {
	if t.task != nil {
		t.task.Abort()
	}
	t.running = false
}

// Running reports whether the transition has frames left.
func (t *Transition) Running() bool {
	return t.running
}

// OnEnd registers fn to run when the transition completes.
func (t *Transition) OnEnd(fn func()) *Transition {
	t.onEnd = fn
	return t
}

// Intro starts an intro transition.
func (s *Scheduler) Intro(cfg TransitionConfig) *Transition {
	return s.run(cfg, 0, 1, nil)
}

// Outro starts an outro transition in the current outro group.
func (s *Scheduler) Outro(cfg TransitionConfig) *Transition {
	group := s.outros
	if group != nil {
		group.remaining++
	}
	return s.run(cfg, 1, 0, group)
}

func (s *Scheduler) run(cfg TransitionConfig, from, to float64, group *outroGroup) *Transition {
	easing := cfg.Easing
	if easing == nil {
		easing = Linear
	}
	tick := cfg.Tick
	if tick == nil {
		tick = func(float64) {}
	}
	t := &Transition{group: group, running: true}
	start := s.now + cfg.Delay
	end := start + cfg.Duration
	tick(from)
	t.task = s.Loop(func(now time.Duration) bool {
		if !t.running {
			return false
		}
		if now >= end {
			tick(to)
			t.running = false
			if t.onEnd != nil {
				t.onEnd()
			}
			if group != nil {
				group.remaining--
				if group.remaining == 0 {
					RunAll(group.callbacks)
				}
			}
			return false
		}
		if now >= start {
			p := easing(float64(now-start) / float64(cfg.Duration))
			tick(from + (to-from)*p)
		}
		return true
	})
	return t
}

// Linear is the identity easing.
func Linear(t float64) float64 {
	return t
}

// CubicOut decelerates towards the end.
func CubicOut(t float64) float64 {
	f := t - 1
	return f*f*f + 1
}
