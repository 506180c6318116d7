package internal

import (
	"errors"

	"sveltec-go/packages/runtime/dom"
)

// ErrUnhandledRejection wraps the error of a rejected promise awaited by
// a region without a catch branch.
var ErrUnhandledRejection = errors.New("unhandled promise rejection")

type promiseState int

const (
	promisePending promiseState = iota
	promiseResolved
	promiseRejected
)

// Promise is a value that settles once. Reactions run as microtasks.
type Promise struct {
	s         *Scheduler
	state     promiseState
	value     any
	err       error
	reactions []func()
}

// NewPromise returns a pending promise and the functions that settle it.
// Only the first settlement counts.
func (s *Scheduler) NewPromise() (p *Promise, resolve func(any), reject func(error)) {
	p = &Promise{s: s}
	resolve = func(v any) { p.settle(promiseResolved, v, nil) }
	reject = func(err error) { p.settle(promiseRejected, nil, err) }
	return p, resolve, reject
}

// Resolved returns a promise already resolved with v.
func (s *Scheduler) Resolved(v any) *Promise {
	p, resolve, _ := s.NewPromise()
	resolve(v)
	return p
}

func (p *Promise) settle(state promiseState, v any, err error) {
	if p.state != promisePending {
		return
	}
	p.state, p.value, p.err = state, v, err
	for _, r := range p.reactions {
		p.s.Queue(r)
	}
	p.reactions = nil
}

// Then registers the reactions to settlement.
func (p *Promise) Then(onValue func(any), onError func(error)) {
	reaction := func() {
		switch {
		case p.state == promiseResolved && onValue != nil:
			onValue(p.value)
		case p.state == promiseRejected && onError != nil:
			onError(p.err)
		}
	}
	if p.state == promisePending {
		p.reactions = append(p.reactions, reaction)
		return
	}
	p.s.Queue(reaction)
}

// Branch identifies the active branch of an await region.
type Branch int

const (
	BranchNone Branch = iota - 1
	BranchPending
	BranchThen
	BranchCatch
)

type awaitToken struct {
	promise any
}

// AwaitInfo is the in-flight record of an await region.
type AwaitInfo struct {
	Ctx      []any
	HasCatch bool
	Pending  func(ctx []any) Block
	Then     func(ctx []any) Block
	Catch    func(ctx []any) Block
	// Value and Error are the context slots of the settled value and
	// error, or -1.
	Value int
	Error int

	Block Block
	// Blocks holds one slot per branch when the branches have outros, so
	// an outgoing branch can finish independently of the incoming one.
	Blocks []Block
	Mount  func() *dom.Node
	Anchor *dom.Node

	current  Branch
	token    *awaitToken
	resolved any
}

// NewAwaitInfo returns a record with no active branch.
func NewAwaitInfo(ctx []any) *AwaitInfo {
	return &AwaitInfo{Ctx: ctx, Value: -1, Error: -1, current: BranchNone}
}

// Current returns the active branch.
func (info *AwaitInfo) Current() Branch {
	return info.current
}

// Invalidate drops the current token so that the promise in flight is
// ignored when it settles. Regions call it when destroyed.
func (info *AwaitInfo) Invalidate() {
	info.token = nil
}

func (info *AwaitInfo) creator(b Branch) func(ctx []any) Block {
	var fn func(ctx []any) Block
	switch b {
	case BranchPending:
		fn = info.Pending
	case BranchThen:
		fn = info.Then
	case BranchCatch:
		fn = info.Catch
	}
	if fn == nil {
		return func([]any) Block { return &Fragment{} }
	}
	return fn
}

// HandlePromise starts tracking promise. A *Promise shows the pending
// branch until it settles; any other value shows the then branch at once.
// It reports whether the branch changed synchronously.
func (s *Scheduler) HandlePromise(promise any, info *AwaitInfo) bool {
	token := &awaitToken{promise: promise}
	info.token = token

	update := func(branch Branch, slot int, value any) {
		if info.token != token {
			return
		}
		info.resolved = value
		ctx := info.Ctx
		if slot >= 0 {
			ctx = append([]any(nil), info.Ctx...)
			ctx[slot] = value
		}
		info.current = branch
		b := info.creator(branch)(ctx)

		needsFlush := false
		if info.Block != nil {
			if info.Blocks != nil {
				for i, old := range info.Blocks {
					if i == int(branch) || old == nil {
						continue
					}
					at, outgoing := i, old
					s.GroupOutros()
					s.TransitionOut(outgoing, true, true, func() {
						if info.Blocks[at] == outgoing {
							info.Blocks[at] = nil
						}
					})
					s.CheckOutros()
				}
			} else {
				info.Block.D(true)
			}
			b.C()
			s.TransitionIn(b, true)
			b.M(info.Mount(), info.Anchor)
			needsFlush = true
		}
		info.Block = b
		if info.Blocks != nil {
			info.Blocks[branch] = b
		}
		if needsFlush {
			s.Flush()
		}
	}

	if p, ok := promise.(*Promise); ok {
		component := s.current
		p.Then(func(v any) {
			saved := s.current
			s.current = component
			update(BranchThen, info.Value, v)
			s.current = saved
		}, func(err error) {
			saved := s.current
			s.current = component
			update(BranchCatch, info.Error, err)
			s.current = saved
			if !info.HasCatch && info.token == token {
				s.reportError(errors.Join(ErrUnhandledRejection, err))
			}
		})
		if info.current != BranchPending {
			update(BranchPending, -1, nil)
			return true
		}
		return false
	}

	if info.current != BranchThen {
		update(BranchThen, info.Value, promise)
		return true
	}
	info.resolved = promise
	return false
}

// UpdateAwaitBlockBranch patches the active branch with the current
// context and the settled value.
func (s *Scheduler) UpdateAwaitBlockBranch(info *AwaitInfo, ctx []any, dirty []int) {
	child := append([]any(nil), ctx...)
	switch {
	case info.current == BranchThen && info.Value >= 0:
		child[info.Value] = info.resolved
	case info.current == BranchCatch && info.Error >= 0:
		child[info.Error] = info.resolved
	}
	if info.Block != nil {
		info.Block.P(child, dirty)
	}
}
