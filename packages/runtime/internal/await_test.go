package internal_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sveltec-go/packages/runtime/dom"
	"sveltec-go/packages/runtime/internal"
)

type awaitHarness struct {
	s        *internal.Scheduler
	comp     *internal.Component
	info     *internal.AwaitInfo
	pending  *branchCalls
	then     *branchCalls
	catch    *branchCalls
	resolved []any
}

// valueBlock renders <p>{ctx[slot]}</p>.
func valueBlock(s *internal.Scheduler, calls *branchCalls, slot int, seen *[]any) func(ctx []any) internal.Block {
	return func(ctx []any) internal.Block {
		var p, text *dom.Node
		if seen != nil {
			*seen = append(*seen, ctx[slot])
		}
		return &internal.Fragment{
			Create: func() {
				calls.creates++
				p = s.Element("p")
				text = s.Text(fmt.Sprint(ctx[slot]))
				internal.Append(p, text)
			},
			Mount: func(target, anchor *dom.Node) {
				calls.mounts++
				internal.Insert(target, p, anchor)
			},
			Update: func(ctx []any, dirty []int) {
				internal.SetData(text, fmt.Sprint(ctx[slot]))
			},
			Destroy: func(detaching bool) {
				calls.destroys++
				if detaching {
					internal.Detach(p)
				}
			},
		}
	}
}

// mountAwait mounts {#await promise}<p>…</p>{:then value}<p>{value}</p>{:catch error}<p>{error}</p>{/await}
// with the context [promise, value, error].
func mountAwait(t *testing.T, s *internal.Scheduler, promise any, hasCatch bool) *awaitHarness {
	t.Helper()
	h := &awaitHarness{s: s, pending: &branchCalls{}, then: &branchCalls{}, catch: &branchCalls{}}
	s.Init(internal.Options{Target: s.Doc.Body}, func(c *internal.Component, _ map[string]any) []any {
		h.comp = c
		return []any{promise, nil, nil}
	}, func(ctx []any) internal.Block {
		info := internal.NewAwaitInfo(ctx)
		info.HasCatch = hasCatch
		info.Value, info.Error = 1, 2
		info.Pending = branch(s, "…", h.pending, 0)
		info.Then = valueBlock(s, h.then, 1, &h.resolved)
		if hasCatch {
			info.Catch = valueBlock(s, h.catch, 2, nil)
		}
		h.info = info
		current := ctx[0]
		s.HandlePromise(current, info)
		var anchor *dom.Node
		return &internal.Fragment{
			Create: func() {
				info.Block.C()
				anchor = s.Empty()
			},
			Mount: func(target, a *dom.Node) {
				info.Block.M(target, a)
				internal.Insert(target, anchor, a)
				info.Mount = func() *dom.Node { return anchor.Parent }
				info.Anchor = anchor
			},
			Update: func(ctx []any, dirty []int) {
				info.Ctx = ctx
				if dirty[0]&1 != 0 && current != ctx[0] {
					current = ctx[0]
					if s.HandlePromise(current, info) {
						return
					}
				}
				s.UpdateAwaitBlockBranch(info, ctx, dirty)
			},
			Destroy: func(detaching bool) {
				info.Block.D(detaching)
				info.Block = nil
				info.Invalidate()
				if detaching {
					internal.Detach(anchor)
				}
			},
		}
	}, nil, nil)
	return h
}

func TestAwaitResolves(t *testing.T) {
	s := internal.NewScheduler(nil, nil)
	p, resolve, _ := s.NewPromise()
	h := mountAwait(t, s, p, true)
	body := s.Doc.Body

	assert.Equal(t, []string{"…"}, paragraphs(body))
	assert.Equal(t, internal.BranchPending, h.info.Current())

	resolve("done")
	s.Tick()

	assert.Equal(t, []string{"done"}, paragraphs(body))
	assert.Equal(t, internal.BranchThen, h.info.Current())
	assert.Equal(t, 1, h.pending.destroys)
	assert.Equal(t, 1, h.then.mounts)
}

func TestAwaitDiscardsStaleSettlements(t *testing.T) {
	s := internal.NewScheduler(nil, nil)
	var resolvers []func(any)
	promise := func() *internal.Promise {
		p, resolve, _ := s.NewPromise()
		resolvers = append(resolvers, resolve)
		return p
	}
	h := mountAwait(t, s, promise(), false)
	second, third := promise(), promise()

	// fetch(id) runs twice in one tick.
	h.comp.Invalidate(0, second)
	h.comp.Invalidate(0, third)
	s.Tick()
	assert.Equal(t, internal.BranchPending, h.info.Current())

	resolvers[0]("first")
	resolvers[1]("second")
	s.Tick()
	assert.Equal(t, 0, h.then.creates, "superseded promises never mount")
	assert.Equal(t, []string{"…"}, paragraphs(s.Doc.Body))

	resolvers[2]("third")
	s.Tick()
	assert.Equal(t, 1, h.then.creates)
	assert.Equal(t, 1, h.then.mounts)
	assert.Equal(t, []any{"third"}, h.resolved)
	assert.Equal(t, []string{"third"}, paragraphs(s.Doc.Body))
}

func TestAwaitDiscardsOutOfOrderSettlement(t *testing.T) {
	s := internal.NewScheduler(nil, nil)
	first, resolveFirst, _ := s.NewPromise()
	h := mountAwait(t, s, first, false)
	second, resolveSecond, _ := s.NewPromise()

	h.comp.Invalidate(0, second)
	s.Tick()

	// The replacement settles first, the stale one afterwards.
	resolveSecond("fast")
	s.Tick()
	resolveFirst("slow")
	s.Tick()

	assert.Equal(t, []any{"fast"}, h.resolved)
	assert.Equal(t, []string{"fast"}, paragraphs(s.Doc.Body))
}

func TestAwaitCatch(t *testing.T) {
	s := internal.NewScheduler(nil, nil)
	p, _, reject := s.NewPromise()
	h := mountAwait(t, s, p, true)

	reject(errors.New("boom"))
	s.Tick()

	assert.Equal(t, internal.BranchCatch, h.info.Current())
	assert.Equal(t, []string{"boom"}, paragraphs(h.s.Doc.Body))
	assert.Equal(t, 1, h.catch.mounts)
}

func TestAwaitRejectionWithoutCatch(t *testing.T) {
	var reported []error
	s := internal.NewScheduler(nil, func(err error) { reported = append(reported, err) })
	p, _, reject := s.NewPromise()
	h := mountAwait(t, s, p, false)

	reject(errors.New("boom"))
	s.Tick()

	require.Len(t, reported, 1)
	assert.ErrorIs(t, reported[0], internal.ErrUnhandledRejection)
	assert.Contains(t, reported[0].Error(), "boom")
	assert.Empty(t, paragraphs(h.s.Doc.Body), "the absent catch branch renders nothing")
}

func TestAwaitPlainValue(t *testing.T) {
	h := mountAwait(t, internal.NewScheduler(nil, nil), 42, false)
	assert.Equal(t, internal.BranchThen, h.info.Current())
	assert.Equal(t, []string{"42"}, paragraphs(h.s.Doc.Body))
	assert.Equal(t, 0, h.pending.creates)

	h.comp.Invalidate(0, 43)
	h.s.Tick()
	assert.Equal(t, []string{"43"}, paragraphs(h.s.Doc.Body))
	assert.Equal(t, 1, h.then.creates, "a new plain value updates the then branch in place")
}

func TestAwaitDestroyIgnoresSettlement(t *testing.T) {
	s := internal.NewScheduler(nil, nil)
	p, resolve, _ := s.NewPromise()
	h := mountAwait(t, s, p, false)

	h.comp.Destroy(true)
	resolve("late")
	s.Tick()

	assert.Equal(t, 0, h.then.creates)
	assert.Empty(t, h.s.Doc.Body.Children)
}

func TestPromiseSettlesOnce(t *testing.T) {
	s := internal.NewScheduler(nil, nil)
	p, resolve, reject := s.NewPromise()
	var got []any
	p.Then(func(v any) { got = append(got, v) }, func(err error) { got = append(got, err) })

	resolve(1)
	resolve(2)
	reject(errors.New("late"))
	assert.Empty(t, got, "reactions wait for the tick")
	s.Tick()
	assert.Equal(t, []any{1}, got)

	p.Then(func(v any) { got = append(got, v) }, nil)
	s.Tick()
	assert.Equal(t, []any{1, 1}, got)

	r := s.Resolved("now")
	r.Then(func(v any) { got = append(got, v) }, nil)
	s.Tick()
	assert.Equal(t, []any{1, 1, "now"}, got)
}
