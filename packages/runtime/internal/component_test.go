package internal_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sveltec-go/packages/runtime/dom"
	"sveltec-go/packages/runtime/internal"
)

// counter mounts <p>{count}</p> and records every patch.
type counter struct {
	c       *internal.Component
	p       *dom.Node
	patches [][]int
}

func mountCounter(t *testing.T, s *internal.Scheduler, opts internal.Options, log *[]string, name string) *counter {
	t.Helper()
	cnt := &counter{}
	instance := func(c *internal.Component, props map[string]any) []any {
		cnt.c = c
		c.BeforeUpdate(func() { *log = append(*log, "before "+name) })
		c.AfterUpdate(func() { *log = append(*log, "after "+name) })
		c.OnMount(func() func() {
			*log = append(*log, "mount "+name)
			return func() { *log = append(*log, "cleanup "+name) }
		})
		count := 0
		if v, ok := props["count"]; ok {
			count = v.(int)
		}
		return []any{count}
	}
	create := func(ctx []any) internal.Block {
		var text *dom.Node
		return &internal.Fragment{
			Create: func() {
				cnt.p = s.Element("p")
				text = s.Text(fmt.Sprint(ctx[0]))
				internal.Append(cnt.p, text)
			},
			Mount: func(target, anchor *dom.Node) {
				internal.Insert(target, cnt.p, anchor)
			},
			Update: func(ctx []any, dirty []int) {
				cnt.patches = append(cnt.patches, append([]int(nil), dirty...))
				if dirty[0]&1 != 0 {
					internal.SetData(text, ctx[0])
				}
			},
			Destroy: func(detaching bool) {
				if detaching {
					internal.Detach(cnt.p)
				}
			},
		}
	}
	s.Init(opts, instance, create, nil, map[string]int{"count": 0})
	require.NotNil(t, cnt.c)
	return cnt
}

func TestComponentMountsAndFlushes(t *testing.T) {
	doc := dom.NewDocument()
	s := internal.NewScheduler(doc, nil)
	var log []string

	cnt := mountCounter(t, s, internal.Options{Target: doc.Body, Props: map[string]any{"count": 4}}, &log, "a")

	assert.Equal(t, "<p>4</p>", doc.Body.HTML())
	assert.Equal(t, []string{"before a", "mount a", "after a"}, log)
	assert.Equal(t, 1, s.Flushes())
	assert.Empty(t, cnt.patches)
}

func TestComponentBatchesInvalidations(t *testing.T) {
	doc := dom.NewDocument()
	s := internal.NewScheduler(doc, nil)
	var log []string
	cnt := mountCounter(t, s, internal.Options{Target: doc.Body}, &log, "a")
	flushes := s.Flushes()

	cnt.c.Invalidate(0, 1)
	cnt.c.Invalidate(0, 2)
	cnt.c.Invalidate(0, 3)
	assert.True(t, cnt.c.IsDirty(0))
	assert.Equal(t, "<p>0</p>", doc.Body.HTML(), "nothing renders before the tick")

	s.Tick()

	assert.Equal(t, flushes+1, s.Flushes())
	require.Len(t, cnt.patches, 1)
	assert.Equal(t, []int{1}, cnt.patches[0])
	assert.Equal(t, "<p>3</p>", doc.Body.HTML())
	assert.False(t, cnt.c.IsDirty(0))
}

func TestComponentSkipsUnchangedValues(t *testing.T) {
	doc := dom.NewDocument()
	s := internal.NewScheduler(doc, nil)
	var log []string
	cnt := mountCounter(t, s, internal.Options{Target: doc.Body}, &log, "a")
	flushes := s.Flushes()

	cnt.c.Invalidate(0, 0)
	cnt.c.Set(map[string]any{"count": 0, "unknown": 1})
	s.Tick()

	assert.Equal(t, flushes, s.Flushes())
	assert.Empty(t, cnt.patches)
}

func TestComponentSetAndBind(t *testing.T) {
	doc := dom.NewDocument()
	s := internal.NewScheduler(doc, nil)
	var log []string
	cnt := mountCounter(t, s, internal.Options{Target: doc.Body}, &log, "a")

	var seen []any
	cnt.c.Bind("count", func(v any) { seen = append(seen, v) })
	cnt.c.Set(map[string]any{"count": 5})
	cnt.c.Invalidate(0, 6)
	s.Tick()

	v, ok := cnt.c.Get("count")
	assert.True(t, ok)
	assert.Equal(t, 6, v)
	assert.Equal(t, []any{0, 6}, seen, "values set by the parent are not echoed")
	assert.Equal(t, "<p>6</p>", doc.Body.HTML())
}

func TestSchedulerCallbackOrder(t *testing.T) {
	doc := dom.NewDocument()
	s := internal.NewScheduler(doc, nil)
	var log []string
	parent := mountCounter(t, s, internal.Options{Target: doc.Body}, &log, "parent")
	child := mountCounter(t, s, internal.Options{Target: doc.Body, Parent: parent.c}, &log, "child")
	assert.Equal(t, 1, child.c.Depth())
	log = nil

	child.c.Invalidate(0, 1)
	parent.c.Invalidate(0, 1)
	s.Tick()

	assert.Equal(t, []string{"before parent", "before child", "after child", "after parent"}, log)
}

func TestSchedulerFlushIsNotReentrant(t *testing.T) {
	doc := dom.NewDocument()
	s := internal.NewScheduler(doc, nil)
	var log []string
	other := mountCounter(t, s, internal.Options{Target: doc.Body}, &log, "other")

	var comp *internal.Component
	updates := 0
	s.Init(internal.Options{Target: doc.Body}, func(c *internal.Component, _ map[string]any) []any {
		comp = c
		return []any{0}
	}, func(ctx []any) internal.Block {
		return &internal.Fragment{Update: func(ctx []any, dirty []int) {
			updates++
			other.c.Invalidate(0, ctx[0])
			s.Flush()
		}}
	}, nil, nil)
	flushes := s.Flushes()

	comp.Invalidate(0, 9)
	s.Tick()

	assert.Equal(t, 1, updates)
	assert.Equal(t, flushes+1, s.Flushes())
	assert.Equal(t, "9", other.p.TextContent())
}

func TestComponentDestroy(t *testing.T) {
	doc := dom.NewDocument()
	s := internal.NewScheduler(doc, nil)
	var log []string
	cnt := mountCounter(t, s, internal.Options{Target: doc.Body}, &log, "a")

	cnt.c.Destroy(true)
	cnt.c.Invalidate(0, 1)
	cnt.c.Set(map[string]any{"count": 2})
	s.Tick()

	assert.True(t, cnt.c.Destroyed())
	assert.Nil(t, cnt.c.Ctx)
	assert.Nil(t, cnt.c.Fragment)
	assert.Empty(t, doc.Body.Children)
	assert.Contains(t, log, "cleanup a")
	assert.Empty(t, cnt.patches)
}

func TestComponentContextAndEvents(t *testing.T) {
	s := internal.NewScheduler(nil, nil)
	parent := s.Init(internal.Options{}, func(c *internal.Component, _ map[string]any) []any {
		c.SetContext("theme", "dark")
		return nil
	}, nil, nil, nil)
	child := s.Init(internal.Options{Parent: parent}, nil, nil, nil, nil)

	v, ok := child.GetContext("theme")
	assert.True(t, ok)
	assert.Equal(t, "dark", v)
	_, ok = child.GetContext("missing")
	assert.False(t, ok)

	var got []any
	off := child.On("select", func(detail any) { got = append(got, detail) })
	child.Dispatch("select", 1)
	off()
	child.Dispatch("select", 2)
	assert.Equal(t, []any{1}, got)
}

func TestComponentDirtyWords(t *testing.T) {
	s := internal.NewScheduler(nil, nil)
	var dirty [][]int
	c := s.Init(internal.Options{Target: s.Doc.Body}, func(*internal.Component, map[string]any) []any {
		return make([]any, 40)
	}, func(ctx []any) internal.Block {
		return &internal.Fragment{Update: func(_ []any, d []int) {
			dirty = append(dirty, append([]int(nil), d...))
		}}
	}, nil, nil)
	require.Len(t, c.Dirty, 2)
	assert.Equal(t, []int{-1, -1}, c.Dirty)

	c.Invalidate(33, "x")
	s.Tick()

	assert.Equal(t, [][]int{{0, 1 << 2}}, dirty)
}

func TestInputBindingHasNoFeedbackLoop(t *testing.T) {
	doc := dom.NewDocument()
	s := internal.NewScheduler(doc, nil)

	var comp *internal.Component
	var input *dom.Node
	var binding *internal.InputBinding
	invalidations := 0
	s.Init(internal.Options{Target: doc.Body}, func(c *internal.Component, _ map[string]any) []any {
		comp = c
		return []any{"initial"}
	}, func(ctx []any) internal.Block {
		return &internal.Fragment{
			Create: func() {
				input = s.Element("input")
				internal.SetInputValue(input, ctx[0])
				binding = internal.BindInput(input, "value", "input", func(v any) {
					invalidations++
					comp.Invalidate(0, v)
				})
			},
			Mount: func(target, anchor *dom.Node) {
				internal.Insert(target, input, anchor)
			},
			Update: func(ctx []any, dirty []int) {
				if dirty[0]&1 != 0 {
					binding.Update(ctx[0])
				}
			},
			Destroy: func(detaching bool) {
				binding.Destroy()
				if detaching {
					internal.Detach(input)
				}
			},
		}
	}, nil, nil)

	// The user types.
	input.SetProperty("value", "typed")
	doc.ResetStats()
	input.Dispatch(dom.NewEvent("input"))
	s.Tick()

	assert.Equal(t, 1, invalidations)
	assert.Equal(t, 1, binding.Writes)
	assert.Equal(t, "typed", comp.Ctx[0])
	assert.Equal(t, 0, doc.Stats.PropWrites)

	// The program writes.
	comp.Invalidate(0, "reset")
	s.Tick()
	assert.Equal(t, "reset", input.Property("value"))
	assert.Equal(t, 1, doc.Stats.PropWrites)
	assert.Equal(t, 1, invalidations)

	comp.Destroy(true)
	assert.Equal(t, 0, input.ListenerCount("input"))
}

func TestFragmentDestroyAbortsTransition(t *testing.T) {
	s := internal.NewScheduler(nil, nil)
	ticks := 0
	mounts := 0
	f := &internal.Fragment{Mount: func(target, anchor *dom.Node) { mounts++ }}
	f.Intro = func(local bool) {
		f.Track(s.Intro(internal.TransitionConfig{
			Duration: 100 * time.Millisecond,
			Tick:     func(float64) { ticks++ },
		}))
	}

	s.TransitionIn(f, true)
	s.Advance(10 * time.Millisecond)
	s.Advance(10 * time.Millisecond)
	require.Equal(t, 1, s.Running())
	before := ticks

	f.D(true)
	s.Advance(10 * time.Millisecond)
	f.M(s.Doc.Body, nil)

	assert.Equal(t, 0, s.Running())
	assert.Equal(t, before, ticks)
	assert.Equal(t, 0, mounts)
	assert.True(t, f.Destroyed())
	assert.False(t, f.HasOutro())
}

func TestTransitionTicks(t *testing.T) {
	s := internal.NewScheduler(nil, nil)
	var values []float64
	ended := false
	tr := s.Intro(internal.TransitionConfig{
		Delay:    10 * time.Millisecond,
		Duration: 20 * time.Millisecond,
		Tick:     func(v float64) { values = append(values, v) },
	}).OnEnd(func() { ended = true })

	s.Settle(10*time.Millisecond, 10)

	assert.Equal(t, []float64{0, 0, 0.5, 1}, values)
	assert.True(t, ended)
	assert.False(t, tr.Running())
	assert.InDelta(t, 0.875, internal.CubicOut(0.5), 1e-9)
}

func TestSafeNotEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"equal ints", 1, 1, false},
		{"different ints", 1, 2, true},
		{"different types", 1, "1", true},
		{"nil and nil", nil, nil, false},
		{"nil and value", nil, 0, true},
		{"NaN", nan(), nan(), false},
		{"maps are always changed", map[string]int{}, map[string]int{}, true},
		{"slices are always changed", []int{1}, []int{1}, true},
		{"structs compare by value", struct{ A int }{1}, struct{ A int }{1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, internal.SafeNotEqual(tt.a, tt.b))
		})
	}

	m := map[string]int{}
	assert.False(t, internal.NotEqual(m, m))
	assert.True(t, internal.NotEqual(m, map[string]int{}))
	assert.False(t, internal.NotEqual("a", "a"))
}

func nan() float64 {
	zero := 0.0
	return zero / zero
}
