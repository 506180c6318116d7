package internal

import (
	"sveltec-go/packages/runtime/dom"
)

// Options are the constructor options of a component.
type Options struct {
	Target *dom.Node
	Anchor *dom.Node
	Props  map[string]any
	// Parent is the component whose fragment creates this one. Children
	// update after their parent and inherit its context.
	Parent *Component
}

// Instance runs the component script and returns the initial context.
type Instance func(c *Component, props map[string]any) []any

// Creator builds the root block of a component from its context.
type Creator func(ctx []any) Block

type afterUpdateKey struct {
	c *Component
	i int
}

// Component is a mounted component: its context, its dirty bits and its
// root fragment. Dirty holds one word per 31 context slots; a first word
// of -1 means clean.
type Component struct {
	Ctx      []any
	Dirty    []int
	Fragment Block
	// Reactive runs before every update, with Dirty still set.
	Reactive func()

	s        *Scheduler
	parent   *Component
	depth    int
	props    map[string]int
	notEqual func(a, b any) bool
	ready    bool

	bound     map[int]func(any)
	skipBound bool
	context   map[any]any
	callbacks map[string][]*func(any)

	beforeUpdate []func()
	afterUpdate  []func()
	onMount      []func() func()
	onDestroy    []func()
	destroyed    bool
}

// Init runs the instance, creates the fragment and, when a target is
// given, mounts it and flushes. props maps exported names to their
// context slot.
func (s *Scheduler) Init(opts Options, instance Instance, create Creator, notEqual func(a, b any) bool, props map[string]int) *Component {
	if notEqual == nil {
		notEqual = SafeNotEqual
	}
	c := &Component{
		s:        s,
		parent:   opts.Parent,
		props:    props,
		notEqual: notEqual,
		bound:    make(map[int]func(any)),
		context:  make(map[any]any),
	}
	if opts.Parent != nil {
		c.depth = opts.Parent.depth + 1
		for k, v := range opts.Parent.context {
			c.context[k] = v
		}
	}

	saved := s.current
	s.current = c
	defer func() { s.current = saved }()

	initial := opts.Props
	if initial == nil {
		initial = map[string]any{}
	}
	if instance != nil {
		c.Ctx = instance(c, initial)
	} else {
		c.Ctx = []any{}
	}
	c.Dirty = clean(len(c.Ctx))
	if c.Reactive != nil {
		c.Reactive()
	}
	c.ready = true
	RunAll(c.beforeUpdate)
	if create != nil {
		c.Fragment = create(c.Ctx)
	}

	if opts.Target != nil {
		c.Create()
		c.Mount(opts.Target, opts.Anchor)
		s.Flush()
	}
	return c
}

func clean(slots int) []int {
	words := (slots + 30) / 31
	if words == 0 {
		words = 1
	}
	dirty := make([]int, words)
	for i := range dirty {
		dirty[i] = -1
	}
	return dirty
}

// Scheduler returns the scheduler the component runs on.
func (c *Component) Scheduler() *Scheduler {
	return c.s
}

// Depth is the nesting depth, 0 for a root component.
func (c *Component) Depth() int {
	return c.depth
}

// Invalidate stores v in slot i. If the value changed the slot is marked
// dirty and an update is scheduled.
func (c *Component) Invalidate(i int, v any) {
	if c.Ctx == nil || i >= len(c.Ctx) {
		return
	}
	if !c.notEqual(c.Ctx[i], v) {
		return
	}
	c.Ctx[i] = v
	if fn := c.bound[i]; fn != nil && !c.skipBound {
		fn(v)
	}
	if c.ready {
		c.makeDirty(i)
	}
}

func (c *Component) makeDirty(i int) {
	if c.destroyed {
		return
	}
	if c.Dirty[0] == -1 {
		c.s.dirty = append(c.s.dirty, c)
		c.s.ScheduleUpdate()
		for w := range c.Dirty {
			c.Dirty[w] = 0
		}
	}
	c.Dirty[i/31] |= 1 << (i % 31)
}

// IsDirty reports whether slot i changed since the last update.
func (c *Component) IsDirty(i int) bool {
	return c.Dirty[0] != -1 && c.Dirty[i/31]&(1<<(i%31)) != 0
}

// Set updates exported props by name. Unknown names are ignored. Bound
// parents are not notified of values they set themselves.
func (c *Component) Set(props map[string]any) {
	if len(props) == 0 || c.destroyed {
		return
	}
	c.skipBound = true
	defer func() { c.skipBound = false }()
	for name, v := range props {
		if i, ok := c.props[name]; ok {
			c.Invalidate(i, v)
		}
	}
}

// Get returns an exported prop.
func (c *Component) Get(name string) (any, bool) {
	i, ok := c.props[name]
	if !ok || i >= len(c.Ctx) {
		return nil, false
	}
	return c.Ctx[i], true
}

// Bind calls fn whenever the component changes the prop name itself.
func (c *Component) Bind(name string, fn func(any)) {
	if i, ok := c.props[name]; ok {
		c.bound[i] = fn
		fn(c.Ctx[i])
	}
}

func (c *Component) update() {
	if c.Fragment == nil {
		return
	}
	if c.Reactive != nil {
		c.Reactive()
	}
	RunAll(c.beforeUpdate)
	dirty := c.Dirty
	c.Dirty = clean(len(c.Ctx))
	c.Fragment.P(c.Ctx, dirty)
	for i, fn := range c.afterUpdate {
		c.s.addComponentCallback(c, afterUpdateKey{c, i}, fn)
	}
}

// Create runs the create phase of the fragment.
func (c *Component) Create() {
	if c.Fragment != nil {
		c.Fragment.C()
	}
}

// Mount mounts the fragment and schedules onMount and afterUpdate.
func (c *Component) Mount(target, anchor *dom.Node) {
	if c.Fragment != nil {
		c.Fragment.M(target, anchor)
	}
	c.s.addComponentCallback(c, nil, func() {
		for _, fn := range c.onMount {
			if cleanup := fn(); cleanup != nil {
				if c.destroyed {
					cleanup()
				} else {
					c.onDestroy = append(c.onDestroy, cleanup)
				}
			}
		}
		c.onMount = nil
	})
	for i, fn := range c.afterUpdate {
		c.s.addComponentCallback(c, afterUpdateKey{c, i}, fn)
	}
}

// Destroy runs onDestroy callbacks and destroys the fragment. The context
// and fragment are released; later invalidations are ignored.
func (c *Component) Destroy(detaching bool) {
	if c.destroyed {
		return
	}
	c.destroyed = true
	RunAll(c.onDestroy)
	if c.Fragment != nil {
		c.Fragment.D(detaching)
	}
	c.Fragment = nil
	c.onDestroy = nil
	c.Ctx = nil
}

// Destroyed reports whether Destroy has run.
func (c *Component) Destroyed() bool {
	return c.destroyed
}

// BeforeUpdate registers fn to run before every update.
func (c *Component) BeforeUpdate(fn func()) {
	c.beforeUpdate = append(c.beforeUpdate, fn)
}

// AfterUpdate registers fn to run after mount and after every update.
func (c *Component) AfterUpdate(fn func()) {
	c.afterUpdate = append(c.afterUpdate, fn)
}

// OnMount registers fn to run once mounted. A non-nil return value runs
// on destroy.
func (c *Component) OnMount(fn func() func()) {
	c.onMount = append(c.onMount, fn)
}

// OnDestroy registers fn to run on destroy.
func (c *Component) OnDestroy(fn func()) {
	c.onDestroy = append(c.onDestroy, fn)
}

// SetContext makes v visible to components created below this one.
func (c *Component) SetContext(key, v any) {
	c.context[key] = v
}

// GetContext returns a value set by this component or an ancestor.
func (c *Component) GetContext(key any) (any, bool) {
	v, ok := c.context[key]
	return v, ok
}

// On registers a handler for a component event and returns its remover.
func (c *Component) On(event string, fn func(detail any)) func() {
	if c.callbacks == nil {
		c.callbacks = make(map[string][]*func(any))
	}
	p := &fn
	c.callbacks[event] = append(c.callbacks[event], p)
	return func() {
		list := c.callbacks[event]
		for i, q := range list {
			if q == p {
				c.callbacks[event] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

// Dispatch calls the handlers of event with detail.
func (c *Component) Dispatch(event string, detail any) {
	for _, fn := range append([]*func(any){}, c.callbacks[event]...) {
		(*fn)(detail)
	}
}
