package internal

import "sveltec-go/packages/runtime/dom"

// Block is the lifecycle object a block factory returns: create, mount,
// patch, intro, outro and destroy.
type Block interface {
	C()
	M(target, anchor *dom.Node)
	P(ctx []any, dirty []int)
	I(local bool)
	O(local bool)
	D(detaching bool)
}

// Outroer is implemented by blocks that may have an outro. A block
// without one is destroyed as soon as it is transitioned out.
type Outroer interface {
	HasOutro() bool
}

func hasOutro(b Block) bool {
	o, ok := b.(Outroer)
	return ok && o.HasOutro()
}

// Fragment is a Block assembled from functions. Nil functions are no-ops.
// Once destroyed, every method is a no-op and the transitions it tracks
// are aborted.
type Fragment struct {
	Create  func()
	Mount   func(target, anchor *dom.Node)
	Update  func(ctx []any, dirty []int)
	Intro   func(local bool)
	Outro   func(local bool)
	Destroy func(detaching bool)

	transitions []*Transition
	destroyed   bool
}

func (f *Fragment) C() {
	if !f.destroyed && f.Create != nil {
		f.Create()
	}
}

func (f *Fragment) M(target, anchor *dom.Node) {
	if !f.destroyed && f.Mount != nil {
		f.Mount(target, anchor)
	}
}

func (f *Fragment) P(ctx []any, dirty []int) {
	if !f.destroyed && f.Update != nil {
		f.Update(ctx, dirty)
	}
}

func (f *Fragment) I(local bool) {
	if !f.destroyed && f.Intro != nil {
		f.Intro(local)
	}
}

func (f *Fragment) O(local bool) {
	if !f.destroyed && f.Outro != nil {
		f.Outro(local)
	}
}

func (f *Fragment) D(detaching bool) {
	if f.destroyed {
		return
	}
	f.destroyed = true
	for _, t := range f.transitions {
		t.Abort()
	}
	f.transitions = nil
	if f.Destroy != nil {
		f.Destroy(detaching)
	}
	f.Create, f.Mount, f.Update = nil, nil, nil
	f.Intro, f.Outro, f.Destroy = nil, nil, nil
}

// HasOutro reports whether the fragment has an outro phase.
func (f *Fragment) HasOutro() bool {
	return f.Outro != nil
}

// Destroyed reports whether D has run.
func (f *Fragment) Destroyed() bool {
	return f.destroyed
}

// Track ties t to the fragment so that destroying the fragment aborts it.
func (f *Fragment) Track(t *Transition) *Transition {
	if f.destroyed {
		t.Abort()
		return t
	}
	f.transitions = append(f.transitions, t)
	return t
}

// KeyedBlock is a block of a keyed list.
type KeyedBlock interface {
	Block
	Key() any
	// First is the first node the block mounts. Moved blocks are inserted
	// before the first node of the block that follows them.
	First() *dom.Node
}

// Item is a Fragment with a key.
type Item struct {
	Fragment
	// Head is the first node of the block, set when it is created.
	Head *dom.Node

	key any
}

// NewItem returns an empty keyed block.
func NewItem(key any) *Item {
	return &Item{key: key}
}

func (it *Item) Key() any         { return it.key }
func (it *Item) First() *dom.Node { return it.Head }
