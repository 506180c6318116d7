package internal

import "sveltec-go/packages/runtime/dom"

// IfRegion is an if/else-if/else chain. At most one branch is live,
// except while the previous branch of a region with outros finishes its
// outro.
type IfRegion struct {
	// Select returns the index of the branch to show, or -1.
	Select   func(ctx []any, dirty []int) int
	Creators []func(ctx []any) Block
	// Outros defers destroying the previous branch until its outro ends.
	Outros bool
	// Dynamic is set when some branch has an update phase. Without it an
	// unchanged selection does nothing.
	Dynamic bool

	// Switches counts branch changes after the first selection.
	Switches int

	s       *Scheduler
	blocks  []Block
	current int
	anchor  *dom.Node
}

// NewIfRegion selects and builds the initial branch.
func (s *Scheduler) NewIfRegion(r *IfRegion, ctx []any) *IfRegion {
	r.s = s
	r.blocks = make([]Block, len(r.Creators))
	r.current = r.Select(ctx, clean(len(ctx)))
	if r.current >= 0 {
		r.blocks[r.current] = r.Creators[r.current](ctx)
	}
	return r
}

// Current returns the selected branch, or -1.
func (r *IfRegion) Current() int {
	return r.current
}

// Live returns the branch blocks that have not been destroyed, including
// ones running their outro.
func (r *IfRegion) Live() int {
	n := 0
	for _, b := range r.blocks {
		if b != nil {
			n++
		}
	}
	return n
}

func (r *IfRegion) block() Block {
	if r.current < 0 {
		return nil
	}
	return r.blocks[r.current]
}

func (r *IfRegion) C() {
	if b := r.block(); b != nil {
		b.C()
	}
	r.anchor = r.s.Empty()
}

func (r *IfRegion) M(target, anchor *dom.Node) {
	if b := r.block(); b != nil {
		b.M(target, anchor)
	}
	Insert(target, r.anchor, anchor)
}

func (r *IfRegion) P(ctx []any, dirty []int) {
	previous := r.current
	r.current = r.Select(ctx, dirty)
	if r.current == previous {
		if b := r.block(); b != nil && r.Dynamic {
			b.P(ctx, dirty)
		}
		return
	}
	r.Switches++

	if previous >= 0 && r.blocks[previous] != nil {
		old := r.blocks[previous]
		if r.Outros {
			r.s.GroupOutros()
			r.s.TransitionOut(old, true, true, func() {
				if r.blocks[previous] == old {
					r.blocks[previous] = nil
				}
			})
			r.s.CheckOutros()
		} else {
			old.D(true)
			r.blocks[previous] = nil
		}
	}

	if r.current < 0 {
		return
	}
	b := r.blocks[r.current]
	if b == nil {
		b = r.Creators[r.current](ctx)
		r.blocks[r.current] = b
		b.C()
	} else {
		// The branch was still running its outro.
		b.P(ctx, dirty)
	}
	r.s.TransitionIn(b, true)
	b.M(r.anchor.Parent, r.anchor)
}

func (r *IfRegion) I(local bool) {
	r.s.TransitionIn(r.block(), local)
}

func (r *IfRegion) O(local bool) {
	r.s.TransitionOut(r.block(), local, false, nil)
}

func (r *IfRegion) HasOutro() bool {
	return r.Outros
}

func (r *IfRegion) D(detaching bool) {
	for i, b := range r.blocks {
		if b != nil {
			b.D(detaching)
			r.blocks[i] = nil
		}
	}
	if detaching && r.anchor != nil {
		Detach(r.anchor)
	}
}
