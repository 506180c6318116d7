package internal

import (
	"errors"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"

	"sveltec-go/packages/runtime/dom"
)

// ErrDuplicateKey is returned when two items of a keyed list share a key.
var ErrDuplicateKey = errors.New("cannot have duplicate keys in a keyed each")

// Reconciliation counts what one list update did.
type Reconciliation struct {
	Created   int
	Moved     int
	Destroyed int
	Updated   int

	MovedKeys     []any
	DestroyedKeys []any
}

// DestroyFunc removes a block that left a keyed list.
type DestroyFunc func(s *Scheduler, b KeyedBlock, lookup map[any]KeyedBlock)

// DestroyBlock destroys b at once.
func DestroyBlock(_ *Scheduler, b KeyedBlock, lookup map[any]KeyedBlock) {
	b.D(true)
	delete(lookup, b.Key())
}

// OutroAndDestroyBlock destroys b once its outro completes. Callers wrap
// the update in GroupOutros and CheckOutros.
func OutroAndDestroyBlock(s *Scheduler, b KeyedBlock, lookup map[any]KeyedBlock) {
	s.TransitionOut(b, true, true, func() {
		if lookup[b.Key()] == b {
			delete(lookup, b.Key())
		}
	})
}

// KeyedEach is a list whose blocks are matched to items by key, so that
// reordering the items moves nodes instead of recreating them.
type KeyedEach struct {
	// Context derives the context of item i.
	Context func(ctx []any, list []any, i int) []any
	// Key extracts the key from an item context.
	Key    func(ctx []any) any
	Create func(key any, ctx []any) KeyedBlock
	// Destroy defaults to DestroyBlock.
	Destroy DestroyFunc
	// Dynamic is set when item blocks have an update phase.
	Dynamic bool

	Blocks []KeyedBlock
	Lookup map[any]KeyedBlock
}

// ValidateKeys reports the first key shared by two items.
func (e *KeyedEach) ValidateKeys(ctx []any, list []any) error {
	keys := make(map[any]int, len(list))
	for i := range list {
		key := e.Key(e.Context(ctx, list, i))
		if j, ok := keys[key]; ok {
			return fmt.Errorf("%w: %v at indexes %d and %d", ErrDuplicateKey, key, j, i)
		}
		keys[key] = i
	}
	return nil
}

// Init creates the blocks of the initial list. They are mounted with
// Mount.
func (e *KeyedEach) Init(ctx []any, list []any) {
	e.Lookup = make(map[any]KeyedBlock, len(list))
	e.Blocks = make([]KeyedBlock, len(list))
	for i := range list {
		child := e.Context(ctx, list, i)
		key := e.Key(child)
		b := e.Create(key, child)
		e.Blocks[i] = b
		e.Lookup[key] = b
	}
}

// C creates every block.
func (e *KeyedEach) C() {
	for _, b := range e.Blocks {
		b.C()
	}
}

// Mount mounts every block in order.
func (e *KeyedEach) Mount(target, anchor *dom.Node) {
	for _, b := range e.Blocks {
		b.M(target, anchor)
	}
}

// D destroys every block.
func (e *KeyedEach) D(detaching bool) {
	for _, b := range e.Blocks {
		b.D(detaching)
	}
}

// UpdateKeyedEach reconciles the blocks of e with list. Blocks are
// matched by key from the end of both lists; when the two tails differ,
// the block whose index changed the most is moved and the other is left
// for a later step.
// Updates of kept blocks run after every move, insertion and removal.
func (s *Scheduler) UpdateKeyedEach(e *KeyedEach, ctx []any, list []any, dirty []int, parent, next *dom.Node) Reconciliation {
	destroy := e.Destroy
	if destroy == nil {
		destroy = DestroyBlock
	}
	if e.Lookup == nil {
		e.Lookup = make(map[any]KeyedBlock)
	}
	lookup := e.Lookup
	old := e.Blocks
	var rec Reconciliation

	o := len(old)
	n := len(list)
	oldIndexes := make(map[any]int, o)
	for i := o - 1; i >= 0; i-- {
		oldIndexes[old[i].Key()] = i
	}

	blocks := make([]KeyedBlock, n)
	newLookup := make(map[any]KeyedBlock, n)
	deltas := make(map[any]int)
	var updates []func()
	created := mapset.NewThreadUnsafeSet[any]()

	for i := n - 1; i >= 0; i-- {
		child := e.Context(ctx, list, i)
		key := e.Key(child)
		b, ok := lookup[key]
		if !ok {
			b = e.Create(key, child)
			b.C()
			created.Add(key)
			rec.Created++
		} else if e.Dynamic {
			kept := b
			updates = append(updates, func() { kept.P(child, dirty) })
		}
		blocks[i] = b
		newLookup[key] = b
		if j, ok := oldIndexes[key]; ok {
			deltas[key] = abs(i - j)
		}
	}

	willMove := mapset.NewThreadUnsafeSet[any]()
	didMove := mapset.NewThreadUnsafeSet[any]()

	insert := func(b KeyedBlock) {
		s.TransitionIn(b, true)
		b.M(parent, next)
		lookup[b.Key()] = b
		if !created.Contains(b.Key()) {
			rec.Moved++
			rec.MovedKeys = append(rec.MovedKeys, b.Key())
		}
		next = b.First()
		n--
	}
	remove := func(b KeyedBlock) {
		destroy(s, b, lookup)
		rec.Destroyed++
		rec.DestroyedKeys = append(rec.DestroyedKeys, b.Key())
	}

	for o > 0 && n > 0 {
		newBlock := blocks[n-1]
		oldBlock := old[o-1]
		newKey := newBlock.Key()
		oldKey := oldBlock.Key()

		_, keptOld := newLookup[oldKey]
		_, mounted := lookup[newKey]
		switch {
		case newBlock == oldBlock:
			next = newBlock.First()
			o--
			n--
		case !keptOld:
			remove(oldBlock)
			o--
		case !mounted || willMove.Contains(newKey):
			insert(newBlock)
		case didMove.Contains(oldKey):
			o--
		case deltas[newKey] > deltas[oldKey]:
			didMove.Add(newKey)
			insert(newBlock)
		default:
			willMove.Add(oldKey)
			o--
		}
	}

	for o > 0 {
		o--
		oldBlock := old[o]
		if _, ok := newLookup[oldBlock.Key()]; !ok {
			remove(oldBlock)
		}
	}
	for n > 0 {
		insert(blocks[n-1])
	}

	// Queued last item first, and run in that order.
	for _, update := range updates {
		update()
	}
	rec.Updated = len(updates)

	e.Blocks = blocks
	return rec
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Each is a list whose blocks are matched to items by position.
type Each struct {
	Context func(ctx []any, list []any, i int) []any
	Create  func(ctx []any) Block
	// Outros makes removed blocks run their outro before they are
	// destroyed.
	Outros bool
	// Intros transitions in every kept and created block.
	Intros bool

	Blocks []Block
}

// Init creates the blocks of the initial list.
func (e *Each) Init(ctx []any, list []any) {
	e.Blocks = make([]Block, len(list))
	for i := range list {
		e.Blocks[i] = e.Create(e.Context(ctx, list, i))
	}
}

// C creates every block.
func (e *Each) C() {
	for _, b := range e.Blocks {
		if b != nil {
			b.C()
		}
	}
}

// Mount mounts every block in order.
func (e *Each) Mount(target, anchor *dom.Node) {
	for _, b := range e.Blocks {
		if b != nil {
			b.M(target, anchor)
		}
	}
}

// D destroys every block.
func (e *Each) D(detaching bool) {
	for _, b := range e.Blocks {
		if b != nil {
			b.D(detaching)
		}
	}
}

// UpdateEach updates the blocks of the overlapping range in place, creates
// blocks for new trailing items before anchor and destroys, or outros,
// the blocks past the new length.
func (s *Scheduler) UpdateEach(e *Each, ctx []any, list []any, dirty []int, parent, anchor *dom.Node) Reconciliation {
	var rec Reconciliation
	for len(e.Blocks) > len(list) && e.Blocks[len(e.Blocks)-1] == nil {
		e.Blocks = e.Blocks[:len(e.Blocks)-1]
	}

	i := 0
	for ; i < len(list); i++ {
		child := e.Context(ctx, list, i)
		if i < len(e.Blocks) && e.Blocks[i] != nil {
			e.Blocks[i].P(child, dirty)
			rec.Updated++
			if e.Intros {
				s.TransitionIn(e.Blocks[i], true)
			}
			continue
		}
		b := e.Create(child)
		b.C()
		if e.Intros {
			s.TransitionIn(b, true)
		}
		b.M(parent, anchor)
		rec.Created++
		if i < len(e.Blocks) {
			e.Blocks[i] = b
		} else {
			e.Blocks = append(e.Blocks, b)
		}
	}

	if !e.Outros {
		for ; i < len(e.Blocks); i++ {
			if e.Blocks[i] != nil {
				e.Blocks[i].D(true)
				rec.Destroyed++
			}
		}
		e.Blocks = e.Blocks[:len(list)]
		return rec
	}

	s.GroupOutros()
	for ; i < len(e.Blocks); i++ {
		b, at := e.Blocks[i], i
		if b == nil {
			continue
		}
		rec.Destroyed++
		s.TransitionOut(b, true, true, func() {
			if at < len(e.Blocks) && e.Blocks[at] == b {
				e.Blocks[at] = nil
			}
		})
	}
	s.CheckOutros()
	return rec
}
