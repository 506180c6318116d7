// Package bench measures the keyed list reconciler of the runtime on
// shuffled lists.
package bench

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/jamiealquiza/tachymeter"

	"sveltec-go/packages/runtime/dom"
	"sveltec-go/packages/runtime/internal"
)

// Scenario chooses how the list changes between iterations.
type Scenario string

const (
	Shuffle Scenario = "shuffle"
	Rotate  Scenario = "rotate"
	Swap    Scenario = "swap"
	Churn   Scenario = "churn"
)

// Scenarios lists every scenario in report order.
var Scenarios = []Scenario{Shuffle, Rotate, Swap, Churn}

// Config of a run.
type Config struct {
	Size       int
	Iterations int
	Seed       int64
}

// Result of one scenario.
type Result struct {
	Scenario  Scenario
	Metrics   *tachymeter.Metrics
	Created   int
	Moved     int
	Destroyed int
	Updated   int
	DOM       dom.Stats
}

// Run reconciles a list of cfg.Size rows cfg.Iterations times for every
// scenario.
func Run(cfg Config) ([]*Result, error) {
	if cfg.Size <= 0 {
		return nil, errors.New("size must be positive")
	}
	if cfg.Iterations <= 0 {
		return nil, errors.New("iterations must be positive")
	}
	results := make([]*Result, 0, len(Scenarios))
	for _, sc := range Scenarios {
		res, err := RunScenario(sc, cfg)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

// RunScenario measures a single scenario.
func RunScenario(sc Scenario, cfg Config) (*Result, error) {
	rng := rand.New(rand.NewSource(cfg.Seed))
	doc := dom.NewDocument()
	s := internal.NewScheduler(doc, nil)
	table := s.Element("tbody")
	internal.Append(doc.Body, table)

	e := &internal.KeyedEach{
		Context: func(ctx []any, list []any, i int) []any {
			return []any{list[i], i}
		},
		Key: func(ctx []any) any { return ctx[0] },
		Create: func(key any, ctx []any) internal.KeyedBlock {
			return row(s, key, ctx)
		},
		Dynamic: true,
	}

	next := 0
	list := make([]any, cfg.Size)
	for i := range list {
		list[i] = next
		next++
	}
	e.Init(nil, list)
	e.C()
	e.Mount(table, nil)
	doc.ResetStats()

	tach := tachymeter.New(&tachymeter.Config{Size: cfg.Iterations})
	res := &Result{Scenario: sc}
	dirty := []int{1}
	for i := 0; i < cfg.Iterations; i++ {
		switch sc {
		case Shuffle:
			rng.Shuffle(len(list), func(a, b int) { list[a], list[b] = list[b], list[a] })
		case Rotate:
			list = append(list[1:], list[0])
		case Swap:
			if len(list) > 1 {
				a, b := 1, len(list)-2
				list[a], list[b] = list[b], list[a]
			}
		case Churn:
			// Replace a tenth of the rows with new keys.
			for j := 0; j < len(list)/10+1; j++ {
				list[rng.Intn(len(list))] = next
				next++
			}
		default:
			return nil, fmt.Errorf("unknown scenario %q", sc)
		}
		if sc == Churn {
			if err := e.ValidateKeys(nil, list); err != nil {
				return nil, err
			}
		}

		start := time.Now()
		rec := s.UpdateKeyedEach(e, nil, list, dirty, table, nil)
		tach.AddTime(time.Since(start))

		res.Created += rec.Created
		res.Moved += rec.Moved
		res.Destroyed += rec.Destroyed
		res.Updated += rec.Updated
	}
	res.Metrics = tach.Calc()
	res.DOM = doc.Stats
	return res, nil
}

func row(s *internal.Scheduler, key any, ctx []any) *internal.Item {
	it := internal.NewItem(key)
	var tr, label *dom.Node
	it.Create = func() {
		tr = s.Element("tr")
		label = s.Text(fmt.Sprint(ctx[0]))
		td := s.Element("td")
		internal.Append(td, label)
		internal.Append(tr, td)
		it.Head = tr
	}
	it.Mount = func(target, anchor *dom.Node) {
		internal.Insert(target, tr, anchor)
	}
	it.Update = func(ctx []any, dirty []int) {
		internal.SetData(label, fmt.Sprint(ctx[0]))
	}
	it.Destroy = func(detaching bool) {
		if detaching {
			internal.Detach(tr)
		}
	}
	return it
}
