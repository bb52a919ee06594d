package session

import (
	"sort"
	"sync"

	"github.com/joseph-ayodele/invoice-extractor/internal/invoice"
	"github.com/joseph-ayodele/invoice-extractor/internal/normalize"
)

// batch is the rows of one document.
type batch struct {
	index  int // submission order of the document
	vendor string
	table  normalize.Table
}

// accumulator groups document batches by sheet name. Safe for concurrent add.
type accumulator struct {
	mu     sync.Mutex
	sheets map[string][]batch
}

func newAccumulator() *accumulator {
	return &accumulator{sheets: map[string][]batch{}}
}

func (a *accumulator) add(index int, vendor string, t normalize.Table) {
	if t.Len() == 0 {
		return
	}
	sheet := invoice.SanitizeSheetName(vendor)
	a.mu.Lock()
	a.sheets[sheet] = append(a.sheets[sheet], batch{index: index, vendor: vendor, table: t})
	a.mu.Unlock()
}

// drain returns every batch ordered by sheet (first document first), then by document.
// Completion order therefore never changes the report layout.
func (a *accumulator) drain() []batch {
	a.mu.Lock()
	defer a.mu.Unlock()

	type group struct {
		first   int
		batches []batch
	}
	groups := make([]group, 0, len(a.sheets))
	for _, bs := range a.sheets {
		sort.Slice(bs, func(i, j int) bool { return bs[i].index < bs[j].index })
		groups = append(groups, group{first: bs[0].index, batches: bs})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].first < groups[j].first })

	var out []batch
	for _, g := range groups {
		out = append(out, g.batches...)
	}
	a.sheets = map[string][]batch{}
	return out
}

func (a *accumulator) rows() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, bs := range a.sheets {
		for _, b := range bs {
			n += b.table.Len()
		}
	}
	return n
}
