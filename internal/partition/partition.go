// Package partition packs weighted files into groups of near-equal total
// weight using the largest-first, least-loaded-bin greedy heuristic.
package partition

import (
	"container/heap"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/imicrobe/seqweight/internal/storage"
	"github.com/imicrobe/seqweight/pkg/types"
)

// Item is one file to be packed
type Item struct {
	Weight float64
	Path   string
}

// Result holds the packed groups. Groups[i] and Totals[i] describe bin i.
type Result struct {
	Groups    [][]string
	Totals    []float64
	MinWeight float64
	MaxWeight float64
}

// TotalWeight returns the sum of all bin totals
func (r *Result) TotalWeight() float64 {
	var total float64
	for _, w := range r.Totals {
		total += w
	}
	return total
}

// Pack splits items into k groups of near-equal total weight.
//
// Items are taken heaviest first (ties by path) and each is placed in the
// currently lightest bin (ties by lowest bin index). Paths within a group
// are sorted. The maximum bin weight is at most total/k + w·(1 − 1/k)
// where w is the heaviest item; exact balance is not guaranteed.
//
// Pack rejects k < 2 and negative, NaN or infinite weights with a
// *types.PreconditionError. Duplicate paths are packed as given.
func Pack(items []Item, k int) (*Result, error) {
	if k < 2 {
		return nil, &types.PreconditionError{Op: "pack", Err: types.ErrInvalidGroupCount}
	}
	for _, it := range items {
		if it.Weight < 0 || math.IsNaN(it.Weight) || math.IsInf(it.Weight, 0) {
			return nil, &types.PreconditionError{Op: "pack " + it.Path, Err: types.ErrInvalidWeight}
		}
	}

	sorted := make([]Item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Weight != sorted[j].Weight {
			return sorted[i].Weight > sorted[j].Weight
		}
		return sorted[i].Path < sorted[j].Path
	})

	bins := make(binHeap, k)
	for i := range bins {
		bins[i] = &bin{index: i}
	}
	heap.Init(&bins)

	for _, it := range sorted {
		b := bins[0]
		b.members = append(b.members, it.Path)
		b.total += it.Weight
		heap.Fix(&bins, 0)
	}

	result := &Result{
		Groups: make([][]string, k),
		Totals: make([]float64, k),
	}
	for _, b := range bins {
		members := b.members
		if members == nil {
			members = []string{}
		}
		sort.Strings(members)
		result.Groups[b.index] = members
		result.Totals[b.index] = b.total
	}

	result.MinWeight, result.MaxWeight = result.Totals[0], result.Totals[0]
	for _, w := range result.Totals[1:] {
		result.MinWeight = math.Min(result.MinWeight, w)
		result.MaxWeight = math.Max(result.MaxWeight, w)
	}

	return result, nil
}

// ItemsFromRecords converts indexed files into items weighted by metric
func ItemsFromRecords(records []*storage.FileRecord, metric types.Metric) []Item {
	items := make([]Item, 0, len(records))
	for _, r := range records {
		items = append(items, Item{Weight: metric.Weight(r.Stats), Path: r.Path})
	}
	return items
}

// ItemsFromSizes weights each file by its size in bytes, for packing a
// path list without indexing it first
func ItemsFromSizes(paths []string) ([]Item, error) {
	items := make([]Item, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", p, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("failed to size %s: is a directory", p)
		}
		items = append(items, Item{Weight: float64(info.Size()), Path: p})
	}
	return items, nil
}

// bin is one group under construction
type bin struct {
	index   int
	total   float64
	members []string
}

// binHeap orders bins by total weight, then by index
type binHeap []*bin

func (h binHeap) Len() int { return len(h) }

func (h binHeap) Less(i, j int) bool {
	if h[i].total != h[j].total {
		return h[i].total < h[j].total
	}
	return h[i].index < h[j].index
}

func (h binHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *binHeap) Push(x any) { *h = append(*h, x.(*bin)) }

func (h *binHeap) Pop() any {
	old := *h
	n := len(old)
	b := old[n-1]
	*h = old[:n-1]
	return b
}
