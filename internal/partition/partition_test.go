package partition

import (
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imicrobe/seqweight/internal/storage"
	"github.com/imicrobe/seqweight/pkg/types"
)

func TestPack_EqualWeights(t *testing.T) {
	items := []Item{
		{10, "/d/e.fa"}, {10, "/d/c.fa"}, {10, "/d/a.fa"}, {10, "/d/d.fa"}, {10, "/d/b.fa"},
	}

	result, err := Pack(items, 2)
	require.NoError(t, err)

	// a->0, b->1, c->0 (tie, lowest index), d->1, e->0
	assert.Equal(t, [][]string{
		{"/d/a.fa", "/d/c.fa", "/d/e.fa"},
		{"/d/b.fa", "/d/d.fa"},
	}, result.Groups)
	assert.Equal(t, []float64{30, 20}, result.Totals)
	assert.Equal(t, 20.0, result.MinWeight)
	assert.Equal(t, 30.0, result.MaxWeight)
	assert.Equal(t, 50.0, result.TotalWeight())
}

func TestPack_LargestFirst(t *testing.T) {
	items := []Item{{1, "a"}, {7, "b"}, {3, "c"}, {5, "d"}, {4, "e"}}

	result, err := Pack(items, 3)
	require.NoError(t, err)

	// b(7)->0, d(5)->1, e(4)->2, c(3)->2 (4<5), a(1)->1 (5<7)
	assert.Equal(t, [][]string{{"b"}, {"a", "d"}, {"c", "e"}}, result.Groups)
	assert.Equal(t, []float64{7, 6, 7}, result.Totals)
}

func TestPack_NoItems(t *testing.T) {
	result, err := Pack(nil, 4)
	require.NoError(t, err)

	require.Len(t, result.Groups, 4)
	for _, g := range result.Groups {
		assert.NotNil(t, g)
		assert.Empty(t, g)
	}
	assert.Equal(t, 0.0, result.MinWeight)
	assert.Equal(t, 0.0, result.MaxWeight)
}

func TestPack_SingleItem(t *testing.T) {
	result, err := Pack([]Item{{42, "/only.fa"}}, 3)
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"/only.fa"}, {}, {}}, result.Groups)
	assert.Equal(t, 0.0, result.MinWeight)
	assert.Equal(t, 42.0, result.MaxWeight)
}

func TestPack_DuplicatesKept(t *testing.T) {
	result, err := Pack([]Item{{1, "x"}, {1, "x"}}, 2)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"x"}, {"x"}}, result.Groups)
}

func TestPack_InvalidGroupCount(t *testing.T) {
	for _, k := range []int{-1, 0, 1} {
		result, err := Pack([]Item{{1, "a"}}, k)
		assert.Nil(t, result)
		assert.ErrorIs(t, err, types.ErrInvalidGroupCount, "k=%d", k)

		var pe *types.PreconditionError
		assert.ErrorAs(t, err, &pe)
	}
}

func TestPack_InvalidWeight(t *testing.T) {
	tests := []struct {
		name   string
		weight float64
	}{
		{"negative", -1},
		{"nan", math.NaN()},
		{"inf", math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Pack([]Item{{1, "a"}, {tt.weight, "b"}}, 2)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, types.ErrInvalidWeight)
			assert.Contains(t, err.Error(), "b")
		})
	}
}

func TestPack_DoesNotModifyInput(t *testing.T) {
	items := []Item{{1, "a"}, {3, "b"}, {2, "c"}}
	orig := append([]Item(nil), items...)

	_, err := Pack(items, 2)
	require.NoError(t, err)
	assert.Equal(t, orig, items)
}

func randomItems(r *rand.Rand, n int) []Item {
	items := make([]Item, n)
	for i := range items {
		// Include exact ties to exercise the path tie-break
		w := float64(r.IntN(50))
		if r.IntN(2) == 0 {
			w = r.Float64() * 1000
		}
		items[i] = Item{Weight: w, Path: fmt.Sprintf("/corpus/%04d.fa", i)}
	}
	return items
}

func TestPack_Properties(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))

	for iter := 0; iter < 200; iter++ {
		n := r.IntN(300)
		k := 2 + r.IntN(20)
		items := randomItems(r, n)

		result, err := Pack(items, k)
		require.NoError(t, err)
		require.Len(t, result.Groups, k)
		require.Len(t, result.Totals, k)

		// Partition: every input path exactly once
		var got []string
		for i, g := range result.Groups {
			assert.True(t, sort.StringsAreSorted(g), "group %d not sorted", i)
			got = append(got, g...)
		}
		want := make([]string, 0, n)
		var total, heaviest float64
		for _, it := range items {
			want = append(want, it.Path)
			total += it.Weight
			heaviest = math.Max(heaviest, it.Weight)
		}
		sort.Strings(got)
		sort.Strings(want)
		require.Equal(t, want, got)

		// Balance bound for greedy list scheduling
		bound := total/float64(k) + heaviest*(1-1/float64(k))
		assert.LessOrEqual(t, result.MaxWeight, bound+1e-6*math.Max(1, bound),
			"n=%d k=%d", n, k)
		assert.LessOrEqual(t, result.MinWeight, result.MaxWeight)
		assert.InDelta(t, total, result.TotalWeight(), 1e-6*math.Max(1, total))
	}
}

func TestPack_Deterministic(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 7))
	items := randomItems(r, 500)

	first, err := Pack(items, 8)
	require.NoError(t, err)

	// Same items in a different order give the same answer
	shuffled := append([]Item(nil), items...)
	r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	second, err := Pack(shuffled, 8)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestItemsFromRecords(t *testing.T) {
	records := []*storage.FileRecord{
		{Path: "/a.fa", Stats: types.CostStats{Sum: 1, LogSum: 2, SqSum: 3}},
		{Path: "/b.fa", Stats: types.CostStats{Sum: 4, LogSum: 5, SqSum: 6}},
	}

	assert.Equal(t, []Item{{1, "/a.fa"}, {4, "/b.fa"}}, ItemsFromRecords(records, types.MetricSum))
	assert.Equal(t, []Item{{2, "/a.fa"}, {5, "/b.fa"}}, ItemsFromRecords(records, types.MetricLogSum))
	assert.Equal(t, []Item{{3, "/a.fa"}, {6, "/b.fa"}}, ItemsFromRecords(records, types.MetricSqSum))
	assert.Empty(t, ItemsFromRecords(nil, types.MetricSum))
}

func TestItemsFromSizes(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i, size := range []int{300, 100, 200, 100} {
		p := filepath.Join(dir, fmt.Sprintf("f%d.fa", i))
		require.NoError(t, os.WriteFile(p, []byte(strings.Repeat("A", size)), 0644))
		paths = append(paths, p)
	}

	items, err := ItemsFromSizes(paths)
	require.NoError(t, err)
	assert.Equal(t, []Item{{300, paths[0]}, {100, paths[1]}, {200, paths[2]}, {100, paths[3]}}, items)

	result, err := Pack(items, 2)
	require.NoError(t, err)
	// f0(300)->0, f2(200)->1, f1(100)->1, f3(100)->0 (tie, lowest index)
	assert.Equal(t, []float64{400, 300}, result.Totals)
	assert.Equal(t, [][]string{{paths[0], paths[3]}, {paths[1], paths[2]}}, result.Groups)

	_, err = ItemsFromSizes([]string{filepath.Join(dir, "missing.fa")})
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = ItemsFromSizes([]string{dir})
	assert.Error(t, err)
}
