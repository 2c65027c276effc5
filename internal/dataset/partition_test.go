package dataset

import (
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/screen-detect/internal/apperr"
)

func makeItems(n int) []Item {
	items := make([]Item, n)
	for i := range items {
		name := fmt.Sprintf("photo_%03d.jpg", i)
		if i%3 == 0 {
			name = fmt.Sprintf("IMG_original_%03d.jpg", i)
		}
		id := fmt.Sprintf("dir%d/%s", i%4, name)
		items[i] = Item{ID: id, Name: name, Path: "/raw/" + id}
	}
	return items
}

func TestPartitionSizesAndCoverage(t *testing.T) {
	ratios := []Ratios{
		DefaultRatios,
		{Train: 0.5, Val: 0.5, Test: 0},
		{Train: 0.8, Val: 0.1, Test: 0.1},
		{Train: 1, Val: 0, Test: 0},
		{Train: 0, Val: 0, Test: 1},
		{Train: 1.0 / 3, Val: 1.0 / 3, Test: 1.0 / 3},
	}
	for _, r := range ratios {
		for _, n := range []int{1, 2, 3, 7, 10, 99, 250} {
			t.Run(fmt.Sprintf("%v/%d", r, n), func(t *testing.T) {
				p := Partitioner{Ratios: r, Seed: 7}
				a, err := p.Partition(makeItems(n))
				require.NoError(t, err)

				wantTrain := int(math.Floor(float64(n) * r.Train))
				wantVal := int(math.Floor(float64(n) * r.Val))
				assert.Len(t, a.Train, wantTrain)
				assert.Len(t, a.Val, wantVal)
				assert.Len(t, a.Test, n-wantTrain-wantVal)

				seen := map[string]bool{}
				for _, s := range Splits {
					for _, it := range a.Items(s) {
						assert.False(t, seen[it.ID], "duplicate %s", it.ID)
						seen[it.ID] = true
					}
				}
				assert.Len(t, seen, n)
			})
		}
	}
}

func TestPartitionDeterministic(t *testing.T) {
	items := makeItems(40)
	p := NewPartitioner()

	first, err := p.Partition(items)
	require.NoError(t, err)
	second, err := p.Partition(items)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	other := p
	other.Seed = 43
	third, err := other.Partition(items)
	require.NoError(t, err)
	assert.NotEqual(t, first, third, "a different seed should produce a different permutation")
}

func TestPartitionIgnoresInputOrder(t *testing.T) {
	items := makeItems(40)
	p := NewPartitioner()
	want, err := p.Partition(items)
	require.NoError(t, err)

	shuffled := append([]Item(nil), items...)
	rng := rand.New(rand.NewPCG(1, 2))
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	got, err := p.Partition(shuffled)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestPartitionDoesNotMutateInput(t *testing.T) {
	items := makeItems(10)
	orig := append([]Item(nil), items...)

	_, err := NewPartitioner().Partition(items)
	require.NoError(t, err)
	assert.Equal(t, orig, items)
}

func TestPartitionAttachesLabels(t *testing.T) {
	a, err := NewPartitioner().Partition(makeItems(30))
	require.NoError(t, err)

	for _, s := range Splits {
		for _, it := range a.Items(s) {
			assert.Equal(t, DefaultLabelRule(it.Name), it.Label, it.ID)
		}
	}
}

func TestPartitionErrors(t *testing.T) {
	_, err := NewPartitioner().Partition(nil)
	assert.ErrorIs(t, err, apperr.ErrEmptyDataset)

	bad := []Ratios{
		{Train: 0.7, Val: 0.2, Test: 0.2},
		{Train: 1.2, Val: -0.1, Test: -0.1},
		{Train: math.NaN(), Val: 0.5, Test: 0.5},
	}
	for _, r := range bad {
		_, err := Partitioner{Ratios: r}.Partition(makeItems(5))
		assert.ErrorIs(t, err, apperr.ErrInvalidConfig, "%v", r)
	}
}

func TestRatiosValidateTolerance(t *testing.T) {
	assert.NoError(t, Ratios{Train: 0.7, Val: 0.15, Test: 0.15 + 1e-7}.Validate())
	assert.Error(t, Ratios{Train: 0.7, Val: 0.15, Test: 0.15 + 1e-5}.Validate())
}

func TestSplitSizesClamp(t *testing.T) {
	train, val := splitSizes(5, Ratios{Train: 0.6, Val: 0.6})
	assert.Equal(t, 3, train)
	assert.Equal(t, 2, val)

	train, val = splitSizes(2, Ratios{Train: 1.5})
	assert.Equal(t, 2, train)
	assert.Equal(t, 0, val)
}

func TestAssignmentLookup(t *testing.T) {
	a, err := NewPartitioner().Partition(makeItems(20))
	require.NoError(t, err)

	for _, s := range Splits {
		for _, it := range a.Items(s) {
			got, ok := a.Lookup(it.ID)
			require.True(t, ok)
			assert.Equal(t, s, got)
		}
	}
	_, ok := a.Lookup("missing.jpg")
	assert.False(t, ok)
	assert.Equal(t, 20, a.Len())
}
