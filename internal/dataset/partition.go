package dataset

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/Brownie44l1/screen-detect/internal/apperr"
)

// Split names one partition of the dataset.
type Split string

const (
	SplitTrain Split = "train"
	SplitVal   Split = "val"
	SplitTest  Split = "test"
)

// Splits lists the splits in materialization order.
var Splits = []Split{SplitTrain, SplitVal, SplitTest}

const ratioTolerance = 1e-6

// DefaultSeed keeps repeated runs reproducible.
const DefaultSeed int64 = 42

// Ratios are the train/val/test fractions.
type Ratios struct {
	Train float64 `yaml:"train"`
	Val   float64 `yaml:"val"`
	Test  float64 `yaml:"test"`
}

// DefaultRatios is the 70/15/15 split.
var DefaultRatios = Ratios{Train: 0.70, Val: 0.15, Test: 0.15}

// Validate checks that every ratio is a non-negative number and that they
// sum to 1.
func (r Ratios) Validate() error {
	for _, v := range []float64{r.Train, r.Val, r.Test} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return apperr.Errorf(apperr.InvalidConfig, "validate ratios", "ratio %v out of range", v)
		}
	}
	if sum := r.Train + r.Val + r.Test; math.Abs(sum-1.0) > ratioTolerance {
		return apperr.Errorf(apperr.InvalidConfig, "validate ratios", "ratios sum to %v, want 1.0", sum)
	}
	return nil
}

// Assignment places every item in exactly one split.
type Assignment struct {
	Train []Item
	Val   []Item
	Test  []Item
}

// Items returns the items assigned to s.
func (a Assignment) Items(s Split) []Item {
	switch s {
	case SplitTrain:
		return a.Train
	case SplitVal:
		return a.Val
	case SplitTest:
		return a.Test
	}
	return nil
}

// Len is the total number of assigned items.
func (a Assignment) Len() int {
	return len(a.Train) + len(a.Val) + len(a.Test)
}

// Lookup returns the split holding the item with the given ID.
func (a Assignment) Lookup(id string) (Split, bool) {
	for _, s := range Splits {
		for _, it := range a.Items(s) {
			if it.ID == id {
				return s, true
			}
		}
	}
	return "", false
}

// Partitioner deterministically splits items. It holds no mutable state.
type Partitioner struct {
	Ratios Ratios
	Seed   int64
	Rule   LabelRule
}

// NewPartitioner returns a Partitioner using the default ratios, seed and
// label rule.
func NewPartitioner() Partitioner {
	return Partitioner{Ratios: DefaultRatios, Seed: DefaultSeed, Rule: DefaultLabelRule}
}

// Partition sorts items by ID, shuffles them with a PRNG seeded only by
// p.Seed and slices the result into train, val and test runs. The test
// split absorbs the rounding remainder.
func (p Partitioner) Partition(items []Item) (Assignment, error) {
	if len(items) == 0 {
		return Assignment{}, apperr.E(apperr.EmptyDataset, "partition", nil)
	}
	if err := p.Ratios.Validate(); err != nil {
		return Assignment{}, err
	}
	rule := p.Rule
	if rule == nil {
		rule = DefaultLabelRule
	}

	ordered := make([]Item, len(items))
	copy(ordered, items)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	rng := rand.New(rand.NewPCG(uint64(p.Seed), 0))
	rng.Shuffle(len(ordered), func(i, j int) { ordered[i], ordered[j] = ordered[j], ordered[i] })

	for i := range ordered {
		ordered[i].Label = rule(ordered[i].Name)
	}

	nTrain, nVal := splitSizes(len(ordered), p.Ratios)
	return Assignment{
		Train: ordered[:nTrain:nTrain],
		Val:   ordered[nTrain : nTrain+nVal : nTrain+nVal],
		Test:  ordered[nTrain+nVal:],
	}, nil
}

// splitSizes applies the floor rule. Float rounding can push
// floor(n*train)+floor(n*val) past n for tiny inputs; val is clamped so the
// test size is never negative.
func splitSizes(n int, r Ratios) (nTrain, nVal int) {
	nTrain = int(math.Floor(float64(n) * r.Train))
	if nTrain > n {
		nTrain = n
	}
	nVal = int(math.Floor(float64(n) * r.Val))
	if nTrain+nVal > n {
		nVal = n - nTrain
	}
	return nTrain, nVal
}
