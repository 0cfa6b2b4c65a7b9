package matcher

import (
	"sort"

	"golang-trade-reconciliation-engine/internal/models"

	"github.com/shopspring/decimal"
)

// feedIndex accelerates candidate lookup for the deterministic pass.
// Positions refer to offsets in the indexed feed slice, so iterating a
// candidate list in ascending order preserves feed-order first-fit
// semantics.
type feedIndex struct {
	// byExternalID maps external IDs to record positions.
	byExternalID map[string][]int

	// byAmountBucket maps amounts rounded to cents to record positions.
	// The amount rule's tolerance spans at most one adjacent bucket on
	// each side.
	byAmountBucket map[string][]int

	records []*models.TransactionRecord
}

// newFeedIndex builds an index over a feed slice
func newFeedIndex(records []*models.TransactionRecord) *feedIndex {
	idx := &feedIndex{
		byExternalID:   make(map[string][]int),
		byAmountBucket: make(map[string][]int),
		records:        records,
	}

	for i, r := range records {
		if r.ExternalID != "" {
			idx.byExternalID[r.ExternalID] = append(idx.byExternalID[r.ExternalID], i)
		}

		bucket := amountBucket(r.Amount)
		idx.byAmountBucket[bucket] = append(idx.byAmountBucket[bucket], i)
	}

	return idx
}

// candidatesFor returns the positions of records that could satisfy the
// deterministic rule for the given record, in ascending feed order. The
// amount tolerance widens the bucket neighborhood that must be scanned.
func (idx *feedIndex) candidatesFor(r *models.TransactionRecord, tolerance decimal.Decimal) []int {
	seen := make(map[int]bool)
	var positions []int

	add := func(ps []int) {
		for _, p := range ps {
			if !seen[p] {
				seen[p] = true
				positions = append(positions, p)
			}
		}
	}

	if r.ExternalID != "" {
		add(idx.byExternalID[r.ExternalID])
	}

	// Amount-rule candidates: the record's own bucket plus every bucket
	// the tolerance can reach, since a tolerance may straddle bucket edges.
	span := tolerance.Mul(decimal.NewFromInt(100)).Ceil().IntPart()
	cents := r.Amount.Mul(decimal.NewFromInt(100)).Round(0)
	for delta := -span; delta <= span; delta++ {
		neighbor := cents.Add(decimal.NewFromInt(delta)).Div(decimal.NewFromInt(100))
		add(idx.byAmountBucket[amountBucket(neighbor)])
	}

	sort.Ints(positions)
	return positions
}

// amountBucket keys an amount by its value rounded to two decimal places
func amountBucket(amount decimal.Decimal) string {
	return amount.Round(2).String()
}
