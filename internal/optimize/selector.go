// Package optimize picks which bills to pay when the budget cannot cover all of them.
//
// The selection favours paying as many bills as possible. It is a windowed
// greedy scan over the bills sorted by amount and is not guaranteed to find
// the largest feasible subset.
package optimize

import (
	"slices"

	"github.com/shopspring/decimal"

	"billdash/internal/core"
)

// Selection is the outcome of Select.
type Selection struct {
	SelectedIDs []string
	Total       core.Money
}

// Count returns the number of selected bills.
func (s Selection) Count() int {
	return len(s.SelectedIDs)
}

// Contains reports whether the bill with the given id was selected.
func (s Selection) Contains(id string) bool {
	return slices.Contains(s.SelectedIDs, id)
}

// Select chooses bills whose total stays within budget, maximising the count.
//
// Bills are stably sorted by amount. For every start index i the scan takes
// each bill from i onward that still fits, skipping the ones that would
// overflow. The window with the most bills wins; on equal counts the earliest
// start is kept. A non-positive budget or an empty input yields an empty
// selection.
func Select(bills []core.Bill, budget core.Money) Selection {
	if budget.Cents <= 0 || len(bills) == 0 {
		return Selection{SelectedIDs: []string{}}
	}

	sorted := slices.Clone(bills)
	slices.SortStableFunc(sorted, func(a, b core.Bill) int {
		switch {
		case a.Amount.Cents < b.Amount.Cents:
			return -1
		case a.Amount.Cents > b.Amount.Cents:
			return 1
		}
		return 0
	})

	best := Selection{SelectedIDs: []string{}}
	for i := range sorted {
		var total int64
		ids := make([]string, 0, len(sorted)-i)
		for j := i; j < len(sorted); j++ {
			if total+sorted[j].Amount.Cents <= budget.Cents {
				total += sorted[j].Amount.Cents
				ids = append(ids, sorted[j].ID)
			}
		}
		if len(ids) > len(best.SelectedIDs) {
			best = Selection{SelectedIDs: ids, Total: core.Money{Cents: total}}
		}
	}
	return best
}

// Summary is what the results view shows for a selection.
type Summary struct {
	Budget      core.Money
	Count       int
	Total       core.Money
	Remaining   core.Money
	Utilization decimal.Decimal // percent of budget spent, 0 when budget is 0
}

// WithinBudget reports whether the selection leaves a non-negative remainder.
func (s Summary) WithinBudget() bool {
	return s.Remaining.Cents >= 0
}

// BarWidth returns the utilization clamped to [0, 100] for progress bars.
func (s Summary) BarWidth() int {
	w := s.Utilization.Round(0).IntPart()
	if w < 0 {
		return 0
	}
	if w > 100 {
		return 100
	}
	return int(w)
}

// Summarize derives remaining budget and utilization for a selection.
func Summarize(budget core.Money, sel Selection) Summary {
	return Summary{
		Budget:      budget,
		Count:       sel.Count(),
		Total:       sel.Total,
		Remaining:   budget.Sub(sel.Total),
		Utilization: core.Percent(sel.Total, budget),
	}
}
