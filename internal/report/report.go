// Package report aggregates bills into the dashboard overview and the monthly trend.
package report

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"billdash/internal/core"
)

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	Category core.Category
	Amount   core.Money
}

// MonthOverview is a compact summary for a specific year+month.
type MonthOverview struct {
	Year       int
	Month      int // 1-12
	Total      core.Money
	Count      int
	ByCategory []CategoryAmount
}

// MonthTotal is one point of the trend.
type MonthTotal struct {
	Year  int
	Month int
	Total core.Money
}

// Label renders the month as "Jan 2025".
func (m MonthTotal) Label() string {
	return fmt.Sprintf("%s %d", time.Month(m.Month).String()[:3], m.Year)
}

// TrendSummary holds the chart data and its headline figures.
type TrendSummary struct {
	Months  []MonthTotal
	Total   core.Money
	Average core.Money
	Highest core.Money
	Lowest  core.Money
}

// BuildMonthOverview totals the bills dated in year/month.
// Categories are ordered by amount descending, then by name.
func BuildMonthOverview(bills []core.Bill, year, month int) MonthOverview {
	ov := MonthOverview{Year: year, Month: month}
	sums := map[core.Category]int64{}
	for _, b := range core.InMonth(bills, year, month) {
		ov.Total = ov.Total.Add(b.Amount)
		ov.Count++
		sums[b.Category] += b.Amount.Cents
	}
	for c, cents := range sums {
		ov.ByCategory = append(ov.ByCategory, CategoryAmount{Category: c, Amount: core.Money{Cents: cents}})
	}
	slices.SortFunc(ov.ByCategory, func(a, b CategoryAmount) int {
		if a.Amount.Cents != b.Amount.Cents {
			if a.Amount.Cents > b.Amount.Cents {
				return -1
			}
			return 1
		}
		return strings.Compare(string(a.Category), string(b.Category))
	})
	return ov
}

// BuildTrend groups all bills by calendar month in chronological order.
func BuildTrend(bills []core.Bill) TrendSummary {
	byMonth := map[int]*MonthTotal{}
	var summary TrendSummary
	for _, b := range bills {
		key := b.Date.Year()*12 + b.Date.Month() - 1
		mt, ok := byMonth[key]
		if !ok {
			mt = &MonthTotal{Year: b.Date.Year(), Month: b.Date.Month()}
			byMonth[key] = mt
		}
		mt.Total = mt.Total.Add(b.Amount)
		summary.Total = summary.Total.Add(b.Amount)
	}

	keys := make([]int, 0, len(byMonth))
	for k := range byMonth {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for i, k := range keys {
		mt := *byMonth[k]
		summary.Months = append(summary.Months, mt)
		if i == 0 || mt.Total.Cents > summary.Highest.Cents {
			summary.Highest = mt.Total
		}
		if i == 0 || mt.Total.Cents < summary.Lowest.Cents {
			summary.Lowest = mt.Total
		}
	}
	if len(keys) > 0 {
		avg := decimal.NewFromInt(summary.Total.Cents).
			DivRound(decimal.NewFromInt(int64(len(keys))), 0)
		summary.Average = core.Money{Cents: avg.IntPart()}
	}
	return summary
}
