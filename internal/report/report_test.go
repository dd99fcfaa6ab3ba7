package report

import (
	"testing"

	"billdash/internal/core"
)

func mk(cat core.Category, cents int64, y, m, d int) core.Bill {
	return core.Bill{Name: "x", Amount: core.Money{Cents: cents}, Category: cat, Date: core.NewDate(y, m, d)}
}

func TestBuildMonthOverview(t *testing.T) {
	bills := []core.Bill{
		mk(core.Utilities, 1000, 2025, 3, 1),
		mk(core.Supplies, 2500, 2025, 3, 10),
		mk(core.Utilities, 1500, 2025, 3, 28),
		mk(core.Marketing, 2500, 2025, 3, 2),
		mk(core.Utilities, 9900, 2025, 4, 1),
		mk(core.Utilities, 9900, 2024, 3, 1),
	}

	ov := BuildMonthOverview(bills, 2025, 3)
	if ov.Count != 4 || ov.Total.Cents != 7500 {
		t.Fatalf("unexpected totals: count=%d total=%d", ov.Count, ov.Total.Cents)
	}
	want := []CategoryAmount{
		{core.Marketing, core.Money{Cents: 2500}},
		{core.Supplies, core.Money{Cents: 2500}},
		{core.Utilities, core.Money{Cents: 2500}},
	}
	if len(ov.ByCategory) != len(want) {
		t.Fatalf("unexpected categories: %+v", ov.ByCategory)
	}
	for i := range want {
		if ov.ByCategory[i] != want[i] {
			t.Fatalf("category %d = %+v, want %+v", i, ov.ByCategory[i], want[i])
		}
	}

	empty := BuildMonthOverview(bills, 2025, 7)
	if empty.Count != 0 || empty.Total.Cents != 0 || len(empty.ByCategory) != 0 {
		t.Fatalf("expected empty overview, got %+v", empty)
	}
}

func TestBuildTrend(t *testing.T) {
	bills := []core.Bill{
		mk(core.Utilities, 3000, 2025, 2, 1),
		mk(core.Utilities, 1000, 2024, 12, 5),
		mk(core.Supplies, 2000, 2025, 2, 14),
		mk(core.Other, 500, 2025, 1, 31),
	}

	tr := BuildTrend(bills)
	if len(tr.Months) != 3 {
		t.Fatalf("expected 3 months, got %d", len(tr.Months))
	}
	labels := []string{"Dec 2024", "Jan 2025", "Feb 2025"}
	totals := []int64{1000, 500, 5000}
	for i, m := range tr.Months {
		if m.Label() != labels[i] || m.Total.Cents != totals[i] {
			t.Fatalf("month %d = %s %d, want %s %d", i, m.Label(), m.Total.Cents, labels[i], totals[i])
		}
	}
	if tr.Total.Cents != 6500 || tr.Average.Cents != 2167 {
		t.Fatalf("unexpected total/average: %d / %d", tr.Total.Cents, tr.Average.Cents)
	}
	if tr.Highest.Cents != 5000 || tr.Lowest.Cents != 500 {
		t.Fatalf("unexpected highest/lowest: %d / %d", tr.Highest.Cents, tr.Lowest.Cents)
	}

	none := BuildTrend(nil)
	if len(none.Months) != 0 || none.Average.Cents != 0 || none.Highest.Cents != 0 {
		t.Fatalf("expected zero trend, got %+v", none)
	}
}

func TestBuildChart(t *testing.T) {
	tr := BuildTrend([]core.Bill{
		mk(core.Utilities, 1000, 2025, 1, 1),
		mk(core.Utilities, 2000, 2025, 2, 1),
	})
	c := BuildChart(tr, 460, 260)
	if len(c.Points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(c.Points))
	}
	if c.Points[0].X != 30 || c.Points[1].X != 430 {
		t.Fatalf("unexpected x coordinates: %+v", c.Points)
	}
	if c.Points[1].Y != 30 || c.Points[0].Y != 130 {
		t.Fatalf("unexpected y coordinates: %+v", c.Points)
	}
	if got := c.Polyline(); got != "30.0,130.0 430.0,30.0" {
		t.Fatalf("unexpected polyline %q", got)
	}

	single := BuildChart(BuildTrend([]core.Bill{mk(core.Other, 100, 2025, 5, 1)}), 200, 100)
	if len(single.Points) != 1 || single.Points[0].X != 100 {
		t.Fatalf("single point should be centred, got %+v", single.Points)
	}

	if empty := BuildChart(TrendSummary{}, 200, 100); len(empty.Points) != 0 || empty.Polyline() != "" {
		t.Fatalf("expected empty chart, got %+v", empty)
	}
}
