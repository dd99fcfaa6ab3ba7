package report

import (
	"strconv"
	"strings"
)

// ChartPoint is a vertex of the trend line in SVG user units.
type ChartPoint struct {
	X, Y  float64
	Label string
	Value string
}

// Chart is the geometry of the monthly trend line chart.
type Chart struct {
	Width, Height int
	Points        []ChartPoint
	MaxValue      string
}

// Polyline returns the points attribute for an SVG <polyline>.
func (c Chart) Polyline() string {
	parts := make([]string, len(c.Points))
	for i, p := range c.Points {
		parts[i] = strconv.FormatFloat(p.X, 'f', 1, 64) + "," + strconv.FormatFloat(p.Y, 'f', 1, 64)
	}
	return strings.Join(parts, " ")
}

const chartPadding = 30

// BuildChart scales the trend into a width x height canvas. The y axis starts
// at zero; a single month is drawn in the horizontal middle.
func BuildChart(t TrendSummary, width, height int) Chart {
	c := Chart{Width: width, Height: height, MaxValue: t.Highest.String()}
	if len(t.Months) == 0 {
		return c
	}

	plotW := float64(width - 2*chartPadding)
	plotH := float64(height - 2*chartPadding)
	maxCents := float64(t.Highest.Cents)

	step := 0.0
	if len(t.Months) > 1 {
		step = plotW / float64(len(t.Months)-1)
	}
	for i, m := range t.Months {
		x := float64(chartPadding) + step*float64(i)
		if len(t.Months) == 1 {
			x = float64(width) / 2
		}
		y := float64(height - chartPadding)
		if maxCents > 0 {
			y -= plotH * float64(m.Total.Cents) / maxCents
		}
		c.Points = append(c.Points, ChartPoint{X: x, Y: y, Label: m.Label(), Value: m.Total.String()})
	}
	return c
}
