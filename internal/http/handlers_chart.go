package http

import (
	"net/http"

	"billdash/internal/core"
	"billdash/internal/report"
)

const (
	chartWidth  = 720
	chartHeight = 320
)

type chartPage struct {
	Title string
	Page  string
	Trend report.TrendSummary
	Chart report.Chart
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	tr, err := s.trend(r.Context())
	if err != nil {
		writeError(w, r, "trend", err)
		return
	}
	s.render(w, r, http.StatusOK, "chart.html", chartPage{
		Title: "Monthly trend",
		Page:  "chart",
		Trend: tr,
		Chart: report.BuildChart(tr, chartWidth, chartHeight),
	})
}

type amountDTO struct {
	Cents int64  `json:"cents"`
	Value string `json:"value"`
}

func toAmountDTO(m core.Money) amountDTO {
	return amountDTO{Cents: m.Cents, Value: m.String()}
}

type monthDTO struct {
	Year  int       `json:"year"`
	Month int       `json:"month"`
	Label string    `json:"label"`
	Total amountDTO `json:"total"`
}

type trendDTO struct {
	Months  []monthDTO `json:"months"`
	Total   amountDTO  `json:"total"`
	Average amountDTO  `json:"average"`
	Highest amountDTO  `json:"highest"`
	Lowest  amountDTO  `json:"lowest"`
}

// handleTrendJSON exposes the monthly totals for external charting.
func (s *Server) handleTrendJSON(w http.ResponseWriter, r *http.Request) {
	tr, err := s.trend(r.Context())
	if err != nil {
		writeError(w, r, "trend", err)
		return
	}
	dto := trendDTO{
		Months:  make([]monthDTO, 0, len(tr.Months)),
		Total:   toAmountDTO(tr.Total),
		Average: toAmountDTO(tr.Average),
		Highest: toAmountDTO(tr.Highest),
		Lowest:  toAmountDTO(tr.Lowest),
	}
	for _, m := range tr.Months {
		dto.Months = append(dto.Months, monthDTO{
			Year:  m.Year,
			Month: m.Month,
			Label: m.Label(),
			Total: toAmountDTO(m.Total),
		})
	}
	NewHTMXResponse().JSON(dto).Write(w)
}
