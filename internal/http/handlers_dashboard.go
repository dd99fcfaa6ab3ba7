package http

import (
	"bytes"
	"net/http"

	"billdash/internal/services"
)

// pageData is the model for index.html and the partials it embeds.
type pageData struct {
	Title     string
	Page      string
	Dashboard services.Dashboard
	Budget    string
	Error     string
	Optimize  *services.OptimizeResult
	Form      billForm
}

func (s *Server) indexPage(r *http.Request) (pageData, error) {
	d, err := s.dashboard(r.Context())
	if err != nil {
		return pageData{}, err
	}
	return pageData{
		Title:     "Dashboard",
		Page:      "dashboard",
		Dashboard: d,
		Form:      newBillForm(s.now()),
	}, nil
}

// renderPartial executes a named template into the builder body so that
// HX-Trigger headers go out before the status line.
func (s *Server) renderPartial(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		writeError(w, r, "render "+name, err)
		return
	}
	b.BodyHTML(buf.String()).Write(w)
}

// renderTable sends the refreshed bills table fragment.
func (s *Server) renderTable(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder) {
	page, err := s.indexPage(r)
	if err != nil {
		writeError(w, r, "dashboard", err)
		return
	}
	s.renderPartial(w, r, b, "bills_table", page)
}

// redirectHome finishes a classic form post.
func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// renderFormError shows the dashboard again with msg above the form,
// keeping whatever the user typed.
func (s *Server) renderFormError(w http.ResponseWriter, r *http.Request, err error, fill func(*pageData)) {
	msg, status, known := userMessage(err)
	if isHTMX(r) || !known {
		writeError(w, r, "form", err)
		return
	}
	page, derr := s.indexPage(r)
	if derr != nil {
		writeError(w, r, "dashboard", derr)
		return
	}
	page.Error = msg
	if fill != nil {
		fill(&page)
	}
	s.render(w, r, status, "index.html", page)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page, err := s.indexPage(r)
	if err != nil {
		writeError(w, r, "dashboard", err)
		return
	}
	s.render(w, r, http.StatusOK, "index.html", page)
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		BadRequestError("Invalid request body").Write(w)
		return
	}
	f, err := ParseFilter(p)
	if err != nil {
		s.renderFormError(w, r, err, nil)
		return
	}
	if err := s.svc.SetFilter(r.Context(), f); err != nil {
		s.renderFormError(w, r, err, nil)
		return
	}
	if !isHTMX(r) {
		redirectHome(w, r)
		return
	}
	s.renderTable(w, r, NewHTMXResponse().TriggerBillChanged(ActionFiltered, ""))
}

// handleOptimize runs the budget selector over the current month. The
// result is shown inline; nothing is persisted.
func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		BadRequestError("Invalid request body").Write(w)
		return
	}
	raw := p.Get("budget")
	budget, err := ParseBudget(p)
	if err != nil {
		s.renderFormError(w, r, err, func(pd *pageData) { pd.Budget = raw })
		return
	}
	res, err := s.svc.Optimize(r.Context(), s.now(), budget)
	if err != nil {
		writeError(w, r, "optimize", err)
		return
	}
	s.metrics.optimizeRuns.Add(1)

	if isHTMX(r) {
		s.renderPartial(w, r, NewHTMXResponse(), "optimize_results", res)
		return
	}
	page, err := s.indexPage(r)
	if err != nil {
		writeError(w, r, "dashboard", err)
		return
	}
	page.Budget = raw
	page.Optimize = &res
	s.render(w, r, http.StatusOK, "index.html", page)
}
