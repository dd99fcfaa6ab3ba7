package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"billdash/internal/core"
)

func (s *Server) handleCreateBill(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		BadRequestError("Invalid request body").Write(w)
		return
	}
	keepForm := func(pd *pageData) { pd.Form = formFromRequest("", p) }

	b, err := ParseBill(p)
	if err != nil {
		s.renderFormError(w, r, err, keepForm)
		return
	}
	created, err := s.svc.CreateBill(r.Context(), b)
	if err != nil {
		s.renderFormError(w, r, err, keepForm)
		return
	}
	s.metrics.billsCreated.Add(1)

	if !isHTMX(r) {
		redirectHome(w, r)
		return
	}
	s.renderTable(w, r, NewHTMXResponse().
		Status(http.StatusCreated).
		TriggerBillChanged(ActionCreated, created.ID).
		TriggerFormReset().
		TriggerSuccessNotification("Bill added"))
}

func (s *Server) handleEditBill(w http.ResponseWriter, r *http.Request) {
	b, err := s.svc.GetBill(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, "edit", err)
		return
	}
	if isHTMX(r) {
		s.renderPartial(w, r, NewHTMXResponse(), "bill_form", formFromBill(b))
		return
	}
	page, err := s.indexPage(r)
	if err != nil {
		writeError(w, r, "dashboard", err)
		return
	}
	page.Form = formFromBill(b)
	s.render(w, r, http.StatusOK, "index.html", page)
}

func (s *Server) handleUpdateBill(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		BadRequestError("Invalid request body").Write(w)
		return
	}
	keepForm := func(pd *pageData) { pd.Form = formFromRequest(id, p) }

	b, err := ParseBill(p)
	if err != nil {
		s.renderFormError(w, r, err, keepForm)
		return
	}
	b.ID = id
	if err := s.svc.UpdateBill(r.Context(), b); err != nil {
		s.renderFormError(w, r, err, keepForm)
		return
	}
	s.metrics.billsUpdated.Add(1)

	if !isHTMX(r) {
		redirectHome(w, r)
		return
	}
	s.renderTable(w, r, NewHTMXResponse().
		TriggerBillChanged(ActionUpdated, id).
		TriggerSuccessNotification("Bill updated"))
}

// handleDeleteBill serves both DELETE /bills/{id} and the POST fallback
// used by plain HTML forms.
func (s *Server) handleDeleteBill(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, r, "delete", core.ErrMissingID)
		return
	}
	if err := s.svc.DeleteBill(r.Context(), id); err != nil {
		writeError(w, r, "delete", err)
		return
	}
	s.metrics.billsDeleted.Add(1)

	if !isHTMX(r) && r.Method != http.MethodDelete {
		redirectHome(w, r)
		return
	}
	s.renderTable(w, r, NewHTMXResponse().
		TriggerBillChanged(ActionDeleted, id).
		TriggerSuccessNotification("Bill deleted"))
}
