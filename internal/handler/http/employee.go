package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/workstream-hr/attendance-engine-go/internal/handler/http/response"
	"github.com/workstream-hr/attendance-engine-go/internal/service/lifecycle"
)

// EmployeeHandler exposes the leave-balance and audit views of the
// employee record. The CRUD surface itself lives in another service.
type EmployeeHandler interface {
	MyBalances(w http.ResponseWriter, r *http.Request)
	Balances(w http.ResponseWriter, r *http.Request)
	AuditTrail(w http.ResponseWriter, r *http.Request)
}

type employeeHandlerImpl struct {
	lifecycleSvc *lifecycle.Service
}

func NewEmployeeHandler(lifecycleSvc *lifecycle.Service) EmployeeHandler {
	return &employeeHandlerImpl{lifecycleSvc: lifecycleSvc}
}

func (h *employeeHandlerImpl) MyBalances(w http.ResponseWriter, r *http.Request) {
	resp, err := h.lifecycleSvc.Balances(r.Context(), employeeIDFromContext(r))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, resp)
}

func (h *employeeHandlerImpl) Balances(w http.ResponseWriter, r *http.Request) {
	resp, err := h.lifecycleSvc.Balances(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, resp)
}

func (h *employeeHandlerImpl) AuditTrail(w http.ResponseWriter, r *http.Request) {
	entries, err := h.lifecycleSvc.AuditTrail(r.Context(), chi.URLParam(r, "id"), queryInt(r, "limit", 50))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, entries)
}
