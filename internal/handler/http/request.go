package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/workstream-hr/attendance-engine-go/internal/domain/employee"
	"github.com/workstream-hr/attendance-engine-go/internal/domain/request"
	"github.com/workstream-hr/attendance-engine-go/internal/handler/http/response"
	"github.com/workstream-hr/attendance-engine-go/internal/service/approval"
)

// RequestHandler defines the approvable-request handler interface
type RequestHandler interface {
	Submit(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Approve(w http.ResponseWriter, r *http.Request)
	Reject(w http.ResponseWriter, r *http.Request)
	Acknowledge(w http.ResponseWriter, r *http.Request)
}

type requestHandlerImpl struct {
	approvalSvc *approval.Service
}

func NewRequestHandler(approvalSvc *approval.Service) RequestHandler {
	return &requestHandlerImpl{approvalSvc: approvalSvc}
}

// Submit files a new leave, business-trip, overtime-claim or
// punch-correction request for the caller.
func (h *requestHandlerImpl) Submit(w http.ResponseWriter, r *http.Request) {
	var dto request.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	resp, err := h.approvalSvc.Submit(r.Context(), employeeIDFromContext(r), dto)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Request submitted", resp)
}

// List returns requests. Subordinates only see their own.
func (h *requestHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	filter := request.Filter{
		RequestorID: r.URL.Query().Get("requestor_id"),
		Type:        r.URL.Query().Get("type"),
		Pending:     queryBool(r, "pending", false),
		Page:        queryInt(r, "page", 1),
		Limit:       queryInt(r, "limit", 20),
	}

	if roleFromContext(r) == string(employee.RoleSubordinate) {
		filter.RequestorID = employeeIDFromContext(r)
	}

	resp, err := h.approvalSvc.List(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, resp.Requests, &response.Meta{
		Page:       resp.Page,
		Limit:      resp.Limit,
		TotalItems: resp.TotalCount,
		TotalPages: resp.TotalPages,
	})
}

func (h *requestHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	resp, err := h.approvalSvc.Get(r.Context(), employeeIDFromContext(r), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, resp)
}

func (h *requestHandlerImpl) Approve(w http.ResponseWriter, r *http.Request) {
	resp, err := h.approvalSvc.Approve(r.Context(), employeeIDFromContext(r), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Request approved", resp)
}

func (h *requestHandlerImpl) Reject(w http.ResponseWriter, r *http.Request) {
	var dto request.DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	resp, err := h.approvalSvc.Reject(r.Context(), employeeIDFromContext(r), chi.URLParam(r, "id"), dto.Remark)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Request rejected", resp)
}

func (h *requestHandlerImpl) Acknowledge(w http.ResponseWriter, r *http.Request) {
	resp, err := h.approvalSvc.Acknowledge(r.Context(), employeeIDFromContext(r), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Request acknowledged", resp)
}
