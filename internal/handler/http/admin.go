package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/workstream-hr/attendance-engine-go/internal/handler/http/response"
	attendancesvc "github.com/workstream-hr/attendance-engine-go/internal/service/attendance"
	"github.com/workstream-hr/attendance-engine-go/internal/service/ingest"
	"github.com/workstream-hr/attendance-engine-go/internal/service/lifecycle"
	"github.com/workstream-hr/attendance-engine-go/internal/service/monitor"
)

// AdminHandler exposes on-demand triggers for the scheduled engine passes.
// Every pass is idempotent, so triggering one out of schedule is safe.
type AdminHandler interface {
	RunIngestion(w http.ResponseWriter, r *http.Request)
	RunDerivation(w http.ResponseWriter, r *http.Request)
	RunBackfill(w http.ResponseWriter, r *http.Request)
	RunSettlement(w http.ResponseWriter, r *http.Request)
	RunReconciliation(w http.ResponseWriter, r *http.Request)
	ReconcileEmployee(w http.ResponseWriter, r *http.Request)
}

type adminHandlerImpl struct {
	ingestSvc     *ingest.Service
	attendanceSvc *attendancesvc.Service
	monitorSvc    *monitor.Service
	lifecycleSvc  *lifecycle.Service
	location      *time.Location
}

func NewAdminHandler(
	ingestSvc *ingest.Service,
	attendanceSvc *attendancesvc.Service,
	monitorSvc *monitor.Service,
	lifecycleSvc *lifecycle.Service,
	location *time.Location,
) AdminHandler {
	return &adminHandlerImpl{
		ingestSvc:     ingestSvc,
		attendanceSvc: attendanceSvc,
		monitorSvc:    monitorSvc,
		lifecycleSvc:  lifecycleSvc,
		location:      location,
	}
}

func (h *adminHandlerImpl) RunIngestion(w http.ResponseWriter, r *http.Request) {
	if err := h.ingestSvc.Run(r.Context()); err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, "Punch ingestion completed", nil)
}

func (h *adminHandlerImpl) RunDerivation(w http.ResponseWriter, r *http.Request) {
	if err := h.attendanceSvc.ProcessAll(r.Context()); err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, "Attendance derivation completed", nil)
}

// RunBackfill manufactures absent records for a given day, defaulting to
// yesterday.
func (h *adminHandlerImpl) RunBackfill(w http.ResponseWriter, r *http.Request) {
	day := time.Now().In(h.location).AddDate(0, 0, -1)
	if v := r.URL.Query().Get("date"); v != "" {
		parsed, err := time.ParseInLocation("2006-01-02", v, h.location)
		if err != nil {
			response.BadRequest(w, "date must be YYYY-MM-DD", nil)
			return
		}
		day = parsed
	}

	if err := h.monitorSvc.BackfillAbsences(r.Context(), day); err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, "Absence backfill completed", nil)
}

func (h *adminHandlerImpl) RunSettlement(w http.ResponseWriter, r *http.Request) {
	if err := h.monitorSvc.SettleOvertime(r.Context(), time.Now().In(h.location)); err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, "Overtime settlement completed", nil)
}

func (h *adminHandlerImpl) RunReconciliation(w http.ResponseWriter, r *http.Request) {
	if err := h.lifecycleSvc.ReconcileAll(r.Context(), time.Now().In(h.location)); err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, "Lifecycle reconciliation completed", nil)
}

// ReconcileEmployee runs the lifecycle rules for one employee, typically
// right after their record changed in the HR system.
func (h *adminHandlerImpl) ReconcileEmployee(w http.ResponseWriter, r *http.Request) {
	err := h.lifecycleSvc.ReconcileEmployee(r.Context(), chi.URLParam(r, "id"), time.Now().In(h.location))
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, "Employee reconciled", nil)
}
