package http

import (
	"net/http"
	"time"

	"github.com/workstream-hr/attendance-engine-go/internal/domain/attendance"
	"github.com/workstream-hr/attendance-engine-go/internal/domain/employee"
	"github.com/workstream-hr/attendance-engine-go/internal/handler/http/response"
	attendancesvc "github.com/workstream-hr/attendance-engine-go/internal/service/attendance"
)

// AttendanceHandler defines the attendance handler interface
type AttendanceHandler interface {
	List(w http.ResponseWriter, r *http.Request)
	MyMonth(w http.ResponseWriter, r *http.Request)
}

type attendanceHandlerImpl struct {
	attendanceSvc *attendancesvc.Service
}

func NewAttendanceHandler(attendanceSvc *attendancesvc.Service) AttendanceHandler {
	return &attendanceHandlerImpl{attendanceSvc: attendanceSvc}
}

// List returns attendance records. Subordinates only see their own; the
// approving and admin roles can filter by employee.
func (h *attendanceHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	filter := attendance.Filter{
		EmployeeID: r.URL.Query().Get("employee_id"),
		Status:     r.URL.Query().Get("status"),
		Page:       queryInt(r, "page", 1),
		Limit:      queryInt(r, "limit", 20),
	}

	if roleFromContext(r) == string(employee.RoleSubordinate) {
		filter.EmployeeID = employeeIDFromContext(r)
	}

	if v := r.URL.Query().Get("from"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			filter.From = &t
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			filter.To = &t
		}
	}

	resp, err := h.attendanceSvc.List(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, resp.Attendances, &response.Meta{
		Page:       resp.Page,
		Limit:      resp.Limit,
		TotalItems: resp.TotalCount,
		TotalPages: resp.TotalPages,
	})
}

// MyMonth returns the caller's attendance for one month.
func (h *attendanceHandlerImpl) MyMonth(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	year := queryInt(r, "year", now.Year())
	month := queryInt(r, "month", int(now.Month()))
	if month < 1 || month > 12 {
		response.BadRequest(w, "month must be between 1 and 12", nil)
		return
	}

	resp, err := h.attendanceSvc.MonthView(r.Context(), employeeIDFromContext(r), year, time.Month(month))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, resp)
}
