package attendance

import (
	"time"
)

type Filter struct {
	EmployeeID string
	From       *time.Time
	To         *time.Time
	Status     string
	Page       int
	Limit      int
}

func (f *Filter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}
}

type Response struct {
	ID              string  `json:"id"`
	EmployeeID      string  `json:"employee_id"`
	EmployeeName    string  `json:"employee_name,omitempty"`
	Date            string  `json:"date"`
	TimeIn          *string `json:"time_in"`
	TimeOut         *string `json:"time_out"`
	Status          string  `json:"status"`
	HalfDayPortion  *string `json:"half_day_portion,omitempty"`
	OvertimeMinutes int     `json:"overtime_minutes"`
}

type ListResponse struct {
	TotalCount  int64      `json:"total_count"`
	Page        int        `json:"page"`
	Limit       int        `json:"limit"`
	TotalPages  int        `json:"total_pages"`
	Attendances []Response `json:"attendances"`
}
