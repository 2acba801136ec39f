package employee

// CompGrantResponse is one ledger entry in the balances view.
type CompGrantResponse struct {
	ID          string `json:"id"`
	AmountHours int    `json:"amount_hours"`
	Status      string `json:"status"`
	GrantDate   string `json:"grant_date"`
}

// BalanceResponse is the leave-balance view of one employee.
type BalanceResponse struct {
	EmployeeID               string              `json:"employee_id"`
	Name                     string              `json:"name"`
	Type                     string              `json:"type"`
	PaidLeaveBalance         float64             `json:"paid_leave_balance"`
	MedicalLeaveBalance      float64             `json:"medical_leave_balance"`
	RestrictedHolidayBalance float64             `json:"restricted_holiday_balance"`
	MaternityClaimsUsed      int                 `json:"maternity_claims_used"`
	PaternityClaimsUsed      int                 `json:"paternity_claims_used"`
	UnpaidLeaveTaken         float64             `json:"unpaid_leave_taken"`
	CompensatoryHours        int                 `json:"compensatory_hours"`
	CompGrants               []CompGrantResponse `json:"comp_grants"`
	EmergencyLeaveGranted    bool                `json:"emergency_leave_granted"`
}

// ToBalanceResponse projects an employee onto its balances view.
func ToBalanceResponse(e Employee) BalanceResponse {
	resp := BalanceResponse{
		EmployeeID:               e.ID,
		Name:                     e.Name,
		Type:                     string(e.Type),
		PaidLeaveBalance:         e.PaidLeaveBalance,
		MedicalLeaveBalance:      e.MedicalLeaveBalance,
		RestrictedHolidayBalance: e.RestrictedHolidayBalance,
		MaternityClaimsUsed:      e.MaternityClaimsUsed,
		PaternityClaimsUsed:      e.PaternityClaimsUsed,
		UnpaidLeaveTaken:         e.UnpaidLeaveTaken,
		CompensatoryHours:        e.AvailableCompHours(),
		CompGrants:               make([]CompGrantResponse, 0, len(e.CompGrants)),
		EmergencyLeaveGranted:    e.EmergencyLeaveGranted,
	}
	for _, g := range e.CompGrants {
		resp.CompGrants = append(resp.CompGrants, CompGrantResponse{
			ID:          g.ID,
			AmountHours: g.AmountHours,
			Status:      string(g.Status),
			GrantDate:   g.GrantDate.Format("2006-01-02"),
		})
	}
	return resp
}
