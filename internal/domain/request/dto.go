package request

import (
	"time"

	"github.com/workstream-hr/attendance-engine-go/internal/pkg/validator"
)

// SubmitRequest is the submission DTO shared by all four request types.
type SubmitRequest struct {
	Type    Type    `json:"type"`
	Payload Payload `json:"payload"`
}

func (r *SubmitRequest) Validate() error {
	var errs validator.ValidationErrors

	switch r.Type {
	case TypeLeave, TypeBusinessTrip:
		if r.Payload.FromDate == nil || r.Payload.ToDate == nil {
			errs = append(errs, validator.ValidationError{Field: "payload", Message: "from_date and to_date are required"})
		} else if r.Payload.ToDate.Before(*r.Payload.FromDate) {
			errs = append(errs, validator.ValidationError{Field: "payload", Message: "to_date must not precede from_date"})
		}
		if r.Type == TypeLeave && r.Payload.LeaveKind == "" {
			errs = append(errs, validator.ValidationError{Field: "payload.leave_kind", Message: "leave_kind is required"})
		}
	case TypeOvertimeClaim:
		if r.Payload.OvertimeDate == nil {
			errs = append(errs, validator.ValidationError{Field: "payload.overtime_date", Message: "overtime_date is required"})
		}
		if r.Payload.OvertimeMinutes < 60 {
			errs = append(errs, validator.ValidationError{Field: "payload.overtime_minutes", Message: "claims below one hour are not accepted"})
		}
	case TypePunchCorrection:
		if r.Payload.CorrectionDate == nil {
			errs = append(errs, validator.ValidationError{Field: "payload.correction_date", Message: "correction_date is required"})
		}
		if r.Payload.TimeIn == nil && r.Payload.TimeOut == nil {
			errs = append(errs, validator.ValidationError{Field: "payload", Message: "at least one of time_in, time_out is required"})
		}
		if r.Payload.TimeIn != nil && !validator.IsValidClockTime(*r.Payload.TimeIn) {
			errs = append(errs, validator.ValidationError{Field: "payload.time_in", Message: "must be HH:MM:SS"})
		}
		if r.Payload.TimeOut != nil && !validator.IsValidClockTime(*r.Payload.TimeOut) {
			errs = append(errs, validator.ValidationError{Field: "payload.time_out", Message: "must be HH:MM:SS"})
		}
	default:
		errs = append(errs, validator.ValidationError{Field: "type", Message: "unknown request type"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// DecisionRequest carries an approve/reject decision on one stage.
type DecisionRequest struct {
	Remark string `json:"remark"`
}

type Response struct {
	ID            string  `json:"id"`
	Type          string  `json:"type"`
	RequestorID   string  `json:"requestor_id"`
	RequestorName string  `json:"requestor_name,omitempty"`
	Payload       Payload `json:"payload"`
	StageA        string  `json:"stage_a"`
	StageB        string  `json:"stage_b"`
	StageC        string  `json:"stage_c"`
	Remarks       *string `json:"remarks,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

func ToResponse(r ApprovableRequest) Response {
	resp := Response{
		ID:          r.ID,
		Type:        string(r.Type),
		RequestorID: r.RequestorID,
		Payload:     r.Payload,
		StageA:      string(r.StageA),
		StageB:      string(r.StageB),
		StageC:      string(r.StageC),
		Remarks:     r.Remarks,
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
	}
	if r.RequestorName != nil {
		resp.RequestorName = *r.RequestorName
	}
	return resp
}

type ListResponse struct {
	TotalCount int64      `json:"total_count"`
	Page       int        `json:"page"`
	Limit      int        `json:"limit"`
	TotalPages int        `json:"total_pages"`
	Requests   []Response `json:"requests"`
}
