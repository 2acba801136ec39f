package notification

import (
	"time"
)

// NotificationType represents the type of notification
type NotificationType string

const (
	TypeRequestSubmitted    NotificationType = "request_submitted"
	TypeRequestApproved     NotificationType = "request_approved"
	TypeRequestRejected     NotificationType = "request_rejected"
	TypeRequestAcknowledged NotificationType = "request_acknowledged"
	TypeAbsenceWarning      NotificationType = "absence_warning"
	TypeTerminationRisk     NotificationType = "termination_risk"
	TypeOvertimeForfeited   NotificationType = "overtime_forfeited"
	TypeCompLeaveGranted    NotificationType = "comp_leave_granted"
	TypeProbationConfirmed  NotificationType = "probation_confirmed"
)

// Notification represents a notification entity
type Notification struct {
	ID          string
	RecipientID string
	SenderID    *string
	Type        NotificationType
	Title       string
	Message     string
	IsRead      bool
	ReadAt      *time.Time
	CreatedAt   time.Time
}
