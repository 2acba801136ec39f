package approval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/workstream-hr/attendance-engine-go/internal/domain/employee"
	"github.com/workstream-hr/attendance-engine-go/internal/domain/notification"
	"github.com/workstream-hr/attendance-engine-go/internal/domain/request"
	"github.com/workstream-hr/attendance-engine-go/internal/pkg/database"
	"github.com/workstream-hr/attendance-engine-go/internal/repository/postgresql"
	"github.com/workstream-hr/attendance-engine-go/internal/service/lifecycle"
	"github.com/workstream-hr/attendance-engine-go/internal/service/monitor"
)

// Service drives the tri-stage approval workflow shared by leave,
// business-trip, overtime-claim and punch-correction requests. Stage A is
// the department head, stage B the executive, stage C the administrator's
// acknowledgment, which is the single point where balance side effects fire.
type Service struct {
	requestRepo request.RequestRepository
	employee.EmployeeRepository
	lifecycleSvc    *lifecycle.Service
	notificationSvc notification.Service
	policy          monitor.EligibilityPolicy
	location        *time.Location

	// runInTx wraps the acknowledgment's stage write and its side effects
	// in one transaction boundary.
	runInTx func(ctx context.Context, fn func(context.Context) error) error
}

func NewService(
	db *database.DB,
	requestRepo request.RequestRepository,
	employeeRepo employee.EmployeeRepository,
	lifecycleSvc *lifecycle.Service,
	notificationSvc notification.Service,
	policy monitor.EligibilityPolicy,
	location *time.Location,
) *Service {
	return &Service{
		requestRepo:        requestRepo,
		EmployeeRepository: employeeRepo,
		lifecycleSvc:       lifecycleSvc,
		notificationSvc:    notificationSvc,
		policy:             policy,
		location:           location,
		runInTx: func(ctx context.Context, fn func(context.Context) error) error {
			return postgresql.WithTransaction(ctx, db, fn)
		},
	}
}

// Submit validates and persists a new request. A request submitted by an
// approving role starts pre-approved at that role's own stage.
func (s *Service) Submit(ctx context.Context, requestorID string, dto request.SubmitRequest) (request.Response, error) {
	if err := dto.Validate(); err != nil {
		return request.Response{}, err
	}

	emp, err := s.EmployeeRepository.GetByID(ctx, requestorID)
	if err != nil {
		return request.Response{}, err
	}
	if emp.Status == employee.StatusResigned {
		return request.Response{}, employee.ErrEmployeeResigned
	}

	if err := s.validateForType(ctx, emp, dto); err != nil {
		return request.Response{}, err
	}

	req := request.ApprovableRequest{
		Type:        dto.Type,
		RequestorID: requestorID,
		Payload:     dto.Payload,
		StageA:      request.StagePending,
		StageB:      request.StagePending,
		StageC:      request.StagePending,
	}

	switch emp.Role {
	case employee.RoleDepartmentHead:
		req.StageA = request.StageSubmitted
	case employee.RoleExecutive, employee.RoleAdmin:
		req.StageA = request.StageSubmitted
		req.StageB = request.StageSubmitted
	}

	req, err = s.requestRepo.Create(ctx, req)
	if err != nil {
		return request.Response{}, err
	}

	s.notifyNextApprover(ctx, emp, req)

	slog.Info("request submitted",
		"request_id", req.ID,
		"type", req.Type,
		"requestor_id", requestorID,
	)
	return request.ToResponse(req), nil
}

func (s *Service) validateForType(ctx context.Context, emp employee.Employee, dto request.SubmitRequest) error {
	switch dto.Type {
	case request.TypeLeave:
		days := 1.0
		if dto.Payload.FromDate != nil && dto.Payload.ToDate != nil {
			days = request.DateRange{
				From:    *dto.Payload.FromDate,
				To:      *dto.Payload.ToDate,
				HalfDay: dto.Payload.HalfDay,
			}.Days()
		}
		return lifecycle.HasLeaveBalance(emp, dto.Payload.LeaveKind, days)

	case request.TypeOvertimeClaim:
		if !s.policy.Eligible(emp) {
			return request.ErrClaimNotEligible
		}
		day := *dto.Payload.OvertimeDate
		deadline := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, s.location).AddDate(0, 0, 2)
		if !time.Now().In(s.location).Before(deadline) {
			return request.ErrClaimDeadlinePassed
		}
		exists, err := s.requestRepo.HasClaimForDate(ctx, emp.ID, day)
		if err != nil {
			return err
		}
		if exists {
			return request.ErrDuplicateClaim
		}
	}

	return nil
}

// Approve advances the stage matching the approver's role. Department heads
// decide stage A, executives stage B. Administrators acknowledge through
// Acknowledge, not here.
func (s *Service) Approve(ctx context.Context, approverID, requestID string) (request.Response, error) {
	return s.decide(ctx, approverID, requestID, true, "")
}

// Reject rejects the stage matching the approver's role; the remark is
// mandatory and the rejection is terminal for the whole request.
func (s *Service) Reject(ctx context.Context, approverID, requestID, remark string) (request.Response, error) {
	if remark == "" {
		return request.Response{}, request.ErrRemarkRequired
	}
	return s.decide(ctx, approverID, requestID, false, remark)
}

func (s *Service) decide(ctx context.Context, approverID, requestID string, approve bool, remark string) (request.Response, error) {
	approver, err := s.EmployeeRepository.GetByID(ctx, approverID)
	if err != nil {
		return request.Response{}, err
	}

	var stage request.Stage
	switch approver.Role {
	case employee.RoleDepartmentHead:
		stage = request.StageAName
	case employee.RoleExecutive:
		stage = request.StageBName
	default:
		return request.Response{}, request.ErrWrongRole
	}

	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return request.Response{}, err
	}
	if req.IsRejected() {
		return request.Response{}, request.ErrRequestTerminal
	}
	if req.StageC == request.StageAcknowledged {
		return request.Response{}, request.ErrAlreadyAcknowledged
	}

	switch stage {
	case request.StageAName:
		if req.StageA != request.StagePending {
			return request.Response{}, request.ErrStageNotPending
		}
		if approve {
			req.StageA = request.StageApproved
		} else {
			req.StageA = request.StageRejected
		}
	case request.StageBName:
		if req.StageA == request.StagePending {
			return request.Response{}, request.ErrPriorStagePending
		}
		if req.StageB != request.StagePending {
			return request.Response{}, request.ErrStageNotPending
		}
		if approve {
			req.StageB = request.StageApproved
		} else {
			req.StageB = request.StageRejected
		}
	}
	if remark != "" {
		req.Remarks = &remark
	}

	ok, err := s.requestRepo.UpdateStages(ctx, req, stage, request.StagePending)
	if err != nil {
		return request.Response{}, err
	}
	if !ok {
		// A concurrent decision won the stage.
		return request.Response{}, request.ErrStageNotPending
	}

	s.notifyDecision(ctx, approver, req, approve)

	slog.Info("request decided",
		"request_id", req.ID,
		"stage", stage,
		"approved", approve,
		"approver_id", approverID,
	)
	return request.ToResponse(req), nil
}

// Acknowledge performs the terminal stage-C transition and fires the
// request's balance side effects in the same transaction. The conditional
// stage write guarantees the side effects apply at most once even under
// concurrent acknowledgments, and a failed side effect rolls the stage
// back to pending for retry.
func (s *Service) Acknowledge(ctx context.Context, adminID, requestID string) (request.Response, error) {
	admin, err := s.EmployeeRepository.GetByID(ctx, adminID)
	if err != nil {
		return request.Response{}, err
	}
	if admin.Role != employee.RoleAdmin {
		return request.Response{}, request.ErrWrongRole
	}

	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return request.Response{}, err
	}
	if req.IsRejected() {
		return request.Response{}, request.ErrRequestTerminal
	}
	if !req.IsApproved() {
		return request.Response{}, request.ErrPriorStagePending
	}
	if req.StageC != request.StagePending {
		return request.Response{}, request.ErrAlreadyAcknowledged
	}

	req.StageC = request.StageAcknowledged

	err = s.runInTx(ctx, func(txCtx context.Context) error {
		ok, err := s.requestRepo.UpdateStages(txCtx, req, request.StageCName, request.StagePending)
		if err != nil {
			return err
		}
		if !ok {
			return request.ErrAlreadyAcknowledged
		}
		return s.lifecycleSvc.ApplyApprovalEffects(txCtx, req)
	})
	if err != nil {
		return request.Response{}, err
	}

	s.notificationSvc.Notify(ctx, req.RequestorID, notification.TypeRequestAcknowledged,
		"Request acknowledged",
		fmt.Sprintf("Your %s request has been acknowledged and processed.", req.Type))

	slog.Info("request acknowledged",
		"request_id", req.ID,
		"type", req.Type,
		"admin_id", adminID,
	)
	return request.ToResponse(req), nil
}

// Get returns one request; non-admin callers may only see their own.
func (s *Service) Get(ctx context.Context, callerID string, requestID string) (request.Response, error) {
	caller, err := s.EmployeeRepository.GetByID(ctx, callerID)
	if err != nil {
		return request.Response{}, err
	}

	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return request.Response{}, err
	}
	if caller.Role == employee.RoleSubordinate && req.RequestorID != callerID {
		return request.Response{}, request.ErrRequestNotFound
	}

	return request.ToResponse(req), nil
}

// List returns requests matching the filter with pagination.
func (s *Service) List(ctx context.Context, filter request.Filter) (request.ListResponse, error) {
	filter.Normalize()

	reqs, total, err := s.requestRepo.List(ctx, filter)
	if err != nil {
		return request.ListResponse{}, err
	}

	resp := request.ListResponse{
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: int((total + int64(filter.Limit) - 1) / int64(filter.Limit)),
		Requests:   make([]request.Response, 0, len(reqs)),
	}
	for _, r := range reqs {
		resp.Requests = append(resp.Requests, request.ToResponse(r))
	}

	return resp, nil
}

// notifyNextApprover tells whoever owns the first still-pending stage that
// a request is waiting on them.
func (s *Service) notifyNextApprover(ctx context.Context, requestor employee.Employee, req request.ApprovableRequest) {
	title := "Request awaiting your decision"
	message := fmt.Sprintf("%s submitted a %s request.", requestor.Name, req.Type)

	switch {
	case req.StageA == request.StagePending:
		if requestor.DepartmentHeadID != nil {
			s.notificationSvc.Notify(ctx, *requestor.DepartmentHeadID, notification.TypeRequestSubmitted, title, message)
		}
	case req.StageB == request.StagePending:
		s.notifyRole(ctx, employee.RoleExecutive, notification.TypeRequestSubmitted, title, message)
	default:
		s.notifyRole(ctx, employee.RoleAdmin, notification.TypeRequestSubmitted, title, message)
	}
}

func (s *Service) notifyDecision(ctx context.Context, approver employee.Employee, req request.ApprovableRequest, approved bool) {
	if !approved {
		remark := ""
		if req.Remarks != nil {
			remark = ": " + *req.Remarks
		}
		s.notificationSvc.Notify(ctx, req.RequestorID, notification.TypeRequestRejected,
			"Request rejected",
			fmt.Sprintf("Your %s request was rejected%s", req.Type, remark))
		return
	}

	s.notificationSvc.Notify(ctx, req.RequestorID, notification.TypeRequestApproved,
		"Request approved",
		fmt.Sprintf("Your %s request was approved by %s.", req.Type, approver.Name))

	// Wake the next stage's owner.
	if req.StageB == request.StagePending {
		s.notifyRole(ctx, employee.RoleExecutive, notification.TypeRequestSubmitted,
			"Request awaiting your decision",
			fmt.Sprintf("A %s request passed the department stage.", req.Type))
	} else if req.StageC == request.StagePending && req.IsApproved() {
		s.notifyRole(ctx, employee.RoleAdmin, notification.TypeRequestSubmitted,
			"Request awaiting acknowledgment",
			fmt.Sprintf("A %s request passed the executive stage.", req.Type))
	}
}

func (s *Service) notifyRole(ctx context.Context, role employee.Role, typ notification.NotificationType, title, message string) {
	holders, err := s.EmployeeRepository.ListByRole(ctx, role)
	if err != nil {
		slog.Error("failed to resolve notification recipients", "role", role, "error", err)
		return
	}
	ids := make([]string, 0, len(holders))
	for _, h := range holders {
		ids = append(ids, h.ID)
	}
	s.notificationSvc.NotifyMany(ctx, ids, typ, title, message)
}
