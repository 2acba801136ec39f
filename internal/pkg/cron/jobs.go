package cron

import (
	"context"
	"time"

	attendancesvc "github.com/workstream-hr/attendance-engine-go/internal/service/attendance"
	"github.com/workstream-hr/attendance-engine-go/internal/service/ingest"
	"github.com/workstream-hr/attendance-engine-go/internal/service/lifecycle"
	"github.com/workstream-hr/attendance-engine-go/internal/service/monitor"
)

// punchRetentionDays is how long processed raw punches are kept before the
// cleanup job purges them.
const punchRetentionDays = 30

// EngineJobs wires the reconciliation services into the scheduler. The
// frequent jobs (ingestion, derivation, late pattern) tick through the day;
// the daily ones tick hourly and gate on a fixed local hour, so a restart
// inside that hour re-runs them harmlessly thanks to their idempotence.
type EngineJobs struct {
	ingestSvc     *ingest.Service
	attendanceSvc *attendancesvc.Service
	monitorSvc    *monitor.Service
	lifecycleSvc  *lifecycle.Service
	location      *time.Location
}

func NewEngineJobs(
	ingestSvc *ingest.Service,
	attendanceSvc *attendancesvc.Service,
	monitorSvc *monitor.Service,
	lifecycleSvc *lifecycle.Service,
	location *time.Location,
) *EngineJobs {
	return &EngineJobs{
		ingestSvc:     ingestSvc,
		attendanceSvc: attendanceSvc,
		monitorSvc:    monitorSvc,
		lifecycleSvc:  lifecycleSvc,
		location:      location,
	}
}

func (j *EngineJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob("ingest_punches", 15*time.Minute, j.IngestPunches)
	scheduler.AddJob("derive_attendance", 30*time.Minute, j.DeriveAttendance)
	scheduler.AddJob("apply_late_pattern", 30*time.Minute, j.ApplyLatePattern)
	scheduler.AddJob("backfill_absences", 1*time.Hour, j.BackfillAbsences)
	scheduler.AddJob("escalate_absence_runs", 1*time.Hour, j.EscalateAbsenceRuns)
	scheduler.AddJob("settle_overtime", 1*time.Hour, j.SettleOvertime)
	scheduler.AddJob("reconcile_lifecycles", 1*time.Hour, j.ReconcileLifecycles)
	scheduler.AddJob("cleanup_punches", 1*time.Hour, j.CleanupPunches)
}

func (j *EngineJobs) IngestPunches(ctx context.Context) error {
	return j.ingestSvc.Run(ctx)
}

func (j *EngineJobs) DeriveAttendance(ctx context.Context) error {
	return j.attendanceSvc.ProcessAll(ctx)
}

func (j *EngineJobs) ApplyLatePattern(ctx context.Context) error {
	return j.monitorSvc.ApplyLatePattern(ctx, j.today())
}

// BackfillAbsences runs at 01:00 local for the previous day, once every
// punch for that day has had a chance to arrive.
func (j *EngineJobs) BackfillAbsences(ctx context.Context) error {
	now := time.Now().In(j.location)
	if now.Hour() != 1 {
		return nil
	}
	return j.monitorSvc.BackfillAbsences(ctx, j.today().AddDate(0, 0, -1))
}

// EscalateAbsenceRuns runs at 02:00 local, after the backfill has filled in
// yesterday's absences.
func (j *EngineJobs) EscalateAbsenceRuns(ctx context.Context) error {
	now := time.Now().In(j.location)
	if now.Hour() != 2 {
		return nil
	}
	return j.monitorSvc.EscalateAbsenceRuns(ctx, j.today().AddDate(0, 0, -1))
}

func (j *EngineJobs) SettleOvertime(ctx context.Context) error {
	now := time.Now().In(j.location)
	if now.Hour() != 3 {
		return nil
	}
	return j.monitorSvc.SettleOvertime(ctx, j.today())
}

// today is the current calendar day at midnight local. Attendance rows key
// on midnight-normalized dates, so a wall-clock instant must never leak
// into a repository day parameter.
func (j *EngineJobs) today() time.Time {
	now := time.Now().In(j.location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, j.location)
}

func (j *EngineJobs) ReconcileLifecycles(ctx context.Context) error {
	now := time.Now().In(j.location)
	if now.Hour() != 4 {
		return nil
	}
	return j.lifecycleSvc.ReconcileAll(ctx, now)
}

func (j *EngineJobs) CleanupPunches(ctx context.Context) error {
	now := time.Now().In(j.location)
	if now.Hour() != 5 {
		return nil
	}
	return j.attendanceSvc.CleanupProcessed(ctx, punchRetentionDays)
}
