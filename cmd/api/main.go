package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/workstream-hr/attendance-engine-go/internal/config"
	appHTTP "github.com/workstream-hr/attendance-engine-go/internal/handler/http"
	"github.com/workstream-hr/attendance-engine-go/internal/pkg/cron"
	"github.com/workstream-hr/attendance-engine-go/internal/pkg/database"
	"github.com/workstream-hr/attendance-engine-go/internal/pkg/jwt"
	"github.com/workstream-hr/attendance-engine-go/internal/pkg/sse"
	"github.com/workstream-hr/attendance-engine-go/internal/pkg/timeclock"
	"github.com/workstream-hr/attendance-engine-go/internal/repository/postgresql"
	approvalService "github.com/workstream-hr/attendance-engine-go/internal/service/approval"
	attendanceService "github.com/workstream-hr/attendance-engine-go/internal/service/attendance"
	ingestService "github.com/workstream-hr/attendance-engine-go/internal/service/ingest"
	lifecycleService "github.com/workstream-hr/attendance-engine-go/internal/service/lifecycle"
	monitorService "github.com/workstream-hr/attendance-engine-go/internal/service/monitor"
	notificationService "github.com/workstream-hr/attendance-engine-go/internal/service/notification"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		return
	}

	db, err := database.NewPostgreSQLDB(cfg.DatabaseURL())
	if err != nil {
		fmt.Println("Error connecting to database:", err)
		return
	}
	defer db.Close()

	gateway, err := timeclock.NewMySQLGateway(cfg.TimeClock.DSN)
	if err != nil {
		fmt.Println("Error connecting to time-clock source:", err)
		return
	}

	punchRepo := postgresql.NewRawPunchRepository(db)
	attendanceRepo := postgresql.NewAttendanceRepository(db)
	employeeRepo := postgresql.NewEmployeeRepository(db)
	requestRepo := postgresql.NewRequestRepository(db)
	notificationRepo := postgresql.NewNotificationRepository(db)
	auditRepo := postgresql.NewAuditRepository(db)

	policy := monitorService.EligibilityPolicy{
		Departments:  cfg.Policy.OvertimeDepartments,
		Designations: cfg.Policy.OvertimeDesignations,
	}
	loc := cfg.App.Location

	jwtSvc := jwt.NewService(cfg.JWT.Secret)
	hub := sse.NewHub()
	notificationSvc := notificationService.NewService(notificationRepo, hub, notificationService.Config{})

	ingestSvc := ingestService.NewService(gateway, punchRepo, employeeRepo, loc)
	attendanceSvc := attendanceService.NewService(attendanceRepo, punchRepo, requestRepo, loc)
	monitorSvc := monitorService.NewService(
		attendanceRepo, employeeRepo, punchRepo, requestRepo,
		notificationRepo, notificationSvc, policy, loc,
	)
	lifecycleSvc := lifecycleService.NewService(
		employeeRepo, requestRepo, attendanceRepo, auditRepo, notificationSvc, loc,
	)
	approvalSvc := approvalService.NewService(
		db, requestRepo, employeeRepo, lifecycleSvc, notificationSvc, policy, loc,
	)

	scheduler := cron.NewScheduler()
	cron.NewEngineJobs(ingestSvc, attendanceSvc, monitorSvc, lifecycleSvc, loc).RegisterJobs(scheduler)
	scheduler.Start()

	router := appHTTP.NewRouter(
		jwtSvc,
		cfg.App.Env,
		appHTTP.NewAttendanceHandler(attendanceSvc),
		appHTTP.NewRequestHandler(approvalSvc),
		appHTTP.NewEmployeeHandler(lifecycleSvc),
		appHTTP.NewNotificationHandler(notificationSvc, jwtSvc),
		appHTTP.NewAdminHandler(ingestSvc, attendanceSvc, monitorSvc, lifecycleSvc, loc),
	)

	port := fmt.Sprintf(":%d", cfg.App.Port)
	server := &http.Server{Addr: port, Handler: router}

	go func() {
		fmt.Printf("Server running at http://localhost%s\n", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Println("Server error:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	scheduler.Stop()
	notificationSvc.Stop()
	_ = server.Close()
}
