package http

import (
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
	"github.com/workstream-hr/attendance-engine-go/internal/domain/employee"
	"github.com/workstream-hr/attendance-engine-go/internal/handler/http/middleware"
	"github.com/workstream-hr/attendance-engine-go/internal/pkg/jwt"
)

func NewRouter(
	jwtService jwt.Service,
	env string,
	attendanceHandler AttendanceHandler,
	requestHandler RequestHandler,
	employeeHandler EmployeeHandler,
	notificationHandler NotificationHandler,
	adminHandler AdminHandler,
) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(false)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "attendance-engine"),
		slog.String("version", "v1.0.0"),
		slog.String("env", env),
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelDebug,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {
		// The SSE stream authenticates with its own short-lived token.
		r.Get("/notifications/stream", notificationHandler.Stream)

		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(jwtService.JWTAuth()))
			r.Use(middleware.AuthRequired(jwtService.JWTAuth()))

			r.Route("/attendances", func(r chi.Router) {
				r.Get("/", attendanceHandler.List)
				r.Get("/my", attendanceHandler.MyMonth)
			})

			r.Route("/requests", func(r chi.Router) {
				r.Post("/", requestHandler.Submit)
				r.Get("/", requestHandler.List)
				r.Get("/{id}", requestHandler.Get)

				r.Group(func(r chi.Router) {
					r.Use(middleware.ApproverOnly)
					r.Post("/{id}/approve", requestHandler.Approve)
					r.Post("/{id}/reject", requestHandler.Reject)
				})

				r.Group(func(r chi.Router) {
					r.Use(middleware.AdminOnly)
					r.Post("/{id}/acknowledge", requestHandler.Acknowledge)
				})
			})

			r.Route("/employees", func(r chi.Router) {
				r.Get("/my/balances", employeeHandler.MyBalances)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(
						employee.RoleDepartmentHead,
						employee.RoleExecutive,
						employee.RoleAdmin,
					))
					r.Get("/{id}/balances", employeeHandler.Balances)
				})

				r.Group(func(r chi.Router) {
					r.Use(middleware.AdminOnly)
					r.Get("/{id}/audit", employeeHandler.AuditTrail)
				})
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", notificationHandler.List)
				r.Post("/{id}/read", notificationHandler.MarkRead)
				r.Get("/sse-token", notificationHandler.GetSSEToken)
			})

			r.Route("/admin/jobs", func(r chi.Router) {
				r.Use(middleware.AdminOnly)
				r.Post("/ingest", adminHandler.RunIngestion)
				r.Post("/derive", adminHandler.RunDerivation)
				r.Post("/backfill", adminHandler.RunBackfill)
				r.Post("/settle", adminHandler.RunSettlement)
				r.Post("/reconcile", adminHandler.RunReconciliation)
				r.Post("/reconcile/{id}", adminHandler.ReconcileEmployee)
			})
		})
	})

	return r
}
