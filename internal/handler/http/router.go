package http

import (
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"

	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/config"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/user"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/handler/http/middleware"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/pkg/jwt"
)

// Handlers groups the HTTP handlers mounted by NewRouter.
type Handlers struct {
	Attendance   AttendanceHandler
	Overtime     OvertimeHandler
	Sync         SyncHandler
	Escalation   EscalationHandler
	Master       MasterHandler
	Geofence     GeofenceHandler
	Device       DeviceHandler
	Notification NotificationHandler
}

func NewRouter(appConfig config.AppConfig, JWTService jwt.Service, h Handlers) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(appConfig.Env != "development")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "attendance-sync"),
		slog.String("version", appConfig.Version),
		slog.String("env", appConfig.Env),
	)

	origins := appConfig.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  logLevel(appConfig.LogLevel),
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {
		// SSE authenticates with a short-lived query token
		r.Get("/notifications/stream", h.Notification.Stream)

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired(JWTService.JWTAuth()))

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", h.Notification.List)
				r.Get("/unread-count", h.Notification.UnreadCount)
				r.Put("/read", h.Notification.MarkAsRead)
				r.Put("/read-all", h.Notification.MarkAllAsRead)
				r.Delete("/{id}", h.Notification.Delete)
				r.Get("/preferences", h.Notification.GetPreferences)
				r.Put("/preferences", h.Notification.UpdatePreference)
				r.Post("/sse-token", h.Notification.GetSSEToken)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireCompany)

				r.Route("/branches", func(r chi.Router) {
					r.With(middleware.RequirePermission(user.PermissionBranchView)).Get("/", h.Master.ListBranches)
					r.With(middleware.RequirePermission(user.PermissionBranchView)).Get("/{id}", h.Master.GetBranch)

					r.Group(func(r chi.Router) {
						r.Use(middleware.RequirePermission(user.PermissionBranchManage))
						r.Post("/", h.Master.CreateBranch)
						r.Put("/{id}", h.Master.UpdateBranch)
						r.Delete("/{id}", h.Master.DeleteBranch)
					})
				})

				r.Route("/escalation", func(r chi.Router) {
					r.With(middleware.RequireEmployee, middleware.RequirePermission(user.PermissionChargeViewOwn)).
						Get("/charges/my", h.Escalation.MyCharges)

					r.Group(func(r chi.Router) {
						r.Use(middleware.RequirePermission(user.PermissionEscalationView))
						r.Get("/rules", h.Escalation.ListRules)
						r.Get("/rules/{id}", h.Escalation.GetRule)
						r.Get("/charges", h.Escalation.ListCharges)
						r.Post("/multiplier", h.Escalation.PreviewMultiplier)
					})

					r.Group(func(r chi.Router) {
						r.Use(middleware.RequirePermission(user.PermissionEscalationManage))
						r.Post("/rules", h.Escalation.CreateRule)
						r.Put("/rules/{id}", h.Escalation.UpdateRule)
						r.Delete("/rules/{id}", h.Escalation.DeleteRule)
					})
				})

				r.Route("/overtime-rates", func(r chi.Router) {
					r.Use(middleware.RequirePermission(user.PermissionRateManage))
					r.Get("/", h.Attendance.ListOvertimeRates)
					r.Put("/", h.Attendance.SetOvertimeRate)
				})

				r.With(middleware.RequirePermission(user.PermissionGeofenceAlertView)).
					Get("/geofence/alerts", h.Geofence.ListAlerts)

				r.Route("/attendance", func(r chi.Router) {
					r.With(middleware.RequirePermission(user.PermissionAttendanceViewAll)).Get("/", h.Attendance.List)

					r.Group(func(r chi.Router) {
						r.Use(middleware.RequireEmployee)

						r.Group(func(r chi.Router) {
							r.Use(middleware.RequirePermission(user.PermissionAttendanceCreate))
							r.Post("/clock-in", h.Attendance.ClockIn)
							r.Post("/clock-out", h.Attendance.ClockOut)
							r.Post("/breaks/start", h.Attendance.StartBreak)
							r.Post("/breaks/end", h.Attendance.EndBreak)
							r.Post("/weekend-confirmations", h.Attendance.ConfirmWeekend)
						})

						r.Group(func(r chi.Router) {
							r.Use(middleware.RequirePermission(user.PermissionAttendanceViewOwn))
							r.Get("/open", h.Attendance.GetOpenSession)
							r.Get("/my", h.Attendance.GetMyAttendance)
							r.Get("/weekend-confirmations", h.Attendance.ListWeekendConfirmations)
						})
					})

					r.With(middleware.RequirePermission(user.PermissionAttendanceViewOwn)).Get("/{id}", h.Attendance.Get)
				})

				r.Route("/sync", func(r chi.Router) {
					r.With(middleware.RequirePermission(user.PermissionSyncManageAll)).
						Post("/flush/{employeeID}", h.Sync.Flush)

					r.Group(func(r chi.Router) {
						r.Use(middleware.RequireEmployee)
						r.Use(middleware.RequirePermission(user.PermissionSyncManageOwn))
						r.Post("/items", h.Sync.Enqueue)
						r.Post("/items/batch", h.Sync.EnqueueBatch)
						r.Get("/items", h.Sync.List)
						r.Get("/pending-count", h.Sync.PendingCount)
						r.Post("/flush", h.Sync.Flush)
						r.Post("/items/{id}/retry", h.Sync.Retry)
						r.Delete("/items/{id}", h.Sync.Clear)
					})
				})

				// Employee-scoped routes
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireEmployee)

					r.Route("/overtime", func(r chi.Router) {
						r.Post("/respond", h.Overtime.Respond)
						r.Get("/status", h.Overtime.Status)
					})

					r.Post("/geofence/check", h.Geofence.Check)

					r.Route("/devices", func(r chi.Router) {
						r.Post("/check", h.Device.Check)
						r.Get("/", h.Device.List)
					})
				})
			})
		})
	})
	return r
}

func logLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
