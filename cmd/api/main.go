package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/config"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/notification"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/overtime"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/syncqueue"
	appHTTP "github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/handler/http"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/pkg/cron"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/pkg/database"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/pkg/jwt"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/pkg/push"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/pkg/realtime"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/pkg/sse"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/repository/postgresql"
	attendanceService "github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/service/attendance"
	deviceService "github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/service/device"
	escalationService "github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/service/escalation"
	geofenceService "github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/service/geofence"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/service/master"
	notificationService "github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/service/notification"
	overtimeService "github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/service/overtime"
	syncqueueService "github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/service/syncqueue"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.PoolOptions{
		MaxConns: int32(cfg.Database.MaxConns),
		MinConns: int32(cfg.Database.MinConns),
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	txManager := postgresql.NewTxManager(db)
	attendanceRepo := postgresql.NewAttendanceRepository(db)
	breakRepo := postgresql.NewBreakRepository(db)
	weekendRepo := postgresql.NewWeekendConfirmationRepository(db)
	rateRepo := postgresql.NewOvertimeRateRepository(db)
	branchRepo := postgresql.NewBranchRepository(db)
	employeeRepo := postgresql.NewEmployeeRepository(db)
	ruleRepo := postgresql.NewEscalationRuleRepository(db)
	chargeRepo := postgresql.NewChargeRepository(db)
	syncRepo := postgresql.NewSyncQueueRepository(db)
	deviceRepo := postgresql.NewDeviceRepository(db)
	alertRepo := postgresql.NewGeofenceAlertRepository(db)
	notificationRepo := postgresql.NewNotificationRepository(db)

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)

	hub := sse.NewHub()
	var pusher push.Dispatcher
	if cfg.Push.Enabled {
		pusher = push.NewClient(cfg.Push)
	}
	notifService := notificationService.NewNotificationService(notificationRepo, hub, pusher, notificationService.Config{
		BatchSize:     cfg.Notification.BatchSize,
		FlushInterval: cfg.Notification.FlushInterval,
		WorkerCount:   cfg.Notification.Workers,
	})
	notifier := notificationService.NewNotifier(notifService, employeeRepo)

	geoService := geofenceService.NewGeofenceService(branchRepo, alertRepo, notifier, cfg.Geofence.Enforce)
	devService := deviceService.NewDeviceService(deviceRepo)
	escService := escalationService.NewEscalationService(ruleRepo, chargeRepo)
	masterService := master.NewMasterService(branchRepo)

	attService := attendanceService.NewAttendanceService(
		txManager,
		attendanceService.Repositories{
			Attendance:          attendanceRepo,
			Break:               breakRepo,
			WeekendConfirmation: weekendRepo,
			OvertimeRate:        rateRepo,
			Branch:              branchRepo,
			Employee:            employeeRepo,
		},
		geoService,
		devService,
		escService,
		notifier,
		attendanceService.Config{
			NightShiftStartHour: cfg.Attendance.NightShiftStartHour,
			NightShiftEndHour:   cfg.Attendance.NightShiftEndHour,
			DefaultTimezone:     cfg.Attendance.DefaultTimezone,
		},
	)

	defaultLocation, err := time.LoadLocation(cfg.Attendance.DefaultTimezone)
	if err != nil {
		return fmt.Errorf("load default timezone %q: %w", cfg.Attendance.DefaultTimezone, err)
	}
	otService := overtimeService.NewOvertimeService(
		txManager,
		attendanceRepo,
		branchRepo,
		attService,
		notifier,
		overtime.Schedule{
			PromptHour:      cfg.Overtime.PromptHour,
			PromptMinute:    cfg.Overtime.PromptMinute,
			ResponseTimeout: cfg.Overtime.ResponseTimeout,
		},
		defaultLocation,
		nil,
	)

	syncService := syncqueueService.NewSyncQueueService(syncRepo, attendanceService.NewReplayDispatcher(attService), syncqueueService.Config{
		MaxAttempts: cfg.Sync.MaxAttempts,
		OnExhausted: func(ctx context.Context, item syncqueue.Item) {
			notifier.Employee(ctx, item.CompanyID, item.EmployeeID, notificationService.Message{
				Type:    notification.TypeSyncFailed,
				Title:   "Offline record could not be synced",
				Message: fmt.Sprintf("Your %s recorded at %s failed %d times and needs attention.", item.OperationType, item.DeviceTimestamp.Format(time.RFC3339), item.Attempts),
				Data:    map[string]interface{}{"sync_item_id": item.ID},
			})
		},
	})

	scheduler := cron.NewScheduler()
	cron.NewAttendanceJobs(attService, otService, syncService, cron.AttendanceJobsConfig{
		OvertimeInterval:  cfg.Overtime.CheckInterval,
		SyncRetryInterval: cfg.Sync.RetryInterval,
		SyncPurgeAfter:    cfg.Sync.PurgeAfter,
		StaleSessionAfter: cfg.Attendance.StaleSessionAfter,
	}).RegisterJobs(scheduler)
	scheduler.Start()
	defer scheduler.Stop()

	listener := realtime.NewListener(db, hub)
	go listener.Run(ctx)

	router := appHTTP.NewRouter(cfg.App, JWTService, appHTTP.Handlers{
		Attendance:   appHTTP.NewAttendanceHandler(attService),
		Overtime:     appHTTP.NewOvertimeHandler(otService),
		Sync:         appHTTP.NewSyncHandler(syncService),
		Escalation:   appHTTP.NewEscalationHandler(escService),
		Master:       appHTTP.NewMasterHandler(masterService),
		Geofence:     appHTTP.NewGeofenceHandler(geoService),
		Device:       appHTTP.NewDeviceHandler(devService),
		Notification: appHTTP.NewNotificationHandler(notifService, JWTService),
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Server running", "addr", server.Addr, "env", cfg.App.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// SSE streams end when the hub closes.
	hub.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}
	notifService.Stop()
	return nil
}
