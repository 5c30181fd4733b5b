package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"justice_flow_go/config"
	"justice_flow_go/db"
	"justice_flow_go/handlers"
	"justice_flow_go/middleware"
	"justice_flow_go/models"
	"justice_flow_go/services"
	"justice_flow_go/services/jobs"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	cfg := config.Load()
	setupLogging(cfg)

	// Initialize database
	if err := db.Initialize(cfg); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.AutoMigrate(models.All()...); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	services.InitializeStorage(cfg)
	services.InitAuditor(db.DB)
	services.InitNotifications(db.DB, cfg)
	services.InitSecurityMonitor()
	services.InitRealtime()

	scheduler, err := jobs.StartScheduler(db.DB, cfg)
	if err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	e := newServer(cfg)

	go func() {
		log.Printf("Server starting on port %s", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	<-scheduler.Stop().Done()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Errorf("Graceful shutdown failed: %v", err)
	}
}

func setupLogging(cfg *config.Config) {
	if cfg.IsProduction() {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warnf("Unknown LOG_LEVEL %q, using info", cfg.LogLevel)
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

func newServer(cfg *config.Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handlers.NewRequestValidator()
	e.HTTPErrorHandler = handlers.HTTPErrorHandler(cfg)

	// Middleware
	e.Use(echomiddleware.Recover())
	e.Use(middleware.SecurityHeaders())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowedOrigins,
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType},
	}))
	e.Use(echomiddleware.BodyLimit("30M"))

	// Make config available to handlers
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("config", cfg)
			return next(c)
		}
	})
	e.Use(middleware.AuditRequest())

	registerRoutes(e, cfg)
	return e
}

func registerRoutes(e *echo.Echo, cfg *config.Config) {
	// Public routes (no authentication required)
	e.GET("/healthz", handlers.HealthHandler)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/verify/:token", handlers.VerifyComplaintHandler, middleware.VerificationRateLimiter.Middleware())

	auth := e.Group("/api/auth")
	auth.POST("/login", handlers.LoginHandler, middleware.LoginRateLimiter.Middleware())
	auth.POST("/refresh", handlers.RefreshHandler, middleware.LoginRateLimiter.Middleware())
	auth.POST("/logout", handlers.LogoutHandler)

	requireAuth := middleware.RequireAuth(cfg, db.DB)

	// Live station feed; the token may travel in the query string
	e.GET("/ws/stations/:id", handlers.StationFeedHandler, requireAuth,
		middleware.RequireRole(models.RolePolice, models.RoleAdmin))

	api := e.Group("/api")
	api.Use(requireAuth)
	api.Use(middleware.APIRateLimiter.Middleware())
	api.Use(middleware.MaintenanceGate(db.DB, "/api/sos"))

	api.GET("/me", handlers.GetCurrentUserHandler)

	// Notifications (all roles)
	api.GET("/notifications", handlers.ListNotificationsHandler)
	api.GET("/notifications/unread-count", handlers.UnreadCountHandler)
	api.POST("/notifications/:id/read", handlers.MarkNotificationReadHandler)
	api.POST("/notifications/read-all", handlers.MarkAllNotificationsReadHandler)

	// SOS
	api.POST("/sos", handlers.SOSHandler, middleware.RequireRole(models.RoleCitizen), middleware.SOSRateLimiter.Middleware())
	stations := api.Group("/stations/:id", middleware.RequireRole(models.RolePolice, models.RoleAdmin))
	stations.GET("/alerts", handlers.ListStationAlertsHandler)
	api.POST("/sos/:alertId/acknowledge", handlers.AcknowledgeSOSHandler, middleware.RequireRole(models.RolePolice, models.RoleAdmin))

	// Complaints; role checks beyond the group live in the workflow
	complaints := api.Group("/complaints")
	complaints.POST("", handlers.FileComplaintHandler, middleware.RequireRole(models.RoleCitizen, models.RolePolice, models.RoleAdmin))
	complaints.GET("", handlers.ListComplaintsHandler)
	complaints.GET("/:id", handlers.GetComplaintHandler)
	complaints.GET("/:id/receipt", handlers.ComplaintReceiptHandler)
	complaints.POST("/:id/transition", handlers.TransitionComplaintHandler)
	complaints.POST("/:id/transmit", handlers.TransmitComplaintHandler, middleware.RequireRole(models.RolePolice, models.RoleAdmin))
	complaints.POST("/:id/prosecute", handlers.ProsecuteComplaintHandler, middleware.RequireRole(models.RoleProsecutor, models.RoleAdmin))
	complaints.POST("/:id/assign-judge", handlers.AssignJudgeHandler, middleware.RequireRole(models.RoleProsecutor, models.RoleAdmin))
	complaints.POST("/:id/close", handlers.CloseComplaintHandler, middleware.RequireRole(models.RoleProsecutor, models.RoleAdmin))
	complaints.POST("/:id/flagrant-delict", handlers.FlagrantDelictHandler, middleware.RequireRole(models.RoleProsecutor, models.RoleAdmin))
	complaints.PUT("/:id/status", handlers.OverrideComplaintStatusHandler, middleware.RequireRole(models.RoleAdmin))

	// Cases (professionals only; assignment checks live in the services)
	professionals := []string{models.RolePolice, models.RoleProsecutor, models.RoleJudge, models.RoleClerk, models.RoleBailiff, models.RoleAdmin}
	cases := api.Group("/cases", middleware.RequireRole(professionals...))
	cases.GET("", handlers.ListCasesHandler)
	cases.GET("/export.xlsx", handlers.ExportCasesHandler)
	cases.GET("/:id", handlers.GetCaseHandler)
	cases.POST("/:id/stage", handlers.AdvanceStageHandler)
	cases.GET("/:id/assignments", handlers.ListAssignmentsHandler)
	cases.POST("/:id/assignments", handlers.AssignUserHandler)
	cases.DELETE("/:id/assignments/:assignmentId", handlers.RemoveAssignmentHandler)
	cases.GET("/:id/notes", handlers.ListNotesHandler)
	cases.POST("/:id/notes", handlers.CreateNoteHandler)
	cases.PUT("/:id/notes/:noteId", handlers.UpdateNoteHandler)
	cases.DELETE("/:id/notes/:noteId", handlers.DeleteNoteHandler)
	cases.GET("/:id/hearings", handlers.ListHearingsHandler)
	cases.POST("/:id/hearings", handlers.ScheduleHearingHandler)
	cases.PUT("/:id/hearings/:hearingId", handlers.UpdateHearingStatusHandler)
	cases.GET("/:id/warrants", handlers.ListWarrantsHandler)
	cases.POST("/:id/warrants", handlers.IssueWarrantHandler)
	cases.POST("/:id/warrants/:warrantId/execute", handlers.ExecuteWarrantHandler)
	cases.GET("/:id/evidence", handlers.ListEvidenceHandler)
	cases.POST("/:id/evidence", handlers.RegisterEvidenceHandler)
	cases.GET("/:id/decisions", handlers.ListDecisionsHandler)
	cases.POST("/:id/decisions", handlers.CreateDecisionHandler, middleware.RequireRole(models.RoleJudge, models.RoleAdmin))
	cases.GET("/:id/sentences", handlers.ListSentencesHandler)

	// Evidence
	evidence := api.Group("/evidence/:evidenceId", middleware.RequireRole(professionals...))
	evidence.GET("/custody", handlers.CustodyTrailHandler)
	evidence.POST("/custody", handlers.TransferCustodyHandler)
	evidence.GET("/file", handlers.DownloadEvidenceHandler)

	// Decisions and sentences
	decisions := api.Group("/decisions/:decisionId", middleware.RequireRole(professionals...))
	decisions.GET("", handlers.GetDecisionHandler)
	decisions.PUT("", handlers.UpdateDecisionHandler, middleware.RequireRole(models.RoleJudge, models.RoleAdmin))
	decisions.POST("/sign", handlers.SignDecisionHandler, middleware.RequireRole(models.RoleJudge, models.RoleAdmin))
	decisions.POST("/signify", handlers.SignifyDecisionHandler, middleware.RequireRole(models.RoleBailiff, models.RoleAdmin))
	decisions.POST("/sentences", handlers.CreateSentenceHandler, middleware.RequireRole(models.RoleJudge, models.RoleAdmin))
	api.POST("/sentences/:sentenceId/execute", handlers.ExecuteSentenceHandler, middleware.RequireRole(models.RolePrisonOfficer, models.RoleProsecutor, models.RoleAdmin))

	// Prisons
	prisonRoles := middleware.RequireRole(models.RolePrisonOfficer, models.RoleProsecutor, models.RoleJudge, models.RoleAdmin)
	api.GET("/incarcerations", handlers.ListIncarcerationsHandler, prisonRoles)
	api.POST("/incarcerations", handlers.CreateIncarcerationHandler, prisonRoles)
	api.POST("/incarcerations/:incarcerationId/release", handlers.ReleaseIncarcerationHandler, prisonRoles)
	api.POST("/incarcerations/:incarcerationId/escape", handlers.RecordEscapeHandler, prisonRoles)
	api.GET("/reports/occupancy", handlers.OccupancyHandler, prisonRoles)
	api.GET("/reports/occupancy.xlsx", handlers.OccupancyReportHandler, prisonRoles)

	// Admin-only routes
	admin := api.Group("/admin", middleware.RequireRole(models.RoleAdmin))
	admin.POST("/users", handlers.CreateUserHandler)
	admin.GET("/settings", handlers.GetSettingsHandler)
	admin.PUT("/settings", handlers.UpdateSettingsHandler)
	admin.GET("/audit-logs", handlers.ListAuditLogsHandler)
	admin.GET("/audit-logs/verify", handlers.VerifyAuditChainHandler)
	admin.GET("/audit-logs/:type/:id", handlers.ResourceAuditHistoryHandler)
}
