// Package server wires repositories, services and handlers into the HTTP router.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yukikurage/timesheet-management-api/internal/config"
	"github.com/yukikurage/timesheet-management-api/internal/constants"
	apierrors "github.com/yukikurage/timesheet-management-api/internal/errors"
	"github.com/yukikurage/timesheet-management-api/internal/handlers"
	"github.com/yukikurage/timesheet-management-api/internal/logger"
	"github.com/yukikurage/timesheet-management-api/internal/middleware"
	"github.com/yukikurage/timesheet-management-api/internal/models"
	"github.com/yukikurage/timesheet-management-api/internal/repository"
	"github.com/yukikurage/timesheet-management-api/internal/response"
	"github.com/yukikurage/timesheet-management-api/internal/services"
	"github.com/yukikurage/timesheet-management-api/internal/storage"
)

// Dependencies are the external resources the router is built on.
type Dependencies struct {
	Config   *config.Config
	DB       *gorm.DB
	Sessions sessions.Store
	Mailer   services.Mailer
}

// NewSessionStore returns a redis or cookie backed session store.
func NewSessionStore(cfg *config.Config) (sessions.Store, error) {
	var store sessions.Store
	switch cfg.SessionStore {
	case "cookie":
		store = cookie.NewStore([]byte(cfg.SessionSecret))
	case "redis":
		redisAddr := cfg.RedisHost + ":" + cfg.RedisPort
		rs, err := redisStore.NewStore(
			10,    // Redis pool size
			"tcp", // network type
			redisAddr,
			cfg.RedisPassword,
			[]byte(cfg.SessionSecret),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis store: %w", err)
		}
		store = rs
	default:
		return nil, fmt.Errorf("unsupported session store %q", cfg.SessionStore)
	}

	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	return store, nil
}

// NewMailer returns the OTP mailer selected by MAIL_DRIVER.
func NewMailer(ctx context.Context, cfg *config.Config) (services.Mailer, error) {
	switch cfg.MailDriver {
	case "ses":
		return services.NewSESMailer(ctx, cfg.AWSRegion, cfg.MailFrom)
	case "log", "":
		return services.NewLogMailer(logger.Log), nil
	default:
		return nil, fmt.Errorf("unsupported mail driver %q", cfg.MailDriver)
	}
}

// NewRouter builds the gin engine with every route of the API.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	cfg := deps.Config

	avatars, err := storage.NewStore(cfg.UserUploadDir)
	if err != nil {
		return nil, err
	}
	documents, err := storage.NewStore(cfg.ReportUploadDir)
	if err != nil {
		return nil, err
	}

	// Repositories
	userRepo := repository.NewUserRepository(deps.DB)
	projectRepo := repository.NewProjectRepository(deps.DB)
	timesheetRepo := repository.NewTimesheetRepository(deps.DB)
	dashboardRepo := repository.NewDashboardRepository(deps.DB)

	// Services
	authService := services.NewAuthService(userRepo, deps.Mailer, services.AuthOptions{
		BcryptCost: cfg.BcryptCost,
		OTPTTL:     cfg.OTPTTL,
	})
	userService := services.NewUserService(userRepo, avatars, services.UserOptions{
		BcryptCost:    cfg.BcryptCost,
		AvatarWidth:   cfg.AvatarWidth,
		AvatarHeight:  cfg.AvatarHeight,
		MaxAvatarSize: cfg.MaxAvatarSize,
	})
	projectService := services.NewProjectService(projectRepo, userRepo)
	timesheetService := services.NewTimesheetService(timesheetRepo, projectRepo, documents, services.TimesheetOptions{
		MaxDocumentSize: cfg.MaxDocumentSize,
	})
	dashboardService := services.NewDashboardService(dashboardRepo)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	projectHandler := handlers.NewProjectHandler(projectService)
	timesheetHandler := handlers.NewTimesheetHandler(timesheetService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)

	r := gin.New()
	r.MaxMultipartMemory = 8 << 20
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", constants.HeaderRequestID},
		ExposeHeaders:    []string{"Content-Disposition", constants.HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(sessions.Sessions(cfg.SessionName, deps.Sessions))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		if err := pingDB(c.Request.Context(), deps.DB); err != nil {
			logger.FromContext(c).Warnw("Health check failed", "error", err)
			apierrors.ServiceUnavailable(c, "Database is unreachable")
			return
		}
		response.OK(c, gin.H{
			"status":  "ok",
			"message": "Timesheet Management API is running",
		})
	})

	requireAuth := middleware.RequireAuth(authService)
	managers := middleware.RequireRole(models.RoleAdmin, models.RoleManager)
	adminOnly := middleware.RequireRole(models.RoleAdmin)
	submitters := middleware.RequireRole(models.RoleHR, models.RoleEmployee)
	projectAccess := middleware.RequireProject(projectService)
	timesheetAccess := middleware.RequireTimesheetAccess(timesheetService)

	api := r.Group("/api")
	{
		// Auth routes (public)
		api.POST("/login", authHandler.Login)
		api.GET("/logout", authHandler.Logout)
		api.GET("/me", requireAuth, authHandler.GetCurrentUser)
		api.POST("/users/generateotp", authHandler.GenerateOTP)
		api.PUT("/users/resetpassword", authHandler.ResetPassword)

		users := api.Group("/users")
		users.Use(requireAuth)
		{
			users.GET("", userHandler.ListUsers)
			users.POST("", adminOnly, userHandler.CreateUser)
			users.GET("/avatar/:userId", userHandler.GetAvatar)
			users.PUT("/editavatar/:userId", userHandler.EditAvatar)
			users.DELETE("/deleteavatar/:userId", userHandler.DeleteAvatar)
			users.PUT("/changepassword/:userId", userHandler.ChangePassword)
			users.GET("/:userId", userHandler.GetUser)
			users.PUT("/:userId", userHandler.UpdateUser)
			users.DELETE("/:userId", adminOnly, userHandler.DeleteUser)
		}

		projects := api.Group("/projects")
		projects.Use(requireAuth)
		{
			projects.GET("", projectHandler.ListProjects)
			projects.GET("/name", projectHandler.ListProjectNames)
			projects.GET("/history", projectHandler.ProjectHistory)
			projects.GET("/:projectId", projectAccess, projectHandler.GetProject)
			projects.POST("", managers, projectHandler.CreateProject)
			projects.PUT("/:projectId", managers, projectAccess, projectHandler.UpdateProject)
			projects.DELETE("/:projectId", managers, projectAccess, projectHandler.DeleteProject)
		}

		timesheets := api.Group("/timesheets")
		timesheets.Use(requireAuth)
		{
			timesheets.GET("", timesheetHandler.ListTimesheets)
			timesheets.POST("", submitters, timesheetHandler.CreateTimesheets)
			timesheets.GET("/history", timesheetHandler.TimesheetHistory)
			timesheets.GET("/export", timesheetHandler.ExportTimesheets)
			timesheets.GET("/documentimage/:timesheetId", timesheetAccess, timesheetHandler.GetDocument)
			timesheets.GET("/:timesheetId", timesheetAccess, timesheetHandler.GetTimesheet)
			timesheets.PUT("/:timesheetId", timesheetAccess, timesheetHandler.UpdateTimesheet)
			timesheets.DELETE("/:timesheetId", timesheetAccess, timesheetHandler.DeleteTimesheet)
		}

		counts := api.Group("/counts")
		counts.Use(requireAuth)
		{
			counts.GET("/users", dashboardHandler.CountUsers)
			counts.GET("/projects", dashboardHandler.CountProjects)
			counts.GET("/clients", dashboardHandler.CountClients)
		}
	}

	return r, nil
}

func pingDB(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}
