package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/bloomhealth/bloom/checkin"
	"github.com/bloomhealth/bloom/config"
	"github.com/bloomhealth/bloom/controllers"
	"github.com/bloomhealth/bloom/middleware"
	"github.com/bloomhealth/bloom/prompts"
	"github.com/bloomhealth/bloom/repository"
	"github.com/bloomhealth/bloom/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		// credentials cannot be combined with a wildcard origin
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	selector := newSelector(cfg.CheckInPrompts)
	checkins := repository.NewCheckInRepository(db)
	cycles := repository.NewCycleRepository(db)
	profiles := repository.NewProfileRepository(db)
	checkinService := checkin.NewService(checkins, selector, checkin.WithLogger(utils.Logger))

	estimator, err := controllers.EstimatorFromConfig(cfg.Phases)
	if err != nil {
		utils.Sugar.Warnw("ignoring configured phase rules", "error", err)
	}

	authController := controllers.NewAuthController(db)
	checkinController := controllers.NewCheckInController(checkinService, checkins)
	cycleController := controllers.NewCycleController(cycles, profiles, checkinService, estimator)
	onboardingController := controllers.NewOnboardingController(profiles)
	calendarController := controllers.NewCalendarController()

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)

	api.GET("/checkin/today", middleware.OptionalAuth(), checkinController.Today)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())
	protected.POST("/checkin/dismiss", checkinController.Dismiss)
	protected.POST("/checkin/complete", checkinController.Complete)
	protected.POST("/checkin/refresh", checkinController.Refresh)
	protected.GET("/checkin/history", checkinController.History)
	protected.GET("/calendar", calendarController.Month)
	protected.GET("/dashboard", cycleController.Dashboard)
	protected.GET("/onboarding", onboardingController.Get)
	protected.PUT("/onboarding", onboardingController.Save)
	protected.POST("/cycles", cycleController.LogCycle)
	protected.GET("/cycles", cycleController.ListCycles)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		ctx.JSON(http.StatusNotFound, gin.H{"message": "not found"})
	})

	return r
}

func newSelector(catalog []string) *prompts.Selector {
	if len(catalog) == 0 {
		return prompts.MustDefault()
	}
	s, err := prompts.NewSelector(catalog, nil)
	if err != nil {
		utils.Sugar.Warnw("configured check-in prompts rejected, using defaults", "error", err)
		return prompts.MustDefault()
	}
	return s
}
