package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bloomhealth/bloom/checkin"
	"github.com/bloomhealth/bloom/config"
	"github.com/bloomhealth/bloom/cycle"
	"github.com/bloomhealth/bloom/repository"
	"github.com/bloomhealth/bloom/utils"
)

// CycleController logs cycle starts and renders the dashboard.
type CycleController struct {
	cycles    *repository.CycleRepository
	profiles  *repository.ProfileRepository
	checkins  *checkin.Service
	estimator *cycle.Estimator
	now       Clock
}

// NewCycleController creates a new controller instance. A nil estimator labels every day with the default phase.
func NewCycleController(cycles *repository.CycleRepository, profiles *repository.ProfileRepository, checkins *checkin.Service, estimator *cycle.Estimator) *CycleController {
	if estimator == nil {
		estimator = cycle.NewEstimator(nil)
	}
	return &CycleController{cycles: cycles, profiles: profiles, checkins: checkins, estimator: estimator}
}

// EstimatorFromConfig builds the phase estimator from configured rules.
// With no rules every logged cycle reports the default phase.
func EstimatorFromConfig(rules []config.PhaseRule) (*cycle.Estimator, error) {
	if len(rules) == 0 {
		return cycle.NewEstimator(nil), nil
	}
	converted := make([]cycle.PhaseRule, 0, len(rules))
	for _, r := range rules {
		converted = append(converted, cycle.PhaseRule{FromDay: r.FromDay, ToDay: r.ToDay, ID: r.ID, Label: r.Label})
	}
	mapper, err := cycle.NewRuleMapper(converted, cycle.DefaultPhase)
	if err != nil {
		return nil, err
	}
	return cycle.NewEstimator(mapper), nil
}

type logCycleRequest struct {
	StartDate string `json:"start_date" form:"start_date" binding:"required"`
}

// LogCycle appends a cycle start event.
func (c *CycleController) LogCycle(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req logCycleRequest
	if err := ctx.ShouldBind(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40060, "start_date is required")
		return
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40061, "start_date must be formatted as YYYY-MM-DD")
		return
	}

	ev, err := c.cycles.Append(ctx.Request.Context(), userID, start)
	if err != nil {
		utils.Sugar.Errorw("log cycle failed", "user_id", userID, "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to log cycle")
		return
	}
	utils.Respond(ctx, http.StatusCreated, 0, "created", ev)
}

// ListCycles returns logged starts, newest first.
func (c *CycleController) ListCycles(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	limit := 24
	if v := ctx.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 200 {
			utils.Error(ctx, http.StatusBadRequest, 40062, "limit must be an integer between 1 and 200")
			return
		}
		limit = n
	}

	items, err := c.cycles.List(ctx.Request.Context(), userID, limit)
	if err != nil {
		utils.Sugar.Errorw("list cycles failed", "user_id", userID, "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50061, "failed to list cycles")
		return
	}
	utils.Success(ctx, gin.H{"items": items})
}

// Dashboard reports today's position in the current cycle together with the check-in card.
func (c *CycleController) Dashboard(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	reqCtx := ctx.Request.Context()
	day := today(c.now)

	profile, err := c.profiles.GetOrCreate(reqCtx, userID)
	if err != nil {
		utils.Sugar.Errorw("load profile failed", "user_id", userID, "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50062, "failed to load dashboard")
		return
	}
	avg := profile.AvgCycleLength
	if avg <= 0 {
		avg = config.Get().DefaultCycleLength
	}

	latest, err := c.cycles.Latest(reqCtx, userID)
	if err != nil {
		utils.Sugar.Errorw("load latest cycle failed", "user_id", userID, "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50062, "failed to load dashboard")
		return
	}

	var phase *cycle.PhaseInfo
	if latest != nil {
		phase = c.estimator.Estimate(&latest.StartDate, day, avg)
	}

	view, err := c.checkins.Today(reqCtx, userID, day)
	if err != nil {
		utils.Sugar.Errorw("load today's check-in failed", "user_id", userID, "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50062, "failed to load dashboard")
		return
	}

	utils.Success(ctx, gin.H{
		"today":                    day.Format(dateLayout),
		"phase":                    phase,
		"avg_cycle_length":         avg,
		"has_completed_onboarding": profile.HasCompletedOnboarding,
		"show_checkin":             view.ShowCheckIn,
		"checkin":                  view.CheckIn,
	})
}
