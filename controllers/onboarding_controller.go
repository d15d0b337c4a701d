package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bloomhealth/bloom/repository"
	"github.com/bloomhealth/bloom/utils"
)

const maxAvgCycleLength = 30

// OnboardingController records the first-run answers.
type OnboardingController struct {
	profiles *repository.ProfileRepository
	now      Clock
}

// NewOnboardingController creates a new controller instance.
func NewOnboardingController(profiles *repository.ProfileRepository) *OnboardingController {
	return &OnboardingController{profiles: profiles}
}

// Get returns the current profile, empty until onboarding is saved.
func (o *OnboardingController) Get(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	profile, err := o.profiles.GetOrCreate(ctx.Request.Context(), userID)
	if err != nil {
		utils.Sugar.Errorw("load profile failed", "user_id", userID, "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50050, "failed to load profile")
		return
	}
	utils.Success(ctx, profile)
}

type onboardingRequest struct {
	AvgCycleLength  int    `json:"avg_cycle_length" form:"avg_cycle_length"`
	LastPeriodStart string `json:"last_period_start" form:"last_period_start" binding:"required"`
}

// Save validates and stores the answers. The last period start is also logged as a cycle event.
func (o *OnboardingController) Save(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req onboardingRequest
	if err := ctx.ShouldBind(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40050, "invalid request payload")
		return
	}
	if req.AvgCycleLength < 1 || req.AvgCycleLength > maxAvgCycleLength {
		utils.Error(ctx, http.StatusBadRequest, 40051, "avg_cycle_length must be between 1 and 30")
		return
	}
	start, err := parseDate(req.LastPeriodStart)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40052, "last_period_start must be formatted as YYYY-MM-DD")
		return
	}
	if start.After(today(o.now)) {
		utils.Error(ctx, http.StatusBadRequest, 40053, "last_period_start cannot be in the future")
		return
	}

	profile, err := o.profiles.CompleteOnboarding(ctx.Request.Context(), userID, req.AvgCycleLength, start)
	if err != nil {
		utils.Sugar.Errorw("save onboarding failed", "user_id", userID, "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50051, "failed to save onboarding")
		return
	}
	utils.Success(ctx, profile)
}
