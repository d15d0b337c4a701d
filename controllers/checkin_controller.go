package controllers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bloomhealth/bloom/checkin"
	"github.com/bloomhealth/bloom/repository"
	"github.com/bloomhealth/bloom/utils"
)

// cardRequestHeader is set to XMLHttpRequest by the check-in card's own calls.
const cardRequestHeader = "X-Requested-With"

// CheckInController exposes the daily check-in card.
type CheckInController struct {
	service *checkin.Service
	history *repository.CheckInRepository
	now     Clock
}

// NewCheckInController creates a new controller instance.
func NewCheckInController(service *checkin.Service, history *repository.CheckInRepository) *CheckInController {
	return &CheckInController{service: service, history: history}
}

// Today is the read path consumed by every page render.
func (c *CheckInController) Today(ctx *gin.Context) {
	if ctx.GetHeader(cardRequestHeader) == "XMLHttpRequest" {
		utils.Success(ctx, gin.H{})
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Success(ctx, checkin.TodayView{})
		return
	}

	view, err := c.service.Today(ctx.Request.Context(), userID, today(c.now))
	if err != nil {
		utils.Sugar.Errorw("load today's check-in failed", "user_id", userID, "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to load check-in")
		return
	}
	utils.Success(ctx, view)
}

// Dismiss resolves today's prompt without an answer. Always answers "dismissed".
func (c *CheckInController) Dismiss(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	if _, err := c.service.Dismiss(ctx.Request.Context(), userID, today(c.now)); err != nil {
		utils.Sugar.Errorw("dismiss check-in failed", "user_id", userID, "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to dismiss check-in")
		return
	}
	utils.Success(ctx, gin.H{"status": checkin.ResultDismissed})
}

type completeRequest struct {
	Response string `json:"response" form:"response"`
}

// Complete stores the user's answer and resolves today's prompt.
func (c *CheckInController) Complete(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req completeRequest
	if err := ctx.ShouldBind(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid request payload")
		return
	}

	res, err := c.service.Complete(ctx.Request.Context(), userID, today(c.now), utils.SanitizeText(req.Response))
	if err != nil {
		utils.Sugar.Errorw("complete check-in failed", "user_id", userID, "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50042, "failed to complete check-in")
		return
	}
	utils.Success(ctx, gin.H{"status": res})
}

// Refresh swaps today's prompt. A resolved check-in means the client view is stale.
func (c *CheckInController) Refresh(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	res, prompt, err := c.service.Refresh(ctx.Request.Context(), userID, today(c.now))
	if err != nil {
		utils.Sugar.Errorw("refresh check-in failed", "user_id", userID, "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50043, "failed to refresh check-in")
		return
	}
	if res == checkin.ResultNotActionable {
		utils.Respond(ctx, http.StatusBadRequest, 40041, string(res), gin.H{"status": res})
		return
	}
	utils.Success(ctx, gin.H{"status": res, "prompt": prompt})
}

// History lists past check-ins, newest first.
func (c *CheckInController) History(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	limit := 30
	if v := ctx.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 366 {
			utils.Error(ctx, http.StatusBadRequest, 40042, "limit must be an integer between 1 and 366")
			return
		}
		limit = n
	}

	items, err := c.history.History(ctx.Request.Context(), userID, limit)
	if err != nil {
		utils.Sugar.Errorw("list check-ins failed", "user_id", userID, "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50044, "failed to list check-ins")
		return
	}
	utils.Success(ctx, gin.H{"items": items})
}
