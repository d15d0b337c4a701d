package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bloomhealth/bloom/calendar"
	"github.com/bloomhealth/bloom/config"
	"github.com/bloomhealth/bloom/utils"
)

// CalendarController renders month grids.
type CalendarController struct {
	now Clock
}

// NewCalendarController creates a new controller instance.
func NewCalendarController() *CalendarController {
	return &CalendarController{}
}

type dayCell struct {
	Date    string `json:"date"`
	Day     int    `json:"day"`
	InMonth bool   `json:"in_month"`
	IsToday bool   `json:"is_today"`
}

type monthView struct {
	Year      int             `json:"year"`
	Month     int             `json:"month"`
	MonthName string          `json:"month_name"`
	WeekStart int             `json:"week_start"`
	Weeks     [][]dayCell     `json:"weeks"`
	Prev      *calendar.Month `json:"prev,omitempty"`
	Next      *calendar.Month `json:"next,omitempty"`
	Today     string          `json:"today"`
}

// Month returns the grid for ?year=&month=&week_start=, defaulting to the current month.
func (c *CalendarController) Month(ctx *gin.Context) {
	now := today(c.now)
	cfg := config.Get()

	year, err := intQuery(ctx, "year", now.Year())
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40070, "year must be an integer")
		return
	}
	month, err := intQuery(ctx, "month", int(now.Month()))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40071, "month must be an integer")
		return
	}
	weekStart, err := intQuery(ctx, "week_start", cfg.WeekStartDay)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40072, "week_start must be an integer")
		return
	}

	key := fmt.Sprintf("cache:calendar:%d:%d:%d", year, month, weekStart)
	var view monthView
	if !utils.CacheGetJSON(key, &view) {
		grid, err := calendar.Build(year, month, time.Weekday(weekStart))
		if err != nil {
			switch {
			case errors.Is(err, calendar.ErrInvalidMonth):
				utils.Error(ctx, http.StatusBadRequest, 40073, err.Error())
			case errors.Is(err, calendar.ErrInvalidYear):
				utils.Error(ctx, http.StatusBadRequest, 40074, err.Error())
			default:
				utils.Error(ctx, http.StatusBadRequest, 40075, err.Error())
			}
			return
		}
		view = renderGrid(grid)
		utils.CacheSetJSON(key, view, time.Duration(cfg.CalendarTTLSec)*time.Second)
	}

	view.Today = now.Format(dateLayout)
	for _, week := range view.Weeks {
		for i := range week {
			week[i].IsToday = week[i].Date == view.Today
		}
	}
	utils.Success(ctx, view)
}

func renderGrid(g calendar.Grid) monthView {
	weeks := make([][]dayCell, 0, len(g.Weeks))
	for _, w := range g.Weeks {
		cells := make([]dayCell, 0, len(w))
		for _, d := range w {
			cells = append(cells, dayCell{
				Date:    d.Format(dateLayout),
				Day:     d.Day(),
				InMonth: g.Contains(d),
			})
		}
		weeks = append(weeks, cells)
	}
	return monthView{
		Year:      g.Year,
		Month:     g.Month,
		MonthName: g.MonthName,
		WeekStart: int(g.WeekStart),
		Weeks:     weeks,
		Prev:      g.Prev,
		Next:      g.Next,
	}
}

func intQuery(ctx *gin.Context, name string, def int) (int, error) {
	raw, ok := ctx.GetQuery(name)
	if !ok || raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
