package controllers

import (
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/bloomhealth/bloom/checkin"
	"github.com/bloomhealth/bloom/config"
	"github.com/bloomhealth/bloom/middleware"
	"github.com/bloomhealth/bloom/models"
	"github.com/bloomhealth/bloom/prompts"
	"github.com/bloomhealth/bloom/repository"
	"github.com/bloomhealth/bloom/testutil"
)

var fixedNow = time.Date(2024, time.June, 15, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type harness struct {
	db     *gorm.DB
	engine *gin.Engine
}

func newHarness(t *testing.T, catalog []string) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	config.Override(config.AppConfig{JWTSecret: "controller-secret", Timezone: "UTC", RedisDisabled: true})

	db := testutil.OpenDB(t)
	selector, err := prompts.NewSelector(catalog, rand.New(rand.NewPCG(3, 5)))
	require.NoError(t, err)

	checkins := repository.NewCheckInRepository(db)
	cycles := repository.NewCycleRepository(db)
	profiles := repository.NewProfileRepository(db)
	svc := checkin.NewService(checkins, selector)

	ci := NewCheckInController(svc, checkins)
	ci.now = fixedClock
	cy := NewCycleController(cycles, profiles, svc, nil)
	cy.now = fixedClock
	ob := NewOnboardingController(profiles)
	ob.now = fixedClock
	cal := NewCalendarController()
	cal.now = fixedClock

	r := gin.New()
	r.Use(func(ctx *gin.Context) {
		if uid := ctx.GetHeader("X-Test-User"); uid != "" {
			var id uint
			for _, ch := range uid {
				id = id*10 + uint(ch-'0')
			}
			ctx.Set(middleware.ContextUserIDKey, id)
		}
		ctx.Next()
	})
	r.GET("/checkin/today", ci.Today)
	r.POST("/checkin/dismiss", ci.Dismiss)
	r.POST("/checkin/complete", ci.Complete)
	r.POST("/checkin/refresh", ci.Refresh)
	r.GET("/checkin/history", ci.History)
	r.GET("/calendar", cal.Month)
	r.GET("/dashboard", cy.Dashboard)
	r.POST("/cycles", cy.LogCycle)
	r.GET("/cycles", cy.ListCycles)
	r.GET("/onboarding", ob.Get)
	r.PUT("/onboarding", ob.Save)

	return &harness{db: db, engine: r}
}

func (h *harness) do(method, path, user, body string, header map[string]string) (*httptest.ResponseRecorder, envelope) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.engine.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

type statusData struct {
	Status string `json:"status"`
	Prompt string `json:"prompt"`
}

func decodeStatus(t *testing.T, env envelope) statusData {
	t.Helper()
	var s statusData
	require.NoError(t, json.Unmarshal(env.Data, &s))
	return s
}

func TestCheckInController_TodayReadPath(t *testing.T) {
	h := newHarness(t, prompts.DefaultCatalog)

	w, env := h.do(http.MethodGet, "/checkin/today", "", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"show_checkin":false,"checkin":null}`, string(env.Data))

	w, env = h.do(http.MethodGet, "/checkin/today", "1", "", map[string]string{"X-Requested-With": "XMLHttpRequest"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{}`, string(env.Data))

	var count int64
	require.NoError(t, h.db.Model(&models.CheckIn{}).Count(&count).Error)
	assert.Zero(t, count, "card requests must not create records")

	var first checkin.TodayView
	_, env = h.do(http.MethodGet, "/checkin/today", "1", "", nil)
	require.NoError(t, json.Unmarshal(env.Data, &first))
	require.True(t, first.ShowCheckIn)
	require.NotNil(t, first.CheckIn)
	assert.Contains(t, prompts.DefaultCatalog, first.CheckIn.PromptText)
	assert.Equal(t, models.CheckInPending, first.CheckIn.Status)

	var second checkin.TodayView
	_, env = h.do(http.MethodGet, "/checkin/today", "1", "", nil)
	require.NoError(t, json.Unmarshal(env.Data, &second))
	assert.Equal(t, first.CheckIn.ID, second.CheckIn.ID)
	assert.Equal(t, first.CheckIn.PromptText, second.CheckIn.PromptText)

	require.NoError(t, h.db.Model(&models.CheckIn{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCheckInController_DismissThenOthers(t *testing.T) {
	h := newHarness(t, prompts.DefaultCatalog)
	h.do(http.MethodGet, "/checkin/today", "2", "", nil)

	w, env := h.do(http.MethodPost, "/checkin/dismiss", "2", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "dismissed", decodeStatus(t, env).Status)

	// dismiss always reports dismissed, even when already resolved
	_, env = h.do(http.MethodPost, "/checkin/dismiss", "2", "", nil)
	assert.Equal(t, "dismissed", decodeStatus(t, env).Status)

	_, env = h.do(http.MethodPost, "/checkin/complete", "2", `{"response":"late"}`, nil)
	assert.Equal(t, "already_resolved", decodeStatus(t, env).Status)

	w, env = h.do(http.MethodPost, "/checkin/refresh", "2", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "not_actionable", decodeStatus(t, env).Status)

	_, env = h.do(http.MethodGet, "/checkin/today", "2", "", nil)
	var view checkin.TodayView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.False(t, view.ShowCheckIn)
	require.NotNil(t, view.CheckIn)
	assert.Equal(t, models.CheckInDismissed, view.CheckIn.Status)
	assert.Empty(t, view.CheckIn.ResponseText)
}

func TestCheckInController_CompleteSanitizesAndTrims(t *testing.T) {
	h := newHarness(t, prompts.DefaultCatalog)
	h.do(http.MethodGet, "/checkin/today", "3", "", nil)

	w, env := h.do(http.MethodPost, "/checkin/complete", "3", `{"response":"  <b>Slept</b> well  "}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "completed", decodeStatus(t, env).Status)

	var rec models.CheckIn
	require.NoError(t, h.db.Where("user_id = ?", 3).First(&rec).Error)
	assert.Equal(t, models.CheckInCompleted, rec.Status)
	assert.Equal(t, "Slept well", rec.ResponseText)

	_, env = h.do(http.MethodPost, "/checkin/complete", "3", `{"response":"again"}`, nil)
	assert.Equal(t, "already_resolved", decodeStatus(t, env).Status)

	w, env = h.do(http.MethodPost, "/checkin/refresh", "3", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "not_actionable", decodeStatus(t, env).Status)

	require.NoError(t, h.db.Where("user_id = ?", 3).First(&rec).Error)
	assert.Equal(t, "Slept well", rec.ResponseText)
}

func TestCheckInController_CompleteKeepsPlainText(t *testing.T) {
	h := newHarness(t, prompts.DefaultCatalog)

	answers := []string{"I'm fine & rested", `she said "hi"`, "<3 today"}
	for i, answer := range answers {
		user := strconv.Itoa(20 + i)
		h.do(http.MethodGet, "/checkin/today", user, "", nil)

		body, err := json.Marshal(map[string]string{"response": answer})
		require.NoError(t, err)
		_, env := h.do(http.MethodPost, "/checkin/complete", user, string(body), nil)
		require.Equal(t, "completed", decodeStatus(t, env).Status)

		var rec models.CheckIn
		require.NoError(t, h.db.Where("user_id = ?", 20+i).First(&rec).Error)
		assert.Equal(t, answer, rec.ResponseText)

		_, env = h.do(http.MethodGet, "/checkin/history", user, "", nil)
		var out struct {
			Items []models.CheckIn `json:"items"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &out))
		require.Len(t, out.Items, 1)
		assert.Equal(t, answer, out.Items[0].ResponseText)
	}
}

func TestCheckInController_CompleteWithoutBody(t *testing.T) {
	h := newHarness(t, prompts.DefaultCatalog)
	h.do(http.MethodGet, "/checkin/today", "4", "", nil)

	_, env := h.do(http.MethodPost, "/checkin/complete", "4", "", nil)
	assert.Equal(t, "completed", decodeStatus(t, env).Status)

	var rec models.CheckIn
	require.NoError(t, h.db.Where("user_id = ?", 4).First(&rec).Error)
	assert.Equal(t, "", rec.ResponseText)
}

func TestCheckInController_WithoutRecord(t *testing.T) {
	h := newHarness(t, prompts.DefaultCatalog)

	_, env := h.do(http.MethodPost, "/checkin/complete", "5", `{"response":"x"}`, nil)
	assert.Equal(t, "already_resolved", decodeStatus(t, env).Status)

	w, _ := h.do(http.MethodPost, "/checkin/refresh", "5", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = h.do(http.MethodPost, "/checkin/dismiss", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCheckInController_RefreshPicksDifferentPrompt(t *testing.T) {
	catalog := []string{"How are you?", "What made you smile?"}
	h := newHarness(t, catalog)

	var view checkin.TodayView
	_, env := h.do(http.MethodGet, "/checkin/today", "6", "", nil)
	require.NoError(t, json.Unmarshal(env.Data, &view))
	current := view.CheckIn.PromptText

	for i := 0; i < 5; i++ {
		w, env := h.do(http.MethodPost, "/checkin/refresh", "6", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		s := decodeStatus(t, env)
		assert.Equal(t, "ok", s.Status)
		assert.NotEqual(t, current, s.Prompt)
		assert.Contains(t, catalog, s.Prompt)
		current = s.Prompt
	}

	var rec models.CheckIn
	require.NoError(t, h.db.Where("user_id = ?", 6).First(&rec).Error)
	assert.Equal(t, current, rec.PromptText)
	assert.Equal(t, models.CheckInPending, rec.Status)
}

func TestCheckInController_History(t *testing.T) {
	h := newHarness(t, prompts.DefaultCatalog)
	h.do(http.MethodGet, "/checkin/today", "7", "", nil)

	w, env := h.do(http.MethodGet, "/checkin/history", "7", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var out struct {
		Items []models.CheckIn `json:"items"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Len(t, out.Items, 1)

	w, _ = h.do(http.MethodGet, "/checkin/history?limit=0", "7", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type dashboardData struct {
	Today          string `json:"today"`
	AvgCycleLength int    `json:"avg_cycle_length"`
	Onboarded      bool   `json:"has_completed_onboarding"`
	ShowCheckIn    bool   `json:"show_checkin"`
	Phase          *struct {
		DayOfCycle    int `json:"day_of_cycle"`
		DaysUntilNext int `json:"days_until_next"`
		CycleLength   int `json:"cycle_length"`
		Phase         struct {
			ID string `json:"id"`
		} `json:"phase"`
	} `json:"phase"`
}

func dashboard(t *testing.T, h *harness, user string) dashboardData {
	t.Helper()
	w, env := h.do(http.MethodGet, "/dashboard", user, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var d dashboardData
	require.NoError(t, json.Unmarshal(env.Data, &d))
	return d
}

func TestCycleController_Dashboard(t *testing.T) {
	h := newHarness(t, prompts.DefaultCatalog)

	d := dashboard(t, h, "8")
	assert.Equal(t, "2024-06-15", d.Today)
	assert.Nil(t, d.Phase)
	assert.Equal(t, 28, d.AvgCycleLength)
	assert.False(t, d.Onboarded)
	assert.True(t, d.ShowCheckIn)

	w, _ := h.do(http.MethodPost, "/cycles", "8", `{"start_date":"2024-06-10"}`, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	d = dashboard(t, h, "8")
	require.NotNil(t, d.Phase)
	assert.Equal(t, 6, d.Phase.DayOfCycle)
	assert.Equal(t, 22, d.Phase.DaysUntilNext)
	assert.Equal(t, "tracking", d.Phase.Phase.ID)

	// an older start does not replace the current cycle
	h.do(http.MethodPost, "/cycles", "8", `{"start_date":"2024-05-01"}`, nil)
	d = dashboard(t, h, "8")
	assert.Equal(t, 6, d.Phase.DayOfCycle)

	w, _ = h.do(http.MethodPut, "/onboarding", "8", `{"avg_cycle_length":30,"last_period_start":"2024-06-13"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	d = dashboard(t, h, "8")
	assert.True(t, d.Onboarded)
	assert.Equal(t, 30, d.AvgCycleLength)
	assert.Equal(t, 3, d.Phase.DayOfCycle)
	assert.Equal(t, 27, d.Phase.DaysUntilNext)

	h.do(http.MethodPost, "/checkin/dismiss", "8", "", nil)
	assert.False(t, dashboard(t, h, "8").ShowCheckIn)
}

func TestCycleController_LogAndList(t *testing.T) {
	h := newHarness(t, prompts.DefaultCatalog)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"missing", `{}`, http.StatusBadRequest},
		{"bad format", `{"start_date":"15/06/2024"}`, http.StatusBadRequest},
		{"ok", `{"start_date":"2024-04-20"}`, http.StatusCreated},
		{"future allowed", `{"start_date":"2024-07-01"}`, http.StatusCreated},
		{"ok again", `{"start_date":"2024-05-18"}`, http.StatusCreated},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w, _ := h.do(http.MethodPost, "/cycles", "9", tc.body, nil)
			assert.Equal(t, tc.want, w.Code)
		})
	}

	w, env := h.do(http.MethodGet, "/cycles", "9", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var out struct {
		Items []models.CycleEvent `json:"items"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	require.Len(t, out.Items, 3)
	assert.Equal(t, "2024-07-01", out.Items[0].StartDate.Format(dateLayout))
	assert.Equal(t, "2024-05-18", out.Items[1].StartDate.Format(dateLayout))
	assert.Equal(t, "2024-04-20", out.Items[2].StartDate.Format(dateLayout))

	w, _ = h.do(http.MethodGet, "/cycles?limit=abc", "9", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOnboardingController_Validation(t *testing.T) {
	h := newHarness(t, prompts.DefaultCatalog)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"zero length", `{"avg_cycle_length":0,"last_period_start":"2024-06-01"}`, http.StatusBadRequest},
		{"too long", `{"avg_cycle_length":31,"last_period_start":"2024-06-01"}`, http.StatusBadRequest},
		{"future start", `{"avg_cycle_length":28,"last_period_start":"2024-06-16"}`, http.StatusBadRequest},
		{"bad date", `{"avg_cycle_length":28,"last_period_start":"June 1"}`, http.StatusBadRequest},
		{"missing date", `{"avg_cycle_length":28}`, http.StatusBadRequest},
		{"today is fine", `{"avg_cycle_length":1,"last_period_start":"2024-06-15"}`, http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w, _ := h.do(http.MethodPut, "/onboarding", "10", tc.body, nil)
			assert.Equal(t, tc.want, w.Code)
		})
	}

	w, env := h.do(http.MethodGet, "/onboarding", "10", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var p models.UserProfile
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.True(t, p.HasCompletedOnboarding)
	assert.Equal(t, 1, p.AvgCycleLength)
	require.NotNil(t, p.LastPeriodStart)
	assert.Equal(t, "2024-06-15", p.LastPeriodStart.Format(dateLayout))

	var events int64
	require.NoError(t, h.db.Model(&models.CycleEvent{}).Where("user_id = ?", 10).Count(&events).Error)
	assert.Equal(t, int64(1), events)
}

func TestCalendarController_Month(t *testing.T) {
	h := newHarness(t, prompts.DefaultCatalog)

	w, env := h.do(http.MethodGet, "/calendar?year=2024&month=2", "11", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var view monthView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, "February", view.MonthName)
	require.Len(t, view.Weeks, 5)
	assert.Equal(t, "2024-01-28", view.Weeks[0][0].Date)
	assert.False(t, view.Weeks[0][0].InMonth)
	assert.Equal(t, "2024-03-02", view.Weeks[4][6].Date)
	assert.Equal(t, 2024, view.Prev.Year)
	assert.Equal(t, 1, view.Prev.Month)
	assert.Equal(t, 3, view.Next.Month)
	assert.Equal(t, "2024-06-15", view.Today)

	inMonth := 0
	for _, week := range view.Weeks {
		require.Len(t, week, 7)
		for _, c := range week {
			if c.InMonth {
				inMonth++
			}
			assert.False(t, c.IsToday)
		}
	}
	assert.Equal(t, 29, inMonth)

	_, env = h.do(http.MethodGet, "/calendar", "11", "", nil)
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, 2024, view.Year)
	assert.Equal(t, 6, view.Month)
	assert.Equal(t, 0, view.WeekStart)
	todays := 0
	for _, week := range view.Weeks {
		for _, c := range week {
			if c.IsToday {
				todays++
				assert.Equal(t, "2024-06-15", c.Date)
			}
		}
	}
	assert.Equal(t, 1, todays)

	_, env = h.do(http.MethodGet, "/calendar?year=2024&month=12&week_start=1", "11", "", nil)
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, 2025, view.Next.Year)
	assert.Equal(t, 1, view.Next.Month)
	assert.Equal(t, "2024-11-25", view.Weeks[0][0].Date)
}

func TestCalendarController_EdgeMonthsOmitUnreachableLinks(t *testing.T) {
	h := newHarness(t, prompts.DefaultCatalog)

	w, env := h.do(http.MethodGet, "/calendar?year=9999&month=12", "11", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(env.Data, &raw))
	assert.Contains(t, raw, "prev")
	assert.NotContains(t, raw, "next")

	w, env = h.do(http.MethodGet, "/calendar?year=1&month=1", "11", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	raw = nil
	require.NoError(t, json.Unmarshal(env.Data, &raw))
	assert.NotContains(t, raw, "prev")
	assert.Contains(t, raw, "next")
}

func TestCalendarController_BadQuery(t *testing.T) {
	h := newHarness(t, prompts.DefaultCatalog)

	for _, q := range []string{
		"year=abc&month=2",
		"year=2024&month=two",
		"year=2024&month=0",
		"year=2024&month=13",
		"year=0&month=1",
		"year=2024&month=1&week_start=7",
		"year=2024&month=1&week_start=-1",
		"year=2024&month=1&week_start=x",
	} {
		t.Run(q, func(t *testing.T) {
			w, env := h.do(http.MethodGet, "/calendar?"+q, "11", "", nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.NotZero(t, env.Code)
		})
	}
}
