package controllers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bloomhealth/bloom/config"
	"github.com/bloomhealth/bloom/middleware"
	"github.com/bloomhealth/bloom/models"
)

// Clock returns the current instant; controllers take one so tests can pin "today".
type Clock func() time.Time

func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		return uint(v), true
	case int64:
		return uint(v), true
	case float64:
		return uint(v), true
	default:
		return 0, false
	}
}

// today is the calendar day of now in the configured timezone.
func today(now Clock) time.Time {
	if now == nil {
		now = time.Now
	}
	return models.DateOf(now().In(config.Location()))
}

const dateLayout = "2006-01-02"

func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, config.Location())
}
