package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloomhealth/bloom/prompts"
)

func TestLoadJSONConfig_GroupedSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{
		"app": {"AppPort": "9000", "JWTSecret": "s3cret", "Timezone": "Europe/Berlin", "RateLimitPerMinute": 30},
		"database": {"DBHost": "db", "DBName": "bloom_test"},
		"redis": {"Disabled": true, "CalendarTTLSec": 60},
		"log": {"Level": "debug"},
		"checkin": {"Prompts": ["How was sleep?", "  ", "Any cramps?"]},
		"cycle": {"DefaultLength": 30, "WeekStartDay": 1, "Phases": [{"FromDay": 1, "ToDay": 5, "ID": "menstrual", "Label": "Menstrual"}]}
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	var c AppConfig
	require.NoError(t, loadJSONConfig(path, &c))
	applyDefaults(&c)

	assert.Equal(t, "9000", c.AppPort)
	assert.Equal(t, "s3cret", c.JWTSecret)
	assert.Equal(t, "Europe/Berlin", c.Timezone)
	assert.Equal(t, 30, c.RateLimitPerMinute)
	assert.Equal(t, "db", c.DBHost)
	assert.Equal(t, "3306", c.DBPort)
	assert.True(t, c.RedisDisabled)
	assert.Equal(t, 60, c.CalendarTTLSec)
	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, []string{"How was sleep?", "Any cramps?"}, c.CheckInPrompts)
	assert.Equal(t, 30, c.DefaultCycleLength)
	assert.Equal(t, 1, c.WeekStartDay)
	assert.Equal(t, []PhaseRule{{FromDay: 1, ToDay: 5, ID: "menstrual", Label: "Menstrual"}}, c.Phases)
}

func TestLoadJSONConfig_MissingAndInvalid(t *testing.T) {
	var c AppConfig
	require.NoError(t, loadJSONConfig(filepath.Join(t.TempDir(), "nope.json"), &c))

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	require.Error(t, loadJSONConfig(path, &c))
}

func TestApplyDefaults(t *testing.T) {
	var c AppConfig
	c.WeekStartDay = 9
	applyDefaults(&c)

	assert.Equal(t, "8080", c.AppPort)
	assert.Equal(t, 72, c.TokenTTLHours)
	assert.Equal(t, 28, c.DefaultCycleLength)
	assert.Equal(t, 0, c.WeekStartDay)
	assert.Equal(t, prompts.DefaultCatalog, c.CheckInPrompts)
	assert.Equal(t, []string{"*"}, c.AllowedOrigins)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "7000")
	t.Setenv("CHECKIN_PROMPTS", "One?| |Two?")
	t.Setenv("CYCLE_DEFAULT_LENGTH", "26")
	t.Setenv("CALENDAR_WEEK_START", "1")
	t.Setenv("REDIS_DISABLED", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	var c AppConfig
	applyDefaults(&c)
	applyEnvOverrides(&c)

	assert.Equal(t, "7000", c.AppPort)
	assert.Equal(t, []string{"One?", "Two?"}, c.CheckInPrompts)
	assert.Equal(t, 26, c.DefaultCycleLength)
	assert.Equal(t, 1, c.WeekStartDay)
	assert.True(t, c.RedisDisabled)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.AllowedOrigins)
}

func TestBuildDSN(t *testing.T) {
	dsn := BuildDSN(AppConfig{DBUser: "u", DBPassword: "p", DBHost: "h", DBPort: "3306", DBName: "bloom", Timezone: "Europe/Berlin"})
	assert.Equal(t, "u:p@tcp(h:3306)/bloom?charset=utf8mb4&parseTime=True&loc=Europe%2FBerlin&clientFoundRows=true", dsn)

	assert.Equal(t, "u:p@tcp(h)/db?clientFoundRows=true", BuildDSN(AppConfig{DatabaseURI: "u:p@tcp(h)/db"}))
	assert.Equal(t, "u:p@tcp(h)/db?clientFoundRows=false", BuildDSN(AppConfig{DatabaseURI: "u:p@tcp(h)/db?clientFoundRows=false"}))
}

func TestOverrideAndLocation(t *testing.T) {
	Override(AppConfig{JWTSecret: "x", Timezone: "UTC"})
	assert.Equal(t, "UTC", Location().String())

	Override(AppConfig{JWTSecret: "x", Timezone: "Not/AZone"})
	assert.Equal(t, "Local", Location().String())
}
