package config

import (
	"os"
	"path/filepath"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validApp() *App {
	return &App{
		Env:                 "dev",
		StoreBackend:        "postgres",
		QueueBackend:        "redis",
		RateLimitBackend:    "memory",
		JWTSigningKey:       "secret",
		RateLimitPerMin:     60,
		SessionTimezone:     "Asia/Bangkok",
		SessionStart:        "13:00",
		SessionOnTimeCutoff: "13:30",
		SessionEnd:          "16:00",
		ReportLanguage:      "th",
		DashboardRecent:     5,
	}
}

func TestValidate_Valid(t *testing.T) {
	assert.NoError(t, validApp().Validate())
}

func TestValidate_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*App)
	}{
		{"missing signing key", func(c *App) { c.JWTSigningKey = "" }},
		{"zero rate limit", func(c *App) { c.RateLimitPerMin = 0 }},
		{"unknown queue backend", func(c *App) { c.QueueBackend = "kafka" }},
		{"postgres rate limiter", func(c *App) { c.RateLimitBackend = "postgres" }},
		{"bad timezone", func(c *App) { c.SessionTimezone = "Mars/Olympus" }},
		{"bad clock", func(c *App) { c.SessionStart = "1pm" }},
		{"cutoff before start", func(c *App) { c.SessionOnTimeCutoff = "12:30" }},
		{"end before cutoff", func(c *App) { c.SessionEnd = "13:15" }},
		{"unknown report language", func(c *App) { c.ReportLanguage = "fr" }},
		{"negative recent", func(c *App) { c.DashboardRecent = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validApp()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSchedule(t *testing.T) {
	cfg := validApp()
	cfg.SessionEnd = "16:00:30"

	s, err := cfg.Schedule()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Bangkok", s.Location.String())
	assert.Equal(t, civil.Time{Hour: 13}, s.Start)
	assert.Equal(t, civil.Time{Hour: 13, Minute: 30}, s.OnTimeCutoff)
	assert.Equal(t, civil.Time{Hour: 16, Second: 30}, s.End)
}

func TestApplyScheduleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedule.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timezone: Asia/Tokyo\nstart: \"09:00\"\non_time_cutoff: \"09:15\"\n"), 0o600))

	cfg := validApp()
	cfg.SessionEnd = "12:00"
	require.NoError(t, cfg.applyScheduleFile(path))

	assert.Equal(t, "Asia/Tokyo", cfg.SessionTimezone)
	assert.Equal(t, "09:00", cfg.SessionStart)
	assert.Equal(t, "09:15", cfg.SessionOnTimeCutoff)
	assert.Equal(t, "12:00", cfg.SessionEnd, "fields absent from the file are kept")
	assert.NoError(t, cfg.Validate())
}

func TestApplyScheduleFile_Missing(t *testing.T) {
	cfg := validApp()
	assert.Error(t, cfg.applyScheduleFile(filepath.Join(t.TempDir(), "nope.yaml")))
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("SESSION_TIMEZONE", "UTC")
	t.Setenv("SESSION_START", "08:00")
	t.Setenv("SESSION_ON_TIME_CUTOFF", "08:10")
	t.Setenv("SESSION_END", "10:00")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("RATE_LIMIT_PER_MIN", "30")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, 30, cfg.RateLimitPerMin)
	assert.Equal(t, "postgres", cfg.StoreBackend)
	assert.False(t, cfg.IsProduction())
}

func TestIsProduction(t *testing.T) {
	cfg := &App{Env: "prod"}
	assert.True(t, cfg.IsProduction())
	cfg.Env = "dev"
	assert.False(t, cfg.IsProduction())
}
