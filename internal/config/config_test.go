package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg := FromEnv(envOf(nil))
	if cfg.Port != "8080" || cfg.DatabaseURL != defaultDatabaseURL {
		t.Errorf("unexpected defaults: port=%s db=%s", cfg.Port, cfg.DatabaseURL)
	}
	if !cfg.SchedulerEnabled || cfg.AccrualHour != 0 || cfg.AccrualMinute != 5 || cfg.AccrualLocation != time.UTC {
		t.Errorf("scheduler defaults: %+v", cfg)
	}
	if !cfg.SignupBonus.Equal(decimal.NewFromInt(100)) || !cfg.MinWithdrawal.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("money defaults: bonus=%s min=%s", cfg.SignupBonus, cfg.MinWithdrawal)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "http://localhost:3000" {
		t.Errorf("origins: %v", cfg.AllowedOrigins)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg := FromEnv(envOf(map[string]string{
		"PORT":              "9090",
		"SCHEDULER_ENABLED": "false",
		"ACCRUAL_HOUR":      "2",
		"ACCRUAL_MINUTE":    "30",
		"ACCRUAL_TZ":        "Asia/Karachi",
		"ALLOWED_ORIGINS":   "https://a.example, https://b.example ,",
		"ADMIN_EMAILS":      "ops@x.io",
		"SIGNUP_BONUS":      "250.50",
		"PUBLIC_BASE_URL":   "https://cdn.example/files/",
	}))
	if cfg.Port != "9090" || cfg.SchedulerEnabled || cfg.AccrualHour != 2 || cfg.AccrualMinute != 30 {
		t.Errorf("unexpected overrides: %+v", cfg)
	}
	if cfg.AccrualLocation.String() != "Asia/Karachi" {
		t.Errorf("location = %s", cfg.AccrualLocation)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("origins: %v", cfg.AllowedOrigins)
	}
	if !cfg.SignupBonus.Equal(decimal.RequireFromString("250.5")) {
		t.Errorf("signup bonus = %s", cfg.SignupBonus)
	}
	if cfg.PublicBaseURL != "https://cdn.example/files" {
		t.Errorf("base url = %s", cfg.PublicBaseURL)
	}
}

func TestFromEnv_MalformedFallsBack(t *testing.T) {
	cfg := FromEnv(envOf(map[string]string{
		"ACCRUAL_HOUR":      "25",
		"SCHEDULER_ENABLED": "maybe",
		"MIN_WITHDRAWAL":    "-5",
		"ACCRUAL_TZ":        "Mars/Olympus",
	}))
	if cfg.AccrualHour != 0 || !cfg.SchedulerEnabled || !cfg.MinWithdrawal.Equal(decimal.NewFromInt(1000)) || cfg.AccrualLocation != time.UTC {
		t.Errorf("malformed values should fall back: %+v", cfg)
	}
}
