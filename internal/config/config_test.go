package config

import (
	"testing"
	"time"
)

func TestLoadReadsPOSSettings(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("POS_TAB_COUNT", "3")
	t.Setenv("POS_CHECKOUT_POLICY", "hold")
	t.Setenv("POS_DEFAULT_PRICE_LIST", "2")
	t.Setenv("SUBMIT_TIMEOUT", "5s")
	t.Setenv("PROMETHEUS_ENABLED", "false")
	t.Setenv("JWT_TTL", "8h")

	cfg := Load()
	if cfg.JWTTTL != 8*time.Hour {
		t.Errorf("JWTTTL = %s, want 8h", cfg.JWTTTL)
	}
	if cfg.TabCount != 3 {
		t.Errorf("TabCount = %d, want 3", cfg.TabCount)
	}
	if cfg.CheckoutPolicy != "hold" {
		t.Errorf("CheckoutPolicy = %q", cfg.CheckoutPolicy)
	}
	if cfg.DefaultPriceList != 2 {
		t.Errorf("DefaultPriceList = %d", cfg.DefaultPriceList)
	}
	if cfg.SubmitTimeout != 5*time.Second {
		t.Errorf("SubmitTimeout = %s", cfg.SubmitTimeout)
	}
	if cfg.PrometheusEnabled {
		t.Error("PrometheusEnabled should be false")
	}
}

func TestEnvHelpersFallBackOnGarbage(t *testing.T) {
	t.Setenv("X_INT", "beş")
	t.Setenv("X_BOOL", "belki")
	t.Setenv("X_DUR", "yarın")

	if got := getEnvInt("X_INT", 7); got != 7 {
		t.Errorf("getEnvInt = %d", got)
	}
	if got := getEnvBool("X_BOOL", true); !got {
		t.Error("getEnvBool should fall back to true")
	}
	if got := getEnvDuration("X_DUR", time.Second); got != time.Second {
		t.Errorf("getEnvDuration = %s", got)
	}
	if got := getEnv("X_MISSING", "def"); got != "def" {
		t.Errorf("getEnv = %q", got)
	}
}
