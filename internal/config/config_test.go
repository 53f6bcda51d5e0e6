package config

import (
	"testing"
	"time"
)

func validBase() Config {
	return Config{
		App:   AppConfig{Env: "local", Port: 8080},
		DB:    DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "signaling", SSLMode: ""},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Auth:  AuthConfig{JWTSecret: "secret"},
		MQTT:  MQTTConfig{Broker: "tcp://localhost:1883"},
	}
}

func TestLoad_ReportsMissingRequired(t *testing.T) {
	// Ensure a clean env by not setting anything and calling validation directly.
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_ProductionRequiresSSLMode(t *testing.T) {
	c := validBase()
	c.App.Env = "production"
	c.Auth.JWTIssuer = "issuer"
	c.Auth.JWTAudience = "aud"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE")
	}
}

func TestValidate_LocalDefaultsSSLMode(t *testing.T) {
	c := validBase()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
}

func TestValidate_RequiresMQTTBroker(t *testing.T) {
	c := validBase()
	c.MQTT.Broker = ""
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for missing MQTT_BROKER")
	}
}

func TestValidate_SignalingDefaults(t *testing.T) {
	c := validBase()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.Signaling.SweepInterval != time.Minute {
		t.Fatalf("expected 1m sweep interval default, got %v", c.Signaling.SweepInterval)
	}
	if c.Signaling.RingGracePeriod != 5*time.Minute {
		t.Fatalf("expected 5m grace period default, got %v", c.Signaling.RingGracePeriod)
	}
	if c.Signaling.HistoryPageSize != 20 {
		t.Fatalf("expected history page size default 20, got %d", c.Signaling.HistoryPageSize)
	}
}

func TestValidate_GracePeriodMustExceedSweepInterval(t *testing.T) {
	c := validBase()
	c.Signaling.SweepInterval = 10 * time.Minute
	c.Signaling.RingGracePeriod = 5 * time.Minute
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error when grace period <= sweep interval")
	}
}
