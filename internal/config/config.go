// Package config
package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Address   string
	LogLevel  string
	LogFormat string

	DBDriver    string
	DatabaseURL string
	SQLitePath  string
	DBMaxConns  int

	JWTSecret        string
	JWTExpiry        time.Duration
	JWTRefreshExpiry time.Duration
	AllowedOrigins   []string

	GoogleTokenInfoURL string
	GoogleClientID     string

	Monitoring MonitoringConfig
	Stream     StreamConfig

	RetentionDays int
}

type MonitoringConfig struct {
	SampleInterval  time.Duration
	PersistInterval time.Duration
	TopProcesses    int
	Thresholds      Thresholds
}

// Thresholds are critical limits in percent; a sample strictly above a limit raises an alert.
type Thresholds struct {
	CPUCritical    float64
	MemoryCritical float64
	DiskCritical   float64
}

type StreamConfig struct {
	PushInterval      time.Duration
	HeartbeatInterval time.Duration
	ClientTimeout     time.Duration
}

func Load() *Config {
	godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":3000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")

	v.SetDefault("DB_DRIVER", DriverPostgres)
	v.SetDefault("DATABASE_URL", "postgres://localhost:5432/fleetmon?sslmode=disable")
	v.SetDefault("SQLITE_PATH", "fleetmon.db")
	v.SetDefault("DB_MAX_CONNS", 5)

	v.SetDefault("JWT_EXPIRY", "15m")
	v.SetDefault("JWT_REFRESH_EXPIRY", "168h")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")

	v.SetDefault("GOOGLE_TOKENINFO_URL", "https://oauth2.googleapis.com/tokeninfo")

	v.SetDefault("SAMPLE_INTERVAL", "1s")
	v.SetDefault("PERSIST_INTERVAL", "60s")
	v.SetDefault("TOP_PROCESSES", 10)
	v.SetDefault("CPU_CRITICAL", 90.0)
	v.SetDefault("MEMORY_CRITICAL", 90.0)
	v.SetDefault("DISK_CRITICAL", 90.0)

	v.SetDefault("PUSH_INTERVAL", "1s")
	v.SetDefault("HEARTBEAT_INTERVAL", "5s")
	v.SetDefault("CLIENT_TIMEOUT", "10s")

	v.SetDefault("RETENTION_DAYS", 30)

	return &Config{
		Address:   v.GetString("HTTP_ADDR"),
		LogLevel:  v.GetString("LOG_LEVEL"),
		LogFormat: v.GetString("LOG_FORMAT"),

		DBDriver:    strings.ToLower(v.GetString("DB_DRIVER")),
		DatabaseURL: v.GetString("DATABASE_URL"),
		SQLitePath:  v.GetString("SQLITE_PATH"),
		DBMaxConns:  v.GetInt("DB_MAX_CONNS"),

		JWTSecret:        v.GetString("JWT_SECRET"),
		JWTExpiry:        duration(v, "JWT_EXPIRY", 15*time.Minute),
		JWTRefreshExpiry: duration(v, "JWT_REFRESH_EXPIRY", 7*24*time.Hour),
		AllowedOrigins:   splitList(v.GetString("ALLOWED_ORIGINS")),

		GoogleTokenInfoURL: v.GetString("GOOGLE_TOKENINFO_URL"),
		GoogleClientID:     v.GetString("GOOGLE_CLIENT_ID"),

		Monitoring: MonitoringConfig{
			SampleInterval:  duration(v, "SAMPLE_INTERVAL", time.Second),
			PersistInterval: duration(v, "PERSIST_INTERVAL", time.Minute),
			TopProcesses:    v.GetInt("TOP_PROCESSES"),
			Thresholds: Thresholds{
				CPUCritical:    v.GetFloat64("CPU_CRITICAL"),
				MemoryCritical: v.GetFloat64("MEMORY_CRITICAL"),
				DiskCritical:   v.GetFloat64("DISK_CRITICAL"),
			},
		},

		Stream: StreamConfig{
			PushInterval:      duration(v, "PUSH_INTERVAL", time.Second),
			HeartbeatInterval: duration(v, "HEARTBEAT_INTERVAL", 5*time.Second),
			ClientTimeout:     duration(v, "CLIENT_TIMEOUT", 10*time.Second),
		},

		RetentionDays: v.GetInt("RETENTION_DAYS"),
	}
}

// DefaultThresholds match the production defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{CPUCritical: 90, MemoryCritical: 90, DiskCritical: 90}
}

func duration(v *viper.Viper, key string, def time.Duration) time.Duration {
	if raw := v.GetString(key); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			return parsed
		}
	}
	return def
}

func splitList(raw string) []string {
	out := []string{}
	for s := range strings.SplitSeq(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
