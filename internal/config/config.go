// Package config loads process configuration from the environment
// (spec §6 "Environment"), with an optional .env file for local
// development, the way the teacher's cmd/server/main.go does.
package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every environment-derived setting the core and its HTTP
// shell need. HTTP-only concerns (rate limit, CORS) are carried here too
// since spec §6 lists them as part of the same environment block, even
// though their enforcement lives outside this module's scope.
type Config struct {
	Host      string
	Port      string
	APIPrefix string

	DatabaseDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	CORSOrigins []string

	RateLimitWindow time.Duration
	RateLimitMax    int

	LogLevel string

	QueueConcurrency int
	LockDuration     time.Duration
	MaxRetryAttempts int

	MaxUploadBytes int64
	UploadDir      string
}

// Load reads .env (if present) then binds environment variables with
// sane defaults via viper, mirroring
// pramudityad-golang-reconciliation-service's config loading style.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on process environment")
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", "8080")
	v.SetDefault("api_prefix", "/api/v1")
	v.SetDefault("database_dsn", "host=localhost user=postgres password=postgres dbname=reconciliation port=5432 sslmode=disable")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("cors_origins", "http://localhost:3000")
	v.SetDefault("rate_limit_window", "1m")
	v.SetDefault("rate_limit_max", 120)
	v.SetDefault("log_level", "info")
	v.SetDefault("queue_concurrency", 2)
	v.SetDefault("lock_duration", "90s")
	v.SetDefault("max_retry_attempts", 3)
	v.SetDefault("max_upload_bytes", int64(50<<20)) // 50 MiB
	v.SetDefault("upload_dir", "./uploads")

	rateWindow, err := time.ParseDuration(v.GetString("rate_limit_window"))
	if err != nil {
		rateWindow = time.Minute
	}
	lockDuration, err := time.ParseDuration(v.GetString("lock_duration"))
	if err != nil || lockDuration < 60*time.Second {
		lockDuration = 90 * time.Second
	}

	return &Config{
		Host:             v.GetString("host"),
		Port:             v.GetString("port"),
		APIPrefix:        v.GetString("api_prefix"),
		DatabaseDSN:      v.GetString("database_dsn"),
		RedisAddr:        v.GetString("redis_addr"),
		RedisPassword:    v.GetString("redis_password"),
		RedisDB:          v.GetInt("redis_db"),
		CORSOrigins:      splitCSV(v.GetString("cors_origins")),
		RateLimitWindow:  rateWindow,
		RateLimitMax:     v.GetInt("rate_limit_max"),
		LogLevel:         v.GetString("log_level"),
		QueueConcurrency: v.GetInt("queue_concurrency"),
		LockDuration:     lockDuration,
		MaxRetryAttempts: v.GetInt("max_retry_attempts"),
		MaxUploadBytes:   v.GetInt64("max_upload_bytes"),
		UploadDir:        v.GetString("upload_dir"),
	}
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
