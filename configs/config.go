package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
}

type Youtube struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

type Webhook struct {
	URL   string
	Token string
}

type Queue struct {
	Name          string
	Concurrency   int
	MaxAttempts   int
	BackoffBase   time.Duration
	Retention     time.Duration
	KeepCompleted int
	KeepFailed    int
	PruneSpec     string
	RequeueSpec   string
	RequeueAfter  time.Duration
}

type Config struct {
	PostgresURI     string
	RedisURI        string
	HTTPAddr        string
	FrontendURL     string
	SecretKey       string
	CookieName      string
	PlatformTimeout time.Duration
	Queue           Queue
	R2              R2
	Youtube         Youtube
	Webhooks        map[models.Platform]Webhook
}

func LoadConfig() *Config {
	cfg := &Config{
		PostgresURI:     getEnv("POSTGRES_URI", ""),
		RedisURI:        getEnv("REDIS_URI", "localhost:6379"),
		HTTPAddr:        getEnv("HTTP_ADDR", ":3000"),
		FrontendURL:     getEnv("FRONTEND_URL", "http://localhost:5173"),
		SecretKey:       getEnv("SECRET_KEY", ""),
		CookieName:      getEnv("COOKIE_NAME", ""),
		PlatformTimeout: getEnvDuration("PLATFORM_TIMEOUT", 30*time.Second),
		Queue: Queue{
			Name:          getEnv("QUEUE_NAME", "publish"),
			Concurrency:   getEnvInt("QUEUE_CONCURRENCY", 10),
			MaxAttempts:   getEnvInt("QUEUE_MAX_ATTEMPTS", 3),
			BackoffBase:   getEnvDuration("QUEUE_BACKOFF_BASE", 2*time.Second),
			Retention:     getEnvDuration("QUEUE_RETENTION", 24*time.Hour),
			KeepCompleted: getEnvInt("QUEUE_KEEP_COMPLETED", 20),
			KeepFailed:    getEnvInt("QUEUE_KEEP_FAILED", 20),
			PruneSpec:     getEnv("QUEUE_PRUNE_SPEC", "@every 00h05m00s"),
			RequeueSpec:   getEnv("QUEUE_REQUEUE_SPEC", "@every 00h01m00s"),
			RequeueAfter:  getEnvDuration("QUEUE_REQUEUE_AFTER", time.Minute),
		},
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
		},
		Youtube: Youtube{
			ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
			RefreshToken: getEnv("YOUTUBE_REFRESH_TOKEN", ""),
		},
		Webhooks: make(map[models.Platform]Webhook),
	}

	// PLATFORM_<NAME>_URL / PLATFORM_<NAME>_TOKEN
	for _, p := range models.Platforms {
		prefix := "PLATFORM_" + strings.ToUpper(string(p))
		if url := getEnv(prefix+"_URL", ""); url != "" {
			cfg.Webhooks[p] = Webhook{URL: url, Token: getEnv(prefix+"_TOKEN", "")}
		}
	}

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil && n > 0 {
		return n
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return defaultValue
}
