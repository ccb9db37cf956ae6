package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the portal API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	DatabaseURL            string
	RedisURL               string
	NATSURL                string
	ChannelBase            string
	JWTSecret              string
	JWTRefreshSecret       string
	AccessTokenTTL         time.Duration
	RefreshTokenTTL        time.Duration
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	DashboardCacheTTL      time.Duration
	SubmissionSweepEvery   time.Duration
	SubmissionGrace        time.Duration
	GradingMaxAttempts     int
	UploadMaxSizeMB        int
	MidtransServerKey      string
	MidtransProduction     bool
	OpenAIAPIKey           string
	AIFeedbackModel        string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("LMS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "LMS Portal API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("channel.base", "lms")
	v.SetDefault("access_token_ttl", "15m")
	v.SetDefault("refresh_token_ttl", "168h")
	v.SetDefault("cloudinary.folder", "lms/library")
	v.SetDefault("dashboard.cache_ttl", "5m")
	v.SetDefault("submission.sweep_every", "30s")
	v.SetDefault("submission.grace", "15s")
	v.SetDefault("grading.max_attempts", 3)
	v.SetDefault("upload.max_size_mb", 200)
	v.SetDefault("ai.feedback_model", "gpt-4o-mini")

	dashboardTTL, err := parseDurationSetting(v, "dashboard.cache_ttl", "5m")
	if err != nil {
		return Config{}, fmt.Errorf("invalid dashboard cache ttl: %w", err)
	}

	sweepEvery, err := parseDurationSetting(v, "submission.sweep_every", "30s")
	if err != nil {
		return Config{}, fmt.Errorf("invalid submission sweep interval: %w", err)
	}

	grace, err := parseDurationSetting(v, "submission.grace", "15s")
	if err != nil {
		return Config{}, fmt.Errorf("invalid submission grace: %w", err)
	}

	accessTTL, err := parseDurationSetting(v, "access_token_ttl", "15m")
	if err != nil {
		return Config{}, fmt.Errorf("invalid access token ttl: %w", err)
	}

	refreshTTL, err := parseDurationSetting(v, "refresh_token_ttl", "168h")
	if err != nil {
		return Config{}, fmt.Errorf("invalid refresh token ttl: %w", err)
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		ChannelBase:            v.GetString("channel.base"),
		JWTSecret:              v.GetString("jwt.secret"),
		JWTRefreshSecret:       v.GetString("jwt.refresh_secret"),
		AccessTokenTTL:         accessTTL,
		RefreshTokenTTL:        refreshTTL,
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		DashboardCacheTTL:      dashboardTTL,
		SubmissionSweepEvery:   sweepEvery,
		SubmissionGrace:        grace,
		GradingMaxAttempts:     v.GetInt("grading.max_attempts"),
		UploadMaxSizeMB:        v.GetInt("upload.max_size_mb"),
		MidtransServerKey:      v.GetString("midtrans.server_key"),
		MidtransProduction:     v.GetBool("midtrans.production"),
		OpenAIAPIKey:           v.GetString("openai_api_key"),
		AIFeedbackModel:        v.GetString("ai.feedback_model"),
	}

	if cfg.JWTSecret == "" || cfg.JWTRefreshSecret == "" {
		return Config{}, fmt.Errorf("jwt secrets must be provided")
	}

	if cfg.GradingMaxAttempts <= 0 {
		cfg.GradingMaxAttempts = 3
	}

	if cfg.UploadMaxSizeMB <= 0 {
		cfg.UploadMaxSizeMB = 200
	}

	return cfg, nil
}

func parseDurationSetting(v *viper.Viper, key, fallback string) (time.Duration, error) {
	raw := v.GetString(key)
	if raw == "" {
		raw = fallback
	}

	return time.ParseDuration(raw)
}
