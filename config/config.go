package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server configuration
	Port        string
	Environment string
	AppBaseURL  string

	// Redis configuration
	RedisURL string

	// PubNub configuration
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string
	PubNubUserID       string

	// Invitation configuration
	InvitationTTLDays        int
	ManagerInvitationTTLDays int
	InviteCodeMaxAttempts    int

	// Timeout configuration
	SlotLockTimeout     time.Duration
	NotificationTimeout time.Duration

	// Abuse protection
	RedeemAttemptLimit  int
	RedeemAttemptWindow time.Duration

	// Monitoring
	EnableMetrics bool
}

func LoadConfig() *Config {
	return &Config{
		// Server
		Port:        getEnv("PORT", "8090"),
		Environment: getEnv("ENVIRONMENT", "development"),
		AppBaseURL:  getEnv("APP_BASE_URL", "http://localhost:8090"),

		// Redis
		RedisURL: getEnv("REDIS_URL", ""),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),
		PubNubUserID:       getEnv("PUBNUB_USER_ID", "gig-booking-server"),

		// Invitations
		InvitationTTLDays:        getEnvAsInt("INVITATION_TTL_DAYS", 30),
		ManagerInvitationTTLDays: getEnvAsInt("MANAGER_INVITATION_TTL_DAYS", 7),
		InviteCodeMaxAttempts:    getEnvAsInt("INVITE_CODE_MAX_ATTEMPTS", 10),

		// Timeouts
		SlotLockTimeout:     getEnvAsDuration("SLOT_LOCK_TIMEOUT", "10s"),
		NotificationTimeout: getEnvAsDuration("NOTIFICATION_TIMEOUT", "15s"),

		// Abuse protection
		RedeemAttemptLimit:  getEnvAsInt("REDEEM_ATTEMPT_LIMIT", 10),
		RedeemAttemptWindow: getEnvAsDuration("REDEEM_ATTEMPT_WINDOW", "1m"),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
	}
}

// PushEnabled reports whether PubNub credentials are configured.
func (c *Config) PushEnabled() bool {
	return c.PubNubPublishKey != "" && c.PubNubSubscribeKey != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, try to parse default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
