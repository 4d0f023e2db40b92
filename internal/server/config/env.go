package config

import (
	"os"
	"strconv"
	"time"
)

// envPrefix namespaces every environment variable read by parseEnv.
const envPrefix = "MITRASIGN_"

// parseEnv overlays values from MITRASIGN_* environment variables. Unset or
// unparsable variables keep the current value.
func parseEnv(config *Config) {
	config.HTTPAddr = getenv("HTTP_ADDR", config.HTTPAddr)
	config.GRPCAddr = getenv("GRPC_ADDR", config.GRPCAddr)
	config.DatabaseDSN = getenv("DATABASE_DSN", config.DatabaseDSN)
	config.SecretKey = getenv("SECRET_KEY", config.SecretKey)
	config.AccessTokenValidityDuration = getenvDuration("ACCESS_TOKEN_VALIDITY", config.AccessTokenValidityDuration)
	config.RefreshTokenValidityDuration = getenvDuration("REFRESH_TOKEN_VALIDITY", config.RefreshTokenValidityDuration)
	config.RequestTimeout = getenvDuration("REQUEST_TIMEOUT", config.RequestTimeout)
	config.VerifyBaseURL = getenv("VERIFY_BASE_URL", config.VerifyBaseURL)
	config.DateLayout = getenv("DATE_LAYOUT", config.DateLayout)
	config.TimeZone = getenv("TIME_ZONE", config.TimeZone)
	config.LogLevel = getenv("LOG_LEVEL", config.LogLevel)
	config.RedisAddr = getenv("REDIS_ADDR", config.RedisAddr)
	config.RedisPassword = getenv("REDIS_PASSWORD", config.RedisPassword)
	config.VerifyRateLimit = getenvInt("VERIFY_RATE_LIMIT", config.VerifyRateLimit)
	config.VerifyRateWindow = getenvDuration("VERIFY_RATE_WINDOW", config.VerifyRateWindow)
	config.TrustProxyHeaders = getenvBool("TRUST_PROXY_HEADERS", config.TrustProxyHeaders)
	config.AMQPURL = getenv("AMQP_URL", config.AMQPURL)
	config.AMQPExchange = getenv("AMQP_EXCHANGE", config.AMQPExchange)
	config.S3RootUser = getenv("S3_ROOT_USER", config.S3RootUser)
	config.S3RootPassword = getenv("S3_ROOT_PASSWORD", config.S3RootPassword)
	config.S3Bucket = getenv("S3_BUCKET", config.S3Bucket)
	config.S3Region = getenv("S3_REGION", config.S3Region)
	config.S3BaseEndpoint = getenv("S3_BASE_ENDPOINT", config.S3BaseEndpoint)
}

func getenv(key, fallback string) string {
	if val := os.Getenv(envPrefix + key); val != "" {
		return val
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if val := os.Getenv(envPrefix + key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	if val := os.Getenv(envPrefix + key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(envPrefix + key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if val := os.Getenv(envPrefix + key + "_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}
