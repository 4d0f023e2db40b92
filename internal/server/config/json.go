package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/mitrasign/internal/flagx"
	"github.com/dmitrijs2005/mitrasign/internal/timex"
)

// JsonConfig is the DTO read from the JSON configuration file. Interval
// fields use timex.Duration so both "90s" and integer nanoseconds parse.
// Absent or zero fields leave the current Config value untouched.
type JsonConfig struct {
	HTTPAddr                     string         `json:"http_addr"`
	GRPCAddr                     string         `json:"grpc_addr"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	RequestTimeout               timex.Duration `json:"request_timeout"`
	VerifyBaseURL                string         `json:"verify_base_url"`
	DateLayout                   string         `json:"date_layout"`
	TimeZone                     string         `json:"time_zone"`
	LogLevel                     string         `json:"log_level"`
	RedisAddr                    string         `json:"redis_addr"`
	RedisPassword                string         `json:"redis_password"`
	VerifyRateLimit              int            `json:"verify_rate_limit"`
	VerifyRateWindow             timex.Duration `json:"verify_rate_window"`
	TrustProxyHeaders            bool           `json:"trust_proxy_headers"`
	AMQPURL                      string         `json:"amqp_url"`
	AMQPExchange                 string         `json:"amqp_exchange"`
	S3RootUser                   string         `json:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket"`
	S3Region                     string         `json:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint"`
}

// parseJson loads configuration values from the file named by -c/-config
// (or $MITRASIGN_CONFIG). Nothing happens when no path is given. An
// unreadable or invalid file panics: a misconfigured server must not start.
func parseJson(config *Config) {
	path := flagx.ConfigFilePath()
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.GRPCAddr, c.GRPCAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDuration(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
	setDuration(&config.RequestTimeout, c.RequestTimeout)
	setString(&config.VerifyBaseURL, c.VerifyBaseURL)
	setString(&config.DateLayout, c.DateLayout)
	setString(&config.TimeZone, c.TimeZone)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	if c.VerifyRateLimit > 0 {
		config.VerifyRateLimit = c.VerifyRateLimit
	}
	setDuration(&config.VerifyRateWindow, c.VerifyRateWindow)
	if c.TrustProxyHeaders {
		config.TrustProxyHeaders = true
	}
	setString(&config.AMQPURL, c.AMQPURL)
	setString(&config.AMQPExchange, c.AMQPExchange)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration > 0 {
		*dst = v.Duration
	}
}
