package config

import (
	"os"
	"strconv"
)

// lookupEnv is replaced in tests.
var lookupEnv = os.LookupEnv

// parseEnv overlays deployment secrets and addresses from the environment.
// Unset or empty variables leave the current value untouched.
func parseEnv(config *Config) {
	envString(&config.DatabaseDSN, "DATABASE_URL")
	envString(&config.SecretKey, "JWT_SECRET")
	envString(&config.S3AccessKey, "S3_ACCESS_KEY")
	envString(&config.S3SecretKey, "S3_SECRET_KEY")
	envString(&config.S3BaseEndpoint, "S3_ENDPOINT")
	envString(&config.S3Bucket, "S3_BUCKET")
	envString(&config.RedisAddr, "REDIS_ADDR")
	envString(&config.LogLevel, "LOG_LEVEL")
	envString(&config.HTTPAddr, "HTTP_ADDR")

	if v, ok := lookupEnv("PORT"); ok && v != "" {
		if _, err := strconv.Atoi(v); err == nil {
			config.HTTPAddr = ":" + v
		}
	}
}

func envString(dst *string, key string) {
	if v, ok := lookupEnv(key); ok && v != "" {
		*dst = v
	}
}
