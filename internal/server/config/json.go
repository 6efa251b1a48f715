package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/bookdrive/internal/flagx"
	"github.com/dmitrijs2005/bookdrive/internal/timex"
)

// JsonConfig is the on-disk shape of the server config. Durations use
// timex.Duration so both "168h" and integer nanoseconds are accepted. Pointer
// and zero-valued fields leave the current value untouched.
type JsonConfig struct {
	HTTPAddr                string          `json:"http_addr"`
	DatabaseDSN             string          `json:"database_dsn"`
	SecretKey               string          `json:"secret_key"`
	SessionValidityDuration *timex.Duration `json:"session_validity_duration"`
	SessionSweepInterval    *timex.Duration `json:"session_sweep_interval"`
	S3AccessKey             string          `json:"s3_access_key"`
	S3SecretKey             string          `json:"s3_secret_key"`
	S3Bucket                string          `json:"s3_bucket"`
	S3Region                string          `json:"s3_region"`
	S3BaseEndpoint          string          `json:"s3_base_endpoint"`
	S3PublicURL             string          `json:"s3_public_url"`
	UploadDir               string          `json:"upload_dir"`
	MaxUploadSize           int64           `json:"max_upload_size"`
	RedisAddr               string          `json:"redis_addr"`
	AuthRateLimit           int             `json:"auth_rate_limit"`
	AuthRateWindow          *timex.Duration `json:"auth_rate_window"`
	LogLevel                string          `json:"log_level"`
	ReadTimeout             *timex.Duration `json:"read_timeout"`
	WriteTimeout            *timex.Duration `json:"write_timeout"`
	ShutdownTimeout         *timex.Duration `json:"shutdown_timeout"`
}

// parseJson overlays the file named by -c/-config onto config. A missing
// flag is a no-op; an unreadable or malformed file panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigPath()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.SessionValidityDuration, c.SessionValidityDuration)
	setDuration(&config.SessionSweepInterval, c.SessionSweepInterval)
	setString(&config.S3AccessKey, c.S3AccessKey)
	setString(&config.S3SecretKey, c.S3SecretKey)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3PublicURL, c.S3PublicURL)
	setString(&config.UploadDir, c.UploadDir)
	if c.MaxUploadSize > 0 {
		config.MaxUploadSize = c.MaxUploadSize
	}
	setString(&config.RedisAddr, c.RedisAddr)
	if c.AuthRateLimit > 0 {
		config.AuthRateLimit = c.AuthRateLimit
	}
	setDuration(&config.AuthRateWindow, c.AuthRateWindow)
	setString(&config.LogLevel, c.LogLevel)
	setDuration(&config.ReadTimeout, c.ReadTimeout)
	setDuration(&config.WriteTimeout, c.WriteTimeout)
	setDuration(&config.ShutdownTimeout, c.ShutdownTimeout)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
