package config

import "time"

// Config holds runtime settings for the BookDrive CLI.
type Config struct {
	ServerURL           string
	OnlineCheckInterval time.Duration
	RequestTimeout      time.Duration
	DownloadDir         string
	CachePath           string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.OnlineCheckInterval = 5 * time.Second
	c.RequestTimeout = 5 * time.Minute
	c.DownloadDir = "downloads"
	c.CachePath = "bookdrive.db"
}

// LoadConfig applies defaults, then JSON (if present), then flags. Later
// sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
