package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/bookdrive/internal/flagx"
	"github.com/dmitrijs2005/bookdrive/internal/timex"
)

// JsonConfig is a DTO used only for unmarshalling. Missing fields keep the
// values already in Config.
type JsonConfig struct {
	ServerURL           string          `json:"server_url"`
	OnlineCheckInterval *timex.Duration `json:"online_check_interval"`
	RequestTimeout      *timex.Duration `json:"request_timeout"`
	DownloadDir         string          `json:"download_dir"`
	CachePath           string          `json:"cache_path"`
}

// parseJson overlays cfg with the file named by -c/-config. It panics on
// read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.ConfigPath()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerURL != "" {
		cfg.ServerURL = jc.ServerURL
	}
	if jc.OnlineCheckInterval != nil {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.DownloadDir != "" {
		cfg.DownloadDir = jc.DownloadDir
	}
	if jc.CachePath != "" {
		cfg.CachePath = jc.CachePath
	}
}
