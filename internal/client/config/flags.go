package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/bookdrive/internal/flagx"
)

// parseFlags overlays cfg with command-line flags. Only the flags handled
// here are passed to the flag set (see flagx.FilterArgs).
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-i", "-t", "-d", "-s"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the server")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.DurationVar(&cfg.RequestTimeout, "t", cfg.RequestTimeout, "request timeout")
	fs.StringVar(&cfg.DownloadDir, "d", cfg.DownloadDir, "download directory")
	fs.StringVar(&cfg.CachePath, "s", cfg.CachePath, "session cache path")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
}
