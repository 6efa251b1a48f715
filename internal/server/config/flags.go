package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/bookdrive/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string     HTTP bind address (e.g., ":8080")
//	-d string     PostgreSQL DSN
//	-s string     JWT HMAC secret key
//	-t duration   session validity (e.g., "168h")
//	-i duration   expired session sweep interval, 0 disables
//	-u string     S3 access key
//	-p string     S3 secret key
//	-b string     S3 bucket name
//	-g string     S3 region
//	-e string     S3 base endpoint (e.g., "http://127.0.0.1:9000")
//	-w string     public base URL for stored files
//	-f string     upload staging directory
//	-m int        maximum upload size, MiB
//	-r string     Redis address for shared rate limiting
//	-l string     log level
//
// Only the flags above are picked out of os.Args, so the JSON -c/-config
// flag can coexist.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-d", "-s", "-t", "-i", "-u", "-p", "-b", "-g", "-e", "-w", "-f", "-m", "-r", "-l",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.DurationVar(&config.SessionValidityDuration, "t", config.SessionValidityDuration, "session validity duration")
	fs.DurationVar(&config.SessionSweepInterval, "i", config.SessionSweepInterval, "expired session sweep interval")
	fs.StringVar(&config.S3AccessKey, "u", config.S3AccessKey, "S3 access key")
	fs.StringVar(&config.S3SecretKey, "p", config.S3SecretKey, "S3 secret key")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.S3PublicURL, "w", config.S3PublicURL, "public base URL for stored files")
	fs.StringVar(&config.UploadDir, "f", config.UploadDir, "upload staging directory")
	maxUploadMiB := fs.Int64("m", config.MaxUploadSize>>20, "max upload size (in MiB)")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.MaxUploadSize = *maxUploadMiB << 20
}
