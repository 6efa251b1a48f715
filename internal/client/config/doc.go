// Package config loads runtime configuration for the BookDrive CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the BookDrive server
//	-i int      online status check interval (seconds)
//	-t duration request timeout, e.g. "2m"
//	-d string   directory downloads are saved to
//	-s string   path of the local session cache
//
// # JSON schema
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "online_check_interval": "5s",
//	  "request_timeout": "5m",
//	  "download_dir": "downloads",
//	  "cache_path": "bookdrive.db"
//	}
package config
