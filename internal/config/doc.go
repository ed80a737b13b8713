// Package config loads playlistpulse configuration.
//
// # Configuration Sources
//
// Values are resolved in this order of precedence:
//
//	1. Environment variables (highest priority)
//	2. A YAML file (PLAYLIST_CONFIG_FILE, config.yaml or configs/config.yaml)
//	3. Default values from struct tags (lowest priority)
//
// # Environment Variables
//
// All environment variables use the PLAYLIST_ prefix followed by the
// section and field name:
//
//	PLAYLIST_SERVER_PORT=8080
//	PLAYLIST_SECURITY_PASSWORD=s3cret
//	PLAYLIST_SECURITY_PASSWORD_HASH=$2a$10$...
//	PLAYLIST_DASHBOARD_DEFAULT_TOP_N=25
//	PLAYLIST_LOGGING_LEVEL=debug
//
// # Example File
//
//	server:
//	  port: 9000
//	security:
//	  password_hash: "$2a$10$..."
//	dashboard:
//	  default_top_n: 25
//	  allowed_top_n: [10, 25]
//	  date_layouts: ["2006-01-02", "02/01/2006"]
//
// Load validates the merged result; Default returns an unvalidated baseline
// suitable for tests.
package config
