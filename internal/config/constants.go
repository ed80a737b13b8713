package config

// Application constants
const (
	AppName    = "playlistpulse"
	AppVersion = "1.0.0"

	// EnvPrefix namespaces every environment variable, e.g. PLAYLIST_SERVER_PORT.
	EnvPrefix = "PLAYLIST"

	DefaultSessionName    = "playlistpulse_session"
	DefaultTopN           = 10
	DefaultMaxUploadBytes = 32 << 20

	// Multipart form field carrying uploaded files.
	UploadFormField = "files"
)
