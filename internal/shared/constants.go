package shared

import "time"

// Upstream timeouts, one per relay operation
const (
	MetadataTimeout = 30 * time.Second
	GenerateTimeout = 60 * time.Second
	StreamTimeout   = 60 * time.Second
	DownloadTimeout = 120 * time.Second
)

// HTTP Client Configuration
const (
	DialTimeout            = 10 * time.Second
	TLSHandshakeTimeout    = 10 * time.Second
	DefaultShutdownTimeout = 2 * time.Minute
	NotifyTimeout          = 5 * time.Second
)

// API Configuration
const (
	DefaultPort          = 8000
	DefaultSunoBaseURL   = "https://sunoapi.org/api"
	DefaultRedisChannel  = "suno:callbacks"
	MaxPromptLength      = 500
	StreamChunkSize      = 32 * 1024
	APIKeyHeader         = "x-suno-api-key"
	APIKeyQueryParam     = "api_key"
	UnknownCallbackID    = "unknown"
	AudioContentType     = "audio/mpeg"
	DownloadFilePrefix   = "suno-"
	DownloadFileSuffix   = ".mp3"
	ServiceRunningBanner = "Suno Proxy API running"
)
