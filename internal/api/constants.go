package api

// API limits and constants.
const (
	// DefaultMaxUploadSize applies when no upload limit is configured (64 MB).
	DefaultMaxUploadSize = 64 << 20

	// multipartOverhead is allowed on top of the media limit for the
	// payload field and part headers.
	multipartOverhead = 1 << 20
)

// Cache-Control header values.
const (
	CacheOneWeek = "public, max-age=604800"
	CacheNoStore = "no-cache"
)
