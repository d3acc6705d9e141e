package config

// DefaultAllowedOrigins are the browser origins that may call the API when
// CORS_ALLOWED_ORIGINS is not set.
var DefaultAllowedOrigins = []string{
	"http://localhost:8080",
	"http://localhost:1234",
	"http://movies.com",
	"http://midu.dev",
}

// CORSConfig controls the cross-origin policy.  Requests without an Origin
// header (same-origin, curl, server to server) are always accepted; any
// other origin must appear in AllowedOrigins exactly.
type CORSConfig struct {
	AllowedOrigins []string
}

// LoadCORSConfig reads CORS_ALLOWED_ORIGINS (comma separated).
func LoadCORSConfig() CORSConfig {
	return CORSConfig{AllowedOrigins: envList("CORS_ALLOWED_ORIGINS", DefaultAllowedOrigins)}
}
