package model

import "time"

// Push token platforms
const (
	PlatformIOS     = "ios"
	PlatformAndroid = "android"
	PlatformWeb     = "web"
)

// PushToken is a device registration owned by the device-registration path.
// For web platforms the token is a packed webpush subscription JSON; for
// mobile platforms it is the opaque gateway token.
type PushToken struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Token     string    `json:"token"`
	Platform  string    `json:"platform"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidPlatform reports whether p is a known push platform.
func ValidPlatform(p string) bool {
	return p == PlatformIOS || p == PlatformAndroid || p == PlatformWeb
}
