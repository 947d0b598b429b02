package games

import "strings"

var secretPatterns = []string{
	"secret", "token", "password", "passwd", "pass", "pwd",
	"auth", "credential", "private", "api_key", "apikey",
	"rcon", "admin_key", "steam_key",
}

// Keys that contain a secret pattern but are plain settings.
var nonSecretKeys = []string{
	"passive", "server_passive",
}

// IsSensitiveKey reports whether an environment variable key looks like it
// holds a credential. Used to mask values in listings and to render password
// inputs in the create form.
func IsSensitiveKey(key string) bool {
	lower := strings.ToLower(key)

	for _, k := range nonSecretKeys {
		if lower == k {
			return false
		}
	}

	for _, pattern := range secretPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// Mask hides a sensitive value, leaving empty values empty.
func Mask(key, value string) string {
	if value == "" || !IsSensitiveKey(key) {
		return value
	}
	return strings.Repeat("*", 8)
}
