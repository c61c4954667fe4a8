// Package security provides helpers for safely masking sensitive data in
// logs and console output.
package security

// MaskSecret masks a client secret or similar credential.
// Shows first 4 and last 4 characters with asterisks in between.
// Short secrets (8 characters or less) are fully masked.
func MaskSecret(secret string) string {
	if len(secret) == 0 {
		return ""
	}
	if len(secret) <= 8 {
		return "********"
	}
	return secret[:4] + "********" + secret[len(secret)-4:]
}

// MaskAccessToken masks an access token for safe logging.
// Shows first 8 and last 4 characters with ... in between for long tokens.
// For shorter tokens, shows half on each side.
func MaskAccessToken(token string) string {
	if len(token) == 0 {
		return ""
	}
	if len(token) <= 16 {
		return token[:len(token)/2] + "..." + token[len(token)/2:]
	}
	return token[:8] + "..." + token[len(token)-4:]
}

// MaskGUID masks a GUID showing only the first and last 4 characters.
// Tenant and client IDs are not strictly secret but are kept out of
// shareable logs by default.
func MaskGUID(guid string) string {
	if len(guid) <= 8 {
		return "****"
	}
	return guid[:4] + "****-****-****-****" + guid[len(guid)-4:]
}
