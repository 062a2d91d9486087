package logging

import "strings"

// MaskSecret hides the middle of a credential so logs and config output can
// show that a value is set without leaking it.
func MaskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + strings.Repeat("*", 4) + secret[len(secret)-2:]
}
