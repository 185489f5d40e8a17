package lib

import "strings"

var browserTokens = []string{"chrome", "firefox", "safari", "edge", "opera"}

var (
	tabletTokens = []string{"ipad", "tablet", "kindle", "playbook"}
	mobileTokens = []string{"mobile", "iphone", "ipod", "android", "blackberry", "windows phone", "opera mini"}
)

// DetectBrowser classifies a user-agent string by first-match substring
// search, in priority order.
func DetectBrowser(userAgent string) string {
	ua := strings.ToLower(userAgent)
	for _, token := range browserTokens {
		if strings.Contains(ua, token) {
			return token
		}
	}
	return "other"
}

// DetectDevice classifies a user-agent string into mobile, tablet or
// desktop. Tablet and mobile patterns are checked before falling back to
// desktop.
func DetectDevice(userAgent string) string {
	ua := strings.ToLower(userAgent)
	if containsAny(ua, tabletTokens) {
		return "tablet"
	}
	if containsAny(ua, mobileTokens) {
		return "mobile"
	}
	return "desktop"
}

func containsAny(s string, tokens []string) bool {
	for _, token := range tokens {
		if strings.Contains(s, token) {
			return true
		}
	}
	return false
}
