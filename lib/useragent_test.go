package lib

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectBrowser(t *testing.T) {
	tests := []struct {
		userAgent string
		want      string
	}{
		{"Mozilla/5.0 (Windows NT 10.0) Chrome/120.0.0.0 Safari/537.36", "chrome"},
		{"Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0", "firefox"},
		{"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) Version/17.1 Safari/605.1.15", "safari"},
		{"Mozilla/5.0 Edge/18.19041", "edge"},
		{"Opera/9.80 (Windows NT 6.0) Presto/2.12.388 Version/12.14", "opera"},
		{"curl/8.4.0", "other"},
		{"", "other"},
	}
	for _, tc := range tests {
		assert.Equalf(t, tc.want, DetectBrowser(tc.userAgent), "user agent: %s", tc.userAgent)
	}
}

func TestDetectDevice(t *testing.T) {
	tests := []struct {
		userAgent string
		want      string
	}{
		{"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) Mobile/15E148", "mobile"},
		{"Mozilla/5.0 (Linux; Android 14; Pixel 8) Mobile Safari/537.36", "mobile"},
		{"Mozilla/5.0 (iPad; CPU OS 16_6 like Mac OS X) Mobile/15E148", "tablet"},
		{"Mozilla/5.0 (Linux; Android 13; SM-X200 Tablet)", "tablet"},
		{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/120.0.0.0", "desktop"},
		{"", "desktop"},
	}
	for _, tc := range tests {
		assert.Equalf(t, tc.want, DetectDevice(tc.userAgent), "user agent: %s", tc.userAgent)
	}
}
