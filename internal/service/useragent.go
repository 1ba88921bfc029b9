package service

import (
	"regexp"
	"strings"

	"github.com/user/shortlinks/internal/models"
)

var mobilePattern = regexp.MustCompile(`Mobile|Android|iPhone`)

// DetectDevice classifies a User-Agent. iPads are tablets even though
// their UA usually also says Mobile.
func DetectDevice(userAgent string) string {
	switch {
	case strings.Contains(userAgent, "iPad"):
		return models.DeviceTablet
	case mobilePattern.MatchString(userAgent):
		return models.DeviceMobile
	default:
		return models.DeviceDesktop
	}
}

// browserTokens is checked in order: Chrome UAs also carry Safari, and
// Chromium Edge carries Chrome.
var browserTokens = []struct {
	token   string
	browser string
}{
	{"Chrome", models.BrowserChrome},
	{"Firefox", models.BrowserFirefox},
	{"Safari", models.BrowserSafari},
	{"Edge", models.BrowserEdge},
}

// DetectBrowser returns the browser family of a User-Agent.
func DetectBrowser(userAgent string) string {
	for _, t := range browserTokens {
		if strings.Contains(userAgent, t.token) {
			return t.browser
		}
	}
	return models.BrowserOther
}
