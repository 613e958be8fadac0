// Package useragent classifies user-agent strings into a closed set of
// device, browser, and OS categories. Classification is a pure function
// over the string; no parsing state is kept.
package useragent

import (
	"regexp"
	"strings"

	"github.com/statmill/statmill/internal/models"
)

const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"

	Unknown = "unknown"
)

var mobilePattern = regexp.MustCompile(`Mobile|Android|iP(hone|od)|IEMobile|BlackBerry|Kindle|Silk-Accelerated|(hpw|web)OS|Opera M(obi|ini)`)

// browserRules are evaluated in order; the first matching substring wins.
// Order matters: Chrome's UA contains "Safari", Edge's contains "Chrome".
var browserRules = []struct {
	substr string
	name   string
}{
	{"Firefox", "Firefox"},
	{"SamsungBrowser", "Samsung Browser"},
	{"OPR", "Opera"},
	{"Opera", "Opera"},
	{"Trident", "Internet Explorer"},
	{"Edg", "Edge"},
	{"Chrome", "Chrome"},
	{"Safari", "Safari"},
}

var osRules = []struct {
	substr string
	name   string
}{
	{"Windows", "Windows"},
	{"Android", "Android"},
	{"iPhone", "iOS"},
	{"iPad", "iOS"},
	{"iPod", "iOS"},
	{"Mac", "MacOS"},
	{"Linux", "Linux"},
}

// Resolve classifies a user-agent string into device type, browser, and OS.
// An empty or unrecognized string yields desktop/unknown/unknown.
func Resolve(ua string) models.DeviceInfo {
	return models.DeviceInfo{
		Type:    DeviceType(ua),
		Browser: Browser(ua),
		OS:      OS(ua),
	}
}

// DeviceType returns one of desktop, mobile, or tablet.
func DeviceType(ua string) string {
	if matchTablet(ua) {
		return DeviceTablet
	}
	if mobilePattern.MatchString(ua) {
		return DeviceMobile
	}
	return DeviceDesktop
}

// Browser returns the browser family name, or "unknown".
func Browser(ua string) string {
	for _, rule := range browserRules {
		if strings.Contains(ua, rule.substr) {
			return rule.name
		}
	}
	return Unknown
}

// OS returns the operating system name, or "unknown".
func OS(ua string) string {
	for _, rule := range osRules {
		if strings.Contains(ua, rule.substr) {
			return rule.name
		}
	}
	return Unknown
}

// matchTablet mirrors the tablet heuristic: explicit tablet tokens, or an
// Android UA without the "Mobi" marker (Android tablets omit it). Go's
// regexp has no negative lookahead, so the android case is split out.
func matchTablet(ua string) bool {
	lower := strings.ToLower(ua)
	for _, token := range []string{"tablet", "ipad", "playbook", "silk"} {
		if strings.Contains(lower, token) {
			return true
		}
	}
	if strings.Contains(lower, "android") && !strings.Contains(lower, "mobi") {
		return true
	}
	return false
}
