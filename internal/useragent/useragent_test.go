package useragent

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	uaChromeWindows  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	uaEdgeWindows    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0"
	uaFirefoxLinux   = "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"
	uaSafariMac      = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15"
	uaSafariIPhone   = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1"
	uaSafariIPad     = "Mozilla/5.0 (iPad; CPU OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1"
	uaChromeAndroid  = "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36"
	uaAndroidTablet  = "Mozilla/5.0 (Linux; Android 14; SM-X910) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	uaSamsungBrowser = "Mozilla/5.0 (Linux; Android 14; SAMSUNG SM-S918B) AppleWebKit/537.36 (KHTML, like Gecko) SamsungBrowser/23.0 Chrome/115.0.0.0 Mobile Safari/537.36"
	uaOperaDesktop   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 OPR/106.0.0.0"
	uaIE11           = "Mozilla/5.0 (Windows NT 10.0; WOW64; Trident/7.0; rv:11.0) like Gecko"
)

func TestBrowser(t *testing.T) {
	tests := []struct {
		name string
		ua   string
		want string
	}{
		{"chrome on windows", uaChromeWindows, "Chrome"},
		{"edge beats chrome", uaEdgeWindows, "Edge"},
		{"firefox", uaFirefoxLinux, "Firefox"},
		{"safari on mac", uaSafariMac, "Safari"},
		{"chrome on android", uaChromeAndroid, "Chrome"},
		{"samsung browser beats chrome", uaSamsungBrowser, "Samsung Browser"},
		{"opera via OPR token", uaOperaDesktop, "Opera"},
		{"internet explorer via trident", uaIE11, "Internet Explorer"},
		{"empty string is unknown", "", Unknown},
		{"unrecognized agent", "curl/8.4.0", Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Browser(tt.ua))
		})
	}
}

func TestOS(t *testing.T) {
	tests := []struct {
		name string
		ua   string
		want string
	}{
		{"windows", uaChromeWindows, "Windows"},
		{"linux", uaFirefoxLinux, "Linux"},
		{"macos", uaSafariMac, "MacOS"},
		{"iphone is ios", uaSafariIPhone, "iOS"},
		{"ipad is ios", uaSafariIPad, "iOS"},
		{"android beats linux", uaChromeAndroid, "Android"},
		{"empty string is unknown", "", Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, OS(tt.ua))
		})
	}
}

func TestDeviceType(t *testing.T) {
	tests := []struct {
		name string
		ua   string
		want string
	}{
		{"desktop chrome", uaChromeWindows, DeviceDesktop},
		{"iphone is mobile", uaSafariIPhone, DeviceMobile},
		{"android phone is mobile", uaChromeAndroid, DeviceMobile},
		{"ipad is tablet", uaSafariIPad, DeviceTablet},
		{"android without mobile marker is tablet", uaAndroidTablet, DeviceTablet},
		{"empty string defaults to desktop", "", DeviceDesktop},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, DeviceType(tt.ua))
		})
	}
}

func TestResolve(t *testing.T) {
	info := Resolve(uaSafariIPhone)
	require.Equal(t, DeviceMobile, info.Type)
	require.Equal(t, "Safari", info.Browser)
	require.Equal(t, "iOS", info.OS)

	info = Resolve("")
	require.Equal(t, DeviceDesktop, info.Type)
	require.Equal(t, Unknown, info.Browser)
	require.Equal(t, Unknown, info.OS)
}
