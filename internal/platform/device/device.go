// Package device turns a User-Agent header into the short device label stored
// on audit records.
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

const unknownDevice = "Unknown Device"

// DisplayName returns "Browser on OS" (e.g. "Chrome on Android"). Mobile
// agents report the platform instead of the OS string when one is present.
// Non-browser clients such as the wallet CLI fall back to the product name.
func DisplayName(userAgent string) string {
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		return unknownDevice
	}

	ua := useragent.New(userAgent)
	browser, _ := ua.Browser()
	os := ua.OS()

	if ua.Mobile() {
		if platform := ua.Platform(); platform != "" {
			return strings.TrimSpace(browser + " on " + platform)
		}
	}

	if os == "" {
		if browser != "" {
			return browser
		}
		return unknownDevice
	}
	if browser == "" {
		browser = "Unknown Browser"
	}
	return strings.TrimSpace(browser + " on " + os)
}
