package utils

import (
	"strings"

	ua "github.com/mssola/user_agent"
)

// ShellInfo identifies the browser shell driving the touchscreen. Kiosk
// fleets mix hardware generations, so logs carry which shell and OS build
// each terminal runs.
type ShellInfo struct {
	Browser  string `json:"browser"`
	Version  string `json:"version"`
	OS       string `json:"os"`
	Platform string `json:"platform"` // android, windows, linux, chromeos
	Mobile   bool   `json:"mobile"`
}

// ParseUserAgent extracts shell information from a User-Agent string.
func ParseUserAgent(userAgent string) ShellInfo {
	if userAgent == "" {
		return ShellInfo{Browser: "Unknown", OS: "Unknown", Platform: "unknown"}
	}

	parser := ua.New(userAgent)
	name, version := parser.Browser()
	if name == "" {
		name = "Unknown"
	}

	return ShellInfo{
		Browser:  name,
		Version:  version,
		OS:       osDescription(parser),
		Platform: platformName(parser),
		Mobile:   parser.Mobile(),
	}
}

func osDescription(parser *ua.UserAgent) string {
	info := parser.OSInfo()
	if info.Name == "" {
		return "Unknown"
	}
	if info.Version != "" {
		return info.Name + " " + info.Version
	}
	return info.Name
}

func platformName(parser *ua.UserAgent) string {
	name := strings.ToLower(parser.OSInfo().Name)
	switch {
	case strings.Contains(name, "android"):
		return "android"
	case strings.Contains(name, "windows"):
		return "windows"
	case strings.Contains(name, "chrome os"):
		return "chromeos"
	case strings.Contains(name, "linux"), strings.Contains(name, "ubuntu"):
		return "linux"
	default:
		return "unknown"
	}
}
