// Package version holds the depusage build information.
package version

// Overridable at build time:
// go build -ldflags "-X depusage/internal/version.Version=1.0.0 -X depusage/internal/version.Commit=abc123"
var (
	Version   = "0.4.0"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Info returns the version with a short commit suffix when known.
func Info() string {
	if Commit != "unknown" && len(Commit) > 7 {
		return Version + " (" + Commit[:7] + ")"
	}
	return Version
}

// Full returns the multi-line version banner printed by --version.
func Full() string {
	return "depusage version " + Version + "\n" +
		"Commit: " + Commit + "\n" +
		"Built: " + BuildDate
}
