package build

// Set at link time, e.g.
// -ldflags "-X github.com/rohmanhakim/prompt-loader/internal/build.Version=1.2.0"
var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

// FullVersion returns the version string with commit hash appended.
// Format: "Version+Commit" (e.g., "1.0.0+abc123")
func FullVersion() string {
	return Version + "+" + Commit
}

// Details returns FullVersion followed by the build time.
// Format: "1.0.0+abc123 (built 2024-05-01T10:00:00Z)"
func Details() string {
	return FullVersion() + " (built " + BuildTime + ")"
}
