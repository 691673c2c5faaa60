package version

// Set at build time with -ldflags "-X netguard/internal/version.Version=...".
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// GetVersion returns the version string
func GetVersion() string {
	return Version
}

// GetCommit returns the commit hash
func GetCommit() string {
	return Commit
}

// UserAgent is sent on outbound HTTP calls.
func UserAgent() string {
	return "NetGuard/" + Version
}
