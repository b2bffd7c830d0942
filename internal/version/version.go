package version

// Version is the robot's version, set at build time with
// -ldflags "-X github.com/rxtech-lab/argo-robot/internal/version.Version=1.2.3".
// "main" marks a development build.
var Version = "v0.1.0"

// GetVersion returns the robot's version.
func GetVersion() string {
	return Version
}
