// Package version provides version information for vibe-reachout.
// The Version variable is set at build time via ldflags.
package version

// Version is the current version of vibe-reachout.
// Set at build time via: -ldflags "-X github.com/vibereach/vibe-reachout/internal/version.Version=v1.0.0"
// Defaults to "dev" for development builds.
var Version = "dev"
