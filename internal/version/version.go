// Package version holds the build version, overridable at link time.
package version

// Version is set via -ldflags at release time.
var Version = "dev"
