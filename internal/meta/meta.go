// Package meta holds build-time identity for the CLI.
package meta

// AppName is the CLI binary name, used for config paths and env prefixes.
const AppName = "spin"

// Version is set at build time via ldflags.
// go build -ldflags "-X github.com/spinframework/spin-cli/internal/meta.Version=3.2.0"
var Version = "3.2.0"

// Commit is set at build time via ldflags.
var Commit = "unknown"

// BuildTime is set at build time via ldflags.
var BuildTime = "unknown"
