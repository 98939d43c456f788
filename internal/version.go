package internal

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

var (
	// Version is set on build from the release tag.
	Version    = "0.1.0"
	Prerelease = ""
	Metadata   = "dev"
)

// FullVersion returns the full semver version string, however it also
// increments the patch version if you're working on a pre-release. The
// released version stays at the last tag, and semver comparisons should see
// dev builds as ahead of it.
func FullVersion() string {
	v, err := semver.NewVersion(Version)
	if err != nil {
		panic(fmt.Sprintf("invalid version %v: %v", Version, err))
	}

	if Metadata == "dev" {
		*v = v.IncPatch()
	}

	*v, _ = v.SetPrerelease(Prerelease)
	*v, _ = v.SetMetadata(Metadata)

	return v.String()
}
