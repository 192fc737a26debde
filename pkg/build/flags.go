// SPDX-License-Identifier: MIT
//
// Package build exposes metadata embedded at compile time through linker
// flags, for example:
//
//	go build -ldflags "-X visualizer/pkg/build.buildName=visualizer -X visualizer/pkg/build.buildVersion=0.1.0"
//
// Development builds run without them and report "unknown".
package build

import (
	"errors"
	"fmt"
)

// Description is the one-line summary shown by the CLI.
const Description = "Real-time loopback audio spectrum visualizer"

type ldFlags struct {
	Name    string
	Time    string
	Commit  string
	Version string
	Uuid    string
}

// String formats the build information for the version command.
func (f ldFlags) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s, build %s)", f.Name, f.Version, f.Commit, f.Time, f.Uuid)
}

var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildUuid    string
	buildFlags   = &ldFlags{
		Name:    "visualizer",
		Time:    "unknown",
		Commit:  "unknown",
		Version: "unknown",
		Uuid:    "unknown",
	}
)

// Initialize copies every provided ldflags value into the build information
// and reports the ones that are missing. Missing values keep their defaults,
// so a non-nil error is informational.
func Initialize() error {
	var errs []error
	set := func(dst *string, val, flag string) {
		if val == "" {
			errs = append(errs, fmt.Errorf("%s is required", flag))
			return
		}
		*dst = val
	}

	set(&buildFlags.Name, buildName, "BuildName")
	set(&buildFlags.Time, buildTime, "BuildTime")
	set(&buildFlags.Commit, buildCommit, "BuildCommit")
	set(&buildFlags.Version, buildVersion, "BuildVersion")
	set(&buildFlags.Uuid, buildUuid, "BuildUuid")

	return errors.Join(errs...)
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *ldFlags {
	return buildFlags
}
