// SPDX-License-Identifier: MIT
package build

import (
	"os"
	"strings"
	"testing"
)

var (
	origName    string
	origTime    string
	origCommit  string
	origVersion string
	origUuid    string
	origFlags   ldFlags
)

func TestMain(m *testing.M) {
	origName = buildName
	origTime = buildTime
	origCommit = buildCommit
	origVersion = buildVersion
	origUuid = buildUuid
	origFlags = *buildFlags

	exitCode := m.Run()

	buildName = origName
	buildTime = origTime
	buildCommit = origCommit
	buildVersion = origVersion
	buildUuid = origUuid
	*buildFlags = origFlags

	os.Exit(exitCode)
}

func TestInitialize(t *testing.T) {
	tests := []struct {
		name        string
		buildName   string
		buildTime   string
		buildCommit string
		buildVer    string
		buildUuid   string
		wantErrs    []string
		wantName    string
	}{
		{
			"Missing BuildName",
			"", "2025-04-13", "abcdef123", "v1.0.0", "b7e2",
			[]string{"BuildName is required"},
			"visualizer",
		},
		{
			"Missing Time And Commit",
			"testapp", "", "", "v1.0.0", "b7e2",
			[]string{"BuildTime is required", "BuildCommit is required"},
			"testapp",
		},
		{
			"Missing BuildUuid",
			"testapp", "2025-04-13", "abcdef123", "v1.0.0", "",
			[]string{"BuildUuid is required"},
			"testapp",
		},
		{
			"Success Case",
			"testapp", "2025-04-13", "abcdef123", "v1.0.0", "b7e2",
			nil,
			"testapp",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			*buildFlags = origFlags
			buildName = tt.buildName
			buildTime = tt.buildTime
			buildCommit = tt.buildCommit
			buildVersion = tt.buildVer
			buildUuid = tt.buildUuid

			err := Initialize()

			if len(tt.wantErrs) == 0 {
				if err != nil {
					t.Fatalf("Initialize() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Fatalf("Initialize() expected error, got nil")
				}
				for _, want := range tt.wantErrs {
					if !strings.Contains(err.Error(), want) {
						t.Errorf("Initialize() error = %v, missing %q", err, want)
					}
				}
			}

			if buildFlags.Name != tt.wantName {
				t.Errorf("buildFlags.Name = %v, want %v", buildFlags.Name, tt.wantName)
			}
			if tt.buildVer != "" && buildFlags.Version != tt.buildVer {
				t.Errorf("buildFlags.Version = %v, want %v", buildFlags.Version, tt.buildVer)
			}
			if tt.buildTime == "" && buildFlags.Time != "unknown" {
				t.Errorf("buildFlags.Time = %v, want unknown default", buildFlags.Time)
			}
		})
	}
}

func TestGetBuildFlags(t *testing.T) {
	expected := ldFlags{
		Name:    "testapp",
		Time:    "2025-04-13",
		Commit:  "abcdef123",
		Version: "v1.0.0",
		Uuid:    "b7e2",
	}
	buildFlags = &expected

	flags := GetBuildFlags()
	if *flags != expected {
		t.Errorf("GetBuildFlags() = %+v, want %+v", flags, expected)
	}

	want := "testapp v1.0.0 (commit abcdef123, built 2025-04-13, build b7e2)"
	if got := flags.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
