package utils

import (
	"runtime/debug"
	"strings"

	"golang.org/x/mod/semver"
)

const (
	unknownVersion      = "unknown"
	develBuildVersion   = "(devel)"
	develVersionPrefix  = "devel+"
	dirtyVersionSuffix  = "-dirty"
	semverPrefix        = "v"
	vcsRevisionSetting  = "vcs.revision"
	vcsModifiedSetting  = "vcs.modified"
	shortRevisionLength = 12
)

// GetApplicationVersion reports the module version of a released build, or
// the VCS revision stamped into a development build.
func GetApplicationVersion() string {
	buildInfo, available := debug.ReadBuildInfo()
	if !available {
		return unknownVersion
	}
	return versionFromBuildInfo(buildInfo)
}

func versionFromBuildInfo(buildInfo *debug.BuildInfo) string {
	if buildInfo == nil {
		return unknownVersion
	}
	if version := buildInfo.Main.Version; version != "" && version != develBuildVersion {
		return NormalizeVersion(version)
	}
	var revision string
	var modified bool
	for _, setting := range buildInfo.Settings {
		switch setting.Key {
		case vcsRevisionSetting:
			revision = setting.Value
		case vcsModifiedSetting:
			modified = setting.Value == "true"
		}
	}
	if revision == "" {
		return unknownVersion
	}
	if len(revision) > shortRevisionLength {
		revision = revision[:shortRevisionLength]
	}
	if modified {
		revision += dirtyVersionSuffix
	}
	return develVersionPrefix + revision
}

// NormalizeVersion returns the canonical semantic version for tags such as
// "1.2" or "v1.2.3+meta". Strings that are not semantic versions are returned
// unchanged.
func NormalizeVersion(version string) string {
	trimmed := strings.TrimSpace(version)
	candidate := trimmed
	if !strings.HasPrefix(candidate, semverPrefix) {
		candidate = semverPrefix + candidate
	}
	if !semver.IsValid(candidate) {
		return trimmed
	}
	canonical := semver.Canonical(candidate)
	if build := semver.Build(candidate); build != "" {
		return canonical + build
	}
	return canonical
}
