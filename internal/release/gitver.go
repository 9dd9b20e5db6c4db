// SPDX-License-Identifier: MPL-2.0

package release

import (
	"errors"
	"fmt"
	"regexp"
	"runtime"
)

// ErrGitInstallerNotFound indicates a release carries no bundled Git
// installer for the current platform, so the dependency version cannot be
// resolved.
var ErrGitInstallerNotFound = errors.New("bundled git installer not found in release")

// gitAssetPattern matches the bundled Git installer asset name and captures
// its version, e.g. "git_2.40.0_linux_amd64.run".
var gitAssetPattern = regexp.MustCompile(`^git_(\d+\.\d+\.\d+(?:\.\d+)?)_([a-z0-9]+)_([a-z0-9]+)\.run$`)

// GitVersion resolves the version of the Git installer bundled with a
// release by scanning its assets for the platform's installer. Each driftfs
// release ships exactly one Git installer per platform; its version is
// encoded in the asset name.
func GitVersion(rel *Release) (string, error) {
	if rel == nil {
		return "", errors.New("release must not be nil")
	}

	for i := range rel.Assets {
		m := gitAssetPattern.FindStringSubmatch(rel.Assets[i].Name)
		if m == nil {
			continue
		}
		if m[2] != runtime.GOOS || m[3] != runtime.GOARCH {
			continue
		}
		return m[1], nil
	}

	return "", fmt.Errorf("%w: release %s has no git_<version>_%s_%s.run asset",
		ErrGitInstallerNotFound, rel.TagName, runtime.GOOS, runtime.GOARCH)
}

// GitInstallerAssetName returns the expected Git installer asset name for the
// given version on the current platform.
func GitInstallerAssetName(version string) string {
	return fmt.Sprintf("git_%s_%s_%s.run", version, runtime.GOOS, runtime.GOARCH)
}

// ProductInstallerAssetName returns the expected driftfs installer asset name
// for the given release tag on the current platform. Release automation
// strips the "v" prefix from versions in filenames.
func ProductInstallerAssetName(tag string) string {
	version := tag
	if len(version) > 0 && version[0] == 'v' {
		version = version[1:]
	}
	return fmt.Sprintf("driftfs_%s_%s_%s.run", version, runtime.GOOS, runtime.GOARCH)
}
