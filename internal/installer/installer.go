// SPDX-License-Identifier: MPL-2.0

package installer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"driftfs-cli/internal/release"
)

type (
	// Installer stages release assets and runs the bundled installers. One
	// Installer instance covers one upgrade run; Cleanup discards whatever
	// the run staged.
	Installer struct {
		client      AssetDownloader
		stagingDir  string
		newLauncher func() Launcher
	}

	// AssetDownloader is the slice of the release client the Installer
	// needs, substitutable in tests.
	AssetDownloader interface {
		DownloadAsset(ctx context.Context, assetURL string) (io.ReadCloser, error)
	}

	// Option configures an Installer during construction.
	Option func(*Installer)
)

// WithLauncherFactory overrides how subprocess launchers are created, so
// tests can substitute canned exit codes.
func WithLauncherFactory(f func() Launcher) Option {
	return func(i *Installer) {
		i.newLauncher = f
	}
}

// New creates an Installer staging assets under stagingDir.
func New(client AssetDownloader, stagingDir string, opts ...Option) *Installer {
	i := &Installer{
		client:      client,
		stagingDir:  stagingDir,
		newLauncher: func() Launcher { return NewExecLauncher() },
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// StagingDir returns the directory assets are downloaded into.
func (i *Installer) StagingDir() string {
	return i.stagingDir
}

// DownloadAssets fetches the driftfs installer, the bundled Git installer,
// and checksums.txt from the release into the staging directory, verifying
// each installer against its published hash before reporting success.
func (i *Installer) DownloadAssets(ctx context.Context, rel *release.Release) error {
	if rel == nil {
		return fmt.Errorf("release must not be nil")
	}

	if err := os.MkdirAll(i.stagingDir, 0o755); err != nil {
		return fmt.Errorf("creating staging directory %s: %w", i.stagingDir, err)
	}

	entries, err := i.fetchChecksums(ctx, rel)
	if err != nil {
		return err
	}

	gitVersion, err := release.GitVersion(rel)
	if err != nil {
		return err
	}

	names := []string{
		release.ProductInstallerAssetName(rel.TagName),
		release.GitInstallerAssetName(gitVersion),
	}
	for _, name := range names {
		if err := i.stageAsset(ctx, rel, name, entries); err != nil {
			return err
		}
	}

	return nil
}

// InstallGit runs the staged Git installer for the given version.
func (i *Installer) InstallGit(version string) error {
	return i.runInstaller(filepath.Join(i.stagingDir, release.GitInstallerAssetName(version)))
}

// InstallProduct runs the staged driftfs installer for the given version.
func (i *Installer) InstallProduct(version string) error {
	return i.runInstaller(filepath.Join(i.stagingDir, release.ProductInstallerAssetName(version)))
}

// Cleanup removes the staging directory and everything staged in it.
// Callers treat a failure here as non-fatal.
func (i *Installer) Cleanup() error {
	if err := os.RemoveAll(i.stagingDir); err != nil {
		return fmt.Errorf("removing staging directory %s: %w", i.stagingDir, err)
	}
	return nil
}

// fetchChecksums downloads and parses the release's checksums.txt.
func (i *Installer) fetchChecksums(ctx context.Context, rel *release.Release) ([]release.ChecksumEntry, error) {
	asset, err := findAsset(rel, "checksums.txt")
	if err != nil {
		return nil, err
	}

	body, err := i.client.DownloadAsset(ctx, asset.BrowserDownloadURL)
	if err != nil {
		return nil, fmt.Errorf("downloading checksums: %w", err)
	}
	defer func() { _ = body.Close() }() // read-only HTTP response body

	entries, err := release.ParseChecksums(body)
	if err != nil {
		return nil, fmt.Errorf("parsing checksums: %w", err)
	}
	return entries, nil
}

// stageAsset downloads one named asset into the staging directory and
// verifies it against its published checksum.
func (i *Installer) stageAsset(ctx context.Context, rel *release.Release, name string, entries []release.ChecksumEntry) error {
	asset, err := findAsset(rel, name)
	if err != nil {
		return err
	}

	expected, err := release.FindChecksum(entries, name)
	if err != nil {
		return fmt.Errorf("finding checksum for %s: %w", name, err)
	}

	dest := filepath.Join(i.stagingDir, name)
	if err := i.downloadTo(ctx, asset.BrowserDownloadURL, dest); err != nil {
		return fmt.Errorf("downloading %s: %w", name, err)
	}

	if err := release.VerifyFile(dest, expected); err != nil {
		// A corrupt download must not survive to a later install attempt.
		_ = os.Remove(dest)
		return err
	}

	return nil
}

// downloadTo streams the asset at url into the file at dest.
func (i *Installer) downloadTo(ctx context.Context, url, dest string) (err error) {
	body, err := i.client.DownloadAsset(ctx, url)
	if err != nil {
		return err
	}
	defer func() { _ = body.Close() }() // read-only HTTP response body

	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o755)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if _, err := io.Copy(f, body); err != nil {
		_ = os.Remove(dest)
		return fmt.Errorf("writing %s: %w", dest, err)
	}
	return nil
}

// runInstaller launches the installer at path through the subprocess
// capability and maps launch failures and non-zero exits to errors.
func (i *Installer) runInstaller(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("installer not staged: %w", err)
	}

	l := i.newLauncher()
	if !l.Start(path, "--silent") {
		return fmt.Errorf("failed to launch installer %s", filepath.Base(path))
	}
	if !l.Exited() {
		return fmt.Errorf("installer %s did not run to completion", filepath.Base(path))
	}
	if code := l.ExitCode(); code != 0 {
		return fmt.Errorf("installer %s exited with code %d", filepath.Base(path), code)
	}
	return nil
}

// findAsset scans the release assets for one with the given name.
func findAsset(rel *release.Release, name string) (*release.Asset, error) {
	for idx := range rel.Assets {
		if rel.Assets[idx].Name == name {
			return &rel.Assets[idx], nil
		}
	}
	return nil, fmt.Errorf("asset %q not found in release %s", name, rel.TagName)
}
