// SPDX-License-Identifier: MPL-2.0

// Package release resolves driftfs releases from the GitHub Releases API:
// which release is newest under a given upgrade ring, which Git installer is
// bundled with it, and how to fetch and verify its assets.
package release
