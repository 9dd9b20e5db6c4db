// SPDX-License-Identifier: MPL-2.0

// Package installer fetches release assets into a staging directory, verifies
// them against the published checksums, and runs the bundled Git and driftfs
// installers through a small subprocess capability that tests can substitute.
package installer
