// SPDX-License-Identifier: MPL-2.0

// Package upgrade sequences one staged self-upgrade run: resolve the
// configured ring, find a newer release, stage its assets, unmount every
// virtual repository, run the bundled Git and driftfs installers, then
// always remount and clean up regardless of how far the install got.
package upgrade
