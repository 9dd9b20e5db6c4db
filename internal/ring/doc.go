// SPDX-License-Identifier: MPL-2.0

// Package ring models the release channel ("upgrade ring") a local driftfs
// install is subscribed to, and the on-disk store that persists it.
package ring
