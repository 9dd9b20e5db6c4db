// SPDX-License-Identifier: MPL-2.0

// Package mounts tracks the virtual repositories a machine has mounted and
// provides the pre-upgrade checks plus the unmount-all/remount-all operations
// the upgrade flow wraps its install work in.
package mounts
