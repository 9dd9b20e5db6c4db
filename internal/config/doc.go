// SPDX-License-Identifier: MPL-2.0

// Package config loads the global driftfs configuration: release source,
// staging location, and console presentation settings.
package config
