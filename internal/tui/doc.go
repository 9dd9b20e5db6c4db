// SPDX-License-Identifier: MPL-2.0

// Package tui renders progress for long-running upgrade steps: an animated
// spinner when the output sink is an interactive terminal, a plain one-line
// label otherwise. It is purely presentational and never alters the result
// of the operation it wraps.
package tui
