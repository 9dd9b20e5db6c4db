// SPDX-License-Identifier: MPL-2.0

package ring

import "strings"

const (
	// None indicates no ring is configured; upgrade checks are skipped.
	None Ring = iota
	// Invalid indicates a ring value was configured but is not a known channel.
	Invalid
	// Fast receives every stable release as soon as it is published.
	Fast
	// Slow receives stable releases only after they have aged in the Fast ring.
	Slow
)

// Ring identifies the release channel a local install is subscribed to.
// Only Fast and Slow are named channels; None and Invalid are terminal
// no-upgrade states with distinct operator messages.
type Ring int

// String returns the canonical channel name.
func (r Ring) String() string {
	switch r {
	case None:
		return "None"
	case Fast:
		return "Fast"
	case Slow:
		return "Slow"
	case Invalid:
		return "Invalid"
	}
	return "Invalid"
}

// Valid reports whether r is a named channel that permits upgrade checks.
func (r Ring) Valid() bool {
	return r == Fast || r == Slow
}

// Parse maps a configured ring value to a Ring. The empty string and "none"
// mean no ring is configured; any other unrecognized value is Invalid rather
// than an error, so callers can surface the dedicated invalid-ring guidance.
func Parse(s string) Ring {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return None
	case "fast":
		return Fast
	case "slow":
		return Slow
	default:
		return Invalid
	}
}

// Names returns the named channels accepted by Parse, for help text.
func Names() []string {
	return []string{"Fast", "Slow"}
}
