// SPDX-License-Identifier: MPL-2.0

package release

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/mod/semver"

	"driftfs-cli/internal/ring"
)

// slowRingAge is how long a release must have been published before the Slow
// ring is offered it. The Fast ring gets releases immediately.
const slowRingAge = 14 * 24 * time.Hour

// ErrInvalidVersion indicates a version string is not valid semver.
var ErrInvalidVersion = errors.New("invalid semantic version")

type (
	// Resolver decides which release, if any, a local install should upgrade
	// to under its configured ring.
	Resolver struct {
		client         *Client
		currentVersion string
		now            func() time.Time
	}

	// ResolverOption configures a Resolver during construction.
	ResolverOption func(*Resolver)
)

// WithNow overrides the clock used for ring age policy, for tests.
func WithNow(now func() time.Time) ResolverOption {
	return func(r *Resolver) {
		r.now = now
	}
}

// NewResolver creates a Resolver comparing releases against currentVersion.
func NewResolver(client *Client, currentVersion string, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		client:         client,
		currentVersion: currentVersion,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewestVersion returns the newest stable release offered to ring rg that is
// strictly newer than the current version, or nil when no such release
// exists. Only named channels are accepted; the orchestrator filters out
// None and Invalid before calling.
func (r *Resolver) NewestVersion(ctx context.Context, rg ring.Ring) (*Release, error) {
	if !rg.Valid() {
		return nil, fmt.Errorf("ring %q is not a named channel", rg)
	}

	current, err := normalizeVersion(r.currentVersion)
	if err != nil {
		return nil, fmt.Errorf("current version: %w", err)
	}

	releases, err := r.client.ListReleases(ctx)
	if err != nil {
		return nil, err
	}

	// Releases arrive sorted by semver descending; the first one that both
	// passes the ring policy and is newer than the current install wins.
	for i := range releases {
		rel := &releases[i]

		tag, tagErr := normalizeVersion(rel.TagName)
		if tagErr != nil {
			continue
		}
		if semver.Compare(tag, current) <= 0 {
			// Sorted descending, so nothing further can be newer either.
			break
		}
		if !r.offeredToRing(rel, rg) {
			continue
		}
		return rel, nil
	}

	return nil, nil
}

// offeredToRing applies the per-ring release policy: Fast receives every
// stable release, Slow only releases that have aged past slowRingAge. A
// release with an unparseable timestamp is withheld from Slow rather than
// offered early.
func (r *Resolver) offeredToRing(rel *Release, rg ring.Ring) bool {
	if rg == ring.Fast {
		return true
	}

	created, err := time.Parse(time.RFC3339, rel.CreatedAt)
	if err != nil {
		return false
	}
	return r.now().Sub(created) >= slowRingAge
}

// normalizeVersion ensures the version has a "v" prefix as required by the
// semver package and validates the result. Returns ErrInvalidVersion when the
// input cannot be normalized.
func normalizeVersion(v string) (string, error) {
	norm := v
	if !strings.HasPrefix(norm, "v") {
		norm = "v" + norm
	}
	if !semver.IsValid(norm) {
		return "", fmt.Errorf("%w: %q", ErrInvalidVersion, v)
	}
	return norm, nil
}
