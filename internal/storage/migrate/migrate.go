// Package migrate orders versioned schema migrations and picks the ones a
// database still needs. Drivers execute the statements themselves.
package migrate

import (
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"
)

type Migration struct {
	Version string
	Up      string
}

// Pending returns the migrations not yet listed in applied, sorted by
// ascending semantic version.
func Pending(all []Migration, applied []string) ([]Migration, error) {
	done := make(map[string]bool, len(applied))
	for _, a := range applied {
		v, err := semver.NewVersion(a)
		if err != nil {
			return nil, fmt.Errorf("applied version %q: %w", a, err)
		}
		done[v.String()] = true
	}

	type versioned struct {
		v *semver.Version
		m Migration
	}

	pending := make([]versioned, 0, len(all))
	seen := make(map[string]bool, len(all))
	for _, m := range all {
		v, err := semver.NewVersion(m.Version)
		if err != nil {
			return nil, fmt.Errorf("migration version %q: %w", m.Version, err)
		}
		if seen[v.String()] {
			return nil, fmt.Errorf("duplicate migration version %s", v)
		}
		seen[v.String()] = true
		if !done[v.String()] {
			pending = append(pending, versioned{v: v, m: m})
		}
	}

	sort.Slice(pending, func(i, j int) bool { return pending[i].v.LessThan(pending[j].v) })

	out := make([]Migration, len(pending))
	for i, p := range pending {
		out[i] = p.m
	}
	return out, nil
}
