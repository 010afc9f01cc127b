package plugin

import (
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Descriptor is a presentation-level view of a plugin: one catalogue or
// installed entry. Descriptors are derived per listing call and never
// persisted.
type Descriptor struct {
	Name          string
	Version       string
	Installed     bool
	Compatibility Compatibility
	Manifest      *Manifest
}

// DescriptorFor builds a descriptor for a manifest.
func DescriptorFor(m *Manifest, installed bool, hostVersion string) Descriptor {
	return Descriptor{
		Name:          m.Name,
		Version:       m.Version,
		Installed:     installed,
		Compatibility: Classify(m, hostVersion),
		Manifest:      m,
	}
}

// MergeDescriptors combines catalogue and installed listings. Two entries
// are the same plugin only when their manifests are structurally equal;
// an installed local build that merely shares name and version with a
// registry entry stays a distinct row.
func MergeDescriptors(catalogue, installed []Descriptor) []Descriptor {
	merged := make([]Descriptor, len(catalogue))
	copy(merged, catalogue)
	for _, d := range installed {
		found := false
		for _, existing := range merged {
			if existing.Manifest.Equal(d.Manifest) {
				found = true
				break
			}
		}
		if !found {
			merged = append(merged, d)
		}
	}
	return merged
}

// SortDescriptors orders by name ascending, then version ascending.
func SortDescriptors(ds []Descriptor) {
	sort.SliceStable(ds, func(i, j int) bool {
		if ds[i].Name != ds[j].Name {
			return ds[i].Name < ds[j].Name
		}
		return CompareVersions(ds[i].Version, ds[j].Version) < 0
	})
}

// FilterDescriptors keeps entries whose name contains the filter string.
func FilterDescriptors(ds []Descriptor, filter string) []Descriptor {
	if filter == "" {
		return ds
	}
	var kept []Descriptor
	for _, d := range ds {
		if strings.Contains(d.Name, filter) {
			kept = append(kept, d)
		}
	}
	return kept
}

// CompareVersions orders two version strings by semantic version. When
// either side fails to parse as semver, both are compared lexically
// instead. The lexical fallback is a degraded-mode tie-break kept for
// compatibility with observed ordering; it is shared by the planner and
// the listing sort so both stay consistent.
func CompareVersions(a, b string) int {
	va, errA := semver.StrictNewVersion(a)
	vb, errB := semver.StrictNewVersion(b)
	if errA != nil || errB != nil {
		return strings.Compare(a, b)
	}
	return va.Compare(vb)
}
