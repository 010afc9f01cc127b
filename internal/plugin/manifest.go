// Package plugin implements discovery, compatibility checking, and
// install/upgrade orchestration for Spin plugins.
package plugin

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"runtime"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ManifestExtension is the file extension for plugin manifests.
const ManifestExtension = ".json"

var checksumPattern = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

// Manifest describes a plugin: its identity, licensing, the Spin versions
// it works with, and the downloadable packages per platform.
//
// Manifests are treated as immutable values once parsed.
type Manifest struct {
	Name              string    `json:"name"`
	Description       string    `json:"description,omitempty"`
	Homepage          string    `json:"homepage,omitempty"`
	Version           string    `json:"version"`
	SpinCompatibility string    `json:"spinCompatibility"`
	License           string    `json:"license"`
	Packages          []Package `json:"packages"`
}

// Package is a single platform-specific downloadable artifact.
type Package struct {
	OS     string `json:"os"`
	Arch   string `json:"arch"`
	URL    string `json:"url"`
	Sha256 string `json:"sha256"`
}

// ParseManifest parses and validates a plugin manifest document.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &ParseError{Err: err}
	}
	m.Name = strings.ToLower(m.Name)
	if err := m.validate(); err != nil {
		return nil, &ParseError{Err: err}
	}
	return &m, nil
}

func (m *Manifest) validate() error {
	if m.Name == "" {
		return fmt.Errorf("manifest has no name")
	}
	if _, err := semver.StrictNewVersion(m.Version); err != nil {
		return fmt.Errorf("manifest %q version %q is not a valid semantic version: %w", m.Name, m.Version, err)
	}
	for _, p := range m.Packages {
		if !checksumPattern.MatchString(p.Sha256) {
			return fmt.Errorf("manifest %q package %s has malformed sha256 checksum", m.Name, p.URL)
		}
	}
	return nil
}

// HomepageURL returns the parsed homepage, or nil if absent or invalid.
func (m *Manifest) HomepageURL() *url.URL {
	if m.Homepage == "" {
		return nil
	}
	u, err := url.Parse(m.Homepage)
	if err != nil {
		return nil
	}
	return u
}

// PackageFor returns the package matching the given platform, or nil.
func (m *Manifest) PackageFor(os, arch string) *Package {
	for i := range m.Packages {
		if m.Packages[i].OS == os && m.Packages[i].Arch == arch {
			return &m.Packages[i]
		}
	}
	return nil
}

// HasCompatiblePackage reports whether the manifest carries a package for
// the running platform.
func (m *Manifest) HasCompatiblePackage() bool {
	return m.PackageFor(runtime.GOOS, runtime.GOARCH) != nil
}

// IsCompatibleSpinVersion reports whether hostVersion satisfies the
// manifest's declared Spin compatibility range. An unparseable range or
// host version is treated as incompatible.
func (m *Manifest) IsCompatibleSpinVersion(hostVersion string) bool {
	c, err := semver.NewConstraint(m.SpinCompatibility)
	if err != nil {
		return false
	}
	v, err := semver.NewVersion(hostVersion)
	if err != nil {
		return false
	}
	return c.Check(v)
}

// Equal reports structural equality of two manifests. An installed local
// build can share name and version with a registry entry yet be a
// different artifact, so all fields participate.
func (m *Manifest) Equal(other *Manifest) bool {
	if m == nil || other == nil {
		return m == other
	}
	if m.Name != other.Name ||
		m.Description != other.Description ||
		m.Homepage != other.Homepage ||
		m.Version != other.Version ||
		m.SpinCompatibility != other.SpinCompatibility ||
		m.License != other.License ||
		len(m.Packages) != len(other.Packages) {
		return false
	}
	for i := range m.Packages {
		if m.Packages[i] != other.Packages[i] {
			return false
		}
	}
	return true
}
