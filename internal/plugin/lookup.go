package plugin

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ManifestLocation identifies where a manifest should be looked up:
// a local file, a remote URL, or the mirrored plugins registry. Exactly
// one variant is active; use the constructors.
type ManifestLocation struct {
	localPath string
	remoteURL *url.URL
	name      string
	version   string
	kind      locationKind
}

type locationKind int

const (
	locationLocal locationKind = iota + 1
	locationRemote
	locationRegistry
)

// LocalLocation points at a manifest file on disk.
func LocalLocation(path string) ManifestLocation {
	return ManifestLocation{kind: locationLocal, localPath: path}
}

// RemoteLocation points at a manifest served over HTTP(S).
func RemoteLocation(rawURL string) (ManifestLocation, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ManifestLocation{}, fmt.Errorf("invalid manifest URL %q: %w", rawURL, err)
	}
	return ManifestLocation{kind: locationRemote, remoteURL: u}, nil
}

// RegistryLocation points at a named plugin in the mirrored registry,
// optionally pinned to a version.
func RegistryLocation(name, version string) ManifestLocation {
	return ManifestLocation{kind: locationRegistry, name: strings.ToLower(name), version: version}
}

// NewManifestLocation builds a location from the three mutually exclusive
// CLI inputs, rejecting ambiguous or empty combinations.
func NewManifestLocation(name, localPath, remoteURL, version string) (ManifestLocation, error) {
	set := 0
	for _, v := range []string{name, localPath, remoteURL} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return ManifestLocation{}, errors.New(
			"must provide exactly one of: plugin name, url to manifest, local path to manifest")
	}
	switch {
	case localPath != "":
		if version != "" {
			return ManifestLocation{}, errors.New("--version can only be used with a plugin name")
		}
		return LocalLocation(localPath), nil
	case remoteURL != "":
		if version != "" {
			return ManifestLocation{}, errors.New("--version can only be used with a plugin name")
		}
		return RemoteLocation(remoteURL)
	default:
		return RegistryLocation(name, version), nil
	}
}

// IsRegistry reports whether the location targets the mirrored registry.
func (l ManifestLocation) IsRegistry() bool { return l.kind == locationRegistry }

// String renders the location for messages.
func (l ManifestLocation) String() string {
	switch l.kind {
	case locationLocal:
		return l.localPath
	case locationRemote:
		return l.remoteURL.String()
	case locationRegistry:
		if l.version != "" {
			return fmt.Sprintf("%s@%s (registry)", l.name, l.version)
		}
		return l.name + " (registry)"
	default:
		return "(unset)"
	}
}

// GetManifest resolves a manifest from the given location. For registry
// lookups without a pinned version, the highest compatible version wins;
// overrideCompat widens the candidate set to all versions.
func (m *Manager) GetManifest(ctx context.Context, loc ManifestLocation, overrideCompat bool, hostVersion string) (*Manifest, error) {
	switch loc.kind {
	case locationLocal:
		data, err := os.ReadFile(loc.localPath)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, &NotFoundError{Name: loc.localPath, Detail: "no manifest at path"}
			}
			return nil, fmt.Errorf("reading manifest %s: %w", loc.localPath, err)
		}
		return ParseManifest(data)
	case locationRemote:
		data, err := m.fetch(ctx, loc.remoteURL.String())
		if err != nil {
			return nil, err
		}
		return ParseManifest(data)
	case locationRegistry:
		return m.resolveFromRegistry(loc.name, loc.version, overrideCompat, hostVersion)
	default:
		return nil, errors.New("manifest location is unset")
	}
}

func (m *Manager) resolveFromRegistry(name, version string, overrideCompat bool, hostVersion string) (*Manifest, error) {
	candidates, err := m.store.CatalogueManifestsFor(name)
	if err != nil {
		return nil, fmt.Errorf("reading registry entries for %q: %w", name, err)
	}
	if len(candidates) == 0 {
		return nil, &NotFoundError{Name: name, Detail: "no entry in the plugins registry; try running `spin plugins update`"}
	}

	if version != "" {
		return pickPinnedVersion(candidates, name, version, overrideCompat, hostVersion)
	}

	eligible := candidates
	if !overrideCompat {
		eligible = nil
		for _, c := range candidates {
			if Classify(c, hostVersion).IsCompatible() {
				eligible = append(eligible, c)
			}
		}
	}
	if len(eligible) == 0 {
		return nil, &NotFoundError{Name: name, Detail: "no version compatible with this Spin release and platform"}
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		return CompareVersions(eligible[i].Version, eligible[j].Version) < 0
	})
	return eligible[len(eligible)-1], nil
}

func pickPinnedVersion(candidates []*Manifest, name, version string, overrideCompat bool, hostVersion string) (*Manifest, error) {
	var matching []*Manifest
	for _, c := range candidates {
		if c.Version == version {
			matching = append(matching, c)
		}
	}
	if len(matching) == 0 {
		return nil, &NotFoundError{Name: name, Detail: fmt.Sprintf("version %s is not in the plugins registry", version)}
	}
	if overrideCompat {
		return matching[0], nil
	}
	for _, c := range matching {
		if Classify(c, hostVersion).IsCompatible() {
			return c, nil
		}
	}
	return nil, &IncompatibleError{
		Name:   name,
		Reason: fmt.Sprintf("version %s requires Spin %s or newer", version, minimumRequiredVersion(matching[0].SpinCompatibility)),
	}
}

// minimumRequiredVersion extracts the lowest version literal mentioned in
// a compatibility range, for error messages. Falls back to the raw range
// when nothing parses.
func minimumRequiredVersion(constraint string) string {
	var min *semver.Version
	for _, tok := range strings.FieldsFunc(constraint, func(r rune) bool {
		return r == ',' || r == ' ' || r == '|'
	}) {
		tok = strings.TrimLeft(tok, "><=^~!")
		v, err := semver.NewVersion(tok)
		if err != nil {
			continue
		}
		if min == nil || v.LessThan(min) {
			min = v
		}
	}
	if min == nil {
		return constraint
	}
	return min.String()
}
