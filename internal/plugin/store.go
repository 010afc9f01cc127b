package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Store is the on-disk layout for plugins:
//
//	<root>/<name>            installed plugin binary
//	<root>/manifests/        installed plugin manifests (source of truth)
//	<root>/registry/<name>/  mirrored catalogue manifests, one per version
//
// The installed directories are only written by the installer; the
// registry mirror is only written under the update lock and read freely
// by listing operations.
type Store struct {
	root string
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{root: dir}
}

// DefaultRoot returns the default plugins directory, ~/.spin/plugins.
func DefaultRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".spin", "plugins")
	}
	return filepath.Join(home, ".spin", "plugins")
}

// Root returns the store's root directory.
func (s *Store) Root() string { return s.root }

// InstalledManifestsDir returns the directory of installed manifests.
func (s *Store) InstalledManifestsDir() string {
	return filepath.Join(s.root, "manifests")
}

// InstalledManifestPath returns the manifest path for an installed plugin.
func (s *Store) InstalledManifestPath(name string) string {
	return filepath.Join(s.InstalledManifestsDir(), name+ManifestExtension)
}

// InstalledBinaryPath returns the binary path for an installed plugin.
func (s *Store) InstalledBinaryPath(name string) string {
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(s.root, name)
}

// RegistryDir returns the root of the mirrored catalogue.
func (s *Store) RegistryDir() string {
	return filepath.Join(s.root, "registry")
}

// RegistryManifestPath returns the mirror path for one catalogue entry.
func (s *Store) RegistryManifestPath(name, version string) string {
	return filepath.Join(s.RegistryDir(), name, fmt.Sprintf("%s@%s%s", name, version, ManifestExtension))
}

// ReadInstalledManifest loads the manifest of an installed plugin.
func (s *Store) ReadInstalledManifest(name string) (*Manifest, error) {
	data, err := os.ReadFile(s.InstalledManifestPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Name: name, Detail: "not installed"}
		}
		return nil, fmt.Errorf("reading installed manifest for %q: %w", name, err)
	}
	return ParseManifest(data)
}

// InstalledManifests loads all installed plugin manifests. A missing
// manifests directory means nothing is installed.
func (s *Store) InstalledManifests() ([]*Manifest, error) {
	return readManifestDir(s.InstalledManifestsDir())
}

// InstalledNames lists the names of installed plugins, derived from the
// manifest filenames.
func (s *Store) InstalledNames() ([]string, error) {
	entries, err := os.ReadDir(s.InstalledManifestsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ManifestExtension) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ManifestExtension))
	}
	return names, nil
}

// CatalogueManifests loads every manifest in the registry mirror.
// Unparseable entries are skipped; one bad catalogue file must not take
// down the whole listing.
func (s *Store) CatalogueManifests() ([]*Manifest, error) {
	entries, err := os.ReadDir(s.RegistryDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var manifests []*Manifest
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		ms, err := readManifestDir(filepath.Join(s.RegistryDir(), e.Name()))
		if err != nil {
			return nil, err
		}
		manifests = append(manifests, ms...)
	}
	return manifests, nil
}

// CatalogueManifestsFor loads all mirrored versions of one plugin.
func (s *Store) CatalogueManifestsFor(name string) ([]*Manifest, error) {
	return readManifestDir(filepath.Join(s.RegistryDir(), name))
}

// IsInstalled reports whether this exact manifest is installed: same
// name and structurally equal content.
func (s *Store) IsInstalled(m *Manifest) bool {
	installed, err := s.ReadInstalledManifest(m.Name)
	if err != nil {
		return false
	}
	return installed.Equal(m)
}

func readManifestDir(dir string) ([]*Manifest, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var manifests []*Manifest
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ManifestExtension) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		m, err := ParseManifest(data)
		if err != nil {
			continue
		}
		manifests = append(manifests, m)
	}
	return manifests, nil
}
