package plugin

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/nlepage/go-tarfs"
)

// InstallAction is the planner's verdict for a candidate manifest.
type InstallAction int

const (
	// ActionInstall: the candidate should be installed.
	ActionInstall InstallAction = iota
	// ActionNone: the same version is already installed; re-running is a
	// no-op, not an error.
	ActionNone
)

// InstallPlan carries the verdict plus the plugin identity for messages.
type InstallPlan struct {
	Action  InstallAction
	Name    string
	Version string
}

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	// Root is the plugins directory. Default: ~/.spin/plugins.
	Root string

	// Client is used for manifest, package, and registry fetches.
	// Default: http.DefaultClient.
	Client *http.Client

	// Logger for plugin operations. If nil, uses slog.Default().
	Logger *slog.Logger
}

// Manager orchestrates plugin resolution, planning, and installation
// against a Store.
type Manager struct {
	store  *Store
	client *http.Client
	logger *slog.Logger
}

// NewManager creates a Manager.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Root == "" {
		cfg.Root = DefaultRoot()
	}
	if cfg.Client == nil {
		cfg.Client = http.DefaultClient
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Manager{
		store:  NewStore(cfg.Root),
		client: cfg.Client,
		logger: cfg.Logger,
	}
}

// Store returns the manager's on-disk store.
func (m *Manager) Store() *Store { return m.store }

// GetPackage selects the candidate's package for the running platform.
func GetPackage(manifest *Manifest) (*Package, error) {
	pkg := manifest.PackageFor(runtime.GOOS, runtime.GOARCH)
	if pkg == nil {
		return nil, &IncompatibleError{
			Name:   manifest.Name,
			Reason: fmt.Sprintf("no package for %s/%s", runtime.GOOS, runtime.GOARCH),
		}
	}
	return pkg, nil
}

// CheckManifest decides what installing the candidate would do. The
// decision is pure apart from the single installed-manifest read, so the
// same logic serves single install, upgrade-all, and the multiselect
// upgrade without duplicating comparison rules.
func (m *Manager) CheckManifest(candidate *Manifest, hostVersion string, overrideCompat, allowDowngrade bool) (InstallPlan, error) {
	if !overrideCompat {
		if c := Classify(candidate, hostVersion); !c.IsCompatible() {
			return InstallPlan{}, &IncompatibleError{Name: candidate.Name, Reason: c.Reason()}
		}
	}

	installed, err := m.store.ReadInstalledManifest(candidate.Name)
	if err != nil {
		var nf *NotFoundError
		if errors.As(err, &nf) {
			// Nothing installed under this name: plain install.
			return InstallPlan{Action: ActionInstall, Name: candidate.Name, Version: candidate.Version}, nil
		}
		// A corrupt or unreadable installed manifest must not silently
		// bypass the downgrade gate.
		return InstallPlan{}, fmt.Errorf("checking installed plugin %q: %w", candidate.Name, err)
	}

	switch cmp := CompareVersions(candidate.Version, installed.Version); {
	case cmp > 0:
		return InstallPlan{Action: ActionInstall, Name: candidate.Name, Version: candidate.Version}, nil
	case cmp == 0:
		return InstallPlan{Action: ActionNone, Name: candidate.Name, Version: candidate.Version}, nil
	default:
		if allowDowngrade {
			return InstallPlan{Action: ActionInstall, Name: candidate.Name, Version: candidate.Version}, nil
		}
		return InstallPlan{}, &DowngradeError{
			Name:      candidate.Name,
			Installed: installed.Version,
			Candidate: candidate.Version,
		}
	}
}

// Install downloads the package, verifies its checksum, and writes the
// binary and manifest into the installed store, atomically replacing any
// prior version of the same plugin. Returns the installed name.
func (m *Manager) Install(ctx context.Context, manifest *Manifest, pkg *Package, source ManifestLocation) (string, error) {
	data, err := m.fetch(ctx, pkg.URL)
	if err != nil {
		return "", fmt.Errorf("downloading package for %q: %w", manifest.Name, err)
	}

	sum := sha256.Sum256(data)
	actual := hex.EncodeToString(sum[:])
	if !strings.EqualFold(actual, pkg.Sha256) {
		return "", &ChecksumError{Name: manifest.Name, Expected: strings.ToLower(pkg.Sha256), Actual: actual}
	}

	binary, err := extractBinary(data, manifest.Name)
	if err != nil {
		return "", fmt.Errorf("extracting plugin %q: %w", manifest.Name, err)
	}

	if err := os.MkdirAll(m.store.InstalledManifestsDir(), 0o755); err != nil {
		return "", fmt.Errorf("creating plugins directory: %w", err)
	}

	// Stage then rename so a failed write never clobbers the previously
	// installed version.
	if err := writeFileAtomic(m.store.InstalledBinaryPath(manifest.Name), binary, 0o755); err != nil {
		return "", fmt.Errorf("writing plugin binary: %w", err)
	}
	manifestJSON, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding manifest: %w", err)
	}
	if err := writeFileAtomic(m.store.InstalledManifestPath(manifest.Name), manifestJSON, 0o644); err != nil {
		return "", fmt.Errorf("writing plugin manifest: %w", err)
	}

	m.logger.Debug("installed plugin", "name", manifest.Name, "version", manifest.Version, "source", source.String())
	return manifest.Name, nil
}

// Uninstall removes a plugin's binary and manifest. Reports false when
// the plugin was not installed.
func (m *Manager) Uninstall(name string) (bool, error) {
	manifestPath := m.store.InstalledManifestPath(name)
	if _, err := os.Stat(manifestPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := os.Remove(manifestPath); err != nil {
		return false, fmt.Errorf("removing manifest for %q: %w", name, err)
	}
	if err := os.Remove(m.store.InstalledBinaryPath(name)); err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("removing binary for %q: %w", name, err)
	}
	return true, nil
}

// UpdateRegistry refreshes the mirrored catalogue from a tar.gz snapshot
// of the plugins registry. At most one refresh runs at a time within this
// process; a concurrent attempt fails with ErrLockDenied.
func (m *Manager) UpdateRegistry(ctx context.Context, snapshotURL string) error {
	guard := updateLock.LockUpdates()
	defer guard.Release()
	if guard.Denied() {
		return ErrLockDenied
	}

	data, err := m.fetch(ctx, snapshotURL)
	if err != nil {
		return fmt.Errorf("fetching plugins registry: %w", err)
	}

	manifests, err := manifestsFromSnapshot(data)
	if err != nil {
		return fmt.Errorf("reading plugins registry snapshot: %w", err)
	}

	if err := os.MkdirAll(m.store.Root(), 0o755); err != nil {
		return err
	}
	staging, err := os.MkdirTemp(m.store.Root(), ".registry-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(staging)

	for _, mf := range manifests {
		dir := filepath.Join(staging, mf.Name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		out, err := json.MarshalIndent(mf, "", "  ")
		if err != nil {
			return err
		}
		file := filepath.Join(dir, fmt.Sprintf("%s@%s%s", mf.Name, mf.Version, ManifestExtension))
		if err := os.WriteFile(file, out, 0o644); err != nil {
			return err
		}
	}

	if err := replaceDir(staging, m.store.RegistryDir()); err != nil {
		return fmt.Errorf("replacing registry mirror: %w", err)
	}
	m.logger.Debug("updated plugins registry", "manifests", len(manifests))
	return nil
}

// manifestsFromSnapshot extracts every parseable manifest from a tar.gz
// registry snapshot, regardless of its directory layout inside the
// archive.
func manifestsFromSnapshot(data []byte) ([]*Manifest, error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer gz.Close()

	tfs, err := tarfs.New(gz)
	if err != nil {
		return nil, err
	}

	var manifests []*Manifest
	err = fs.WalkDir(tfs, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(p, ManifestExtension) {
			return err
		}
		raw, err := fs.ReadFile(tfs, p)
		if err != nil {
			return err
		}
		mf, err := ParseManifest(raw)
		if err != nil {
			// Snapshots may carry unrelated JSON; skip anything that is
			// not a plugin manifest.
			return nil
		}
		manifests = append(manifests, mf)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return manifests, nil
}

// extractBinary returns the plugin binary from a downloaded artifact.
// Packages are tar.gz archives holding the binary; a non-gzip artifact is
// taken to be the bare binary itself.
func extractBinary(data []byte, name string) ([]byte, error) {
	if len(data) < 2 || data[0] != 0x1f || data[1] != 0x8b {
		return data, nil
	}

	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer gz.Close()

	tfs, err := tarfs.New(gz)
	if err != nil {
		return nil, err
	}

	wanted := map[string]bool{name: true, name + ".exe": true}
	var fallback string
	var found string
	err = fs.WalkDir(tfs, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if wanted[path.Base(p)] {
			found = p
			return fs.SkipAll
		}
		if fallback == "" {
			fallback = p
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == "" {
		found = fallback
	}
	if found == "" {
		return nil, fmt.Errorf("archive contains no files")
	}
	return fs.ReadFile(tfs, found)
}

func writeFileAtomic(dest string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, ".staged-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}

// replaceDir swaps dir with the staged replacement. The old directory is
// moved aside first so a failed rename leaves a usable mirror.
func replaceDir(staging, dir string) error {
	old := dir + ".old"
	_ = os.RemoveAll(old)
	if _, err := os.Stat(dir); err == nil {
		if err := os.Rename(dir, old); err != nil {
			return err
		}
	}
	if err := os.Rename(staging, dir); err != nil {
		// Put the previous mirror back; the refresh failed but reads
		// must keep working.
		_ = os.Rename(old, dir)
		return err
	}
	return os.RemoveAll(old)
}
