package plugin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(ManagerConfig{Root: t.TempDir()})
}

// addCatalogueEntry writes a manifest document into the registry mirror.
func addCatalogueEntry(t *testing.T, s *Store, doc string) *Manifest {
	t.Helper()
	m := mustParse(t, doc)
	path := s.RegistryManifestPath(m.Name, m.Version)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestNewManifestLocation_ExactlyOneSource(t *testing.T) {
	cases := []struct {
		name, file, url string
		wantErr         bool
	}{
		{"demo", "", "", false},
		{"", "./demo.json", "", false},
		{"", "", "https://example.com/demo.json", false},
		{"", "", "", true},
		{"demo", "./demo.json", "", true},
		{"demo", "", "https://example.com/demo.json", true},
		{"demo", "./demo.json", "https://example.com/demo.json", true},
	}
	for _, c := range cases {
		_, err := NewManifestLocation(c.name, c.file, c.url, "")
		if (err != nil) != c.wantErr {
			t.Errorf("NewManifestLocation(%q, %q, %q): err = %v, wantErr %v",
				c.name, c.file, c.url, err, c.wantErr)
		}
	}
}

func TestNewManifestLocation_VersionRequiresName(t *testing.T) {
	if _, err := NewManifestLocation("", "./demo.json", "", "1.0.0"); err == nil {
		t.Error("version with a local path should be rejected")
	}
	if _, err := NewManifestLocation("", "", "https://example.com/m.json", "1.0.0"); err == nil {
		t.Error("version with a URL should be rejected")
	}
	if _, err := NewManifestLocation("demo", "", "", "1.0.0"); err != nil {
		t.Errorf("version with a name should be accepted: %v", err)
	}
}

func TestGetManifest_Local(t *testing.T) {
	mgr := newTestManager(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "demo.json")
	if err := os.WriteFile(path, []byte(testManifestJSON("demo", "1.2.0", ">=1.0")), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := mgr.GetManifest(context.Background(), LocalLocation(path), false, "2.0.0")
	if err != nil {
		t.Fatalf("GetManifest: %v", err)
	}
	if m.Name != "demo" || m.Version != "1.2.0" {
		t.Errorf("unexpected manifest %s@%s", m.Name, m.Version)
	}
}

func TestGetManifest_LocalMissing(t *testing.T) {
	mgr := newTestManager(t)
	_, err := mgr.GetManifest(context.Background(), LocalLocation("/nonexistent/demo.json"), false, "2.0.0")
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

func TestGetManifest_LocalMalformed(t *testing.T) {
	mgr := newTestManager(t)
	path := filepath.Join(t.TempDir(), "demo.json")
	if err := os.WriteFile(path, []byte("{{nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := mgr.GetManifest(context.Background(), LocalLocation(path), false, "2.0.0")
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Errorf("expected ParseError, got %v", err)
	}
}

func TestGetManifest_Remote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/demo.json":
			fmt.Fprint(w, testManifestJSON("demo", "1.2.0", ">=1.0"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	mgr := newTestManager(t)

	loc, err := RemoteLocation(srv.URL + "/demo.json")
	if err != nil {
		t.Fatal(err)
	}
	m, err := mgr.GetManifest(context.Background(), loc, false, "2.0.0")
	if err != nil {
		t.Fatalf("GetManifest: %v", err)
	}
	if m.Version != "1.2.0" {
		t.Errorf("expected version 1.2.0, got %s", m.Version)
	}

	loc, err = RemoteLocation(srv.URL + "/missing.json")
	if err != nil {
		t.Fatal(err)
	}
	_, err = mgr.GetManifest(context.Background(), loc, false, "2.0.0")
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("expected NotFoundError for 404, got %v", err)
	}
}

func TestGetManifest_RegistryLatestCompatible(t *testing.T) {
	mgr := newTestManager(t)
	addCatalogueEntry(t, mgr.Store(), testManifestJSON("demo", "1.0.0", ">=1.0"))
	addCatalogueEntry(t, mgr.Store(), testManifestJSON("demo", "1.2.0", ">=1.0"))
	// Newer but requires a Spin release we don't have.
	addCatalogueEntry(t, mgr.Store(), testManifestJSON("demo", "2.0.0", ">=99.0"))

	m, err := mgr.GetManifest(context.Background(), RegistryLocation("demo", ""), false, "2.0.0")
	if err != nil {
		t.Fatalf("GetManifest: %v", err)
	}
	if m.Version != "1.2.0" {
		t.Errorf("expected highest compatible version 1.2.0, got %s", m.Version)
	}

	// Overriding the compatibility check widens the candidate set.
	m, err = mgr.GetManifest(context.Background(), RegistryLocation("demo", ""), true, "2.0.0")
	if err != nil {
		t.Fatalf("GetManifest with override: %v", err)
	}
	if m.Version != "2.0.0" {
		t.Errorf("expected highest version 2.0.0 with override, got %s", m.Version)
	}
}

func TestGetManifest_RegistryUnknownName(t *testing.T) {
	mgr := newTestManager(t)
	_, err := mgr.GetManifest(context.Background(), RegistryLocation("ghost", ""), false, "2.0.0")
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

func TestGetManifest_RegistryPinnedVersion(t *testing.T) {
	mgr := newTestManager(t)
	addCatalogueEntry(t, mgr.Store(), testManifestJSON("demo", "1.0.0", ">=1.0"))
	addCatalogueEntry(t, mgr.Store(), testManifestJSON("demo", "1.2.0", ">=1.0"))

	m, err := mgr.GetManifest(context.Background(), RegistryLocation("demo", "1.0.0"), false, "2.0.0")
	if err != nil {
		t.Fatalf("GetManifest: %v", err)
	}
	if m.Version != "1.0.0" {
		t.Errorf("expected pinned version 1.0.0, got %s", m.Version)
	}

	_, err = mgr.GetManifest(context.Background(), RegistryLocation("demo", "9.9.9"), false, "2.0.0")
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("expected NotFoundError for absent version, got %v", err)
	}
}

func TestGetManifest_RegistryPinnedIncompatible(t *testing.T) {
	mgr := newTestManager(t)
	addCatalogueEntry(t, mgr.Store(), testManifestJSON("demo", "2.0.0", ">=99.0"))

	_, err := mgr.GetManifest(context.Background(), RegistryLocation("demo", "2.0.0"), false, "2.0.0")
	var ie *IncompatibleError
	if !errors.As(err, &ie) {
		t.Fatalf("expected IncompatibleError, got %v", err)
	}
	if !strings.Contains(ie.Reason, "99.0.0") {
		t.Errorf("expected the minimum required Spin version in the reason, got %q", ie.Reason)
	}

	// Override lets the pinned version through.
	m, err := mgr.GetManifest(context.Background(), RegistryLocation("demo", "2.0.0"), true, "2.0.0")
	if err != nil {
		t.Fatalf("GetManifest with override: %v", err)
	}
	if m.Version != "2.0.0" {
		t.Errorf("expected version 2.0.0, got %s", m.Version)
	}
}

func TestGetManifest_RegistryPinnedPrefersCompatible(t *testing.T) {
	mgr := newTestManager(t)
	incompatible := strings.Replace(testManifestJSON("demo", "1.0.0", ">=99.0"), runtime.GOOS, "plan9", 1)
	s := mgr.Store()

	// Two catalogue entries sharing a version: only one is compatible.
	m := mustParse(t, incompatible)
	path := filepath.Join(s.RegistryDir(), m.Name, "demo@1.0.0-alt.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(incompatible), 0o644); err != nil {
		t.Fatal(err)
	}
	addCatalogueEntry(t, s, testManifestJSON("demo", "1.0.0", ">=1.0"))

	got, err := mgr.GetManifest(context.Background(), RegistryLocation("demo", "1.0.0"), false, "2.0.0")
	if err != nil {
		t.Fatalf("GetManifest: %v", err)
	}
	if got.SpinCompatibility != ">=1.0" {
		t.Errorf("expected the compatible entry to win, got compatibility %q", got.SpinCompatibility)
	}
}

func TestMinimumRequiredVersion(t *testing.T) {
	cases := map[string]string{
		">=2.0":        "2.0.0",
		">=1.1 <3.0":   "1.1.0",
		"^1.2.3":       "1.2.3",
		">=2.0 || 1.x": "2.0.0",
		"nonsense":     "nonsense",
	}
	for in, want := range cases {
		if got := minimumRequiredVersion(in); got != want {
			t.Errorf("minimumRequiredVersion(%q) = %q, want %q", in, got, want)
		}
	}
}
