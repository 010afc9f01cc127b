package plugin

import "testing"

func TestClassify_NoPlatformPackage(t *testing.T) {
	m := mustParse(t, testManifestJSON("demo", "1.0.0", ">=1.0"))
	m.Packages[0].OS = "plan9"

	// No matching package is Incompatible regardless of host version.
	for _, host := range []string{"0.1.0", "1.0.0", "99.0.0", "garbage"} {
		c := Classify(m, host)
		if c.Kind != IncompatiblePlatform {
			t.Errorf("host %s: expected IncompatiblePlatform, got %v", host, c.Kind)
		}
	}
}

func TestClassify_SpinVersionOutOfRange(t *testing.T) {
	m := mustParse(t, testManifestJSON("demo", "1.0.0", ">=2.0"))

	c := Classify(m, "1.5.0")
	if c.Kind != IncompatibleSpin {
		t.Fatalf("expected IncompatibleSpin, got %v", c.Kind)
	}
	if c.RequiredSpin != ">=2.0" {
		t.Errorf("expected required range '>=2.0', got %q", c.RequiredSpin)
	}
	if c.IsCompatible() {
		t.Error("IncompatibleSpin must not report compatible")
	}
	if c.Reason() == "" {
		t.Error("expected a human-readable reason")
	}
}

func TestClassify_Compatible(t *testing.T) {
	m := mustParse(t, testManifestJSON("demo", "1.0.0", ">=1.0"))

	c := Classify(m, "2.0.0")
	if !c.IsCompatible() {
		t.Errorf("expected Compatible, got %v (%s)", c.Kind, c.Reason())
	}
}
