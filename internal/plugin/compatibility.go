package plugin

// CompatibilityKind is the three-way compatibility verdict for a manifest
// against the running Spin version and platform.
type CompatibilityKind int

const (
	// Compatible: a package exists for this platform and the host version
	// satisfies the manifest's declared range.
	Compatible CompatibilityKind = iota
	// IncompatibleSpin: a package exists for this platform but the host
	// version fails the range check.
	IncompatibleSpin
	// IncompatiblePlatform: no package matches the running platform,
	// regardless of host version.
	IncompatiblePlatform
)

// Compatibility carries the verdict plus, for IncompatibleSpin, the Spin
// version range the plugin requires.
type Compatibility struct {
	Kind         CompatibilityKind
	RequiredSpin string
}

// Classify computes the compatibility verdict for a manifest.
func Classify(m *Manifest, hostVersion string) Compatibility {
	if !m.HasCompatiblePackage() {
		return Compatibility{Kind: IncompatiblePlatform}
	}
	if !m.IsCompatibleSpinVersion(hostVersion) {
		return Compatibility{Kind: IncompatibleSpin, RequiredSpin: m.SpinCompatibility}
	}
	return Compatibility{Kind: Compatible}
}

// IsCompatible reports whether the verdict is Compatible.
func (c Compatibility) IsCompatible() bool { return c.Kind == Compatible }

// Reason returns a human-readable explanation for an incompatible verdict.
func (c Compatibility) Reason() string {
	switch c.Kind {
	case IncompatibleSpin:
		return "it requires Spin " + c.RequiredSpin
	case IncompatiblePlatform:
		return "it does not provide a package for the current OS and architecture"
	default:
		return ""
	}
}
