// Package manifest provides loading and validation for setup v1alpha1
// ProxyStack manifests.
package manifest

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/LeNeRoTeX/setup/internal/input"
	"github.com/LeNeRoTeX/setup/internal/types"
)

const (
	supportedAPIVersion = "setup.io/v1alpha1"
	supportedKind       = "ProxyStack"
)

// Load reads a manifest file from path, parses it, and validates it.
// It returns the parsed ProxyStackManifest or an error with actionable
// guidance.
func Load(path string) (*types.ProxyStackManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read manifest %q: %w", path, err)
	}
	return LoadBytes(data, path)
}

// LoadBytes parses and validates a manifest from raw YAML bytes.
// The source parameter is used only for error messages.
func LoadBytes(data []byte, source string) (*types.ProxyStackManifest, error) {
	var m types.ProxyStackManifest
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("manifest %q: YAML parse error: %w", source, err)
	}
	if err := Validate(&m, source); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks a parsed ProxyStackManifest for correctness and returns
// a descriptive error if any issue is found.
func Validate(m *types.ProxyStackManifest, source string) error {
	var errs []string

	if m.APIVersion == "" {
		errs = append(errs, "missing required field: apiVersion (expected \"setup.io/v1alpha1\")")
	} else if m.APIVersion != supportedAPIVersion {
		errs = append(errs, fmt.Sprintf("unsupported apiVersion %q: only %q is supported", m.APIVersion, supportedAPIVersion))
	}

	if m.Kind == "" {
		errs = append(errs, "missing required field: kind (expected \"ProxyStack\")")
	} else if m.Kind != supportedKind {
		errs = append(errs, fmt.Sprintf("unsupported kind %q: only %q is supported", m.Kind, supportedKind))
	}

	if m.Metadata.Name == "" {
		errs = append(errs, "missing required field: metadata.name")
	}

	if m.Spec.Network != "" {
		if err := input.ValidateLabel(m.Spec.Network); err != nil {
			errs = append(errs, fmt.Sprintf("spec.network: %v", err))
		}
	}

	seen := map[string]bool{}
	for i, entry := range m.Spec.ExtraContainers {
		where := fmt.Sprintf("spec.extraContainers[%d]", i)
		if entry.Name == "" {
			errs = append(errs, where+": name is required")
		} else if err := input.ValidateLabel(entry.Name); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", where, err))
		} else if seen[entry.Name] {
			errs = append(errs, fmt.Sprintf("%s: duplicate container name %q", where, entry.Name))
		}
		seen[entry.Name] = true

		if strings.TrimSpace(entry.Image) == "" {
			errs = append(errs, where+": image is required")
		}
		for _, p := range entry.Ports {
			if !validPortMapping(p) {
				errs = append(errs, fmt.Sprintf("%s: port %q is not host:container", where, p))
			}
		}
		for j, mount := range entry.Mounts {
			if mount.Source == "" || mount.Target == "" {
				errs = append(errs, fmt.Sprintf("%s.mounts[%d]: source and target are required", where, j))
			} else if !strings.HasPrefix(mount.Target, "/") {
				errs = append(errs, fmt.Sprintf("%s.mounts[%d]: target %q must be absolute", where, j, mount.Target))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("manifest %q is invalid:\n  - %s", source, strings.Join(errs, "\n  - "))
	}
	return nil
}

// validPortMapping accepts "host:container" with numeric ports.
func validPortMapping(s string) bool {
	host, container, found := strings.Cut(s, ":")
	if !found {
		return false
	}
	return numeric(host) && numeric(container)
}

func numeric(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
