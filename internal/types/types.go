// Package types defines the typed model for setup ProxyStack manifests
// (v1alpha1).
package types

// ProxyStackManifest is the top-level structure of a v1alpha1 ProxyStack
// manifest, the optional file that overrides the built-in reverse-proxy
// inventory.
type ProxyStackManifest struct {
	APIVersion string         `yaml:"apiVersion"`
	Kind       string         `yaml:"kind"`
	Metadata   ObjectMeta     `yaml:"metadata"`
	Spec       ProxyStackSpec `yaml:"spec"`
}

// ObjectMeta holds identity metadata for a manifest.
type ObjectMeta struct {
	Name        string            `yaml:"name"`
	Labels      map[string]string `yaml:"labels"`
	Annotations map[string]string `yaml:"annotations"`
}

// ProxyStackSpec is the spec section of a ProxyStackManifest.
type ProxyStackSpec struct {
	// Network overrides the shared network name.
	Network string `yaml:"network"`
	// Images overrides individual image references.
	Images ImageOverrides `yaml:"images"`
	// ExtraContainers are appended to the inventory after the built-in
	// containers, attached to the stack network.
	ExtraContainers []ContainerEntry `yaml:"extraContainers"`
}

// ImageOverrides replaces the default image for each built-in container
// when non-empty.
type ImageOverrides struct {
	Proxy string `yaml:"proxy"`
	ACME  string `yaml:"acme"`
	Demo  string `yaml:"demo"`
}

// ContainerEntry declares one additional container in the stack.
type ContainerEntry struct {
	Name    string            `yaml:"name"`
	Image   string            `yaml:"image"`
	Ports   []string          `yaml:"ports"`
	Env     map[string]string `yaml:"env"`
	Labels  map[string]string `yaml:"labels"`
	Restart string            `yaml:"restart"`
	Mounts  []MountEntry      `yaml:"mounts"`
}

// MountEntry is a bind or volume mount on an extra container.
type MountEntry struct {
	Source   string `yaml:"source"`
	Target   string `yaml:"target"`
	ReadOnly bool   `yaml:"readOnly"`
}
