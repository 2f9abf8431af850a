// Package proxystack declares the reverse-proxy deployment as a resource
// inventory: one shared network, the proxy's data volumes, and the
// proxy / certificate-companion / demo-backend containers, in an order
// that satisfies their dependencies.
package proxystack

import (
	"github.com/LeNeRoTeX/setup/internal/reconcile"
	"github.com/LeNeRoTeX/setup/internal/types"
)

// Well-known resource names. They are the reconciliation keys, so they
// stay stable across runs and releases.
const (
	DefaultNetwork = "proxy-net"

	VolumeCerts = "proxy-certs"
	VolumeVhost = "proxy-vhost"
	VolumeHTML  = "proxy-html"
	VolumeACME  = "proxy-acme"

	ProxyContainer     = "proxy"
	CompanionContainer = "proxy-acme"
	DemoContainer      = "whoami"
)

const (
	defaultProxyImage     = "nginxproxy/nginx-proxy"
	defaultCompanionImage = "nginxproxy/acme-companion"
	defaultDemoImage      = "traefik/whoami"

	dockerSocket = "/var/run/docker.sock"
	proxyLabel   = "com.github.nginx-proxy.nginx"
)

// Params are the resolved workflow inputs the inventory is parameterized
// with.
type Params struct {
	FQDN  string
	Email string
}

// Inventory builds the declared resource sequence for one deployment.
// A nil manifest yields the built-in stack; otherwise the manifest's
// overrides and extra containers are applied. Networks come first, then
// volumes, then containers, so every container's dependencies precede it.
func Inventory(p Params, m *types.ProxyStackManifest) []reconcile.ResourceSpec {
	network := DefaultNetwork
	proxyImage := defaultProxyImage
	companionImage := defaultCompanionImage
	demoImage := defaultDemoImage

	if m != nil {
		if m.Spec.Network != "" {
			network = m.Spec.Network
		}
		if m.Spec.Images.Proxy != "" {
			proxyImage = m.Spec.Images.Proxy
		}
		if m.Spec.Images.ACME != "" {
			companionImage = m.Spec.Images.ACME
		}
		if m.Spec.Images.Demo != "" {
			demoImage = m.Spec.Images.Demo
		}
	}

	specs := []reconcile.ResourceSpec{
		{Kind: reconcile.KindNetwork, Name: network},
		{Kind: reconcile.KindVolume, Name: VolumeCerts},
		{Kind: reconcile.KindVolume, Name: VolumeVhost},
		{Kind: reconcile.KindVolume, Name: VolumeHTML},
		{Kind: reconcile.KindVolume, Name: VolumeACME},
		{Kind: reconcile.KindContainer, Name: ProxyContainer, Container: &reconcile.ContainerConfig{
			Image:   proxyImage,
			Network: network,
			Ports:   []string{"80:80", "443:443"},
			Mounts: []reconcile.Mount{
				{Source: dockerSocket, Target: "/tmp/docker.sock", ReadOnly: true},
				{Source: VolumeCerts, Target: "/etc/nginx/certs", ReadOnly: true},
				{Source: VolumeVhost, Target: "/etc/nginx/vhost.d"},
				{Source: VolumeHTML, Target: "/usr/share/nginx/html"},
			},
			Labels:  map[string]string{proxyLabel: ""},
			Restart: "always",
		}},
		{Kind: reconcile.KindContainer, Name: CompanionContainer, Container: &reconcile.ContainerConfig{
			Image:   companionImage,
			Network: network,
			Mounts: []reconcile.Mount{
				{Source: dockerSocket, Target: "/var/run/docker.sock", ReadOnly: true},
				{Source: VolumeCerts, Target: "/etc/nginx/certs"},
				{Source: VolumeVhost, Target: "/etc/nginx/vhost.d"},
				{Source: VolumeHTML, Target: "/usr/share/nginx/html"},
				{Source: VolumeACME, Target: "/etc/acme.sh"},
			},
			Env: map[string]string{
				"DEFAULT_EMAIL":         p.Email,
				"NGINX_PROXY_CONTAINER": ProxyContainer,
			},
			Restart: "always",
		}},
		{Kind: reconcile.KindContainer, Name: DemoContainer, Container: &reconcile.ContainerConfig{
			Image:   demoImage,
			Network: network,
			Env: map[string]string{
				"VIRTUAL_HOST":      p.FQDN,
				"LETSENCRYPT_HOST":  p.FQDN,
				"LETSENCRYPT_EMAIL": p.Email,
			},
			Restart: "unless-stopped",
		}},
	}

	if m != nil {
		for _, entry := range m.Spec.ExtraContainers {
			specs = append(specs, reconcile.ResourceSpec{
				Kind: reconcile.KindContainer,
				Name: entry.Name,
				Container: &reconcile.ContainerConfig{
					Image:   entry.Image,
					Network: network,
					Ports:   entry.Ports,
					Mounts:  convertMounts(entry.Mounts),
					Env:     entry.Env,
					Labels:  entry.Labels,
					Restart: entry.Restart,
				},
			})
		}
	}
	return specs
}

// ContainerNames lists the container identities in an inventory, in
// declaration order. Used by the status command.
func ContainerNames(specs []reconcile.ResourceSpec) []string {
	var names []string
	for _, s := range specs {
		if s.Kind == reconcile.KindContainer {
			names = append(names, s.Name)
		}
	}
	return names
}

func convertMounts(entries []types.MountEntry) []reconcile.Mount {
	mounts := make([]reconcile.Mount, len(entries))
	for i, e := range entries {
		mounts[i] = reconcile.Mount{Source: e.Source, Target: e.Target, ReadOnly: e.ReadOnly}
	}
	return mounts
}
