// Package netif pins predictable names onto physical network interfaces
// by writing systemd .link files. The files are opaque text artifacts to
// the rest of the system; a reboot (or udev retrigger) applies them.
package netif

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/LeNeRoTeX/setup/internal/log"
)

// LinkDir is where systemd-udevd picks up .link files.
const LinkDir = "/etc/systemd/network"

// Interface is one physical NIC observed on the host.
type Interface struct {
	Name string // current kernel name
	MAC  string
}

// PhysicalInterfaces enumerates physical NICs from /sys/class/net,
// skipping loopback and virtual devices (bridges, veths, ...), sorted by
// current name so renumbering is stable across runs.
func PhysicalInterfaces() ([]Interface, error) {
	entries, err := os.ReadDir("/sys/class/net")
	if err != nil {
		return nil, fmt.Errorf("list interfaces: %w", err)
	}

	var ifaces []Interface
	for _, entry := range entries {
		name := entry.Name()
		if name == "lo" {
			continue
		}
		// Virtual devices have no backing device directory.
		if _, err := os.Stat(filepath.Join("/sys/class/net", name, "device")); err != nil {
			continue
		}
		mac, err := os.ReadFile(filepath.Join("/sys/class/net", name, "address"))
		if err != nil {
			continue
		}
		addr := strings.TrimSpace(string(mac))
		if addr == "" || addr == "00:00:00:00:00:00" {
			continue
		}
		ifaces = append(ifaces, Interface{Name: name, MAC: addr})
	}
	sort.Slice(ifaces, func(i, j int) bool { return ifaces[i].Name < ifaces[j].Name })
	return ifaces, nil
}

// RenderLink returns the .link file content pinning newName onto the
// interface with the given MAC address.
func RenderLink(mac, newName string) string {
	return fmt.Sprintf(`# Managed by setup. Pins a predictable interface name.
[Match]
MACAddress=%s

[Link]
Name=%s
`, mac, newName)
}

// LinkFile returns the path of the managed .link file for newName.
func LinkFile(dir, newName string) string {
	return filepath.Join(dir, "10-"+newName+".link")
}

// EnsureLinks writes one .link file per interface into dir, naming them
// prefix0, prefix1, ... in order. Existing files are left untouched so
// re-runs never rewrite an operator-adjusted artifact. It returns the new
// names in interface order.
func EnsureLinks(ifaces []Interface, prefix, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}

	names := make([]string, 0, len(ifaces))
	for i, iface := range ifaces {
		newName := fmt.Sprintf("%s%d", prefix, i)
		names = append(names, newName)
		path := LinkFile(dir, newName)

		if _, err := os.Stat(path); err == nil {
			log.Skipf("Link file for %s already exists (%s)", newName, path)
			continue
		}
		if err := os.WriteFile(path, []byte(RenderLink(iface.MAC, newName)), 0o644); err != nil {
			return names, fmt.Errorf("write %s: %w", path, err)
		}
		log.Okf("%s will be renamed to %s (%s)", iface.Name, newName, path)
	}
	return names, nil
}
