// Package docker drives the container engine through its CLI. It is the
// live-state side of reconciliation: existence probes, forceful removal,
// and detached runs, all by resource name.
package docker

import (
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/LeNeRoTeX/setup/internal/reconcile"
)

// CLI runs engine subcommands through the named binary.
type CLI struct {
	Bin string
}

// New returns a CLI bound to the docker binary.
func New() *CLI { return &CLI{Bin: "docker"} }

// NetworkExists reports whether a network with the name is known to the
// engine. Probe failures read as absent; the subsequent create surfaces
// any real engine problem.
func (c *CLI) NetworkExists(name string) (bool, error) {
	return c.silent("network", "inspect", name) == nil, nil
}

// CreateNetwork creates a bridge network with default settings.
func (c *CLI) CreateNetwork(name string) error {
	if out, err := c.output("network", "create", name); err != nil {
		return fmt.Errorf("network create: %s", firstLine(out, err))
	}
	return nil
}

// VolumeExists reports whether a named volume exists.
func (c *CLI) VolumeExists(name string) (bool, error) {
	return c.silent("volume", "inspect", name) == nil, nil
}

// CreateVolume creates a named volume with the default driver.
func (c *CLI) CreateVolume(name string) error {
	if out, err := c.output("volume", "create", name); err != nil {
		return fmt.Errorf("volume create: %s", firstLine(out, err))
	}
	return nil
}

// ContainerExists reports whether a container with the name exists in any
// state, running or not.
func (c *CLI) ContainerExists(name string) (bool, error) {
	return c.silent("container", "inspect", name) == nil, nil
}

// RemoveContainer force-removes a container, stopping it first if needed.
func (c *CLI) RemoveContainer(name string) error {
	if out, err := c.output("rm", "-f", name); err != nil {
		return fmt.Errorf("rm -f %s: %s", name, firstLine(out, err))
	}
	return nil
}

// PullImage refreshes an image, streaming progress to the operator.
func (c *CLI) PullImage(ref string) error {
	cmd := exec.Command(c.bin(), "pull", ref)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// RunContainer starts a detached container from the desired spec.
func (c *CLI) RunContainer(name string, cfg reconcile.ContainerConfig) error {
	args := BuildRunArgs(name, cfg)
	if out, err := c.output(args...); err != nil {
		return fmt.Errorf("run %s: %s", name, firstLine(out, err))
	}
	return nil
}

// BuildRunArgs assembles the `docker run` argument list for a desired
// container spec. Map-backed options are emitted in sorted key order so
// the command line is stable across runs.
func BuildRunArgs(name string, cfg reconcile.ContainerConfig) []string {
	args := []string{"run", "-d", "--name", name}
	if cfg.Restart != "" {
		args = append(args, "--restart", cfg.Restart)
	}
	if cfg.Network != "" {
		args = append(args, "--network", cfg.Network)
	}
	for _, p := range cfg.Ports {
		args = append(args, "-p", p)
	}
	for _, m := range cfg.Mounts {
		spec := m.Source + ":" + m.Target
		if m.ReadOnly {
			spec += ":ro"
		}
		args = append(args, "-v", spec)
	}
	for _, k := range sortedKeys(cfg.Env) {
		args = append(args, "-e", k+"="+cfg.Env[k])
	}
	for _, k := range sortedKeys(cfg.Labels) {
		args = append(args, "--label", k+"="+cfg.Labels[k])
	}
	return append(args, cfg.Image)
}

// InspectEnv returns the environment recorded on an existing container,
// parsed into a map. Used to recover previously supplied parameters
// (e.g. the contact address baked into the companion container).
func (c *CLI) InspectEnv(name string) (map[string]string, error) {
	out, err := c.output("inspect", "--format", "{{range .Config.Env}}{{println .}}{{end}}", name)
	if err != nil {
		return nil, fmt.Errorf("inspect %s: %s", name, firstLine(out, err))
	}
	return ParseEnvLines(string(out)), nil
}

// ParseEnvLines splits KEY=VALUE lines into a map, skipping malformed
// entries.
func ParseEnvLines(s string) map[string]string {
	env := make(map[string]string)
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found || key == "" {
			continue
		}
		env[key] = value
	}
	return env
}

// ContainerState returns the engine-reported state of a container
// ("running", "exited", ...), or "absent" when no such container exists.
func (c *CLI) ContainerState(name string) string {
	out, err := c.output("inspect", "--format", "{{.State.Status}}", name)
	if err != nil {
		return "absent"
	}
	return strings.TrimSpace(string(out))
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (c *CLI) bin() string {
	if c.Bin != "" {
		return c.Bin
	}
	return "docker"
}

// silent runs a subcommand discarding all output; only the exit status
// matters.
func (c *CLI) silent(args ...string) error {
	cmd := exec.Command(c.bin(), args...)
	cmd.Stdout = nil
	cmd.Stderr = nil
	return cmd.Run()
}

// output runs a subcommand capturing combined output for error reporting.
func (c *CLI) output(args ...string) ([]byte, error) {
	return exec.Command(c.bin(), args...).CombinedOutput()
}

// firstLine reduces combined CLI output to its first non-empty line, or
// the raw error when the command produced nothing.
func firstLine(out []byte, err error) string {
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return err.Error()
}

var _ reconcile.Engine = (*CLI)(nil)
