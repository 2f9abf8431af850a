// Package doctor checks host prerequisites for the setup workflows.
package doctor

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/LeNeRoTeX/setup/internal/daemon"
	"github.com/LeNeRoTeX/setup/internal/pkgs"
)

// CheckResult holds the outcome of a single doctor check.
type CheckResult struct {
	Name     string
	OK       bool
	Message  string
	HowToFix string
}

// RunChecks performs all prerequisite checks and returns the results.
// It never returns an error itself; pass/fail is encoded in each
// CheckResult.
func RunChecks() []CheckResult {
	return []CheckResult{
		checkCommand("docker CLI", "docker", "--version"),
		checkEngineConn(),
		checkSysbox(),
		checkCommand("systemd", "systemctl", "--version"),
		checkConfigWrite(),
	}
}

// checkCommand verifies that an executable is on PATH and runs without error.
func checkCommand(name, bin string, args ...string) CheckResult {
	path, err := exec.LookPath(bin)
	if err != nil {
		return CheckResult{
			Name:     name,
			OK:       false,
			Message:  fmt.Sprintf("%s not found in PATH", bin),
			HowToFix: installHint(bin),
		}
	}
	cmd := exec.Command(path, args...) //nolint:gosec // path is resolved via LookPath
	if out, err := cmd.CombinedOutput(); err != nil {
		return CheckResult{
			Name:     name,
			OK:       false,
			Message:  fmt.Sprintf("%s found but failed: %s", bin, string(out)),
			HowToFix: installHint(bin),
		}
	}
	return CheckResult{Name: name, OK: true, Message: fmt.Sprintf("%s found", path)}
}

// checkEngineConn verifies that the docker CLI can reach the daemon.
func checkEngineConn() CheckResult {
	const name = "engine connectivity"
	path, err := exec.LookPath("docker")
	if err != nil {
		return CheckResult{
			Name:     name,
			OK:       false,
			Message:  "docker not found; cannot check engine connectivity",
			HowToFix: "run 'setup proxy' to install the engine, or install docker manually",
		}
	}
	cmd := exec.Command(path, "info", "--format", "{{.ServerVersion}}") //nolint:gosec
	if out, err := cmd.CombinedOutput(); err != nil {
		return CheckResult{
			Name:    name,
			OK:      false,
			Message: fmt.Sprintf("cannot reach the docker daemon: %s", string(out)),
			HowToFix: "Ensure dockerd is running and your user may use it:\n" +
				"  sudo systemctl start docker\n" +
				"  sudo usermod -aG docker \"$USER\"   # then log out and back in",
		}
	}
	return CheckResult{Name: name, OK: true, Message: "connected to the docker daemon"}
}

// checkSysbox verifies that the sysbox runtime binary is installed.
func checkSysbox() CheckResult {
	const name = "sysbox runtime"
	if _, err := os.Stat(pkgs.SysboxRuntimeBin); err != nil {
		return CheckResult{
			Name:     name,
			OK:       false,
			Message:  fmt.Sprintf("%s not found", pkgs.SysboxRuntimeBin),
			HowToFix: "run 'setup runtime' to install and register sysbox",
		}
	}
	return CheckResult{Name: name, OK: true, Message: pkgs.SysboxRuntimeBin + " present"}
}

// checkConfigWrite verifies that the daemon config directory is writable.
func checkConfigWrite() CheckResult {
	const name = "daemon config access"
	dir := filepath.Dir(daemon.ConfigPath)
	probe, err := os.CreateTemp(dir, ".setup-probe-*")
	if err != nil {
		return CheckResult{
			Name:     name,
			OK:       false,
			Message:  fmt.Sprintf("cannot write to %s: %v", dir, err),
			HowToFix: "run setup with sufficient privileges (sudo)",
		}
	}
	probe.Close()
	os.Remove(probe.Name())
	return CheckResult{Name: name, OK: true, Message: dir + " is writable"}
}

// installHint returns a human-friendly install hint for a known binary.
func installHint(bin string) string {
	hints := map[string]string{
		"docker":    "curl -fsSL https://get.docker.com | sh",
		"systemctl": "this tool targets systemd-based hosts",
	}
	if hint, ok := hints[bin]; ok {
		return hint
	}
	return fmt.Sprintf("Install %q and ensure it is on your PATH.", bin)
}
