// Package pkgs installs host prerequisites: distribution packages via
// apt, the docker engine via its vendor install script, and the sysbox
// runtime from its released .deb.
package pkgs

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"time"

	"github.com/LeNeRoTeX/setup/internal/log"
)

const (
	dockerInstallURL = "https://get.docker.com"

	sysboxVersion = "0.6.4"
	sysboxDebURL  = "https://downloads.nestybox.com/sysbox/releases/v" + sysboxVersion +
		"/sysbox-ce_" + sysboxVersion + "-0.linux_amd64.deb"

	// SysboxRuntimeBin is where the sysbox package installs its OCI
	// runtime binary; it is what gets registered in the daemon config.
	SysboxRuntimeBin = "/usr/bin/sysbox-runc"

	downloadTimeout = 10 * time.Minute
)

// EnsureInstalled installs the named apt packages. apt itself is
// idempotent, so already-installed packages are a no-op.
func EnsureInstalled(names ...string) error {
	if len(names) == 0 {
		return nil
	}
	log.Infof("Installing packages: %v", names)
	args := append([]string{"install", "-y"}, names...)
	cmd := exec.Command("apt-get", args...)
	cmd.Env = append(os.Environ(), "DEBIAN_FRONTEND=noninteractive")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("apt-get install %v: %w", names, err)
	}
	return nil
}

// EnsureDockerEngine installs the docker engine through the vendor
// install script when the docker CLI is not already on PATH.
func EnsureDockerEngine() error {
	if _, err := exec.LookPath("docker"); err == nil {
		log.Skip("docker already installed")
		return nil
	}

	log.Infof("Installing docker engine from %s", dockerInstallURL)
	script, err := download(dockerInstallURL, "get-docker-*.sh")
	if err != nil {
		return fmt.Errorf("fetch docker install script: %w", err)
	}
	defer os.Remove(script)

	cmd := exec.Command("sh", script)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("docker install script: %w", err)
	}
	log.Ok("docker engine installed")
	return nil
}

// EnsureSysbox installs the sysbox runtime from its released package when
// the runtime binary is not already present.
func EnsureSysbox() error {
	if _, err := os.Stat(SysboxRuntimeBin); err == nil {
		log.Skipf("sysbox already installed at %s", SysboxRuntimeBin)
		return nil
	}

	log.Infof("Downloading sysbox %s", sysboxVersion)
	deb, err := download(sysboxDebURL, "sysbox-ce-*.deb")
	if err != nil {
		return fmt.Errorf("fetch sysbox package: %w", err)
	}
	defer os.Remove(deb)

	log.Info("Installing sysbox package")
	// apt resolves the package's dependencies, unlike bare dpkg -i.
	cmd := exec.Command("apt-get", "install", "-y", deb)
	cmd.Env = append(os.Environ(), "DEBIAN_FRONTEND=noninteractive")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("install sysbox: %w", err)
	}

	if _, err := os.Stat(SysboxRuntimeBin); err != nil {
		return fmt.Errorf("sysbox installed but %s is missing", SysboxRuntimeBin)
	}
	log.Ok("sysbox installed")
	return nil
}

// download fetches url into a temp file matching pattern and returns its
// path. The caller removes the file.
func download(url, pattern string) (string, error) {
	client := &http.Client{Timeout: downloadTimeout}
	resp, err := client.Get(url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("GET %s: %s", url, resp.Status)
	}

	tmp, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("download %s: %w", url, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}
