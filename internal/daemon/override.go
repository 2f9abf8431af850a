package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/LeNeRoTeX/setup/internal/log"
)

// DropinPath is the docker unit drop-in this tool manages.
const DropinPath = "/etc/systemd/system/docker.service.d/override.conf"

// RenderDropin returns the unit drop-in that clears the packaged ExecStart
// so no --default-runtime flag can override the daemon config. The config
// document is authoritative for the default runtime; this drop-in only
// removes the competing mechanism.
func RenderDropin() string {
	return `# Managed by setup. Removes the packaged --default-runtime flag so the
# default runtime is governed by ` + ConfigPath + ` alone.
[Service]
ExecStart=
ExecStart=/usr/bin/dockerd -H fd:// --containerd=/run/containerd/containerd.sock
`
}

// WriteDropin installs the drop-in at path and reloads systemd. An
// identical existing file is left alone.
func WriteDropin(path string) error {
	content := []byte(RenderDropin())
	if existing, err := os.ReadFile(path); err == nil && string(existing) == string(content) {
		log.Skipf("Drop-in %s already in place", path)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	log.Okf("Drop-in written to %s", path)

	if err := systemctl("daemon-reload"); err != nil {
		return fmt.Errorf("systemctl daemon-reload: %w", err)
	}
	return nil
}

// RestartEngine restarts the docker unit so a merged config takes effect.
func RestartEngine() error {
	log.Info("Restarting docker")
	if err := systemctl("restart", "docker"); err != nil {
		return fmt.Errorf("systemctl restart docker: %w", err)
	}
	log.Ok("docker restarted")
	return nil
}

func systemctl(args ...string) error {
	cmd := exec.Command("systemctl", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
