package manifest_test

import (
	"strings"
	"testing"

	"github.com/LeNeRoTeX/setup/internal/manifest"
)

const validManifest = `
apiVersion: setup.io/v1alpha1
kind: ProxyStack
metadata:
  name: edge
spec:
  network: edge-net
  images:
    proxy: nginxproxy/nginx-proxy:1.6
    acme: nginxproxy/acme-companion:2.4
  extraContainers:
    - name: app
      image: ghcr.io/example/app:latest
      ports: ["8080:8080"]
      env:
        VIRTUAL_HOST: app.example.com
      restart: unless-stopped
      mounts:
        - source: app-data
          target: /data
`

func TestLoadBytesValid(t *testing.T) {
	m, err := manifest.LoadBytes([]byte(validManifest), "test")
	if err != nil {
		t.Fatalf("LoadBytes: %v", err)
	}
	if m.Metadata.Name != "edge" {
		t.Errorf("Metadata.Name = %q, want edge", m.Metadata.Name)
	}
	if m.Spec.Network != "edge-net" {
		t.Errorf("Spec.Network = %q, want edge-net", m.Spec.Network)
	}
	if m.Spec.Images.Proxy != "nginxproxy/nginx-proxy:1.6" {
		t.Errorf("Images.Proxy = %q", m.Spec.Images.Proxy)
	}
	if len(m.Spec.ExtraContainers) != 1 {
		t.Fatalf("len(ExtraContainers) = %d, want 1", len(m.Spec.ExtraContainers))
	}
	app := m.Spec.ExtraContainers[0]
	if app.Name != "app" || app.Env["VIRTUAL_HOST"] != "app.example.com" {
		t.Errorf("ExtraContainers[0] = %+v", app)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := manifest.Load("/nonexistent/proxystack.yaml"); err == nil {
		t.Error("expected error for missing file, got nil")
	}
}

func TestValidateWrongAPIVersion(t *testing.T) {
	yaml := strings.ReplaceAll(validManifest, "setup.io/v1alpha1", "setup.io/v2")
	_, err := manifest.LoadBytes([]byte(yaml), "test")
	if err == nil || !strings.Contains(err.Error(), "unsupported apiVersion") {
		t.Errorf("want unsupported apiVersion error, got: %v", err)
	}
}

func TestValidateWrongKind(t *testing.T) {
	yaml := strings.ReplaceAll(validManifest, "kind: ProxyStack", "kind: Stack")
	_, err := manifest.LoadBytes([]byte(yaml), "test")
	if err == nil || !strings.Contains(err.Error(), "unsupported kind") {
		t.Errorf("want unsupported kind error, got: %v", err)
	}
}

func TestValidateMissingName(t *testing.T) {
	yaml := strings.ReplaceAll(validManifest, "  name: edge\n", "")
	_, err := manifest.LoadBytes([]byte(yaml), "test")
	if err == nil || !strings.Contains(err.Error(), "metadata.name") {
		t.Errorf("want metadata.name error, got: %v", err)
	}
}

func TestValidateRejectsUnknownFields(t *testing.T) {
	yaml := validManifest + "\nbogus: true\n"
	if _, err := manifest.LoadBytes([]byte(yaml), "test"); err == nil {
		t.Error("expected error for unknown top-level field, got nil")
	}
}

func TestValidateExtraContainerIssues(t *testing.T) {
	yaml := `
apiVersion: setup.io/v1alpha1
kind: ProxyStack
metadata:
  name: edge
spec:
  extraContainers:
    - name: app
      image: ghcr.io/example/app
      ports: ["eighty:80"]
    - name: app
      image: ""
      mounts:
        - source: data
          target: relative/path
`
	_, err := manifest.LoadBytes([]byte(yaml), "test")
	if err == nil {
		t.Fatal("expected validation errors, got nil")
	}
	for _, want := range []string{"not host:container", "duplicate container name", "image is required", "must be absolute"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %q, got:\n%v", want, err)
		}
	}
}
