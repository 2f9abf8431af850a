package daemon_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/LeNeRoTeX/setup/internal/daemon"
)

func readDoc(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("parse %s: %v\ncontent: %s", path, err, data)
	}
	return doc
}

func runtimePath(doc map[string]any, name string) string {
	runtimes, _ := doc["runtimes"].(map[string]any)
	entry, _ := runtimes[name].(map[string]any)
	path, _ := entry["path"].(string)
	return path
}

func TestMergePatchAbsentFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.json")
	ops := daemon.RegisterRuntimeOps("sysbox-runc", "/usr/bin/sysbox-runc", false)

	if err := daemon.MergePatch(path, ops); err != nil {
		t.Fatalf("MergePatch: %v", err)
	}

	doc := readDoc(t, path)
	if len(doc) != 1 {
		t.Errorf("fresh document has %d top-level keys, want exactly 1: %v", len(doc), doc)
	}
	if got := runtimePath(doc, "sysbox-runc"); got != "/usr/bin/sysbox-runc" {
		t.Errorf("runtimes.sysbox-runc.path = %q", got)
	}
}

func TestMergePatchEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.json")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := daemon.MergePatch(path, []daemon.Op{{Path: []string{"default-runtime"}, Value: "sysbox-runc"}}); err != nil {
		t.Fatalf("MergePatch: %v", err)
	}
	doc := readDoc(t, path)
	if doc["default-runtime"] != "sysbox-runc" {
		t.Errorf("default-runtime = %v", doc["default-runtime"])
	}
	if len(doc) != 1 {
		t.Errorf("document has %d keys, want 1: %v", len(doc), doc)
	}
}

func TestMergePatchPreservesUnrelatedKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.json")
	existing := `{
  "x": 1,
  "log-driver": "json-file",
  "log-opts": {"max-size": "10m"},
  "runtimes": {"kata": {"path": "/usr/bin/kata-runtime"}}
}`
	if err := os.WriteFile(path, []byte(existing), 0o644); err != nil {
		t.Fatal(err)
	}

	ops := []daemon.Op{{Path: []string{"runtimes", "foo", "path"}, Value: "/bin/foo"}}
	if err := daemon.MergePatch(path, ops); err != nil {
		t.Fatalf("MergePatch: %v", err)
	}

	doc := readDoc(t, path)
	if doc["x"] != float64(1) {
		t.Errorf("x = %v, want 1", doc["x"])
	}
	if doc["log-driver"] != "json-file" {
		t.Errorf("log-driver = %v", doc["log-driver"])
	}
	opts, _ := doc["log-opts"].(map[string]any)
	if opts["max-size"] != "10m" {
		t.Errorf("log-opts.max-size = %v", opts["max-size"])
	}
	if got := runtimePath(doc, "kata"); got != "/usr/bin/kata-runtime" {
		t.Errorf("sibling runtime entry lost: runtimes.kata.path = %q", got)
	}
	if got := runtimePath(doc, "foo"); got != "/bin/foo" {
		t.Errorf("runtimes.foo.path = %q, want /bin/foo", got)
	}
}

func TestMergePatchBacksUpExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "daemon.json")
	original := []byte(`{"x": 1}`)
	if err := os.WriteFile(path, original, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := daemon.MergePatch(path, []daemon.Op{{Path: []string{"y"}, Value: 2}}); err != nil {
		t.Fatalf("MergePatch: %v", err)
	}

	backups := backupFiles(t, dir)
	if len(backups) != 1 {
		t.Fatalf("backup files = %v, want exactly one", backups)
	}
	data, err := os.ReadFile(filepath.Join(dir, backups[0]))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != string(original) {
		t.Errorf("backup content = %q, want original bytes %q", data, original)
	}
}

func TestMergePatchUnparsableFallsBackWithBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "daemon.json")
	garbage := []byte(`{"runtimes": not json at all`)
	if err := os.WriteFile(path, garbage, 0o644); err != nil {
		t.Fatal(err)
	}

	ops := daemon.RegisterRuntimeOps("sysbox-runc", "/usr/bin/sysbox-runc", true)
	if err := daemon.MergePatch(path, ops); err != nil {
		t.Fatalf("MergePatch: %v", err)
	}

	doc := readDoc(t, path)
	if got := runtimePath(doc, "sysbox-runc"); got != "/usr/bin/sysbox-runc" {
		t.Errorf("runtimes.sysbox-runc.path = %q", got)
	}
	if doc["default-runtime"] != "sysbox-runc" {
		t.Errorf("default-runtime = %v", doc["default-runtime"])
	}
	if len(doc) != 2 {
		t.Errorf("fresh document has %d keys, want 2: %v", len(doc), doc)
	}

	backups := backupFiles(t, dir)
	if len(backups) != 1 {
		t.Fatalf("backup files = %v, want exactly one", backups)
	}
	data, err := os.ReadFile(filepath.Join(dir, backups[0]))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != string(garbage) {
		t.Errorf("backup = %q, want the original unparsable bytes", data)
	}
}

func TestMergePatchLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "daemon.json")
	if err := daemon.MergePatch(path, []daemon.Op{{Path: []string{"a"}, Value: "b"}}); err != nil {
		t.Fatalf("MergePatch: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp.") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestRegisterRuntimeOps(t *testing.T) {
	ops := daemon.RegisterRuntimeOps("sysbox-runc", "/usr/bin/sysbox-runc", false)
	if len(ops) != 1 {
		t.Fatalf("len(ops) = %d, want 1", len(ops))
	}
	ops = daemon.RegisterRuntimeOps("sysbox-runc", "/usr/bin/sysbox-runc", true)
	if len(ops) != 2 {
		t.Fatalf("len(ops) = %d, want 2", len(ops))
	}
	if ops[1].Path[0] != "default-runtime" || ops[1].Value != "sysbox-runc" {
		t.Errorf("default op = %+v", ops[1])
	}
}

func TestReadMissingFile(t *testing.T) {
	doc, err := daemon.Read(filepath.Join(t.TempDir(), "daemon.json"))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(doc) != 0 {
		t.Errorf("doc = %v, want empty", doc)
	}
}

func backupFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var backups []string
	for _, e := range entries {
		if strings.Contains(e.Name(), ".bak.") {
			backups = append(backups, e.Name())
		}
	}
	return backups
}
