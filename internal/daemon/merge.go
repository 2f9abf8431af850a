// Package daemon edits the container daemon's JSON configuration file by
// merge-patching individual key paths. Keys the caller did not ask to
// touch are preserved exactly; the prior file is kept as a timestamped
// backup, and the new content is written atomically so an interrupted run
// never leaves a truncated config behind.
package daemon

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/LeNeRoTeX/setup/internal/log"
)

// ConfigPath is the daemon configuration file this tool manages.
const ConfigPath = "/etc/docker/daemon.json"

// Op sets Value at the mapping node addressed by Path, creating
// intermediate maps as needed.
type Op struct {
	Path  []string
	Value any
}

// RegisterRuntimeOps returns the patch operations that register a named
// runtime binary under "runtimes", optionally promoting it to the
// daemon-wide default.
func RegisterRuntimeOps(name, binPath string, makeDefault bool) []Op {
	ops := []Op{{Path: []string{"runtimes", name, "path"}, Value: binPath}}
	if makeDefault {
		ops = append(ops, Op{Path: []string{"default-runtime"}, Value: name})
	}
	return ops
}

// MergePatch applies ops to the JSON document at path.
//
// An absent or empty file yields a fresh document holding only the
// patched keys. An existing file is first copied to a timestamped sibling
// backup (best-effort); if its content does not parse as JSON the
// structure is discarded and the fresh-document path is taken, the backup
// keeping the original bytes recoverable. The result is written to a
// temporary file in the same directory and renamed over path.
func MergePatch(path string, ops []Op) error {
	doc := map[string]any{}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err) || (err == nil && len(data) == 0):
		// First run: nothing to preserve.
	case err != nil:
		return fmt.Errorf("read %s: %w", path, err)
	default:
		if backupPath, berr := backup(path, data); berr != nil {
			log.Warnf("Could not back up %s: %v", path, berr)
		} else {
			log.Infof("Backed up %s to %s", path, backupPath)
		}
		if perr := json.Unmarshal(data, &doc); perr != nil {
			log.Warnf("%s is not valid JSON (%v); writing a fresh config, original kept in backup", path, perr)
			doc = map[string]any{}
		}
	}

	for _, op := range ops {
		setPath(doc, op.Path, op.Value)
	}

	return writeAtomic(path, doc)
}

// setPath walks doc along keys, creating intermediate maps, and sets the
// leaf. Sibling keys at every level are left alone. A non-map value
// sitting where an intermediate map is needed is replaced: the instructed
// path wins over whatever occupied it.
func setPath(doc map[string]any, keys []string, value any) {
	node := doc
	for _, key := range keys[:len(keys)-1] {
		child, ok := node[key].(map[string]any)
		if !ok {
			child = map[string]any{}
			node[key] = child
		}
		node = child
	}
	node[keys[len(keys)-1]] = value
}

// backup copies the current file bytes to path.bak.<unix-ts> alongside
// the original. Backups are never pruned.
func backup(path string, data []byte) (string, error) {
	backupPath := path + ".bak." + strconv.FormatInt(time.Now().Unix(), 10)
	if err := os.WriteFile(backupPath, data, 0o600); err != nil {
		return "", err
	}
	return backupPath, nil
}

// writeAtomic serializes doc and replaces path via a same-directory
// temporary file and rename, so path always holds either the old or the
// new content in full.
func writeAtomic(path string, doc map[string]any) error {
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	out = append(out, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	defer func() {
		if tmp != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(out); err != nil {
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", tmp.Name(), err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	name := tmp.Name()
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	tmp = nil
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// Read returns the parsed document at path, for callers that only need to
// inspect current settings. A missing file reads as an empty document.
func Read(path string) (map[string]any, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	doc := map[string]any{}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}
