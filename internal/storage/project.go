/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"gocomicgrid/internal/domain"
	applog "gocomicgrid/internal/log"
)

const (
	ManifestFileName = "comic.json"
	BackupsDirName   = "backups"
)

// AssetsDirName holds uploaded media copied into the project.
const AssetsDirName = "assets"

// ExportsDirName is the default target of layout exports.
const ExportsDirName = "exports"

// DefaultMaxBackups is the number of manifest backups Save keeps when the
// handle does not set MaxBackups.
const DefaultMaxBackups = 20

// backupStamp sorts lexicographically in time order and keeps saves within
// the same second apart.
const backupStamp = "20060102-150405.000000000"

var projectDirs = []string{AssetsDirName, ExportsDirName, BackupsDirName}

// ProjectHandle is an opened project: its folder, the manifest path and the
// decoded manifest that page edits mutate in place.
type ProjectHandle struct {
	Root         string
	ManifestPath string
	Project      domain.Project
	// MaxBackups caps the comic.json.*.bak files kept in backups/.
	// Zero or less means DefaultMaxBackups.
	MaxBackups int
}

// InitProject creates root with the assets, exports and backups folders and
// writes proj as the first manifest.
func InitProject(root string, proj domain.Project) (*ProjectHandle, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("root path is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create project folder: %w", err)
	}
	for _, d := range projectDirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return nil, fmt.Errorf("create %s folder: %w", d, err)
		}
	}
	ph := &ProjectHandle{Root: root, ManifestPath: filepath.Join(root, ManifestFileName), Project: proj}
	if err := Save(ph); err != nil {
		return nil, err
	}
	return ph, nil
}

// Open reads comic.json under root. An unreadable or undecodable manifest
// falls back to the newest backup; a schema mismatch is only logged.
func Open(root string) (*ProjectHandle, error) {
	mpath := filepath.Join(root, ManifestFileName)
	fromBackup := func(cause error) (*ProjectHandle, error) {
		proj, berr := latestBackup(root)
		if berr != nil {
			return nil, fmt.Errorf("%w; backup attempt: %v", cause, berr)
		}
		applog.WithComponent("storage").Warn("manifest restored from backup", slog.String("root", root), slog.Any("cause", cause))
		return &ProjectHandle{Root: root, ManifestPath: mpath, Project: *proj}, nil
	}
	b, err := os.ReadFile(mpath)
	if err != nil {
		return fromBackup(fmt.Errorf("open manifest: %w", err))
	}
	if verr := ValidateManifest(b); verr != nil {
		applog.WithComponent("storage").Warn("manifest does not match schema", slog.String("path", mpath), slog.Any("err", verr))
	}
	var p domain.Project
	if err := json.Unmarshal(b, &p); err != nil {
		return fromBackup(fmt.Errorf("parse manifest: %w", err))
	}
	return &ProjectHandle{Root: root, ManifestPath: mpath, Project: p}, nil
}

// Save writes ph.Project to comic.json through a synced temp file and a
// rename. The manifest being replaced is copied to backups/ first, and the
// oldest backups beyond the handle's limit are removed.
func Save(ph *ProjectHandle) error {
	if ph == nil {
		return errors.New("nil ProjectHandle")
	}
	if ph.Root == "" || ph.ManifestPath == "" {
		return errors.New("invalid ProjectHandle: missing paths")
	}
	normalizeProject(&ph.Project)
	data, err := json.MarshalIndent(ph.Project, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := backupManifest(ph); err != nil {
		return err
	}
	return replaceFile(ph.ManifestPath, append(data, '\n'))
}

// backupManifest copies the current comic.json, if any, to a stamped file
// in backups/ and prunes the folder to the handle's limit.
func backupManifest(ph *ProjectHandle) error {
	cur, err := os.ReadFile(ph.ManifestPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read manifest for backup: %w", err)
	}
	bdir := filepath.Join(ph.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("create backups folder: %w", err)
	}
	name := ManifestFileName + "." + time.Now().Format(backupStamp) + ".bak"
	if err := writeFileSync(filepath.Join(bdir, name), cur); err != nil {
		return fmt.Errorf("backup manifest: %w", err)
	}
	pruneBackups(bdir, ph.MaxBackups)
	return nil
}

// replaceFile writes data next to path and renames it into place.
func replaceFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp manifest: %w", err)
	}
	name := tmp.Name()
	_, werr := tmp.Write(data)
	if werr == nil {
		werr = tmp.Sync()
	}
	if cerr := tmp.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		_ = os.Remove(name)
		return fmt.Errorf("write temp manifest: %w", werr)
	}
	// Rename does not replace an existing file on Windows.
	if runtime.GOOS == "windows" {
		_ = os.Remove(path)
	}
	if err := os.Rename(name, path); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("replace manifest: %w", err)
	}
	return nil
}

// normalizeProject replaces nil slices so the manifest always carries arrays.
func normalizeProject(p *domain.Project) {
	if p.Pages == nil {
		p.Pages = []domain.Page{}
	}
	for i := range p.Pages {
		if p.Pages[i].Panels == nil {
			p.Pages[i].Panels = []domain.Panel{}
		}
	}
}

// AutosaveCrashSnapshot writes the in-memory project next to the backups as
// comic.json.crash-<stamp>.json without touching the live manifest.
// It returns the path written.
func AutosaveCrashSnapshot(ph *ProjectHandle) (string, error) {
	if ph == nil || ph.Root == "" {
		return "", errors.New("invalid ProjectHandle")
	}
	data, err := json.MarshalIndent(ph.Project, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal crash snapshot: %w", err)
	}
	dir := filepath.Join(ph.Root, BackupsDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create backups folder: %w", err)
	}
	path := filepath.Join(dir, ManifestFileName+".crash-"+time.Now().Format(backupStamp)+".json")
	if err := writeFileSync(path, append(data, '\n')); err != nil {
		return "", fmt.Errorf("write crash snapshot: %w", err)
	}
	return path, nil
}

// backupFiles lists manifest backups in bdir, oldest first.
func backupFiles(bdir string) ([]string, error) {
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range ents {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, ManifestFileName+".") && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(bdir, name))
		}
	}
	sort.Strings(out)
	return out, nil
}

// pruneBackups removes the oldest manifest backups so at most keep remain.
func pruneBackups(bdir string, keep int) {
	if keep <= 0 {
		keep = DefaultMaxBackups
	}
	files, err := backupFiles(bdir)
	if err != nil || len(files) <= keep {
		return
	}
	for _, f := range files[:len(files)-keep] {
		if err := os.Remove(f); err != nil {
			applog.WithComponent("storage").Warn("prune backup failed", slog.String("path", f), slog.Any("err", err))
		}
	}
}

// latestBackup decodes the newest manifest backup under root.
func latestBackup(root string) (*domain.Project, error) {
	files, err := backupFiles(filepath.Join(root, BackupsDirName))
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	if len(files) == 0 {
		return nil, errors.New("no manifest backups")
	}
	newest := files[len(files)-1]
	b, err := os.ReadFile(newest)
	if err != nil {
		return nil, fmt.Errorf("read backup %s: %w", filepath.Base(newest), err)
	}
	var p domain.Project
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("decode backup %s: %w", filepath.Base(newest), err)
	}
	return &p, nil
}

// writeFileSync creates or truncates path and flushes data to disk.
func writeFileSync(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	_, werr := f.Write(data)
	if werr == nil {
		werr = f.Sync()
	}
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	return werr
}
