// Package export writes a document's frequency tables in forms meant for
// sharing: DTS bundles and markdown tables.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pstuifzand/dtsedit/internal/dts"
	"github.com/pstuifzand/dtsedit/internal/project"
)

// ManifestName is the file listing the parts of a split bundle
const ManifestName = "manifest.json"

// ErrEmptyName is returned when a bundle has no base name
var ErrEmptyName = errors.New("export: bundle name is empty")

// Manifest describes a bundle written by WriteBundle
type Manifest struct {
	Chip    string         `json:"chip"`
	Version uint64         `json:"version"`
	Files   []ManifestFile `json:"files"`
}

// ManifestFile is one file of a bundle. Bin is -1 for the whole tree.
type ManifestFile struct {
	Name   string `json:"name"`
	Bin    int    `json:"bin"`
	Node   string `json:"node,omitempty"`
	Levels int    `json:"levels"`
}

// WriteBundle writes doc to dir. Without split the whole tree goes to
// <name>.dts; with split every bin node is written to its own
// <name>-bin<ID>.dts next to a manifest.
func WriteBundle(doc *project.Document, dir, name string, split bool) (Manifest, error) {
	if name == "" {
		return Manifest{}, ErrEmptyName
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Manifest{}, fmt.Errorf("failed to create bundle directory: %w", err)
	}

	manifest := Manifest{Chip: doc.Chip().Name, Version: doc.Version()}
	tree := doc.Tree()

	if !split {
		file := name + ".dts"
		if err := writeFile(filepath.Join(dir, file), dts.Serialize(tree)); err != nil {
			return Manifest{}, err
		}
		levels := 0
		for _, b := range doc.Bins() {
			levels += len(b.Levels)
		}
		manifest.Files = append(manifest.Files, ManifestFile{Name: file, Bin: -1, Levels: levels})
		return manifest, nil
	}

	for i, bin := range doc.Bins() {
		path := doc.BinPath(i)
		id, ok := tree.Find(path)
		if !ok {
			return Manifest{}, fmt.Errorf("bin %d: node %q not found", bin.ID, path)
		}
		file := fmt.Sprintf("%s-bin%d.dts", name, bin.ID)
		if err := writeFile(filepath.Join(dir, file), dts.SerializeNode(tree, id, 0)); err != nil {
			return Manifest{}, err
		}
		manifest.Files = append(manifest.Files, ManifestFile{
			Name:   file,
			Bin:    bin.ID,
			Node:   path,
			Levels: len(bin.Levels),
		})
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return Manifest{}, fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := writeFile(filepath.Join(dir, ManifestName), string(data)+"\n"); err != nil {
		return Manifest{}, err
	}
	return manifest, nil
}

// ReadManifest loads the manifest of a split bundle
func ReadManifest(dir string) (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return Manifest{}, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("failed to decode manifest: %w", err)
	}
	return m, nil
}

func writeFile(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}
