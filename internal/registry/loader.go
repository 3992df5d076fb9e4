// Package registry builds the model catalog from configuration, catalog files
// and directories of local GGUF weights.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"benchd/internal/common/fsutil"
	"benchd/internal/config"
	"benchd/pkg/types"
)

// catalog is the on-disk shape of a models file.
type catalog struct {
	Models []types.Model `json:"models" yaml:"models" toml:"models"`
}

// LoadFile reads a models catalog (yaml/json/toml) of the form {models: [...]}.
func LoadFile(path string) ([]types.Model, error) {
	var c catalog
	if err := config.Decode(path, &c); err != nil {
		return nil, fmt.Errorf("load models file: %w", err)
	}
	return c.Models, nil
}

// LoadDir scans a directory for *.gguf files and builds models served by the
// named provider. The ID is the full filename, the mention name drops the
// extension, and the provider model is the absolute path. Found models start
// enabled.
func LoadDir(dir, providerName string) ([]types.Model, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []types.Model
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".gguf") {
			continue
		}
		models = append(models, types.Model{
			ID:            name,
			Name:          strings.TrimSuffix(name, filepath.Ext(name)),
			Provider:      providerName,
			ProviderModel: filepath.Join(abs, name),
			Enabled:       true,
		})
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models, nil
}

// Merge appends models from extra whose ids are not already in base. The
// first declaration of an id wins.
func Merge(base []types.Model, extra ...[]types.Model) []types.Model {
	seen := make(map[string]bool, len(base))
	out := make([]types.Model, 0, len(base))
	for _, m := range base {
		if seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		out = append(out, m)
	}
	for _, list := range extra {
		for _, m := range list {
			if seen[m.ID] {
				continue
			}
			seen[m.ID] = true
			out = append(out, m)
		}
	}
	return out
}

// Build assembles the catalog a config describes: inline models, then the
// models file, then the scanned directory.
func Build(cfg config.Config) ([]types.Model, error) {
	models := cfg.Models
	if cfg.ModelsFile != "" {
		fm, err := LoadFile(cfg.ModelsFile)
		if err != nil {
			return nil, err
		}
		models = Merge(models, fm)
	}
	if cfg.ModelsDir != "" {
		dm, err := LoadDir(cfg.ModelsDir, cfg.ModelsDirProvider)
		if err != nil {
			return nil, err
		}
		models = Merge(models, dm)
	}
	return Merge(models), nil
}
