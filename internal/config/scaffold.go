package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// KindDirs are the per-language subdirectories holding each file kind.
var KindDirs = []string{"rev", "lng", "mst"}

// ScaffoldProject creates revise.toml in dir (unless present) and the
// {root}/{language}/{rev,lng,mst} tree for every configured language.
// Existing paths are left untouched. Returns the list of created paths.
func ScaffoldProject(dir string) ([]string, error) {
	var created []string

	tomlPath := filepath.Join(dir, FileName)
	if _, err := os.Stat(tomlPath); os.IsNotExist(err) {
		if _, initErr := InitFile(dir); initErr != nil {
			return created, initErr
		}
		created = append(created, tomlPath)
	}

	cfg, err := Load(tomlPath)
	if err != nil {
		return created, err
	}

	dirs, err := EnsureDataDirs(cfg.DataRoot(), cfg.Data.Languages)
	created = append(created, dirs...)
	return created, err
}

// EnsureDataDirs creates any missing language/kind directories under root
// and returns the ones it created.
func EnsureDataDirs(root string, languages []string) ([]string, error) {
	var created []string
	for _, lng := range languages {
		for _, kind := range KindDirs {
			p := filepath.Join(root, lng, kind)
			if _, err := os.Stat(p); err == nil {
				continue
			}
			if err := os.MkdirAll(p, 0755); err != nil {
				return created, fmt.Errorf("scaffold: create %s: %w", p, err)
			}
			created = append(created, p)
		}
	}
	return created, nil
}
