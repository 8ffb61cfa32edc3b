package config

import (
	"os"
	"path/filepath"
)

// LocalConfigName is the base name of a per-directory config file
const LocalConfigName = ".casewatch"

// Extensions are the config formats looked up, in order
var Extensions = []string{"yml", "yaml", "json", "toml"}

// FindLocalConfig finds local config file by walking up directories
func FindLocalConfig(dir string) string {
	for {
		for _, ext := range Extensions {
			path := filepath.Join(dir, LocalConfigName+"."+ext)

			if _, err := os.Stat(path); err == nil {
				return path
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}

		dir = parent
	}

	return ""
}
