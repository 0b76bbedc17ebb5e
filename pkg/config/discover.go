package config

import (
	"os"
	"path/filepath"
)

// Path returns the config file to use:
//
//  1. $JIRAVIEW_CONFIG when set
//  2. the nearest .jiraview.yaml walking up from the working directory,
//     stopping at the home directory
//  3. ~/.jiraview.yaml
//
// The returned path may not exist yet; it is also where configure writes.
func Path() string {
	if p := os.Getenv(EnvPath); p != "" {
		return expandHome(p)
	}
	if dir, err := os.Getwd(); err == nil {
		if p, ok := findProjectConfig(dir); ok {
			return p
		}
	}
	return homePath()
}

func homePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return FileName
	}
	return filepath.Join(home, FileName)
}

// findProjectConfig walks up from dir looking for a config file.
func findProjectConfig(dir string) (string, bool) {
	home, _ := os.UserHomeDir()

	for {
		candidate := filepath.Join(dir, FileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}

		// Don't go above home directory
		if home != "" && dir == home {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break // Reached filesystem root
		}
		dir = parent
	}
	return "", false
}
