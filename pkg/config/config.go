// Package config loads and stores the jiraview configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvPath names the environment variable that overrides the config location.
const EnvPath = "JIRAVIEW_CONFIG"

// FileName is the config file name, in the home directory or any parent of
// the working directory.
const FileName = ".jiraview.yaml"

// DefaultJQL is used by the dashboard when no board filter is configured.
const DefaultJQL = "assignee = currentUser() ORDER BY updated DESC"

// ErrNotFound is returned by Load when the config file does not exist.
var ErrNotFound = errors.New("no configuration file found")

// Filter is a saved JQL query.
type Filter struct {
	JQL string `yaml:"jql"`
}

// Board configures the dashboard.
type Board struct {
	Filter Filter `yaml:"filter"`
}

// Config is the on-disk configuration.
type Config struct {
	JiraBaseURL string `yaml:"jira_base_url"`
	CertPath    string `yaml:"cert_path,omitempty"`
	User        string `yaml:"user"`
	Token       string `yaml:"token"`
	Board       Board  `yaml:"board"`

	// Styles overrides theme rules, tag -> "bold #rrggbb bg:#rrggbb".
	Styles map[string]string `yaml:"styles,omitempty"`
	// CachePath is the search cache database. Empty means the user cache dir.
	CachePath string `yaml:"cache_path,omitempty"`
}

// JQL returns the board filter, or DefaultJQL when none is set.
func (c Config) JQL() string {
	if strings.TrimSpace(c.Board.Filter.JQL) == "" {
		return DefaultJQL
	}
	return c.Board.Filter.JQL
}

// ResolvedCertPath expands a leading ~ in CertPath.
func (c Config) ResolvedCertPath() string {
	return expandHome(c.CertPath)
}

// ResolvedCachePath returns where the search cache lives.
func (c Config) ResolvedCachePath() (string, error) {
	if c.CachePath != "" {
		return expandHome(c.CachePath), nil
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("locating cache directory: %w", err)
	}
	return filepath.Join(dir, "jiraview", "cache.db"), nil
}

// Validate checks the fields needed to reach Jira.
func (c Config) Validate() error {
	var problems []string
	if c.JiraBaseURL == "" {
		problems = append(problems, "jira_base_url is required")
	} else if u, err := url.Parse(c.JiraBaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		problems = append(problems, fmt.Sprintf("jira_base_url %q must be an http(s) URL", c.JiraBaseURL))
	}
	if c.User == "" {
		problems = append(problems, "user is required")
	}
	if c.CertPath != "" {
		if _, err := os.Stat(c.ResolvedCertPath()); err != nil {
			problems = append(problems, fmt.Sprintf("cert_path: %v", err))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Load reads the config file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("%w at %s; run 'jv configure' to create one", ErrNotFound, path)
	}
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path, readable only by the owner since it holds the
// API token.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
