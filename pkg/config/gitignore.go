package config

import (
	"bufio"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const gitignoreComment = "# jiraview config, holds the Jira token"

// EnsureIgnored keeps a config file out of git. When path lies inside a git
// work tree, its base name is appended to the .gitignore in the same
// directory unless a line there already covers it. It reports whether
// .gitignore was written.
func EnsureIgnored(path string) (bool, error) {
	dir := filepath.Dir(path)
	if !inWorkTree(dir) {
		return false, nil
	}

	name := filepath.Base(path)
	gitignore := filepath.Join(dir, ".gitignore")
	covered, err := isIgnored(gitignore, name)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return false, err
	}
	if covered {
		return false, nil
	}
	if err := appendToGitignore(gitignore, name); err != nil {
		return false, err
	}
	return true, nil
}

// inWorkTree reports whether dir or one of its parents holds a .git entry.
func inWorkTree(dir string) bool {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return false
		}
		dir = parent
	}
}

// isIgnored reports whether a line of the .gitignore at path covers name.
func isIgnored(path, name string) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if coversName(line, name) {
			return true, nil
		}
	}
	return false, scanner.Err()
}

// coversName matches the literal forms a user writes for one file. Globs
// other than a leading **/ are not interpreted.
func coversName(line, name string) bool {
	line = strings.TrimPrefix(line, "/")
	line = strings.TrimPrefix(line, "**/")
	return line == name
}

// appendToGitignore adds pattern under a comment, creating the file when
// needed and keeping a blank line between it and earlier content.
func appendToGitignore(path, pattern string) error {
	content, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	var b strings.Builder
	if len(content) > 0 {
		if content[len(content)-1] != '\n' {
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	b.WriteString(gitignoreComment + "\n" + pattern + "\n")

	_, err = file.WriteString(b.String())
	return err
}
