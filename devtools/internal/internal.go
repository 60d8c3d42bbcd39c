// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package internal contains helpers shared by the developer tools.
package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.astrophena.name/ramses/txtar"
)

// ConfigFile is the archive, relative to the module root, that configures
// the developer tools.
const ConfigFile = ".devtools.txtar"

var errNoModule = errors.New("not inside a Go module")

// EnsureRoot changes the working directory to the root of the Go module it
// is in: the nearest directory, going up, that has a go.mod file.
func EnsureRoot() error {
	dir, err := os.Getwd()
	if err != nil {
		return err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return os.Chdir(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return errNoModule
		}
		dir = parent
	}
}

// LoadConfig reads the archive at ConfigFile and returns the files of it.
func LoadConfig() (*txtar.Archive, error) {
	return txtar.ParseFile(ConfigFile)
}

// UnmarshalConfig decodes the JSON file name of the archive into v. A
// missing file leaves v as is.
func UnmarshalConfig(ar *txtar.Archive, name string, v any) error {
	data, ok := txtar.Lookup(ar, name)
	if !ok {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s: %s: %w", ConfigFile, name, err)
	}
	return nil
}

// Excluded reports whether path matches one of the patterns. A pattern
// ending in a slash matches a directory at any depth, a pattern with a
// slash elsewhere matches the whole path and any other pattern matches the
// file name.
func Excluded(path string, patterns []string) bool {
	path = filepath.ToSlash(path)
	for _, p := range patterns {
		if dir, ok := strings.CutSuffix(p, "/"); ok {
			if strings.HasPrefix(path, dir+"/") || strings.Contains(path, "/"+dir+"/") {
				return true
			}
			continue
		}
		name := filepath.Base(path)
		if strings.Contains(p, "/") {
			name = path
		}
		if ok, _ := filepath.Match(p, name); ok {
			return true
		}
	}
	return false
}
