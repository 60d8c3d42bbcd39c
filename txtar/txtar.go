// © 2024 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package txtar extends [golang.org/x/tools/txtar] with helpers for moving
// archives to and from the file system.
//
// Packet fixtures, devtools configuration and CLI test cases are all kept as
// txtar archives.
package txtar

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/tools/txtar"
)

// Archive is a collection of files.
type Archive = txtar.Archive

// File is a single file in an [Archive].
type File = txtar.File

// Parse parses the serialized form of an Archive.
func Parse(data []byte) *Archive { return txtar.Parse(data) }

// ParseFile parses the named file as an archive.
func ParseFile(file string) (*Archive, error) { return txtar.ParseFile(file) }

// Format returns the serialized form of an Archive.
func Format(a *Archive) []byte { return txtar.Format(a) }

// Lookup returns the contents of the named file in a.
func Lookup(a *Archive, name string) ([]byte, bool) {
	for _, f := range a.Files {
		if f.Name == name {
			return f.Data, true
		}
	}
	return nil, false
}

var errUnsafePath = errors.New("unsafe file name")

// Extract writes the files of a into dir, creating directories as needed.
// File names must be relative and stay within dir.
func Extract(a *Archive, dir string) error {
	for _, f := range a.Files {
		name := filepath.FromSlash(f.Name)
		if !filepath.IsLocal(name) {
			return fmt.Errorf("%w: %q", errUnsafePath, f.Name)
		}
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, f.Data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

// FromDir builds an archive out of every regular file under dir.
// Hidden directories such as .git are skipped.
func FromDir(dir string) (*Archive, error) {
	a := new(Archive)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		a.Files = append(a.Files, File{Name: filepath.ToSlash(rel), Data: data})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}
