// © 2024 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package testutil has the assertions and fixture helpers shared by the
// tests of this module.
package testutil

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"go.astrophena.name/ramses/txtar"
)

// AssertEqual fails the test unless got and want are deeply equal.
func AssertEqual(t *testing.T, got, want any) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("values are not equal:\ngot:  %#v\nwant: %#v", got, want)
	}
}

// AssertContains fails the test unless substr is in s.
func AssertContains(t *testing.T, s, substr string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Fatalf("%q does not contain %q", s, substr)
	}
}

// AssertErrorIs fails the test unless errors.Is(err, target).
func AssertErrorIs(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("error %v does not match %v", err, target)
	}
}

// Run runs f as a subtest for every file matching glob. Subtests are named
// after the file, without its extension.
func Run(t *testing.T, glob string, f func(t *testing.T, match string)) {
	t.Helper()
	matches, err := filepath.Glob(glob)
	if err != nil {
		t.Fatalf("bad glob %q: %v", glob, err)
	}
	if len(matches) == 0 {
		t.Fatalf("no files match %q", glob)
	}
	for _, match := range matches {
		t.Run(strings.TrimSuffix(filepath.Base(match), filepath.Ext(match)), func(t *testing.T) {
			f(t, match)
		})
	}
}

// ReadTxtar parses the archive at path.
func ReadTxtar(t *testing.T, path string) *txtar.Archive {
	t.Helper()
	ar, err := txtar.ParseFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return ar
}

// ExtractTxtar writes the files of ar into dir.
func ExtractTxtar(t *testing.T, ar *txtar.Archive, dir string) {
	t.Helper()
	if err := txtar.Extract(ar, dir); err != nil {
		t.Fatalf("extracting into %s: %v", dir, err)
	}
}

// UnmarshalJSON decodes b into a new V.
func UnmarshalJSON[V any](t *testing.T, b []byte) V {
	t.Helper()
	var v V
	if err := json.Unmarshal(b, &v); err != nil {
		t.Fatalf("decoding %q: %v", b, err)
	}
	return v
}
