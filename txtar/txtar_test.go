// © 2024 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package txtar_test

import (
	"os"
	"path/filepath"
	"testing"

	"go.astrophena.name/ramses/testutil"
	. "go.astrophena.name/ramses/txtar"
)

const fixture = `Packets seen from a controller.
-- config.json --
{"main_tcs": "01:145038"}
-- logs/packet.log --
2021-06-15T10:30:00.000000 045  I --- 01:145038 --:------ 01:145038 1F09 003 FF04B5
`

func TestLookup(t *testing.T) {
	a := Parse([]byte(fixture))
	testutil.AssertEqual(t, string(a.Comment), "Packets seen from a controller.\n")

	cases := map[string]struct {
		name   string
		want   string
		wantOK bool
	}{
		"top level": {name: "config.json", want: "{\"main_tcs\": \"01:145038\"}\n", wantOK: true},
		"nested":    {name: "logs/packet.log", want: "2021-06-15T10:30:00.000000 045  I --- 01:145038 --:------ 01:145038 1F09 003 FF04B5\n", wantOK: true},
		"missing":   {name: "schema.json"},
		"base name": {name: "packet.log"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, ok := Lookup(a, tc.name)
			testutil.AssertEqual(t, ok, tc.wantOK)
			testutil.AssertEqual(t, string(got), tc.want)
		})
	}
}

func TestExtract(t *testing.T) {
	dir := t.TempDir()
	if err := Extract(Parse([]byte(fixture)), dir); err != nil {
		t.Fatal(err)
	}
	for name, want := range map[string]string{
		"config.json":     "{\"main_tcs\": \"01:145038\"}\n",
		"logs/packet.log": "2021-06-15T10:30:00.000000 045  I --- 01:145038 --:------ 01:145038 1F09 003 FF04B5\n",
	} {
		got, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
		if err != nil {
			t.Fatal(err)
		}
		testutil.AssertEqual(t, string(got), want)
	}
}

func TestExtractUnsafe(t *testing.T) {
	for name, file := range map[string]string{
		"parent":   "../escape.json",
		"absolute": "/etc/ramses.json",
		"nested":   "logs/../../escape.log",
	} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			a := &Archive{Files: []File{{Name: file, Data: []byte("{}")}}}
			testutil.AssertErrorIs(t, Extract(a, dir), ErrUnsafePath)
		})
	}
}

func TestFromDir(t *testing.T) {
	dir := t.TempDir()
	if err := Extract(Parse([]byte(fixture)), dir); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".git", "HEAD"), []byte("ref: refs/heads/main\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink("config.json", filepath.Join(dir, "link.json")); err != nil {
		t.Fatal(err)
	}

	a, err := FromDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, f := range a.Files {
		names = append(names, f.Name)
	}
	// Hidden directories and symlinks are left out.
	testutil.AssertEqual(t, names, []string{"config.json", "logs/packet.log"})

	// The archive survives a round trip through its text form.
	again := Parse(Format(a))
	data, ok := Lookup(again, "logs/packet.log")
	if !ok {
		t.Fatal("packet log lost in round trip")
	}
	testutil.AssertContains(t, string(data), "1F09 003 FF04B5")
}

func TestFromDirMissing(t *testing.T) {
	if _, err := FromDir(filepath.Join(t.TempDir(), "nowhere")); err == nil {
		t.Fatal("want an error for a missing directory")
	}
}
