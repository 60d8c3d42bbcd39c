// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package internal

import (
	"os"
	"path/filepath"
	"testing"

	"go.astrophena.name/ramses/testutil"
	"go.astrophena.name/ramses/txtar"
)

func TestEnsureRoot(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "go.mod"), []byte("module example.com/m\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(sub)

	if err := EnsureRoot(); err != nil {
		t.Fatal(err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	want, err := filepath.EvalSymlinks(root)
	if err != nil {
		t.Fatal(err)
	}
	got, err := filepath.EvalSymlinks(wd)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, got, want)
}

func TestUnmarshalConfig(t *testing.T) {
	ar := txtar.Parse([]byte("-- list.json --\n[\"a\", \"b\"]\n-- bad.json --\n{\n"))

	cases := map[string]struct {
		name    string
		want    []string
		wantErr bool
	}{
		"present": {name: "list.json", want: []string{"a", "b"}},
		"missing": {name: "none.json", want: []string{"default"}},
		"invalid": {name: "bad.json", want: []string{"default"}, wantErr: true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got := []string{"default"}
			err := UnmarshalConfig(ar, tc.name, &got)
			testutil.AssertEqual(t, err != nil, tc.wantErr)
			if !tc.wantErr {
				testutil.AssertEqual(t, got, tc.want)
			}
		})
	}
}

func TestExcluded(t *testing.T) {
	patterns := []string{"_examples/", "testdata/", "*_test.go", "secrets.*", "web/*_templ.go"}
	cases := map[string]struct {
		path string
		want bool
	}{
		"source":          {path: "gateway/gateway.go", want: false},
		"test":            {path: "gateway/gateway_test.go", want: true},
		"examples":        {path: "_examples/base/cli/cli.go", want: true},
		"nested testdata": {path: "cmd/ramses/testdata/x.go", want: true},
		"secrets":         {path: "deploy/secrets.json", want: true},
		"similar name":    {path: "mytestdata/x.go", want: false},
		"whole path":      {path: "web/page_templ.go", want: true},
		"other directory": {path: "cmd/page_templ.go", want: false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			testutil.AssertEqual(t, Excluded(tc.path, patterns), tc.want)
		})
	}
}
