// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.astrophena.name/ramses/cli"
	"go.astrophena.name/ramses/devtools/internal"
	"go.astrophena.name/ramses/testutil"
	"go.astrophena.name/ramses/txtar"
)

func TestProgressMessage(t *testing.T) {
	gotest := []string{"go", "test", "./..."}
	cases := map[string]struct {
		n, total int
		command  []string
		width    int
		want     string
	}{
		"no terminal":     {n: 1, total: 1, command: []string{"go", "tool", "staticcheck", "./..."}, want: "[1/1] Running check go tool staticcheck ./..."},
		"fits":            {n: 1, total: 2, command: gotest, width: 80, want: "[1/2] Running check go test ./..."},
		"ellipsis":        {n: 2, total: 10, command: gotest, width: 28, want: "[2/10] Running check go t..."},
		"prefix only":     {n: 3, total: 10, command: gotest, width: 10, want: "[3/10] Running check "},
		"no room for ...": {n: 2, total: 100, command: gotest, width: 24, want: "[2/100] Running check go"},
		"tabs":            {n: 1, total: 1, command: []string{"grep", "\tfmt"}, want: "[1/1] Running check grep  fmt"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got := progressMessage(tc.n, tc.total, tc.command, tc.width)
			testutil.AssertEqual(t, got, tc.want)
			if tc.width > 0 && len(got) > tc.width && !strings.HasSuffix(got, " ") {
				t.Errorf("%q is wider than %d", got, tc.width)
			}
		})
	}
}

// runCase is case.json of an archive in testdata.
type runCase struct {
	CI         string `json:"ci"`
	WantStdout string `json:"want_stdout"`
	WantHook   string `json:"want_hook"`
}

func TestRunCases(t *testing.T) {
	testutil.Run(t, "testdata/*.txtar", func(t *testing.T, match string) {
		ar := testutil.ReadTxtar(t, match)
		c := testutil.UnmarshalJSON[runCase](t, mustLookup(t, ar, "case.json"))

		dir := t.TempDir()
		testutil.ExtractTxtar(t, ar, dir)
		config := txtar.Format(&txtar.Archive{Files: []txtar.File{
			{Name: "pre-commit.json", Data: mustLookup(t, ar, "pre-commit.json")},
		}})
		if err := os.WriteFile(filepath.Join(dir, internal.ConfigFile), config, 0o644); err != nil {
			t.Fatal(err)
		}

		t.Chdir(dir)
		var stdout bytes.Buffer
		if err := realMain(testEnv(c.CI, &stdout)); err != nil {
			t.Fatal(err)
		}
		testutil.AssertEqual(t, stdout.String(), c.WantStdout)

		hook, err := os.ReadFile(filepath.Join(".git", "hooks", "pre-commit"))
		if c.WantHook == "" {
			if err == nil {
				t.Error("hook installed in CI")
			}
			return
		}
		if err != nil {
			t.Fatal(err)
		}
		testutil.AssertEqual(t, string(hook), c.WantHook)
	})
}

func TestFailingChecks(t *testing.T) {
	cases := map[string]struct {
		checks string
		files  map[string]string
		want   string
	}{
		"command fails": {
			checks: `[{"run": ["go", "tool", "nonexistent-tool"]}]`,
			want:   "failed",
		},
		"output not empty": {
			checks: `[{"run": ["go", "env", "GOOS"], "want_empty": true}]`,
			want:   "failed on",
		},
		"print in library": {
			checks: `[{"grep": {"pattern": "fmt\\.Print", "message": "Don't print from libraries", "libraries": true}, "exclude": ["testdata/"]}]`,
			files: map[string]string{
				"lib/lib.go":           "package lib\n\nimport \"fmt\"\n\nfunc Hello() { fmt.Println(\"hello\") }\n",
				"lib/testdata/skip.go": "package skip\n\nimport \"fmt\"\n\nfunc Hello() { fmt.Println(\"hello\") }\n",
			},
			want: "lib/lib.go:5: func Hello()",
		},
		"dev mode": {
			checks: `[{"grep": {"pattern": "devMode\\s*=\\s*true", "message": "Dev mode is on"}}]`,
			files:  map[string]string{"lib/lib.go": "package lib\n\nconst devMode = true\n"},
			want:   "Dev mode is on",
		},
		"neither run nor grep": {
			checks: `[{"skip_in_ci": true}]`,
			want:   "neither run nor grep",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			ar := &txtar.Archive{Files: []txtar.File{
				{Name: "go.mod", Data: []byte("module example.com/m\n")},
				{Name: ".devtools.txtar", Data: txtar.Format(&txtar.Archive{
					Files: []txtar.File{{Name: "pre-commit.json", Data: []byte(tc.checks + "\n")}},
				})},
			}}
			for name, content := range tc.files {
				ar.Files = append(ar.Files, txtar.File{Name: name, Data: []byte(content)})
			}
			testutil.ExtractTxtar(t, ar, dir)

			t.Chdir(dir)
			err := realMain(testEnv("true", new(bytes.Buffer)))
			if err == nil {
				t.Fatal("want an error")
			}
			testutil.AssertContains(t, err.Error(), tc.want)
		})
	}
}

func testEnv(ci string, stdout *bytes.Buffer) context.Context {
	return cli.WithEnv(context.Background(), &cli.Env{
		Getenv: func(key string) string {
			if key == "CI" {
				return ci
			}
			return ""
		},
		Stdout: stdout,
		Stderr: &bytes.Buffer{},
	})
}

func mustLookup(t *testing.T, ar *txtar.Archive, name string) []byte {
	t.Helper()
	data, ok := txtar.Lookup(ar, name)
	if !ok {
		t.Fatalf("missing %s", name)
	}
	return data
}
