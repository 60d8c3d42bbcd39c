// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Pre-commit runs the checks a change must pass before it's committed or
merged.

Run from anywhere in the module, it moves to the module root, reads the
checks and runs them in order, stopping at the first failure. Outside CI
it also installs .git/hooks/pre-commit, which runs "go tool pre-commit" on
every commit. CI is detected by the CI environment variable being "true".

Checks are listed in pre-commit.json inside .devtools.txtar at the module
root. Each check either runs a command or greps the Go files:

	[
	  {"run": ["gofmt", "-l", "."], "want_empty": true, "exclude": ["_examples/"]},
	  {"grep": {"pattern": "fmt\\.Print", "message": "Libraries must log, not print", "libraries": true}},
	  {"run": ["go", "test", "./..."], "skip_in_ci": true}
	]

A command fails when it exits with an error or, with want_empty, when it
prints a path that isn't excluded. A grep fails when its pattern matches a
line; with libraries, main packages aren't searched. Exclude patterns are
"dir/" for a directory at any depth, "dir/file.go" for a path and "*.go"
for file names. skip_in_ci and only_in_ci pick where a check runs.

Each check is announced as "[i/n] Running check <command>", cut to fit the
terminal.
*/
package main

import (
	_ "embed"

	"go.astrophena.name/ramses/cli"
)

//go:embed doc.go
var doc []byte

func init() { cli.SetDocComment(doc) }
