// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Addcopyright puts a copyright header at the top of source files that lack
one.

It walks the module from its root, skipping hidden directories, and adds
the header to every file with a configured extension. Generated Go files
are left alone. The year in the header is the year the file was last
modified.

Configuration lives in .devtools.txtar at the module root:

  - copyright/template.<ext> is the header for files with extension ext,
    with %d in place of the year.
  - copyright/header.<ext> is the text a file with a header starts with.
    Each template needs one.
  - copyright/exclusions.json lists paths to skip, in the same patterns
    pre-commit uses: "dir/" for a directory anywhere, "dir/file.go" for
    one path and "*.pb.go" for file names.

With -dry, it prints what it would add and changes nothing.
*/
package main

import (
	_ "embed"

	"go.astrophena.name/ramses/cli"
)

//go:embed doc.go
var doc []byte

func init() { cli.SetDocComment(doc) }
