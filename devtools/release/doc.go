// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Release builds the files of a release into a directory.

It does, in order:

 1. Turns off development switches. Every match of a dev_hack pattern in
    its listed files is replaced, in place, with its disabled form.
 2. Writes a source tarball of the module, <name>-<version>.tar.gz.
 3. Builds the package for every target, as <name>-<goos>-<goarch>.
 4. Writes SHA256SUMS, the checksums of everything above.

The version is taken from the -version flag, or from the GITHUB_REF_NAME
environment variable that CI sets for tags. With -dry, release only prints
what it would do.

Release is configured through a release.json file in the .devtools.txtar
archive in the project's root directory:

	{
	  "name": "ramses",
	  "package": "./cmd/ramses",
	  "targets": ["linux/amd64", "linux/arm64"],
	  "exclude": ["_examples/", "dist/"],
	  "dev_hack": [
	    {
	      "pattern": "(?m)^(const devMode = )true$",
	      "replace": "${1}false",
	      "files": ["transport/transport.go"]
	    },
	    {
	      "pattern": "(?m)^(const debugFlags debugFlag = ).+$",
	      "replace": "${1}0",
	      "files": ["protocol/debug.go"]
	    }
	  ]
	}

Paths in exclude are left out of the source tarball. Like in pre-commit, a
pattern ending in a slash names a directory at any depth.
*/
package main

import (
	_ "embed"

	"go.astrophena.name/ramses/cli"
)

//go:embed doc.go
var doc []byte

func init() { cli.SetDocComment(doc) }
