// © 2024 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package version reports build information of the running binary.
package version

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"

	"go.astrophena.name/ramses/syncx"
)

// Info describes the running binary.
type Info struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	Dirty     bool   `json:"dirty,omitempty"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// String returns a human-readable multiline description of i.
func (i Info) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s", i.Name, i.Version)
	if i.Commit != "" {
		fmt.Fprintf(&sb, " (%s", short(i.Commit))
		if i.Dirty {
			sb.WriteString(", dirty")
		}
		sb.WriteString(")")
	}
	fmt.Fprintf(&sb, "\n%s %s/%s\n", i.GoVersion, i.OS, i.Arch)
	return sb.String()
}

func short(commit string) string {
	if len(commit) > 12 {
		return commit[:12]
	}
	return commit
}

var info syncx.Lazy[Info]

// Version returns the build information of the running binary.
func Version() Info { return info.Get(readInfo) }

// CmdName returns the base name of the running binary.
func CmdName() string { return Version().Name }

func readInfo() Info {
	i := Info{
		Name:      cmdName(),
		Version:   "devel",
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return i
	}
	if v := bi.Main.Version; v != "" && v != "(devel)" {
		i.Version = v
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			i.Commit = s.Value
		case "vcs.modified":
			i.Dirty = s.Value == "true"
		}
	}
	return i
}

func cmdName() string {
	exe, err := os.Executable()
	if err != nil {
		return filepath.Base(os.Args[0])
	}
	return strings.TrimSuffix(filepath.Base(exe), ".exe")
}
