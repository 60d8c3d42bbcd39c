// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.astrophena.name/ramses/cli"
	"go.astrophena.name/ramses/devtools/internal"
)

// rule says how files with one extension are marked.
type rule struct {
	// template is the header to add, with %d for the year.
	template string
	// marker starts every file that already has a header.
	marker string
}

type config struct {
	exclude []string
	rules   map[string]*rule // by extension
}

func loadConfig() (*config, error) {
	ar, err := internal.LoadConfig()
	if err != nil {
		return nil, err
	}
	cfg := &config{rules: make(map[string]*rule)}
	if err := internal.UnmarshalConfig(ar, "copyright/exclusions.json", &cfg.exclude); err != nil {
		return nil, err
	}
	for _, f := range ar.Files {
		name, ok := strings.CutPrefix(f.Name, "copyright/")
		if !ok {
			continue
		}
		kind, ext, ok := strings.Cut(name, ".")
		if !ok || (kind != "template" && kind != "header") {
			continue
		}
		r := cfg.rules["."+ext]
		if r == nil {
			r = new(rule)
			cfg.rules["."+ext] = r
		}
		if kind == "template" {
			r.template = string(f.Data)
		} else {
			r.marker = strings.TrimSuffix(string(f.Data), "\n")
		}
	}
	for ext, r := range cfg.rules {
		if r.template == "" || r.marker == "" {
			return nil, fmt.Errorf("%w for %s", errIncompleteRule, ext)
		}
	}
	return cfg, nil
}

var errIncompleteRule = errors.New("copyright: need both a template and a header")

// generated matches the line that marks generated Go files.
var generated = regexp.MustCompile(`(?m)^// Code generated .* DO NOT EDIT\.$`)

func main() { cli.Main(new(app)) }

type app struct {
	dry bool
}

func (a *app) Flags(fs *flag.FlagSet) {
	fs.BoolVar(&a.dry, "dry", false, "Only print the files missing a header.")
}

func (a *app) Run(ctx context.Context) error {
	if err := internal.EnsureRoot(); err != nil {
		return err
	}
	env := cli.GetEnv(ctx)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var added int
	err = filepath.WalkDir(".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != "." && (strings.HasPrefix(d.Name(), ".") || internal.Excluded(path+"/", cfg.exclude)) {
				return filepath.SkipDir
			}
			return nil
		}
		r, ok := cfg.rules[filepath.Ext(path)]
		if !ok || internal.Excluded(path, cfg.exclude) {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if bytes.HasPrefix(content, []byte(r.marker)) || generated.Match(content) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		header := fmt.Sprintf(r.template, info.ModTime().Year())
		added++
		if a.dry {
			env.Logf("Would add copyright header to file %s:\n%s", path, header)
			return nil
		}
		return os.WriteFile(path, append([]byte(header), content...), info.Mode().Perm())
	})
	if err != nil {
		return err
	}
	if added > 0 && !a.dry {
		env.Logf("Added copyright headers to %d files.", added)
	}
	return nil
}
