// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"go.astrophena.name/ramses/cli"
	"go.astrophena.name/ramses/devtools/internal"
)

type config struct {
	Name    string    `json:"name"`
	Package string    `json:"package"`
	Targets []string  `json:"targets"`
	Exclude []string  `json:"exclude"`
	DevHack []devHack `json:"dev_hack"`
}

type devHack struct {
	Pattern string   `json:"pattern"`
	Replace string   `json:"replace"`
	Files   []string `json:"files"`
}

func loadConfig() (*config, error) {
	ar, err := internal.LoadConfig()
	if err != nil {
		return nil, err
	}
	cfg := &config{Package: "."}
	if err := internal.UnmarshalConfig(ar, "release.json", cfg); err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		return nil, errors.New("release.json: name is required")
	}
	return cfg, nil
}

func main() { cli.Main(new(app)) }

type app struct {
	dry     bool
	out     string
	version string
}

func (a *app) Flags(fs *flag.FlagSet) {
	fs.BoolVar(&a.dry, "dry", false, "Print what would be done, without changing or building anything.")
	fs.StringVar(&a.out, "out", "dist", "Write the release to `dir`.")
	fs.StringVar(&a.version, "version", "", "Release `version`. Defaults to $GITHUB_REF_NAME.")
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
	version := a.version
	if version == "" {
		version = env.Getenv("GITHUB_REF_NAME")
	}
	if version == "" {
		return fmt.Errorf("%w: no version given", cli.ErrInvalidArgs)
	}

	if err := a.disableDevHacks(env, cfg.DevHack); err != nil {
		return err
	}

	if a.dry {
		env.Logf("Would write the release of %s %s to %s.", cfg.Name, version, a.out)
		for _, target := range cfg.Targets {
			env.Logf("Would build %s for %s.", cfg.Package, target)
		}
		return nil
	}

	if err := os.MkdirAll(a.out, 0o755); err != nil {
		return err
	}
	files := []string{cfg.Name + "-" + version + ".tar.gz"}
	if err := a.sourceTarball(files[0], cfg.Name+"-"+version, cfg.Exclude); err != nil {
		return err
	}
	env.Logf("Wrote %s.", files[0])

	for _, target := range cfg.Targets {
		name, err := a.build(ctx, env, cfg, target)
		if err != nil {
			return err
		}
		env.Logf("Built %s.", name)
		files = append(files, name)
	}

	if err := a.writeChecksums(files); err != nil {
		return err
	}
	env.Logf("Wrote SHA256SUMS of %d files.", len(files))
	return nil
}

// disableDevHacks rewrites the files that turn on development switches.
func (a *app) disableDevHacks(env *cli.Env, hacks []devHack) error {
	for i, h := range hacks {
		re, err := regexp.Compile(h.Pattern)
		if err != nil {
			return fmt.Errorf("release.json: dev_hack %d: %w", i+1, err)
		}
		if err := a.disableDevHack(env, re, h); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) disableDevHack(env *cli.Env, re *regexp.Regexp, h devHack) error {
	for _, path := range h.Files {
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if !re.Match(content) {
			continue
		}
		if a.dry {
			env.Logf("Would disable development switches in %s.", path)
			continue
		}
		if err := os.WriteFile(path, re.ReplaceAll(content, []byte(h.Replace)), 0o644); err != nil {
			return err
		}
		env.Logf("Disabled development switches in %s.", path)
	}
	return nil
}

// parseTarget splits a target like "linux/amd64" into GOOS and GOARCH.
func parseTarget(target string) (goos, goarch string, err error) {
	goos, goarch, ok := strings.Cut(target, "/")
	if !ok || goos == "" || goarch == "" || strings.Contains(goarch, "/") {
		return "", "", fmt.Errorf("bad target %q, want goos/goarch", target)
	}
	return goos, goarch, nil
}

func binaryName(name, goos, goarch string) string {
	s := name + "-" + goos + "-" + goarch
	if goos == "windows" {
		s += ".exe"
	}
	return s
}

func (a *app) build(ctx context.Context, env *cli.Env, cfg *config, target string) (string, error) {
	goos, goarch, err := parseTarget(target)
	if err != nil {
		return "", err
	}
	name := binaryName(cfg.Name, goos, goarch)
	cmd := exec.CommandContext(ctx, "go", "build", "-trimpath", "-o", filepath.Join(a.out, name), cfg.Package)
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0", "GOOS="+goos, "GOARCH="+goarch)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("building for %s failed: %v:\n%s", target, err, buf.String())
	}
	return name, nil
}

// sourceTarball writes the files of the module, under prefix, to a gzipped
// tarball. Hidden files and the output directory are left out.
func (a *app) sourceTarball(name, prefix string, exclude []string) error {
	f, err := os.Create(filepath.Join(a.out, name))
	if err != nil {
		return err
	}
	defer f.Close()

	zw := gzip.NewWriter(f)
	tw := tar.NewWriter(zw)
	out := filepath.Clean(a.out)

	err = filepath.WalkDir(".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == "." {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") || path == out {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if internal.Excluded(path+"/", exclude) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || internal.Excluded(path, exclude) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = prefix + "/" + filepath.ToSlash(path)
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(tw, src)
		return err
	})
	if err != nil {
		return err
	}
	if err := tw.Close(); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}
	return f.Close()
}

// writeChecksums writes SHA256SUMS in the format sha256sum -c reads.
func (a *app) writeChecksums(files []string) error {
	var buf bytes.Buffer
	for _, name := range slices.Sorted(slices.Values(files)) {
		sum, err := checksum(filepath.Join(a.out, name))
		if err != nil {
			return err
		}
		fmt.Fprintf(&buf, "%s  %s\n", sum, name)
	}
	return os.WriteFile(filepath.Join(a.out, "SHA256SUMS"), buf.Bytes(), 0o644)
}

func checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
