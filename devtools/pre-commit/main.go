// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"go.astrophena.name/ramses/cli"
	"go.astrophena.name/ramses/devtools/internal"
)

const hookShellScript = `#!/bin/sh
echo "==> Running pre-commit check..."
go tool pre-commit
`

type check struct {
	Run  []string `json:"run"`
	Grep *grep    `json:"grep"`
	// WantEmpty fails the check if the command prints a file that isn't
	// excluded, as gofmt -l and goimports -l do.
	WantEmpty bool     `json:"want_empty"`
	Exclude   []string `json:"exclude"`
	SkipInCI  bool     `json:"skip_in_ci"`
	OnlyInCI  bool     `json:"only_in_ci"`
}

// grep looks for a pattern in Go files.
type grep struct {
	Pattern string `json:"pattern"`
	Message string `json:"message"`
	// Libraries restricts the search to packages that aren't main.
	Libraries bool `json:"libraries"`
}

func (c check) command() []string {
	if c.Grep != nil {
		return []string{"grep", c.Grep.Pattern}
	}
	return c.Run
}

func loadChecks() ([]check, error) {
	ar, err := internal.LoadConfig()
	if err != nil {
		return nil, err
	}
	var checks []check
	if err := internal.UnmarshalConfig(ar, "pre-commit.json", &checks); err != nil {
		return nil, err
	}
	for i, c := range checks {
		if len(c.Run) == 0 && c.Grep == nil {
			return nil, fmt.Errorf("check %d: neither run nor grep is set", i+1)
		}
	}
	return checks, nil
}

func main() { cli.Main(cli.AppFunc(realMain)) }

func realMain(ctx context.Context) error {
	if err := internal.EnsureRoot(); err != nil {
		return err
	}
	env := cli.GetEnv(ctx)

	checks, err := loadChecks()
	if err != nil {
		return err
	}

	isCI := env.Getenv("CI") == "true"

	if !isCI {
		if err := installHook(); err != nil {
			return err
		}
	}

	var selected []check
	for _, check := range checks {
		if isCI && check.SkipInCI {
			continue
		}
		if !isCI && check.OnlyInCI {
			continue
		}
		selected = append(selected, check)
	}

	width := cli.TerminalWidth(env.Stdout)
	for i, check := range selected {
		fmt.Fprintln(env.Stdout, progressMessage(i+1, len(selected), check.command(), width))
		if err := check.run(); err != nil {
			return err
		}
	}
	fmt.Fprintf(env.Stdout, "All %d checks passed.\n", len(selected))
	return nil
}

// installHook writes the Git hook unless it's there already. Outside of a
// Git repository it does nothing.
func installHook() error {
	hooks := filepath.Join(".git", "hooks")
	if _, err := os.Stat(hooks); err != nil {
		return nil
	}
	hookPath := filepath.Join(hooks, "pre-commit")
	if _, err := os.Stat(hookPath); errors.Is(err, fs.ErrNotExist) {
		return os.WriteFile(hookPath, []byte(hookShellScript), 0o755)
	}
	return nil
}

// progressMessage returns the line announcing a check, shortened to fit
// width. A width of zero or less means no limit.
func progressMessage(current, total int, command []string, width int) string {
	prefix := fmt.Sprintf("[%d/%d] Running check ", current, total)
	cmd := strings.ReplaceAll(strings.Join(command, " "), "\t", " ")
	if width <= 0 || len(prefix)+len(cmd) <= width {
		return prefix + cmd
	}
	const ellipsis = "..."
	switch avail := width - len(prefix); {
	case avail <= 0:
		return prefix
	case avail <= len(ellipsis):
		return prefix + cmd[:avail]
	default:
		return prefix + cmd[:avail-len(ellipsis)] + ellipsis
	}
}

func (c check) run() error {
	if c.Grep != nil {
		return c.grep()
	}
	var buf bytes.Buffer
	cmd := exec.Command(c.Run[0], c.Run[1:]...)
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("check %q failed: %v:\n%v", c.Run, err, buf.String())
	}
	if !c.WantEmpty {
		return nil
	}
	var files []string
	for line := range strings.Lines(buf.String()) {
		line = strings.TrimSpace(line)
		if line != "" && !internal.Excluded(line, c.Exclude) {
			files = append(files, line)
		}
	}
	if len(files) > 0 {
		return fmt.Errorf("check %q failed on:\n%s", c.Run, strings.Join(files, "\n"))
	}
	return nil
}

var packageMain = regexp.MustCompile(`(?m)^package main$`)

func (c check) grep() error {
	re, err := regexp.Compile(c.Grep.Pattern)
	if err != nil {
		return fmt.Errorf("check %q: %w", c.Grep.Pattern, err)
	}
	var found []string
	err = filepath.WalkDir(".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != "." && (strings.HasPrefix(d.Name(), ".") || internal.Excluded(path+"/", c.Exclude)) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" || internal.Excluded(path, c.Exclude) {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if c.Grep.Libraries && packageMain.Match(content) {
			return nil
		}
		sc := bufio.NewScanner(bytes.NewReader(content))
		for n := 1; sc.Scan(); n++ {
			if re.Match(sc.Bytes()) {
				found = append(found, fmt.Sprintf("%s:%d: %s", filepath.ToSlash(path), n, strings.TrimSpace(sc.Text())))
			}
		}
		return sc.Err()
	})
	if err != nil {
		return err
	}
	if len(found) > 0 {
		return fmt.Errorf("%s:\n%s", c.Grep.Message, strings.Join(found, "\n"))
	}
	return nil
}
