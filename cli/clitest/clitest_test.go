// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package clitest_test

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"testing"

	"go.astrophena.name/ramses/cli"
	"go.astrophena.name/ramses/cli/clitest"
)

var errEmptyLog = errors.New("empty packet log")

type lineError struct {
	line int
}

func (e *lineError) Error() string { return fmt.Sprintf("line %d: not a packet", e.line) }

// grepApp prints the packets of a log read from stdin that have a code.
type grepApp struct {
	code    string
	matched int
}

func (a *grepApp) Flags(fs *flag.FlagSet) {
	fs.StringVar(&a.code, "code", "", "print only packets with `code`")
}

func (a *grepApp) Run(ctx context.Context) error {
	env := cli.GetEnv(ctx)
	if a.code == "" {
		a.code = env.Getenv("RAMSES_CODE")
	}
	sc := bufio.NewScanner(env.Stdin)
	n := 0
	for sc.Scan() {
		n++
		fields := strings.Fields(sc.Text())
		// DTM RSSI VERB SEQ SRC DST ADDR CODE LEN PAYLOAD
		if len(fields) < 9 {
			return &lineError{line: n}
		}
		if a.code != "" && fields[7] != a.code {
			continue
		}
		a.matched++
		fmt.Fprintln(env.Stdout, sc.Text())
	}
	if n == 0 {
		return errEmptyLog
	}
	if a.matched == 0 {
		env.Logf("No packets with code %s.", a.code)
	}
	return nil
}

const log = `2021-06-15T10:30:00.000000 045  I --- 01:145038 --:------ 01:145038 1F09 003 FF04B5
2021-06-15T10:30:01.000000 045  I --- 01:145038 --:------ 01:145038 2309 009 0007D00107D00208FC
`

func TestRun(t *testing.T) {
	cases := map[string]clitest.Case[*grepApp]{
		"all": {
			Stdin:        strings.NewReader(log),
			WantInStdout: "2309 009",
			CheckFunc: func(t *testing.T, a *grepApp) {
				if a.matched != 2 {
					t.Errorf("matched %d packets, want 2", a.matched)
				}
			},
		},
		"flag": {
			Args:         []string{"-code", "1F09"},
			Stdin:        strings.NewReader(log),
			WantInStdout: "1F09 003",
			CheckFunc: func(t *testing.T, a *grepApp) {
				if a.matched != 1 {
					t.Errorf("matched %d packets, want 1", a.matched)
				}
			},
		},
		"env": {
			Stdin:        strings.NewReader(log),
			Env:          map[string]string{"RAMSES_CODE": "30C9"},
			WantInStderr: "No packets with code 30C9.",
		},
		"no match prints nothing to stdout": {
			Args:  []string{"-code", "0004"},
			Stdin: strings.NewReader(log),
			CheckFunc: func(t *testing.T, a *grepApp) {
				if a.matched != 0 {
					t.Errorf("matched %d packets", a.matched)
				}
			},
		},
		"empty": {
			WantErr: errEmptyLog,
		},
		"garbage": {
			Stdin:       strings.NewReader("not a packet\n"),
			WantErrType: &lineError{},
		},
		"version": {
			Args:         []string{"-version"},
			WantErr:      cli.ErrExitVersion,
			WantInStderr: "devel",
		},
	}

	clitest.Run(t, func(*testing.T) *grepApp { return new(grepApp) }, cases)
}

func TestRunNothingPrinted(t *testing.T) {
	clitest.Run(t, func(*testing.T) *grepApp { return &grepApp{code: "1F09"} }, map[string]clitest.Case[*grepApp]{
		"empty stdin": {
			Stdin:              strings.NewReader(""),
			WantErr:            errEmptyLog,
			WantNothingPrinted: true,
		},
	})
}
