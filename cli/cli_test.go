// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package cli_test

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"go.astrophena.name/ramses/cli"
	"go.astrophena.name/ramses/testutil"
	"go.astrophena.name/ramses/version"
)

func runTest(t *testing.T, app cli.App, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	var out, errb bytes.Buffer
	env := &cli.Env{
		Args:   args,
		Stdin:  strings.NewReader(""),
		Stdout: &out,
		Stderr: &errb,
		Getenv: func(s string) string { return "" },
	}
	ctx := cli.WithEnv(context.Background(), env)

	runErr := cli.Run(ctx, app)

	return out.String(), errb.String(), runErr
}

// echoApp prints its args to stdout, one per line.
var echoApp = cli.AppFunc(func(ctx context.Context) error {
	env := cli.GetEnv(ctx)
	for _, arg := range env.Args {
		fmt.Fprintln(env.Stdout, arg)
	}
	return nil
})

// monitorApp has flags like the ones of ramses.
type monitorApp struct {
	packetLog string
	long      bool
	reduce    int
}

func (a *monitorApp) Flags(f *flag.FlagSet) {
	f.StringVar(&a.packetLog, "packet-log", "packet.log", "packet log `file`")
	f.BoolVar(&a.long, "long", false, "long format")
	f.IntVar(&a.reduce, "reduce", 0, "reduce processing `level`")
}

func (a *monitorApp) Run(ctx context.Context) error {
	env := cli.GetEnv(ctx)
	fmt.Fprintf(env.Stdout, "log=%s long=%v reduce=%d", a.packetLog, a.long, a.reduce)
	if len(env.Args) > 0 {
		fmt.Fprintf(env.Stdout, " ports=%v", env.Args)
	}
	return nil
}

// ownVersionApp defines its own -version flag.
type ownVersionApp struct {
	version bool
}

func (a *ownVersionApp) Flags(f *flag.FlagSet) {
	f.BoolVar(&a.version, "version", false, "print the firmware version")
}

func (a *ownVersionApp) Run(ctx context.Context) error {
	if a.version {
		fmt.Fprint(cli.GetEnv(ctx).Stdout, "evofw3 0.7.1")
	}
	return nil
}

var errPortBusy = errors.New("serial port is busy")

func TestRun(t *testing.T) {
	cases := map[string]struct {
		app          cli.App
		args         []string
		wantErr      error
		wantFail     bool
		wantStdout   string
		wantStderr   string
		wantInStderr string
	}{
		"args": {
			app:        echoApp,
			args:       []string{"/dev/ttyUSB0", "/dev/ttyACM0"},
			wantStdout: "/dev/ttyUSB0\n/dev/ttyACM0\n",
		},
		"failing": {
			app:     cli.AppFunc(func(context.Context) error { return errPortBusy }),
			wantErr: errPortBusy,
		},
		"invalid args are not printed by Run": {
			app: cli.AppFunc(func(context.Context) error {
				return fmt.Errorf("%w: missing port", cli.ErrInvalidArgs)
			}),
			wantErr: cli.ErrInvalidArgs,
		},
		"flag defaults": {
			app:        &monitorApp{},
			wantStdout: "log=packet.log long=false reduce=0",
		},
		"flags and args": {
			app:        &monitorApp{},
			args:       []string{"-long", "-reduce", "2", "/dev/ttyUSB0"},
			wantStdout: "log=packet.log long=true reduce=2 ports=[/dev/ttyUSB0]",
		},
		"bad flag value": {
			app:          &monitorApp{},
			args:         []string{"-reduce", "all"},
			wantFail:     true,
			wantInStderr: `invalid value "all" for flag -reduce: parse error`,
		},
		"version": {
			app:        echoApp,
			args:       []string{"-version"},
			wantErr:    cli.ErrExitVersion,
			wantStderr: version.Version().String(),
		},
		"own version flag": {
			app:        &ownVersionApp{},
			args:       []string{"-version"},
			wantStdout: "evofw3 0.7.1",
		},
		"help": {
			app:          echoApp,
			args:         []string{"-h"},
			wantErr:      flag.ErrHelp,
			wantInStderr: "To disable the pager, set the NO_PAGER environment variable.",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			stdout, stderr, err := runTest(t, tc.app, tc.args...)
			switch {
			case tc.wantErr != nil:
				testutil.AssertErrorIs(t, err, tc.wantErr)
			case tc.wantFail:
				if err == nil {
					t.Fatal("want an error")
				}
			case err != nil:
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, stdout, tc.wantStdout)
			if tc.wantInStderr != "" {
				testutil.AssertContains(t, stderr, tc.wantInStderr)
			} else {
				testutil.AssertEqual(t, stderr, tc.wantStderr)
			}
		})
	}
}

func TestDocComment(t *testing.T) {
	const doc = "/*\nRamses decodes RAMSES-II packets.\n\nIt talks to an evofw3 radio.\n*/\npackage main"
	cli.SetDocComment([]byte(doc))
	t.Cleanup(func() { cli.SetDocComment(nil) })

	_, stderr, err := runTest(t, echoApp, "-h")
	testutil.AssertErrorIs(t, err, flag.ErrHelp)
	testutil.AssertContains(t, stderr, "Ramses decodes RAMSES-II packets.\n\nIt talks to an evofw3 radio.\n")
	testutil.AssertContains(t, stderr, "Available flags:")
}

func TestProfiles(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]struct {
		flag, path string
		wantErr    string
	}{
		"cpu":         {flag: "-cpuprofile", path: filepath.Join(dir, "cpu.prof")},
		"memory":      {flag: "-memprofile", path: filepath.Join(dir, "mem.prof")},
		"cpu missing": {flag: "-cpuprofile", path: filepath.Join(dir, "nonexistent", "cpu.prof"), wantErr: "could not create CPU profile"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := runTest(t, echoApp, tc.flag, tc.path)
			if tc.wantErr != "" {
				if err == nil {
					t.Fatal("want an error")
				}
				testutil.AssertContains(t, err.Error(), tc.wantErr)
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if _, err := os.Stat(tc.path); err != nil {
				t.Errorf("profile not written: %v", err)
			}
		})
	}
}

func TestDispatch(t *testing.T) {
	var ran []string
	cmds := []cli.Command{
		{Name: "parse", Args: "[file]", Help: "Parse a packet log.", Run: func(ctx context.Context) error {
			ran = append(ran, "parse:"+strings.Join(cli.GetEnv(ctx).Args, ","))
			return nil
		}},
		{Name: "listen", Args: "port", Help: "Listen to a port.", Run: func(ctx context.Context) error {
			ran = append(ran, "listen")
			return nil
		}},
	}
	app := cli.AppFunc(func(ctx context.Context) error { return cli.Dispatch(ctx, cmds) })

	cases := map[string]struct {
		args    []string
		wantErr error
		wantRan []string
	}{
		"parse with file": {args: []string{"parse", "pkts.log"}, wantRan: []string{"parse:pkts.log"}},
		"listen":          {args: []string{"listen"}, wantRan: []string{"listen"}},
		"missing command": {args: nil, wantErr: cli.ErrInvalidArgs},
		"unknown command": {args: []string{"dance"}, wantErr: cli.ErrInvalidArgs},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			ran = nil
			_, _, err := runTest(t, app, tc.args...)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("want err %v, got %v", tc.wantErr, err)
			}
			testutil.AssertEqual(t, ran, tc.wantRan)
		})
	}

	var buf bytes.Buffer
	cli.PrintCommands(&buf, cmds)
	testutil.AssertEqual(t, buf.String(), "  parse    [file]   Parse a packet log.\n  listen   port     Listen to a port.\n")
}

func TestPager(t *testing.T) {
	oldIsTerminal := cli.IsTerminal
	cli.IsTerminal = func(fd int) bool { return true }
	t.Cleanup(func() { cli.IsTerminal = oldIsTerminal })

	runWithTerminal := func(t *testing.T, envVars map[string]string, args ...string) (stdout, stderr string, err error) {
		t.Helper()

		r, w, err := os.Pipe()
		if err != nil {
			t.Fatal(err)
		}

		var out bytes.Buffer
		env := &cli.Env{
			Args:   args,
			Stdin:  strings.NewReader(""),
			Stdout: &out,
			Stderr: w,
			Getenv: func(s string) string {
				if v, ok := envVars[s]; ok {
					return v
				}
				return ""
			},
		}
		ctx := cli.WithEnv(context.Background(), env)

		var stderrBytes []byte
		var wg sync.WaitGroup
		wg.Go(func() {
			stderrBytes, _ = io.ReadAll(r)
		})

		runErr := cli.Run(ctx, echoApp)
		w.Close() // Close writer to unblock ReadAll
		wg.Wait()
		r.Close()

		return out.String(), string(stderrBytes), runErr
	}

	t.Run("pager is used", func(t *testing.T) {
		env := map[string]string{"PAGER": "true"}
		_, stderr, err := runWithTerminal(t, env, "-h")

		if !errors.Is(err, flag.ErrHelp) {
			t.Fatalf("expected ErrHelp, got %v", err)
		}
		if stderr != "" {
			t.Errorf("expected empty stderr because pager should have captured output, got: %q", stderr)
		}
	})

	t.Run("NO_PAGER disables pager", func(t *testing.T) {
		env := map[string]string{"PAGER": "true", "NO_PAGER": "1"}
		_, stderr, err := runWithTerminal(t, env, "-h")

		if !errors.Is(err, flag.ErrHelp) {
			t.Fatalf("expected ErrHelp, got %v", err)
		}
		if !strings.Contains(stderr, "Available flags:") {
			t.Errorf("expected help output on stderr, but it was not found. Stderr: %q", stderr)
		}
	})
}
