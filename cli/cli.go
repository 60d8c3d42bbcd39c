// © 2024 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package cli provides helpers for creating command-line applications with a
// single command or a handful of subcommands.
package cli

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"strings"
	"syscall"

	"golang.org/x/term"

	"go.astrophena.name/ramses/logger"
	"go.astrophena.name/ramses/syncx"
	"go.astrophena.name/ramses/version"
)

// Main runs app with the OS environment until it returns or the process is
// interrupted, then exits. Errors are printed to stderr. The exit code is 2
// for [ErrInvalidArgs] and 1 for other errors. Asking for help or the
// version is not an error.
func Main(app App) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := Run(ctx, app)
	cancel()
	os.Exit(exitCode(err, os.Stderr))
}

// exitCode prints err to w if it's worth printing and returns the code to
// exit with.
func exitCode(err error, w io.Writer) int {
	switch {
	case err == nil, errors.Is(err, ErrExitVersion), errors.Is(err, flag.ErrHelp):
		return 0
	case isPrintableError(err):
		fmt.Fprintln(w, err)
	}
	if errors.Is(err, ErrInvalidArgs) {
		return 2
	}
	return 1
}

type unprintableError struct{ err error }

func (e *unprintableError) Error() string { return e.err.Error() }
func (e *unprintableError) Unwrap() error { return e.err }

func isPrintableError(err error) bool {
	if errors.Is(err, flag.ErrHelp) {
		return false
	}
	var ue *unprintableError
	return !errors.As(err, &ue)
}

// ErrExitVersion signals that the application should exit successfully after
// printing the version information.
var ErrExitVersion = &unprintableError{errors.New("version flag exit")}

// ErrInvalidArgs indicates that the user provided invalid command-line
// arguments. It should be wrapped with more specific context about the error.
var ErrInvalidArgs = errors.New("invalid arguments")

// App represents a runnable command-line application.
type App interface {
	// Run executes the application's primary logic.
	Run(context.Context) error
}

// HasFlags is an App that can define its own command-line flags.
type HasFlags interface {
	App

	// Flags registers flags with the given FlagSet.
	Flags(*flag.FlagSet)
}

// AppFunc is an adapter to allow the use of ordinary functions as an App.
type AppFunc func(context.Context) error

// Run calls the underlying function.
func (f AppFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// Command is a subcommand selected by the first positional argument.
type Command struct {
	// Name is matched against the first argument.
	Name string
	// Args describes the expected positional arguments, e.g. "[file]".
	Args string
	// Help is a one-line description.
	Help string
	// Run executes the subcommand. The command name is already removed from
	// the environment's Args.
	Run func(ctx context.Context) error
}

// Dispatch runs the command named by the first argument of the context's
// environment. It returns an error wrapping [ErrInvalidArgs] when no command
// matches.
func Dispatch(ctx context.Context, cmds []Command) error {
	env := GetEnv(ctx)
	if len(env.Args) == 0 {
		return fmt.Errorf("%w: expected a command, one of: %s", ErrInvalidArgs, commandNames(cmds))
	}
	name := env.Args[0]
	for _, c := range cmds {
		if c.Name != name {
			continue
		}
		env.Args = env.Args[1:]
		return c.Run(ctx)
	}
	return fmt.Errorf("%w: unknown command %q, want one of: %s", ErrInvalidArgs, name, commandNames(cmds))
}

func commandNames(cmds []Command) string {
	var buf bytes.Buffer
	for i, c := range cmds {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(c.Name)
	}
	return buf.String()
}

// PrintCommands writes a usage table of cmds to w.
func PrintCommands(w io.Writer, cmds []Command) {
	for _, c := range cmds {
		fmt.Fprintf(w, "  %-8s %-8s %s\n", c.Name, c.Args, c.Help)
	}
}

type ctxKey int

var envKey ctxKey

// GetEnv retrieves the application's environment from a context.
// If the context has no environment, it returns one based on the current OS.
func GetEnv(ctx context.Context) *Env {
	e, ok := ctx.Value(envKey).(*Env)
	if !ok {
		return OSEnv()
	}
	return e
}

// WithEnv returns a new context that carries the provided application environment.
func WithEnv(ctx context.Context, e *Env) context.Context {
	return context.WithValue(ctx, envKey, e)
}

// Env encapsulates the application's environment, including arguments,
// standard I/O streams, and environment variables.
type Env struct {
	Args   []string
	Getenv func(string) string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	logf syncx.Lazy[logger.Logf]
}

// Logf prints a formatted message to the environment's standard error.
func (e *Env) Logf(format string, args ...any) {
	e.logf.Get(func() logger.Logf {
		return log.New(e.Stderr, "", 0).Printf
	})(format, args...)
}

// OSEnv creates an Env based on the current operating system environment.
func OSEnv() *Env {
	return &Env{
		Args:   os.Args[1:],
		Getenv: os.Getenv,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Run executes an application. It parses flags, handles standard flags like
// -version and -cpuprofile, and then runs the app.
func Run(ctx context.Context, app App) error {
	name := version.CmdName()

	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	if fa, ok := app.(HasFlags); ok {
		fa.Flags(flags)
	}

	var (
		cpuProfile = flags.String("cpuprofile", "", "Write CPU profile to `file`.")
		memProfile = flags.String("memprofile", "", "Write memory profile to `file`.")
	)
	var showVersion bool
	if flags.Lookup("version") == nil {
		flags.BoolVar(&showVersion, "version", false, "Show version.")
	}

	env := GetEnv(ctx)

	flags.Usage = usage(flags, env)
	flags.SetOutput(env.Stderr)
	if err := flags.Parse(env.Args); err != nil {
		// Already printed to stderr by flag package, so mark as an unprintable error.
		return &unprintableError{err}
	}
	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			return fmt.Errorf("could not create CPU profile: %w", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("could not start CPU profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	if showVersion {
		fmt.Fprint(env.Stderr, version.Version())
		return ErrExitVersion
	}

	env.Args = flags.Args()

	if err := app.Run(WithEnv(ctx, env)); err != nil {
		return err
	}

	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			return fmt.Errorf("could not create memory profile: %w", err)
		}
		defer f.Close()
		runtime.GC() // get up-to-date statistics
		if err := pprof.WriteHeapProfile(f); err != nil {
			return fmt.Errorf("could not write memory profile: %w", err)
		}
	}

	return nil
}

// IsTerminal reports whether fd refers to a terminal. Tests may replace it.
var IsTerminal = term.IsTerminal

// IsTerminalWriter reports whether w is a terminal.
func IsTerminalWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && IsTerminal(int(f.Fd()))
}

// TerminalWidth returns the width of the terminal behind w, or 0 if w is not
// a terminal.
func TerminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !IsTerminal(int(f.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}

func usage(flags *flag.FlagSet, env *Env) func() {
	return func() {
		var buf bytes.Buffer
		if docSrc != nil {
			fmt.Fprintf(&buf, "%s\n", doc.Get(parseDocComment))
		}
		fmt.Fprint(&buf, "Available flags:\n\n")
		flags.SetOutput(&buf)
		flags.PrintDefaults()
		flags.SetOutput(env.Stderr)
		fmt.Fprint(&buf, "\nHelp is shown through $PAGER when printed to a terminal.\n")
		fmt.Fprint(&buf, "To disable the pager, set the NO_PAGER environment variable.\n")
		page(env, buf.Bytes())
	}
}

// page writes b to env.Stderr, through $PAGER if stderr is a terminal.
func page(env *Env, b []byte) {
	pager := env.Getenv("PAGER")
	if pager == "" {
		pager = "less"
	}
	if env.Getenv("NO_PAGER") != "" || !IsTerminalWriter(env.Stderr) {
		env.Stderr.Write(b)
		return
	}
	cmd := exec.Command(pager)
	cmd.Stdin = bytes.NewReader(b)
	cmd.Stdout = env.Stderr
	cmd.Stderr = env.Stderr
	if err := cmd.Run(); err != nil {
		env.Stderr.Write(b)
	}
}

var (
	docSrc []byte
	doc    syncx.Lazy[string]
)

// SetDocComment sets the main documentation for the application, which is
// displayed when a user passes the -help flag. It is intended to be used with
// Go's //go:embed directive.
//
// Example:
//
//	//go:embed doc.go
//	var doc []byte
//
//	func init() { cli.SetDocComment(doc) }
func SetDocComment(src []byte) { docSrc = src }

// parseDocComment returns the text of the first /* */ comment of docSrc.
func parseDocComment() string {
	var (
		sb        strings.Builder
		inComment bool
	)
	for line := range strings.Lines(string(docSrc)) {
		switch strings.TrimRight(line, "\n") {
		case "/*":
			inComment = true
			continue
		case "*/":
			return sb.String()
		}
		if inComment {
			sb.WriteString(line)
		}
	}
	return sb.String()
}
