// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package clitest runs table-driven tests against [cli.App] implementations.
package clitest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"

	"go.astrophena.name/ramses/cli"
)

// Case describes a single invocation of an application.
type Case[T cli.App] struct {
	// Args are the command-line arguments, flags included.
	Args []string
	// Stdin is the standard input. Empty if nil.
	Stdin io.Reader
	// Env holds the environment variables visible through Getenv.
	Env map[string]string
	// WantNothingPrinted requires both stdout and stderr to stay empty.
	WantNothingPrinted bool
	// WantInStdout must be a substring of stdout, if set.
	WantInStdout string
	// WantInStderr must be a substring of stderr, if set.
	WantInStderr string
	// WantErr must match the returned error per errors.Is, if set.
	WantErr error
	// WantErrType must match the returned error per errors.As, if set.
	WantErrType error
	// CheckFunc runs after the application for extra assertions.
	CheckFunc func(*testing.T, T)
}

// Run runs every case against a fresh application created by setup.
func Run[T cli.App](t *testing.T, setup func(*testing.T) T, cases map[string]Case[T]) {
	t.Helper()
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			app := setup(t)

			var stdout, stderr bytes.Buffer
			stdin := tc.Stdin
			if stdin == nil {
				stdin = strings.NewReader("")
			}
			env := &cli.Env{
				Args:   tc.Args,
				Stdin:  stdin,
				Stdout: &stdout,
				Stderr: &stderr,
				Getenv: func(key string) string { return tc.Env[key] },
			}
			err := cli.Run(cli.WithEnv(context.Background(), env), app)

			switch {
			case tc.WantErr != nil:
				if !errors.Is(err, tc.WantErr) {
					t.Fatalf("want error %v, got %v", tc.WantErr, err)
				}
			case tc.WantErrType != nil:
				target := reflect.New(reflect.TypeOf(tc.WantErrType))
				if !errors.As(err, target.Interface()) {
					t.Fatalf("want error of type %T, got %v", tc.WantErrType, err)
				}
			case err != nil:
				t.Fatalf("unexpected error: %v", err)
			}

			if tc.WantNothingPrinted && (stdout.Len() > 0 || stderr.Len() > 0) {
				t.Fatalf("want nothing printed, got stdout %q and stderr %q", stdout.String(), stderr.String())
			}
			if tc.WantInStdout != "" && !strings.Contains(stdout.String(), tc.WantInStdout) {
				t.Fatalf("stdout %q does not contain %q", stdout.String(), tc.WantInStdout)
			}
			if tc.WantInStderr != "" && !strings.Contains(stderr.String(), tc.WantInStderr) {
				t.Fatalf("stderr %q does not contain %q", stderr.String(), tc.WantInStderr)
			}
			if tc.CheckFunc != nil {
				tc.CheckFunc(t, app)
			}
		})
	}
}
