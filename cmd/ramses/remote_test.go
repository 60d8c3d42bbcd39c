// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.astrophena.name/ramses/cli"
	"go.astrophena.name/ramses/cli/clitest"
	"go.astrophena.name/ramses/config"
	"go.astrophena.name/ramses/gateway"
	"go.astrophena.name/ramses/request"
	"go.astrophena.name/ramses/web"
	"go.astrophena.name/ramses/web/api"
)

func TestRemote(t *testing.T) {
	radio := &fakeRadio{replies: map[string]string{
		"RQ --- 18:000730 01:145038 --:------ 1F09 001 00": "RP --- 01:145038 18:000730 --:------ 1F09 003 0004B5",
	}}
	gw := gateway.New(config.Default(), radio, gateway.Options{})
	h := api.New(gw)
	mux := http.NewServeMux()
	h.Register(mux, web.NewCSPMux())
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	clitest.Run(t, func(*testing.T) *app { return new(app) }, map[string]clitest.Case[*app]{
		"no url": {
			Args:    []string{"remote"},
			WantErr: cli.ErrInvalidArgs,
		},
		"not http": {
			Args:    []string{"remote", "/dev/ttyUSB0"},
			WantErr: cli.ErrInvalidArgs,
		},
		"script": {
			Args:    []string{"-get-faults", "01:145038", "remote", srv.URL},
			WantErr: cli.ErrInvalidArgs,
		},
		"exec cmd": {
			Args:         []string{"-exec-cmd", "RQ 01:145038 1F09 00", "remote", srv.URL + "/"},
			WantInStdout: `"frame": "RP --- 01:145038 18:000730 --:------ 1F09 003 0004B5"`,
		},
		"unanswered": {
			Args:        []string{"-exec-cmd", "RQ 01:145038 2E04 FF", "remote", srv.URL},
			WantErrType: new(request.StatusError),
		},
		"snapshots": {
			Args:         []string{"-show-knowns", "-show-schema", "remote", srv.URL},
			WantInStdout: `"known_list": {`,
		},
	})
}
