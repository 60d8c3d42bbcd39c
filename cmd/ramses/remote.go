// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.astrophena.name/ramses/cli"
	"go.astrophena.name/ramses/request"
)

// remote talks to the HTTP API of a ramses serving with -http. It sends
// the command of -exec-cmd and prints the snapshots asked for.
func (a *app) remote(ctx context.Context, base string) error {
	env := cli.GetEnv(ctx)

	if a.scripts() > 0 && a.execCmd == "" {
		return fmt.Errorf("%w: only -exec-cmd runs remotely", cli.ErrInvalidArgs)
	}
	u, err := url.Parse(base)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q is not an HTTP URL", cli.ErrInvalidArgs, base)
	}
	base = strings.TrimSuffix(u.String(), "/")

	out := newPrinter(env.Stdout, a.long, false, nil)

	if a.execCmd != "" {
		msg, err := request.Make[json.RawMessage](ctx, request.Params{
			Method: http.MethodPost,
			URL:    base + "/api/send",
			Body:   map[string]string{"cmd": a.execCmd},
		})
		if err != nil {
			return err
		}
		if err := out.json(msg); err != nil {
			return err
		}
	}

	snaps := make(map[string]json.RawMessage)
	for name, show := range map[string]bool{
		"schema":     a.showSchema,
		"params":     a.showParams,
		"status":     a.showStatus,
		"known_list": a.showKnowns,
		"traits":     a.showTraits,
	} {
		if !show {
			continue
		}
		snap, err := request.Make[json.RawMessage](ctx, request.Params{
			Method: http.MethodGet,
			URL:    base + "/api/" + name,
		})
		if err != nil {
			return err
		}
		snaps[name] = snap
	}
	if len(snaps) == 0 {
		return nil
	}
	return out.json(snaps)
}
