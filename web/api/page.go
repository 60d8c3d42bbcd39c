// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/a-h/templ"

	"go.astrophena.name/ramses/gateway"
	"go.astrophena.name/ramses/version"
	"go.astrophena.name/ramses/web"
)

func (h *Handler) statusPage() http.Handler {
	return templ.Handler(web.Page(version.CmdName(), devicesTable(h.gw)))
}

// devicesTable lists the devices of g as they are when it's rendered.
func devicesTable(g *gateway.Gateway) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		st := g.Stats()
		var b strings.Builder
		fmt.Fprintf(&b, "<h1>%s</h1>\n", templ.EscapeString(version.CmdName()))
		fmt.Fprintf(&b, "<p>%d packets, %d messages, %d devices. <a href=\"/events\">Live messages</a>.</p>\n", st.Packets, st.Messages, st.Devices)
		b.WriteString("<table>\n<thead><tr><th>Device</th><th>Class</th><th>Alias</th><th>Controller</th><th>Zone</th><th>Last seen</th><th>Codes</th></tr></thead>\n<tbody>\n")
		for _, d := range g.Devices() {
			ctl, zone := d.Parent()
			var seen string
			if t := d.LastSeen(); !t.IsZero() {
				seen = t.Format(time.DateTime)
			}
			fmt.Fprintf(&b, "<tr><td><a href=\"/api/devices/%[1]s\"><code>%[1]s</code></a></td><td>%s</td><td>%s</td><td><code>%s</code></td><td>%s</td><td>%s</td><td>%d</td></tr>\n",
				templ.EscapeString(string(d.ID)),
				templ.EscapeString(string(d.Class())),
				templ.EscapeString(d.Alias()),
				templ.EscapeString(string(ctl)),
				templ.EscapeString(zone),
				seen,
				len(d.Codes()),
			)
		}
		b.WriteString("</tbody>\n</table>\n")
		_, err := io.WriteString(w, b.String())
		return err
	})
}
