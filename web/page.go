// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package web

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/a-h/templ"
)

// StylePath is where [Page] expects its stylesheet to be. [Server] serves
// it.
const StylePath = "/static/style.css"

const style = `body {
  font-family: system-ui, sans-serif;
  margin: 2rem auto;
  max-width: 64rem;
  padding: 0 1rem;
}
table {
  border-collapse: collapse;
  width: 100%;
}
th, td {
  border-bottom: 1px solid #ddd;
  padding: 0.25rem 0.5rem;
  text-align: left;
}
code {
  font-family: ui-monospace, monospace;
}
.error {
  color: #b00;
}
`

func serveStyle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	io.WriteString(w, style)
}

// Page wraps body in an HTML document titled title.
func Page(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>%s</title>
<link rel="stylesheet" href="%s">
</head>
<body>
`, templ.EscapeString(title), StylePath); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</body>\n</html>\n")
		return err
	})
}

// Text renders s escaped.
func Text(s string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, templ.EscapeString(s))
		return err
	})
}

func errorPage(code int, text string, cause error) templ.Component {
	return Page(fmt.Sprintf("%d %s", code, text), templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, "<h1>%d %s</h1>\n", code, templ.EscapeString(text)); err != nil {
			return err
		}
		if cause == nil {
			return nil
		}
		_, err := fmt.Fprintf(w, "<pre class=\"error\">%s</pre>\n", templ.EscapeString(cause.Error()))
		return err
	}))
}
