// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"go.astrophena.name/ramses/cli"
	"go.astrophena.name/ramses/protocol"
)

// printer prints messages, colored by verb.
type printer struct {
	mu    sync.Mutex
	w     io.Writer
	long  bool
	width int // 0 if unlimited
	alias func(protocol.Address) string

	verbs map[protocol.Verb]lipgloss.Style
	err   lipgloss.Style
}

func newPrinter(w io.Writer, long, useAliases bool, alias func(protocol.Address) string) *printer {
	r := lipgloss.NewRenderer(w)
	p := &printer{
		w:    w,
		long: long,
		verbs: map[protocol.Verb]lipgloss.Style{
			protocol.I:  r.NewStyle().Foreground(lipgloss.Color("2")),
			protocol.RQ: r.NewStyle().Foreground(lipgloss.Color("6")),
			protocol.RP: r.NewStyle().Foreground(lipgloss.Color("14")),
			protocol.W:  r.NewStyle().Foreground(lipgloss.Color("5")),
		},
		err: r.NewStyle().Foreground(lipgloss.Color("9")),
	}
	if useAliases {
		p.alias = alias
	}
	if !long {
		p.width = cli.TerminalWidth(w)
	}
	return p
}

// line formats msg without colors.
func (p *printer) line(msg *protocol.Message) string {
	if p.long {
		return msg.Dtm.Format(protocol.DtmFormat) + " " + msg.Format(p.alias)
	}
	return truncate(msg.Dtm.Format("15:04:05.000")+" "+msg.Format(p.alias), p.width)
}

func (p *printer) message(msg *protocol.Message) {
	line := p.line(msg)
	if st, ok := p.verbs[msg.Verb]; ok {
		line = st.Render(line)
	}
	p.println(line)
}

func (p *printer) invalid(line string, err error) {
	s := line + " < " + err.Error()
	if !p.long {
		s = truncate(s, p.width)
	}
	p.println(p.err.Render(s))
}

func (p *printer) println(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, s)
}

func (p *printer) json(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	p.println(string(b))
	return nil
}

// truncate cuts s to width runes.
func truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width])
}
