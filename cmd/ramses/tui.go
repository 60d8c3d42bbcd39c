// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"go.astrophena.name/ramses/cli"
	"go.astrophena.name/ramses/gateway"
	"go.astrophena.name/ramses/protocol"
)

const tuiRefresh = time.Second

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	helpStyle  = lipgloss.NewStyle().Faint(true)
	tableStyle = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder())
)

var deviceColumns = []table.Column{
	{Title: "Device", Width: 9},
	{Title: "Class", Width: 5},
	{Title: "Alias", Width: 16},
	{Title: "Controller", Width: 10},
	{Title: "Zone", Width: 4},
	{Title: "Last seen", Width: 8},
	{Title: "Codes", Width: 5},
}

// tuiModel shows the devices of a gateway and its latest message.
type tuiModel struct {
	gw    *gateway.Gateway
	msgs  <-chan *protocol.Message
	table table.Model
	last  string
	stats gateway.Stats
}

type (
	tickMsg    time.Time
	gatewayMsg struct{ msg *protocol.Message }
)

func newTUIModel(gw *gateway.Gateway, msgs <-chan *protocol.Message) tuiModel {
	t := table.New(
		table.WithColumns(deviceColumns),
		table.WithRows(deviceRows(gw)),
		table.WithFocused(true),
		table.WithHeight(20),
	)
	st := table.DefaultStyles()
	st.Header = st.Header.BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).Bold(true)
	t.SetStyles(st)
	return tuiModel{gw: gw, msgs: msgs, table: t, stats: gw.Stats()}
}

// deviceRows returns a row per device of gw.
func deviceRows(gw *gateway.Gateway) []table.Row {
	var rows []table.Row
	for _, d := range gw.Devices() {
		ctl, zone := d.Parent()
		var seen string
		if t := d.LastSeen(); !t.IsZero() {
			seen = t.Format(time.TimeOnly)
		}
		rows = append(rows, table.Row{
			string(d.ID),
			string(d.Class()),
			d.Alias(),
			string(ctl),
			zone,
			seen,
			strconv.Itoa(len(d.Codes())),
		})
	}
	return rows
}

func tick() tea.Cmd {
	return tea.Tick(tuiRefresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m tuiModel) wait() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-m.msgs
		if !ok {
			return nil
		}
		return gatewayMsg{msg}
	}
}

func (m tuiModel) Init() tea.Cmd { return tea.Batch(tick(), m.wait()) }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.table.SetHeight(max(msg.Height-8, 3))
	case tickMsg:
		m.table.SetRows(deviceRows(m.gw))
		m.stats = m.gw.Stats()
		return m, tick()
	case gatewayMsg:
		m.last = truncate(msg.msg.String(), 120)
		return m, m.wait()
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m tuiModel) View() string {
	title := titleStyle.Render(fmt.Sprintf("ramses: %d devices, %d messages", m.stats.Devices, m.stats.Messages))
	return title + "\n" +
		tableStyle.Render(m.table.View()) + "\n" +
		m.last + "\n" +
		helpStyle.Render("↑/↓ to scroll, q to quit") + "\n"
}

// runTUI shows the devices of gw until the user quits or ctx is done.
func runTUI(ctx context.Context, gw *gateway.Gateway) error {
	env := cli.GetEnv(ctx)
	msgs, cancel := gw.Subscribe(16)
	defer cancel()

	p := tea.NewProgram(newTUIModel(gw, msgs),
		tea.WithContext(ctx),
		tea.WithInput(env.Stdin),
		tea.WithOutput(env.Stdout),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
