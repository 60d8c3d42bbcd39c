// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"go.astrophena.name/ramses/logger"
	"go.astrophena.name/ramses/protocol"
	"go.astrophena.name/ramses/unwrap"
)

// Scripts send a series of commands and collect the responses. Each one is
// marked in the packet log by a puzzle packet before and after.

// maxFaults is how many entries a fault log holds.
const maxFaults = 64

// script runs f between the puzzle packets marking the start and end of a
// script.
func (g *Gateway) script(ctx context.Context, name string, f func() error) error {
	// Puzzles are truncated to fit, so building them can't fail.
	begin := unwrap.Value(protocol.Puzzle("Script begins: "+name, g.opts.Now()))
	begin.QoS.Priority = protocol.PriorityHigh
	if _, err := g.tr.Send(ctx, begin); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	logger.Info(ctx, "script started", slog.String("script", name))

	ferr := f()

	done := unwrap.Value(protocol.Puzzle("Script done.", g.opts.Now()))
	done.QoS.Priority = protocol.PriorityLow
	if _, err := g.tr.Send(ctx, done); err != nil && ctx.Err() == nil {
		ferr = errors.Join(ferr, err)
	}
	logger.Info(ctx, "script done", slog.String("script", name), logger.Err(ferr))
	return ferr
}

// ExecCmd sends a command given in its short form ("RQ 01:145038 1F09 00")
// or as a frame, and returns the response.
func (g *Gateway) ExecCmd(ctx context.Context, s string) (*protocol.Message, error) {
	cmd, err := protocol.FromCLI(s)
	if err != nil {
		return nil, err
	}
	cmd.QoS.Priority = protocol.PriorityHigh
	cmd.QoS.Retries = 3

	var msg *protocol.Message
	err = g.script(ctx, "exec_cmd", func() error {
		var err error
		msg, err = g.Send(ctx, cmd)
		return err
	})
	return msg, err
}

// GetFaults reads the fault log of a controller, up to limit entries. It
// stops at the first empty entry.
func (g *Gateway) GetFaults(ctx context.Context, ctl protocol.Address, limit int) ([]map[string]any, error) {
	if limit <= 0 || limit > maxFaults {
		limit = maxFaults
	}
	var faults []map[string]any
	err := g.script(ctx, "get_faults", func() error {
		for idx := range limit {
			cmd, err := protocol.GetSystemLogEntry(ctl, idx)
			if err != nil {
				return err
			}
			msg, err := g.Send(ctx, cmd)
			if err != nil {
				return fmt.Errorf("log entry %d: %w", idx, err)
			}
			entry, _ := msg.Map()["log_entry"].(map[string]any)
			if entry == nil {
				return nil
			}
			fault := map[string]any{"log_idx": fmt.Sprintf("%02X", idx)}
			for k, v := range entry {
				fault[k] = v
			}
			faults = append(faults, fault)
		}
		return nil
	})
	return faults, err
}

// GetSchedule reads the schedule of a zone of a controller, or of its hot
// water if zone is "HW".
func (g *Gateway) GetSchedule(ctx context.Context, ctl protocol.Address, zone string) (*protocol.Schedule, error) {
	n := -1
	if zone != "HW" {
		idx, err := strconv.ParseUint(zone, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("bad zone %q: %w", zone, err)
		}
		n = int(idx)
	}

	b := protocol.NewScheduleBuilder(zone)
	err := g.script(ctx, "get_schedule", func() error {
		for !b.Done() {
			cmd, err := protocol.GetScheduleFragment(ctl, n, b.Next(), b.Total())
			if err != nil {
				return err
			}
			msg, err := g.Send(ctx, cmd)
			if err != nil {
				return fmt.Errorf("fragment %d: %w", b.Next(), err)
			}
			if _, err := b.Add(msg); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return b.Schedule()
}

// scan sends cmds one after the other and returns the responses it got.
// A command that fails is skipped.
func (g *Gateway) scan(ctx context.Context, cmds []*protocol.Command) []*protocol.Message {
	var msgs []*protocol.Message
	for _, cmd := range cmds {
		msg, err := g.Send(ctx, cmd)
		if ctx.Err() != nil {
			break
		}
		if err != nil {
			logger.Debug(ctx, "no response", slog.String("cmd", cmd.String()), logger.Err(err))
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs
}

func rq(dst protocol.Address, code protocol.Code, payload string, retries int) (*protocol.Command, error) {
	cmd, err := protocol.FromAttrs(protocol.RQ, dst, code, payload)
	if err != nil {
		return nil, err
	}
	cmd.QoS.Retries = retries
	return cmd, nil
}

// ScanDisc asks a device what discovery would: its description, its
// signal strength and its bindings.
func (g *Gateway) ScanDisc(ctx context.Context, id protocol.Address) ([]*protocol.Message, error) {
	var cmds []*protocol.Command
	for _, c := range []struct {
		code    protocol.Code
		payload string
	}{{"10E0", "00"}, {"0016", "00FF"}, {"1FC9", "00"}} {
		cmd, err := rq(id, c.code, c.payload, 1)
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, cmd)
	}
	var msgs []*protocol.Message
	err := g.script(ctx, "scan_disc", func() error {
		msgs = g.scan(ctx, cmds)
		return ctx.Err()
	})
	return msgs, err
}

// scanFullCmds returns the commands of a full scan of a device: an RQ of
// every known code, with the payloads some codes need.
func scanFullCmds(id protocol.Address) []*protocol.Command {
	var cmds []*protocol.Command
	add := func(cmd *protocol.Command, err error) {
		if err == nil {
			cmds = append(cmds, cmd)
		}
	}

	add(rq(id, "0016", "0000", 5))
	for _, code := range protocol.Codes() {
		switch code {
		case "0016", "7FFF":
		case "0005":
			for typ := range 0x14 {
				add(rq(id, code, fmt.Sprintf("00%02X", typ), 1))
			}
		case "000C":
			for zone := range 0x10 {
				add(rq(id, code, fmt.Sprintf("%02X00", zone), 1))
			}
		case "0404":
			add(protocol.GetScheduleFragment(id, -1, 1, 0))
			add(protocol.GetScheduleFragment(id, 0, 1, 0))
		case "0418":
			for idx := range 2 {
				add(protocol.GetSystemLogEntry(id, idx))
			}
		case "1100":
			add(protocol.GetTPIParams(id))
		case "2E04":
			add(protocol.GetSystemMode(id))
		case "3220":
			for _, msgID := range []byte{0x00, 0x03} {
				add(protocol.GetOpenThermData(id, msgID))
			}
		default:
			if !protocol.HasVerb(code, protocol.RQ) {
				continue
			}
			payload := "0000"
			if protocol.ValidPayload(protocol.RQ, code, "00") {
				payload = "00"
			}
			add(rq(id, code, payload, 1))
		}
	}
	for _, cmd := range cmds {
		cmd.QoS.Retries = min(cmd.QoS.Retries, 1)
	}
	cmds[0].QoS.Retries = 5
	return cmds
}

// ScanFull asks a device for every code it may know of. It takes a while.
func (g *Gateway) ScanFull(ctx context.Context, id protocol.Address) ([]*protocol.Message, error) {
	cmds := scanFullCmds(id)
	var msgs []*protocol.Message
	err := g.script(ctx, "scan_full", func() error {
		msgs = g.scan(ctx, cmds)
		return ctx.Err()
	})
	return msgs, err
}

// PollDevice asks a device for its signal strength and bindings every
// interval, until ctx is done.
func (g *Gateway) PollDevice(ctx context.Context, id protocol.Address, interval time.Duration) error {
	var cmds []*protocol.Command
	for _, code := range []protocol.Code{"0016", "1FC9"} {
		cmd, err := rq(id, code, "00", 0)
		if err != nil {
			return err
		}
		cmd.QoS.Priority = protocol.PriorityLow
		cmds = append(cmds, cmd)
	}

	return g.script(ctx, "poll_device", func() error {
		t := time.NewTicker(max(interval, time.Second))
		defer t.Stop()
		for {
			for _, cmd := range cmds {
				if _, err := g.Send(ctx, cmd); errors.Is(err, ErrSendingDisabled) {
					return err
				}
			}
			select {
			case <-ctx.Done():
				return nil
			case <-t.C:
			}
		}
	})
}
