// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package gateway

import (
	"context"
	"fmt"
	"log/slog"

	"go.astrophena.name/ramses/config"
	"go.astrophena.name/ramses/logger"
	"go.astrophena.name/ramses/packetlog"
	"go.astrophena.name/ramses/protocol"
)

// handle runs a packet through the pipeline.
func (g *Gateway) handle(ctx context.Context, pkt *protocol.Packet) {
	g.packets.Add(1)
	if g.opts.PacketLog != nil {
		packetlog.Packet(ctx, g.opts.PacketLog, pkt)
	}
	g.pkts.Publish(pkt)
	if g.cfg.Gateway.ReduceProcessing >= config.DontCreateMessages {
		return
	}

	msg, err := g.process(ctx, pkt)
	if err != nil {
		if !pkt.KnownBad {
			logger.Warn(ctx, "invalid message", slog.String("packet", pkt.LogLine()), logger.Err(err))
		}
		if g.opts.OnInvalid != nil {
			g.opts.OnInvalid(ctx, pkt, err)
		}
		return
	}
	g.messages.Add(1)
	if g.opts.OnMessage != nil {
		g.opts.OnMessage(ctx, msg)
	}
	g.msgs.Publish(msg)
}

func (g *Gateway) process(ctx context.Context, pkt *protocol.Packet) (*protocol.Message, error) {
	msg, err := protocol.NewMessage(pkt, g.parseOptions())
	if err != nil {
		return nil, err
	}
	g.mergeArray(msg)

	if err := g.checkAddrs(ctx, msg); err != nil {
		return nil, err
	}
	if err := g.checkSrc(ctx, msg); err != nil {
		return nil, err
	}
	if msg.Dst != msg.Src || msg.Verb != protocol.I {
		if err := g.checkDst(ctx, msg); err != nil {
			return nil, err
		}
	}

	reduce := g.cfg.Gateway.ReduceProcessing
	if reduce < config.DontCreateEntities {
		g.createEntities(ctx, msg)
	}
	if reduce < config.DontUpdateEntities {
		g.updateEntities(ctx, msg)
	}
	if g.disc != nil {
		g.disc.seen(msg)
	}
	return msg, nil
}

// mergeArray merges msg with the previous fragment of the same array.
func (g *Gateway) mergeArray(msg *protocol.Message) {
	if (msg.Code != "000A" && msg.Code != "22C9") || msg.Verb != protocol.I {
		return
	}
	key := arrayKey{msg.Src, msg.Code}
	g.mu.Lock()
	defer g.mu.Unlock()
	if prev := g.arrays[key]; prev != nil && prev.HasArray() {
		msg.MergeArray(prev, g.parseOptions())
	}
	if msg.HasArray() {
		g.arrays[key] = msg
	} else {
		delete(g.arrays, key)
	}
}

// classOf returns the class of a device, whether it has been seen or not.
func (g *Gateway) classOf(id protocol.Address) protocol.Class {
	if d, ok := g.devices.Load(id); ok {
		return d.Class()
	}
	if t, ok := g.cfg.Traits(id); ok && t.Class != "" {
		return t.Class
	}
	return id.Class()
}

// invalid reports a message that breaks the rules of the code tables. It is
// an error with enforce_known_list set, and a warning otherwise.
func (g *Gateway) invalid(ctx context.Context, msg *protocol.Message, format string, args ...any) error {
	reason := fmt.Sprintf(format, args...)
	if g.cfg.Gateway.EnforceKnownList {
		return fmt.Errorf("%w: %s: %s", protocol.ErrPacketInvalid, reason, msg.Frame)
	}
	logger.Warn(ctx, reason, slog.String("frame", msg.Frame.String()))
	return nil
}

// checkAddrs checks that the source and destination of msg make sense
// together.
func (g *Gateway) checkAddrs(ctx context.Context, msg *protocol.Message) error {
	if msg.Src == msg.Dst || !msg.Dst.IsDevice() || msg.Src.Type() != msg.Dst.Type() {
		return nil
	}
	if msg.Code.HeatOnly() {
		return fmt.Errorf("%w: invalid src/dst pair %s/%s: %s", protocol.ErrCorruptAddr, msg.Src, msg.Dst, msg.Frame)
	}
	if !msg.Code.HVACOnly() {
		logger.Warn(ctx, "invalid src/dst pair, is it HVAC?", slog.String("frame", msg.Frame.String()))
	}
	return nil
}

// checkSrc checks that the source of msg may send it.
func (g *Gateway) checkSrc(ctx context.Context, msg *protocol.Message) error {
	k := g.classOf(msg.Src)
	switch k {
	case protocol.HGI, protocol.DEV, protocol.HEA, protocol.HVC:
		return nil
	}
	if !k.Known() {
		if msg.Code != "10E0" && !msg.Code.HVACOnly() {
			return g.invalid(ctx, msg, "unknown src type %s", msg.Src)
		}
		logger.Warn(ctx, "unknown src type, is it HVAC?", slog.String("frame", msg.Frame.String()))
		return nil
	}
	verbOK, codeOK := k.Transmits(msg.Code, msg.Verb)
	switch {
	case !codeOK:
		return g.invalid(ctx, msg, "invalid code for %s (%s) to send: %s", msg.Src, k, msg.Code)
	case !verbOK:
		return g.invalid(ctx, msg, "invalid verb/code for %s (%s) to send: %s/%s", msg.Src, k, msg.Verb.Short(), msg.Code)
	}
	return nil
}

// replyVerbs maps the verb a device receives to the one it answers with.
var replyVerbs = map[protocol.Verb]protocol.Verb{
	protocol.RQ: protocol.RP,
	protocol.RP: protocol.RQ,
	protocol.W:  protocol.I,
}

// checkDst checks that the destination of msg may receive it.
func (g *Gateway) checkDst(ctx context.Context, msg *protocol.Message) error {
	if !msg.Dst.IsDevice() || msg.Verb == protocol.I {
		return nil
	}
	k := g.classOf(msg.Dst)
	switch k {
	case protocol.HGI, protocol.DEV, protocol.HEA, protocol.HVC, protocol.NUL:
		return nil
	}
	if !k.Known() {
		if !msg.Code.HVACOnly() {
			return g.invalid(ctx, msg, "unknown dst type %s", msg.Dst)
		}
		logger.Warn(ctx, "unknown dst type, is it HVAC?", slog.String("frame", msg.Frame.String()))
		return nil
	}
	// Known exceptions to the code tables.
	switch {
	case k == protocol.CTL && msg.Verb == protocol.RQ && msg.Code == "3EF1",
		k == protocol.BDR && msg.Verb == protocol.RQ && msg.Code == "3EF0",
		msg.Verb == protocol.W && msg.Code == "0001":
		return nil
	}
	verbOK, codeOK := k.Transmits(msg.Code, replyVerbs[msg.Verb])
	switch {
	case !codeOK:
		return g.invalid(ctx, msg, "invalid code for %s (%s) to receive: %s", msg.Dst, k, msg.Code)
	case !verbOK:
		return g.invalid(ctx, msg, "invalid verb/code for %s (%s) to receive: %s/%s", msg.Dst, k, msg.Verb.Short(), msg.Code)
	}
	return nil
}

// newDevice returns the device with id, creating it and logging it if
// needed.
func (g *Gateway) newDevice(ctx context.Context, id protocol.Address) *Device {
	if d, ok := g.devices.Load(id); ok {
		return d
	}
	d := g.device(id)
	logger.Info(ctx, "found a new device", slog.String("device", string(id)), slog.String("class", string(d.Class())))
	return d
}

// createEntities creates the devices and systems named by the addresses of
// msg.
func (g *Gateway) createEntities(ctx context.Context, msg *protocol.Message) {
	eavesdrop := g.cfg.Gateway.EnableEavesdrop
	src := g.newDevice(ctx, msg.Src)
	if eavesdrop {
		g.eavesdropClass(ctx, src, msg)
	}
	if eavesdrop && msg.Dst.IsDevice() && msg.Dst != msg.Src && msg.Dst != protocol.NullDevice && src.Class() != protocol.HGI {
		g.newDevice(ctx, msg.Dst)
	}
	switch src.Class() {
	case protocol.CTL, protocol.PRG:
		g.tcs(src.ID)
	case protocol.FAN:
		g.vcs(src.ID)
	}
}

// ventCodes are sent to a fan by its remotes and sensors.
var ventCodes = map[protocol.Code]bool{
	"1298": true, "12A0": true, "22F1": true, "22F3": true, "22F7": true, "2E10": true,
}

// updateEntities updates the state of the entities msg is about.
func (g *Gateway) updateEntities(ctx context.Context, msg *protocol.Message) {
	src, ok := g.devices.Load(msg.Src)
	if !ok {
		return
	}
	src.record(msg)

	switch src.Class() {
	case protocol.CTL, protocol.PRG:
		g.updateTCS(ctx, g.tcs(src.ID), msg)
	case protocol.FAN:
		g.vcs(src.ID).handleVent(msg)
	default:
		g.updateMember(ctx, src, msg)
	}

	if dst, ok := g.devices.Load(msg.Dst); ok && dst != src && dst.Class() == protocol.FAN && ventCodes[msg.Code] {
		sys := g.vcs(dst.ID)
		sys.handleVent(msg)
		if g.cfg.Gateway.EnableEavesdrop && sys.addMember(src.ID, src.Class()) {
			src.setParent(sys.ID, "")
			logger.Info(ctx, "eavesdropped a ventilation device", slog.String("device", string(src.ID)), slog.String("fan", string(sys.ID)))
		}
	}
}

// updateTCS updates a heating system from a message of its controller.
func (g *Gateway) updateTCS(ctx context.Context, sys *System, msg *protocol.Message) {
	for _, b := range sys.handleCtl(msg) {
		g.newDevice(ctx, b.id).setParent(sys.ID, b.zone)
	}
	// The controller polls its appliance control for its state.
	if msg.Verb == protocol.RQ && (msg.Code == "3220" || msg.Code == "3EF0") && (msg.Dst.Type() == "10" || msg.Dst.Type() == "13") {
		if sys.ApplianceControl() != msg.Dst {
			sys.setAppliance(msg.Dst)
			g.newDevice(ctx, msg.Dst).setParent(sys.ID, "")
		}
	}
	if g.cfg.Gateway.EnableEavesdrop {
		g.eavesdropSensors(ctx, sys, msg)
	}
}

// updateMember updates the system of a device from one of its messages.
func (g *Gateway) updateMember(ctx context.Context, src *Device, msg *protocol.Message) {
	if g.cfg.Gateway.EnableEavesdrop {
		g.eavesdropParent(ctx, src, msg)
	}
	ctl, zone := src.Parent()
	if ctl == "" || ctl == src.ID {
		return
	}
	sys, ok := g.systems.Load(ctl)
	if !ok {
		return
	}
	if sys.IsVentilation() {
		sys.handleVent(msg)
		return
	}
	if msg.Verb != protocol.I && msg.Verb != protocol.RP {
		return
	}
	data := msg.Map()
	switch {
	case msg.Code == "3150" && zone != "" && zone != "HW" && src.Class() != protocol.UFC:
		sys.setDemand(zone, src.ID, data["heat_demand"])
		if g.cfg.Gateway.EnableEavesdrop {
			switch src.Class() {
			case protocol.TRV:
				sys.setZoneClass(zone, "RAD")
			case protocol.BDR:
				sys.setZoneClass(zone, "VAL")
			}
		}
	case msg.Code == "1260" && src.Class() == protocol.DHW:
		sys.setDHWTemp(data["temperature"])
	case (msg.Code == "0008" || msg.Code == "0009") && zone != "" && g.cfg.Gateway.EnableEavesdrop:
		sys.setZoneClass(zone, "ELE")
	}
}
