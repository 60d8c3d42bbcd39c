// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package gateway

import (
	"context"
	"log/slog"
	"time"

	"go.astrophena.name/ramses/logger"
	"go.astrophena.name/ramses/protocol"
)

// Eavesdropping guesses what discovery can't ask for: the class of
// ventilation devices, the sensors of zones and the controller of devices
// that talk to it. The guesses can be wrong.

// sensorWindow is how recent the temperature of a sensor must be to match
// the one its controller announces for a zone.
const sensorWindow = 5 * time.Minute

// eavesdropClass promotes a device whose class is guessed from its type to
// the class its messages show.
func (g *Gateway) eavesdropClass(ctx context.Context, src *Device, msg *protocol.Message) {
	k, ok := protocol.ClassForPair(msg.Verb, msg.Code)
	if !ok || !src.promote(k) {
		return
	}
	logger.Info(ctx, "promoted device class", slog.String("device", string(src.ID)), slog.String("class", string(k)))
	if k == protocol.FAN {
		g.vcs(src.ID)
	}
	if g.disc != nil {
		g.disc.addDevice(src)
	}
}

// eavesdropParent binds a device to the controller it sends to. Radiator
// valves name their zone in the payload.
func (g *Gateway) eavesdropParent(ctx context.Context, src *Device, msg *protocol.Message) {
	if msg.Verb != protocol.I && msg.Verb != protocol.W {
		return
	}
	switch g.classOf(msg.Dst) {
	case protocol.CTL, protocol.PRG:
	default:
		return
	}
	if ctl, _ := src.Parent(); ctl != "" && ctl != msg.Dst {
		return
	}
	sys := g.tcs(msg.Dst)
	var zone string
	if src.Class() == protocol.TRV {
		zone, _ = msg.Map()["zone_idx"].(string)
		if !sys.validZone(zone) {
			zone = ""
		}
	}
	if ctl, z := src.Parent(); ctl == sys.ID && z == zone {
		return
	}
	src.setParent(sys.ID, zone)
	if zone != "" {
		sys.addActuator(zone, src.ID)
	}
	logger.Info(ctx, "eavesdropped a device's controller", slog.String("device", string(src.ID)), slog.String("controller", string(sys.ID)), slog.String("zone", zone))
}

// eavesdropSensors matches the zone temperatures announced by a controller
// to those recently announced by sensors. A zone gets a sensor when exactly
// one candidate matches.
func (g *Gateway) eavesdropSensors(ctx context.Context, sys *System, msg *protocol.Message) {
	if msg.Code != "30C9" || msg.Verb != protocol.I || !msg.HasArray() {
		return
	}
	for _, elem := range msg.Array() {
		idx, _ := elem["zone_idx"].(string)
		temp, ok := elem["temperature"].(float64)
		if !ok {
			continue
		}
		if z, ok := sys.Zone(idx); !ok || z.Sensor != "" {
			continue
		}
		var matches []*Device
		for _, d := range g.devices.All() {
			switch d.Class() {
			case protocol.THM, protocol.TRV, protocol.DTS, protocol.DT2:
			default:
				continue
			}
			if ctl, _ := d.Parent(); ctl != "" && ctl != sys.ID {
				continue
			}
			m := d.latestOf("30C9")
			if m == nil || m.Dtm.After(msg.Dtm) || msg.Dtm.Sub(m.Dtm) > sensorWindow {
				continue
			}
			if t, ok := m.Map()["temperature"].(float64); ok && t == temp {
				matches = append(matches, d)
			}
		}
		if len(matches) != 1 || !sys.setZoneSensor(idx, matches[0].ID) {
			continue
		}
		matches[0].setParent(sys.ID, idx)
		logger.Info(ctx, "eavesdropped a zone sensor", slog.String("device", string(matches[0].ID)), slog.String("zone", idx))
	}
}
