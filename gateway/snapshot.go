// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package gateway

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"go.astrophena.name/ramses/config"
	"go.astrophena.name/ramses/protocol"
)

// Snapshots are plain values ready to be encoded as JSON. Schema and
// KnownList use the keys of the configuration file, so they can be pasted
// back into it.

var (
	paramCodes = codeSet("0004", "0009", "000A", "0100", "1030", "10A0", "1100", "22C9", "2349", "1F41")
	// statusCodes are the codes a device reports its state with.
	statusCodes = codeSet(
		"0008", "0016", "1060", "1260", "1290", "1298", "12A0", "12B0", "1F09",
		"22D9", "22F1", "22F3", "22F7", "2309", "2E04", "2E10", "30C9", "313F",
		"3150", "31D9", "31DA", "31E0", "3200", "3210", "3B00", "3EF0", "3EF1",
	)
)

func codeSet(codes ...protocol.Code) map[protocol.Code]bool {
	m := make(map[protocol.Code]bool, len(codes))
	for _, c := range codes {
		m[c] = true
	}
	return m
}

// Schema returns the schema of every system, keyed by controller (or fan),
// plus main_tcs and the devices that aren't part of a system.
func (g *Gateway) Schema() map[string]any {
	schema := make(map[string]any)
	var tcs []protocol.Address
	for _, s := range g.Systems() {
		schema[string(s.ID)] = s.Schema()
		if !s.IsVentilation() {
			tcs = append(tcs, s.ID)
		}
	}
	main := g.cfg.MainTCS
	if main == "" && len(tcs) > 0 {
		main = tcs[0]
	}
	if main != "" {
		schema["main_tcs"] = main
	}

	heat, hvac := []protocol.Address{}, []protocol.Address{}
	for _, d := range g.Devices() {
		if ctl, _ := d.Parent(); ctl != "" {
			continue
		}
		switch k := d.Class(); {
		case k == protocol.HGI || k == protocol.NUL:
		case k.IsHVAC() || !d.ID.IsHeat():
			hvac = append(hvac, d.ID)
		default:
			heat = append(heat, d.ID)
		}
	}
	schema["orphans_heat"] = heat
	schema["orphans_hvac"] = hvac
	return schema
}

// Schema returns the schema of the system, as in a configuration file.
func (s *System) Schema() config.System {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.vent {
		return config.System{
			Remotes: append([]protocol.Address{}, slices.Sorted(maps.Keys(s.remotes))...),
			Sensors: append([]protocol.Address{}, slices.Sorted(maps.Keys(s.sensors))...),
		}
	}
	schema := config.System{
		Orphans: slices.Clone(s.orphans),
		Zones:   make(map[string]config.Zone, len(s.zones)),
	}
	if s.appliance != "" {
		schema.System = &config.SystemControl{ApplianceControl: s.appliance}
	}
	if s.dhw != nil && (s.dhw.Sensor != "" || s.dhw.HotWaterValve != "" || s.dhw.HeatingValve != "") {
		schema.StoredHotWater = &config.StoredHotWater{
			Sensor:        s.dhw.Sensor,
			HotWaterValve: s.dhw.HotWaterValve,
			HeatingValve:  s.dhw.HeatingValve,
		}
	}
	if len(s.ufcs) > 0 {
		schema.UnderfloorHeating = make(map[protocol.Address]config.UFH)
		for id := range s.ufcs {
			schema.UnderfloorHeating[id] = config.UFH{}
		}
	}
	for idx, z := range s.zones {
		schema.Zones[idx] = config.Zone{
			Class:     z.Class,
			Sensor:    z.Sensor,
			Actuators: slices.Clone(z.Actuators),
			Name:      z.Name,
		}
	}
	return schema
}

// Params returns the configuration of every system and device, keyed by
// id.
func (g *Gateway) Params() map[string]any {
	res := make(map[string]any)
	for _, s := range g.Systems() {
		if p := s.params(); p != nil {
			res[string(s.ID)] = p
		}
	}
	for _, d := range g.Devices() {
		if _, ok := res[string(d.ID)]; ok {
			continue
		}
		if p := d.data(paramCodes); len(p) > 0 {
			res[string(d.ID)] = p
		}
	}
	return res
}

func (s *System) params() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.vent {
		return nil
	}
	zones := make(map[string]any, len(s.zones))
	for idx, z := range s.zones {
		zones[idx] = map[string]any{"name": z.Name, "config": z.Config, "mode": z.Mode}
	}
	res := map[string]any{
		"system": map[string]any{"language": s.language, "tpi_params": s.tpi},
		"zones":  zones,
	}
	if s.dhw != nil {
		res["dhw"] = map[string]any{"config": s.dhw.Params, "mode": s.dhw.Mode}
	}
	return res
}

// Status returns the current state of every system and device, keyed by
// id.
func (g *Gateway) Status() map[string]any {
	res := make(map[string]any)
	for _, s := range g.Systems() {
		res[string(s.ID)] = s.status()
	}
	for _, d := range g.Devices() {
		if _, ok := res[string(d.ID)]; ok {
			continue
		}
		if st := d.data(statusCodes); len(st) > 0 {
			res[string(d.ID)] = st
		}
	}
	return res
}

func (s *System) status() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.vent {
		return maps.Clone(s.state)
	}
	zones := make(map[string]any, len(s.zones))
	for idx, z := range s.zones {
		zones[idx] = map[string]any{
			"setpoint":    z.Setpoint,
			"temperature": z.Temperature,
			"heat_demand": z.HeatDemand,
			"window_open": z.WindowOpen,
		}
	}
	res := map[string]any{
		"system": map[string]any{
			"system_mode": s.mode,
			"datetime":    s.datetime,
			"heat_demand": s.demand,
			"fault_count": len(s.faults),
		},
		"zones": zones,
	}
	if s.dhw != nil {
		res["dhw"] = map[string]any{"temperature": s.dhw.Temperature}
	}
	return res
}

// KnownList returns every device as a known list.
func (g *Gateway) KnownList() config.DeviceList {
	list := make(config.DeviceList)
	for _, d := range g.Devices() {
		if d.Class() == protocol.NUL {
			continue
		}
		list[d.ID] = d.traits()
	}
	return list
}

// DeviceTraits is what is known of a device: its traits, where it belongs
// and the codes it sends.
type DeviceTraits struct {
	config.Traits
	Parent   protocol.Address `json:"parent,omitempty"`
	Zone     string           `json:"zone_idx,omitempty"`
	LastSeen time.Time        `json:"last_seen,omitzero"`
	Codes    []string         `json:"codes"`
}

// Traits returns the traits of every device, keyed by id.
func (g *Gateway) Traits() map[protocol.Address]DeviceTraits {
	res := make(map[protocol.Address]DeviceTraits)
	for _, d := range g.Devices() {
		res[d.ID] = d.deviceTraits()
	}
	return res
}

// DeviceTraits returns the traits of a device, or [ErrUnknownDevice].
func (g *Gateway) DeviceTraits(id protocol.Address) (DeviceTraits, error) {
	d, ok := g.Device(id)
	if !ok {
		return DeviceTraits{}, fmt.Errorf("%w: %s", ErrUnknownDevice, id)
	}
	return d.deviceTraits(), nil
}

func (d *Device) deviceTraits() DeviceTraits {
	ctl, zone := d.Parent()
	codes := d.Codes()
	if codes == nil {
		codes = []string{}
	}
	return DeviceTraits{
		Traits:   d.traits(),
		Parent:   ctl,
		Zone:     zone,
		LastSeen: d.LastSeen(),
		Codes:    codes,
	}
}
