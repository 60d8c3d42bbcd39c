// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package gateway

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"sync"

	"go.astrophena.name/ramses/config"
	"go.astrophena.name/ramses/protocol"
)

// System is a heating system (TCS), keyed by its controller, or a
// ventilation system (VCS), keyed by its fan.
type System struct {
	ID protocol.Address

	mu       sync.RWMutex
	vent     bool
	maxZones int

	// Heating.
	appliance protocol.Address
	dhw       *DHW
	ufcs      map[protocol.Address]bool
	orphans   []protocol.Address
	zones     map[string]*Zone
	faults    map[string]map[string]any
	mode      map[string]any
	datetime  any
	language  string
	tpi       map[string]any
	demand    any

	// Ventilation.
	remotes map[protocol.Address]bool
	sensors map[protocol.Address]bool
	state   map[string]any
}

// Zone is a heating zone of a [System].
type Zone struct {
	Idx         string             `json:"zone_idx"`
	Name        string             `json:"name,omitempty"`
	Class       string             `json:"class,omitempty"`
	Sensor      protocol.Address   `json:"sensor,omitempty"`
	Actuators   []protocol.Address `json:"actuators,omitempty"`
	Setpoint    any                `json:"setpoint"`
	Temperature any                `json:"temperature"`
	HeatDemand  any                `json:"heat_demand"`
	WindowOpen  any                `json:"window_open"`
	Mode        map[string]any     `json:"mode,omitempty"`
	Config      map[string]any     `json:"config,omitempty"`

	demands map[protocol.Address]float64
}

// DHW is the stored hot water of a [System].
type DHW struct {
	Sensor        protocol.Address `json:"sensor,omitempty"`
	HotWaterValve protocol.Address `json:"hotwater_valve,omitempty"`
	HeatingValve  protocol.Address `json:"heating_valve,omitempty"`
	Temperature   any              `json:"temperature"`
	Mode          map[string]any   `json:"mode,omitempty"`
	Params        map[string]any   `json:"params,omitempty"`
}

// zoneClasses maps the zone types of 0005 and 000C to zone classes.
var zoneClasses = map[string]string{
	"08": "RAD",
	"09": "UFH",
	"0A": "VAL",
	"0B": "MIX",
	"11": "ELE",
}

// stateKeys are the parts of 31D9, 31DA, 22F1, 22F3 and 22F7 payloads kept
// as the state of a ventilation system.
var stateKeys = []string{
	"fan_mode", "fan_info", "exhaust_fan_speed", "supply_fan_speed",
	"bypass_mode", "bypass_position", "co2_level", "indoor_humidity",
	"outdoor_humidity", "exhaust_temp", "supply_temp", "indoor_temp",
	"outdoor_temp", "air_quality", "remaining_time", "duration",
	"filter_dirty", "has_fault", "presence_detected",
}

func newSystem(id protocol.Address, vent bool, maxZones int) *System {
	s := &System{ID: id, vent: vent, maxZones: maxZones}
	if vent {
		s.remotes = make(map[protocol.Address]bool)
		s.sensors = make(map[protocol.Address]bool)
		s.state = make(map[string]any)
	} else {
		s.ufcs = make(map[protocol.Address]bool)
		s.zones = make(map[string]*Zone)
		s.faults = make(map[string]map[string]any)
	}
	return s
}

// IsVentilation reports whether s is a ventilation system.
func (s *System) IsVentilation() bool { return s.vent }

type binding struct {
	id   protocol.Address
	zone string
}

// load applies a configured schema and returns the devices it binds.
func (s *System) load(schema config.System) []binding {
	s.mu.Lock()
	defer s.mu.Unlock()
	var bound []binding
	add := func(id protocol.Address, zone string) {
		if id != "" {
			bound = append(bound, binding{id, zone})
		}
	}
	if s.vent {
		for _, id := range schema.Remotes {
			s.remotes[id] = true
			add(id, "")
		}
		for _, id := range schema.Sensors {
			s.sensors[id] = true
			add(id, "")
		}
		return bound
	}
	if schema.System != nil {
		s.appliance = schema.System.ApplianceControl
		add(s.appliance, "")
	}
	if h := schema.StoredHotWater; h != nil {
		s.dhw = &DHW{Sensor: h.Sensor, HotWaterValve: h.HotWaterValve, HeatingValve: h.HeatingValve}
		add(h.Sensor, "HW")
		add(h.HotWaterValve, "HW")
		add(h.HeatingValve, "")
	}
	for id := range schema.UnderfloorHeating {
		s.ufcs[id] = true
		add(id, "")
	}
	s.orphans = slices.Clone(schema.Orphans)
	for _, id := range schema.Orphans {
		add(id, "")
	}
	for idx, zs := range schema.Zones {
		z := s.zone(idx)
		z.Class, z.Sensor, z.Name = zs.Class, zs.Sensor, zs.Name
		z.Actuators = slices.Clone(zs.Actuators)
		add(zs.Sensor, idx)
		for _, id := range zs.Actuators {
			add(id, idx)
		}
	}
	return bound
}

// zone returns the zone with idx, creating it. s.mu must be held.
func (s *System) zone(idx string) *Zone {
	z, ok := s.zones[idx]
	if !ok {
		z = &Zone{Idx: idx, demands: make(map[protocol.Address]float64)}
		s.zones[idx] = z
	}
	return z
}

// validZone reports whether idx names a zone of the system.
func (s *System) validZone(idx string) bool {
	n, err := strconv.ParseUint(idx, 16, 8)
	return err == nil && len(idx) == 2 && int(n) < s.maxZones
}

// Zones returns a copy of the zones of a heating system, ordered by index.
func (s *System) Zones() []Zone {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var zones []Zone
	for _, idx := range slices.Sorted(maps.Keys(s.zones)) {
		zones = append(zones, s.zones[idx].clone())
	}
	return zones
}

// Zone returns a copy of a zone of a heating system.
func (s *System) Zone(idx string) (Zone, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	z, ok := s.zones[idx]
	if !ok {
		return Zone{}, false
	}
	return z.clone(), true
}

func (z *Zone) clone() Zone {
	c := *z
	c.Actuators = slices.Clone(z.Actuators)
	c.Mode = maps.Clone(z.Mode)
	c.Config = maps.Clone(z.Config)
	c.demands = nil
	return c
}

// HotWater returns a copy of the stored hot water of a heating system.
func (s *System) HotWater() (DHW, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dhw == nil {
		return DHW{}, false
	}
	c := *s.dhw
	c.Mode, c.Params = maps.Clone(s.dhw.Mode), maps.Clone(s.dhw.Params)
	return c, true
}

// ApplianceControl returns the OpenTherm bridge or relay controlling the
// heat source.
func (s *System) ApplianceControl() protocol.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.appliance
}

// FaultLog returns the entries of the fault log read so far, most recent
// first.
func (s *System) FaultLog() []map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var log []map[string]any
	for _, idx := range slices.Sorted(maps.Keys(s.faults)) {
		e := maps.Clone(s.faults[idx])
		e["log_idx"] = idx
		log = append(log, e)
	}
	return log
}

// Mode returns the system mode, as decoded from 2E04.
func (s *System) Mode() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.mode)
}

// State returns the state of a ventilation system.
func (s *System) State() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.state)
}

// Remotes returns the remotes of a ventilation system.
func (s *System) Remotes() []protocol.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.remotes))
}

// handleCtl updates a heating system from a message sent by its controller.
// It returns the devices the message binds to the system.
func (s *System) handleCtl(m *protocol.Message) []binding {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.vent || m.Verb == protocol.RQ || m.Verb == protocol.W {
		return nil
	}

	var bound []binding
	for _, elem := range elements(m) {
		idx, isZone := elem["zone_idx"].(string)
		if isZone && !s.validZone(idx) {
			continue
		}
		domain, _ := elem["domain_id"].(string)

		switch m.Code {
		case "0004":
			if name, ok := elem["name"].(string); ok && isZone {
				s.zone(idx).Name = name
			}
		case "0005":
			bound = append(bound, s.handleZoneTypes(elem)...)
		case "000A":
			if isZone {
				s.zone(idx).Config = without(elem, "zone_idx")
			}
		case "000C":
			bound = append(bound, s.handleZoneDevices(idx, domain, elem)...)
		case "0100":
			s.language, _ = elem["language"].(string)
		case "0418":
			if entry, ok := elem["log_entry"].(map[string]any); ok {
				logIdx, _ := elem["log_idx"].(string)
				s.faults[logIdx] = entry
			}
		case "1100":
			if domain == "" || domain == "FC" {
				s.tpi = without(elem, "domain_id")
			}
		case "10A0":
			s.hotWater().Params = without(elem, "dhw_idx")
		case "1260":
			s.hotWater().Temperature = elem["temperature"]
		case "1F41":
			s.hotWater().Mode = without(elem, "dhw_idx")
		case "12B0":
			if isZone {
				s.zone(idx).WindowOpen = elem["window_open"]
			}
		case "2309":
			if isZone {
				s.zone(idx).Setpoint = elem["setpoint"]
			}
		case "2349":
			if isZone {
				z := s.zone(idx)
				z.Setpoint = elem["setpoint"]
				z.Mode = without(elem, "zone_idx", "setpoint")
			}
		case "2E04":
			s.mode = elem
		case "30C9":
			if isZone {
				s.zone(idx).Temperature = elem["temperature"]
			}
		case "313F":
			s.datetime = elem["datetime"]
		case "3150":
			if domain == "FC" {
				s.demand = elem["heat_demand"]
			}
		}
	}
	return bound
}

func (s *System) hotWater() *DHW {
	if s.dhw == nil {
		s.dhw = new(DHW)
	}
	return s.dhw
}

// handleZoneTypes learns the zones of a system from a 0005 zone mask.
func (s *System) handleZoneTypes(elem map[string]any) []binding {
	class, ok := zoneClasses[fmt.Sprint(elem["zone_type"])]
	if !ok {
		return nil
	}
	mask, _ := elem["zone_mask"].([]int)
	for i, bit := range mask {
		if bit != 1 || i >= s.maxZones {
			continue
		}
		z := s.zone(fmt.Sprintf("%02X", i))
		if z.Class == "" {
			z.Class = class
		}
	}
	return nil
}

// handleZoneDevices learns the devices of a zone or domain from 000C.
func (s *System) handleZoneDevices(idx, domain string, elem map[string]any) []binding {
	devs, _ := elem["devices"].([]string)
	if len(devs) == 0 {
		return nil
	}
	typ := fmt.Sprint(elem["zone_type"])
	ids := make([]protocol.Address, len(devs))
	for i, d := range devs {
		ids[i] = protocol.Address(d)
	}

	switch domain {
	case "FC":
		s.appliance = ids[0]
		return []binding{{ids[0], ""}}
	case "FA":
		dhw := s.hotWater()
		if typ == "0D" {
			dhw.Sensor = ids[0]
		} else {
			dhw.HotWaterValve = ids[0]
		}
		return []binding{{ids[0], "HW"}}
	case "F9":
		s.hotWater().HeatingValve = ids[0]
		return []binding{{ids[0], ""}}
	}
	if idx == "" {
		return nil
	}

	z := s.zone(idx)
	var bound []binding
	switch typ {
	case "04":
		z.Sensor = ids[0]
		bound = append(bound, binding{ids[0], idx})
	default:
		if class, ok := zoneClasses[typ]; ok {
			z.Class = class
		}
		for _, id := range ids {
			if !slices.Contains(z.Actuators, id) {
				z.Actuators = append(z.Actuators, id)
			}
			bound = append(bound, binding{id, idx})
		}
		slices.Sort(z.Actuators)
	}
	return bound
}

// setDemand records the heat demand of a zone actuator. The demand of the
// zone is the highest of its actuators.
func (s *System) setDemand(zone string, dev protocol.Address, demand any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	z, ok := s.zones[zone]
	if !ok {
		return
	}
	if d, ok := demand.(float64); ok {
		z.demands[dev] = d
	} else {
		delete(z.demands, dev)
	}
	if len(z.demands) == 0 {
		z.HeatDemand = nil
		return
	}
	z.HeatDemand = slices.Max(slices.Collect(maps.Values(z.demands)))
}

// setZoneClass sets the class of a zone if it isn't known yet.
func (s *System) setZoneClass(zone, class string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if z, ok := s.zones[zone]; ok && (z.Class == "" || z.Class == "ELE" && class == "VAL") {
		z.Class = class
	}
}

// addActuator adds an actuator to a zone, creating the zone.
func (s *System) addActuator(zone string, id protocol.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	z := s.zone(zone)
	if !slices.Contains(z.Actuators, id) {
		z.Actuators = append(z.Actuators, id)
		slices.Sort(z.Actuators)
	}
}

// setDHWTemp records the temperature announced by the hot water sensor.
func (s *System) setDHWTemp(t any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hotWater().Temperature = t
}

// setAppliance records the device controlling the heat source.
func (s *System) setAppliance(id protocol.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appliance = id
}

// setZoneSensor makes id the sensor of a zone if it has none.
func (s *System) setZoneSensor(zone string, id protocol.Address) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	z, ok := s.zones[zone]
	if !ok || z.Sensor != "" {
		return false
	}
	z.Sensor = id
	return true
}

// handleVent updates a ventilation system from a message sent by its fan or
// one of its remotes and sensors.
func (s *System) handleVent(m *protocol.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.vent || m.Verb == protocol.RQ {
		return
	}
	data := m.Map()
	for _, k := range stateKeys {
		if v, ok := data[k]; ok {
			s.state[k] = v
		}
	}
}

// addMember adds a remote or sensor to a ventilation system.
func (s *System) addMember(id protocol.Address, k protocol.Class) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	members := s.sensors
	if k == protocol.REM || k == protocol.DIS {
		members = s.remotes
	}
	if members[id] {
		return false
	}
	members[id] = true
	return true
}

// elements returns the decoded payload of m as a list of elements.
func elements(m *protocol.Message) []map[string]any {
	if arr := m.Array(); arr != nil {
		return arr
	}
	if d := m.Map(); d != nil {
		return []map[string]any{d}
	}
	return nil
}

func without(m map[string]any, keys ...string) map[string]any {
	c := maps.Clone(m)
	for _, k := range keys {
		delete(c, k)
	}
	return c
}
