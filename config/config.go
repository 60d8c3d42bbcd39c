// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package config loads the YAML configuration of a gateway: its options,
// the known and block lists of devices, and the schemas of the systems it
// listens to.
//
// Decoding is strict. Unknown keys, duplicate keys and values of the wrong
// shape are errors.
package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"go.astrophena.name/ramses/logger"
	"go.astrophena.name/ramses/protocol"
)

// ErrInvalid is returned for configurations that don't validate.
var ErrInvalid = errors.New("invalid config")

// DefaultMaxZones is the number of zones a controller has unless configured.
const DefaultMaxZones = 12

// Config is the whole configuration file.
type Config struct {
	// SerialPort is the port used when none is given on the command line.
	SerialPort   string             `yaml:"serial_port"`
	Gateway      Gateway            `yaml:"config"`
	KnownList    DeviceList         `yaml:"known_list"`
	BlockList    DeviceList         `yaml:"block_list"`
	MainTCS      protocol.Address   `yaml:"main_tcs"`
	OrphansHeat  []protocol.Address `yaml:"orphans_heat"`
	OrphansHVAC  []protocol.Address `yaml:"orphans_hvac"`
	RestoreCache RestoreCache       `yaml:"restore_cache"`
	PacketLog    PacketLog          `yaml:"packet_log"`

	// Systems holds the schema of each system, keyed by the id of its
	// controller (or, for ventilation, of its fan).
	Systems map[string]System `yaml:",inline"`
}

// Gateway holds the gateway and engine options.
type Gateway struct {
	DisableDiscovery bool `yaml:"disable_discovery"`
	EnableEavesdrop  bool `yaml:"enable_eavesdrop"`
	MaxZones         int  `yaml:"max_zones"`
	ReduceProcessing int  `yaml:"reduce_processing"`
	UseAliases       bool `yaml:"use_aliases"`
	// UseNativeOT is one of always, prefer, avoid or never.
	UseNativeOT string `yaml:"use_native_ot"`

	DisableSending   bool     `yaml:"disable_sending"`
	EnforceKnownList bool     `yaml:"enforce_known_list"`
	EvofwFlag        string   `yaml:"evofw_flag"`
	UseRegex         UseRegex `yaml:"use_regex"`
}

// Processing levels of [Gateway.ReduceProcessing].
const (
	// DontUpdateEntities stops before the state of devices is updated.
	DontUpdateEntities = 1
	// DontCreateEntities stops before devices are created.
	DontCreateEntities = 2
	// DontCreateMessages only logs packets.
	DontCreateMessages = 3
)

var nativeOTModes = []string{"always", "prefer", "avoid", "never"}

// UseRegex holds the rewrites applied to frames as they are received and
// sent.
type UseRegex struct {
	Inbound  Rewrites `yaml:"inbound"`
	Outbound Rewrites `yaml:"outbound"`
}

// Rewrite replaces the matches of Pattern in a frame by Replacement.
type Rewrite struct {
	Pattern     *regexp.Regexp
	Replacement string
}

// Rewrites is an ordered list of rewrites, written in YAML as a mapping of
// pattern to replacement. Groups are referenced as \1 or ${1}.
type Rewrites []Rewrite

var backref = regexp.MustCompile(`\\(\d+)`)

// UnmarshalYAML implements [yaml.Unmarshaler].
func (r *Rewrites) UnmarshalYAML(node *yaml.Node) error {
	if isNull(node) {
		*r = nil
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return nodeErr(node, "expected a mapping of pattern to replacement")
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]
		re, err := regexp.Compile(k.Value)
		if err != nil {
			return nodeErr(k, "bad pattern: %v", err)
		}
		if v.Kind != yaml.ScalarNode {
			return nodeErr(v, "expected a replacement string")
		}
		*r = append(*r, Rewrite{Pattern: re, Replacement: backref.ReplaceAllString(v.Value, "$${$1}")})
	}
	return nil
}

// Apply applies every rewrite to s in order.
func (r Rewrites) Apply(s string) string {
	for _, rw := range r {
		s = rw.Pattern.ReplaceAllString(s, rw.Replacement)
	}
	return s
}

// DeviceList maps device ids to their traits.
type DeviceList map[protocol.Address]Traits

// Traits are what is known about a device up front.
type Traits struct {
	Class protocol.Class `yaml:"class" json:"class,omitempty"`
	Alias string         `yaml:"alias" json:"alias,omitempty"`
	Faked bool           `yaml:"faked" json:"faked,omitempty"`
	// Scheme is the fan mode scheme of a ventilation device: itho, nuaire
	// or orcon.
	Scheme string `yaml:"scheme" json:"scheme,omitempty"`
	Note   string `yaml:"_note" json:"_note,omitempty"`
}

var listClasses = []protocol.Class{
	protocol.CTL, protocol.UFC, protocol.THM, protocol.TRV, protocol.DHW,
	protocol.OTB, protocol.BDR, protocol.OUT, protocol.HGI, protocol.RFG,
	protocol.FAN, protocol.RFS, protocol.CO2, protocol.HUM, protocol.REM,
	protocol.DIS, protocol.JIM, protocol.JST, protocol.PRG,
}

// RestoreCache says what is restored from a cached state. It is written as
// a bool, or as a mapping with restore_schema and restore_state.
type RestoreCache struct {
	Schema bool `json:"restore_schema"`
	State  bool `json:"restore_state"`
}

// UnmarshalYAML implements [yaml.Unmarshaler].
func (rc *RestoreCache) UnmarshalYAML(node *yaml.Node) error {
	*rc = RestoreCache{Schema: true, State: true}
	if node.Kind == yaml.ScalarNode {
		b, err := boolValue(node)
		if err != nil {
			return err
		}
		*rc = RestoreCache{Schema: b, State: b}
		return nil
	}
	return decodeFields(node, map[string]func(*yaml.Node) error{
		"restore_schema": func(n *yaml.Node) (err error) { rc.Schema, err = boolValue(n); return },
		"restore_state":  func(n *yaml.Node) (err error) { rc.State, err = boolValue(n); return },
	}, nil)
}

// PacketLog configures the packet log. It is written as a file name, or as
// a mapping with file_name, rotate_backups and rotate_bytes.
type PacketLog struct {
	FileName string
	// RotateBackups is the number of old files kept.
	RotateBackups int
	// RotateBytes rotates the file when it grows past this size. Zero
	// rotates it at midnight instead.
	RotateBytes int64
}

// UnmarshalYAML implements [yaml.Unmarshaler].
func (pl *PacketLog) UnmarshalYAML(node *yaml.Node) error {
	*pl = PacketLog{}
	if isNull(node) {
		return nil
	}
	if node.Kind == yaml.ScalarNode {
		pl.FileName = node.Value
		return nil
	}
	return decodeFields(node, map[string]func(*yaml.Node) error{
		"file_name": func(n *yaml.Node) error {
			if isNull(n) || n.Kind != yaml.ScalarNode {
				return nodeErr(n, "expected a file name")
			}
			pl.FileName = n.Value
			return nil
		},
		"rotate_backups": func(n *yaml.Node) error {
			v, err := intValue(n)
			pl.RotateBackups = int(v)
			return err
		},
		"rotate_bytes": func(n *yaml.Node) (err error) { pl.RotateBytes, err = intValue(n); return },
	}, []string{"file_name"})
}

// System is the schema of a heating (TCS) or ventilation (VCS) system.
type System struct {
	System            *SystemControl           `yaml:"system" json:"system,omitempty"`
	StoredHotWater    *StoredHotWater          `yaml:"stored_hotwater" json:"stored_hotwater,omitempty"`
	UnderfloorHeating map[protocol.Address]UFH `yaml:"underfloor_heating" json:"underfloor_heating,omitempty"`
	Orphans           []protocol.Address       `yaml:"orphans" json:"orphans,omitempty"`
	Zones             map[string]Zone          `yaml:"zones" json:"zones,omitempty"`
	IsTCS             bool                     `yaml:"is_tcs" json:"-"`

	Remotes []protocol.Address `yaml:"remotes" json:"remotes,omitempty"`
	Sensors []protocol.Address `yaml:"sensors" json:"sensors,omitempty"`
	IsVCS   bool               `yaml:"is_vcs" json:"-"`
}

// SystemControl is the appliance controlled by a TCS.
type SystemControl struct {
	// ApplianceControl is an OpenTherm bridge or a relay.
	ApplianceControl protocol.Address `yaml:"appliance_control" json:"appliance_control,omitempty"`
}

// StoredHotWater is the hot water circuit of a TCS.
type StoredHotWater struct {
	Sensor        protocol.Address `yaml:"sensor" json:"sensor,omitempty"`
	HotWaterValve protocol.Address `yaml:"hotwater_valve" json:"hotwater_valve,omitempty"`
	HeatingValve  protocol.Address `yaml:"heating_valve" json:"heating_valve,omitempty"`
}

// UFH is an underfloor heating controller of a TCS.
type UFH struct {
	Circuits map[string]map[string]string `yaml:"circuits" json:"circuits,omitempty"`
}

// Zone is a zone of a TCS.
type Zone struct {
	// Class is one of RAD, UFH, VAL, ELE, MIX or DHW.
	Class     string             `yaml:"class" json:"class,omitempty"`
	Sensor    protocol.Address   `yaml:"sensor" json:"sensor,omitempty"`
	Actuators []protocol.Address `yaml:"actuators" json:"actuators,omitempty"`
	Name      string             `yaml:"_name" json:"_name,omitempty"`
}

var zoneClasses = []string{"RAD", "UFH", "VAL", "ELE", "MIX", "DHW"}

// IsVentilation reports whether s is the schema of a ventilation system.
func (s System) IsVentilation() bool {
	return s.Remotes != nil || s.Sensors != nil
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Default returns the configuration used when there is no file.
func Default() *Config {
	return &Config{
		Gateway:      Gateway{MaxZones: DefaultMaxZones, UseNativeOT: "prefer"},
		RestoreCache: RestoreCache{Schema: true, State: true},
		Systems:      map[string]System{},
	}
}

// Parse decodes and validates a configuration.
func Parse(b []byte) (*Config, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(b, &root); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := checkShape(&root); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	c := Default()
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return c, nil
}

// Resolve applies the options that depend on how the gateway is started.
// port is the serial port or address given on the command line, if any.
func (c *Config) Resolve(ctx context.Context, port string) {
	if port == "" {
		port = c.SerialPort
	}
	if port == "" {
		c.Gateway.DisableSending = true
	}
	if c.Gateway.DisableSending {
		c.Gateway.DisableDiscovery = true
	}
	if c.Gateway.EnableEavesdrop {
		logger.Warn(ctx, "enable_eavesdrop is set: devices and their roles will be guessed from the traffic")
	}
	if c.Gateway.EnforceKnownList && len(c.KnownList) == 0 {
		logger.Warn(ctx, "enforce_known_list is set but known_list is empty, not enforcing it")
		c.Gateway.EnforceKnownList = false
	}
}

// Traits returns the known traits of a device.
func (c *Config) Traits(id protocol.Address) (Traits, bool) {
	t, ok := c.KnownList[id]
	return t, ok
}

// Alias returns the alias of a device from the known list, if
// use_aliases is set.
func (c *Config) Alias(id protocol.Address) string {
	if !c.Gateway.UseAliases {
		return ""
	}
	return c.KnownList[id].Alias
}

// Scheme returns the fan scheme of a device from the known list.
func (c *Config) Scheme(id protocol.Address) string { return c.KnownList[id].Scheme }

// Blocked reports whether packets from id must be dropped.
func (c *Config) Blocked(id protocol.Address) bool {
	if _, ok := c.BlockList[id]; ok {
		return true
	}
	if c.Gateway.EnforceKnownList && id.IsDevice() && id.Type() != "18" && id.Type() != "63" {
		_, known := c.KnownList[id]
		return !known
	}
	return false
}

func (c *Config) validate() error {
	g := c.Gateway
	if g.MaxZones < 1 || g.MaxZones > 16 {
		return fmt.Errorf("max_zones: %d is not within 1-16", g.MaxZones)
	}
	if g.ReduceProcessing < 0 || g.ReduceProcessing > DontCreateMessages {
		return fmt.Errorf("reduce_processing: %d is not within 0-%d", g.ReduceProcessing, DontCreateMessages)
	}
	if !slices.Contains(nativeOTModes, g.UseNativeOT) {
		return fmt.Errorf("use_native_ot: %q is not one of %s", g.UseNativeOT, strings.Join(nativeOTModes, ", "))
	}

	for name, list := range map[string]DeviceList{"known_list": c.KnownList, "block_list": c.BlockList} {
		for id, t := range list {
			if err := checkDevice(id); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			if err := t.validate(); err != nil {
				return fmt.Errorf("%s: %s: %w", name, id, err)
			}
		}
	}
	for id := range c.KnownList {
		if _, ok := c.BlockList[id]; ok {
			return fmt.Errorf("%s is in both known_list and block_list", id)
		}
	}

	if c.MainTCS != "" {
		if err := checkController(c.MainTCS); err != nil {
			return fmt.Errorf("main_tcs: %w", err)
		}
	}
	for name, ids := range map[string][]protocol.Address{"orphans_heat": c.OrphansHeat, "orphans_hvac": c.OrphansHVAC} {
		if err := checkUnique(ids); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	for key, s := range c.Systems {
		id := protocol.Address(key)
		if err := checkDevice(id); err != nil {
			return fmt.Errorf("unknown key %q: %w", key, err)
		}
		if err := s.validate(id, g.MaxZones); err != nil {
			return fmt.Errorf("%s: %w", id, err)
		}
	}
	return nil
}

func (t Traits) validate() error {
	if t.Class != "" && !slices.Contains(listClasses, t.Class) {
		return fmt.Errorf("unknown class %q", t.Class)
	}
	if t.Faked && t.Class != "" && !t.Class.Fakeable() {
		return fmt.Errorf("class %s can't be faked", t.Class)
	}
	if t.Scheme != "" {
		if _, ok := protocol.FanSchemes[t.Scheme]; !ok {
			return fmt.Errorf("unknown scheme %q", t.Scheme)
		}
		if t.Class != "" && !t.Class.IsHVAC() {
			return fmt.Errorf("scheme is only for ventilation devices, not %s", t.Class)
		}
	}
	return nil
}

func (s System) validate(id protocol.Address, maxZones int) error {
	if s.IsVentilation() {
		if err := checkUnique(s.Remotes); err != nil {
			return fmt.Errorf("remotes: %w", err)
		}
		return checkUnique(s.Sensors)
	}
	if err := checkController(id); err != nil {
		return err
	}
	if s.System != nil && s.System.ApplianceControl != "" {
		if err := checkType(s.System.ApplianceControl, "10", "13"); err != nil {
			return fmt.Errorf("appliance_control: %w", err)
		}
	}
	if dhw := s.StoredHotWater; dhw != nil {
		if err := checkType(dhw.Sensor, "07"); err != nil {
			return fmt.Errorf("stored_hotwater: sensor: %w", err)
		}
		if err := checkType(dhw.HotWaterValve, "13"); err != nil {
			return fmt.Errorf("stored_hotwater: hotwater_valve: %w", err)
		}
		if err := checkType(dhw.HeatingValve, "13"); err != nil {
			return fmt.Errorf("stored_hotwater: heating_valve: %w", err)
		}
	}
	if len(s.UnderfloorHeating) > 3 {
		return fmt.Errorf("underfloor_heating: at most 3 controllers")
	}
	for ufc := range s.UnderfloorHeating {
		if err := checkType(ufc, "02"); err != nil {
			return fmt.Errorf("underfloor_heating: %w", err)
		}
	}
	if err := checkUnique(s.Orphans); err != nil {
		return fmt.Errorf("orphans: %w", err)
	}
	for idx, z := range s.Zones {
		n, err := strconv.ParseUint(idx, 16, 8)
		if err != nil || len(idx) != 2 || strings.ToUpper(idx) != idx || int(n) >= maxZones {
			return fmt.Errorf("zones: bad zone index %q", idx)
		}
		if z.Class != "" && !slices.Contains(zoneClasses, z.Class) {
			return fmt.Errorf("zones: %s: unknown class %q", idx, z.Class)
		}
		if err := checkType(z.Sensor, "00", "01", "03", "04", "12", "22", "34"); err != nil {
			return fmt.Errorf("zones: %s: sensor: %w", idx, err)
		}
		for _, a := range z.Actuators {
			if err := checkDevice(a); err != nil {
				return fmt.Errorf("zones: %s: actuators: %w", idx, err)
			}
		}
	}
	return nil
}

func checkDevice(id protocol.Address) error {
	a, err := protocol.ParseAddress(string(id))
	if err != nil {
		return err
	}
	if !a.IsDevice() {
		return fmt.Errorf("%s is not a device", id)
	}
	return nil
}

func checkController(id protocol.Address) error {
	return checkType(id, "01", "23")
}

// checkType checks that id, if set, is a device of one of types.
func checkType(id protocol.Address, types ...string) error {
	if id == "" {
		return nil
	}
	if err := checkDevice(id); err != nil {
		return err
	}
	if !slices.Contains(types, id.Type()) {
		return fmt.Errorf("%s must be of type %s", id, strings.Join(types, ", "))
	}
	return nil
}

func checkUnique(ids []protocol.Address) error {
	seen := make(map[protocol.Address]bool, len(ids))
	for _, id := range ids {
		if err := checkDevice(id); err != nil {
			return err
		}
		if seen[id] {
			return fmt.Errorf("%s is listed twice", id)
		}
		seen[id] = true
	}
	return nil
}
