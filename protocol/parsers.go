// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package protocol

import (
	"fmt"
	"strings"
	"time"

	"go.astrophena.name/ramses/opentherm"
)

// ParseOptions tunes payload decoding.
type ParseOptions struct {
	// MaxZones limits the zone masks of 0005. Defaults to 16.
	MaxZones int
	// Scheme returns the fan scheme (itho, nuaire or orcon) of a device, as
	// configured in the known list. It may be nil.
	Scheme func(Address) string
}

type parseCtx struct {
	pkt  *Packet
	opts ParseOptions
}

func (c *parseCtx) verb() Verb { return c.pkt.Verb }
func (c *parseCtx) len() int   { return c.pkt.Len() }

type parserFunc func(c *parseCtx, p string) (any, error)

// elements applies f to each element of an array payload.
func elements(c *parseCtx, p string, size int, f func(c *parseCtx, seqx string) (map[string]any, error)) (any, error) {
	if !c.pkt.HasArray() {
		return f(c, p)
	}
	var out []map[string]any
	for i := 0; i+size*2 <= len(p); i += size * 2 {
		elem, err := f(c, p[i:i+size*2])
		if err != nil {
			return nil, err
		}
		out = append(out, withIdx(c.pkt.Code, c.pkt.Src, p[i:i+2], elem))
	}
	return out, nil
}

// withIdx adds the index to m under its proper key.
func withIdx(code Code, src Address, idx string, m map[string]any) map[string]any {
	out := map[string]any{idxKey(code, src, idx): idx}
	for k, v := range m {
		out[k] = v
	}
	return out
}

// idxKey names the index of a payload.
func idxKey(code Code, src Address, idx string) string {
	switch code {
	case "0418":
		return "log_idx"
	case "10A0", "1260", "1F41":
		return "dhw_idx"
	case "22C9":
		return "ufh_idx"
	case "3150":
		if src.Type() == "02" {
			return "ufh_idx"
		}
	case "0002", "2389", "2D49":
		return "other_idx"
	case "31D9", "31DA":
		return "hvac_id"
	}
	switch {
	case idx == "HW":
		return "dhw_idx"
	case strings.HasPrefix(idx, "F"):
		return "domain_id"
	}
	return "zone_idx"
}

var parsers = map[Code]parserFunc{
	"0001": parse0001,
	"0002": tempAt(2, "temperature"),
	"0004": parse0004,
	"0005": parse0005,
	"0006": parse0006,
	"0008": parse0008,
	"0009": parse0009,
	"000A": parse000A,
	"000C": parse000C,
	"0016": parse0016,
	"0100": parse0100,
	"0404": parse0404,
	"0418": parse0418,
	"1030": parse1030,
	"1060": parse1060,
	"1081": tempAt(2, "setpoint"),
	"10A0": parse10A0,
	"10E0": parse10E0,
	"1100": parse1100,
	"1260": tempAt(2, "temperature"),
	"1290": tempAt(2, "temperature"),
	"1298": parse1298,
	"12A0": parse12A0,
	"12B0": parse12B0,
	"12C0": parse12C0,
	"12F0": tempAt(2, "dhw_flow_rate"),
	"1300": tempAt(2, "pressure"),
	"1F09": parse1F09,
	"1F41": parse1F41,
	"1FC9": parse1FC9,
	"1FD4": parse1FD4,
	"2249": parse2249,
	"22C9": parse22C9,
	"22D9": tempAt(2, "setpoint"),
	"22F1": parse22F1,
	"22F3": parse22F3,
	"22F7": parse22F7,
	"2309": parse2309,
	"2349": parse2349,
	"2E04": parse2E04,
	"2E10": parse2E10,
	"30C9": parse30C9,
	"313F": parse313F,
	"3150": parse3150,
	"31D9": parse31D9,
	"31DA": parse31DA,
	"31E0": parse31E0,
	"3200": tempAt(2, "temperature"),
	"3210": tempAt(2, "temperature"),
	"3220": parse3220,
	"3B00": parse3B00,
	"3EF0": parse3EF0,
	"3EF1": parse3EF1,
}

// ParsePayload decodes the payload of pkt. The result is a map[string]any,
// or a []map[string]any for arrays. Codes without a decoder yield the raw
// payload under "_payload".
func ParsePayload(pkt *Packet, opts ParseOptions) (res any, err error) {
	// Decoders slice payloads the code schema has already checked. A payload
	// shorter than expected is corrupt, not a bug.
	defer func() {
		if r := recover(); r != nil {
			if debugFlags&debugPanics != 0 {
				panic(r)
			}
			res, err = nil, fmt.Errorf("%s %s %q: %w: %v", pkt.Verb.Short(), pkt.Code, pkt.Payload, ErrCorruptPayload, r)
		}
	}()
	if opts.MaxZones == 0 {
		opts.MaxZones = 16
	}
	f, ok := parsers[pkt.Code]
	if !ok {
		return map[string]any{"_payload": pkt.Payload}, nil
	}
	c := &parseCtx{pkt: pkt, opts: opts}
	if pkt.Verb == RQ && !pkt.HasPayload() && pkt.Code != "0418" && pkt.Code != "3220" {
		return map[string]any{}, nil
	}
	res, err = f(c, pkt.Payload)
	if err != nil {
		return nil, fmt.Errorf("%s %s %q: %w", pkt.Verb.Short(), pkt.Code, pkt.Payload, err)
	}
	if m, ok := res.(map[string]any); ok && debugFlags&debugRawPayload != 0 {
		m["_payload"] = pkt.Payload
	}
	return res, nil
}

func tempAt(i int, key string) parserFunc {
	return func(c *parseCtx, p string) (any, error) {
		if len(p) < i+4 {
			return map[string]any{}, nil
		}
		t, err := hexToTemp(p[i : i+4])
		if err != nil {
			return nil, err
		}
		return map[string]any{key: t}, nil
	}
}

func parse0001(c *parseCtx, p string) (any, error) {
	parts := []string{sub(p, 0, 2), sub(p, 2, 6), sub(p, 6, 8), sub(p, 8, 10)}
	return map[string]any{"payload": strings.Join(parts, "-")}, nil
}

func parse0004(c *parseCtx, p string) (any, error) {
	if len(p) < 8 || p[4:] == strings.Repeat("7F", 20) {
		return map[string]any{}, nil
	}
	return map[string]any{"name": hexToStr(p[4:])}, nil
}

// zoneRoles names the device roles of 0005 and 000C.
var zoneRoles = map[string]string{
	"00": "zone_actuator",
	"04": "zone_sensor",
	"08": "rad_actuator",
	"09": "ufh_actuator",
	"0A": "val_actuator",
	"0B": "mix_actuator",
	"0C": "out_sensor",
	"0D": "dhw_sensor",
	"0E": "hotwater_valve",
	"0F": "appliance_control",
	"11": "ele_actuator",
}

func zoneRole(t string) string {
	if r, ok := zoneRoles[t]; ok {
		return r
	}
	return "unknown_" + strings.ToLower(t)
}

func parse0005(c *parseCtx, p string) (any, error) {
	if c.verb() == RQ {
		return map[string]any{"zone_type": sub(p, 2, 4)}, nil
	}
	parse := func(c *parseCtx, seqx string) (map[string]any, error) {
		res := map[string]any{"zone_type": seqx[2:4], "_device_role": zoneRole(seqx[2:4])}
		if len(seqx) >= 8 {
			mask := append(hexToFlag8(seqx[4:6], true), hexToFlag8(seqx[6:8], true)...)
			res["zone_mask"] = mask[:min(c.opts.MaxZones, len(mask))]
		}
		return res, nil
	}
	if !c.pkt.HasArray() {
		return parse(c, p)
	}
	var out []map[string]any
	for i := 0; i+8 <= len(p); i += 8 {
		elem, _ := parse(c, p[i:i+8])
		out = append(out, elem)
	}
	return out, nil
}

func parse0006(c *parseCtx, p string) (any, error) {
	if sub(p, 2, 4) == "FF" {
		return map[string]any{"change_counter": nil}, nil
	}
	n, err := hexToUint(sub(p, 4, 8))
	if err != nil {
		return nil, err
	}
	return map[string]any{"change_counter": n}, nil
}

func parse0008(c *parseCtx, p string) (any, error) {
	d, err := hexToPercent(sub(p, 2, 4), false)
	if err != nil {
		return nil, err
	}
	return map[string]any{"relay_demand": d}, nil
}

func parse0009(c *parseCtx, p string) (any, error) {
	return elements(c, p, 3, func(c *parseCtx, seqx string) (map[string]any, error) {
		var enabled any
		switch seqx[2:4] {
		case "00":
			enabled = false
		case "01":
			enabled = true
		}
		return map[string]any{"failsafe_enabled": enabled}, nil
	})
}

func parse000A(c *parseCtx, p string) (any, error) {
	if c.len() == 1 {
		return map[string]any{}, nil
	}
	return elements(c, p, 6, func(c *parseCtx, seqx string) (map[string]any, error) {
		bitmap := mustUint(seqx[2:4])
		minTemp, err := hexToTemp(seqx[4:8])
		if err != nil {
			return nil, err
		}
		maxTemp, err := hexToTemp(seqx[8:12])
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"min_temp":            minTemp,
			"max_temp":            maxTemp,
			"local_override":      bitmap&1 == 0,
			"openwindow_function": bitmap&2 == 0,
			"multiroom_mode":      bitmap&16 == 0,
			"_unknown_bitmap":     fmt.Sprintf("0b%08b", bitmap),
		}, nil
	})
}

func parse000C(c *parseCtx, p string) (any, error) {
	if c.verb() == RQ {
		return map[string]any{"zone_type": sub(p, 2, 4), "device_role": zoneRole(sub(p, 2, 4))}, nil
	}
	var devices []string
	for i := 0; i+12 <= len(p); i += 12 {
		if p[i+4:i+6] == "7F" {
			continue // no device in this slot
		}
		a, err := AddressFromHex(p[i+6 : i+12])
		if err != nil {
			return nil, err
		}
		devices = append(devices, string(a))
	}
	if devices == nil {
		devices = []string{}
	}
	return map[string]any{
		"zone_type":   p[2:4],
		"device_role": zoneRole(p[2:4]),
		"devices":     devices,
	}, nil
}

func parse0016(c *parseCtx, p string) (any, error) {
	if c.verb() == RQ {
		return map[string]any{}, nil
	}
	v := mustUint(sub(p, 2, 4))
	return map[string]any{"rf_strength": min(v/5+1, 5), "rf_value": v}, nil
}

func parse0100(c *parseCtx, p string) (any, error) {
	if len(p) < 6 {
		return map[string]any{}, nil
	}
	return map[string]any{"language": hexToStr(p[2:6]), "_unknown_0": p[6:]}, nil
}

func parse0404(c *parseCtx, p string) (any, error) {
	if len(p) < 14 {
		return nil, fmt.Errorf("%w: short schedule fragment", ErrCorruptPayload)
	}
	optional := func(s string) any {
		if s == "FF" {
			return nil
		}
		return mustUint(s)
	}
	res := map[string]any{
		"frag_number": mustUint(p[10:12]),
		"total_frags": optional(p[12:14]),
	}
	if c.verb() == RQ {
		return res, nil
	}
	res["frag_length"] = optional(p[8:10])
	res["fragment"] = p[14:]
	return res, nil
}

var (
	faultStates = map[string]string{"00": "fault", "40": "restore", "C0": "unknown_c0"}
	faultTypes  = map[string]string{
		"01": "system_fault",
		"03": "mains_low",
		"04": "battery_low",
		"05": "battery_error",
		"06": "comms_fault",
		"07": "sensor_fault",
		"0A": "sensor_error",
	}
	faultDeviceClasses = map[string]string{
		"00": "controller",
		"01": "sensor",
		"02": "setpoint",
		"04": "actuator",
		"05": "dhw_actuator",
		"06": "rf_gateway",
	}
)

func lookup(m map[string]string, k string) string {
	if v, ok := m[k]; ok {
		return v
	}
	return "unknown_" + strings.ToLower(k)
}

func parse0418(c *parseCtx, p string) (any, error) {
	if c.verb() == RQ || len(p) < 44 {
		return map[string]any{"log_idx": sub(p, 4, 6)}, nil
	}
	ts := hexToDts(p[18:30])
	if ts == nil {
		return map[string]any{"log_idx": p[4:6], "log_entry": nil}, nil
	}
	dev, err := AddressFromHex(p[38:44])
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"log_idx": p[4:6],
		"log_entry": map[string]any{
			"timestamp":    ts,
			"fault_state":  lookup(faultStates, p[2:4]),
			"fault_type":   lookup(faultTypes, p[8:10]),
			"domain_idx":   p[10:12],
			"device_class": lookup(faultDeviceClasses, p[12:14]),
			"device_id":    string(dev),
		},
	}, nil
}

func parse1030(c *parseCtx, p string) (any, error) {
	names := map[string]string{
		"C8": "max_flow_setpoint",
		"C9": "min_flow_setpoint",
		"CA": "valve_run_time",
		"CB": "pump_run_time",
		"CC": "boolean_cc",
	}
	res := map[string]any{}
	for i := 2; i+6 <= len(p); i += 6 {
		seqx := p[i : i+6]
		if seqx[2:4] != "01" {
			return nil, fmt.Errorf("%w: bad mixvalve param %q", ErrCorruptPayload, seqx)
		}
		res[lookup(names, seqx[:2])] = mustUint(seqx[4:6])
	}
	return res, nil
}

func parse1060(c *parseCtx, p string) (any, error) {
	level, err := hexToPercent(sub(p, 2, 4), false)
	if err != nil {
		return nil, err
	}
	return map[string]any{"battery_low": sub(p, 4, 6) == "00", "battery_level": level}, nil
}

func parse10A0(c *parseCtx, p string) (any, error) {
	if c.len() == 1 {
		return map[string]any{}, nil
	}
	sp, err := hexToTemp(p[2:6])
	if err != nil {
		return nil, err
	}
	res := map[string]any{"setpoint": sp}
	if c.len() >= 6 {
		diff, err := hexToTemp(p[8:12])
		if err != nil {
			return nil, err
		}
		res["overrun"] = mustUint(p[6:8])
		res["differential"] = diff
	}
	return res, nil
}

func parse10E0(c *parseCtx, p string) (any, error) {
	if len(p) < 38 {
		return map[string]any{}, nil
	}
	date := func(s string) any {
		if d := hexToDate(s); d != nil {
			return d
		}
		return "0000-00-00"
	}
	return map[string]any{
		"date_2":              date(p[20:28]),
		"date_1":              date(p[28:36]),
		"manufacturer_sub_id": p[6:8],
		"product_id":          p[8:10],
		"oem_code":            p[14:16],
		"description":         hexToStr(p[36:]),
	}, nil
}

func parse1100(c *parseCtx, p string) (any, error) {
	if c.len() == 1 {
		return map[string]any{}, nil
	}
	res := map[string]any{
		"cycle_rate":   mustUint(p[2:4]) / 4,
		"min_on_time":  float64(mustUint(p[4:6])) / 4,
		"min_off_time": float64(mustUint(p[6:8])) / 4,
		"_unknown_0":   p[8:10],
	}
	if c.len() > 5 {
		pbw, err := hexToTemp(p[10:14])
		if err != nil {
			return nil, err
		}
		res["proportional_band_width"] = pbw
		res["_unknown_1"] = p[14:]
	}
	return res, nil
}

func parse1298(c *parseCtx, p string) (any, error) {
	if p[2:6] == "7FFF" {
		return map[string]any{"co2_level": nil}, nil
	}
	return map[string]any{"co2_level": mustUint(p[2:6])}, nil
}

func parse12A0(c *parseCtx, p string) (any, error) {
	hum, err := hexToPercent(p[2:4], true)
	if err != nil {
		return nil, err
	}
	res := map[string]any{"indoor_humidity": hum}
	if c.len() >= 6 {
		t, err := hexToTemp(p[4:8])
		if err != nil {
			return nil, err
		}
		dew, err := hexToTemp(p[8:12])
		if err != nil {
			return nil, err
		}
		res["temperature"] = t
		res["dewpoint_temp"] = dew
	}
	return res, nil
}

func parse12B0(c *parseCtx, p string) (any, error) {
	open, err := hexToBool(sub(p, 2, 4))
	if err != nil {
		return nil, err
	}
	return map[string]any{"window_open": open}, nil
}

func parse12C0(c *parseCtx, p string) (any, error) {
	var t any
	if p[2:4] != "80" {
		t = float64(mustUint(p[2:4])) / 2
	}
	units := "Celsius"
	if p[4:6] == "00" {
		units = "Fahrenheit"
	}
	return map[string]any{"temperature": t, "units": units}, nil
}

func parse1F09(c *parseCtx, p string) (any, error) {
	secs := float64(mustUint(p[2:6])) / 10
	res := map[string]any{"remaining_seconds": secs}
	if c.verb() != W {
		next := c.pkt.Dtm.Add(time.Duration(secs * float64(time.Second)))
		res["_next_sync"] = next.Format(time.TimeOnly)
	}
	return res, nil
}

// zoneModes names the modes of 1F41 and 2349.
var zoneModes = map[string]string{
	"00": "follow_schedule",
	"01": "advanced_override",
	"02": "permanent_override",
	"03": "countdown_override",
	"04": "temporary_override",
}

func parse1F41(c *parseCtx, p string) (any, error) {
	if c.len() == 1 {
		return map[string]any{}, nil
	}
	res := map[string]any{"mode": zoneModes[p[4:6]]}
	switch p[2:4] {
	case "00":
		res["active"] = false
	case "01":
		res["active"] = true
	}
	if p[4:6] == "04" && len(p) >= 24 {
		res["until"] = hexToDtm(p[12:24])
	}
	return res, nil
}

func parse1FC9(c *parseCtx, p string) (any, error) {
	var phase any
	switch {
	case c.verb() == I && (c.pkt.Src == c.pkt.Dst || c.pkt.Dst == NullDevice):
		phase = "offer"
	case c.verb() == W:
		phase = "accept"
	case c.verb() == I:
		phase = "confirm"
	}
	bindings := [][]string{}
	for i := 0; i+12 <= len(p); i += 12 {
		seqx := p[i : i+12]
		dev, err := AddressFromHex(seqx[6:])
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, []string{seqx[:2], seqx[2:6], string(dev)})
	}
	return map[string]any{"phase": phase, "bindings": bindings}, nil
}

func parse1FD4(c *parseCtx, p string) (any, error) {
	return map[string]any{"ticker": mustUint(p[2:])}, nil
}

func parse2249(c *parseCtx, p string) (any, error) {
	return elements(c, p, 7, func(c *parseCtx, seqx string) (map[string]any, error) {
		sp, err := hexToTemp(seqx[2:6])
		if err != nil {
			return nil, err
		}
		next, err := hexToTemp(seqx[6:10])
		if err != nil {
			return nil, err
		}
		mins := mustUint(seqx[10:14])
		return map[string]any{
			"setpoint":          sp,
			"next_setpoint":     next,
			"minutes_remaining": mins,
			"_next_setpoint":    c.pkt.Dtm.Add(time.Duration(mins) * time.Minute).Format(time.TimeOnly),
		}, nil
	})
}

func parse22C9(c *parseCtx, p string) (any, error) {
	return elements(c, p, 6, func(c *parseCtx, seqx string) (map[string]any, error) {
		low, err := hexToTemp(seqx[2:6])
		if err != nil {
			return nil, err
		}
		high, err := hexToTemp(seqx[6:10])
		if err != nil {
			return nil, err
		}
		return map[string]any{"temp_low": low, "temp_high": high, "_unknown_0": seqx[10:]}, nil
	})
}

// FanSchemes maps each fan scheme to the mode names of 22F1, keyed by mode
// index.
var FanSchemes = map[string]map[string]string{
	"itho": {
		"00": "off",
		"01": "trickle",
		"02": "low",
		"03": "medium",
		"04": "high",
	},
	"nuaire": {
		"02": "normal",
		"03": "boost",
		"09": "heater_off",
		"0A": "heater_auto",
	},
	"orcon": {
		"00": "away",
		"01": "low",
		"02": "medium",
		"03": "high",
		"04": "auto",
		"05": "auto_alt",
		"06": "boost",
		"07": "off",
	},
}

// fanModeMax is the mode index range announced by each scheme.
var fanModeMax = map[string]string{"itho": "04", "orcon": "04"}

func parse22F1(c *parseCtx, p string) (any, error) {
	var scheme string
	if c.opts.Scheme != nil {
		scheme = c.opts.Scheme(c.pkt.Src)
	}
	if _, ok := FanSchemes[scheme]; !ok {
		scheme = "orcon"
		if len(p) < 6 {
			scheme = "nuaire"
		}
	}
	idx := p[2:4]
	mode, ok := FanSchemes[scheme][idx]
	if !ok {
		mode = "unknown_" + strings.ToLower(idx)
	}
	res := map[string]any{"fan_mode": mode, "_scheme": scheme, "_mode_idx": idx}
	if len(p) >= 6 {
		res["_mode_max"] = p[4:6]
	}
	return res, nil
}

func parse22F3(c *parseCtx, p string) (any, error) {
	flags := mustUint(p[2:4])
	n := mustUint(p[4:6])
	res := map[string]any{}
	switch flags >> 6 {
	case 0:
		res["duration"] = n
	case 1:
		res["duration"] = n * 60
	default:
		res["_duration_idx"] = n
	}
	if len(p) >= 10 {
		res["_new_speed_mode"] = p[6:8]
		res["_fallback_speed_mode"] = p[8:10]
	}
	return res, nil
}

var bypassModes = map[string]string{"00": "off", "C8": "on", "FF": "auto"}

func parse22F7(c *parseCtx, p string) (any, error) {
	res := map[string]any{"bypass_mode": nil}
	if m, ok := bypassModes[sub(p, 2, 4)]; ok {
		res["bypass_mode"] = m
	}
	if c.verb() != W && len(p) >= 6 {
		pos, err := hexToPercent(p[4:6], false)
		if err != nil {
			return nil, err
		}
		res["bypass_position"] = pos
	}
	return res, nil
}

func parse2309(c *parseCtx, p string) (any, error) {
	if c.len() == 1 {
		return map[string]any{}, nil
	}
	return elements(c, p, 3, func(c *parseCtx, seqx string) (map[string]any, error) {
		sp, err := hexToTemp(seqx[2:6])
		if err != nil {
			return nil, err
		}
		return map[string]any{"setpoint": sp}, nil
	})
}

func parse2349(c *parseCtx, p string) (any, error) {
	if c.verb() == RQ && c.len() <= 2 {
		return map[string]any{}, nil
	}
	sp, err := hexToTemp(p[2:6])
	if err != nil {
		return nil, err
	}
	mode := p[6:8]
	res := map[string]any{"mode": zoneModes[mode], "setpoint": sp}
	if c.len() >= 7 && p[8:14] != "FFFFFF" {
		if mode != "03" {
			return nil, fmt.Errorf("%w: duration without countdown mode", ErrCorruptPayload)
		}
		res["duration"] = mustUint(p[8:14])
	}
	if c.len() >= 13 {
		if p[14:26] == strings.Repeat("F", 12) {
			res["until"] = nil
		} else {
			res["until"] = hexToDtm(p[14:26])
		}
	}
	return res, nil
}

// SystemModes names the modes of 2E04, keyed by mode code.
var SystemModes = map[string]string{
	"00": "auto",
	"01": "heat_off",
	"02": "eco_boost",
	"03": "away",
	"04": "day_off",
	"05": "day_off_eco",
	"06": "auto_with_reset",
	"07": "custom",
}

func parse2E04(c *parseCtx, p string) (any, error) {
	mode, ok := SystemModes[p[:2]]
	if !ok {
		return nil, fmt.Errorf("%w: unknown system mode %s", ErrCorruptPayload, p[:2])
	}
	res := map[string]any{"system_mode": mode, "until": nil}
	if len(p) >= 16 && p[14:16] != "00" {
		res["until"] = hexToDtm(p[2:14])
	}
	return res, nil
}

func parse2E10(c *parseCtx, p string) (any, error) {
	return map[string]any{"presence_detected": p[2:4] != "00"}, nil
}

func parse30C9(c *parseCtx, p string) (any, error) {
	if c.len() == 1 {
		return map[string]any{}, nil
	}
	return elements(c, p, 3, func(c *parseCtx, seqx string) (map[string]any, error) {
		t, err := hexToTemp(seqx[2:6])
		if err != nil {
			return nil, err
		}
		return map[string]any{"temperature": t}, nil
	})
}

func parse313F(c *parseCtx, p string) (any, error) {
	res := map[string]any{"datetime": hexToDtm(p[4:18]), "is_dst": nil, "_unknown_0": p[2:4]}
	if mustUint(p[4:6])&0x80 != 0 {
		res["is_dst"] = true
	}
	return res, nil
}

func parse3150(c *parseCtx, p string) (any, error) {
	return elements(c, p, 2, func(c *parseCtx, seqx string) (map[string]any, error) {
		d, err := hexToPercent(seqx[2:4], false)
		if err != nil {
			return nil, err
		}
		return map[string]any{"heat_demand": d}, nil
	})
}

func parse31D9(c *parseCtx, p string) (any, error) {
	bitmap := mustUint(p[2:4])
	speed, err := hexToPercent(p[4:6], false)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"exhaust_fan_speed": speed,
		"passive":           bitmap&0x02 != 0,
		"damper_only":       bitmap&0x04 != 0,
		"filter_dirty":      bitmap&0x20 != 0,
		"frost_cycle":       bitmap&0x40 != 0,
		"has_fault":         bitmap&0x80 != 0,
		"_flags":            hexToFlag8(p[2:4], false),
	}, nil
}

// fanInfo names the fan states reported by 31DA.
var fanInfo = map[string]string{
	"00": "speed 0 (off)",
	"01": "speed 1 (low)",
	"02": "speed 2 (medium)",
	"03": "speed 3 (high)",
	"04": "speed 4",
	"05": "speed 5",
	"06": "speed 6",
	"07": "speed 7",
	"08": "speed 8",
	"09": "speed 9",
	"0A": "speed 10",
	"0B": "speed 1 temporary override",
	"0C": "speed 2 temporary override",
	"0D": "speed 3 temporary override",
	"0E": "speed 4 temporary override",
	"10": "auto",
	"11": "boost",
	"12": "boost (cooker hood)",
	"13": "away",
	"14": "auto (night mode)",
	"15": "absent",
	"16": "boost (timer)",
	"17": "exhaust fan only",
}

func parse31DA(c *parseCtx, p string) (any, error) {
	if len(p) < 58 {
		return nil, fmt.Errorf("%w: short hvac state", ErrCorruptPayload)
	}
	var firstErr error
	pct := func(s string, lowRes bool) any {
		v, err := hexToPercent(s, lowRes)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return v
	}
	temp := func(s string) any {
		v, err := hexToTemp(s)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return v
	}
	u16 := func(s string, scale float64) any {
		if s == "7FFF" {
			return nil
		}
		if scale == 1 {
			return mustUint(s)
		}
		return float64(mustUint(s)) / scale
	}
	remaining := any(nil)
	if p[42:46] != "0000" && p[42:46] != "3FFF" {
		remaining = mustUint(p[42:46])
	}
	info := lookup(fanInfo, fmt.Sprintf("%02X", mustUint(p[36:38])&0x1F))
	res := map[string]any{
		"air_quality":        pct(p[2:4], false),
		"air_quality_basis":  p[4:6],
		"co2_level":          u16(p[6:10], 1),
		"indoor_humidity":    pct(p[10:12], true),
		"outdoor_humidity":   pct(p[12:14], true),
		"exhaust_temp":       temp(p[14:18]),
		"supply_temp":        temp(p[18:22]),
		"indoor_temp":        temp(p[22:26]),
		"outdoor_temp":       temp(p[26:30]),
		"speed_capabilities": mustUint(p[30:34]),
		"bypass_position":    pct(p[34:36], false),
		"fan_info":           info,
		"exhaust_fan_speed":  pct(p[38:40], false),
		"supply_fan_speed":   pct(p[40:42], false),
		"remaining_time":     remaining,
		"post_heat":          pct(p[46:48], false),
		"pre_heat":           pct(p[48:50], false),
		"supply_flow":        u16(p[50:54], 100),
		"exhaust_flow":       u16(p[54:58], 100),
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return res, nil
}

func parse31E0(c *parseCtx, p string) (any, error) {
	d, err := hexToPercent(sub(p, 4, 6), false)
	if err != nil {
		return nil, err
	}
	return map[string]any{"vent_demand": d}, nil
}

func parse3220(c *parseCtx, p string) (any, error) {
	f, err := opentherm.DecodeFrame(p[2:10])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptPayload, err)
	}
	return f.Map(), nil
}

func parse3B00(c *parseCtx, p string) (any, error) {
	sync, err := hexToBool(p[2:4])
	if err != nil {
		return nil, err
	}
	return map[string]any{"actuator_sync": sync}, nil
}

func parse3EF0(c *parseCtx, p string) (any, error) {
	if c.len() == 1 {
		return map[string]any{}, nil
	}
	mod, err := hexToPercent(p[2:4], false)
	if err != nil {
		return nil, err
	}
	res := map[string]any{"modulation_level": mod, "_flags_2": p[4:6]}
	if c.len() >= 6 {
		flags := mustUint(p[6:8])
		res["ch_active"] = flags&0x02 != 0
		res["dhw_active"] = flags&0x04 != 0
		res["flame_on"] = flags&0x08 != 0
		res["_flags_3"] = hexToFlag8(p[6:8], false)
		res["_unknown_4"] = p[8:10]
		res["_unknown_5"] = p[10:12]
	}
	return res, nil
}

func parse3EF1(c *parseCtx, p string) (any, error) {
	if c.len() < 7 {
		return map[string]any{}, nil
	}
	countdown := func(s string) any {
		if s == "7FFF" {
			return nil
		}
		return mustUint(s)
	}
	mod, err := hexToPercent(p[10:12], false)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"modulation_level":   mod,
		"actuator_countdown": countdown(p[6:10]),
		"cycle_countdown":    countdown(p[2:6]),
		"_unknown_0":         p[12:],
	}, nil
}
