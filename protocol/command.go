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

// Priority orders commands waiting to be sent.
type Priority int

// Priorities.
const (
	PriorityLow Priority = iota - 1
	PriorityDefault
	PriorityHigh
)

// QoS controls how a command is sent.
type QoS struct {
	Priority Priority
	// Retries is how many times the command is resent if its echo or
	// response doesn't arrive in time.
	Retries int
	// Timeout is how long each attempt waits.
	Timeout time.Duration
}

// DefaultTimeout is how long an attempt waits for the echo and response.
const DefaultTimeout = time.Second

func defaultQoS(verb Verb) QoS {
	q := QoS{Priority: PriorityDefault, Retries: 3, Timeout: DefaultTimeout}
	if verb == I {
		q.Retries = 0
	}
	return q
}

// Command is a frame built for sending.
type Command struct {
	*Frame
	QoS QoS
}

func newCommand(verb Verb, src, dst Address, code Code, payload string) (*Command, error) {
	f, err := FrameFromAttrs(verb, src, dst, code, payload)
	if err != nil {
		return nil, err
	}
	if !ValidPayload(verb, code, payload) {
		return nil, fmt.Errorf("%w: payload doesn't match %s/%s: %s", ErrCorruptPayload, verb.Short(), code, f)
	}
	return &Command{Frame: f, QoS: defaultQoS(verb)}, nil
}

// FromAttrs builds a command from the gateway to dst.
func FromAttrs(verb Verb, dst Address, code Code, payload string) (*Command, error) {
	return newCommand(verb, HGIDevice, dst, code, payload)
}

// FromCLI builds a command from its short form, "RQ 01:145038 1F09 00", or
// from a full frame.
func FromCLI(s string) (*Command, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty command", ErrPacketInvalid)
	}
	verb := Verb(fields[0])
	if len(fields[0]) == 1 {
		verb = " " + verb
	}
	if !verb.Valid() {
		return nil, fmt.Errorf("%w: bad verb %q", ErrPacketInvalid, fields[0])
	}
	if len(fields) == 4 {
		dst, err := ParseAddress(fields[1])
		if err != nil {
			return nil, err
		}
		return FromAttrs(verb, dst, Code(strings.ToUpper(fields[2])), strings.ToUpper(fields[3]))
	}
	f, err := ParseFrame(string(verb) + " " + strings.Join(fields[1:], " "))
	if err != nil {
		return nil, err
	}
	return &Command{Frame: f, QoS: defaultQoS(verb)}, nil
}

func checkIdx(idx, max int, what string) error {
	if idx < 0 || idx >= max {
		return fmt.Errorf("%w: %s index %d out of range", ErrCorruptPayload, what, idx)
	}
	return nil
}

// GetSystemTime asks a controller for its date and time.
func GetSystemTime(ctl Address) (*Command, error) {
	return FromAttrs(RQ, ctl, "313F", "00")
}

// SetSystemTime sets the date and time of a controller.
func SetSystemTime(ctl Address, t time.Time, isDST bool) (*Command, error) {
	return FromAttrs(W, ctl, "313F", "0060"+dtmToHex(t, isDST, true))
}

// GetSystemMode asks a controller for its system mode.
func GetSystemMode(ctl Address) (*Command, error) {
	return FromAttrs(RQ, ctl, "2E04", "FF")
}

// SetSystemMode sets the system mode of a controller, until a time or
// permanently if until is zero. mode is one of the values of [SystemModes].
func SetSystemMode(ctl Address, mode string, until time.Time) (*Command, error) {
	code, ok := keyOf(SystemModes, mode)
	if !ok {
		return nil, fmt.Errorf("%w: unknown system mode %q", ErrCorruptPayload, mode)
	}
	flag := "01"
	if until.IsZero() {
		flag = "00"
	}
	return FromAttrs(W, ctl, "2E04", code+dtmToHex(until, false, false)+flag)
}

// GetZoneName asks a controller for the name of a zone.
func GetZoneName(ctl Address, zone int) (*Command, error) {
	if err := checkIdx(zone, 16, "zone"); err != nil {
		return nil, err
	}
	return FromAttrs(RQ, ctl, "0004", fmt.Sprintf("%02X00", zone))
}

// GetZoneConfig asks a controller for the configuration of a zone.
func GetZoneConfig(ctl Address, zone int) (*Command, error) {
	if err := checkIdx(zone, 16, "zone"); err != nil {
		return nil, err
	}
	return FromAttrs(RQ, ctl, "000A", fmt.Sprintf("%02X", zone))
}

// GetZoneTemp asks a controller for the temperature of a zone.
func GetZoneTemp(ctl Address, zone int) (*Command, error) {
	if err := checkIdx(zone, 16, "zone"); err != nil {
		return nil, err
	}
	return FromAttrs(RQ, ctl, "30C9", fmt.Sprintf("%02X", zone))
}

// SetZoneSetpoint sets the setpoint of a zone.
func SetZoneSetpoint(ctl Address, zone int, setpoint float64) (*Command, error) {
	if err := checkIdx(zone, 16, "zone"); err != nil {
		return nil, err
	}
	return FromAttrs(W, ctl, "2309", fmt.Sprintf("%02X", zone)+tempToHex(setpoint))
}

// SetZoneMode sets the mode of a zone. mode is one of follow_schedule,
// permanent_override, countdown_override (which needs a duration) or
// temporary_override (which needs until).
func SetZoneMode(ctl Address, zone int, mode string, setpoint float64, duration time.Duration, until time.Time) (*Command, error) {
	if err := checkIdx(zone, 16, "zone"); err != nil {
		return nil, err
	}
	code, ok := keyOf(zoneModes, mode)
	if !ok {
		return nil, fmt.Errorf("%w: unknown zone mode %q", ErrCorruptPayload, mode)
	}
	payload := fmt.Sprintf("%02X", zone) + tempToHex(setpoint) + code
	switch code {
	case "03":
		if duration <= 0 {
			return nil, fmt.Errorf("%w: %s needs a duration", ErrCorruptPayload, mode)
		}
		payload += fmt.Sprintf("%06X", int(duration.Minutes()))
	case "04":
		if until.IsZero() {
			return nil, fmt.Errorf("%w: %s needs an end time", ErrCorruptPayload, mode)
		}
		payload += "FFFFFF" + dtmToHex(until, false, false)
	default:
		payload += "FFFFFF"
	}
	return FromAttrs(W, ctl, "2349", payload)
}

// GetDHWMode asks a controller for the mode of its hot water.
func GetDHWMode(ctl Address) (*Command, error) {
	return FromAttrs(RQ, ctl, "1F41", "00")
}

// SetDHWMode sets the mode of the hot water. until is only used by
// temporary_override.
func SetDHWMode(ctl Address, mode string, active bool, until time.Time) (*Command, error) {
	code, ok := keyOf(zoneModes, mode)
	if !ok || code == "03" {
		return nil, fmt.Errorf("%w: unknown hot water mode %q", ErrCorruptPayload, mode)
	}
	state := "00"
	if active {
		state = "01"
	}
	payload := "00" + state + code + "FFFFFF"
	if code == "04" {
		if until.IsZero() {
			return nil, fmt.Errorf("%w: %s needs an end time", ErrCorruptPayload, mode)
		}
		payload += dtmToHex(until, false, false)
	}
	return FromAttrs(W, ctl, "1F41", payload)
}

// GetDHWTemp asks a controller for the temperature of its hot water.
func GetDHWTemp(ctl Address) (*Command, error) {
	return FromAttrs(RQ, ctl, "1260", "00")
}

// GetSystemLogEntry asks a controller for an entry of its fault log. Entry
// 0 is the most recent.
func GetSystemLogEntry(ctl Address, idx int) (*Command, error) {
	if err := checkIdx(idx, 64, "log"); err != nil {
		return nil, err
	}
	return FromAttrs(RQ, ctl, "0418", fmt.Sprintf("0000%02X", idx))
}

// GetScheduleFragment asks a controller for a fragment of a zone schedule,
// numbered from 1. total is 0 while the number of fragments is unknown.
// zone -1 is the hot water.
func GetScheduleFragment(ctl Address, zone, frag, total int) (*Command, error) {
	kind := "20"
	if zone < 0 {
		zone, kind = 0, "23"
	}
	if err := checkIdx(zone, 16, "zone"); err != nil {
		return nil, err
	}
	return FromAttrs(RQ, ctl, "0404", fmt.Sprintf("%02X%s000800%02X%02X", zone, kind, frag, total))
}

// GetTPIParams asks a controller for its TPI parameters.
func GetTPIParams(ctl Address) (*Command, error) {
	return FromAttrs(RQ, ctl, "1100", "FC")
}

// GetOpenThermData asks an OpenTherm bridge for a data id.
func GetOpenThermData(otb Address, id byte) (*Command, error) {
	msg := "00"
	if opentherm.Parity(uint32(id)<<16) == 1 {
		msg = "80"
	}
	return FromAttrs(RQ, otb, "3220", fmt.Sprintf("00%s%02X0000", msg, id))
}

// PutSensorTemp announces a temperature from a (faked) sensor. NaN
// announces no temperature.
func PutSensorTemp(src Address, temp float64) (*Command, error) {
	return newCommand(I, src, src, "30C9", "00"+tempToHex(temp))
}

// PutCO2Level announces a CO2 level in ppm from a (faked) sensor.
func PutCO2Level(src Address, ppm int) (*Command, error) {
	payload := "007FFF"
	if ppm >= 0 {
		payload = fmt.Sprintf("00%04X", ppm)
	}
	return newCommand(I, src, src, "1298", payload)
}

// PutIndoorHumidity announces a relative humidity (0-1) from a (faked)
// sensor.
func PutIndoorHumidity(src Address, humidity float64) (*Command, error) {
	if humidity < 0 || humidity > 1 {
		return nil, fmt.Errorf("%w: humidity %v out of range", ErrCorruptPayload, humidity)
	}
	return newCommand(I, src, src, "12A0", fmt.Sprintf("00%02X", int(humidity*100+0.5)))
}

// PutPresenceDetected announces presence from a (faked) sensor.
func PutPresenceDetected(src Address, detected bool) (*Command, error) {
	payload := "0000"
	if detected {
		payload = "0001"
	}
	return newCommand(I, src, src, "2E10", payload)
}

// SetFanMode sends a fan mode from a (faked) remote to a fan, using the
// mode names of scheme.
func SetFanMode(fan, src Address, scheme, mode string) (*Command, error) {
	modes, ok := FanSchemes[scheme]
	if !ok {
		return nil, fmt.Errorf("%w: unknown fan scheme %q", ErrCorruptPayload, scheme)
	}
	idx, ok := keyOf(modes, mode)
	if !ok {
		return nil, fmt.Errorf("%w: unknown %s fan mode %q", ErrCorruptPayload, scheme, mode)
	}
	payload := "00" + idx
	if top, ok := fanModeMax[scheme]; ok {
		payload += top
	}
	return newCommand(I, src, fan, "22F1", payload)
}

// SetBypassMode sets the bypass of a fan to on, off or auto.
func SetBypassMode(fan, src Address, mode string) (*Command, error) {
	code, ok := keyOf(bypassModes, mode)
	if !ok {
		return nil, fmt.Errorf("%w: unknown bypass mode %q", ErrCorruptPayload, mode)
	}
	return newCommand(W, src, fan, "22F7", "00"+code+"EF")
}

// maxPuzzle is the longest text a puzzle packet carries.
const maxPuzzle = 48 - 8

// Puzzle builds a puzzle packet, used to mark packet logs and test the
// radio. It carries the time of sending and a short text.
func Puzzle(msg string, at time.Time) (*Command, error) {
	if len(msg) > maxPuzzle {
		msg = msg[:maxPuzzle]
	}
	payload := fmt.Sprintf("0010%012X", at.UnixMilli()) + strToHex(msg)
	return newCommand(I, HGIDevice, HGIDevice, "7FFF", payload)
}

func keyOf(m map[string]string, value string) (string, bool) {
	for k, v := range m {
		if v == value {
			return k, true
		}
	}
	return "", false
}
