// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package opentherm decodes OpenTherm frames as tunnelled by RAMSES-II
// OpenTherm bridges in their 3220 messages.
package opentherm

import (
	"errors"
	"fmt"
	"math/bits"
	"strconv"
	"time"
)

// MsgType is the three-bit message type of a frame.
type MsgType uint8

// Message types.
const (
	ReadData MsgType = iota
	WriteData
	InvalidData
	Reserved
	ReadAck
	WriteAck
	DataInvalid
	UnknownDataID
)

var msgTypeNames = [...]string{
	ReadData:      "Read-Data",
	WriteData:     "Write-Data",
	InvalidData:   "Invalid-Data",
	Reserved:      "-reserved-",
	ReadAck:       "Read-Ack",
	WriteAck:      "Write-Ack",
	DataInvalid:   "Data-Invalid",
	UnknownDataID: "Unknown-DataId",
}

func (t MsgType) String() string {
	if int(t) < len(msgTypeNames) {
		return msgTypeNames[t]
	}
	return "MsgType(" + strconv.Itoa(int(t)) + ")"
}

// HasValue reports whether frames of type t carry a data value.
func (t MsgType) HasValue() bool {
	switch t {
	case WriteData, ReadAck, WriteAck:
		return true
	}
	return false
}

// ValueType is the encoding of a data value.
type ValueType uint8

// Value types.
const (
	U8 ValueType = iota
	Flag8
	S8
	F88
	U16
	S16
)

// Dir is the direction in which a data id is normally used.
type Dir uint8

// Directions.
const (
	ReadWrite Dir = iota
	ReadOnly
	WriteOnly
)

// Sensor describes the physical quantity of an f8.8 value.
type Sensor string

// Sensors.
const (
	SensorCounter     Sensor = "counter"
	SensorRatio       Sensor = "ratio"
	SensorHumidity    Sensor = "relative humidity (%)"
	SensorPercentage  Sensor = "percentage (%)"
	SensorPressure    Sensor = "pressure (bar)"
	SensorTemperature Sensor = "temperature (°C)"
	SensorCurrent     Sensor = "current (µA)"
	SensorFlowRate    Sensor = "flow rate (L/min)"
	SensorCO2         Sensor = "CO2 (ppm)"
)

// Message describes a data id.
type Message struct {
	Name string
	Dir  Dir
	// Val is the type of the whole value, or of each byte when SplitVar is set.
	Val ValueType
	// HB and LB are the per-byte types when Split is set.
	HB, LB ValueType
	Split  bool
	// Var names the value. VarHB and VarLB name the bytes when SplitVar is set.
	Var          string
	VarHB, VarLB string
	SplitVar     bool
	// Flags names a schema in [FlagSchema], if the value carries flags.
	Flags  string
	Sensor Sensor
}

// Flag describes one bit of a flag schema.
type Flag struct {
	Name string
	Var  string
}

// Lookup returns the description of a data id.
func Lookup(id uint8) (Message, bool) {
	m, ok := messages[id]
	return m, ok
}

// FlagSchema returns the bits of the named flag schema, keyed by mask.
func FlagSchema(name string) map[uint16]Flag { return flagSchemas[name] }

// Data ids the bridge is polled for, with how long their values stay current.
var (
	// SchemaMsgIDs rarely change.
	SchemaMsgIDs = []uint8{0x03, 0x06, 0x7D, 0x7F, 0x71, 0x72, 0x74, 0x75, 0x76, 0x77, 0x78, 0x79, 0x7A, 0x7B}
	// ParamsMsgIDs are valid for 6 hours.
	ParamsMsgIDs = lifespans(6*time.Hour, 0x0E, 0x0F, 0x30, 0x31, 0x38, 0x39)
	// StatusMsgIDs are valid for 5 minutes.
	StatusMsgIDs = lifespans(5*time.Minute, 0x00, 0x01, 0x11, 0x12, 0x13, 0x19, 0x1A, 0x1B, 0x1C, 0x05, 0x73)
	// WriteMsgIDs are acknowledged within 3 seconds.
	WriteMsgIDs = lifespans(3*time.Second, 0x01, 0x02, 0x0E, 0x10, 0x18, 0x38, 0x39, 0x7C, 0x7E)
)

func lifespans(d time.Duration, ids ...uint8) map[uint8]time.Duration {
	m := make(map[uint8]time.Duration, len(ids))
	for _, id := range ids {
		m[id] = d
	}
	return m
}

// Parity returns the even parity bit of x.
func Parity(x uint32) uint32 { return uint32(bits.OnesCount32(x) & 1) }

// Errors returned by [DecodeFrame].
var (
	ErrFrameLength = errors.New("opentherm: invalid frame length")
	ErrParity      = errors.New("opentherm: invalid parity bit")
	ErrSpareBits   = errors.New("opentherm: invalid spare bits")
)

// Frame is a decoded OpenTherm frame.
type Frame struct {
	Type MsgType
	ID   uint8
	// Name is the flag schema or variable name of the data id. It is a
	// [2]string of the high and low byte names for split variables.
	Name any
	// Value holds the decoded value, or nil if absent or invalid.
	Value any
	// ValueHB and ValueLB hold the decoded bytes of split values.
	ValueHB, ValueLB any
	// Split reports whether ValueHB and ValueLB are set instead of Value.
	Split bool
	// Known reports whether the data id is described in the message table.
	Known bool
}

// Description returns the human-readable name of the data id.
func (f Frame) Description() string {
	if m, ok := messages[f.ID]; ok {
		return m.Name
	}
	return ""
}

// DecodeFrame decodes an 8 hex digit OpenTherm frame.
func DecodeFrame(frame string) (Frame, error) {
	if len(frame) != 8 {
		return Frame{}, fmt.Errorf("%w: %q", ErrFrameLength, frame)
	}
	raw, err := strconv.ParseUint(frame, 16, 32)
	if err != nil {
		return Frame{}, fmt.Errorf("opentherm: invalid frame %q: %w", frame, err)
	}
	x := uint32(raw)
	hb := uint8(x >> 24)

	if uint32(hb>>7) != Parity(x&0x7FFFFFFF) {
		return Frame{}, fmt.Errorf("%w: %q", ErrParity, frame)
	}
	if hb&0x0F != 0 {
		return Frame{}, fmt.Errorf("%w: 0b%04b", ErrSpareBits, hb&0x0F)
	}

	f := Frame{
		Type: MsgType((hb & 0x70) >> 4),
		ID:   uint8(x >> 16),
	}
	m, ok := messages[f.ID]
	f.Known = ok
	switch {
	case m.Flags != "":
		f.Name = m.Flags
	case m.SplitVar:
		f.Name = [2]string{m.VarHB, m.VarLB}
	case m.Var != "":
		f.Name = m.Var
	}

	if !f.Type.HasValue() {
		return f, nil
	}

	data := frame[4:8]
	switch {
	case !ok:
		f.Value = value(data, U16)
	case m.Split:
		f.Split = true
		f.ValueHB = value(data[:2], m.HB)
		f.ValueLB = value(data[2:], m.LB)
		if m.HB == Flag8 && m.LB == Flag8 {
			f.Split = false
			f.Value = append(f.ValueHB.([]int), f.ValueLB.([]int)...)
			f.ValueHB, f.ValueLB = nil, nil
		}
	case m.SplitVar:
		f.Split = true
		f.ValueHB = value(data[:2], m.Val)
		f.ValueLB = value(data[2:], m.Val)
	case m.Val == Flag8 || m.Val == U8 || m.Val == S8:
		f.Value = value(data[:2], m.Val)
	case m.Val == U16 || m.Val == S16:
		f.Value = value(data, m.Val)
	default:
		f.Value = scaled(value(data, F88), m.Sensor)
	}
	return f, nil
}

func scaled(v any, s Sensor) any {
	r, ok := v.(float64)
	if !ok {
		return nil
	}
	switch s {
	case SensorPercentage:
		// OpenTherm percentages are 0-100, RAMSES uses 0.0-1.0.
		return float64(int(r*2)) / 200
	case SensorPressure:
		return float64(int(r*10)) / 10
	default:
		return float64(int(r*100)) / 100
	}
}

// value decodes one (two hex digits) or two (four hex digits) bytes. 16-bit
// values of FFFF are invalid and yield nil.
func value(seqx string, t ValueType) any {
	n, err := strconv.ParseUint(seqx, 16, 16)
	if err != nil {
		return nil
	}
	if len(seqx) == 4 && seqx == "FFFF" && t >= F88 {
		return nil
	}
	switch t {
	case Flag8:
		flags := make([]int, 8)
		for i := range flags {
			flags[i] = int(n>>i) & 1
		}
		return flags
	case U8:
		return int(uint8(n))
	case S8:
		return int(int8(uint8(n)))
	case F88:
		return float64(int16(uint16(n))) / 256
	case U16:
		return int(uint16(n))
	case S16:
		return int(int16(uint16(n)))
	}
	return seqx
}

// Map returns f in the shape used by 3220 payloads.
func (f Frame) Map() map[string]any {
	m := map[string]any{
		"msg_id":   fmt.Sprintf("%02X", f.ID),
		"msg_type": f.Type.String(),
	}
	switch n := f.Name.(type) {
	case string:
		m["msg_name"] = n
	case [2]string:
		m["msg_name"] = map[string]any{"hb": n[0], "lb": n[1]}
	}
	if f.Type.HasValue() {
		if f.Split {
			m["value_hb"] = f.ValueHB
			m["value_lb"] = f.ValueLB
		} else {
			m["value"] = f.Value
		}
	}
	if d := f.Description(); d != "" {
		m["description"] = d
	}
	return m
}

// Flags expands a flag value into the named bits of its schema.
func (f Frame) Flags() map[string]bool {
	m, ok := messages[f.ID]
	if !ok || m.Flags == "" {
		return nil
	}
	var raw uint16
	switch v := f.Value.(type) {
	case []int:
		// Either HB (bits 0-7) + LB (bits 8-15), or a single byte.
		if len(v) == 16 {
			for i, b := range v[:8] {
				raw |= uint16(b) << (8 + i)
			}
			for i, b := range v[8:] {
				raw |= uint16(b) << i
			}
		} else {
			for i, b := range v {
				raw |= uint16(b) << (8 + i)
			}
		}
	default:
		if hb, ok := f.ValueHB.([]int); ok {
			for i, b := range hb {
				raw |= uint16(b) << (8 + i)
			}
		}
	}
	out := make(map[string]bool)
	for mask, flag := range flagSchemas[m.Flags] {
		out[flag.Var] = raw&mask != 0
	}
	return out
}
