// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package protocol

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// Schedule is the weekly schedule of a zone or of the hot water.
type Schedule struct {
	ZoneIdx string `json:"zone_idx"`
	Days    []Day  `json:"schedule"`
}

// Day is the switchpoints of one day of the week, Monday being 0.
type Day struct {
	DayOfWeek    int           `json:"day_of_week"`
	Switchpoints []Switchpoint `json:"switchpoints"`
}

// Switchpoint is a time of day ("HH:MM") at which a zone switches to a
// setpoint, or the hot water is enabled or disabled.
type Switchpoint struct {
	TimeOfDay    string   `json:"time_of_day"`
	HeatSetpoint *float64 `json:"heat_setpoint,omitempty"`
	Enabled      *bool    `json:"enabled,omitempty"`
}

// scheduleRecord is a switchpoint as stored in the compressed schedule.
const scheduleRecord = 20

// DecodeSchedule decodes the concatenated fragments of a schedule. zone is
// the zone index, or "HW" for the hot water.
func DecodeSchedule(zone, fragments string) (*Schedule, error) {
	raw, err := hex.DecodeString(fragments)
	if err != nil {
		return nil, fmt.Errorf("%w: schedule is not hex: %w", ErrCorruptPayload, err)
	}
	zr, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: schedule: %w", ErrCorruptPayload, err)
	}
	defer zr.Close()
	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: schedule: %w", ErrCorruptPayload, err)
	}
	if len(data)%scheduleRecord != 0 {
		return nil, fmt.Errorf("%w: schedule length %d is not a multiple of %d", ErrCorruptPayload, len(data), scheduleRecord)
	}

	s := &Schedule{ZoneIdx: zone, Days: []Day{}}
	for i := 0; i < len(data); i += scheduleRecord {
		rec := data[i : i+scheduleRecord]
		day := int(rec[8])
		tod := binary.LittleEndian.Uint16(rec[12:14])
		sp := Switchpoint{TimeOfDay: fmt.Sprintf("%02d:%02d", tod/60, tod%60)}
		if zone == "HW" {
			enabled := binary.LittleEndian.Uint16(rec[18:20]) != 0
			sp.Enabled = &enabled
		} else {
			setpoint := float64(binary.LittleEndian.Uint16(rec[16:18])) / 100
			sp.HeatSetpoint = &setpoint
		}
		if n := len(s.Days); n == 0 || s.Days[n-1].DayOfWeek != day {
			s.Days = append(s.Days, Day{DayOfWeek: day})
		}
		d := &s.Days[len(s.Days)-1]
		d.Switchpoints = append(d.Switchpoints, sp)
	}
	return s, nil
}

// ScheduleBuilder collects the 0404 fragments of a schedule.
type ScheduleBuilder struct {
	zone  string
	total int
	frags map[int]string
}

// NewScheduleBuilder returns a builder for the schedule of zone, or of the
// hot water if zone is "HW".
func NewScheduleBuilder(zone string) *ScheduleBuilder {
	return &ScheduleBuilder{zone: zone, frags: make(map[int]string)}
}

// Total returns the number of fragments, or 0 if not yet known.
func (b *ScheduleBuilder) Total() int { return b.total }

// Add adds the fragment carried by an RP 0404 message. It reports whether
// all fragments have been added.
func (b *ScheduleBuilder) Add(m *Message) (bool, error) {
	if m.Code != "0404" || m.Verb != RP {
		return false, fmt.Errorf("%w: not a schedule fragment: %s", ErrPacketInvalid, m.Frame)
	}
	if m.Idx() != b.zone {
		return false, fmt.Errorf("%w: fragment of %s, want %s", ErrCorruptState, m.Idx(), b.zone)
	}
	d := m.Map()
	num, _ := d["frag_number"].(int)
	total, _ := d["total_frags"].(int)
	frag, _ := d["fragment"].(string)
	if num < 1 || total < num {
		return false, fmt.Errorf("%w: fragment %d of %d", ErrCorruptPayload, num, total)
	}
	if b.total != 0 && b.total != total {
		// The schedule changed while being fetched.
		clear(b.frags)
	}
	b.total = total
	b.frags[num] = frag
	return b.Done(), nil
}

// Next returns the number of the first missing fragment.
func (b *ScheduleBuilder) Next() int {
	for i := 1; ; i++ {
		if _, ok := b.frags[i]; !ok {
			return i
		}
	}
}

// Done reports whether all fragments have been added.
func (b *ScheduleBuilder) Done() bool { return b.total > 0 && len(b.frags) == b.total }

// Schedule decodes the collected fragments.
func (b *ScheduleBuilder) Schedule() (*Schedule, error) {
	if !b.Done() {
		return nil, fmt.Errorf("%w: have %d of %d fragments", ErrCorruptState, len(b.frags), b.total)
	}
	var sb strings.Builder
	for i := 1; i <= b.total; i++ {
		sb.WriteString(b.frags[i])
	}
	return DecodeSchedule(b.zone, sb.String())
}
