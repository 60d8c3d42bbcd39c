// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package protocol

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Payload field codecs. Decoders return nil for the values devices use to
// mean "not available".

func hexToUint(s string) (int, error) {
	n, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: not hex: %q", ErrCorruptPayload, s)
	}
	return int(n), nil
}

func mustUint(s string) int {
	n, _ := strconv.ParseUint(s, 16, 32)
	return int(n)
}

// hexToTemp decodes a signed 16-bit temperature in hundredths of a degree.
func hexToTemp(s string) (any, error) {
	switch s {
	case "7FFF", "7EFF", "31FF":
		return nil, nil
	}
	n, err := hexToUint(s)
	if err != nil || len(s) != 4 {
		return nil, fmt.Errorf("%w: bad temperature %q", ErrCorruptPayload, s)
	}
	t := float64(int16(uint16(n))) / 100
	if t < -273.15 {
		return nil, fmt.Errorf("%w: temperature %q below absolute zero", ErrCorruptPayload, s)
	}
	return t, nil
}

// tempToHex is the inverse of hexToTemp. NaN encodes as 7FFF.
func tempToHex(t float64) string {
	if math.IsNaN(t) {
		return "7FFF"
	}
	return fmt.Sprintf("%04X", uint16(int16(math.Round(t*100))))
}

// hexToPercent decodes a one-byte percentage: 0-200 (C8) as 0.0-1.0, or
// 0-100 when lowRes is set.
func hexToPercent(s string, lowRes bool) (any, error) {
	switch s {
	case "EF", "FE", "FF":
		return nil, nil
	}
	n, err := hexToUint(s)
	if err != nil {
		return nil, err
	}
	scale := 200.0
	if lowRes {
		scale = 100
	}
	if float64(n) > scale {
		return nil, fmt.Errorf("%w: percentage %q out of range", ErrCorruptPayload, s)
	}
	return float64(n) / scale, nil
}

func percentToHex(p float64) string {
	return fmt.Sprintf("%02X", int(math.Round(p*200)))
}

// hexToBool decodes 00 and C8, or nil for FF.
func hexToBool(s string) (any, error) {
	switch s {
	case "00":
		return false, nil
	case "C8":
		return true, nil
	case "FF":
		return nil, nil
	}
	return nil, fmt.Errorf("%w: bad boolean %q", ErrCorruptPayload, s)
}

// hexToFlag8 expands a byte into its bits, most significant first, or least
// significant first if lsb is set.
func hexToFlag8(s string, lsb bool) []int {
	n := mustUint(s)
	flags := make([]int, 8)
	for i := range flags {
		bit := 7 - i
		if lsb {
			bit = i
		}
		flags[i] = (n >> bit) & 1
	}
	return flags
}

// hexToDtm decodes a 6 or 7 byte date and time, e.g. 0400041C0A07E3 as
// 2019-10-28T04:00:04.
func hexToDtm(s string) any {
	if strings.Trim(s, "F") == "" {
		return nil
	}
	if len(s) == 12 {
		s = "00" + s
	}
	if len(s) != 14 {
		return nil
	}
	t := time.Date(
		mustUint(s[10:14]),
		time.Month(mustUint(s[8:10])),
		mustUint(s[6:8]),
		mustUint(s[4:6])&0b11111, // top bits are the day of the week
		mustUint(s[2:4]),
		mustUint(s[:2])&0b1111111, // top bit is DST
		0, time.Local,
	)
	return t.Format("2006-01-02T15:04:05")
}

// dtmToHex encodes t as hexToDtm expects. A zero t encodes as all FF.
func dtmToHex(t time.Time, isDST, withSeconds bool) string {
	if t.IsZero() {
		if withSeconds {
			return strings.Repeat("FF", 7)
		}
		return strings.Repeat("FF", 6)
	}
	s := fmt.Sprintf("%02X%02X%02X%02X%04X", t.Minute(), t.Hour(), t.Day(), int(t.Month()), t.Year())
	if !withSeconds {
		return s
	}
	sec := t.Second()
	if isDST {
		sec |= 0x80
	}
	return fmt.Sprintf("%02X", sec) + s
}

// hexToDts decodes the packed timestamp of fault log entries.
func hexToDts(s string) any {
	if s == "00000000007F" || strings.Trim(s, "F") == "" {
		return nil
	}
	n, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return nil
	}
	t := time.Date(
		int((n>>24)&0x7F)+2000,
		time.Month((n>>36)&0xF),
		int((n>>31)&0x1F),
		int((n>>19)&0x1F),
		int((n>>13)&0x3F),
		int((n>>7)&0x3F),
		0, time.Local,
	)
	return t.Format("2006-01-02T15:04:05")
}

// hexToDate decodes a DDMMYYYY date, or nil for FFFFFFFF.
func hexToDate(s string) any {
	if len(s) != 8 || strings.Trim(s, "F") == "" {
		return nil
	}
	return fmt.Sprintf("%04d-%02d-%02d", mustUint(s[4:8]), mustUint(s[2:4]), mustUint(s[:2]))
}

// hexToStr decodes an ASCII string, ending at the first 00 or 7F.
func hexToStr(s string) string {
	b, err := hex.DecodeString(s)
	if err != nil {
		return ""
	}
	if i := bytes.IndexAny(b, "\x00\x7F"); i >= 0 {
		b = b[:i]
	}
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII || !unicode.IsPrint(r) {
			return -1
		}
		return r
	}, string(b)))
}

// strToHex encodes s as ASCII hex.
func strToHex(s string) string { return strings.ToUpper(hex.EncodeToString([]byte(s))) }
