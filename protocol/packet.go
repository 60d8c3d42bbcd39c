// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package protocol

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DtmFormat is the layout of packet timestamps in packet logs.
const DtmFormat = "2006-01-02T15:04:05.000000"

// Packet is a frame received at some time, with the signal strength
// reported by the radio.
type Packet struct {
	*Frame
	Dtm time.Time
	// RSSI is three digits, or "---" or "..." if unknown.
	RSSI string
	// Comment is any text after a "#" in a packet log.
	Comment string
	// KnownBad marks packets prefixed by "*" in a packet log. They are
	// expected to be invalid, so errors about them are not logged.
	KnownBad bool
}

var rssiRe = regexp.MustCompile(`^(---|\.\.\.|[0-9]{3})$`)

// ErrNoPacket is returned for lines that hold no packet, such as comments
// and firmware chatter.
var ErrNoPacket = errors.New("no packet")

// ParsePacket parses "RSSI FRAME" as read from a radio at dtm.
func ParsePacket(line string, dtm time.Time) (*Packet, error) {
	line = strings.TrimRight(line, "\r\n")
	pkt := &Packet{Dtm: dtm}
	if before, comment, ok := strings.Cut(line, "#"); ok {
		line, pkt.Comment = strings.TrimRight(before, " "), strings.TrimSpace(comment)
	}
	if strings.HasPrefix(line, "*") {
		pkt.KnownBad = true
		line = strings.TrimLeft(line[1:], " ")
	}
	if strings.TrimSpace(line) == "" {
		return nil, ErrNoPacket
	}
	if len(line) < 4 || !rssiRe.MatchString(line[:3]) || line[3] != ' ' {
		return nil, fmt.Errorf("%w: bad RSSI: %q", ErrPacketInvalid, line)
	}
	pkt.RSSI = line[:3]
	f, err := ParseFrame(line[4:])
	if err != nil {
		return pkt, err
	}
	if f.Seqn == "..." {
		return pkt, fmt.Errorf("%w: deprecated seqn: %q", ErrPacketInvalid, line)
	}
	pkt.Frame = f
	return pkt, nil
}

// ParseLogLine parses a line of a packet log: "DTM RSSI FRAME [# comment]".
// It returns [ErrNoPacket] for blank and comment-only lines.
func ParseLogLine(line string) (*Packet, error) {
	line = strings.TrimRight(line, "\r\n")
	if s := strings.TrimSpace(line); s == "" || strings.HasPrefix(s, "#") {
		return nil, ErrNoPacket
	}
	dtmStr, rest, ok := strings.Cut(line, " ")
	if !ok {
		return nil, fmt.Errorf("%w: no frame: %q", ErrPacketInvalid, line)
	}
	dtm, err := time.ParseInLocation("2006-01-02T15:04:05.999999", dtmStr, time.Local)
	if err != nil {
		return nil, fmt.Errorf("%w: bad timestamp %q: %w", ErrPacketInvalid, dtmStr, err)
	}
	return ParsePacket(rest, dtm)
}

// LogLine formats pkt as a packet log line.
func (p *Packet) LogLine() string {
	return p.Dtm.Format(DtmFormat) + " " + p.RSSI + " " + p.Frame.String()
}

func (p *Packet) String() string { return p.LogLine() }

// Lifespan returns how long the state carried by p stays current. A
// negative lifespan means forever.
func (p *Packet) Lifespan() time.Duration {
	switch {
	case p.Verb == RQ || p.Verb == W:
		return 0
	case p.Code == "0005" || p.Code == "000C" || p.Code == "0404" || p.Code == "10E0":
		return Never
	case p.Code == "1FC9" && p.Verb == RP:
		return Never
	case p.Code == "1F09" && len(p.Payload) >= 6:
		// Remaining seconds (in tenths) until the next sync cycle.
		return time.Duration(mustUint(p.Payload[2:6])) * time.Second / 10
	}
	if d := p.Code.Lifespan(); d != 0 {
		return d
	}
	return time.Hour
}

// Expired reports whether the state carried by p is stale at now. System
// syncs are allowed to be late by one cycle.
func (p *Packet) Expired(now time.Time) bool {
	life := p.Lifespan()
	if life < 0 {
		return false
	}
	if p.Code == "1F09" {
		life *= 2
	}
	return now.Sub(p.Dtm) > life
}
