// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Message is a validated packet with its decoded payload.
type Message struct {
	*Packet
	// Data is the decoded payload: a map[string]any, or a
	// []map[string]any for arrays.
	Data any
}

// NewMessage validates pkt against the code schema and decodes its payload.
func NewMessage(pkt *Packet, opts ParseOptions) (*Message, error) {
	if pkt == nil || pkt.Frame == nil {
		return nil, fmt.Errorf("%w: no frame", ErrPacketInvalid)
	}
	if !pkt.Verb.Valid() {
		return nil, fmt.Errorf("%w: bad verb %q", ErrPacketInvalid, pkt.Verb)
	}
	if pkt.Code.Known() && !HasVerb(pkt.Code, pkt.Verb) {
		return nil, fmt.Errorf("%w: unexpected verb/code pair %s/%s: %s", ErrPacketInvalid, pkt.Verb.Short(), pkt.Code, pkt.Frame)
	}
	if !ValidPayload(pkt.Verb, pkt.Code, pkt.Payload) {
		return nil, fmt.Errorf("%w: payload doesn't match %s/%s: %s", ErrCorruptPayload, pkt.Verb.Short(), pkt.Code, pkt.Frame)
	}
	m := &Message{Packet: pkt}
	if err := m.decode(opts); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Message) decode(opts ParseOptions) error {
	data, err := ParsePayload(m.Packet, opts)
	if err != nil {
		return err
	}
	if d, ok := data.(map[string]any); ok && isIndex(m.Idx()) && m.Code != "3220" && m.Code != "0418" {
		data = withIdx(m.Code, m.Src, m.Idx(), d)
	}
	m.Data = data
	return nil
}

// arrayWindow is how long a controller takes to send all fragments of an
// array.
const arrayWindow = 3 * time.Second

// MergeArray merges m into the array of prev if m is its trailing fragment.
// Controllers with many zones split 000A and 22C9 arrays over consecutive
// packets. It reports whether m was merged.
func (m *Message) MergeArray(prev *Message, opts ParseOptions) bool {
	if prev == nil || (m.Code != "000A" && m.Code != "22C9") {
		return false
	}
	if m.Code != prev.Code || m.Verb != I || prev.Verb != I || m.Src != prev.Src {
		return false
	}
	if m.Dtm.Sub(prev.Dtm) >= arrayWindow || m.Dtm.Before(prev.Dtm) {
		return false
	}
	// Decode as an array on copies, so m is left as it was if that fails.
	pkt, f := *m.Packet, *m.Frame
	f.forceArray()
	pkt.Frame = &f
	frag := &Message{Packet: &pkt}
	if err := frag.decode(opts); err != nil {
		return false
	}
	var merged []map[string]any
	switch d := prev.Data.(type) {
	case []map[string]any:
		merged = append(merged, d...)
	case map[string]any:
		merged = append(merged, d)
	}
	switch d := frag.Data.(type) {
	case []map[string]any:
		merged = append(merged, d...)
	case map[string]any:
		merged = append(merged, d)
	}
	m.Packet, m.Data = frag.Packet, merged
	return true
}

// Map returns the decoded payload if it is not an array.
func (m *Message) Map() map[string]any {
	d, _ := m.Data.(map[string]any)
	return d
}

// Array returns the decoded payload if it is an array.
func (m *Message) Array() []map[string]any {
	d, _ := m.Data.([]map[string]any)
	return d
}

// String formats m for the console.
func (m *Message) String() string { return m.Format(nil) }

// Format formats m for the console, naming devices by alias where alias
// returns one. Passing a non-nil alias widens the name columns.
func (m *Message) Format(alias func(Address) string) string {
	width := 10
	if alias != nil {
		width = 18
	}
	name := func(a Address) string {
		if !a.IsDevice() {
			return ""
		}
		if alias != nil {
			if s := alias(a); s != "" {
				return s
			}
		}
		return string(a.Class()) + ":" + string(a[3:])
	}

	var name0, name1 string
	if m.Src == m.Addrs[0] {
		name0 = name(m.Src)
		if m.Dst != m.Src {
			name1 = name(m.Dst)
		}
	} else {
		name1 = name(m.Src)
	}

	ctx := m.Ctx()
	if ctx == IdxNone && len(m.Payload) >= 2 {
		if p := m.Payload[:2]; p != "00" && p != "FF" {
			ctx = "(" + p + ")"
		}
	}

	payload, _ := json.Marshal(m.Data)
	return fmt.Sprintf("|| %-*s | %-*s | %s | %-16s | %s || %s",
		width, name0, width, name1, m.Verb, m.Code.Name(), center(ctx, 4), payload)
}

func center(s string, width int) string {
	if len(s) >= width {
		return s
	}
	left := (width - len(s)) / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", width-len(s)-left)
}

type messageJSON struct {
	Dtm     string  `json:"dtm"`
	RSSI    string  `json:"rssi"`
	Src     Address `json:"src"`
	Dst     Address `json:"dst"`
	Verb    string  `json:"verb"`
	Code    Code    `json:"code"`
	Name    string  `json:"code_name"`
	Ctx     string  `json:"ctx,omitempty"`
	Payload any     `json:"payload"`
	Frame   string  `json:"frame"`
}

// MarshalJSON implements [json.Marshaler].
func (m *Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(messageJSON{
		Dtm:     m.Dtm.Format(DtmFormat),
		RSSI:    m.RSSI,
		Src:     m.Src,
		Dst:     m.Dst,
		Verb:    m.Verb.Short(),
		Code:    m.Code,
		Name:    m.Code.Name(),
		Ctx:     m.Ctx(),
		Payload: m.Data,
		Frame:   m.Frame.String(),
	})
}
