// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package protocol

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Special payload indexes. Any other index is a two-character string such
// as a zone index ("01") or a domain id ("FC").
const (
	// IdxNone means the payload has no index.
	IdxNone = ""
	// IdxArray means the payload is an array of indexed elements.
	IdxArray = "[..]"
	// IdxUnknown means the index could not be determined.
	IdxUnknown = "??"
)

func isIndex(s string) bool { return s != IdxNone && s != IdxArray && s != IdxUnknown }

var frameRe = regexp.MustCompile(
	`^( I|RQ|RP| W) (---|[0-9]{3}) ((?:--:------|[0-9]{2}:[0-9]{6}) ){3}([0-9A-F]{4}) ([0-9]{3}) ((?:[0-9A-F]{2}){1,48})$`,
)

// Frame is the RAMSES-II frame of a packet or command, e.g.
//
//	RQ --- 01:078710 10:067219 --:------ 3220 005 0000050000
type Frame struct {
	Verb    Verb
	Seqn    string
	Addrs   [3]Address
	Src     Address
	Dst     Address
	Code    Code
	Payload string

	hasArray   bool
	hasCtl     bool
	hasPayload bool
	idx        string
	ctx        string
	hdr        string
	rxHdr      string
}

// ParseFrame parses and validates a frame.
func ParseFrame(s string) (*Frame, error) {
	if !frameRe.MatchString(s) {
		return nil, fmt.Errorf("%w: bad frame structure: %q", ErrPacketInvalid, s)
	}
	fields := strings.Fields(s[3:])
	f := &Frame{
		Verb:    Verb(s[:2]),
		Seqn:    fields[0],
		Code:    Code(fields[4]),
		Payload: fields[6],
	}
	for i := range f.Addrs {
		a, err := ParseAddress(fields[1+i])
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrPacketInvalid, s, err)
		}
		f.Addrs[i] = a
	}
	n, _ := strconv.Atoi(fields[5])
	if len(f.Payload) != n*2 {
		return nil, fmt.Errorf("%w: payload length is not %d: %q", ErrPacketInvalid, n, s)
	}

	var err error
	if f.Src, f.Dst, err = pktAddrs(f.Addrs); err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrPacketInvalid, s, err)
	}
	if err := f.analyse(); err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrPacketInvalid, s, err)
	}
	return f, nil
}

// FrameFromAttrs builds a frame from its parts. src and dst are placed in
// the address fields the way devices do: announcements (src == dst, or no
// dst) go in the first and third fields.
func FrameFromAttrs(verb Verb, src, dst Address, code Code, payload string) (*Frame, error) {
	addrs := [3]Address{src, dst, NonDevice}
	if src == dst || !dst.IsDevice() {
		addrs = [3]Address{src, NonDevice, src}
	}
	return ParseFrame(formatFrame(verb, "---", addrs, code, payload))
}

func formatFrame(verb Verb, seqn string, addrs [3]Address, code Code, payload string) string {
	return fmt.Sprintf("%s %s %s %s %s %s %03d %s", verb, seqn, addrs[0], addrs[1], addrs[2], code, len(payload)/2, payload)
}

// Len returns the payload length in bytes.
func (f *Frame) Len() int { return len(f.Payload) / 2 }

// String returns the frame in its wire format.
func (f *Frame) String() string {
	return formatFrame(f.Verb, f.Seqn, f.Addrs, f.Code, f.Payload)
}

// HasArray reports whether the payload is an array. Arrays of one element
// are not detected.
func (f *Frame) HasArray() bool { return f.hasArray }

// HasCtl reports whether the frame is to or from a controller.
func (f *Frame) HasCtl() bool { return f.hasCtl }

// HasPayload reports whether the payload carries anything beyond an index.
func (f *Frame) HasPayload() bool { return f.hasPayload }

// Idx returns the index of the payload: a zone index, domain id or log
// index, or one of [IdxNone], [IdxArray] and [IdxUnknown].
func (f *Frame) Idx() string { return f.idx }

// Ctx returns the full context of the payload, a superset of [Frame.Idx]
// used to key message stores, e.g. zone and fragment for 0404.
func (f *Frame) Ctx() string { return f.ctx }

// Hdr returns the header of the frame, used to match commands with their
// echoes and responses, e.g. "2309|RQ|01:145038|03".
func (f *Frame) Hdr() string { return f.hdr }

// RxHdr returns the header of the expected response, or "" if none is
// expected.
func (f *Frame) RxHdr() string { return f.rxHdr }

// forceArray marks f as an array, as when it is the trailing fragment of an
// array started by a previous frame.
func (f *Frame) forceArray() {
	f.hasArray = true
	f.idx, f.ctx = IdxArray, IdxArray
	f.hdr, f.rxHdr = f.header(false), f.header(true)
}

func (f *Frame) analyse() error {
	var err error
	if f.hasArray, err = f.detectArray(); err != nil {
		return err
	}
	f.hasCtl = f.detectCtl()
	f.hasPayload = !(f.Len() == 1 ||
		f.Verb == RQ && rqNoPayload[f.Code] ||
		f.Verb == RQ && f.Len() == 2 && f.Code != "0016")

	if f.idx, err = f.index(); err != nil {
		return err
	}
	switch f.Code {
	case "0005", "000C":
		f.ctx = sub(f.Payload, 0, 4)
	case "0404":
		f.ctx = f.idx + sub(f.Payload, 10, 12)
	default:
		f.ctx = f.idx
	}
	f.hdr, f.rxHdr = f.header(false), f.header(true)
	return nil
}

func (f *Frame) detectArray() (bool, error) {
	if f.Code == "1FC9" {
		return f.Verb != RQ, nil
	}
	arr, ok := codesWithArrays[f.Code]
	if f.Verb != I || !ok {
		return false, nil
	}
	if f.Len() == arr.elemLen {
		return (f.Code == "22C9" || f.Code == "3150") &&
			f.Src.Type() == "02" && f.Src == f.Dst && f.Payload[0] != 'F', nil
	}
	if f.Len()%arr.elemLen != 0 {
		return false, fmt.Errorf("%w: array length %d is not a multiple of %d", ErrCorruptPayload, f.Len(), arr.elemLen)
	}
	if !f.Src.isSensorType() && f.Src != f.Dst {
		return false, fmt.Errorf("%w: array is not from a controller", ErrCorruptPayload)
	}
	if f.Src.isSensorType() && f.Dst != NonDevice {
		return false, fmt.Errorf("%w: array is not from a controller", ErrCorruptPayload)
	}
	return true, nil
}

func (f *Frame) detectCtl() bool {
	for _, t := range []string{f.Src.Type(), f.Dst.Type()} {
		switch t {
		case "01", "02", "23":
			return true
		}
	}
	switch {
	case f.Src == f.Dst:
		return codesOnlyFromCTL[f.Code] || f.Code == "31D9" || f.Code == "31DA" ||
			f.Code == "3B00" && f.Payload[:2] == "FC"
	case f.Dst == NonDevice:
		return f.Src.Type() != "10"
	case f.Dst.isSensorType():
		return true
	}
	return false
}

func (f *Frame) index() (string, error) {
	p := f.Payload
	switch f.Code {
	case "0005":
		if f.hasArray {
			return IdxArray, nil
		}
		return IdxNone, nil
	case "0009":
		if f.Src.Type() == "10" {
			return IdxNone, nil
		}
	case "000C":
		switch {
		case sub(p, 2, 4) == "0F":
			return "FC", nil
		case sub(p, 0, 4) == "010E":
			return "F9", nil
		case sub(p, 2, 4) == "0D" || sub(p, 2, 4) == "0E":
			return "FA", nil
		}
		return p[:2], nil
	case "0404":
		if sub(p, 2, 4) == "23" {
			return "HW", nil
		}
		return p[:2], nil
	case "0418":
		return sub(p, 4, 6), nil
	case "1100":
		if p[0] == 'F' {
			return p[:2], nil
		}
		return IdxNone, nil
	case "3220":
		return sub(p, 4, 6), nil
	}

	if codeIdxComplex[f.Code] {
		return "", fmt.Errorf("%w: index of %s", ErrNotImplemented, f.Code)
	}
	if codeIdxNone[f.Code] {
		if strings.HasPrefix(codeSchemas[f.Code].regex(f.Verb), "^00") && p[:2] != "00" {
			return "", fmt.Errorf("%w: index is %s, but expecting none (00)", ErrCorruptPayload, p[:2])
		}
		return IdxNone, nil
	}
	if f.hasArray {
		return IdxArray, nil
	}
	switch p[:2] {
	case "F8", "F9", "FA", "FC":
		if _, ok := codeIdxDomain[f.Code]; !ok {
			return "", fmt.Errorf("%w: index is %s, but not expecting a domain id", ErrCorruptPayload, p[:2])
		}
		return p[:2], nil
	}
	if f.hasCtl {
		return p[:2], nil
	}
	if p[:2] != "00" {
		return "", fmt.Errorf("%w: index is %s, but expecting none (00)", ErrCorruptPayload, p[:2])
	}
	if codeIdxSimple[f.Code] {
		return IdxNone, nil
	}
	return IdxUnknown, nil
}

func (f *Frame) header(rx bool) string {
	if f.Code == "1FC9" {
		switch {
		case !rx && f.Src == f.Dst:
			return join(f.Code, f.Verb, NullDevice)
		case !rx:
			return join(f.Code, f.Verb, f.Dst)
		case f.Src == f.Dst:
			return join(f.Code, W, f.Src)
		case f.Verb == W:
			return join(f.Code, I, f.Src)
		}
		return ""
	}

	addr := f.Src
	if f.Src.Type() == "18" {
		addr = f.Dst
	}
	var hdr string
	switch {
	case !rx:
		hdr = join(f.Code, f.Verb, addr)
	case f.Verb == I || f.Verb == RP || f.Src == f.Dst:
		return ""
	case f.Verb == RQ:
		hdr = join(f.Code, RP, addr)
	default:
		hdr = join(f.Code, I, addr)
	}
	if isIndex(f.ctx) {
		hdr += "|" + f.ctx
	}
	return hdr
}

// sub returns s[i:j], or "" if s is too short.
func sub(s string, i, j int) string {
	if len(s) < j {
		return ""
	}
	return s[i:j]
}

func join(code Code, verb Verb, addr Address) string {
	return string(code) + "|" + string(verb) + "|" + string(addr)
}
