// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package protocol

import (
	"fmt"
	"regexp"
	"strconv"
)

// Address is a device id, e.g. "01:145038". The first two digits are the
// device type.
type Address string

// Well-known addresses.
const (
	NonDevice  Address = "--:------"
	NullDevice Address = "63:262142"
	// HGIDevice is the placeholder source of commands. The gateway replaces
	// it with its own id before sending.
	HGIDevice Address = "18:000730"
)

var addrRe = regexp.MustCompile(`^(--:------|[0-9]{2}:[0-9]{6})$`)

// ParseAddress validates s as an address.
func ParseAddress(s string) (Address, error) {
	if !addrRe.MatchString(s) {
		return "", fmt.Errorf("%w: bad device id %q", ErrCorruptAddr, s)
	}
	return Address(s), nil
}

// Type returns the two-digit device type, or "--".
func (a Address) Type() string {
	if len(a) < 2 {
		return ""
	}
	return string(a[:2])
}

// IsDevice reports whether a is an actual device rather than [NonDevice].
func (a Address) IsDevice() bool { return a != NonDevice && a != "" }

// Hex returns the 3-byte form of a used within payloads, e.g. "06368E" for
// "01:145038". Ids that don't fit in 18 bits have no such form.
func (a Address) Hex() (string, error) {
	if !a.IsDevice() {
		return "FFFFFF", nil
	}
	t, err1 := strconv.Atoi(string(a[:2]))
	n, err2 := strconv.Atoi(string(a[3:]))
	if err1 != nil || err2 != nil || len(a) != 9 {
		return "", fmt.Errorf("%w: bad device id %q", ErrCorruptAddr, a)
	}
	if t >= 1<<6 || n >= 1<<18 {
		return "", fmt.Errorf("%w: device id %q out of range", ErrCorruptAddr, a)
	}
	return fmt.Sprintf("%06X", t<<18|n), nil
}

// AddressFromHex converts the 3-byte form of a device id back into an
// [Address]. "FFFFFF" and "000000" yield [NonDevice].
func AddressFromHex(h string) (Address, error) {
	if h == "FFFFFF" || h == "000000" {
		return NonDevice, nil
	}
	n, err := strconv.ParseUint(h, 16, 24)
	if err != nil || len(h) != 6 {
		return "", fmt.Errorf("%w: bad hex device id %q", ErrCorruptAddr, h)
	}
	return Address(fmt.Sprintf("%02d:%06d", n>>18, n&0x3FFFF)), nil
}

// classByType is the default class of each well-known device type.
var classByType = map[string]Class{
	"00": TRV,
	"01": CTL,
	"02": UFC,
	"03": THM,
	"04": TRV,
	"07": DHW,
	"08": JIM,
	"10": OTB,
	"12": THM,
	"13": BDR,
	"17": OUT,
	"18": HGI,
	"22": THM,
	"23": PRG,
	"30": RFG,
	"31": JST,
	"34": THM,
	"63": NUL,
}

var hvacTypes = map[string]bool{"20": true, "29": true, "32": true, "37": true, "39": true}

// Class returns the default class of a device, inferred from its type.
// Ventilation devices are [HVC] until a more precise class is known.
func (a Address) Class() Class {
	if k, ok := classByType[a.Type()]; ok {
		return k
	}
	if hvacTypes[a.Type()] {
		return HVC
	}
	return DEV
}

// IsHeat reports whether the device type of a is a well-known heating type.
func (a Address) IsHeat() bool {
	_, ok := classByType[a.Type()]
	return ok
}

// isSensorType reports whether a is a DTS92 or DTS92E, which address
// controllers with the non-device address.
func (a Address) isSensorType() bool { return a.Type() == "12" || a.Type() == "22" }

// pktAddrs maps the three address fields of a frame to its source and
// destination.
func pktAddrs(addrs [3]Address) (src, dst Address, err error) {
	nonDevs := 0
	for _, a := range addrs[1:] {
		if a == NonDevice {
			nonDevs++
		}
	}
	ok := (addrs[0] != NonDevice && addrs[0] != NullDevice && nonDevs == 1) ||
		(addrs[2] != NonDevice && addrs[2] != NullDevice && addrs[0] == NonDevice && addrs[1] == NonDevice)
	if !ok {
		return "", "", fmt.Errorf("%w: %s %s %s", ErrCorruptAddr, addrs[0], addrs[1], addrs[2])
	}

	var devs []Address
	for _, a := range addrs {
		if a.IsDevice() {
			devs = append(devs, a)
		}
	}
	src, dst = devs[0], NonDevice
	if len(devs) > 1 {
		dst = devs[1]
	}
	if src != dst && src.Type() == "18" && dst.Type() == "18" {
		return "", "", fmt.Errorf("%w: %s %s %s", ErrCorruptAddr, addrs[0], addrs[1], addrs[2])
	}
	return src, dst, nil
}
