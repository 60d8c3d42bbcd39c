// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package protocol

import (
	"errors"
	"testing"

	"go.astrophena.name/ramses/testutil"
)

func TestParseAddress(t *testing.T) {
	cases := map[string]struct {
		in      string
		wantErr error
	}{
		"controller":   {in: "01:145038"},
		"non-device":   {in: "--:------"},
		"null device":  {in: "63:262142"},
		"past 18 bits": {in: "32:333333"},
		"zone id":      {in: "01:333333"},
		"short":        {in: "1:145038", wantErr: ErrCorruptAddr},
		"letters":      {in: "0A:145038", wantErr: ErrCorruptAddr},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := ParseAddress(tc.in)
			if tc.wantErr != nil {
				testutil.AssertErrorIs(t, err, tc.wantErr)
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			testutil.AssertEqual(t, got, Address(tc.in))
		})
	}
}

func TestAddressHex(t *testing.T) {
	cases := map[string]struct {
		addr Address
		hex  string
	}{
		"controller": {addr: "01:145038", hex: "06368E"},
		"gateway":    {addr: "18:000730", hex: "4802DA"},
		"dhw sensor": {addr: "07:045960", hex: "1CB388"},
		"relay":      {addr: "04:123456", hex: "11E240"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			h, err := tc.addr.Hex()
			if err != nil {
				t.Fatal(err)
			}
			testutil.AssertEqual(t, h, tc.hex)
			got, err := AddressFromHex(tc.hex)
			if err != nil {
				t.Fatal(err)
			}
			testutil.AssertEqual(t, got, tc.addr)
		})
	}

	h, err := NonDevice.Hex()
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, h, "FFFFFF")
	for _, a := range []Address{"32:333333", "64:000001"} {
		if _, err := a.Hex(); !errors.Is(err, ErrCorruptAddr) {
			t.Errorf("%s.Hex(): got %v, want ErrCorruptAddr", a, err)
		}
	}
	got, err := AddressFromHex("FFFFFF")
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, got, NonDevice)
	_, err = AddressFromHex("XYZ")
	testutil.AssertErrorIs(t, err, ErrCorruptAddr)
}

func TestAddressClass(t *testing.T) {
	cases := map[Address]Class{
		"01:145038": CTL,
		"04:123456": TRV,
		"10:067219": OTB,
		"13:000001": BDR,
		"18:000730": HGI,
		"32:155617": HVC,
		"99:000001": DEV,
	}
	for addr, want := range cases {
		t.Run(string(addr), func(t *testing.T) {
			testutil.AssertEqual(t, addr.Class(), want)
		})
	}
}

func TestPktAddrs(t *testing.T) {
	cases := map[string]struct {
		addrs    [3]Address
		src, dst Address
		wantErr  bool
	}{
		"request": {
			addrs: [3]Address{"01:078710", "10:067219", NonDevice},
			src:   "01:078710",
			dst:   "10:067219",
		},
		"announcement": {
			addrs: [3]Address{"01:145038", NonDevice, "01:145038"},
			src:   "01:145038",
			dst:   "01:145038",
		},
		"broadcast from sensor": {
			addrs: [3]Address{NonDevice, NonDevice, "22:012299"},
			src:   "22:012299",
			dst:   NonDevice,
		},
		"bind offer": {
			addrs: [3]Address{"07:045960", NullDevice, NonDevice},
			src:   "07:045960",
			dst:   NullDevice,
		},
		"three devices": {
			addrs:   [3]Address{"01:145038", "13:000001", "13:000002"},
			wantErr: true,
		},
		"leading non-device": {
			addrs:   [3]Address{NonDevice, "01:145038", "13:000001"},
			wantErr: true,
		},
		"two gateways": {
			addrs:   [3]Address{"18:000730", "18:000001", NonDevice},
			wantErr: true,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			src, dst, err := pktAddrs(tc.addrs)
			if tc.wantErr {
				testutil.AssertErrorIs(t, err, ErrCorruptAddr)
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			testutil.AssertEqual(t, src, tc.src)
			testutil.AssertEqual(t, dst, tc.dst)
		})
	}
}
