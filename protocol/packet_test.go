// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package protocol

import (
	"testing"
	"time"

	"go.astrophena.name/ramses/testutil"
)

func TestParseLogLine(t *testing.T) {
	cases := map[string]struct {
		line     string
		rssi     string
		frame    string
		comment  string
		knownBad bool
		wantErr  error
	}{
		"packet": {
			line:  "2021-06-15T10:30:45.123456 045  I --- 01:145038 --:------ 01:145038 1F09 003 FF04B0",
			rssi:  "045",
			frame: " I --- 01:145038 --:------ 01:145038 1F09 003 FF04B0",
		},
		"comment": {
			line:    "2021-06-15T10:30:45.123456 ---  I --- 01:145038 --:------ 01:145038 1F09 003 FF04B0 # sync",
			rssi:    "---",
			frame:   " I --- 01:145038 --:------ 01:145038 1F09 003 FF04B0",
			comment: "sync",
		},
		"known bad": {
			line:     "2021-06-15T10:30:45.123456 * 045 RQ --- 18:000730 01:145038 --:------ 1F09 001 00",
			rssi:     "045",
			frame:    "RQ --- 18:000730 01:145038 --:------ 1F09 001 00",
			knownBad: true,
		},
		"blank":           {line: "   ", wantErr: ErrNoPacket},
		"comment only":    {line: "# replayed from a port", wantErr: ErrNoPacket},
		"bad timestamp":   {line: "yesterday 045  I --- 01:145038 --:------ 01:145038 1F09 003 FF04B0", wantErr: ErrPacketInvalid},
		"bad rssi":        {line: "2021-06-15T10:30:45.123456 4X  I --- 01:145038 --:------ 01:145038 1F09 003 FF04B0", wantErr: ErrPacketInvalid},
		"deprecated seqn": {line: "2021-06-15T10:30:45.123456 045  I ... 01:145038 --:------ 01:145038 1F09 003 FF04B0", wantErr: ErrPacketInvalid},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			pkt, err := ParseLogLine(tc.line)
			if tc.wantErr != nil {
				testutil.AssertErrorIs(t, err, tc.wantErr)
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			testutil.AssertEqual(t, pkt.RSSI, tc.rssi)
			testutil.AssertEqual(t, pkt.Frame.String(), tc.frame)
			testutil.AssertEqual(t, pkt.Comment, tc.comment)
			testutil.AssertEqual(t, pkt.KnownBad, tc.knownBad)
			if want := time.Date(2021, 6, 15, 10, 30, 45, 123456000, time.Local); !pkt.Dtm.Equal(want) {
				t.Fatalf("Dtm = %v, want %v", pkt.Dtm, want)
			}
		})
	}
}

func TestPacketLogLine(t *testing.T) {
	const line = "2021-06-15T10:30:45.000000 045 RP --- 01:145038 18:000730 --:------ 2309 003 0307D0"
	pkt, err := ParseLogLine(line)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, pkt.LogLine(), line)
}

func TestPacketExpired(t *testing.T) {
	dtm := time.Date(2021, 6, 15, 10, 30, 0, 0, time.Local)
	cases := map[string]struct {
		frame    string
		lifespan time.Duration
		after    time.Duration
		expired  bool
	}{
		"sync is allowed one missed cycle": {
			frame:    " I --- 01:145038 --:------ 01:145038 1F09 003 FF04B0",
			lifespan: 2 * time.Minute,
			after:    200 * time.Second,
		},
		"sync missed twice": {
			frame:    " I --- 01:145038 --:------ 01:145038 1F09 003 FF04B0",
			lifespan: 2 * time.Minute,
			after:    241 * time.Second,
			expired:  true,
		},
		"zone devices never expire": {
			frame:    "RP --- 01:145038 18:000730 --:------ 000C 006 01000010DAF5",
			lifespan: Never,
			after:    365 * 24 * time.Hour,
		},
		"setpoint": {
			frame:    "RP --- 01:145038 18:000730 --:------ 2309 003 0307D0",
			lifespan: 30 * time.Minute,
			after:    31 * time.Minute,
			expired:  true,
		},
		"requests are stale at once": {
			frame:    "RQ --- 18:000730 01:145038 --:------ 2309 001 03",
			lifespan: 0,
			after:    time.Second,
			expired:  true,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			pkt, err := ParsePacket("045 "+tc.frame, dtm)
			if err != nil {
				t.Fatal(err)
			}
			testutil.AssertEqual(t, pkt.Lifespan(), tc.lifespan)
			testutil.AssertEqual(t, pkt.Expired(dtm.Add(tc.after)), tc.expired)
		})
	}
}
