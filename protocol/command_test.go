// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package protocol

import (
	"math"
	"testing"
	"time"

	"go.astrophena.name/ramses/testutil"
)

const (
	testCTL Address = "01:145038"
	testFan Address = "32:155617"
	testREM Address = "37:171871"
)

func TestCommands(t *testing.T) {
	cases := map[string]struct {
		build func() (*Command, error)
		want  string
	}{
		"get zone name": {
			build: func() (*Command, error) { return GetZoneName(testCTL, 5) },
			want:  "RQ --- 18:000730 01:145038 --:------ 0004 002 0500",
		},
		"get system time": {
			build: func() (*Command, error) { return GetSystemTime(testCTL) },
			want:  "RQ --- 18:000730 01:145038 --:------ 313F 001 00",
		},
		"set system time": {
			build: func() (*Command, error) {
				return SetSystemTime(testCTL, time.Date(2019, 10, 28, 4, 0, 4, 0, time.Local), false)
			},
			want: " W --- 18:000730 01:145038 --:------ 313F 009 00600400041C0A07E3",
		},
		"get system mode": {
			build: func() (*Command, error) { return GetSystemMode(testCTL) },
			want:  "RQ --- 18:000730 01:145038 --:------ 2E04 001 FF",
		},
		"set system mode permanently": {
			build: func() (*Command, error) { return SetSystemMode(testCTL, "away", time.Time{}) },
			want:  " W --- 18:000730 01:145038 --:------ 2E04 008 03FFFFFFFFFFFF00",
		},
		"set zone setpoint": {
			build: func() (*Command, error) { return SetZoneSetpoint(testCTL, 1, 19.5) },
			want:  " W --- 18:000730 01:145038 --:------ 2309 003 01079E",
		},
		"set zone mode permanently": {
			build: func() (*Command, error) {
				return SetZoneMode(testCTL, 1, "permanent_override", 19.5, 0, time.Time{})
			},
			want: " W --- 18:000730 01:145038 --:------ 2349 007 01079E02FFFFFF",
		},
		"set zone mode for an hour": {
			build: func() (*Command, error) {
				return SetZoneMode(testCTL, 2, "countdown_override", 21, time.Hour, time.Time{})
			},
			want: " W --- 18:000730 01:145038 --:------ 2349 007 02083403" + "00003C",
		},
		"set hot water mode": {
			build: func() (*Command, error) { return SetDHWMode(testCTL, "follow_schedule", true, time.Time{}) },
			want:  " W --- 18:000730 01:145038 --:------ 1F41 006 000100FFFFFF",
		},
		"get fault log entry": {
			build: func() (*Command, error) { return GetSystemLogEntry(testCTL, 3) },
			want:  "RQ --- 18:000730 01:145038 --:------ 0418 003 000003",
		},
		"get schedule fragment": {
			build: func() (*Command, error) { return GetScheduleFragment(testCTL, 1, 1, 0) },
			want:  "RQ --- 18:000730 01:145038 --:------ 0404 007 01200008000100",
		},
		"get hot water schedule fragment": {
			build: func() (*Command, error) { return GetScheduleFragment(testCTL, -1, 2, 3) },
			want:  "RQ --- 18:000730 01:145038 --:------ 0404 007 00230008000203",
		},
		"get opentherm data with parity": {
			build: func() (*Command, error) { return GetOpenThermData("10:067219", 0x19) },
			want:  "RQ --- 18:000730 10:067219 --:------ 3220 005 0080190000",
		},
		"get opentherm data without parity": {
			build: func() (*Command, error) { return GetOpenThermData("10:067219", 0x03) },
			want:  "RQ --- 18:000730 10:067219 --:------ 3220 005 0000030000",
		},
		"put sensor temperature": {
			build: func() (*Command, error) { return PutSensorTemp("03:123456", 21.5) },
			want:  " I --- 03:123456 --:------ 03:123456 30C9 003 000866",
		},
		"put no sensor temperature": {
			build: func() (*Command, error) { return PutSensorTemp("03:123456", math.NaN()) },
			want:  " I --- 03:123456 --:------ 03:123456 30C9 003 007FFF",
		},
		"put co2 level": {
			build: func() (*Command, error) { return PutCO2Level("37:123456", 600) },
			want:  " I --- 37:123456 --:------ 37:123456 1298 003 000258",
		},
		"put indoor humidity": {
			build: func() (*Command, error) { return PutIndoorHumidity("32:123456", 0.6) },
			want:  " I --- 32:123456 --:------ 32:123456 12A0 002 003C",
		},
		"put presence": {
			build: func() (*Command, error) { return PutPresenceDetected("37:123456", true) },
			want:  " I --- 37:123456 --:------ 37:123456 2E10 002 0001",
		},
		"set fan mode": {
			build: func() (*Command, error) { return SetFanMode(testFan, testREM, "orcon", "high") },
			want:  " I --- 37:171871 32:155617 --:------ 22F1 003 000304",
		},
		"set fan mode without range": {
			build: func() (*Command, error) { return SetFanMode(testFan, testREM, "nuaire", "boost") },
			want:  " I --- 37:171871 32:155617 --:------ 22F1 002 0003",
		},
		"set bypass off": {
			build: func() (*Command, error) { return SetBypassMode(testFan, testREM, "off") },
			want:  " W --- 37:171871 32:155617 --:------ 22F7 003 0000EF",
		},
		"set bypass auto": {
			build: func() (*Command, error) { return SetBypassMode(testFan, testREM, "auto") },
			want:  " W --- 37:171871 32:155617 --:------ 22F7 003 00FFEF",
		},
		"puzzle": {
			build: func() (*Command, error) { return Puzzle("hi", time.UnixMilli(0x123456789)) },
			want:  " I --- 18:000730 --:------ 18:000730 7FFF 010 00100001234567896869",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			cmd, err := tc.build()
			if err != nil {
				t.Fatal(err)
			}
			testutil.AssertEqual(t, cmd.String(), tc.want)
		})
	}
}

func TestCommandErrors(t *testing.T) {
	cases := map[string]func() (*Command, error){
		"zone out of range":          func() (*Command, error) { return GetZoneName(testCTL, 16) },
		"log out of range":           func() (*Command, error) { return GetSystemLogEntry(testCTL, 64) },
		"unknown system mode":        func() (*Command, error) { return SetSystemMode(testCTL, "party", time.Time{}) },
		"countdown without duration": func() (*Command, error) { return SetZoneMode(testCTL, 1, "countdown_override", 20, 0, time.Time{}) },
		"temporary without end":      func() (*Command, error) { return SetDHWMode(testCTL, "temporary_override", true, time.Time{}) },
		"unknown fan scheme":         func() (*Command, error) { return SetFanMode(testFan, testREM, "vent-o-matic", "high") },
		"unknown fan mode":           func() (*Command, error) { return SetFanMode(testFan, testREM, "itho", "turbo") },
		"unknown bypass mode":        func() (*Command, error) { return SetBypassMode(testFan, testREM, "half") },
		"humidity above range":       func() (*Command, error) { return PutIndoorHumidity("32:123456", 1.5) },
	}
	for name, build := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := build()
			testutil.AssertErrorIs(t, err, ErrCorruptPayload)
		})
	}
}

// A command decodes to what it was built from.
func TestCommandRoundTrip(t *testing.T) {
	cmd, err := SetBypassMode(testFan, testREM, "off")
	if err != nil {
		t.Fatal(err)
	}
	msg := mustMessage(t, cmd.String(), ParseOptions{})
	testutil.AssertEqual(t, msg.Map()["bypass_mode"], "off")

	cmd, err = SetFanMode(testFan, testREM, "itho", "low")
	if err != nil {
		t.Fatal(err)
	}
	msg = mustMessage(t, cmd.String(), ParseOptions{Scheme: func(Address) string { return "itho" }})
	testutil.AssertEqual(t, msg.Map()["fan_mode"], "low")
}

func TestFromCLI(t *testing.T) {
	cases := map[string]struct {
		in      string
		want    string
		wantErr error
	}{
		"short form": {
			in:   "RQ 01:145038 1f09 00",
			want: "RQ --- 18:000730 01:145038 --:------ 1F09 001 00",
		},
		"short form announcement": {
			in:   "I 03:123456 30C9 000866",
			want: " I --- 18:000730 03:123456 --:------ 30C9 003 000866",
		},
		"full frame": {
			in:   "W --- 37:171871 32:155617 --:------ 22F7 003 0000EF",
			want: " W --- 37:171871 32:155617 --:------ 22F7 003 0000EF",
		},
		"bad verb": {
			in:      "XX 01:145038 1F09 00",
			wantErr: ErrPacketInvalid,
		},
		"empty": {
			in:      "  ",
			wantErr: ErrPacketInvalid,
		},
		"bad payload": {
			in:      "RQ 01:145038 1F09 01",
			wantErr: ErrCorruptPayload,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			cmd, err := FromCLI(tc.in)
			if tc.wantErr != nil {
				testutil.AssertErrorIs(t, err, tc.wantErr)
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			testutil.AssertEqual(t, cmd.String(), tc.want)
		})
	}
}

func TestCommandQoS(t *testing.T) {
	rq, err := GetSystemTime(testCTL)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, rq.QoS, QoS{Priority: PriorityDefault, Retries: 3, Timeout: DefaultTimeout})

	i, err := PutSensorTemp("03:123456", 20)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, i.QoS.Retries, 0)
}
