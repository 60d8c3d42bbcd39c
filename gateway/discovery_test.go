// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package gateway

import (
	"context"
	"slices"
	"strings"
	"testing"
	"time"

	"go.astrophena.name/ramses/config"
	"go.astrophena.name/ramses/protocol"
	"go.astrophena.name/ramses/testutil"
)

func newDiscoveryGateway(tr Transport, now *time.Time, native string) *Gateway {
	cfg := config.Default()
	cfg.Gateway.UseNativeOT = native
	cfg.Systems = map[string]config.System{
		"01:145038": {
			System: &config.SystemControl{ApplianceControl: "10:067219"},
			Zones:  map[string]config.Zone{"00": {Class: "RAD"}},
		},
	}
	return New(cfg, tr, Options{Now: func() time.Time { return *now }})
}

func TestBackoff(t *testing.T) {
	cases := map[string]struct {
		failures int
		want     time.Duration
	}{
		"first":  {failures: 1, want: 3 * time.Second},
		"third":  {failures: 3, want: 30 * time.Second},
		"sixth":  {failures: 6, want: 24 * time.Hour},
		"fifth":  {failures: 5, want: 30 * time.Second},
		"second": {failures: 2, want: 3 * time.Second},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			testutil.AssertEqual(t, (&task{failures: tc.failures}).backoff(), tc.want)
		})
	}
}

func TestDiscoveryTasks(t *testing.T) {
	now := testTime
	g := newDiscoveryGateway(&fakeTransport{}, &now, "prefer")
	g.disc.addZones()
	pending := g.disc.pending(now)

	for _, want := range []string{
		"RQ --- 18:000730 01:145038 --:------ 1F09 001 00",
		"RQ --- 18:000730 01:145038 --:------ 2E04 001 FF",
		"RQ --- 18:000730 01:145038 --:------ 0005 002 0008",
		"RQ --- 18:000730 01:145038 --:------ 000C 002 000D",
		"RQ --- 18:000730 01:145038 --:------ 0004 002 0000",
		"RQ --- 18:000730 01:145038 --:------ 000C 002 0004",
		"RQ --- 18:000730 10:067219 --:------ 3EF0 001 00",
	} {
		if !slices.Contains(pending, want) {
			t.Errorf("missing task %q", want)
		}
	}
}

func TestDiscoveryNativeOT(t *testing.T) {
	cases := map[string]struct {
		native             string
		wantOT, wantNative bool
	}{
		"always": {native: "always", wantNative: true},
		"prefer": {native: "prefer", wantOT: true, wantNative: true},
		"never":  {native: "never", wantOT: true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			now := testTime
			g := newDiscoveryGateway(&fakeTransport{}, &now, tc.native)
			var ot, native bool
			for _, cmd := range g.disc.pending(now) {
				// RQ --- SRC DST --:------ CODE LEN PAYLOAD
				f := strings.Fields(cmd)
				if f[3] != "10:067219" {
					continue
				}
				switch f[5] {
				case "3220":
					ot = true
				case "3EF0":
					native = true
				}
			}
			testutil.AssertEqual(t, ot, tc.wantOT)
			testutil.AssertEqual(t, native, tc.wantNative)
		})
	}
}

func TestDiscoveryRun(t *testing.T) {
	now := testTime
	tr := &fakeTransport{replies: map[string]func(*protocol.Command) string{
		"RQ 01:145038 1F09 00": static("RP --- 01:145038 18:000730 --:------ 1F09 003 0004B5"),
	}}
	g := newDiscoveryGateway(tr, &now, "prefer")
	const sync = "RQ --- 18:000730 01:145038 --:------ 1F09 001 00"

	if err := g.disc.runDue(context.Background(), now); err != nil {
		t.Fatal(err)
	}
	// Everything was sent, and nothing is due until the failures back off.
	testutil.AssertEqual(t, len(g.disc.pending(now)), 0)
	later := g.disc.pending(now.Add(4 * time.Second))
	if len(later) == 0 {
		t.Fatal("want failed tasks to be retried")
	}
	if slices.Contains(later, sync) {
		t.Error("answered task retried")
	}
	if !slices.Contains(g.disc.pending(now.Add(statusInterval)), sync) {
		t.Error("answered task not rescheduled")
	}
}

func TestDiscoverySeen(t *testing.T) {
	now := testTime
	g := newDiscoveryGateway(&fakeTransport{}, &now, "prefer")
	const mode = "RQ --- 18:000730 01:145038 --:------ 2E04 001 FF"
	if !slices.Contains(g.disc.pending(now), mode) {
		t.Fatalf("missing task %q", mode)
	}

	// An announcement of the system mode answers the task.
	if _, err := g.process(context.Background(), mustPacket(t, " I --- 01:145038 --:------ 01:145038 2E04 008 00FFFFFFFFFFFF00")); err != nil {
		t.Fatal(err)
	}
	if slices.Contains(g.disc.pending(now), mode) {
		t.Errorf("task %q still due", mode)
	}
}

func TestDiscoverySendingDisabled(t *testing.T) {
	now := testTime
	g := newDiscoveryGateway(&fakeTransport{err: ErrSendingDisabled}, &now, "prefer")
	err := g.disc.runDue(context.Background(), now)
	testutil.AssertErrorIs(t, err, ErrSendingDisabled)
}

func TestDiscoveryDisabled(t *testing.T) {
	g := New(testConfig(), &fakeTransport{}, Options{})
	if g.disc != nil {
		t.Fatal("want no discovery with disable_discovery")
	}
}
