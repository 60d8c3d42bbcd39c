// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"go.astrophena.name/ramses/logger"
	"go.astrophena.name/ramses/opentherm"
	"go.astrophena.name/ramses/protocol"
	"go.astrophena.name/ramses/syncx"
)

// How often discovery asks for things.
const (
	schemaInterval = 24 * time.Hour
	paramsInterval = 6 * time.Hour
	statusInterval = 5 * time.Minute
	// minInterval is the shortest interval of a task.
	minInterval = 30 * time.Second
	// tick is how often due tasks are looked for.
	tick = time.Second
	// inFlight is how many tasks run at once.
	inFlight = 2
)

// nativeOTCodes are asked of an OpenTherm bridge instead of (or besides)
// their OpenTherm data ids.
var nativeOTCodes = []protocol.Code{"1081", "10A0", "1260", "1290", "1300", "22D9", "3200", "3210", "3EF0"}

// task is a command discovery sends periodically.
type task struct {
	cmd      *protocol.Command
	interval time.Duration
	due      time.Time
	failures int
	running  bool
}

// backoff returns how long to wait after the task has failed.
func (t *task) backoff() time.Duration {
	switch {
	case t.failures > 5:
		return 24 * time.Hour
	case t.failures > 2:
		return 30 * time.Second
	}
	return 3 * time.Second
}

// discovery asks devices for their schema, params and status.
type discovery struct {
	g *Gateway

	mu    sync.Mutex
	tasks map[string]*task // keyed by the header of the expected response
	zones map[protocol.Address]map[string]bool
}

func newDiscovery(g *Gateway) *discovery {
	return &discovery{
		g:     g,
		tasks: make(map[string]*task),
		zones: make(map[protocol.Address]map[string]bool),
	}
}

// add schedules cmd every interval. Invalid commands and commands already
// scheduled are ignored.
func (d *discovery) add(cmd *protocol.Command, err error, interval time.Duration) {
	if err != nil {
		return
	}
	key := cmd.RxHdr()
	if key == "" {
		key = cmd.Hdr()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.tasks[key]; ok {
		return
	}
	cmd.QoS.Priority = protocol.PriorityLow
	d.tasks[key] = &task{cmd: cmd, interval: max(interval, minInterval), due: d.g.opts.Now()}
}

// addRQ schedules an RQ of code with payload, if the code tables allow it.
func (d *discovery) addRQ(dst protocol.Address, code protocol.Code, payload string, interval time.Duration) {
	if !protocol.HasVerb(code, protocol.RQ) || !protocol.ValidPayload(protocol.RQ, code, payload) {
		return
	}
	cmd, err := protocol.FromAttrs(protocol.RQ, dst, code, payload)
	d.add(cmd, err, interval)
}

// addDevice schedules the tasks of a device, according to its class.
func (d *discovery) addDevice(dev *Device) {
	switch dev.Class() {
	case protocol.OTB:
		d.addOTB(dev.ID)
	case protocol.FAN:
		d.addRQ(dev.ID, "31DA", "00", statusInterval)
		d.addRQ(dev.ID, "10E0", "00", schemaInterval)
	case protocol.HGI, protocol.NUL:
	default:
		d.addRQ(dev.ID, "10E0", "00", schemaInterval)
	}
}

func (d *discovery) addOTB(id protocol.Address) {
	native := d.g.cfg.Gateway.UseNativeOT
	if native != "always" {
		for _, msgID := range opentherm.SchemaMsgIDs {
			cmd, err := protocol.GetOpenThermData(id, msgID)
			d.add(cmd, err, schemaInterval)
		}
		for _, ids := range []map[uint8]time.Duration{opentherm.ParamsMsgIDs, opentherm.StatusMsgIDs} {
			for _, msgID := range slices.Sorted(maps.Keys(ids)) {
				cmd, err := protocol.GetOpenThermData(id, msgID)
				d.add(cmd, err, ids[msgID])
			}
		}
	}
	if native != "never" {
		for _, code := range nativeOTCodes {
			d.addRQ(id, code, "00", statusInterval)
		}
	}
}

// addSystem schedules the tasks of a system controller.
func (d *discovery) addSystem(s *System) {
	if s.IsVentilation() {
		return
	}
	ctl := s.ID
	d.addRQ(ctl, "1F09", "00", statusInterval)
	cmd, err := protocol.GetSystemMode(ctl)
	d.add(cmd, err, statusInterval)
	cmd, err = protocol.GetSystemTime(ctl)
	d.add(cmd, err, paramsInterval)
	cmd, err = protocol.GetTPIParams(ctl)
	d.add(cmd, err, paramsInterval)
	cmd, err = protocol.GetSystemLogEntry(ctl, 0)
	d.add(cmd, err, statusInterval)
	cmd, err = protocol.GetDHWMode(ctl)
	d.add(cmd, err, statusInterval)
	cmd, err = protocol.GetDHWTemp(ctl)
	d.add(cmd, err, statusInterval)
	d.addRQ(ctl, "10A0", "00", paramsInterval)
	// Zone types and the devices of the system's domains.
	for _, typ := range []string{"08", "09", "0A", "0B", "11"} {
		d.addRQ(ctl, "0005", "00"+typ, schemaInterval)
	}
	for _, payload := range []string{"000F", "000D", "000E", "010E"} {
		d.addRQ(ctl, "000C", payload, schemaInterval)
	}
}

// addZones schedules the tasks of zones that appeared since the last call.
func (d *discovery) addZones() {
	for _, s := range d.g.Systems() {
		if s.IsVentilation() {
			continue
		}
		for _, z := range s.Zones() {
			d.mu.Lock()
			seen := d.zones[s.ID][z.Idx]
			if !seen {
				if d.zones[s.ID] == nil {
					d.zones[s.ID] = make(map[string]bool)
				}
				d.zones[s.ID][z.Idx] = true
			}
			d.mu.Unlock()
			if !seen {
				d.addZone(s.ID, z.Idx)
			}
		}
	}
}

func (d *discovery) addZone(ctl protocol.Address, idx string) {
	var n int
	if _, err := fmt.Sscanf(idx, "%02X", &n); err != nil {
		return
	}
	cmd, err := protocol.GetZoneName(ctl, n)
	d.add(cmd, err, schemaInterval)
	cmd, err = protocol.GetZoneConfig(ctl, n)
	d.add(cmd, err, paramsInterval)
	cmd, err = protocol.GetZoneTemp(ctl, n)
	d.add(cmd, err, statusInterval)
	d.addRQ(ctl, "2309", idx, statusInterval)
	d.addRQ(ctl, "000C", idx+"04", schemaInterval)
	d.addRQ(ctl, "000C", idx+"00", schemaInterval)
}

// run sends due tasks until ctx is done, or sending turns out to be
// disabled.
func (d *discovery) run(ctx context.Context) {
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			d.addZones()
			if err := d.runDue(ctx, d.g.opts.Now()); errors.Is(err, ErrSendingDisabled) {
				logger.Debug(ctx, "discovery stopped", logger.Err(err))
				return
			}
		}
	}
}

// runDue sends the tasks due at now and waits for them.
func (d *discovery) runDue(ctx context.Context, now time.Time) error {
	d.mu.Lock()
	var due []*task
	for _, t := range d.tasks {
		if !t.running && !now.Before(t.due) {
			t.running = true
			due = append(due, t)
		}
	}
	d.mu.Unlock()

	var (
		lwg      = syncx.NewLimitedWaitGroup(inFlight)
		mu       sync.Mutex
		disabled error
	)
	for _, t := range due {
		lwg.Go(func() {
			_, err := d.g.tr.Send(ctx, t.cmd)
			d.mu.Lock()
			defer d.mu.Unlock()
			t.running = false
			if err == nil {
				t.failures = 0
				t.due = d.g.opts.Now().Add(t.interval)
				return
			}
			t.failures++
			t.due = d.g.opts.Now().Add(t.backoff())
			if errors.Is(err, ErrSendingDisabled) {
				mu.Lock()
				disabled = err
				mu.Unlock()
				return
			}
			if ctx.Err() == nil {
				logger.Debug(ctx, "discovery task failed", slog.String("cmd", t.cmd.String()), slog.Int("failures", t.failures), logger.Err(err))
			}
		})
	}
	lwg.Wait()
	return disabled
}

// seen reschedules the task msg answers, so that devices that announce
// their state aren't asked for it.
func (d *discovery) seen(msg *protocol.Message) {
	if msg.Verb != protocol.I && msg.Verb != protocol.RP {
		return
	}
	hdr := msg.Hdr()
	if msg.Verb == protocol.I {
		// An announcement answers the same question an RP does.
		hdr = strings.Replace(hdr, "|"+string(protocol.I)+"|", "|"+string(protocol.RP)+"|", 1)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.tasks[hdr]
	if !ok || t.running {
		return
	}
	t.failures = 0
	t.due = d.g.opts.Now().Add(t.interval)
}

// pending returns the commands of the tasks due at now.
func (d *discovery) pending(now time.Time) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var cmds []string
	for _, t := range d.tasks {
		if !now.Before(t.due) {
			cmds = append(cmds, t.cmd.String())
		}
	}
	slices.Sort(cmds)
	return cmds
}
