// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package gateway

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"go.astrophena.name/ramses/config"
	"go.astrophena.name/ramses/protocol"
)

// Device is a device seen on the air or named by the configuration.
type Device struct {
	ID protocol.Address

	mu       sync.RWMutex
	class    protocol.Class
	known    bool // class set by the known list
	alias    string
	faked    bool
	scheme   string
	ctl      protocol.Address
	zone     string
	lastSeen time.Time
	// msgs holds the latest message of each code, verb and context.
	msgs map[protocol.Code]map[protocol.Verb]map[string]*protocol.Message
}

func newDevice(id protocol.Address, traits config.Traits, known bool) *Device {
	d := &Device{
		ID:     id,
		class:  id.Class(),
		alias:  traits.Alias,
		faked:  traits.Faked,
		scheme: traits.Scheme,
		msgs:   make(map[protocol.Code]map[protocol.Verb]map[string]*protocol.Message),
	}
	if known && traits.Class != "" {
		d.class, d.known = traits.Class, true
	}
	return d
}

// Class returns the class of the device.
func (d *Device) Class() protocol.Class {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.class
}

// Alias returns the alias of the device from the known list.
func (d *Device) Alias() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.alias
}

// Faked reports whether the gateway impersonates the device.
func (d *Device) Faked() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.faked
}

// Scheme returns the fan mode scheme of a ventilation device.
func (d *Device) Scheme() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.scheme
}

// Parent returns the controller the device is bound to and its zone, if
// known. The zone is "HW" for hot water devices.
func (d *Device) Parent() (ctl protocol.Address, zone string) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.ctl, d.zone
}

// LastSeen returns the time of the last packet sent by the device.
func (d *Device) LastSeen() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastSeen
}

// Latest returns the latest message sent by the device with code and verb,
// in context ctx ("" for messages without one).
func (d *Device) Latest(code protocol.Code, verb protocol.Verb, ctx string) *protocol.Message {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.msgs[code][verb][ctx]
}

// latestOf returns the most recent I or RP message with code, in any
// context.
func (d *Device) latestOf(code protocol.Code) *protocol.Message {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var latest *protocol.Message
	for _, verb := range []protocol.Verb{protocol.I, protocol.RP} {
		for _, m := range d.msgs[code][verb] {
			if latest == nil || m.Dtm.After(latest.Dtm) {
				latest = m
			}
		}
	}
	return latest
}

// Messages returns the latest messages sent by the device, ordered by code,
// verb and context.
func (d *Device) Messages() []*protocol.Message {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var msgs []*protocol.Message
	for _, verbs := range d.msgs {
		for _, ctxs := range verbs {
			for _, m := range ctxs {
				msgs = append(msgs, m)
			}
		}
	}
	slices.SortFunc(msgs, func(a, b *protocol.Message) int {
		return cmp.Or(
			cmp.Compare(a.Code, b.Code),
			cmp.Compare(a.Verb, b.Verb),
			cmp.Compare(a.Ctx(), b.Ctx()),
		)
	})
	return msgs
}

// Codes returns the verb/code pairs the device has sent, e.g. "RP|0004".
func (d *Device) Codes() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var codes []string
	for code, verbs := range d.msgs {
		for verb := range verbs {
			codes = append(codes, verb.Short()+"|"+string(code))
		}
	}
	slices.Sort(codes)
	return codes
}

func (d *Device) record(m *protocol.Message) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if m.Dtm.After(d.lastSeen) {
		d.lastSeen = m.Dtm
	}
	verbs, ok := d.msgs[m.Code]
	if !ok {
		verbs = make(map[protocol.Verb]map[string]*protocol.Message)
		d.msgs[m.Code] = verbs
	}
	ctxs, ok := verbs[m.Verb]
	if !ok {
		ctxs = make(map[string]*protocol.Message)
		verbs[m.Verb] = ctxs
	}
	ctxs[m.Ctx()] = m
}

// promote sets the class of a device whose class is only guessed from its
// type. It reports whether the class changed.
func (d *Device) promote(k protocol.Class) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.known || d.class == k {
		return false
	}
	switch d.class {
	case protocol.HVC, protocol.DEV, protocol.HEA:
		d.class = k
		return true
	}
	return false
}

func (d *Device) setParent(ctl protocol.Address, zone string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ctl = ctl
	if zone != "" {
		d.zone = zone
	}
}

// traits returns what is known about the device, as in a known list.
func (d *Device) traits() config.Traits {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return config.Traits{Class: d.class, Alias: d.alias, Faked: d.faked, Scheme: d.scheme}
}

// data returns the decoded payloads of the latest messages with codes,
// keyed by code name. Indexed payloads are keyed by context too.
func (d *Device) data(codes map[protocol.Code]bool) map[string]any {
	res := make(map[string]any)
	for _, m := range d.Messages() {
		if !codes[m.Code] || m.Verb == protocol.RQ || m.Verb == protocol.W {
			continue
		}
		key := m.Code.Name()
		if ctx := m.Ctx(); ctx != "" && ctx != protocol.IdxArray {
			key += "_" + ctx
		}
		res[key] = m.Data
	}
	return res
}
