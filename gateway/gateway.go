// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package gateway turns packets into messages and keeps the state of the
// devices and systems they come from.
//
// Each packet read from a [Transport] goes through a pipeline: it is logged,
// decoded into a [protocol.Message], checked against what its source and
// destination may send and receive, and used to create and update
// [Device] and [System] entities. Subscribers get every valid message.
package gateway

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go4org/hashtriemap"

	"go.astrophena.name/ramses/config"
	"go.astrophena.name/ramses/protocol"
	"go.astrophena.name/ramses/syncx"
	"go.astrophena.name/ramses/transport"
)

// Transport is where a Gateway reads packets from and sends commands to.
// It is implemented by [transport.Transport].
type Transport interface {
	Run(ctx context.Context, handle func(context.Context, *protocol.Packet)) error
	Send(ctx context.Context, cmd *protocol.Command) (*protocol.Packet, error)
}

// Errors returned by [Gateway.Send].
var (
	ErrExpired         = transport.ErrExpired
	ErrSendingDisabled = transport.ErrSendingDisabled
)

// ErrUnknownDevice is returned when looking up a device the gateway hasn't
// seen.
var ErrUnknownDevice = errors.New("unknown device")

// Options configures a [Gateway].
type Options struct {
	// PacketLog, if set, gets every packet. See package packetlog.
	PacketLog *slog.Logger
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
	// OnMessage, if set, is called with every valid message before the next
	// packet is processed. Unlike subscribers, it never misses one.
	OnMessage func(context.Context, *protocol.Message)
	// OnInvalid, if set, is called with every packet that isn't a valid
	// message.
	OnInvalid func(context.Context, *protocol.Packet, error)
}

// Gateway processes packets and keeps the state of the entities they
// describe.
type Gateway struct {
	cfg  *config.Config
	tr   Transport
	opts Options
	disc *discovery // nil when discovery is disabled

	devices hashtriemap.HashTrieMap[protocol.Address, *Device]
	systems hashtriemap.HashTrieMap[protocol.Address, *System]

	mu     sync.Mutex
	arrays map[arrayKey]*protocol.Message

	packets  atomic.Int64
	messages atomic.Int64

	msgs syncx.Fanout[*protocol.Message]
	pkts syncx.Fanout[*protocol.Packet]
}

type arrayKey struct {
	src  protocol.Address
	code protocol.Code
}

// New returns a Gateway reading from tr, configured by cfg. The systems and
// devices of cfg are created up front.
func New(cfg *config.Config, tr Transport, opts Options) *Gateway {
	if cfg == nil {
		cfg = config.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	g := &Gateway{
		cfg:    cfg,
		tr:     tr,
		opts:   opts,
		arrays: make(map[arrayKey]*protocol.Message),
	}
	if !cfg.Gateway.DisableDiscovery {
		g.disc = newDiscovery(g)
	}
	g.loadSchema()
	return g
}

// loadSchema creates the entities named by the configuration.
func (g *Gateway) loadSchema() {
	for id := range g.cfg.KnownList {
		g.device(id)
	}
	for _, id := range slices.Concat(g.cfg.OrphansHeat, g.cfg.OrphansHVAC) {
		g.device(id)
	}
	if g.cfg.MainTCS != "" {
		g.tcs(g.cfg.MainTCS)
	}
	for key, schema := range g.cfg.Systems {
		id := protocol.Address(key)
		g.device(id)
		var sys *System
		if schema.IsVentilation() {
			sys = g.vcs(id)
		} else {
			sys = g.tcs(id)
		}
		for _, dev := range sys.load(schema) {
			g.bind(dev.id, dev.zone, sys)
		}
	}
}

// Start reads packets until ctx is done or the transport is exhausted, and
// runs discovery meanwhile.
func (g *Gateway) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	if g.disc != nil {
		wg.Go(func() { g.disc.run(ctx) })
	}
	err := g.tr.Run(ctx, g.handle)
	cancel()
	wg.Wait()
	return err
}

// Send sends cmd and returns the response, or the echo of cmd if it expects
// no response.
func (g *Gateway) Send(ctx context.Context, cmd *protocol.Command) (*protocol.Message, error) {
	pkt, err := g.tr.Send(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return protocol.NewMessage(pkt, g.parseOptions())
}

// Subscribe returns a channel getting every valid message. A subscriber
// that doesn't keep up misses messages. cancel unsubscribes.
func (g *Gateway) Subscribe(buf int) (msgs <-chan *protocol.Message, cancel func()) {
	return g.msgs.Subscribe(buf)
}

// SubscribePackets returns a channel getting every packet, valid or not as
// a message.
func (g *Gateway) SubscribePackets(buf int) (pkts <-chan *protocol.Packet, cancel func()) {
	return g.pkts.Subscribe(buf)
}

// Config returns the configuration of the gateway.
func (g *Gateway) Config() *config.Config { return g.cfg }

// Device returns the device with id, if it has been seen.
func (g *Gateway) Device(id protocol.Address) (*Device, bool) {
	return g.devices.Load(id)
}

// Devices returns every device, ordered by id.
func (g *Gateway) Devices() []*Device {
	var devs []*Device
	for _, d := range g.devices.All() {
		devs = append(devs, d)
	}
	slices.SortFunc(devs, func(a, b *Device) int { return cmp.Compare(a.ID, b.ID) })
	return devs
}

// System returns the system of a controller, or of a fan.
func (g *Gateway) System(id protocol.Address) (*System, bool) {
	return g.systems.Load(id)
}

// Systems returns every system, ordered by id.
func (g *Gateway) Systems() []*System {
	var systems []*System
	for _, s := range g.systems.All() {
		systems = append(systems, s)
	}
	slices.SortFunc(systems, func(a, b *System) int { return cmp.Compare(a.ID, b.ID) })
	return systems
}

// Stats counts what the gateway has processed.
type Stats struct {
	Packets  int64 `json:"packets"`
	Messages int64 `json:"messages"`
	Devices  int   `json:"devices"`
}

// Stats returns what the gateway has processed so far.
func (g *Gateway) Stats() Stats {
	n := 0
	for range g.devices.All() {
		n++
	}
	return Stats{Packets: g.packets.Load(), Messages: g.messages.Load(), Devices: n}
}

func (g *Gateway) parseOptions() protocol.ParseOptions {
	return protocol.ParseOptions{MaxZones: g.cfg.Gateway.MaxZones, Scheme: g.scheme}
}

func (g *Gateway) scheme(id protocol.Address) string {
	if d, ok := g.devices.Load(id); ok {
		return d.Scheme()
	}
	return g.cfg.Scheme(id)
}

// alias returns the alias of a device, for printing messages.
func (g *Gateway) alias(id protocol.Address) string { return g.cfg.Alias(id) }

// Alias returns the function used to print device names, or nil when
// use_aliases is off.
func (g *Gateway) Alias() func(protocol.Address) string {
	if !g.cfg.Gateway.UseAliases {
		return nil
	}
	return g.alias
}

// device returns the device with id, creating it if needed.
func (g *Gateway) device(id protocol.Address) *Device {
	if d, ok := g.devices.Load(id); ok {
		return d
	}
	traits, known := g.cfg.Traits(id)
	d, loaded := g.devices.LoadOrStore(id, newDevice(id, traits, known))
	if !loaded && g.disc != nil {
		g.disc.addDevice(d)
	}
	return d
}

// tcs returns the heating system of a controller, creating it if needed.
func (g *Gateway) tcs(ctl protocol.Address) *System {
	return g.system(ctl, false)
}

// vcs returns the ventilation system of a fan, creating it if needed.
func (g *Gateway) vcs(fan protocol.Address) *System {
	return g.system(fan, true)
}

func (g *Gateway) system(id protocol.Address, vent bool) *System {
	if s, ok := g.systems.Load(id); ok {
		return s
	}
	s, loaded := g.systems.LoadOrStore(id, newSystem(id, vent, g.cfg.Gateway.MaxZones))
	if !loaded {
		g.device(id).setParent(id, "")
		if g.disc != nil {
			g.disc.addSystem(s)
		}
	}
	return s
}

// bind makes a device part of a system, in a zone if zone is set.
func (g *Gateway) bind(id protocol.Address, zone string, sys *System) {
	if !id.IsDevice() {
		return
	}
	g.device(id).setParent(sys.ID, zone)
}
