// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"go.astrophena.name/ramses/cli"
	"go.astrophena.name/ramses/config"
	"go.astrophena.name/ramses/gateway"
	"go.astrophena.name/ramses/logger"
	"go.astrophena.name/ramses/packetlog"
	"go.astrophena.name/ramses/protocol"
	"go.astrophena.name/ramses/systemd"
	"go.astrophena.name/ramses/transport"
	"go.astrophena.name/ramses/web"
	"go.astrophena.name/ramses/web/api"
)

func main() { cli.Main(new(app)) }

type app struct {
	// configured by flags
	configPath string
	reduce     int
	long       bool
	eavesdrop  bool
	packetLog  string
	debug      bool
	httpAddr   string
	tui        bool

	showSchema bool
	showParams bool
	showStatus bool
	showKnowns bool
	showTraits bool

	execCmd     string
	getFaults   string
	getSchedule string
	scanDisc    string
	scanFull    string
	poll        string

	// initialized by Run
	cfg *config.Config
	out *printer
	// dial opens a port. Tests replace it.
	dial func(ctx context.Context, port string, opts transport.Options) (gateway.Transport, error)
}

func (a *app) Flags(fs *flag.FlagSet) {
	fs.StringVar(&a.configPath, "config", "", "Read configuration from `file`.")
	fs.IntVar(&a.reduce, "reduce", 0, "Reduce processing to level `n` (0-3).")
	fs.BoolVar(&a.long, "long", false, "Print messages in full, with their timestamps.")
	fs.BoolVar(&a.eavesdrop, "eavesdrop", false, "Guess devices and their roles from the traffic.")
	fs.StringVar(&a.packetLog, "packet-log", "", "Log packets to `file`.")
	fs.BoolVar(&a.debug, "debug", false, "Log debug messages.")
	fs.StringVar(&a.httpAddr, "http", "", "Serve the HTTP API at `addr`.")
	fs.BoolVar(&a.tui, "tui", false, "Show a live table of devices instead of messages.")

	fs.BoolVar(&a.showSchema, "show-schema", false, "Print the schema at the end.")
	fs.BoolVar(&a.showParams, "show-params", false, "Print the params at the end.")
	fs.BoolVar(&a.showStatus, "show-status", false, "Print the status at the end.")
	fs.BoolVar(&a.showKnowns, "show-knowns", false, "Print the devices seen, as a known list, at the end.")
	fs.BoolVar(&a.showTraits, "show-traits", false, "Print the traits of the devices seen at the end.")

	fs.StringVar(&a.execCmd, "exec-cmd", "", "Send `cmd` and print the response (execute).")
	fs.StringVar(&a.getFaults, "get-faults", "", "Read the fault log of controller `id` (execute).")
	fs.StringVar(&a.getSchedule, "get-schedule", "", "Read the schedule of `ctl,zone` (execute).")
	fs.StringVar(&a.scanDisc, "scan-disc", "", "Ask devices `ids` (comma-separated) what discovery would (execute).")
	fs.StringVar(&a.scanFull, "scan-full", "", "Ask devices `ids` (comma-separated) for every code (execute).")
	fs.StringVar(&a.poll, "poll", "", "Poll devices `ids` (comma-separated) until interrupted (execute).")
}

var commands = []cli.Command{
	{Name: "parse", Args: "[file]", Help: "Print the messages of a packet log."},
	{Name: "monitor", Args: "port", Help: "Print messages and discover systems."},
	{Name: "listen", Args: "port", Help: "Print messages without sending anything."},
	{Name: "execute", Args: "port", Help: "Run a script and exit."},
	{Name: "remote", Args: "url", Help: "Send -exec-cmd to, or print snapshots of, a ramses serving HTTP."},
}

// mode describes how a command uses the radio.
type mode struct {
	name      string
	port      bool // reads a radio, not a file
	discovery bool
	send      bool
	script    bool
}

var modes = map[string]mode{
	"parse":   {name: "parse"},
	"monitor": {name: "monitor", port: true, discovery: true, send: true},
	"listen":  {name: "listen", port: true},
	"execute": {name: "execute", port: true, send: true, script: true},
}

func (a *app) Run(ctx context.Context) error {
	env := cli.GetEnv(ctx)

	ctx = a.setupLogger(ctx, env)

	cmds := make([]cli.Command, len(commands))
	for i, c := range commands {
		c.Run = func(ctx context.Context) error { return a.run(ctx, modes[c.Name]) }
		if c.Name == "remote" {
			c.Run = a.runRemote
		}
		cmds[i] = c
	}
	err := cli.Dispatch(ctx, cmds)
	if errors.Is(err, cli.ErrInvalidArgs) {
		fmt.Fprintln(env.Stderr, "Commands:")
		cli.PrintCommands(env.Stderr, cmds)
	}
	return err
}

func (a *app) runRemote(ctx context.Context) error {
	env := cli.GetEnv(ctx)
	if len(env.Args) != 1 {
		return fmt.Errorf("%w: remote needs a URL", cli.ErrInvalidArgs)
	}
	return a.remote(ctx, env.Args[0])
}

func (a *app) setupLogger(ctx context.Context, env *cli.Env) context.Context {
	if !logger.IsDefault(logger.Get(ctx)) {
		return ctx
	}
	l := logger.New(nil)
	if a.debug {
		l.Level.Set(slog.LevelDebug)
	}
	stdout := env.Stdout
	if a.tui {
		// The table owns the screen.
		stdout = io.Discard
	}
	l.Attach(logger.NewConsole(l, stdout, env.Stderr, logger.ConsoleOptions{
		NoColor: !cli.IsTerminalWriter(env.Stderr),
	}))
	return logger.Put(ctx, l)
}

func (a *app) loadConfig(ctx context.Context, m mode, port string) error {
	cfg := config.Default()
	if a.configPath != "" {
		var err error
		if cfg, err = config.Load(a.configPath); err != nil {
			return err
		}
	}
	if a.reduce < 0 || a.reduce > config.DontCreateMessages {
		return fmt.Errorf("%w: -reduce must be between 0 and %d", cli.ErrInvalidArgs, config.DontCreateMessages)
	}
	cfg.Gateway.ReduceProcessing = max(cfg.Gateway.ReduceProcessing, a.reduce)
	if a.eavesdrop {
		cfg.Gateway.EnableEavesdrop = true
	}
	if a.packetLog != "" {
		cfg.PacketLog = config.PacketLog{FileName: a.packetLog}
	}
	if !m.send {
		cfg.Gateway.DisableSending = true
	}
	if !m.discovery {
		cfg.Gateway.DisableDiscovery = true
	}
	cfg.Resolve(ctx, port)
	a.cfg = cfg
	return nil
}

func (a *app) run(ctx context.Context, m mode) error {
	env := cli.GetEnv(ctx)

	if len(env.Args) > 1 {
		return fmt.Errorf("%w: %s takes at most one argument", cli.ErrInvalidArgs, m.name)
	}
	var port string
	if len(env.Args) == 1 {
		port = env.Args[0]
	}
	if m.port && port == "" {
		return fmt.Errorf("%w: %s needs a port", cli.ErrInvalidArgs, m.name)
	}
	if m.script && a.scripts() != 1 {
		return fmt.Errorf("%w: execute needs exactly one of -exec-cmd, -get-faults, -get-schedule, -scan-disc, -scan-full or -poll", cli.ErrInvalidArgs)
	}
	if !m.script && a.scripts() > 0 {
		return fmt.Errorf("%w: scripts only run with execute", cli.ErrInvalidArgs)
	}

	src := port
	if !m.port {
		src = ""
	}
	if err := a.loadConfig(ctx, m, src); err != nil {
		return err
	}

	a.out = newPrinter(env.Stdout, a.long, a.cfg.Gateway.UseAliases, a.cfg.Alias)
	if a.tui {
		a.out.w = io.Discard
	}

	var plog *packetlog.Log
	if a.cfg.PacketLog.FileName != "" {
		var err error
		if plog, err = packetlog.Open(ctx, a.cfg.PacketLog); err != nil {
			return err
		}
		defer plog.Close()
	}

	opts := transport.FromConfig(a.cfg)
	opts.Invalid = func(dtm time.Time, line string, err error) {
		if plog != nil {
			packetlog.Invalid(ctx, plog.Logger, dtm, line, err)
		}
		a.out.invalid(line, err)
	}

	var (
		tr  gateway.Transport
		err error
	)
	if m.port {
		dial := a.dial
		if dial == nil {
			dial = openPort
		}
		tr, err = dial(ctx, port, opts)
	} else {
		tr, err = replayFile(port, env.Stdin, opts)
	}
	if err != nil {
		return err
	}
	if c, ok := tr.(io.Closer); ok {
		defer c.Close()
	}

	gwOpts := gateway.Options{
		OnMessage: func(_ context.Context, msg *protocol.Message) { a.out.message(msg) },
		OnInvalid: func(_ context.Context, pkt *protocol.Packet, err error) { a.out.invalid(pkt.LogLine(), err) },
	}
	if plog != nil {
		gwOpts.PacketLog = plog.Logger
	}
	gw := gateway.New(a.cfg, tr, gwOpts)

	if err := a.serve(ctx, gw, m); err != nil {
		return err
	}
	return a.printSnapshots(gw)
}

// serve runs the gateway, and around it the HTTP API, the TUI and the
// script, until they are done.
func (a *app) serve(ctx context.Context, gw *gateway.Gateway, m mode) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg      sync.WaitGroup
		errMu   sync.Mutex
		errs    []error
		collect = func(err error) {
			if err != nil && !errors.Is(err, context.Canceled) {
				errMu.Lock()
				errs = append(errs, err)
				errMu.Unlock()
			}
		}
	)

	if a.httpAddr != "" {
		h := api.New(gw)
		s := &web.Server{Mux: http.NewServeMux(), Addr: a.httpAddr, CSP: web.NewCSPMux()}
		h.Register(s.Mux, s.CSP)
		wg.Go(func() { h.Stream(ctx) })
		wg.Go(func() {
			if err := s.ListenAndServe(ctx); err != nil {
				collect(err)
				cancel()
			}
		})
	}

	if a.tui {
		wg.Go(func() {
			collect(runTUI(ctx, gw))
			cancel()
		})
	}

	if m.port {
		systemd.Watchdog(ctx)
		wg.Go(func() {
			systemd.Notify(ctx, systemd.Ready)
			systemd.ReportStatus(ctx, time.Minute, func() string {
				st := gw.Stats()
				return fmt.Sprintf("%d devices, %d msgs", st.Devices, st.Messages)
			})
		})
		defer systemd.Notify(ctx, systemd.Stopping)
	}

	if m.script {
		wg.Go(func() {
			collect(a.runScript(ctx, gw))
			cancel()
		})
	}

	err := gw.Start(ctx)
	// A replayed log stays served until interrupted. A closed radio ends
	// everything.
	if m.port || (a.httpAddr == "" && !a.tui) {
		cancel()
	}
	wg.Wait()
	collect(err)
	return errors.Join(errs...)
}

func (a *app) scripts() int {
	n := 0
	for _, s := range []string{a.execCmd, a.getFaults, a.getSchedule, a.scanDisc, a.scanFull, a.poll} {
		if s != "" {
			n++
		}
	}
	return n
}

// runScript runs the script selected by flags and prints its result.
func (a *app) runScript(ctx context.Context, gw *gateway.Gateway) error {
	var (
		res any
		err error
	)
	switch {
	case a.execCmd != "":
		res, err = gw.ExecCmd(ctx, a.execCmd)
	case a.getFaults != "":
		var ctl protocol.Address
		if ctl, err = protocol.ParseAddress(a.getFaults); err == nil {
			res, err = gw.GetFaults(ctx, ctl, 0)
		}
	case a.getSchedule != "":
		ctl, zone, ok := strings.Cut(a.getSchedule, ",")
		if !ok {
			return fmt.Errorf("%w: -get-schedule wants ctl,zone", cli.ErrInvalidArgs)
		}
		var id protocol.Address
		if id, err = protocol.ParseAddress(ctl); err == nil {
			res, err = gw.GetSchedule(ctx, id, strings.ToUpper(zone))
		}
	case a.scanDisc != "":
		err = forEachDevice(a.scanDisc, func(id protocol.Address) error {
			_, err := gw.ScanDisc(ctx, id)
			return err
		})
	case a.scanFull != "":
		err = forEachDevice(a.scanFull, func(id protocol.Address) error {
			_, err := gw.ScanFull(ctx, id)
			return err
		})
	case a.poll != "":
		var (
			wg    sync.WaitGroup
			mu    sync.Mutex
			perrs []error
		)
		err = forEachDevice(a.poll, func(id protocol.Address) error {
			wg.Go(func() {
				if err := gw.PollDevice(ctx, id, time.Minute); err != nil {
					mu.Lock()
					perrs = append(perrs, err)
					mu.Unlock()
				}
			})
			return nil
		})
		wg.Wait()
		err = errors.Join(append(perrs, err)...)
	}
	if err != nil {
		return err
	}
	if res != nil {
		return a.out.json(res)
	}
	return nil
}

func forEachDevice(ids string, f func(protocol.Address) error) error {
	for s := range strings.SplitSeq(ids, ",") {
		id, err := protocol.ParseAddress(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("%w: %v", cli.ErrInvalidArgs, err)
		}
		if err := f(id); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) printSnapshots(gw *gateway.Gateway) error {
	snaps := make(map[string]any)
	if a.showSchema {
		snaps["schema"] = gw.Schema()
	}
	if a.showParams {
		snaps["params"] = gw.Params()
	}
	if a.showStatus {
		snaps["status"] = gw.Status()
	}
	if a.showKnowns {
		snaps["known_list"] = gw.KnownList()
	}
	if a.showTraits {
		snaps["traits"] = gw.Traits()
	}
	if len(snaps) == 0 {
		return nil
	}
	return a.out.json(snaps)
}

func openPort(ctx context.Context, port string, opts transport.Options) (gateway.Transport, error) {
	return transport.Open(ctx, port, opts)
}

// replayFile returns a transport replaying the packet log at path, or r if
// path is empty or "-".
func replayFile(path string, r io.Reader, opts transport.Options) (gateway.Transport, error) {
	if path == "" || path == "-" {
		return transport.Replay(r, opts), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return transport.Replay(f, opts), nil
}
