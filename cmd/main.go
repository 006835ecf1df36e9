// vinput - synthesizes keyboard and mouse input on the local machine or
// on a remote agent.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"vinput/internal/api"
	"vinput/internal/autostart"
	"vinput/internal/config"
	"vinput/internal/input"
	"vinput/internal/input/inputtest"
	"vinput/internal/journal"
	"vinput/internal/network"
	"vinput/internal/osutils"
	"vinput/internal/protocol"
	"vinput/internal/script"
)

var (
	version = "0.1.0"

	configPath = flag.String("config", "", "Config file (default: per-user config dir)")
	showVer    = flag.Bool("version", false, "Show version")
	backend    = flag.String("backend", "", "Backend override: native or dryrun")
	display    = flag.String("display", "", "X display override")
	listKeys   = flag.Bool("list-keys", false, "List key names and whether the backend supports them")

	tapKey     = flag.String("key", "", "Press and release a key")
	pressKey   = flag.String("press", "", "Press a key")
	releaseKey = flag.String("release", "", "Release a key")
	chord      = flag.String("chord", "", "Play a key chord, e.g. ControlLeft+C")
	click      = flag.String("click", "", "Click a button: left, middle, right or a raw number")
	buttonDown = flag.String("button-down", "", "Press a button")
	buttonUp   = flag.String("button-up", "", "Release a button")
	move       = flag.String("move", "", "Move the pointer to x,y")
	moveRel    = flag.String("move-rel", "", "Move the pointer by dx,dy")
	scroll     = flag.String("scroll", "", "Scroll by dx,dy notches")
	wake       = flag.Bool("wake", false, "Nudge the pointer to wake the display")

	showPointer = flag.Bool("pointer", false, "Print the pointer position and held buttons")
	scriptFile  = flag.String("script", "", "Run a Lua input script")
	serve       = flag.Bool("serve", false, "Run the agent: HTTP/WebSocket API and UDP listener")
	send        = flag.String("send", "", "Send actions to a remote agent: udp://host:port or ws://host:port")
	discover    = flag.Bool("discover", false, "Scan the LAN for running agents")
	autoStart   = flag.String("autostart", "", "Start the agent at login: enable, disable or status")
)

// actor receives the actions given on the command line, locally or on a
// remote agent.
type actor interface {
	input.Sink
	MoveRelative(dx, dy int32, wantStart bool) (input.Point, error)
}

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("vinput version %s\n", version)
		return
	}

	cfgMgr, err := newConfigManager()
	if err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}
	if err := cfgMgr.Load(); err != nil {
		log.Fatalf("Failed to load config %s: %v", cfgMgr.Path(), err)
	}
	cfg := cfgMgr.Get()
	if *backend != "" {
		cfg.Backend.Name = *backend
	}
	if *display != "" {
		cfg.Backend.Display = *display
	}
	if err := cfgMgr.Set(cfg); err != nil {
		log.Fatalf("Invalid flags: %v", err)
	}

	if *discover {
		runDiscover(cfg)
		return
	}
	if *autoStart != "" {
		if err := runAutostart(*autoStart); err != nil {
			log.Fatalf("Autostart: %v", err)
		}
		return
	}

	target := *send
	if target == "" && !*serve && cfg.Agent.RemoteAddr != "" && hasActions() {
		target = cfg.Agent.RemoteAddr
	}
	if target != "" {
		a, closeFn, err := dialRemote(target, cfg.Agent.Token)
		if err != nil {
			log.Fatalf("Failed to connect to %s: %v", target, err)
		}
		err = runActions(a)
		closeFn()
		if err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	sim, db, err := newSimulator(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize backend: %v", err)
	}
	if db != nil {
		defer db.Close()
	}

	switch {
	case *listKeys:
		for _, k := range input.AllKeys() {
			mark := " "
			if sim.Supports(k) {
				mark = "✓"
			}
			if k.IsModifier() {
				fmt.Printf("%s %s (modifier)\n", mark, k)
				continue
			}
			fmt.Printf("%s %s\n", mark, k)
		}
	case *showPointer:
		st, err := sim.Pointer()
		if err != nil {
			log.Fatalf("Failed to read pointer: %v", err)
		}
		p := protocol.NewPointerPayload(st)
		fmt.Printf("Pointer: (%d, %d) buttons=%v\n", p.X, p.Y, p.Buttons)
	case *scriptFile != "":
		r := script.NewRunner(sim, time.Duration(cfg.Script.TimeoutSeconds)*time.Second)
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		err := r.RunFile(ctx, *scriptFile)
		stop()
		if err != nil {
			log.Fatalf("Script %s failed: %v", *scriptFile, err)
		}
	case *serve:
		if err := runServe(cfgMgr, sim, db); err != nil {
			log.Fatalf("Agent stopped: %v", err)
		}
	case hasActions():
		if err := runActions(sim); err != nil {
			log.Fatalf("%v", err)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func newConfigManager() (*config.Manager, error) {
	if *configPath != "" {
		return config.NewManagerAt(*configPath), nil
	}
	return config.NewManager()
}

// newSimulator builds the configured backend and, when enabled, the
// journal recording every injection. The journal is nil when disabled.
func newSimulator(cfg config.Config) (*input.Simulator, *journal.DB, error) {
	var b input.Backend
	switch cfg.Backend.Name {
	case config.BackendDryRun:
		b = inputtest.NewRecorder(inputtest.WithName("dryrun"), inputtest.WithLogf(log.Printf))
	default:
		nb, err := input.NativeBackend(cfg.Backend.Display)
		if err != nil {
			return nil, nil, err
		}
		b = nb
	}
	log.Printf("Backend: %s", b.Name())

	opts := []input.Option{input.WithMaxWheelNotches(cfg.Translate.MaxWheelNotches)}
	var db *journal.DB
	if cfg.Journal.Enabled {
		var err error
		if db, err = openJournal(cfg); err != nil {
			return nil, nil, err
		}
		opts = append(opts, input.WithObserver(db.Observer()))
	}
	return input.New(b, opts...), db, nil
}

func openJournal(cfg config.Config) (*journal.DB, error) {
	path := cfg.Journal.Path
	if path == "" {
		dir, err := config.Dir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, journal.FileName)
	}
	db, err := journal.Open(path)
	if err != nil {
		return nil, err
	}
	log.Printf("Journal: Recording injections to %s", path)
	return db, nil
}

func hasActions() bool {
	return *tapKey != "" || *pressKey != "" || *releaseKey != "" || *chord != "" ||
		*click != "" || *buttonDown != "" || *buttonUp != "" ||
		*move != "" || *moveRel != "" || *scroll != "" || *wake
}

// runActions performs the action flags in a fixed order, so -move combined
// with -click clicks at the new position.
func runActions(a actor) error {
	if *pressKey != "" {
		k, err := input.ParseKey(*pressKey)
		if err != nil {
			return err
		}
		if err := a.Simulate(input.KeyPress(k)); err != nil {
			return err
		}
	}
	if *tapKey != "" {
		k, err := input.ParseKey(*tapKey)
		if err != nil {
			return err
		}
		if err := (input.Chord{k}).Play(a); err != nil {
			return err
		}
	}
	if *chord != "" {
		c, err := input.ParseChord(*chord)
		if err != nil {
			return err
		}
		if err := c.Play(a); err != nil {
			return err
		}
	}
	if *releaseKey != "" {
		k, err := input.ParseKey(*releaseKey)
		if err != nil {
			return err
		}
		if err := a.Simulate(input.KeyRelease(k)); err != nil {
			return err
		}
	}

	if *move != "" {
		x, y, err := parseFloatPair(*move)
		if err != nil {
			return fmt.Errorf("-move: %w", err)
		}
		if err := a.Simulate(input.PointerMove(x, y)); err != nil {
			return err
		}
	}
	if *moveRel != "" {
		dx, dy, err := parseIntPair(*moveRel, 32)
		if err != nil {
			return fmt.Errorf("-move-rel: %w", err)
		}
		if _, err := a.MoveRelative(int32(dx), int32(dy), false); err != nil {
			return err
		}
	}

	for _, step := range []struct {
		flag  string
		value string
		event func(input.Button) []input.Event
	}{
		{"-button-down", *buttonDown, func(b input.Button) []input.Event { return []input.Event{input.ButtonPress(b)} }},
		{"-click", *click, func(b input.Button) []input.Event {
			return []input.Event{input.ButtonPress(b), input.ButtonRelease(b)}
		}},
		{"-button-up", *buttonUp, func(b input.Button) []input.Event { return []input.Event{input.ButtonRelease(b)} }},
	} {
		if step.value == "" {
			continue
		}
		b, err := input.ParseButton(step.value)
		if err != nil {
			return fmt.Errorf("%s: %w", step.flag, err)
		}
		for _, ev := range step.event(b) {
			if err := a.Simulate(ev); err != nil {
				return err
			}
		}
	}

	if *scroll != "" {
		dx, dy, err := parseIntPair(*scroll, 64)
		if err != nil {
			return fmt.Errorf("-scroll: %w", err)
		}
		if err := a.Simulate(input.Wheel(dx, dy)); err != nil {
			return err
		}
	}
	if *wake {
		if err := osutils.WakeUp(a); err != nil {
			return err
		}
	}
	return nil
}

func splitPair(s string) (string, string, error) {
	a, b, ok := strings.Cut(s, ",")
	if !ok {
		return "", "", fmt.Errorf("expected two comma-separated values, got %q", s)
	}
	return strings.TrimSpace(a), strings.TrimSpace(b), nil
}

func parseFloatPair(s string) (float64, float64, error) {
	a, b, err := splitPair(s)
	if err != nil {
		return 0, 0, err
	}
	x, err := strconv.ParseFloat(a, 64)
	if err != nil {
		return 0, 0, err
	}
	y, err := strconv.ParseFloat(b, 64)
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

func parseIntPair(s string, bits int) (int64, int64, error) {
	a, b, err := splitPair(s)
	if err != nil {
		return 0, 0, err
	}
	x, err := strconv.ParseInt(a, 10, bits)
	if err != nil {
		return 0, 0, err
	}
	y, err := strconv.ParseInt(b, 10, bits)
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

// udpActor sends actions as binary packets. Delivery is not confirmed.
type udpActor struct {
	s *network.UDPSender
}

func (a udpActor) Simulate(ev input.Event) error {
	return a.s.Send(ev)
}

func (a udpActor) MoveRelative(dx, dy int32, _ bool) (input.Point, error) {
	return input.Point{}, a.s.MoveRelative(dx, dy)
}

// wsActor waits for the agent's result of every action.
type wsActor struct {
	c *network.WSClient
}

func (a wsActor) Simulate(ev input.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.c.Simulate(ctx, ev)
}

func (a wsActor) MoveRelative(dx, dy int32, wantStart bool) (input.Point, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.c.MoveRelative(ctx, dx, dy, wantStart)
}

var errUnknownScheme = errors.New("unknown scheme, expected udp:// or ws://")

func dialRemote(target, token string) (actor, func(), error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, nil, err
	}
	switch u.Scheme {
	case "udp":
		s, err := network.DialUDP(u.Host, token)
		if err != nil {
			return nil, nil, err
		}
		if !s.Probe() {
			log.Printf("Warning: %s did not answer, packets may be dropped", u.Host)
		}
		return udpActor{s}, func() { s.Close() }, nil
	case "ws":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c, err := network.DialWS(ctx, u.Host, token)
		if err != nil {
			return nil, nil, err
		}
		if err := c.Authenticate(ctx, token, "vinput", version); err != nil {
			c.Close()
			return nil, nil, err
		}
		return wsActor{c}, func() { c.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", errUnknownScheme, target)
	}
}

func listenPort(addr string) int {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0
	}
	port, _ := strconv.Atoi(p)
	return port
}

func runAutostart(action string) error {
	switch action {
	case "enable":
		e, err := autostart.AgentEntry()
		if err != nil {
			return err
		}
		if *configPath != "" {
			abs, err := filepath.Abs(*configPath)
			if err != nil {
				return err
			}
			e.Args = append(e.Args, "-config", abs)
		}
		if err := autostart.Enable(e); err != nil {
			return err
		}
		fmt.Printf("Agent will start at login: %s\n", e.CommandLine())
	case "disable":
		if err := autostart.Disable(); err != nil {
			return err
		}
		fmt.Println("Agent will no longer start at login")
	case "status":
		fmt.Printf("Autostart enabled: %v\n", autostart.IsEnabled())
	default:
		return fmt.Errorf("unknown action %q, expected enable, disable or status", action)
	}
	return nil
}

func runDiscover(cfg config.Config) {
	port := listenPort(cfg.Agent.ListenAddr)
	if port == 0 {
		log.Fatalf("Cannot derive a port from listen_addr %q", cfg.Agent.ListenAddr)
	}
	log.Printf("Scanning LAN for agents on port %d...", port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	agents, err := network.ScanLAN(ctx, port)
	if err != nil {
		log.Fatalf("Scan failed: %v", err)
	}
	if len(agents) == 0 {
		fmt.Println("No agents found")
		return
	}
	for _, a := range agents {
		fmt.Printf("%s  backend=%s  version=%s\n", a.Addr, a.Backend, a.Version)
	}
}

// runServe runs the agent until SIGINT or SIGTERM. SIGHUP reloads the
// config file; only the API token is applied without a restart.
func runServe(cfgMgr *config.Manager, sim *input.Simulator, db *journal.DB) error {
	cfg := cfgMgr.Get()
	log.Printf("vinput agent %s starting...", version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	if runtime.GOOS == "windows" {
		go func() {
			if err := osutils.EnsureFirewallRule(listenPort(cfg.Agent.ListenAddr), cfg.Agent.UDPPort); err != nil {
				log.Printf("Firewall warning: %v", err)
			}
		}()
	}

	server := api.NewServer(sim, api.Options{
		Token:   cfg.Agent.Token,
		Backend: sim.Backend().Name(),
		Version: version,
		Journal: db,
	})
	g.Go(func() error {
		return server.ListenAndServe(ctx, cfg.Agent.ListenAddr)
	})

	var udp *network.UDPListener
	if cfg.Agent.UDPPort > 0 {
		udp = network.NewUDPListener(fmt.Sprintf(":%d", cfg.Agent.UDPPort), sim, cfg.Agent.Verbose)
		udp.SetToken(cfg.Agent.Token)
		if cfg.Agent.Token == "" {
			log.Printf("Warning: no agent token set, the UDP port accepts input from any sender")
		}
		g.Go(func() error {
			return udp.ListenAndServe(ctx)
		})
	}

	cfgMgr.RegisterChangeCallback(func() {
		token := cfgMgr.Get().Agent.Token
		server.SetToken(token)
		if udp != nil {
			udp.SetToken(token)
		}
		log.Println("Config: Reloaded, agent token updated")
	})
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	g.Go(func() error {
		defer signal.Stop(hup)
		for {
			select {
			case <-hup:
				if err := cfgMgr.Load(); err != nil {
					log.Printf("Config: Reload failed: %v", err)
				}
			case <-ctx.Done():
				return nil
			}
		}
	})

	err := g.Wait()
	log.Println("vinput agent stopped")
	return err
}
